package cmd

import (
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/piza/prejst/internal/build"
)

func newBuildCommand(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build [dir]",
		Short: "Compile the template tree into the runtime module",
		Long: `Compile every template under dir (default ".") into one AMD module.

The project package.json is updated with the running prejst version and the
merged configuration. A project that requires a newer prejst is not built.

Examples:
  prejst build                    # Build the current directory
  prejst build ./tpl -o dist      # Write into ./dist
  prejst build --debug            # Readable output, no minification`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runBuild(cmd, args)
		},
	}

	addOverrideFlags(cmd.Flags())
	cmd.Flags().BoolP("verbose", "v", false, "list every compiled template")

	return cmd
}

func (c *cli) runBuild(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	project, err := build.Open(ctx, baseDir(args), c.overrides(), build.Options{Logger: c.logger})
	if err != nil {
		return err
	}

	r := newReporter(cmd.OutOrStdout(), c.v.GetBool("verbose"))
	unsubscribe := project.Subscribe(r.Observe)
	defer unsubscribe()

	result, err := project.BuildAll(ctx, projectMetadata(project))
	if err != nil {
		return err
	}

	r.summary(project, result)
	return nil
}

// projectMetadata is the header written into each artifact. build changes
// on every pass so clients can tell artifacts apart.
func projectMetadata(p *build.Project) build.Metadata {
	v := p.Manifest().ProjectVersion()
	if v == "" {
		v = "1.0.0"
	}
	return build.Metadata{"version": v, "build": uuid.NewString()}
}
