package cmd

import (
	"fmt"
	"os"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/piza/prejst/internal/build"
)

func newInspectCommand(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect [dir]",
		Short: "Show the header of the built runtime module",
		Long: `Read the runtime module of dir and print the metadata stored in its
header. With --body the module itself is printed, its header replaced by the
short /*v:<version>*/ tag.

Examples:
  prejst inspect                  # Header of ./build/template.js
  prejst inspect ./tpl --body     # Module source without the header`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runInspect(cmd, args)
		},
	}

	addOverrideFlags(cmd.Flags())
	cmd.Flags().Bool("body", false, "print the module with its header stripped")

	return cmd
}

func (c *cli) runInspect(cmd *cobra.Command, args []string) error {
	base, cfg, err := c.loadConfig(args)
	if err != nil {
		return err
	}

	path := cfg.RuntimePath(base)
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read runtime module: %w", err)
	}
	code := string(content)
	out := cmd.OutOrStdout()

	if c.v.GetBool("body") {
		_, err := fmt.Fprintln(out, build.RemoveMetadata(code))
		return err
	}

	md, err := build.GetMetadata(code)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	if md == nil {
		return fmt.Errorf("%s has no %s header", path, build.MetadataMarker)
	}

	data, err := json.MarshalIndent(md, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "📦 %s\n%s\n", path, data)
	return nil
}
