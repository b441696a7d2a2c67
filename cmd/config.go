package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/piza/prejst/internal/config"
	"github.com/piza/prejst/internal/manifest"
)

func newConfigCommand(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config [dir]",
		Short: "Print the merged build configuration",
		Long: `Print the configuration a build of dir would use: defaults, overlaid with
the prejst-config block of package.json, overlaid with flags, PREJST_*
environment variables and the overrides file. Nothing is written.

Examples:
  prejst config                   # JSON
  prejst config ./tpl -f yaml     # YAML
  prejst config --format toml     # TOML`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runConfig(cmd, args)
		},
	}

	addOverrideFlags(cmd.Flags())
	cmd.Flags().StringP("format", "f", "json", "Output format (json, yaml, toml)")

	return cmd
}

func (c *cli) runConfig(cmd *cobra.Command, args []string) error {
	_, cfg, err := c.loadConfig(args)
	if err != nil {
		return err
	}

	return writeConfig(cmd.OutOrStdout(), cfg, c.v.GetString("format"))
}

// loadConfig merges the configuration of the project in args without
// opening it, so nothing on disk changes.
func (c *cli) loadConfig(args []string) (string, *config.Config, error) {
	base, err := filepath.Abs(baseDir(args))
	if err != nil {
		return "", nil, err
	}

	m, err := manifest.Load(base)
	if err != nil {
		return "", nil, err
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", nil, err
	}

	cfg, err := config.Merge(m.Config(), c.overrides(), base, cwd)
	if err != nil {
		return "", nil, err
	}
	return base, cfg, nil
}

func writeConfig(w io.Writer, cfg *config.Config, format string) error {
	var (
		data []byte
		err  error
	)

	switch format {
	case "json":
		data, err = json.MarshalIndent(cfg, "", "  ")
		data = append(data, '\n')
	case "yaml", "yml":
		data, err = yaml.Marshal(cfg)
	case "toml":
		data, err = toml.Marshal(cfg)
	default:
		return fmt.Errorf("unsupported format: %s (supported: json, yaml, toml)", format)
	}
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	_, err = w.Write(data)
	return err
}
