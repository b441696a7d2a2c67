// Package cmd provides the prejst command-line interface.
//
// Configuration System:
//
//	Build settings are layered, highest priority first:
//	1. Command-line flags (--output, --runtime, ...)
//	2. PREJST_* environment variables (PREJST_OUTPUT, PREJST_MINIFY, ...)
//	3. The overrides file: --config, PREJST_CONFIG_FILE, or .prejst.yml
//	4. The prejst-config block of the project package.json
//	5. Built-in defaults
package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/piza/prejst/internal/logging"
)

// cli carries the state shared by one command tree.
type cli struct {
	v       *viper.Viper
	cfgFile string
	logger  logging.Logger
}

// NewRootCommand builds the prejst command tree.
func NewRootCommand() *cobra.Command {
	c := &cli{v: viper.New()}

	rootCmd := &cobra.Command{
		Use:   "prejst",
		Short: "Precompile underscore templates into one AMD module",
		Long: `prejst compiles a directory of .html, .htm and .jst templates into a
single namespaced AMD runtime module, and keeps it current while you edit.

Quick Start:
  prejst build ./tpl              Compile ./tpl into ./tpl/build/template.js
  prejst watch ./tpl --rebuild    Rebuild on every change
  prejst config ./tpl             Show the merged configuration
  prejst inspect ./tpl            Show the header of the built module`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.initConfig(cmd)
		},
	}

	rootCmd.PersistentFlags().StringVar(&c.cfgFile, "config", "", "overrides file (default is .prejst.yml, can also use PREJST_CONFIG_FILE env var)")
	rootCmd.PersistentFlags().StringP("log-level", "l", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", logging.FormatAuto, "log format (text, json, auto)")

	rootCmd.AddCommand(
		newBuildCommand(c),
		newWatchCommand(c),
		newConfigCommand(c),
		newInspectCommand(c),
		newVersionCommand(),
	)

	return rootCmd
}

// Execute runs the prejst command tree.
func Execute() error {
	return NewRootCommand().Execute()
}

// initConfig wires the overrides file, environment variables and flags of
// the running command into the viper instance, then builds the logger.
func (c *cli) initConfig(cmd *cobra.Command) error {
	if c.cfgFile != "" {
		c.v.SetConfigFile(c.cfgFile)
	} else if envConfigFile := os.Getenv("PREJST_CONFIG_FILE"); envConfigFile != "" {
		c.v.SetConfigFile(envConfigFile)
	} else {
		c.v.AddConfigPath(".")
		c.v.SetConfigType("yaml")
		c.v.SetConfigName(".prejst")
	}

	c.v.SetEnvPrefix("PREJST")
	c.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	c.v.AutomaticEnv()

	// A missing default .prejst.yml is fine; an explicit file must exist.
	if err := c.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := c.v.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	logger, err := c.newLogger()
	if err != nil {
		return err
	}
	c.logger = logger

	if used := c.v.ConfigFileUsed(); used != "" {
		c.logger.Debug(cmd.Context(), "Using config file", "file", used)
	}

	return nil
}

func (c *cli) newLogger() (logging.Logger, error) {
	level, err := logging.ParseLevel(c.v.GetString("log-level"))
	if err != nil {
		return nil, err
	}

	cfg := logging.DefaultConfig()
	cfg.Level = level
	if format := c.v.GetString("log-format"); format != "" {
		cfg.Format = format
	}

	return logging.NewLogger(cfg), nil
}
