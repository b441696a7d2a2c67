// Package config merges the prejst build configuration from three layers
// using Viper: built-in defaults, the prejst-config block stored in the
// project manifest, and caller overrides (flags, PREJST_* environment
// variables, an optional .prejst.yml file).
//
// The merged result is normalised for compatibility with older manifests
// before it is validated.
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Module types accepted in the type field.
const (
	TypeDefault = "default"
	TypeGlobal  = "global"
)

// Config holds the build settings of one template project.
type Config struct {
	Output   string `mapstructure:"output" json:"output" yaml:"output" toml:"output"`
	Charset  string `mapstructure:"charset" json:"charset" yaml:"charset" toml:"charset"`
	Compress bool   `mapstructure:"compress" json:"compress" yaml:"compress" toml:"compress"`
	Runtime  string `mapstructure:"runtime" json:"runtime" yaml:"runtime" toml:"runtime"`
	Minify   bool   `mapstructure:"minify" json:"minify" yaml:"minify" toml:"minify"`
	Combo    bool   `mapstructure:"combo" json:"combo,omitempty" yaml:"combo,omitempty" toml:"combo,omitempty"`
	Debug    bool   `mapstructure:"debug" json:"debug,omitempty" yaml:"debug,omitempty" toml:"debug,omitempty"`
	Type     string `mapstructure:"type" json:"type,omitempty" yaml:"type,omitempty" toml:"type,omitempty"`
	Alias    string `mapstructure:"alias" json:"alias,omitempty" yaml:"alias,omitempty" toml:"alias,omitempty"`

	// Extra holds free-form extension fields. Viper lower-cases their keys.
	Extra map[string]interface{} `mapstructure:",remain" json:"extra,omitempty" yaml:"extra,omitempty" toml:"extra,omitempty"`
}

// UserKeys are the settings persisted back into the manifest.
var UserKeys = []string{"output", "charset", "compress", "runtime", "minify"}

// OverrideKeys are the settings a caller may override.
var OverrideKeys = []string{"output", "charset", "compress", "runtime", "minify", "combo", "debug", "type"}

// Defaults returns the built-in configuration layer.
func Defaults() map[string]interface{} {
	return map[string]interface{}{
		"output":   "./build",
		"charset":  "utf-8",
		"compress": true,
		"runtime":  "template.js",
		"minify":   true,
	}
}

// Overrides holds caller-provided settings. Nil values are ignored.
type Overrides map[string]interface{}

// OverridesFromViper collects every OverrideKey that is set on v.
func OverridesFromViper(v *viper.Viper) Overrides {
	out := Overrides{}
	for _, key := range OverrideKeys {
		if v.IsSet(key) {
			out[key] = v.Get(key)
		}
	}
	return out
}

// Merge layers defaults, the stored project block and overrides, normalises
// the result and validates it. base is the project root and cwd the directory
// override paths are relative to.
func Merge(project map[string]interface{}, overrides Overrides, base, cwd string) (*Config, error) {
	v := viper.New()

	for key, value := range Defaults() {
		v.SetDefault(key, value)
	}

	if err := v.MergeConfigMap(project); err != nil {
		return nil, fmt.Errorf("failed to merge project config: %w", err)
	}

	for key, value := range overrides {
		if value != nil {
			v.Set(key, value)
		}
	}

	// Older manifests store combo as a list of file patterns.
	if raw, ok := v.Get("combo").([]interface{}); ok {
		v.Set("combo", len(raw) > 0)
	}

	if v.GetString("type") == "templatejs" {
		v.Set("type", TypeDefault)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if cfg.Type == "" {
		cfg.Type = TypeDefault
	}

	if cfg.Type == TypeDefault || cfg.Type == TypeGlobal {
		cfg.Alias = ""
	} else {
		cfg.Combo = false
	}

	if out, ok := overrides["output"].(string); ok && out != "" {
		rel, err := relativeTo(base, cwd, out)
		if err != nil {
			return nil, err
		}
		cfg.Output = rel
	}

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// relativeTo expresses path (relative to cwd) relative to base.
func relativeTo(base, cwd, path string) (string, error) {
	abs := path
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(cwd, abs)
	}
	rel, err := filepath.Rel(base, abs)
	if err != nil {
		return "", fmt.Errorf("output %s cannot be expressed relative to %s: %w", path, base, err)
	}
	return rel, nil
}

// ToMap returns the UserKeys of c, the form stored in the manifest.
func (c *Config) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"output":   c.Output,
		"charset":  c.Charset,
		"compress": c.Compress,
		"runtime":  c.Runtime,
		"minify":   c.Minify,
	}
}

// OutputDir resolves Output against the project root base.
func (c *Config) OutputDir(base string) string {
	output := c.Output
	if !filepath.IsAbs(output) {
		output = filepath.Join(base, output)
	}
	return filepath.Clean(output)
}

// RuntimePath is the artifact location for the project rooted at base.
func (c *Config) RuntimePath(base string) string {
	return filepath.Join(c.OutputDir(base), c.Runtime)
}

// Validate checks the values a build depends on.
func Validate(c *Config) error {
	if strings.TrimSpace(c.Output) == "" {
		return fmt.Errorf("output must not be empty")
	}

	if err := validateRuntime(c.Runtime); err != nil {
		return fmt.Errorf("runtime: %w", err)
	}

	if strings.TrimSpace(c.Charset) == "" {
		return fmt.Errorf("charset must not be empty")
	}

	return nil
}

// validateRuntime rejects runtime names that would place the artifact
// outside the output directory.
func validateRuntime(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("empty file name")
	}

	if filepath.IsAbs(name) {
		return fmt.Errorf("must be relative to output: %s", name)
	}

	cleanPath := filepath.Clean(name)
	if cleanPath == "." || cleanPath == ".." || strings.HasPrefix(cleanPath, ".."+string(filepath.Separator)) {
		return fmt.Errorf("path leaves output directory: %s", name)
	}

	return nil
}
