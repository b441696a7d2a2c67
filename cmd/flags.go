package cmd

import (
	"github.com/spf13/pflag"

	"github.com/piza/prejst/internal/config"
)

// addOverrideFlags declares the build setting flags shared by build and watch.
func addOverrideFlags(flags *pflag.FlagSet) {
	flags.StringP("output", "o", "", "output directory, relative to the working directory")
	flags.String("runtime", "", "artifact file name inside the output directory")
	flags.String("charset", "", "template and artifact charset")
	flags.Bool("minify", true, "minify the artifact")
	flags.Bool("no-minify", false, "beautify instead of minifying")
	flags.Bool("compress", true, "collapse template whitespace")
	flags.Bool("debug", false, "debug build, implies beautify")
	flags.Bool("combo", false, "keep the combo cache directory")
	flags.String("type", "", "module type (default, global)")
}

// overrides collects the settings given by flags, PREJST_* variables or the
// overrides file. Unset settings are left to the manifest and defaults.
func (c *cli) overrides() config.Overrides {
	out := config.OverridesFromViper(c.v)
	for key, value := range out {
		if s, ok := value.(string); ok && s == "" {
			delete(out, key)
		}
	}
	if c.v.IsSet("no-minify") && c.v.GetBool("no-minify") {
		out["minify"] = false
	}
	return out
}

func baseDir(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return "."
}
