package config

import (
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeDefaults(t *testing.T) {
	cfg, err := Merge(nil, nil, "/work/tpl", "/work")
	require.NoError(t, err)

	assert.Equal(t, "./build", cfg.Output)
	assert.Equal(t, "utf-8", cfg.Charset)
	assert.True(t, cfg.Compress)
	assert.Equal(t, "template.js", cfg.Runtime)
	assert.True(t, cfg.Minify)
	assert.False(t, cfg.Combo)
	assert.Equal(t, TypeDefault, cfg.Type)
}

func TestMergeLayers(t *testing.T) {
	project := map[string]interface{}{
		"output":  "./dist",
		"runtime": "tpl.js",
		"minify":  true,
		"theme":   "dark",
	}
	overrides := Overrides{
		"minify": false,
		"debug":  true,
		"output": nil,
	}

	cfg, err := Merge(project, overrides, "/work/tpl", "/work")
	require.NoError(t, err)

	assert.Equal(t, "./dist", cfg.Output)
	assert.Equal(t, "tpl.js", cfg.Runtime)
	assert.False(t, cfg.Minify)
	assert.True(t, cfg.Debug)
	assert.Equal(t, "dark", cfg.Extra["theme"])
}

func TestMergeOutputOverrideRelativeToBase(t *testing.T) {
	base := filepath.FromSlash("/work/tpl")
	cwd := filepath.FromSlash("/work")

	cfg, err := Merge(nil, Overrides{"output": "public/js"}, base, cwd)
	require.NoError(t, err)

	assert.Equal(t, filepath.FromSlash("../public/js"), cfg.Output)
}

func TestMergeNormalisesLegacyFields(t *testing.T) {
	tests := []struct {
		name      string
		project   map[string]interface{}
		wantCombo bool
		wantType  string
		wantAlias string
	}{
		{
			name:      "empty combo list is false",
			project:   map[string]interface{}{"combo": []interface{}{}},
			wantCombo: false,
			wantType:  TypeDefault,
		},
		{
			name:      "non-empty combo list is true",
			project:   map[string]interface{}{"combo": []interface{}{"*.html"}},
			wantCombo: true,
			wantType:  TypeDefault,
		},
		{
			name:      "templatejs type becomes default and drops alias",
			project:   map[string]interface{}{"type": "templatejs", "alias": "tpl"},
			wantType:  TypeDefault,
			wantAlias: "",
		},
		{
			name:      "amd type drops combo keeps alias",
			project:   map[string]interface{}{"type": "amd", "alias": "tpl", "combo": true},
			wantCombo: false,
			wantType:  "amd",
			wantAlias: "tpl",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Merge(tt.project, nil, "/work", "/work")
			require.NoError(t, err)
			assert.Equal(t, tt.wantCombo, cfg.Combo)
			assert.Equal(t, tt.wantType, cfg.Type)
			assert.Equal(t, tt.wantAlias, cfg.Alias)
		})
	}
}

func TestMergeRejectsInvalid(t *testing.T) {
	tests := []struct {
		name    string
		project map[string]interface{}
	}{
		{"empty runtime", map[string]interface{}{"runtime": ""}},
		{"runtime escapes output", map[string]interface{}{"runtime": "../template.js"}},
		{"absolute runtime", map[string]interface{}{"runtime": "/tmp/template.js"}},
		{"empty output", map[string]interface{}{"output": " "}},
		{"empty charset", map[string]interface{}{"charset": ""}},
		{"undecodable value", map[string]interface{}{"minify": map[string]interface{}{"a": 1}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Merge(tt.project, nil, "/work", "/work")
			assert.Error(t, err)
			assert.Nil(t, cfg)
		})
	}
}

func TestToMapKeepsUserKeys(t *testing.T) {
	cfg, err := Merge(map[string]interface{}{"debug": true, "theme": "x"}, nil, "/work", "/work")
	require.NoError(t, err)

	m := cfg.ToMap()
	assert.Len(t, m, len(UserKeys))
	for _, key := range UserKeys {
		assert.Contains(t, m, key)
	}
}

func TestOverridesFromViper(t *testing.T) {
	v := viper.New()
	v.Set("minify", false)
	v.Set("output", "dist")
	v.Set("unrelated", "x")

	overrides := OverridesFromViper(v)
	assert.Equal(t, Overrides{"minify": false, "output": "dist"}, overrides)
}

func TestRuntimePath(t *testing.T) {
	base := filepath.FromSlash("/work/tpl")

	tests := []struct {
		name    string
		output  string
		runtime string
		wantDir string
	}{
		{name: "relative", output: "./build", runtime: "template.js", wantDir: filepath.FromSlash("/work/tpl/build")},
		{name: "parent", output: "../dist", runtime: "views.js", wantDir: filepath.FromSlash("/work/dist")},
		{name: "absolute", output: filepath.FromSlash("/srv/out/"), runtime: "t.js", wantDir: filepath.FromSlash("/srv/out")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Output: tt.output, Runtime: tt.runtime}
			assert.Equal(t, tt.wantDir, cfg.OutputDir(base))
			assert.Equal(t, filepath.Join(tt.wantDir, tt.runtime), cfg.RuntimePath(base))
		})
	}
}
