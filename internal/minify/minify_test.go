package minify

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `/*PREJST:{"version":"1.0.0"}*/
/* scratch note */
define([], function() { var temp={};
temp.hello = function(obj){ var longLocalName = obj.name; return longLocalName; };
 return temp;})`

func headerOpts() Options {
	return Options{
		Reserved:  []string{"require"},
		Comments:  regexp.MustCompile(`PREJST:|^v:\d+`),
		Mangle:    true,
		ASCIIOnly: true,
	}
}

func TestTransformMinifyKeepsHeader(t *testing.T) {
	res, err := Transform("index.js", sample, headerOpts())
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(res.Output, `/*PREJST:{"version":"1.0.0"}*/`+"\n"))
	assert.Equal(t, 1, strings.Count(res.Output, "PREJST:"))
	assert.NotContains(t, res.Output, "scratch note")
	assert.NotContains(t, res.Output, "longLocalName")
	assert.Contains(t, res.Output, "define(")
}

func TestTransformKeepsVersionComment(t *testing.T) {
	res, err := Transform("index.js", "/*v:3*/\nvar a = 1;", headerOpts())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(res.Output, "/*v:3*/\n"))
}

func TestTransformBeautify(t *testing.T) {
	opts := headerOpts()
	opts.Mangle = false
	opts.Beautify = true

	res, err := Transform("index.js", sample, opts)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(res.Output, `/*PREJST:{"version":"1.0.0"}*/`+"\n"))
	assert.Contains(t, res.Output, "longLocalName")
	assert.Greater(t, strings.Count(res.Output, "\n"), 3)
}

func TestTransformKeepsES5Output(t *testing.T) {
	code := `define([], function() { var temp={};
temp.pre=function(obj){ var __p=''; __p+='<pre>  a\n  b</pre>'; return __p; };
temp.pick=function(a, b){ return a != null ? a : b; };
 return temp;})`

	beautify := headerOpts()
	beautify.Mangle = false
	beautify.Beautify = true

	tests := []struct {
		name string
		opts Options
	}{
		{name: "minify", opts: headerOpts()},
		{name: "beautify", opts: beautify},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Transform("index.js", code, tt.opts)
			require.NoError(t, err)

			assert.NotContains(t, res.Output, "`")
			assert.NotContains(t, res.Output, "??")
			assert.Contains(t, res.Output, `a\n  b</pre>`)
		})
	}
}

func TestTransformKeepsRequire(t *testing.T) {
	res, err := Transform("index.js", `define([], function() { var dep = require("x"); return dep; })`, headerOpts())
	require.NoError(t, err)
	assert.Contains(t, res.Output, "require(")
}

func TestTransformSyntaxError(t *testing.T) {
	_, err := Transform("broken.js", "/*PREJST:{}*/\nvar a = ;", headerOpts())
	require.Error(t, err)

	var minErr *Error
	require.ErrorAs(t, err, &minErr)
	assert.Equal(t, "broken.js", minErr.File)
	assert.Equal(t, 2, minErr.Line)
	assert.Contains(t, err.Error(), "Line 2 in broken.js")
}

func TestEsbuildMinifyReadsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "index.js")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))

	res, err := New().Minify(path, headerOpts())
	require.NoError(t, err)
	assert.NotEmpty(t, res.Output)

	onDisk, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, sample, string(onDisk))
}

func TestEsbuildMinifyMissingFile(t *testing.T) {
	_, err := New().Minify(filepath.Join(t.TempDir(), "missing.js"), headerOpts())
	assert.Error(t, err)
}

func TestSplitHeaderWithoutPattern(t *testing.T) {
	kept, rest := splitHeader(sample, nil)
	assert.Empty(t, kept)
	assert.Equal(t, sample, rest)
}

func TestEsbuildMinifyDecodesCharset(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "index.js")
	// "é" in ISO-8859-1.
	require.NoError(t, os.WriteFile(path, []byte("var a = '\xe9';"), 0o644))

	opts := headerOpts()
	opts.Charset = "iso-8859-1"
	res, err := New().Minify(path, opts)
	require.NoError(t, err)
	assert.NotContains(t, res.Output, "\u00e9")
	assert.Regexp(t, `\\(xE9|u00E9)`, res.Output)
}

func TestEsbuildMinifyUnknownCharset(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "index.js")
	require.NoError(t, os.WriteFile(path, []byte("var a = 1;"), 0o644))

	opts := headerOpts()
	opts.Charset = "no-such-charset"
	_, err := New().Minify(path, opts)
	assert.Error(t, err)
}
