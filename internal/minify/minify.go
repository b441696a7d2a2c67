// Package minify post-processes the generated runtime module. It minifies or
// beautifies JavaScript with esbuild and keeps selected header comments.
package minify

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
	"golang.org/x/text/encoding/htmlindex"
)

// Options controls one minifier run.
type Options struct {
	// Reserved lists identifiers that must survive renaming.
	Reserved []string
	// Comments selects leading block comments to keep, matched against the
	// comment text between /* and */.
	Comments *regexp.Regexp
	// Mangle renames local identifiers.
	Mangle bool
	// Beautify prints readable output instead of compact output.
	Beautify bool
	// ASCIIOnly escapes non-ASCII characters in the output.
	ASCIIOnly bool
	// Warnings is false to drop minifier warnings.
	Warnings bool
	// Charset names the encoding of the input file. Empty means UTF-8.
	Charset string
}

// Result is the output of a successful run.
type Result struct {
	Output   string
	Warnings []string
}

// Error carries the position of the first minifier error.
type Error struct {
	File    string
	Line    int
	Column  int
	Message string
}

func (e *Error) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s. Line %d in %s", e.Message, e.Line, e.File)
	}
	return e.Message
}

// Minifier transforms the JavaScript file at path.
type Minifier interface {
	Minify(path string, opts Options) (*Result, error)
}

// Esbuild is the default Minifier.
type Esbuild struct{}

// New returns the esbuild backed Minifier.
func New() *Esbuild {
	return &Esbuild{}
}

// Minify reads path and returns the transformed code. The file itself is
// not modified.
func (Esbuild) Minify(path string, opts Options) (*Result, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	code := string(content)
	if opts.Charset != "" {
		enc, err := htmlindex.Get(opts.Charset)
		if err != nil {
			return nil, fmt.Errorf("unsupported charset %q: %w", opts.Charset, err)
		}
		if code, err = enc.NewDecoder().String(code); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", path, err)
		}
	}

	return Transform(path, code, opts)
}

// Transform runs esbuild on code. Leading block comments matching
// opts.Comments are lifted out before the transform and written back, in
// order, at the head of the output.
func Transform(file, code string, opts Options) (*Result, error) {
	kept, rest := splitHeader(code, opts.Comments)

	// The runtime module is loaded by ES5 environments.
	transform := api.TransformOptions{
		Loader:     api.LoaderJS,
		Sourcefile: file,
		LogLevel:   api.LogLevelSilent,
		Charset:    api.CharsetUTF8,
		Target:     api.ES5,
	}
	if opts.ASCIIOnly {
		transform.Charset = api.CharsetASCII
	}
	if !opts.Beautify {
		transform.MinifyWhitespace = true
		transform.MinifySyntax = true
		transform.LegalComments = api.LegalCommentsNone
	}
	if opts.Mangle {
		// Unbound identifiers such as require are never renamed.
		transform.MinifyIdentifiers = true
	}

	result := api.Transform(rest, transform)
	if len(result.Errors) > 0 {
		msg := result.Errors[0]
		minErr := &Error{File: file, Message: msg.Text}
		if msg.Location != nil {
			minErr.Line = msg.Location.Line
			minErr.Column = msg.Location.Column
		}
		return nil, minErr
	}

	for _, name := range opts.Reserved {
		if containsIdent(rest, name) && !containsIdent(string(result.Code), name) {
			return nil, &Error{File: file, Message: fmt.Sprintf("reserved identifier %q was renamed", name)}
		}
	}

	out := &Result{}
	if opts.Warnings {
		for _, w := range result.Warnings {
			out.Warnings = append(out.Warnings, w.Text)
		}
	}

	var b strings.Builder
	for _, c := range kept {
		b.WriteString(c)
		b.WriteByte('\n')
	}
	b.Write(result.Code)
	out.Output = b.String()

	return out, nil
}

// splitHeader removes the leading block comments selected by keep from code
// and returns them with the remaining code.
func splitHeader(code string, keep *regexp.Regexp) ([]string, string) {
	if keep == nil {
		return nil, code
	}

	var kept []string
	var rest strings.Builder
	remaining := code
	for {
		trimmed := strings.TrimLeft(remaining, " \t\r\n")
		if !strings.HasPrefix(trimmed, "/*") {
			break
		}
		end := strings.Index(trimmed[2:], "*/")
		if end < 0 {
			break
		}
		rest.WriteString(remaining[:len(remaining)-len(trimmed)])
		comment := trimmed[:end+4]
		if keep.MatchString(comment[2 : len(comment)-2]) {
			kept = append(kept, comment)
			// Keep line numbers of later errors stable.
			rest.WriteString(strings.Repeat("\n", strings.Count(comment, "\n")))
		} else {
			rest.WriteString(comment)
		}
		remaining = trimmed[end+4:]
	}
	rest.WriteString(remaining)

	return kept, rest.String()
}

func containsIdent(code, name string) bool {
	re := regexp.MustCompile(`(^|[^\w$])` + regexp.QuoteMeta(name) + `($|[^\w$])`)
	return re.MatchString(code)
}
