// Package jst compiles underscore-style templates into the source text of a
// JavaScript render function. The output matches what underscore's
// _.template(text).source returns, so compiled templates behave the same
// when called from the generated runtime module.
package jst

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
)

// Settings holds the delimiters of the three template tag kinds.
type Settings struct {
	Escape      *regexp.Regexp
	Interpolate *regexp.Regexp
	Evaluate    *regexp.Regexp
}

// DefaultSettings returns underscore's ERB-style delimiters:
// <%- escaped %>, <%= raw %> and <% code %>.
func DefaultSettings() Settings {
	return Settings{
		Escape:      regexp.MustCompile(`<%-([\s\S]+?)%>`),
		Interpolate: regexp.MustCompile(`<%=([\s\S]+?)%>`),
		Evaluate:    regexp.MustCompile(`<%([\s\S]+?)%>`),
	}
}

// matcher joins the settings in escape, interpolate, evaluate order. Go
// regexps are leftmost-first, so at any offset the earlier kind wins.
func (s Settings) matcher() *regexp.Regexp {
	parts := make([]string, 0, 3)
	for _, re := range []*regexp.Regexp{s.Escape, s.Interpolate, s.Evaluate} {
		if re == nil {
			parts = append(parts, `(\x00\z\x00)`)
			continue
		}
		parts = append(parts, re.String())
	}
	return regexp.MustCompile(strings.Join(parts, "|"))
}

// SyntaxError is returned when the generated function is not valid
// JavaScript, typically because of broken code inside <% %> tags. Line and
// Column point into the generated function source.
type SyntaxError struct {
	Message string
	Line    int
	Column  int
	Source  string
}

func (e *SyntaxError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%d:%d: %s", e.Line, e.Column, e.Message)
	}
	return e.Message
}

// Compiler turns one template source into one function source.
type Compiler struct {
	settings Settings
	matcher  *regexp.Regexp

	// Variable names the data argument. Empty means "obj" wrapped in a with
	// block, as underscore does.
	Variable string

	// Validate parses every generated function and reports a SyntaxError
	// instead of emitting code that fails at load time.
	Validate bool
}

// NewCompiler returns a validating compiler with default settings.
func NewCompiler() *Compiler {
	return NewCompilerWithSettings(DefaultSettings())
}

// NewCompilerWithSettings returns a validating compiler using settings.
func NewCompilerWithSettings(settings Settings) *Compiler {
	return &Compiler{
		settings: settings,
		matcher:  settings.matcher(),
		Validate: true,
	}
}

var stringEscaper = strings.NewReplacer(
	`\`, `\\`,
	`'`, `\'`,
	"\r", `\r`,
	"\n", `\n`,
	"\u2028", `\u2028`,
	"\u2029", `\u2029`,
)

// Compile returns the render function source for source.
func (c *Compiler) Compile(source string) (string, error) {
	var body strings.Builder
	body.WriteString("__p+='")

	index := 0
	for _, m := range c.matcher.FindAllStringSubmatchIndex(source, -1) {
		body.WriteString(stringEscaper.Replace(source[index:m[0]]))
		index = m[1]

		switch {
		case m[2] >= 0:
			body.WriteString("'+\n((__t=(" + source[m[2]:m[3]] + "))==null?'':_.escape(__t))+\n'")
		case m[4] >= 0:
			body.WriteString("'+\n((__t=(" + source[m[4]:m[5]] + "))==null?'':__t)+\n'")
		case m[6] >= 0:
			body.WriteString("';\n" + source[m[6]:m[7]] + "\n__p+='")
		}
	}
	body.WriteString(stringEscaper.Replace(source[index:]))
	body.WriteString("';\n")

	inner := body.String()
	argument := c.Variable
	if argument == "" {
		argument = "obj"
		inner = "with(obj||{}){\n" + inner + "}\n"
	}

	fn := "function(" + argument + "){\n" +
		"var __t,__p='',__j=Array.prototype.join,print=function(){__p+=__j.call(arguments,'');};\n" +
		inner + "return __p;\n}"

	if c.Validate {
		if err := validate(fn); err != nil {
			return "", err
		}
	}

	return fn, nil
}

// validate parses fn as a parenthesised function expression.
func validate(fn string) error {
	result := api.Transform("("+fn+")", api.TransformOptions{
		Loader:   api.LoaderJS,
		LogLevel: api.LogLevelSilent,
	})
	if len(result.Errors) == 0 {
		return nil
	}

	msg := result.Errors[0]
	syntaxErr := &SyntaxError{Message: msg.Text, Source: fn}
	if msg.Location != nil {
		syntaxErr.Line = msg.Location.Line
		syntaxErr.Column = msg.Location.Column
		if syntaxErr.Line == 1 && syntaxErr.Column > 0 {
			syntaxErr.Column--
		}
	}
	return syntaxErr
}
