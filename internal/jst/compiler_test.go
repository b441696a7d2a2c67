package jst

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const prelude = "function(obj){\n" +
	"var __t,__p='',__j=Array.prototype.join,print=function(){__p+=__j.call(arguments,'');};\n"

func TestCompileInterpolate(t *testing.T) {
	fn, err := NewCompiler().Compile("Hello <%= name %>!")
	require.NoError(t, err)

	want := prelude +
		"with(obj||{}){\n" +
		"__p+='Hello '+\n((__t=( name ))==null?'':__t)+\n'!';\n" +
		"}\n" +
		"return __p;\n}"
	assert.Equal(t, want, fn)
}

func TestCompileEscapeAndEvaluate(t *testing.T) {
	fn, err := NewCompiler().Compile("<% if (ok) { %><b><%- title %></b><% } %>")
	require.NoError(t, err)

	assert.Contains(t, fn, "__p+='';\n if (ok) { \n__p+='<b>'+\n((__t=( title ))==null?'':_.escape(__t))+\n'</b>';\n } \n__p+='';\n")
}

func TestCompileEscapesStringLiterals(t *testing.T) {
	fn, err := NewCompiler().Compile("it's a \\ line\r\nnext ")
	require.NoError(t, err)

	assert.Contains(t, fn, `__p+='it\'s a \\ line\r\nnext ';`)
}

func TestCompileWithVariable(t *testing.T) {
	c := NewCompiler()
	c.Variable = "data"

	fn, err := c.Compile("<%= data.x %>")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(fn, "function(data){\n"))
	assert.NotContains(t, fn, "with(")
}

func TestCompileSyntaxError(t *testing.T) {
	_, err := NewCompiler().Compile("<% if (a) { %>unterminated")
	require.Error(t, err)

	var syntaxErr *SyntaxError
	require.ErrorAs(t, err, &syntaxErr)
	assert.NotEmpty(t, syntaxErr.Message)
	assert.Greater(t, syntaxErr.Line, 0)
	assert.NotEmpty(t, syntaxErr.Source)
}

func TestCompileWithoutValidation(t *testing.T) {
	c := NewCompiler()
	c.Validate = false

	fn, err := c.Compile("<% if (a) { %>unterminated")
	require.NoError(t, err)
	assert.Contains(t, fn, "unterminated")
}

func TestCompileEmpty(t *testing.T) {
	fn, err := NewCompiler().Compile("")
	require.NoError(t, err)
	assert.Contains(t, fn, "__p+='';\n")
}

func TestSyntaxErrorMessage(t *testing.T) {
	assert.Equal(t, "2:4: Unexpected end of file", (&SyntaxError{Message: "Unexpected end of file", Line: 2, Column: 4}).Error())
	assert.Equal(t, "bad", (&SyntaxError{Message: "bad"}).Error())
}
