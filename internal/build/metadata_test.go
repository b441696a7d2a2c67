package build

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetMetadataSingleOccurrence(t *testing.T) {
	code, err := SetMetadata("var a=1;", Metadata{"version": "1.0.0"})
	require.NoError(t, err)
	assert.Equal(t, `/*PREJST:{"version":"1.0.0"}*/`+"\nvar a=1;", code)

	code, err = SetMetadata(code, Metadata{"version": "1.0.1"})
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(code, "/*PREJST:"))

	got, err := GetMetadata(code)
	require.NoError(t, err)
	assert.Equal(t, "1.0.1", got.Version())
}

func TestSetMetadataRemovesStrayHeaders(t *testing.T) {
	code := "var a=1;\n/*PREJST:{\"version\":\"0.1\"}*/\nvar b=2;/*PREJST:{}*/"

	out, err := SetMetadata(code, Metadata{"version": "2"})
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(out, "PREJST:"))
	assert.True(t, strings.HasPrefix(out, `/*PREJST:{"version":"2"}*/`+"\n"))
	assert.Contains(t, out, "var a=1;\nvar b=2;")
}

func TestSetMetadataNil(t *testing.T) {
	out, err := SetMetadata("x", nil)
	require.NoError(t, err)
	assert.Equal(t, "/*PREJST:{}*/\nx", out)
}

func TestSetMetadataEscapesCommentTerminator(t *testing.T) {
	code, err := SetMetadata("var a=1;", Metadata{"version": "1.0.0*/", "note": "a*/b"})
	require.NoError(t, err)

	header := code[:strings.Index(code, "\n")]
	assert.Equal(t, 1, strings.Count(header, "*/"))
	assert.True(t, strings.HasSuffix(header, "*/"))
	assert.True(t, strings.HasSuffix(code, "\nvar a=1;"))

	got, err := GetMetadata(code)
	require.NoError(t, err)
	assert.Equal(t, "a*/b", got["note"])
	assert.Equal(t, "1.0.0*/", got.Version())

	assert.Equal(t, `/*v:1.0.0*\/*/`+"\nvar a=1;", RemoveMetadata(code))
}

func TestGetMetadata(t *testing.T) {
	got, err := GetMetadata("var a;")
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = GetMetadata(`/*PREJST:{"version":"3.1.0","build":7}*/` + "\nvar a;")
	require.NoError(t, err)
	assert.Equal(t, "3.1.0", got.Version())
	assert.EqualValues(t, 7, got["build"])

	_, err = GetMetadata("/*PREJST:{broken*/")
	assert.Error(t, err)
}

func TestMetadataVersionNonString(t *testing.T) {
	assert.Equal(t, "", Metadata{}.Version())
	assert.Equal(t, "3", Metadata{"version": 3}.Version())
}

func TestRemoveMetadata(t *testing.T) {
	tests := []struct {
		name string
		code string
		want string
	}{
		{
			name: "with version",
			code: `/*PREJST:{"version":"1.4.0"}*/` + "\ndefine([]);",
			want: "/*v:1.4.0*/\ndefine([]);",
		},
		{
			name: "without version",
			code: `/*PREJST:{"author":"x"}*/` + "\ndefine([]);",
			want: "\ndefine([]);",
		},
		{
			name: "no header",
			code: "define([]);",
			want: "define([]);",
		},
		{
			name: "header not leading",
			code: `var a;/*PREJST:{"version":"1"}*/`,
			want: `var a;/*PREJST:{"version":"1"}*/`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RemoveMetadata(tt.code))
		})
	}
}

func TestAssemble(t *testing.T) {
	code, err := Assemble("temp.a=function(){};", Metadata{"version": "1.0.0"})
	require.NoError(t, err)

	assert.Equal(t,
		`/*PREJST:{"version":"1.0.0"}*/`+"\n"+
			"define([], function() { var temp={};temp.a=function(){};\n return temp;})",
		code)
}

func TestAssembleEmptyBody(t *testing.T) {
	code, err := Assemble("", nil)
	require.NoError(t, err)
	assert.Equal(t, "/*PREJST:{}*/\ndefine([], function() { var temp={};\n return temp;})", code)
}
