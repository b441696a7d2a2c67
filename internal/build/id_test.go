package build

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterBasename(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"index.html", true},
		{"list-item_2.jst", true},
		{"$helpers.htm", true},
		{".hidden.html", false},
		{"bad name.html", false},
		{"café.html", false},
		{"a+b.html", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FilterBasename(tt.name))
		})
	}
}

func TestFilterExtname(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"index.html", true},
		{"index.HTML", true},
		{"index.Htm", true},
		{"list.jst", true},
		{"main.js", false},
		{"index.html.bak", false},
		{"html", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FilterExtname(tt.name))
		})
	}
}

func TestResolveID(t *testing.T) {
	base := filepath.FromSlash("/work/tpl")

	assert.Equal(t, "main", ResolveID(filepath.FromSlash("/work/tpl/main.html"), base))
	assert.Equal(t, "main", ResolveID(filepath.FromSlash("/work/tpl/index/main.html"), base))
	assert.Equal(t, "list.item", ResolveID(filepath.FromSlash("/work/tpl/a/b/list.item.jst"), base))
}

func TestResolveIDCollision(t *testing.T) {
	base := filepath.FromSlash("/work/tpl")

	a := ResolveID(filepath.FromSlash("/work/tpl/a/x.html"), base)
	b := ResolveID(filepath.FromSlash("/work/tpl/b/x.html"), base)
	assert.Equal(t, "x", a)
	assert.Equal(t, a, b)
}
