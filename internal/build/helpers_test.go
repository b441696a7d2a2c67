package build

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/piza/prejst/internal/config"
	"github.com/piza/prejst/internal/minify"
)

// stubCompiler returns a function returning the trimmed source, and fails
// on sources containing BROKEN.
type stubCompiler struct{}

func (stubCompiler) Compile(source string) (string, error) {
	if strings.Contains(source, "BROKEN") {
		return "", fmt.Errorf("unexpected token")
	}
	return `function(){return "` + strings.TrimSpace(source) + `";}`, nil
}

// stubMinifier records calls and returns a fixed result or error.
type stubMinifier struct {
	mu    sync.Mutex
	calls []minify.Options
	err   error
	out   string
}

func (m *stubMinifier) Minify(path string, opts minify.Options) (*minify.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, opts)
	if m.err != nil {
		return nil, m.err
	}
	out := m.out
	if out == "" {
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		out = string(content)
	}
	return &minify.Result{Output: out}, nil
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(content)
}

func openStub(t *testing.T, base string, overrides config.Overrides, m *stubMinifier) *Project {
	t.Helper()
	if m == nil {
		m = &stubMinifier{}
	}
	p, err := Open(context.Background(), base, overrides, Options{
		Compiler: stubCompiler{},
		Minifier: m,
		Version:  "1.2.0",
		Cwd:      base,
	})
	require.NoError(t, err)
	return p
}

// recorder collects emitted events.
type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) observe(e Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

func (r *recorder) loads() []LoadEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []LoadEvent
	for _, e := range r.events {
		if l, ok := e.(LoadEvent); ok {
			out = append(out, l)
		}
	}
	return out
}

func (r *recorder) reset() {
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}
