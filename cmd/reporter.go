package cmd

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/piza/prejst/internal/build"
	"github.com/piza/prejst/internal/errors"
)

// reporter prints build events to the console
type reporter struct {
	out     io.Writer
	verbose bool
	mu      sync.Mutex
}

func newReporter(out io.Writer, verbose bool) *reporter {
	return &reporter{out: out, verbose: verbose}
}

// Observe has the build.Observer signature.
func (r *reporter) Observe(e build.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch ev := e.(type) {
	case build.LoadEvent:
		switch {
		case ev.Err != nil:
			fmt.Fprintf(r.out, "❌ %s: %v\n", ev.ID, ev.Err)
		case r.verbose && ev.Modified:
			fmt.Fprintf(r.out, "   compiled %s\n", ev.ID)
		}
	case build.ChangeEvent:
		fmt.Fprintf(r.out, "📁 changed: %s (%s)\n", ev.ID, ev.SourceFile)
	case build.DeleteEvent:
		fmt.Fprintf(r.out, "🗑  deleted: %s (%s)\n", ev.ID, ev.SourceFile)
	case build.CompileEvent:
		if ev.Err != nil {
			fmt.Fprintf(r.out, "❌ build failed: %v\n", ev.Err)
		}
	}
}

// summary prints the outcome of a build pass
func (r *reporter) summary(p *build.Project, result *build.BuildResult) {
	r.mu.Lock()
	defer r.mu.Unlock()

	fmt.Fprintf(r.out, "✅ %d template(s) compiled into %s in %s\n",
		len(result.Entries), p.Runtime, result.Duration.Round(time.Millisecond))
	for _, err := range result.Errors {
		if errors.IsRecoverable(err) {
			fmt.Fprintf(r.out, "⚠️  %v\n", err)
		} else {
			fmt.Fprintf(r.out, "❌ %v\n", err)
		}
	}
}
