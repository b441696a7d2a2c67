package build

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/piza/prejst/internal/errors"
	"github.com/piza/prejst/internal/jst"
)

// rootNamespace is the module-local object every template hangs off. The
// envelope declares it, so the walker never initialises it.
const rootNamespace = "temp"

// Compiler turns one template source into JavaScript function source.
type Compiler interface {
	Compile(source string) (string, error)
}

// CompiledEntry is one namespace assignment in the artifact.
type CompiledEntry struct {
	Namespace  string
	ID         string
	Body       string
	SourcePath string
}

// walker holds the state of one build pass.
type walker struct {
	p        *Project
	ctx      context.Context
	manifest []byte
	entries  []CompiledEntry
	errs     *errors.ErrorCollector
}

// Walk compiles the template tree under Base and returns the namespace body,
// the entries it contains and the non-fatal errors met on the way.
func (p *Project) Walk(ctx context.Context) (string, []CompiledEntry, []error) {
	manifestText, err := p.manifest.Marshal()
	if err != nil {
		p.logger.Warn(ctx, err, "Failed to encode manifest, change detection uses template content only")
	}

	w := &walker{
		p:        p,
		ctx:      ctx,
		manifest: manifestText,
		errs:     errors.NewErrorCollector(),
	}
	body := w.walk(p.Base, rootNamespace)

	if w.errs.HasErrors() {
		p.logger.Warn(ctx, nil, "Template tree walked with errors", "errors", w.errs.Len(), "entries", len(w.entries))
	}

	return body, w.entries, w.errs.GetAllErrors()
}

func (w *walker) walk(dir, prefix string) string {
	if samePath(dir, w.p.Output) {
		return ""
	}

	var b strings.Builder
	if prefix != rootNamespace {
		b.WriteString(" " + prefix + "={};")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		perr := errors.TemplateReadError("", dir, err)
		w.p.logger.Error(w.ctx, perr, "Failed to list template directory", "dir", dir)
		w.errs.AddError(perr)
		return b.String()
	}
	// ReadDir returns entries sorted by name.

	for _, entry := range entries {
		name := entry.Name()
		path := filepath.Join(dir, name)

		info, err := os.Stat(path)
		if err != nil {
			continue
		}

		if info.IsDir() {
			if strings.HasPrefix(name, ".") {
				continue
			}
			b.WriteString(w.walk(path, prefix+"."+name))
			continue
		}

		if !FilterBasename(name) || !FilterExtname(name) {
			continue
		}

		if compiled, ok := w.compile(path, prefix); ok {
			b.WriteString(prefix + "." + compiled.ID + "=" + compiled.Body + ";")
		}
	}

	return b.String()
}

// compile reads, compresses and compiles one template, emitting its
// LoadEvent. Failures are logged and collected.
func (w *walker) compile(path, prefix string) (CompiledEntry, bool) {
	p := w.p
	id := ResolveID(path, p.Base)

	content, err := os.ReadFile(path)
	if err != nil {
		w.fail(LoadEvent{ID: id}, errors.TemplateReadError(id, path, err))
		return CompiledEntry{}, false
	}
	modified := p.hashes.update(path, content, w.manifest)

	source, err := decode(content, p.Config.Charset)
	if err != nil {
		w.fail(LoadEvent{ID: id, Modified: modified}, errors.TemplateReadError(id, path, err))
		return CompiledEntry{}, false
	}

	if p.Config.Compress {
		source = jst.Compress(source)
	}

	body, err := p.compiler.Compile(source)
	if err != nil {
		line, column := 0, 0
		var syntaxErr *jst.SyntaxError
		if errors.As(err, &syntaxErr) {
			line, column = syntaxErr.Line, syntaxErr.Column
		}
		w.fail(LoadEvent{ID: id, Modified: modified}, errors.TemplateCompileError(id, path, line, column, err))
		return CompiledEntry{}, false
	}

	entry := CompiledEntry{
		Namespace:  prefix,
		ID:         id,
		Body:       body,
		SourcePath: path,
	}
	w.entries = append(w.entries, entry)

	p.logger.Debug(w.ctx, "Compiled template", "template", id, "namespace", prefix, "modified", modified)
	p.bus.emit(LoadEvent{ID: id, Modified: modified})

	return entry, true
}

func (w *walker) fail(ev LoadEvent, err *errors.PrejstError) {
	w.p.logger.Error(w.ctx, err, "Template skipped", "template", err.Template, "file", err.FilePath)
	w.errs.AddError(err)

	ev.Err = err
	w.p.bus.emit(ev)
}

func samePath(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	return absA == absB
}
