package build

import (
	"regexp"

	"github.com/piza/prejst/internal/watcher"
)

// TemplateEvent is the semantic form of a raw watch event.
type TemplateEvent struct {
	Kind       string
	ID         string
	SourceFile string
}

var changeTypes = regexp.MustCompile(`updated|create`)

// Translate maps a raw file event under base onto a change or delete event.
// Directory events and unrecognised types are dropped.
func Translate(ev watcher.Event, base string) (TemplateEvent, bool) {
	if ev.Path == "" || ev.PathKind != watcher.KindFile {
		return TemplateEvent{}, false
	}

	kind := ""
	switch {
	case ev.Type == watcher.EventTypeDelete:
		kind = KindDelete
	case changeTypes.MatchString(string(ev.Type)):
		kind = KindChange
	default:
		return TemplateEvent{}, false
	}

	return TemplateEvent{
		Kind:       kind,
		ID:         ResolveID(ev.Path, base),
		SourceFile: ev.Path,
	}, true
}

// HandleWatchEvent translates ev and emits the resulting ChangeEvent or
// DeleteEvent. It never rebuilds.
func (p *Project) HandleWatchEvent(ev watcher.Event) bool {
	te, ok := Translate(ev, p.Base)
	if !ok {
		return false
	}

	switch te.Kind {
	case KindDelete:
		p.hashes.forget(te.SourceFile)
		p.bus.emit(DeleteEvent{ID: te.ID, SourceFile: te.SourceFile})
	default:
		p.bus.emit(ChangeEvent{ID: te.ID, SourceFile: te.SourceFile})
	}
	return true
}
