package build

import (
	"fmt"
	"sort"
	"sync"

	"github.com/goccy/go-json"
)

// Event kinds as they appear on the wire.
const (
	KindChange  = "change"
	KindDelete  = "delete"
	KindLoad    = "load"
	KindCompile = "compile"
)

// Event is one of ChangeEvent, DeleteEvent, LoadEvent or CompileEvent.
type Event interface {
	Kind() string
	isEvent()
}

// ChangeEvent reports a created or updated template file.
type ChangeEvent struct {
	ID         string
	SourceFile string
}

// DeleteEvent reports a removed template file.
type DeleteEvent struct {
	ID         string
	SourceFile string
}

// LoadEvent is emitted once per template visited by a build.
type LoadEvent struct {
	ID       string
	Modified bool
	Err      error
}

// CompileEvent is emitted after the artifact has been written.
type CompileEvent struct {
	Version string
	Err     error
}

func (ChangeEvent) Kind() string  { return KindChange }
func (DeleteEvent) Kind() string  { return KindDelete }
func (LoadEvent) Kind() string    { return KindLoad }
func (CompileEvent) Kind() string { return KindCompile }

func (ChangeEvent) isEvent()  {}
func (DeleteEvent) isEvent()  {}
func (LoadEvent) isEvent()    {}
func (CompileEvent) isEvent() {}

type fileMessage struct {
	Type       string `json:"type"`
	ID         string `json:"id"`
	SourceFile string `json:"sourceFile"`
}

type loadData struct {
	ID       string `json:"id"`
	Modified bool   `json:"modified"`
}

type compileData struct {
	Version string `json:"version"`
}

type resultMessage struct {
	Type  string      `json:"type"`
	Error string      `json:"error,omitempty"`
	Data  interface{} `json:"data"`
}

func errorText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// MarshalEvent encodes e as a JSON object tagged with its kind in "type".
func MarshalEvent(e Event) ([]byte, error) {
	switch ev := e.(type) {
	case ChangeEvent:
		return json.Marshal(fileMessage{Type: KindChange, ID: ev.ID, SourceFile: ev.SourceFile})
	case DeleteEvent:
		return json.Marshal(fileMessage{Type: KindDelete, ID: ev.ID, SourceFile: ev.SourceFile})
	case LoadEvent:
		return json.Marshal(resultMessage{
			Type:  KindLoad,
			Error: errorText(ev.Err),
			Data:  loadData{ID: ev.ID, Modified: ev.Modified},
		})
	case CompileEvent:
		return json.Marshal(resultMessage{
			Type:  KindCompile,
			Error: errorText(ev.Err),
			Data:  compileData{Version: ev.Version},
		})
	default:
		return nil, fmt.Errorf("unknown event %T", e)
	}
}

// Observer receives events synchronously on the emitting goroutine.
type Observer func(Event)

type eventBus struct {
	mu        sync.RWMutex
	next      int
	observers map[int]Observer
}

func newEventBus() *eventBus {
	return &eventBus{observers: make(map[int]Observer)}
}

func (b *eventBus) subscribe(o Observer) func() {
	b.mu.Lock()
	id := b.next
	b.next++
	b.observers[id] = o
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.observers, id)
		b.mu.Unlock()
	}
}

func (b *eventBus) emit(e Event) {
	b.mu.RLock()
	ids := make([]int, 0, len(b.observers))
	for id := range b.observers {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	observers := make([]Observer, 0, len(ids))
	for _, id := range ids {
		observers = append(observers, b.observers[id])
	}
	b.mu.RUnlock()

	for _, o := range observers {
		o(e)
	}
}
