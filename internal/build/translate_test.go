package build

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/piza/prejst/internal/watcher"
)

func TestTranslate(t *testing.T) {
	base := filepath.FromSlash("/work/tpl")
	file := filepath.FromSlash("/work/tpl/index/main.html")

	tests := []struct {
		name     string
		event    watcher.Event
		wantOK   bool
		wantKind string
	}{
		{"updated file", watcher.Event{Type: watcher.EventTypeUpdated, PathKind: watcher.KindFile, Path: file}, true, KindChange},
		{"created file", watcher.Event{Type: watcher.EventTypeCreate, PathKind: watcher.KindFile, Path: file}, true, KindChange},
		{"deleted file", watcher.Event{Type: watcher.EventTypeDelete, PathKind: watcher.KindFile, Path: file}, true, KindDelete},
		{"other file", watcher.Event{Type: watcher.EventTypeOther, PathKind: watcher.KindFile, Path: file}, false, ""},
		{"created directory", watcher.Event{Type: watcher.EventTypeCreate, PathKind: watcher.KindDirectory, Path: file}, false, ""},
		{"deleted directory", watcher.Event{Type: watcher.EventTypeDelete, PathKind: watcher.KindDirectory, Path: file}, false, ""},
		{"empty path", watcher.Event{Type: watcher.EventTypeUpdated, PathKind: watcher.KindFile}, false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Translate(tt.event, base)
			require.Equal(t, tt.wantOK, ok)
			if !ok {
				return
			}
			assert.Equal(t, tt.wantKind, got.Kind)
			assert.Equal(t, "main", got.ID)
			assert.Equal(t, file, got.SourceFile)
		})
	}
}

func TestHandleWatchEvent(t *testing.T) {
	base := t.TempDir()
	p := openStub(t, base, nil, nil)

	rec := &recorder{}
	p.Subscribe(rec.observe)

	file := filepath.Join(base, "a", "list.jst")
	assert.True(t, p.HandleWatchEvent(watcher.Event{Type: watcher.EventTypeUpdated, PathKind: watcher.KindFile, Path: file}))
	assert.True(t, p.HandleWatchEvent(watcher.Event{Type: watcher.EventTypeDelete, PathKind: watcher.KindFile, Path: file}))
	assert.False(t, p.HandleWatchEvent(watcher.Event{Type: watcher.EventTypeOther, PathKind: watcher.KindFile, Path: file}))
	assert.False(t, p.HandleWatchEvent(watcher.Event{Type: watcher.EventTypeCreate, PathKind: watcher.KindDirectory, Path: filepath.Join(base, "a")}))

	require.Len(t, rec.events, 2)
	assert.Equal(t, ChangeEvent{ID: "list", SourceFile: file}, rec.events[0])
	assert.Equal(t, DeleteEvent{ID: "list", SourceFile: file}, rec.events[1])
}
