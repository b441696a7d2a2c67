package build

import (
	"hash/crc32"
	"sync"
)

// contentHashes remembers a CRC32 Castagnoli checksum per template path so a
// build can tell which templates changed since the previous pass.
type contentHashes struct {
	table *crc32.Table
	sums  map[string]uint32
	mu    sync.Mutex
}

func newContentHashes() *contentHashes {
	return &contentHashes{
		table: crc32.MakeTable(crc32.Castagnoli),
		sums:  make(map[string]uint32),
	}
}

// update records the checksum of parts for path and reports whether it
// differs from the last recorded one. An unseen path counts as changed.
func (h *contentHashes) update(path string, parts ...[]byte) bool {
	var sum uint32
	for _, p := range parts {
		sum = crc32.Update(sum, h.table, p)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	prev, ok := h.sums[path]
	h.sums[path] = sum
	return !ok || prev != sum
}

// forget drops path, used when a template is deleted.
func (h *contentHashes) forget(path string) {
	h.mu.Lock()
	delete(h.sums, path)
	h.mu.Unlock()
}

// reset drops every checksum.
func (h *contentHashes) reset() {
	h.mu.Lock()
	h.sums = make(map[string]uint32)
	h.mu.Unlock()
}
