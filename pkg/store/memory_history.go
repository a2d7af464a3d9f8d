package store

import (
	"context"
	"sort"
	"sync"

	"github.com/rzbill/keel/pkg/types"
)

var _ History = &MemoryHistory{}

// MemoryHistory keeps revisions in memory. It is used by tests and by
// commands that do not need durable history.
type MemoryHistory struct {
	mu    sync.RWMutex
	revs  []Revision
	limit int
}

// NewMemoryHistory creates a history retaining at most limit revisions, or
// all of them when limit is not positive.
func NewMemoryHistory(limit int) *MemoryHistory {
	return &MemoryHistory{limit: limit}
}

func (h *MemoryHistory) Record(_ context.Context, rev *Revision) error {
	prepareRevision(rev)
	h.mu.Lock()
	defer h.mu.Unlock()

	cp := *rev
	cp.Document = append([]byte(nil), rev.Document...)
	h.revs = append(h.revs, cp)
	sort.SliceStable(h.revs, func(i, j int) bool {
		return string(MakeRevisionKey(&h.revs[i])) < string(MakeRevisionKey(&h.revs[j]))
	})
	if h.limit > 0 && len(h.revs) > h.limit {
		h.revs = append([]Revision(nil), h.revs[len(h.revs)-h.limit:]...)
	}
	return nil
}

func (h *MemoryHistory) Revisions(_ context.Context) ([]Revision, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]Revision, 0, len(h.revs))
	for i := len(h.revs) - 1; i >= 0; i-- {
		rev := h.revs[i]
		rev.Document = nil
		out = append(out, rev)
	}
	return out, nil
}

func (h *MemoryHistory) Revision(_ context.Context, id string) (*Revision, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, rev := range h.revs {
		if rev.ID == id {
			cp := rev
			cp.Document = append([]byte(nil), rev.Document...)
			return &cp, nil
		}
	}
	return nil, types.NotFoundf("revision %s not found", id)
}

func (h *MemoryHistory) Close() error { return nil }
