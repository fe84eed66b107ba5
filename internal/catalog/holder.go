package catalog

import "sync/atomic"

type published struct {
	catalog *Catalog
	ref     SourceRef
}

// Holder publishes the current catalog. Readers take a snapshot with
// Current and keep it for the whole evaluation.
type Holder struct {
	current atomic.Pointer[published]
}

func NewHolder(c *Catalog, ref SourceRef) *Holder {
	h := &Holder{}
	h.Swap(c, ref)
	return h
}

// Current returns the published catalog, nil before the first Swap
func (h *Holder) Current() *Catalog {
	c, _ := h.Snapshot()
	return c
}

// Snapshot returns the published catalog together with its source
func (h *Holder) Snapshot() (*Catalog, SourceRef) {
	p := h.current.Load()
	if p == nil {
		return nil, SourceRef{}
	}
	return p.catalog, p.ref
}

// Swap publishes c and returns the previous catalog. A nil c is ignored.
func (h *Holder) Swap(c *Catalog, ref SourceRef) *Catalog {
	if c == nil {
		return h.Current()
	}
	prev := h.current.Swap(&published{catalog: c, ref: ref})
	if prev == nil {
		return nil
	}
	return prev.catalog
}
