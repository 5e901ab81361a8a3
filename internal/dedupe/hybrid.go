package dedupe

import (
	"github.com/projectdiscovery/gologger"
	"github.com/projectdiscovery/hmap/store/hybrid"
)

// HybridBackend keeps seen elements in a disk backed hybrid map,
// used when the expected rule set is too large to hold in memory
type HybridBackend struct {
	storage *hybrid.HybridMap
	count   int
}

func NewHybridBackend() (*HybridBackend, error) {
	db, err := hybrid.New(hybrid.DefaultDiskOptions)
	if err != nil {
		return nil, err
	}
	return &HybridBackend{storage: db}, nil
}

func (h *HybridBackend) Add(elem string) bool {
	if _, ok := h.storage.Get(elem); ok {
		return false
	}
	if err := h.storage.Set(elem, nil); err != nil {
		// treat as new: dropping a rule is worse than storing it twice
		gologger.Error().Msgf("dedupe: hybrid: got %v while writing %v", err, elem)
		return true
	}
	h.count++
	return true
}

func (h *HybridBackend) Len() int {
	return h.count
}

func (h *HybridBackend) Cleanup() {
	_ = h.storage.Close()
}
