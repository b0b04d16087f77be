package server

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/coolbeans/concurrence/pkg/dataset"
)

// Loader builds a complete dataset, typically by re-running normalization.
type Loader func() (*dataset.Dataset, error)

// Holder publishes a read-only dataset to concurrent readers. A dataset is
// only stored once it is fully built, so readers never see a partial one.
type Holder struct {
	current atomic.Pointer[dataset.Dataset]
	loader  Loader

	// reloadMu serializes reloads; readers never take it.
	reloadMu sync.Mutex
}

// NewHolder returns a holder serving ds. loader may be nil, in which case
// Reload is unavailable.
func NewHolder(ds *dataset.Dataset, loader Loader) *Holder {
	h := &Holder{loader: loader}
	if ds != nil {
		h.current.Store(ds)
	}
	return h
}

// Dataset returns the published dataset, or nil before the first publish.
func (h *Holder) Dataset() *dataset.Dataset {
	return h.current.Load()
}

// CanReload reports whether a loader is configured.
func (h *Holder) CanReload() bool {
	return h.loader != nil
}

// Reload builds a new dataset with the configured loader and publishes it.
// On failure the previous dataset stays in place.
func (h *Holder) Reload() (*dataset.Dataset, error) {
	if h.loader == nil {
		return nil, ErrNoLoader
	}

	h.reloadMu.Lock()
	defer h.reloadMu.Unlock()

	ds, err := h.loader()
	if err != nil {
		return nil, fmt.Errorf("failed to rebuild dataset: %w", err)
	}
	if ds == nil {
		return nil, fmt.Errorf("failed to rebuild dataset: loader returned nil")
	}
	h.current.Store(ds)
	return ds, nil
}
