package consensus

import (
	"github.com/mosaicnetworks/cadence/src/common"
	"github.com/mosaicnetworks/cadence/src/delta"
)

// cycleWindow keeps per-cycle state for the most recent cycles, keyed by
// previous delta hash. The oldest cycle is forgotten when the window is full.
// It is not safe for concurrent use.
type cycleWindow[T any] struct {
	entries map[delta.Hash]T
	order   *common.RollingIndex
}

func newCycleWindow[T any](name string, size int) *cycleWindow[T] {
	return &cycleWindow[T]{
		entries: make(map[delta.Hash]T),
		order:   common.NewRollingIndex(name, size),
	}
}

func (w *cycleWindow[T]) get(prev delta.Hash) (T, bool) {
	v, ok := w.entries[prev]
	return v, ok
}

func (w *cycleWindow[T]) getOrCreate(prev delta.Hash, create func() T) T {
	if v, ok := w.entries[prev]; ok {
		return v
	}
	v := create()
	w.set(prev, v)
	return v
}

func (w *cycleWindow[T]) set(prev delta.Hash, v T) {
	if _, ok := w.entries[prev]; !ok {
		if _, evicted := w.order.Append(prev); evicted != nil {
			delete(w.entries, evicted.(delta.Hash))
		}
	}
	w.entries[prev] = v
}

func (w *cycleWindow[T]) len() int {
	return len(w.entries)
}
