package node

import (
	"sync"

	"github.com/elliotchance/orderedmap/v2"
	"github.com/mosaicnetworks/cadence/src/delta"
)

type announcement struct {
	fromID uint32
	hash   delta.Hash
}

// heldAnnouncements keeps the addresses a producer received before it decided
// their cycle. Cycles are kept oldest first and the oldest is dropped when
// more than maxCycles are held.
type heldAnnouncements struct {
	sync.Mutex

	maxCycles int
	perCycle  int
	byPrev    *orderedmap.OrderedMap[delta.Hash, []announcement]
}

func newHeldAnnouncements(maxCycles, perCycle int) *heldAnnouncements {
	if maxCycles < 1 {
		maxCycles = 1
	}
	if perCycle < 1 {
		perCycle = 1
	}
	return &heldAnnouncements{
		maxCycles: maxCycles,
		perCycle:  perCycle,
		byPrev:    orderedmap.NewOrderedMap[delta.Hash, []announcement](),
	}
}

// holdUnlessDecided keeps the announcement if decided reports false for prev.
// The check and the insertion happen under the same lock as release, so an
// announcement cannot be held after its cycle was released. kept is false when
// the cycle already holds perCycle announcements.
func (h *heldAnnouncements) holdUnlessDecided(decided func(prev delta.Hash) bool,
	prev delta.Hash, a announcement) (undecided, kept bool) {

	h.Lock()
	defer h.Unlock()

	if decided(prev) {
		return false, false
	}

	list, ok := h.byPrev.Get(prev)
	for _, other := range list {
		if other == a {
			return true, true
		}
	}
	if len(list) >= h.perCycle {
		return true, false
	}

	if !ok && h.byPrev.Len() >= h.maxCycles {
		h.byPrev.Delete(h.byPrev.Front().Key)
	}
	h.byPrev.Set(prev, append(list, a))

	return true, true
}

// release removes and returns the announcements held for prev.
func (h *heldAnnouncements) release(prev delta.Hash) []announcement {
	h.Lock()
	defer h.Unlock()

	list, ok := h.byPrev.Get(prev)
	if !ok {
		return nil
	}
	h.byPrev.Delete(prev)
	return list
}

func (h *heldAnnouncements) len() int {
	h.Lock()
	defer h.Unlock()

	n := 0
	for el := h.byPrev.Front(); el != nil; el = el.Next() {
		n += len(el.Value)
	}
	return n
}
