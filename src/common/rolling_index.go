package common

import "strconv"

// RollingIndex is a fixed-capacity window over a sequence of items addressed
// by a monotonically increasing index. Appending to a full window evicts the
// oldest item, so memory never grows beyond size items.
type RollingIndex struct {
	name      string
	size      int
	lastIndex int
	count     int
	items     []interface{}
}

// NewRollingIndex ...
func NewRollingIndex(name string, size int) *RollingIndex {
	if size < 1 {
		size = 1
	}
	return &RollingIndex{
		name:      name,
		size:      size,
		items:     make([]interface{}, size),
		lastIndex: -1,
	}
}

// Size returns the capacity of the window.
func (r *RollingIndex) Size() int {
	return r.size
}

// Len returns the number of items currently held.
func (r *RollingIndex) Len() int {
	return r.count
}

// FirstIndex returns the index of the oldest item still in the window, or -1
// if the window is empty.
func (r *RollingIndex) FirstIndex() int {
	if r.count == 0 {
		return -1
	}
	return r.lastIndex - r.count + 1
}

// LastIndex returns the index of the newest item, or -1 if nothing was ever
// appended.
func (r *RollingIndex) LastIndex() int {
	return r.lastIndex
}

// Append adds an item at index LastIndex()+1 and returns that index. If the
// window was full, the oldest item is returned as evicted.
func (r *RollingIndex) Append(item interface{}) (index int, evicted interface{}) {
	index = r.lastIndex + 1
	slot := index % r.size

	if r.count == r.size {
		evicted = r.items[slot]
	} else {
		r.count++
	}

	r.items[slot] = item
	r.lastIndex = index

	return index, evicted
}

// GetItem returns the item with the given index.
func (r *RollingIndex) GetItem(index int) (interface{}, error) {
	if index > r.lastIndex || r.count == 0 {
		return nil, NewStoreErr(r.name, KeyNotFound, strconv.Itoa(index))
	}
	if index < r.FirstIndex() {
		return nil, NewStoreErr(r.name, TooLate, strconv.Itoa(index))
	}
	return r.items[index%r.size], nil
}

// GetLast returns the newest item.
func (r *RollingIndex) GetLast() (interface{}, error) {
	if r.count == 0 {
		return nil, NewStoreErr(r.name, Empty, "")
	}
	return r.items[r.lastIndex%r.size], nil
}

// Get returns all the items with index greater than skipIndex, oldest first.
func (r *RollingIndex) Get(skipIndex int) ([]interface{}, error) {
	res := make([]interface{}, 0)

	if skipIndex >= r.lastIndex || r.count == 0 {
		return res, nil
	}

	first := r.FirstIndex()
	if skipIndex+1 < first {
		return res, NewStoreErr(r.name, TooLate, strconv.Itoa(skipIndex))
	}

	for i := skipIndex + 1; i <= r.lastIndex; i++ {
		res = append(res, r.items[i%r.size])
	}

	return res, nil
}

// Items returns a copy of the window, oldest first.
func (r *RollingIndex) Items() []interface{} {
	res := make([]interface{}, 0, r.count)
	for i := r.FirstIndex(); r.count > 0 && i <= r.lastIndex; i++ {
		res = append(res, r.items[i%r.size])
	}
	return res
}
