// Package deltacache keeps the full content of the deltas this node built,
// until their cycle is decided, and a bounded cache of confirmed deltas.
package deltacache

import (
	"context"
	"errors"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru"
	"github.com/mosaicnetworks/cadence/src/common"
	"github.com/mosaicnetworks/cadence/src/delta"
	"github.com/sirupsen/logrus"
)

// DeltaReader reads confirmed deltas from the DFS.
type DeltaReader interface {
	TryReadDelta(ctx context.Context, hash delta.Hash) (*delta.Delta, bool)
}

type localEntry struct {
	candidate *delta.CandidateDelta
	delta     *delta.Delta
}

// Cache is safe for concurrent use.
type Cache struct {
	sync.RWMutex

	producerID string

	local  map[delta.Hash]localEntry   // candidate hash => entry
	byPrev map[delta.Hash][]delta.Hash // previous hash => candidate hashes
	cycles *common.RollingIndex        // previous hashes, oldest first

	confirmed *lru.Cache // delta hash => *delta.Delta
	reader    DeltaReader

	logger *logrus.Entry
}

// New creates a Cache for the producer identified by producerID. Local
// entries are kept for at most maxCycles cycles, and at most confirmedSize
// confirmed deltas are remembered. reader may be nil.
func New(producerID string, maxCycles, confirmedSize int, reader DeltaReader, logger *logrus.Entry) (*Cache, error) {
	confirmed, err := lru.New(confirmedSize)
	if err != nil {
		return nil, err
	}

	if logger == nil {
		l := logrus.New()
		l.Level = logrus.InfoLevel
		logger = logrus.NewEntry(l)
	}

	return &Cache{
		producerID: producerID,
		local:      make(map[delta.Hash]localEntry),
		byPrev:     make(map[delta.Hash][]delta.Hash),
		cycles:     common.NewRollingIndex("LocalCycles", maxCycles),
		confirmed:  confirmed,
		reader:     reader,
		logger:     logger.WithField("prefix", "deltacache"),
	}, nil
}

// SetReader sets the DFS reader used when a confirmed delta is not cached.
func (c *Cache) SetReader(reader DeltaReader) {
	c.Lock()
	defer c.Unlock()
	c.reader = reader
}

// AddLocalDelta stores the content of a candidate built by this node. Each
// candidate can only be added once.
func (c *Cache) AddLocalDelta(candidate *delta.CandidateDelta, d *delta.Delta) error {
	if err := candidate.Validate(); err != nil {
		return err
	}
	if d == nil {
		return errors.New("nil delta")
	}
	if candidate.ProducerID != c.producerID {
		return fmt.Errorf("candidate %s was built by %s, not by this node", candidate.Hash.Short(), candidate.ProducerID)
	}
	if d.PreviousDeltaHash != candidate.PreviousDeltaHash {
		return fmt.Errorf("delta builds on %s, candidate on %s", d.PreviousDeltaHash.Short(), candidate.PreviousDeltaHash.Short())
	}

	hash, err := d.Hash()
	if err != nil {
		return err
	}
	if hash != candidate.Hash {
		return common.NewStoreErr("LocalDelta", common.HashMismatch, candidate.Hash.Hex())
	}

	c.Lock()
	defer c.Unlock()

	if _, ok := c.local[candidate.Hash]; ok {
		return common.NewStoreErr("LocalDelta", common.KeyAlreadyExists, candidate.Hash.Hex())
	}

	prev := candidate.PreviousDeltaHash
	if _, ok := c.byPrev[prev]; !ok {
		_, evicted := c.cycles.Append(prev)
		if evicted != nil {
			c.dropCycle(evicted.(delta.Hash))
		}
		c.byPrev[prev] = nil
	}

	c.local[candidate.Hash] = localEntry{candidate: candidate, delta: d}
	c.byPrev[prev] = append(c.byPrev[prev], candidate.Hash)

	return nil
}

// dropCycle is called with the lock held.
func (c *Cache) dropCycle(prev delta.Hash) {
	for _, h := range c.byPrev[prev] {
		delete(c.local, h)
	}
	delete(c.byPrev, prev)
	c.logger.WithField("prev", prev.Short()).Debug("Dropped cycle")
}

// TryGetLocalDelta returns the content of candidate if this node built it and
// it is still retained.
func (c *Cache) TryGetLocalDelta(candidate *delta.CandidateDelta) (*delta.Delta, bool) {
	if candidate == nil || candidate.ProducerID != c.producerID {
		return nil, false
	}

	c.RLock()
	defer c.RUnlock()

	e, ok := c.local[candidate.Hash]
	if !ok || e.candidate.PreviousDeltaHash != candidate.PreviousDeltaHash {
		return nil, false
	}
	return e.delta, true
}

// EvictCycle drops the local entries of the cycle built on prev, except the
// winner.
func (c *Cache) EvictCycle(prev delta.Hash, winner delta.Hash) {
	c.Lock()
	defer c.Unlock()

	hashes, ok := c.byPrev[prev]
	if !ok {
		return
	}

	kept := hashes[:0]
	for _, h := range hashes {
		if h == winner {
			kept = append(kept, h)
			continue
		}
		delete(c.local, h)
	}
	c.byPrev[prev] = kept
}

// AddConfirmedDelta remembers a delta that was accepted on the chain.
func (c *Cache) AddConfirmedDelta(hash delta.Hash, d *delta.Delta) {
	c.confirmed.Add(hash, d)
}

// TryGetConfirmedDelta looks up a confirmed delta in the cache, then reads it
// from the DFS. Local candidates are never served from here: only published
// content is. Content read from the DFS is checked against hash and cached.
func (c *Cache) TryGetConfirmedDelta(ctx context.Context, hash delta.Hash) (*delta.Delta, bool) {
	if d, ok := c.confirmed.Get(hash); ok {
		return d.(*delta.Delta), true
	}

	c.RLock()
	reader := c.reader
	c.RUnlock()

	if reader == nil {
		return nil, false
	}

	d, ok := reader.TryReadDelta(ctx, hash)
	if !ok || d == nil {
		return nil, false
	}

	actual, err := d.Hash()
	if err != nil || actual != hash {
		c.logger.WithFields(logrus.Fields{
			"expected": hash.Short(),
			"actual":   actual.Short(),
		}).Warn("DFS returned the wrong delta")
		return nil, false
	}

	c.confirmed.Add(hash, d)

	return d, true
}

// LocalLen returns the number of local entries.
func (c *Cache) LocalLen() int {
	c.RLock()
	defer c.RUnlock()
	return len(c.local)
}

// ConfirmedLen returns the number of cached confirmed deltas.
func (c *Cache) ConfirmedLen() int {
	return c.confirmed.Len()
}
