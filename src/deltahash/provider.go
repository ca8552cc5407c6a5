// Package deltahash keeps a bounded, time-ordered record of the delta hashes
// accepted as the tip of the chain.
package deltahash

import (
	"sort"
	"sync"
	"time"

	"github.com/mosaicnetworks/cadence/src/common"
	"github.com/mosaicnetworks/cadence/src/cycle"
	"github.com/mosaicnetworks/cadence/src/delta"
	"github.com/sirupsen/logrus"
)

// UpdateBuffer is the capacity of each subscriber channel.
const UpdateBuffer = 64

// Provider records accepted delta hashes in a fixed-capacity ring. When full,
// the oldest entry is evicted. All methods are safe for concurrent use;
// TryUpdateLatestHash is the single serialization point of the chain.
type Provider struct {
	sync.RWMutex

	genesis delta.Hash
	entries *common.RollingIndex
	index   map[delta.Hash]int

	clock  cycle.Clock
	logger *logrus.Entry

	subs    map[int]chan delta.HashChainEntry
	nextSub int
	closed  bool
}

// New creates a Provider whose chain starts with genesis, accepted at epoch.
func New(capacity int, genesis delta.Hash, epoch time.Time, clock cycle.Clock, logger *logrus.Entry) *Provider {
	if clock == nil {
		clock = cycle.NewSystemClock()
	}

	if logger == nil {
		l := logrus.New()
		l.Level = logrus.InfoLevel
		logger = logrus.NewEntry(l)
	}

	p := &Provider{
		genesis: genesis,
		entries: common.NewRollingIndex("DeltaHash", capacity),
		index:   make(map[delta.Hash]int),
		clock:   clock,
		logger:  logger.WithField("prefix", "deltahash"),
		subs:    make(map[int]chan delta.HashChainEntry),
	}

	idx, _ := p.entries.Append(delta.HashChainEntry{Hash: genesis, AcceptedAt: epoch})
	p.index[genesis] = idx

	return p
}

// Capacity returns the maximum number of entries.
func (p *Provider) Capacity() int {
	return p.entries.Size()
}

// Len returns the number of entries held.
func (p *Provider) Len() int {
	p.RLock()
	defer p.RUnlock()
	return p.entries.Len()
}

// Genesis returns the hash returned when no entry is old enough.
func (p *Provider) Genesis() delta.Hash {
	return p.genesis
}

func (p *Provider) tip() delta.HashChainEntry {
	last, _ := p.entries.GetLast()
	return last.(delta.HashChainEntry)
}

// TryUpdateLatestHash appends newHash if previousHash is the current tip. It
// returns false, without any change, if previousHash is stale or newHash is
// already in the chain.
func (p *Provider) TryUpdateLatestHash(previousHash, newHash delta.Hash) bool {
	p.Lock()
	defer p.Unlock()

	tip := p.tip()

	if previousHash != tip.Hash {
		p.logger.WithFields(logrus.Fields{
			"previous": previousHash.Short(),
			"tip":      tip.Hash.Short(),
			"new":      newHash.Short(),
		}).Debug("Previous hash is not the tip")
		return false
	}

	if newHash.IsZero() {
		return false
	}

	if _, ok := p.index[newHash]; ok {
		p.logger.WithField("hash", newHash.Short()).Warn("Hash already in chain")
		return false
	}

	acceptedAt := p.clock.Now()
	if acceptedAt.Before(tip.AcceptedAt) {
		acceptedAt = tip.AcceptedAt
	}

	entry := delta.HashChainEntry{
		Index:      p.entries.LastIndex() + 1,
		Hash:       newHash,
		AcceptedAt: acceptedAt,
	}

	idx, evicted := p.entries.Append(entry)
	if evicted != nil {
		delete(p.index, evicted.(delta.HashChainEntry).Hash)
	}
	p.index[newHash] = idx

	p.logger.WithFields(logrus.Fields{
		"previous": previousHash.Short(),
		"hash":     newHash.Short(),
		"index":    idx,
	}).Debug("Chain advanced")

	p.notify(entry)

	return true
}

// GetLatestDeltaHash returns the hash of the most recent entry accepted at or
// before asOf, or the genesis hash if there is none.
func (p *Provider) GetLatestDeltaHash(asOf time.Time) delta.Hash {
	p.RLock()
	defer p.RUnlock()

	first := p.entries.FirstIndex()
	n := p.entries.Len()

	// Entries are sorted by AcceptedAt. Find the first one after asOf.
	i := sort.Search(n, func(i int) bool {
		item, _ := p.entries.GetItem(first + i)
		return item.(delta.HashChainEntry).AcceptedAt.After(asOf)
	})

	if i == 0 {
		return p.genesis
	}

	item, _ := p.entries.GetItem(first + i - 1)
	return item.(delta.HashChainEntry).Hash
}

// LatestDeltaHash returns the current tip.
func (p *Provider) LatestDeltaHash() delta.Hash {
	p.RLock()
	defer p.RUnlock()
	return p.tip().Hash
}

// Latest returns the current tip entry.
func (p *Provider) Latest() delta.HashChainEntry {
	p.RLock()
	defer p.RUnlock()
	return p.tip()
}

// Contains reports whether hash is still held.
func (p *Provider) Contains(hash delta.Hash) bool {
	p.RLock()
	defer p.RUnlock()
	_, ok := p.index[hash]
	return ok
}

// Entries returns a copy of the held entries, oldest first.
func (p *Provider) Entries() []delta.HashChainEntry {
	p.RLock()
	defer p.RUnlock()

	items := p.entries.Items()
	res := make([]delta.HashChainEntry, len(items))
	for i, item := range items {
		res[i] = item.(delta.HashChainEntry)
	}
	return res
}

// Subscribe returns a stream of newly accepted entries, in acceptance order.
// A subscriber that falls more than UpdateBuffer entries behind loses
// updates: it sees a jump in Index and can resync from Entries. The returned
// function unsubscribes.
func (p *Provider) Subscribe() (<-chan delta.HashChainEntry, func()) {
	p.Lock()
	defer p.Unlock()

	ch := make(chan delta.HashChainEntry, UpdateBuffer)
	if p.closed {
		close(ch)
		return ch, func() {}
	}

	id := p.nextSub
	p.nextSub++
	p.subs[id] = ch

	return ch, func() {
		p.Lock()
		defer p.Unlock()
		if c, ok := p.subs[id]; ok {
			delete(p.subs, id)
			close(c)
		}
	}
}

// Close closes every subscriber stream.
func (p *Provider) Close() {
	p.Lock()
	defer p.Unlock()

	p.closed = true
	for id, ch := range p.subs {
		delete(p.subs, id)
		close(ch)
	}
}

// notify is called with the lock held.
func (p *Provider) notify(entry delta.HashChainEntry) {
	for id, ch := range p.subs {
		select {
		case ch <- entry:
		default:
			p.logger.WithFields(logrus.Fields{
				"subscriber": id,
				"hash":       entry.Hash.Short(),
				"index":      entry.Index,
			}).Warn("Subscriber is full, dropping update")
		}
	}
}
