// Package mempool holds the transactions submitted to this node until a
// confirmed delta includes them.
package mempool

import (
	"errors"
	"sort"
	"sync"

	"github.com/elliotchance/orderedmap/v2"
	"github.com/mosaicnetworks/cadence/src/delta"
	"github.com/sirupsen/logrus"
)

// ErrPoolFull is returned when a transaction cannot be admitted.
var ErrPoolFull = errors.New("mempool is full")

type entry struct {
	data     []byte
	priority int64
}

// Pool is a bounded set of pending transactions, kept in arrival order and
// keyed by hash. Duplicate transactions are ignored.
type Pool struct {
	sync.Mutex
	txs     *orderedmap.OrderedMap[delta.Hash, entry]
	maxSize int
	logger  *logrus.Entry
}

// NewPool creates a Pool holding at most maxSize transactions.
func NewPool(maxSize int, logger *logrus.Entry) *Pool {
	if logger == nil {
		l := logrus.New()
		l.Level = logrus.InfoLevel
		logger = logrus.NewEntry(l)
	}

	return &Pool{
		txs:     orderedmap.NewOrderedMap[delta.Hash, entry](),
		maxSize: maxSize,
		logger:  logger.WithField("prefix", "mempool"),
	}
}

// Add admits a transaction. When the pool is full, the lowest priority, most
// recent transaction is evicted if the new one has a strictly higher
// priority; otherwise ErrPoolFull is returned.
func (p *Pool) Add(data []byte, priority int64) error {
	hash := delta.SumHash(data)

	p.Lock()
	defer p.Unlock()

	if _, ok := p.txs.Get(hash); ok {
		return nil
	}

	if p.txs.Len() >= p.maxSize {
		victim, victimPriority, ok := p.lowest()
		if !ok || victimPriority >= priority {
			return ErrPoolFull
		}
		p.txs.Delete(victim)
		p.logger.WithField("evicted", victim.Short()).Debug("Pool full, evicted transaction")
	}

	p.txs.Set(hash, entry{data: data, priority: priority})

	return nil
}

// lowest returns the last-arrived transaction among those with the lowest
// priority.
func (p *Pool) lowest() (delta.Hash, int64, bool) {
	var (
		hash     delta.Hash
		priority int64
		found    bool
	)
	for el := p.txs.Front(); el != nil; el = el.Next() {
		if !found || el.Value.priority <= priority {
			hash, priority, found = el.Key, el.Value.priority, true
		}
	}
	return hash, priority, found
}

// GetTopTransactionsByPriority returns at most maxCount transactions, highest
// priority first, then in arrival order. The transactions stay in the pool.
func (p *Pool) GetTopTransactionsByPriority(maxCount int) [][]byte {
	p.Lock()
	defer p.Unlock()

	entries := make([]entry, 0, p.txs.Len())
	for el := p.txs.Front(); el != nil; el = el.Next() {
		entries = append(entries, el.Value)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].priority > entries[j].priority
	})

	if maxCount >= 0 && len(entries) > maxCount {
		entries = entries[:maxCount]
	}

	res := make([][]byte, len(entries))
	for i, e := range entries {
		res[i] = e.data
	}
	return res
}

// Remove drops the given transactions and returns how many were held.
func (p *Pool) Remove(txs [][]byte) int {
	p.Lock()
	defer p.Unlock()

	removed := 0
	for _, tx := range txs {
		if p.txs.Delete(delta.SumHash(tx)) {
			removed++
		}
	}
	return removed
}

// Len returns the number of pending transactions.
func (p *Pool) Len() int {
	p.Lock()
	defer p.Unlock()
	return p.txs.Len()
}

// MaxSize ...
func (p *Pool) MaxSize() int {
	return p.maxSize
}
