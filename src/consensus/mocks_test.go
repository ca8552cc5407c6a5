package consensus

import (
	"context"
	"errors"
	"sync"

	"github.com/mosaicnetworks/cadence/src/cycle"
	"github.com/mosaicnetworks/cadence/src/delta"
)

type testLauncher struct {
	wg       sync.WaitGroup
	refuse   bool
	launched int
}

func (l *testLauncher) GoFunc(f func()) bool {
	if l.refuse {
		return false
	}
	l.launched++
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		f()
	}()
	return true
}

func (l *testLauncher) wait() {
	l.wg.Wait()
}

type mockBuilder struct {
	sync.Mutex
	candidate *delta.CandidateDelta
	delta     *delta.Delta
	err       error
	calls     []delta.Hash
}

func (m *mockBuilder) BuildCandidateDelta(prev delta.Hash) (*delta.CandidateDelta, *delta.Delta, error) {
	m.Lock()
	defer m.Unlock()
	m.calls = append(m.calls, prev)
	return m.candidate, m.delta, m.err
}

type mockVoter struct {
	sync.Mutex
	favourite *delta.FavouriteDelta
	ok        bool
	calls     []delta.Hash
}

func (m *mockVoter) OnNext(*delta.CandidateDelta) {}

func (m *mockVoter) TryGetFavouriteDelta(prev delta.Hash) (*delta.FavouriteDelta, bool) {
	m.Lock()
	defer m.Unlock()
	m.calls = append(m.calls, prev)
	return m.favourite, m.ok
}

type mockElector struct {
	sync.Mutex
	winner *delta.CandidateDelta
	calls  []delta.Hash
}

func (m *mockElector) OnNext(*delta.FavouriteDelta) {}

func (m *mockElector) GetMostPopularCandidateDelta(prev delta.Hash) *delta.CandidateDelta {
	m.Lock()
	defer m.Unlock()
	m.calls = append(m.calls, prev)
	return m.winner
}

type mockCache struct {
	sync.Mutex
	addErr    error
	local     *delta.Delta
	added     []*delta.CandidateDelta
	lookups   []*delta.CandidateDelta
	evictions []delta.Hash
}

func (m *mockCache) AddLocalDelta(c *delta.CandidateDelta, d *delta.Delta) error {
	m.Lock()
	defer m.Unlock()
	if m.addErr != nil {
		return m.addErr
	}
	m.added = append(m.added, c)
	return nil
}

func (m *mockCache) TryGetLocalDelta(c *delta.CandidateDelta) (*delta.Delta, bool) {
	m.Lock()
	defer m.Unlock()
	m.lookups = append(m.lookups, c)
	return m.local, m.local != nil
}

func (m *mockCache) EvictCycle(prev delta.Hash, winner delta.Hash) {
	m.Lock()
	defer m.Unlock()
	m.evictions = append(m.evictions, winner)
}

type mockHub struct {
	sync.Mutex
	publishErr error
	partialErr error
	candidates []*delta.CandidateDelta
	favourites []*delta.FavouriteDelta
	published  []*delta.Delta
}

func (m *mockHub) BroadcastCandidate(c *delta.CandidateDelta) error {
	m.Lock()
	defer m.Unlock()
	m.candidates = append(m.candidates, c)
	return nil
}

func (m *mockHub) BroadcastFavourite(f *delta.FavouriteDelta) error {
	m.Lock()
	defer m.Unlock()
	m.favourites = append(m.favourites, f)
	return nil
}

func (m *mockHub) PublishDeltaAndBroadcastAddress(ctx context.Context, d *delta.Delta) (delta.Hash, error) {
	m.Lock()
	defer m.Unlock()
	m.published = append(m.published, d)
	if m.publishErr != nil {
		return delta.Hash{}, m.publishErr
	}
	hash, err := d.Hash()
	if err != nil {
		return delta.Hash{}, err
	}
	return hash, m.partialErr
}

type mockPhases struct {
	ch           chan cycle.Phase
	unsubscribed bool
}

func (m *mockPhases) Subscribe() (<-chan cycle.Phase, func()) {
	return m.ch, func() { m.unsubscribed = true }
}

var errMock = errors.New("mock error")
