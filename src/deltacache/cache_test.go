package deltacache

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/mosaicnetworks/cadence/src/common"
	"github.com/mosaicnetworks/cadence/src/delta"
)

const self = "0XSELF"

type mockReader struct {
	sync.Mutex
	deltas map[delta.Hash]*delta.Delta
	reads  int
}

func (m *mockReader) TryReadDelta(ctx context.Context, hash delta.Hash) (*delta.Delta, bool) {
	m.Lock()
	defer m.Unlock()
	m.reads++
	d, ok := m.deltas[hash]
	return d, ok
}

func testCache(t *testing.T, maxCycles int, reader DeltaReader) *Cache {
	c, err := New(self, maxCycles, 10, reader, common.NewTestEntry(t, common.TestLogLevel))
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func build(t *testing.T, prev delta.Hash, producer string, tx string) (*delta.CandidateDelta, *delta.Delta) {
	d := delta.NewDelta(prev, 1, [][]byte{[]byte(tx)})
	hash, err := d.Hash()
	if err != nil {
		t.Fatal(err)
	}
	return &delta.CandidateDelta{Hash: hash, PreviousDeltaHash: prev, ProducerID: producer}, d
}

func TestAddLocalDelta(t *testing.T) {
	c := testCache(t, 5, nil)
	prev := delta.SumHash([]byte("prev"))

	candidate, d := build(t, prev, self, "tx")
	if err := c.AddLocalDelta(candidate, d); err != nil {
		t.Fatal(err)
	}

	err := c.AddLocalDelta(candidate, d)
	if !common.IsStore(err, common.KeyAlreadyExists) {
		t.Fatalf("expected KeyAlreadyExists, got %v", err)
	}

	got, ok := c.TryGetLocalDelta(candidate)
	if !ok || got != d {
		t.Fatalf("local delta should be returned")
	}
}

func TestAddLocalDeltaContract(t *testing.T) {
	c := testCache(t, 5, nil)
	prev := delta.SumHash([]byte("prev"))

	candidate, d := build(t, prev, self, "tx")

	if err := c.AddLocalDelta(nil, d); err == nil {
		t.Fatalf("nil candidate should be rejected")
	}
	if err := c.AddLocalDelta(candidate, nil); err == nil {
		t.Fatalf("nil delta should be rejected")
	}

	foreign, fd := build(t, prev, "0XOTHER", "tx")
	if err := c.AddLocalDelta(foreign, fd); err == nil {
		t.Fatalf("candidates from other producers should be rejected")
	}

	_, other := build(t, prev, self, "other")
	if err := c.AddLocalDelta(candidate, other); !common.IsStore(err, common.HashMismatch) {
		t.Fatalf("expected HashMismatch, got %v", err)
	}

	wrongPrev := *candidate
	wrongPrev.PreviousDeltaHash = delta.SumHash([]byte("other"))
	if err := c.AddLocalDelta(&wrongPrev, d); err == nil {
		t.Fatalf("mismatched previous hash should be rejected")
	}

	if c.LocalLen() != 0 {
		t.Fatalf("rejected deltas should not be stored")
	}
}

func TestTryGetLocalDelta(t *testing.T) {
	c := testCache(t, 5, nil)
	prev := delta.SumHash([]byte("prev"))

	candidate, d := build(t, prev, self, "tx")
	c.AddLocalDelta(candidate, d)

	if _, ok := c.TryGetLocalDelta(nil); ok {
		t.Fatalf("nil candidate should not be found")
	}

	foreign := *candidate
	foreign.ProducerID = "0XOTHER"
	if _, ok := c.TryGetLocalDelta(&foreign); ok {
		t.Fatalf("candidates authored by others should not be found")
	}

	stale := *candidate
	stale.PreviousDeltaHash = delta.SumHash([]byte("other"))
	if _, ok := c.TryGetLocalDelta(&stale); ok {
		t.Fatalf("candidates for another cycle should not be found")
	}

	unknown, _ := build(t, prev, self, "unknown")
	if _, ok := c.TryGetLocalDelta(unknown); ok {
		t.Fatalf("unknown candidates should not be found")
	}
}

func TestLocalCandidateIsNotConfirmed(t *testing.T) {
	prev := delta.SumHash([]byte("prev"))
	reader := &mockReader{deltas: map[delta.Hash]*delta.Delta{}}
	c := testCache(t, 5, reader)
	ctx := context.Background()

	// A candidate that lost the election never reaches the DFS.
	loser, d := build(t, prev, self, "lost")
	if err := c.AddLocalDelta(loser, d); err != nil {
		t.Fatal(err)
	}

	if _, ok := c.TryGetConfirmedDelta(ctx, loser.Hash); ok {
		t.Fatalf("unelected local candidate should not be reported as confirmed")
	}
	if _, ok := c.TryGetLocalDelta(loser); !ok {
		t.Fatalf("local candidate should still be available to its producer")
	}

	// Once published, the same content is served from the DFS.
	reader.deltas[loser.Hash] = d
	if got, ok := c.TryGetConfirmedDelta(ctx, loser.Hash); !ok || got != d {
		t.Fatalf("published delta should be served")
	}
}

func TestEvictCycle(t *testing.T) {
	c := testCache(t, 5, nil)
	prev := delta.SumHash([]byte("prev"))

	c1, d1 := build(t, prev, self, "1")
	c2, d2 := build(t, prev, self, "2")
	c.AddLocalDelta(c1, d1)
	c.AddLocalDelta(c2, d2)

	c.EvictCycle(prev, c2.Hash)

	if _, ok := c.TryGetLocalDelta(c1); ok {
		t.Fatalf("losing candidate should be evicted")
	}
	if _, ok := c.TryGetLocalDelta(c2); !ok {
		t.Fatalf("winning candidate should be kept")
	}

	c.EvictCycle(prev, delta.ZeroHash)
	if c.LocalLen() != 0 {
		t.Fatalf("every entry should be evicted when nothing won")
	}
}

func TestRetentionIsBounded(t *testing.T) {
	maxCycles := 3
	c := testCache(t, maxCycles, nil)

	candidates := []*delta.CandidateDelta{}
	for i := 0; i < maxCycles+2; i++ {
		cand, d := build(t, delta.SumHash([]byte(fmt.Sprintf("prev%d", i))), self, "tx")
		if err := c.AddLocalDelta(cand, d); err != nil {
			t.Fatal(err)
		}
		candidates = append(candidates, cand)
	}

	if c.LocalLen() != maxCycles {
		t.Fatalf("expected %d entries, got %d", maxCycles, c.LocalLen())
	}

	for i, cand := range candidates {
		_, ok := c.TryGetLocalDelta(cand)
		if expected := i >= 2; ok != expected {
			t.Fatalf("candidate %d: expected found=%v", i, expected)
		}
	}
}

func TestTryGetConfirmedDelta(t *testing.T) {
	prev := delta.SumHash([]byte("prev"))
	remote := delta.NewDelta(prev, 2, [][]byte{[]byte("remote")})
	remoteHash, _ := remote.Hash()
	liar := delta.NewDelta(prev, 3, nil)
	liarHash := delta.SumHash([]byte("liar"))

	reader := &mockReader{deltas: map[delta.Hash]*delta.Delta{
		remoteHash: remote,
		liarHash:   liar,
	}}

	c := testCache(t, 5, reader)
	ctx := context.Background()

	got, ok := c.TryGetConfirmedDelta(ctx, remoteHash)
	if !ok || got != remote {
		t.Fatalf("remote delta should be read from the DFS")
	}
	if _, ok := c.TryGetConfirmedDelta(ctx, remoteHash); !ok || reader.reads != 1 {
		t.Fatalf("remote delta should be cached after the first read")
	}

	if _, ok := c.TryGetConfirmedDelta(ctx, liarHash); ok {
		t.Fatalf("content that does not match its hash should be rejected")
	}

	if _, ok := c.TryGetConfirmedDelta(ctx, delta.SumHash([]byte("missing"))); ok {
		t.Fatalf("missing delta should not be found")
	}

	confirmed := delta.NewDelta(prev, 4, nil)
	confirmedHash, _ := confirmed.Hash()
	c.AddConfirmedDelta(confirmedHash, confirmed)
	if got, ok := c.TryGetConfirmedDelta(ctx, confirmedHash); !ok || got != confirmed {
		t.Fatalf("added confirmed delta should be served")
	}
}
