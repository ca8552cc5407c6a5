package deltahash

import (
	"fmt"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/mosaicnetworks/cadence/src/common"
	"github.com/mosaicnetworks/cadence/src/cycle"
	"github.com/mosaicnetworks/cadence/src/delta"
)

var epoch = time.Unix(1000, 0)

func h(s string) delta.Hash {
	return delta.SumHash([]byte(s))
}

func testProvider(t *testing.T, capacity int) (*Provider, *cycle.ManualClock) {
	clock := cycle.NewManualClock(epoch)
	p := New(capacity, h("genesis"), epoch, clock, common.NewTestEntry(t, common.TestLogLevel))
	return p, clock
}

func TestTryUpdateLatestHash(t *testing.T) {
	p, clock := testProvider(t, 10)

	if p.LatestDeltaHash() != h("genesis") {
		t.Fatalf("tip should be genesis")
	}

	clock.Advance(time.Second)
	if !p.TryUpdateLatestHash(h("genesis"), h("d1")) {
		t.Fatalf("update on the tip should succeed")
	}

	if p.TryUpdateLatestHash(h("genesis"), h("d2")) {
		t.Fatalf("update on a stale hash should fail")
	}

	if p.TryUpdateLatestHash(h("d1"), h("genesis")) {
		t.Fatalf("hashes already in the chain should be rejected")
	}

	if p.TryUpdateLatestHash(h("d1"), delta.ZeroHash) {
		t.Fatalf("zero hash should be rejected")
	}

	if p.LatestDeltaHash() != h("d1") || p.Len() != 2 {
		t.Fatalf("failed updates should not mutate the chain")
	}
}

func TestEvictsOldest(t *testing.T) {
	capacity := 4
	p, clock := testProvider(t, capacity)

	prev := h("genesis")
	for i := 0; i < capacity; i++ {
		clock.Advance(time.Second)
		next := h(fmt.Sprintf("d%d", i))
		if !p.TryUpdateLatestHash(prev, next) {
			t.Fatalf("update %d should succeed", i)
		}
		prev = next
	}

	// capacity+1 entries were inserted, genesis included.
	if p.Len() != capacity {
		t.Fatalf("expected %d entries, got %d", capacity, p.Len())
	}
	if p.Contains(h("genesis")) {
		t.Fatalf("oldest entry should be evicted")
	}
	for i := 0; i < capacity; i++ {
		if !p.Contains(h(fmt.Sprintf("d%d", i))) {
			t.Fatalf("d%d should still be held", i)
		}
	}

	entries := p.Entries()
	if entries[0].Hash != h("d0") || entries[capacity-1].Hash != h(fmt.Sprintf("d%d", capacity-1)) {
		t.Fatalf("entries should be ordered oldest first")
	}

	// Evicted hashes are forgotten.
	if !p.TryUpdateLatestHash(prev, h("genesis")) {
		t.Fatalf("evicted hash should be accepted again")
	}
}

func TestGetLatestDeltaHash(t *testing.T) {
	p, clock := testProvider(t, 10)

	prev := h("genesis")
	for i := 1; i <= 3; i++ {
		clock.Set(epoch.Add(time.Duration(i) * 10 * time.Second))
		next := h(fmt.Sprintf("d%d", i))
		p.TryUpdateLatestHash(prev, next)
		prev = next
	}

	cases := []struct {
		asOf     time.Duration
		expected delta.Hash
	}{
		{-time.Second, h("genesis")},
		{0, h("genesis")},
		{9 * time.Second, h("genesis")},
		{10 * time.Second, h("d1")},
		{19 * time.Second, h("d1")},
		{20 * time.Second, h("d2")},
		{30 * time.Second, h("d3")},
		{time.Hour, h("d3")},
	}

	for _, c := range cases {
		if got := p.GetLatestDeltaHash(epoch.Add(c.asOf)); got != c.expected {
			t.Fatalf("as of %v: expected %s, got %s", c.asOf, c.expected.Short(), got.Short())
		}
	}
}

func TestGetLatestDeltaHashAfterEviction(t *testing.T) {
	p, clock := testProvider(t, 2)

	prev := h("genesis")
	for i := 1; i <= 3; i++ {
		clock.Set(epoch.Add(time.Duration(i) * 10 * time.Second))
		next := h(fmt.Sprintf("d%d", i))
		p.TryUpdateLatestHash(prev, next)
		prev = next
	}

	if got := p.GetLatestDeltaHash(epoch.Add(15 * time.Second)); got != h("genesis") {
		t.Fatalf("no held entry is old enough, expected genesis, got %s", got.Short())
	}
	if got := p.GetLatestDeltaHash(epoch.Add(25 * time.Second)); got != h("d2") {
		t.Fatalf("expected d2, got %s", got.Short())
	}
}

func TestAcceptedAtIsMonotonic(t *testing.T) {
	p, clock := testProvider(t, 10)

	clock.Set(epoch.Add(10 * time.Second))
	p.TryUpdateLatestHash(h("genesis"), h("d1"))

	clock.Set(epoch.Add(5 * time.Second))
	p.TryUpdateLatestHash(h("d1"), h("d2"))

	entries := p.Entries()
	if entries[2].AcceptedAt.Before(entries[1].AcceptedAt) {
		t.Fatalf("acceptance times should never go backwards")
	}
	if p.GetLatestDeltaHash(epoch.Add(10*time.Second)) != h("d2") {
		t.Fatalf("expected d2 to be accepted at the previous tip time")
	}
}

func TestConcurrentStaleUpdates(t *testing.T) {
	p, _ := testProvider(t, 100)

	for round := 0; round < 20; round++ {
		prev := p.LatestDeltaHash()

		var wg sync.WaitGroup
		results := make(chan bool, 2)
		for i := 0; i < 2; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				results <- p.TryUpdateLatestHash(prev, h(fmt.Sprintf("r%d-%d", round, i)))
			}(i)
		}
		wg.Wait()
		close(results)

		successes := 0
		for r := range results {
			if r {
				successes++
			}
		}
		if successes != 1 {
			t.Fatalf("round %d: expected exactly one success, got %d", round, successes)
		}
	}
}

func TestSubscribe(t *testing.T) {
	p, clock := testProvider(t, 10)

	ch, unsubscribe := p.Subscribe()

	expected := []delta.Hash{}
	prev := h("genesis")
	for i := 0; i < 3; i++ {
		clock.Advance(time.Second)
		next := h(fmt.Sprintf("d%d", i))
		p.TryUpdateLatestHash(prev, next)
		expected = append(expected, next)
		prev = next
	}

	// Failed updates are not streamed.
	p.TryUpdateLatestHash(h("genesis"), h("fork"))

	got := []delta.Hash{}
	for i := 0; i < 3; i++ {
		select {
		case e := <-ch:
			got = append(got, e.Hash)
		case <-time.After(time.Second):
			t.Fatalf("timeout waiting for update")
		}
	}

	if !reflect.DeepEqual(expected, got) {
		t.Fatalf("expected %v, got %v", expected, got)
	}

	unsubscribe()
	if _, ok := <-ch; ok {
		t.Fatalf("channel should be closed after unsubscribe")
	}

	ch2, _ := p.Subscribe()
	p.Close()
	if _, ok := <-ch2; ok {
		t.Fatalf("channel should be closed after Close")
	}
}

func TestSubscriberDetectsDroppedUpdates(t *testing.T) {
	p, clock := testProvider(t, 2*UpdateBuffer)

	ch, unsubscribe := p.Subscribe()
	defer unsubscribe()

	prev := h("genesis")
	for i := 0; i < UpdateBuffer+2; i++ {
		clock.Advance(time.Second)
		next := h(fmt.Sprintf("d%d", i))
		if !p.TryUpdateLatestHash(prev, next) {
			t.Fatalf("update %d should succeed", i)
		}
		prev = next
	}

	last := 0
	for i := 0; i < UpdateBuffer; i++ {
		e := <-ch
		if e.Index != last+1 {
			t.Fatalf("buffered entries should be contiguous, got %d after %d", e.Index, last)
		}
		last = e.Index
	}

	// The buffer overflowed: the next update after the drop shows a gap.
	clock.Advance(time.Second)
	if !p.TryUpdateLatestHash(prev, h("after")) {
		t.Fatal("update after the overflow should succeed")
	}
	e := <-ch
	if e.Index != UpdateBuffer+3 || e.Index == last+1 {
		t.Fatalf("expected a gap after index %d, got %d", last, e.Index)
	}

	// The lost entries are still in the chain.
	entries := p.Entries()
	missing := entries[last+1 : e.Index]
	if len(missing) != 2 || missing[0].Index != last+1 {
		t.Fatalf("dropped entries should be available from Entries, got %v", missing)
	}
}
