package consensus

import (
	"reflect"
	"testing"
	"time"

	"github.com/mosaicnetworks/cadence/src/common"
	"github.com/mosaicnetworks/cadence/src/cycle"
	"github.com/mosaicnetworks/cadence/src/delta"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type fixture struct {
	builder  *mockBuilder
	voter    *mockVoter
	elector  *mockElector
	cache    *mockCache
	hub      *mockHub
	phases   *mockPhases
	launcher *testLauncher
	metrics  *Metrics
	c        *Consensus
}

func newFixture(t *testing.T) *fixture {
	f := &fixture{
		builder:  &mockBuilder{},
		voter:    &mockVoter{},
		elector:  &mockElector{},
		cache:    &mockCache{},
		hub:      &mockHub{},
		phases:   &mockPhases{ch: make(chan cycle.Phase)},
		launcher: &testLauncher{},
		metrics:  NewMetrics(prometheus.NewRegistry()),
	}
	f.c = NewConsensus(DefaultConfig(),
		f.builder, f.voter, f.elector, f.cache, f.hub, f.phases,
		f.launcher, f.metrics, common.NewTestEntry(t, common.TestLogLevel))
	return f
}

func (f *fixture) fire(name cycle.PhaseName, status cycle.PhaseStatus, prev delta.Hash) {
	f.c.dispatch(cycle.Phase{Name: name, Status: status, PreviousDeltaHash: prev})
	f.launcher.wait()
}

func candidateFor(prev delta.Hash, producer string, tx string) (*delta.CandidateDelta, *delta.Delta) {
	d := delta.NewDelta(prev, 1, [][]byte{[]byte(tx)})
	hash, _ := d.Hash()
	return &delta.CandidateDelta{Hash: hash, PreviousDeltaHash: prev, ProducerID: producer}, d
}

var h0 = delta.SumHash([]byte("h0"))

func TestConstructionBroadcastsCandidate(t *testing.T) {
	f := newFixture(t)
	f.builder.candidate, f.builder.delta = candidateFor(h0, "p1", "tx")

	f.fire(cycle.Construction, cycle.Producing, h0)

	if len(f.builder.calls) != 1 || f.builder.calls[0] != h0 {
		t.Fatalf("builder should be called once with the cycle previous hash, got %v", f.builder.calls)
	}
	if len(f.cache.added) != 1 || f.cache.added[0] != f.builder.candidate {
		t.Fatalf("candidate should be cached")
	}
	if len(f.hub.candidates) != 1 || f.hub.candidates[0] != f.builder.candidate {
		t.Fatalf("candidate should be broadcast exactly once")
	}
	if len(f.hub.favourites) != 0 || len(f.hub.published) != 0 {
		t.Fatalf("construction should only broadcast a candidate")
	}
	if testutil.ToFloat64(f.metrics.Candidates) != 1 {
		t.Fatalf("candidate metric should be incremented")
	}
}

func TestConstructionAbstains(t *testing.T) {
	f := newFixture(t)

	// No candidate
	f.fire(cycle.Construction, cycle.Producing, h0)

	// Builder error
	f.builder.candidate, f.builder.delta = candidateFor(h0, "p1", "tx")
	f.builder.err = errMock
	f.fire(cycle.Construction, cycle.Producing, h0)

	// Candidate for another cycle
	f.builder.err = nil
	f.builder.candidate, f.builder.delta = candidateFor(delta.SumHash([]byte("other")), "p1", "tx")
	f.fire(cycle.Construction, cycle.Producing, h0)

	// Cache refuses
	f.builder.candidate, f.builder.delta = candidateFor(h0, "p1", "tx")
	f.cache.addErr = errMock
	f.fire(cycle.Construction, cycle.Producing, h0)

	if len(f.hub.candidates) != 0 {
		t.Fatalf("nothing should be broadcast, got %d", len(f.hub.candidates))
	}
	if v := testutil.ToFloat64(f.metrics.Abstentions.WithLabelValues("Construction")); v != 4 {
		t.Fatalf("expected 4 abstentions, got %v", v)
	}
}

func TestCampaigningBroadcastsFavourite(t *testing.T) {
	f := newFixture(t)
	candidate, _ := candidateFor(h0, "p1", "tx")
	f.voter.favourite = &delta.FavouriteDelta{Candidate: candidate, VoterID: "p2"}
	f.voter.ok = true

	f.fire(cycle.Campaigning, cycle.Producing, h0)

	if len(f.voter.calls) != 1 || f.voter.calls[0] != h0 {
		t.Fatalf("voter should be asked once for the cycle previous hash")
	}
	if len(f.hub.favourites) != 1 || f.hub.favourites[0] != f.voter.favourite {
		t.Fatalf("favourite should be broadcast exactly once")
	}
	if len(f.builder.calls) != 0 || len(f.hub.candidates) != 0 {
		t.Fatalf("campaigning should not build")
	}
}

func TestCampaigningNoFavourite(t *testing.T) {
	f := newFixture(t)

	f.fire(cycle.Campaigning, cycle.Producing, h0)

	// A success flag with a nil favourite is still an abstention.
	f.voter.ok = true
	f.fire(cycle.Campaigning, cycle.Producing, h0)

	// A favourite without the success flag is ignored.
	candidate, _ := candidateFor(h0, "p1", "tx")
	f.voter.ok = false
	f.voter.favourite = &delta.FavouriteDelta{Candidate: candidate, VoterID: "p2"}
	f.fire(cycle.Campaigning, cycle.Producing, h0)

	if len(f.hub.favourites) != 0 {
		t.Fatalf("no favourite should be broadcast")
	}
}

func TestVotingNoWinner(t *testing.T) {
	f := newFixture(t)

	f.fire(cycle.Voting, cycle.Producing, h0)

	if len(f.elector.calls) != 1 || f.elector.calls[0] != h0 {
		t.Fatalf("elector should be asked once for the cycle previous hash")
	}
	if len(f.cache.lookups) != 0 || len(f.hub.published) != 0 {
		t.Fatalf("no lookup or publish without a winner")
	}
	if _, ok := f.c.Winner(h0); ok {
		t.Fatalf("no winner should be recorded")
	}
	if !f.c.Decided(h0) {
		t.Fatalf("cycle without a winner should still be decided")
	}
}

func TestElectedHandler(t *testing.T) {
	f := newFixture(t)

	var decided []delta.Hash
	f.c.SetElectedHandler(func(prev delta.Hash) {
		if !f.c.Decided(prev) {
			t.Errorf("handler called before the decision was recorded")
		}
		decided = append(decided, prev)
	})

	if f.c.Decided(h0) {
		t.Fatalf("cycle should not be decided before Voting")
	}

	f.fire(cycle.Campaigning, cycle.Producing, h0)
	if len(decided) != 0 {
		t.Fatalf("handler should wait for Voting")
	}

	f.fire(cycle.Voting, cycle.Producing, h0)
	if !reflect.DeepEqual(decided, []delta.Hash{h0}) {
		t.Fatalf("handler calls %v, expected [%s]", decided, h0)
	}
}

func TestVotingWinnerNotLocal(t *testing.T) {
	f := newFixture(t)
	f.elector.winner, _ = candidateFor(h0, "p1", "tx")

	f.fire(cycle.Voting, cycle.Producing, h0)

	if len(f.cache.lookups) != 1 || f.cache.lookups[0] != f.elector.winner {
		t.Fatalf("winner should be looked up in the cache")
	}
	if len(f.hub.published) != 0 {
		t.Fatalf("content built elsewhere should not be published")
	}

	winner, ok := f.c.Winner(h0)
	if !ok || winner.Hash != f.elector.winner.Hash {
		t.Fatalf("winner should be recorded")
	}
}

func TestVotingPublishesLocalWinner(t *testing.T) {
	f := newFixture(t)
	f.elector.winner, f.cache.local = candidateFor(h0, "p1", "tx")

	f.fire(cycle.Voting, cycle.Producing, h0)

	if len(f.hub.published) != 1 || f.hub.published[0] != f.cache.local {
		t.Fatalf("local winner should be published exactly once")
	}
	if testutil.ToFloat64(f.metrics.Published) != 1 {
		t.Fatalf("published metric should be incremented")
	}
}

func TestVotingPublishFailure(t *testing.T) {
	f := newFixture(t)
	f.elector.winner, f.cache.local = candidateFor(h0, "p1", "tx")
	f.hub.publishErr = errMock

	f.fire(cycle.Voting, cycle.Producing, h0)

	if len(f.hub.published) != 1 {
		t.Fatalf("publish should be attempted once and not retried")
	}
	if testutil.ToFloat64(f.metrics.PublishFailures) != 1 {
		t.Fatalf("failure should be counted")
	}
}

func TestVotingPartialAnnouncement(t *testing.T) {
	f := newFixture(t)
	f.elector.winner, f.cache.local = candidateFor(h0, "p1", "tx")
	f.hub.partialErr = errMock

	f.fire(cycle.Voting, cycle.Producing, h0)

	if testutil.ToFloat64(f.metrics.PublishFailures) != 0 {
		t.Fatalf("stored delta should not count as a publish failure")
	}
	if testutil.ToFloat64(f.metrics.Partial) != 1 {
		t.Fatalf("partial announcement should be counted")
	}
	if testutil.ToFloat64(f.metrics.Published) != 1 {
		t.Fatalf("stored delta should count as published")
	}
}

func TestVotingCollectingEvicts(t *testing.T) {
	f := newFixture(t)
	f.elector.winner, _ = candidateFor(h0, "p1", "tx")

	f.fire(cycle.Voting, cycle.Producing, h0)
	f.fire(cycle.Voting, cycle.Collecting, h0)

	if len(f.cache.evictions) != 1 || f.cache.evictions[0] != f.elector.winner.Hash {
		t.Fatalf("cycle should be evicted keeping the winner")
	}
}

func TestCollectingPhasesAreIgnored(t *testing.T) {
	f := newFixture(t)

	f.fire(cycle.Construction, cycle.Collecting, h0)
	f.fire(cycle.Campaigning, cycle.Collecting, h0)

	if f.launcher.launched != 0 {
		t.Fatalf("collecting phases should not launch handlers")
	}
}

func TestLauncherRefusal(t *testing.T) {
	f := newFixture(t)
	f.launcher.refuse = true
	f.builder.candidate, f.builder.delta = candidateFor(h0, "p1", "tx")

	f.fire(cycle.Construction, cycle.Producing, h0)

	if len(f.builder.calls) != 0 {
		t.Fatalf("handler should not run")
	}
	if v := testutil.ToFloat64(f.metrics.Abstentions.WithLabelValues("Construction")); v != 1 {
		t.Fatalf("skipped phase should be counted as abstention")
	}
}

func TestLauncherRefusalStillDecides(t *testing.T) {
	f := newFixture(t)
	f.launcher.refuse = true
	f.elector.winner, f.cache.local = candidateFor(h0, "p1", "tx")

	f.fire(cycle.Voting, cycle.Producing, h0)

	if !f.c.Decided(h0) {
		t.Fatalf("refused Voting phase should still record a decision")
	}
	if len(f.hub.published) != 0 {
		t.Fatalf("refused Voting phase should not publish")
	}
}

func TestStartStop(t *testing.T) {
	f := newFixture(t)
	f.builder.candidate, f.builder.delta = candidateFor(h0, "p1", "tx")

	f.c.Start()

	f.phases.ch <- cycle.Phase{Name: cycle.Construction, Status: cycle.Producing, PreviousDeltaHash: h0}

	deadline := time.After(2 * time.Second)
	for {
		f.hub.Lock()
		n := len(f.hub.candidates)
		f.hub.Unlock()
		if n == 1 {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("timeout waiting for candidate broadcast")
		case <-time.After(10 * time.Millisecond):
		}
	}

	f.c.Stop()
	f.c.Stop()

	if !f.phases.unsubscribed {
		t.Fatalf("stop should unsubscribe")
	}

	select {
	case f.phases.ch <- cycle.Phase{Name: cycle.Construction, Status: cycle.Producing, PreviousDeltaHash: h0}:
		t.Fatalf("no phase should be consumed after stop")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestNilCollaboratorPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic")
		}
	}()
	NewConsensus(DefaultConfig(), nil, nil, nil, nil, nil, nil, nil, nil, common.NewTestEntry(t, common.TestLogLevel))
}
