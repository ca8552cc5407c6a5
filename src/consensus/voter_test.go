package consensus

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/mosaicnetworks/cadence/src/common"
	"github.com/mosaicnetworks/cadence/src/delta"
)

type producerList map[string]bool

func (p producerList) IsProducer(id string) bool {
	return p[id]
}

var testProducers = producerList{"p1": true, "p2": true, "p3": true, "p4": true}

func testCandidates(prev delta.Hash, n int) []*delta.CandidateDelta {
	res := []*delta.CandidateDelta{}
	for i := 0; i < n; i++ {
		c, _ := candidateFor(prev, fmt.Sprintf("p%d", i%4+1), fmt.Sprintf("tx%d", i))
		res = append(res, c)
	}
	return res
}

func TestVoterDeterminism(t *testing.T) {
	candidates := testCandidates(h0, 8)
	expected := delta.Best(candidates)

	r := rand.New(rand.NewSource(7))
	for round := 0; round < 20; round++ {
		v := NewVoter("p1", testProducers, 10, common.NewTestEntry(t, common.TestLogLevel))

		shuffled := append([]*delta.CandidateDelta{}, candidates...)
		// duplicate a few
		shuffled = append(shuffled, candidates[round%8], candidates[(round+3)%8])
		r.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

		for _, c := range shuffled {
			v.OnNext(c)
		}

		fav, ok := v.TryGetFavouriteDelta(h0)
		if !ok {
			t.Fatalf("expected a favourite")
		}
		if fav.Candidate.Hash != expected.Hash || fav.VoterID != "p1" {
			t.Fatalf("round %d: expected %s, got %s", round, expected.Hash.Short(), fav.Candidate.Hash.Short())
		}
	}
}

func TestVoterNoCandidates(t *testing.T) {
	v := NewVoter("p1", testProducers, 10, common.NewTestEntry(t, common.TestLogLevel))

	fav, ok := v.TryGetFavouriteDelta(h0)
	if ok || fav != nil {
		t.Fatalf("expected no favourite")
	}
}

func TestVoterFiltersByPreviousHash(t *testing.T) {
	v := NewVoter("p1", testProducers, 10, common.NewTestEntry(t, common.TestLogLevel))

	h1 := delta.SumHash([]byte("h1"))
	for _, c := range testCandidates(h1, 4) {
		v.OnNext(c)
	}

	if _, ok := v.TryGetFavouriteDelta(h0); ok {
		t.Fatalf("candidates for another previous hash should be ignored")
	}

	mine, _ := candidateFor(h0, "p2", "mine")
	v2 := NewVoter("p1", testProducers, 10, common.NewTestEntry(t, common.TestLogLevel))
	v2.OnNext(mine)
	for _, c := range testCandidates(h1, 4) {
		v2.OnNext(c)
	}

	fav, ok := v2.TryGetFavouriteDelta(h0)
	if !ok || fav.Candidate.Hash != mine.Hash {
		t.Fatalf("only candidates for the cycle should be considered")
	}
	if fav.Candidate.PreviousDeltaHash != h0 {
		t.Fatalf("favourite should build on the cycle previous hash")
	}
}

func TestVoterIgnoresUnknownAndInvalid(t *testing.T) {
	v := NewVoter("p1", testProducers, 10, common.NewTestEntry(t, common.TestLogLevel))

	stranger, _ := candidateFor(h0, "stranger", "tx")
	v.OnNext(stranger)
	v.OnNext(nil)
	v.OnNext(&delta.CandidateDelta{PreviousDeltaHash: h0, ProducerID: "p1"})

	if v.CandidateCount(h0) != 0 {
		t.Fatalf("no candidate should be recorded")
	}
}

func TestVoterSnapshot(t *testing.T) {
	v := NewVoter("p1", testProducers, 10, common.NewTestEntry(t, common.TestLogLevel))

	candidates := testCandidates(h0, 4)
	for _, c := range candidates[:2] {
		v.OnNext(c)
	}

	first, ok := v.TryGetFavouriteDelta(h0)
	if !ok {
		t.Fatalf("expected a favourite")
	}

	// Candidates arriving after the decision are ignored, even if better.
	for _, c := range candidates[2:] {
		v.OnNext(c)
	}

	second, _ := v.TryGetFavouriteDelta(h0)
	if second.Candidate.Hash != first.Candidate.Hash {
		t.Fatalf("decision should be frozen")
	}
	if v.CandidateCount(h0) != 2 {
		t.Fatalf("late candidates should not be recorded")
	}

	// Callers cannot mutate the frozen decision.
	second.Candidate.ProducerID = "tampered"
	third, _ := v.TryGetFavouriteDelta(h0)
	if third.Candidate.ProducerID == "tampered" {
		t.Fatalf("favourite should be returned by copy")
	}
}

func TestVoterRetention(t *testing.T) {
	v := NewVoter("p1", testProducers, 3, common.NewTestEntry(t, common.TestLogLevel))

	for i := 0; i < 5; i++ {
		prev := delta.SumHash([]byte(fmt.Sprintf("prev%d", i)))
		for _, c := range testCandidates(prev, 2) {
			v.OnNext(c)
		}
	}

	if v.cycles.len() != 3 {
		t.Fatalf("expected 3 cycles retained, got %d", v.cycles.len())
	}
	if v.CandidateCount(delta.SumHash([]byte("prev0"))) != 0 {
		t.Fatalf("oldest cycle should be forgotten")
	}
	if v.CandidateCount(delta.SumHash([]byte("prev4"))) != 2 {
		t.Fatalf("newest cycle should be retained")
	}
}
