package cycle

import (
	"testing"
	"time"
)

func TestDefaultConfigIsValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatal(err)
	}
}

func TestConfigValidate(t *testing.T) {
	cases := map[string]func(c *Config){
		"zero cycle":         func(c *Config) { c.CycleDuration = 0 },
		"negative offset":    func(c *Config) { c.Construction.Offset = -time.Second },
		"zero producing":     func(c *Config) { c.Campaigning.ProducingDuration = 0 },
		"zero collecting":    func(c *Config) { c.Voting.CollectingDuration = 0 },
		"overlapping phases": func(c *Config) { c.Campaigning.Offset = 3 * time.Second },
		"unordered phases":   func(c *Config) { c.Voting.Offset = 0 },
		"overflowing cycle":  func(c *Config) { c.CycleDuration = 11 * time.Second },
	}

	for name, mutate := range cases {
		c := DefaultConfig()
		mutate(c)
		if err := c.Validate(); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}

func TestPhaseAt(t *testing.T) {
	c := DefaultConfig()
	c.Epoch = time.Unix(1000, 0)

	type expectation struct {
		offset time.Duration
		cycle  int64
		name   PhaseName
		status PhaseStatus
		ok     bool
	}

	expected := []expectation{
		{0, 0, Construction, Producing, true},
		{1999 * time.Millisecond, 0, Construction, Producing, true},
		{2 * time.Second, 0, Construction, Collecting, true},
		{4 * time.Second, 0, Campaigning, Producing, true},
		{7 * time.Second, 0, Campaigning, Collecting, true},
		{8 * time.Second, 0, Voting, Producing, true},
		{11 * time.Second, 0, Voting, Collecting, true},
		{13 * time.Second, 0, Construction, Producing, false},
		{15 * time.Second, 1, Construction, Producing, true},
		{-1 * time.Second, -1, Construction, Producing, false},
		{-15 * time.Second, -1, Construction, Producing, true},
	}

	for _, e := range expected {
		cycle, name, status, ok := c.PhaseAt(c.Epoch.Add(e.offset))
		if cycle != e.cycle || ok != e.ok {
			t.Fatalf("offset %v: expected cycle %d ok %v, got cycle %d ok %v", e.offset, e.cycle, e.ok, cycle, ok)
		}
		if ok && (name != e.name || status != e.status) {
			t.Fatalf("offset %v: expected %s.%s, got %s.%s", e.offset, e.name, e.status, name, status)
		}
	}
}

func TestNextBoundary(t *testing.T) {
	c := DefaultConfig()
	c.Epoch = time.Unix(1000, 0)

	b := c.nextBoundary(c.Epoch)
	if b.cycle != 0 || b.name != Construction || b.status != Collecting {
		t.Fatalf("boundaries at the start time should not be returned, got %v.%v", b.name, b.status)
	}

	b = c.nextBoundary(c.Epoch.Add(12 * time.Second))
	if b.cycle != 1 || b.name != Construction || b.status != Producing {
		t.Fatalf("expected next cycle construction, got %d %v.%v", b.cycle, b.name, b.status)
	}
	if !b.start.Equal(c.Epoch.Add(15 * time.Second)) {
		t.Fatalf("expected boundary at epoch+15s, got %v", b.start)
	}
}
