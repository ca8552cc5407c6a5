package cycle

import (
	"fmt"
	"time"
)

// PhaseName identifies one of the three phases of a cycle.
type PhaseName int

const (
	// Construction is the phase in which producers build and broadcast
	// candidates.
	Construction PhaseName = iota
	// Campaigning is the phase in which producers broadcast their favourite.
	Campaigning
	// Voting is the phase in which the winner is elected and published.
	Voting
)

// PhaseNames lists the phases in cycle order.
var PhaseNames = []PhaseName{Construction, Campaigning, Voting}

func (n PhaseName) String() string {
	switch n {
	case Construction:
		return "Construction"
	case Campaigning:
		return "Campaigning"
	case Voting:
		return "Voting"
	default:
		return "Unknown"
	}
}

// PhaseStatus is the sub-phase of a phase.
type PhaseStatus int

const (
	// Producing is the window during which a producer may act.
	Producing PhaseStatus = iota
	// Collecting is the window during which a producer only observes
	// broadcasts.
	Collecting
)

func (s PhaseStatus) String() string {
	switch s {
	case Producing:
		return "Producing"
	case Collecting:
		return "Collecting"
	default:
		return "Unknown"
	}
}

// PhaseTimings positions a phase within the cycle.
type PhaseTimings struct {
	Offset             time.Duration `mapstructure:"offset"`
	ProducingDuration  time.Duration `mapstructure:"producing"`
	CollectingDuration time.Duration `mapstructure:"collecting"`
}

// End returns the offset at which the phase ends.
func (p PhaseTimings) End() time.Duration {
	return p.Offset + p.ProducingDuration + p.CollectingDuration
}

// Config is the static timing of the cycle. It must be identical on every
// producer.
type Config struct {
	Construction  PhaseTimings  `mapstructure:"construction"`
	Campaigning   PhaseTimings  `mapstructure:"campaigning"`
	Voting        PhaseTimings  `mapstructure:"voting"`
	CycleDuration time.Duration `mapstructure:"duration"`
	Epoch         time.Time     `mapstructure:"-"`
}

// DefaultConfig returns a 15 second cycle with three phases of 2 seconds
// producing and 2 seconds collecting each.
func DefaultConfig() *Config {
	return &Config{
		Construction: PhaseTimings{
			Offset:             0,
			ProducingDuration:  2 * time.Second,
			CollectingDuration: 2 * time.Second,
		},
		Campaigning: PhaseTimings{
			Offset:             4 * time.Second,
			ProducingDuration:  2 * time.Second,
			CollectingDuration: 2 * time.Second,
		},
		Voting: PhaseTimings{
			Offset:             8 * time.Second,
			ProducingDuration:  2 * time.Second,
			CollectingDuration: 2 * time.Second,
		},
		CycleDuration: 15 * time.Second,
		Epoch:         time.Unix(0, 0).UTC(),
	}
}

// Timings returns the timings of the named phase.
func (c *Config) Timings(name PhaseName) PhaseTimings {
	switch name {
	case Campaigning:
		return c.Campaigning
	case Voting:
		return c.Voting
	default:
		return c.Construction
	}
}

// Validate checks that the phases are well formed, ordered, do not overlap,
// and fit within the cycle.
func (c *Config) Validate() error {
	if c.CycleDuration <= 0 {
		return fmt.Errorf("cycle duration must be positive, got %v", c.CycleDuration)
	}

	var previousEnd time.Duration
	for _, name := range PhaseNames {
		t := c.Timings(name)
		if t.Offset < 0 {
			return fmt.Errorf("%s offset must not be negative, got %v", name, t.Offset)
		}
		if t.ProducingDuration <= 0 {
			return fmt.Errorf("%s producing duration must be positive, got %v", name, t.ProducingDuration)
		}
		if t.CollectingDuration <= 0 {
			return fmt.Errorf("%s collecting duration must be positive, got %v", name, t.CollectingDuration)
		}
		if t.Offset < previousEnd {
			return fmt.Errorf("%s starts at %v, before the previous phase ends at %v", name, t.Offset, previousEnd)
		}
		previousEnd = t.End()
	}

	if previousEnd > c.CycleDuration {
		return fmt.Errorf("phases end at %v, after the cycle ends at %v", previousEnd, c.CycleDuration)
	}

	return nil
}

// CycleAt returns the number of the cycle running at t. Cycle 0 starts at the
// epoch.
func (c *Config) CycleAt(t time.Time) int64 {
	elapsed := t.Sub(c.Epoch)
	n := int64(elapsed / c.CycleDuration)
	if elapsed < 0 && elapsed%c.CycleDuration != 0 {
		n--
	}
	return n
}

// CycleStart returns the start time of cycle n.
func (c *Config) CycleStart(n int64) time.Time {
	return c.Epoch.Add(time.Duration(n) * c.CycleDuration)
}

// PhaseAt returns the phase and sub-phase active at t. ok is false when t
// falls in the idle gap between phases.
func (c *Config) PhaseAt(t time.Time) (cycle int64, name PhaseName, status PhaseStatus, ok bool) {
	cycle = c.CycleAt(t)
	offset := t.Sub(c.CycleStart(cycle))

	for _, n := range PhaseNames {
		timings := c.Timings(n)
		switch {
		case offset < timings.Offset:
		case offset < timings.Offset+timings.ProducingDuration:
			return cycle, n, Producing, true
		case offset < timings.End():
			return cycle, n, Collecting, true
		}
	}

	return cycle, Construction, Producing, false
}

// boundary is the start of a sub-phase window.
type boundary struct {
	cycle  int64
	name   PhaseName
	status PhaseStatus
	start  time.Time
	end    time.Time
}

// boundaries returns the six sub-phase windows of cycle n in order.
func (c *Config) boundaries(n int64) []boundary {
	cycleStart := c.CycleStart(n)
	res := make([]boundary, 0, 2*len(PhaseNames))
	for _, name := range PhaseNames {
		t := c.Timings(name)
		producing := cycleStart.Add(t.Offset)
		collecting := producing.Add(t.ProducingDuration)
		res = append(res,
			boundary{cycle: n, name: name, status: Producing, start: producing, end: collecting},
			boundary{cycle: n, name: name, status: Collecting, start: collecting, end: collecting.Add(t.CollectingDuration)},
		)
	}
	return res
}

// nextBoundary returns the first window starting strictly after t.
func (c *Config) nextBoundary(t time.Time) boundary {
	for n := c.CycleAt(t); ; n++ {
		for _, b := range c.boundaries(n) {
			if b.start.After(t) {
				return b
			}
		}
	}
}
