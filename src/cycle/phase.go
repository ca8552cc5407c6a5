package cycle

import (
	"fmt"
	"time"

	"github.com/mosaicnetworks/cadence/src/delta"
)

// Phase is a sub-phase transition of a cycle.
type Phase struct {
	Cycle             int64
	Name              PhaseName
	Status            PhaseStatus
	PreviousDeltaHash delta.Hash
	Time              time.Time
}

// Is reports whether p is the given transition.
func (p Phase) Is(name PhaseName, status PhaseStatus) bool {
	return p.Name == name && p.Status == status
}

func (p Phase) String() string {
	return fmt.Sprintf("cycle %d %s.%s on %s", p.Cycle, p.Name, p.Status, p.PreviousDeltaHash.Short())
}
