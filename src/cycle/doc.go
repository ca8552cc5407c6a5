// Package cycle computes the phase boundaries of the delta consensus cycle
// and notifies subscribers when they are crossed.
//
// A cycle has three ordered phases: Construction, Campaigning and Voting.
// Each phase is split into a Producing window, during which a producer acts,
// followed by a Collecting window, during which it only observes. Boundaries
// are derived from a fixed epoch and the static Config, so producers that
// start at different times, but share a clock, agree on the phase timing.
//
//	cycle n:  |--Construction--|   |--Campaigning--|   |--Voting--|        |
//	          Epoch + n*CycleDuration + Offset ...            (n+1)*CycleDuration
//
// The Scheduler runs a single goroutine that waits for the next boundary and
// pushes a Phase to every subscriber. It never blocks on a slow subscriber.
package cycle
