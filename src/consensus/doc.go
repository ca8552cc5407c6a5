// Package consensus drives this node through the delta consensus cycle.
//
// The Consensus orchestrator subscribes to the Producing transitions of the
// cycle scheduler and, for each phase, performs exactly one action:
//
//	Construction.Producing  build a candidate, cache its content, broadcast it
//	Campaigning.Producing   pick a favourite among the candidates, broadcast it
//	Voting.Producing        elect the most popular candidate, and publish its
//	                        content if this node built it
//
// The Voter and Elector are fed by the network. Both key their state by the
// previous delta hash of the cycle, so messages for other cycles never
// influence a decision, and both freeze a cycle once its decision has been
// taken. Candidates are ranked with delta.Preferred, which all producers must
// share.
package consensus
