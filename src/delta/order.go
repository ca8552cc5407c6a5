package delta

import (
	"strings"

	"github.com/holiman/uint256"
)

// CompareHashes orders hashes as 256-bit big-endian unsigned integers. It
// returns -1, 0 or +1. This order is a protocol constant: every producer must
// rank candidates with it, or the network stops agreeing on favourites.
func CompareHashes(a, b Hash) int {
	x := new(uint256.Int).SetBytes32(a[:])
	y := new(uint256.Int).SetBytes32(b[:])
	return x.Cmp(y)
}

// Preferred reports whether candidate a ranks strictly above candidate b.
// Greater hashes rank higher. Candidates with the same hash are ranked by
// producer id so that the order stays total.
func Preferred(a, b *CandidateDelta) bool {
	if b == nil {
		return a != nil
	}
	if a == nil {
		return false
	}
	if c := CompareHashes(a.Hash, b.Hash); c != 0 {
		return c > 0
	}
	return strings.Compare(a.ProducerID, b.ProducerID) > 0
}

// Best returns the highest ranked candidate, or nil if there is none.
func Best(candidates []*CandidateDelta) *CandidateDelta {
	var best *CandidateDelta
	for _, c := range candidates {
		if Preferred(c, best) {
			best = c
		}
	}
	return best
}
