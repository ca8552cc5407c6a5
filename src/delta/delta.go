package delta

import (
	"bytes"

	"github.com/mosaicnetworks/cadence/src/crypto"
	"github.com/ugorji/go/codec"
)

// Delta is the full content of a ledger update.
type Delta struct {
	PreviousDeltaHash Hash
	Timestamp         int64
	Transactions      [][]byte
	StateHash         Hash
}

// NewDelta creates a Delta on top of previousDeltaHash and computes its state
// hash.
func NewDelta(previousDeltaHash Hash, timestamp int64, transactions [][]byte) *Delta {
	if transactions == nil {
		transactions = [][]byte{}
	}
	return &Delta{
		PreviousDeltaHash: previousDeltaHash,
		Timestamp:         timestamp,
		Transactions:      transactions,
		StateHash:         ComputeStateHash(previousDeltaHash, transactions),
	}
}

// ComputeStateHash folds the hashes of the transactions onto the previous
// delta hash. It commits to the ordered transaction set without interpreting
// it.
func ComputeStateHash(previousDeltaHash Hash, transactions [][]byte) Hash {
	state := previousDeltaHash.Bytes()
	for _, tx := range transactions {
		state = crypto.SimpleHashFromTwoHashes(state, crypto.SHA256(tx))
	}
	h, _ := BytesToHash(crypto.SHA256(state))
	return h
}

// Marshal - canonical json encoding of the Delta. The hash of a Delta is the
// hash of these bytes, so the encoding must be deterministic.
func (d *Delta) Marshal() ([]byte, error) {
	b := new(bytes.Buffer)
	jh := new(codec.JsonHandle)
	jh.Canonical = true
	enc := codec.NewEncoder(b, jh)

	if err := enc.Encode(d); err != nil {
		return nil, err
	}

	return b.Bytes(), nil
}

// Unmarshal ...
func (d *Delta) Unmarshal(data []byte) error {
	b := bytes.NewBuffer(data)
	jh := new(codec.JsonHandle)
	jh.Canonical = true
	dec := codec.NewDecoder(b, jh)

	return dec.Decode(d)
}

// Hash returns the content address of the Delta.
func (d *Delta) Hash() (Hash, error) {
	data, err := d.Marshal()
	if err != nil {
		return Hash{}, err
	}
	return SumHash(data), nil
}
