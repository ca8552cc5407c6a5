package delta

import (
	"bytes"
	"fmt"

	"github.com/mosaicnetworks/cadence/src/common"
	"github.com/mosaicnetworks/cadence/src/crypto"
)

// HashLength is the length of a delta hash (SHA256).
const HashLength = 32

// Hash is the content address of a Delta.
type Hash [HashLength]byte

// ZeroHash is the previous hash of the genesis cycle.
var ZeroHash Hash

// BytesToHash converts a byte slice to a Hash.
func BytesToHash(b []byte) (Hash, error) {
	var h Hash
	if len(b) != HashLength {
		return h, fmt.Errorf("hash should be %d bytes, got %d", HashLength, len(b))
	}
	copy(h[:], b)
	return h, nil
}

// HexToHash parses the 0X prefixed hexadecimal form of a Hash.
func HexToHash(s string) (Hash, error) {
	b, err := common.DecodeFromString(s)
	if err != nil {
		return Hash{}, err
	}
	return BytesToHash(b)
}

// SumHash returns the SHA256 Hash of data.
func SumHash(data []byte) Hash {
	var h Hash
	copy(h[:], crypto.SHA256(data))
	return h
}

// Bytes ...
func (h Hash) Bytes() []byte {
	return h[:]
}

// Hex returns the 0X prefixed upper-case hexadecimal form.
func (h Hash) Hex() string {
	return common.EncodeToString(h[:])
}

// String ...
func (h Hash) String() string {
	return h.Hex()
}

// Short returns a shortened hex form for logs.
func (h Hash) Short() string {
	return fmt.Sprintf("%X", h[:4])
}

// IsZero ...
func (h Hash) IsZero() bool {
	return h == ZeroHash
}

// Equal ...
func (h Hash) Equal(other Hash) bool {
	return bytes.Equal(h[:], other[:])
}

// MarshalText implements encoding.TextMarshaler.
func (h Hash) MarshalText() ([]byte, error) {
	return []byte(h.Hex()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (h *Hash) UnmarshalText(text []byte) error {
	parsed, err := HexToHash(string(text))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}
