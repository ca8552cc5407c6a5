package crypto

import (
	"bytes"
	"encoding/hex"
	"testing"
)

func TestSHA256(t *testing.T) {
	expected, _ := hex.DecodeString("2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824")

	if got := SHA256([]byte("hello")); !bytes.Equal(expected, got) {
		t.Fatalf("expected %X, got %X", expected, got)
	}
}

func TestSimpleHashFromTwoHashes(t *testing.T) {
	left := SHA256([]byte("left"))
	right := SHA256([]byte("right"))

	combined := SimpleHashFromTwoHashes(left, right)

	if !bytes.Equal(combined, SHA256(append(append([]byte{}, left...), right...))) {
		t.Fatalf("combined hash should be the hash of the concatenation")
	}

	if bytes.Equal(combined, SimpleHashFromTwoHashes(right, left)) {
		t.Fatalf("combining hashes should not be commutative")
	}
}
