package keys

import (
	"crypto/ecdsa"
	"crypto/elliptic"

	"github.com/mosaicnetworks/cadence/src/common"
)

// FromPublicKey returns the uncompressed form of the public key.
func FromPublicKey(pub *ecdsa.PublicKey) []byte {
	if pub == nil || pub.X == nil || pub.Y == nil {
		return nil
	}
	return elliptic.Marshal(Curve(), pub.X, pub.Y)
}

// PublicKeyHex returns the 0X prefixed hexadecimal representation of the
// uncompressed public key. This is the producer identifier.
func PublicKeyHex(pub *ecdsa.PublicKey) string {
	return common.EncodeToString(FromPublicKey(pub))
}

// ProducerID returns the producer identifier of the key-pair.
func ProducerID(priv *ecdsa.PrivateKey) string {
	if priv == nil {
		return ""
	}
	return PublicKeyHex(&priv.PublicKey)
}
