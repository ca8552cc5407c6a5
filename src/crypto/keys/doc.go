// Package keys implements the identity keys of Cadence producers.
//
// Every producer owns a secp256k1 key-pair. The uncompressed public key, in 0X
// prefixed hexadecimal form, is the producer identifier that appears in
// peers.json, in candidate deltas and in favourite votes. The private key is
// kept in a raw hex file in the data directory, readable by the owner only.
package keys
