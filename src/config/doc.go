// Package config defines the configuration for a Cadence node.
//
// Regardless of how Cadence is started, directly from Go code or as a
// standalone process from the command line, it uses the Config object defined
// in this package to store and forward configuration options. On top of these
// configuration options, Cadence relies on a data directory, defined by
// Config.DataDir, where it expects to find a few additional files:
//
//  priv_key // a plain text file containing the raw private key (cf. cadence keygen).
//  peers.json // a JSON file containing the list of producers.
//  cadence.toml // (optional) a configuration file read by the command line.
//
// The cycle timings must be identical on every producer. They are set under
// the "cycle" key of the configuration file, or with the cycle.* flags.
package config
