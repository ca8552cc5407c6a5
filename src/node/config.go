package node

import (
	"testing"
	"time"

	"github.com/mosaicnetworks/cadence/src/common"
	"github.com/mosaicnetworks/cadence/src/consensus"
	"github.com/mosaicnetworks/cadence/src/cycle"
	"github.com/mosaicnetworks/cadence/src/delta"
	"github.com/mosaicnetworks/cadence/src/hub"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

// Config contains the configuration of a Node.
type Config struct {
	// Cycle holds the cycle and phase timings shared by every producer.
	Cycle *cycle.Config

	// Consensus configures the orchestrator.
	Consensus consensus.Config

	// Hub configures the publication retries.
	Hub hub.Config

	// Genesis is the hash the chain starts from.
	Genesis delta.Hash

	// HashChainSize is the number of entries kept by the hash-chain index.
	HashChainSize int

	// ConfirmedCacheSize is the number of confirmed deltas kept in memory.
	ConfirmedCacheSize int

	// MempoolSize bounds the number of pending transactions.
	MempoolSize int

	// MaxTransactions bounds the number of transactions in a delta.
	MaxTransactions int

	// SkipEmpty makes a producer abstain when it has no transactions.
	SkipEmpty bool

	// FetchTimeout bounds the retrieval of an announced delta.
	FetchTimeout time.Duration

	Clock    cycle.Clock
	Registry *prometheus.Registry
	Logger   *logrus.Logger
}

// DefaultConfig ...
func DefaultConfig() *Config {
	logger := logrus.New()
	logger.Level = logrus.DebugLevel

	return &Config{
		Cycle:              cycle.DefaultConfig(),
		Consensus:          consensus.DefaultConfig(),
		Hub:                hub.DefaultConfig(),
		HashChainSize:      1024,
		ConfirmedCacheSize: 256,
		MempoolSize:        10000,
		MaxTransactions:    500,
		FetchTimeout:       2 * time.Second,
		Clock:              cycle.NewSystemClock(),
		Registry:           prometheus.NewRegistry(),
		Logger:             logger,
	}
}

// TestConfig returns a Config with a test logger and a fresh registry.
func TestConfig(t testing.TB) *Config {
	config := DefaultConfig()
	config.Logger = common.NewTestLogger(t, common.TestLogLevel)
	return config
}
