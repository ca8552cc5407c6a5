package config

import (
	"crypto/ecdsa"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/mosaicnetworks/cadence/src/common"
	"github.com/mosaicnetworks/cadence/src/cycle"
	"github.com/mosaicnetworks/cadence/src/proxy"
	"github.com/rifflock/lfshook"
	"github.com/sirupsen/logrus"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"
)

// Default filenames.
const (
	// DefaultKeyfile is the default name of the file containing the producer's
	// private key
	DefaultKeyfile = "priv_key"

	// DefaultBadgerFile is the default name of the folder containing the Badger
	// database
	DefaultBadgerFile = "badger_db"
)

// Default configuration values.
const (
	DefaultLogLevel        = "debug"
	DefaultBindAddr        = "127.0.0.1:1337"
	DefaultServiceAddr     = "127.0.0.1:8000"
	DefaultTCPTimeout      = 1000 * time.Millisecond
	DefaultFetchTimeout    = 2000 * time.Millisecond
	DefaultPublishTimeout  = 5000 * time.Millisecond
	DefaultPublishRetries  = 3
	DefaultRetryBackoff    = 200 * time.Millisecond
	DefaultMaxPool         = 2
	DefaultStore           = false
	DefaultMaxCycles       = 16
	DefaultHashChainSize   = 1024
	DefaultCacheSize       = 256
	DefaultMempoolSize     = 10000
	DefaultMaxTransactions = 500
	DefaultSkipEmpty       = false
	DefaultEpoch           = 0
)

// Config contains all the configuration properties of a Cadence node.
type Config struct {
	// DataDir is the top-level directory containing Cadence configuration and
	// data
	DataDir string `mapstructure:"datadir"`

	// LogLevel determines the chattiness of the log output.
	LogLevel string `mapstructure:"log"`

	// LogFile, if set, is a file that receives a copy of the log output in
	// JSON format.
	LogFile string `mapstructure:"log-file"`

	// BindAddr is the local address:port where this node listens for the
	// other producers.
	BindAddr string `mapstructure:"listen"`

	// AdvertiseAddr is used to change the address that we advertise to other
	// nodes.
	AdvertiseAddr string `mapstructure:"advertise"`

	// NoService disables the HTTP API service.
	NoService bool `mapstructure:"no-service"`

	// ServiceAddr is the address:port of the optional HTTP service.
	ServiceAddr string `mapstructure:"service-listen"`

	// MaxPool controls how many connections are pooled per target.
	MaxPool int `mapstructure:"max-pool"`

	// TCPTimeout is the timeout of RPC connections.
	TCPTimeout time.Duration `mapstructure:"timeout"`

	// FetchTimeout bounds the retrieval of an announced delta from the DFS of
	// the other producers.
	FetchTimeout time.Duration `mapstructure:"fetch-timeout"`

	// PublishTimeout bounds the publication of an elected delta.
	PublishTimeout time.Duration `mapstructure:"publish-timeout"`

	// PublishRetries is the number of extra attempts at storing an elected
	// delta in the DFS.
	PublishRetries int `mapstructure:"publish-retries"`

	// RetryBackoff is the pause between two attempts.
	RetryBackoff time.Duration `mapstructure:"retry-backoff"`

	// Store activates persistant storage of the DFS.
	Store bool `mapstructure:"store"`

	// DatabaseDir is the directory containing database files.
	DatabaseDir string `mapstructure:"db"`

	// MaxCycles is the number of recent cycles whose candidates, votes and
	// winners are remembered.
	MaxCycles int `mapstructure:"max-cycles"`

	// HashChainSize is the number of entries kept in the hash-chain index.
	HashChainSize int `mapstructure:"hash-chain-size"`

	// CacheSize is the max number of confirmed deltas kept in memory.
	CacheSize int `mapstructure:"cache-size"`

	// MempoolSize is the max number of pending transactions.
	MempoolSize int `mapstructure:"mempool-size"`

	// MaxTransactions is the max number of transactions in a delta.
	MaxTransactions int `mapstructure:"max-transactions"`

	// SkipEmpty makes a producer abstain from the Construction phase when it
	// has no transactions.
	SkipEmpty bool `mapstructure:"skip-empty"`

	// Cycle holds the phase timings. They must be identical on every
	// producer.
	Cycle cycle.Config `mapstructure:"cycle"`

	// EpochUnix is the start of cycle 0, in seconds since the Unix epoch.
	EpochUnix int64 `mapstructure:"epoch"`

	// Moniker defines the friendly name of this node
	Moniker string `mapstructure:"moniker"`

	// Proxy is the application proxy that enables Cadence to communicate with
	// the application.
	Proxy proxy.AppProxy

	// Key is the private key of the producer.
	Key *ecdsa.PrivateKey

	logger *logrus.Logger
}

// NewDefaultConfig returns a config object with default values.
func NewDefaultConfig() *Config {
	config := &Config{
		DataDir:         DefaultDataDir(),
		LogLevel:        DefaultLogLevel,
		BindAddr:        DefaultBindAddr,
		ServiceAddr:     DefaultServiceAddr,
		MaxPool:         DefaultMaxPool,
		TCPTimeout:      DefaultTCPTimeout,
		FetchTimeout:    DefaultFetchTimeout,
		PublishTimeout:  DefaultPublishTimeout,
		PublishRetries:  DefaultPublishRetries,
		RetryBackoff:    DefaultRetryBackoff,
		Store:           DefaultStore,
		DatabaseDir:     DefaultDatabaseDir(),
		MaxCycles:       DefaultMaxCycles,
		HashChainSize:   DefaultHashChainSize,
		CacheSize:       DefaultCacheSize,
		MempoolSize:     DefaultMempoolSize,
		MaxTransactions: DefaultMaxTransactions,
		SkipEmpty:       DefaultSkipEmpty,
		Cycle:           *cycle.DefaultConfig(),
		EpochUnix:       DefaultEpoch,
	}

	return config
}

// NewTestConfig returns a config object with default values and a special
// logger for debugging tests.
func NewTestConfig(t testing.TB, level logrus.Level) *Config {
	config := NewDefaultConfig()
	config.logger = common.NewTestLogger(t, level)
	return config
}

// SetDataDir sets the top-level Cadence directory, and updates the database
// directory if it is currently set to the default value. If the database
// directory is not currently the default, it means the user has explicitely set
// it to something else, so avoid changing it again here.
func (c *Config) SetDataDir(dataDir string) {
	c.DataDir = dataDir
	if c.DatabaseDir == DefaultDatabaseDir() {
		c.DatabaseDir = filepath.Join(dataDir, DefaultBadgerFile)
	}
}

// Keyfile returns the full path of the file containing the private key.
func (c *Config) Keyfile() string {
	return filepath.Join(c.DataDir, DefaultKeyfile)
}

// CycleConfig returns the cycle timings with the configured epoch.
func (c *Config) CycleConfig() *cycle.Config {
	conf := c.Cycle
	conf.Epoch = time.Unix(c.EpochUnix, 0).UTC()
	return &conf
}

// Logger returns a formatted logrus Entry, with prefix set to "cadence".
func (c *Config) Logger() *logrus.Entry {
	if c.logger == nil {
		c.logger = logrus.New()
		c.logger.Level = LogLevel(c.LogLevel)
		c.logger.Formatter = new(prefixed.TextFormatter)
		if c.LogFile != "" {
			c.logger.AddHook(lfshook.NewHook(c.LogFile, &logrus.JSONFormatter{}))
		}
	}
	return c.logger.WithField("prefix", "cadence")
}

// DefaultDatabaseDir returns the default path for the badger database files.
func DefaultDatabaseDir() string {
	return filepath.Join(DefaultDataDir(), DefaultBadgerFile)
}

// DefaultDataDir return the default directory name for top-level Cadence
// config based on the underlying OS, attempting to respect conventions.
func DefaultDataDir() string {
	// Try to place the data folder in the user's home dir
	home, err := homedir.Dir()
	if err == nil && home != "" {
		if runtime.GOOS == "darwin" {
			return filepath.Join(home, ".Cadence")
		} else if runtime.GOOS == "windows" {
			return filepath.Join(home, "AppData", "Roaming", "Cadence")
		} else {
			return filepath.Join(home, ".cadence")
		}
	}
	// As we cannot guess a stable location, return empty and handle later
	return ""
}

// LogLevel parses a string into a Logrus log level.
func LogLevel(l string) logrus.Level {
	switch l {
	case "debug":
		return logrus.DebugLevel
	case "info":
		return logrus.InfoLevel
	case "warn":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	case "fatal":
		return logrus.FatalLevel
	case "panic":
		return logrus.PanicLevel
	default:
		return logrus.DebugLevel
	}
}
