package cadence

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mosaicnetworks/cadence/src/config"
	"github.com/mosaicnetworks/cadence/src/consensus"
	"github.com/mosaicnetworks/cadence/src/crypto/keys"
	"github.com/mosaicnetworks/cadence/src/cycle"
	"github.com/mosaicnetworks/cadence/src/dfs"
	"github.com/mosaicnetworks/cadence/src/hub"
	"github.com/mosaicnetworks/cadence/src/net"
	"github.com/mosaicnetworks/cadence/src/node"
	"github.com/mosaicnetworks/cadence/src/peers"
	"github.com/mosaicnetworks/cadence/src/service"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

// Cadence is a struct containing the key parts of a Cadence node
type Cadence struct {
	Config    *config.Config
	Node      *node.Node
	Transport net.Transport
	Store     dfs.Store
	Peers     *peers.PeerSet
	Service   *service.Service
	logger    *logrus.Entry
}

// NewCadence is a factory method to produce a Cadence instance.
func NewCadence(c *config.Config) *Cadence {
	engine := &Cadence{
		Config: c,
		logger: c.Logger(),
	}

	return engine
}

// Init initialises the Cadence object. It reads the key and the producer set
// from the data directory, opens the DFS store and the transport, and builds
// the node.
func (c *Cadence) Init() error {
	c.logger.Debug("validateConfig")
	if err := c.validateConfig(); err != nil {
		c.logger.WithError(err).Error("cadence.go:Init() validateConfig")
		return err
	}

	c.logger.Debug("initKey")
	if err := c.initKey(); err != nil {
		c.logger.WithError(err).Error("cadence.go:Init() initKey")
		return err
	}

	c.logger.Debug("initPeers")
	if err := c.initPeers(); err != nil {
		c.logger.WithError(err).Error("cadence.go:Init() initPeers")
		return err
	}

	c.logger.Debug("initStore")
	if err := c.initStore(); err != nil {
		c.logger.WithError(err).Error("cadence.go:Init() initStore")
		return err
	}

	c.logger.Debug("initTransport")
	if err := c.initTransport(); err != nil {
		c.logger.WithError(err).Error("cadence.go:Init() initTransport")
		return err
	}

	c.logger.Debug("initNode")
	if err := c.initNode(); err != nil {
		c.logger.WithError(err).Error("cadence.go:Init() initNode")
		return err
	}

	c.logger.Debug("initService")
	if err := c.initService(); err != nil {
		c.logger.WithError(err).Error("cadence.go:Init() initService")
		return err
	}

	return nil
}

// Run starts the Cadence Node running. It blocks until the node is shut down.
func (c *Cadence) Run() {
	if c.Service != nil {
		go c.Service.Serve()
	}

	c.Node.Run()
}

// Shutdown stops the HTTP service and the node.
func (c *Cadence) Shutdown() {
	if c.Service != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := c.Service.Shutdown(ctx); err != nil {
			c.logger.WithError(err).Error("Shutting down service")
		}
	}

	if c.Node != nil {
		c.Node.Shutdown()
	}
}

func (c *Cadence) validateConfig() error {
	if c.Config.Proxy == nil {
		return fmt.Errorf("no AppProxy configured")
	}

	if c.Config.MaxCycles < 1 {
		return fmt.Errorf("max-cycles must be at least 1, not %d", c.Config.MaxCycles)
	}

	if c.Config.HashChainSize < 1 {
		return fmt.Errorf("hash-chain-size must be at least 1, not %d", c.Config.HashChainSize)
	}

	return c.Config.CycleConfig().Validate()
}

func (c *Cadence) initKey() error {
	if c.Config.Key != nil {
		return nil
	}

	simpleKeyfile := keys.NewSimpleKeyfile(c.Config.Keyfile())

	privKey, err := simpleKeyfile.ReadKey()
	if err != nil {
		c.logger.WithError(err).Warn("Cannot read private key from file")

		privKey, err = Keygen(c.Config.DataDir)
		if err != nil {
			return err
		}

		c.logger.WithField("public_key", keys.PublicKeyHex(&privKey.PublicKey)).Info("Created a new key")
	}

	c.Config.Key = privKey

	return nil
}

func (c *Cadence) initPeers() error {
	if c.Peers != nil {
		return nil
	}

	peerSet, err := peers.NewJSONPeerSet(c.Config.DataDir).PeerSet()
	if err != nil {
		return err
	}

	if peerSet.Len() == 0 {
		return fmt.Errorf("peers.json should define at least one producer")
	}

	c.Peers = peerSet

	return nil
}

func (c *Cadence) initStore() error {
	if !c.Config.Store {
		c.logger.Debug("Creating InmemStore")
		c.Store = dfs.NewInmemStore()
		return nil
	}

	dbPath := c.Config.DatabaseDir

	c.logger.WithField("path", dbPath).Debug("Opening BadgerStore")

	if err := os.MkdirAll(dbPath, 0700); err != nil {
		return err
	}

	store, err := dfs.NewBadgerStore(dbPath, c.logger)
	if err != nil {
		return err
	}

	c.Store = store

	return nil
}

func (c *Cadence) initTransport() error {
	if c.Transport != nil {
		return nil
	}

	transport, err := net.NewTCPTransport(
		c.Config.BindAddr,
		c.Config.AdvertiseAddr,
		c.Config.MaxPool,
		c.Config.TCPTimeout,
		c.logger,
	)
	if err != nil {
		return err
	}

	c.Transport = transport

	return nil
}

// NodeConfig converts the flat configuration into the configuration of the
// node and its components.
func (c *Cadence) NodeConfig() *node.Config {
	return &node.Config{
		Cycle: c.Config.CycleConfig(),
		Consensus: consensus.Config{
			PublishTimeout: c.Config.PublishTimeout,
			MaxCycles:      c.Config.MaxCycles,
		},
		Hub: hub.Config{
			PublishRetries: c.Config.PublishRetries,
			RetryBackoff:   c.Config.RetryBackoff,
		},
		HashChainSize:      c.Config.HashChainSize,
		ConfirmedCacheSize: c.Config.CacheSize,
		MempoolSize:        c.Config.MempoolSize,
		MaxTransactions:    c.Config.MaxTransactions,
		SkipEmpty:          c.Config.SkipEmpty,
		FetchTimeout:       c.Config.FetchTimeout,
		Clock:              cycle.NewSystemClock(),
		Registry:           prometheus.NewRegistry(),
		Logger:             c.logger.Logger,
	}
}

func (c *Cadence) initNode() error {
	validator := node.NewValidator(c.Config.Key, c.Config.Moniker)

	c.logger.WithFields(logrus.Fields{
		"producers":   c.Peers.Len(),
		"id":          validator.ID(),
		"is_producer": c.Peers.IsProducer(validator.PublicKeyHex()),
	}).Debug("PARTICIPANTS")

	n, err := node.NewNode(
		c.NodeConfig(),
		validator,
		c.Peers,
		c.Store,
		c.Transport,
		c.Config.Proxy,
	)
	if err != nil {
		return err
	}

	if err := n.Init(); err != nil {
		return fmt.Errorf("failed to initialize node: %s", err)
	}

	c.Node = n

	return nil
}

func (c *Cadence) initService() error {
	if !c.Config.NoService {
		c.Service = service.NewService(c.Config.ServiceAddr, c.Node, c.logger)
	}
	return nil
}

// Keygen generates a new key pair and writes the private key in the data
// directory. It fails if a key already lives there.
func Keygen(datadir string) (*ecdsa.PrivateKey, error) {
	simpleKeyfile := keys.NewSimpleKeyfile(filepath.Join(datadir, config.DefaultKeyfile))

	if _, err := simpleKeyfile.ReadKey(); err == nil {
		return nil, fmt.Errorf("another key already lives under %s", datadir)
	}

	privKey, err := keys.GenerateECDSAKey()
	if err != nil {
		return nil, err
	}

	if err := simpleKeyfile.WriteKey(privKey); err != nil {
		return nil, err
	}

	return privKey, nil
}
