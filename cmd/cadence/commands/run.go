package commands

import (
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/mosaicnetworks/cadence/src/cadence"
	"github.com/mosaicnetworks/cadence/src/dummy"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

//NewRunCmd returns the command that starts a Cadence node
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "run",
		Short:   "Run node",
		PreRunE: loadConfig,
		RunE:    runCadence,
	}
	AddRunFlags(cmd)
	return cmd
}

/*******************************************************************************
* RUN
*******************************************************************************/

func runCadence(cmd *cobra.Command, args []string) error {
	// The command line node commits deltas to the dummy application, which
	// logs every transaction.
	p := dummy.NewInmemDummyClient(_config.Cadence.Logger())

	_config.Cadence.Proxy = p

	engine := cadence.NewCadence(&_config.Cadence)

	if err := engine.Init(); err != nil {
		_config.Cadence.Logger().Error("Cannot initialize engine:", err)
		return err
	}

	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-signalCh
		_config.Cadence.Logger().Info("Shutting down")
		engine.Shutdown()
	}()

	engine.Run()

	return nil
}

/*******************************************************************************
* CONFIG
*******************************************************************************/

//AddRunFlags adds flags to the Run command
func AddRunFlags(cmd *cobra.Command) {

	cmd.Flags().String("datadir", _config.Cadence.DataDir, "Top-level directory for configuration and data")
	cmd.Flags().String("log", _config.Cadence.LogLevel, "debug, info, warn, error, fatal, panic")
	cmd.Flags().String("log-file", _config.Cadence.LogFile, "Optional file receiving the log output in JSON")
	cmd.Flags().String("moniker", _config.Cadence.Moniker, "Optional name")

	// Network
	cmd.Flags().StringP("listen", "l", _config.Cadence.BindAddr, "Listen IP:Port for cadence node")
	cmd.Flags().StringP("advertise", "a", _config.Cadence.AdvertiseAddr, "Advertise IP:Port for cadence node")
	cmd.Flags().DurationP("timeout", "t", _config.Cadence.TCPTimeout, "TCP Timeout")
	cmd.Flags().Int("max-pool", _config.Cadence.MaxPool, "Connection pool size max")

	// Service
	cmd.Flags().Bool("no-service", _config.Cadence.NoService, "Disable HTTP service")
	cmd.Flags().StringP("service-listen", "s", _config.Cadence.ServiceAddr, "Listen IP:Port for HTTP service")

	// Store
	cmd.Flags().Bool("store", _config.Cadence.Store, "Use badgerDB instead of in-mem DFS")
	cmd.Flags().String("db", _config.Cadence.DatabaseDir, "Dabatabase directory")
	cmd.Flags().Int("cache-size", _config.Cadence.CacheSize, "Number of confirmed deltas kept in memory")

	// Cycle
	cmd.Flags().Int64("epoch", _config.Cadence.EpochUnix, "Start of cycle 0, in seconds since the Unix epoch")
	cmd.Flags().Duration("cycle.duration", _config.Cadence.Cycle.CycleDuration, "Duration of a cycle")

	// Consensus
	cmd.Flags().Int("max-cycles", _config.Cadence.MaxCycles, "Number of recent cycles remembered by the voter and the elector")
	cmd.Flags().Int("hash-chain-size", _config.Cadence.HashChainSize, "Number of entries kept in the hash-chain index")
	cmd.Flags().Int("mempool-size", _config.Cadence.MempoolSize, "Max number of pending transactions")
	cmd.Flags().Int("max-transactions", _config.Cadence.MaxTransactions, "Max number of transactions in a delta")
	cmd.Flags().Bool("skip-empty", _config.Cadence.SkipEmpty, "Do not build candidates without transactions")
	cmd.Flags().Duration("fetch-timeout", _config.Cadence.FetchTimeout, "Timeout for retrieving an announced delta")
	cmd.Flags().Duration("publish-timeout", _config.Cadence.PublishTimeout, "Timeout for publishing an elected delta")
	cmd.Flags().Int("publish-retries", _config.Cadence.PublishRetries, "Extra attempts at storing an elected delta")
	cmd.Flags().Duration("retry-backoff", _config.Cadence.RetryBackoff, "Pause between two publication attempts")
}

func loadConfig(cmd *cobra.Command, args []string) error {

	err := bindFlagsLoadViper(cmd)
	if err != nil {
		return err
	}

	// If --datadir was explicitely set, but not --db, this will update the
	// default database dir to be inside the new datadir
	_config.Cadence.SetDataDir(_config.Cadence.DataDir)

	logFields := logrus.Fields{
		"cadence.DataDir":         _config.Cadence.DataDir,
		"cadence.BindAddr":        _config.Cadence.BindAddr,
		"cadence.AdvertiseAddr":   _config.Cadence.AdvertiseAddr,
		"cadence.ServiceAddr":     _config.Cadence.ServiceAddr,
		"cadence.NoService":       _config.Cadence.NoService,
		"cadence.MaxPool":         _config.Cadence.MaxPool,
		"cadence.Store":           _config.Cadence.Store,
		"cadence.LogLevel":        _config.Cadence.LogLevel,
		"cadence.Moniker":         _config.Cadence.Moniker,
		"cadence.TCPTimeout":      _config.Cadence.TCPTimeout,
		"cadence.CacheSize":       _config.Cadence.CacheSize,
		"cadence.Epoch":           _config.Cadence.EpochUnix,
		"cadence.CycleDuration":   _config.Cadence.Cycle.CycleDuration,
		"cadence.MaxCycles":       _config.Cadence.MaxCycles,
		"cadence.MaxTransactions": _config.Cadence.MaxTransactions,
		"cadence.SkipEmpty":       _config.Cadence.SkipEmpty,
	}

	if _config.Cadence.Store {
		logFields["cadence.DatabaseDir"] = _config.Cadence.DatabaseDir
	}

	_config.Cadence.Logger().WithFields(logFields).Debug("RUN")

	return nil
}

// Bind all flags and read the config into viper
func bindFlagsLoadViper(cmd *cobra.Command) error {
	// Register flags with viper. Include flags from this command and all other
	// persistent flags from the parent
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// CADENCE_MAX_POOL overrides max-pool, CADENCE_CYCLE_DURATION overrides
	// cycle.duration
	viper.SetEnvPrefix("cadence")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()

	// first unmarshal to read from CLI flags
	if err := viper.Unmarshal(_config); err != nil {
		return err
	}

	// look for config file in [datadir]/cadence.toml (.json, .yaml also work)
	viper.SetConfigName("cadence")               // name of config file (without extension)
	viper.AddConfigPath(_config.Cadence.DataDir) // search root directory

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		_config.Cadence.Logger().Debugf("Using config file: %s", viper.ConfigFileUsed())
	} else if _, ok := err.(viper.ConfigFileNotFoundError); ok {
		_config.Cadence.Logger().Debugf("No config file found in: %s", _config.Cadence.DataDir)
	} else {
		return err
	}

	// second unmarshal to read from config file
	return viper.Unmarshal(_config)
}
