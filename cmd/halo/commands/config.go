package commands

import (
	"github.com/mosaicnetworks/halo/src/config"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// CLIConfig contains configuration for the halo commands
type CLIConfig struct {
	Halo config.Config `mapstructure:",squash"`
}

// NewDefaultCLIConfig creates a CLIConfig with default values
func NewDefaultCLIConfig() *CLIConfig {
	return &CLIConfig{
		Halo: *config.NewDefaultConfig(),
	}
}

func loadConfig(cmd *cobra.Command, args []string) error {
	err := bindFlagsLoadViper(cmd)
	if err != nil {
		return err
	}

	// If --datadir was explicitely set, but not --db, this will update the
	// default database dir to be inside the new datadir
	_config.Halo.SetDataDir(_config.Halo.DataDir)

	logFields := logrus.Fields{
		"halo.DataDir":          _config.Halo.DataDir,
		"halo.BindAddr":         _config.Halo.BindAddr,
		"halo.AdvertiseAddr":    _config.Halo.AdvertiseAddr,
		"halo.ServiceAddr":      _config.Halo.ServiceAddr,
		"halo.NoService":        _config.Halo.NoService,
		"halo.MaxPool":          _config.Halo.MaxPool,
		"halo.Store":            _config.Halo.Store,
		"halo.LogLevel":         _config.Halo.LogLevel,
		"halo.LogFile":          _config.Halo.LogFile,
		"halo.Moniker":          _config.Halo.Moniker,
		"halo.HeartbeatTimeout": _config.Halo.HeartbeatTimeout,
		"halo.TCPTimeout":       _config.Halo.TCPTimeout,
		"halo.SyncLimit":        _config.Halo.SyncLimit,
		"halo.NotarizeTimeout":  _config.Halo.NotarizeTimeout,
		"halo.RetryTimeout":     _config.Halo.RetryTimeout,
		"halo.SuccessDelay":     _config.Halo.SuccessDelay,
		"halo.Genesis":          _config.Halo.Genesis,
	}

	if _config.Halo.Store {
		logFields["halo.DatabaseDir"] = _config.Halo.DatabaseDir
	}

	if !_config.Halo.Genesis {
		logFields["halo.SpaceKey"] = _config.Halo.SpaceKey
		logFields["halo.GenesisFeed"] = _config.Halo.GenesisFeed
	}

	_config.Halo.Logger().WithFields(logFields).Debug("RUN")

	return nil
}

// Bind all flags and read the config into viper
func bindFlagsLoadViper(cmd *cobra.Command) error {
	// Register flags with viper. Include flags from this command and all other
	// persistent flags from the parent
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// first unmarshal to read from CLI flags
	if err := viper.Unmarshal(_config); err != nil {
		return err
	}

	// look for config file in [datadir]/halo.toml (.json, .yaml also work)
	viper.SetConfigName(config.DefaultConfigName) // name of config file (without extension)
	viper.AddConfigPath(_config.Halo.DataDir)     // search root directory

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		_config.Halo.Logger().Debugf("Using config file: %s", viper.ConfigFileUsed())
	} else if _, ok := err.(viper.ConfigFileNotFoundError); ok {
		_config.Halo.Logger().Debugf("No config file found in: %s", _config.Halo.DataDir)
	} else {
		return err
	}

	// second unmarshal to read from config file
	return viper.Unmarshal(_config)
}
