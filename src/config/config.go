package config

import (
	"os"
	"os/user"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/mosaicnetworks/halo/src/common"
	"github.com/mosaicnetworks/halo/src/notarization"
	"github.com/mosaicnetworks/halo/src/space"
	"github.com/rifflock/lfshook"
	"github.com/sirupsen/logrus"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"
)

// Default filenames.
const (
	// DefaultKeyfile is the default name of the file containing the device
	// private key
	DefaultKeyfile = "priv_key"

	// DefaultPubKeyfile is the default name of the file containing the device
	// public key
	DefaultPubKeyfile = "key.pub"

	// DefaultIdentityKeyfile is the default name of the file containing the
	// identity private key of a space founder
	DefaultIdentityKeyfile = "identity_key"

	// DefaultFeedKeyfile is the default name of the file containing the
	// private key of the node's control feed
	DefaultFeedKeyfile = "feed_key"

	// DefaultSpaceKeyfile is the default name of the file containing the
	// space private key of a space founder
	DefaultSpaceKeyfile = "space_key"

	// DefaultBadgerFile is the default name of the folder containing the Badger
	// database
	DefaultBadgerFile = "badger_db"

	// DefaultConfigName is the name, without extension, of the optional
	// configuration file in the data directory
	DefaultConfigName = "halo"
)

// Default configuration values.
const (
	DefaultLogLevel         = "debug"
	DefaultBindAddr         = "127.0.0.1:1337"
	DefaultServiceAddr      = "127.0.0.1:8000"
	DefaultNoService        = false
	DefaultHeartbeatTimeout = 200 * time.Millisecond
	DefaultTCPTimeout       = 1000 * time.Millisecond
	DefaultSyncLimit        = 1000
	DefaultMaxPool          = 2
	DefaultStore            = false
	DefaultGenesis          = false
)

// Config contains all the configuration properties of a halo node.
type Config struct {
	// DataDir is the top-level directory containing halo keys, configuration
	// and data
	DataDir string `mapstructure:"datadir"`

	// LogLevel determines the chattiness of the log output.
	LogLevel string `mapstructure:"log"`

	// LogFile, when set, receives a copy of the log output.
	LogFile string `mapstructure:"log-file"`

	// BindAddr is the local address:port where this node listens for sync
	// and notarization requests.
	BindAddr string `mapstructure:"listen"`

	// AdvertiseAddr is used to change the address that we advertise to other
	// nodes.
	AdvertiseAddr string `mapstructure:"advertise"`

	// ServiceAddr is the address:port that serves the HTTP API exposing the
	// space's members, feeds, timeframe and stats.
	ServiceAddr string `mapstructure:"service-listen"`

	// NoService disables the HTTP API service.
	NoService bool `mapstructure:"no-service"`

	// HeartbeatTimeout is the base period between two pulls from a random
	// peer.
	HeartbeatTimeout time.Duration `mapstructure:"heartbeat"`

	// MaxPool controls how many connections are pooled per target.
	MaxPool int `mapstructure:"max-pool"`

	// TCPTimeout is the timeout of RPC connections.
	TCPTimeout time.Duration `mapstructure:"timeout"`

	// SyncLimit defines the max number of feed messages to include in a
	// SyncResponse
	SyncLimit int `mapstructure:"sync-limit"`

	// NotarizeTimeout bounds a whole notarization. Zero disables it.
	NotarizeTimeout time.Duration `mapstructure:"notarize-timeout"`

	// RetryTimeout is the pause before asking peers again once all of them
	// have been tried.
	RetryTimeout time.Duration `mapstructure:"retry-timeout"`

	// SuccessDelay is the pause after a peer accepted a notarization request.
	SuccessDelay time.Duration `mapstructure:"success-delay"`

	// Store activates persistant storage.
	Store bool `mapstructure:"store"`

	// DatabaseDir is the directory containing database files.
	DatabaseDir string `mapstructure:"db"`

	// Moniker defines the friendly name of this node
	Moniker string `mapstructure:"moniker"`

	// SpaceKey is the hex public key of the space to replicate. It is
	// ignored with Genesis, where the space key is read from the data
	// directory.
	SpaceKey string `mapstructure:"space"`

	// GenesisFeed is the hex public key of the feed holding the genesis
	// credentials of the space.
	GenesisFeed string `mapstructure:"genesis-feed"`

	// Genesis makes this node the founder of a new space.
	Genesis bool `mapstructure:"genesis"`

	logger *logrus.Logger
}

// NewDefaultConfig returns a config object with default values.
func NewDefaultConfig() *Config {
	config := &Config{
		DataDir:          DefaultDataDir(),
		LogLevel:         DefaultLogLevel,
		BindAddr:         DefaultBindAddr,
		ServiceAddr:      DefaultServiceAddr,
		NoService:        DefaultNoService,
		HeartbeatTimeout: DefaultHeartbeatTimeout,
		TCPTimeout:       DefaultTCPTimeout,
		SyncLimit:        DefaultSyncLimit,
		MaxPool:          DefaultMaxPool,
		NotarizeTimeout:  notarization.DefaultTimeout,
		RetryTimeout:     notarization.DefaultRetryTimeout,
		SuccessDelay:     notarization.DefaultSuccessDelay,
		Store:            DefaultStore,
		DatabaseDir:      DefaultDatabaseDir(),
		Genesis:          DefaultGenesis,
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

// SetDataDir sets the top-level halo directory, and updates the database
// directory if it is currently set to the default value. If the database
// directory is not currently the default, it means the user has explicitely set
// it to something else, so avoid changing it again here.
func (c *Config) SetDataDir(dataDir string) {
	c.DataDir = dataDir
	if c.DatabaseDir == DefaultDatabaseDir() {
		c.DatabaseDir = filepath.Join(dataDir, DefaultBadgerFile)
	}
}

// Keyfile returns the full path of the file containing the device private
// key.
func (c *Config) Keyfile() string {
	return filepath.Join(c.DataDir, DefaultKeyfile)
}

// PubKeyfile returns the full path of the file containing the device public
// key.
func (c *Config) PubKeyfile() string {
	return filepath.Join(c.DataDir, DefaultPubKeyfile)
}

// IdentityKeyfile ...
func (c *Config) IdentityKeyfile() string {
	return filepath.Join(c.DataDir, DefaultIdentityKeyfile)
}

// FeedKeyfile ...
func (c *Config) FeedKeyfile() string {
	return filepath.Join(c.DataDir, DefaultFeedKeyfile)
}

// SpaceKeyfile ...
func (c *Config) SpaceKeyfile() string {
	return filepath.Join(c.DataDir, DefaultSpaceKeyfile)
}

// NotarizationConfig returns the timings of the notarization plugin.
func (c *Config) NotarizationConfig() *notarization.Config {
	return &notarization.Config{
		Timeout:      c.NotarizeTimeout,
		RetryTimeout: c.RetryTimeout,
		SuccessDelay: c.SuccessDelay,
	}
}

// SpaceConfig returns the configuration of a space node, logging through
// the same logger as c.
func (c *Config) SpaceConfig() *space.Config {
	c.Logger()

	return space.NewConfig(
		c.HeartbeatTimeout,
		c.TCPTimeout,
		c.SyncLimit,
		c.NotarizationConfig(),
		c.logger,
	)
}

// Logger returns a formatted logrus Entry, with prefix set to "halo". When
// LogFile is set, entries of every level are also written to that file.
func (c *Config) Logger() *logrus.Entry {
	if c.logger == nil {
		c.logger = logrus.New()
		c.logger.Level = LogLevel(c.LogLevel)
		c.logger.Formatter = new(prefixed.TextFormatter)

		if c.LogFile != "" {
			pathMap := lfshook.PathMap{}
			for _, level := range logrus.AllLevels {
				pathMap[level] = c.LogFile
			}
			c.logger.Hooks.Add(lfshook.NewHook(
				pathMap,
				&logrus.JSONFormatter{},
			))
		}
	}
	return c.logger.WithField("prefix", "halo")
}

// DefaultDatabaseDir returns the default path for the badger database files.
func DefaultDatabaseDir() string {
	return filepath.Join(DefaultDataDir(), DefaultBadgerFile)
}

// DefaultDataDir return the default directory name for top-level halo config
// based on the underlying OS, attempting to respect conventions.
func DefaultDataDir() string {
	// Try to place the data folder in the user's home dir
	home := HomeDir()
	if home != "" {
		if runtime.GOOS == "darwin" {
			return filepath.Join(home, ".Halo")
		} else if runtime.GOOS == "windows" {
			return filepath.Join(home, "AppData", "Roaming", "Halo")
		} else {
			return filepath.Join(home, ".halo")
		}
	}
	// As we cannot guess a stable location, return empty and handle later
	return ""
}

// HomeDir returns the user's home directory.
func HomeDir() string {
	if home := os.Getenv("HOME"); home != "" {
		return home
	}
	if usr, err := user.Current(); err == nil {
		return usr.HomeDir
	}
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
