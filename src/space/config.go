package space

import (
	"testing"
	"time"

	"github.com/mosaicnetworks/halo/src/common"
	"github.com/mosaicnetworks/halo/src/notarization"
	"github.com/sirupsen/logrus"
)

// Config contains the runtime parameters of a Space.
type Config struct {
	// HeartbeatTimeout is the base period of the gossip timer.
	HeartbeatTimeout time.Duration `mapstructure:"heartbeat"`

	// TCPTimeout is the timeout of RPC connections.
	TCPTimeout time.Duration `mapstructure:"timeout"`

	// SyncLimit is the max number of feed messages in a SyncResponse.
	SyncLimit int `mapstructure:"sync-limit"`

	Notarization *notarization.Config

	Logger *logrus.Logger
}

// NewConfig ...
func NewConfig(heartbeat time.Duration,
	timeout time.Duration,
	syncLimit int,
	notarizationConf *notarization.Config,
	logger *logrus.Logger) *Config {

	return &Config{
		HeartbeatTimeout: heartbeat,
		TCPTimeout:       timeout,
		SyncLimit:        syncLimit,
		Notarization:     notarizationConf,
		Logger:           logger,
	}
}

// DefaultConfig ...
func DefaultConfig() *Config {
	logger := logrus.New()
	logger.Level = logrus.DebugLevel

	return &Config{
		HeartbeatTimeout: 200 * time.Millisecond,
		TCPTimeout:       1000 * time.Millisecond,
		SyncLimit:        1000,
		Notarization:     notarization.DefaultConfig(),
		Logger:           logger,
	}
}

// TestConfig returns a Config with a fast heartbeat and a logger that writes
// through t.
func TestConfig(t testing.TB) *Config {
	config := DefaultConfig()
	config.HeartbeatTimeout = 10 * time.Millisecond
	config.Notarization = notarization.TestConfig()
	config.Logger = common.NewTestLogger(t, common.TestLogLevel)
	return config
}
