package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mosaicnetworks/halo/src/crypto/keys"
	"github.com/mosaicnetworks/halo/src/feed"
	"github.com/mosaicnetworks/halo/src/net"
	"github.com/mosaicnetworks/halo/src/peers"
	"github.com/mosaicnetworks/halo/src/service"
	"github.com/mosaicnetworks/halo/src/space"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// NewRunCmd returns the command that starts a halo node
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "run",
		Short:   "Run node",
		PreRunE: loadConfig,
		RunE:    runHalo,
	}
	AddRunFlags(cmd)
	return cmd
}

/*******************************************************************************
* RUN
*******************************************************************************/

// spaceKeys are the keys a node needs to join or found a space.
type spaceKeys struct {
	keyring     *keys.Keyring
	device      keys.PublicKey
	identity    keys.PublicKey
	space       keys.PublicKey
	genesisFeed keys.PublicKey
	controlFeed keys.PublicKey
}

func loadKeys() (*spaceKeys, error) {
	conf := &_config.Halo

	sk := &spaceKeys{keyring: keys.NewKeyring()}

	device, err := keys.NewSimpleKeyfile(conf.Keyfile()).LoadInto(sk.keyring, false)
	if err != nil {
		return nil, fmt.Errorf("Reading device key (try halo keygen): %s", err)
	}
	sk.device = device

	if conf.Genesis {
		if sk.space, err = keys.NewSimpleKeyfile(conf.SpaceKeyfile()).LoadInto(sk.keyring, true); err != nil {
			return nil, err
		}
		if sk.identity, err = keys.NewSimpleKeyfile(conf.IdentityKeyfile()).LoadInto(sk.keyring, true); err != nil {
			return nil, err
		}
		if sk.controlFeed, err = keys.NewSimpleKeyfile(conf.FeedKeyfile()).LoadInto(sk.keyring, true); err != nil {
			return nil, err
		}
		sk.genesisFeed = sk.controlFeed
		return sk, nil
	}

	if sk.space, err = keys.ParsePublicKey(conf.SpaceKey); err != nil {
		return nil, fmt.Errorf("Parsing space key: %s", err)
	}
	if sk.genesisFeed, err = keys.ParsePublicKey(conf.GenesisFeed); err != nil {
		return nil, fmt.Errorf("Parsing genesis feed: %s", err)
	}

	feedKeyfile := keys.NewSimpleKeyfile(conf.FeedKeyfile())
	if feedKeyfile.Exists() {
		if sk.controlFeed, err = feedKeyfile.LoadInto(sk.keyring, false); err != nil {
			return nil, err
		}
	}

	return sk, nil
}

func newStore() (feed.Store, error) {
	if !_config.Halo.Store {
		return feed.NewInmemStore(), nil
	}
	return feed.LoadOrCreateBadgerStore(_config.Halo.DatabaseDir)
}

func loadPeers() (*peers.PeerSet, error) {
	jsonPeers := peers.NewJSONPeerSet(_config.Halo.DataDir)

	peerSet, err := jsonPeers.PeerSet()
	if os.IsNotExist(err) {
		_config.Halo.Logger().WithField("path", jsonPeers.Path()).Debug("No peers file")
		return peers.NewPeerSet(nil), nil
	}
	return peerSet, err
}

func runHalo(cmd *cobra.Command, args []string) error {
	conf := &_config.Halo
	logger := conf.Logger()

	sk, err := loadKeys()
	if err != nil {
		logger.Error("Cannot load keys: ", err)
		return err
	}

	peerSet, err := loadPeers()
	if err != nil {
		logger.Error("Cannot load peers: ", err)
		return err
	}

	store, err := newStore()
	if err != nil {
		logger.Error("Cannot open store: ", err)
		return err
	}

	trans, err := net.NewTCPTransport(
		conf.BindAddr,
		conf.AdvertiseAddr,
		conf.MaxPool,
		conf.TCPTimeout,
		conf.NotarizeTimeout,
		logger.WithField("component", "transport"),
	)
	if err != nil {
		store.Close()
		logger.Error("Cannot create transport: ", err)
		return err
	}

	go trans.Listen()

	s := space.NewSpace(conf.SpaceConfig(),
		sk.space,
		sk.genesisFeed,
		sk.controlFeed,
		store,
		trans,
		peerSet,
	)

	if err := s.Init(); err != nil {
		s.Shutdown()
		logger.Error("Cannot initialize space: ", err)
		return err
	}

	if conf.Genesis && !s.IsActive() {
		if _, err := s.CreateGenesis(context.Background(), sk.keyring, sk.identity, sk.device); err != nil {
			s.Shutdown()
			logger.Error("Cannot create genesis: ", err)
			return err
		}
	}

	logger.WithFields(logrus.Fields{
		"space":        sk.space.Hex(),
		"genesis_feed": sk.genesisFeed.Hex(),
		"control_feed": sk.controlFeed.Hex(),
		"device":       sk.device.Hex(),
	}).Info("Space ready")

	if !conf.NoService {
		go service.NewService(conf.ServiceAddr, s, logger.WithField("component", "service")).Serve()
	}

	s.RunAsync(true)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	logger.Debug("Received signal")
	s.Shutdown()

	return nil
}

/*******************************************************************************
* CONFIG
*******************************************************************************/

// AddRunFlags adds flags to the Run command
func AddRunFlags(cmd *cobra.Command) {

	cmd.Flags().String("datadir", _config.Halo.DataDir, "Top-level directory for configuration and data")
	cmd.Flags().String("log", _config.Halo.LogLevel, "debug, info, warn, error, fatal, panic")
	cmd.Flags().String("log-file", _config.Halo.LogFile, "Also write logs to this file")
	cmd.Flags().String("moniker", _config.Halo.Moniker, "Optional name")

	// Network
	cmd.Flags().StringP("listen", "l", _config.Halo.BindAddr, "Listen IP:Port for halo node")
	cmd.Flags().StringP("advertise", "a", _config.Halo.AdvertiseAddr, "Advertise IP:Port for halo node")
	cmd.Flags().DurationP("timeout", "t", _config.Halo.TCPTimeout, "TCP Timeout")
	cmd.Flags().Int("max-pool", _config.Halo.MaxPool, "Connection pool size max")

	// Service
	cmd.Flags().StringP("service-listen", "s", _config.Halo.ServiceAddr, "Listen IP:Port for HTTP service")
	cmd.Flags().Bool("no-service", _config.Halo.NoService, "Disable HTTP service")

	// Store
	cmd.Flags().Bool("store", _config.Halo.Store, "Use badgerDB instead of in-mem DB")
	cmd.Flags().String("db", _config.Halo.DatabaseDir, "Dabatabase directory")

	// Space
	cmd.Flags().Bool("genesis", _config.Halo.Genesis, "Create a new space, with keys from the data directory")
	cmd.Flags().String("space", _config.Halo.SpaceKey, "Public key of the space to join")
	cmd.Flags().String("genesis-feed", _config.Halo.GenesisFeed, "Public key of the feed holding the space genesis")

	// Node configuration
	cmd.Flags().Duration("heartbeat", _config.Halo.HeartbeatTimeout, "Time between gossips")
	cmd.Flags().Int("sync-limit", _config.Halo.SyncLimit, "Max number of messages for sync")

	// Notarization
	cmd.Flags().Duration("notarize-timeout", _config.Halo.NotarizeTimeout, "Max time to wait for a notarization, 0 to wait forever")
	cmd.Flags().Duration("retry-timeout", _config.Halo.RetryTimeout, "Pause before retrying peers once all were tried")
	cmd.Flags().Duration("success-delay", _config.Halo.SuccessDelay, "Pause after a peer accepted a notarization")
}
