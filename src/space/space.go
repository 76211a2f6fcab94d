package space

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mosaicnetworks/halo/src/credentials"
	"github.com/mosaicnetworks/halo/src/crypto/keys"
	"github.com/mosaicnetworks/halo/src/feed"
	"github.com/mosaicnetworks/halo/src/net"
	"github.com/mosaicnetworks/halo/src/notarization"
	"github.com/mosaicnetworks/halo/src/party"
	"github.com/mosaicnetworks/halo/src/peers"
	"github.com/mosaicnetworks/halo/src/pipeline"
	"github.com/mosaicnetworks/halo/src/timeframe"
	"github.com/sirupsen/logrus"
)

// Space is a node replicating the feeds of one space. It drives the space's
// state machine from its control feeds, answers notarization and sync
// requests, and pulls feeds from random peers.
type Space struct {
	state

	conf   *Config
	logger *logrus.Entry

	key            keys.PublicKey
	genesisFeedKey keys.PublicKey
	controlFeedKey keys.PublicKey

	// coreLock serializes access to the state machine, which is not
	// internally locked.
	coreLock     sync.Mutex
	feeds        *feed.FeedStore
	party        *party.PartyStateMachine
	pipeline     *pipeline.Pipeline
	notarization *notarization.Plugin

	trans net.Transport
	netCh <-chan net.RPC

	selectorLock sync.Mutex
	peerSelector PeerSelector
	extensions   map[string]*notarization.Extension

	unsubscribe []func()

	// loops tracks the background loop, which drains the pipeline and must
	// stop before the store is closed.
	loops sync.WaitGroup

	wakeCh     chan struct{}
	shutdownCh chan struct{}

	controlTimer *ControlTimer

	start        time.Time
	syncRequests int
	syncErrors   int
}

// NewSpace returns a Space for spaceKey. genesisFeedKey is the feed holding
// the genesis credentials. controlFeedKey is this node's own control feed,
// writable; it is the zero key for a read-only node.
func NewSpace(conf *Config,
	spaceKey keys.PublicKey,
	genesisFeedKey keys.PublicKey,
	controlFeedKey keys.PublicKey,
	store feed.Store,
	trans net.Transport,
	peerSet *peers.PeerSet,
) *Space {
	logger := conf.Logger.WithFields(logrus.Fields{
		"space": spaceKey.String(),
		"addr":  trans.LocalAddr(),
	})

	feeds := feed.NewFeedStore(store, logger.WithField("component", "feeds"))
	partyState := party.NewPartyStateMachine(spaceKey, nil, logger.WithField("component", "party"))

	if peerSet == nil {
		peerSet = peers.NewPeerSet(nil)
	}

	space := Space{
		conf:           conf,
		logger:         logger,
		key:            spaceKey,
		genesisFeedKey: genesisFeedKey,
		controlFeedKey: controlFeedKey,
		feeds:          feeds,
		party:          partyState,
		pipeline:       pipeline.NewPipeline(feeds, partyState, logger.WithField("component", "pipeline")),
		notarization:   notarization.NewPlugin(conf.Notarization, logger.WithField("component", "notarization")),
		trans:          trans,
		netCh:          trans.Consumer(),
		peerSelector:   NewRandomPeerSelector(peerSet, trans.LocalAddr()),
		extensions:     make(map[string]*notarization.Extension),
		wakeCh:         make(chan struct{}, 1),
		shutdownCh:     make(chan struct{}),
		controlTimer:   NewRandomControlTimer(),
	}

	return &space
}

// Init opens the feeds, replays the store into the state machine, and
// registers the peers of the initial peer set. It must be called before Run.
func (s *Space) Init() error {
	if s.getState() != Initializing {
		return fmt.Errorf("space already initialized")
	}

	s.feeds.OpenFeed(s.genesisFeedKey, s.genesisFeedKey == s.controlFeedKey)
	if !s.controlFeedKey.IsZero() {
		s.feeds.OpenFeed(s.controlFeedKey, true)
	}

	s.pipeline.Track(s.genesisFeedKey)
	s.pipeline.AddProcessor(s.notarization)

	s.unsubscribe = append(s.unsubscribe,
		s.feeds.OnAppend.On(func(*feed.Message) { s.wake() }),
		s.party.FeedStateMachine().OnFeedAdmitted.On(s.onFeedAdmitted),
	)

	n := s.drain()
	s.logger.WithField("messages", n).Debug("Replayed store")

	s.selectorLock.Lock()
	initialPeers := s.peerSelector.Peers().Peers
	s.selectorLock.Unlock()

	for _, p := range initialPeers {
		if p.NetAddr != s.trans.LocalAddr() {
			s.addExtension(p.NetAddr)
		}
	}

	s.setState(Active)

	return nil
}

// onFeedAdmitted installs the notarization writer once this node's own
// control feed is admitted. It runs inside Drain.
func (s *Space) onFeedAdmitted(info *party.FeedInfo) {
	if s.controlFeedKey.IsZero() || info.Key != s.controlFeedKey {
		return
	}
	if info.Assertion.Designation != credentials.DesignationControl || s.notarization.HasWriter() {
		return
	}

	w, err := s.feeds.Writer(s.controlFeedKey)
	if err != nil {
		s.logger.WithError(err).Error("Control feed writer")
		return
	}

	s.notarization.SetWriter(w)
	s.logger.WithField("feed", info.Key.String()).Debug("Control feed admitted, notarization writer set")
}

// CreateGenesis writes the genesis credentials of the space to the genesis
// feed, which must be this node's control feed. keyring must hold the space
// key, identityKey and deviceKey.
func (s *Space) CreateGenesis(ctx context.Context, keyring *keys.Keyring, identityKey, deviceKey keys.PublicKey) ([]*credentials.Credential, error) {
	if s.genesisFeedKey != s.controlFeedKey {
		return nil, fmt.Errorf("genesis feed %s is not the local control feed", s.genesisFeedKey)
	}

	s.coreLock.Lock()
	genesis := s.party.GenesisCredential()
	s.coreLock.Unlock()
	if genesis != nil {
		return nil, party.NewStateErr(party.GenesisExists, genesis.ID, "space already has a genesis")
	}

	creds, err := credentials.CreateGenesisCredentials(keyring, s.key, identityKey, deviceKey, s.genesisFeedKey)
	if err != nil {
		return nil, err
	}

	for _, c := range creds {
		if _, err := s.feeds.Append(ctx, s.genesisFeedKey, c); err != nil {
			return nil, err
		}
	}

	s.drain()

	s.logger.WithField("credentials", len(creds)).Info("Created genesis")

	return creds, nil
}

// RunAsync calls Run in a separate goroutine.
func (s *Space) RunAsync(gossip bool) {
	s.logger.WithField("gossip", gossip).Debug("RunAsync")
	go s.Run(gossip)
}

// Run invokes the main loop of the space. It returns after Shutdown.
func (s *Space) Run(gossip bool) {
	if s.getState() == Initializing {
		if err := s.Init(); err != nil {
			s.logger.WithError(err).Error("Init")
			return
		}
	}

	s.start = time.Now()

	go s.controlTimer.Run(s.conf.HeartbeatTimeout)

	s.loops.Add(1)
	go func() {
		defer s.loops.Done()
		s.doBackgroundWork()
	}()

	for {
		state := s.getState()

		s.logger.WithField("state", state.String()).Debug("Run loop")

		switch state {
		case Active:
			s.active(gossip)
		case Shutdown:
			return
		}
	}
}

func (s *Space) resetTimer() {
	if !s.controlTimer.isSet() {
		select {
		case s.controlTimer.resetCh <- s.conf.HeartbeatTimeout:
		case <-s.shutdownCh:
		}
	}
}

func (s *Space) doBackgroundWork() {
	for {
		select {
		case rpc := <-s.netCh:
			ok := s.goFunc(func() {
				s.processRPC(rpc)
			})
			if !ok {
				rpc.Respond(nil, fmt.Errorf("too many concurrent requests"))
			}
		case <-s.wakeCh:
			s.drain()
		case <-s.shutdownCh:
			return
		}
	}
}

// active periodically pulls feeds from a random peer.
func (s *Space) active(gossip bool) {
	for {
		select {
		case <-s.controlTimer.tickCh:
			if gossip {
				s.selectorLock.Lock()
				peer := s.peerSelector.Next()
				s.selectorLock.Unlock()

				if peer != nil {
					s.goFunc(func() { s.gossip(peer) })
				}
			}
			s.resetTimer()
		case <-s.shutdownCh:
			return
		}
	}
}

// wake requests a pipeline drain from the background loop. It never blocks.
func (s *Space) wake() {
	select {
	case s.wakeCh <- struct{}{}:
	default:
	}
}

func (s *Space) drain() int {
	s.coreLock.Lock()
	defer s.coreLock.Unlock()
	return s.pipeline.Drain()
}

func (s *Space) gossip(peer *peers.Peer) error {
	if _, err := s.pull(peer.NetAddr); err != nil {
		s.logger.WithError(err).WithField("peer", peer.NetAddr).Error("gossip pull")
		return err
	}

	s.selectorLock.Lock()
	s.peerSelector.UpdateLast(peer.NetAddr)
	s.selectorLock.Unlock()

	return nil
}

// pull requests the feed messages peer knows and we do not, and replicates
// those belonging to feeds of the space. It returns the number of messages
// added.
func (s *Space) pull(target string) (int, error) {
	known := s.feeds.Timeframe()

	start := time.Now()
	resp, err := s.requestSync(target, known.ToMap())
	elapsed := time.Since(start)
	s.logger.WithField("duration", elapsed.Nanoseconds()).Debug("requestSync()")

	s.coreLock.Lock()
	s.syncRequests++
	if err != nil {
		s.syncErrors++
	}
	s.coreLock.Unlock()

	if err != nil {
		return 0, err
	}

	s.logger.WithFields(logrus.Fields{
		"from":     resp.FromAddr,
		"messages": len(resp.Messages),
	}).Debug("SyncResponse")

	return s.replicate(resp.Messages)
}

// replicate appends messages of the genesis feed and of admitted feeds.
// Messages of feeds that are not admitted yet are retried after draining
// the pipeline, since their admission may be part of the same batch.
func (s *Space) replicate(msgs []*feed.Message) (int, error) {
	added := 0
	pending := msgs

	for len(pending) > 0 {
		var rest []*feed.Message
		progress := false

		for _, m := range pending {
			if !s.acceptsFeed(m.FeedKey) {
				rest = append(rest, m)
				continue
			}

			ok, err := s.feeds.Replicate(m)
			if err != nil {
				return added, err
			}
			if ok {
				added++
			}
			progress = true
		}

		if !progress {
			s.logger.WithField("messages", len(rest)).Debug("Ignoring messages of unknown feeds")
			break
		}

		s.drain()
		pending = rest
	}

	return added, nil
}

func (s *Space) acceptsFeed(feedKey keys.PublicKey) bool {
	if feedKey == s.genesisFeedKey {
		return true
	}

	s.coreLock.Lock()
	defer s.coreLock.Unlock()

	return s.party.FeedStateMachine().Has(feedKey)
}

// ConnectPeer adds peer to the gossip peers and to the peers asked for
// notarization.
func (s *Space) ConnectPeer(peer *peers.Peer) {
	s.selectorLock.Lock()
	s.peerSelector.SetPeers(s.peerSelector.Peers().WithNewPeer(peer))
	s.selectorLock.Unlock()

	s.addExtension(peer.NetAddr)
}

func (s *Space) addExtension(addr string) {
	s.selectorLock.Lock()
	if _, ok := s.extensions[addr]; ok {
		s.selectorLock.Unlock()
		return
	}
	ext := notarization.NewExtension(addr, s.trans)
	s.extensions[addr] = ext
	s.selectorLock.Unlock()

	s.notarization.AddExtension(ext)
}

// DisconnectPeer removes the peer at addr.
func (s *Space) DisconnectPeer(addr string) {
	s.selectorLock.Lock()
	if p, ok := s.peerSelector.Peers().ByAddr[addr]; ok {
		s.peerSelector.SetPeers(s.peerSelector.Peers().WithRemovedPeer(p))
	}
	ext, ok := s.extensions[addr]
	delete(s.extensions, addr)
	s.selectorLock.Unlock()

	if ok {
		s.notarization.RemoveExtension(ext)
	}
}

// GetPeers returns the peers this node gossips with.
func (s *Space) GetPeers() []*peers.Peer {
	s.selectorLock.Lock()
	defer s.selectorLock.Unlock()

	return s.peerSelector.Peers().Peers
}

// SyncWith pulls from the peer at addr immediately and returns the number of
// messages replicated.
func (s *Space) SyncWith(addr string) (int, error) {
	return s.pull(addr)
}

// Notarize gets creds written to the space by this node or one of its peers
// and waits until they are processed.
func (s *Space) Notarize(ctx context.Context, creds []*credentials.Credential) error {
	return s.notarization.Notarize(ctx, creds)
}

// Write appends c to this node's control feed.
func (s *Space) Write(ctx context.Context, c *credentials.Credential) error {
	if s.controlFeedKey.IsZero() {
		return fmt.Errorf("space has no control feed")
	}
	_, err := s.feeds.Append(ctx, s.controlFeedKey, c)
	return err
}

// Key returns the space key.
func (s *Space) Key() keys.PublicKey {
	return s.key
}

// State ...
func (s *Space) State() State {
	return s.getState()
}

// IsActive reports whether the space has processed a genesis credential.
func (s *Space) IsActive() bool {
	s.coreLock.Lock()
	defer s.coreLock.Unlock()
	return s.party.IsActive()
}

// Members returns the admitted members in admission order.
func (s *Space) Members() []*party.MemberInfo {
	s.coreLock.Lock()
	defer s.coreLock.Unlock()
	return s.party.Members()
}

// Feeds returns the admitted feeds in admission order.
func (s *Space) Feeds() []*party.FeedInfo {
	s.coreLock.Lock()
	defer s.coreLock.Unlock()
	return s.party.Feeds()
}

// Credentials returns the accepted credentials in processing order.
func (s *Space) Credentials() []*credentials.Credential {
	s.coreLock.Lock()
	defer s.coreLock.Unlock()
	return s.party.Credentials()
}

// Timeframe returns the highest sequence number of every stored feed.
func (s *Space) Timeframe() *timeframe.Timeframe {
	return s.feeds.Timeframe()
}

// Processed returns the Timeframe of the messages applied to the state
// machine.
func (s *Space) Processed() *timeframe.Timeframe {
	return s.pipeline.Processed()
}

// HasWriter reports whether this node can write on behalf of peers.
func (s *Space) HasWriter() bool {
	return s.notarization.HasWriter()
}

// GetStats returns counters describing the activity of the space.
func (s *Space) GetStats() map[string]string {
	s.coreLock.Lock()
	defer s.coreLock.Unlock()

	s.selectorLock.Lock()
	numPeers := s.peerSelector.Peers().Len()
	s.selectorLock.Unlock()

	return map[string]string{
		"state":         s.getState().String(),
		"members":       fmt.Sprint(len(s.party.Members())),
		"feeds":         fmt.Sprint(len(s.party.Feeds())),
		"credentials":   fmt.Sprint(len(s.party.Credentials())),
		"messages":      fmt.Sprint(s.feeds.Timeframe().TotalMessages()),
		"num_peers":     fmt.Sprint(numPeers),
		"sync_requests": fmt.Sprint(s.syncRequests),
		"sync_errors":   fmt.Sprint(s.syncErrors),
		"uptime":        time.Since(s.start).String(),
	}
}

// Shutdown stops the space: pending notarizations are rejected, background
// routines are stopped, and the transport and store are closed.
func (s *Space) Shutdown() {
	if s.getState() == Shutdown {
		return
	}

	s.logger.Debug("Shutdown")

	s.setState(Shutdown)

	close(s.shutdownCh)

	s.controlTimer.Shutdown()

	s.notarization.Close()

	s.waitRoutines()
	s.loops.Wait()

	for _, unsubscribe := range s.unsubscribe {
		unsubscribe()
	}
	s.pipeline.Close()

	if err := s.trans.Close(); err != nil {
		s.logger.WithError(err).Error("Closing transport")
	}

	if err := s.feeds.Close(); err != nil {
		s.logger.WithError(err).Error("Closing store")
	}
}
