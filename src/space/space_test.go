package space

import (
	"context"
	"testing"
	"time"

	"github.com/mosaicnetworks/halo/src/credentials"
	"github.com/mosaicnetworks/halo/src/crypto/keys"
	"github.com/mosaicnetworks/halo/src/feed"
	"github.com/mosaicnetworks/halo/src/net"
	"github.com/mosaicnetworks/halo/src/notarization"
	"github.com/mosaicnetworks/halo/src/party"
	"github.com/mosaicnetworks/halo/src/peers"
)

type testNetwork struct {
	keyring  *keys.Keyring
	spaceKey keys.PublicKey
	founder  *credentials.TestAgent
}

func newTestNetwork(t *testing.T) *testNetwork {
	keyring := keys.NewKeyring()
	spaceKey, err := keyring.CreateKey()
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	return &testNetwork{
		keyring:  keyring,
		spaceKey: spaceKey,
		founder:  credentials.NewTestAgent(t, keyring),
	}
}

// newSpace returns an initialized Space over an in-memory transport and
// store. A zero controlFeedKey makes a read-only node.
func (tn *testNetwork) newSpace(t *testing.T, conf *Config, controlFeedKey keys.PublicKey) (*Space, *net.InmemTransport) {
	_, trans := net.NewInmemTransport("")

	s := NewSpace(conf,
		tn.spaceKey,
		tn.founder.ControlFeedKey,
		controlFeedKey,
		feed.NewInmemStore(),
		trans,
		nil,
	)

	if err := s.Init(); err != nil {
		t.Fatalf("err: %v", err)
	}

	return s, trans
}

func (tn *testNetwork) newFounderSpace(t *testing.T, conf *Config) (*Space, *net.InmemTransport) {
	s, trans := tn.newSpace(t, conf, tn.founder.ControlFeedKey)

	creds, err := s.CreateGenesis(context.Background(), tn.keyring, tn.founder.IdentityKey, tn.founder.DeviceKey)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	tn.founder.DeviceCredential = creds[2]

	return s, trans
}

func connect(a *Space, at *net.InmemTransport, b *Space, bt *net.InmemTransport) {
	at.Connect(bt.LocalAddr(), bt)
	bt.Connect(at.LocalAddr(), at)
	a.ConnectPeer(peers.NewPeerFromKey(keys.RandomPublicKey(), bt.LocalAddr(), "b"))
	b.ConnectPeer(peers.NewPeerFromKey(keys.RandomPublicKey(), at.LocalAddr(), "a"))
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool, what string) {
	deadline := time.Now().Add(timeout)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timeout waiting for %s", what)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestCreateGenesis(t *testing.T) {
	tn := newTestNetwork(t)
	s, _ := tn.newFounderSpace(t, TestConfig(t))
	defer s.Shutdown()

	if s.State() != Active {
		t.Fatalf("space should be Active, not %v", s.State())
	}
	if !s.IsActive() {
		t.Fatalf("space should have a genesis")
	}
	if n := len(s.Members()); n != 1 {
		t.Fatalf("space should have 1 member, not %d", n)
	}
	if n := len(s.Feeds()); n != 1 {
		t.Fatalf("space should have 1 feed, not %d", n)
	}
	if n := len(s.Credentials()); n != 4 {
		t.Fatalf("space should have 4 credentials, not %d", n)
	}
	if !s.HasWriter() {
		t.Fatalf("admitted control feed should provide a notarization writer")
	}

	_, err := s.CreateGenesis(context.Background(), tn.keyring, tn.founder.IdentityKey, tn.founder.DeviceKey)
	if !party.IsStateErr(err, party.GenesisExists) {
		t.Fatalf("second genesis should fail with GenesisExists, got %v", err)
	}
}

func TestInitTwice(t *testing.T) {
	tn := newTestNetwork(t)
	s, _ := tn.newSpace(t, TestConfig(t), keys.ZeroKey)
	defer s.Shutdown()

	if err := s.Init(); err == nil {
		t.Fatalf("second Init should fail")
	}
}

func TestReadOnlySpaceHasNoWriter(t *testing.T) {
	tn := newTestNetwork(t)
	s, _ := tn.newSpace(t, TestConfig(t), keys.ZeroKey)
	defer s.Shutdown()

	if s.HasWriter() {
		t.Fatalf("read-only space should not have a writer")
	}

	if _, err := s.CreateGenesis(context.Background(), tn.keyring, tn.founder.IdentityKey, tn.founder.DeviceKey); err == nil {
		t.Fatalf("read-only space should not create a genesis")
	}
}

func TestSyncWith(t *testing.T) {
	tn := newTestNetwork(t)

	a, at := tn.newFounderSpace(t, TestConfig(t))
	defer a.Shutdown()
	b, bt := tn.newSpace(t, TestConfig(t), keys.ZeroKey)
	defer b.Shutdown()

	connect(a, at, b, bt)

	// a only answers RPCs from its background loop
	a.RunAsync(false)

	n, err := b.SyncWith(at.LocalAddr())
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if n != 4 {
		t.Fatalf("b should have replicated 4 messages, not %d", n)
	}

	if !b.Timeframe().Equals(a.Timeframe()) {
		t.Fatalf("b timeframe should be %v, not %v", a.Timeframe(), b.Timeframe())
	}
	if !b.Processed().Equals(a.Processed()) {
		t.Fatalf("b processed timeframe should be %v, not %v", a.Processed(), b.Processed())
	}
	if n := len(b.Members()); n != 1 {
		t.Fatalf("b should have 1 member, not %d", n)
	}

	// nothing new
	n, err = b.SyncWith(at.LocalAddr())
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if n != 0 {
		t.Fatalf("second sync should replicate nothing, not %d", n)
	}
}

func TestGossipOverTCP(t *testing.T) {
	tn := newTestNetwork(t)

	newTCPSpace := func(controlFeedKey keys.PublicKey, peerSet *peers.PeerSet) (*Space, *net.NetworkTransport) {
		conf := TestConfig(t)
		trans, err := net.NewTCPTransport("127.0.0.1:0", "", 2, time.Second, time.Second, conf.Logger.WithField("component", "transport"))
		if err != nil {
			t.Fatalf("err: %v", err)
		}
		go trans.Listen()

		s := NewSpace(conf, tn.spaceKey, tn.founder.ControlFeedKey, controlFeedKey, feed.NewInmemStore(), trans, peerSet)
		if err := s.Init(); err != nil {
			t.Fatalf("err: %v", err)
		}
		return s, trans
	}

	a, at := newTCPSpace(tn.founder.ControlFeedKey, nil)
	defer a.Shutdown()
	if _, err := a.CreateGenesis(context.Background(), tn.keyring, tn.founder.IdentityKey, tn.founder.DeviceKey); err != nil {
		t.Fatalf("err: %v", err)
	}
	a.RunAsync(false)

	peerSet := peers.NewPeerSet([]*peers.Peer{
		peers.NewPeerFromKey(keys.RandomPublicKey(), at.LocalAddr(), "a"),
	})
	b, _ := newTCPSpace(keys.ZeroKey, peerSet)
	defer b.Shutdown()
	b.RunAsync(true)

	waitFor(t, 5*time.Second, func() bool {
		return b.Timeframe().Equals(a.Timeframe()) && len(b.Credentials()) == 4
	}, "b to replicate the genesis over TCP")
}

func TestSyncLimit(t *testing.T) {
	tn := newTestNetwork(t)

	a, at := tn.newFounderSpace(t, TestConfig(t))
	defer a.Shutdown()

	bconf := TestConfig(t)
	bconf.SyncLimit = 3
	b, bt := tn.newSpace(t, bconf, keys.ZeroKey)
	defer b.Shutdown()

	connect(a, at, b, bt)
	a.RunAsync(false)

	n, err := b.SyncWith(at.LocalAddr())
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if n != 3 {
		t.Fatalf("first sync should be limited to 3 messages, not %d", n)
	}

	n, err = b.SyncWith(at.LocalAddr())
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if n != 1 {
		t.Fatalf("second sync should replicate the last message, not %d", n)
	}

	if n := len(b.Feeds()); n != 1 {
		t.Fatalf("b should have 1 feed, not %d", n)
	}
}

func TestSyncIgnoresUnadmittedFeeds(t *testing.T) {
	tn := newTestNetwork(t)

	a, at := tn.newFounderSpace(t, TestConfig(t))
	defer a.Shutdown()
	b, bt := tn.newSpace(t, TestConfig(t), keys.ZeroKey)
	defer b.Shutdown()

	// a stray feed on a, never admitted to the space
	stray := keys.RandomPublicKey()
	a.feeds.OpenFeed(stray, true)
	c := tn.founder.InviteMember(t, tn.spaceKey, keys.RandomPublicKey(), credentials.RoleReader)
	if _, err := a.feeds.Append(context.Background(), stray, c); err != nil {
		t.Fatalf("err: %v", err)
	}

	connect(a, at, b, bt)
	a.RunAsync(false)

	if _, err := b.SyncWith(at.LocalAddr()); err != nil {
		t.Fatalf("err: %v", err)
	}

	if _, ok := b.Timeframe().Get(stray); ok {
		t.Fatalf("b should not replicate a feed that is not admitted")
	}
	if n := len(a.Members()); n != 1 {
		t.Fatalf("credential on an untracked feed should not be processed")
	}
}

func TestNotarizeThroughPeer(t *testing.T) {
	tn := newTestNetwork(t)

	a, at := tn.newFounderSpace(t, TestConfig(t))
	defer a.Shutdown()
	b, bt := tn.newSpace(t, TestConfig(t), keys.ZeroKey)
	defer b.Shutdown()

	connect(a, at, b, bt)
	a.RunAsync(true)
	b.RunAsync(true)

	waitFor(t, 2*time.Second, b.IsActive, "b to replicate the genesis")

	// The founder is a WRITER, not an ADMIN: members are invited with the
	// space key.
	bob := keys.RandomPublicKey()
	c, err := credentials.CreateMemberCredential(credentials.NewKeyringSigner(tn.keyring, tn.spaceKey),
		tn.spaceKey, tn.spaceKey, bob, credentials.RoleWriter)
	if err != nil {
		t.Fatalf("err: %v", err)
	}

	if err := b.Notarize(context.Background(), []*credentials.Credential{c}); err != nil {
		t.Fatalf("err: %v", err)
	}

	for _, s := range []*Space{a, b} {
		waitFor(t, 2*time.Second, func() bool { return len(s.Members()) == 2 }, "bob to be admitted")
		if members := s.Members(); members[1].Key != bob {
			t.Fatalf("second member should be bob")
		}

		count := 0
		for _, applied := range s.Credentials() {
			if applied.ID == c.ID {
				count++
			}
		}
		if count != 1 {
			t.Fatalf("invite should be applied once, not %d times", count)
		}
	}
}

func TestNotarizeResolvesRejectedCredential(t *testing.T) {
	tn := newTestNetwork(t)

	a, at := tn.newFounderSpace(t, TestConfig(t))
	defer a.Shutdown()
	b, bt := tn.newSpace(t, TestConfig(t), keys.ZeroKey)
	defer b.Shutdown()

	connect(a, at, b, bt)
	a.RunAsync(true)
	b.RunAsync(true)

	waitFor(t, 2*time.Second, b.IsActive, "b to replicate the genesis")

	// The founder lacks ADMIN, so the invite is written but not applied.
	c := tn.founder.InviteMember(t, tn.spaceKey, keys.RandomPublicKey(), credentials.RoleReader)

	if err := b.Notarize(context.Background(), []*credentials.Credential{c}); err != nil {
		t.Fatalf("notarization should complete once the credential is written: %v", err)
	}

	for _, s := range []*Space{a, b} {
		if n := len(s.Members()); n != 1 {
			t.Fatalf("rejected invite should not admit a member, space has %d", n)
		}
	}
}

func TestNotarizeRejectedWithoutWriter(t *testing.T) {
	tn := newTestNetwork(t)

	conf := TestConfig(t)
	conf.Notarization.Timeout = 300 * time.Millisecond

	a, at := tn.newSpace(t, TestConfig(t), keys.ZeroKey)
	defer a.Shutdown()
	b, bt := tn.newSpace(t, conf, keys.ZeroKey)
	defer b.Shutdown()

	connect(a, at, b, bt)
	a.RunAsync(false)

	c := tn.founder.InviteMember(t, tn.spaceKey, keys.RandomPublicKey(), credentials.RoleReader)

	err := b.Notarize(context.Background(), []*credentials.Credential{c})
	if !notarization.IsTimeout(err) {
		t.Fatalf("expected a timeout when no peer can write, got %v", err)
	}
}

func TestShutdownRejectsNotarize(t *testing.T) {
	tn := newTestNetwork(t)
	s, _ := tn.newSpace(t, TestConfig(t), keys.ZeroKey)

	c := tn.founder.InviteMember(t, tn.spaceKey, keys.RandomPublicKey(), credentials.RoleReader)

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.Notarize(context.Background(), []*credentials.Credential{c})
	}()

	time.Sleep(50 * time.Millisecond)
	s.Shutdown()

	select {
	case err := <-errCh:
		if err != notarization.ErrClosed {
			t.Fatalf("expected ErrClosed, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("Notarize should return after Shutdown")
	}

	if s.State() != Shutdown {
		t.Fatalf("space should be Shutdown, not %v", s.State())
	}
}

func TestDisconnectPeer(t *testing.T) {
	tn := newTestNetwork(t)

	a, at := tn.newFounderSpace(t, TestConfig(t))
	defer a.Shutdown()
	b, bt := tn.newSpace(t, TestConfig(t), keys.ZeroKey)
	defer b.Shutdown()

	connect(a, at, b, bt)

	if n := b.notarization.Extensions().Len(); n != 1 {
		t.Fatalf("b should have 1 extension, not %d", n)
	}

	b.DisconnectPeer(at.LocalAddr())

	if n := b.notarization.Extensions().Len(); n != 0 {
		t.Fatalf("b should have no extension, not %d", n)
	}
	if n := b.peerSelector.Peers().Len(); n != 0 {
		t.Fatalf("b should have no peers, not %d", n)
	}
}
