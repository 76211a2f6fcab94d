package credentials

import (
	"testing"

	"github.com/mosaicnetworks/halo/src/crypto/keys"
)

// TestAgent is an identity with one authorized device, used to build
// credential fixtures in tests.
type TestAgent struct {
	Keyring          *keys.Keyring
	IdentityKey      keys.PublicKey
	DeviceKey        keys.PublicKey
	ControlFeedKey   keys.PublicKey
	DeviceCredential *Credential
}

// NewTestAgent creates an identity, a device and a control feed key in
// keyring.
func NewTestAgent(t testing.TB, keyring *keys.Keyring) *TestAgent {
	identityKey := mustCreateKey(t, keyring)
	deviceKey := mustCreateKey(t, keyring)
	feedKey := mustCreateKey(t, keyring)

	device, err := CreateAuthorizedDeviceCredential(
		NewKeyringSigner(keyring, identityKey),
		identityKey,
		deviceKey,
	)
	if err != nil {
		t.Fatalf("err: %v", err)
	}

	return &TestAgent{
		Keyring:          keyring,
		IdentityKey:      identityKey,
		DeviceKey:        deviceKey,
		ControlFeedKey:   feedKey,
		DeviceCredential: device,
	}
}

// Signer signs with the device key on behalf of the identity.
func (a *TestAgent) Signer() Signer {
	return NewChainSigner(a.Keyring, a.DeviceKey, a.DeviceCredential)
}

// AdmitFeed returns an AdmittedFeed credential for feedKey issued by the
// agent's identity.
func (a *TestAgent) AdmitFeed(t testing.TB, spaceKey, feedKey keys.PublicKey, designation Designation) *Credential {
	c, err := CreateAdmittedFeedCredential(
		a.Signer(),
		a.IdentityKey,
		spaceKey,
		a.IdentityKey,
		a.DeviceKey,
		feedKey,
		designation,
	)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	return c
}

// InviteMember returns a PartyMember credential for memberKey issued by the
// agent's identity.
func (a *TestAgent) InviteMember(t testing.TB, spaceKey, memberKey keys.PublicKey, role Role) *Credential {
	c, err := CreateMemberCredential(a.Signer(), a.IdentityKey, spaceKey, memberKey, role)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	return c
}

// NewTestSpace creates a space key and a founding agent, and returns the
// genesis credentials that bootstrap the space.
func NewTestSpace(t testing.TB, keyring *keys.Keyring) (keys.PublicKey, *TestAgent, []*Credential) {
	spaceKey := mustCreateKey(t, keyring)
	agent := NewTestAgent(t, keyring)

	genesis, err := CreateGenesisCredentials(
		keyring,
		spaceKey,
		agent.IdentityKey,
		agent.DeviceKey,
		agent.ControlFeedKey,
	)
	if err != nil {
		t.Fatalf("err: %v", err)
	}

	// Keep the agent's device credential consistent with the one written to
	// the control feed.
	agent.DeviceCredential = genesis[2]

	return spaceKey, agent, genesis
}

func mustCreateKey(t testing.TB, keyring *keys.Keyring) keys.PublicKey {
	k, err := keyring.CreateKey()
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	return k
}
