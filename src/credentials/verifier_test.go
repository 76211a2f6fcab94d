package credentials

import (
	"testing"

	"github.com/mosaicnetworks/halo/src/crypto/keys"
)

func TestVerifyGenesis(t *testing.T) {
	keyring := keys.NewKeyring()
	_, _, genesis := NewTestSpace(t, keyring)

	for i, c := range genesis {
		res := VerifyCredential(c)
		if !res.OK() {
			t.Fatalf("credential %d should verify: %v", i, res.Errors)
		}
	}
}

func TestVerifyTamperedAssertion(t *testing.T) {
	keyring := keys.NewKeyring()
	spaceKey, agent, _ := NewTestSpace(t, keyring)

	c := agent.InviteMember(t, spaceKey, keys.RandomPublicKey(), RoleReader)
	c.Assertion = &PartyMember{SpaceKey: spaceKey, Role: RoleAdmin}

	res := VerifyCredential(c)
	if res.OK() {
		t.Fatalf("tampered credential should not verify")
	}
}

func TestVerifyWrongSigner(t *testing.T) {
	keyring := keys.NewKeyring()
	spaceKey, _, _ := NewTestSpace(t, keyring)

	other, err := keyring.CreateKey()
	if err != nil {
		t.Fatalf("err: %v", err)
	}

	// Signed by a key that is neither the issuer nor a delegated device.
	c, err := CreateMemberCredential(
		NewKeyringSigner(keyring, other),
		spaceKey,
		spaceKey,
		keys.RandomPublicKey(),
		RoleWriter,
	)
	if err != nil {
		t.Fatalf("err: %v", err)
	}

	if res := VerifyCredential(c); res.OK() {
		t.Fatalf("credential without chain should not verify")
	}
}

func TestVerifyChainFromOtherIdentity(t *testing.T) {
	keyring := keys.NewKeyring()
	spaceKey, alice, _ := NewTestSpace(t, keyring)
	bob := NewTestAgent(t, keyring)

	// Bob's device signs on behalf of Alice using Bob's delegation.
	c, err := CreateAdmittedFeedCredential(
		bob.Signer(),
		alice.IdentityKey,
		spaceKey,
		alice.IdentityKey,
		bob.DeviceKey,
		keys.RandomPublicKey(),
		DesignationData,
	)
	if err != nil {
		t.Fatalf("err: %v", err)
	}

	if res := VerifyCredential(c); res.OK() {
		t.Fatalf("chain issued by another identity should not verify")
	}
}

func TestVerifyWrongID(t *testing.T) {
	keyring := keys.NewKeyring()
	_, agent, _ := NewTestSpace(t, keyring)

	cp := *agent.DeviceCredential
	cp.ID = keys.RandomPublicKey()

	if res := VerifyCredential(&cp); res.OK() {
		t.Fatalf("credential with a wrong id should not verify")
	}

	cp.ID = keys.ZeroKey
	if res := VerifyCredential(&cp); !res.OK() {
		t.Fatalf("credential without id should verify: %v", res.Errors)
	}
}

func TestVerifierFunc(t *testing.T) {
	calls := 0
	v := VerifierFunc(func(c *Credential) VerificationResult {
		calls++
		return VerificationResult{Kind: Fail, Errors: []string{"rejected"}}
	})

	res := v.Verify(&Credential{})
	if res.OK() || calls != 1 {
		t.Fatalf("VerifierFunc should delegate to the function")
	}
}
