package credentials

import (
	"fmt"
	"time"

	"github.com/mosaicnetworks/halo/src/crypto/keys"
)

// Signer produces proofs for new credentials.
type Signer interface {
	// SigningKey is the key whose signature goes into the proof.
	SigningKey() keys.PublicKey
	// Chain is the delegation proof attached to credentials signed by a key
	// other than their issuer. It is nil for direct signers.
	Chain() *Credential
	Sign(data []byte) ([]byte, error)
}

type keyringSigner struct {
	keyring *keys.Keyring
	key     keys.PublicKey
	chain   *Credential
}

// NewKeyringSigner returns a Signer that signs directly with key.
func NewKeyringSigner(keyring *keys.Keyring, key keys.PublicKey) Signer {
	return &keyringSigner{
		keyring: keyring,
		key:     key,
	}
}

// NewChainSigner returns a Signer that signs with deviceKey on behalf of the
// identity that issued chain. chain must be an AuthorizedDevice credential
// whose subject is deviceKey.
func NewChainSigner(keyring *keys.Keyring, deviceKey keys.PublicKey, chain *Credential) Signer {
	return &keyringSigner{
		keyring: keyring,
		key:     deviceKey,
		chain:   chain,
	}
}

func (s *keyringSigner) SigningKey() keys.PublicKey { return s.key }

func (s *keyringSigner) Chain() *Credential { return s.chain }

func (s *keyringSigner) Sign(data []byte) ([]byte, error) {
	return s.keyring.Sign(s.key, data)
}

// CreateCredential builds, signs and identifies a new credential.
func CreateCredential(signer Signer, issuer, subject keys.PublicKey, assertion Assertion) (*Credential, error) {
	if assertion == nil {
		return nil, fmt.Errorf("credential requires an assertion")
	}

	c := &Credential{
		Issuer:       issuer,
		Subject:      subject,
		IssuanceDate: time.Now().UTC().Truncate(time.Millisecond),
		Assertion:    assertion,
		Proof: &Proof{
			Type:   ProofTypeEd25519,
			Signer: signer.SigningKey(),
		},
	}

	if chain := signer.Chain(); chain != nil && signer.SigningKey() != issuer {
		c.Proof.Chain = &Chain{Credential: chain}
	}

	payload, err := c.SignaturePayload()
	if err != nil {
		return nil, err
	}

	sig, err := signer.Sign(payload)
	if err != nil {
		return nil, err
	}
	c.Proof.Value = sig

	id, err := ComputeID(c)
	if err != nil {
		return nil, err
	}
	c.ID = id

	return c, nil
}
