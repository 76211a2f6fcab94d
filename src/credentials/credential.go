package credentials

import (
	"bytes"
	"fmt"
	"time"

	"github.com/mosaicnetworks/halo/src/common"
	"github.com/mosaicnetworks/halo/src/crypto"
	"github.com/mosaicnetworks/halo/src/crypto/keys"
	"github.com/ugorji/go/codec"
)

// ProofTypeEd25519 is the only proof type produced and accepted.
const ProofTypeEd25519 = "ED25519Signature"

// Credential is a signed Assertion about Subject made by Issuer.
type Credential struct {
	// ID is derived from the signed content. The zero key means the
	// credential has no id.
	ID           keys.PublicKey
	Issuer       keys.PublicKey
	Subject      keys.PublicKey
	IssuanceDate time.Time
	Assertion    Assertion
	Proof        *Proof
}

// Proof carries the signature over a credential.
type Proof struct {
	Type   string
	Signer keys.PublicKey
	Value  []byte
	// Chain is set when Signer is not the issuer. It holds the
	// AuthorizedDevice credential that delegates the issuer's authority to
	// Signer.
	Chain *Chain
}

// Chain wraps a delegating credential.
type Chain struct {
	Credential *Credential
}

// SigningAuthority describes whose key signed a credential.
type SigningAuthority interface {
	signingAuthority()
}

// Direct authority: the credential was signed by Key, which is the issuer.
type Direct struct {
	Key keys.PublicKey
}

// Delegated authority: the credential was signed by SigningKey on the
// strength of Proof, an AuthorizedDevice credential from the issuer.
type Delegated struct {
	SigningKey keys.PublicKey
	Proof      *Credential
}

func (Direct) signingAuthority()    {}
func (Delegated) signingAuthority() {}

// Authority returns how the credential claims to be signed. It returns nil
// when the credential has no proof.
func (c *Credential) Authority() SigningAuthority {
	if c.Proof == nil {
		return nil
	}
	if c.Proof.Chain != nil && c.Proof.Chain.Credential != nil {
		return Delegated{SigningKey: c.Proof.Signer, Proof: c.Proof.Chain.Credential}
	}
	return Direct{Key: c.Proof.Signer}
}

// HasID ...
func (c *Credential) HasID() bool {
	return !c.ID.IsZero()
}

// Type returns the assertion tag, or an empty string if the credential has no
// assertion.
func (c *Credential) Type() AssertionType {
	if c.Assertion == nil {
		return ""
	}
	return c.Assertion.Type()
}

// String ...
func (c *Credential) String() string {
	return fmt.Sprintf("Credential{ID: %s, Type: %s, Issuer: %s, Subject: %s}",
		c.ID, c.Type(), c.Issuer, c.Subject)
}

// SignaturePayload returns the bytes covered by the proof signature: the
// canonical encoding of the credential without its id, signature value and
// chain.
func (c *Credential) SignaturePayload() ([]byte, error) {
	w := c.toWire()
	w.ID = keys.ZeroKey
	if w.Proof != nil {
		w.Proof.Value = ""
		w.Proof.Chain = nil
	}
	return encodeCanonical(&w)
}

// ComputeID returns the id of the credential: the hash of its canonical
// encoding without the id field.
func ComputeID(c *Credential) (keys.PublicKey, error) {
	w := c.toWire()
	w.ID = keys.ZeroKey
	data, err := encodeCanonical(&w)
	if err != nil {
		return keys.ZeroKey, err
	}
	return keys.PublicKey(crypto.Hash(data)), nil
}

// Marshal returns the canonical JSON encoding of the credential.
func (c *Credential) Marshal() ([]byte, error) {
	return encodeCanonical(c)
}

// Unmarshal ...
func (c *Credential) Unmarshal(data []byte) error {
	b := bytes.NewBuffer(data)
	jh := new(codec.JsonHandle)
	jh.Canonical = true
	dec := codec.NewDecoder(b, jh)

	if err := dec.Decode(c); err != nil {
		return err
	}

	return nil
}

// UnmarshalCredential decodes a credential produced by Marshal.
func UnmarshalCredential(data []byte) (*Credential, error) {
	c := new(Credential)
	if err := c.Unmarshal(data); err != nil {
		return nil, err
	}
	return c, nil
}

// CodecEncodeSelf implements codec.Selfer.
func (c *Credential) CodecEncodeSelf(e *codec.Encoder) {
	w := c.toWire()
	e.MustEncode(&w)
}

// CodecDecodeSelf implements codec.Selfer.
func (c *Credential) CodecDecodeSelf(d *codec.Decoder) {
	var w WireCredential
	d.MustDecode(&w)
	parsed, err := w.toCredential()
	if err != nil {
		panic(err)
	}
	*c = *parsed
}

func encodeCanonical(v interface{}) ([]byte, error) {
	b := new(bytes.Buffer)
	jh := new(codec.JsonHandle)
	jh.Canonical = true
	enc := codec.NewEncoder(b, jh)

	if err := enc.Encode(v); err != nil {
		return nil, err
	}

	return b.Bytes(), nil
}

/*******************************************************************************
Wire
*******************************************************************************/

// WireCredential is the flat encoding of a Credential. Assertions are tagged
// with @type.
type WireCredential struct {
	ID           keys.PublicKey `codec:"id"`
	Issuer       keys.PublicKey `codec:"issuer"`
	Subject      keys.PublicKey `codec:"subject"`
	IssuanceDate int64          `codec:"issuanceDate"`
	Assertion    WireAssertion  `codec:"assertion"`
	Proof        *WireProof     `codec:"proof"`
}

// WireAssertion is the union of all assertion fields.
type WireAssertion struct {
	Type        AssertionType  `codec:"@type"`
	SpaceKey    keys.PublicKey `codec:"spaceKey"`
	IdentityKey keys.PublicKey `codec:"identityKey"`
	DeviceKey   keys.PublicKey `codec:"deviceKey"`
	Role        string         `codec:"role"`
	Designation string         `codec:"designation"`
}

// WireProof ...
type WireProof struct {
	Type   string         `codec:"type"`
	Signer keys.PublicKey `codec:"signer"`
	Value  string         `codec:"value"`
	Chain  *Credential    `codec:"chain"`
}

func (c *Credential) toWire() WireCredential {
	w := WireCredential{
		ID:        c.ID,
		Issuer:    c.Issuer,
		Subject:   c.Subject,
		Assertion: assertionToWire(c.Assertion),
	}

	if !c.IssuanceDate.IsZero() {
		w.IssuanceDate = c.IssuanceDate.UnixNano() / int64(time.Millisecond)
	}

	if c.Proof != nil {
		w.Proof = &WireProof{
			Type:   c.Proof.Type,
			Signer: c.Proof.Signer,
		}
		if len(c.Proof.Value) > 0 {
			w.Proof.Value = common.EncodeToString(c.Proof.Value)
		}
		if c.Proof.Chain != nil {
			w.Proof.Chain = c.Proof.Chain.Credential
		}
	}

	return w
}

func (w *WireCredential) toCredential() (*Credential, error) {
	a, err := w.Assertion.toAssertion()
	if err != nil {
		return nil, err
	}

	c := &Credential{
		ID:        w.ID,
		Issuer:    w.Issuer,
		Subject:   w.Subject,
		Assertion: a,
	}

	if w.IssuanceDate != 0 {
		c.IssuanceDate = time.Unix(0, w.IssuanceDate*int64(time.Millisecond)).UTC()
	}

	if w.Proof != nil {
		c.Proof = &Proof{
			Type:   w.Proof.Type,
			Signer: w.Proof.Signer,
		}
		if w.Proof.Value != "" {
			value, err := common.DecodeFromString(w.Proof.Value)
			if err != nil {
				return nil, fmt.Errorf("invalid proof value: %v", err)
			}
			c.Proof.Value = value
		}
		if w.Proof.Chain != nil {
			c.Proof.Chain = &Chain{Credential: w.Proof.Chain}
		}
	}

	return c, nil
}

func assertionToWire(a Assertion) WireAssertion {
	switch a := a.(type) {
	case *PartyGenesis:
		return WireAssertion{
			Type:     PartyGenesisType,
			SpaceKey: a.SpaceKey,
		}
	case *PartyMember:
		return WireAssertion{
			Type:     PartyMemberType,
			SpaceKey: a.SpaceKey,
			Role:     a.Role.String(),
		}
	case *AdmittedFeed:
		return WireAssertion{
			Type:        AdmittedFeedType,
			SpaceKey:    a.SpaceKey,
			IdentityKey: a.IdentityKey,
			DeviceKey:   a.DeviceKey,
			Designation: a.Designation.String(),
		}
	case *AuthorizedDevice:
		return WireAssertion{
			Type:        AuthorizedDeviceType,
			IdentityKey: a.IdentityKey,
			DeviceKey:   a.DeviceKey,
		}
	default:
		return WireAssertion{}
	}
}

func (w *WireAssertion) toAssertion() (Assertion, error) {
	switch w.Type {
	case PartyGenesisType:
		return &PartyGenesis{SpaceKey: w.SpaceKey}, nil
	case PartyMemberType:
		role, err := ParseRole(w.Role)
		if err != nil {
			return nil, err
		}
		return &PartyMember{SpaceKey: w.SpaceKey, Role: role}, nil
	case AdmittedFeedType:
		designation, err := ParseDesignation(w.Designation)
		if err != nil {
			return nil, err
		}
		return &AdmittedFeed{
			SpaceKey:    w.SpaceKey,
			IdentityKey: w.IdentityKey,
			DeviceKey:   w.DeviceKey,
			Designation: designation,
		}, nil
	case AuthorizedDeviceType:
		return &AuthorizedDevice{
			IdentityKey: w.IdentityKey,
			DeviceKey:   w.DeviceKey,
		}, nil
	case "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown assertion type %q", w.Type)
	}
}
