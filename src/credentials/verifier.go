package credentials

import (
	"fmt"

	"github.com/mosaicnetworks/halo/src/crypto/keys"
)

// VerificationKind ...
type VerificationKind int

const (
	// Pass ...
	Pass VerificationKind = iota
	// Fail ...
	Fail
)

// String ...
func (k VerificationKind) String() string {
	if k == Pass {
		return "pass"
	}
	return "fail"
}

// VerificationResult is the outcome of verifying a credential. Errors is
// empty when Kind is Pass.
type VerificationResult struct {
	Kind   VerificationKind
	Errors []string
}

// OK ...
func (r VerificationResult) OK() bool {
	return r.Kind == Pass
}

// Error joins the failure reasons.
func (r VerificationResult) Error() string {
	if r.OK() {
		return ""
	}
	return fmt.Sprintf("credential verification failed: %v", r.Errors)
}

// Verifier checks the proof of a credential.
type Verifier interface {
	Verify(c *Credential) VerificationResult
}

// VerifierFunc adapts a function to the Verifier interface.
type VerifierFunc func(c *Credential) VerificationResult

// Verify implements Verifier.
func (f VerifierFunc) Verify(c *Credential) VerificationResult {
	return f(c)
}

// DefaultVerifier checks signatures with VerifyCredential.
var DefaultVerifier Verifier = VerifierFunc(VerifyCredential)

// VerifyCredential checks the signature of c and, when c was signed by a
// device, the delegation chain. Chains are one level deep: the chain
// credential itself must be signed directly by its issuer.
func VerifyCredential(c *Credential) VerificationResult {
	return verify(c, true)
}

func verify(c *Credential, allowChain bool) VerificationResult {
	var errs []string

	if c == nil {
		return VerificationResult{Kind: Fail, Errors: []string{"nil credential"}}
	}
	if c.Assertion == nil {
		errs = append(errs, "missing assertion")
	}
	if c.Proof == nil {
		errs = append(errs, "missing proof")
		return VerificationResult{Kind: Fail, Errors: errs}
	}
	if c.Proof.Type != ProofTypeEd25519 {
		errs = append(errs, fmt.Sprintf("unsupported proof type %q", c.Proof.Type))
	}

	payload, err := c.SignaturePayload()
	if err != nil {
		errs = append(errs, fmt.Sprintf("encoding payload: %v", err))
	} else if !keys.Verify(c.Proof.Signer, payload, c.Proof.Value) {
		errs = append(errs, "invalid signature")
	}

	if c.Proof.Signer != c.Issuer {
		errs = append(errs, verifyChain(c, allowChain)...)
	}

	if c.HasID() {
		id, err := ComputeID(c)
		if err != nil {
			errs = append(errs, fmt.Sprintf("computing id: %v", err))
		} else if id != c.ID {
			errs = append(errs, "id does not match content")
		}
	}

	if len(errs) > 0 {
		return VerificationResult{Kind: Fail, Errors: errs}
	}
	return VerificationResult{Kind: Pass}
}

func verifyChain(c *Credential, allowChain bool) []string {
	if !allowChain {
		return []string{"nested delegation chains are not allowed"}
	}
	if c.Proof.Chain == nil || c.Proof.Chain.Credential == nil {
		return []string{"signer is not the issuer and no chain is provided"}
	}

	chain := c.Proof.Chain.Credential

	device, ok := chain.Assertion.(*AuthorizedDevice)
	if !ok {
		return []string{fmt.Sprintf("chain must be an AuthorizedDevice credential, got %q", chain.Type())}
	}

	var errs []string
	if chain.Issuer != c.Issuer {
		errs = append(errs, "chain issuer does not match credential issuer")
	}
	if chain.Subject != c.Proof.Signer || device.DeviceKey != c.Proof.Signer {
		errs = append(errs, "chain does not authorize the signing key")
	}
	if device.IdentityKey != chain.Issuer {
		errs = append(errs, "chain identity does not match its issuer")
	}

	res := verify(chain, false)
	for _, e := range res.Errors {
		errs = append(errs, "chain: "+e)
	}

	return errs
}
