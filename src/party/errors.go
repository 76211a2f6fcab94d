package party

import (
	"fmt"

	"github.com/mosaicnetworks/halo/src/crypto/keys"
)

// StateErrType ...
type StateErrType uint32

const (
	// VerificationFailed means the credential proof did not verify.
	VerificationFailed StateErrType = iota
	// Unauthorized means the issuer lacks the required role.
	Unauthorized
	// NoGenesis means the space has not been established yet.
	NoGenesis
	// GenesisExists means a genesis credential was already accepted.
	GenesisExists
	// InvalidGenesis means the genesis issuer or subject is not the space key.
	InvalidGenesis
	// WrongSpace means the assertion targets another space.
	WrongSpace
	// DuplicateMember ...
	DuplicateMember
	// DuplicateFeed ...
	DuplicateFeed
	// DuplicateCredential means a credential with the same id was already
	// applied.
	DuplicateCredential
)

// String ...
func (t StateErrType) String() string {
	switch t {
	case VerificationFailed:
		return "Verification Failed"
	case Unauthorized:
		return "Unauthorized"
	case NoGenesis:
		return "No Genesis"
	case GenesisExists:
		return "Genesis Exists"
	case InvalidGenesis:
		return "Invalid Genesis"
	case WrongSpace:
		return "Wrong Space"
	case DuplicateMember:
		return "Duplicate Member"
	case DuplicateFeed:
		return "Duplicate Feed"
	case DuplicateCredential:
		return "Duplicate Credential"
	default:
		return "Unknown"
	}
}

// StateErr is returned by PartyStateMachine.Apply when a credential is
// rejected. A rejected credential leaves the state untouched.
type StateErr struct {
	errType    StateErrType
	credential keys.PublicKey
	reason     string
}

// NewStateErr ...
func NewStateErr(errType StateErrType, credential keys.PublicKey, reason string) StateErr {
	return StateErr{
		errType:    errType,
		credential: credential,
		reason:     reason,
	}
}

// Type ...
func (e StateErr) Type() StateErrType {
	return e.errType
}

// Error ...
func (e StateErr) Error() string {
	return fmt.Sprintf("credential %s rejected, %s: %s", e.credential, e.errType, e.reason)
}

// IsStateErr checks that an error is of type StateErr and that its type
// matches t.
func IsStateErr(err error, t StateErrType) bool {
	stateErr, ok := err.(StateErr)
	return ok && stateErr.errType == t
}
