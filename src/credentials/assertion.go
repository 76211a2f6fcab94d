package credentials

import (
	"fmt"

	"github.com/mosaicnetworks/halo/src/crypto/keys"
)

// AssertionType is the string tag that discriminates assertions on the wire.
type AssertionType string

// Assertion tags.
const (
	PartyGenesisType     AssertionType = "halo.credentials.PartyGenesis"
	PartyMemberType      AssertionType = "halo.credentials.PartyMember"
	AdmittedFeedType     AssertionType = "halo.credentials.AdmittedFeed"
	AuthorizedDeviceType AssertionType = "halo.credentials.AuthorizedDevice"
)

// Assertion is the closed union of statements a credential can make. Only the
// types in this package implement it.
type Assertion interface {
	Type() AssertionType
	assertion()
}

// PartyGenesis establishes a space. Its issuer and subject are the space key.
type PartyGenesis struct {
	SpaceKey keys.PublicKey
}

// PartyMember admits the subject identity into a space with a role.
type PartyMember struct {
	SpaceKey keys.PublicKey
	Role     Role
}

// AdmittedFeed admits the subject feed into a space. The feed belongs to
// IdentityKey and is written by DeviceKey.
type AdmittedFeed struct {
	SpaceKey    keys.PublicKey
	IdentityKey keys.PublicKey
	DeviceKey   keys.PublicKey
	Designation Designation
}

// AuthorizedDevice states that DeviceKey may sign on behalf of IdentityKey.
type AuthorizedDevice struct {
	IdentityKey keys.PublicKey
	DeviceKey   keys.PublicKey
}

// Type implements Assertion.
func (*PartyGenesis) Type() AssertionType { return PartyGenesisType }

// Type implements Assertion.
func (*PartyMember) Type() AssertionType { return PartyMemberType }

// Type implements Assertion.
func (*AdmittedFeed) Type() AssertionType { return AdmittedFeedType }

// Type implements Assertion.
func (*AuthorizedDevice) Type() AssertionType { return AuthorizedDeviceType }

func (*PartyGenesis) assertion()     {}
func (*PartyMember) assertion()      {}
func (*AdmittedFeed) assertion()     {}
func (*AuthorizedDevice) assertion() {}

// Role is the capability a member holds in a space. ADMIN members may invite
// new members; WRITER members may admit feeds. Neither implies the other.
type Role int

const (
	// RoleUnknown is the zero value and is never granted.
	RoleUnknown Role = iota
	// RoleAdmin ...
	RoleAdmin
	// RoleWriter ...
	RoleWriter
	// RoleReader ...
	RoleReader
)

// String ...
func (r Role) String() string {
	switch r {
	case RoleAdmin:
		return "ADMIN"
	case RoleWriter:
		return "WRITER"
	case RoleReader:
		return "READER"
	default:
		return "UNKNOWN"
	}
}

// ParseRole is the inverse of Role.String.
func ParseRole(s string) (Role, error) {
	switch s {
	case "ADMIN":
		return RoleAdmin, nil
	case "WRITER":
		return RoleWriter, nil
	case "READER":
		return RoleReader, nil
	default:
		return RoleUnknown, fmt.Errorf("unknown role %q", s)
	}
}

// Designation is the purpose of an admitted feed.
type Designation int

const (
	// DesignationControl feeds carry credentials.
	DesignationControl Designation = iota
	// DesignationData feeds carry application data.
	DesignationData
)

// String ...
func (d Designation) String() string {
	switch d {
	case DesignationControl:
		return "CONTROL"
	case DesignationData:
		return "DATA"
	default:
		return "UNKNOWN"
	}
}

// ParseDesignation is the inverse of Designation.String.
func ParseDesignation(s string) (Designation, error) {
	switch s {
	case "CONTROL":
		return DesignationControl, nil
	case "DATA":
		return DesignationData, nil
	default:
		return DesignationControl, fmt.Errorf("unknown designation %q", s)
	}
}
