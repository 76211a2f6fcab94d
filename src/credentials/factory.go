package credentials

import (
	"github.com/mosaicnetworks/halo/src/crypto/keys"
)

// CreateGenesisCredentials returns the credentials that bootstrap a space, in
// the order they must be written to its control feed:
//
//   - PartyGenesis, self-issued by the space key
//   - PartyMember, admitting identityKey as a WRITER, issued by the space key
//   - AuthorizedDevice, delegating identityKey to deviceKey
//   - AdmittedFeed, admitting feedKey as the CONTROL feed, signed by deviceKey
//
// The keyring must hold the private keys of spaceKey, identityKey and
// deviceKey.
func CreateGenesisCredentials(
	keyring *keys.Keyring,
	spaceKey keys.PublicKey,
	identityKey keys.PublicKey,
	deviceKey keys.PublicKey,
	feedKey keys.PublicKey,
) ([]*Credential, error) {
	spaceSigner := NewKeyringSigner(keyring, spaceKey)

	genesis, err := CreateCredential(
		spaceSigner,
		spaceKey,
		spaceKey,
		&PartyGenesis{SpaceKey: spaceKey},
	)
	if err != nil {
		return nil, err
	}

	member, err := CreateMemberCredential(spaceSigner, spaceKey, spaceKey, identityKey, RoleWriter)
	if err != nil {
		return nil, err
	}

	device, err := CreateAuthorizedDeviceCredential(
		NewKeyringSigner(keyring, identityKey),
		identityKey,
		deviceKey,
	)
	if err != nil {
		return nil, err
	}

	feed, err := CreateAdmittedFeedCredential(
		NewChainSigner(keyring, deviceKey, device),
		identityKey,
		spaceKey,
		identityKey,
		deviceKey,
		feedKey,
		DesignationControl,
	)
	if err != nil {
		return nil, err
	}

	return []*Credential{genesis, member, device, feed}, nil
}

// CreateMemberCredential admits memberKey into spaceKey with role.
func CreateMemberCredential(
	signer Signer,
	issuer keys.PublicKey,
	spaceKey keys.PublicKey,
	memberKey keys.PublicKey,
	role Role,
) (*Credential, error) {
	return CreateCredential(signer, issuer, memberKey, &PartyMember{
		SpaceKey: spaceKey,
		Role:     role,
	})
}

// CreateAuthorizedDeviceCredential delegates identityKey to deviceKey.
func CreateAuthorizedDeviceCredential(
	signer Signer,
	identityKey keys.PublicKey,
	deviceKey keys.PublicKey,
) (*Credential, error) {
	return CreateCredential(signer, identityKey, deviceKey, &AuthorizedDevice{
		IdentityKey: identityKey,
		DeviceKey:   deviceKey,
	})
}

// CreateAdmittedFeedCredential admits feedKey into spaceKey.
func CreateAdmittedFeedCredential(
	signer Signer,
	issuer keys.PublicKey,
	spaceKey keys.PublicKey,
	identityKey keys.PublicKey,
	deviceKey keys.PublicKey,
	feedKey keys.PublicKey,
	designation Designation,
) (*Credential, error) {
	return CreateCredential(signer, issuer, feedKey, &AdmittedFeed{
		SpaceKey:    spaceKey,
		IdentityKey: identityKey,
		DeviceKey:   deviceKey,
		Designation: designation,
	})
}
