// Package credentials defines the signed, typed assertions that govern access
// to a space.
//
// A Credential links an issuer to a subject through an Assertion. Assertions
// form a closed set: PartyGenesis, PartyMember, AdmittedFeed and
// AuthorizedDevice. A credential is either signed directly by its issuer or,
// through a delegation chain, by a device key that the issuer authorized with
// an AuthorizedDevice credential. Credentials are encoded canonically with
// ugorji/go/codec so that signatures and ids are stable across peers.
package credentials
