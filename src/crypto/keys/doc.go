// Package keys implements the public key cryptography used throughout halo.
//
// Spaces, identities, devices and feeds are all named by a PublicKey, a fixed
// 32-byte value that is comparable and can be used directly as a map key. The
// private halves live in a Keyring. Keys are Ed25519, whose public keys are
// exactly 32 bytes, so the identity of a key and its verification material are
// the same bytes.
package keys
