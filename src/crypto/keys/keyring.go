package keys

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
	"sync"
)

// Keyring holds private keys indexed by their public key.
type Keyring struct {
	l    sync.RWMutex
	keys map[PublicKey]ed25519.PrivateKey
}

// NewKeyring returns an empty Keyring.
func NewKeyring() *Keyring {
	return &Keyring{
		keys: make(map[PublicKey]ed25519.PrivateKey),
	}
}

// CreateKey generates a new key pair and returns its public key.
func (k *Keyring) CreateKey() (PublicKey, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return ZeroKey, err
	}
	return k.ImportKey(priv), nil
}

// ImportKey adds an existing private key and returns its public key.
func (k *Keyring) ImportKey(priv ed25519.PrivateKey) PublicKey {
	var pub PublicKey
	copy(pub[:], priv.Public().(ed25519.PublicKey))

	k.l.Lock()
	defer k.l.Unlock()
	k.keys[pub] = priv

	return pub
}

// Has reports whether the private key for pub is in the keyring.
func (k *Keyring) Has(pub PublicKey) bool {
	k.l.RLock()
	defer k.l.RUnlock()
	_, ok := k.keys[pub]
	return ok
}

// PrivateKey returns the private key for pub.
func (k *Keyring) PrivateKey(pub PublicKey) (ed25519.PrivateKey, bool) {
	k.l.RLock()
	defer k.l.RUnlock()
	priv, ok := k.keys[pub]
	return priv, ok
}

// Sign signs data with the private key of pub.
func (k *Keyring) Sign(pub PublicKey, data []byte) ([]byte, error) {
	priv, ok := k.PrivateKey(pub)
	if !ok {
		return nil, fmt.Errorf("key not found in keyring: %s", pub.Hex())
	}
	return ed25519.Sign(priv, data), nil
}

// Verify reports whether sig is a valid signature of data by pub.
func Verify(pub PublicKey, data []byte, sig []byte) bool {
	if len(sig) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(pub[:]), data, sig)
}
