package keys

import (
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
	"io/ioutil"
	"os"
	"path"
	"strings"
	"sync"
)

// KeyReaderWriter reads and writes keys from/to any format or support.
type KeyReaderWriter interface {
	ReadKey() (ed25519.PrivateKey, error)
	WriteKey(ed25519.PrivateKey) error
}

// SimpleKeyfile implements KeyReaderWriter with unencrypted and unformated
// files.
type SimpleKeyfile struct {
	l       sync.Mutex
	keyfile string
}

// NewSimpleKeyfile instantiates a new SimpleKeyfile with an underlying file
func NewSimpleKeyfile(keyfile string) *SimpleKeyfile {
	return &SimpleKeyfile{
		keyfile: keyfile,
	}
}

// CheckFileInfo verifies that the file exists and has user permissions only.
func (k *SimpleKeyfile) CheckFileInfo() error {
	info, err := os.Stat(k.keyfile)
	if err != nil {
		return err
	}

	perm := info.Mode().Perm()

	// build 000111111 mask
	var nonUserMask os.FileMode = (1 << 6) - 1

	if perm&nonUserMask != 0 {
		return fmt.Errorf("priv_key file permissions should exclude 'groups' and 'others'. Got %o", perm)
	}

	return nil
}

// ReadKey implements KeyReaderWriter. The file is expected to contain the hex
// encoded 32-byte Ed25519 seed, as produced by WriteKey.
func (k *SimpleKeyfile) ReadKey() (ed25519.PrivateKey, error) {
	k.l.Lock()
	defer k.l.Unlock()

	if err := k.CheckFileInfo(); err != nil {
		return nil, err
	}

	buf, err := ioutil.ReadFile(k.keyfile)
	if err != nil {
		return nil, err
	}

	seed, err := hex.DecodeString(strings.TrimSpace(string(buf)))
	if err != nil {
		return nil, err
	}

	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("invalid seed length: got %d, want %d", len(seed), ed25519.SeedSize)
	}

	return ed25519.NewKeyFromSeed(seed), nil
}

// WriteKey implements KeyReaderWriter. It writes the hex encoded seed of the
// key to the underlying file.
func (k *SimpleKeyfile) WriteKey(key ed25519.PrivateKey) error {
	k.l.Lock()
	defer k.l.Unlock()

	if err := os.MkdirAll(path.Dir(k.keyfile), 0700); err != nil {
		return err
	}

	return ioutil.WriteFile(k.keyfile, []byte(hex.EncodeToString(key.Seed())), 0600)
}

// Exists reports whether the underlying file exists.
func (k *SimpleKeyfile) Exists() bool {
	_, err := os.Stat(k.keyfile)
	return err == nil
}

// LoadInto reads the key into keyring and returns its public key. When the
// file does not exist and create is set, a new key is generated and written
// first.
func (k *SimpleKeyfile) LoadInto(keyring *Keyring, create bool) (PublicKey, error) {
	if !k.Exists() && create {
		pub, err := keyring.CreateKey()
		if err != nil {
			return ZeroKey, err
		}
		priv, _ := keyring.PrivateKey(pub)
		if err := k.WriteKey(priv); err != nil {
			return ZeroKey, err
		}
		return pub, nil
	}

	priv, err := k.ReadKey()
	if err != nil {
		return ZeroKey, err
	}

	return keyring.ImportKey(priv), nil
}
