package keys

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ugorji/go/codec"
)

// PublicKeySize is the length in bytes of a PublicKey.
const PublicKeySize = 32

// PublicKey identifies spaces, identities, devices, feeds and credentials. The
// zero value is reserved to mean "no key".
type PublicKey [PublicKeySize]byte

// ZeroKey is the empty PublicKey.
var ZeroKey PublicKey

// PublicKeyFromBytes copies b into a PublicKey.
func PublicKeyFromBytes(b []byte) (PublicKey, error) {
	var k PublicKey
	if len(b) != PublicKeySize {
		return k, fmt.Errorf("invalid public key length: got %d, want %d", len(b), PublicKeySize)
	}
	copy(k[:], b)
	return k, nil
}

// ParsePublicKey parses the hexadecimal representation returned by Hex. An
// optional 0x prefix is accepted.
func ParsePublicKey(s string) (PublicKey, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	b, err := hex.DecodeString(s)
	if err != nil {
		return ZeroKey, err
	}
	return PublicKeyFromBytes(b)
}

// MustParsePublicKey is like ParsePublicKey but panics on error.
func MustParsePublicKey(s string) PublicKey {
	k, err := ParsePublicKey(s)
	if err != nil {
		panic(err)
	}
	return k
}

// RandomPublicKey returns a random key. It is used for credential ids and
// test fixtures, never as signing material.
func RandomPublicKey() PublicKey {
	var k PublicKey
	if _, err := rand.Read(k[:]); err != nil {
		panic(fmt.Errorf("failed to read random bytes: %v", err))
	}
	return k
}

// Bytes returns a copy of the key bytes.
func (k PublicKey) Bytes() []byte {
	b := make([]byte, PublicKeySize)
	copy(b, k[:])
	return b
}

// Hex returns the lowercase hexadecimal representation of the key.
func (k PublicKey) Hex() string {
	return hex.EncodeToString(k[:])
}

// String returns a truncated form suitable for logs.
func (k PublicKey) String() string {
	return k.Hex()[:8]
}

// Equals ...
func (k PublicKey) Equals(other PublicKey) bool {
	return k == other
}

// IsZero reports whether k is the zero key.
func (k PublicKey) IsZero() bool {
	return k == ZeroKey
}

// CodecEncodeSelf encodes the key as a hex string. The zero key is encoded as
// an empty string.
func (k *PublicKey) CodecEncodeSelf(e *codec.Encoder) {
	if k.IsZero() {
		e.MustEncode("")
		return
	}
	e.MustEncode(k.Hex())
}

// CodecDecodeSelf decodes a key encoded by CodecEncodeSelf.
func (k *PublicKey) CodecDecodeSelf(d *codec.Decoder) {
	var s string
	d.MustDecode(&s)
	if s == "" {
		*k = ZeroKey
		return
	}
	parsed, err := ParsePublicKey(s)
	if err != nil {
		panic(err)
	}
	*k = parsed
}
