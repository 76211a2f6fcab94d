package crypto

import (
	"github.com/zeebo/blake3"
)

// HashSize is the size of the digests returned by Hash.
const HashSize = 32

// Hash returns the BLAKE3-256 digest of the data.
func Hash(data []byte) [HashSize]byte {
	return blake3.Sum256(data)
}

// HashFromTwoHashes returns the digest of the concatenation of left and right.
func HashFromTwoHashes(left []byte, right []byte) [HashSize]byte {
	hasher := blake3.New()
	hasher.Write(left)
	hasher.Write(right)

	var out [HashSize]byte
	copy(out[:], hasher.Sum(nil))
	return out
}
