// Package artgen derives a deterministic sprite from an x-only public key and
// encodes it as a bounded lossless WebP artifact.
package artgen

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2/schnorr"

	"github.com/stutxo/labitbu"
)

// Seed is the PRNG state derived from a public key.
type Seed [4]uint32

// DeriveSeed hashes the 32-byte x-only key and reads the first 16 bytes of
// the digest as four little-endian words.
func DeriveSeed(xonly []byte) (Seed, error) {
	if len(xonly) != schnorr.PubKeyBytesLen {
		return Seed{}, fmt.Errorf("%w: need %d-byte x-only pubkey, got %d",
			labitbu.ErrInvalidKeyEncoding, schnorr.PubKeyBytesLen, len(xonly))
	}
	digest := sha256.Sum256(xonly)
	var s Seed
	for i := range s {
		s[i] = binary.LittleEndian.Uint32(digest[i*4:])
	}
	return s, nil
}

// ID is the 64-bit prefix of the seed, used to name artifacts in logs.
func (s Seed) ID() uint64 {
	return uint64(s[0]) | uint64(s[1])<<32
}

func (s Seed) String() string {
	return fmt.Sprintf("%016x", s.ID())
}
