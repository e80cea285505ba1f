package commit

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"

	"github.com/stutxo/labitbu"
)

// MaxNUMSIterations bounds the counter search in NUMSKey. Each candidate
// succeeds with probability close to one half.
const MaxNUMSIterations = 1 << 16

// NUMSKey derives an internal key nobody knows the discrete log of. It hashes
// tag || uint32_be(counter) for counter = 0, 1, ... and returns the first
// digest that is a valid x coordinate, lifted to the even-y point.
func NUMSKey(tag string) (*btcec.PublicKey, error) {
	buf := make([]byte, len(tag)+4)
	copy(buf, tag)
	for counter := uint32(0); counter < MaxNUMSIterations; counter++ {
		binary.BigEndian.PutUint32(buf[len(tag):], counter)
		digest := sha256.Sum256(buf)

		var x, y secp256k1.FieldVal
		if overflow := x.SetByteSlice(digest[:]); overflow { // x >= p
			continue
		}
		if !secp256k1.DecompressY(&x, false, &y) {
			continue
		}
		y.Normalize()
		return secp256k1.NewPublicKey(&x, &y), nil
	}
	return nil, fmt.Errorf("no valid x coordinate for tag %q in %d attempts",
		tag, MaxNUMSIterations)
}

var numsKey = func() *btcec.PublicKey {
	k, err := NUMSKey(labitbu.DomainTag)
	if err != nil {
		panic(err)
	}
	return k
}()

// InternalKey returns the NUMS key for labitbu.DomainTag.
func InternalKey() *btcec.PublicKey {
	return numsKey
}
