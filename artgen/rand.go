package artgen

import "math/bits"

// Rand is a xoshiro128+ generator. Its output sequence for a given Seed is
// fixed so traits can be recomputed by any other implementation.
type Rand struct {
	s [4]uint32
}

// NewRand returns a generator positioned at the start of seed's sequence.
func NewRand(seed Seed) *Rand {
	return &Rand{s: seed}
}

// Float64 returns the next value in [0, 1).
func (r *Rand) Float64() float64 {
	s := &r.s
	res := s[0] + s[3]
	t := s[1] << 9

	s[2] ^= s[0]
	s[3] ^= s[1]
	s[1] ^= s[2]
	s[0] ^= s[3]
	s[2] ^= t
	s[3] = bits.RotateLeft32(s[3], 11)

	return float64(res) / 4294967296.0
}

// Intn returns floor(Float64()*n). n must be positive.
func (r *Rand) Intn(n int) int {
	if n <= 0 {
		panic("artgen: Intn called with non-positive n")
	}
	return int(r.Float64() * float64(n))
}
