package randutil

import (
	crand "crypto/rand"
	"encoding/binary"
	rand "math/rand/v2"
	"sync/atomic"
)

const (
	goldenRatio64 = 0x9e3779b97f4a7c15
)

// New returns a *rand.Rand seeded deterministically from the provided int64.
// The helper centralises how we derive the two 64-bit seeds required by rand/v2
// so that all call sites get reproducible sequences.
func New(seed int64) *rand.Rand {
	u := uint64(seed)
	return rand.New(rand.NewPCG(mix(u), mix(u+goldenRatio64)))
}

// Seeder hands out independent generators, one per room. A *rand.Rand is not
// safe for concurrent use, so rooms never share one.
type Seeder struct {
	base int64
	next atomic.Int64
}

// NewSeeder returns a Seeder rooted at seed. A zero seed draws a random root
// from crypto/rand.
func NewSeeder(seed int64) *Seeder {
	if seed == 0 {
		seed = RandomSeed()
	}
	return &Seeder{base: seed}
}

// Next returns a fresh generator derived from the root seed and a counter.
func (s *Seeder) Next() *rand.Rand {
	n := s.next.Add(1)
	return New(int64(mix(uint64(s.base) ^ mix(uint64(n)))))
}

// Base returns the root seed, useful for logging and replays.
func (s *Seeder) Base() int64 {
	return s.base
}

// RandomSeed returns a non-zero seed from crypto/rand.
func RandomSeed() int64 {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		panic("randutil: crypto/rand failed: " + err.Error())
	}
	seed := int64(binary.LittleEndian.Uint64(b[:]) &^ (1 << 63))
	if seed == 0 {
		seed = 1
	}
	return seed
}

func mix(x uint64) uint64 {
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31
	return x
}
