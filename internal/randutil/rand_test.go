package randutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewIsReproducible(t *testing.T) {
	a, b := New(7), New(7)
	for range 10 {
		assert.Equal(t, a.Uint64(), b.Uint64())
	}
}

func TestSeederHandsOutDistinctStreams(t *testing.T) {
	s1 := NewSeeder(99)
	s2 := NewSeeder(99)

	first, second := s1.Next(), s1.Next()
	assert.NotEqual(t, first.Uint64(), second.Uint64())

	// Same root, same order of Next calls, same streams.
	replay := s2.Next()
	assert.Equal(t, New(int64(mix(uint64(99)^mix(1)))).Uint64(), replay.Uint64())
	assert.Equal(t, int64(99), s1.Base())
}

func TestNewSeederRandomRoot(t *testing.T) {
	s := NewSeeder(0)
	assert.NotZero(t, s.Base())
	assert.Positive(t, RandomSeed())
}
