package dice_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/dicebag/internal/game/dice"
)

// TestCryptoSource_Intn_InRange verifies the postcondition:
// every value returned by Intn(6) is in [0, 6).
func TestCryptoSource_Intn_InRange(t *testing.T) {
	src := dice.NewCryptoSource()
	for i := 0; i < 1000; i++ {
		v := src.Intn(6)
		assert.GreaterOrEqual(t, v, 0)
		assert.Less(t, v, 6)
	}
}

// TestCryptoSource_Intn_PanicsOnZero verifies the precondition:
// Intn panics when called with n <= 0.
func TestCryptoSource_Intn_PanicsOnZero(t *testing.T) {
	src := dice.NewCryptoSource()
	assert.Panics(t, func() { src.Intn(0) })
}

func TestSeededSource_SameSeedSameSequence(t *testing.T) {
	a := dice.NewSeededSource(42)
	b := dice.NewSeededSource(42)
	for i := 0; i < 100; i++ {
		require.Equal(t, a.Intn(20), b.Intn(20), "draw %d diverged", i)
	}
}

func TestSeededSource_Intn_PanicsOnZero(t *testing.T) {
	assert.Panics(t, func() { dice.NewSeededSource(1).Intn(0) })
}

func TestProperty_SeededSource_InRange(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		seed := rapid.Uint64().Draw(rt, "seed")
		n := rapid.IntRange(1, 1000).Draw(rt, "n")
		v := dice.NewSeededSource(seed).Intn(n)
		if v < 0 || v >= n {
			rt.Fatalf("Intn(%d) = %d out of range", n, v)
		}
	})
}

func TestSequenceSource_ReplaysFaces(t *testing.T) {
	src := dice.NewSequenceSource(3, 6, 1)
	assert.Equal(t, 2, src.Intn(6))
	assert.Equal(t, 5, src.Intn(6))
	assert.Equal(t, 1, src.Remaining())
	assert.Equal(t, 0, src.Intn(6))
	assert.Equal(t, 0, src.Remaining())
}

func TestSequenceSource_PanicsWhenExhausted(t *testing.T) {
	src := dice.NewSequenceSource(4)
	src.Intn(6)
	defer func() {
		r := recover()
		require.NotNil(t, r)
		err, ok := r.(error)
		require.True(t, ok)
		assert.True(t, errors.Is(err, dice.ErrSourceExhausted))
	}()
	src.Intn(6)
}

func TestSequenceSource_PanicsOnFaceTooLarge(t *testing.T) {
	src := dice.NewSequenceSource(8)
	defer func() {
		r := recover()
		require.NotNil(t, r)
		err, ok := r.(error)
		require.True(t, ok)
		assert.True(t, errors.Is(err, dice.ErrFaceOutOfRange))
	}()
	src.Intn(6)
}

func TestStandardSides(t *testing.T) {
	assert.Equal(t, []int{4, 6, 8, 10, 12, 20, 100}, dice.StandardSides)
}
