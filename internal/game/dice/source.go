package dice

import (
	"crypto/rand"
	"fmt"
	"math/big"
	randv2 "math/rand/v2"
	"sync"
)

// cryptoSource implements Source using crypto/rand.
//
// Invariant: All values produced are uniformly distributed in [0, n) for any n > 0.
type cryptoSource struct{}

// NewCryptoSource returns a Source backed by crypto/rand.
//
// Postcondition: Every value returned by Intn is in [0, n).
func NewCryptoSource() Source {
	return &cryptoSource{}
}

// Intn returns a random int in [0, n).
//
// Precondition: n > 0. Panics with "dice: Intn called with n <= 0" if n <= 0.
// Panics with "dice: crypto/rand failure: <err>" if crypto/rand fails.
func (c *cryptoSource) Intn(n int) int {
	if n <= 0 {
		panic("dice: Intn called with n <= 0")
	}
	val, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		panic("dice: crypto/rand failure: " + err.Error())
	}
	return int(val.Int64())
}

// seededSource is a reproducible PCG-backed Source.
type seededSource struct {
	mu  sync.Mutex
	rng *randv2.Rand
}

// NewSeededSource returns a deterministic Source; equal seeds yield equal sequences.
//
// Postcondition: Every value returned by Intn is in [0, n).
func NewSeededSource(seed uint64) Source {
	return &seededSource{rng: randv2.New(randv2.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Intn returns a pseudo-random int in [0, n).
//
// Precondition: n > 0.
func (s *seededSource) Intn(n int) int {
	if n <= 0 {
		panic("dice: Intn called with n <= 0")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.IntN(n)
}

// SequenceSource replays a fixed list of die faces, one per Intn call.
// It is used to reproduce recorded outcomes and to drive tests.
type SequenceSource struct {
	mu    sync.Mutex
	faces []int
	next  int
	// fits reports whether face may be drawn from a die of n sides.
	fits func(face, n int) bool
}

// NewSequenceSource returns a Source that yields faces in order.
// Each face f is returned from Intn(n) as f-1, so the engine sees f.
func NewSequenceSource(faces ...int) *SequenceSource {
	cp := make([]int, len(faces))
	copy(cp, faces)
	return &SequenceSource{faces: cp, fits: inRange}
}

func inRange(face, n int) bool { return face >= 1 && face <= n }

// newReplaySource returns a SequenceSource for recorded draws of cfg. Under a
// clamp every recorded value is already clamped, so a face fits when it is
// something the clamp can produce from an in-range draw. Such faces are
// returned from Intn as face-1 even when that falls outside [0, n).
func newReplaySource(cfg RollConfig, faces []int) *SequenceSource {
	src := NewSequenceSource(faces...)
	if p, ok := cfg.Rule.(Pool); ok && p.Clamp != nil {
		c := *p.Clamp
		src.fits = func(face, n int) bool {
			return c.Apply(min(max(face, 1), n), n) == face
		}
	}
	return src
}

// Intn returns the next recorded face minus one.
//
// Precondition: a face remains and it lies in [1, n].
// Panics with an error wrapping ErrSourceExhausted or ErrFaceOutOfRange otherwise.
func (s *SequenceSource) Intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.next >= len(s.faces) {
		panic(fmt.Errorf("%w after %d draws", ErrSourceExhausted, s.next))
	}
	face := s.faces[s.next]
	if !s.fits(face, n) {
		panic(fmt.Errorf("%w: face %d at position %d does not fit a d%d", ErrFaceOutOfRange, face, s.next, n))
	}
	s.next++
	return face - 1
}

// Remaining reports how many faces have not been drawn yet.
func (s *SequenceSource) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.faces) - s.next
}
