// Package dice provides the randomness abstraction, roll configuration and
// the roll resolution engine for the dicebag roller.
package dice

import "errors"

// StandardSides lists the conventional die families, smallest first.
var StandardSides = []int{4, 6, 8, 10, 12, 20, 100}

// Source is the randomness provider for dice rolls.
//
// Implementations MUST be safe for concurrent use.
type Source interface {
	// Intn returns a non-negative random int in [0, n).
	//
	// Precondition: n > 0.
	Intn(n int) int
}

// rollDie draws one face in [1, sides] from src.
func rollDie(src Source, sides int) int {
	return src.Intn(sides) + 1
}

var (
	// ErrSourceExhausted is the panic value of a SequenceSource with no faces left.
	ErrSourceExhausted = errors.New("dice: sequence source exhausted")
	// ErrFaceOutOfRange is the panic value of a SequenceSource asked for a die smaller than its next face.
	ErrFaceOutOfRange = errors.New("dice: sequence face out of range")
	// ErrUnconsumedRolls is returned by Replay when recorded draws were left over.
	ErrUnconsumedRolls = errors.New("dice: replay left recorded rolls unconsumed")
	// ErrOutcomeMismatch is returned by Verify when a replay disagrees with the recorded outcome.
	ErrOutcomeMismatch = errors.New("dice: outcome does not match its recorded rolls")
)
