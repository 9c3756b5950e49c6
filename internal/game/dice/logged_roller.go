package dice

import (
	"time"

	"go.uber.org/zap"
)

// Roller wraps a Source and logger to provide logged roll resolution.
// Every resolution is logged at debug level with its notation, every bucket and the result.
type Roller struct {
	src    Source
	logger *zap.Logger
	now    func() time.Time
}

// NewLoggedRoller creates a Roller that rolls with src and logs each roll to logger.
//
// Precondition: src and logger must be non-nil.
func NewLoggedRoller(src Source, logger *zap.Logger) *Roller {
	return &Roller{src: src, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// WithClock returns a copy of r that stamps outcomes using now.
func (r *Roller) WithClock(now func() time.Time) *Roller {
	cp := *r
	cp.now = now
	return &cp
}

// Roll resolves cfg and logs the outcome at debug level.
//
// Postcondition: Returns the RollOutcome, or the validation error of cfg.
func (r *Roller) Roll(cfg RollConfig) (RollOutcome, error) {
	out, err := ResolveAt(cfg, r.src, r.now())
	if err != nil {
		r.logger.Debug("dice roll rejected",
			zap.String("notation", cfg.Notation()),
			zap.Error(err),
		)
		return RollOutcome{}, err
	}
	r.logger.Debug("dice roll",
		zap.String("notation", cfg.Notation()),
		zap.Ints("raw", out.AllRawRolls),
		zap.Ints("used", out.UsedRolls),
		zap.Ints("dropped", out.DroppedRolls),
		zap.Ints("rerolled", out.RerolledRolls),
		zap.Int("modifier", cfg.Modifier),
		zap.Int("total", out.FinalResult),
	)
	return out, nil
}

// RollNotation parses expr and rolls it, logging the result.
//
// Precondition: expr must be a valid dice expression string.
// Postcondition: Returns a RollOutcome or a parse/validation error.
func (r *Roller) RollNotation(expr string) (RollOutcome, error) {
	cfg, err := Parse(expr)
	if err != nil {
		return RollOutcome{}, err
	}
	return r.Roll(cfg)
}
