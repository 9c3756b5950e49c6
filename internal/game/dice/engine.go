package dice

import (
	"errors"
	"fmt"
	"slices"
	"time"
)

// Resolve evaluates cfg against src, stamping the outcome with the current UTC time.
//
// Precondition: src must be non-nil.
// Postcondition: Returns a RollOutcome satisfying FinalResult == sum(UsedRolls) + Modifier,
// or a *ConfigError when cfg is structurally invalid. No dice are drawn for an invalid cfg.
func Resolve(cfg RollConfig, src Source) (RollOutcome, error) {
	return ResolveAt(cfg, src, time.Now().UTC())
}

// ResolveAt is Resolve with an explicit timestamp. Given the same cfg and the
// same sequence of draws it always produces the same outcome.
//
// Tie-break: when several dice share a selected value, the earliest die in
// roll order is the one removed.
func ResolveAt(cfg RollConfig, src Source, at time.Time) (RollOutcome, error) {
	if err := cfg.Validate(); err != nil {
		return RollOutcome{}, err
	}
	out := RollOutcome{
		Config:        cfg.Clone(),
		AllRawRolls:   []int{},
		DroppedRolls:  []int{},
		RerolledRolls: []int{},
		Timestamp:     at,
	}

	if adv, ok := cfg.Rule.(Advantage); ok {
		first, second := rollDie(src, cfg.Sides), rollDie(src, cfg.Sides)
		out.AllRawRolls = append(out.AllRawRolls, first, second)
		keep, drop := first, second
		if (adv.Mode == ModeAdvantage && second > first) || (adv.Mode == ModeDisadvantage && second < first) {
			keep, drop = second, first
		}
		out.UsedRolls = []int{keep}
		out.DroppedRolls = append(out.DroppedRolls, drop)
		out.total()
		return out, nil
	}

	pool, _ := cfg.Rule.(Pool)
	used := make([]int, 0, cfg.Count)
	for range cfg.Count {
		v := pool.clamp(rollDie(src, cfg.Sides), cfg.Sides)
		out.AllRawRolls = append(out.AllRawRolls, v)
		used = append(used, v)
	}

	if sel := pool.Selection; sel != nil && cfg.Count > 1 && sel.Count > 0 {
		candidates := extremes(used, sel.Count, sel.Target)
		used = removeEach(used, candidates)
		switch sel.Action {
		case ActionDrop:
			out.DroppedRolls = candidates
		case ActionReroll:
			out.RerolledRolls = candidates
			for range candidates {
				for {
					v := pool.clamp(rollDie(src, cfg.Sides), cfg.Sides)
					out.AllRawRolls = append(out.AllRawRolls, v)
					if !sel.UntilAboveFloor || v > sel.Floor {
						used = append(used, v)
						break
					}
				}
			}
		}
	}

	out.UsedRolls = used
	out.total()
	return out, nil
}

// extremes returns the k lowest or highest values of pool, ascending.
func extremes(pool []int, k int, target SelectionTarget) []int {
	sorted := slices.Clone(pool)
	slices.Sort(sorted)
	if target == TargetHighest {
		return sorted[len(sorted)-k:]
	}
	return sorted[:k]
}

// removeEach removes one occurrence of every value in values from pool,
// taking the first match in pool order each time.
func removeEach(pool, values []int) []int {
	out := slices.Clone(pool)
	for _, v := range values {
		if i := slices.Index(out, v); i >= 0 {
			out = slices.Delete(out, i, i+1)
		}
	}
	return out
}

// Replay re-resolves cfg using raw as the exact sequence of die faces drawn.
// Clamped configs accept the clamped values recorded in AllRawRolls, which
// may lie outside [1, Sides] when the clamp bound does.
//
// Postcondition: Returns the reproduced outcome, or an error wrapping
// ErrSourceExhausted, ErrFaceOutOfRange or ErrUnconsumedRolls when raw does
// not describe a complete resolution of cfg.
func Replay(cfg RollConfig, raw []int, at time.Time) (out RollOutcome, err error) {
	src := newReplaySource(cfg, raw)
	defer func() {
		if r := recover(); r != nil {
			e, ok := r.(error)
			if !ok || !(errors.Is(e, ErrSourceExhausted) || errors.Is(e, ErrFaceOutOfRange)) {
				panic(r)
			}
			out, err = RollOutcome{}, fmt.Errorf("dice: replaying %s: %w", cfg.Notation(), e)
		}
	}()
	out, err = ResolveAt(cfg, src, at)
	if err != nil {
		return RollOutcome{}, err
	}
	if n := src.Remaining(); n > 0 {
		return RollOutcome{}, fmt.Errorf("dice: replaying %s: %w (%d left)", cfg.Notation(), ErrUnconsumedRolls, n)
	}
	return out, nil
}

// Verify checks that o is exactly what its Config produces from its AllRawRolls.
//
// Postcondition: Returns nil iff every classification bucket and total matches.
func Verify(o RollOutcome) error {
	replayed, err := Replay(o.Config, o.AllRawRolls, o.Timestamp)
	if err != nil {
		return err
	}
	switch {
	case !slices.Equal(replayed.UsedRolls, o.UsedRolls):
		return fmt.Errorf("%w: used %v, replay %v", ErrOutcomeMismatch, o.UsedRolls, replayed.UsedRolls)
	case !slices.Equal(replayed.DroppedRolls, o.DroppedRolls):
		return fmt.Errorf("%w: dropped %v, replay %v", ErrOutcomeMismatch, o.DroppedRolls, replayed.DroppedRolls)
	case !slices.Equal(replayed.RerolledRolls, o.RerolledRolls):
		return fmt.Errorf("%w: rerolled %v, replay %v", ErrOutcomeMismatch, o.RerolledRolls, replayed.RerolledRolls)
	case replayed.BaseTotal != o.BaseTotal || replayed.FinalResult != o.FinalResult:
		return fmt.Errorf("%w: total %d/%d, replay %d/%d", ErrOutcomeMismatch,
			o.BaseTotal, o.FinalResult, replayed.BaseTotal, replayed.FinalResult)
	}
	return nil
}
