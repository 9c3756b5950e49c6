package dice

import (
	"errors"
	"fmt"
)

// AdvantageMode selects which of the two dice an Advantage rule keeps.
type AdvantageMode string

const (
	// ModeAdvantage keeps the higher die.
	ModeAdvantage AdvantageMode = "advantage"
	// ModeDisadvantage keeps the lower die.
	ModeDisadvantage AdvantageMode = "disadvantage"
)

// ClampDirection selects whether a Clamp raises low dice or lowers high dice.
type ClampDirection string

const (
	// ClampMin raises every die below 1+Offset to 1+Offset.
	ClampMin ClampDirection = "min"
	// ClampMax lowers every die above Sides+Offset to Sides+Offset.
	ClampMax ClampDirection = "max"
)

// SelectionAction is what happens to the selected extreme dice.
type SelectionAction string

const (
	// ActionDrop removes the selected dice without replacement.
	ActionDrop SelectionAction = "drop"
	// ActionReroll removes the selected dice and draws replacements.
	ActionReroll SelectionAction = "reroll"
)

// SelectionTarget chooses which end of the sorted pool is selected.
type SelectionTarget string

const (
	TargetLowest  SelectionTarget = "lowest"
	TargetHighest SelectionTarget = "highest"
)

var (
	// ErrInvalidSides indicates a die with fewer than two sides.
	ErrInvalidSides = errors.New("die must have at least 2 sides")
	// ErrInvalidCount indicates a roll of fewer than one die.
	ErrInvalidCount = errors.New("at least one die must be rolled")
	// ErrSelectionCount indicates a drop/reroll count outside [0, dice count).
	ErrSelectionCount = errors.New("selection count must be >= 0 and below the dice count")
	// ErrUnreachableFloor indicates a reroll-until-above floor no die face can exceed.
	ErrUnreachableFloor = errors.New("reroll floor can never be exceeded")
	// ErrInvalidRule indicates an unknown enum value or an impossible rule combination.
	ErrInvalidRule = errors.New("invalid roll rule")
)

// ConfigError describes a structurally invalid RollConfig.
// Errors.Is matches the wrapped sentinel.
type ConfigError struct {
	Field  string
	Err    error
	Detail string
}

func (e *ConfigError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("dice: invalid %s: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("dice: invalid %s: %v (%s)", e.Field, e.Err, e.Detail)
}

func (e *ConfigError) Unwrap() error { return e.Err }

func configErr(field string, err error, format string, args ...any) error {
	return &ConfigError{Field: field, Err: err, Detail: fmt.Sprintf(format, args...)}
}

// Rule is an optional rule attached to a RollConfig. It is implemented only
// by Advantage and Pool, which are mutually exclusive by construction.
type Rule interface {
	isRule()
}

// Advantage rolls exactly two dice and keeps one of them, whatever
// RollConfig.Count says. Clamping and drop/reroll selection never apply to
// an Advantage roll.
type Advantage struct {
	Mode AdvantageMode
}

func (Advantage) isRule() {}

// Pool carries the per-die rules for an ordinary N-dice roll.
// Either field may be nil.
type Pool struct {
	Clamp     *Clamp
	Selection *Selection
}

func (Pool) isRule() {}

// Clamp is a floor or ceiling applied to each individual die.
type Clamp struct {
	Direction ClampDirection `json:"direction" yaml:"direction"`
	Offset    int            `json:"offset" yaml:"offset"`
}

// Bound returns the floor (ClampMin) or ceiling (ClampMax) for a die of the given size.
func (c Clamp) Bound(sides int) int {
	if c.Direction == ClampMax {
		return sides + c.Offset
	}
	return 1 + c.Offset
}

// Apply clamps a single die value.
//
// Postcondition: Apply(Apply(v, s), s) == Apply(v, s).
func (c Clamp) Apply(value, sides int) int {
	bound := c.Bound(sides)
	switch c.Direction {
	case ClampMin:
		if value < bound {
			return bound
		}
	case ClampMax:
		if value > bound {
			return bound
		}
	}
	return value
}

// ApplyAll returns a clamped copy of values.
func (c Clamp) ApplyAll(values []int, sides int) []int {
	out := make([]int, len(values))
	for i, v := range values {
		out[i] = c.Apply(v, sides)
	}
	return out
}

// Selection removes the Count extreme dice from the pool, either dropping
// them or rerolling them.
type Selection struct {
	Action SelectionAction `json:"action" yaml:"action"`
	Target SelectionTarget `json:"target" yaml:"target"`
	Count  int             `json:"count" yaml:"count"`
	// Floor is only consulted when UntilAboveFloor is set: each replacement
	// die is redrawn until its clamped value exceeds Floor.
	Floor           int  `json:"floor,omitempty" yaml:"floor,omitempty"`
	UntilAboveFloor bool `json:"until_above_floor,omitempty" yaml:"until_above_floor,omitempty"`
}

// RollConfig is the immutable input to one resolution.
type RollConfig struct {
	Sides    int
	Count    int
	Modifier int
	Rule     Rule
}

// DiceCount returns the number of dice initially rolled. Advantage rolls always use two.
func (c RollConfig) DiceCount() int {
	if _, ok := c.Rule.(Advantage); ok {
		return 2
	}
	return c.Count
}

// WithSides returns a copy of c rolling dice of the given size.
func (c RollConfig) WithSides(sides int) RollConfig {
	c.Sides = sides
	return c
}

// clamp applies the pool clamp if one is configured.
func (p Pool) clamp(value, sides int) int {
	if p.Clamp == nil {
		return value
	}
	return p.Clamp.Apply(value, sides)
}

// Validate checks every structural invariant of the configuration.
//
// Postcondition: Returns nil, or a *ConfigError wrapping one of the package sentinels.
func (c RollConfig) Validate() error {
	if c.Sides < 2 {
		return configErr("sides", ErrInvalidSides, "got %d", c.Sides)
	}
	if c.DiceCount() < 1 {
		return configErr("count", ErrInvalidCount, "got %d", c.Count)
	}
	switch r := c.Rule.(type) {
	case nil:
		return nil
	case Advantage:
		if r.Mode != ModeAdvantage && r.Mode != ModeDisadvantage {
			return configErr("advantage", ErrInvalidRule, "unknown mode %q", r.Mode)
		}
		return nil
	case Pool:
		return c.validatePool(r)
	default:
		return configErr("rule", ErrInvalidRule, "unsupported rule %T", r)
	}
}

func (c RollConfig) validatePool(p Pool) error {
	if p.Clamp != nil && p.Clamp.Direction != ClampMin && p.Clamp.Direction != ClampMax {
		return configErr("clamp", ErrInvalidRule, "unknown direction %q", p.Clamp.Direction)
	}
	s := p.Selection
	if s == nil {
		return nil
	}
	if s.Action != ActionDrop && s.Action != ActionReroll {
		return configErr("selection", ErrInvalidRule, "unknown action %q", s.Action)
	}
	if s.Target != TargetLowest && s.Target != TargetHighest {
		return configErr("selection", ErrInvalidRule, "unknown target %q", s.Target)
	}
	if s.Count < 0 || s.Count >= c.Count {
		return configErr("selection.count", ErrSelectionCount, "got %d for %d dice", s.Count, c.Count)
	}
	if s.Action == ActionReroll && s.UntilAboveFloor && s.Count > 0 {
		// Clamp is monotone, so the clamped top face is the best a die can show.
		best := p.clamp(c.Sides, c.Sides)
		if s.Floor >= best {
			return configErr("selection.floor", ErrUnreachableFloor, "floor %d, best face %d", s.Floor, best)
		}
	}
	return nil
}
