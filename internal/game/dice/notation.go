package dice

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// notationPattern groups: 1 count, 2 sides, 3 adv|dis, 4 selection op,
// 5 selection count, 6 reroll floor, 7 clamp direction, 8 clamp bound, 9 modifier.
var notationPattern = regexp.MustCompile(
	`^(\d*)d(\d+)(?:(adv|dis)|(kh|kl|dl|dh|rl|rh)(\d+)(?:>(-?\d+))?)?(?:(min|max)(-?\d+))?([+-]\d+)?$`,
)

// Parse parses a dice notation string into a validated RollConfig.
// Supported forms:
//
//	"d20", "2d6+3", "4d8-2"      plain rolls
//	"d20adv", "2d20dis"          advantage / disadvantage
//	"4d6kh3", "4d6dl1", "4d6dh1" keep highest / drop lowest / drop highest
//	"4d6rl1", "4d6rl1>2"         reroll lowest once / until above 2
//	"3d6min2", "3d6max5"         per-die floor / ceiling
//
// Postcondition: Returns a RollConfig that passes Validate, or a descriptive error.
func Parse(expr string) (RollConfig, error) {
	if strings.TrimSpace(expr) == "" {
		return RollConfig{}, fmt.Errorf("dice: empty expression")
	}
	s := strings.ToLower(strings.Join(strings.Fields(expr), ""))
	m := notationPattern.FindStringSubmatch(s)
	if m == nil {
		return RollConfig{}, fmt.Errorf("dice: malformed expression %q", expr)
	}

	count := 1
	if m[1] != "" {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return RollConfig{}, fmt.Errorf("dice: invalid die count in %q: %w", expr, err)
		}
		count = n
	}
	sides, err := strconv.Atoi(m[2])
	if err != nil {
		return RollConfig{}, fmt.Errorf("dice: invalid die sides in %q: %w", expr, err)
	}
	cfg := RollConfig{Sides: sides, Count: count}

	if m[9] != "" {
		if cfg.Modifier, err = strconv.Atoi(m[9]); err != nil {
			return RollConfig{}, fmt.Errorf("dice: invalid modifier in %q: %w", expr, err)
		}
	}

	switch {
	case m[3] != "":
		if m[7] != "" {
			return RollConfig{}, fmt.Errorf("dice: %q: advantage rolls cannot be clamped", expr)
		}
		if m[1] != "" && count != 1 && count != 2 {
			return RollConfig{}, fmt.Errorf("dice: %q: advantage rolls exactly two dice", expr)
		}
		cfg.Count = 2
		cfg.Rule = Advantage{Mode: ModeAdvantage}
		if m[3] == "dis" {
			cfg.Rule = Advantage{Mode: ModeDisadvantage}
		}
	case m[4] != "" || m[7] != "":
		p, err := parsePool(expr, cfg, m)
		if err != nil {
			return RollConfig{}, err
		}
		cfg.Rule = p
	}

	if err := cfg.Validate(); err != nil {
		return RollConfig{}, fmt.Errorf("dice: %q: %w", expr, err)
	}
	return cfg, nil
}

func parsePool(expr string, cfg RollConfig, m []string) (Pool, error) {
	var p Pool
	if m[4] != "" {
		k, err := strconv.Atoi(m[5])
		if err != nil {
			return Pool{}, fmt.Errorf("dice: invalid %s value in %q: %w", m[4], expr, err)
		}
		sel := &Selection{Count: k}
		switch m[4] {
		case "kh", "kl":
			if k <= 0 || k >= cfg.Count {
				return Pool{}, fmt.Errorf("dice: %s value %d must be > 0 and < count %d in %q", m[4], k, cfg.Count, expr)
			}
			sel.Action, sel.Count = ActionDrop, cfg.Count-k
			sel.Target = TargetLowest
			if m[4] == "kl" {
				sel.Target = TargetHighest
			}
		case "dl", "dh":
			sel.Action, sel.Target = ActionDrop, TargetLowest
			if m[4] == "dh" {
				sel.Target = TargetHighest
			}
		case "rl", "rh":
			sel.Action, sel.Target = ActionReroll, TargetLowest
			if m[4] == "rh" {
				sel.Target = TargetHighest
			}
		}
		if m[6] != "" {
			if sel.Action != ActionReroll {
				return Pool{}, fmt.Errorf("dice: %q: only rerolls take a floor", expr)
			}
			if sel.Floor, err = strconv.Atoi(m[6]); err != nil {
				return Pool{}, fmt.Errorf("dice: invalid reroll floor in %q: %w", expr, err)
			}
			sel.UntilAboveFloor = true
		}
		p.Selection = sel
	}
	if m[7] != "" {
		bound, err := strconv.Atoi(m[8])
		if err != nil {
			return Pool{}, fmt.Errorf("dice: invalid clamp bound in %q: %w", expr, err)
		}
		if m[7] == "min" {
			p.Clamp = &Clamp{Direction: ClampMin, Offset: bound - 1}
		} else {
			p.Clamp = &Clamp{Direction: ClampMax, Offset: bound - cfg.Sides}
		}
	}
	return p, nil
}

// MustParse parses expr and panics on error. Useful for package-level values.
//
// Precondition: expr must be a valid dice expression.
func MustParse(expr string) RollConfig {
	c, err := Parse(expr)
	if err != nil {
		panic("dice: MustParse failed for expression " + expr + ": " + err.Error())
	}
	return c
}

// Notation renders c in the form accepted by Parse. A reroll floor that is
// not looped on carries no meaning and is omitted.
func (c RollConfig) Notation() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%dd%d", c.DiceCount(), c.Sides)
	switch r := c.Rule.(type) {
	case Advantage:
		if r.Mode == ModeDisadvantage {
			b.WriteString("dis")
		} else {
			b.WriteString("adv")
		}
	case Pool:
		if s := r.Selection; s != nil && s.Count > 0 {
			op := "d"
			if s.Action == ActionReroll {
				op = "r"
			}
			if s.Target == TargetHighest {
				op += "h"
			} else {
				op += "l"
			}
			fmt.Fprintf(&b, "%s%d", op, s.Count)
			if s.Action == ActionReroll && s.UntilAboveFloor {
				fmt.Fprintf(&b, ">%d", s.Floor)
			}
		}
		if r.Clamp != nil {
			fmt.Fprintf(&b, "%s%d", r.Clamp.Direction, r.Clamp.Bound(c.Sides))
		}
	}
	if c.Modifier != 0 {
		fmt.Fprintf(&b, "%+d", c.Modifier)
	}
	return b.String()
}
