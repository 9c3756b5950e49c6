package dice

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// RollOutcome holds the full audit trail for a single resolution.
//
// Invariants:
//   - BaseTotal == sum(UsedRolls).
//   - FinalResult == BaseTotal + Config.Modifier.
//   - AllRawRolls holds every draw in order after the per-die clamp, including
//     reroll replacements. Without advantage or selection it equals UsedRolls.
type RollOutcome struct {
	Config        RollConfig `json:"config" yaml:"config"`
	AllRawRolls   []int      `json:"all_raw_rolls" yaml:"all_raw_rolls"`
	UsedRolls     []int      `json:"used_rolls" yaml:"used_rolls"`
	DroppedRolls  []int      `json:"dropped_rolls" yaml:"dropped_rolls"`
	RerolledRolls []int      `json:"rerolled_rolls" yaml:"rerolled_rolls"`
	BaseTotal     int        `json:"base_total" yaml:"base_total"`
	FinalResult   int        `json:"final_result" yaml:"final_result"`
	Timestamp     time.Time  `json:"timestamp" yaml:"timestamp"`
}

func (o *RollOutcome) total() {
	o.BaseTotal = 0
	for _, v := range o.UsedRolls {
		o.BaseTotal += v
	}
	o.FinalResult = o.BaseTotal + o.Config.Modifier
}

// String returns a human-readable summary in the format:
//
//	"4d6dl1 = 11 [2 5 4] (dropped: 1)"
func (o RollOutcome) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s = %d %v", o.Config.Notation(), o.FinalResult, o.UsedRolls)
	if len(o.DroppedRolls) > 0 {
		fmt.Fprintf(&b, " (dropped: %s)", joinInts(o.DroppedRolls))
	}
	if len(o.RerolledRolls) > 0 {
		fmt.Fprintf(&b, " (rerolled: %s)", joinInts(o.RerolledRolls))
	}
	return b.String()
}

func joinInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ", ")
}

// normalize replaces nil buckets with empty slices so decoded outcomes
// compare equal to freshly resolved ones.
func (o *RollOutcome) normalize() {
	for _, s := range []*[]int{&o.AllRawRolls, &o.UsedRolls, &o.DroppedRolls, &o.RerolledRolls} {
		if *s == nil {
			*s = []int{}
		}
	}
}

type outcomeAlias RollOutcome

// UnmarshalJSON decodes an outcome, normalizing empty buckets.
func (o *RollOutcome) UnmarshalJSON(data []byte) error {
	var a outcomeAlias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*o = RollOutcome(a)
	o.normalize()
	return nil
}

// UnmarshalYAML decodes an outcome, normalizing empty buckets.
func (o *RollOutcome) UnmarshalYAML(node *yaml.Node) error {
	var a outcomeAlias
	if err := node.Decode(&a); err != nil {
		return err
	}
	*o = RollOutcome(a)
	o.normalize()
	return nil
}
