package render

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cory-johannsen/dicebag/internal/game/dice"
	"github.com/cory-johannsen/dicebag/internal/game/preset"
	"github.com/cory-johannsen/dicebag/internal/game/rolllog"
)

// TimeLayout is the clock format used in log listings.
const TimeLayout = "15:04:05"

// Renderer formats domain values for a terminal. A zero Renderer emits plain text.
type Renderer struct {
	color bool
}

// New returns a Renderer; color selects ANSI styling.
func New(color bool) Renderer {
	return Renderer{color: color}
}

func (r Renderer) paint(color, text string) string {
	if !r.color {
		return text
	}
	return Colorize(color, text)
}

// CategoryColor returns the color used for c: red for damage, green for
// healing, blue otherwise.
func CategoryColor(c rolllog.Category) string {
	switch c {
	case rolllog.CategoryDamage:
		return Red
	case rolllog.CategoryHealing:
		return Green
	default:
		return Blue
	}
}

func joinInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, " ")
}

// Outcome renders the one-line summary of o with the final result emphasised.
func (r Renderer) Outcome(o dice.RollOutcome) string {
	var b strings.Builder
	b.WriteString(o.Config.Notation())
	b.WriteString(" = ")
	b.WriteString(r.paint(Bold, strconv.Itoa(o.FinalResult)))
	fmt.Fprintf(&b, " [%s]", joinInts(o.UsedRolls))
	if len(o.DroppedRolls) > 0 {
		b.WriteString(" " + r.paint(BrightBlack, "(dropped: "+joinInts(o.DroppedRolls)+")"))
	}
	if len(o.RerolledRolls) > 0 {
		b.WriteString(" " + r.paint(BrightBlack, "(rerolled: "+joinInts(o.RerolledRolls)+")"))
	}
	return b.String()
}

// Breakdown renders every bucket of o on its own line.
func (r Renderer) Breakdown(o dice.RollOutcome) string {
	var b strings.Builder
	fmt.Fprintf(&b, "  %-9s %s\n", "rolled:", joinInts(o.AllRawRolls))
	fmt.Fprintf(&b, "  %-9s %s\n", "kept:", joinInts(o.UsedRolls))
	if len(o.DroppedRolls) > 0 {
		fmt.Fprintf(&b, "  %-9s %s\n", "dropped:", joinInts(o.DroppedRolls))
	}
	if len(o.RerolledRolls) > 0 {
		fmt.Fprintf(&b, "  %-9s %s\n", "rerolled:", joinInts(o.RerolledRolls))
	}
	if o.Config.Modifier != 0 {
		fmt.Fprintf(&b, "  %-9s %+d\n", "modifier:", o.Config.Modifier)
	}
	fmt.Fprintf(&b, "  %-9s %s\n", "total:", r.paint(Bold, strconv.Itoa(o.FinalResult)))
	return b.String()
}

// Entry renders a log entry as "HH:MM:SS Category · Label  outcome", with the
// note on a second line when present.
func (r Renderer) Entry(e rolllog.LoggedRoll) string {
	heading := e.Category.Title()
	if e.Label != "" {
		heading += " · " + e.Label
	}
	line := fmt.Sprintf("%s %s  %s",
		r.paint(Dim, e.Outcome.Timestamp.Local().Format(TimeLayout)),
		r.paint(CategoryColor(e.Category), heading),
		r.Outcome(e.Outcome),
	)
	if e.Note != "" {
		line += "\n    " + r.paint(Dim, e.Note)
	}
	return line
}

// Log renders entries, newest first, one per line.
func (r Renderer) Log(entries []rolllog.LoggedRoll) string {
	if len(entries) == 0 {
		return r.paint(Dim, "no rolls yet") + "\n"
	}
	var b strings.Builder
	for _, e := range entries {
		b.WriteString(r.Entry(e))
		b.WriteByte('\n')
	}
	return b.String()
}

// Presets renders the full preset list. Featured presets are marked with
// their slot number; custom-die presets show the current die size.
func (r Renderer) Presets(all, featured []preset.Preset, customDieSides int) string {
	slots := make(map[string]int, len(featured))
	for i, p := range featured {
		slots[p.ID] = i
	}

	var b strings.Builder
	for _, p := range all {
		marker := "   "
		if slot, ok := slots[p.ID]; ok {
			marker = r.paint(Yellow, fmt.Sprintf("*%d ", slot))
		}
		cfg := p.Config
		if p.CustomDie {
			cfg = cfg.WithSides(customDieSides)
		}
		kind := ""
		if !p.BuiltIn {
			kind = " " + r.paint(Cyan, "(custom)")
		}
		fmt.Fprintf(&b, "%s%-18s %-26s %s%s\n",
			marker, p.ID, p.Name, r.paint(CategoryColor(p.Category), cfg.Notation()), kind)
	}
	return b.String()
}
