// Package preset manages the named, reorderable quick-roll presets and the
// small featured subset surfaced for fast access.
package preset

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/dicebag/internal/game/dice"
	"github.com/cory-johannsen/dicebag/internal/game/rolllog"
)

// Preset is a named, taggable wrapper around a RollConfig.
//
// Precondition: ID and Name must be non-empty once registered.
type Preset struct {
	ID       string           `json:"id" yaml:"id"`
	Name     string           `json:"name" yaml:"name"`
	Tags     []string         `json:"tags,omitempty" yaml:"tags,omitempty"`
	Category rolllog.Category `json:"category,omitempty" yaml:"category,omitempty"`
	Config   dice.RollConfig  `json:"config" yaml:"config"`
	// BuiltIn presets ship with the application and cannot be removed.
	BuiltIn bool `json:"builtin,omitempty" yaml:"builtin,omitempty"`
	// CustomDie presets roll the registry's configurable custom die size
	// instead of Config.Sides.
	CustomDie bool `json:"custom_die,omitempty" yaml:"custom_die,omitempty"`
}

func (p Preset) clone() Preset {
	p.Tags = slices.Clone(p.Tags)
	p.Config = p.Config.Clone()
	return p
}

// HasTag reports whether p carries tag, ignoring case.
func (p Preset) HasTag(tag string) bool {
	for _, t := range p.Tags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

// validate checks p against the custom die size it would roll with.
func (p Preset) validate(customDieSides int) error {
	if strings.TrimSpace(p.ID) == "" {
		return fmt.Errorf("%w: id must not be empty", ErrInvalidPreset)
	}
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: preset %q: name must not be empty", ErrInvalidPreset, p.ID)
	}
	if p.Category != "" && !p.Category.Valid() {
		return fmt.Errorf("%w: preset %q: unknown category %q", ErrInvalidPreset, p.ID, p.Category)
	}
	cfg := p.Config
	if p.CustomDie {
		cfg = cfg.WithSides(customDieSides)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("%w: preset %q: %w", ErrInvalidPreset, p.ID, err)
	}
	return nil
}

//go:embed defaults.yaml
var defaultsYAML []byte

// DefaultPresets returns the built-in presets shipped with the application.
//
// Postcondition: Every returned preset has BuiltIn set.
func DefaultPresets() ([]Preset, error) {
	return ParseDefinitions(defaultsYAML)
}

// ParseDefinitions parses a YAML sequence of presets and marks each built in.
func ParseDefinitions(data []byte) ([]Preset, error) {
	var presets []Preset
	if err := yaml.Unmarshal(data, &presets); err != nil {
		return nil, fmt.Errorf("preset: parsing definitions: %w", err)
	}
	for i := range presets {
		presets[i].BuiltIn = true
	}
	return presets, nil
}

// LoadDefinitions reads every .yaml file in dir, in name order, and returns
// the concatenated built-in presets.
//
// Precondition: dir must be a readable directory path.
// Postcondition: Returns all parsed presets (may be empty) or a non-nil error.
func LoadDefinitions(dir string) ([]Preset, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading directory %s: %w", dir, err)
	}
	var out []Preset
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !(strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml")) {
			continue
		}
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		presets, err := ParseDefinitions(data)
		if err != nil {
			return nil, fmt.Errorf("parsing preset file %s: %w", path, err)
		}
		out = append(out, presets...)
	}
	return out, nil
}

var (
	// ErrPresetNotFound is returned when no preset has the requested ID.
	ErrPresetNotFound = errors.New("preset not found")
	// ErrBuiltInPreset is returned when a built-in preset would be edited or removed.
	ErrBuiltInPreset = errors.New("built-in presets cannot be modified")
	// ErrDuplicatePreset is returned when a preset ID is already registered.
	ErrDuplicatePreset = errors.New("preset id already registered")
	// ErrInvalidPreset is returned when a preset fails validation.
	ErrInvalidPreset = errors.New("invalid preset")
	// ErrInvalidOrder is returned when a reorder is not a permutation of the current presets.
	ErrInvalidOrder = errors.New("order must list every preset exactly once")
	// ErrFeaturedSlot is returned for a negative or out-of-range featured slot.
	ErrFeaturedSlot = errors.New("featured slot out of range")
	// ErrFeaturedFull is returned when appending to a featured list already at its slot count.
	ErrFeaturedFull = errors.New("featured slots are full")
	// ErrFeaturedRequired is returned when an operation would leave no featured preset.
	ErrFeaturedRequired = errors.New("at least one preset must stay featured")
	// ErrInvalidSettings is returned for out-of-range registry settings.
	ErrInvalidSettings = errors.New("invalid preset settings")
)
