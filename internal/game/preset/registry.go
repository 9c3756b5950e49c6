package preset

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cory-johannsen/dicebag/internal/game/dice"
)

const (
	// DefaultFeaturedSlots is the featured list size used when none is configured.
	DefaultFeaturedSlots = 4
	// DefaultCustomDieSides is the custom die size used when none is configured.
	DefaultCustomDieSides = 6
)

// Settings are the registry options supplied at construction.
type Settings struct {
	// FeaturedSlots is the maximum featured list length; 4 or 6.
	FeaturedSlots int `mapstructure:"featured_slots"`
	// CustomDieSides is the initial custom die size; at least 2.
	CustomDieSides int `mapstructure:"custom_die_sides"`
}

// DefaultSettings returns four featured slots and a six-sided custom die.
func DefaultSettings() Settings {
	return Settings{FeaturedSlots: DefaultFeaturedSlots, CustomDieSides: DefaultCustomDieSides}
}

// Validate reports out-of-range settings.
func (s Settings) Validate() error {
	if s.FeaturedSlots != 4 && s.FeaturedSlots != 6 {
		return fmt.Errorf("%w: featured_slots must be 4 or 6, got %d", ErrInvalidSettings, s.FeaturedSlots)
	}
	if s.CustomDieSides < 2 {
		return fmt.Errorf("%w: custom_die_sides must be at least 2, got %d", ErrInvalidSettings, s.CustomDieSides)
	}
	return nil
}

// Snapshot is the persisted form of a Registry.
type Snapshot struct {
	Presets        []Preset `json:"presets" yaml:"presets"`
	Featured       []string `json:"featured" yaml:"featured"`
	CustomDieSides int      `json:"custom_die_sides" yaml:"custom_die_sides"`
}

// Empty reports whether s holds nothing worth restoring.
func (s Snapshot) Empty() bool {
	return len(s.Presets) == 0 && len(s.Featured) == 0 && s.CustomDieSides == 0
}

// Store persists registry snapshots. LoadPresets returns an empty Snapshot
// when nothing has been saved yet.
type Store interface {
	LoadPresets(ctx context.Context) (Snapshot, error)
	SavePresets(ctx context.Context, snapshot Snapshot) error
}

// Registry holds the full ordered preset list and the featured subset.
// It is safe for concurrent use.
//
// Invariant: featured is non-empty whenever presets is non-empty, and every
// featured ID names a registered preset at most once.
type Registry struct {
	mu             sync.RWMutex
	settings       Settings
	defaults       []Preset
	presets        []Preset
	featured       []string
	customDieSides int
}

// NewRegistry builds a Registry holding defaults, in order, with the
// featured list seeded from the first FeaturedSlots presets.
//
// Precondition: settings must pass Validate; defaults must have unique IDs
// and valid configs.
// Postcondition: Returns a populated Registry or a non-nil error.
func NewRegistry(settings Settings, defaults []Preset) (*Registry, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	r := &Registry{settings: settings, customDieSides: settings.CustomDieSides}
	seen := make(map[string]bool, len(defaults))
	for _, p := range defaults {
		if err := p.validate(settings.CustomDieSides); err != nil {
			return nil, err
		}
		if seen[p.ID] {
			return nil, fmt.Errorf("%w: %q", ErrDuplicatePreset, p.ID)
		}
		seen[p.ID] = true
		p = p.clone()
		p.BuiltIn = true
		r.defaults = append(r.defaults, p)
	}
	r.presets = make([]Preset, 0, len(r.defaults))
	for _, p := range r.defaults {
		r.presets = append(r.presets, p.clone())
	}
	r.seedFeatured()
	return r, nil
}

// Settings returns the settings the registry was built with.
func (r *Registry) Settings() Settings { return r.settings }

func (r *Registry) indexOf(id string) int {
	return slices.IndexFunc(r.presets, func(p Preset) bool { return p.ID == id })
}

// seedFeatured fills an empty featured list from the head of the preset list.
//
// Precondition: caller holds r.mu for writing.
func (r *Registry) seedFeatured() {
	if len(r.featured) > 0 {
		return
	}
	n := min(len(r.presets), r.settings.FeaturedSlots)
	r.featured = make([]string, 0, r.settings.FeaturedSlots)
	for _, p := range r.presets[:n] {
		r.featured = append(r.featured, p.ID)
	}
}

// ListAll returns a copy of every preset in display order.
func (r *Registry) ListAll() []Preset {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Preset, 0, len(r.presets))
	for _, p := range r.presets {
		out = append(out, p.clone())
	}
	return out
}

// Get returns the preset with the given ID.
func (r *Registry) Get(id string) (Preset, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	i := r.indexOf(id)
	if i < 0 {
		return Preset{}, false
	}
	return r.presets[i].clone(), true
}

// Featured returns the featured presets in slot order.
func (r *Registry) Featured() []Preset {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Preset, 0, len(r.featured))
	for _, id := range r.featured {
		if i := r.indexOf(id); i >= 0 {
			out = append(out, r.presets[i].clone())
		}
	}
	return out
}

// AddCustom appends a user preset to the end of the list. An empty ID is
// replaced with a fresh UUID; BuiltIn is always cleared.
//
// Postcondition: Returns the stored preset, or an error leaving the registry unchanged.
func (r *Registry) AddCustom(p Preset) (Preset, error) {
	p = p.clone()
	p.BuiltIn = false
	if p.ID == "" {
		p.ID = uuid.New().String()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := p.validate(r.customDieSides); err != nil {
		return Preset{}, err
	}
	if r.indexOf(p.ID) >= 0 {
		return Preset{}, fmt.Errorf("%w: %q", ErrDuplicatePreset, p.ID)
	}
	r.presets = append(r.presets, p)
	r.seedFeatured()
	return p.clone(), nil
}

// UpdateCustom replaces the user preset with p.ID, keeping its position.
func (r *Registry) UpdateCustom(p Preset) error {
	p = p.clone()
	p.BuiltIn = false

	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.indexOf(p.ID)
	if i < 0 {
		return fmt.Errorf("%w: %q", ErrPresetNotFound, p.ID)
	}
	if r.presets[i].BuiltIn {
		return fmt.Errorf("%w: %q", ErrBuiltInPreset, p.ID)
	}
	if err := p.validate(r.customDieSides); err != nil {
		return err
	}
	r.presets[i] = p
	return nil
}

// RemoveCustom deletes the user preset with the given ID and drops it from
// the featured list, reseeding that list if it empties.
//
// Postcondition: On error the registry is unchanged.
func (r *Registry) RemoveCustom(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.indexOf(id)
	if i < 0 {
		return fmt.Errorf("%w: %q", ErrPresetNotFound, id)
	}
	if r.presets[i].BuiltIn {
		return fmt.Errorf("%w: %q", ErrBuiltInPreset, id)
	}
	r.presets = slices.Delete(r.presets, i, i+1)
	r.featured = slices.DeleteFunc(r.featured, func(f string) bool { return f == id })
	r.seedFeatured()
	return nil
}

// SetFeatured places the preset id at slot. A slot at or past the end of the
// featured list appends, provided a slot is free. If id is already featured
// it trades places with the occupant of slot, or moves to the end when
// appending.
func (r *Registry) SetFeatured(id string, slot int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if slot < 0 {
		return fmt.Errorf("%w: %d", ErrFeaturedSlot, slot)
	}
	if r.indexOf(id) < 0 {
		return fmt.Errorf("%w: %q", ErrPresetNotFound, id)
	}

	current := slices.Index(r.featured, id)
	switch {
	case current >= 0 && slot < len(r.featured):
		r.featured[current], r.featured[slot] = r.featured[slot], r.featured[current]
	case current >= 0:
		r.featured = append(slices.Delete(r.featured, current, current+1), id)
	case slot < len(r.featured):
		r.featured[slot] = id
	case len(r.featured) >= r.settings.FeaturedSlots:
		return ErrFeaturedFull
	default:
		r.featured = append(r.featured, id)
	}
	return nil
}

// UnsetFeatured removes the preset at slot from the featured list. The last
// featured preset cannot be removed while any preset exists.
func (r *Registry) UnsetFeatured(slot int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if slot < 0 || slot >= len(r.featured) {
		return fmt.Errorf("%w: %d (featured: %d)", ErrFeaturedSlot, slot, len(r.featured))
	}
	if len(r.featured) == 1 && len(r.presets) > 0 {
		return ErrFeaturedRequired
	}
	r.featured = slices.Delete(r.featured, slot, slot+1)
	return nil
}

// Reorder rearranges the full list to follow ids.
//
// Precondition: ids must be a permutation of the registered preset IDs.
func (r *Registry) Reorder(ids []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(ids) != len(r.presets) {
		return fmt.Errorf("%w: got %d ids for %d presets", ErrInvalidOrder, len(ids), len(r.presets))
	}
	next := make([]Preset, 0, len(ids))
	used := make(map[string]bool, len(ids))
	for _, id := range ids {
		i := r.indexOf(id)
		if i < 0 || used[id] {
			return fmt.Errorf("%w: %q", ErrInvalidOrder, id)
		}
		used[id] = true
		next = append(next, r.presets[i])
	}
	r.presets = next
	return nil
}

// CustomDieSides returns the side count rolled by custom-die presets.
func (r *Registry) CustomDieSides() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.customDieSides
}

// SetCustomDieSides changes the custom die size.
//
// Precondition: sides >= 2.
func (r *Registry) SetCustomDieSides(sides int) error {
	if sides < 2 {
		return &dice.ConfigError{Field: "sides", Err: dice.ErrInvalidSides, Detail: fmt.Sprintf("custom die %d", sides)}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.presets {
		if !p.CustomDie {
			continue
		}
		if err := p.validate(sides); err != nil {
			return err
		}
	}
	r.customDieSides = sides
	return nil
}

// ConfigFor returns the RollConfig to resolve for preset id, substituting
// the custom die size for custom-die presets.
func (r *Registry) ConfigFor(id string) (Preset, dice.RollConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	i := r.indexOf(id)
	if i < 0 {
		return Preset{}, dice.RollConfig{}, fmt.Errorf("%w: %q", ErrPresetNotFound, id)
	}
	p := r.presets[i].clone()
	cfg := p.Config
	if p.CustomDie {
		cfg = cfg.WithSides(r.customDieSides)
	}
	return p, cfg, nil
}

// Snapshot returns the persisted form of the registry.
func (r *Registry) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s := Snapshot{
		Presets:        make([]Preset, 0, len(r.presets)),
		Featured:       slices.Clone(r.featured),
		CustomDieSides: r.customDieSides,
	}
	for _, p := range r.presets {
		s.Presets = append(s.Presets, p.clone())
	}
	return s
}

// Restore replaces the registry contents with s. Built-in entries take the
// current default definition while keeping their saved position; defaults
// missing from s are appended. Invalid or duplicate user presets, built-ins
// that no longer ship, and unknown featured IDs are discarded.
//
// Postcondition: Returns the number of discarded presets.
func (r *Registry) Restore(s Snapshot) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	sides := r.settings.CustomDieSides
	if s.CustomDieSides >= 2 {
		sides = s.CustomDieSides
	}
	builtin := make(map[string]Preset, len(r.defaults))
	for _, p := range r.defaults {
		builtin[p.ID] = p
	}

	discarded := 0
	seen := make(map[string]bool, len(s.Presets)+len(r.defaults))
	presets := make([]Preset, 0, len(s.Presets)+len(r.defaults))
	for _, p := range s.Presets {
		if seen[p.ID] {
			discarded++
			continue
		}
		if def, ok := builtin[p.ID]; ok {
			presets = append(presets, def.clone())
			seen[p.ID] = true
			continue
		}
		if p.BuiltIn || p.validate(sides) != nil {
			discarded++
			continue
		}
		presets = append(presets, p.clone())
		seen[p.ID] = true
	}
	for _, def := range r.defaults {
		if !seen[def.ID] {
			presets = append(presets, def.clone())
			seen[def.ID] = true
		}
	}

	featured := make([]string, 0, r.settings.FeaturedSlots)
	for _, id := range s.Featured {
		if len(featured) == r.settings.FeaturedSlots {
			break
		}
		if seen[id] && !slices.Contains(featured, id) {
			featured = append(featured, id)
		}
	}

	r.presets = presets
	r.featured = featured
	r.customDieSides = sides
	r.seedFeatured()
	return discarded
}

// Save writes the current snapshot to store.
func (r *Registry) Save(ctx context.Context, store Store) error {
	if err := store.SavePresets(ctx, r.Snapshot()); err != nil {
		return fmt.Errorf("preset: saving registry: %w", err)
	}
	return nil
}

// Load builds a Registry from defaults and restores any snapshot held by
// store. A failed load is logged and the defaults-only registry is returned.
//
// Postcondition: Returns a non-nil Registry, or an error only for invalid
// settings or defaults.
func Load(ctx context.Context, store Store, settings Settings, defaults []Preset, logger *zap.Logger) (*Registry, error) {
	r, err := NewRegistry(settings, defaults)
	if err != nil {
		return nil, err
	}
	snapshot, err := store.LoadPresets(ctx)
	if err != nil {
		logger.Warn("preset registry unreadable, using defaults", zap.Error(err))
		return r, nil
	}
	if snapshot.Empty() {
		logger.Debug("no saved presets, using defaults", zap.Int("presets", len(defaults)))
		return r, nil
	}
	if discarded := r.Restore(snapshot); discarded > 0 {
		logger.Warn("discarded unusable saved presets", zap.Int("discarded", discarded))
	}
	logger.Debug("preset registry loaded",
		zap.Int("presets", len(r.presets)),
		zap.Int("featured", len(r.featured)),
		zap.Int("custom_die_sides", r.customDieSides),
	)
	return r, nil
}
