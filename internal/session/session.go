// Package session ties the roller, the roll log and the preset registry to
// their stores: every roll is appended to the log and every mutation is
// persisted before the call returns.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/cory-johannsen/dicebag/internal/game/dice"
	"github.com/cory-johannsen/dicebag/internal/game/preset"
	"github.com/cory-johannsen/dicebag/internal/game/rolllog"
)

// ErrNotSaved wraps a store failure after the in-memory state was already
// updated. The returned value of the failed call is still valid.
var ErrNotSaved = errors.New("session: change applied but not saved")

// Request describes one ad-hoc roll.
type Request struct {
	Config   dice.RollConfig
	Label    string
	Category rolllog.Category
	Note     string
}

// Options configures Open.
type Options struct {
	// Roller resolves every roll; required.
	Roller *dice.Roller
	// Rolls persists the roll log; required.
	Rolls rolllog.Store
	// Presets persists the preset registry; required.
	Presets preset.Store
	// HistoryCapacity bounds the roll log; below 1 selects rolllog.DefaultCapacity.
	HistoryCapacity int
	// Settings configures the preset registry.
	Settings preset.Settings
	// Defaults are the built-in presets.
	Defaults []preset.Preset
	// Logger is required.
	Logger *zap.Logger
}

// Session is the application facade used by the CLI and the interactive shell.
// It is safe for concurrent use.
type Session struct {
	roller   *dice.Roller
	log      *rolllog.Log
	registry *preset.Registry
	rolls    rolllog.Store
	presets  preset.Store
	logger   *zap.Logger

	// saveMu orders snapshot writes so an older snapshot never overwrites a newer one.
	saveMu sync.Mutex
}

// Open loads the roll log and preset registry from their stores. Unreadable
// stores fall back to an empty log and the default presets.
//
// Precondition: opts.Roller, opts.Rolls, opts.Presets and opts.Logger must be non-nil.
// Postcondition: Returns a ready Session, or an error for invalid settings or defaults.
func Open(ctx context.Context, opts Options) (*Session, error) {
	log := rolllog.Load(ctx, opts.Rolls, opts.HistoryCapacity, opts.Logger)
	registry, err := preset.Load(ctx, opts.Presets, opts.Settings, opts.Defaults, opts.Logger)
	if err != nil {
		return nil, fmt.Errorf("session: loading presets: %w", err)
	}
	return New(opts.Roller, log, registry, opts.Rolls, opts.Presets, opts.Logger), nil
}

// New assembles a Session from already loaded parts.
func New(roller *dice.Roller, log *rolllog.Log, registry *preset.Registry, rolls rolllog.Store, presets preset.Store, logger *zap.Logger) *Session {
	return &Session{
		roller:   roller,
		log:      log,
		registry: registry,
		rolls:    rolls,
		presets:  presets,
		logger:   logger,
	}
}

// Log returns the roll log for read access.
func (s *Session) Log() *rolllog.Log { return s.log }

// Registry returns the preset registry for read access. Mutate it through
// the Session so changes are persisted.
func (s *Session) Registry() *preset.Registry { return s.registry }

// Roll resolves req, appends the outcome to the log and saves the log.
//
// Postcondition: On a nil error or an error wrapping ErrNotSaved, the
// returned entry is the newest log entry.
func (s *Session) Roll(ctx context.Context, req Request) (rolllog.LoggedRoll, error) {
	if req.Category != "" && !req.Category.Valid() {
		return rolllog.LoggedRoll{}, fmt.Errorf("session: unknown category %q", req.Category)
	}
	out, err := s.roller.Roll(req.Config)
	if err != nil {
		return rolllog.LoggedRoll{}, err
	}
	entry := s.log.Append(rolllog.LoggedRoll{
		Label:    req.Label,
		Category: req.Category,
		Note:     req.Note,
		Outcome:  out,
	})
	s.logger.Info("roll recorded",
		zap.String("id", entry.ID),
		zap.String("category", string(entry.Category)),
		zap.String("notation", out.Config.Notation()),
		zap.Int("result", out.FinalResult),
	)
	return entry, s.saveLog(ctx)
}

// RollPreset rolls the preset id, labelled with the preset name and category.
func (s *Session) RollPreset(ctx context.Context, id, note string) (rolllog.LoggedRoll, error) {
	p, cfg, err := s.registry.ConfigFor(id)
	if err != nil {
		return rolllog.LoggedRoll{}, err
	}
	return s.Roll(ctx, Request{Config: cfg, Label: p.Name, Category: p.Category, Note: note})
}

// RollNotation parses expr and rolls it. An empty category means general.
func (s *Session) RollNotation(ctx context.Context, expr, label, category, note string) (rolllog.LoggedRoll, error) {
	c, err := rolllog.ParseCategory(category)
	if err != nil {
		return rolllog.LoggedRoll{}, err
	}
	cfg, err := dice.Parse(expr)
	if err != nil {
		return rolllog.LoggedRoll{}, err
	}
	return s.Roll(ctx, Request{Config: cfg, Label: label, Category: c, Note: note})
}

// ClearLog empties the roll log and saves the empty log.
func (s *Session) ClearLog(ctx context.Context) error {
	s.log.Clear()
	s.logger.Info("roll log cleared")
	return s.saveLog(ctx)
}

// AddPreset registers a user preset and saves the registry.
func (s *Session) AddPreset(ctx context.Context, p preset.Preset) (preset.Preset, error) {
	added, err := s.registry.AddCustom(p)
	if err != nil {
		return preset.Preset{}, err
	}
	s.logger.Info("preset added", zap.String("id", added.ID), zap.String("name", added.Name))
	return added, s.savePresets(ctx)
}

// UpdatePreset replaces a user preset and saves the registry.
func (s *Session) UpdatePreset(ctx context.Context, p preset.Preset) error {
	if err := s.registry.UpdateCustom(p); err != nil {
		return err
	}
	return s.savePresets(ctx)
}

// RemovePreset deletes a user preset and saves the registry.
func (s *Session) RemovePreset(ctx context.Context, id string) error {
	if err := s.registry.RemoveCustom(id); err != nil {
		return err
	}
	s.logger.Info("preset removed", zap.String("id", id))
	return s.savePresets(ctx)
}

// SetFeatured places preset id at slot and saves the registry.
func (s *Session) SetFeatured(ctx context.Context, id string, slot int) error {
	if err := s.registry.SetFeatured(id, slot); err != nil {
		return err
	}
	return s.savePresets(ctx)
}

// UnsetFeatured clears slot and saves the registry.
func (s *Session) UnsetFeatured(ctx context.Context, slot int) error {
	if err := s.registry.UnsetFeatured(slot); err != nil {
		return err
	}
	return s.savePresets(ctx)
}

// ReorderPresets rearranges the preset list and saves the registry.
func (s *Session) ReorderPresets(ctx context.Context, ids []string) error {
	if err := s.registry.Reorder(ids); err != nil {
		return err
	}
	return s.savePresets(ctx)
}

// SetCustomDieSides changes the custom die size and saves the registry.
func (s *Session) SetCustomDieSides(ctx context.Context, sides int) error {
	if err := s.registry.SetCustomDieSides(sides); err != nil {
		return err
	}
	s.logger.Info("custom die changed", zap.Int("sides", sides))
	return s.savePresets(ctx)
}

func (s *Session) saveLog(ctx context.Context) error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()
	if err := s.log.Save(ctx, s.rolls); err != nil {
		s.logger.Error("saving roll log", zap.Error(err))
		return fmt.Errorf("%w: %w", ErrNotSaved, err)
	}
	return nil
}

func (s *Session) savePresets(ctx context.Context) error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()
	if err := s.registry.Save(ctx, s.presets); err != nil {
		s.logger.Error("saving presets", zap.Error(err))
		return fmt.Errorf("%w: %w", ErrNotSaved, err)
	}
	return nil
}
