package session_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/cory-johannsen/dicebag/internal/game/dice"
	"github.com/cory-johannsen/dicebag/internal/game/preset"
	"github.com/cory-johannsen/dicebag/internal/game/rolllog"
	"github.com/cory-johannsen/dicebag/internal/session"
)

type memStore struct {
	mu       sync.Mutex
	rolls    []rolllog.LoggedRoll
	snapshot preset.Snapshot
	saveErr  error
	saves    int
}

func (m *memStore) LoadRolls(context.Context) ([]rolllog.LoggedRoll, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rolls, nil
}

func (m *memStore) SaveRolls(_ context.Context, entries []rolllog.LoggedRoll) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.rolls = entries
	return nil
}

func (m *memStore) LoadPresets(context.Context) (preset.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshot, nil
}

func (m *memStore) SavePresets(_ context.Context, s preset.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.snapshot = s
	return nil
}

var rolledAt = time.Date(2026, 7, 1, 18, 30, 0, 0, time.UTC)

func open(t *testing.T, store *memStore, logger *zap.Logger, faces ...int) *session.Session {
	t.Helper()
	defaults, err := preset.DefaultPresets()
	require.NoError(t, err)
	roller := dice.NewLoggedRoller(dice.NewSequenceSource(faces...), logger).
		WithClock(func() time.Time { return rolledAt })
	s, err := session.Open(context.Background(), session.Options{
		Roller:          roller,
		Rolls:           store,
		Presets:         store,
		HistoryCapacity: 3,
		Settings:        preset.DefaultSettings(),
		Defaults:        defaults,
		Logger:          logger,
	})
	require.NoError(t, err)
	return s
}

func TestRoll_AppendsAndSaves(t *testing.T) {
	store := &memStore{}
	s := open(t, store, zaptest.NewLogger(t), 2, 5, 1, 4)

	entry, err := s.Roll(context.Background(), session.Request{
		Config:   dice.MustParse("4d6dl1"),
		Label:    "Strength",
		Category: rolllog.CategoryAbility,
	})
	require.NoError(t, err)
	assert.Equal(t, 11, entry.Outcome.FinalResult)
	assert.Equal(t, []int{1}, entry.Outcome.DroppedRolls)
	assert.Equal(t, rolledAt, entry.Outcome.Timestamp)

	latest, ok := s.Log().Latest()
	require.True(t, ok)
	assert.Equal(t, entry.ID, latest.ID)
	require.Len(t, store.rolls, 1)
	assert.Equal(t, entry.ID, store.rolls[0].ID)
}

func TestRoll_InvalidConfigLeavesLogUntouched(t *testing.T) {
	store := &memStore{}
	s := open(t, store, zaptest.NewLogger(t))

	_, err := s.Roll(context.Background(), session.Request{Config: dice.RollConfig{Sides: 1, Count: 1}})
	assert.ErrorIs(t, err, dice.ErrInvalidSides)

	_, err = s.Roll(context.Background(), session.Request{Config: dice.RollConfig{Sides: 6, Count: 1}, Category: "fumble"})
	assert.Error(t, err)

	assert.Zero(t, s.Log().Len())
	assert.Zero(t, store.saves)
}

func TestRoll_SaveFailureKeepsEntry(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	store := &memStore{saveErr: errors.New("disk full")}
	s := open(t, store, zap.New(core), 17)

	entry, err := s.Roll(context.Background(), session.Request{Config: dice.RollConfig{Sides: 20, Count: 1}})
	require.ErrorIs(t, err, session.ErrNotSaved)
	assert.Equal(t, 17, entry.Outcome.FinalResult)
	assert.Equal(t, 1, s.Log().Len(), "the roll stays in memory")
	assert.Equal(t, 1, logs.FilterMessage("saving roll log").Len())
}

func TestRollPreset(t *testing.T) {
	store := &memStore{}
	s := open(t, store, zaptest.NewLogger(t), 14, 9, 4)

	entry, err := s.RollPreset(context.Background(), "d20-advantage", "vs goblin")
	require.NoError(t, err)
	assert.Equal(t, 14, entry.Outcome.FinalResult)
	assert.Equal(t, "d20 with Advantage", entry.Label)
	assert.Equal(t, rolllog.CategoryAttack, entry.Category)
	assert.Equal(t, "vs goblin", entry.Note)

	require.NoError(t, s.SetCustomDieSides(context.Background(), 5))
	entry, err = s.RollPreset(context.Background(), "custom-die", "")
	require.NoError(t, err)
	assert.Equal(t, 5, entry.Outcome.Config.Sides)
	assert.Equal(t, 4, entry.Outcome.FinalResult)

	_, err = s.RollPreset(context.Background(), "missing", "")
	assert.ErrorIs(t, err, preset.ErrPresetNotFound)
}

func TestRollNotation(t *testing.T) {
	s := open(t, &memStore{}, zaptest.NewLogger(t), 6, 6, 3)

	entry, err := s.RollNotation(context.Background(), "3d6 + 2", "Fireball", "damage", "")
	require.NoError(t, err)
	assert.Equal(t, 17, entry.Outcome.FinalResult)
	assert.Equal(t, rolllog.CategoryDamage, entry.Category)

	_, err = s.RollNotation(context.Background(), "3x6", "", "", "")
	assert.Error(t, err)
	_, err = s.RollNotation(context.Background(), "1d6", "", "fumble", "")
	assert.Error(t, err)
}

func TestHistoryIsBounded(t *testing.T) {
	store := &memStore{}
	s := open(t, store, zaptest.NewLogger(t), 1, 2, 3, 4)
	for i := 0; i < 4; i++ {
		_, err := s.Roll(context.Background(), session.Request{Config: dice.RollConfig{Sides: 6, Count: 1}})
		require.NoError(t, err)
	}
	got := s.Log().List()
	require.Len(t, got, 3)
	assert.Equal(t, 4, got[0].Outcome.FinalResult)
	assert.Equal(t, 2, got[2].Outcome.FinalResult)
	assert.Len(t, store.rolls, 3)
}

func TestClearLog(t *testing.T) {
	store := &memStore{}
	s := open(t, store, zaptest.NewLogger(t), 3)
	_, err := s.Roll(context.Background(), session.Request{Config: dice.RollConfig{Sides: 6, Count: 1}})
	require.NoError(t, err)

	require.NoError(t, s.ClearLog(context.Background()))
	assert.Zero(t, s.Log().Len())
	assert.Empty(t, store.rolls)
}

func TestPresetMutationsPersist(t *testing.T) {
	ctx := context.Background()
	store := &memStore{}
	s := open(t, store, zaptest.NewLogger(t))

	added, err := s.AddPreset(ctx, preset.Preset{Name: "Longbow", Category: rolllog.CategoryDamage, Config: dice.MustParse("1d8+3")})
	require.NoError(t, err)
	require.NoError(t, s.SetFeatured(ctx, added.ID, 0))
	require.NoError(t, s.UnsetFeatured(ctx, 3))

	updated := added
	updated.Name = "Longbow (sharpshooter)"
	updated.Config = dice.MustParse("1d8+13")
	require.NoError(t, s.UpdatePreset(ctx, updated))

	ids := make([]string, 0)
	for _, p := range s.Registry().ListAll() {
		ids = append([]string{p.ID}, ids...)
	}
	require.NoError(t, s.ReorderPresets(ctx, ids))

	reopened := open(t, store, zaptest.NewLogger(t))
	assert.Equal(t, s.Registry().Snapshot(), reopened.Registry().Snapshot())
	got, ok := reopened.Registry().Get(added.ID)
	require.True(t, ok)
	assert.Equal(t, "Longbow (sharpshooter)", got.Name)

	require.NoError(t, s.RemovePreset(ctx, added.ID))
	assert.ErrorIs(t, s.RemovePreset(ctx, "d6"), preset.ErrBuiltInPreset)
	_, ok = open(t, store, zaptest.NewLogger(t)).Registry().Get(added.ID)
	assert.False(t, ok)
}

func TestPresetMutation_SaveFailure(t *testing.T) {
	store := &memStore{saveErr: errors.New("read-only")}
	s := open(t, store, zaptest.NewLogger(t))
	err := s.SetCustomDieSides(context.Background(), 12)
	require.ErrorIs(t, err, session.ErrNotSaved)
	assert.Equal(t, 12, s.Registry().CustomDieSides())
}
