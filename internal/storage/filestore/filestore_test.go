package filestore_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/cory-johannsen/dicebag/internal/game/dice"
	"github.com/cory-johannsen/dicebag/internal/game/preset"
	"github.com/cory-johannsen/dicebag/internal/game/rolllog"
	"github.com/cory-johannsen/dicebag/internal/storage/filestore"
)

func newStore(t *testing.T) *filestore.Store {
	t.Helper()
	s, err := filestore.New(filepath.Join(t.TempDir(), "state"))
	require.NoError(t, err)
	return s
}

func loggedRoll(t *testing.T, expr string, faces ...int) rolllog.LoggedRoll {
	t.Helper()
	out, err := dice.ResolveAt(dice.MustParse(expr), dice.NewSequenceSource(faces...),
		time.Date(2026, 5, 4, 20, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	return rolllog.LoggedRoll{Label: expr, Category: rolllog.CategoryHealing, Note: "potion", Outcome: out}
}

func TestNew_RequiresDir(t *testing.T) {
	_, err := filestore.New("")
	assert.Error(t, err)
}

func TestLoad_MissingFilesAreEmpty(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	rolls, err := s.LoadRolls(ctx)
	require.NoError(t, err)
	assert.Empty(t, rolls)

	snap, err := s.LoadPresets(ctx)
	require.NoError(t, err)
	assert.True(t, snap.Empty())
}

func TestRolls_RoundTrip(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	log := rolllog.New(rolllog.DefaultCapacity)
	log.Append(loggedRoll(t, "2d4+2", 3, 1))
	log.Append(loggedRoll(t, "4d6rh1", 6, 2, 3, 4, 5))
	require.NoError(t, log.Save(ctx, s))

	loaded := rolllog.Load(ctx, s, rolllog.DefaultCapacity, zaptest.NewLogger(t))
	want, got := log.List(), loaded.List()
	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i].ID, got[i].ID)
		assert.Equal(t, want[i].Note, got[i].Note)
		assert.Equal(t, want[i].Outcome.Config, got[i].Outcome.Config)
		assert.Equal(t, want[i].Outcome.AllRawRolls, got[i].Outcome.AllRawRolls)
		assert.Equal(t, want[i].Outcome.RerolledRolls, got[i].Outcome.RerolledRolls)
		assert.Equal(t, want[i].Outcome.FinalResult, got[i].Outcome.FinalResult)
		assert.True(t, want[i].Outcome.Timestamp.Equal(got[i].Outcome.Timestamp))
		assert.NoError(t, dice.Verify(got[i].Outcome))
	}

	entries, err := os.ReadDir(s.Dir())
	require.NoError(t, err)
	require.Len(t, entries, 1, "temp files must not be left behind")
	assert.Equal(t, filestore.RollsFile, entries[0].Name())
}

func TestPresets_RoundTrip(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	defaults, err := preset.DefaultPresets()
	require.NoError(t, err)
	reg, err := preset.NewRegistry(preset.DefaultSettings(), defaults)
	require.NoError(t, err)
	_, err = reg.AddCustom(preset.Preset{
		ID:       "cure",
		Name:     "Cure Wounds",
		Category: rolllog.CategoryHealing,
		Config:   dice.MustParse("1d8+3"),
	})
	require.NoError(t, err)
	require.NoError(t, reg.SetFeatured("cure", 3))
	require.NoError(t, reg.Save(ctx, s))

	loaded, err := preset.Load(ctx, s, preset.DefaultSettings(), defaults, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.Equal(t, reg.Snapshot(), loaded.Snapshot())
}

func TestLoad_CorruptFileIsAnError(t *testing.T) {
	s := newStore(t)
	require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), filestore.RollsFile), []byte("rolls: [unterminated"), 0o644))
	_, err := s.LoadRolls(context.Background())
	assert.Error(t, err)

	log := rolllog.Load(context.Background(), s, 10, zaptest.NewLogger(t))
	assert.Zero(t, log.Len(), "a corrupt log starts empty")
}

func TestLoad_RejectsNewerVersion(t *testing.T) {
	s := newStore(t)
	require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), filestore.PresetsFile), []byte("version: 99\npresets: []\n"), 0o644))
	_, err := s.LoadPresets(context.Background())
	assert.ErrorIs(t, err, filestore.ErrUnsupportedVersion)
}
