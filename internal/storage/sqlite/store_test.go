package sqlite

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/dicebag/internal/game/dice"
	"github.com/cory-johannsen/dicebag/internal/game/preset"
	"github.com/cory-johannsen/dicebag/internal/game/rolllog"
)

func openStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dicebag.db")
	store, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, store.Close())
	})
	return store, path
}

func loggedRoll(t *testing.T, expr string, faces ...int) rolllog.LoggedRoll {
	t.Helper()
	out, err := dice.ResolveAt(dice.MustParse(expr), dice.NewSequenceSource(faces...),
		time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC))
	require.NoError(t, err)
	return rolllog.LoggedRoll{Label: expr, Category: rolllog.CategoryDamage, Outcome: out}
}

func assertTableExists(t *testing.T, db *sql.DB, table string) {
	t.Helper()
	var name string
	err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
	require.NoError(t, err, "table %s", table)
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open(" ")
	assert.Error(t, err)
}

func TestOpenRunsMigrations(t *testing.T) {
	store, path := openStore(t)
	for _, table := range []string{"roll_log", "presets", "featured_presets", "preset_settings"} {
		assertTableExists(t, store.sqlDB, table)
	}

	// Reopening an already migrated database is a no-op.
	again, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, again.Close())
}

func TestRollsRoundTrip(t *testing.T) {
	store, _ := openStore(t)
	ctx := context.Background()

	empty, err := store.LoadRolls(ctx)
	require.NoError(t, err)
	assert.Empty(t, empty)

	log := rolllog.New(rolllog.DefaultCapacity)
	log.Append(loggedRoll(t, "4d6dl1", 2, 5, 1, 4))
	log.Append(loggedRoll(t, "d20dis-1", 14, 9))
	require.NoError(t, log.Save(ctx, store))

	got, err := store.LoadRolls(ctx)
	require.NoError(t, err)
	assert.Equal(t, log.List(), got)
}

func TestSaveRollsReplaces(t *testing.T) {
	store, _ := openStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveRolls(ctx, []rolllog.LoggedRoll{{ID: "a", Category: rolllog.CategoryGeneral, Outcome: loggedRoll(t, "1d6", 2).Outcome}}))
	require.NoError(t, store.SaveRolls(ctx, []rolllog.LoggedRoll{{ID: "b", Category: rolllog.CategoryGeneral, Outcome: loggedRoll(t, "1d6", 5).Outcome}}))

	got, err := store.LoadRolls(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "b", got[0].ID)
	assert.Equal(t, 5, got[0].Outcome.FinalResult)
}

func TestPresetsRoundTrip(t *testing.T) {
	store, _ := openStore(t)
	ctx := context.Background()

	empty, err := store.LoadPresets(ctx)
	require.NoError(t, err)
	assert.True(t, empty.Empty())

	defaults, err := preset.DefaultPresets()
	require.NoError(t, err)
	reg, err := preset.NewRegistry(preset.Settings{FeaturedSlots: 6, CustomDieSides: 6}, defaults)
	require.NoError(t, err)
	_, err = reg.AddCustom(preset.Preset{
		ID:       "sneak",
		Name:     "Sneak Attack",
		Tags:     []string{"rogue"},
		Category: rolllog.CategoryDamage,
		Config:   dice.MustParse("3d6max5"),
	})
	require.NoError(t, err)
	require.NoError(t, reg.SetFeatured("sneak", 2))
	require.NoError(t, reg.SetCustomDieSides(3))
	require.NoError(t, reg.Save(ctx, store))

	got, err := store.LoadPresets(ctx)
	require.NoError(t, err)
	assert.Equal(t, reg.Snapshot(), got)
}

// Property: any sequence of resolved rolls survives a save and load unchanged.
func TestPropertyRollsSurviveSaveLoad(t *testing.T) {
	store, _ := openStore(t)
	ctx := context.Background()
	src := dice.NewSeededSource(7)

	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(0, 12).Draw(rt, "n")
		log := rolllog.New(rolllog.DefaultCapacity)
		for i := 0; i < n; i++ {
			sides := rapid.SampledFrom(dice.StandardSides).Draw(rt, "sides")
			count := rapid.IntRange(1, 6).Draw(rt, "count")
			out, err := dice.Resolve(dice.RollConfig{Sides: sides, Count: count}, src)
			if err != nil {
				rt.Fatalf("resolve: %v", err)
			}
			log.Append(rolllog.LoggedRoll{Outcome: out})
		}
		if err := log.Save(ctx, store); err != nil {
			rt.Fatalf("save: %v", err)
		}
		got, err := store.LoadRolls(ctx)
		if err != nil {
			rt.Fatalf("load: %v", err)
		}
		want := log.List()
		if len(got) != len(want) {
			rt.Fatalf("loaded %d rolls, saved %d", len(got), len(want))
		}
		for i := range want {
			if got[i].ID != want[i].ID || got[i].Outcome.FinalResult != want[i].Outcome.FinalResult {
				rt.Fatalf("roll %d: got %+v, want %+v", i, got[i], want[i])
			}
			if !got[i].Outcome.Timestamp.Equal(want[i].Outcome.Timestamp) {
				rt.Fatalf("roll %d timestamp %v, want %v", i, got[i].Outcome.Timestamp, want[i].Outcome.Timestamp)
			}
		}
	})
}
