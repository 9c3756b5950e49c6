package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/dicebag/internal/game/preset"
	"github.com/cory-johannsen/dicebag/internal/game/rolllog"
)

// PresetRepository persists preset registry snapshots.
type PresetRepository struct {
	db *pgxpool.Pool
}

// NewPresetRepository creates a PresetRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool with migrations applied.
func NewPresetRepository(db *pgxpool.Pool) *PresetRepository {
	return &PresetRepository{db: db}
}

// LoadPresets returns the saved registry, or an empty Snapshot when nothing
// has been saved.
func (r *PresetRepository) LoadPresets(ctx context.Context) (preset.Snapshot, error) {
	var s preset.Snapshot

	err := r.db.QueryRow(ctx, `SELECT custom_die_sides FROM preset_settings WHERE id = 1`).
		Scan(&s.CustomDieSides)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return preset.Snapshot{}, fmt.Errorf("querying preset settings: %w", err)
	}

	rows, err := r.db.Query(ctx, `
		SELECT id, name, tags, category, config, builtin, custom_die
		FROM presets ORDER BY position ASC`)
	if err != nil {
		return preset.Snapshot{}, fmt.Errorf("listing presets: %w", err)
	}
	presets, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (preset.Preset, error) {
		var (
			p        preset.Preset
			category string
			config   []byte
		)
		if err := row.Scan(&p.ID, &p.Name, &p.Tags, &category, &config, &p.BuiltIn, &p.CustomDie); err != nil {
			return preset.Preset{}, err
		}
		if len(p.Tags) == 0 {
			p.Tags = nil
		}
		p.Category = rolllog.Category(category)
		if err := json.Unmarshal(config, &p.Config); err != nil {
			return preset.Preset{}, fmt.Errorf("decoding config of preset %s: %w", p.ID, err)
		}
		return p, nil
	})
	if err != nil {
		return preset.Snapshot{}, fmt.Errorf("scanning preset rows: %w", err)
	}
	s.Presets = presets

	rows, err = r.db.Query(ctx, `SELECT preset_id FROM featured_presets ORDER BY slot ASC`)
	if err != nil {
		return preset.Snapshot{}, fmt.Errorf("listing featured presets: %w", err)
	}
	s.Featured, err = pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return preset.Snapshot{}, fmt.Errorf("scanning featured rows: %w", err)
	}
	return s, nil
}

// SavePresets replaces the saved registry with s in a single transaction.
func (r *PresetRepository) SavePresets(ctx context.Context, s preset.Snapshot) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning preset transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM featured_presets`); err != nil {
		return fmt.Errorf("clearing featured presets: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM presets`); err != nil {
		return fmt.Errorf("clearing presets: %w", err)
	}

	batch := &pgx.Batch{}
	for i, p := range s.Presets {
		config, err := json.Marshal(p.Config)
		if err != nil {
			return fmt.Errorf("encoding config of preset %s: %w", p.ID, err)
		}
		tags := p.Tags
		if tags == nil {
			tags = []string{}
		}
		batch.Queue(`
			INSERT INTO presets (id, position, name, tags, category, config, builtin, custom_die)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
			p.ID, i, p.Name, tags, string(p.Category), config, p.BuiltIn, p.CustomDie,
		)
	}
	for slot, id := range s.Featured {
		batch.Queue(`INSERT INTO featured_presets (slot, preset_id) VALUES ($1, $2)`, slot, id)
	}
	batch.Queue(`
		INSERT INTO preset_settings (id, custom_die_sides) VALUES (1, $1)
		ON CONFLICT (id) DO UPDATE SET custom_die_sides = EXCLUDED.custom_die_sides`,
		max(s.CustomDieSides, 2),
	)
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("inserting presets: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing presets: %w", err)
	}
	return nil
}
