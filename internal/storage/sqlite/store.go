// Package sqlite provides on-device SQLite persistence for the roll log and
// the preset registry.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"

	"github.com/cory-johannsen/dicebag/internal/game/preset"
	"github.com/cory-johannsen/dicebag/internal/game/rolllog"
	"github.com/cory-johannsen/dicebag/migrations"
)

// Store is a SQLite-backed rolllog.Store and preset.Store.
type Store struct {
	sqlDB *sql.DB
}

// Open opens and migrates the SQLite database at path.
//
// Precondition: path must be non-empty; its directory must exist.
// Postcondition: Returns a migrated Store or a non-nil error.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	dsn := filepath.Clean(path) + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// One connection keeps the pragmas and the WAL writer consistent.
	sqlDB.SetMaxOpenConns(1)

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	if err := runMigrations(sqlDB); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

func runMigrations(sqlDB *sql.DB) error {
	src, err := iofs.New(migrations.SQLite, "sqlite")
	if err != nil {
		return fmt.Errorf("open embedded migrations: %w", err)
	}
	driver, err := migratesqlite.WithInstance(sqlDB, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	// m.Close would also close sqlDB, which the Store keeps using.
	defer func() { _ = src.Close() }()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

// Close releases the underlying SQLite connection.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// LoadRolls returns the saved log, most recent first.
func (s *Store) LoadRolls(ctx context.Context) ([]rolllog.LoggedRoll, error) {
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT id, label, category, note, outcome FROM roll_log ORDER BY position ASC`)
	if err != nil {
		return nil, fmt.Errorf("list rolls: %w", err)
	}
	defer rows.Close()

	entries := make([]rolllog.LoggedRoll, 0)
	for rows.Next() {
		var (
			e        rolllog.LoggedRoll
			category string
			outcome  string
		)
		if err := rows.Scan(&e.ID, &e.Label, &category, &e.Note, &outcome); err != nil {
			return nil, fmt.Errorf("scan roll row: %w", err)
		}
		e.Category = rolllog.Category(category)
		if err := json.Unmarshal([]byte(outcome), &e.Outcome); err != nil {
			return nil, fmt.Errorf("decode outcome of roll %s: %w", e.ID, err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// SaveRolls replaces the saved log with entries in a single transaction.
func (s *Store) SaveRolls(ctx context.Context, entries []rolllog.LoggedRoll) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM roll_log`); err != nil {
			return fmt.Errorf("clear roll log: %w", err)
		}
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO roll_log (id, position, label, category, note, notation, final, outcome, rolled_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare roll insert: %w", err)
		}
		defer stmt.Close()

		for i, e := range entries {
			outcome, err := json.Marshal(e.Outcome)
			if err != nil {
				return fmt.Errorf("encode outcome of roll %s: %w", e.ID, err)
			}
			if _, err := stmt.ExecContext(ctx,
				e.ID, i, e.Label, string(e.Category), e.Note,
				e.Outcome.Config.Notation(), e.Outcome.FinalResult, string(outcome),
				e.Outcome.Timestamp.UTC().UnixMilli(),
			); err != nil {
				return fmt.Errorf("insert roll %s: %w", e.ID, err)
			}
		}
		return nil
	})
}

// LoadPresets returns the saved registry, or an empty Snapshot when nothing
// has been saved.
func (s *Store) LoadPresets(ctx context.Context) (preset.Snapshot, error) {
	var snap preset.Snapshot
	err := s.sqlDB.QueryRowContext(ctx, `SELECT custom_die_sides FROM preset_settings WHERE id = 1`).
		Scan(&snap.CustomDieSides)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return preset.Snapshot{}, fmt.Errorf("get preset settings: %w", err)
	}

	presets, err := s.loadPresetRows(ctx)
	if err != nil {
		return preset.Snapshot{}, err
	}
	snap.Presets = presets

	featured, err := s.loadFeatured(ctx)
	if err != nil {
		return preset.Snapshot{}, err
	}
	snap.Featured = featured
	return snap, nil
}

func (s *Store) loadPresetRows(ctx context.Context) ([]preset.Preset, error) {
	rows, err := s.sqlDB.QueryContext(ctx, `
		SELECT id, name, tags, category, config, builtin, custom_die
		FROM presets ORDER BY position ASC`)
	if err != nil {
		return nil, fmt.Errorf("list presets: %w", err)
	}
	defer rows.Close()

	presets := make([]preset.Preset, 0)
	for rows.Next() {
		var (
			p                  preset.Preset
			tags, config       string
			category           string
			builtin, customDie int64
		)
		if err := rows.Scan(&p.ID, &p.Name, &tags, &category, &config, &builtin, &customDie); err != nil {
			return nil, fmt.Errorf("scan preset row: %w", err)
		}
		if err := json.Unmarshal([]byte(tags), &p.Tags); err != nil {
			return nil, fmt.Errorf("decode tags of preset %s: %w", p.ID, err)
		}
		if len(p.Tags) == 0 {
			p.Tags = nil
		}
		if err := json.Unmarshal([]byte(config), &p.Config); err != nil {
			return nil, fmt.Errorf("decode config of preset %s: %w", p.ID, err)
		}
		p.Category = rolllog.Category(category)
		p.BuiltIn = builtin != 0
		p.CustomDie = customDie != 0
		presets = append(presets, p)
	}
	return presets, rows.Err()
}

func (s *Store) loadFeatured(ctx context.Context) ([]string, error) {
	rows, err := s.sqlDB.QueryContext(ctx, `SELECT preset_id FROM featured_presets ORDER BY slot ASC`)
	if err != nil {
		return nil, fmt.Errorf("list featured presets: %w", err)
	}
	defer rows.Close()

	featured := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan featured row: %w", err)
		}
		featured = append(featured, id)
	}
	return featured, rows.Err()
}

// SavePresets replaces the saved registry with snap in a single transaction.
func (s *Store) SavePresets(ctx context.Context, snap preset.Snapshot) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM featured_presets`); err != nil {
			return fmt.Errorf("clear featured presets: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM presets`); err != nil {
			return fmt.Errorf("clear presets: %w", err)
		}
		for i, p := range snap.Presets {
			tags := p.Tags
			if tags == nil {
				tags = []string{}
			}
			tagsJSON, err := json.Marshal(tags)
			if err != nil {
				return fmt.Errorf("encode tags of preset %s: %w", p.ID, err)
			}
			config, err := json.Marshal(p.Config)
			if err != nil {
				return fmt.Errorf("encode config of preset %s: %w", p.ID, err)
			}
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO presets (id, position, name, tags, category, config, builtin, custom_die)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
				p.ID, i, p.Name, string(tagsJSON), string(p.Category), string(config),
				boolToInt(p.BuiltIn), boolToInt(p.CustomDie),
			); err != nil {
				return fmt.Errorf("insert preset %s: %w", p.ID, err)
			}
		}
		for slot, id := range snap.Featured {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO featured_presets (slot, preset_id) VALUES (?, ?)`, slot, id,
			); err != nil {
				return fmt.Errorf("insert featured preset %s: %w", id, err)
			}
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO preset_settings (id, custom_die_sides) VALUES (1, ?)
			ON CONFLICT(id) DO UPDATE SET custom_die_sides = excluded.custom_die_sides`,
			max(snap.CustomDieSides, 2),
		); err != nil {
			return fmt.Errorf("upsert preset settings: %w", err)
		}
		return nil
	})
}

func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
