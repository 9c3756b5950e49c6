package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/dicebag/internal/game/rolllog"
)

// RollRepository persists roll log snapshots. Position 0 is the most recent roll.
type RollRepository struct {
	db *pgxpool.Pool
}

// NewRollRepository creates a RollRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool with migrations applied.
func NewRollRepository(db *pgxpool.Pool) *RollRepository {
	return &RollRepository{db: db}
}

// LoadRolls returns the saved log, most recent first.
//
// Postcondition: Returns a slice (may be empty) or a non-nil error.
func (r *RollRepository) LoadRolls(ctx context.Context) ([]rolllog.LoggedRoll, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, label, category, note, outcome
		FROM roll_log ORDER BY position ASC`)
	if err != nil {
		return nil, fmt.Errorf("listing rolls: %w", err)
	}
	defer rows.Close()

	entries := make([]rolllog.LoggedRoll, 0)
	for rows.Next() {
		var (
			e        rolllog.LoggedRoll
			category string
			outcome  []byte
		)
		if err := rows.Scan(&e.ID, &e.Label, &category, &e.Note, &outcome); err != nil {
			return nil, fmt.Errorf("scanning roll row: %w", err)
		}
		e.Category = rolllog.Category(category)
		if err := json.Unmarshal(outcome, &e.Outcome); err != nil {
			return nil, fmt.Errorf("decoding outcome of roll %s: %w", e.ID, err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// SaveRolls replaces the saved log with entries in a single transaction.
//
// Precondition: entries are ordered most recent first and have unique IDs.
func (r *RollRepository) SaveRolls(ctx context.Context, entries []rolllog.LoggedRoll) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning roll log transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM roll_log`); err != nil {
		return fmt.Errorf("clearing roll log: %w", err)
	}

	batch := &pgx.Batch{}
	for i, e := range entries {
		outcome, err := json.Marshal(e.Outcome)
		if err != nil {
			return fmt.Errorf("encoding outcome of roll %s: %w", e.ID, err)
		}
		batch.Queue(`
			INSERT INTO roll_log
				(id, position, label, category, note, notation, final, outcome, rolled_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
			e.ID, i, e.Label, string(e.Category), e.Note,
			e.Outcome.Config.Notation(), e.Outcome.FinalResult, outcome, e.Outcome.Timestamp,
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("inserting rolls: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing roll log: %w", err)
	}
	return nil
}
