// Package rolllog keeps the bounded, most-recent-first history of resolved rolls.
package rolllog

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cory-johannsen/dicebag/internal/game/dice"
)

// DefaultCapacity is the number of rolls retained before the oldest is evicted.
const DefaultCapacity = 100

// LoggedRoll is a resolved roll plus its descriptive metadata.
type LoggedRoll struct {
	ID       string           `json:"id" yaml:"id"`
	Label    string           `json:"label,omitempty" yaml:"label,omitempty"`
	Category Category         `json:"category" yaml:"category"`
	Note     string           `json:"note,omitempty" yaml:"note,omitempty"`
	Outcome  dice.RollOutcome `json:"outcome" yaml:"outcome"`
}

// String returns the summary line shown in the log, e.g.
//
//	"Attack · Longsword: 1d20+5 = 17 [12]"
func (r LoggedRoll) String() string {
	if r.Label == "" {
		return fmt.Sprintf("%s: %s", r.Category.Title(), r.Outcome)
	}
	return fmt.Sprintf("%s · %s: %s", r.Category.Title(), r.Label, r.Outcome)
}

func (r LoggedRoll) clone() LoggedRoll {
	o := &r.Outcome
	o.Config = o.Config.Clone()
	o.AllRawRolls = slices.Clone(o.AllRawRolls)
	o.UsedRolls = slices.Clone(o.UsedRolls)
	o.DroppedRolls = slices.Clone(o.DroppedRolls)
	o.RerolledRolls = slices.Clone(o.RerolledRolls)
	return r
}

// Store persists log snapshots. Snapshots are ordered most-recent-first.
type Store interface {
	LoadRolls(ctx context.Context) ([]LoggedRoll, error)
	SaveRolls(ctx context.Context, entries []LoggedRoll) error
}

// Log is a capacity-bounded roll history with strict FIFO eviction.
// It is safe for concurrent use; every mutation is serialized by one lock.
type Log struct {
	mu       sync.Mutex
	capacity int
	entries  []LoggedRoll // oldest first
}

// New returns an empty Log. A capacity below 1 selects DefaultCapacity.
//
// Postcondition: Len() == 0.
func New(capacity int) *Log {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	return &Log{capacity: capacity, entries: make([]LoggedRoll, 0, capacity)}
}

// Capacity returns the maximum number of retained rolls.
func (l *Log) Capacity() int { return l.capacity }

// Append records entry as the most recent roll, evicting the oldest entry
// when the log is full. An empty ID is replaced with a fresh UUID and an
// empty Category with CategoryGeneral.
//
// Postcondition: List()[0] is the returned entry; Len() <= Capacity().
func (l *Log) Append(entry LoggedRoll) LoggedRoll {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.Category == "" {
		entry.Category = CategoryGeneral
	}
	entry = entry.clone()

	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.entries) >= l.capacity {
		copy(l.entries, l.entries[1:])
		l.entries[len(l.entries)-1] = entry
	} else {
		l.entries = append(l.entries, entry)
	}
	return entry.clone()
}

// List returns a copy of every retained roll, most recent first.
func (l *Log) List() []LoggedRoll {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]LoggedRoll, 0, len(l.entries))
	for i := len(l.entries) - 1; i >= 0; i-- {
		out = append(out, l.entries[i].clone())
	}
	return out
}

// Len returns the number of retained rolls.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Latest returns the most recent roll, if any.
func (l *Log) Latest() (LoggedRoll, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.entries) == 0 {
		return LoggedRoll{}, false
	}
	return l.entries[len(l.entries)-1].clone(), true
}

// Get returns the roll with the given ID.
func (l *Log) Get(id string) (LoggedRoll, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.entries {
		if e.ID == id {
			return e.clone(), true
		}
	}
	return LoggedRoll{}, false
}

// Filter returns the rolls tagged c, most recent first.
func (l *Log) Filter(c Category) []LoggedRoll {
	var out []LoggedRoll
	for _, e := range l.List() {
		if e.Category == c {
			out = append(out, e)
		}
	}
	return out
}

// Clear removes every roll.
//
// Postcondition: Len() == 0.
func (l *Log) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = l.entries[:0]
}

// Snapshot returns the serializable state of the log, most recent first.
func (l *Log) Snapshot() []LoggedRoll {
	return l.List()
}

// Restore replaces the log contents with a most-recent-first snapshot.
// Only the Capacity() most recent entries are kept.
func (l *Log) Restore(snapshot []LoggedRoll) {
	keep := min(len(snapshot), l.capacity)
	entries := make([]LoggedRoll, 0, l.capacity)
	for i := keep - 1; i >= 0; i-- {
		e := snapshot[i]
		if e.ID == "" {
			e.ID = uuid.New().String()
		}
		if e.Category == "" {
			e.Category = CategoryGeneral
		}
		entries = append(entries, e.clone())
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = entries
}

// Save writes the current snapshot to store.
func (l *Log) Save(ctx context.Context, store Store) error {
	if err := store.SaveRolls(ctx, l.Snapshot()); err != nil {
		return fmt.Errorf("rolllog: saving %d rolls: %w", l.Len(), err)
	}
	return nil
}

// Load builds a Log from store. A failed load never propagates: the error is
// logged and an empty log is returned so rolling is never blocked.
//
// Postcondition: Returns a non-nil Log.
func Load(ctx context.Context, store Store, capacity int, logger *zap.Logger) *Log {
	l := New(capacity)
	entries, err := store.LoadRolls(ctx)
	if err != nil {
		logger.Warn("roll log unreadable, starting empty", zap.Error(err))
		return l
	}
	l.Restore(entries)
	logger.Debug("roll log loaded",
		zap.Int("entries", l.Len()),
		zap.Int("capacity", l.capacity),
	)
	return l
}
