// Package filestore persists roll log and preset snapshots as YAML files in a
// single directory.
package filestore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/dicebag/internal/game/preset"
	"github.com/cory-johannsen/dicebag/internal/game/rolllog"
)

const (
	// RollsFile holds the roll log snapshot.
	RollsFile = "rolls.yaml"
	// PresetsFile holds the preset registry snapshot.
	PresetsFile = "presets.yaml"

	formatVersion = 1
)

// ErrUnsupportedVersion is returned for snapshot files written by a newer format.
var ErrUnsupportedVersion = errors.New("unsupported snapshot version")

type rollsDocument struct {
	Version int                  `yaml:"version"`
	Rolls   []rolllog.LoggedRoll `yaml:"rolls"`
}

type presetsDocument struct {
	Version  int             `yaml:"version"`
	Snapshot preset.Snapshot `yaml:",inline"`
}

// Store is a directory-backed rolllog.Store and preset.Store.
type Store struct {
	dir string
}

// New returns a Store rooted at dir, creating the directory if needed.
//
// Precondition: dir must be non-empty.
// Postcondition: Returns a Store whose directory exists, or a non-nil error.
func New(dir string) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("filestore: directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("filestore: creating %s: %w", dir, err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the snapshot directory.
func (s *Store) Dir() string { return s.dir }

// LoadRolls reads the roll log snapshot. A missing file yields an empty log.
func (s *Store) LoadRolls(_ context.Context) ([]rolllog.LoggedRoll, error) {
	var doc rollsDocument
	found, err := s.read(RollsFile, &doc)
	if err != nil || !found {
		return nil, err
	}
	if doc.Version > formatVersion {
		return nil, fmt.Errorf("filestore: %s: %w %d", RollsFile, ErrUnsupportedVersion, doc.Version)
	}
	return doc.Rolls, nil
}

// SaveRolls atomically replaces the roll log snapshot.
func (s *Store) SaveRolls(_ context.Context, entries []rolllog.LoggedRoll) error {
	if entries == nil {
		entries = []rolllog.LoggedRoll{}
	}
	return s.write(RollsFile, rollsDocument{Version: formatVersion, Rolls: entries})
}

// LoadPresets reads the preset snapshot. A missing file yields an empty Snapshot.
func (s *Store) LoadPresets(_ context.Context) (preset.Snapshot, error) {
	var doc presetsDocument
	found, err := s.read(PresetsFile, &doc)
	if err != nil || !found {
		return preset.Snapshot{}, err
	}
	if doc.Version > formatVersion {
		return preset.Snapshot{}, fmt.Errorf("filestore: %s: %w %d", PresetsFile, ErrUnsupportedVersion, doc.Version)
	}
	return doc.Snapshot, nil
}

// SavePresets atomically replaces the preset snapshot.
func (s *Store) SavePresets(_ context.Context, snapshot preset.Snapshot) error {
	return s.write(PresetsFile, presetsDocument{Version: formatVersion, Snapshot: snapshot})
}

func (s *Store) read(name string, out any) (bool, error) {
	path := filepath.Join(s.dir, name)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("filestore: reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("filestore: parsing %s: %w", path, err)
	}
	return true, nil
}

// write marshals doc and renames it over name so readers never observe a
// partially written snapshot.
func (s *Store) write(name string, doc any) error {
	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("filestore: encoding %s: %w", name, err)
	}

	tmp, err := os.CreateTemp(s.dir, name+".*.tmp")
	if err != nil {
		return fmt.Errorf("filestore: creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("filestore: writing %s: %w", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("filestore: syncing %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("filestore: closing %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, filepath.Join(s.dir, name)); err != nil {
		return fmt.Errorf("filestore: replacing %s: %w", name, err)
	}
	return nil
}
