// Package store persists named race tunings in SQLite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"gallop/internal/race"
)

var (
	ErrPresetNotFound = errors.New("preset not found")
	ErrInvalidName    = errors.New("invalid preset name")
)

const maxNameLen = 64

// Preset is a named race tuning.
type Preset struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Config    race.Config `json:"config"`
	CreatedAt time.Time   `json:"createdAt"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

// Store keeps presets in a SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path. Use ":memory:" for a
// throwaway database.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection keeps ":memory:" databases shared and serialises
	// writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Migrate creates the schema. It is safe to run on every start.
func (s *Store) Migrate(ctx context.Context) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS presets (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			config_json TEXT NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_presets_updated ON presets(updated_at DESC)`,
	}
	for _, m := range migrations {
		if _, err := s.db.ExecContext(ctx, m); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

func normalizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > maxNameLen {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return name, nil
}

// SavePreset creates or replaces the preset called name. Replacing keeps the
// preset's ID and creation time.
func (s *Store) SavePreset(ctx context.Context, name string, cfg race.Config) (Preset, error) {
	name, err := normalizeName(name)
	if err != nil {
		return Preset{}, err
	}
	raw, err := json.Marshal(cfg)
	if err != nil {
		return Preset{}, fmt.Errorf("failed to encode preset %q: %w", name, err)
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO presets (id, name, config_json, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			config_json = excluded.config_json,
			updated_at = excluded.updated_at`,
		uuid.New().String(), name, string(raw), now, now)
	if err != nil {
		return Preset{}, fmt.Errorf("failed to save preset %q: %w", name, err)
	}
	return s.LoadPreset(ctx, name)
}

// LoadPreset returns the preset called name.
func (s *Store) LoadPreset(ctx context.Context, name string) (Preset, error) {
	name, err := normalizeName(name)
	if err != nil {
		return Preset{}, err
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, config_json, created_at, updated_at FROM presets WHERE name = ?`, name)
	p, err := scanPreset(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Preset{}, fmt.Errorf("%w: %q", ErrPresetNotFound, name)
	}
	if err != nil {
		return Preset{}, fmt.Errorf("failed to load preset %q: %w", name, err)
	}
	return p, nil
}

// ListPresets returns every preset ordered by name.
func (s *Store) ListPresets(ctx context.Context) ([]Preset, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, config_json, created_at, updated_at FROM presets ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list presets: %w", err)
	}
	defer rows.Close()

	presets := []Preset{}
	for rows.Next() {
		p, err := scanPreset(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan preset: %w", err)
		}
		presets = append(presets, p)
	}
	return presets, rows.Err()
}

// DeletePreset removes the preset called name.
func (s *Store) DeletePreset(ctx context.Context, name string) error {
	name, err := normalizeName(name)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM presets WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("failed to delete preset %q: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete preset %q: %w", name, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %q", ErrPresetNotFound, name)
	}
	return nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanPreset(row scanner) (Preset, error) {
	var (
		p                Preset
		raw              string
		created, updated string
	)
	if err := row.Scan(&p.ID, &p.Name, &raw, &created, &updated); err != nil {
		return Preset{}, err
	}
	// Fields missing from older presets keep their defaults.
	p.Config = race.DefaultConfig()
	if err := json.Unmarshal([]byte(raw), &p.Config); err != nil {
		return Preset{}, fmt.Errorf("preset %q has a corrupt config: %w", p.Name, err)
	}
	var err error
	if p.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
		return Preset{}, fmt.Errorf("preset %q: %w", p.Name, err)
	}
	if p.UpdatedAt, err = time.Parse(time.RFC3339Nano, updated); err != nil {
		return Preset{}, fmt.Errorf("preset %q: %w", p.Name, err)
	}
	return p, nil
}
