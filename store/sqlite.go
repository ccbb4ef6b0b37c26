// Package store persists the latest simulation state to a sqlite file so
// a run can resume where it left off. Saves happen off the simulation
// goroutine at generation boundaries; a missing or unreadable state is a
// fresh start, never a fatal error.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/pthm-cable/circuit/neural"
)

// State is the resumable snapshot: counters plus the best brain's weights.
type State struct {
	Generation  int             `json:"generation"`
	PresetIndex int             `json:"preset_index"`
	BestLaps    int             `json:"best_laps"`
	Brain       *neural.Weights `json:"brain,omitempty"`
}

// Store wraps a sqlite database holding a single latest-state row.
type Store struct {
	path string

	mu sync.RWMutex
	db *sql.DB
}

const stateKey = "latest"

// Open opens (creating if needed) the sqlite file and ensures the schema.
func Open(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("store: sqlite path is required")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	_, err = db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS sim_state (
			key TEXT PRIMARY KEY,
			payload BLOB NOT NULL
		);
	`)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{path: path, db: db}, nil
}

// Save upserts the snapshot under the single state key.
func (s *Store) Save(ctx context.Context, state State) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	payload, err := json.Marshal(state)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO sim_state (key, payload)
		VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET
			payload = excluded.payload
	`, stateKey, payload)
	return err
}

// Load reads the snapshot. A missing row or an undecodable payload returns
// found=false with no error; the caller starts fresh.
func (s *Store) Load(ctx context.Context) (State, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return State{}, false, err
	}

	var payload []byte
	err = db.QueryRowContext(ctx, `SELECT payload FROM sim_state WHERE key = ?`, stateKey).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return State{}, false, nil
		}
		return State{}, false, err
	}

	var state State
	if err := json.Unmarshal(payload, &state); err != nil {
		return State{}, false, nil
	}
	return state, true, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *Store) getDB() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, errors.New("store: closed")
	}
	return s.db, nil
}
