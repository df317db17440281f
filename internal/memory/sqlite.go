package memory

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS turns (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	agent_id   TEXT NOT NULL,
	session_id TEXT NOT NULL,
	role       TEXT NOT NULL,
	content    TEXT NOT NULL,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_turns_key ON turns (agent_id, session_id, id);
`

// SQLiteStore persists conversation logs in a single SQLite file. Append
// order is preserved by the rowid; reads replay the partition in insertion
// order regardless of clock skew between concurrent writers.
type SQLiteStore struct {
	db   *sql.DB
	keys *keyLocks
}

// OpenSQLite opens (creating if needed) the conversation database at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("memory: ensure db dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("memory: open %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("memory: ping %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("memory: ensure schema: %w", err)
	}
	return &SQLiteStore{db: db, keys: newKeyLocks()}, nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Read returns all turns for the key in append order.
func (s *SQLiteStore) Read(ctx context.Context, agentID, sessionID string) ([]Turn, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT role, content, created_at FROM turns WHERE agent_id = ? AND session_id = ? ORDER BY id`,
		agentID, sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("memory: read %s/%s: %w", agentID, sessionID, err)
	}
	defer rows.Close()

	var turns []Turn
	for rows.Next() {
		var turn Turn
		var role, created string
		if err := rows.Scan(&role, &turn.Content, &created); err != nil {
			return nil, fmt.Errorf("memory: scan turn: %w", err)
		}
		turn.Role = Role(role)
		if ts, err := time.Parse(time.RFC3339Nano, created); err == nil {
			turn.CreatedAt = ts
		}
		turns = append(turns, turn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("memory: iterate turns: %w", err)
	}
	return turns, nil
}

// Append adds one turn to the key's partition. Same-key appends serialize on
// a per-key mutex; distinct keys proceed independently.
func (s *SQLiteStore) Append(ctx context.Context, agentID, sessionID string, turn Turn) error {
	lock := s.keys.lock(partitionKey(agentID, sessionID))
	lock.Lock()
	defer lock.Unlock()
	created := turn.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO turns (agent_id, session_id, role, content, created_at) VALUES (?, ?, ?, ?, ?)`,
		agentID, sessionID, string(turn.Role), turn.Content, created.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("memory: append %s/%s: %w", agentID, sessionID, err)
	}
	return nil
}

// Clear drops one key's partition.
func (s *SQLiteStore) Clear(ctx context.Context, agentID, sessionID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM turns WHERE agent_id = ? AND session_id = ?`, agentID, sessionID)
	if err != nil {
		return fmt.Errorf("memory: clear %s/%s: %w", agentID, sessionID, err)
	}
	return nil
}

// ClearAll wipes every conversation log.
func (s *SQLiteStore) ClearAll(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM turns`); err != nil {
		return fmt.Errorf("memory: clear all: %w", err)
	}
	return nil
}
