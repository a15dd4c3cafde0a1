package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// sqliteStore implements Service on a SQLite database for deployments that
// want session memory to survive restarts. Read-modify-write cycles are
// serialized with a per-session lock; distinct sessions proceed in parallel.
type sqliteStore struct {
	db *sql.DB

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewSQLiteStore creates a SQLite-backed session store on an already opened
// database handle and ensures its schema exists.
func NewSQLiteStore(db *sql.DB) (Service, error) {
	store := &sqliteStore{
		db:    db,
		locks: make(map[string]*sync.Mutex),
	}
	if err := store.migrate(); err != nil {
		return nil, err
	}
	return store, nil
}

func (s *sqliteStore) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS chat_session (
			session_id TEXT PRIMARY KEY,
			stage TEXT NOT NULL DEFAULT '',
			remembered_name TEXT NOT NULL DEFAULT '',
			recent_messages TEXT NOT NULL DEFAULT '[]',
			created_ts BIGINT NOT NULL,
			updated_ts BIGINT NOT NULL
		)
	`)
	return errors.Wrap(err, "create chat_session table")
}

func (s *sqliteStore) Get(ctx context.Context, sessionID string) (*State, error) {
	unlock := s.lock(sessionID)
	defer unlock()
	return s.load(ctx, sessionID)
}

func (s *sqliteStore) AppendExchange(ctx context.Context, sessionID, userMsg, botMsg string) error {
	unlock := s.lock(sessionID)
	defer unlock()

	state, err := s.load(ctx, sessionID)
	if err != nil {
		return err
	}
	state.RecentMessages = append(state.RecentMessages, "User: "+userMsg, "Bot: "+botMsg)
	state.RecentMessages = trimRecent(state.RecentMessages)
	return s.save(ctx, state)
}

func (s *sqliteStore) RememberName(ctx context.Context, sessionID, name string) error {
	unlock := s.lock(sessionID)
	defer unlock()

	state, err := s.load(ctx, sessionID)
	if err != nil {
		return err
	}
	state.RememberedName = name
	return s.save(ctx, state)
}

func (s *sqliteStore) RecallName(ctx context.Context, sessionID string) (string, error) {
	unlock := s.lock(sessionID)
	defer unlock()

	state, err := s.load(ctx, sessionID)
	if err != nil {
		return "", err
	}
	return state.RememberedName, nil
}

func (s *sqliteStore) SetStage(ctx context.Context, sessionID, stage string) error {
	unlock := s.lock(sessionID)
	defer unlock()

	state, err := s.load(ctx, sessionID)
	if err != nil {
		return err
	}
	state.Stage = stage
	return s.save(ctx, state)
}

func (s *sqliteStore) Delete(ctx context.Context, sessionID string) error {
	unlock := s.lock(sessionID)
	defer unlock()

	if _, err := s.db.ExecContext(ctx, `DELETE FROM chat_session WHERE session_id = ?`, sessionID); err != nil {
		return errors.Wrap(err, "delete session")
	}
	s.pruneLocks(sessionID)
	return nil
}

func (s *sqliteStore) CleanupExpired(ctx context.Context, ttl time.Duration) (int64, error) {
	cutoff := time.Now().Add(-ttl).Unix()

	rows, err := s.db.QueryContext(ctx, `SELECT session_id FROM chat_session WHERE updated_ts < ?`, cutoff)
	if err != nil {
		return 0, errors.Wrap(err, "find expired sessions")
	}
	var expired []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			_ = rows.Close()
			return 0, errors.Wrap(err, "scan expired session")
		}
		expired = append(expired, id)
	}
	_ = rows.Close()
	if err := rows.Err(); err != nil {
		return 0, errors.Wrap(err, "find expired sessions")
	}

	result, err := s.db.ExecContext(ctx, `DELETE FROM chat_session WHERE updated_ts < ?`, cutoff)
	if err != nil {
		return 0, errors.Wrap(err, "cleanup expired sessions")
	}
	s.pruneLocks(expired...)
	return result.RowsAffected()
}

// load reads the session row, creating a default state for unknown sessions.
func (s *sqliteStore) load(ctx context.Context, sessionID string) (*State, error) {
	query := `
		SELECT session_id, stage, remembered_name, recent_messages, created_ts, updated_ts
		FROM chat_session
		WHERE session_id = ?
	`

	var (
		state State
		data  []byte
	)
	err := s.db.QueryRowContext(ctx, query, sessionID).Scan(
		&state.SessionID, &state.Stage, &state.RememberedName, &data, &state.CreatedAt, &state.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		now := time.Now().Unix()
		return &State{SessionID: sessionID, CreatedAt: now, UpdatedAt: now}, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "load session")
	}

	if err := json.Unmarshal(data, &state.RecentMessages); err != nil {
		slog.Warn("failed to unmarshal recent messages, starting empty",
			"session_id", sessionID, "error", err)
		state.RecentMessages = nil
	}
	return &state, nil
}

func (s *sqliteStore) save(ctx context.Context, state *State) error {
	state.UpdatedAt = time.Now().Unix()
	if state.CreatedAt == 0 {
		state.CreatedAt = state.UpdatedAt
	}

	data, err := json.Marshal(state.RecentMessages)
	if err != nil {
		return errors.Wrap(err, "marshal recent messages")
	}

	query := `
		INSERT INTO chat_session (session_id, stage, remembered_name, recent_messages, created_ts, updated_ts)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (session_id)
		DO UPDATE SET
			stage = excluded.stage,
			remembered_name = excluded.remembered_name,
			recent_messages = excluded.recent_messages,
			updated_ts = excluded.updated_ts
	`
	_, err = s.db.ExecContext(ctx, query,
		state.SessionID, state.Stage, state.RememberedName, data, state.CreatedAt, state.UpdatedAt)
	return errors.Wrap(err, "save session")
}

// pruneLocks drops the per-session mutexes for removed sessions so the lock
// map does not grow for the process lifetime. A removed session that is still
// mid-request gets a fresh mutex on its next access.
func (s *sqliteStore) pruneLocks(sessionIDs ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range sessionIDs {
		delete(s.locks, id)
	}
}

// lock acquires the per-session mutex and returns its release func.
func (s *sqliteStore) lock(sessionID string) func() {
	s.mu.Lock()
	m, ok := s.locks[sessionID]
	if !ok {
		m = &sync.Mutex{}
		s.locks[sessionID] = m
	}
	s.mu.Unlock()

	m.Lock()
	return m.Unlock
}

// Ensure sqliteStore implements Service
var _ Service = (*sqliteStore)(nil)
