// Package session provides bounded per-session conversation memory for the
// chat resolver: a conversation stage tag, the most recent exchanges and an
// optional remembered user name.
package session

import (
	"context"
	"time"
)

// MaxRecentMessages caps the recent-message log per session. Entries
// alternate "User: ..." / "Bot: ...", so the cap keeps the last two
// exchanges.
const MaxRecentMessages = 4

// State is the conversational state of one session.
type State struct {
	SessionID      string   `json:"session_id"`
	Stage          string   `json:"stage,omitempty"`
	RecentMessages []string `json:"recent_messages"`
	RememberedName string   `json:"remembered_name,omitempty"`
	CreatedAt      int64    `json:"created_at"`
	UpdatedAt      int64    `json:"updated_at"`
}

// Service is the session memory contract. Implementations must serialize
// updates per session id while keeping distinct sessions independent.
type Service interface {
	// Get returns the state for the session, creating a fresh default
	// state if the session is unknown. The returned value is a copy.
	Get(ctx context.Context, sessionID string) (*State, error)

	// AppendExchange records one user/bot exchange, evicting the oldest
	// exchange once the log would exceed MaxRecentMessages.
	AppendExchange(ctx context.Context, sessionID, userMsg, botMsg string) error

	// RememberName stores the user's name for the session's lifetime.
	RememberName(ctx context.Context, sessionID, name string) error

	// RecallName returns the remembered name, or "" when none is set.
	RecallName(ctx context.Context, sessionID string) (string, error)

	// SetStage records the dialog stage tag reached by the session.
	SetStage(ctx context.Context, sessionID, stage string) error

	// Delete removes the session.
	Delete(ctx context.Context, sessionID string) error

	// CleanupExpired removes sessions idle for longer than ttl and
	// returns the number removed.
	CleanupExpired(ctx context.Context, ttl time.Duration) (int64, error)
}
