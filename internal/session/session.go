// Package session keeps one isolated game state per player.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/uberfrank/bierephilo/internal/game"
)

// ErrNotFound is returned when a session id is unknown or expired.
var ErrNotFound = errors.New("session not found")

// Session is a player's game state plus its language preference.
type Session struct {
	ID        uuid.UUID   `json:"id"`
	Lang      string      `json:"lang"`
	State     *game.State `json:"state"`
	CreatedAt time.Time   `json:"createdAt"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

// New returns a session with a fresh id and a reset state.
func New(lang string) *Session {
	now := time.Now().UTC()
	return &Session{
		ID:        uuid.New(),
		Lang:      lang,
		State:     game.NewState(),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Store persists sessions. Implementations must return ErrNotFound for
// missing ids and hand out sessions that do not alias stored data.
type Store interface {
	Get(ctx context.Context, id uuid.UUID) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id uuid.UUID) error
}
