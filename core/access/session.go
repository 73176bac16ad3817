package access

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Role is the app a session belongs to.
type Role string

const (
	RoleStudent Role = "student"
	RoleAdmin   Role = "admin"
)

// State of a session. A session is created Unadmitted and moves to Admitted only through the Gate.
type State int

const (
	StateUnadmitted State = iota
	StateAdmitted
)

func (s State) String() string {
	if s == StateAdmitted {
		return "admitted"
	}
	return "unadmitted"
}

var (
	// errors
	ErrSessionNotFound = errors.New("session not found")
	ErrNotAdmitted     = errors.New("session not admitted")
	ErrWrongRole       = errors.New("session belongs to another app")
)

type (
	Session struct {
		ID         string    `json:"id"`
		Role       Role      `json:"role"`
		State      State     `json:"state"`
		Identity   string    `json:"identity,omitempty"`
		CreatedAt  time.Time `json:"created_at"`            // UTC
		AdmittedAt time.Time `json:"admitted_at,omitempty"` // UTC
		ExpiresAt  time.Time `json:"expires_at"`            // UTC
	}

	SessionStore interface {
		Get(ctx context.Context, id string) (Session, error)
		Save(ctx context.Context, sess Session) error
		Delete(ctx context.Context, id string) error
	}
)

// NewSession starts a cold, unadmitted session for `role`.
func NewSession(role Role, ttl time.Duration) Session {
	now := time.Now().UTC()
	return Session{
		ID:        uuid.New().String(),
		Role:      role,
		State:     StateUnadmitted,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}

func (s *Session) IsAdmitted() bool {
	return s != nil && s.State == StateAdmitted && s.Identity != ""
}

func (s *Session) IsExpired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}

// admit is the Unadmitted -> Admitted transition; only the Gate calls it.
func (s *Session) admit(identity string) {
	s.State = StateAdmitted
	s.Identity = identity
	s.AdmittedAt = time.Now().UTC()
}

// Revoke moves the session back to Unadmitted and forgets its identity.
func (s *Session) Revoke() {
	s.State = StateUnadmitted
	s.Identity = ""
	s.AdmittedAt = time.Time{}
}

// Require checks that the session is admitted for `role`.
func (s *Session) Require(role Role) error {
	if !s.IsAdmitted() {
		return ErrNotAdmitted
	}
	if s.Role != role {
		return ErrWrongRole
	}
	return nil
}
