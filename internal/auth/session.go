package auth

import (
	"context"
	"time"
)

type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleUser
}

// Session is the server-side record behind a session token.
type Session struct {
	Token     string    `json:"-"`
	UserID    int       `json:"userId"`
	Username  string    `json:"username"`
	Avatar    string    `json:"avatar"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

func (s *Session) IsAdmin() bool {
	return s.Role == RoleAdmin
}

type sessionCtxKey struct{}

// WithSession returns a copy of ctx carrying the authenticated session.
func WithSession(ctx context.Context, session *Session) context.Context {
	return context.WithValue(ctx, sessionCtxKey{}, session)
}

// FromContext returns the session put there by the auth middleware.
func FromContext(ctx context.Context) (*Session, bool) {
	session, ok := ctx.Value(sessionCtxKey{}).(*Session)
	return session, ok && session != nil
}
