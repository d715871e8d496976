// Package session owns the console Session: the current user and bearer
// token. The Manager is its only writer; consumers read snapshots.
package session

import (
	"context"

	"github.com/schooldesk/console/internal/backend"
	"github.com/schooldesk/console/types"
)

// Fixed key names of the persisted session mirror.
const (
	TokenKey = "auth_token"
	UserKey  = "auth_user"
)

// State is the lifecycle position of a Session.
type State string

const (
	StateUninitialized State = "uninitialized"
	StateValidating    State = "validating"
	StateAuthenticated State = "authenticated"
	StateAnonymous     State = "anonymous"
)

// Session is a read-only snapshot of the current authentication state.
type Session struct {
	User    *types.User
	Token   string
	Loading bool
	State   State
}

// Authenticated reports whether a validated user is present.
func (s Session) Authenticated() bool {
	return s.State == StateAuthenticated && s.User != nil
}

// Role returns the current user's role, or nil when nobody is logged in.
func (s Session) Role() *types.Role {
	if !s.Authenticated() {
		return nil
	}
	role := s.User.Role
	return &role
}

// Authenticator is the subset of the backend used by the Manager.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (backend.LoginResponse, error)
	Me(ctx context.Context, token string) (types.User, error)
	Logout(ctx context.Context, token string) error
}

// LoginResult is the outcome of Manager.Login. Failures carry a
// user-facing Message instead of an error.
type LoginResult struct {
	Success bool
	Message string
	User    *types.User
}
