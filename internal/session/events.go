package session

import "time"

// EventKind names a session transition observable by other parts of the
// console.
type EventKind string

const (
	EventLogin       EventKind = "login"
	EventLogout      EventKind = "logout"
	EventInvalidated EventKind = "invalidated"
)

// Event is emitted after the session state changed.
type Event struct {
	Kind      EventKind `json:"kind"`
	SessionID string    `json:"session_id"`
	UserID    int       `json:"user_id,omitempty"`
	At        time.Time `json:"at"`
}

// Listener receives events synchronously after the state change. It must
// not call back into Manager operations.
type Listener func(Event)
