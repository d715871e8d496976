package session

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/schooldesk/console/internal/backend"
	"github.com/schooldesk/console/internal/store"
	"github.com/schooldesk/console/types"
	"github.com/sirupsen/logrus"
)

const (
	msgMissingCredentials = "Email and password are required"
	msgMissingToken       = "Login failed: the server did not return an access token"
	msgUnreachable        = "Unable to reach the server, please try again"
	msgPersistFailed      = "Could not save the session, please try again"
	msgProfileFailed      = "Login succeeded but the profile could not be loaded"
)

// Manager is the single writer of one Session. Operations are serialized;
// Session snapshots may be read concurrently.
type Manager struct {
	id   string
	auth Authenticator
	kv   store.KV
	log  logrus.FieldLogger
	now  func() time.Time

	opMu sync.Mutex

	stateMu sync.RWMutex
	session Session

	listenersMu sync.RWMutex
	listeners   map[int]Listener
	nextID      int
}

// Option customizes a Manager.
type Option func(*Manager)

// WithID tags emitted events with a session identifier.
func WithID(id string) Option {
	return func(m *Manager) {
		m.id = id
	}
}

// WithLogger sets the Manager's logger.
func WithLogger(log logrus.FieldLogger) Option {
	return func(m *Manager) {
		m.log = log
	}
}

// NewManager constructs a Manager in the uninitialized state. kv holds the
// persisted mirror and should already be namespaced to this session.
func NewManager(auth Authenticator, kv store.KV, opts ...Option) *Manager {
	m := &Manager{
		auth:      auth,
		kv:        kv,
		now:       time.Now,
		session:   Session{State: StateUninitialized, Loading: true},
		listeners: make(map[int]Listener),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.log == nil {
		logger := logrus.New()
		logger.SetOutput(io.Discard)
		m.log = logger
	}
	return m
}

// ID returns the session identifier given with WithID.
func (m *Manager) ID() string {
	return m.id
}

// Session returns a snapshot of the current state.
func (m *Manager) Session() Session {
	m.stateMu.RLock()
	defer m.stateMu.RUnlock()
	snap := m.session
	if snap.User != nil {
		user := *snap.User
		snap.User = &user
	}
	return snap
}

// Subscribe registers l and returns a function that removes it.
func (m *Manager) Subscribe(l Listener) func() {
	m.listenersMu.Lock()
	id := m.nextID
	m.nextID++
	m.listeners[id] = l
	m.listenersMu.Unlock()

	return func() {
		m.listenersMu.Lock()
		delete(m.listeners, id)
		m.listenersMu.Unlock()
	}
}

// Initialize validates the persisted token against the backend. Without a
// token the session becomes anonymous immediately. Any validation failure
// discards the persisted token; it is not retried.
func (m *Manager) Initialize(ctx context.Context) Session {
	m.opMu.Lock()
	defer m.opMu.Unlock()
	return m.initialize(ctx)
}

// Ensure runs Initialize unless it already ran. Concurrent callers wait for
// the first validation instead of repeating it.
func (m *Manager) Ensure(ctx context.Context) Session {
	m.opMu.Lock()
	defer m.opMu.Unlock()
	if m.Session().State != StateUninitialized {
		return m.Session()
	}
	return m.initialize(ctx)
}

func (m *Manager) initialize(ctx context.Context) Session {
	token, err := m.kv.Get(ctx, TokenKey)
	if err != nil || token == "" {
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			m.log.WithError(err).Error("read persisted session token")
		}
		m.set(Session{State: StateAnonymous})
		return m.Session()
	}

	m.set(Session{State: StateValidating, Loading: true, Token: token, User: m.mirroredUser(ctx)})

	user, err := m.auth.Me(ctx, token)
	if err != nil {
		m.log.WithError(err).Info("persisted session token rejected")
		m.forget(ctx)
		m.set(Session{State: StateAnonymous})
		m.emit(Event{Kind: EventInvalidated})
		return m.Session()
	}

	m.mirrorUser(ctx, user)
	m.set(Session{State: StateAuthenticated, Token: token, User: &user})
	return m.Session()
}

// Login authenticates with the backend. The session is only modified once
// a token was received, persisted, and the profile fetched.
func (m *Manager) Login(ctx context.Context, email, password string) LoginResult {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return LoginResult{Message: msgMissingCredentials}
	}

	m.opMu.Lock()
	defer m.opMu.Unlock()

	resp, err := m.auth.Login(ctx, email, password)
	if err != nil {
		m.log.WithError(err).Info("login rejected")
		return LoginResult{Message: backend.Message(err, msgUnreachable)}
	}
	if strings.TrimSpace(resp.AccessToken) == "" {
		msg := resp.Message
		if msg == "" {
			msg = msgMissingToken
		}
		return LoginResult{Message: msg}
	}

	previous, err := m.kv.Get(ctx, TokenKey)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		m.log.WithError(err).Error("read persisted session token")
		return LoginResult{Message: msgPersistFailed}
	}

	if err := m.kv.Set(ctx, TokenKey, resp.AccessToken); err != nil {
		m.log.WithError(err).Error("persist session token")
		return LoginResult{Message: msgPersistFailed}
	}

	user, err := m.auth.Me(ctx, resp.AccessToken)
	if err != nil {
		m.log.WithError(err).Warn("fetch profile after login")
		m.restoreToken(ctx, previous)
		return LoginResult{Message: backend.Message(err, msgProfileFailed)}
	}

	m.mirrorUser(ctx, user)
	m.set(Session{State: StateAuthenticated, Token: resp.AccessToken, User: &user})
	m.emit(Event{Kind: EventLogin, UserID: user.ID})

	out := user
	return LoginResult{Success: true, User: &out}
}

// Logout revokes the token on a best-effort basis and always clears the
// local session.
func (m *Manager) Logout(ctx context.Context) {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	current := m.Session()
	if current.Token != "" {
		if err := m.auth.Logout(ctx, current.Token); err != nil {
			m.log.WithError(err).Debug("backend logout failed")
		}
	}

	m.forget(ctx)
	m.set(Session{State: StateAnonymous})

	ev := Event{Kind: EventLogout}
	if current.User != nil {
		ev.UserID = current.User.ID
	}
	m.emit(ev)
}

// Refresh re-fetches the current user, e.g. after a profile edit. An
// authentication failure ends the session.
func (m *Manager) Refresh(ctx context.Context) error {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	current := m.Session()
	if !current.Authenticated() {
		return nil
	}

	user, err := m.auth.Me(ctx, current.Token)
	if err != nil {
		if errors.Is(err, backend.ErrUnauthorized) {
			m.forget(ctx)
			m.set(Session{State: StateAnonymous})
			m.emit(Event{Kind: EventInvalidated, UserID: current.User.ID})
		}
		return err
	}

	m.mirrorUser(ctx, user)
	m.set(Session{State: StateAuthenticated, Token: current.Token, User: &user})
	return nil
}

func (m *Manager) set(s Session) {
	m.stateMu.Lock()
	m.session = s
	m.stateMu.Unlock()
}

// restoreToken puts back the token persisted before a failed login, or
// removes the key when there was none.
func (m *Manager) restoreToken(ctx context.Context, previous string) {
	var err error
	if previous == "" {
		err = m.kv.Delete(ctx, TokenKey)
	} else {
		err = m.kv.Set(ctx, TokenKey, previous)
	}
	if err != nil {
		m.log.WithError(err).Error("roll back session token")
	}
}

func (m *Manager) forget(ctx context.Context) {
	if err := m.kv.Delete(ctx, TokenKey); err != nil {
		m.log.WithError(err).Error("delete persisted session token")
	}
	if err := m.kv.Delete(ctx, UserKey); err != nil {
		m.log.WithError(err).Warn("delete persisted user")
	}
}

func (m *Manager) mirrorUser(ctx context.Context, user types.User) {
	raw, err := json.Marshal(user)
	if err != nil {
		return
	}
	if err := m.kv.Set(ctx, UserKey, string(raw)); err != nil {
		m.log.WithError(err).Warn("mirror user")
	}
}

// mirroredUser returns the last known user, possibly stale.
func (m *Manager) mirroredUser(ctx context.Context) *types.User {
	raw, err := m.kv.Get(ctx, UserKey)
	if err != nil {
		return nil
	}
	var user types.User
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		return nil
	}
	return &user
}

func (m *Manager) emit(ev Event) {
	ev.SessionID = m.id
	ev.At = m.now()

	m.listenersMu.RLock()
	listeners := make([]Listener, 0, len(m.listeners))
	for _, l := range m.listeners {
		listeners = append(listeners, l)
	}
	m.listenersMu.RUnlock()

	for _, l := range listeners {
		l(ev)
	}
}
