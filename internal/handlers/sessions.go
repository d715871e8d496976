package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/schooldesk/console/internal/metrics"
	"github.com/schooldesk/console/internal/session"
	"github.com/schooldesk/console/internal/store"
	"github.com/sirupsen/logrus"
)

const (
	defaultCookieName = "console_session"
	defaultSessionTTL = 12 * time.Hour
	defaultCacheSize  = 1024
)

// SessionsConfig configures the browser session cookie and the manager
// cache.
type SessionsConfig struct {
	Secret     string
	CookieName string
	Secure     bool
	TTL        time.Duration
	CacheSize  int
}

// SessionsOption customizes Sessions.
type SessionsOption func(*Sessions)

// WithSessionsLogger sets the logger handed to every Manager.
func WithSessionsLogger(log logrus.FieldLogger) SessionsOption {
	return func(s *Sessions) {
		s.log = log
	}
}

// WithSessionsMetrics reports cache size and session events.
func WithSessionsMetrics(m *metrics.Metrics) SessionsOption {
	return func(s *Sessions) {
		s.metrics = m
	}
}

// WithListener subscribes l to every Manager created.
func WithListener(l session.Listener) SessionsOption {
	return func(s *Sessions) {
		s.listeners = append(s.listeners, l)
	}
}

// Sessions binds browsers to Session Managers. The cookie carries a signed
// session id; the persisted mirror lives in kv under that id. A Manager
// missing from the cache is rebuilt from kv, which is what a page reload
// amounts to.
type Sessions struct {
	cfg       SessionsConfig
	secret    []byte
	auth      session.Authenticator
	kv        store.KV
	log       logrus.FieldLogger
	metrics   *metrics.Metrics
	listeners []session.Listener
	newID     func() string

	mu     sync.Mutex
	cache  *expirable.LRU[string, *session.Manager]
	cached atomic.Int64
}

// NewSessions constructs Sessions. The secret signs session cookies and is
// required.
func NewSessions(cfg SessionsConfig, auth session.Authenticator, kv store.KV, opts ...SessionsOption) (*Sessions, error) {
	if strings.TrimSpace(cfg.Secret) == "" {
		return nil, errors.New("session secret is required")
	}
	if cfg.CookieName == "" {
		cfg.CookieName = defaultCookieName
	}
	if cfg.TTL <= 0 {
		cfg.TTL = defaultSessionTTL
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = defaultCacheSize
	}

	s := &Sessions{
		cfg:    cfg,
		secret: []byte(cfg.Secret),
		auth:   auth,
		kv:     kv,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		logger := logrus.New()
		logger.SetOutput(io.Discard)
		s.log = logger
	}

	s.cache = expirable.NewLRU[string, *session.Manager](cfg.CacheSize, func(string, *session.Manager) {
		s.metrics.SetSessionsCached(int(s.cached.Add(-1)))
	}, cfg.TTL)
	return s, nil
}

// Middleware attaches the caller's Manager to the request context,
// issuing a new session cookie when none is valid. The Manager is
// initialized before the request proceeds.
func (s *Sessions) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := s.sessionID(r)
		if err != nil {
			id = s.newID()
			if err := s.setCookie(w, id); err != nil {
				s.log.WithError(err).Error("issue session cookie")
				writeError(w, http.StatusInternalServerError, "failed to start session")
				return
			}
		}

		m := s.manager(id)
		m.Ensure(r.Context())

		ctx := context.WithValue(r.Context(), contextManagerKey, m)
		ctx = context.WithValue(ctx, contextKVKey, store.KV(store.Namespace(s.kv, id)))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Len returns the number of cached managers.
func (s *Sessions) Len() int {
	return s.cache.Len()
}

func (s *Sessions) manager(id string) *session.Manager {
	s.mu.Lock()
	defer s.mu.Unlock()

	if m, ok := s.cache.Get(id); ok {
		return m
	}

	m := session.NewManager(s.auth, store.Namespace(s.kv, id),
		session.WithID(id),
		session.WithLogger(s.log.WithField("session", id)),
	)
	m.Subscribe(func(ev session.Event) {
		s.metrics.ObserveSessionEvent(string(ev.Kind))
	})
	for _, l := range s.listeners {
		m.Subscribe(l)
	}

	s.cache.Add(id, m)
	s.metrics.SetSessionsCached(int(s.cached.Add(1)))
	return m
}

func (s *Sessions) sessionID(r *http.Request) (string, error) {
	cookie, err := r.Cookie(s.cfg.CookieName)
	if err != nil {
		return "", err
	}
	subject, err := parseTokenSubject(cookie.Value, s.secret)
	if err != nil {
		return "", err
	}
	if _, err := uuid.Parse(subject); err != nil {
		return "", errors.New("invalid session id")
	}
	return subject, nil
}

func (s *Sessions) setCookie(w http.ResponseWriter, id string) error {
	token, err := issueToken(id, s.secret, s.cfg.TTL)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     s.cfg.CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.cfg.TTL / time.Second),
		HttpOnly: true,
		Secure:   s.cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// CurrentManager returns the Manager attached by Sessions.Middleware.
func CurrentManager(ctx context.Context) *session.Manager {
	m, _ := ctx.Value(contextManagerKey).(*session.Manager)
	return m
}

func currentSession(ctx context.Context) session.Session {
	m := CurrentManager(ctx)
	if m == nil {
		return session.Session{State: session.StateAnonymous}
	}
	return m.Session()
}

func sessionKV(ctx context.Context) store.KV {
	kv, _ := ctx.Value(contextKVKey).(store.KV)
	return kv
}

func issueToken(sessionID string, secret []byte, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   sessionID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

func parseTokenSubject(tokenString string, secret []byte) (string, error) {
	claims := jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return secret, nil
	})
	if err != nil {
		return "", err
	}
	if !token.Valid {
		return "", errors.New("invalid token")
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return "", errors.New("missing subject")
	}
	return claims.Subject, nil
}
