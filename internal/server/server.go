package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/schooldesk/console/config"
	"github.com/schooldesk/console/internal/backend"
	"github.com/schooldesk/console/internal/db"
	"github.com/schooldesk/console/internal/handlers"
	"github.com/schooldesk/console/internal/logging"
	"github.com/schooldesk/console/internal/metrics"
	"github.com/schooldesk/console/internal/mq"
	"github.com/schooldesk/console/internal/rbac"
	"github.com/schooldesk/console/internal/session"
	"github.com/schooldesk/console/internal/storage"
	"github.com/schooldesk/console/internal/store"
	"github.com/sirupsen/logrus"
)

const purgeInterval = 10 * time.Minute

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	log        *logrus.Logger
	db         *sql.DB
	redis      *store.RedisKV
	storage    *storage.Storage
	mq         *mq.MQ
	events     *mq.Events
	stop       context.CancelFunc
}

// New constructs a Server from cfg. SESSION_SECRET is required.
func New(ctx context.Context, cfg config.Config) (*Server, error) {
	if strings.TrimSpace(cfg.Session.Secret) == "" {
		return nil, errors.New("SESSION_SECRET is required")
	}

	log, err := logging.New(cfg.Log, os.Stderr)
	if err != nil {
		return nil, err
	}
	m := metrics.New()

	s := &Server{log: log}
	bg, stop := context.WithCancel(context.Background())
	s.stop = stop
	ok := false
	defer func() {
		if !ok {
			_ = s.Shutdown(context.Background())
		}
	}()

	kv, err := s.openKV(ctx, bg, cfg)
	if err != nil {
		return nil, err
	}

	if s.storage, err = storage.Open(ctx, cfg.Storage); err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	if s.mq, err = mq.Open(ctx, cfg.MQ); err != nil {
		return nil, fmt.Errorf("open mq: %w", err)
	}

	client := backend.New(cfg.APIURL, cfg.RequestTimeout,
		backend.WithMetrics(m),
		backend.WithLogger(log.WithField("component", "backend")),
	)

	opts := []handlers.SessionsOption{
		handlers.WithSessionsLogger(log.WithField("component", "session")),
		handlers.WithSessionsMetrics(m),
		handlers.WithListener(func(ev session.Event) {
			log.WithFields(logrus.Fields{"kind": ev.Kind, "session": ev.SessionID, "user": ev.UserID}).Info("session event")
		}),
	}
	if s.mq != nil {
		s.events = mq.NewEvents(s.mq, cfg.Session.EventChannel, log.WithField("component", "mq"))
		opts = append(opts, handlers.WithListener(s.events.Listener()))
	}

	sessions, err := handlers.NewSessions(handlers.SessionsConfig{
		Secret:     cfg.Session.Secret,
		CookieName: cfg.Session.CookieName,
		Secure:     cfg.Session.CookieSecure,
		TTL:        cfg.Session.TTL,
		CacheSize:  cfg.Session.CacheSize,
	}, client, kv, opts...)
	if err != nil {
		return nil, err
	}

	fileURL := cfg.FileURL
	if s.storage != nil {
		fileURL = "/files"
	}
	h, err := handlers.New(handlers.Config{
		Client:   client,
		Sessions: sessions,
		Storage:  s.storage,
		Metrics:  m,
		Log:      log.WithField("component", "handlers"),
		Menu:     rbac.DefaultMenu(),
		PageSize: cfg.PageSize,
		FileURL:  fileURL,
	})
	if err != nil {
		return nil, err
	}

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		logging.Requests(log),
		middleware.Timeout(60*time.Second),
	)
	router.Mount("/", h.Router())

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	s.router = router
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	ok = true
	return s, nil
}

// openKV selects the persistent session store. Postgres rows are purged
// in the background until bg ends.
func (s *Server) openKV(ctx, bg context.Context, cfg config.Config) (store.KV, error) {
	switch cfg.Session.Backend {
	case "", "memory":
		return store.NewMemoryKV(cfg.Session.TTL), nil
	case "redis":
		client, err := store.OpenRedis(ctx, cfg.Redis.URL)
		if err != nil {
			return nil, fmt.Errorf("open redis: %w", err)
		}
		s.redis = store.NewRedisKV(client, cfg.Session.TTL)
		return s.redis, nil
	case "postgres":
		conn, err := db.Open(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		s.db = conn
		kv := store.NewPostgresKV(conn, cfg.Session.TTL)
		go s.purge(bg, kv)
		return kv, nil
	default:
		return nil, fmt.Errorf("unknown session backend %q", cfg.Session.Backend)
	}
}

func (s *Server) purge(ctx context.Context, kv *store.PostgresKV) {
	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := kv.PurgeExpired(ctx)
			if err != nil {
				s.log.WithError(err).Warn("purge expired sessions")
				continue
			}
			if n > 0 {
				s.log.WithField("rows", n).Debug("purged expired sessions")
			}
		}
	}
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server. It returns nil after a graceful shutdown.
func (s *Server) Start() error {
	s.log.WithField("addr", s.httpServer.Addr).Info("console listening")
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests, drains in-flight ones, then closes
// stores and brokers.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	if s.httpServer != nil {
		err = s.httpServer.Shutdown(ctx)
	}
	if s.stop != nil {
		s.stop()
	}
	if s.events != nil {
		s.events.Wait()
	}
	if s.mq != nil {
		_ = s.mq.Close()
	}
	if s.storage != nil {
		_ = s.storage.Close()
	}
	if s.redis != nil {
		_ = s.redis.Close()
	}
	if s.db != nil {
		_ = s.db.Close()
	}
	return err
}
