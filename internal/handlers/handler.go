// Package handlers serves the console pages: login, dashboard, the CRUD
// screens and the profile, guarded by session and role checks.
package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/schooldesk/console/internal/backend"
	"github.com/schooldesk/console/internal/metrics"
	"github.com/schooldesk/console/internal/rbac"
	"github.com/schooldesk/console/internal/screens"
	"github.com/schooldesk/console/internal/storage"
	"github.com/schooldesk/console/types"
	"github.com/sirupsen/logrus"
)

const defaultPageSize = 10

// Config carries the dependencies of Handler. Storage serves /files/* and
// may be nil. FileURL prefixes object keys in rendered image links.
type Config struct {
	Client   *backend.Client
	Sessions *Sessions
	Storage  *storage.Storage
	Metrics  *metrics.Metrics
	Log      logrus.FieldLogger
	Menu     []types.MenuNode
	PageSize int
	FileURL  string
}

// Handler renders the console.
type Handler struct {
	client   *backend.Client
	sessions *Sessions
	storage  *storage.Storage
	metrics  *metrics.Metrics
	log      logrus.FieldLogger
	menu     []types.MenuNode
	pageSize int
	views    *views

	parents   *backend.Resource[types.Parent]
	suppliers *backend.Resource[types.Supplier]
	receipts  *backend.Resource[types.InventoryReceipt]
	sites     *backend.Resource[types.Site]
	users     *backend.Resource[types.User]
}

// New constructs a Handler and parses its templates.
func New(cfg Config) (*Handler, error) {
	if cfg.Client == nil {
		return nil, errors.New("backend client is required")
	}
	if cfg.Sessions == nil {
		return nil, errors.New("sessions are required")
	}
	if cfg.Menu == nil {
		cfg.Menu = rbac.DefaultMenu()
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = defaultPageSize
	}
	if cfg.Log == nil {
		logger := logrus.New()
		logger.SetOutput(io.Discard)
		cfg.Log = logger
	}
	if cfg.FileURL == "" && cfg.Storage != nil {
		cfg.FileURL = "/files"
	}

	v, err := newViews(cfg.FileURL)
	if err != nil {
		return nil, err
	}

	return &Handler{
		client:    cfg.Client,
		sessions:  cfg.Sessions,
		storage:   cfg.Storage,
		metrics:   cfg.Metrics,
		log:       cfg.Log,
		menu:      cfg.Menu,
		pageSize:  cfg.PageSize,
		views:     v,
		parents:   backend.NewResource[types.Parent](cfg.Client, "parents"),
		suppliers: backend.NewResource[types.Supplier](cfg.Client, "suppliers"),
		receipts:  backend.NewResource[types.InventoryReceipt](cfg.Client, "receipts"),
		sites:     backend.NewResource[types.Site](cfg.Client, "sites", backend.WithFileField("logo")),
		users:     backend.NewResource[types.User](cfg.Client, "users"),
	}, nil
}

// Router returns every console route.
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()
	r.Get("/healthz", Healthz)
	if h.metrics != nil {
		r.Method(http.MethodGet, "/metrics", h.metrics.Handler())
	}

	r.Group(func(r chi.Router) {
		r.Use(h.sessions.Middleware)
		r.Get("/login", h.LoginPage)
		r.Post("/login", h.Login)
		r.Post("/logout", h.Logout)

		r.Group(func(r chi.Router) {
			r.Use(h.RequireSession)
			r.Get("/unauthorized", h.Unauthorized)
			r.Get("/files/*", h.File)
			r.With(h.RequireRole(rbac.KeyDashboard)).Get("/", h.Dashboard)

			r.Route("/profile", func(r chi.Router) {
				r.Use(h.RequireRole(rbac.KeyProfile))
				r.Get("/", h.ProfilePage)
				r.Post("/", h.UpdateProfile)
				r.Post("/avatar", h.UploadAvatar)
			})

			mountResource(r, h, h.parentScreen())
			mountResource(r, h, h.supplierScreen())
			mountResource(r, h, h.receiptScreen())
			mountResource(r, h, h.siteScreen())
		})
	})
	return r
}

// RequireSession redirects anonymous callers to the login page.
func (h *Handler) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !currentSession(r.Context()).Authenticated() {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole redirects callers whose role may not open key to the fixed
// unauthorized page.
func (h *Handler) RequireRole(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !rbac.Allowed(key, currentSession(r.Context()).Role()) {
				http.Redirect(w, r, "/unauthorized", http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Dashboard lists the sections the current role may open.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	s := currentSession(r.Context())
	h.render(w, r, http.StatusOK, "dashboard", "Dashboard", rbac.FilterMenu(h.menu, s.Role()))
}

// Unauthorized is the target of role-denied redirects.
func (h *Handler) Unauthorized(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusForbidden, "unauthorized", "Access denied", nil)
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, name, title string, content any, notices ...screens.Notice) {
	s := currentSession(r.Context())
	data := page{
		Title:   title,
		User:    s.User,
		Menu:    rbac.FilterMenu(h.menu, s.Role()),
		Notices: append(popFlash(r.Context()), notices...),
		Content: content,
	}
	if err := h.views.render(w, status, name, data); err != nil {
		h.log.WithError(err).WithField("page", name).Error("render page")
		writeError(w, http.StatusInternalServerError, "failed to render page")
	}
}

// sessionLost reports whether err revealed an expired session. The session
// is re-validated once; when that fails too the caller has been redirected
// to the login page.
func (h *Handler) sessionLost(w http.ResponseWriter, r *http.Request, err error) bool {
	if !errors.Is(err, backend.ErrUnauthorized) {
		return false
	}
	m := CurrentManager(r.Context())
	if m == nil {
		return false
	}
	_ = m.Refresh(r.Context())
	if m.Session().Authenticated() {
		return false
	}
	pushFlash(r.Context(), screens.Notice{Level: screens.LevelWarning, Message: "Your session has expired, please sign in again"})
	http.Redirect(w, r, "/login", http.StatusSeeOther)
	return true
}
