package handlers

import (
	"net/http"
	"strings"

	"github.com/schooldesk/console/internal/screens"
)

// LoginPage renders the sign-in form. Signed-in users go to the dashboard.
func (h *Handler) LoginPage(w http.ResponseWriter, r *http.Request) {
	if currentSession(r.Context()).Authenticated() {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	h.render(w, r, http.StatusOK, "login", "Sign in", loginView{})
}

// Login authenticates the session with the posted credentials.
// A session that is already signed in is sent to the dashboard; switching
// users requires a logout first.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	m := CurrentManager(r.Context())
	if m == nil {
		writeError(w, http.StatusInternalServerError, "missing session")
		return
	}
	if m.Session().Authenticated() {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	email := strings.TrimSpace(r.PostFormValue("email"))
	result := m.Login(r.Context(), email, r.PostFormValue("password"))
	h.metrics.ObserveLogin(result.Success)
	if !result.Success {
		h.render(w, r, http.StatusUnauthorized, "login", "Sign in", loginView{Email: email},
			screens.Notice{Level: screens.LevelError, Message: result.Message})
		return
	}

	forgetLists(r.Context())
	h.log.WithField("user", result.User.ID).Info("user signed in")
	pushFlash(r.Context(), screens.Notice{Level: screens.LevelSuccess, Message: "Welcome, " + result.User.Name})
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Logout ends the session. It always succeeds locally.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if m := CurrentManager(r.Context()); m != nil {
		m.Logout(r.Context())
	}
	forgetLists(r.Context())
	pushFlash(r.Context(), screens.Notice{Level: screens.LevelSuccess, Message: "You have been signed out"})
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}
