package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/schooldesk/console/internal/backend"
	"github.com/schooldesk/console/internal/screens"
	"github.com/schooldesk/console/types"
)

// ProfilePage shows the current user's editable profile.
func (h *Handler) ProfilePage(w http.ResponseWriter, r *http.Request) {
	user := currentSession(r.Context()).User
	h.renderProfile(w, r, http.StatusOK, profileFromUser(*user), "")
}

// UpdateProfile saves the posted profile and refreshes the session user.
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	s := currentSession(r.Context())
	update := types.ProfileUpdate{
		ID:      s.User.ID,
		Name:    strings.TrimSpace(r.PostFormValue("name")),
		Email:   strings.TrimSpace(r.PostFormValue("email")),
		Phone:   strings.TrimSpace(r.PostFormValue("phone")),
		Address: strings.TrimSpace(r.PostFormValue("address")),
		Sex:     strings.ToUpper(strings.TrimSpace(r.PostFormValue("sex"))),
	}

	if err := update.Validate(); err != nil {
		msg := err.Error()
		var verr *types.ValidationError
		if errors.As(err, &verr) {
			msg = verr.Message
		}
		h.renderProfile(w, r, http.StatusUnprocessableEntity, update, msg,
			screens.Notice{Level: screens.LevelWarning, Message: msg})
		return
	}

	if err := h.client.UpdateProfile(r.Context(), s.Token, update); err != nil {
		if h.sessionLost(w, r, err) {
			return
		}
		msg := backend.Message(err, "Could not update the profile")
		h.renderProfile(w, r, http.StatusUnprocessableEntity, update, msg,
			screens.Notice{Level: screens.LevelError, Message: msg})
		return
	}

	h.refreshed(w, r, "Profile updated")
}

// UploadAvatar replaces the current user's picture.
func (h *Handler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	s := currentSession(r.Context())
	current := profileFromUser(*s.User)

	file, err := parseUploadFile(r.MultipartForm, formFieldImage)
	if err == nil {
		err = screens.RequireFile(file)
	}
	if err != nil {
		msg := err.Error()
		if errors.Is(err, screens.ErrNoFile) {
			msg = "Please select an image"
		}
		h.renderProfile(w, r, http.StatusUnprocessableEntity, current, msg,
			screens.Notice{Level: screens.LevelWarning, Message: msg})
		return
	}

	if err := h.users.UploadPhoto(r.Context(), s.Token, *s.User, file); err != nil {
		if h.sessionLost(w, r, err) {
			return
		}
		msg := backend.Message(err, "Could not upload the picture")
		h.renderProfile(w, r, http.StatusUnprocessableEntity, current, msg,
			screens.Notice{Level: screens.LevelError, Message: msg})
		return
	}

	h.refreshed(w, r, "Picture updated")
}

// refreshed reloads the session user after a profile change and redirects
// back to the profile page.
func (h *Handler) refreshed(w http.ResponseWriter, r *http.Request, message string) {
	m := CurrentManager(r.Context())
	if err := m.Refresh(r.Context()); err != nil {
		h.log.WithError(err).Warn("refresh user after profile change")
		if !m.Session().Authenticated() {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
	}
	pushFlash(r.Context(), screens.Notice{Level: screens.LevelSuccess, Message: message})
	http.Redirect(w, r, "/profile", http.StatusSeeOther)
}

func (h *Handler) renderProfile(w http.ResponseWriter, r *http.Request, status int, p types.ProfileUpdate, errMsg string, notices ...screens.Notice) {
	view := profileView{
		Fields: []formField{
			{Name: "name", Label: "Name", Type: "text", Value: p.Name, Required: true},
			{Name: "email", Label: "Email", Type: "email", Value: p.Email, Required: true},
			{Name: "phone", Label: "Phone", Type: "tel", Value: p.Phone},
			{Name: "address", Label: "Address", Type: "text", Value: p.Address},
			{Name: "sex", Label: "Sex", Value: p.Sex, Options: selectOptions(sexOptions, p.Sex)},
		},
		Error: errMsg,
	}
	if user := currentSession(r.Context()).User; user != nil {
		view.Avatar = user.Avatar
	}
	h.render(w, r, status, "profile", "My profile", view, notices...)
}

func profileFromUser(u types.User) types.ProfileUpdate {
	return types.ProfileUpdate{
		ID:      u.ID,
		Name:    u.Name,
		Email:   u.Email,
		Phone:   u.Phone,
		Address: u.Address,
		Sex:     u.Sex,
	}
}
