package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/schooldesk/console/internal/backend"
	"github.com/schooldesk/console/internal/listing"
	"github.com/schooldesk/console/internal/rbac"
	"github.com/schooldesk/console/internal/screens"
	"github.com/schooldesk/console/types"
)

// lastListPrefix keys the last successfully loaded page of each resource
// in the session store.
const lastListPrefix = "last_list:"

var resourceKeys = []string{rbac.KeyParents, rbac.KeySuppliers, rbac.KeyReceipts, rbac.KeySites}

// forgetLists drops the remembered pages so a new user never sees them.
func forgetLists(ctx context.Context) {
	kv := sessionKV(ctx)
	if kv == nil {
		return
	}
	for _, key := range resourceKeys {
		_ = kv.Delete(ctx, lastListPrefix+key)
	}
}

// resourceScreen describes how one backend resource is shown and edited.
// key is both the permission key and the URL segment. image is nil for
// resources without a picture.
type resourceScreen[T screens.Record] struct {
	key      string
	title    string
	singular string
	res      *backend.Resource[T]
	columns  []string
	row      func(T) []string
	image    func(T) string
	fields   func(ctx context.Context, token string, record T) []formField
	decode   func(form url.Values) (T, error)
}

type resourceHandler[T screens.Record] struct {
	h   *Handler
	def resourceScreen[T]
}

func mountResource[T screens.Record](r chi.Router, h *Handler, def resourceScreen[T]) {
	rh := &resourceHandler[T]{h: h, def: def}
	r.Route("/"+def.key, func(r chi.Router) {
		r.Use(h.RequireRole(def.key))
		r.Get("/", rh.list)
		r.Post("/", rh.save)
		r.Get("/new", rh.create)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/edit", rh.edit)
			r.Get("/delete", rh.confirmDelete)
			r.Post("/delete", rh.remove)
			if def.image != nil {
				r.Post("/photo", rh.photo)
			}
		})
	})
}

func (rh *resourceHandler[T]) base() string {
	return "/" + rh.def.key
}

func (rh *resourceHandler[T]) screen(r *http.Request) (*screens.Screen[T], listQuery) {
	q := parseListQuery(r, rh.h.pageSize)
	token := currentSession(r.Context()).Token
	s := screens.New[T](rh.def.singular, screens.Bind(rh.def.res, token),
		listing.WithPage(q.Page),
		listing.WithLimit(q.Limit),
		listing.WithQuery(q.Query),
	)
	rh.seed(r.Context(), s)
	return s, q
}

// seed preloads the screen with the last page shown in this session.
func (rh *resourceHandler[T]) seed(ctx context.Context, s *screens.Screen[T]) {
	kv := sessionKV(ctx)
	if kv == nil {
		return
	}
	raw, err := kv.Get(ctx, lastListPrefix+rh.def.key)
	if err != nil {
		return
	}
	var last types.PageResult[T]
	if err := json.Unmarshal([]byte(raw), &last); err != nil {
		return
	}
	s.List().Seed(last)
}

func (rh *resourceHandler[T]) remember(ctx context.Context, state listing.State[T]) {
	kv := sessionKV(ctx)
	if kv == nil || state.Err != nil {
		return
	}
	raw, err := json.Marshal(types.PageResult[T]{Data: state.Data, Page: state.Page, LastPage: state.LastPage})
	if err != nil {
		return
	}
	if err := kv.Set(ctx, lastListPrefix+rh.def.key, string(raw)); err != nil {
		rh.h.log.WithError(err).Debug("remember list page")
	}
}

func (rh *resourceHandler[T]) list(w http.ResponseWriter, r *http.Request) {
	s, _ := rh.screen(r)
	if err := s.Load(r.Context()); err != nil && rh.h.sessionLost(w, r, err) {
		return
	}
	rh.renderList(w, r, http.StatusOK, s)
}

func (rh *resourceHandler[T]) create(w http.ResponseWriter, r *http.Request) {
	s, q := rh.screen(r)
	s.OpenCreate()
	rh.renderForm(w, r, http.StatusOK, s, q)
}

func (rh *resourceHandler[T]) edit(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s, q := rh.screen(r)
	if err := s.OpenEdit(r.Context(), id); err != nil {
		if rh.h.sessionLost(w, r, err) {
			return
		}
		status := http.StatusBadGateway
		if errors.Is(err, backend.ErrNotFound) {
			status = http.StatusNotFound
		}
		_ = s.Load(r.Context())
		rh.renderList(w, r, status, s)
		return
	}
	rh.renderForm(w, r, http.StatusOK, s, q)
}

func (rh *resourceHandler[T]) save(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	s, q := rh.screen(r)
	record, err := rh.def.decode(r.PostForm)
	if err != nil {
		s.Reject(record, err)
		rh.renderForm(w, r, http.StatusUnprocessableEntity, s, q)
		return
	}

	if err := s.Submit(r.Context(), record); err != nil {
		if rh.h.sessionLost(w, r, err) {
			return
		}
		rh.renderForm(w, r, http.StatusUnprocessableEntity, s, q)
		return
	}
	rh.renderList(w, r, http.StatusOK, s)
}

func (rh *resourceHandler[T]) confirmDelete(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s, q := rh.screen(r)
	rh.h.render(w, r, http.StatusOK, "confirm", rh.def.title, confirmView{
		Base:   rh.base(),
		ID:     id,
		Prompt: s.DeletePrompt(),
		Query:  q,
	})
}

// remove deletes only when the form carries confirm=yes.
func (rh *resourceHandler[T]) remove(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s, q := rh.screen(r)
	err = s.Delete(r.Context(), id, screens.Answer(r.PostFormValue("confirm") == "yes"))
	switch {
	case errors.Is(err, screens.ErrCanceled):
		http.Redirect(w, r, pageURL(rh.base(), q, q.Page), http.StatusSeeOther)
		return
	case err != nil:
		if rh.h.sessionLost(w, r, err) {
			return
		}
		_ = s.Load(r.Context())
	}
	rh.renderList(w, r, http.StatusOK, s)
}

func (rh *resourceHandler[T]) photo(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	s, q := rh.screen(r)
	form := r.PostForm
	form.Set("id", chi.URLParam(r, "id"))
	meta, err := rh.def.decode(form)
	if err != nil {
		s.Reject(meta, err)
		rh.renderForm(w, r, http.StatusUnprocessableEntity, s, q)
		return
	}
	if meta.RecordID() != id {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	file, err := parseUploadFile(r.MultipartForm, formFieldImage)
	if err != nil {
		s.Reject(meta, err)
		rh.renderForm(w, r, http.StatusUnprocessableEntity, s, q)
		return
	}

	if err := s.UploadImage(r.Context(), meta, file); err != nil {
		if rh.h.sessionLost(w, r, err) {
			return
		}
		rh.renderForm(w, r, http.StatusUnprocessableEntity, s, q)
		return
	}
	rh.renderList(w, r, http.StatusOK, s)
}

func (rh *resourceHandler[T]) renderList(w http.ResponseWriter, r *http.Request, status int, s *screens.Screen[T]) {
	state := s.List().State()
	view := listView{
		Base:     rh.base(),
		Singular: rh.def.singular,
		Columns:  rh.def.columns,
		Rows:     make([]listRow, 0, len(state.Data)),
		Query:    listQuery{Page: state.Page, Limit: state.Limit, Query: state.Query},
		Limits:   limitChoices(state.Limit),
		Pager:    s.List().Pager(listing.DefaultWindow),
		Images:   rh.def.image != nil,
	}
	if state.Err != nil {
		view.Error = backend.Message(state.Err, "The list could not be loaded")
	} else {
		rh.remember(r.Context(), state)
	}
	for _, record := range state.Data {
		row := listRow{ID: record.RecordID(), Cells: rh.def.row(record)}
		if rh.def.image != nil {
			row.Image = rh.def.image(record)
		}
		view.Rows = append(view.Rows, row)
	}
	rh.h.render(w, r, status, "list", rh.def.title, view, s.Notices()...)
}

func (rh *resourceHandler[T]) renderForm(w http.ResponseWriter, r *http.Request, status int, s *screens.Screen[T], q listQuery) {
	modal := s.Modal()
	view := formView{
		Base:     rh.base(),
		Singular: rh.def.singular,
		Editing:  modal.Editing,
		ID:       modal.Record.RecordID(),
		Fields:   rh.def.fields(r.Context(), currentSession(r.Context()).Token, modal.Record),
		Error:    modal.Error,
		Upload:   rh.def.image != nil,
		Query:    q,
	}
	if rh.def.image != nil {
		view.Image = rh.def.image(modal.Record)
	}

	title := "New " + rh.def.singular
	if modal.Editing {
		title = "Edit " + rh.def.singular
	}
	rh.h.render(w, r, status, "form", title, view, s.Notices()...)
}
