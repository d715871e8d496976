package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/schooldesk/console/internal/backend"
)

const (
	maxLimit           = 100
	maxMultipartMemory = 8 << 20
	maxUploadBytes     = 5 << 20
	formFieldImage     = "image"
)

type contextKey string

const (
	contextManagerKey contextKey = "session"
	contextKVKey      contextKey = "session_kv"
)

// ErrorResponse is a simple error payload.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Healthz reports that the process is serving.
func Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// listQuery is the list position carried through links and forms.
type listQuery struct {
	Page  int
	Limit int
	Query string
}

// parseListQuery reads page, limit and q from the URL or a posted form.
// Malformed values fall back to defaults instead of failing the page.
func parseListQuery(r *http.Request, defaultLimit int) listQuery {
	q := listQuery{Page: 1, Limit: defaultLimit, Query: strings.TrimSpace(r.FormValue("q"))}

	if page, err := strconv.Atoi(strings.TrimSpace(r.FormValue("page"))); err == nil && page > 0 {
		q.Page = page
	}
	if limit, err := strconv.Atoi(strings.TrimSpace(r.FormValue("limit"))); err == nil && limit > 0 {
		q.Limit = limit
	}
	if q.Limit > maxLimit {
		q.Limit = maxLimit
	}
	return q
}

func parseID(r *http.Request) (int, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.Atoi(raw)
	if err != nil || id < 1 {
		return 0, errors.New("invalid id")
	}
	return id, nil
}

func parseOptionalInt(value string) (int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, nil
	}
	return strconv.Atoi(value)
}

func parseOptionalFloat(value string) (float64, error) {
	value = strings.TrimSpace(strings.ReplaceAll(value, ",", "."))
	if value == "" {
		return 0, nil
	}
	return strconv.ParseFloat(value, 64)
}

// parseUploadFile returns the file posted under field, or nil when none was
// selected.
func parseUploadFile(form *multipart.Form, field string) (*backend.File, error) {
	if form == nil {
		return nil, nil
	}
	files := form.File[field]
	if len(files) == 0 {
		return nil, nil
	}

	header := files[0]
	file, err := header.Open()
	if err != nil {
		return nil, errors.New("failed to read upload")
	}
	data, err := readFileLimited(file, maxUploadBytes)
	_ = file.Close()
	if err != nil {
		return nil, err
	}

	return &backend.File{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

func readFileLimited(reader io.Reader, limit int64) ([]byte, error) {
	limited := io.LimitReader(reader, limit+1)
	data, err := io.ReadAll(limited)
	if err != nil {
		return nil, errors.New("failed to read upload")
	}
	if int64(len(data)) > limit {
		return nil, errors.New("uploaded file too large")
	}
	return data, nil
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}
