package e2e

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/schooldesk/console/types"
)

// school is an in-memory stand-in for the school backend API.
type school struct {
	t *testing.T

	mu      sync.Mutex
	users   map[string]types.User // by email
	tokens  map[string]string     // token -> email
	parents map[int]types.Parent
	nextID  int
	calls   []string
	uploads map[string][]byte
}

func newSchool(t *testing.T) *school {
	return &school{
		t: t,
		users: map[string]types.User{
			"root@school.test":    {ID: 1, Name: "Root", Email: "root@school.test", Role: types.RoleSuperAdmin},
			"cash@school.test":    {ID: 2, Name: "Cashier", Email: "cash@school.test", Role: types.RoleCashier},
			"account@school.test": {ID: 3, Name: "Accountant", Email: "account@school.test", Role: types.RoleAccountant},
		},
		tokens: map[string]string{},
		parents: map[int]types.Parent{
			1: {ID: 1, FirstName: "Awa", LastName: "Diallo", Phone: "770000001"},
			2: {ID: 2, FirstName: "Moussa", LastName: "Sow", Phone: "770000002"},
			3: {ID: 3, FirstName: "Fatou", LastName: "Ndiaye", Phone: "770000003"},
		},
		nextID:  4,
		uploads: map[string][]byte{},
	}
}

// count returns how many calls matched "METHOD /path".
func (s *school) count(call string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		if c == call {
			n++
		}
	}
	return n
}

// revoke invalidates every issued token.
func (s *school) revoke() {
	s.mu.Lock()
	s.tokens = map[string]string{}
	s.mu.Unlock()
}

func (s *school) reset() {
	s.mu.Lock()
	s.calls = nil
	s.mu.Unlock()
}

func (s *school) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := strings.TrimPrefix(r.URL.Path, "/api")
	s.calls = append(s.calls, r.Method+" "+path)

	if path == "/auth/login" {
		s.login(w, r)
		return
	}

	user, ok := s.authenticate(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Unauthenticated."})
		return
	}

	switch {
	case path == "/auth/me":
		writeJSON(w, http.StatusOK, user)
	case path == "/auth/logout":
		delete(s.tokens, bearer(r))
		writeJSON(w, http.StatusOK, map[string]string{"message": "bye"})
	case path == "/fetch_parents":
		s.listParents(w, r)
	case strings.HasPrefix(path, "/fetch_single_parents/"):
		id, _ := strconv.Atoi(strings.TrimPrefix(path, "/fetch_single_parents/"))
		p, ok := s.parents[id]
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"message": "Parent not found"})
			return
		}
		writeJSON(w, http.StatusOK, p)
	case path == "/insert_parents":
		var p types.Parent
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"message": "bad json"})
			return
		}
		if p.ID == 0 {
			p.ID = s.nextID
			s.nextID++
		}
		s.parents[p.ID] = p
		writeJSON(w, http.StatusOK, map[string]string{"message": "saved"})
	case strings.HasPrefix(path, "/delete_parents/"):
		id, _ := strconv.Atoi(strings.TrimPrefix(path, "/delete_parents/"))
		delete(s.parents, id)
		writeJSON(w, http.StatusOK, map[string]string{"message": "deleted"})
	case path == "/edit_photo_parents":
		s.photo(w, r)
	case path == "/fetch_suppliers":
		writeJSON(w, http.StatusOK, map[string]any{"data": []types.Supplier{{ID: 1, Name: "Papeterie", Phone: "1"}}, "lastPage": 1})
	default:
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "no route " + path})
	}
}

func (s *school) login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)
	if _, ok := s.users[req.Email]; !ok || req.Password != "secret" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Invalid credentials"})
		return
	}
	token := fmt.Sprintf("tok-%d", len(s.tokens)+1)
	s.tokens[token] = req.Email
	writeJSON(w, http.StatusOK, map[string]string{"access_token": token})
}

func (s *school) authenticate(r *http.Request) (types.User, bool) {
	email, ok := s.tokens[bearer(r)]
	if !ok {
		return types.User{}, false
	}
	return s.users[email], true
}

func (s *school) listParents(w http.ResponseWriter, r *http.Request) {
	var q types.PageQuery
	_ = json.NewDecoder(r.Body).Decode(&q)

	matched := make([]types.Parent, 0, len(s.parents))
	for id := 1; id < s.nextID; id++ {
		p, ok := s.parents[id]
		if !ok {
			continue
		}
		if q.Query != "" && !strings.Contains(strings.ToLower(p.LastName+" "+p.FirstName), strings.ToLower(q.Query)) {
			continue
		}
		matched = append(matched, p)
	}

	limit := q.Limit
	if limit < 1 {
		limit = 10
	}
	last := (len(matched) + limit - 1) / limit
	start := (q.Page - 1) * limit
	if start > len(matched) {
		start = len(matched)
	}
	end := start + limit
	if end > len(matched) {
		end = len(matched)
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": matched[start:end], "lastPage": last})
}

func (s *school) photo(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(1 << 20); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "bad form"})
		return
	}
	var meta types.Parent
	if err := json.Unmarshal([]byte(r.FormValue("data")), &meta); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "bad data"})
		return
	}
	file, _, err := r.FormFile("image")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "image is required"})
		return
	}
	defer file.Close()
	data, _ := io.ReadAll(file)
	key := fmt.Sprintf("parents/%d.png", meta.ID)
	s.uploads[key] = data
	meta.Image = key
	s.parents[meta.ID] = meta
	writeJSON(w, http.StatusOK, map[string]string{"message": "uploaded"})
}

func bearer(r *http.Request) string {
	return strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
