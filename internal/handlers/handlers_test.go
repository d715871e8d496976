package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"testing/iotest"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/schooldesk/console/internal/backend"
	"github.com/schooldesk/console/internal/metrics"
	"github.com/schooldesk/console/internal/screens"
	"github.com/schooldesk/console/internal/storage"
	"github.com/schooldesk/console/internal/store"
	"github.com/schooldesk/console/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAPI accepts any password and knows one user per email.
func fakeAPI(t *testing.T, users map[string]types.User) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/auth/login":
			var req backend.LoginRequest
			_ = json.NewDecoder(r.Body).Decode(&req)
			if _, ok := users[req.Email]; !ok {
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = io.WriteString(w, `{"message":"Invalid credentials"}`)
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]string{"access_token": "tok:" + req.Email})
		case "/api/auth/me":
			user, ok := users[strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer tok:")]
			if !ok {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			_ = json.NewEncoder(w).Encode(user)
		case "/api/fetch_parents":
			var q types.PageQuery
			_ = json.NewDecoder(r.Body).Decode(&q)
			if q.Query == "outage" {
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = io.WriteString(w, `{"message":"Database unavailable"}`)
				return
			}
			_, _ = io.WriteString(w, `{"data":[{"id":1,"first_name":"Awa","last_name":"Diallo","phone":"77"}],"lastPage":1}`)
		default:
			w.WriteHeader(http.StatusOK)
			_, _ = io.WriteString(w, `{}`)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

type fixture struct {
	h        *Handler
	sessions *Sessions
	metrics  *metrics.Metrics
	router   http.Handler
}

func newFixture(t *testing.T, objects storage.ObjectStorage) fixture {
	t.Helper()
	api := fakeAPI(t, map[string]types.User{
		"sec@school.test": {ID: 4, Name: "Secretary", Email: "sec@school.test", Role: types.RoleSecretary},
	})
	client := backend.New(api.URL+"/api", 5*time.Second)
	m := metrics.New()

	sessions, err := NewSessions(SessionsConfig{Secret: "unit-secret", TTL: time.Hour, CacheSize: 4},
		client, store.NewMemoryKV(0), WithSessionsMetrics(m))
	require.NoError(t, err)

	cfg := Config{Client: client, Sessions: sessions, Metrics: m}
	if objects != nil {
		cfg.Storage = storage.NewStorage(objects)
	}
	h, err := New(cfg)
	require.NoError(t, err)
	return fixture{h: h, sessions: sessions, metrics: m, router: h.Router()}
}

func (f fixture) do(t *testing.T, req *http.Request, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func (f fixture) login(t *testing.T, email string) *http.Cookie {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(url.Values{"email": {email}, "password": {"pw"}}.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := f.do(t, req)
	require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())
	require.Equal(t, "/", rec.Header().Get("Location"))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	return cookies[0]
}

func TestNewSessionsRequiresSecret(t *testing.T) {
	_, err := NewSessions(SessionsConfig{}, nil, store.NewMemoryKV(0))
	assert.EqualError(t, err, "session secret is required")
}

func TestSessionCookieIsIssuedOnceAndSigned(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do(t, httptest.NewRequest(http.MethodGet, "/login", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	cookie := cookies[0]
	assert.Equal(t, defaultCookieName, cookie.Name)
	assert.True(t, cookie.HttpOnly)

	id, err := parseTokenSubject(cookie.Value, []byte("unit-secret"))
	require.NoError(t, err)
	_, err = parseTokenSubject(cookie.Value, []byte("other-secret"))
	assert.Error(t, err)

	rec = f.do(t, httptest.NewRequest(http.MethodGet, "/login", nil), cookie)
	assert.Empty(t, rec.Result().Cookies())
	assert.Equal(t, 1, f.sessions.Len())

	forged := &http.Cookie{Name: defaultCookieName, Value: cookie.Value + "x"}
	rec = f.do(t, httptest.NewRequest(http.MethodGet, "/login", nil), forged)
	require.Len(t, rec.Result().Cookies(), 1)
	assert.NotEqual(t, cookie.Value, rec.Result().Cookies()[0].Value)
	assert.Equal(t, 2, f.sessions.Len())
	assert.Equal(t, float64(2), testutil.ToFloat64(f.metrics.SessionsCached))
	assert.NotEmpty(t, id)
}

func TestGuards(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do(t, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))

	cookie := f.login(t, "sec@school.test")

	rec = f.do(t, httptest.NewRequest(http.MethodGet, "/parents", nil), cookie)
	assert.Equal(t, http.StatusOK, rec.Code)

	for _, path := range []string{"/suppliers", "/receipts/new", "/sites/1/edit"} {
		rec = f.do(t, httptest.NewRequest(http.MethodGet, path, nil), cookie)
		assert.Equal(t, http.StatusSeeOther, rec.Code, path)
		assert.Equal(t, "/unauthorized", rec.Header().Get("Location"), path)
	}

	rec = f.do(t, httptest.NewRequest(http.MethodGet, "/login", nil), cookie)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.LoginsTotal.WithLabelValues("success")))
}

func TestFlashIsShownOnce(t *testing.T) {
	f := newFixture(t, nil)
	cookie := f.login(t, "sec@school.test")

	rec := f.do(t, httptest.NewRequest(http.MethodGet, "/", nil), cookie)
	assert.Contains(t, rec.Body.String(), "Welcome, Secretary")

	rec = f.do(t, httptest.NewRequest(http.MethodGet, "/", nil), cookie)
	assert.NotContains(t, rec.Body.String(), "Welcome, Secretary")
}

func TestFlashRoundTrip(t *testing.T) {
	kv := store.NewMemoryKV(0)
	ctx := context.WithValue(context.Background(), contextKVKey, store.KV(kv))

	pushFlash(ctx, screens.Notice{Level: screens.LevelSuccess, Message: "one"})
	pushFlash(ctx, screens.Notice{Level: screens.LevelError, Message: "two"})
	assert.Equal(t, []screens.Notice{
		{Level: screens.LevelSuccess, Message: "one"},
		{Level: screens.LevelError, Message: "two"},
	}, popFlash(ctx))
	assert.Empty(t, popFlash(ctx))
	assert.Empty(t, popFlash(context.Background()))
}

type objects map[string]string

func (o objects) EnsureBucket(context.Context) error { return nil }
func (o objects) Bucket() string                     { return "files" }

func (o objects) Get(_ context.Context, key string) (io.ReadCloser, error) {
	if key == "broken.png" {
		return nil, errors.New("connection reset")
	}
	if key == "torn.png" {
		return io.NopCloser(iotest.ErrReader(errors.New("connection reset"))), nil
	}
	data, ok := o[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return io.NopCloser(strings.NewReader(data)), nil
}

func TestFiles(t *testing.T) {
	f := newFixture(t, objects{"parents/1.png": "PNG"})
	cookie := f.login(t, "sec@school.test")

	rec := f.do(t, httptest.NewRequest(http.MethodGet, "/files/parents/1.png", nil), cookie)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, "PNG", rec.Body.String())

	rec = f.do(t, httptest.NewRequest(http.MethodGet, "/files/parents/../parents/1.png", nil), cookie)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, httptest.NewRequest(http.MethodGet, "/files/missing.png", nil), cookie)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, httptest.NewRequest(http.MethodGet, "/files/broken.png", nil), cookie)
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	rec = f.do(t, httptest.NewRequest(http.MethodGet, "/files/torn.png", nil), cookie)
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	rec = f.do(t, httptest.NewRequest(http.MethodGet, "/files/parents/1.png", nil))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
}

func TestFilesWithoutStorage(t *testing.T) {
	f := newFixture(t, nil)
	cookie := f.login(t, "sec@school.test")
	rec := f.do(t, httptest.NewRequest(http.MethodGet, "/files/a.png", nil), cookie)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestParseListQuery(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/parents?page=3&limit=500&q=+sow+", nil)
	assert.Equal(t, listQuery{Page: 3, Limit: maxLimit, Query: "sow"}, parseListQuery(r, 10))

	r = httptest.NewRequest(http.MethodGet, "/parents?page=-1&limit=abc", nil)
	assert.Equal(t, listQuery{Page: 1, Limit: 10}, parseListQuery(r, 10))

	assert.Equal(t, []int{10, 25, 50, 100}, limitChoices(25))
	assert.Equal(t, []int{2, 10, 25, 50, 100}, limitChoices(2))
	assert.Equal(t, "/parents?limit=10&page=2&q=ba+ka", pageURL("/parents", listQuery{Limit: 10, Query: "ba ka"}, 2))
}

func TestReceiptDecode(t *testing.T) {
	f := newFixture(t, nil)
	def := f.h.receiptScreen()

	rc, err := def.decode(url.Values{
		"id":          {"5"},
		"supplier_id": {"2"},
		"item":        {"Chalk"},
		"quantity":    {"12"},
		"unit_price":  {"1,50"},
		"received_on": {"2026-09-01"},
	})
	require.NoError(t, err)
	assert.Equal(t, types.InventoryReceipt{ID: 5, SupplierID: 2, Item: "Chalk", Quantity: 12, UnitPrice: 1.5, ReceivedOn: "2026-09-01"}, rc)
	assert.Equal(t, "18.00", def.row(rc)[6])

	_, err = def.decode(url.Values{"quantity": {"a dozen"}})
	var verr *types.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "quantity", verr.Field)

	_, err = def.decode(url.Values{"id": {"x"}})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "id", verr.Field)
}

func TestParentDecodeNormalizes(t *testing.T) {
	f := newFixture(t, nil)
	p, err := f.h.parentScreen().decode(url.Values{"first_name": {" Awa "}, "last_name": {"Diallo"}, "sex": {"f"}})
	require.NoError(t, err)
	assert.Equal(t, "Awa", p.FirstName)
	assert.Equal(t, "F", p.Sex)
	assert.Zero(t, p.ID)
}

func TestLoginWhileSignedInRedirects(t *testing.T) {
	f := newFixture(t, nil)
	cookie := f.login(t, "sec@school.test")

	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(url.Values{"email": {"nobody@school.test"}, "password": {"pw"}}.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := f.do(t, req, cookie)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))

	rec = f.do(t, httptest.NewRequest(http.MethodGet, "/", nil), cookie)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Secretary")
	assert.Equal(t, float64(0), testutil.ToFloat64(f.metrics.LoginsTotal.WithLabelValues("failure")))
}

func TestFailedListLoadKeepsLastRows(t *testing.T) {
	f := newFixture(t, nil)
	cookie := f.login(t, "sec@school.test")

	rec := f.do(t, httptest.NewRequest(http.MethodGet, "/parents", nil), cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Diallo")

	rec = f.do(t, httptest.NewRequest(http.MethodGet, "/parents?q=outage", nil), cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Database unavailable")
	assert.Contains(t, body, "Diallo")
	assert.NotContains(t, body, "Nothing to show.")

	rec = f.do(t, httptest.NewRequest(http.MethodPost, "/logout", nil), cookie)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(url.Values{"email": {"sec@school.test"}, "password": {"pw"}}.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec = f.do(t, req, cookie)
	require.Equal(t, http.StatusSeeOther, rec.Code)

	rec = f.do(t, httptest.NewRequest(http.MethodGet, "/parents?q=outage", nil), cookie)
	assert.Contains(t, rec.Body.String(), "Database unavailable")
	assert.NotContains(t, rec.Body.String(), "Diallo")
}
