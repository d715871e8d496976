package backend

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/schooldesk/console/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResourceList(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/fetch_parents", r.URL.Path)
		var q types.PageQuery
		require.NoError(t, json.NewDecoder(r.Body).Decode(&q))
		assert.Equal(t, types.PageQuery{Page: 2, Limit: 5, Query: "dia"}, q)
		_, _ = io.WriteString(w, `{"data":[{"id":1,"first_name":"Awa","last_name":"Diallo","phone":"1"}],"lastPage":3}`)
	})

	parents := NewResource[types.Parent](client, "parents")
	page, err := parents.List(context.Background(), "tok", types.PageQuery{Page: 2, Limit: 5, Query: "dia"})
	require.NoError(t, err)
	require.Len(t, page.Data, 1)
	assert.Equal(t, "Awa", page.Data[0].FirstName)
	assert.Equal(t, 3, page.LastPage)
	assert.Equal(t, 2, page.Page)
}

func TestResourceListNullData(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"data":null,"lastPage":0}`)
	})
	page, err := NewResource[types.Supplier](client, "suppliers").List(context.Background(), "tok", types.PageQuery{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.NotNil(t, page.Data)
	assert.Empty(t, page.Data)
}

func TestResourceGetSaveDelete(t *testing.T) {
	var calls []string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, r.Method+" "+r.URL.Path)
		switch r.URL.Path {
		case "/api/fetch_single_suppliers/4":
			_, _ = io.WriteString(w, `{"id":4,"name":"Papeterie","phone":"2"}`)
		case "/api/insert_suppliers":
			var s types.Supplier
			require.NoError(t, json.NewDecoder(r.Body).Decode(&s))
			assert.Equal(t, 4, s.ID)
			_, _ = io.WriteString(w, `{"message":"ok"}`)
		case "/api/delete_suppliers/4":
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	suppliers := NewResource[types.Supplier](client, "suppliers")
	ctx := context.Background()

	s, err := suppliers.Get(ctx, "tok", 4)
	require.NoError(t, err)
	assert.Equal(t, "Papeterie", s.Name)

	require.NoError(t, suppliers.Save(ctx, "tok", s))
	require.NoError(t, suppliers.Delete(ctx, "tok", 4))

	_, err = suppliers.Get(ctx, "tok", 99)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Equal(t, []string{
		"GET /api/fetch_single_suppliers/4",
		"POST /api/insert_suppliers",
		"DELETE /api/delete_suppliers/4",
		"GET /api/fetch_single_suppliers/99",
	}, calls)
}

func TestUploadPhotoMultipart(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/edit_photo_sites", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		require.NoError(t, r.ParseMultipartForm(1<<20))

		var meta types.Site
		require.NoError(t, json.Unmarshal([]byte(r.FormValue("data")), &meta))
		assert.Equal(t, 3, meta.ID)

		file, header, err := r.FormFile("logo")
		require.NoError(t, err)
		defer file.Close()
		data, _ := io.ReadAll(file)
		assert.Equal(t, "logo.png", header.Filename)
		assert.Equal(t, "image/png", header.Header.Get("Content-Type"))
		assert.Equal(t, []byte("PNGDATA"), data)
		w.WriteHeader(http.StatusOK)
	})

	sites := NewResource[types.Site](client, "sites", WithFileField("logo"))
	err := sites.UploadPhoto(context.Background(), "tok", types.Site{ID: 3, Name: "Main"}, &File{
		Name:        `C:\fakepath\logo.png`,
		ContentType: "image/png",
		Data:        []byte("PNGDATA"),
	})
	require.NoError(t, err)
}

func TestUploadPhotoWithoutFileSendsNothing(t *testing.T) {
	called := false
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	})
	parents := NewResource[types.Parent](client, "parents")

	assert.Error(t, parents.UploadPhoto(context.Background(), "tok", types.Parent{ID: 1}, nil))
	assert.Error(t, parents.UploadPhoto(context.Background(), "tok", types.Parent{ID: 1}, &File{Name: "x.png"}))
	assert.False(t, called)
}
