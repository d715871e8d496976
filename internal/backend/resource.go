package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"
	"strings"

	"github.com/schooldesk/console/types"
)

const defaultFileField = "image"

// File is a binary payload attached to an upload request.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Empty reports whether no file was selected.
func (f *File) Empty() bool {
	return f == nil || len(f.Data) == 0
}

// Resource addresses one backend resource through the fetch_/insert_/
// delete_ endpoint family.
type Resource[T any] struct {
	client    *Client
	name      string
	fileField string
}

// ResourceOption customizes a Resource.
type ResourceOption func(*resourceOptions)

type resourceOptions struct {
	fileField string
}

// WithFileField names the multipart field carrying the binary payload of
// photo uploads ("image" by default).
func WithFileField(field string) ResourceOption {
	return func(o *resourceOptions) {
		o.fileField = field
	}
}

// NewResource binds resource name (e.g. "parents") to a record type.
func NewResource[T any](client *Client, name string, opts ...ResourceOption) *Resource[T] {
	o := resourceOptions{fileField: defaultFileField}
	for _, opt := range opts {
		opt(&o)
	}
	return &Resource[T]{client: client, name: name, fileField: o.fileField}
}

// Name returns the resource name.
func (r *Resource[T]) Name() string {
	return r.name
}

// List fetches one page of records.
func (r *Resource[T]) List(ctx context.Context, token string, q types.PageQuery) (types.PageResult[T], error) {
	var page types.PageResult[T]
	if err := r.client.Do(ctx, http.MethodPost, "/fetch_"+r.name, token, q, &page); err != nil {
		return types.PageResult[T]{}, err
	}
	if page.Page == 0 {
		page.Page = q.Page
	}
	if page.Data == nil {
		page.Data = []T{}
	}
	return page, nil
}

// Get fetches a single record.
func (r *Resource[T]) Get(ctx context.Context, token string, id int) (T, error) {
	var record T
	if err := r.client.Do(ctx, http.MethodGet, "/fetch_single_"+r.name+"/"+strconv.Itoa(id), token, nil, &record); err != nil {
		var zero T
		return zero, err
	}
	return record, nil
}

// Save inserts record, or updates it when it carries an id.
func (r *Resource[T]) Save(ctx context.Context, token string, record T) error {
	return r.client.Do(ctx, http.MethodPost, "/insert_"+r.name, token, record, nil)
}

// Delete removes a record.
func (r *Resource[T]) Delete(ctx context.Context, token string, id int) error {
	return r.client.Do(ctx, http.MethodDelete, "/delete_"+r.name+"/"+strconv.Itoa(id), token, nil, nil)
}

// UploadPhoto sends meta as the JSON "data" field next to the binary file.
func (r *Resource[T]) UploadPhoto(ctx context.Context, token string, meta any, file *File) error {
	if file.Empty() {
		return fmt.Errorf("upload %s: no file", r.name)
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("encode upload metadata: %w", err)
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	if err := writer.WriteField("data", string(metaJSON)); err != nil {
		return err
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, r.fileField, sanitizeFilename(file.Name)))
	contentType := file.ContentType
	if contentType == "" {
		contentType = http.DetectContentType(file.Data)
	}
	header.Set("Content-Type", contentType)
	part, err := writer.CreatePart(header)
	if err != nil {
		return err
	}
	if _, err := part.Write(file.Data); err != nil {
		return err
	}
	if err := writer.Close(); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.client.endpointURL("/edit_photo_"+r.name), &body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Accept", "application/json")
	return r.client.send(req, token, nil)
}

func sanitizeFilename(name string) string {
	name = strings.TrimSpace(name)
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	if name == "" {
		return "upload"
	}
	return name
}
