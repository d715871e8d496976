// Package screens composes a paginated list, a create/edit modal and row
// actions into one CRUD screen per resource.
package screens

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/schooldesk/console/internal/backend"
	"github.com/schooldesk/console/internal/listing"
	"github.com/schooldesk/console/types"
)

var (
	// ErrCanceled is returned when the user declined a confirmation.
	ErrCanceled = errors.New("canceled")
	// ErrNoFile is returned when an upload form is submitted empty.
	ErrNoFile = errors.New("no file selected")
	// ErrNoUploads is returned by screens without an image upload.
	ErrNoUploads = errors.New("uploads not supported")
)

// Record is implemented by every resource type shown in a screen.
type Record interface {
	RecordID() int
	Validate() error
}

// Resource is the backend surface a screen needs, already bound to the
// session's token.
type Resource[T Record] interface {
	List(ctx context.Context, q types.PageQuery) (types.PageResult[T], error)
	Get(ctx context.Context, id int) (T, error)
	Save(ctx context.Context, record T) error
	Delete(ctx context.Context, id int) error
}

// Uploader is implemented by resources with an image-upload variant.
type Uploader[T Record] interface {
	UploadPhoto(ctx context.Context, meta T, file *backend.File) error
}

// Confirmer asks the user to confirm a destructive action.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) bool
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, prompt string) bool

func (f ConfirmFunc) Confirm(ctx context.Context, prompt string) bool {
	return f(ctx, prompt)
}

// Answer returns a Confirmer that always answers ok.
func Answer(ok bool) Confirmer {
	return ConfirmFunc(func(context.Context, string) bool { return ok })
}

// Modal is the create/edit dialog state.
type Modal[T Record] struct {
	Open    bool
	Editing bool
	Record  T
	Error   string
}

// Screen is a CRUD page for one resource.
type Screen[T Record] struct {
	title string
	res   Resource[T]
	list  *listing.Controller[T]

	mu      sync.Mutex
	modal   Modal[T]
	notices []Notice
}

// New constructs a screen. opts set the initial list position.
func New[T Record](title string, res Resource[T], opts ...listing.Option) *Screen[T] {
	return &Screen[T]{
		title: title,
		res:   res,
		list:  listing.New[T](res.List, opts...),
	}
}

// Title returns the screen title.
func (s *Screen[T]) Title() string {
	return s.title
}

// List exposes the list controller.
func (s *Screen[T]) List() *listing.Controller[T] {
	return s.list
}

// Load loads the current page. Failures stay on the list state as an
// inline alert and do not produce a notice.
func (s *Screen[T]) Load(ctx context.Context) error {
	return s.list.Load(ctx)
}

// Modal returns the dialog state.
func (s *Screen[T]) Modal() Modal[T] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.modal
}

// OpenCreate opens an empty dialog.
func (s *Screen[T]) OpenCreate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	var zero T
	s.modal = Modal[T]{Open: true, Record: zero}
}

// OpenEdit fetches the record and opens the dialog pre-populated with it.
// The dialog stays closed when the fetch fails.
func (s *Screen[T]) OpenEdit(ctx context.Context, id int) error {
	record, err := s.res.Get(ctx, id)
	if err != nil {
		if errors.Is(err, backend.ErrNotFound) {
			s.notify(LevelError, backend.Message(err, "Record not found"))
		} else {
			s.notify(LevelError, backend.Message(err, "Could not load the record"))
		}
		return err
	}

	s.mu.Lock()
	s.modal = Modal[T]{Open: true, Editing: true, Record: record}
	s.mu.Unlock()
	return nil
}

// CloseModal discards the dialog.
func (s *Screen[T]) CloseModal() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.modal = Modal[T]{}
}

// Submit validates and saves record. On success the dialog closes and the
// list reloads; on failure the dialog keeps the submitted values.
func (s *Screen[T]) Submit(ctx context.Context, record T) error {
	s.mu.Lock()
	s.modal.Open = true
	s.modal.Editing = record.RecordID() > 0
	s.modal.Record = record
	s.modal.Error = ""
	s.mu.Unlock()

	if err := record.Validate(); err != nil {
		s.failModal(LevelWarning, validationMessage(err))
		return err
	}

	if err := s.res.Save(ctx, record); err != nil {
		s.failModal(LevelError, backend.Message(err, "Could not save the record"))
		return err
	}

	s.CloseModal()
	s.notify(LevelSuccess, "Saved")
	_ = s.list.Reload(ctx)
	return nil
}

// Reject keeps the dialog open with record and reports err as a warning.
// It is used when the form could not be decoded into a record.
func (s *Screen[T]) Reject(record T, err error) {
	s.mu.Lock()
	s.modal = Modal[T]{Open: true, Editing: record.RecordID() > 0, Record: record}
	s.mu.Unlock()
	s.failModal(LevelWarning, validationMessage(err))
}

// DeletePrompt is the question asked before a deletion.
func (s *Screen[T]) DeletePrompt() string {
	return fmt.Sprintf("Delete this %s entry?", s.title)
}

// Delete removes the record with id once confirm agrees. A declined
// confirmation issues no request and returns ErrCanceled.
func (s *Screen[T]) Delete(ctx context.Context, id int, confirm Confirmer) error {
	if confirm == nil || !confirm.Confirm(ctx, s.DeletePrompt()) {
		return ErrCanceled
	}

	if err := s.res.Delete(ctx, id); err != nil {
		s.notify(LevelError, backend.Message(err, "Could not delete the record"))
		return err
	}

	s.notify(LevelSuccess, "Deleted")
	_ = s.list.Reload(ctx)
	return nil
}

// UploadImage sends file with meta as metadata. Without a file nothing is
// sent. On failure the dialog keeps meta.
func (s *Screen[T]) UploadImage(ctx context.Context, meta T, file *backend.File) error {
	uploader, ok := s.res.(Uploader[T])
	if !ok {
		return ErrNoUploads
	}
	if err := RequireFile(file); err != nil {
		s.failModal(LevelWarning, "Please select an image")
		return err
	}

	if err := uploader.UploadPhoto(ctx, meta, file); err != nil {
		s.mu.Lock()
		s.modal = Modal[T]{Open: true, Editing: meta.RecordID() > 0, Record: meta}
		s.mu.Unlock()
		s.failModal(LevelError, backend.Message(err, "Could not upload the image"))
		return err
	}

	s.notify(LevelSuccess, "Image updated")
	_ = s.list.Reload(ctx)
	return nil
}

// RequireFile rejects an empty upload before any request is made.
func RequireFile(file *backend.File) error {
	if file.Empty() {
		return ErrNoFile
	}
	return nil
}

func validationMessage(err error) string {
	var verr *types.ValidationError
	if errors.As(err, &verr) && verr.Message != "" {
		return verr.Message
	}
	return err.Error()
}

func (s *Screen[T]) failModal(level Level, message string) {
	s.mu.Lock()
	s.modal.Error = message
	s.mu.Unlock()
	s.notify(level, message)
}
