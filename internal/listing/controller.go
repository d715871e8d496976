// Package listing implements the paginated list state shared by every
// table screen of the console.
package listing

import (
	"context"
	"strings"
	"sync"

	"github.com/schooldesk/console/types"
)

// DefaultLimit is the page size used when none is configured.
const DefaultLimit = 10

// Fetcher loads one page of records.
type Fetcher[T any] func(ctx context.Context, q types.PageQuery) (types.PageResult[T], error)

// State is a snapshot of a Controller.
type State[T any] struct {
	Page     int
	Limit    int
	Query    string
	Data     []T
	LastPage int
	Loading  bool
	Err      error
}

// Controller holds page, page size, query and the last result set. Each
// successful load fully replaces the previous result; a failed load keeps
// it.
type Controller[T any] struct {
	fetch Fetcher[T]

	mu       sync.Mutex
	page     int
	limit    int
	query    string
	data     []T
	lastPage int
	loading  bool
	err      error
}

// Option customizes a Controller before its first load.
type Option func(*settings)

type settings struct {
	page  int
	limit int
	query string
}

// WithPage sets the initial page.
func WithPage(page int) Option {
	return func(s *settings) { s.page = page }
}

// WithLimit sets the initial page size.
func WithLimit(limit int) Option {
	return func(s *settings) { s.limit = limit }
}

// WithQuery sets the initial free-text query.
func WithQuery(query string) Option {
	return func(s *settings) { s.query = query }
}

// New constructs a Controller. It does not load anything yet.
func New[T any](fetch Fetcher[T], opts ...Option) *Controller[T] {
	s := settings{page: 1, limit: DefaultLimit}
	for _, opt := range opts {
		opt(&s)
	}
	return &Controller[T]{
		fetch:    fetch,
		page:     clampPage(s.page),
		limit:    normalizeLimit(s.limit),
		query:    strings.TrimSpace(s.query),
		data:     []T{},
		lastPage: 1,
	}
}

// Load fetches the current page. On failure the error is recorded and
// returned, and the previous data and page count stay visible.
func (c *Controller[T]) Load(ctx context.Context) error {
	c.mu.Lock()
	q := types.PageQuery{Page: c.page, Limit: c.limit, Query: c.query}
	c.loading = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.loading = false
		c.mu.Unlock()
	}()

	result, err := c.fetch(ctx, q)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.err = err
		return err
	}
	c.err = nil
	c.data = result.Data
	if c.data == nil {
		c.data = []T{}
	}
	c.lastPage = result.LastPage
	if c.lastPage < 1 {
		c.lastPage = 1
	}
	return nil
}

// SetQuery changes the free-text query. A changed query resets the page to
// 1 and reloads.
func (c *Controller[T]) SetQuery(ctx context.Context, query string) error {
	query = strings.TrimSpace(query)
	c.mu.Lock()
	if query == c.query {
		c.mu.Unlock()
		return nil
	}
	c.query = query
	c.page = 1
	c.mu.Unlock()
	return c.Load(ctx)
}

// SetPage moves to page and reloads when it changed.
func (c *Controller[T]) SetPage(ctx context.Context, page int) error {
	page = clampPage(page)
	c.mu.Lock()
	if page == c.page {
		c.mu.Unlock()
		return nil
	}
	c.page = page
	c.mu.Unlock()
	return c.Load(ctx)
}

// SetLimit changes the page size and reloads when it changed.
func (c *Controller[T]) SetLimit(ctx context.Context, limit int) error {
	limit = normalizeLimit(limit)
	c.mu.Lock()
	if limit == c.limit {
		c.mu.Unlock()
		return nil
	}
	c.limit = limit
	c.mu.Unlock()
	return c.Load(ctx)
}

// Seed shows result until the next successful load, so a failed first
// load still displays the rows the user saw last.
func (c *Controller[T]) Seed(result types.PageResult[T]) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = result.Data
	if c.data == nil {
		c.data = []T{}
	}
	c.lastPage = result.LastPage
	if c.lastPage < 1 {
		c.lastPage = 1
	}
}

// Reload re-runs the current query, e.g. after a create or delete.
func (c *Controller[T]) Reload(ctx context.Context) error {
	return c.Load(ctx)
}

// State returns a snapshot.
func (c *Controller[T]) State() State[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	data := make([]T, len(c.data))
	copy(data, c.data)
	return State[T]{
		Page:     c.page,
		Limit:    c.limit,
		Query:    c.query,
		Data:     data,
		LastPage: c.lastPage,
		Loading:  c.loading,
		Err:      c.err,
	}
}

// Pager returns the page window for the current state.
func (c *Controller[T]) Pager(width int) Pager {
	s := c.State()
	return NewPager(s.Page, s.LastPage, width)
}

func clampPage(page int) int {
	if page < 1 {
		return 1
	}
	return page
}

func normalizeLimit(limit int) int {
	if limit < 1 {
		return DefaultLimit
	}
	return limit
}
