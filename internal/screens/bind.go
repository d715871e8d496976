package screens

import (
	"context"

	"github.com/schooldesk/console/internal/backend"
	"github.com/schooldesk/console/types"
)

// Bound adapts a backend resource to the screen interfaces for one token.
type Bound[T Record] struct {
	res   *backend.Resource[T]
	token string
}

// Bind binds res to the session token.
func Bind[T Record](res *backend.Resource[T], token string) *Bound[T] {
	return &Bound[T]{res: res, token: token}
}

func (b *Bound[T]) List(ctx context.Context, q types.PageQuery) (types.PageResult[T], error) {
	return b.res.List(ctx, b.token, q)
}

func (b *Bound[T]) Get(ctx context.Context, id int) (T, error) {
	return b.res.Get(ctx, b.token, id)
}

func (b *Bound[T]) Save(ctx context.Context, record T) error {
	return b.res.Save(ctx, b.token, record)
}

func (b *Bound[T]) Delete(ctx context.Context, id int) error {
	return b.res.Delete(ctx, b.token, id)
}

func (b *Bound[T]) UploadPhoto(ctx context.Context, meta T, file *backend.File) error {
	return b.res.UploadPhoto(ctx, b.token, meta, file)
}
