package store

import (
	"context"
	"strings"
)

// KV is a durable string key-value store. Get returns ErrNotFound for a
// missing or expired key; Delete of a missing key is not an error.
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// Namespaced prefixes every key with a namespace so several owners can
// share one backing store.
type Namespaced struct {
	kv     KV
	prefix string
}

// Namespace returns a view of kv whose keys live under ns.
func Namespace(kv KV, ns string) *Namespaced {
	return &Namespaced{kv: kv, prefix: strings.TrimSuffix(ns, ":") + ":"}
}

func (n *Namespaced) Get(ctx context.Context, key string) (string, error) {
	return n.kv.Get(ctx, n.prefix+key)
}

func (n *Namespaced) Set(ctx context.Context, key, value string) error {
	return n.kv.Set(ctx, n.prefix+key, value)
}

func (n *Namespaced) Delete(ctx context.Context, key string) error {
	return n.kv.Delete(ctx, n.prefix+key)
}
