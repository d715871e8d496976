package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryKVRoundTrip(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV(0)

	_, err := kv.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, kv.Set(ctx, "auth_token", "tok"))
	got, err := kv.Get(ctx, "auth_token")
	require.NoError(t, err)
	assert.Equal(t, "tok", got)

	require.NoError(t, kv.Delete(ctx, "auth_token"))
	require.NoError(t, kv.Delete(ctx, "auth_token"))
	_, err = kv.Get(ctx, "auth_token")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryKVExpiry(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV(time.Minute)
	now := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)
	kv.now = func() time.Time { return now }

	require.NoError(t, kv.Set(ctx, "k", "v"))
	now = now.Add(59 * time.Second)
	_, err := kv.Get(ctx, "k")
	require.NoError(t, err)

	now = now.Add(time.Second)
	_, err = kv.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 0, kv.Len())
}

func TestNamespaceIsolatesKeys(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV(0)
	a := Namespace(kv, "sess-a")
	b := Namespace(kv, "sess-b:")

	require.NoError(t, a.Set(ctx, "auth_token", "A"))
	require.NoError(t, b.Set(ctx, "auth_token", "B"))

	got, err := a.Get(ctx, "auth_token")
	require.NoError(t, err)
	assert.Equal(t, "A", got)

	raw, err := kv.Get(ctx, "sess-b:auth_token")
	require.NoError(t, err)
	assert.Equal(t, "B", raw)

	require.NoError(t, a.Delete(ctx, "auth_token"))
	_, err = b.Get(ctx, "auth_token")
	assert.NoError(t, err)
}

func TestMemoryKVExpiryKeepsConcurrentSet(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV(time.Minute)
	now := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)
	kv.now = func() time.Time { return now }
	require.NoError(t, kv.Set(ctx, "k", "stale"))
	now = now.Add(2 * time.Minute)

	// The first clock read inside Get happens between the read and write
	// locks; a Set landing there must survive the expiry cleanup.
	raced := false
	kv.now = func() time.Time {
		if !raced {
			raced = true
			require.NoError(t, kv.Set(ctx, "k", "fresh"))
		}
		return now
	}

	_, err := kv.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)

	got, err := kv.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "fresh", got)
}
