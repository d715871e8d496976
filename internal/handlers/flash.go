package handlers

import (
	"context"
	"encoding/json"

	"github.com/schooldesk/console/internal/screens"
	"github.com/schooldesk/console/internal/store"
)

// flashKey holds notices queued for the next rendered page.
const flashKey = "flash"

func pushFlash(ctx context.Context, notices ...screens.Notice) {
	kv := sessionKV(ctx)
	if kv == nil || len(notices) == 0 {
		return
	}
	pending := readFlash(ctx, kv)
	raw, err := json.Marshal(append(pending, notices...))
	if err != nil {
		return
	}
	_ = kv.Set(ctx, flashKey, string(raw))
}

func popFlash(ctx context.Context) []screens.Notice {
	kv := sessionKV(ctx)
	if kv == nil {
		return nil
	}
	notices := readFlash(ctx, kv)
	if len(notices) > 0 {
		_ = kv.Delete(ctx, flashKey)
	}
	return notices
}

func readFlash(ctx context.Context, kv store.KV) []screens.Notice {
	raw, err := kv.Get(ctx, flashKey)
	if err != nil {
		return nil
	}
	var notices []screens.Notice
	if err := json.Unmarshal([]byte(raw), &notices); err != nil {
		return nil
	}
	return notices
}
