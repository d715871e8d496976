package mq

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/schooldesk/console/config"
	"github.com/schooldesk/console/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type published struct {
	channel string
	data    []byte
	attrs   map[string]string
}

// loopback delivers every published message to subscribers of the same
// channel.
type loopback struct {
	mu   sync.Mutex
	sent []published
	fail error
}

func (l *loopback) Publish(_ context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.fail != nil {
		return "", l.fail
	}
	l.sent = append(l.sent, published{channel: channel, data: data, attrs: attrs})
	return "id", nil
}

func (l *loopback) Subscribe(ctx context.Context, channel string, handler Handler) error {
	l.mu.Lock()
	msgs := append([]published(nil), l.sent...)
	l.mu.Unlock()
	for i, p := range msgs {
		if p.channel != channel {
			continue
		}
		if err := handler(ctx, Message{ID: string(rune('a' + i)), Data: p.data, Attributes: p.attrs}); err != nil {
			return err
		}
	}
	return nil
}

func (l *loopback) Close() error { return nil }

func TestListenerPublishesJSON(t *testing.T) {
	broker := &loopback{}
	events := NewEvents(New(broker), "console.sessions", nil)

	at := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	events.Listener()(session.Event{Kind: session.EventLogout, SessionID: "s-1", UserID: 7, At: at})
	events.Wait()

	require.Len(t, broker.sent, 1)
	sent := broker.sent[0]
	assert.Equal(t, "console.sessions", sent.channel)
	assert.Equal(t, "application/json", sent.attrs[AttrContentType])
	assert.Equal(t, "logout", sent.attrs["kind"])
	assert.JSONEq(t, `{"kind":"logout","session_id":"s-1","user_id":7,"at":"2026-03-01T08:00:00Z"}`, string(sent.data))
}

func TestListenerSwallowsBrokerErrors(t *testing.T) {
	broker := &loopback{fail: errors.New("broker down")}
	events := NewEvents(New(broker), "console.sessions", nil)

	assert.NotPanics(t, func() {
		events.Listener()(session.Event{Kind: session.EventLogin})
		events.Wait()
	})
	assert.Error(t, events.Publish(context.Background(), session.Event{Kind: session.EventLogin}))
}

func TestTailDecodesAndSkipsGarbage(t *testing.T) {
	broker := &loopback{}
	events := NewEvents(New(broker), "console.sessions", nil)
	ctx := context.Background()

	require.NoError(t, events.Publish(ctx, session.Event{Kind: session.EventLogin, SessionID: "s-1"}))
	_, _ = broker.Publish(ctx, "console.sessions", []byte("not json"), nil)
	require.NoError(t, events.Publish(ctx, session.Event{Kind: session.EventInvalidated, SessionID: "s-2"}))
	_, _ = broker.Publish(ctx, "other", []byte(`{"kind":"login"}`), nil)

	var got []session.Event
	require.NoError(t, events.Tail(ctx, func(ev session.Event) { got = append(got, ev) }))
	require.Len(t, got, 2)
	assert.Equal(t, session.EventLogin, got[0].Kind)
	assert.Equal(t, "s-2", got[1].SessionID)
}

func TestOpenNoneAndUnknown(t *testing.T) {
	m, err := Open(context.Background(), config.MQConfig{Backend: "none"})
	require.NoError(t, err)
	assert.Nil(t, m)

	_, err = Open(context.Background(), config.MQConfig{Backend: "kafka"})
	assert.EqualError(t, err, `unknown mq backend "kafka"`)
}

func TestHeadersToAttributes(t *testing.T) {
	attrs := headersToAttributes(map[string]any{"kind": "login", "raw": []byte("x"), "n": 3})
	assert.Equal(t, map[string]string{"kind": "login", "raw": "x", "n": "3"}, attrs)
	assert.Nil(t, headersToAttributes(nil))
	assert.Equal(t, "application/json", contentType(map[string]string{AttrContentType: "application/json"}))
	assert.Equal(t, "application/octet-stream", contentType(nil))
}
