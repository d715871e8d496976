package mq

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/schooldesk/console/internal/session"
	"github.com/sirupsen/logrus"
)

const defaultPublishTimeout = 5 * time.Second

// Events publishes session events as JSON on one channel.
type Events struct {
	mq      *MQ
	channel string
	log     logrus.FieldLogger
	timeout time.Duration

	wg sync.WaitGroup
}

// NewEvents constructs an Events publisher. log may be nil.
func NewEvents(mq *MQ, channel string, log logrus.FieldLogger) *Events {
	if log == nil {
		logger := logrus.New()
		logger.SetOutput(io.Discard)
		log = logger
	}
	return &Events{mq: mq, channel: channel, log: log, timeout: defaultPublishTimeout}
}

// Listener returns a session listener that publishes each event in the
// background so the session operation never waits on the broker.
func (e *Events) Listener() session.Listener {
	return func(ev session.Event) {
		e.wg.Add(1)
		go func() {
			defer e.wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), e.timeout)
			defer cancel()
			if err := e.Publish(ctx, ev); err != nil {
				e.log.WithError(err).WithField("kind", ev.Kind).Warn("publish session event")
			}
		}()
	}
}

// Publish sends ev synchronously.
func (e *Events) Publish(ctx context.Context, ev session.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_, err = e.mq.Publish(ctx, e.channel, data, map[string]string{
		AttrContentType: "application/json",
		"kind":          string(ev.Kind),
		"session_id":    ev.SessionID,
	})
	return err
}

// Tail consumes events until ctx ends. Undecodable messages are logged
// and acknowledged.
func (e *Events) Tail(ctx context.Context, fn func(session.Event)) error {
	return e.mq.Subscribe(ctx, e.channel, func(ctx context.Context, msg Message) error {
		ev, err := DecodeEvent(msg)
		if err != nil {
			e.log.WithError(err).WithField("id", msg.ID).Warn("skip malformed session event")
			return nil
		}
		fn(ev)
		return nil
	})
}

// Wait blocks until background publishes have finished.
func (e *Events) Wait() {
	e.wg.Wait()
}

// DecodeEvent parses a message produced by Publish.
func DecodeEvent(msg Message) (session.Event, error) {
	var ev session.Event
	err := json.Unmarshal(msg.Data, &ev)
	return ev, err
}
