// Package queue decouples webhook delivery from update processing.
//
// Webhook handlers must answer promptly, so they publish the raw
// update here and return; dispatcher workers consume at their own pace.
package queue

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/mymmrac/telego"
)

// ErrQueueClosed is returned when publishing to a closed Queue.
var ErrQueueClosed = errors.New("update queue closed")

// Envelope carries one raw webhook delivery together with the tenant
// credential it arrived on.
type Envelope struct {
	Token      string
	Admin      bool
	Update     telego.Update
	RequestID  string
	ReceivedAt time.Time
}

type Queue struct {
	updates chan Envelope
	done    chan struct{}
	closed  atomic.Bool
}

func New(size int) *Queue {
	return &Queue{
		updates: make(chan Envelope, size),
		done:    make(chan struct{}),
	}
}

func (q *Queue) Publish(ctx context.Context, env Envelope) error {
	if q.closed.Load() {
		return ErrQueueClosed
	}
	select {
	case q.updates <- env:
		return nil
	case <-q.done:
		return ErrQueueClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *Queue) Consume(ctx context.Context) (Envelope, bool) {
	select {
	case env, ok := <-q.updates:
		return env, ok
	case <-q.done:
		return Envelope{}, false
	case <-ctx.Done():
		return Envelope{}, false
	}
}

func (q *Queue) Close() {
	if q.closed.CompareAndSwap(false, true) {
		close(q.done)
	}
}
