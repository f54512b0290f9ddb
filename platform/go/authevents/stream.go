// Package authevents decouples sign-in/sign-out side effects (tracking start,
// permission requests) from the access-decision path. Publishing never
// blocks: handlers run on their own goroutines with retries, and the stream
// is cancelable as a whole.
package authevents

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"
)

// Kind identifies an auth state transition.
type Kind string

const (
	SignedIn  Kind = "signed_in"
	SignedOut Kind = "signed_out"
)

// Event describes a single auth state change.
type Event struct {
	Kind   Kind
	UserID string
	At     time.Time
}

// Handler reacts to one event. Returning an error triggers a retry with
// exponential backoff; handlers must be idempotent.
type Handler func(ctx context.Context, ev Event) error

// Stream fans auth events out to independently retryable subscribers.
type Stream struct {
	logger   *zap.Logger
	maxTries uint

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.RWMutex
	handlers []namedHandler
}

type namedHandler struct {
	name string
	fn   Handler
}

// NewStream constructs a Stream. Close releases all in-flight handlers.
func NewStream(logger *zap.Logger) *Stream {
	if logger == nil {
		panic("logger is required")
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Stream{
		logger:   logger,
		maxTries: 3,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Subscribe registers a named handler for all subsequent events.
func (s *Stream) Subscribe(name string, fn Handler) {
	if fn == nil {
		panic("handler is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers = append(s.handlers, namedHandler{name: name, fn: fn})
}

// Publish delivers the event to every subscriber without blocking the caller.
// Each handler retries independently; one failing handler never affects the
// others or the auth decision that produced the event.
func (s *Stream) Publish(ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}

	s.mu.RLock()
	handlers := make([]namedHandler, len(s.handlers))
	copy(handlers, s.handlers)
	s.mu.RUnlock()

	for _, h := range handlers {
		h := h
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.run(h, ev)
		}()
	}
}

func (s *Stream) run(h namedHandler, ev Event) {
	operation := func() (struct{}, error) {
		return struct{}{}, h.fn(s.ctx, ev)
	}

	_, err := backoff.Retry(s.ctx, operation,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(s.maxTries),
	)
	if err != nil {
		s.logger.Warn("auth event handler gave up",
			zap.String("handler", h.name),
			zap.String("event", string(ev.Kind)),
			zap.String("user_id", ev.UserID),
			zap.Error(err),
		)
	}
}

// Close cancels in-flight handlers and waits for them to finish.
func (s *Stream) Close() {
	s.cancel()
	s.wg.Wait()
}
