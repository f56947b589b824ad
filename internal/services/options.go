// Package services implements the shift manager, the transaction ledger,
// category management and the dashboard on top of the storage ports.
package services

import (
	"context"
	"log/slog"
	"time"

	"kassa/internal/amqp"
)

// EventPublisher sends ledger events. *amqp.Client satisfies it.
type EventPublisher interface {
	Publish(ctx context.Context, e *amqp.LedgerEvent) error
}

// Option configures a service.
type Option func(*settings)

type settings struct {
	now        func() time.Time
	events     EventPublisher
	onChange   func(accountID string)
	retagLimit int
}

func newSettings(opts []Option) settings {
	s := settings{now: time.Now, retagLimit: 4}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *settings) { s.now = now }
}

func WithEvents(p EventPublisher) Option {
	return func(s *settings) { s.events = p }
}

// WithChangeHook registers fn to run after every successful mutation of an
// account's ledger.
func WithChangeHook(fn func(accountID string)) Option {
	return func(s *settings) { s.onChange = fn }
}

// WithRetagConcurrency bounds the parallel transaction updates of a
// category rename.
func WithRetagConcurrency(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.retagLimit = n
		}
	}
}

func (s settings) clock() time.Time {
	return s.now().UTC()
}

func (s settings) changed(accountID string) {
	if s.onChange != nil {
		s.onChange(accountID)
	}
}

// publish never fails the caller: the mutation already succeeded.
func (s settings) publish(ctx context.Context, e *amqp.LedgerEvent) {
	if s.events == nil {
		slog.DebugContext(ctx, "Event publisher not configured, skipping ledger event", "event_type", e.Type)
		return
	}
	if err := s.events.Publish(ctx, e); err != nil {
		slog.WarnContext(ctx, "Failed to publish ledger event",
			"event_type", e.Type,
			"account_id", e.AccountID,
			"shift_id", e.ShiftID,
			"error", err)
	}
}
