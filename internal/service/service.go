// Package service applies the marketplace's validation, authorization and
// business rules on top of the store.
package service

import (
	"context"

	"github.com/georgesalomon/umarket2/internal/market"
	"github.com/georgesalomon/umarket2/internal/store"
)

// EventSink publishes domain events.
type EventSink interface {
	Emit(ctx context.Context, topic, eventType, orderID string, payload any) error
}

// Idempotency maps a client-supplied key, scoped to one buyer, to the
// order it produced.
type Idempotency interface {
	Lookup(ctx context.Context, scope, key string) (string, bool, error)
	Remember(ctx context.Context, scope, key, orderID string) error
}

// Inbox reads a user's notifications.
type Inbox interface {
	List(ctx context.Context, userID string, limit int) ([]market.Notification, error)
}

// Service holds the collaborators every operation needs. Events,
// Idempotency and Inbox are optional.
type Service struct {
	Repo        *store.Repo
	Events      EventSink
	Idempotency Idempotency
	Inbox       Inbox
}

func New(repo *store.Repo) *Service {
	return &Service{Repo: repo}
}

// Notifications returns the caller's most recent notifications. Without an
// inbox there is nothing to return.
func (s *Service) Notifications(ctx context.Context, caller string, limit int) ([]market.Notification, error) {
	if s.Inbox == nil {
		return []market.Notification{}, nil
	}
	return s.Inbox.List(ctx, caller, limit)
}
