// Package notify turns order events into inbox notifications for the
// users they concern.
package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/segmentio/kafka-go"

	kafkax "github.com/georgesalomon/umarket2/internal/kafka"
	"github.com/georgesalomon/umarket2/internal/logger"
	"github.com/georgesalomon/umarket2/internal/market"
)

// Deduper claims an event id so each event is delivered once.
type Deduper interface {
	First(ctx context.Context, eventID string) (bool, error)
	Forget(ctx context.Context, eventID string) error
}

// Inbox stores notifications per user.
type Inbox interface {
	Push(ctx context.Context, userID string, n market.Notification) error
}

type Service struct {
	Inbox Inbox
	Dedup Deduper
}

// HandleOrderEvent is installed as the consumer handler. Events of unknown
// type are skipped and committed.
func (s *Service) HandleOrderEvent(ctx context.Context, m kafka.Message) error {
	env, err := kafkax.DecodeEnvelope(m.Value)
	if err != nil {
		return err
	}
	log := logger.FromContext(ctx).With(
		"event_id", env.EventID, "event_type", env.EventType, "order_id", env.CorrelationID)

	recipient, n, err := notification(env)
	if err != nil {
		return err
	}
	if recipient == "" {
		log.Debug("event ignored")
		return nil
	}

	first, err := s.Dedup.First(ctx, env.EventID)
	if err != nil {
		return fmt.Errorf("dedup %s: %w", env.EventID, err)
	}
	if !first {
		log.Debug("duplicate event skipped")
		return nil
	}

	if err := s.Inbox.Push(ctx, recipient, n); err != nil {
		if ferr := s.Dedup.Forget(context.WithoutCancel(ctx), env.EventID); ferr != nil {
			log.Error("dedup marker not cleared", "error", ferr)
		}
		return fmt.Errorf("push notification: %w", err)
	}
	log.Info("notification delivered", "user_id", recipient)
	return nil
}

// notification builds the inbox entry for env and names who receives it.
// An empty recipient means the event carries nothing to deliver.
func notification(env market.Envelope) (string, market.Notification, error) {
	n := market.Notification{
		EventID:    env.EventID,
		Type:       env.EventType,
		OrderID:    env.CorrelationID,
		OccurredAt: env.OccurredAt,
	}
	switch env.EventType {
	case market.EventOrderCreated:
		p, err := kafkax.UnwrapPayload[market.OrderCreatedPayload](env.Payload)
		if err != nil {
			return "", n, err
		}
		n.OrderID, n.ListingID = p.OrderID, p.ListingID
		n.Message = fmt.Sprintf("New order for %s.", listingName(p.ListingName))
		return p.SellerID, n, nil

	case market.EventOrderStatusChanged:
		p, err := kafkax.UnwrapPayload[market.OrderStatusChangedPayload](env.Payload)
		if err != nil {
			return "", n, err
		}
		n.OrderID, n.ListingID = p.OrderID, p.ListingID
		n.Message = fmt.Sprintf("Your order was %s by the seller.", p.To)
		return p.BuyerID, n, nil
	}
	return "", n, nil
}

func listingName(name string) string {
	if strings.TrimSpace(name) == "" {
		return "your listing"
	}
	return fmt.Sprintf("%q", name)
}
