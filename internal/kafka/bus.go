package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/segmentio/kafka-go"

	"github.com/georgesalomon/umarket2/internal/market"
)

// Bus publishes order events wrapped in a versioned envelope.
type Bus struct {
	Producer *Producer
	Service  string
}

// Emit publishes payload on topic keyed by orderID. The request id on ctx,
// if any, travels as the trace id.
func (b *Bus) Emit(ctx context.Context, topic, eventType, orderID string, payload any) error {
	env, err := market.NewEnvelope(eventType, b.Service, orderID, middleware.GetReqID(ctx), payload)
	if err != nil {
		return err
	}
	value, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}
	err = b.Producer.Publish(ctx, topic, market.PartitionKey(orderID), value,
		kafka.Header{Key: "x-event-type", Value: []byte(eventType)},
		kafka.Header{Key: "x-event-version", Value: []byte(strconv.Itoa(env.EventVersion))},
	)
	if err != nil {
		return fmt.Errorf("publish %s: %w", eventType, err)
	}
	return nil
}
