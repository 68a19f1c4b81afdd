package kafka

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/georgesalomon/umarket2/internal/market"
)

func TestProducer_PublishAfterClose(t *testing.T) {
	p := NewProducer([]string{"localhost:9092"}, 4)
	p.Close()
	p.Close()

	var err error
	assert.NotPanics(t, func() {
		err = p.Publish(context.Background(), "orders.created", []byte("o1"), []byte("{}"))
	})
	assert.ErrorIs(t, err, ErrProducerClosed)
}

func TestProducer_PublishAfterLoopStopped(t *testing.T) {
	p := NewProducer([]string{"localhost:9092"}, 4)
	ctx, cancel := context.WithCancel(context.Background())
	p.Start(ctx)
	cancel()
	p.WaitClosed()

	err := p.Publish(context.Background(), "orders.created", []byte("o1"), []byte("{}"))
	assert.ErrorIs(t, err, ErrProducerClosed)
}

func TestProducer_PublishFullBuffer(t *testing.T) {
	p := NewProducer([]string{"localhost:9092"}, 1)
	require.NoError(t, p.Publish(context.Background(), "orders.created", []byte("o1"), []byte("{}")))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := p.Publish(ctx, "orders.created", []byte("o2"), []byte("{}"))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestBus_EmitAfterClose(t *testing.T) {
	p := NewProducer([]string{"localhost:9092"}, 4)
	p.Close()
	bus := &Bus{Producer: p, Service: "umarket-api"}

	payload := market.OrderCreatedPayload{OrderID: "o1", ListingID: "l1", BuyerID: "b", SellerID: "s"}
	err := bus.Emit(context.Background(), market.TopicOrderCreated, market.EventOrderCreated, "o1", payload)
	assert.ErrorIs(t, err, ErrProducerClosed)
}
