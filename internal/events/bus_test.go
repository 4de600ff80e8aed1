package events

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/authintegrate/authintegrate/internal/store"
)

func TestBusDeliversInRegistrationOrder(t *testing.T) {
	bus := NewBus()
	var order []string

	bus.SubscribeAccess(func(_ context.Context, ev AccessEvent) { order = append(order, "first:"+string(ev.Outcome)) })
	bus.SubscribeAccess(func(_ context.Context, ev AccessEvent) { order = append(order, "second:"+string(ev.Outcome)) })

	bus.PublishAccess(context.Background(), AccessEvent{UserID: 1, Outcome: store.OutcomeGranted})

	require.Equal(t, []string{"first:GRANTED", "second:GRANTED"}, order)
}

func TestBusLateSubscriberMissesEarlierPublish(t *testing.T) {
	bus := NewBus()
	ctx := context.Background()

	bus.PublishStatus(ctx, true)

	var got []bool
	bus.SubscribeStatus(func(_ context.Context, connected bool) { got = append(got, connected) })
	require.Empty(t, got)

	bus.PublishStatus(ctx, false)
	require.Equal(t, []bool{false}, got)
}

func TestBusCloseDropsPublishes(t *testing.T) {
	bus := NewBus()
	calls := 0
	bus.SubscribeAccess(func(context.Context, AccessEvent) { calls++ })

	bus.Close()
	bus.PublishAccess(context.Background(), AccessEvent{UserID: 1, Outcome: store.OutcomeDenied})

	require.Zero(t, calls)
}
