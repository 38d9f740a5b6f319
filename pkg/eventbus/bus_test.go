package eventbus

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/proxima-sim/proxima/pkg/kernelerr"
)

func TestPublishIsNotVisibleUntilSwapAndDeliver(t *testing.T) {
	bus := New()

	var got []Event
	bus.Subscribe(TopicResourceRequest, "sink", func(e Event) error {
		got = append(got, e)
		return nil
	})

	bus.Publish(TopicResourceRequest, "isru-1", "ore", 5)
	assert.Equal(t, 1, bus.PendingCount(), "published event should sit in the next-step buffer")
	assert.Empty(t, got, "subscriber must not see the event before a swap")

	bus.Deliver() // no swap yet: current buffer is still empty
	assert.Empty(t, got)

	bus.Swap()
	assert.Equal(t, 0, bus.PendingCount())
	bus.Deliver()

	require.Len(t, got, 1)
	assert.Equal(t, "ore", got[0].Payload)
	assert.Equal(t, 5, got[0].PublishedAt)
}

func TestDeliverIsFIFOPerTopic(t *testing.T) {
	bus := New()

	var order []string
	bus.Subscribe(TopicTransportRequest, "sink", func(e Event) error {
		order = append(order, e.Payload.(string))
		return nil
	})

	bus.Publish(TopicTransportRequest, "rocket-1", "first", 1)
	bus.Publish(TopicTransportRequest, "rocket-1", "second", 1)
	bus.Publish(TopicTransportRequest, "rocket-2", "third", 1)
	bus.Swap()
	bus.Deliver()

	assert.Equal(t, []string{"first", "second", "third"}, order)
}

func TestDeliverFailureIsIsolatedAndNotRedelivered(t *testing.T) {
	bus := New()
	boom := errors.New("handler boom")

	var failing, other int
	bus.Subscribe(TopicModuleCompleted, "failing", func(e Event) error {
		failing++
		return boom
	})
	bus.Subscribe(TopicModuleCompleted, "other", func(e Event) error {
		other++
		return nil
	})

	var captured *kernelerr.EventDeliveryError
	bus.OnDeliveryError(func(e *kernelerr.EventDeliveryError) { captured = e })

	bus.Publish(TopicModuleCompleted, "construction", "hab-module", 3)
	bus.Swap()
	bus.Deliver()

	assert.Equal(t, 1, failing)
	assert.Equal(t, 1, other, "a failing subscriber must not block delivery to others")

	require.NotNil(t, captured)
	assert.Equal(t, "failing", captured.SubscriberID)
	assert.ErrorIs(t, captured, kernelerr.ErrEventDelivery)

	// Redelivering the (already drained) current buffer must be a no-op.
	failing, other = 0, 0
	bus.Deliver()
	assert.Equal(t, 0, failing)
	assert.Equal(t, 0, other)
}

func TestSubscribeReplacesHandlerForSameSubscriberID(t *testing.T) {
	bus := New()

	calls := 0
	bus.Subscribe(TopicEquipmentAllocated, "dup", func(e Event) error { calls++; return nil })
	bus.Subscribe(TopicEquipmentAllocated, "dup", func(e Event) error { calls += 10; return nil })

	bus.Publish(TopicEquipmentAllocated, "equipment-hub", nil, 0)
	bus.Swap()
	bus.Deliver()

	assert.Equal(t, 10, calls, "re-subscribing the same id should replace, not duplicate, the handler")
}
