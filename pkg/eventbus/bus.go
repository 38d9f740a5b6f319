// Package eventbus implements Proxima's buffered publish/subscribe bus
// (spec.md §4.1): publish(topic, payload) appends to a next-step buffer;
// at the step boundary the buffer is swapped into a current-step buffer
// from which subscribers drain. An event published in step t is observed
// in step t+1, never in the step it was published in.
//
// This is an in-process, single-goroutine bus — unlike the teacher's
// pkg/events (which crosses pod and browser boundaries over WebSocket and
// Postgres NOTIFY/LISTEN), Proxima's bus never leaves the step loop, so it
// carries no network dependency. See DESIGN.md for why that's judged a
// stdlib-native part rather than a dropped third-party opportunity.
package eventbus

import (
	"log/slog"

	"github.com/proxima-sim/proxima/pkg/kernelerr"
)

// Topic is a closed enumeration of event kinds routed through the bus.
type Topic string

const (
	TopicConstructionRequest Topic = "construction_request"
	TopicEquipmentRequest    Topic = "equipment_request"
	TopicTransportRequest    Topic = "transport_request"
	TopicResourceRequest     Topic = "resource_request"
	TopicPayloadDelivered    Topic = "payload_delivered"
	TopicModuleCompleted     Topic = "module_completed"
	TopicEquipmentAllocated  Topic = "equipment_allocated"
	TopicResourceAllocated   Topic = "resource_allocated"
)

// Event is a single published message: a topic, a producer-supplied
// payload, the producing sector, and the step it was published in.
type Event struct {
	Topic       Topic
	Payload     any
	Producer    string
	PublishedAt int
}

// Handler processes a delivered event. An error is logged (as an
// EventDeliveryError) and does not stop delivery to other subscribers, and
// the event is never redelivered.
type Handler func(Event) error

type subscription struct {
	id      string
	handler Handler
}

// Bus is the buffered pub/sub described in spec.md §4.1.
type Bus struct {
	subscribers map[Topic][]subscription
	next        map[Topic][]Event
	current     map[Topic][]Event
	// errSink receives every EventDeliveryError produced during Deliver, for
	// the kernel to fold into the step's errors[] log array (spec.md §7).
	errSink func(*kernelerr.EventDeliveryError)
}

// New creates an empty Bus.
func New() *Bus {
	return &Bus{
		subscribers: make(map[Topic][]subscription),
		next:        make(map[Topic][]Event),
		current:     make(map[Topic][]Event),
	}
}

// OnDeliveryError registers a sink invoked for every subscriber failure.
// Replaces any previously registered sink.
func (b *Bus) OnDeliveryError(sink func(*kernelerr.EventDeliveryError)) {
	b.errSink = sink
}

// Subscribe registers a handler for a topic, identified by subscriberID for
// error attribution and idempotent re-subscription (re-subscribing with the
// same id replaces the previous handler rather than adding a duplicate).
func (b *Bus) Subscribe(topic Topic, subscriberID string, handler Handler) {
	subs := b.subscribers[topic]
	for i, s := range subs {
		if s.id == subscriberID {
			subs[i].handler = handler
			return
		}
	}
	b.subscribers[topic] = append(subs, subscription{id: subscriberID, handler: handler})
}

// Publish appends an event to the next-step buffer. FIFO per producer per
// topic is preserved because events are appended in publish order and
// delivered in buffer order.
func (b *Bus) Publish(topic Topic, producer string, payload any, t int) {
	b.next[topic] = append(b.next[topic], Event{
		Topic:       topic,
		Payload:     payload,
		Producer:    producer,
		PublishedAt: t,
	})
}

// Swap moves the next-step buffer into the current-step buffer, ready for
// Deliver. Called once per step, before Deliver, per the step pipeline
// (spec.md §4.7 step 1: "Deliver events (Event Bus swap)").
func (b *Bus) Swap() {
	b.current = b.next
	b.next = make(map[Topic][]Event)
}

// Deliver drains the current-step buffer to every subscriber of each topic,
// in FIFO order. A subscriber whose handler returns an error is logged and
// skipped for the rest of that event only; other subscribers, and the rest
// of the buffer, are unaffected. The buffer is cleared afterward regardless
// of delivery outcome — failed events are never redelivered.
func (b *Bus) Deliver() {
	for topic, events := range b.current {
		subs := b.subscribers[topic]
		for _, evt := range events {
			for _, sub := range subs {
				if err := sub.handler(evt); err != nil {
					delivErr := &kernelerr.EventDeliveryError{
						Topic:        string(topic),
						SubscriberID: sub.id,
						Err:          err,
					}
					slog.Warn("event delivery failed",
						"topic", topic, "subscriber", sub.id, "error", err)
					if b.errSink != nil {
						b.errSink(delivErr)
					}
				}
			}
		}
	}
	b.current = make(map[Topic][]Event)
}

// PendingCount returns the number of events queued for next-step delivery,
// for tests and snapshotting.
func (b *Bus) PendingCount() int {
	n := 0
	for _, events := range b.next {
		n += len(events)
	}
	return n
}
