package sector

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/proxima-sim/proxima/pkg/agent"
	"github.com/proxima-sim/proxima/pkg/eventbus"
	"github.com/proxima-sim/proxima/pkg/ledger"
	"github.com/proxima-sim/proxima/pkg/model"
)

func TestTransportationLaunchesWhenFueled(t *testing.T) {
	tr := NewTransportation("transportation", 2, 0)
	tr.Fleet = []*agent.Rocket{agent.NewRocket("r1", "transportation", 100000, 10, 10, 1)}

	var delivered []any
	bus := eventbus.New()
	bus.Subscribe(eventbus.TopicPayloadDelivered, "test", func(e eventbus.Event) error {
		delivered = append(delivered, e.Payload)
		return nil
	})

	led := ledger.New()
	ctx := StepContext{T: 0, RNG: rand.New(rand.NewSource(1)), Ledger: led, Bus: bus, Stocks: map[string]model.Stock{
		"transportation": {"rocket_fuel": 100},
	}}
	tr.Enqueue(ctx, model.TransportRequest{ID: "req-1", Payload: map[string]float64{"shells": 5}, Origin: model.OriginEarth, Destination: model.OriginMoon})

	metrics := tr.Step(ctx, 0)
	assert.Equal(t, 1.0, metrics["rockets_launched"])
	require.NoError(t, func() error { _, err := led.Commit(ctx.Stocks, ledger.Strict); return err }())
	assert.False(t, tr.Fleet[0].Available(), "rocket should be mid-flight after launch")
}

func TestTransportationHoldsRequestWithoutFuel(t *testing.T) {
	tr := NewTransportation("transportation", 100, 0)
	tr.Fleet = []*agent.Rocket{agent.NewRocket("r1", "transportation", 100000, 10, 10, 1)}

	bus := eventbus.New()
	led := ledger.New()
	ctx := StepContext{T: 0, RNG: rand.New(rand.NewSource(1)), Ledger: led, Bus: bus, Stocks: map[string]model.Stock{
		"transportation": {"rocket_fuel": 1},
	}}
	tr.Enqueue(ctx, model.TransportRequest{ID: "req-1", Payload: map[string]float64{"shells": 5}})

	metrics := tr.Step(ctx, 0)
	assert.Equal(t, 0.0, metrics["rockets_launched"])
	assert.Equal(t, 1, tr.Requests.len(), "request must remain queued when fuel is insufficient")
}
