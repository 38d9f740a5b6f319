package sector

import (
	"github.com/proxima-sim/proxima/pkg/agent"
	"github.com/proxima-sim/proxima/pkg/eventbus"
	"github.com/proxima-sim/proxima/pkg/model"
)

// Transportation runs the rocket fleet and fuel pipeline: each step it
// tops off rocket_fuel via FuelGenerators, launches queued transport
// requests LIFO against available rockets and fuel, and advances every
// rocket's state machine.
type Transportation struct {
	noopMutator
	ID             string
	Fleet          []*agent.Rocket
	FuelGenerators []*agent.FuelGenerator
	PropPerKg      float64
	He3Threshold   float64

	Requests *backlog[model.TransportRequest]

	he3Pending bool
}

// NewTransportation constructs a Transportation sector with an empty
// request queue.
func NewTransportation(id string, propPerKg, he3Threshold float64) *Transportation {
	return &Transportation{ID: id, PropPerKg: propPerKg, He3Threshold: he3Threshold, Requests: newBacklog[model.TransportRequest](0)}
}

// Enqueue adds a transport_request to the LIFO launch queue.
func (t *Transportation) Enqueue(ctx StepContext, req model.TransportRequest) {
	t.Requests.push(req.ID, req, ctx.T)
}

// Step runs the fuel pipeline, attempts to launch queued requests, and
// steps every rocket, publishing payload_delivered on each arrival.
func (t *Transportation) Step(ctx StepContext, he3ProcessedPerGenerator float64) map[string]float64 {
	metrics := make(map[string]float64)
	stock := ctx.Stock(t.ID)

	if t.He3Threshold > 0 {
		if stock["he3"] < t.He3Threshold && !t.he3Pending {
			ctx.Bus.Publish(eventbus.TopicResourceRequest, t.ID, map[string]any{"resource_id": "he3"}, ctx.T)
			t.he3Pending = true
		} else if stock["he3"] >= t.He3Threshold {
			t.he3Pending = false
		}
	}
	for _, fg := range t.FuelGenerators {
		for _, f := range fg.Step(he3ProcessedPerGenerator) {
			ctx.Ledger.Record("fuelgen-"+fg.ID, f)
		}
	}

	t.launchPending(ctx, stock, metrics)

	for _, r := range t.Fleet {
		delivery, ok := r.Step()
		if !ok {
			continue
		}
		ctx.Bus.Publish(eventbus.TopicPayloadDelivered, t.ID, delivery, ctx.T)
		metrics["payload_delivered_count"]++
	}

	return metrics
}

func (t *Transportation) launchPending(ctx StepContext, stock model.Stock, metrics map[string]float64) {
	for {
		req, ok := t.Requests.popLIFO()
		if !ok {
			return
		}
		rocket := t.availableRocket()
		if rocket == nil {
			t.Requests.push(req.ID, req, ctx.T)
			return
		}

		outboundWeight := weightOf(req.Payload)
		propTotal := outboundWeight * t.PropPerKg
		if stock["rocket_fuel"] < propTotal {
			t.Requests.push(req.ID, req, ctx.T)
			return
		}

		ctx.Ledger.Record("rocket-launch-"+rocket.ID, model.StockFlow{
			Source: t.ID, Dest: model.ExternalParty, ResourceID: "rocket_fuel", Delta: propTotal,
		})
		rocket.Launch(req.Origin, req.Destination, req.Payload, map[string]float64{})
		metrics["rockets_launched"]++
	}
}

func (t *Transportation) availableRocket() *agent.Rocket {
	for _, r := range t.Fleet {
		if r.Available() {
			return r
		}
	}
	return nil
}

func weightOf(payload map[string]float64) float64 {
	total := 0.0
	for _, qty := range payload {
		total += qty
	}
	return total
}
