package agent

import (
	"math"

	"github.com/proxima-sim/proxima/pkg/model"
)

// RocketOutbound, RocketLoading and RocketInbound are the rocket's
// state-machine phases. IDLE is shared with model.AgentMode; these three
// are rocket-specific sub-modes stored in
// SubMode so model.AgentState stays one shape across all agent types.
const (
	RocketOutbound = "OUTBOUND"
	RocketLoading  = "LOADING"
	RocketInbound  = "INBOUND"
)

// Delivery is published as payload_delivered when a rocket arrives.
type Delivery struct {
	Payload     map[string]float64
	Destination model.TransportOrigin
}

// Rocket cycles IDLE -> OUTBOUND(k) -> LOADING(k) -> INBOUND(k) -> IDLE,
// where k counts down steps. Fuel accounting is the Transportation Sector's
// responsibility (it computes prop_total and deducts sector fuel before
// calling Launch); the rocket itself only tracks payload and timing.
type Rocket struct {
	Base

	DistanceKm      float64
	CruiseSpeedKmPh float64 // km covered per step
	LoadingSteps    int

	timer         int
	outboundSteps int
	outboundCargo map[string]float64
	returnCargo   map[string]float64
	origin        model.TransportOrigin
	destination   model.TransportOrigin
}

// NewRocket constructs an idle Rocket. outboundSteps = ceil(distance/cruise
// speed); inbound duration equals outbound duration.
func NewRocket(id, sectorID string, lifetimeCap int, distanceKm, cruiseSpeedKmPerStep float64, loadingSteps int) *Rocket {
	return &Rocket{
		Base:            NewBase(id, "Rocket", sectorID, lifetimeCap),
		DistanceKm:      distanceKm,
		CruiseSpeedKmPh: cruiseSpeedKmPerStep,
		LoadingSteps:    loadingSteps,
		outboundSteps:   int(math.Ceil(distanceKm / cruiseSpeedKmPerStep)),
	}
}

// OutboundSteps exposes the precomputed transit duration, for the
// Transportation Sector's availability checks and tests.
func (r *Rocket) OutboundSteps() int { return r.outboundSteps }

// Available reports whether the rocket is idle and can be launched.
func (r *Rocket) Available() bool { return r.Mode == model.ModeIdle }

// Launch commits a round trip: outboundCargo travels from origin to
// destination; returnCargo travels back. The caller must have already
// verified and deducted fuel — Launch assumes the trip is funded.
func (r *Rocket) Launch(origin, destination model.TransportOrigin, outboundCargo, returnCargo map[string]float64) bool {
	if !r.Available() {
		return false
	}
	r.Mode = model.ModeActive
	r.SubMode = RocketOutbound
	r.timer = r.outboundSteps
	r.origin = origin
	r.destination = destination
	r.outboundCargo = outboundCargo
	r.returnCargo = returnCargo
	return true
}

// Step advances the rocket's state machine by one step. It returns a
// Delivery exactly on the step the rocket arrives somewhere (either leg),
// and reports ok=false otherwise.
func (r *Rocket) Step() (*Delivery, bool) {
	r.Tick()
	if r.Retired() || r.Faulted() || r.Mode != model.ModeActive {
		return nil, false
	}

	r.timer--
	if r.timer > 0 {
		return nil, false
	}

	switch r.SubMode {
	case RocketOutbound:
		r.SubMode = RocketLoading
		r.timer = r.LoadingSteps
		return &Delivery{Payload: r.outboundCargo, Destination: r.destination}, true

	case RocketLoading:
		r.SubMode = RocketInbound
		r.timer = r.outboundSteps
		return nil, false

	case RocketInbound:
		delivery := &Delivery{Payload: r.returnCargo, Destination: r.origin}
		r.Mode = model.ModeIdle
		r.SubMode = ""
		r.outboundCargo, r.returnCargo = nil, nil
		return delivery, true
	}
	return nil, false
}
