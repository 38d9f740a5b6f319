package sector

import (
	"github.com/proxima-sim/proxima/pkg/eventbus"
	"github.com/proxima-sim/proxima/pkg/model"
)

// EquipmentInventory tracks one equipment type's physical stock and orders
// already in flight from Earth.
type EquipmentInventory struct {
	PhysicalStock float64
	PendingOrders float64
	MinimumLevel  float64
}

// Equipment is a pure logistics hub: it drains deliveries and requests off
// the bus, fulfills backlogged requests FIFO from physical stock, and
// triggers Earth resupply when effective stock dips below a minimum.
type Equipment struct {
	noopMutator
	ID        string
	Inventory map[string]*EquipmentInventory
	backlog   map[string]*backlog[equipmentRequest]
}

type equipmentRequest struct {
	typeID    string
	qty       float64
	requester string
}

// NewEquipment constructs an Equipment sector over the given inventories.
func NewEquipment(id string, inventory map[string]*EquipmentInventory, backlogMaxAge int) *Equipment {
	e := &Equipment{ID: id, Inventory: inventory, backlog: make(map[string]*backlog[equipmentRequest])}
	for typeID := range inventory {
		e.backlog[typeID] = newBacklog[equipmentRequest](backlogMaxAge)
	}
	return e
}

// OnPayloadDelivered is the Event Bus handler for payload_delivered: it
// moves delivered quantities from pending_orders into physical_stock.
func (e *Equipment) OnPayloadDelivered(typeID string, qty float64) {
	inv := e.inventoryFor(typeID)
	inv.PhysicalStock += qty
	inv.PendingOrders -= qty
	if inv.PendingOrders < 0 {
		inv.PendingOrders = 0
	}
}

// OnEquipmentRequest is the Event Bus handler for equipment_request: it
// appends to the per-type backlog for next step's fulfillment pass.
func (e *Equipment) OnEquipmentRequest(ctx StepContext, typeID, requester string, qty float64) {
	e.backlogFor(typeID).push(requester, equipmentRequest{typeID: typeID, qty: qty, requester: requester}, ctx.T)
}

func (e *Equipment) inventoryFor(typeID string) *EquipmentInventory {
	inv, ok := e.Inventory[typeID]
	if !ok {
		inv = &EquipmentInventory{}
		e.Inventory[typeID] = inv
		e.backlog[typeID] = newBacklog[equipmentRequest](0)
	}
	return inv
}

func (e *Equipment) backlogFor(typeID string) *backlog[equipmentRequest] {
	b, ok := e.backlog[typeID]
	if !ok {
		b = newBacklog[equipmentRequest](0)
		e.backlog[typeID] = b
	}
	return b
}

// Step fulfills backlogged requests FIFO from physical stock, then checks
// every equipment type's effective stock against its minimum level and
// issues a transport_request for the shortfall, bookkept via
// PendingOrders so the same shortfall is never ordered twice.
func (e *Equipment) Step(ctx StepContext) map[string]float64 {
	metrics := make(map[string]float64)

	for typeID, b := range e.backlog {
		inv := e.inventoryFor(typeID)
		for {
			req, ok := b.popFIFO()
			if !ok {
				break
			}
			if inv.PhysicalStock < req.qty {
				b.push(req.requester, req, ctx.T)
				break
			}
			inv.PhysicalStock -= req.qty
			ctx.Bus.Publish(eventbus.TopicEquipmentAllocated, e.ID, req, ctx.T)
			metrics["equipment_allocated_"+typeID] += req.qty
		}
	}

	for typeID, inv := range e.Inventory {
		effective := inv.PhysicalStock + inv.PendingOrders
		if effective < inv.MinimumLevel {
			qty := inv.MinimumLevel - effective
			ctx.Bus.Publish(eventbus.TopicTransportRequest, e.ID, model.TransportRequest{
				ID:           typeID + "-resupply",
				Payload:      map[string]float64{typeID: qty},
				Origin:       model.OriginEarth,
				Destination:  model.OriginMoon,
				Requester:    e.ID,
				QueuedAtStep: ctx.T,
			}, ctx.T)
			inv.PendingOrders += qty
			metrics["resupply_ordered_"+typeID] = qty
		}
	}

	return metrics
}
