package model

// ConstructionStatus is the lifecycle state of a ConstructionRequest.
type ConstructionStatus string

const (
	ConstructionQueued     ConstructionStatus = "QUEUED"
	ConstructionInProgress ConstructionStatus = "IN_PROGRESS"
	ConstructionCompleted  ConstructionStatus = "COMPLETED"
	ConstructionFailed     ConstructionStatus = "FAILED"
)

// ConstructionRequest asks the Construction Sector to assemble a module.
type ConstructionRequest struct {
	ID              string             `json:"id"`
	ModuleType      string             `json:"module_type"`
	Requester       string             `json:"requester"`
	Status          ConstructionStatus `json:"status"`
	ShellsNeeded    int                `json:"shells_needed"`
	EquipmentNeeded int                `json:"equipment_needed"`
	AssignedRobotID string             `json:"assigned_robot_id,omitempty"`
	StepsRemaining  int                `json:"steps_remaining,omitempty"`
	QueuedAtStep    int                `json:"queued_at_step"`
	// EquipmentRequested marks that a single equipment_request has already
	// been issued for this QUEUED request, preventing duplicates while it
	// waits on equipment delivery.
	EquipmentRequested bool `json:"equipment_requested"`
}

// TransportOrigin is one endpoint of a transport leg.
type TransportOrigin string

const (
	OriginEarth TransportOrigin = "earth"
	OriginMoon  TransportOrigin = "moon"
)

// TransportRequest asks the Transportation Sector to move a payload.
type TransportRequest struct {
	ID           string             `json:"id"`
	Payload      map[string]float64 `json:"payload"`
	Origin       TransportOrigin    `json:"origin"`
	Destination  TransportOrigin    `json:"destination"`
	Requester    string             `json:"requester"`
	QueuedAtStep int                `json:"queued_at_step"`
}

// PipelineOrder tracks an in-flight construction/transport order so growth
// policies and resupply logic don't double-order while it is outstanding.
type PipelineOrder struct {
	MonthOfArrival int    `json:"month_of_arrival"`
	Qty            int    `json:"qty"`
	EquipmentID    string `json:"equipment_id"`
}
