package model

// AgentMode is the top-level state of an agent's state machine.
type AgentMode string

const (
	ModeIdle      AgentMode = "IDLE"
	ModeActive    AgentMode = "ACTIVE"
	ModeThrottled AgentMode = "THROTTLED"
	ModeFault     AgentMode = "FAULT"
	ModeRetired   AgentMode = "RETIRED"
)

// Health tracks an agent's wear and fault state.
type Health struct {
	AgeSteps    int     `json:"age_steps"`
	Wear        float64 `json:"wear"`
	FaultCount  int     `json:"fault_count"`
	LifetimeCap int     `json:"lifetime_cap"`
}

// Expired reports whether the agent has reached end-of-life.
func (h Health) Expired() bool {
	return h.LifetimeCap > 0 && h.AgeSteps >= h.LifetimeCap
}

// AgentState is the serializable state shared by every agent type: identity,
// top-level mode, an optional sub-mode (e.g. an ISRU extraction mode or a
// rocket leg), health, and an optional countdown timer for multi-step tasks.
type AgentState struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	SectorID  string    `json:"sector_id"`
	Mode      AgentMode `json:"mode"`
	SubMode   string    `json:"sub_mode,omitempty"`
	Health    Health    `json:"health"`
	Timer     int       `json:"timer,omitempty"`
	FaultUsed bool      `json:"-"`
}
