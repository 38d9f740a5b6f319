// Package kernelerr defines Proxima's error taxonomy: ConfigError,
// CommitOverdraftError, EventDeliveryError, BacklogTimeoutError,
// AgentFaultError and StoreUnavailableError. Each is a sentinel, wrappable
// with fmt.Errorf("...: %w", ...) and inspectable with errors.Is/As,
// following the teacher's config/errors.go pattern of typed,
// component-scoped errors.
package kernelerr

import (
	"errors"
	"fmt"
)

// Sentinels for errors.Is checks across package boundaries.
var (
	// ErrConfig is a malformed/missing document at build time — fatal
	// before the simulation starts.
	ErrConfig = errors.New("config error")

	// ErrCommitOverdraft is a negative stock at ledger commit time — fatal
	// in strict mode, or a dropped group in lenient mode.
	ErrCommitOverdraft = errors.New("commit overdraft")

	// ErrEventDelivery is a subscriber handler failure — logged, other
	// subscribers still receive the event, the event is not retried.
	ErrEventDelivery = errors.New("event delivery error")

	// ErrBacklogTimeout is a backlog entry that aged past max_age_steps —
	// surfaced as a metric contribution and dropped.
	ErrBacklogTimeout = errors.New("backlog timeout")

	// ErrAgentFault transitions an agent to FAULT — unavailable until a
	// maintenance policy resets it.
	ErrAgentFault = errors.New("agent fault")

	// ErrStoreUnavailable is a log-sink write failure — retried with
	// exponential backoff, never blocks the simulation.
	ErrStoreUnavailable = errors.New("store unavailable")
)

// ConfigError wraps a build-time configuration failure with the document
// collection and id that failed to resolve.
type ConfigError struct {
	Collection string
	ID         string
	Err        error
}

func (e *ConfigError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("config: %s %q: %v", e.Collection, e.ID, e.Err)
	}
	return fmt.Sprintf("config: %s: %v", e.Collection, e.Err)
}

func (e *ConfigError) Unwrap() []error { return []error{ErrConfig, e.Err} }

// CommitOverdraftError records a group whose net stock would go negative.
type CommitOverdraftError struct {
	Sector     string
	ResourceID string
	Current    float64
	NetDelta   float64
}

func (e *CommitOverdraftError) Error() string {
	return fmt.Sprintf("commit overdraft: sector %s resource %s current=%g net_delta=%g",
		e.Sector, e.ResourceID, e.Current, e.NetDelta)
}

func (e *CommitOverdraftError) Unwrap() error { return ErrCommitOverdraft }

// EventDeliveryError records a subscriber that raised while handling an
// event; delivery to the other subscribers of the same event is unaffected.
type EventDeliveryError struct {
	Topic        string
	SubscriberID string
	Err          error
}

func (e *EventDeliveryError) Error() string {
	return fmt.Sprintf("event delivery: topic %s subscriber %s: %v", e.Topic, e.SubscriberID, e.Err)
}

func (e *EventDeliveryError) Unwrap() []error { return []error{ErrEventDelivery, e.Err} }

// BacklogTimeoutError records a dropped, aged-out backlog entry.
type BacklogTimeoutError struct {
	Sector   string
	EntryID  string
	AgeSteps int
}

func (e *BacklogTimeoutError) Error() string {
	return fmt.Sprintf("backlog timeout: sector %s entry %s age=%d steps", e.Sector, e.EntryID, e.AgeSteps)
}

func (e *BacklogTimeoutError) Unwrap() error { return ErrBacklogTimeout }

// AgentFaultError records an agent transitioning into FAULT.
type AgentFaultError struct {
	AgentID string
	Reason  string
}

func (e *AgentFaultError) Error() string {
	return fmt.Sprintf("agent fault: %s: %s", e.AgentID, e.Reason)
}

func (e *AgentFaultError) Unwrap() error { return ErrAgentFault }

// StoreUnavailableError records a log-sink write failure.
type StoreUnavailableError struct {
	Sink string
	Err  error
}

func (e *StoreUnavailableError) Error() string {
	return fmt.Sprintf("store unavailable: sink %s: %v", e.Sink, e.Err)
}

func (e *StoreUnavailableError) Unwrap() []error { return []error{ErrStoreUnavailable, e.Err} }
