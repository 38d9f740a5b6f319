// Package ledger implements the Stock Flow Ledger: sectors record
// StockFlow entries during a step, grouped by the agent or sector action
// that produced them, and the ledger commits every group atomically at
// the step boundary. A group whose net effect would drive a stock
// negative is either fatal (strict mode) or dropped in its entirety
// (lenient mode) — partial application of a group never happens.
package ledger

import (
	"log/slog"

	"github.com/proxima-sim/proxima/pkg/kernelerr"
	"github.com/proxima-sim/proxima/pkg/model"
)

// OverdraftMode selects how the ledger reacts to a group that would drive
// a stock negative at commit time.
type OverdraftMode string

const (
	// Strict aborts the commit and surfaces a CommitOverdraftError; used
	// for sectors where a negative stock indicates a kernel bug rather
	// than a planning shortfall (e.g. the Energy Sector's power ledger).
	Strict OverdraftMode = "strict"

	// Lenient drops the offending group, logs it, and continues
	// committing the remaining groups; used where a negative stock is a
	// recoverable planning failure (e.g. an ISRU batch outrunning ore).
	Lenient OverdraftMode = "lenient"
)

type group struct {
	id    string
	flows []model.StockFlow
}

// Ledger accumulates StockFlow entries for a single step and commits them
// atomically, group by group, against a set of named stocks.
type Ledger struct {
	groups []group
	byID   map[string]int // group id -> index in groups, for Record's append
}

// New returns an empty Ledger, ready to record a step's flows.
func New() *Ledger {
	return &Ledger{byID: make(map[string]int)}
}

// Record appends a StockFlow to the named group. Flows recorded under the
// same group id are committed together, all-or-nothing.
func (l *Ledger) Record(groupID string, flow model.StockFlow) {
	if idx, ok := l.byID[groupID]; ok {
		l.groups[idx].flows = append(l.groups[idx].flows, flow)
		return
	}
	l.byID[groupID] = len(l.groups)
	l.groups = append(l.groups, group{id: groupID, flows: []model.StockFlow{flow}})
}

// CommitResult reports what happened to a single dropped group in lenient
// mode, for the step's errors[] log.
type CommitResult struct {
	Dropped []kernelerr.CommitOverdraftError
}

// Commit applies every recorded group to stocks, keyed by owner id (sector
// or agent). It clears the ledger's recorded flows on return, whether or
// not every group committed. In Strict mode the first overdraft aborts
// immediately and returns a *kernelerr.CommitOverdraftError; stocks already
// mutated by prior groups in this call remain applied (groups are
// independent transactions, not a single rollback unit). In Lenient mode
// every overdrafting group is skipped and reported in CommitResult.Dropped,
// and every non-overdrafting group commits.
func (l *Ledger) Commit(stocks map[string]model.Stock, mode OverdraftMode) (CommitResult, error) {
	var result CommitResult
	defer l.reset()

	for _, g := range l.groups {
		deltas := net(g.flows)
		if owner, resourceID, current, netDelta, bad := wouldOverdraft(stocks, deltas); bad {
			oe := kernelerr.CommitOverdraftError{
				Sector:     owner,
				ResourceID: resourceID,
				Current:    current,
				NetDelta:   netDelta,
			}
			if mode == Strict {
				return result, &oe
			}
			slog.Warn("ledger: dropping overdrafting group",
				"group", g.id, "sector", owner, "resource", resourceID,
				"current", current, "net_delta", netDelta)
			result.Dropped = append(result.Dropped, oe)
			continue
		}
		apply(stocks, deltas)
	}
	return result, nil
}

// PendingCount reports the number of flows recorded since the last Commit,
// for tests and snapshotting.
func (l *Ledger) PendingCount() int {
	n := 0
	for _, g := range l.groups {
		n += len(g.flows)
	}
	return n
}

func (l *Ledger) reset() {
	l.groups = nil
	l.byID = make(map[string]int)
}

type ownerResource struct {
	owner      string
	resourceID string
}

// net collapses a group's flows into a single per-(owner, resource) delta:
// a flow credits its Dest and debits its Source, except for the sentinel
// model.ExternalParty, which represents an off-ledger party and is never
// tracked as a stock.
func net(flows []model.StockFlow) map[ownerResource]float64 {
	deltas := make(map[ownerResource]float64)
	for _, f := range flows {
		if f.Dest != model.ExternalParty {
			deltas[ownerResource{f.Dest, f.ResourceID}] += f.Delta
		}
		if f.Source != model.ExternalParty {
			deltas[ownerResource{f.Source, f.ResourceID}] -= f.Delta
		}
	}
	return deltas
}

// wouldOverdraft checks whether applying deltas to stocks would drive any
// (owner, resource) pair negative, without mutating stocks.
func wouldOverdraft(stocks map[string]model.Stock, deltas map[ownerResource]float64) (owner, resourceID string, current, netDelta float64, bad bool) {
	for or, delta := range deltas {
		cur := 0.0
		if s, ok := stocks[or.owner]; ok {
			cur = s[or.resourceID]
		}
		if cur+delta < 0 {
			return or.owner, or.resourceID, cur, delta, true
		}
	}
	return "", "", 0, 0, false
}

func apply(stocks map[string]model.Stock, deltas map[ownerResource]float64) {
	for or, delta := range deltas {
		s, ok := stocks[or.owner]
		if !ok {
			s = make(model.Stock)
			stocks[or.owner] = s
		}
		s[or.resourceID] += delta
	}
}
