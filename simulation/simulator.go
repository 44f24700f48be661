package simulation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gridops/loadshed-review/masterlist"
	"github.com/gridops/loadshed-review/models"
	"github.com/shopspring/decimal"
)

// ErrUnknownAssignment is returned when an edit names an assignment outside the grid
var ErrUnknownAssignment = errors.New("unknown assignment")

// Change records one simulated stage transition applied by an edit
type Change struct {
	AssignmentID string       `json:"assignment_id"`
	From         models.Stage `json:"from,omitempty"`
	To           models.Stage `json:"to,omitempty"`
}

// Summary counts the flags of the current snapshot
type Summary struct {
	Target      models.StageKey `json:"target"`
	Rows        int             `json:"rows"`
	Simulated   int             `json:"simulated"`
	Warnings    int             `json:"warnings"`
	Alerts      int             `json:"alerts"`
	SimulatedMW decimal.Decimal `json:"simulated_mw"`
}

// Simulator holds the editor snapshot of one simulation. It is not safe for
// concurrent use; callers serialise access per session.
type Simulator struct {
	target   models.StageKey
	keys     []models.StageKey
	policies Policies

	base  []*models.SimulationRow
	rows  []*models.SimulationRow
	index map[string]int
}

// NewSimulator starts a simulation of the target column. Simulated stages are seeded
// from the target column when it already exists in the master list.
func NewSimulator(ml *masterlist.MasterList, target models.StageKey, policies Policies) *Simulator {
	s := &Simulator{target: target, policies: policies}
	if ml != nil {
		s.keys = append([]models.StageKey(nil), ml.StageKeys...)
		s.base = BuildRows(ml.Rows)
	}
	for _, r := range s.base {
		r.SimStage = r.Stages[target]
	}
	Evaluate(s.base, s.target, s.keys, s.policies)

	s.index = make(map[string]int, len(s.base))
	for i, r := range s.base {
		s.index[r.AssignmentID] = i
	}
	s.rows = cloneRows(s.base)
	return s
}

// Target returns the simulated column
func (s *Simulator) Target() models.StageKey {
	return s.target
}

// Rows returns a copy of the current snapshot
func (s *Simulator) Rows() []*models.SimulationRow {
	return cloneRows(s.rows)
}

// Apply diffs the edits against the current snapshot, applies the changed rows and
// recomputes every flag. Edits naming unknown assignments reject the whole batch.
func (s *Simulator) Apply(edits []models.SimulationEdit) ([]Change, error) {
	var unknown []string
	next := make(map[string]models.Stage, len(edits))
	for _, e := range edits {
		id := strings.TrimSpace(e.AssignmentID)
		if _, ok := s.index[id]; !ok {
			unknown = append(unknown, id)
			continue
		}
		next[id] = models.ParseStage(string(e.SimStage))
	}
	if len(unknown) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAssignment, strings.Join(unknown, ", "))
	}

	var changes []Change
	for _, e := range edits {
		id := strings.TrimSpace(e.AssignmentID)
		stage, pending := next[id]
		if !pending {
			continue
		}
		delete(next, id)
		current := s.rows[s.index[id]].SimStage
		if current == stage {
			continue
		}
		changes = append(changes, Change{AssignmentID: id, From: current, To: stage})
	}
	if len(changes) == 0 {
		return nil, nil
	}

	rows := cloneRows(s.rows)
	for _, c := range changes {
		rows[s.index[c.AssignmentID]].SimStage = c.To
	}
	Evaluate(rows, s.target, s.keys, s.policies)
	s.rows = rows
	return changes, nil
}

// Reset restores the snapshot taken when the simulation started
func (s *Simulator) Reset() {
	s.rows = cloneRows(s.base)
}

// Clear removes every simulated stage
func (s *Simulator) Clear() {
	rows := cloneRows(s.base)
	for _, r := range rows {
		r.SimStage = models.NoStage
	}
	Evaluate(rows, s.target, s.keys, s.policies)
	s.rows = rows
}

// Summary counts flags and simulated load of the current snapshot
func (s *Simulator) Summary() Summary {
	sum := Summary{Target: s.target, Rows: len(s.rows), SimulatedMW: decimal.Zero}
	for _, r := range s.rows {
		if !r.SimStage.IsNull() {
			sum.Simulated++
			sum.SimulatedMW = sum.SimulatedMW.Add(r.PloadMW)
		}
		switch r.Flag {
		case models.FlagWarning:
			sum.Warnings++
		case models.FlagAlert:
			sum.Alerts++
		}
	}
	return sum
}

func cloneRows(rows []*models.SimulationRow) []*models.SimulationRow {
	out := make([]*models.SimulationRow, len(rows))
	for i, r := range rows {
		out[i] = r.Clone()
	}
	return out
}
