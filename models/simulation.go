package models

import (
	"github.com/shopspring/decimal"
)

// SimulationRow is the editor state of one assignment in the what-if simulator
type SimulationRow struct {
	AssignmentID       string             `json:"assignment_id"`
	Mnemonics          []string           `json:"mnemonics,omitempty"`
	SubstationNames    []string           `json:"substation_names,omitempty"`
	Zone               Zone               `json:"zone,omitempty"`
	Subzone            string             `json:"subzone,omitempty"`
	KV                 string             `json:"kv,omitempty"`
	DPType             DPType             `json:"dp_type,omitempty"`
	LocalTripIDs       []string           `json:"local_trip_ids,omitempty"`
	PloadMW            decimal.Decimal    `json:"pload_mw"`
	Critical           bool               `json:"critical_list"`
	Excluded           bool               `json:"excluded"`
	Stages             map[StageKey]Stage `json:"stages,omitempty"`
	SimStage           Stage              `json:"sim_stage,omitempty"`
	Flag               Flag               `json:"flag"`
	ConflictAssignment string             `json:"conflict_assignment,omitempty"`
}

// Clone returns a deep copy of the row
func (r *SimulationRow) Clone() *SimulationRow {
	c := *r
	c.Mnemonics = append([]string(nil), r.Mnemonics...)
	c.SubstationNames = append([]string(nil), r.SubstationNames...)
	c.LocalTripIDs = append([]string(nil), r.LocalTripIDs...)
	if r.Stages != nil {
		c.Stages = make(map[StageKey]Stage, len(r.Stages))
		for k, v := range r.Stages {
			c.Stages[k] = v
		}
	}
	return &c
}

// SimulationEdit assigns (or clears, with an empty stage) the simulated stage of an assignment
type SimulationEdit struct {
	AssignmentID string `json:"assignment_id" validate:"required"`
	SimStage     Stage  `json:"sim_stage"`
}
