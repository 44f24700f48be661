package models

import (
	"strings"

	"github.com/shopspring/decimal"
)

// MasterListRow is one (assignment_id x delivery point) row of the master list
type MasterListRow struct {
	AssignmentID   string             `json:"assignment_id"`
	LocalTripID    string             `json:"local_trip_id,omitempty"`
	Mnemonic       string             `json:"mnemonic,omitempty"`
	SubstationName string             `json:"substation_name,omitempty"`
	Zone           Zone               `json:"zone,omitempty"`
	Subzone        string             `json:"subzone,omitempty"`
	State          string             `json:"state,omitempty"`
	KV             string             `json:"kv,omitempty"`
	BreakerID      string             `json:"breaker_id,omitempty"`
	FeederID       string             `json:"feeder_id,omitempty"`
	DPType         DPType             `json:"dp_type,omitempty"`
	PloadMW        decimal.Decimal    `json:"pload_mw"`
	Critical       bool               `json:"critical_list"`
	CriticalSource string             `json:"critical_list_source,omitempty"`
	CriticalRemark string             `json:"critical_remark,omitempty"`
	Excluded       bool               `json:"excluded"`
	ExcludedRemark string             `json:"excluded_remark,omitempty"`
	Stages         map[StageKey]Stage `json:"stages,omitempty"`
}

// Stage returns the stage value of a column, NoStage when absent
func (r *MasterListRow) Stage(key StageKey) Stage {
	if r.Stages == nil {
		return NoStage
	}
	return r.Stages[key]
}

// Clone returns a deep copy of the row
func (r *MasterListRow) Clone() *MasterListRow {
	c := *r
	if r.Stages != nil {
		c.Stages = make(map[StageKey]Stage, len(r.Stages))
		for k, v := range r.Stages {
			c.Stages[k] = v
		}
	}
	return &c
}

// Field names a filterable / exportable column of the master list
type Field string

const (
	FieldAssignmentID   Field = "assignment_id"
	FieldLocalTripID    Field = "local_trip_id"
	FieldMnemonic       Field = "mnemonic"
	FieldSubstationName Field = "substation_name"
	FieldZone           Field = "zone"
	FieldSubzone        Field = "subzone"
	FieldState          Field = "state"
	FieldKV             Field = "kv"
	FieldBreakerID      Field = "breaker_id"
	FieldFeederID       Field = "feeder_id"
	FieldDPType         Field = "dp_type"
	FieldPloadMW        Field = "pload_mw"
	FieldCritical       Field = "critical_list"
	FieldCriticalSource Field = "critical_list_source"
	FieldExcluded       Field = "excluded"
)

// MasterColumns is the display order of the descriptive master-list columns.
// Stage columns follow them in SortStageKeys order.
var MasterColumns = []Field{
	FieldAssignmentID,
	FieldMnemonic,
	FieldSubstationName,
	FieldZone,
	FieldSubzone,
	FieldState,
	FieldKV,
	FieldBreakerID,
	FieldFeederID,
	FieldLocalTripID,
	FieldDPType,
	FieldPloadMW,
	FieldCritical,
	FieldCriticalSource,
	FieldExcluded,
}

// ColumnTitles maps fields to their spreadsheet headers
var ColumnTitles = map[Field]string{
	FieldAssignmentID:   "Assignment ID",
	FieldLocalTripID:    "Local Trip ID",
	FieldMnemonic:       "Mnemonic",
	FieldSubstationName: "Substation Name",
	FieldZone:           "Zone",
	FieldSubzone:        "Subzone",
	FieldState:          "State",
	FieldKV:             "kV",
	FieldBreakerID:      "Breaker ID",
	FieldFeederID:       "Feeder ID",
	FieldDPType:         "DP Type",
	FieldPloadMW:        "Pload (MW)",
	FieldCritical:       "Critical List",
	FieldCriticalSource: "Critical List Source",
	FieldExcluded:       "Excluded",
}

// ParseField accepts descriptive field names and stage column names
func ParseField(s string) (Field, bool) {
	f := Field(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := ColumnTitles[f]; ok {
		return f, true
	}
	if key, err := ParseStageKey(s); err == nil {
		return Field(key.String()), true
	}
	return "", false
}

// Value renders a field of the row as text. Empty means null.
// Stage column names ("UFLS_2024") resolve to the row's stage value.
func (r *MasterListRow) Value(f Field) string {
	switch f {
	case FieldAssignmentID:
		return r.AssignmentID
	case FieldLocalTripID:
		return r.LocalTripID
	case FieldMnemonic:
		return r.Mnemonic
	case FieldSubstationName:
		return r.SubstationName
	case FieldZone:
		return string(r.Zone)
	case FieldSubzone:
		return r.Subzone
	case FieldState:
		return r.State
	case FieldKV:
		return r.KV
	case FieldBreakerID:
		return r.BreakerID
	case FieldFeederID:
		return r.FeederID
	case FieldDPType:
		return string(r.DPType)
	case FieldPloadMW:
		return r.PloadMW.String()
	case FieldCritical:
		return yesNo(r.Critical)
	case FieldCriticalSource:
		return r.CriticalSource
	case FieldExcluded:
		return yesNo(r.Excluded)
	}
	if key, err := ParseStageKey(string(f)); err == nil {
		return string(r.Stage(key))
	}
	return ""
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
