package export

import (
	"strings"

	"github.com/gridops/loadshed-review/comparison"
	"github.com/gridops/loadshed-review/models"
	"github.com/shopspring/decimal"
)

// MasterHeader returns the display order of a master view: descriptive columns first,
// then the stage columns in the order given
func MasterHeader(keys []models.StageKey) []string {
	header := make([]string, 0, len(models.MasterColumns)+len(keys))
	for _, f := range models.MasterColumns {
		header = append(header, models.ColumnTitles[f])
	}
	for _, k := range keys {
		header = append(header, k.String())
	}
	return header
}

// MasterSheet renders a filtered master view
func MasterSheet(name string, rows []*models.MasterListRow, keys []models.StageKey) Sheet {
	s := Sheet{Name: name, Header: MasterHeader(keys)}
	for _, r := range rows {
		record := make([]any, 0, len(s.Header))
		for _, f := range models.MasterColumns {
			if f == models.FieldPloadMW {
				record = append(record, mwCell(r.PloadMW))
				continue
			}
			record = append(record, r.Value(f))
		}
		for _, k := range keys {
			record = append(record, string(r.Stage(k)))
		}
		s.Rows = append(s.Rows, record)
	}
	return s
}

// SimulationHeader is the display order of the simulator grid
func SimulationHeader(keys []models.StageKey, target models.StageKey) []string {
	header := []string{"Assignment ID", "Mnemonic", "Substation Name", "Zone", "Subzone", "kV", "DP Type", "Local Trip ID", "Pload (MW)", "Critical List"}
	for _, k := range keys {
		header = append(header, k.String())
	}
	return append(header, "Sim. Stage ("+target.String()+")", "Flag", "Conflict Assignment")
}

// SimulationSheet renders the simulator grid
func SimulationSheet(name string, rows []*models.SimulationRow, keys []models.StageKey, target models.StageKey) Sheet {
	s := Sheet{Name: name, Header: SimulationHeader(keys, target)}
	for _, r := range rows {
		record := []any{
			r.AssignmentID,
			strings.Join(r.Mnemonics, ", "),
			strings.Join(r.SubstationNames, ", "),
			string(r.Zone),
			r.Subzone,
			r.KV,
			string(r.DPType),
			strings.Join(r.LocalTripIDs, ", "),
			mwCell(r.PloadMW),
			yesNo(r.Critical),
		}
		for _, k := range keys {
			record = append(record, string(r.Stages[k]))
		}
		record = append(record, string(r.SimStage), string(r.Flag), r.ConflictAssignment)
		s.Rows = append(s.Rows, record)
	}
	return s
}

// ComparisonHeader is the display order of a comparison result
func ComparisonHeader(from, to models.StageKey) []string {
	return []string{"Assignment ID", "Local Trip ID", "Mnemonic", "Substation Name", "Zone", "Feeder ID", "Pload (MW)", from.String(), to.String(), "Change"}
}

// ComparisonSheet renders a comparison between two stage columns
func ComparisonSheet(name string, results []comparison.Result, from, to models.StageKey) Sheet {
	s := Sheet{Name: name, Header: ComparisonHeader(from, to)}
	for _, r := range results {
		s.Rows = append(s.Rows, []any{
			r.AssignmentID,
			r.LocalTripID,
			r.Mnemonic,
			r.SubstationName,
			string(r.Zone),
			r.FeederID,
			mwCell(r.PloadMW),
			string(r.From),
			string(r.To),
			r.Label,
		})
	}
	return s
}

func mwCell(d decimal.Decimal) float64 {
	return d.InexactFloat64()
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
