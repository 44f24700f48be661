// Package comparison diffs two stage columns of the master list
package comparison

import (
	"sort"

	"github.com/gridops/loadshed-review/models"
	"github.com/shopspring/decimal"
)

// Change labels
const (
	LabelNone     = ""
	LabelRemoved  = "Defeated/Removed"
	LabelNew      = "New Assignment"
	LabelNoChange = "No Change"
)

// Result is one delivery point classified between two columns
type Result struct {
	AssignmentID   string          `json:"assignment_id"`
	LocalTripID    string          `json:"local_trip_id,omitempty"`
	Mnemonic       string          `json:"mnemonic,omitempty"`
	SubstationName string          `json:"substation_name,omitempty"`
	Zone           models.Zone     `json:"zone,omitempty"`
	FeederID       string          `json:"feeder_id,omitempty"`
	PloadMW        decimal.Decimal `json:"pload_mw"`
	From           models.Stage    `json:"from,omitempty"`
	To             models.Stage    `json:"to,omitempty"`
	Label          string          `json:"label"`
}

// Label classifies a stage transition. Exactly one label applies to every pair.
func Label(from, to models.Stage) string {
	switch {
	case from.IsNull() && to.IsNull():
		return LabelNone
	case to.IsNull():
		return LabelRemoved
	case from.IsNull():
		return LabelNew
	case from == to:
		return LabelNoChange
	default:
		return string(from) + " --> " + string(to)
	}
}

// Compare labels every row of the master list. Rows without a label are kept.
func Compare(rows []*models.MasterListRow, from, to models.StageKey) []Result {
	out := make([]Result, 0, len(rows))
	for _, r := range rows {
		f, t := r.Stage(from), r.Stage(to)
		out = append(out, Result{
			AssignmentID:   r.AssignmentID,
			LocalTripID:    r.LocalTripID,
			Mnemonic:       r.Mnemonic,
			SubstationName: r.SubstationName,
			Zone:           r.Zone,
			FeederID:       r.FeederID,
			PloadMW:        r.PloadMW,
			From:           f,
			To:             t,
			Label:          Label(f, t),
		})
	}
	return out
}

// Changed drops the rows with no label
func Changed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if r.Label != LabelNone {
			out = append(out, r)
		}
	}
	return out
}

// Count is the number of rows and load carrying one label
type Count struct {
	Label string          `json:"label"`
	Rows  int             `json:"rows"`
	MW    decimal.Decimal `json:"mw"`
}

// Tally counts labelled rows. The fixed labels come first, stage transitions follow in
// alphabetical order.
func Tally(results []Result) []Count {
	byLabel := make(map[string]*Count)
	for _, r := range results {
		if r.Label == LabelNone {
			continue
		}
		c, ok := byLabel[r.Label]
		if !ok {
			c = &Count{Label: r.Label, MW: decimal.Zero}
			byLabel[r.Label] = c
		}
		c.Rows++
		c.MW = c.MW.Add(r.PloadMW)
	}

	var out []Count
	for _, label := range []string{LabelNew, LabelRemoved, LabelNoChange} {
		if c, ok := byLabel[label]; ok {
			out = append(out, *c)
			delete(byLabel, label)
		}
	}
	rest := make([]string, 0, len(byLabel))
	for label := range byLabel {
		rest = append(rest, label)
	}
	sort.Strings(rest)
	for _, label := range rest {
		out = append(out, *byLabel[label])
	}
	return out
}
