package analytics

import (
	"sort"

	"github.com/gridops/loadshed-review/models"
	"github.com/shopspring/decimal"
)

// Aggregation is a grouped MW sum. Groups plus Unassigned always add up to Total.
type Aggregation struct {
	GroupBy    models.Field               `json:"group_by"`
	Groups     map[string]decimal.Decimal `json:"groups"`
	Unassigned decimal.Decimal            `json:"unassigned"`
	Total      decimal.Decimal            `json:"total"`
}

// Keys returns the group keys in display order
func (a Aggregation) Keys() []string {
	keys := make([]string, 0, len(a.Groups))
	for k := range a.Groups {
		keys = append(keys, k)
	}
	if a.GroupBy == models.FieldZone {
		sort.Slice(keys, func(i, j int) bool {
			oi, oj := zoneOrder(models.Zone(keys[i])), zoneOrder(models.Zone(keys[j]))
			if oi != oj {
				return oi < oj
			}
			return keys[i] < keys[j]
		})
		return keys
	}
	sort.Strings(keys)
	return keys
}

// AggregateMW sums Pload per value of groupBy. Rows with a null group value go to
// Unassigned. When active is set, rows with a null stage in that column are skipped.
func AggregateMW(rows []*models.MasterListRow, groupBy models.Field, active *models.StageKey) Aggregation {
	agg := Aggregation{
		GroupBy:    groupBy,
		Groups:     make(map[string]decimal.Decimal),
		Unassigned: decimal.Zero,
		Total:      decimal.Zero,
	}
	for _, r := range rows {
		if active != nil && r.Stage(*active).IsNull() {
			continue
		}
		agg.Total = agg.Total.Add(r.PloadMW)
		key := r.Value(groupBy)
		if key == "" {
			agg.Unassigned = agg.Unassigned.Add(r.PloadMW)
			continue
		}
		agg.Groups[key] = agg.Groups[key].Add(r.PloadMW)
	}
	return agg
}

// SchemeLoad is the active load of one stage column
type SchemeLoad struct {
	Key         models.StageKey `json:"key"`
	MW          decimal.Decimal `json:"mw"`
	Rows        int             `json:"rows"`
	Assignments int             `json:"assignments"`
}

// MWByScheme sums active load per stage column, in column order
func MWByScheme(rows []*models.MasterListRow, keys []models.StageKey) []SchemeLoad {
	out := make([]SchemeLoad, 0, len(keys))
	for _, k := range keys {
		load := SchemeLoad{Key: k, MW: decimal.Zero}
		ids := make(map[string]struct{})
		for _, r := range rows {
			if r.Stage(k).IsNull() {
				continue
			}
			load.MW = load.MW.Add(r.PloadMW)
			load.Rows++
			ids[r.AssignmentID] = struct{}{}
		}
		load.Assignments = len(ids)
		out = append(out, load)
	}
	return out
}

// PivotCell is the active load of one zone at one stage
type PivotCell struct {
	Zone  models.Zone     `json:"zone"`
	Stage models.Stage    `json:"stage"`
	MW    decimal.Decimal `json:"mw"`
	Rows  int             `json:"rows"`
}

// MWByZoneStage pivots the load of one stage column by zone and stage.
// Null-zone rows appear under the empty zone, after the named zones.
func MWByZoneStage(rows []*models.MasterListRow, key models.StageKey) []PivotCell {
	type cellKey struct {
		zone  models.Zone
		stage models.Stage
	}
	cells := make(map[cellKey]*PivotCell)
	for _, r := range rows {
		stage := r.Stage(key)
		if stage.IsNull() {
			continue
		}
		ck := cellKey{zone: r.Zone, stage: stage}
		c, ok := cells[ck]
		if !ok {
			c = &PivotCell{Zone: r.Zone, Stage: stage, MW: decimal.Zero}
			cells[ck] = c
		}
		c.MW = c.MW.Add(r.PloadMW)
		c.Rows++
	}

	out := make([]PivotCell, 0, len(cells))
	for _, c := range cells {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Zone != out[j].Zone {
			return zoneOrder(out[i].Zone) < zoneOrder(out[j].Zone)
		}
		return StageLess(out[i].Stage, out[j].Stage)
	})
	return out
}

// Summary holds the headline figures of a view
type Summary struct {
	Rows         int                               `json:"rows"`
	Assignments  int                               `json:"assignments"`
	TotalMW      decimal.Decimal                   `json:"total_mw"`
	CriticalRows int                               `json:"critical_rows"`
	CriticalMW   decimal.Decimal                   `json:"critical_mw"`
	ExcludedRows int                               `json:"excluded_rows"`
	ExcludedMW   decimal.Decimal                   `json:"excluded_mw"`
	ByDPType     map[models.DPType]decimal.Decimal `json:"by_dp_type"`
}

// Summarize computes the headline figures of a set of rows
func Summarize(rows []*models.MasterListRow) Summary {
	s := Summary{
		TotalMW:    decimal.Zero,
		CriticalMW: decimal.Zero,
		ExcludedMW: decimal.Zero,
		ByDPType:   make(map[models.DPType]decimal.Decimal),
	}
	ids := make(map[string]struct{}, len(rows))
	for _, r := range rows {
		s.Rows++
		ids[r.AssignmentID] = struct{}{}
		s.TotalMW = s.TotalMW.Add(r.PloadMW)
		if r.Critical {
			s.CriticalRows++
			s.CriticalMW = s.CriticalMW.Add(r.PloadMW)
		}
		if r.Excluded {
			s.ExcludedRows++
			s.ExcludedMW = s.ExcludedMW.Add(r.PloadMW)
		}
		s.ByDPType[r.DPType] = s.ByDPType[r.DPType].Add(r.PloadMW)
	}
	s.Assignments = len(ids)
	return s
}

// StageLess orders stages numerically, with non-numeric labels last
func StageLess(a, b models.Stage) bool {
	na, okA := a.Number()
	nb, okB := b.Number()
	switch {
	case okA && okB:
		return na < nb
	case okA != okB:
		return okA
	}
	return a < b
}

func zoneOrder(z models.Zone) int {
	for i, known := range models.Zones {
		if z == known {
			return i
		}
	}
	return len(models.Zones)
}
