// Package analytics filters the master list and aggregates shed load
package analytics

import (
	"fmt"
	"strings"

	"github.com/gridops/loadshed-review/masterlist"
	"github.com/gridops/loadshed-review/models"
)

// View is a set of master-list rows together with the stage columns that participate in it
type View struct {
	Rows      []*models.MasterListRow `json:"rows"`
	StageKeys []models.StageKey       `json:"stage_keys"`
}

// NewView exposes a whole master list as a view
func NewView(ml *masterlist.MasterList) View {
	if ml == nil {
		return View{}
	}
	return View{Rows: ml.Rows, StageKeys: ml.StageKeys}
}

// Criteria selects stage columns and rows. Empty members are no-ops.
type Criteria struct {
	Schemes     []models.Scheme           `json:"schemes,omitempty"`
	ReviewYears []string                  `json:"review_years,omitempty"`
	Stages      []models.Stage            `json:"stages,omitempty"`
	Fields      map[models.Field][]string `json:"fields,omitempty"`
	Search      string                    `json:"search,omitempty"`
}

// Normalize canonicalises scheme, year, stage and field spellings.
// Unknown schemes and fields are rejected.
func (c Criteria) Normalize() (Criteria, error) {
	out := Criteria{Search: strings.TrimSpace(c.Search)}
	for _, s := range c.Schemes {
		scheme, err := models.ParseScheme(string(s))
		if err != nil {
			return Criteria{}, err
		}
		out.Schemes = append(out.Schemes, scheme)
	}
	for _, y := range c.ReviewYears {
		ry, ok := models.ParseReviewYear(y)
		if !ok {
			return Criteria{}, fmt.Errorf("invalid review year %q", y)
		}
		out.ReviewYears = append(out.ReviewYears, ry.String())
	}
	for _, s := range c.Stages {
		if stage := models.ParseStage(string(s)); !stage.IsNull() {
			out.Stages = append(out.Stages, stage)
		}
	}
	if len(c.Fields) > 0 {
		out.Fields = make(map[models.Field][]string, len(c.Fields))
		for f, values := range c.Fields {
			field, ok := models.ParseField(string(f))
			if !ok {
				return Criteria{}, fmt.Errorf("unknown field %q", f)
			}
			out.Fields[field] = append(out.Fields[field], values...)
		}
	}
	return out, nil
}

// SelectsColumns reports whether the criteria narrow the stage columns
func (c Criteria) SelectsColumns() bool {
	return len(c.Schemes) > 0 || len(c.ReviewYears) > 0
}

// SelectedKeys returns the stage columns of keys chosen by the scheme and review-year selection
func (c Criteria) SelectedKeys(keys []models.StageKey) []models.StageKey {
	out := make([]models.StageKey, 0, len(keys))
	for _, k := range keys {
		if len(c.Schemes) > 0 && !containsScheme(c.Schemes, k.Scheme) {
			continue
		}
		if len(c.ReviewYears) > 0 && !containsFold(c.ReviewYears, k.Year) {
			continue
		}
		out = append(out, k)
	}
	return out
}

// Apply filters a view. Unselected stage columns are removed from the returned rows, and
// when a scheme or year is selected, rows inactive in every selected column are dropped.
// Apply never mutates its input and Apply(Apply(v, c), c) equals Apply(v, c).
func Apply(v View, c Criteria) View {
	keys := c.SelectedKeys(v.StageKeys)
	search := strings.ToLower(strings.TrimSpace(c.Search))

	out := View{StageKeys: keys, Rows: make([]*models.MasterListRow, 0, len(v.Rows))}
	for _, row := range v.Rows {
		// Field criteria naming an unselected stage column see it as null.
		projected := project(row, keys)
		if !matchesFields(projected, c.Fields) {
			continue
		}
		if search != "" && !matchesSearch(projected, search) {
			continue
		}
		if len(c.Stages) > 0 && !hasStageIn(projected, keys, c.Stages) {
			continue
		}
		if c.SelectsColumns() && !activeIn(projected, keys) {
			continue
		}
		out.Rows = append(out.Rows, projected)
	}
	return out
}

func project(row *models.MasterListRow, keys []models.StageKey) *models.MasterListRow {
	c := *row
	c.Stages = make(map[models.StageKey]models.Stage, len(keys))
	for _, k := range keys {
		if s := row.Stage(k); !s.IsNull() {
			c.Stages[k] = s
		}
	}
	return &c
}

func matchesFields(row *models.MasterListRow, fields map[models.Field][]string) bool {
	for f, wanted := range fields {
		if len(wanted) == 0 {
			continue
		}
		value := row.Value(f)
		matched := false
		for _, w := range wanted {
			if valuesEqual(f, value, w) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	return true
}

func valuesEqual(f models.Field, value, wanted string) bool {
	wanted = strings.TrimSpace(wanted)
	switch f {
	case models.FieldCritical, models.FieldExcluded:
		return strings.EqualFold(value, boolLabel(wanted))
	case models.FieldZone:
		return strings.EqualFold(strings.ReplaceAll(value, " ", ""), strings.ReplaceAll(wanted, " ", ""))
	}
	return strings.EqualFold(value, wanted)
}

func boolLabel(s string) string {
	switch strings.ToLower(s) {
	case "true", "yes", "y", "1":
		return "Yes"
	case "false", "no", "n", "0":
		return "No"
	}
	return s
}

var searchFields = []models.Field{
	models.FieldAssignmentID,
	models.FieldMnemonic,
	models.FieldSubstationName,
	models.FieldFeederID,
	models.FieldBreakerID,
	models.FieldLocalTripID,
}

func matchesSearch(row *models.MasterListRow, needle string) bool {
	for _, f := range searchFields {
		if strings.Contains(strings.ToLower(row.Value(f)), needle) {
			return true
		}
	}
	return false
}

func hasStageIn(row *models.MasterListRow, keys []models.StageKey, stages []models.Stage) bool {
	for _, k := range keys {
		s := row.Stage(k)
		if s.IsNull() {
			continue
		}
		for _, want := range stages {
			if s == want {
				return true
			}
		}
	}
	return false
}

func activeIn(row *models.MasterListRow, keys []models.StageKey) bool {
	for _, k := range keys {
		if !row.Stage(k).IsNull() {
			return true
		}
	}
	return false
}

func containsScheme(list []models.Scheme, s models.Scheme) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(strings.TrimSpace(v), s) {
			return true
		}
	}
	return false
}
