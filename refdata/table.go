package refdata

import (
	"strings"
	"unicode"

	"github.com/gridops/loadshed-review/models"
)

// Canonical column names
const (
	ColMnemonic       = "mnemonic"
	ColFeederID       = "feeder_id"
	ColPloadMW        = "pload_mw"
	ColQloadMvar      = "qload_mvar"
	ColZone           = "zone"
	ColAssignmentID   = "assignment_id"
	ColGroupTripID    = "group_trip_id"
	ColLocalTripID    = "local_trip_id"
	ColBreakerID      = "breaker_id"
	ColKV             = "kv"
	ColSubstationName = "substation_name"
	ColState          = "state"
	ColGMSubzone      = "gm_subzone"
	ColCoordinate     = "coordinate"
	ColCriticalSource = "critical_list_source"
	ColRemark         = "remark"
)

// columnAliases maps normalised header spellings seen in the source sheets to canonical names
var columnAliases = map[string]string{
	"mnemonic":             ColMnemonic,
	"substation_mnemonic":  ColMnemonic,
	"ss_mnemonic":          ColMnemonic,
	"feeder_id":            ColFeederID,
	"feeder":               ColFeederID,
	"feederid":             ColFeederID,
	"pload_mw":             ColPloadMW,
	"pload":                ColPloadMW,
	"p_mw":                 ColPloadMW,
	"active_power_mw":      ColPloadMW,
	"qload_mvar":           ColQloadMvar,
	"qload":                ColQloadMvar,
	"q_mvar":               ColQloadMvar,
	"reactive_power_mvar":  ColQloadMvar,
	"zone":                 ColZone,
	"raw_zone":             ColZone,
	"region":               ColZone,
	"assignment_id":        ColAssignmentID,
	"assignment":           ColAssignmentID,
	"group_trip_id":        ColGroupTripID,
	"group_trip":           ColGroupTripID,
	"local_trip_id":        ColLocalTripID,
	"local_trip":           ColLocalTripID,
	"breaker_id":           ColBreakerID,
	"breaker":              ColBreakerID,
	"cb_id":                ColBreakerID,
	"kv":                   ColKV,
	"voltage_kv":           ColKV,
	"voltage":              ColKV,
	"substation_name":      ColSubstationName,
	"substation":           ColSubstationName,
	"ss_name":              ColSubstationName,
	"state":                ColState,
	"gm_subzone":           ColGMSubzone,
	"subzone":              ColGMSubzone,
	"coordinate":           ColCoordinate,
	"coordinates":          ColCoordinate,
	"critical_list_source": ColCriticalSource,
	"list_source":          ColCriticalSource,
	"source":               ColCriticalSource,
	"remark":               ColRemark,
	"remarks":              ColRemark,
}

// Table is a normalised reference table. Every cell is a trimmed string; "" is null.
type Table struct {
	Kind      Kind
	Name      string
	Columns   []string
	Rows      [][]string
	HeaderRow int

	index map[string]int
}

// NewTable builds a table from already-normalised columns and rows
func NewTable(kind Kind, name string, columns []string, rows [][]string) *Table {
	t := &Table{Kind: kind, Name: name, Columns: columns, Rows: rows}
	t.reindex()
	return t
}

func (t *Table) reindex() {
	t.index = make(map[string]int, len(t.Columns))
	for i, c := range t.Columns {
		if c == "" {
			continue
		}
		if _, dup := t.index[c]; !dup {
			t.index[c] = i
		}
	}
}

// Len returns the number of data rows
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Has reports whether the table carries a column
func (t *Table) Has(column string) bool {
	_, ok := t.index[column]
	return ok
}

// Get returns a cell, "" when the column is absent or the cell is null
func (t *Table) Get(row int, column string) string {
	i, ok := t.index[column]
	if !ok || row < 0 || row >= len(t.Rows) || i >= len(t.Rows[row]) {
		return ""
	}
	return t.Rows[row][i]
}

// YearColumns returns the review-year columns in source order
func (t *Table) YearColumns() []string {
	var out []string
	for _, c := range t.Columns {
		if models.IsReviewYearLabel(c) {
			out = append(out, c)
		}
	}
	return out
}

// NormalizeHeader maps a raw header cell to its column name. Review-year headers
// become canonical year labels ("2024.0" -> "2024"); other headers are lower-cased,
// non-alphanumeric runs collapse to "_", and known aliases resolve to canonical names.
func NormalizeHeader(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if ry, ok := models.ParseReviewYear(trimmed); ok {
		return ry.String()
	}

	var b strings.Builder
	pendingSep := false
	for _, r := range strings.ToLower(trimmed) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(r)
			continue
		}
		pendingSep = true
	}
	name := b.String()
	if canonical, ok := columnAliases[name]; ok {
		return canonical
	}
	return name
}

// NormalizeCell trims a cell, turns null sentinels into "" and strips the ".0"
// that spreadsheet readers append to integral identifiers.
func NormalizeCell(raw string) string {
	s := strings.TrimSpace(raw)
	switch strings.ToLower(s) {
	case "nan", "#na", "#n/a":
		return ""
	}
	return trimIntegralFloat(s)
}

func trimIntegralFloat(s string) string {
	whole, frac, ok := strings.Cut(s, ".")
	if !ok || whole == "" || frac == "" {
		return s
	}
	digits := strings.TrimPrefix(whole, "-")
	if digits == "" {
		return s
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return s
		}
	}
	for _, r := range frac {
		if r != '0' {
			return s
		}
	}
	return whole
}
