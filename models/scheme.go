// Package models contains domain entities for load-shedding scheme review
package models

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Scheme identifies a load-shedding scheme
type Scheme string

const (
	SchemeUFLS Scheme = "UFLS" // under-frequency load shedding
	SchemeUVLS Scheme = "UVLS" // under-voltage load shedding
	SchemeEMLS Scheme = "EMLS" // emergency load shedding
)

// Schemes lists the whitelisted schemes in merge order
var Schemes = []Scheme{SchemeUFLS, SchemeUVLS, SchemeEMLS}

// ParseScheme validates a scheme name against the whitelist
func ParseScheme(s string) (Scheme, error) {
	candidate := Scheme(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range Schemes {
		if candidate == known {
			return known, nil
		}
	}
	return "", fmt.Errorf("unknown scheme %q", s)
}

func (s Scheme) order() int {
	for i, known := range Schemes {
		if s == known {
			return i
		}
	}
	return len(Schemes)
}

// Stage is a stage label such as "stage_3". The empty Stage means "not assigned".
type Stage string

// NoStage is the null stage value
const NoStage Stage = ""

// ParseStage normalises stage labels ("Stage 2", "STAGE_2", "stage2") to "stage_<n>".
// Labels that do not carry a stage number are kept verbatim.
func ParseStage(raw string) Stage {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return NoStage
	}
	if !strings.HasPrefix(s, "stage") {
		return Stage(strings.TrimSpace(raw))
	}
	rest := strings.TrimLeft(strings.TrimPrefix(s, "stage"), " _-")
	if n, err := strconv.Atoi(rest); err == nil && n >= 0 {
		return StageOf(n)
	}
	return Stage(strings.TrimSpace(raw))
}

// StageOf builds the canonical label for stage n
func StageOf(n int) Stage {
	return Stage("stage_" + strconv.Itoa(n))
}

// IsNull reports whether the stage is unassigned
func (s Stage) IsNull() bool {
	return s == NoStage
}

// Number returns the numeric part of a canonical stage label
func (s Stage) Number() (int, bool) {
	rest, ok := strings.CutPrefix(string(s), "stage_")
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(rest)
	if err != nil {
		return 0, false
	}
	return n, true
}

// ReviewYear is the parsed form of a review-year column label such as "2024" or "2025v1"
type ReviewYear struct {
	Year    int
	Variant int
}

// ParseReviewYear parses "2024", "2025v1" and "2025V2". Integral float renderings
// ("2024.0") produced by spreadsheet readers are accepted.
func ParseReviewYear(label string) (ReviewYear, bool) {
	s := strings.ToLower(strings.TrimSpace(label))
	s = strings.TrimSuffix(s, ".0")
	yearPart, variantPart, hasVariant := strings.Cut(s, "v")
	if len(yearPart) != 4 {
		return ReviewYear{}, false
	}
	year, err := strconv.Atoi(yearPart)
	if err != nil || year < 1900 {
		return ReviewYear{}, false
	}
	ry := ReviewYear{Year: year}
	if hasVariant {
		variant, err := strconv.Atoi(variantPart)
		if err != nil || variant < 0 {
			return ReviewYear{}, false
		}
		ry.Variant = variant
	}
	return ry, true
}

// String renders the canonical label: "2024", or "2025v1" for variants
func (y ReviewYear) String() string {
	if y.Variant > 0 {
		return strconv.Itoa(y.Year) + "v" + strconv.Itoa(y.Variant)
	}
	return strconv.Itoa(y.Year)
}

// Less orders review years by year, then variant
func (y ReviewYear) Less(other ReviewYear) bool {
	if y.Year != other.Year {
		return y.Year < other.Year
	}
	return y.Variant < other.Variant
}

// IsReviewYearLabel reports whether a column header names a review year
func IsReviewYearLabel(label string) bool {
	_, ok := ParseReviewYear(label)
	return ok
}

// StageKey addresses one stage column: the stage values of a scheme for one review year
type StageKey struct {
	Scheme Scheme
	Year   string
}

// String renders the column name used in views and exports, e.g. "UFLS_2024"
func (k StageKey) String() string {
	return string(k.Scheme) + "_" + k.Year
}

// MarshalText lets StageKey serve as a JSON object key
func (k StageKey) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *StageKey) UnmarshalText(text []byte) error {
	parsed, err := ParseStageKey(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// ParseStageKey parses a "{SCHEME}_{year}" column name
func ParseStageKey(s string) (StageKey, error) {
	schemePart, yearPart, ok := strings.Cut(strings.TrimSpace(s), "_")
	if !ok {
		return StageKey{}, fmt.Errorf("stage column %q must look like SCHEME_YEAR", s)
	}
	scheme, err := ParseScheme(schemePart)
	if err != nil {
		return StageKey{}, err
	}
	if !IsReviewYearLabel(yearPart) {
		return StageKey{}, fmt.Errorf("stage column %q has an invalid review year", s)
	}
	return StageKey{Scheme: scheme, Year: yearPart}, nil
}

// SortStageKeys orders keys by scheme merge order, then review year
func SortStageKeys(keys []StageKey) {
	sort.SliceStable(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.Scheme != b.Scheme {
			return a.Scheme.order() < b.Scheme.order()
		}
		ya, okA := ParseReviewYear(a.Year)
		yb, okB := ParseReviewYear(b.Year)
		if okA && okB && ya != yb {
			return ya.Less(yb)
		}
		return a.Year < b.Year
	})
}

// LatestKey returns the most recent column of a scheme. Version-suffixed labels are
// ordered as (year, variant) tuples, so "2025v1" is later than "2025".
func LatestKey(keys []StageKey, scheme Scheme) (StageKey, bool) {
	var (
		best   StageKey
		bestRY ReviewYear
		found  bool
	)
	for _, k := range keys {
		if k.Scheme != scheme {
			continue
		}
		ry, ok := ParseReviewYear(k.Year)
		if !ok {
			continue
		}
		if !found || bestRY.Less(ry) {
			best, bestRY, found = k, ry, true
		}
	}
	return best, found
}

// Zone is one of the four operating regions. The empty Zone means unmapped.
type Zone string

const (
	ZoneNone        Zone = ""
	ZoneNorth       Zone = "North"
	ZoneKlangValley Zone = "KlangValley"
	ZoneSouth       Zone = "South"
	ZoneEast        Zone = "East"
)

// Zones lists the regions in display order
var Zones = []Zone{ZoneNorth, ZoneKlangValley, ZoneSouth, ZoneEast}

// DPType classifies a delivery point by the voltage class embedded in its assignment id
type DPType string

const (
	DPTypeLPC            DPType = "LPC"
	DPTypeInterconnector DPType = "Interconnector"
	DPTypeLocalLoad      DPType = "Local_Load"
	DPTypePocket         DPType = "Pocket"
	DPTypeUnassigned     DPType = ""
)

// Flag is the severity of a simulated assignment
type Flag string

const (
	FlagOK      Flag = "OK"
	FlagAlert   Flag = "Alert"
	FlagWarning Flag = "Warning"
)

// Severity ranks flags so the most severe trigger wins
func (f Flag) Severity() int {
	switch f {
	case FlagWarning:
		return 2
	case FlagAlert:
		return 1
	default:
		return 0
	}
}
