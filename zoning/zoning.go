// Package zoning maps raw geographic labels onto the four operating regions
package zoning

import (
	"strings"
	"sync"

	"github.com/gridops/loadshed-review/models"
)

// defaultAliases normalises historical naming variants to the state names used in the zone table
var defaultAliases = map[string]string{
	"LANGKAWI":        "KEDAH",
	"WPKL":            "KL",
	"WP KL":           "KL",
	"KUALA LUMPUR":    "KL",
	"WP KUALA LUMPUR": "KL",
	"WP PUTRAJAYA":    "PUTRAJAYA",
	"TGANU":           "TERENGGANU",
	"TRG":             "TERENGGANU",
	"PENANG":          "PULAU PINANG",
	"P PINANG":        "PULAU PINANG",
	"N SEMBILAN":      "NEGERI SEMBILAN",
	"NEG SEMBILAN":    "NEGERI SEMBILAN",
	"MALACCA":         "MELAKA",
	"KELATE":          "KELANTAN",
	"SEL":             "SELANGOR",
}

var defaultZones = map[string]models.Zone{
	"PERLIS":          models.ZoneNorth,
	"KEDAH":           models.ZoneNorth,
	"PULAU PINANG":    models.ZoneNorth,
	"PERAK":           models.ZoneNorth,
	"NORTH":           models.ZoneNorth,
	"SELANGOR":        models.ZoneKlangValley,
	"KL":              models.ZoneKlangValley,
	"PUTRAJAYA":       models.ZoneKlangValley,
	"KLANG VALLEY":    models.ZoneKlangValley,
	"KLANGVALLEY":     models.ZoneKlangValley,
	"NEGERI SEMBILAN": models.ZoneSouth,
	"MELAKA":          models.ZoneSouth,
	"JOHOR":           models.ZoneSouth,
	"SOUTH":           models.ZoneSouth,
	"PAHANG":          models.ZoneEast,
	"TERENGGANU":      models.ZoneEast,
	"KELANTAN":        models.ZoneEast,
	"EAST":            models.ZoneEast,
}

// defaultSubzones maps maintenance (gm) subzones to zones
var defaultSubzones = map[string]models.Zone{
	"KANGAR":           models.ZoneNorth,
	"ALOR SETAR":       models.ZoneNorth,
	"SUNGAI PETANI":    models.ZoneNorth,
	"BUTTERWORTH":      models.ZoneNorth,
	"SEBERANG PERAI":   models.ZoneNorth,
	"PULAU PINANG":     models.ZoneNorth,
	"IPOH":             models.ZoneNorth,
	"TAIPING":          models.ZoneNorth,
	"KUALA LUMPUR":     models.ZoneKlangValley,
	"PETALING":         models.ZoneKlangValley,
	"PETALING JAYA":    models.ZoneKlangValley,
	"SHAH ALAM":        models.ZoneKlangValley,
	"KLANG":            models.ZoneKlangValley,
	"GOMBAK":           models.ZoneKlangValley,
	"HULU LANGAT":      models.ZoneKlangValley,
	"PUTRAJAYA":        models.ZoneKlangValley,
	"SEREMBAN":         models.ZoneSouth,
	"MELAKA":           models.ZoneSouth,
	"JOHOR BAHRU":      models.ZoneSouth,
	"BATU PAHAT":       models.ZoneSouth,
	"MUAR":             models.ZoneSouth,
	"KLUANG":           models.ZoneSouth,
	"KUANTAN":          models.ZoneEast,
	"TEMERLOH":         models.ZoneEast,
	"KUALA TERENGGANU": models.ZoneEast,
	"KEMAMAN":          models.ZoneEast,
	"KOTA BHARU":       models.ZoneEast,
}

// Mapper holds the alias, zone and subzone lookup tables
type Mapper struct {
	aliases  map[string]string
	zones    map[string]models.Zone
	subzones map[string]models.Zone
}

// NewMapper creates a mapper seeded with the built-in tables
func NewMapper() *Mapper {
	m := &Mapper{
		aliases:  make(map[string]string, len(defaultAliases)),
		zones:    make(map[string]models.Zone, len(defaultZones)),
		subzones: make(map[string]models.Zone, len(defaultSubzones)),
	}
	for k, v := range defaultAliases {
		m.aliases[normalize(k)] = normalize(v)
	}
	for k, v := range defaultZones {
		m.zones[normalize(k)] = v
	}
	for k, v := range defaultSubzones {
		m.subzones[normalize(k)] = v
	}
	return m
}

// AddAlias registers a naming variant
func (m *Mapper) AddAlias(variant, canonical string) {
	m.aliases[normalize(variant)] = normalize(canonical)
}

// AddZone maps a state or sub-grid name to a zone
func (m *Mapper) AddZone(label string, zone models.Zone) {
	m.zones[normalize(label)] = zone
}

// AddSubzone maps a gm subzone to a zone
func (m *Mapper) AddSubzone(subzone string, zone models.Zone) {
	m.subzones[normalize(subzone)] = zone
}

// ClassifyZone resolves a raw geographic label. Unmapped labels yield ZoneNone.
func (m *Mapper) ClassifyZone(raw string) models.Zone {
	label := normalize(raw)
	if label == "" {
		return models.ZoneNone
	}
	if canonical, ok := m.aliases[label]; ok {
		label = canonical
	}
	return m.zones[label]
}

// ClassifySubzone resolves a gm subzone. Unmapped subzones yield ZoneNone.
func (m *Mapper) ClassifySubzone(gmSubzone string) models.Zone {
	label := normalize(gmSubzone)
	if label == "" {
		return models.ZoneNone
	}
	return m.subzones[label]
}

// ParseZone accepts a zone name in any casing or spacing ("klang valley")
func ParseZone(s string) (models.Zone, bool) {
	key := strings.ReplaceAll(normalize(s), " ", "")
	for _, z := range models.Zones {
		if strings.ToUpper(string(z)) == key {
			return z, true
		}
	}
	return models.ZoneNone, false
}

// normalize upper-cases and collapses punctuation and whitespace runs into single spaces
func normalize(s string) string {
	fields := strings.FieldsFunc(strings.ToUpper(s), func(r rune) bool {
		return r == ' ' || r == '.' || r == '-' || r == '_' || r == ',' || r == '/' || r == '\t'
	})
	return strings.Join(fields, " ")
}

var (
	defaultMapper     *Mapper
	defaultMapperOnce sync.Once
)

// Default returns the shared mapper with the built-in tables
func Default() *Mapper {
	defaultMapperOnce.Do(func() {
		defaultMapper = NewMapper()
	})
	return defaultMapper
}

// ClassifyZone resolves a raw label with the built-in tables
func ClassifyZone(raw string) models.Zone {
	return Default().ClassifyZone(raw)
}

// ClassifySubzone resolves a gm subzone with the built-in tables
func ClassifySubzone(gmSubzone string) models.Zone {
	return Default().ClassifySubzone(gmSubzone)
}
