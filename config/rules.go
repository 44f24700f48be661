package config

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/gridops/loadshed-review/models"
	"github.com/gridops/loadshed-review/simulation"
	"github.com/gridops/loadshed-review/zoning"
	"gopkg.in/yaml.v3"
)

// Rules extends the built-in zone tables and stage policies.
//
// Example:
//
//	zone_aliases:
//	  P. PINANG: PULAU PINANG
//	zones:
//	  PERLIS UTARA: North
//	subzones:
//	  GM SEREMBAN: KlangValley
//	stage_policies:
//	  UVLS:
//	    critical: [1, 2]
//	    non_critical: [3, 4, 5, 6]
//	    non_overlap: [1]
type Rules struct {
	ZoneAliases   map[string]string                 `yaml:"zone_aliases"`
	Zones         map[string]string                 `yaml:"zones"`
	Subzones      map[string]string                 `yaml:"subzones"`
	StagePolicies map[string]simulation.StagePolicy `yaml:"stage_policies"`
}

// LoadRules reads a rules file. An empty path yields empty rules.
func LoadRules(path string) (*Rules, error) {
	if strings.TrimSpace(path) == "" {
		return &Rules{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file: %w", err)
	}
	return ParseRules(data)
}

// ParseRules decodes and validates rules YAML
func ParseRules(data []byte) (*Rules, error) {
	var r Rules
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to parse rules file: %w", err)
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return &r, nil
}

// Validate checks zone names, scheme names and stage numbers
func (r *Rules) Validate() error {
	var errors []string

	for _, label := range sortedKeys(r.Zones) {
		if _, ok := zoning.ParseZone(r.Zones[label]); !ok {
			errors = append(errors, fmt.Sprintf("zones.%s: unknown zone %q", label, r.Zones[label]))
		}
	}
	for _, label := range sortedKeys(r.Subzones) {
		if _, ok := zoning.ParseZone(r.Subzones[label]); !ok {
			errors = append(errors, fmt.Sprintf("subzones.%s: unknown zone %q", label, r.Subzones[label]))
		}
	}
	for _, variant := range sortedKeys(r.ZoneAliases) {
		if strings.TrimSpace(r.ZoneAliases[variant]) == "" {
			errors = append(errors, fmt.Sprintf("zone_aliases.%s: canonical name is empty", variant))
		}
	}

	names := make([]string, 0, len(r.StagePolicies))
	for name := range r.StagePolicies {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if _, err := models.ParseScheme(name); err != nil {
			errors = append(errors, fmt.Sprintf("stage_policies.%s: %v", name, err))
			continue
		}
		p := r.StagePolicies[name]
		for _, set := range [][]int{p.Critical, p.NonCritical, p.NonOverlap} {
			for _, n := range set {
				if n <= 0 {
					errors = append(errors, fmt.Sprintf("stage_policies.%s: stage %d must be positive", name, n))
				}
			}
		}
		for _, n := range p.Critical {
			for _, m := range p.NonCritical {
				if n == m {
					errors = append(errors, fmt.Sprintf("stage_policies.%s: stage %d is both critical and non-critical", name, n))
				}
			}
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("rules validation failed: %s", strings.Join(errors, "; "))
	}
	return nil
}

// Mapper returns a zone mapper seeded with the built-in tables and extended by the rules
func (r *Rules) Mapper() *zoning.Mapper {
	m := zoning.NewMapper()
	for variant, canonical := range r.ZoneAliases {
		m.AddAlias(variant, canonical)
	}
	for label, name := range r.Zones {
		if zone, ok := zoning.ParseZone(name); ok {
			m.AddZone(label, zone)
		}
	}
	for label, name := range r.Subzones {
		if zone, ok := zoning.ParseZone(name); ok {
			m.AddSubzone(label, zone)
		}
	}
	return m
}

// Policies returns the per-scheme stage policies; schemes not configured use the default
func (r *Rules) Policies() simulation.Policies {
	out := make(simulation.Policies, len(r.StagePolicies))
	for name, p := range r.StagePolicies {
		if scheme, err := models.ParseScheme(name); err == nil {
			out[scheme] = p
		}
	}
	return out
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
