// Package simulation runs what-if stage assignments and flags conflicts with existing schemes
package simulation

import (
	"github.com/gridops/loadshed-review/models"
)

// StagePolicy partitions the stage numbers of a scheme
type StagePolicy struct {
	// Critical stages must not shed critical load (Warning)
	Critical []int `yaml:"critical" json:"critical"`
	// NonCritical stages may shed critical load with an Alert
	NonCritical []int `yaml:"non_critical" json:"non_critical"`
	// NonOverlap stages of this scheme block a simulated assignment in another scheme
	NonOverlap []int `yaml:"non_overlap" json:"non_overlap"`
}

// DefaultPolicy is the UFLS staging convention
func DefaultPolicy() StagePolicy {
	return StagePolicy{
		Critical:    []int{1, 2, 3, 11, 12, 13},
		NonCritical: []int{4, 5, 6, 7, 8, 9, 10},
		NonOverlap:  []int{1, 2, 3},
	}
}

// Policies holds per-scheme stage policies; schemes without an entry use DefaultPolicy
type Policies map[models.Scheme]StagePolicy

// For returns the policy of a scheme
func (p Policies) For(scheme models.Scheme) StagePolicy {
	if policy, ok := p[scheme]; ok {
		return policy
	}
	return DefaultPolicy()
}

func inSet(stage models.Stage, set []int) bool {
	n, ok := stage.Number()
	if !ok {
		return false
	}
	for _, v := range set {
		if v == n {
			return true
		}
	}
	return false
}
