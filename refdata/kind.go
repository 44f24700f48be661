// Package refdata loads and normalises the reference tables that feed the master list
package refdata

import (
	"fmt"
	"strings"

	"github.com/gridops/loadshed-review/models"
)

// Kind is the logical name of a reference table
type Kind string

const (
	KindLoadProfile    Kind = "load_profile"
	KindUFLSAssignment Kind = "ufls_assignment"
	KindUVLSAssignment Kind = "uvls_assignment"
	KindEMLSAssignment Kind = "emls_assignment"
	KindRelayIncomer   Kind = "relay_location_incomer"
	KindRelayPocket    Kind = "relay_location_pocket"
	KindSubstations    Kind = "substation_masterlist"
	KindCriticalLoad   Kind = "critical_load_flaglist"
	KindExcluded       Kind = "dn_excluded_list"
)

// Kinds lists every accepted table kind
var Kinds = []Kind{
	KindLoadProfile,
	KindUFLSAssignment,
	KindUVLSAssignment,
	KindEMLSAssignment,
	KindRelayIncomer,
	KindRelayPocket,
	KindSubstations,
	KindCriticalLoad,
	KindExcluded,
}

// ParseKind validates a table kind
func ParseKind(s string) (Kind, error) {
	candidate := Kind(strings.ToLower(strings.TrimSpace(s)))
	for _, k := range Kinds {
		if k == candidate {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown table kind %q", s)
}

// SchemeKind returns the assignment table kind of a scheme
func SchemeKind(scheme models.Scheme) Kind {
	return Kind(strings.ToLower(string(scheme)) + "_assignment")
}

// Scheme returns the scheme of an assignment table kind
func (k Kind) Scheme() (models.Scheme, bool) {
	prefix, ok := strings.CutSuffix(string(k), "_assignment")
	if !ok {
		return "", false
	}
	scheme, err := models.ParseScheme(prefix)
	if err != nil {
		return "", false
	}
	return scheme, true
}

// requirement is satisfied when any of its alternative columns is present
type requirement []string

var kindRequirements = map[Kind][]requirement{
	KindLoadProfile: {
		{ColMnemonic},
		{ColFeederID},
		{ColPloadMW},
	},
	KindRelayIncomer: {
		{ColMnemonic},
		{ColFeederID},
		{ColAssignmentID, ColGroupTripID, ColLocalTripID},
	},
	KindRelayPocket: {
		{ColMnemonic},
		{ColFeederID},
		{ColAssignmentID, ColGroupTripID, ColLocalTripID},
	},
	KindSubstations: {
		{ColMnemonic},
		{ColSubstationName},
		{ColState},
	},
	KindCriticalLoad: {
		{ColLocalTripID},
		{ColCriticalSource},
	},
	KindExcluded: {
		{ColLocalTripID},
	},
}

var schemeRequirements = []requirement{
	{ColAssignmentID, ColGroupTripID},
	{ColLocalTripID},
}

func (k Kind) requirements() []requirement {
	if _, ok := k.Scheme(); ok {
		return schemeRequirements
	}
	return kindRequirements[k]
}

// RequiredKeywords lists the header keywords a table of this kind must carry.
// Alternatives are joined with "|".
func (k Kind) RequiredKeywords() []string {
	reqs := k.requirements()
	out := make([]string, 0, len(reqs))
	for _, r := range reqs {
		out = append(out, strings.Join(r, "|"))
	}
	return out
}
