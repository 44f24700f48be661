package simulation

import (
	"fmt"
	"sort"
	"strings"

	"github.com/gridops/loadshed-review/models"
	"github.com/shopspring/decimal"
)

// Message tags
const (
	TagOverlap           = "[Overlap]"
	TagCriticalSub       = "[Critical Sub]"
	TagLocalTripConflict = "[Local Trip Conflict]"
)

// BuildRows collapses master-list rows into one simulation row per assignment, in
// first-appearance order. Descriptive values keep their first non-null occurrence.
func BuildRows(rows []*models.MasterListRow) []*models.SimulationRow {
	var out []*models.SimulationRow
	byID := make(map[string]*models.SimulationRow)

	for _, r := range rows {
		sr, ok := byID[r.AssignmentID]
		if !ok {
			sr = &models.SimulationRow{
				AssignmentID: r.AssignmentID,
				DPType:       r.DPType,
				PloadMW:      decimal.Zero,
				Stages:       make(map[models.StageKey]models.Stage),
				Flag:         models.FlagOK,
			}
			byID[r.AssignmentID] = sr
			out = append(out, sr)
		}
		sr.Mnemonics = appendUnique(sr.Mnemonics, r.Mnemonic)
		sr.SubstationNames = appendUnique(sr.SubstationNames, r.SubstationName)
		sr.LocalTripIDs = appendUnique(sr.LocalTripIDs, r.LocalTripID)
		if sr.Zone == models.ZoneNone {
			sr.Zone = r.Zone
		}
		if sr.Subzone == "" {
			sr.Subzone = r.Subzone
		}
		if sr.KV == "" {
			sr.KV = r.KV
		}
		sr.PloadMW = sr.PloadMW.Add(r.PloadMW)
		sr.Critical = sr.Critical || r.Critical
		sr.Excluded = sr.Excluded || r.Excluded
		for k, v := range r.Stages {
			if _, exists := sr.Stages[k]; !exists && !v.IsNull() {
				sr.Stages[k] = v
			}
		}
	}
	return out
}

func appendUnique(list []string, v string) []string {
	if v == "" {
		return list
	}
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}

// Evaluate recomputes the flag and message of every row from the complete current state.
// keys are the existing stage columns; target is the column being simulated.
func Evaluate(rows []*models.SimulationRow, target models.StageKey, keys []models.StageKey, policies Policies) {
	overlapKeys := latestOtherSchemeKeys(keys, target.Scheme)
	targetPolicy := policies.For(target.Scheme)
	conflicts := localTripConflicts(rows)

	for _, r := range rows {
		r.Flag = models.FlagOK
		r.ConflictAssignment = ""
		if r.SimStage.IsNull() {
			continue
		}

		flag := models.FlagOK
		var parts []string
		raise := func(f models.Flag, part string) {
			if f.Severity() > flag.Severity() {
				flag = f
			}
			parts = append(parts, part)
		}

		for _, k := range overlapKeys {
			existing := r.Stages[k]
			if inSet(existing, policies.For(k.Scheme).NonOverlap) {
				raise(models.FlagWarning, fmt.Sprintf("%s - %s (%s)", TagOverlap, k, existing))
			}
		}

		if r.Critical {
			switch {
			case inSet(r.SimStage, targetPolicy.Critical):
				raise(models.FlagWarning, TagCriticalSub)
			case inSet(r.SimStage, targetPolicy.NonCritical):
				raise(models.FlagAlert, TagCriticalSub)
			}
		}

		for _, trip := range r.LocalTripIDs {
			holders, ok := conflicts[trip]
			if !ok {
				continue
			}
			others := make([]string, 0, len(holders)-1)
			for _, id := range holders {
				if id != r.AssignmentID {
					others = append(others, id)
				}
			}
			raise(models.FlagWarning, fmt.Sprintf("%s - %s shared with %s", TagLocalTripConflict, trip, strings.Join(others, ", ")))
		}

		if flag == models.FlagOK {
			continue
		}
		r.Flag = flag
		r.ConflictAssignment = string(flag) + ": " + strings.Join(parts, " & ")
	}
}

// latestOtherSchemeKeys returns the most recent column of every scheme other than target
func latestOtherSchemeKeys(keys []models.StageKey, target models.Scheme) []models.StageKey {
	var out []models.StageKey
	for _, scheme := range models.Schemes {
		if scheme == target {
			continue
		}
		if k, ok := models.LatestKey(keys, scheme); ok {
			out = append(out, k)
		}
	}
	return out
}

// localTripConflicts maps every local trip id claimed by more than one simulated
// assignment to the sorted ids of its claimants
func localTripConflicts(rows []*models.SimulationRow) map[string][]string {
	claims := make(map[string]map[string]struct{})
	for _, r := range rows {
		if r.SimStage.IsNull() {
			continue
		}
		for _, trip := range r.LocalTripIDs {
			if claims[trip] == nil {
				claims[trip] = make(map[string]struct{})
			}
			claims[trip][r.AssignmentID] = struct{}{}
		}
	}

	out := make(map[string][]string)
	for trip, holders := range claims {
		if len(holders) < 2 {
			continue
		}
		ids := make([]string, 0, len(holders))
		for id := range holders {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		out[trip] = ids
	}
	return out
}
