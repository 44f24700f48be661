package simulation

import (
	"strings"
	"testing"

	"github.com/gridops/loadshed-review/masterlist"
	"github.com/gridops/loadshed-review/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	ufls2024   = models.StageKey{Scheme: models.SchemeUFLS, Year: "2024"}
	ufls2025   = models.StageKey{Scheme: models.SchemeUFLS, Year: "2025"}
	ufls2025v1 = models.StageKey{Scheme: models.SchemeUFLS, Year: "2025v1"}
	uvls2026   = models.StageKey{Scheme: models.SchemeUVLS, Year: "2026"}
	emls2024   = models.StageKey{Scheme: models.SchemeEMLS, Year: "2024"}
)

func simRow(id string, trips ...string) *models.SimulationRow {
	return &models.SimulationRow{
		AssignmentID: id,
		LocalTripIDs: trips,
		PloadMW:      decimal.NewFromInt(1),
		Stages:       map[models.StageKey]models.Stage{},
		Flag:         models.FlagOK,
	}
}

func byID(rows []*models.SimulationRow) map[string]*models.SimulationRow {
	out := make(map[string]*models.SimulationRow, len(rows))
	for _, r := range rows {
		out[r.AssignmentID] = r
	}
	return out
}

func TestEvaluateLocalTripConflict(t *testing.T) {
	a := simRow("A", "T1")
	a.SimStage = "stage_5"
	b := simRow("B", "T1")
	b.SimStage = "stage_6"
	rows := []*models.SimulationRow{a, b}

	Evaluate(rows, uvls2026, nil, nil)

	assert.Equal(t, models.FlagWarning, a.Flag)
	assert.Contains(t, a.ConflictAssignment, "Local Trip Conflict")
	assert.Contains(t, a.ConflictAssignment, "B")
	assert.Equal(t, "Warning: [Local Trip Conflict] - T1 shared with B", a.ConflictAssignment)

	assert.Equal(t, models.FlagWarning, b.Flag)
	assert.Equal(t, "Warning: [Local Trip Conflict] - T1 shared with A", b.ConflictAssignment)
}

func TestEvaluateLocalTripConflictIsSymmetric(t *testing.T) {
	rows := []*models.SimulationRow{
		simRow("A", "T1", "T2"),
		simRow("B", "T1"),
		simRow("C", "T2", "T3"),
		simRow("D", "T3"),
		simRow("E", "T9"),
	}
	for _, r := range rows {
		r.SimStage = "stage_8"
	}
	rows[3].SimStage = models.NoStage

	Evaluate(rows, uvls2026, nil, nil)

	flagged := byID(rows)
	for _, r := range rows {
		for _, trip := range r.LocalTripIDs {
			token := "[Local Trip Conflict] - " + trip + " shared with "
			idx := strings.Index(r.ConflictAssignment, token)
			if idx < 0 {
				continue
			}
			rest := r.ConflictAssignment[idx+len(token):]
			other := strings.SplitN(strings.SplitN(rest, " & ", 2)[0], ", ", 2)[0]
			peer := flagged[other]
			require.NotNil(t, peer, other)
			assert.Contains(t, peer.ConflictAssignment, token+r.AssignmentID)
		}
	}

	assert.Equal(t, models.FlagWarning, flagged["A"].Flag)
	assert.Equal(t, models.FlagWarning, flagged["B"].Flag)
	assert.Equal(t, models.FlagWarning, flagged["C"].Flag)
	assert.Equal(t, models.FlagOK, flagged["D"].Flag, "rows without a simulated stage never conflict")
	assert.Equal(t, models.FlagOK, flagged["E"].Flag)
	assert.NotContains(t, flagged["C"].ConflictAssignment, "T3")
}

func TestEvaluateOverlap(t *testing.T) {
	keys := []models.StageKey{ufls2024, ufls2025, ufls2025v1, emls2024}

	tests := []struct {
		name     string
		stages   map[models.StageKey]models.Stage
		sim      models.Stage
		wantFlag models.Flag
		wantMsg  string
	}{
		{
			name:     "latest UFLS column in non-overlap stage",
			stages:   map[models.StageKey]models.Stage{ufls2025v1: "stage_2"},
			sim:      "stage_4",
			wantFlag: models.FlagWarning,
			wantMsg:  "Warning: [Overlap] - UFLS_2025v1 (stage_2)",
		},
		{
			name:     "older UFLS column is ignored",
			stages:   map[models.StageKey]models.Stage{ufls2024: "stage_1"},
			sim:      "stage_4",
			wantFlag: models.FlagOK,
		},
		{
			name:     "overlapping stage outside the non-overlap set",
			stages:   map[models.StageKey]models.Stage{ufls2025v1: "stage_6"},
			sim:      "stage_4",
			wantFlag: models.FlagOK,
		},
		{
			name:     "two schemes overlap",
			stages:   map[models.StageKey]models.Stage{ufls2025v1: "stage_3", emls2024: "stage_1"},
			sim:      "stage_9",
			wantFlag: models.FlagWarning,
			wantMsg:  "Warning: [Overlap] - UFLS_2025v1 (stage_3) & [Overlap] - EMLS_2024 (stage_1)",
		},
		{
			name:     "no simulated stage",
			stages:   map[models.StageKey]models.Stage{ufls2025v1: "stage_2"},
			sim:      models.NoStage,
			wantFlag: models.FlagOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := simRow("X")
			r.Stages = tt.stages
			r.SimStage = tt.sim

			Evaluate([]*models.SimulationRow{r}, uvls2026, keys, nil)

			assert.Equal(t, tt.wantFlag, r.Flag)
			assert.Equal(t, tt.wantMsg, r.ConflictAssignment)
		})
	}
}

func TestEvaluateCritical(t *testing.T) {
	tests := []struct {
		name     string
		sim      models.Stage
		wantFlag models.Flag
		wantMsg  string
	}{
		{name: "critical stage", sim: "stage_2", wantFlag: models.FlagWarning, wantMsg: "Warning: [Critical Sub]"},
		{name: "late critical stage", sim: "stage_12", wantFlag: models.FlagWarning, wantMsg: "Warning: [Critical Sub]"},
		{name: "non-critical stage", sim: "stage_7", wantFlag: models.FlagAlert, wantMsg: "Alert: [Critical Sub]"},
		{name: "outside both sets", sim: "stage_14", wantFlag: models.FlagOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := simRow("X")
			r.Critical = true
			r.SimStage = tt.sim

			Evaluate([]*models.SimulationRow{r}, ufls2025, nil, nil)

			assert.Equal(t, tt.wantFlag, r.Flag)
			assert.Equal(t, tt.wantMsg, r.ConflictAssignment)
		})
	}
}

func TestEvaluateCombinedMessage(t *testing.T) {
	r := simRow("X")
	r.Critical = true
	r.Stages = map[models.StageKey]models.Stage{ufls2024: "stage_2"}
	r.SimStage = "stage_1"

	Evaluate([]*models.SimulationRow{r}, models.StageKey{Scheme: models.SchemeUVLS, Year: "2025"}, []models.StageKey{ufls2024}, nil)

	assert.Equal(t, models.FlagWarning, r.Flag)
	assert.Equal(t, "Warning: [Overlap] - UFLS_2024 (stage_2) & [Critical Sub]", r.ConflictAssignment)
}

func TestEvaluateWarningOutranksAlert(t *testing.T) {
	a := simRow("A", "T1")
	a.Critical = true
	a.SimStage = "stage_5"
	b := simRow("B", "T1")
	b.SimStage = "stage_5"

	Evaluate([]*models.SimulationRow{a, b}, ufls2025, nil, nil)

	assert.Equal(t, models.FlagWarning, a.Flag)
	assert.Equal(t, "Warning: [Critical Sub] & [Local Trip Conflict] - T1 shared with B", a.ConflictAssignment)
}

func TestEvaluateCustomPolicy(t *testing.T) {
	policies := Policies{models.SchemeEMLS: {Critical: []int{1}, NonCritical: []int{2}, NonOverlap: []int{1}}}

	r := simRow("X")
	r.Critical = true
	r.SimStage = "stage_2"
	Evaluate([]*models.SimulationRow{r}, emls2024, nil, policies)
	assert.Equal(t, models.FlagAlert, r.Flag)

	assert.Equal(t, DefaultPolicy(), policies.For(models.SchemeUFLS))
}

func TestEvaluateOverlapFollowsExistingSchemePolicy(t *testing.T) {
	keys := []models.StageKey{emls2024}

	r := simRow("X")
	r.Stages = map[models.StageKey]models.Stage{emls2024: "stage_2"}
	r.SimStage = "stage_5"
	Evaluate([]*models.SimulationRow{r}, uvls2026, keys, nil)
	assert.Equal(t, models.FlagWarning, r.Flag)
	assert.Equal(t, "Warning: [Overlap] - EMLS_2024 (stage_2)", r.ConflictAssignment)

	r = simRow("X")
	r.Stages = map[models.StageKey]models.Stage{emls2024: "stage_2"}
	r.SimStage = "stage_5"
	policies := Policies{models.SchemeEMLS: {Critical: DefaultPolicy().Critical, NonCritical: DefaultPolicy().NonCritical}}
	Evaluate([]*models.SimulationRow{r}, uvls2026, keys, policies)
	assert.Equal(t, models.FlagOK, r.Flag)
	assert.Empty(t, r.ConflictAssignment)
}

func sampleMasterList() *masterlist.MasterList {
	return &masterlist.MasterList{
		StageKeys: []models.StageKey{ufls2024, ufls2025},
		Rows: []*models.MasterListRow{
			{AssignmentID: "A", Mnemonic: "KLGB", FeederID: "F1", LocalTripID: "T1", Zone: models.ZoneNorth,
				PloadMW: decimal.NewFromInt(4), Stages: map[models.StageKey]models.Stage{ufls2025: "stage_4"}},
			{AssignmentID: "A", Mnemonic: "KLGB", FeederID: "F2", LocalTripID: "T2",
				PloadMW: decimal.NewFromInt(6), Stages: map[models.StageKey]models.Stage{ufls2025: "stage_4"}},
			{AssignmentID: "B", Mnemonic: "PNGR", FeederID: "F1", LocalTripID: "T1", Critical: true,
				PloadMW: decimal.NewFromInt(3), Stages: map[models.StageKey]models.Stage{ufls2024: "stage_1"}},
		},
	}
}

func TestBuildRows(t *testing.T) {
	rows := BuildRows(sampleMasterList().Rows)
	require.Len(t, rows, 2)

	a := rows[0]
	assert.Equal(t, "A", a.AssignmentID)
	assert.Equal(t, []string{"KLGB"}, a.Mnemonics)
	assert.Equal(t, []string{"T1", "T2"}, a.LocalTripIDs)
	assert.True(t, decimal.NewFromInt(10).Equal(a.PloadMW))
	assert.Equal(t, models.ZoneNorth, a.Zone)
	assert.True(t, rows[1].Critical)
}

func TestSimulatorLifecycle(t *testing.T) {
	sim := NewSimulator(sampleMasterList(), ufls2025, nil)

	rows := byID(sim.Rows())
	assert.Equal(t, models.Stage("stage_4"), rows["A"].SimStage, "seeded from the target column")
	assert.True(t, rows["B"].SimStage.IsNull())
	assert.Equal(t, models.FlagOK, rows["A"].Flag)

	changes, err := sim.Apply([]models.SimulationEdit{
		{AssignmentID: "B", SimStage: "Stage 2"},
		{AssignmentID: "A", SimStage: "stage_4"},
	})
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Equal(t, Change{AssignmentID: "B", From: models.NoStage, To: "stage_2"}, changes[0])

	rows = byID(sim.Rows())
	assert.Equal(t, models.FlagWarning, rows["A"].Flag)
	assert.Contains(t, rows["A"].ConflictAssignment, "T1 shared with B")
	assert.Equal(t, models.FlagWarning, rows["B"].Flag)
	assert.Contains(t, rows["B"].ConflictAssignment, "[Critical Sub]")

	summary := sim.Summary()
	assert.Equal(t, 2, summary.Simulated)
	assert.Equal(t, 2, summary.Warnings)
	assert.True(t, decimal.NewFromInt(13).Equal(summary.SimulatedMW))

	sim.Reset()
	rows = byID(sim.Rows())
	assert.True(t, rows["B"].SimStage.IsNull())
	assert.Equal(t, models.FlagOK, rows["A"].Flag)

	sim.Clear()
	for _, r := range sim.Rows() {
		assert.True(t, r.SimStage.IsNull())
		assert.Equal(t, models.FlagOK, r.Flag)
	}
}

func TestSimulatorRejectsUnknownAssignments(t *testing.T) {
	sim := NewSimulator(sampleMasterList(), ufls2025, nil)

	_, err := sim.Apply([]models.SimulationEdit{
		{AssignmentID: "B", SimStage: "stage_2"},
		{AssignmentID: "ZZZ", SimStage: "stage_2"},
	})
	require.ErrorIs(t, err, ErrUnknownAssignment)
	assert.Contains(t, err.Error(), "ZZZ")

	rows := byID(sim.Rows())
	assert.True(t, rows["B"].SimStage.IsNull(), "a rejected batch changes nothing")
}

func TestSimulatorRowsAreCopies(t *testing.T) {
	sim := NewSimulator(sampleMasterList(), ufls2025, nil)
	rows := sim.Rows()
	rows[0].SimStage = "stage_9"

	assert.Equal(t, models.Stage("stage_4"), sim.Rows()[0].SimStage)
}

func TestSimulatorNoChanges(t *testing.T) {
	sim := NewSimulator(sampleMasterList(), ufls2025, nil)
	changes, err := sim.Apply([]models.SimulationEdit{{AssignmentID: "A", SimStage: "stage_4"}})
	require.NoError(t, err)
	assert.Empty(t, changes)
}
