package masterlist

import (
	"testing"

	"github.com/gridops/loadshed-review/models"
	"github.com/gridops/loadshed-review/refdata"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	ufls2024 = models.StageKey{Scheme: models.SchemeUFLS, Year: "2024"}
	ufls2025 = models.StageKey{Scheme: models.SchemeUFLS, Year: "2025"}
	uvls2025 = models.StageKey{Scheme: models.SchemeUVLS, Year: "2025"}
)

func mw(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func rowsByID(ml *MasterList) map[string][]*models.MasterListRow {
	out := make(map[string][]*models.MasterListRow)
	for _, r := range ml.Rows {
		out[r.AssignmentID] = append(out[r.AssignmentID], r)
	}
	return out
}

func TestClassifyDPType(t *testing.T) {
	tests := []struct {
		name string
		id   string
		want models.DPType
	}{
		{name: "132kV", id: "KLGB-132-01", want: models.DPTypeLPC},
		{name: "275kV", id: "PGTJ275", want: models.DPTypeLPC},
		{name: "230kV", id: "IC-230-A", want: models.DPTypeInterconnector},
		{name: "11kV", id: "SS-11-F3", want: models.DPTypeLocalLoad},
		{name: "22kV", id: "SS22", want: models.DPTypeLocalLoad},
		{name: "33kV", id: "SS-33", want: models.DPTypeLocalLoad},
		{name: "132 beats 11", id: "X11-132", want: models.DPTypeLPC},
		{name: "230 beats 33", id: "230-33", want: models.DPTypeInterconnector},
		{name: "275 beats 230", id: "230/275", want: models.DPTypeLPC},
		{name: "missing sentinel", id: "na", want: models.DPTypeUnassigned},
		{name: "pocket", id: "POCKET-A", want: models.DPTypePocket},
		{name: "na inside id is pocket", id: "NANA", want: models.DPTypePocket},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyDPType(tt.id)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, ClassifyDPType(tt.id))
		})
	}
}

func TestBuildRequiresInputs(t *testing.T) {
	tests := []struct {
		name string
		in   Inputs
	}{
		{name: "nothing", in: Inputs{}},
		{
			name: "no load profile",
			in: Inputs{Schemes: map[models.Scheme][]models.DeliveryPointAssignment{
				models.SchemeUFLS: {{AssignmentID: "ASG1"}},
			}},
		},
		{
			name: "no scheme table",
			in: Inputs{LoadProfile: []models.LoadProfileRecord{
				{Mnemonic: "KLGB", FeederID: "F1", PloadMW: mw("10")},
			}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ml := Build(tt.in)
			require.NotNil(t, ml)
			assert.True(t, ml.Empty())
			assert.Zero(t, ml.AssignmentCount())
		})
	}
}

func TestBuildSingleAssignment(t *testing.T) {
	in := Inputs{
		Schemes: map[models.Scheme][]models.DeliveryPointAssignment{
			models.SchemeUFLS: {{
				Scheme:       models.SchemeUFLS,
				AssignmentID: "ASG1",
				LocalTripID:  "T1",
				Mnemonic:     "KLGB",
				FeederID:     "F1",
				Stages:       map[string]models.Stage{"2024": "stage_1", "2025": "stage_2"},
			}},
		},
		LoadProfile: []models.LoadProfileRecord{{Mnemonic: "KLGB", FeederID: "F1", PloadMW: mw("10")}},
	}

	ml := Build(in)
	require.Len(t, ml.Rows, 1)
	row := ml.Rows[0]
	assert.Equal(t, "ASG1", row.AssignmentID)
	assert.True(t, mw("10").Equal(row.PloadMW))
	assert.Equal(t, models.Stage("stage_1"), row.Stage(ufls2024))
	assert.Equal(t, models.Stage("stage_2"), row.Stage(ufls2025))
	assert.Equal(t, []models.StageKey{ufls2024, ufls2025}, ml.StageKeys)
}

func TestBuildAssignmentIDFallback(t *testing.T) {
	in := Inputs{
		Schemes: map[models.Scheme][]models.DeliveryPointAssignment{
			models.SchemeUFLS: {
				{GroupTripID: "G-11", LocalTripID: "T1", Mnemonic: "A", FeederID: "F1"},
				{LocalTripID: "T2", Mnemonic: "B", FeederID: "F2"},
				{AssignmentID: "ASG3", GroupTripID: "G-3", Mnemonic: "C", FeederID: "F3"},
				{Mnemonic: "D", FeederID: "F4"},
			},
		},
		LoadProfile: []models.LoadProfileRecord{{Mnemonic: "A", FeederID: "F1", PloadMW: mw("1")}},
	}

	ml := Build(in)
	require.Len(t, ml.Rows, 3)
	for _, r := range ml.Rows {
		assert.NotEmpty(t, r.AssignmentID)
	}
	ids := rowsByID(ml)
	assert.Contains(t, ids, "G-11")
	assert.Contains(t, ids, "T2")
	assert.Contains(t, ids, "ASG3")
}

func TestBuildOuterJoinAcrossSchemes(t *testing.T) {
	in := Inputs{
		Schemes: map[models.Scheme][]models.DeliveryPointAssignment{
			models.SchemeUFLS: {
				{AssignmentID: "ASG1", Mnemonic: "KLGB", FeederID: "F1", Stages: map[string]models.Stage{"2025": "stage_1"}},
			},
			models.SchemeUVLS: {
				{AssignmentID: "ASG1", Mnemonic: "KLGB", FeederID: "F1", Stages: map[string]models.Stage{"2025": "stage_3"}},
				{AssignmentID: "ASG2", Mnemonic: "PNGR", FeederID: "F9", Stages: map[string]models.Stage{"2025": "stage_2"}},
			},
		},
		LoadProfile: []models.LoadProfileRecord{{Mnemonic: "KLGB", FeederID: "F1", PloadMW: mw("5")}},
	}

	ml := Build(in)
	ids := rowsByID(ml)
	require.Len(t, ids["ASG1"], 1)
	require.Len(t, ids["ASG2"], 1)

	asg1 := ids["ASG1"][0]
	assert.Equal(t, models.Stage("stage_1"), asg1.Stage(models.StageKey{Scheme: models.SchemeUFLS, Year: "2025"}))
	assert.Equal(t, models.Stage("stage_3"), asg1.Stage(uvls2025))

	asg2 := ids["ASG2"][0]
	assert.True(t, asg2.Stage(models.StageKey{Scheme: models.SchemeUFLS, Year: "2025"}).IsNull())
	assert.Equal(t, models.Stage("stage_2"), asg2.Stage(uvls2025))
	assert.True(t, asg2.PloadMW.IsZero())
}

func TestBuildRelayBackfillAndLoad(t *testing.T) {
	in := Inputs{
		Schemes: map[models.Scheme][]models.DeliveryPointAssignment{
			models.SchemeUFLS: {
				{AssignmentID: "POCKET-A", LocalTripID: "T1", Stages: map[string]models.Stage{"2024": "stage_5"}},
			},
		},
		Relays: []models.RelayLocation{
			{Variant: models.RelayPocket, Mnemonic: "KLGB", KV: "11", BreakerID: "CB1", FeederID: "F1", AssignmentID: "POCKET-A"},
			{Variant: models.RelayPocket, Mnemonic: "KLGB", KV: "11", BreakerID: "CB2", FeederID: "F2", AssignmentID: "POCKET-A"},
			{Variant: models.RelayIncomer, Mnemonic: "ORPH", FeederID: "F1", AssignmentID: "UNKNOWN"},
		},
		LoadProfile: []models.LoadProfileRecord{
			{Mnemonic: "KLGB", FeederID: "F1", PloadMW: mw("3.5")},
			{Mnemonic: "KLGB", FeederID: "F1", PloadMW: mw("1.5")},
			{Mnemonic: "KLGB", FeederID: "F2", PloadMW: mw("2")},
		},
	}

	ml := Build(in)
	require.Len(t, ml.Rows, 2)

	first := ml.Rows[0]
	assert.Equal(t, "KLGB", first.Mnemonic)
	assert.Equal(t, "F1", first.FeederID)
	assert.Equal(t, "CB1", first.BreakerID)
	assert.Equal(t, "11", first.KV)
	assert.Equal(t, "T1", first.LocalTripID)
	assert.True(t, mw("5").Equal(first.PloadMW))
	assert.Equal(t, models.DPTypePocket, first.DPType)

	second := ml.Rows[1]
	assert.Equal(t, "F2", second.FeederID)
	assert.True(t, mw("2").Equal(second.PloadMW))

	for _, r := range ml.Rows {
		assert.NotEqual(t, "UNKNOWN", r.AssignmentID)
	}
}

func TestBuildEnrichment(t *testing.T) {
	in := Inputs{
		Schemes: map[models.Scheme][]models.DeliveryPointAssignment{
			models.SchemeUFLS: {
				{AssignmentID: "A-11", LocalTripID: "T1", Mnemonic: "KLGB", FeederID: "F1"},
				{AssignmentID: "B-11", LocalTripID: "T2", Mnemonic: "KTN", FeederID: "F1"},
				{AssignmentID: "C-11", LocalTripID: "T3", Mnemonic: "JBRU", FeederID: "F1"},
				{AssignmentID: "D-11", LocalTripID: "T4", Mnemonic: "XXXX", FeederID: "F1"},
			},
		},
		LoadProfile: []models.LoadProfileRecord{
			{Mnemonic: "KLGB", FeederID: "F1", PloadMW: mw("1"), RawZone: "WPKL"},
			{Mnemonic: "KTN", FeederID: "F1", PloadMW: mw("1")},
			{Mnemonic: "JBRU", FeederID: "F1", PloadMW: mw("1")},
		},
		Substations: []models.SubstationMetadata{
			{Mnemonic: "KLGB", SubstationName: "Kelana Jaya", State: "JOHOR", GMSubzone: "Petaling"},
			{Mnemonic: "KTN", SubstationName: "Kuantan", State: "PAHANG"},
			{Mnemonic: "JBRU", SubstationName: "Johor Bahru", GMSubzone: "Johor Bahru"},
		},
		Critical: []models.CriticalLoadFlag{{LocalTripID: "T2", Source: "gso", Remark: "hospital"}},
		Excluded: []models.ExcludedDeliveryPoint{{LocalTripID: "T3", Remark: "exempt"}},
	}

	ids := rowsByID(Build(in))

	klgb := ids["A-11"][0]
	assert.Equal(t, models.ZoneKlangValley, klgb.Zone, "load profile zone label wins over state")
	assert.Equal(t, "Kelana Jaya", klgb.SubstationName)
	assert.Equal(t, "Petaling", klgb.Subzone)

	ktn := ids["B-11"][0]
	assert.Equal(t, models.ZoneEast, ktn.Zone)
	assert.True(t, ktn.Critical)
	assert.Equal(t, "gso", ktn.CriticalSource)
	assert.Equal(t, "hospital", ktn.CriticalRemark)

	jbru := ids["C-11"][0]
	assert.Equal(t, models.ZoneSouth, jbru.Zone, "subzone fallback")
	assert.True(t, jbru.Excluded)
	assert.False(t, jbru.Critical)

	unknown := ids["D-11"][0]
	assert.Equal(t, models.ZoneNone, unknown.Zone)
	assert.Equal(t, models.DPTypeLocalLoad, unknown.DPType)
}

func TestBuildRowsDoNotShareStages(t *testing.T) {
	in := Inputs{
		Schemes: map[models.Scheme][]models.DeliveryPointAssignment{
			models.SchemeUFLS: {
				{AssignmentID: "ASG1", Mnemonic: "A", FeederID: "F1", Stages: map[string]models.Stage{"2024": "stage_1"}},
				{AssignmentID: "ASG1", Mnemonic: "A", FeederID: "F2"},
			},
		},
		LoadProfile: []models.LoadProfileRecord{{Mnemonic: "A", FeederID: "F1", PloadMW: mw("1")}},
	}

	ml := Build(in)
	require.Len(t, ml.Rows, 2)
	ml.Rows[0].Stages[ufls2024] = "stage_9"
	assert.Equal(t, models.Stage("stage_1"), ml.Rows[1].Stage(ufls2024))
}

func TestFromTables(t *testing.T) {
	tables := map[refdata.Kind]*refdata.Table{
		refdata.KindLoadProfile: refdata.NewTable(refdata.KindLoadProfile, "lp.csv",
			[]string{refdata.ColMnemonic, refdata.ColFeederID, refdata.ColPloadMW},
			[][]string{{"KLGB", "F1", "10"}}),
		refdata.KindUFLSAssignment: refdata.NewTable(refdata.KindUFLSAssignment, "ufls.csv",
			[]string{refdata.ColAssignmentID, refdata.ColLocalTripID, refdata.ColMnemonic, refdata.ColFeederID, "2024", "2025"},
			[][]string{{"ASG1", "T1", "KLGB", "F1", "stage_1", "stage_2"}}),
		refdata.KindUVLSAssignment: refdata.NewTable(refdata.KindUVLSAssignment, "uvls.csv",
			[]string{refdata.ColAssignmentID},
			[][]string{{"ASG9"}}),
	}

	in, errs := FromTables(tables)
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], refdata.ErrSchemaMismatch)
	assert.Len(t, in.Schemes[models.SchemeUFLS], 1)
	assert.Empty(t, in.Schemes[models.SchemeUVLS])
	assert.True(t, in.Ready())

	ml := Build(in)
	require.Len(t, ml.Rows, 1)
	assert.Equal(t, models.Stage("stage_2"), ml.Rows[0].Stage(ufls2025))
}
