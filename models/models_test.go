package models

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStage(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Stage
	}{
		{name: "canonical", raw: "stage_2", want: "stage_2"},
		{name: "upper case with space", raw: " Stage 3 ", want: "stage_3"},
		{name: "no separator", raw: "stage12", want: "stage_12"},
		{name: "empty", raw: "", want: NoStage},
		{name: "unknown label kept", raw: "manual", want: "manual"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseStage(tt.raw))
		})
	}
}

func TestStageNumber(t *testing.T) {
	n, ok := StageOf(11).Number()
	require.True(t, ok)
	assert.Equal(t, 11, n)

	_, ok = Stage("manual").Number()
	assert.False(t, ok)
}

func TestParseReviewYear(t *testing.T) {
	tests := []struct {
		name  string
		label string
		want  ReviewYear
		ok    bool
	}{
		{name: "plain year", label: "2024", want: ReviewYear{Year: 2024}, ok: true},
		{name: "variant", label: "2025v1", want: ReviewYear{Year: 2025, Variant: 1}, ok: true},
		{name: "upper case variant", label: "2025V2", want: ReviewYear{Year: 2025, Variant: 2}, ok: true},
		{name: "float rendering", label: "2024.0", want: ReviewYear{Year: 2024}, ok: true},
		{name: "not a year", label: "feeder_id", ok: false},
		{name: "short number", label: "132", ok: false},
		{name: "bad variant", label: "2025vx", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseReviewYear(tt.label)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestParseStageKey(t *testing.T) {
	key, err := ParseStageKey("ufls_2025v1")
	require.NoError(t, err)
	assert.Equal(t, StageKey{Scheme: SchemeUFLS, Year: "2025v1"}, key)
	assert.Equal(t, "UFLS_2025v1", key.String())

	_, err = ParseStageKey("XYZ_2024")
	assert.Error(t, err)

	_, err = ParseStageKey("UFLS")
	assert.Error(t, err)

	_, err = ParseStageKey("UVLS_mnemonic")
	assert.Error(t, err)
}

func TestLatestKey(t *testing.T) {
	keys := []StageKey{
		{Scheme: SchemeUFLS, Year: "2024"},
		{Scheme: SchemeUFLS, Year: "2025v1"},
		{Scheme: SchemeUFLS, Year: "2025"},
		{Scheme: SchemeUVLS, Year: "2023"},
	}

	latest, ok := LatestKey(keys, SchemeUFLS)
	require.True(t, ok)
	assert.Equal(t, "2025v1", latest.Year)

	latest, ok = LatestKey(keys, SchemeUVLS)
	require.True(t, ok)
	assert.Equal(t, "2023", latest.Year)

	_, ok = LatestKey(keys, SchemeEMLS)
	assert.False(t, ok)
}

func TestSortStageKeys(t *testing.T) {
	keys := []StageKey{
		{Scheme: SchemeEMLS, Year: "2024"},
		{Scheme: SchemeUFLS, Year: "2025"},
		{Scheme: SchemeUFLS, Year: "2024"},
		{Scheme: SchemeUVLS, Year: "2024"},
	}
	SortStageKeys(keys)

	var names []string
	for _, k := range keys {
		names = append(names, k.String())
	}
	assert.Equal(t, []string{"UFLS_2024", "UFLS_2025", "UVLS_2024", "EMLS_2024"}, names)
}

func TestMasterListRowJSON(t *testing.T) {
	row := &MasterListRow{
		AssignmentID: "ASG1",
		PloadMW:      decimal.NewFromInt(10),
		Stages: map[StageKey]Stage{
			{Scheme: SchemeUFLS, Year: "2024"}: "stage_1",
		},
	}

	data, err := json.Marshal(row)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"UFLS_2024":"stage_1"`)

	var decoded MasterListRow
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, Stage("stage_1"), decoded.Stage(StageKey{Scheme: SchemeUFLS, Year: "2024"}))
}

func TestMasterListRowValue(t *testing.T) {
	row := &MasterListRow{
		AssignmentID: "ASG1",
		Zone:         ZoneNorth,
		Critical:     true,
		PloadMW:      decimal.RequireFromString("12.5"),
		Stages: map[StageKey]Stage{
			{Scheme: SchemeUVLS, Year: "2025"}: "stage_4",
		},
	}

	assert.Equal(t, "ASG1", row.Value(FieldAssignmentID))
	assert.Equal(t, "North", row.Value(FieldZone))
	assert.Equal(t, "Yes", row.Value(FieldCritical))
	assert.Equal(t, "12.5", row.Value(FieldPloadMW))
	assert.Equal(t, "stage_4", row.Value(Field("UVLS_2025")))
	assert.Equal(t, "", row.Value(Field("UFLS_2025")))

	clone := row.Clone()
	clone.Stages[StageKey{Scheme: SchemeUVLS, Year: "2025"}] = "stage_5"
	assert.Equal(t, Stage("stage_4"), row.Stage(StageKey{Scheme: SchemeUVLS, Year: "2025"}))
}

func TestDeliveryPointResolvedID(t *testing.T) {
	assert.Equal(t, "A1", DeliveryPointAssignment{AssignmentID: "A1", GroupTripID: "G1"}.ResolvedID())
	assert.Equal(t, "G1", DeliveryPointAssignment{GroupTripID: "G1", LocalTripID: "L1"}.ResolvedID())
	assert.Equal(t, "L1", DeliveryPointAssignment{LocalTripID: "L1"}.ResolvedID())
	assert.Equal(t, "", DeliveryPointAssignment{}.ResolvedID())
}
