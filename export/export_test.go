package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/gridops/loadshed-review/comparison"
	"github.com/gridops/loadshed-review/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

var (
	ufls2024 = models.StageKey{Scheme: models.SchemeUFLS, Year: "2024"}
	uvls2025 = models.StageKey{Scheme: models.SchemeUVLS, Year: "2025"}
)

func readBack(t *testing.T, data []byte) *excelize.File {
	t.Helper()
	xl, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	t.Cleanup(func() { _ = xl.Close() })
	return xl
}

func TestValidateFilename(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "adds extension", input: "ufls review 2025", want: "ufls review 2025.xlsx"},
		{name: "keeps extension", input: "masterlist.xlsx", want: "masterlist.xlsx"},
		{name: "normalises extension case", input: "Masterlist.XLSX", want: "Masterlist.xlsx"},
		{name: "allows punctuation", input: " UFLS_2025-v1 (draft) ", want: "UFLS_2025-v1 (draft).xlsx"},
		{name: "empty", input: "   ", wantErr: true},
		{name: "path traversal", input: "../etc/passwd", wantErr: true},
		{name: "windows separator", input: `a\b`, wantErr: true},
		{name: "wrong extension", input: "report.csv", wantErr: true},
		{name: "illegal character", input: "report?.xlsx", wantErr: true},
		{name: "leading dot", input: ".hidden", wantErr: true},
		{name: "too long", input: strings.Repeat("a", 101), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidateFilename(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidFilename)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMasterSheetDisplayOrder(t *testing.T) {
	rows := []*models.MasterListRow{{
		AssignmentID: "ASG1", Mnemonic: "KLGB", Zone: models.ZoneKlangValley, FeederID: "F1",
		PloadMW: decimal.RequireFromString("10.5"), Critical: true,
		Stages: map[models.StageKey]models.Stage{ufls2024: "stage_1", uvls2025: "stage_3"},
	}}

	data, err := Write(MasterSheet("Master List", rows, []models.StageKey{ufls2024, uvls2025}))
	require.NoError(t, err)

	xl := readBack(t, data)
	assert.Equal(t, "Master List", xl.GetSheetName(0))
	got, err := xl.GetRows("Master List")
	require.NoError(t, err)
	require.Len(t, got, 2)

	header := got[0]
	assert.Equal(t, "Assignment ID", header[0])
	assert.Equal(t, "UFLS_2024", header[len(header)-2])
	assert.Equal(t, "UVLS_2025", header[len(header)-1])
	assert.Len(t, header, len(models.MasterColumns)+2)

	record := got[1]
	assert.Equal(t, "ASG1", record[0])
	assert.Equal(t, "KlangValley", record[3])
	assert.Equal(t, "10.5", record[11])
	assert.Equal(t, "Yes", record[12])
	assert.Equal(t, "stage_3", record[len(record)-1])
}

func TestWriteSanitisesSheetNames(t *testing.T) {
	data, err := Write(
		Sheet{Name: "UFLS/2024: [draft]", Header: []string{"a"}},
		Sheet{Name: "UFLS/2024: [draft]", Header: []string{"a"}},
		Sheet{Name: strings.Repeat("x", 40), Header: []string{"a"}},
		Sheet{Name: "", Header: []string{"a"}},
	)
	require.NoError(t, err)

	xl := readBack(t, data)
	assert.Equal(t, []string{"UFLS_2024_ _draft_", "UFLS_2024_ _draft__2", strings.Repeat("x", 31), "Sheet"}, xl.GetSheetList())
}

func TestWriteNothing(t *testing.T) {
	_, err := Write()
	assert.Error(t, err)
}

func TestSimulationSheet(t *testing.T) {
	target := models.StageKey{Scheme: models.SchemeEMLS, Year: "2026"}
	rows := []*models.SimulationRow{{
		AssignmentID: "A", Mnemonics: []string{"KLGB", "PNGR"}, LocalTripIDs: []string{"T1"},
		PloadMW: decimal.NewFromInt(3), Stages: map[models.StageKey]models.Stage{ufls2024: "stage_2"},
		SimStage: "stage_1", Flag: models.FlagWarning,
		ConflictAssignment: "Warning: [Overlap] - UFLS_2024 (stage_2)",
	}}

	sheet := SimulationSheet("Simulation", rows, []models.StageKey{ufls2024}, target)
	assert.Equal(t, "Sim. Stage (EMLS_2026)", sheet.Header[len(sheet.Header)-3])

	data, err := Write(sheet)
	require.NoError(t, err)
	got, err := readBack(t, data).GetRows("Simulation")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "KLGB, PNGR", got[1][1])
	assert.Equal(t, "stage_2", got[1][10])
	assert.Equal(t, "Warning", got[1][12])
}

func TestComparisonSheet(t *testing.T) {
	from := ufls2024
	to := models.StageKey{Scheme: models.SchemeUFLS, Year: "2025"}
	results := []comparison.Result{{AssignmentID: "A", PloadMW: decimal.NewFromInt(1), From: "stage_1", Label: comparison.LabelRemoved}}

	sheet := ComparisonSheet("Compare", results, from, to)
	assert.Equal(t, []string{"Assignment ID", "Local Trip ID", "Mnemonic", "Substation Name", "Zone", "Feeder ID", "Pload (MW)", "UFLS_2024", "UFLS_2025", "Change"}, sheet.Header)
	require.Len(t, sheet.Rows, 1)
	assert.Equal(t, "Defeated/Removed", sheet.Rows[0][9])
}
