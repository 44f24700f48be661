package refdata

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gridops/loadshed-review/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestNormalizeHeader(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{name: "unit suffix", raw: "Pload (MW)", want: ColPloadMW},
		{name: "spaced id", raw: " Feeder ID ", want: ColFeederID},
		{name: "alias", raw: "Local Trip", want: ColLocalTripID},
		{name: "kv casing", raw: "kV", want: ColKV},
		{name: "plain year", raw: "2024", want: "2024"},
		{name: "float year", raw: "2024.0", want: "2024"},
		{name: "variant year", raw: "2025V1", want: "2025v1"},
		{name: "unknown kept", raw: "Commissioning Date", want: "commissioning_date"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeHeader(tt.raw))
		})
	}
}

func TestNormalizeCell(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{name: "trim", raw: "  KLGB ", want: "KLGB"},
		{name: "nan", raw: "nan", want: ""},
		{name: "upper NaN", raw: "NaN", want: ""},
		{name: "hash na", raw: "#NA", want: ""},
		{name: "excel na", raw: "#N/A", want: ""},
		{name: "literal na kept", raw: "na", want: "na"},
		{name: "integral float id", raw: "1234.0", want: "1234"},
		{name: "real decimal kept", raw: "10.5", want: "10.5"},
		{name: "dotted id kept", raw: "T1.A", want: "T1.A"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeCell(tt.raw))
		})
	}
}

func TestReadCSVDetectsHeader(t *testing.T) {
	csvData := strings.Join([]string{
		"UFLS Assignment Review,,,,",
		",,,,",
		"Assignment ID,Local Trip ID,Feeder ID,2024.0,2025",
		"ASG1 , T1 ,F1,stage_1,Stage 2",
		"ASG2,T2,F2,nan,#na",
		",,,,",
	}, "\n")

	loader := NewLoader(10)
	table, err := loader.Read(strings.NewReader(csvData), "ufls.csv", KindUFLSAssignment)
	require.NoError(t, err)

	assert.Equal(t, 2, table.HeaderRow)
	assert.Equal(t, 2, table.Len())
	assert.Equal(t, []string{"2024", "2025"}, table.YearColumns())
	assert.Equal(t, "ASG1", table.Get(0, ColAssignmentID))
	assert.Equal(t, "T1", table.Get(0, ColLocalTripID))
	assert.Equal(t, "", table.Get(1, "2024"))

	assignments, err := DecodeAssignments(table, models.SchemeUFLS)
	require.NoError(t, err)
	require.Len(t, assignments, 2)
	assert.Equal(t, map[string]models.Stage{"2024": "stage_1", "2025": "stage_2"}, assignments[0].Stages)
	assert.Empty(t, assignments[1].Stages)
}

func TestReadCSVHeaderFailure(t *testing.T) {
	csvData := "Mnemonic,Something\nKLGB,1\n"

	_, err := NewLoader(3).Read(strings.NewReader(csvData), "load.csv", KindLoadProfile)
	require.Error(t, err)

	var he *HeaderError
	require.True(t, errors.As(err, &he))
	assert.Equal(t, KindLoadProfile, he.Kind)
	assert.Equal(t, []string{ColFeederID, ColPloadMW}, he.Missing)
	assert.Equal(t, 2, he.ProbedRows)
	assert.True(t, IsHeaderError(err))
	assert.Contains(t, err.Error(), "pload_mw")
}

func TestReadXLSX(t *testing.T) {
	xl := excelize.NewFile()
	sheet := xl.GetSheetName(0)
	require.NoError(t, xl.SetSheetRow(sheet, "A1", &[]any{"Load Profile Snapshot"}))
	require.NoError(t, xl.SetSheetRow(sheet, "A2", &[]any{"Mnemonic", "Feeder ID", "Pload (MW)", "Qload (Mvar)", "Zone"}))
	require.NoError(t, xl.SetSheetRow(sheet, "A3", &[]any{"KLGB", 1234, 10.5, 2, "WPKL"}))
	require.NoError(t, xl.SetSheetRow(sheet, "A4", &[]any{"PNGR", "F7", "#N/A", 1, "PENANG"}))
	buf, err := xl.WriteToBuffer()
	require.NoError(t, err)

	table, err := NewLoader(DefaultProbeRows).Read(buf, "profile.xlsx", KindLoadProfile)
	require.NoError(t, err)
	assert.Equal(t, 1, table.HeaderRow)

	records, err := DecodeLoadProfile(table)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "1234", records[0].FeederID)
	assert.True(t, decimal.RequireFromString("10.5").Equal(records[0].PloadMW))
	assert.Equal(t, "WPKL", records[0].RawZone)
	assert.True(t, records[1].PloadMW.IsZero())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := NewLoader(0).Load(filepath.Join(t.TempDir(), "absent.csv"), KindLoadProfile)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingInput)
}

func TestReadUnsupportedFormat(t *testing.T) {
	_, err := NewLoader(0).Read(strings.NewReader("data"), "profile.pdf", KindLoadProfile)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestDecodeSchemaMismatch(t *testing.T) {
	table := NewTable(KindUFLSAssignment, "ufls.csv",
		[]string{ColAssignmentID, ColLocalTripID},
		[][]string{{"ASG1", "T1"}})

	_, err := DecodeAssignments(table, models.SchemeUFLS)
	assert.ErrorIs(t, err, ErrSchemaMismatch)

	_, err = DecodeLoadProfile(NewTable(KindLoadProfile, "lp.csv", []string{ColMnemonic}, [][]string{{"KLGB"}}))
	assert.ErrorIs(t, err, ErrSchemaMismatch)

	_, err = DecodeExcluded(NewTable(KindExcluded, "ex.csv", nil, nil))
	assert.ErrorIs(t, err, ErrMissingInput)
}

func TestDecodeReferenceTables(t *testing.T) {
	relays := NewTable(KindRelayPocket, "pocket.csv",
		[]string{ColMnemonic, ColKV, ColBreakerID, ColFeederID, ColAssignmentID, ColGroupTripID},
		[][]string{
			{"KLGB", "11", "CB1", "F1", "", "G-11"},
			{"KLGB", "11", "CB2", "F2", "", ""},
		})
	decoded, err := DecodeRelays(relays, models.RelayPocket)
	require.NoError(t, err)
	require.Len(t, decoded, 1)
	assert.Equal(t, "G-11", decoded[0].ResolvedID())
	assert.Equal(t, models.RelayPocket, decoded[0].Variant)

	subs := NewTable(KindSubstations, "subs.csv",
		[]string{ColMnemonic, ColSubstationName, ColState, ColGMSubzone},
		[][]string{
			{"KLGB", "Kelana Jaya", "SELANGOR", "Petaling"},
			{"KLGB", "Duplicate", "JOHOR", ""},
		})
	meta, err := DecodeSubstations(subs)
	require.NoError(t, err)
	require.Len(t, meta, 1)
	assert.Equal(t, "Kelana Jaya", meta[0].SubstationName)

	crit := NewTable(KindCriticalLoad, "crit.csv",
		[]string{ColLocalTripID, ColCriticalSource, ColRemark},
		[][]string{{"T1", "GSO", "hospital"}, {"", "dn", "orphan"}})
	flags, err := DecodeCriticalFlags(crit)
	require.NoError(t, err)
	require.Len(t, flags, 1)
	assert.Equal(t, models.CriticalSourceGSO, flags[0].Source)
}

func TestKinds(t *testing.T) {
	kind, err := ParseKind(" UVLS_Assignment ")
	require.NoError(t, err)
	assert.Equal(t, KindUVLSAssignment, kind)

	scheme, ok := kind.Scheme()
	require.True(t, ok)
	assert.Equal(t, models.SchemeUVLS, scheme)
	assert.Equal(t, KindEMLSAssignment, SchemeKind(models.SchemeEMLS))

	_, ok = KindLoadProfile.Scheme()
	assert.False(t, ok)

	_, err = ParseKind("payments")
	assert.Error(t, err)
}
