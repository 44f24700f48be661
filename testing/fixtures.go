package testing

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/gridops/loadshed-review/models"
	"github.com/gridops/loadshed-review/utils"
	"github.com/shopspring/decimal"
)

// TableFixture is one reference table ready to upload
type TableFixture struct {
	Kind     string
	FileName string
	Data     []byte
}

func csvOf(lines ...string) []byte {
	return []byte(strings.Join(lines, "\n") + "\n")
}

// Assignment ids used by the review scenario
const (
	FixtureAssignmentKLGBA = "KLGB-11-A"
	FixtureAssignmentKLGBB = "KLGB-11-B"
	FixtureAssignmentPGTJ  = "PGTJ-132-01"
)

// LoadProfileCSV holds four feeders over three substations
func LoadProfileCSV() []byte {
	return csvOf(
		"Mnemonic,Feeder ID,Pload (MW),Qload (MVar),Zone",
		"KLGB,F1,10.5,2.1,Selangor",
		"KLGB,F2,4.5,1.0,Selangor",
		"PGTJ,F1,20,5,Perak",
		"JHRB,F9,7.25,1.5,Johor",
	)
}

// UFLSAssignmentCSV carries two review years below a title row
func UFLSAssignmentCSV() []byte {
	return csvOf(
		"UFLS stage review,,,,,,",
		"Assignment ID,Local Trip ID,Mnemonic,Feeder ID,kV,2024,2025",
		"KLGB-11-A,T1,KLGB,F1,11,stage 1,stage 2",
		"KLGB-11-B,T2,KLGB,F2,11,stage 4,",
		"PGTJ-132-01,T3,PGTJ,F1,132,stage 5,stage 5",
	)
}

// UVLSAssignmentCSV puts the 132kV point in a non-overlap stage
func UVLSAssignmentCSV() []byte {
	return csvOf(
		"Assignment ID,Local Trip ID,Mnemonic,Feeder ID,2025",
		"PGTJ-132-01,T3,PGTJ,F1,stage 2",
	)
}

func SubstationsCSV() []byte {
	return csvOf(
		"Mnemonic,Substation Name,State,GM Subzone",
		"KLGB,Kelana Jaya,SELANGOR,Petaling",
		"PGTJ,Papan,PERAK,Ipoh",
		"JHRB,Johor Bahru,JOHOR,Johor Bahru",
	)
}

// CriticalLoadCSV marks T2 as a critical load
func CriticalLoadCSV() []byte {
	return csvOf(
		"Local Trip ID,Critical List Source,Remark",
		"T2,GSO,hospital",
	)
}

func ExcludedCSV() []byte {
	return csvOf(
		"Local Trip ID,Remark",
		"T9,decommissioned",
	)
}

// ReviewTables returns every reference table of the review scenario in upload order
func ReviewTables() []TableFixture {
	return []TableFixture{
		{Kind: "load_profile", FileName: "load_profile.csv", Data: LoadProfileCSV()},
		{Kind: "ufls_assignment", FileName: "ufls.csv", Data: UFLSAssignmentCSV()},
		{Kind: "uvls_assignment", FileName: "uvls.csv", Data: UVLSAssignmentCSV()},
		{Kind: "substation_masterlist", FileName: "substations.csv", Data: SubstationsCSV()},
		{Kind: "critical_load_flaglist", FileName: "critical.csv", Data: CriticalLoadCSV()},
		{Kind: "dn_excluded_list", FileName: "excluded.csv", Data: ExcludedCSV()},
	}
}

// TestFixtures provides helper methods for creating test data
type TestFixtures struct {
	DB *TestDB
}

// NewTestFixtures creates a new test fixtures instance
func NewTestFixtures(db *TestDB) *TestFixtures {
	return &TestFixtures{DB: db}
}

// CreateTestSimulationSave stores a saved simulation with one row per assignment id
func (tf *TestFixtures) CreateTestSimulationSave(sessionID uuid.UUID, name, target string, assignmentIDs ...string) (*models.SimulationSave, error) {
	meta, err := json.Marshal(map[string]any{"fixture": true})
	if err != nil {
		return nil, err
	}

	save := &models.SimulationSave{
		SessionID:    sessionID,
		Name:         name,
		TargetColumn: target,
		RowCount:     len(assignmentIDs),
		SimulatedMW:  decimal.Zero,
		Metadata:     meta,
	}
	for i, id := range assignmentIDs {
		save.Rows = append(save.Rows, models.SimulationSaveRow{
			AssignmentID: id,
			SimStage:     fmt.Sprintf("stage_%d", i+1),
			Flag:         string(models.FlagOK),
			PloadMW:      decimal.NewFromInt(int64(i + 1)),
		})
		save.SimulatedMW = save.SimulatedMW.Add(decimal.NewFromInt(int64(i + 1)))
	}

	if err := tf.DB.DB.Create(save).Error; err != nil {
		return nil, fmt.Errorf("failed to create simulation save %s: %w", name, err)
	}
	return save, nil
}

// CreateTestReferenceUpload stores an upload audit record
func (tf *TestFixtures) CreateTestReferenceUpload(sessionID uuid.UUID, kind string, success bool) (*models.ReferenceUpload, error) {
	upload := &models.ReferenceUpload{
		SessionID: sessionID,
		Kind:      kind,
		FileName:  kind + ".csv",
		Success:   utils.ToPtr(success),
	}
	if success {
		upload.RowCount = 3
	} else {
		upload.ErrorMessage = utils.ToPtr("header not found")
	}

	if err := tf.DB.DB.Create(upload).Error; err != nil {
		return nil, fmt.Errorf("failed to create reference upload %s: %w", kind, err)
	}
	return upload, nil
}
