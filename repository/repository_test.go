package repository_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gridops/loadshed-review/models"
	"github.com/gridops/loadshed-review/repository"
	testingutil "github.com/gridops/loadshed-review/testing"
	"github.com/gridops/loadshed-review/utils"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runWithDB(t *testing.T, fn func(*testingutil.TestDB) error) {
	t.Helper()
	err := testingutil.TestWithDB(fn)
	if errors.Is(err, testingutil.ErrDatabaseUnavailable) {
		t.Skipf("skipping: %v", err)
	}
	require.NoError(t, err)
}

func TestSimulationSaveRepository(t *testing.T) {
	runWithDB(t, func(testDB *testingutil.TestDB) error {
		repo := repository.NewSimulationSaveRepository(testDB.DB)
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := testingutil.CreateTestContext()

		sessionA, sessionB := uuid.New(), uuid.New()

		t.Run("SaveWithRows", func(t *testing.T) {
			save := &models.SimulationSave{
				SessionID:    sessionA,
				Name:         "north review",
				TargetColumn: "UFLS_2026",
				RowCount:     2,
				AlertCount:   1,
				SimulatedMW:  decimal.RequireFromString("24.5"),
				Rows: []models.SimulationSaveRow{
					{AssignmentID: "KLGB-11-B", SimStage: "stage_5", Flag: string(models.FlagAlert), PloadMW: decimal.RequireFromString("4.5"), Critical: true},
					{AssignmentID: "PGTJ-132-01", SimStage: "stage_1", Flag: string(models.FlagWarning), PloadMW: decimal.RequireFromString("20")},
				},
			}
			require.NoError(t, repo.SaveWithRows(ctx, save))
			assert.NotZero(t, save.ID)
			assert.NotEqual(t, uuid.Nil, save.UUID)
			assert.Len(t, save.Rows, 2)
			for _, r := range save.Rows {
				assert.Equal(t, save.ID, r.SaveID)
			}

			loaded, err := repo.ByUUID(ctx, save.UUID)
			require.NoError(t, err)
			require.NotNil(t, loaded)
			assert.Equal(t, "north review", loaded.Name)
			require.Len(t, loaded.Rows, 2)
			assert.Equal(t, "KLGB-11-B", loaded.Rows[0].AssignmentID)
			assert.True(t, loaded.Rows[0].Critical)
			assert.True(t, decimal.RequireFromString("24.5").Equal(loaded.SimulatedMW))
		})

		t.Run("ByUUIDNotFound", func(t *testing.T) {
			save, err := repo.ByUUID(ctx, uuid.New())
			assert.NoError(t, err)
			assert.Nil(t, save)
		})

		t.Run("ByFilter", func(t *testing.T) {
			_, err := fixtures.CreateTestSimulationSave(sessionA, "second", "UVLS_2026", "PGTJ-132-01")
			require.NoError(t, err)
			_, err = fixtures.CreateTestSimulationSave(sessionB, "other session", "UFLS_2026", "KLGB-11-A", "KLGB-11-B")
			require.NoError(t, err)

			saves, err := repo.ByFilter(ctx, models.SimulationSaveFilter{SessionID: &sessionA}, "", 0, 0)
			require.NoError(t, err)
			require.Len(t, saves, 2)
			assert.Equal(t, "second", saves[0].Name)

			target := "UFLS_2026"
			saves, err = repo.ByFilter(ctx, models.SimulationSaveFilter{TargetColumn: &target}, "id ASC", 1, 1)
			require.NoError(t, err)
			require.Len(t, saves, 1)
			assert.Equal(t, "other session", saves[0].Name)
		})

		t.Run("CountAndExists", func(t *testing.T) {
			count, err := repo.Count(ctx, models.SimulationSaveFilter{})
			require.NoError(t, err)
			assert.Equal(t, int64(3), count)

			future := utils.UTCNowAdd(time.Hour)
			exists, err := repo.Exists(ctx, models.SimulationSaveFilter{CreatedAfter: &future})
			require.NoError(t, err)
			assert.False(t, exists)
		})

		t.Run("ByID", func(t *testing.T) {
			save, err := repo.ByID(ctx, 1)
			require.NoError(t, err)
			require.NotNil(t, save)
			assert.Equal(t, "north review", save.Name)

			save, err = repo.ByID(ctx, 999)
			assert.NoError(t, err)
			assert.Nil(t, save)
		})

		return nil
	})
}

func TestReferenceUploadRepository(t *testing.T) {
	runWithDB(t, func(testDB *testingutil.TestDB) error {
		repo := repository.NewReferenceUploadRepository(testDB.DB)
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := testingutil.CreateTestContext()

		sessionID := uuid.New()
		for _, tc := range []struct {
			kind    string
			success bool
		}{
			{kind: "load_profile", success: true},
			{kind: "ufls_assignment", success: false},
			{kind: "ufls_assignment", success: true},
		} {
			_, err := fixtures.CreateTestReferenceUpload(sessionID, tc.kind, tc.success)
			require.NoError(t, err)
		}
		_, err := fixtures.CreateTestReferenceUpload(uuid.New(), "load_profile", true)
		require.NoError(t, err)

		t.Run("Save", func(t *testing.T) {
			upload := &models.ReferenceUpload{
				SessionID: sessionID,
				Kind:      "substation_masterlist",
				FileName:  "subs.xlsx",
				RowCount:  12,
				HeaderRow: 2,
				Success:   utils.ToPtr(true),
				RequestID: utils.ToPtr("req-1"),
			}
			require.NoError(t, repo.Save(ctx, upload))
			assert.NotZero(t, upload.ID)
		})

		t.Run("ByFilter", func(t *testing.T) {
			uploads, err := repo.ByFilter(ctx, models.ReferenceUploadFilter{SessionID: &sessionID}, "", 0, 0)
			require.NoError(t, err)
			assert.Len(t, uploads, 4)

			failed, err := repo.ByFilter(ctx, models.ReferenceUploadFilter{SessionID: &sessionID, Success: utils.ToPtr(false)}, "", 0, 0)
			require.NoError(t, err)
			require.Len(t, failed, 1)
			assert.True(t, failed[0].IsFailed())
			assert.Equal(t, "ufls_assignment", failed[0].Kind)
		})

		t.Run("CountAndExists", func(t *testing.T) {
			kind := "load_profile"
			count, err := repo.Count(ctx, models.ReferenceUploadFilter{Kind: &kind})
			require.NoError(t, err)
			assert.Equal(t, int64(2), count)

			exists, err := repo.Exists(ctx, models.ReferenceUploadFilter{SessionID: utils.ToPtr(uuid.New())})
			require.NoError(t, err)
			assert.False(t, exists)
		})

		t.Run("WithTransactionRollsBack", func(t *testing.T) {
			boom := errors.New("boom")
			err := repository.WithTransaction(ctx, testDB.DB, func(txCtx context.Context) error {
				if err := repo.Save(txCtx, &models.ReferenceUpload{
					SessionID: sessionID,
					Kind:      "dn_excluded_list",
					FileName:  "ex.csv",
					Success:   utils.ToPtr(true),
				}); err != nil {
					return err
				}
				return boom
			})
			assert.ErrorIs(t, err, boom)

			kind := "dn_excluded_list"
			exists, err := repo.Exists(ctx, models.ReferenceUploadFilter{Kind: &kind})
			require.NoError(t, err)
			assert.False(t, exists)
		})

		return nil
	})
}
