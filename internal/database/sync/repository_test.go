package sync

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/openshelf/shelfsync/internal/entities"
)

func setupTestDB(t *testing.T, syncType entities.SyncType) (*Repository, func()) {
	dbPath := "./test_sync_" + t.Name() + ".db"

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(&entities.SyncCheckpoint{})
	require.NoError(t, err)

	repo := NewRepository(db, syncType)

	cleanup := func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
		os.Remove(dbPath)
	}

	return repo, cleanup
}

func TestRepository_StartSync(t *testing.T) {
	repo, cleanup := setupTestDB(t, entities.SyncTypeReviewImport)
	defer cleanup()

	err := repo.StartSync(100)
	require.NoError(t, err)

	cp, err := repo.GetCheckpoint()
	require.NoError(t, err)
	assert.Equal(t, entities.SyncTypeReviewImport, cp.SyncType)
	assert.Equal(t, entities.SyncStatusRunning, cp.Status)
	assert.Equal(t, 100, cp.TotalItems)
	assert.Equal(t, 0, cp.Processed)
	assert.Nil(t, cp.RunStartedAt)
}

func TestRepository_StartSync_Reset(t *testing.T) {
	repo, cleanup := setupTestDB(t, entities.SyncTypeReviewImport)
	defer cleanup()

	err := repo.StartSync(50)
	require.NoError(t, err)

	err = repo.UpdateImportProgress(25, 10, 10, 5, 0, 2, 9001)
	require.NoError(t, err)
	err = repo.SetRunStartedAt(time.Now())
	require.NoError(t, err)

	// Starting a new run resets all counters and the cursor.
	err = repo.StartSync(100)
	require.NoError(t, err)

	cp, err := repo.GetCheckpoint()
	require.NoError(t, err)
	assert.Equal(t, 100, cp.TotalItems)
	assert.Equal(t, 0, cp.Processed)
	assert.Equal(t, 0, cp.CurrentPage)
	assert.Equal(t, int64(0), cp.LastRemoteID)
	assert.Nil(t, cp.RunStartedAt)
}

func TestRepository_UpdateImportProgress(t *testing.T) {
	repo, cleanup := setupTestDB(t, entities.SyncTypeReviewImport)
	defer cleanup()

	err := repo.StartSync(200)
	require.NoError(t, err)

	err = repo.UpdateImportProgress(75, 30, 40, 5, 0, 2, 123456)
	require.NoError(t, err)

	cp, err := repo.GetCheckpoint()
	require.NoError(t, err)
	assert.Equal(t, 75, cp.Processed)
	assert.Equal(t, 30, cp.Created)
	assert.Equal(t, 40, cp.Updated)
	assert.Equal(t, 5, cp.Skipped)
	assert.Equal(t, 2, cp.CurrentPage)
	assert.Equal(t, int64(123456), cp.LastRemoteID)
}

func TestRepository_UpdateExportProgress(t *testing.T) {
	repo, cleanup := setupTestDB(t, entities.SyncTypeBookExport)
	defer cleanup()

	err := repo.StartSync(40)
	require.NoError(t, err)

	err = repo.UpdateExportProgress(10, 7, 2, 1, 0, 18)
	require.NoError(t, err)

	cp, err := repo.GetCheckpoint()
	require.NoError(t, err)
	assert.Equal(t, entities.SyncTypeBookExport, cp.SyncType)
	assert.Equal(t, 10, cp.Processed)
	assert.Equal(t, 7, cp.Sent)
	assert.Equal(t, 2, cp.NoISBN)
	assert.Equal(t, 1, cp.NotFound)
	assert.Equal(t, uint(18), cp.LastLocalID)
}

func TestRepository_SetRunStartedAt(t *testing.T) {
	repo, cleanup := setupTestDB(t, entities.SyncTypeReviewImport)
	defer cleanup()

	err := repo.StartSync(10)
	require.NoError(t, err)

	boundary := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	err = repo.SetRunStartedAt(boundary)
	require.NoError(t, err)

	cp, err := repo.GetCheckpoint()
	require.NoError(t, err)
	require.NotNil(t, cp.RunStartedAt)
	assert.WithinDuration(t, boundary, *cp.RunStartedAt, time.Second)
}

func TestRepository_CompleteSync(t *testing.T) {
	repo, cleanup := setupTestDB(t, entities.SyncTypeReviewImport)
	defer cleanup()

	err := repo.StartSync(10)
	require.NoError(t, err)

	err = repo.CompleteSync(entities.SyncStatusCompleted, "")
	require.NoError(t, err)

	cp, err := repo.GetCheckpoint()
	require.NoError(t, err)
	assert.Equal(t, entities.SyncStatusCompleted, cp.Status)
	assert.NotNil(t, cp.CompletedAt)
	assert.Empty(t, cp.Error)
}

func TestRepository_CompleteSync_Failed(t *testing.T) {
	repo, cleanup := setupTestDB(t, entities.SyncTypeReviewImport)
	defer cleanup()

	err := repo.StartSync(10)
	require.NoError(t, err)

	err = repo.CompleteSync(entities.SyncStatusFailed, "remote returned 500")
	require.NoError(t, err)

	cp, err := repo.GetCheckpoint()
	require.NoError(t, err)
	assert.Equal(t, entities.SyncStatusFailed, cp.Status)
	assert.Equal(t, "remote returned 500", cp.Error)
}

func TestRepository_ResumeSync_KeepsCursor(t *testing.T) {
	repo, cleanup := setupTestDB(t, entities.SyncTypeReviewImport)
	defer cleanup()

	require.NoError(t, repo.StartSync(100))
	require.NoError(t, repo.UpdateImportProgress(50, 20, 25, 5, 0, 1, 777))
	require.NoError(t, repo.CompleteSync(entities.SyncStatusFailed, "network down"))

	require.NoError(t, repo.ResumeSync())

	cp, err := repo.GetCheckpoint()
	require.NoError(t, err)
	assert.Equal(t, entities.SyncStatusRunning, cp.Status)
	assert.Empty(t, cp.Error)
	assert.Nil(t, cp.CompletedAt)
	assert.Equal(t, 50, cp.Processed)
	assert.Equal(t, 1, cp.CurrentPage)
	assert.Equal(t, int64(777), cp.LastRemoteID)
}

func TestRepository_IsSyncRunning(t *testing.T) {
	repo, cleanup := setupTestDB(t, entities.SyncTypeReviewImport)
	defer cleanup()

	running, err := repo.IsSyncRunning()
	require.NoError(t, err)
	assert.False(t, running)

	err = repo.StartSync(10)
	require.NoError(t, err)

	running, err = repo.IsSyncRunning()
	require.NoError(t, err)
	assert.True(t, running)

	err = repo.CompleteSync(entities.SyncStatusCompleted, "")
	require.NoError(t, err)

	running, err = repo.IsSyncRunning()
	require.NoError(t, err)
	assert.False(t, running)
}

func TestRepository_IsSyncRunning_Stale(t *testing.T) {
	repo, cleanup := setupTestDB(t, entities.SyncTypeReviewImport)
	defer cleanup()

	err := repo.StartSync(10)
	require.NoError(t, err)

	// Backdate the last update past the stale threshold.
	err = repo.db.Model(&entities.SyncCheckpoint{}).
		Where("sync_type = ?", entities.SyncTypeReviewImport).
		Update("updated_at", time.Now().Add(-15*time.Minute)).Error
	require.NoError(t, err)

	running, err := repo.IsSyncRunning()
	require.NoError(t, err)
	assert.False(t, running)

	cp, err := repo.GetCheckpoint()
	require.NoError(t, err)
	assert.Equal(t, entities.SyncStatusFailed, cp.Status)
}

func TestRepository_TypesAreIndependent(t *testing.T) {
	importRepo, cleanup := setupTestDB(t, entities.SyncTypeReviewImport)
	defer cleanup()
	exportRepo := NewRepository(importRepo.db, entities.SyncTypeBookExport)

	require.NoError(t, importRepo.StartSync(100))
	require.NoError(t, exportRepo.StartSync(20))

	require.NoError(t, importRepo.CompleteSync(entities.SyncStatusCompleted, ""))

	running, err := exportRepo.IsSyncRunning()
	require.NoError(t, err)
	assert.True(t, running)
}
