// Package sync provides database operations for sync checkpoint tracking.
//
// The import and export engines persist their cursor and counters through
// this repository after every processed record, which is what makes an
// interrupted run resumable.
//
// # Usage
//
//	repo := sync.NewRepository(db, entities.SyncTypeReviewImport)
//	err := repo.StartSync(100)
package sync

import (
	"time"

	"gorm.io/gorm"

	"github.com/openshelf/shelfsync/internal/entities"
)

// Repository handles all sync checkpoint database operations.
type Repository struct {
	db       *gorm.DB
	syncType entities.SyncType
}

// NewRepository creates a checkpoint repository for a specific sync type.
func NewRepository(db *gorm.DB, syncType entities.SyncType) *Repository {
	return &Repository{db: db, syncType: syncType}
}

// GetCheckpoint retrieves the checkpoint for the configured sync type.
func (r *Repository) GetCheckpoint() (*entities.SyncCheckpoint, error) {
	var cp entities.SyncCheckpoint
	err := r.db.Where("sync_type = ?", r.syncType).First(&cp).Error
	if err != nil {
		return nil, err
	}
	return &cp, nil
}

// StartSync creates or resets the checkpoint for a new run.
func (r *Repository) StartSync(totalItems int) error {
	var cp entities.SyncCheckpoint
	result := r.db.Where("sync_type = ?", r.syncType).First(&cp)

	now := time.Now()
	if result.Error == gorm.ErrRecordNotFound {
		cp = entities.SyncCheckpoint{
			SyncType:   r.syncType,
			Status:     entities.SyncStatusRunning,
			TotalItems: totalItems,
			StartedAt:  now,
			UpdatedAt:  now,
		}
		return r.db.Create(&cp).Error
	} else if result.Error != nil {
		return result.Error
	}

	// Reset existing record
	cp.Status = entities.SyncStatusRunning
	cp.TotalItems = totalItems
	cp.Processed = 0
	cp.Created = 0
	cp.Updated = 0
	cp.Skipped = 0
	cp.Failed = 0
	cp.CurrentPage = 0
	cp.LastRemoteID = 0
	cp.LastLocalID = 0
	cp.Sent = 0
	cp.NoISBN = 0
	cp.NotFound = 0
	cp.RunStartedAt = nil
	cp.Error = ""
	cp.StartedAt = now
	cp.UpdatedAt = now
	cp.CompletedAt = nil

	return r.db.Save(&cp).Error
}

// ResumeSync marks a previously failed run as running again without touching
// its counters or cursor, so the engine can pick up where it stopped.
func (r *Repository) ResumeSync() error {
	return r.db.Model(&entities.SyncCheckpoint{}).
		Where("sync_type = ?", r.syncType).
		Updates(map[string]any{
			"status":       entities.SyncStatusRunning,
			"error":        "",
			"completed_at": nil,
			"updated_at":   time.Now(),
		}).Error
}

// SetRunStartedAt records the boundary instant of the run, captured at the
// first successful page fetch. It is persisted immediately so a resumed run
// keeps the original boundary.
func (r *Repository) SetRunStartedAt(at time.Time) error {
	return r.db.Model(&entities.SyncCheckpoint{}).
		Where("sync_type = ?", r.syncType).
		Updates(map[string]any{
			"run_started_at": at,
			"updated_at":     time.Now(),
		}).Error
}

// SetTotalItems updates the expected run size once the first page reveals it.
func (r *Repository) SetTotalItems(total int) error {
	return r.db.Model(&entities.SyncCheckpoint{}).
		Where("sync_type = ?", r.syncType).
		Updates(map[string]any{
			"total_items": total,
			"updated_at":  time.Now(),
		}).Error
}

// UpdateImportProgress persists the import counters and cursor.
func (r *Repository) UpdateImportProgress(processed, created, updated, skipped, failed, currentPage int, lastRemoteID int64) error {
	return r.db.Model(&entities.SyncCheckpoint{}).
		Where("sync_type = ?", r.syncType).
		Updates(map[string]any{
			"processed":      processed,
			"created":        created,
			"updated":        updated,
			"skipped":        skipped,
			"failed":         failed,
			"current_page":   currentPage,
			"last_remote_id": lastRemoteID,
			"updated_at":     time.Now(),
		}).Error
}

// UpdateExportProgress persists the export counters and cursor.
func (r *Repository) UpdateExportProgress(processed, sent, noISBN, notFound, failed int, lastLocalID uint) error {
	return r.db.Model(&entities.SyncCheckpoint{}).
		Where("sync_type = ?", r.syncType).
		Updates(map[string]any{
			"processed":     processed,
			"sent":          sent,
			"no_isbn":       noISBN,
			"not_found":     notFound,
			"failed":        failed,
			"last_local_id": lastLocalID,
			"updated_at":    time.Now(),
		}).Error
}

// CompleteSync marks the run as finished with the given terminal status.
func (r *Repository) CompleteSync(status entities.SyncStatus, errorMsg string) error {
	now := time.Now()
	updates := map[string]any{
		"status":       status,
		"updated_at":   now,
		"completed_at": now,
	}
	if errorMsg != "" {
		updates["error"] = errorMsg
	}
	return r.db.Model(&entities.SyncCheckpoint{}).
		Where("sync_type = ?", r.syncType).
		Updates(updates).Error
}

// IsSyncRunning checks if a run of this type is currently in progress.
// A run is considered stale if not updated in 10 minutes.
func (r *Repository) IsSyncRunning() (bool, error) {
	var cp entities.SyncCheckpoint
	err := r.db.Where("sync_type = ? AND status = ?", r.syncType, entities.SyncStatusRunning).First(&cp).Error
	if err == gorm.ErrRecordNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	staleThreshold := time.Now().Add(-10 * time.Minute)
	if cp.UpdatedAt.Before(staleThreshold) {
		_ = r.CompleteSync(entities.SyncStatusFailed, "run was interrupted")
		return false, nil
	}

	return true, nil
}
