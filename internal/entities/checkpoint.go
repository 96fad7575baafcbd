package entities

import (
	"time"
)

type SyncType string

const (
	SyncTypeReviewImport SyncType = "review_import"
	SyncTypeBookExport   SyncType = "book_export"
)

type SyncStatus string

const (
	SyncStatusRunning   SyncStatus = "running"
	SyncStatusCompleted SyncStatus = "completed"
	SyncStatusFailed    SyncStatus = "failed"
	SyncStatusCancelled SyncStatus = "cancelled"
)

// SyncCheckpoint is the persisted progress of one long-running sync or export.
// One row per sync type; the row is reset when a new run starts and updated
// after every processed record so an interrupted run resumes where it stopped.
type SyncCheckpoint struct {
	ID       uint       `gorm:"primaryKey" json:"id"`
	SyncType SyncType   `gorm:"size:50;uniqueIndex" json:"sync_type"`
	Status   SyncStatus `gorm:"size:20" json:"status"`

	TotalItems int `json:"total_items"`
	Processed  int `json:"processed"`
	Created    int `json:"created"`
	Updated    int `json:"updated"`
	Skipped    int `json:"skipped"`
	Failed     int `json:"failed"`

	// Import cursor: the page implied by Processed/TotalItems plus the last
	// remote review id that was fully reconciled.
	CurrentPage  int   `json:"current_page"`
	LastRemoteID int64 `json:"last_remote_id"`

	// Export cursor and dispositions.
	LastLocalID uint `json:"last_local_id"`
	Sent        int  `json:"sent"`
	NoISBN      int  `json:"no_isbn"`
	NotFound    int  `json:"not_found"`

	// RunStartedAt is captured at the first successful page fetch and becomes
	// the next incremental sync boundary when the run completes.
	RunStartedAt *time.Time `json:"run_started_at,omitempty"`

	Error       string     `gorm:"type:text" json:"error,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

func (SyncCheckpoint) TableName() string {
	return "sync_checkpoints"
}
