package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/openshelf/shelfsync/internal/entities"
)

// SyncController handles sync and export trigger/status endpoints.
type SyncController struct {
	importCheckpoints CheckpointReader
	exportCheckpoints CheckpointReader
	imports           ImportEnqueuer
	exports           ExportEnqueuer
	scheduler         ScheduleInfo
}

// NewSyncController creates a new SyncController.
func NewSyncController(importCp, exportCp CheckpointReader, imports ImportEnqueuer, exports ExportEnqueuer, scheduler ScheduleInfo) *SyncController {
	return &SyncController{
		importCheckpoints: importCp,
		exportCheckpoints: exportCp,
		imports:           imports,
		exports:           exports,
		scheduler:         scheduler,
	}
}

// RunSync handles POST /sync/run.
// Enqueues an import run; ?full=true forces a whole listing walk instead of
// an incremental sync.
func (s *SyncController) RunSync(c *gin.Context) {
	full := c.Query("full") == "true"

	if s.imports == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "task queue is disabled"})
		return
	}
	if running(s.importCheckpoints) {
		c.JSON(http.StatusConflict, gin.H{"error": "an import is already running"})
		return
	}

	if err := s.imports.EnqueueImport(full); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"enqueued": true, "full": full})
}

// RunExport handles POST /export/run.
func (s *SyncController) RunExport(c *gin.Context) {
	if s.exports == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "task queue is disabled"})
		return
	}
	if running(s.exportCheckpoints) {
		c.JSON(http.StatusConflict, gin.H{"error": "an export is already running"})
		return
	}

	if err := s.exports.EnqueueExport(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"enqueued": true})
}

// SyncStatusResponse reports both engines' checkpoints plus the schedule.
type SyncStatusResponse struct {
	Import    *entities.SyncCheckpoint `json:"import,omitempty"`
	Export    *entities.SyncCheckpoint `json:"export,omitempty"`
	Scheduled bool                     `json:"scheduled"`
	NextRun   string                   `json:"next_run,omitempty"`
}

// Status handles GET /sync/status.
func (s *SyncController) Status(c *gin.Context) {
	resp := SyncStatusResponse{}

	var err error
	resp.Import, err = s.importCheckpoints.GetCheckpoint()
	if err != nil && err != gorm.ErrRecordNotFound {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	resp.Export, err = s.exportCheckpoints.GetCheckpoint()
	if err != nil && err != gorm.ErrRecordNotFound {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if s.scheduler != nil {
		resp.Scheduled = s.scheduler.IsRunning()
		if next := s.scheduler.NextRunTime(); next != nil {
			resp.NextRun = next.Format(time.RFC3339)
		}
	}

	c.JSON(http.StatusOK, resp)
}

// running reports whether the checkpoint shows an active run.
func running(cp CheckpointReader) bool {
	checkpoint, err := cp.GetCheckpoint()
	if err != nil {
		return false
	}
	return checkpoint.Status == entities.SyncStatusRunning
}
