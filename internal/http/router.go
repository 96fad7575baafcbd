// Package http exposes the service's small trigger and status surface.
package http

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/openshelf/shelfsync/internal/database"
	"github.com/openshelf/shelfsync/internal/entities"
)

// CheckpointReader reads the persisted progress of one sync type.
type CheckpointReader interface {
	GetCheckpoint() (*entities.SyncCheckpoint, error)
}

// ImportEnqueuer puts import runs on the task queue.
type ImportEnqueuer interface {
	EnqueueImport(full bool) error
}

// ExportEnqueuer puts export runs on the task queue.
type ExportEnqueuer interface {
	EnqueueExport() error
}

// ScheduleInfo reports the periodic sync trigger's state.
type ScheduleInfo interface {
	IsRunning() bool
	NextRunTime() *time.Time
}

// RouterConfig carries the dependencies of the HTTP surface.
type RouterConfig struct {
	DB      *database.Database
	Version string

	Auth              *AuthController
	ImportCheckpoints CheckpointReader
	ExportCheckpoints CheckpointReader
	Imports           ImportEnqueuer
	Exports           ExportEnqueuer
	Scheduler         ScheduleInfo
}

// NewRouter creates and configures the HTTP router with all endpoints.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	var authState AuthStateReporter
	if cfg.Auth != nil {
		authState = cfg.Auth
	}
	health := NewHealthController(cfg.DB, authState, cfg.Version)
	router.GET("/health", health.Status)

	if cfg.Auth != nil {
		router.GET("/auth/authorize", cfg.Auth.Authorize)
		router.GET("/auth/callback", cfg.Auth.Callback)
	}

	sync := NewSyncController(cfg.ImportCheckpoints, cfg.ExportCheckpoints,
		cfg.Imports, cfg.Exports, cfg.Scheduler)
	router.POST("/sync/run", sync.RunSync)
	router.GET("/sync/status", sync.Status)
	router.POST("/export/run", sync.RunExport)

	return router
}
