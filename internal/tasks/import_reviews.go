package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/mikestefanello/backlite"

	"github.com/openshelf/shelfsync/internal/importer"
	"github.com/openshelf/shelfsync/internal/progress"
)

// ImportReviewsTask runs the review import engine. Full forces a whole
// listing walk instead of an incremental sync.
type ImportReviewsTask struct {
	Full bool `json:"full,omitempty"`
}

// Config returns the queue configuration for review import tasks.
func (t ImportReviewsTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "import_reviews",
		MaxAttempts: 3,
		Backoff:     time.Minute,
		Timeout:     60 * time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// ImportReviewsProcessor creates a processor function for ImportReviewsTask.
// A retried attempt resumes from the engine's persisted checkpoint instead
// of starting over.
func ImportReviewsProcessor(rec *importer.Reconciler) backlite.QueueProcessor[ImportReviewsTask] {
	return func(ctx context.Context, task ImportReviewsTask) error {
		if rec == nil {
			return fmt.Errorf("import engine not configured")
		}
		if task.Full {
			return rec.FullImport(ctx, progress.NewTracker())
		}
		return rec.Sync(ctx, progress.NewTracker())
	}
}

// NewImportReviewsQueue creates a backlite queue for review import tasks.
func NewImportReviewsQueue(rec *importer.Reconciler) backlite.Queue {
	return backlite.NewQueue(ImportReviewsProcessor(rec))
}

// SyncEnqueuer satisfies the scheduler's trigger by putting an incremental
// import task on the queue.
type SyncEnqueuer struct {
	client *Client
}

func NewSyncEnqueuer(client *Client) *SyncEnqueuer {
	return &SyncEnqueuer{client: client}
}

func (e *SyncEnqueuer) EnqueueSync() error {
	return e.EnqueueImport(false)
}

// EnqueueImport enqueues an import run; full forces a whole listing walk.
func (e *SyncEnqueuer) EnqueueImport(full bool) error {
	_, err := e.client.Add(ImportReviewsTask{Full: full}).Save()
	return err
}
