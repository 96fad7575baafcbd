package tasks

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mikestefanello/backlite"

	"github.com/openshelf/shelfsync/internal/exporter"
	"github.com/openshelf/shelfsync/internal/progress"
)

// ExportBooksTask pushes the whole local catalogue onto the remote shelves.
type ExportBooksTask struct{}

// Config returns the queue configuration for book export tasks.
func (t ExportBooksTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "export_books",
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

// ExportBooksProcessor creates a processor function for ExportBooksTask.
func ExportBooksProcessor(engine *exporter.Engine) backlite.QueueProcessor[ExportBooksTask] {
	return func(ctx context.Context, task ExportBooksTask) error {
		if engine == nil {
			return fmt.Errorf("export engine not configured")
		}
		result, err := engine.Run(ctx, progress.NewTracker())
		if err != nil {
			return fmt.Errorf("export books: %w", err)
		}

		log.Printf("[TASK] Export complete: %d processed, %d sent, %d without ISBN, %d not found",
			result.Processed,
			result.Counts[exporter.DispositionSent],
			result.Counts[exporter.DispositionNoISBN],
			result.Counts[exporter.DispositionNotFound])
		return nil
	}
}

// NewExportBooksQueue creates a backlite queue for book export tasks.
func NewExportBooksQueue(engine *exporter.Engine) backlite.Queue {
	return backlite.NewQueue(ExportBooksProcessor(engine))
}

// ExportEnqueuer satisfies the import engine's follow-up trigger by putting
// an export task on the queue.
type ExportEnqueuer struct {
	client *Client
}

func NewExportEnqueuer(client *Client) *ExportEnqueuer {
	return &ExportEnqueuer{client: client}
}

func (e *ExportEnqueuer) EnqueueExport() error {
	_, err := e.client.Add(ExportBooksTask{}).Save()
	return err
}
