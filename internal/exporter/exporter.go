// Package exporter pushes the local catalogue onto the remote service's
// shelves.
//
// Each book ends a pass in exactly one disposition. Books without an ISBN
// are settled locally without touching the network; the rest are resolved
// to a remote id and pushed shelf by shelf.
package exporter

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/openshelf/shelfsync/internal/entities"
	"github.com/openshelf/shelfsync/internal/progress"
	"github.com/openshelf/shelfsync/internal/remote"
)

// Disposition is the terminal outcome of one book in one export pass.
type Disposition string

const (
	DispositionSent         Disposition = "sent"
	DispositionNoISBN       Disposition = "no_isbn"
	DispositionNotFound     Disposition = "not_found"
	DispositionNetworkError Disposition = "network_error"
	DispositionError        Disposition = "error"
)

const (
	// checkpointEvery is how many books are processed between checkpoint
	// writes.
	checkpointEvery = 5

	// notFoundRetryDelay is the pause before the single isbn_to_id retry.
	notFoundRetryDelay = 2 * time.Second

	defaultBackoffFloor = 2 * time.Second
	defaultBackoffCap   = 5 * time.Minute
)

// RemoteCatalogue is the slice of the remote client the exporter needs.
type RemoteCatalogue interface {
	ISBNToID(ctx context.Context, isbn string) (int64, error)
	AddBookToShelf(ctx context.Context, bookID int64, shelfName string) error
	ListShelves(ctx context.Context, page int) (*remote.ShelfPage, error)
	CreateShelf(ctx context.Context, name string, exclusive bool) (*remote.ShelfInfo, error)
}

// BookSource lists the catalogue in id order for a resumable walk.
type BookSource interface {
	ListAll(afterID uint) ([]entities.Book, error)
}

// CheckpointStore persists export progress.
type CheckpointStore interface {
	GetCheckpoint() (*entities.SyncCheckpoint, error)
	StartSync(totalItems int) error
	ResumeSync() error
	SetTotalItems(total int) error
	UpdateExportProgress(processed, sent, noISBN, notFound, failed int, lastLocalID uint) error
	CompleteSync(status entities.SyncStatus, errorMsg string) error
	IsSyncRunning() (bool, error)
}

// Result summarizes one export pass.
type Result struct {
	Processed int
	Counts    map[Disposition]int
}

// Engine is the export engine.
type Engine struct {
	catalogue   RemoteCatalogue
	books       BookSource
	checkpoints CheckpointStore

	backoffFloor time.Duration
	backoffCap   time.Duration
	retryDelay   time.Duration
	sleep        func(ctx context.Context, d time.Duration) error
}

// NewEngine creates an export engine over the given collaborators.
func NewEngine(catalogue RemoteCatalogue, books BookSource, checkpoints CheckpointStore) *Engine {
	return &Engine{
		catalogue:    catalogue,
		books:        books,
		checkpoints:  checkpoints,
		backoffFloor: defaultBackoffFloor,
		backoffCap:   defaultBackoffCap,
		retryDelay:   notFoundRetryDelay,
		sleep:        sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run exports the whole catalogue. An interrupted pass resumes from the last
// checkpointed book instead of starting over.
func (e *Engine) Run(ctx context.Context, listener progress.Listener) (*Result, error) {
	if listener == nil {
		listener = progress.Nop{}
	}

	running, err := e.checkpoints.IsSyncRunning()
	if err != nil {
		return nil, fmt.Errorf("check running export: %w", err)
	}
	if running {
		return nil, fmt.Errorf("an export is already running")
	}

	result := &Result{Counts: make(map[Disposition]int)}
	var afterID uint

	cp, err := e.checkpoints.GetCheckpoint()
	if err == nil && cp.Status == entities.SyncStatusFailed && cp.LastLocalID > 0 {
		if err := e.checkpoints.ResumeSync(); err != nil {
			return nil, fmt.Errorf("resume checkpoint: %w", err)
		}
		afterID = cp.LastLocalID
		result.Processed = cp.Processed
		result.Counts[DispositionSent] = cp.Sent
		result.Counts[DispositionNoISBN] = cp.NoISBN
		result.Counts[DispositionNotFound] = cp.NotFound
		log.Printf("Book export: resuming interrupted pass after book %d", afterID)
	} else {
		if err := e.checkpoints.StartSync(0); err != nil {
			return nil, fmt.Errorf("start checkpoint: %w", err)
		}
	}

	all, err := e.books.ListAll(afterID)
	if err != nil {
		e.complete(result, 0, entities.SyncStatusFailed, err.Error())
		return nil, err
	}
	listener.SetMax(result.Processed + len(all))
	if err := e.checkpoints.SetTotalItems(result.Processed + len(all)); err != nil {
		log.Printf("Book export: warning - persist total: %v", err)
	}

	e.bootstrapShelves(ctx)

	backoff := e.backoffFloor
	var lastLocalID uint
	for i := range all {
		if listener.IsCancelled() || ctx.Err() != nil {
			e.complete(result, lastLocalID, entities.SyncStatusCancelled, "")
			log.Printf("Book export: cancelled after %d books", result.Processed)
			return result, ctx.Err()
		}

		book := &all[i]
		disposition := e.exportBook(ctx, book)
		result.Processed++
		result.Counts[disposition]++
		lastLocalID = book.ID
		listener.Step(1)

		switch disposition {
		case DispositionSent:
			backoff = e.backoffFloor
		case DispositionNetworkError:
			log.Printf("Book export: network failure on %q, backing off %s", book.Title, backoff)
			if err := e.sleep(ctx, backoff); err != nil {
				e.complete(result, lastLocalID, entities.SyncStatusCancelled, "")
				return result, err
			}
			backoff *= 2
			if backoff > e.backoffCap {
				backoff = e.backoffCap
			}
		}

		if result.Processed%checkpointEvery == 0 {
			e.checkpoint(result, lastLocalID)
		}
	}

	e.complete(result, lastLocalID, entities.SyncStatusCompleted, "")
	log.Printf("Book export: completed (%d processed, %d sent, %d without ISBN, %d not found)",
		result.Processed, result.Counts[DispositionSent],
		result.Counts[DispositionNoISBN], result.Counts[DispositionNotFound])
	return result, nil
}

// exportBook settles one book into its disposition for this pass.
func (e *Engine) exportBook(ctx context.Context, book *entities.Book) Disposition {
	if !book.HasISBN() {
		return DispositionNoISBN
	}

	remoteID, err := e.catalogue.ISBNToID(ctx, book.ISBN)
	if errors.Is(err, remote.ErrNotFound) {
		// The lookup endpoint is flaky on fresh editions; one retry
		// after a short pause settles most false misses.
		if sleepErr := e.sleep(ctx, e.retryDelay); sleepErr != nil {
			return DispositionError
		}
		remoteID, err = e.catalogue.ISBNToID(ctx, book.ISBN)
		if errors.Is(err, remote.ErrNotFound) {
			return DispositionNotFound
		}
	}
	if err != nil {
		if remote.IsRetryable(err) {
			return DispositionNetworkError
		}
		log.Printf("Book export: resolve %q (%s): %v", book.Title, book.ISBN, err)
		return DispositionError
	}

	for _, shelf := range book.Shelves {
		if err := e.catalogue.AddBookToShelf(ctx, remoteID, shelf.Name); err != nil {
			if remote.IsRetryable(err) {
				return DispositionNetworkError
			}
			log.Printf("Book export: shelve %q on %q: %v", book.Title, shelf.Name, err)
			return DispositionError
		}
	}
	return DispositionSent
}

// bootstrapShelves makes sure the exclusive read-status shelves exist
// remotely before books are pushed onto them. Failures are logged and the
// pass continues; shelving itself will surface anything fatal.
func (e *Engine) bootstrapShelves(ctx context.Context) {
	page, err := e.catalogue.ListShelves(ctx, 1)
	if err != nil {
		log.Printf("Book export: warning - list remote shelves: %v", err)
		return
	}

	existing := make(map[string]bool, len(page.Shelves))
	for _, shelf := range page.Shelves {
		existing[shelf.Name] = true
	}

	for _, status := range []entities.ReadStatus{
		entities.ReadStatusToRead, entities.ReadStatusReading, entities.ReadStatusRead,
	} {
		name := string(status)
		if existing[name] {
			continue
		}
		if _, err := e.catalogue.CreateShelf(ctx, name, true); err != nil {
			log.Printf("Book export: warning - create remote shelf %q: %v", name, err)
		}
	}
}

func (e *Engine) checkpoint(result *Result, lastLocalID uint) {
	failed := result.Counts[DispositionNetworkError] + result.Counts[DispositionError]
	if err := e.checkpoints.UpdateExportProgress(
		result.Processed,
		result.Counts[DispositionSent],
		result.Counts[DispositionNoISBN],
		result.Counts[DispositionNotFound],
		failed,
		lastLocalID); err != nil {
		log.Printf("Book export: warning - persist checkpoint: %v", err)
	}
}

func (e *Engine) complete(result *Result, lastLocalID uint, status entities.SyncStatus, msg string) {
	e.checkpoint(result, lastLocalID)
	if err := e.checkpoints.CompleteSync(status, msg); err != nil {
		log.Printf("Book export: warning - complete checkpoint: %v", err)
	}
}
