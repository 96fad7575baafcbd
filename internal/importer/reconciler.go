// Package importer reconciles the remote review listing into the local
// catalogue.
//
// The engine walks the paginated listing newest-first, matches each remote
// record to local rows by remote book id and then by ISBN variants, and
// creates or updates accordingly. Progress is checkpointed after every
// record so an interrupted run resumes instead of restarting.
package importer

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/openshelf/shelfsync/internal/entities"
	"github.com/openshelf/shelfsync/internal/progress"
	"github.com/openshelf/shelfsync/internal/remote"
	"github.com/openshelf/shelfsync/internal/utils"
)

// DefaultPageSize is the review listing page size.
const DefaultPageSize = 50

// ReviewSource lists reviews from the remote catalogue, newest update first.
type ReviewSource interface {
	ListReviews(ctx context.Context, page, perPage int) (*remote.ReviewPage, error)
}

// BookRepository defines the catalogue operations the reconciler needs.
type BookRepository interface {
	GetByRemoteBookID(remoteID int64) ([]entities.Book, error)
	GetByISBNs(isbns []string) ([]entities.Book, error)
	Create(book *entities.Book) error
	Update(book *entities.Book) error
	TouchSyncStamps(bookID uint, now time.Time) error
	SetCoverPath(bookID uint, path string) error
	EnsureAuthor(name string) (*entities.Author, error)
	EnsureShelf(name string) (*entities.Shelf, error)
	ListShelves() ([]entities.Shelf, error)
}

// CheckpointStore persists run progress so interrupted imports resume.
type CheckpointStore interface {
	GetCheckpoint() (*entities.SyncCheckpoint, error)
	StartSync(totalItems int) error
	ResumeSync() error
	SetRunStartedAt(at time.Time) error
	SetTotalItems(total int) error
	UpdateImportProgress(processed, created, updated, skipped, failed, currentPage int, lastRemoteID int64) error
	CompleteSync(status entities.SyncStatus, errorMsg string) error
	IsSyncRunning() (bool, error)
}

// SyncState persists the incremental sync boundary.
type SyncState interface {
	LastSyncAt() (*time.Time, error)
	SetLastSyncAt(at time.Time) error
}

// CoverFetcher downloads and caches a cover image, returning its local path.
type CoverFetcher interface {
	GetCover(ctx context.Context, bookID uint, coverURL string) (string, error)
}

// ExportTrigger enqueues the follow-up export after a completed sync run.
type ExportTrigger interface {
	EnqueueExport() error
}

// Reconciler is the import engine.
type Reconciler struct {
	source      ReviewSource
	books       BookRepository
	checkpoints CheckpointStore
	state       SyncState
	covers      CoverFetcher  // optional
	exports     ExportTrigger // optional
	shelves     *shelfResolver
	pageSize    int
	now         func() time.Time
}

// NewReconciler creates an import engine over the given collaborators.
func NewReconciler(source ReviewSource, books BookRepository, checkpoints CheckpointStore, state SyncState) *Reconciler {
	return &Reconciler{
		source:      source,
		books:       books,
		checkpoints: checkpoints,
		state:       state,
		shelves:     newShelfResolver(books),
		pageSize:    DefaultPageSize,
		now:         time.Now,
	}
}

// SetCoverFetcher enables cover caching on the create path (optional).
func (r *Reconciler) SetCoverFetcher(covers CoverFetcher) {
	r.covers = covers
}

// SetExportTrigger sets the follow-up export enqueuer (optional).
func (r *Reconciler) SetExportTrigger(exports ExportTrigger) {
	r.exports = exports
}

// counters mirrors the persisted checkpoint during a run.
type counters struct {
	processed    int
	created      int
	updated      int
	skipped      int
	failed       int
	page         int
	lastRemoteID int64
}

// Sync runs an incremental import: the walk stops at the first review not
// updated since the last completed run. A first-ever sync behaves like a
// full import.
func (r *Reconciler) Sync(ctx context.Context, listener progress.Listener) error {
	lastSync, err := r.state.LastSyncAt()
	if err != nil {
		return fmt.Errorf("load last sync boundary: %w", err)
	}
	return r.run(ctx, listener, lastSync)
}

// FullImport walks the entire remote listing regardless of the last sync
// boundary.
func (r *Reconciler) FullImport(ctx context.Context, listener progress.Listener) error {
	return r.run(ctx, listener, nil)
}

func (r *Reconciler) run(ctx context.Context, listener progress.Listener, lastSync *time.Time) error {
	if listener == nil {
		listener = progress.Nop{}
	}

	running, err := r.checkpoints.IsSyncRunning()
	if err != nil {
		return fmt.Errorf("check running import: %w", err)
	}
	if running {
		return fmt.Errorf("an import is already running")
	}

	cnt, runStartedAt, err := r.prepareRun()
	if err != nil {
		return err
	}
	r.shelves.reset()

	startPage := cnt.page
	if startPage < 1 {
		startPage = 1
	}
	if lastSync != nil {
		log.Printf("Review import: incremental sync since %s, starting at page %d",
			lastSync.Format(time.RFC3339), startPage)
	} else {
		log.Printf("Review import: full import, starting at page %d", startPage)
	}

	stopped := false
	for page := startPage; !stopped; page++ {
		reviews, err := r.source.ListReviews(ctx, page, r.pageSize)
		if err != nil {
			r.fail(cnt, fmt.Sprintf("list reviews page %d: %v", page, err))
			return fmt.Errorf("list reviews page %d: %w", page, err)
		}

		// The boundary of this run is captured at the first successful
		// page fetch and becomes the next incremental starting point.
		if runStartedAt == nil {
			now := r.now()
			runStartedAt = &now
			if err := r.checkpoints.SetRunStartedAt(now); err != nil {
				log.Printf("Review import: warning - persist run start: %v", err)
			}
		}
		if page == startPage {
			listener.SetMax(reviews.Total)
			if err := r.checkpoints.SetTotalItems(reviews.Total); err != nil {
				log.Printf("Review import: warning - persist total: %v", err)
			}
		}

		cnt.page = page
		for i := range reviews.Reviews {
			if listener.IsCancelled() || ctx.Err() != nil {
				r.complete(cnt, entities.SyncStatusCancelled, "")
				log.Printf("Review import: cancelled after %d records", cnt.processed)
				return ctx.Err()
			}

			review := &reviews.Reviews[i]
			if lastSync != nil && review.DateUpdated != nil && !review.DateUpdated.After(*lastSync) {
				// Pages are sorted by update time descending, so
				// everything from here on is already reconciled.
				stopped = true
				break
			}

			if err := r.reconcile(ctx, review, cnt); err != nil {
				cnt.failed++
				log.Printf("Review import: record %d failed: %v", review.ReviewID, err)
			}
			cnt.processed++
			cnt.lastRemoteID = review.ReviewID
			listener.Step(1)

			if err := r.checkpoints.UpdateImportProgress(
				cnt.processed, cnt.created, cnt.updated, cnt.skipped, cnt.failed,
				cnt.page, cnt.lastRemoteID); err != nil {
				log.Printf("Review import: warning - persist checkpoint: %v", err)
			}
		}

		if reviews.End >= reviews.Total || len(reviews.Reviews) == 0 {
			break
		}
	}

	r.complete(cnt, entities.SyncStatusCompleted, "")
	log.Printf("Review import: completed (%d processed, %d created, %d updated, %d skipped, %d failed)",
		cnt.processed, cnt.created, cnt.updated, cnt.skipped, cnt.failed)

	if runStartedAt != nil {
		if err := r.state.SetLastSyncAt(*runStartedAt); err != nil {
			return fmt.Errorf("persist sync boundary: %w", err)
		}
	}
	if r.exports != nil {
		if err := r.exports.EnqueueExport(); err != nil {
			log.Printf("Review import: warning - enqueue export: %v", err)
		}
	}
	return nil
}

// prepareRun decides between resuming an interrupted run and starting fresh.
func (r *Reconciler) prepareRun() (*counters, *time.Time, error) {
	cp, err := r.checkpoints.GetCheckpoint()
	if err == nil && cp.Status == entities.SyncStatusFailed && cp.RunStartedAt != nil && cp.CurrentPage > 0 {
		if err := r.checkpoints.ResumeSync(); err != nil {
			return nil, nil, fmt.Errorf("resume checkpoint: %w", err)
		}
		log.Printf("Review import: resuming interrupted run at page %d", cp.CurrentPage)
		return &counters{
			processed:    cp.Processed,
			created:      cp.Created,
			updated:      cp.Updated,
			skipped:      cp.Skipped,
			failed:       cp.Failed,
			page:         cp.CurrentPage,
			lastRemoteID: cp.LastRemoteID,
		}, cp.RunStartedAt, nil
	}

	if err := r.checkpoints.StartSync(0); err != nil {
		return nil, nil, fmt.Errorf("start checkpoint: %w", err)
	}
	return &counters{}, nil, nil
}

// reconcile applies one remote review to the local catalogue.
func (r *Reconciler) reconcile(ctx context.Context, review *remote.Review, cnt *counters) error {
	matches, err := r.match(review)
	if err != nil {
		return err
	}

	if len(matches) == 0 {
		if err := r.create(ctx, review); err != nil {
			return err
		}
		cnt.created++
		return nil
	}

	touched := false
	for i := range matches {
		book := &matches[i]
		if book.LastSyncedAt != nil && review.DateUpdated != nil &&
			!review.DateUpdated.After(*book.LastSyncedAt) {
			continue
		}
		if err := r.update(book, review); err != nil {
			return err
		}
		touched = true
	}
	if touched {
		cnt.updated++
	} else {
		cnt.skipped++
	}
	return nil
}

// match finds every local row this review refers to: remote book id first,
// then the expanded ISBN variant set.
func (r *Reconciler) match(review *remote.Review) ([]entities.Book, error) {
	if review.BookID != 0 {
		matches, err := r.books.GetByRemoteBookID(review.BookID)
		if err != nil {
			return nil, err
		}
		if len(matches) > 0 {
			return matches, nil
		}
	}

	variants := utils.ISBNVariants(review.ISBNs()...)
	if len(variants) == 0 {
		return nil, nil
	}
	return r.books.GetByISBNs(variants)
}

func (r *Reconciler) create(ctx context.Context, review *remote.Review) error {
	book := &entities.Book{}
	r.apply(book, review)

	authors := make([]entities.Author, 0, len(review.Authors))
	for _, name := range review.Authors {
		author, err := r.books.EnsureAuthor(name)
		if err != nil {
			return err
		}
		authors = append(authors, *author)
	}
	book.Authors = authors

	shelves, err := r.shelves.resolve(review.Shelves)
	if err != nil {
		return err
	}
	book.Shelves = shelves

	now := r.now()
	book.LastSyncedAt = &now
	if err := r.books.Create(book); err != nil {
		return err
	}

	// Covers are fetched on the create path only; an existing row keeps
	// whatever cover it already has.
	if r.covers != nil && review.ImageURL != "" {
		path, err := r.covers.GetCover(ctx, book.ID, review.ImageURL)
		if err != nil {
			log.Printf("Review import: cover fetch for book %d failed: %v", book.ID, err)
		} else if path != "" {
			if err := r.books.SetCoverPath(book.ID, path); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *Reconciler) update(book *entities.Book, review *remote.Review) error {
	r.apply(book, review)

	shelves, err := r.shelves.resolve(review.Shelves)
	if err != nil {
		return err
	}
	book.Shelves = shelves

	if err := r.books.Update(book); err != nil {
		return err
	}
	return r.books.TouchSyncStamps(book.ID, r.now())
}

// apply copies the remote record's fields onto the local row. Empty remote
// fields never erase local data.
func (r *Reconciler) apply(book *entities.Book, review *remote.Review) {
	if review.Title != "" {
		book.Title = review.Title
	}
	if isbn := utils.NormalizeISBN(review.ISBN13); isbn != "" {
		book.ISBN = isbn
	} else if isbn := utils.NormalizeISBN(review.ISBN); isbn != "" {
		book.ISBN = isbn
	}
	book.RemoteBookID = review.BookID
	book.RemoteReviewID = review.ReviewID
	if review.Pages > 0 {
		book.Pages = review.Pages
	}
	if review.Format != "" {
		book.Format = review.Format
	}
	if review.Publisher != "" {
		book.Publisher = review.Publisher
	}
	if review.PublicationYear > 0 {
		book.PublicationYear = review.PublicationYear
		book.PublicationMonth = review.PublicationMonth
		book.PublicationDay = review.PublicationDay
	}
	if review.Rating > 0 {
		book.Rating = review.Rating
	}
	if review.Description != "" {
		book.Description = review.Description
	}
	if review.ReadStart != nil {
		book.ReadStart = review.ReadStart
	}
	if review.ReadEnd != nil {
		book.ReadEnd = review.ReadEnd
	}
	if review.DateAdded != nil {
		book.DateAdded = review.DateAdded
	}
}

func (r *Reconciler) fail(cnt *counters, msg string) {
	r.complete(cnt, entities.SyncStatusFailed, msg)
}

func (r *Reconciler) complete(cnt *counters, status entities.SyncStatus, msg string) {
	if err := r.checkpoints.UpdateImportProgress(
		cnt.processed, cnt.created, cnt.updated, cnt.skipped, cnt.failed,
		cnt.page, cnt.lastRemoteID); err != nil {
		log.Printf("Review import: warning - persist checkpoint: %v", err)
	}
	if err := r.checkpoints.CompleteSync(status, msg); err != nil {
		log.Printf("Review import: warning - complete checkpoint: %v", err)
	}
}
