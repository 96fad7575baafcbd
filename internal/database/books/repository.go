// Package books provides the catalogue repository consumed by the import
// and export engines.
package books

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/openshelf/shelfsync/internal/entities"
)

// Repository handles all book, author and shelf database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new books repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// GetByID retrieves a book with its authors and shelves.
func (r *Repository) GetByID(id uint) (*entities.Book, error) {
	var book entities.Book
	err := r.db.Preload("Authors").Preload("Shelves").First(&book, id).Error
	if err != nil {
		return nil, err
	}
	return &book, nil
}

// GetByRemoteBookID returns every local row carrying the given remote book
// id. The catalogue is only loosely deduplicated, so more than one match is
// legitimate and all of them must be returned.
func (r *Repository) GetByRemoteBookID(remoteID int64) ([]entities.Book, error) {
	var matches []entities.Book
	err := r.db.Preload("Authors").Preload("Shelves").
		Where("remote_book_id = ?", remoteID).
		Find(&matches).Error
	if err != nil {
		return nil, fmt.Errorf("lookup by remote book id %d: %w", remoteID, err)
	}
	return matches, nil
}

// GetByISBNs returns every local row whose ISBN is in the given variant set.
func (r *Repository) GetByISBNs(isbns []string) ([]entities.Book, error) {
	if len(isbns) == 0 {
		return nil, nil
	}
	var matches []entities.Book
	err := r.db.Preload("Authors").Preload("Shelves").
		Where("isbn IN ?", isbns).
		Find(&matches).Error
	if err != nil {
		return nil, fmt.Errorf("lookup by isbns %v: %w", isbns, err)
	}
	return matches, nil
}

// ListAll returns the catalogue ordered by id. Rows at or below afterID are
// skipped so a checkpointed export resumes where it stopped.
func (r *Repository) ListAll(afterID uint) ([]entities.Book, error) {
	var all []entities.Book
	err := r.db.Preload("Authors").Preload("Shelves").
		Where("id > ?", afterID).
		Order("id ASC").
		Find(&all).Error
	if err != nil {
		return nil, fmt.Errorf("list catalogue: %w", err)
	}
	return all, nil
}

// Create inserts a new book together with its author and shelf links.
func (r *Repository) Create(book *entities.Book) error {
	if err := r.db.Create(book).Error; err != nil {
		return fmt.Errorf("create book %q: %w", book.Title, err)
	}
	return nil
}

// Update saves the book's scalar fields and replaces its shelf assignments.
func (r *Repository) Update(book *entities.Book) error {
	if err := r.db.Save(book).Error; err != nil {
		return fmt.Errorf("update book %d: %w", book.ID, err)
	}
	if book.Shelves != nil {
		if err := r.db.Model(book).Association("Shelves").Replace(book.Shelves); err != nil {
			return fmt.Errorf("replace shelves for book %d: %w", book.ID, err)
		}
	}
	return nil
}

// TouchSyncStamps marks the book as just reconciled: both the sync stamp and
// the row's own update stamp are set to now.
func (r *Repository) TouchSyncStamps(bookID uint, now time.Time) error {
	err := r.db.Model(&entities.Book{}).
		Where("id = ?", bookID).
		Updates(map[string]any{
			"last_synced_at": now,
			"updated_at":     now,
		}).Error
	if err != nil {
		return fmt.Errorf("touch sync stamps for book %d: %w", bookID, err)
	}
	return nil
}

// SetCoverPath records where the cached cover image of a book lives.
func (r *Repository) SetCoverPath(bookID uint, path string) error {
	err := r.db.Model(&entities.Book{}).
		Where("id = ?", bookID).
		Update("cover_path", path).Error
	if err != nil {
		return fmt.Errorf("set cover path for book %d: %w", bookID, err)
	}
	return nil
}

// EnsureAuthor returns the author row with the given name, creating it when
// missing.
func (r *Repository) EnsureAuthor(name string) (*entities.Author, error) {
	author := entities.Author{Name: name}
	err := r.db.Where("name = ?", name).FirstOrCreate(&author).Error
	if err != nil {
		return nil, fmt.Errorf("ensure author %q: %w", name, err)
	}
	return &author, nil
}

// EnsureShelf returns the shelf with the given canonical name, creating a
// non-exclusive one when missing.
func (r *Repository) EnsureShelf(name string) (*entities.Shelf, error) {
	shelf := entities.Shelf{Name: name, DisplayName: name}
	err := r.db.Where("name = ?", name).FirstOrCreate(&shelf).Error
	if err != nil {
		return nil, fmt.Errorf("ensure shelf %q: %w", name, err)
	}
	return &shelf, nil
}

// ListShelves returns every known shelf.
func (r *Repository) ListShelves() ([]entities.Shelf, error) {
	var shelves []entities.Shelf
	if err := r.db.Order("name ASC").Find(&shelves).Error; err != nil {
		return nil, fmt.Errorf("list shelves: %w", err)
	}
	return shelves, nil
}

// ListAuthors returns every known author.
func (r *Repository) ListAuthors() ([]entities.Author, error) {
	var authors []entities.Author
	if err := r.db.Order("name ASC").Find(&authors).Error; err != nil {
		return nil, fmt.Errorf("list authors: %w", err)
	}
	return authors, nil
}

// ListSeries returns the distinct non-empty series names in the catalogue.
func (r *Repository) ListSeries() ([]string, error) {
	var series []string
	err := r.db.Model(&entities.Book{}).
		Where("series <> ''").
		Distinct().
		Order("series ASC").
		Pluck("series", &series).Error
	if err != nil {
		return nil, fmt.Errorf("list series: %w", err)
	}
	return series, nil
}

// Count returns the catalogue size.
func (r *Repository) Count() (int64, error) {
	var n int64
	if err := r.db.Model(&entities.Book{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count books: %w", err)
	}
	return n, nil
}
