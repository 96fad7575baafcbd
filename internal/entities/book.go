package entities

import (
	"time"
)

type ReadStatus string

const (
	ReadStatusToRead  ReadStatus = "to-read"
	ReadStatusReading ReadStatus = "currently-reading"
	ReadStatusRead    ReadStatus = "read"
)

type Author struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"uniqueIndex;size:256" json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type Shelf struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"uniqueIndex;size:100" json:"name"` // canonical form, e.g. "to-read"
	DisplayName string    `gorm:"size:100" json:"display_name"`     // e.g. "To Read"
	IsExclusive bool      `json:"is_exclusive"`
	CreatedAt   time.Time `json:"created_at"`
}

type Book struct {
	ID     uint   `gorm:"primaryKey" json:"id"`
	Title  string `gorm:"index;size:512" json:"title"`
	ISBN   string `gorm:"index;size:13" json:"isbn"`
	Series string `gorm:"size:256" json:"series,omitempty"`

	// Identity on the remote cataloguing service. Zero means never matched.
	RemoteBookID   int64 `gorm:"index" json:"remote_book_id,omitempty"`
	RemoteReviewID int64 `json:"remote_review_id,omitempty"`

	Pages            int64   `json:"pages,omitempty"`
	Format           string  `gorm:"size:50" json:"format,omitempty"`
	Publisher        string  `gorm:"size:256" json:"publisher,omitempty"`
	PublicationYear  int     `json:"publication_year,omitempty"`
	PublicationMonth int     `json:"publication_month,omitempty"`
	PublicationDay   int     `json:"publication_day,omitempty"`
	Rating           float64 `json:"rating,omitempty"`
	Description      string  `gorm:"type:text" json:"description,omitempty"`
	CoverPath        string  `gorm:"size:512" json:"cover_path,omitempty"`

	ReadStart *time.Time `json:"read_start,omitempty"`
	ReadEnd   *time.Time `json:"read_end,omitempty"`
	DateAdded *time.Time `json:"date_added,omitempty"`

	Authors []Author `gorm:"many2many:book_authors" json:"authors,omitempty"`
	Shelves []Shelf  `gorm:"many2many:book_shelves" json:"shelves,omitempty"`

	// LastSyncedAt records the most recent reconciliation against the remote
	// service. A remote update older than this stamp must not overwrite the row.
	LastSyncedAt *time.Time `json:"last_synced_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasISBN reports whether the book carries a usable ISBN.
func (b *Book) HasISBN() bool {
	return b.ISBN != ""
}
