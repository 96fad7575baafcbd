package remote

import "time"

// UserInfo identifies the authenticated remote account.
type UserInfo struct {
	ID   int64
	Name string
}

// Review is one remote shelved-book record: the user's relationship to one
// book, flattened with the book details the list endpoint embeds.
type Review struct {
	ReviewID int64
	BookID   int64

	ISBN   string
	ISBN13 string
	Title  string

	Authors []string

	Pages            int64
	Format           string
	Publisher        string
	PublicationYear  int
	PublicationMonth int
	PublicationDay   int

	Rating      float64
	Description string

	ImageURL      string
	SmallImageURL string

	ReadStart   *time.Time
	ReadEnd     *time.Time
	DateAdded   *time.Time
	DateUpdated *time.Time

	Shelves []string
}

// ISBNs returns the review's ISBN variants, longest first, for local
// identity matching.
func (r *Review) ISBNs() []string {
	var out []string
	if r.ISBN13 != "" {
		out = append(out, r.ISBN13)
	}
	if r.ISBN != "" && r.ISBN != r.ISBN13 {
		out = append(out, r.ISBN)
	}
	return out
}

// ReviewPage is one page of the paginated review listing, sorted by remote
// update time descending.
type ReviewPage struct {
	Start   int
	End     int
	Total   int
	Reviews []Review
}

// Book is the result of the book-show endpoint.
type Book struct {
	ID               int64
	ISBN             string
	ISBN13           string
	Title            string
	Authors          []string
	Pages            int64
	Format           string
	Publisher        string
	PublicationYear  int
	PublicationMonth int
	PublicationDay   int
	Description      string
	AverageRating    float64
	ImageURL         string
}

// SearchResult is one hit of the free-text search endpoint.
type SearchResult struct {
	WorkID   int64
	BookID   int64
	Title    string
	Author   string
	ImageURL string
}

// ShelfInfo describes one remote bookshelf.
type ShelfInfo struct {
	ID        int64
	Name      string
	Exclusive bool
	BookCount int
}

// ShelfPage is one page of the paginated shelf listing.
type ShelfPage struct {
	Start   int
	End     int
	Total   int
	Shelves []ShelfInfo
}
