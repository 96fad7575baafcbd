package remote

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/openshelf/shelfsync/internal/xmlfilter"
)

// showBookHandler fetches full book details, either by remote id or by ISBN.
type showBookHandler struct {
	ex      *xmlfilter.Extractor
	exec    *Executor
	baseURL string
}

func newShowBookHandler(exec *Executor, baseURL string) *showBookHandler {
	ex := xmlfilter.NewExtractor("response", "book").
		LongField("id", "id").
		StringField("isbn", "isbn").
		StringField("isbn13", "isbn13").
		StringField("title", "title").
		LongField("num_pages", "pages").
		StringField("format", "format").
		StringField("publisher", "publisher").
		LongField("publication_year", "publication_year").
		LongField("publication_month", "publication_month").
		LongField("publication_day", "publication_day").
		StringField("description", "description").
		StringField("image_url", "image_url").
		DoubleField("average_rating", "average_rating").
		Enter("authors").AsArray("authors").
		Enter("author").AsArrayItem().
		StringField("name", "name")

	return &showBookHandler{ex: ex, exec: exec, baseURL: baseURL}
}

func (h *showBookHandler) CallByID(ctx context.Context, bookID int64) (*Book, error) {
	return h.call(ctx, h.baseURL+"/book/show/"+strconv.FormatInt(bookID, 10)+".xml")
}

func (h *showBookHandler) CallByISBN(ctx context.Context, isbn string) (*Book, error) {
	return h.call(ctx, h.baseURL+"/book/isbn/"+url.PathEscape(isbn)+".xml")
}

func (h *showBookHandler) call(ctx context.Context, endpoint string) (*Book, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build book show request: %w", err)
	}

	var book *Book
	err = h.exec.Execute(ctx, req, func(body io.Reader) error {
		rec, err := h.ex.Parse(body)
		if err != nil {
			return err
		}
		book = &Book{
			ID:               rec.Int64("id"),
			ISBN:             rec.String("isbn"),
			ISBN13:           rec.String("isbn13"),
			Title:            rec.String("title"),
			Authors:          rec.Strings("authors", "name"),
			Pages:            rec.Int64("pages"),
			Format:           rec.String("format"),
			Publisher:        rec.String("publisher"),
			PublicationYear:  int(rec.Int64("publication_year")),
			PublicationMonth: int(rec.Int64("publication_month")),
			PublicationDay:   int(rec.Int64("publication_day")),
			Description:      rec.String("description"),
			AverageRating:    rec.Float64("average_rating"),
			ImageURL:         rec.String("image_url"),
		}
		return nil
	}, true)
	if err != nil {
		return nil, err
	}
	return book, nil
}
