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

// DefaultReviewPageSize is the page size used by the import engine.
const DefaultReviewPageSize = 50

// listReviewsHandler fetches one page of the user's reviews, sorted by
// remote update time descending. The import engine relies on that ordering
// for its early-stop optimization.
type listReviewsHandler struct {
	ex      *xmlfilter.Extractor
	exec    *Executor
	baseURL string
}

func newListReviewsHandler(exec *Executor, baseURL string) *listReviewsHandler {
	ex := xmlfilter.NewExtractor("response").
		Enter("reviews").
		LongAttr("start", "start").
		LongAttr("end", "end").
		LongAttr("total", "total").
		AsArray("reviews").
		Enter("review").AsArrayItem().
		LongField("id", "review_id").
		DoubleField("rating", "rating").
		StringField("started_at", "read_start").OnEnd(normalizeDate("read_start")).
		StringField("read_at", "read_end").OnEnd(normalizeDate("read_end")).
		StringField("date_added", "date_added").OnEnd(normalizeDate("date_added")).
		StringField("date_updated", "date_updated").OnEnd(normalizeDate("date_updated")).
		Enter("book").
		LongField("id", "book_id").
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
		StringField("small_image_url", "small_image_url").
		Enter("authors").AsArray("authors").
		Enter("author").AsArrayItem().
		StringField("name", "name").
		LeaveTo("review").
		Enter("shelves").AsArray("shelves").
		Enter("shelf").AsArrayItem().
		StringAttr("name", "name").
		BooleanAttr("exclusive", "exclusive")

	return &listReviewsHandler{ex: ex, exec: exec, baseURL: baseURL}
}

func (h *listReviewsHandler) Call(ctx context.Context, userID int64, page, perPage int) (*ReviewPage, error) {
	q := url.Values{}
	q.Set("v", "2")
	q.Set("id", strconv.FormatInt(userID, 10))
	q.Set("page", strconv.Itoa(page))
	q.Set("per_page", strconv.Itoa(perPage))
	q.Set("sort", "date_updated")
	q.Set("order", "d")
	q.Set("shelf", "all")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		h.baseURL+"/review/list.xml?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build review list request: %w", err)
	}

	var result *ReviewPage
	err = h.exec.Execute(ctx, req, func(body io.Reader) error {
		rec, err := h.ex.Parse(body)
		if err != nil {
			return err
		}
		result = reviewPageFromRecord(rec)
		return nil
	}, true)
	if err != nil {
		return nil, err
	}
	return result, nil
}

func reviewPageFromRecord(rec xmlfilter.Record) *ReviewPage {
	page := &ReviewPage{
		Start: int(rec.Int64("start")),
		End:   int(rec.Int64("end")),
		Total: int(rec.Int64("total")),
	}
	for _, r := range rec.Records("reviews") {
		page.Reviews = append(page.Reviews, reviewFromRecord(r))
	}
	return page
}

func reviewFromRecord(rec xmlfilter.Record) Review {
	return Review{
		ReviewID:         rec.Int64("review_id"),
		BookID:           rec.Int64("book_id"),
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
		Rating:           rec.Float64("rating"),
		Description:      rec.String("description"),
		ImageURL:         rec.String("image_url"),
		SmallImageURL:    rec.String("small_image_url"),
		ReadStart:        fieldTime(rec, "read_start"),
		ReadEnd:          fieldTime(rec, "read_end"),
		DateAdded:        fieldTime(rec, "date_added"),
		DateUpdated:      fieldTime(rec, "date_updated"),
		Shelves:          rec.Strings("shelves", "name"),
	}
}
