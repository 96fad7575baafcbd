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

// shelfListHandler fetches one page of the user's bookshelves.
type shelfListHandler struct {
	ex      *xmlfilter.Extractor
	exec    *Executor
	baseURL string
}

func newShelfListHandler(exec *Executor, baseURL string) *shelfListHandler {
	ex := xmlfilter.NewExtractor("response").
		Enter("shelves").
		LongAttr("start", "start").
		LongAttr("end", "end").
		LongAttr("total", "total").
		AsArray("shelves").
		Enter("user_shelf").AsArrayItem().
		LongField("id", "id").
		StringField("name", "name").
		BooleanField("exclusive_flag", "exclusive").
		LongField("book_count", "book_count")

	return &shelfListHandler{ex: ex, exec: exec, baseURL: baseURL}
}

func (h *shelfListHandler) Call(ctx context.Context, userID int64, page int) (*ShelfPage, error) {
	q := url.Values{}
	q.Set("user_id", strconv.FormatInt(userID, 10))
	q.Set("page", strconv.Itoa(page))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		h.baseURL+"/shelf/list.xml?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build shelf list request: %w", err)
	}

	var result *ShelfPage
	err = h.exec.Execute(ctx, req, func(body io.Reader) error {
		rec, err := h.ex.Parse(body)
		if err != nil {
			return err
		}
		result = &ShelfPage{
			Start: int(rec.Int64("start")),
			End:   int(rec.Int64("end")),
			Total: int(rec.Int64("total")),
		}
		for _, s := range rec.Records("shelves") {
			result.Shelves = append(result.Shelves, ShelfInfo{
				ID:        s.Int64("id"),
				Name:      s.String("name"),
				Exclusive: s.Bool("exclusive"),
				BookCount: int(s.Int64("book_count")),
			})
		}
		return nil
	}, true)
	if err != nil {
		return nil, err
	}
	return result, nil
}
