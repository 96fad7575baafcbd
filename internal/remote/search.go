package remote

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/openshelf/shelfsync/internal/xmlfilter"
)

// searchHandler runs a free-text query against the remote catalogue.
type searchHandler struct {
	ex      *xmlfilter.Extractor
	exec    *Executor
	baseURL string
}

func newSearchHandler(exec *Executor, baseURL string) *searchHandler {
	ex := xmlfilter.NewExtractor("response", "search").
		Enter("results").AsArray("results").
		Enter("work").AsArrayItem().
		LongField("id", "work_id").
		Enter("best_book").
		LongField("id", "book_id").
		StringField("title", "title").
		StringField("image_url", "image_url").
		Enter("author").
		StringField("name", "author")

	return &searchHandler{ex: ex, exec: exec, baseURL: baseURL}
}

func (h *searchHandler) Call(ctx context.Context, query string) ([]SearchResult, error) {
	form := url.Values{}
	form.Set("q", query)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		h.baseURL+"/search/index.xml", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var results []SearchResult
	err = h.exec.Execute(ctx, req, func(body io.Reader) error {
		rec, err := h.ex.Parse(body)
		if err != nil {
			return err
		}
		for _, r := range rec.Records("results") {
			results = append(results, SearchResult{
				WorkID:   r.Int64("work_id"),
				BookID:   r.Int64("book_id"),
				Title:    r.String("title"),
				Author:   r.String("author"),
				ImageURL: r.String("image_url"),
			})
		}
		return nil
	}, true)
	if err != nil {
		return nil, err
	}
	return results, nil
}
