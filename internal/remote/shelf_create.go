package remote

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/openshelf/shelfsync/internal/xmlfilter"
)

// shelfCreateHandler creates a new bookshelf on the remote service.
type shelfCreateHandler struct {
	ex      *xmlfilter.Extractor
	exec    *Executor
	baseURL string
}

func newShelfCreateHandler(exec *Executor, baseURL string) *shelfCreateHandler {
	ex := xmlfilter.NewExtractor("user_shelf").
		LongField("id", "id").
		StringField("name", "name").
		BooleanField("exclusive_flag", "exclusive")

	return &shelfCreateHandler{ex: ex, exec: exec, baseURL: baseURL}
}

func (h *shelfCreateHandler) Call(ctx context.Context, name string, exclusive bool) (*ShelfInfo, error) {
	form := url.Values{}
	form.Set("user_shelf[name]", name)
	form.Set("user_shelf[exclusive_flag]", strconv.FormatBool(exclusive))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		h.baseURL+"/user_shelves.xml", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build shelf create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var result *ShelfInfo
	err = h.exec.Execute(ctx, req, func(body io.Reader) error {
		rec, err := h.ex.Parse(body)
		if err != nil {
			return err
		}
		result = &ShelfInfo{
			ID:        rec.Int64("id"),
			Name:      rec.String("name"),
			Exclusive: rec.Bool("exclusive"),
		}
		return nil
	}, true)
	if err != nil {
		return nil, err
	}
	return result, nil
}
