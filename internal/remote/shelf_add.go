package remote

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// shelfAddHandler shelves a book on the remote service. The response body
// carries nothing the caller needs, so success is the 200/201 itself.
type shelfAddHandler struct {
	exec    *Executor
	baseURL string
}

func newShelfAddHandler(exec *Executor, baseURL string) *shelfAddHandler {
	return &shelfAddHandler{exec: exec, baseURL: baseURL}
}

func (h *shelfAddHandler) Call(ctx context.Context, bookID int64, shelfName string) error {
	form := url.Values{}
	form.Set("book_id", strconv.FormatInt(bookID, 10))
	form.Set("name", shelfName)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		h.baseURL+"/shelf/add_to_shelf.xml", strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build shelf add request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	return h.exec.Execute(ctx, req, nil, true)
}
