package remote

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// isbnToIDHandler resolves an ISBN to the remote numeric book id. Unlike the
// XML endpoints the response body is the bare id as plain text.
type isbnToIDHandler struct {
	exec    *Executor
	baseURL string
}

func newIsbnToIDHandler(exec *Executor, baseURL string) *isbnToIDHandler {
	return &isbnToIDHandler{exec: exec, baseURL: baseURL}
}

func (h *isbnToIDHandler) Call(ctx context.Context, isbn string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		h.baseURL+"/book/isbn_to_id/"+url.PathEscape(isbn), nil)
	if err != nil {
		return 0, fmt.Errorf("build isbn_to_id request: %w", err)
	}

	body, err := h.exec.ExecuteRaw(ctx, req, true)
	if err != nil {
		return 0, err
	}

	id, err := strconv.ParseInt(strings.TrimSpace(body), 10, 64)
	if err != nil {
		return 0, &ParseError{Err: fmt.Errorf("non-numeric isbn_to_id body %q", body)}
	}
	return id, nil
}
