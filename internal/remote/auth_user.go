package remote

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/openshelf/shelfsync/internal/xmlfilter"
)

// authUserHandler validates the cached credentials and resolves the account
// id and display name they belong to.
type authUserHandler struct {
	ex      *xmlfilter.Extractor
	exec    *Executor
	baseURL string
}

func newAuthUserHandler(exec *Executor, baseURL string) *authUserHandler {
	ex := xmlfilter.NewExtractor("response", "user").
		LongAttr("id", "id").
		StringField("name", "name")

	return &authUserHandler{ex: ex, exec: exec, baseURL: baseURL}
}

func (h *authUserHandler) Call(ctx context.Context) (*UserInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.baseURL+"/api/auth_user", nil)
	if err != nil {
		return nil, fmt.Errorf("build auth_user request: %w", err)
	}

	var user *UserInfo
	err = h.exec.Execute(ctx, req, func(body io.Reader) error {
		rec, err := h.ex.Parse(body)
		if err != nil {
			return err
		}
		user = &UserInfo{ID: rec.Int64("id"), Name: rec.String("name")}
		return nil
	}, true)
	if err != nil {
		return nil, err
	}
	return user, nil
}
