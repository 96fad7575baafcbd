package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openshelf/shelfsync/internal/remote"
)

type fakeAuthorizer struct {
	authURL   string
	authErr   error
	verifiers []string
	valid     bool
	state     remote.AuthState
}

func (f *fakeAuthorizer) RequestAuthorization(context.Context) (string, error) {
	return f.authURL, f.authErr
}

func (f *fakeAuthorizer) HandleAuthentication(_ context.Context, verifier string) error {
	f.verifiers = append(f.verifiers, verifier)
	f.state = remote.StateAccessToken
	return nil
}

func (f *fakeAuthorizer) HasValidCredentials(context.Context) bool { return f.valid }
func (f *fakeAuthorizer) State() remote.AuthState                  { return f.state }

func setupAuthRouter(auth RemoteAuthorizer) *gin.Engine {
	gin.SetMode(gin.TestMode)
	controller := NewAuthController(auth)

	router := gin.New()
	router.GET("/auth/authorize", controller.Authorize)
	router.GET("/auth/callback", controller.Callback)
	return router
}

func TestAuthorize_ReturnsGrantURL(t *testing.T) {
	auth := &fakeAuthorizer{
		authURL: "https://example.com/oauth/authorize?oauth_token=req",
		state:   remote.StateAwaitingGrant,
	}
	router := setupAuthRouter(auth)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/auth/authorize", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, auth.authURL, resp["authorization_url"])
	assert.Equal(t, string(remote.StateAwaitingGrant), resp["state"])
}

func TestAuthorize_GatewayErrorOnFailure(t *testing.T) {
	auth := &fakeAuthorizer{authErr: fmt.Errorf("request token refused")}
	router := setupAuthRouter(auth)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/auth/authorize", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestCallback_ExchangesVerifier(t *testing.T) {
	auth := &fakeAuthorizer{valid: true, state: remote.StateAwaitingGrant}
	router := setupAuthRouter(auth)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/auth/callback?oauth_token=req&oauth_verifier=ver123", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"ver123"}, auth.verifiers)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, true, resp["granted"])
	assert.Equal(t, true, resp["validated"])
}

func TestCallback_MissingVerifier(t *testing.T) {
	auth := &fakeAuthorizer{}
	router := setupAuthRouter(auth)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/auth/callback", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, auth.verifiers)
}

func TestCallback_DeniedGrant(t *testing.T) {
	auth := &fakeAuthorizer{state: remote.StateAwaitingGrant}
	router := setupAuthRouter(auth)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/auth/callback?authorize=0", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, false, resp["granted"])
	assert.Empty(t, auth.verifiers)
}
