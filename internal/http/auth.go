package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/openshelf/shelfsync/internal/remote"
)

// RemoteAuthorizer is the slice of the remote client the auth surface needs.
type RemoteAuthorizer interface {
	RequestAuthorization(ctx context.Context) (string, error)
	HandleAuthentication(ctx context.Context, verifier string) error
	HasValidCredentials(ctx context.Context) bool
	State() remote.AuthState
}

// AuthController drives the OAuth handshake with the remote service.
type AuthController struct {
	auth RemoteAuthorizer
}

// NewAuthController creates a new AuthController.
func NewAuthController(auth RemoteAuthorizer) *AuthController {
	return &AuthController{auth: auth}
}

// State reports where the OAuth handshake currently stands.
func (a *AuthController) State() remote.AuthState {
	return a.auth.State()
}

// Authorize handles GET /auth/authorize.
// Obtains a request token and returns the URL the user must visit to grant
// access; the remote service redirects back to /auth/callback afterwards.
func (a *AuthController) Authorize(c *gin.Context) {
	authURL, err := a.auth.RequestAuthorization(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"authorization_url": authURL,
		"state":             a.auth.State(),
	})
}

// Callback handles GET /auth/callback.
// Receives the verifier after the user granted access and exchanges it for
// an access token.
func (a *AuthController) Callback(c *gin.Context) {
	verifier := c.Query("oauth_verifier")
	if verifier == "" {
		// The remote service omits the verifier when the user denied
		// the grant.
		if c.Query("authorize") == "0" {
			c.JSON(http.StatusOK, gin.H{"state": a.auth.State(), "granted": false})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "oauth_verifier is required"})
		return
	}

	if err := a.auth.HandleAuthentication(c.Request.Context(), verifier); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	validated := a.auth.HasValidCredentials(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{
		"state":     a.auth.State(),
		"granted":   true,
		"validated": validated,
	})
}
