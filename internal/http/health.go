package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/openshelf/shelfsync/internal/database"
	"github.com/openshelf/shelfsync/internal/remote"
)

// AuthStateReporter exposes the OAuth handshake state for the health payload.
type AuthStateReporter interface {
	State() remote.AuthState
}

type HealthResponse struct {
	Status  string            `json:"status"`
	Time    string            `json:"time"`
	Version string            `json:"version,omitempty"`
	Checks  map[string]string `json:"checks"`
}

type HealthController struct {
	db      *database.Database
	auth    AuthStateReporter
	version string
}

func NewHealthController(db *database.Database, auth AuthStateReporter, version string) *HealthController {
	return &HealthController{
		db:      db,
		auth:    auth,
		version: version,
	}
}

func (h *HealthController) Status(c *gin.Context) {
	checks := make(map[string]string)
	status := "healthy"

	if h.db != nil {
		sqlDB, err := h.db.DB.DB()
		if err != nil {
			checks["database"] = "error: " + err.Error()
			status = "unhealthy"
		} else if err := sqlDB.Ping(); err != nil {
			checks["database"] = "error: " + err.Error()
			status = "unhealthy"
		} else {
			checks["database"] = "ok"
		}
	} else {
		checks["database"] = "not configured"
	}

	// Informational only: an unauthorized service is still a healthy one,
	// it just cannot sync until the handshake completes.
	if h.auth != nil {
		checks["remote_auth"] = string(h.auth.State())
	}

	health := HealthResponse{
		Status:  status,
		Time:    time.Now().Format(time.RFC3339),
		Version: h.version,
		Checks:  checks,
	}

	statusCode := http.StatusOK
	if status != "healthy" {
		statusCode = http.StatusServiceUnavailable
	}

	c.IndentedJSON(statusCode, health)
}
