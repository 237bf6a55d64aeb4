// handlers_health.go - Health check handlers
package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/medreport/viewer/internal/models"
)

// HealthHandlerImpl implements the HealthHandler interface
type HealthHandlerImpl struct {
	version  string
	sessions SessionCounter
	files    FileLister
}

// SessionCounter reports how many browser sessions are live.
type SessionCounter interface {
	Count() int
}

// FileLister lists the report files currently held for sessions.
type FileLister interface {
	List(limit int) ([]*models.FileHandle, error)
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(version string, sessions SessionCounter, files FileLister) HealthHandler {
	return &HealthHandlerImpl{
		version:  version,
		sessions: sessions,
		files:    files,
	}
}

// HandleHealth returns server health status
func (h *HealthHandlerImpl) HandleHealth(c echo.Context) error {
	stored, err := h.files.List(0)
	if err != nil {
		return NewInternalError("failed to list stored files", err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":      "ok",
		"version":     h.version,
		"sessions":    h.sessions.Count(),
		"storedFiles": len(stored),
	})
}
