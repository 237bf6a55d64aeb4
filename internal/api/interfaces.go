// interfaces.go - Handler interface definitions for clean separation of concerns
package api

import (
	"context"
	"io"

	"github.com/labstack/echo/v4"
	"github.com/medreport/viewer/internal/models"
	"github.com/medreport/viewer/internal/session"
)

// PageHandler serves the server-rendered page and its form.
type PageHandler interface {
	HandleIndex(c echo.Context) error
	HandleUploadForm(c echo.Context) error
}

// ReportHandler exposes the page operations as a JSON API.
type ReportHandler interface {
	HandleSelectFile(c echo.Context) error
	HandleSubmit(c echo.Context) error
	HandleState(c echo.Context) error
	HandleViews(c echo.Context) error
	HandleViewsMsgpack(c echo.Context) error
}

// HealthHandler handles health check operations
type HealthHandler interface {
	HandleHealth(c echo.Context) error
}

// StateFeedHandler pushes state snapshots over a websocket.
type StateFeedHandler interface {
	HandleWebSocket(c echo.Context) error
}

// Uploader runs the selectFile and submit operations.
// This allows mocking in tests
type Uploader interface {
	SelectFile(sess *session.Session, name, contentType string, r io.Reader) (*models.FileHandle, error)
	Submit(ctx context.Context, sess *session.Session) models.UploadState
}

// SessionStore resolves browser sessions by cookie value.
type SessionStore interface {
	GetOrCreate(id string) *session.Session
	Count() int
}
