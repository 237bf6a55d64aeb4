package api

import (
	"errors"
	"mime/multipart"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/medreport/viewer/internal/models"
	"github.com/medreport/viewer/internal/summary"
	"github.com/medreport/viewer/internal/web"
)

// FileField is the multipart field carrying the report on both upload forms.
const FileField = "file"

// Views is the derived, render-ready form of a session state.
type Views struct {
	File    *models.FileHandle    `json:"file" msgpack:"file"`
	Error   string                `json:"error" msgpack:"error"`
	Patient []summary.PatientLine `json:"patient" msgpack:"patient"`
	Doctor  summary.DoctorSummary `json:"doctor" msgpack:"doctor"`
}

// Snapshot is what the state feed pushes after every transition.
type Snapshot struct {
	State models.UploadState `json:"state"`
	Views Views              `json:"views"`
}

// Handler serves the page, the JSON API and the state feed.
type Handler struct {
	uploads Uploader
	logger  zerolog.Logger
}

// NewHandler creates a new handler.
func NewHandler(uploads Uploader, logger zerolog.Logger) *Handler {
	return &Handler{
		uploads: uploads,
		logger:  logger.With().Str("component", "api").Logger(),
	}
}

// deriveViews computes both views and logs a lab block that failed to parse.
func (h *Handler) deriveViews(sessionID string, state models.UploadState) Views {
	doctor := summary.DoctorLabs(state.DoctorView)
	if doctor.Err != nil {
		h.logger.Warn().Err(doctor.Err).Str("session", sessionID).Msg("lab results unparseable")
	}
	return Views{
		File:    state.File,
		Error:   state.Error,
		Patient: summary.PatientLines(state.PatientView),
		Doctor:  doctor,
	}
}

// HandleIndex renders the page for the caller's session.
func (h *Handler) HandleIndex(c echo.Context) error {
	sess, err := sessionFrom(c)
	if err != nil {
		return err
	}

	page := web.NewPage(sess.State())
	if page.Doctor.Err != nil {
		h.logger.Warn().Err(page.Doctor.Err).Str("session", sess.ID).Msg("lab results unparseable")
	}
	return c.Render(http.StatusOK, web.IndexTemplate, page)
}

// HandleUploadForm selects the posted file, if any, submits the session's
// selection and redirects back to the page.
func (h *Handler) HandleUploadForm(c echo.Context) error {
	sess, err := sessionFrom(c)
	if err != nil {
		return err
	}

	fh, err := c.FormFile(FileField)
	switch {
	case err == nil:
		if _, err := h.selectFile(c, fh); err != nil {
			return err
		}
	case errors.Is(err, http.ErrMissingFile):
	default:
		return NewBadRequestError("invalid upload form", err)
	}

	h.uploads.Submit(c.Request().Context(), sess)
	return c.Redirect(http.StatusSeeOther, "/")
}

// HandleSelectFile stores the posted file as the session's selection.
func (h *Handler) HandleSelectFile(c echo.Context) error {
	fh, err := c.FormFile(FileField)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return NewValidationError(FileField)
		}
		return NewBadRequestError("invalid upload form", err)
	}

	file, err := h.selectFile(c, fh)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, file)
}

func (h *Handler) selectFile(c echo.Context, fh *multipart.FileHeader) (*models.FileHandle, error) {
	sess, err := sessionFrom(c)
	if err != nil {
		return nil, err
	}

	src, err := fh.Open()
	if err != nil {
		return nil, NewBadRequestError("failed to read uploaded file", err)
	}
	defer src.Close()

	file, err := h.uploads.SelectFile(sess, fh.Filename, fh.Header.Get(echo.HeaderContentType), src)
	if err != nil {
		return nil, NewInternalError("failed to store file", err)
	}
	return file, nil
}

// HandleSubmit sends the selected file to the backend and returns the
// resulting state. Submit failures are part of the state, not HTTP errors.
func (h *Handler) HandleSubmit(c echo.Context) error {
	sess, err := sessionFrom(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, h.uploads.Submit(c.Request().Context(), sess))
}

// HandleState returns the current UploadState.
func (h *Handler) HandleState(c echo.Context) error {
	sess, err := sessionFrom(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, sess.State())
}

// HandleViews returns the derived views as JSON.
func (h *Handler) HandleViews(c echo.Context) error {
	sess, err := sessionFrom(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, h.deriveViews(sess.ID, sess.State()))
}

// HandleViewsMsgpack returns the derived views msgpack encoded.
func (h *Handler) HandleViewsMsgpack(c echo.Context) error {
	sess, err := sessionFrom(c)
	if err != nil {
		return err
	}

	data, err := msgpack.Marshal(h.deriveViews(sess.ID, sess.State()))
	if err != nil {
		return NewInternalError("failed to encode views", err)
	}
	return c.Blob(http.StatusOK, "application/x-msgpack", data)
}
