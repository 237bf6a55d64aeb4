// Package upload implements the two user operations of the viewer:
// selecting a report file and submitting it to the summarization backend.
package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/medreport/viewer/internal/backend"
	"github.com/medreport/viewer/internal/models"
	"github.com/medreport/viewer/internal/session"
	"github.com/rs/zerolog"
)

// MsgFileUnavailable is shown when the selected file's bytes are gone, e.g.
// after a restart wiped the uploads directory.
const MsgFileUnavailable = "Selected file is no longer available. Please select it again."

// Backend sends a report file to the summarization service.
type Backend interface {
	Upload(ctx context.Context, filename string, r io.Reader) (*models.UploadResponse, error)
}

// Store defines the interface needed from storage layer.
type Store interface {
	Save(name, contentType string, r io.Reader) (*models.FileHandle, error)
	Open(id string) (io.ReadCloser, error)
	Delete(id string) error
}

// Manager runs selectFile and submit against a session.
type Manager struct {
	backend Backend
	store   Store
	logger  zerolog.Logger

	// mu orders selection swaps against submits reading the selection.
	mu sync.Mutex
	// pins counts in-flight submits per file id; retired marks files
	// released while pinned, deleted when the last submit finishes.
	pins    map[string]int
	retired map[string]bool
}

// NewManager creates a new upload manager.
func NewManager(b Backend, store Store, logger zerolog.Logger) *Manager {
	return &Manager{
		backend: b,
		store:   store,
		logger:  logger.With().Str("component", "upload").Logger(),
		pins:    make(map[string]int),
		retired: make(map[string]bool),
	}
}

// SelectFile stores the file and makes it the session's selection. The
// previously selected file, if any, is released. Prior results stay.
func (m *Manager) SelectFile(sess *session.Session, name, contentType string, r io.Reader) (*models.FileHandle, error) {
	file, err := m.store.Save(name, contentType, r)
	if err != nil {
		return nil, fmt.Errorf("storing selected file: %w", err)
	}

	m.mu.Lock()
	before, _, _ := sess.Apply(session.FileSelected(file))
	m.mu.Unlock()

	if previous := before.File; previous != nil && previous.ID != file.ID {
		m.Release(previous)
	}

	m.logger.Debug().
		Str("session", sess.ID).
		Str("file", file.Name).
		Int64("size", file.Size).
		Msg("file selected")
	return file, nil
}

// Submit posts the selected file to the backend and records the outcome in
// the session. Every failure lands in the session's error field; the
// returned state is the one after this submit's outcome was dispatched.
func (m *Manager) Submit(ctx context.Context, sess *session.Session) models.UploadState {
	file := m.pinSelection(sess)
	if file == nil {
		state, _ := sess.Dispatch(session.SubmitRejected(session.MsgNoFile))
		return state
	}
	defer m.unpin(file.ID)

	gen := sess.BeginSubmit()
	log := m.logger.With().Str("session", sess.ID).Str("file", file.Name).Uint64("generation", gen).Logger()

	src, err := m.store.Open(file.ID)
	if err != nil {
		log.Warn().Err(err).Msg("selected file unavailable")
		state, _ := sess.Dispatch(session.SubmitFailed(gen, MsgFileUnavailable))
		return state
	}
	defer src.Close()

	resp, err := m.backend.Upload(ctx, file.Name, src)
	if err != nil {
		state, applied := sess.Dispatch(session.SubmitFailed(gen, m.failureMessage(log, err)))
		if !applied {
			log.Debug().Msg("discarded outcome of superseded submit")
		}
		return state
	}

	state, applied := sess.Dispatch(session.SubmitSucceeded(gen, resp))
	if !applied {
		log.Debug().Msg("discarded outcome of superseded submit")
	}
	return state
}

// Release deletes a file that is no longer selected by any session. A file
// still being read by a submit is deleted when that submit finishes.
func (m *Manager) Release(file *models.FileHandle) {
	if file == nil {
		return
	}

	m.mu.Lock()
	if m.pins[file.ID] > 0 {
		m.retired[file.ID] = true
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()

	m.delete(file.ID)
}

// pinSelection reads the session's file and pins it in one step, so a
// concurrent SelectFile cannot delete it before it is opened.
func (m *Manager) pinSelection(sess *session.Session) *models.FileHandle {
	m.mu.Lock()
	defer m.mu.Unlock()

	file := sess.State().File
	if file != nil {
		m.pins[file.ID]++
	}
	return file
}

func (m *Manager) unpin(id string) {
	m.mu.Lock()
	m.pins[id]--
	var retire bool
	if m.pins[id] <= 0 {
		delete(m.pins, id)
		retire = m.retired[id]
		delete(m.retired, id)
	}
	m.mu.Unlock()

	if retire {
		m.delete(id)
	}
}

func (m *Manager) delete(id string) {
	if err := m.store.Delete(id); err != nil {
		m.logger.Debug().Err(err).Str("file", id).Msg("release selected file")
	}
}

// failureMessage maps a backend error to the banner text. Only server
// errors expose details to the user; everything else is logged.
func (m *Manager) failureMessage(log zerolog.Logger, err error) string {
	var serverErr *backend.ServerError
	if errors.As(err, &serverErr) {
		log.Warn().Int("status", serverErr.StatusCode).Msg("backend rejected upload")
		return session.MsgServerErrorPrefix + serverErr.Body
	}

	log.Error().Err(err).Msg("upload failed")
	return session.MsgBackendFailure
}
