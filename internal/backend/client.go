// Package backend talks to the report summarization service.
package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/medreport/viewer/internal/models"
	"github.com/rs/zerolog"
)

// FileField is the multipart field carrying the report.
const FileField = "file"

// ServerError is a non-2xx reply. Body is the raw response text.
type ServerError struct {
	StatusCode int
	Body       string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("backend returned %d: %s", e.StatusCode, e.Body)
}

// TransportError wraps a failure to reach the backend or read its reply.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("backend unreachable: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// DecodeError is a 2xx reply whose body is not JSON.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decoding backend response: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Client posts report files to the backend upload endpoint.
type Client struct {
	uploadURL  string
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewClient creates a client for uploadURL. A zero timeout keeps the
// transport defaults.
func NewClient(uploadURL string, timeout time.Duration, logger zerolog.Logger) *Client {
	return &Client{
		uploadURL:  uploadURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.With().Str("component", "backend").Logger(),
	}
}

// Upload sends the file as multipart field "file" and decodes the reply.
// Errors are *ServerError, *TransportError or *DecodeError.
func (c *Client) Upload(ctx context.Context, filename string, r io.Reader) (*models.UploadResponse, error) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		part, err := mw.CreateFormFile(FileField, filename)
		if err == nil {
			_, err = io.Copy(part, r)
		}
		if err == nil {
			err = mw.Close()
		}
		pw.CloseWithError(err)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.uploadURL, pr)
	if err != nil {
		pr.Close()
		return nil, &TransportError{Err: err}
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		pr.CloseWithError(err)
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Err: fmt.Errorf("reading response: %w", err)}
	}

	c.logger.Debug().
		Str("file", filename).
		Int("status", resp.StatusCode).
		Dur("latency", time.Since(start)).
		RawJSON("body", jsonOrQuoted(body)).
		Msg("backend response")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &ServerError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var out models.UploadResponse
	if err := json.Unmarshal(body, &out); err != nil {
		if !json.Valid(body) {
			return nil, &DecodeError{Err: err}
		}
		// valid JSON that is not an object carries neither field
		out = models.UploadResponse{}
	}
	return &out, nil
}

// jsonOrQuoted keeps debug log lines valid JSON whatever the backend sent.
func jsonOrQuoted(body []byte) []byte {
	if json.Valid(body) {
		return body
	}
	quoted, _ := json.Marshal(string(body))
	return quoted
}
