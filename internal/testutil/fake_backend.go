package testutil

import (
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// SampleResponse is a typical successful reply of the summarization backend.
const SampleResponse = `{"patient_view": "Cholesterol: 250 ⚠️|Glucose: 90", "doctor_view": {"response": "Results: {\"labs\":[{\"test\":\"Cholesterol\",\"value\":250,\"unit\":\"mg/dL\",\"status\":\"Abnormal\"}]}"}}`

// ReceivedUpload is one request seen by FakeBackend.
type ReceivedUpload struct {
	Method      string
	Path        string
	ContentType string
	Field       string
	Filename    string
	Content     []byte
}

// Responder decides the reply to the n-th upload (0-based).
type Responder func(n int, up ReceivedUpload) (status int, body string)

// FakeBackend is an httptest server standing in for POST /upload.
type FakeBackend struct {
	Server *httptest.Server

	mu        sync.Mutex
	requests  []ReceivedUpload
	responder Responder
}

// NewFakeBackend starts a backend answering every upload with SampleResponse.
// The server is closed when the test ends.
func NewFakeBackend(t testing.TB) *FakeBackend {
	t.Helper()
	f := &FakeBackend{}
	f.Respond(http.StatusOK, SampleResponse)
	f.Server = httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(f.Server.Close)
	return f
}

// UploadURL is the endpoint clients should post to.
func (f *FakeBackend) UploadURL() string {
	return f.Server.URL + "/upload"
}

// Respond makes every later upload return status and body.
func (f *FakeBackend) Respond(status int, body string) {
	f.RespondWith(func(int, ReceivedUpload) (int, string) { return status, body })
}

// RespondWith installs a custom responder.
func (f *FakeBackend) RespondWith(r Responder) {
	f.mu.Lock()
	f.responder = r
	f.mu.Unlock()
}

// Requests returns the uploads received so far.
func (f *FakeBackend) Requests() []ReceivedUpload {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]ReceivedUpload(nil), f.requests...)
}

func (f *FakeBackend) handle(w http.ResponseWriter, r *http.Request) {
	up := ReceivedUpload{
		Method:      r.Method,
		Path:        r.URL.Path,
		ContentType: r.Header.Get("Content-Type"),
	}

	if err := r.ParseMultipartForm(32 << 20); err == nil {
		for field, headers := range r.MultipartForm.File {
			if len(headers) == 0 {
				continue
			}
			up.Field = field
			up.Filename = headers[0].Filename
			if src, err := headers[0].Open(); err == nil {
				up.Content, _ = io.ReadAll(src)
				src.Close()
			}
			break
		}
	}

	f.mu.Lock()
	n := len(f.requests)
	f.requests = append(f.requests, up)
	responder := f.responder
	f.mu.Unlock()

	status, body := responder(n, up)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	io.WriteString(w, body)
}
