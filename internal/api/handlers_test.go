package api

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/medreport/viewer/internal/backend"
	"github.com/medreport/viewer/internal/models"
	"github.com/medreport/viewer/internal/session"
	"github.com/medreport/viewer/internal/summary"
	"github.com/medreport/viewer/internal/testutil"
	"github.com/medreport/viewer/internal/upload"
)

const testCookie = "medreport_session"

type testServer struct {
	srv      *httptest.Server
	client   *http.Client
	fake     *testutil.FakeBackend
	store    *testutil.MockStorage
	sessions *session.Manager
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	logger := zerolog.Nop()
	fake := testutil.NewFakeBackend(t)
	store := testutil.NewMockStorage()
	sessions := session.NewManager(session.Options{Logger: logger})
	uploads := upload.NewManager(backend.NewClient(fake.UploadURL(), 0, logger), store, logger)

	e := echo.New()
	e.HideBanner = true
	require.NoError(t, SetupMiddleware(e, logger, MiddlewareOptions{BodyLimit: "1M"}))

	deps := &Dependencies{
		Sessions:   sessions,
		Uploads:    uploads,
		Files:      store,
		Logger:     logger,
		CookieName: testCookie,
		SessionTTL: time.Hour,
		Version:    "test",
	}
	require.NoError(t, RegisterRoutes(e, deps, NewHandlers(deps)))

	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)

	return &testServer{
		srv:      srv,
		client:   newClient(t),
		fake:     fake,
		store:    store,
		sessions: sessions,
	}
}

func newClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{Jar: jar}
}

func multipartBody(t *testing.T, field, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := new(bytes.Buffer)
	writer := multipart.NewWriter(body)
	if filename != "" {
		part, err := writer.CreateFormFile(field, filename)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func (ts *testServer) get(t *testing.T, client *http.Client, path string) (*http.Response, string) {
	t.Helper()
	resp, err := client.Get(ts.srv.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(data)
}

func (ts *testServer) postFile(t *testing.T, client *http.Client, path, filename string, content []byte) (*http.Response, string) {
	t.Helper()
	body, contentType := multipartBody(t, FileField, filename, content)
	resp, err := client.Post(ts.srv.URL+path, contentType, body)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(data)
}

func TestIndex_IssuesSessionCookie(t *testing.T) {
	ts := newTestServer(t)

	resp, body := ts.get(t, ts.client, "/")

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "🧪 Medical Report Summarizer")
	assert.NotContains(t, body, "Patient View")

	var found bool
	for _, c := range resp.Cookies() {
		if c.Name == testCookie {
			found = true
			assert.True(t, c.HttpOnly)
		}
	}
	assert.True(t, found, "expected session cookie")
	assert.Equal(t, 1, ts.sessions.Count())

	// The cookie is reused on the next request.
	ts.get(t, ts.client, "/")
	assert.Equal(t, 1, ts.sessions.Count())
}

func TestUploadForm_NoFileSelected(t *testing.T) {
	ts := newTestServer(t)

	resp, body := ts.postFile(t, ts.client, "/upload", "", nil)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "/", resp.Request.URL.Path)
	assert.Contains(t, body, session.MsgNoFile)
	assert.Empty(t, ts.fake.Requests())
}

func TestUploadForm_Success(t *testing.T) {
	ts := newTestServer(t)

	resp, body := ts.postFile(t, ts.client, "/upload", "report.pdf", []byte("%PDF-1.4"))

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `<div class="line line-abnormal">Cholesterol: 250 ⚠️</div>`)
	assert.Contains(t, body, `<div class="line line-normal">Glucose: 90</div>`)
	assert.Contains(t, body, `<td class="status status-warning">Abnormal</td>`)
	assert.NotContains(t, body, "banner-error")

	reqs := ts.fake.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, http.MethodPost, reqs[0].Method)
	assert.Equal(t, backend.FileField, reqs[0].Field)
	assert.Equal(t, "report.pdf", reqs[0].Filename)
	assert.Equal(t, []byte("%PDF-1.4"), reqs[0].Content)
}

func TestUploadForm_ResubmitsPreviousSelection(t *testing.T) {
	ts := newTestServer(t)

	ts.postFile(t, ts.client, "/upload", "report.pdf", []byte("v1"))
	_, body := ts.postFile(t, ts.client, "/upload", "", nil)

	assert.NotContains(t, body, session.MsgNoFile)
	reqs := ts.fake.Requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, []byte("v1"), reqs[1].Content)
}

func TestUploadForm_ServerError(t *testing.T) {
	ts := newTestServer(t)
	ts.fake.Respond(http.StatusInternalServerError, "model offline")

	_, body := ts.postFile(t, ts.client, "/upload", "report.pdf", []byte("x"))

	assert.Contains(t, body, "Server error: model offline")
	assert.NotContains(t, body, "Patient View")
}

func TestUploadForm_BackendDown(t *testing.T) {
	ts := newTestServer(t)
	ts.fake.Server.Close()

	_, body := ts.postFile(t, ts.client, "/upload", "report.pdf", []byte("x"))

	assert.Contains(t, body, session.MsgBackendFailure)
}

func TestAPI_SelectSubmitAndViews(t *testing.T) {
	ts := newTestServer(t)

	resp, body := ts.postFile(t, ts.client, "/api/file", "labs.txt", []byte("hello"))
	require.Equal(t, http.StatusCreated, resp.StatusCode, body)

	var file models.FileHandle
	require.NoError(t, json.Unmarshal([]byte(body), &file))
	assert.Equal(t, "labs.txt", file.Name)
	assert.EqualValues(t, 5, file.Size)
	assert.True(t, ts.store.Has(file.ID))

	resp, err := ts.client.Post(ts.srv.URL+"/api/submit", "", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var state models.UploadState
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&state))
	assert.Equal(t, "Cholesterol: 250 ⚠️|Glucose: 90", state.PatientView)
	assert.Empty(t, state.Error)

	_, body = ts.get(t, ts.client, "/api/views")
	var views Views
	require.NoError(t, json.Unmarshal([]byte(body), &views))
	require.Len(t, views.Patient, 2)
	assert.Equal(t, summary.LineAbnormal, views.Patient[0].Class)
	assert.Equal(t, summary.LabsFound, views.Doctor.Outcome)
	require.Len(t, views.Doctor.Rows, 1)
	assert.Equal(t, "250", views.Doctor.Rows[0].Value)
}

func TestAPI_ViewsMsgpack(t *testing.T) {
	ts := newTestServer(t)
	ts.postFile(t, ts.client, "/upload", "report.pdf", []byte("x"))

	resp, err := ts.client.Get(ts.srv.URL + "/api/views/msgpack")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "application/x-msgpack", resp.Header.Get(echo.HeaderContentType))

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var views Views
	require.NoError(t, msgpack.Unmarshal(data, &views))
	assert.Len(t, views.Patient, 2)
	assert.Equal(t, summary.LabsFound, views.Doctor.Outcome)
	assert.Equal(t, "Cholesterol", views.Doctor.Rows[0].Test)
}

func TestAPI_SubmitWithoutFile(t *testing.T) {
	ts := newTestServer(t)

	resp, err := ts.client.Post(ts.srv.URL+"/api/submit", "", nil)
	require.NoError(t, err)
	defer resp.Body.Close()

	var state models.UploadState
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&state))
	assert.Equal(t, session.MsgNoFile, state.Error)
	assert.Empty(t, ts.fake.Requests())
}

func TestAPI_SelectFileMissingPart(t *testing.T) {
	ts := newTestServer(t)

	resp, body := ts.postFile(t, ts.client, "/api/file", "", nil)

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body, `"code":"VALIDATION_ERROR"`)
}

func TestAPI_SelectFileStorageFailure(t *testing.T) {
	ts := newTestServer(t)
	ts.store.SaveErr = assert.AnError

	resp, body := ts.postFile(t, ts.client, "/api/file", "a.txt", []byte("x"))

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Contains(t, body, `"code":"INTERNAL_ERROR"`)
}

func TestAPI_SessionsAreIsolated(t *testing.T) {
	ts := newTestServer(t)
	other := newClient(t)

	ts.postFile(t, ts.client, "/upload", "report.pdf", []byte("x"))

	_, mine := ts.get(t, ts.client, "/api/state")
	_, theirs := ts.get(t, other, "/api/state")

	assert.Contains(t, mine, "Cholesterol")
	assert.False(t, strings.Contains(theirs, "Cholesterol"))
	assert.Equal(t, 2, ts.sessions.Count())
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)

	resp, body := ts.get(t, ts.client, "/api/health")

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `"status":"ok"`)
	assert.Contains(t, body, `"version":"test"`)
	assert.Contains(t, body, `"storedFiles":0`)

	ts.postFile(t, ts.client, "/api/file", "a.txt", []byte("x"))
	ts.postFile(t, newClient(t), "/api/file", "b.txt", []byte("y"))
	require.Equal(t, 2, ts.store.Count())

	_, body = ts.get(t, ts.client, "/api/health")
	assert.Contains(t, body, `"storedFiles":2`)
	assert.Contains(t, body, `"sessions":2`)
}

func TestStaticStylesheet(t *testing.T) {
	ts := newTestServer(t)

	resp, body := ts.get(t, ts.client, "/static/app.css")

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, ".line-abnormal")
}
