package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ia-avocats/backend/internal/classify"
	"github.com/ia-avocats/backend/internal/jobs"
	"github.com/ia-avocats/backend/internal/pipeline"
	"github.com/ia-avocats/backend/internal/storage"
	"github.com/ia-avocats/backend/internal/testutil"
	"github.com/ia-avocats/backend/internal/upload"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
)

type testServer struct {
	e       *echo.Echo
	jobs    *jobs.Manager
	results *storage.ResultStore
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	results, err := storage.NewResultStore(t.TempDir())
	require.NoError(t, err)

	p := pipeline.New(pipeline.Deps{
		Renderer:   &testutil.FakeRenderer{},
		OCR:        &testutil.FakeOCR{},
		Classifier: classify.New(testutil.FakeLabeler{}, 0, nil),
		Text:       testutil.FakeText{},
		Word:       testutil.FakeWord{},
	}, pipeline.Options{NaturalOrder: true}, nil)

	jobMgr := jobs.NewManager(jobs.Options{KeepAlive: 20 * time.Millisecond}, nil)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = jobMgr.Shutdown(ctx)
	})

	e := echo.New()
	SetupMiddleware(e, true)
	RegisterRoutes(e, NewHandlers(&Dependencies{
		Jobs:    jobMgr,
		Uploads: upload.NewBuffer(upload.Limits{}, nil),
		Results: results,
		Runner:  p,
		Word:    testutil.FakeWord{},
		Version: "test",
	}))
	return &testServer{e: e, jobs: jobMgr, results: results}
}

func (s *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

type formFile struct {
	name, content string
}

func multipartRequest(t *testing.T, target string, files []formFile, fields map[string]string) *http.Request {
	t.Helper()
	body := new(bytes.Buffer)
	writer := multipart.NewWriter(body)
	for k, v := range fields {
		require.NoError(t, writer.WriteField(k, v))
	}
	for _, f := range files {
		part, err := writer.CreateFormFile("files", f.name)
		require.NoError(t, err)
		_, err = part.Write([]byte(f.content))
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, target, body)
	req.Header.Set(echo.HeaderContentType, writer.FormDataContentType())
	return req
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

// sseEvents decodes the data lines of an SSE body.
func sseEvents(t *testing.T, body string) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(body, "\n") {
		data, ok := strings.CutPrefix(line, "data: ")
		if !ok {
			continue
		}
		var ev map[string]any
		require.NoError(t, json.Unmarshal([]byte(data), &ev))
		out = append(out, ev)
	}
	return out
}

func eventNames(events []map[string]any) []string {
	out := make([]string, len(events))
	for i, ev := range events {
		out[i], _ = ev["event"].(string)
	}
	return out
}

func (s *testServer) createJob(t *testing.T) string {
	t.Helper()
	rec := s.do(httptest.NewRequest(http.MethodPost, "/api/jobs", nil))
	require.Equal(t, http.StatusCreated, rec.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp["jobId"])
	return resp["jobId"]
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	c := s.e.NewContext(req, rec)

	h := NewHealthHandler("1.2.3", s.jobs)
	if assert.NoError(t, h.HandleHealth(c)) {
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"status":"ok"`)
		assert.Contains(t, rec.Body.String(), `"version":"1.2.3"`)
	}
}

func TestBatchJobFlow(t *testing.T) {
	s := newTestServer(t)
	id := s.createJob(t)

	rec := s.do(multipartRequest(t, "/api/jobs/"+id+"/files", []formFile{
		{"Piece 10.pdf", "Le 5 janvier 2020, mise en demeure."},
		{"Piece 2.pdf", "Le 3 mars 2024, bail signé."},
	}, nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"exhibit":"10"`)

	rec = s.do(jsonRequest(http.MethodPost, "/api/jobs/"+id+"/commit", `{"mode":"summaries"}`))
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"documents":2`)

	rec = s.do(httptest.NewRequest(http.MethodGet, "/api/jobs/"+id+"/stream", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))

	events := sseEvents(t, rec.Body.String())
	names := eventNames(events)
	require.GreaterOrEqual(t, len(names), 4)
	assert.Equal(t, "started", names[0])
	assert.Equal(t, "result", names[len(names)-2])
	assert.Equal(t, "done", names[len(names)-1])

	last := -1.0
	for _, ev := range events[1 : len(events)-2] {
		assert.Equal(t, "progress", ev["event"])
		pct := ev["pct"].(float64)
		assert.GreaterOrEqual(t, pct, last)
		last = pct
	}
	assert.Equal(t, 100.0, last)

	data := events[len(events)-2]["data"].(map[string]any)
	chronological := data["chronological"].(string)
	assert.Less(t, strings.Index(chronological, "Pièce nº10"), strings.Index(chronological, "Pièce nº2)"))
	assert.Contains(t, chronological, "BORDEREAU DE PIECES COMMUNIQUEES")

	// the registry forgets the job once a reader saw done
	rec = s.do(httptest.NewRequest(http.MethodGet, "/api/jobs/"+id, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(httptest.NewRequest(http.MethodGet, "/api/jobs/"+id+"/result", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var stored storage.Record
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stored))
	require.NotNil(t, stored.Batch)
	assert.Equal(t, chronological, stored.Batch.Chronological)

	rec = s.do(httptest.NewRequest(http.MethodGet, "/api/jobs/"+id+"/result?format=msgpack", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, mimeMsgpack, rec.Header().Get("Content-Type"))
	var decoded storage.Record
	require.NoError(t, msgpack.Unmarshal(rec.Body.Bytes(), &decoded))
	assert.Equal(t, stored.Batch.Original, decoded.Batch.Original)

	rec = s.do(httptest.NewRequest(http.MethodGet, "/api/jobs/"+id+"/result?format=txt&variant=original", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, stored.Batch.Original, rec.Body.String())
	assert.Contains(t, rec.Header().Get(echo.HeaderContentDisposition), "Résumés.txt")

	rec = s.do(httptest.NewRequest(http.MethodGet, "/api/jobs/"+id+"/result?format=docx", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Body.String(), "Résumés chronologiques\n\n"))
}

func TestStreamFatalError(t *testing.T) {
	s := newTestServer(t)
	id := s.createJob(t)

	rec := s.do(multipartRequest(t, "/api/jobs/"+id+"/files", []formFile{
		{"Piece 1.pdf", "Le 1 mai 2020, a."},
		{"Piece 2.pdf", "[AUTH-FAIL]"},
	}, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	rec = s.do(jsonRequest(http.MethodPost, "/api/jobs/"+id+"/commit", `{}`))
	require.Equal(t, http.StatusAccepted, rec.Code)

	rec = s.do(httptest.NewRequest(http.MethodGet, "/api/jobs/"+id+"/stream", nil))
	events := sseEvents(t, rec.Body.String())
	names := eventNames(events)

	require.GreaterOrEqual(t, len(names), 3)
	assert.Equal(t, []string{"error", "done"}, names[len(names)-2:])
	assert.NotContains(t, names, "result")
	assert.Contains(t, rec.Body.String(), "Pièce nº1 traitée (1/2)")
}

func TestCommitErrors(t *testing.T) {
	s := newTestServer(t)

	t.Run("unknown job", func(t *testing.T) {
		rec := s.do(jsonRequest(http.MethodPost, "/api/jobs/nope/commit", `{}`))
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Contains(t, rec.Body.String(), `"code":"NOT_FOUND"`)
	})

	t.Run("invalid mode", func(t *testing.T) {
		id := s.createJob(t)
		rec := s.do(jsonRequest(http.MethodPost, "/api/jobs/"+id+"/commit", `{"mode":"translate"}`))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("empty buffer", func(t *testing.T) {
		id := s.createJob(t)
		rec := s.do(jsonRequest(http.MethodPost, "/api/jobs/"+id+"/commit", `{}`))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("wrong count then double commit", func(t *testing.T) {
		id := s.createJob(t)
		rec := s.do(multipartRequest(t, "/api/jobs/"+id+"/files", []formFile{{"a.pdf", "x"}, {"b.pdf", "y"}}, nil))
		require.Equal(t, http.StatusOK, rec.Code)

		rec = s.do(jsonRequest(http.MethodPost, "/api/jobs/"+id+"/commit", `{"mode":"summary"}`))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), `"code":"BAD_REQUEST"`)

		rec = s.do(jsonRequest(http.MethodPost, "/api/jobs/"+id+"/commit", `{"mode":"summaries"}`))
		assert.Equal(t, http.StatusAccepted, rec.Code)

		rec = s.do(jsonRequest(http.MethodPost, "/api/jobs/"+id+"/commit", `{"mode":"summaries"}`))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestCommitWhileShuttingDown(t *testing.T) {
	s := newTestServer(t)
	id := s.createJob(t)
	rec := s.do(multipartRequest(t, "/api/jobs/"+id+"/files", []formFile{{"a.pdf", "x"}}, nil))
	require.Equal(t, http.StatusOK, rec.Code)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.jobs.Shutdown(ctx))

	rec = s.do(jsonRequest(http.MethodPost, "/api/jobs/"+id+"/commit", `{"mode":"summaries"}`))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":"SERVICE_UNAVAILABLE"`)

	rec = s.do(httptest.NewRequest(http.MethodPost, "/api/jobs", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestUploadErrors(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(multipartRequest(t, "/api/jobs/nope/files", []formFile{{"a.pdf", "x"}}, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	id := s.createJob(t)
	rec = s.do(multipartRequest(t, "/api/jobs/"+id+"/files", []formFile{{"notes.txt", "x"}}, nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(multipartRequest(t, "/api/jobs/"+id+"/files", nil, map[string]string{"other": "1"}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "VALIDATION_ERROR")
}

func TestCancelPendingJob(t *testing.T) {
	s := newTestServer(t)
	id := s.createJob(t)

	rec := s.do(httptest.NewRequest(http.MethodDelete, "/api/jobs/"+id, nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(httptest.NewRequest(http.MethodGet, "/api/jobs/"+id+"/stream", nil))
	assert.Equal(t, []string{"error", "done"}, eventNames(sseEvents(t, rec.Body.String())))

	rec = s.do(httptest.NewRequest(http.MethodDelete, "/api/jobs/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStreamUnknownJob(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(httptest.NewRequest(http.MethodGet, "/api/jobs/nope/stream", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(httptest.NewRequest(http.MethodGet, "/api/jobs/nope/result", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestOneShotSingleSummary(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(multipartRequest(t, "/api/summaries/stream",
		[]formFile{{"Piece 5 rapport.pdf", "Premier paragraphe."}},
		map[string]string{"mode": "summary"}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	events := sseEvents(t, rec.Body.String())
	names := eventNames(events)
	require.GreaterOrEqual(t, len(names), 3)
	assert.Equal(t, "started", names[0])
	assert.Equal(t, []string{"result", "done"}, names[len(names)-2:])

	data := events[len(events)-2]["data"].(map[string]any)
	assert.Equal(t, "Résumé - Piece 5 rapport.docx", data["filename"])
	assert.Equal(t, "Résumé - Piece 5 rapport\n\nSynthèse de 19 caractères.", data["text"])
}

func TestOneShotRejectsBeforeStreaming(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(multipartRequest(t, "/api/summaries/stream",
		[]formFile{{"a.pdf", "x"}, {"b.pdf", "y"}},
		map[string]string{"mode": "convert"}))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.NotEqual(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Zero(t, s.jobs.Count())
}

func TestErrorHandler(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"api error", NewConflictError("busy"), http.StatusConflict, "CONFLICT"},
		{"wrapped api error", errors.Join(errors.New("ctx"), NewNotFoundError("job", "x")), http.StatusNotFound, "NOT_FOUND"},
		{"echo error", echo.NewHTTPError(http.StatusMethodNotAllowed, "nope"), http.StatusMethodNotAllowed, "HTTP_ERROR"},
		{"plain error", errors.New("boom"), http.StatusInternalServerError, "UNKNOWN_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

			ErrorHandler(tt.err, c)

			assert.Equal(t, tt.wantStatus, rec.Code)
			var body APIError
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantCode, body.Code)
		})
	}
}
