package server

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/jobtriage/internal/approval"
	"github.com/jonathan/jobtriage/internal/fetch"
	"github.com/jonathan/jobtriage/internal/pipeline"
	"github.com/jonathan/jobtriage/internal/server/ratelimit"
	"github.com/jonathan/jobtriage/internal/types"
	"github.com/jonathan/jobtriage/internal/validation"
)

type fakeSender struct {
	mu   sync.Mutex
	sent []types.OutgoingEmail
	err  error
}

func (f *fakeSender) Send(_ context.Context, msg types.OutgoingEmail) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.sent = append(f.sent, msg)
	return "<sent@test>", nil
}

// fakePipeline enqueues straight into the real queue so handlers see stored records.
type fakePipeline struct {
	queue     *approval.Queue
	submitted []string
	sources   []types.Provenance
	submitErr error
	regenErr  error
}

func (f *fakePipeline) Submit(ctx context.Context, text string, source types.Provenance) (*pipeline.Outcome, error) {
	f.submitted = append(f.submitted, text)
	f.sources = append(f.sources, source)
	pipeline.Report(ctx, pipeline.ProgressEvent{Step: pipeline.StepAnalysis, Message: "Analyzed"})
	if f.submitErr != nil {
		return &pipeline.Outcome{Errors: []string{"Missing experience"}}, f.submitErr
	}
	sub, err := f.queue.Enqueue(ctx, types.Submission{
		JD:           text,
		Source:       source,
		EmailTo:      "recruiter@acme.io",
		EmailSubject: "Application",
		EmailBody:    "Hello",
		Validation:   types.ValidationResult{OK: true, Warnings: []string{"Resume has 3 pages, budget is 2"}},
	})
	if err != nil {
		return nil, err
	}
	return &pipeline.Outcome{
		Queued:     true,
		Submission: &sub,
		Validation: sub.Validation,
	}, nil
}

func (f *fakePipeline) Regenerate(ctx context.Context, id string) (types.Submission, error) {
	if f.regenErr != nil {
		return types.Submission{}, f.regenErr
	}
	return f.queue.Get(ctx, id)
}

func (f *fakePipeline) RegenerateEmail(ctx context.Context, id string) (types.Submission, error) {
	if f.regenErr != nil {
		return types.Submission{}, f.regenErr
	}
	return f.queue.UpdateEmail(ctx, id, "Regenerated subject", "Regenerated body")
}

type fakeFetcher struct {
	text string
	err  error
	urls []string
}

func (f *fakeFetcher) JobText(_ context.Context, url string) (*fetch.Result, error) {
	f.urls = append(f.urls, url)
	if f.err != nil {
		return nil, f.err
	}
	return &fetch.Result{URL: url, Text: f.text}, nil
}

type testServer struct {
	srv      *Server
	handler  http.Handler
	queue    *approval.Queue
	sender   *fakeSender
	pipeline *fakePipeline
	fetcher  *fakeFetcher
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sender := &fakeSender{}
	q := approval.NewQueue(approval.NewFileStore(filepath.Join(t.TempDir(), "queue.json")), sender, approval.WithLogger(logger))
	p := &fakePipeline{queue: q}
	f := &fakeFetcher{text: "Senior AI Engineer at Acme. Python, AWS."}

	srv, err := New(Config{
		Port:      0,
		Logger:    logger,
		RateLimit: &ratelimit.Config{Enabled: false},
	}, Deps{Queue: q, Pipeline: p, Fetcher: f})
	require.NoError(t, err)
	t.Cleanup(srv.rateLimiter.Stop)

	return &testServer{srv: srv, handler: srv.Handler(), queue: q, sender: sender, pipeline: p, fetcher: f}
}

func (ts *testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) seed(t *testing.T, sub types.Submission) types.Submission {
	t.Helper()
	if sub.EmailTo == "" {
		sub.EmailTo = "recruiter@acme.io"
	}
	if sub.EmailSubject == "" {
		sub.EmailSubject = "Application for Senior AI Engineer"
	}
	stored, err := ts.queue.Enqueue(t.Context(), sub)
	require.NoError(t, err)
	return stored
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestNew_RequiresDeps(t *testing.T) {
	_, err := New(Config{}, Deps{})
	assert.Error(t, err)
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestCORSPreflight(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodOptions, "/approval/api/delete-all", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "DELETE")
}

func TestListSubmissions(t *testing.T) {
	ts := newTestServer(t)
	a := ts.seed(t, types.Submission{JD: "one"})
	b := ts.seed(t, types.Submission{JD: "two"})
	_, err := ts.queue.Reject(t.Context(), b.ID)
	require.NoError(t, err)

	tests := []struct {
		name    string
		query   string
		wantIDs []string
	}{
		{"all", "", []string{a.ID, b.ID}},
		{"pending", "?status=pending", []string{a.ID}},
		{"rejected", "?status=rejected", []string{b.ID}},
		{"approved", "?status=approved", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(t, http.MethodGet, "/approval/api/pending"+tt.query, "")
			require.Equal(t, http.StatusOK, rec.Code)
			resp := decode[ListResponse](t, rec)

			var ids []string
			for _, s := range resp.Submissions {
				ids = append(ids, s.ID)
			}
			assert.Equal(t, tt.wantIDs, ids)
			assert.Equal(t, len(tt.wantIDs), resp.Count)
			assert.Equal(t, 1, resp.Stats[types.StatusPending])
			assert.Equal(t, 1, resp.Stats[types.StatusRejected])
		})
	}

	rec := ts.do(t, http.MethodGet, "/approval/api/pending?status=bogus", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetSubmission(t *testing.T) {
	ts := newTestServer(t)
	sub := ts.seed(t, types.Submission{JD: "Senior AI Engineer"})

	rec := ts.do(t, http.MethodGet, "/approval/api/submission/"+sub.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[types.Submission](t, rec)
	assert.Equal(t, sub.ID, got.ID)
	assert.Equal(t, "Senior AI Engineer", got.JD)

	rec = ts.do(t, http.MethodGet, "/approval/api/submission/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, decode[map[string]string](t, rec)["error"], "missing")
}

func TestApprove_WithEdits(t *testing.T) {
	ts := newTestServer(t)
	sub := ts.seed(t, types.Submission{EmailBody: "Original body"})

	rec := ts.do(t, http.MethodPost, "/approval/api/approve/"+sub.ID,
		`{"to":"hiring@acme.io","cc":"me@example.com","subject":"Edited subject"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	require.Len(t, ts.sender.sent, 1)
	sent := ts.sender.sent[0]
	assert.Equal(t, "hiring@acme.io", sent.To)
	assert.Equal(t, "me@example.com", sent.CC)
	assert.Equal(t, "Edited subject", sent.Subject)
	assert.Equal(t, "Original body", sent.Body)

	stored, err := ts.queue.Get(t.Context(), sub.ID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusApproved, stored.Status)
	assert.NotNil(t, stored.SentAt)
}

func TestApprove_Errors(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T, ts *testServer) string
		body  string
		want  int
	}{
		{
			name:  "unknown id",
			setup: func(*testing.T, *testServer) string { return "nope" },
			want:  http.StatusNotFound,
		},
		{
			name: "already approved",
			setup: func(t *testing.T, ts *testServer) string {
				sub := ts.seed(t, types.Submission{})
				_, err := ts.queue.Approve(t.Context(), sub.ID, approval.Edits{})
				require.NoError(t, err)
				return sub.ID
			},
			want: http.StatusConflict,
		},
		{
			name: "transport failure",
			setup: func(t *testing.T, ts *testServer) string {
				ts.sender.err = errors.New("smtp: connection refused")
				return ts.seed(t, types.Submission{}).ID
			},
			want: http.StatusBadGateway,
		},
		{
			name:  "bad recipient",
			setup: func(t *testing.T, ts *testServer) string { return ts.seed(t, types.Submission{}).ID },
			body:  `{"to":"not-an-address"}`,
			want:  http.StatusBadRequest,
		},
		{
			name:  "malformed json",
			setup: func(t *testing.T, ts *testServer) string { return ts.seed(t, types.Submission{}).ID },
			body:  `{"to":`,
			want:  http.StatusBadRequest,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t)
			id := tt.setup(t, ts)
			rec := ts.do(t, http.MethodPost, "/approval/api/approve/"+id, tt.body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
			assert.NotEmpty(t, decode[map[string]any](t, rec)["error"])
		})
	}
}

func TestSendNow(t *testing.T) {
	ts := newTestServer(t)
	sub := ts.seed(t, types.Submission{EmailBody: "Stored body"})

	rec := ts.do(t, http.MethodPost, "/approval/api/send-now/"+sub.ID, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Len(t, ts.sender.sent, 1)
	assert.Equal(t, "Stored body", ts.sender.sent[0].Body)
	assert.Contains(t, decode[map[string]any](t, rec)["message"], "recruiter@acme.io")
}

func TestRejectAndRequestChanges(t *testing.T) {
	ts := newTestServer(t)
	a := ts.seed(t, types.Submission{})
	b := ts.seed(t, types.Submission{})

	rec := ts.do(t, http.MethodPost, "/approval/api/reject/"+a.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodPost, "/approval/api/request-changes/"+b.ID, `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[map[string]string](t, rec)["error"], "comments")

	rec = ts.do(t, http.MethodPost, "/approval/api/request-changes/"+b.ID, `{"comments":"Lead with the Bedrock work"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	got, err := ts.queue.Get(t.Context(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusChangesRequested, got.Status)
	assert.Equal(t, "Lead with the Bedrock work", got.Comments)

	rec = ts.do(t, http.MethodPost, "/approval/api/reject/"+a.ID, "")
	assert.Equal(t, http.StatusConflict, rec.Code, "rejected is terminal")
}

func TestDelete(t *testing.T) {
	ts := newTestServer(t)
	a := ts.seed(t, types.Submission{})
	ts.seed(t, types.Submission{})
	ts.seed(t, types.Submission{})

	rec := ts.do(t, http.MethodDelete, "/approval/api/delete/"+a.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	rec = ts.do(t, http.MethodDelete, "/approval/api/delete/"+a.ID, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(t, http.MethodDelete, "/approval/api/delete-all", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 2, decode[map[string]any](t, rec)["deleted"])

	subs, err := ts.queue.List(t.Context(), "")
	require.NoError(t, err)
	assert.Empty(t, subs)
}

func TestManualSubmit(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantCode   int
		wantText   string
		wantSource types.Provenance
		wantFetch  bool
	}{
		{
			name:       "pasted text",
			body:       `{"jobDescription":"  Senior AI Engineer, Remote  "}`,
			wantCode:   http.StatusOK,
			wantText:   "Senior AI Engineer, Remote",
			wantSource: types.SourceManual,
		},
		{
			name:       "chat provenance",
			body:       `{"jobDescription":"AI Engineer","source":"chat"}`,
			wantCode:   http.StatusOK,
			wantText:   "AI Engineer",
			wantSource: types.SourceChat,
		},
		{
			name:       "by url",
			body:       `{"url":"https://boards.greenhouse.io/acme/jobs/1"}`,
			wantCode:   http.StatusOK,
			wantText:   "Senior AI Engineer at Acme. Python, AWS.",
			wantSource: types.SourceManual,
			wantFetch:  true,
		},
		{name: "empty body", body: ``, wantCode: http.StatusBadRequest},
		{name: "whitespace only", body: `{"jobDescription":"   "}`, wantCode: http.StatusBadRequest},
		{name: "bad url", body: `{"url":"not a url"}`, wantCode: http.StatusBadRequest},
		{name: "bad source", body: `{"jobDescription":"x","source":"fax"}`, wantCode: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t)
			rec := ts.do(t, http.MethodPost, "/approval/api/manual-submit", tt.body)
			require.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			if tt.wantCode != http.StatusOK {
				assert.Empty(t, ts.pipeline.submitted)
				return
			}

			resp := decode[SubmitResponse](t, rec)
			assert.True(t, resp.Success)
			assert.True(t, resp.Queued)
			require.NotNil(t, resp.Submission)
			assert.Equal(t, types.StatusPending, resp.Submission.Status)
			assert.Equal(t, []string{"Resume has 3 pages, budget is 2"}, resp.Warnings)
			assert.Equal(t, []string{tt.wantText}, ts.pipeline.submitted)
			assert.Equal(t, []types.Provenance{tt.wantSource}, ts.pipeline.sources)
			assert.Equal(t, tt.wantFetch, len(ts.fetcher.urls) == 1)
		})
	}
}

func TestManualSubmit_FetchFailure(t *testing.T) {
	ts := newTestServer(t)
	ts.fetcher.err = &fetch.Error{URL: "https://acme.io/jobs/1", Message: "status 503"}

	rec := ts.do(t, http.MethodPost, "/approval/api/manual-submit", `{"url":"https://acme.io/jobs/1"}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Empty(t, ts.pipeline.submitted)
}

func TestManualSubmit_ValidationFailure(t *testing.T) {
	ts := newTestServer(t)
	ts.pipeline.submitErr = &validation.Error{Errors: []string{"Missing experience"}}

	rec := ts.do(t, http.MethodPost, "/approval/api/manual-submit", `{"jobDescription":"AI Engineer"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	resp := decode[SubmitResponse](t, rec)
	assert.False(t, resp.Queued)
	assert.Equal(t, []string{"Missing experience"}, resp.Errors)
}

func TestManualSubmitStream(t *testing.T) {
	ts := newTestServer(t)
	srv := httptest.NewServer(ts.handler)
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/approval/api/manual-submit/stream", "application/json",
		strings.NewReader(`{"jobDescription":"Senior AI Engineer"}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	var events []string
	var last string
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if name, ok := strings.CutPrefix(line, "event: "); ok {
			events = append(events, name)
		}
		if data, ok := strings.CutPrefix(line, "data: "); ok {
			last = data
		}
	}
	require.NotEmpty(t, events)
	assert.Equal(t, "complete", events[len(events)-1])
	assert.Contains(t, last, `"status":"pending"`)
}

func TestRegenerateEmail(t *testing.T) {
	ts := newTestServer(t)
	sub := ts.seed(t, types.Submission{})

	rec := ts.do(t, http.MethodPost, "/approval/api/regenerate-email/"+sub.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[map[string]any](t, rec)
	assert.Equal(t, "Regenerated subject", resp["emailSubject"])
	assert.Equal(t, "Regenerated body", resp["emailBody"])

	ts.pipeline.regenErr = &approval.NotFoundError{ID: "gone"}
	rec = ts.do(t, http.MethodPost, "/approval/api/regenerate-email/gone", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRegenerate(t *testing.T) {
	ts := newTestServer(t)
	sub := ts.seed(t, types.Submission{})

	rec := ts.do(t, http.MethodPost, "/approval/api/regenerate/"+sub.ID, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	ts.pipeline.regenErr = errors.New("latexmk exploded")
	rec = ts.do(t, http.MethodPost, "/approval/api/regenerate/"+sub.ID, "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal error", decode[map[string]string](t, rec)["error"])
}

func TestPDF(t *testing.T) {
	ts := newTestServer(t)
	pdf := filepath.Join(t.TempDir(), "jordan_lee.pdf")
	require.NoError(t, os.WriteFile(pdf, []byte("%PDF-1.4\n%%EOF\n"), 0o644))

	withPDF := ts.seed(t, types.Submission{PDFPath: pdf})
	noPDF := ts.seed(t, types.Submission{})
	gone := ts.seed(t, types.Submission{PDFPath: filepath.Join(t.TempDir(), "missing.pdf")})

	rec := ts.do(t, http.MethodGet, "/approval/pdf/"+withPDF.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "jordan_lee.pdf")
	assert.True(t, strings.HasPrefix(rec.Body.String(), "%PDF"))

	for _, id := range []string{noPDF.ID, gone.ID, "unknown"} {
		rec = ts.do(t, http.MethodGet, "/approval/pdf/"+id, "")
		assert.Equal(t, http.StatusNotFound, rec.Code, id)
	}
}

func TestExport(t *testing.T) {
	ts := newTestServer(t)
	ts.seed(t, types.Submission{Parsed: types.ParsedSummary{Role: "Senior AI Engineer"}})

	rec := ts.do(t, http.MethodGet, "/approval/api/export.xlsx", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, xlsxContentType, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), ".xlsx")
	// xlsx is a zip archive
	assert.True(t, strings.HasPrefix(rec.Body.String(), "PK"))
}

func TestRateLimit(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	q := approval.NewQueue(approval.NewFileStore(filepath.Join(t.TempDir(), "queue.json")), nil)
	srv, err := New(Config{
		Logger: logger,
		RateLimit: &ratelimit.Config{
			Enabled:       true,
			DefaultLimit:  2,
			DefaultWindow: time.Hour,
		},
	}, Deps{Queue: q, Pipeline: &fakePipeline{queue: q}})
	require.NoError(t, err)
	t.Cleanup(srv.rateLimiter.Stop)

	get := func() *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/approval/api/pending", nil))
		return rec
	}

	for range 2 {
		rec := get()
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
	}
	rec := get()
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Equal(t, "rate_limit_exceeded", decode[map[string]any](t, rec)["error"])

	health := httptest.NewRecorder()
	srv.Handler().ServeHTTP(health, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, health.Code, "health is never limited")
}

func TestStartAndShutdown(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	q := approval.NewQueue(approval.NewFileStore(filepath.Join(t.TempDir(), "queue.json")), nil)
	srv, err := New(Config{Port: 0, Logger: logger, RateLimit: &ratelimit.Config{}}, Deps{Queue: q, Pipeline: &fakePipeline{queue: q}})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() { done <- srv.Start(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
