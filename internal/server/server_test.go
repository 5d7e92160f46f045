package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vango-dev/notes/internal/analytics"
	"github.com/vango-dev/notes/internal/export"
	"github.com/vango-dev/notes/internal/notes"
	"github.com/vango-dev/notes/pkg/middleware"
	"github.com/vango-dev/notes/pkg/router"
)

type fakeSummarizer struct {
	key  string
	err  error
	seen string
}

func (f *fakeSummarizer) Configured() bool { return f.key != "" }

func (f *fakeSummarizer) Summarize(ctx context.Context, text string) (string, error) {
	f.seen = text
	if f.err != nil {
		return "", f.err
	}
	return "short: " + text, nil
}

type fakeExporter struct {
	err error
}

func (f *fakeExporter) Export(ctx context.Context, src export.Lister) (*export.Result, error) {
	if f.err != nil {
		return nil, f.err
	}
	list, err := src.List(ctx)
	if err != nil {
		return nil, err
	}
	return &export.Result{Bucket: "b", Key: "k.json", Count: len(list)}, nil
}

func newTestServer(t *testing.T, cfg Config, opts ...Option) (*Server, *notes.Store) {
	t.Helper()
	store, err := notes.Open(context.Background(), notes.MemoryDSN)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return New(cfg, store, analytics.New(store), opts...), store
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field"`
}

func TestNotesCRUD(t *testing.T) {
	srv, _ := newTestServer(t, Config{})
	h := srv.Handler()

	rec := do(t, h, http.MethodPost, "/api/notes/", `{"title":"Groceries","content":"buy milk"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[notes.Note](t, rec)
	assert.Equal(t, "Groceries", created.Title)
	assert.NotZero(t, created.ID)

	rec = do(t, h, http.MethodGet, "/api/notes/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]notes.Note](t, rec), 1)

	id := "/api/notes/" + jsonInt(created.ID)
	rec = do(t, h, http.MethodPut, id, `{"content":"buy oat milk"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "buy oat milk", decode[notes.Note](t, rec).Content)

	rec = do(t, h, http.MethodGet, "/api/history/"+jsonInt(created.ID), "")
	require.Equal(t, http.StatusOK, rec.Code)
	versions := decode[[]notes.Version](t, rec)
	require.Len(t, versions, 1)
	assert.Equal(t, "buy milk", versions[0].Content)

	rec = do(t, h, http.MethodDelete, id, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, h, http.MethodGet, id, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "N300", decode[errorBody](t, rec).Code)

	rec = do(t, h, http.MethodDelete, id, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func jsonInt(id int64) string {
	raw, _ := json.Marshal(id)
	return string(raw)
}

func TestNotesValidation(t *testing.T) {
	srv, store := newTestServer(t, Config{})
	h := srv.Handler()

	rec := do(t, h, http.MethodPost, "/api/notes/", `{"title":"Te","content":"x"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := decode[errorBody](t, rec)
	assert.Equal(t, "N200", body.Code)
	assert.Equal(t, "title", body.Field)

	rec = do(t, h, http.MethodPost, "/api/notes/", `{`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "N203", decode[errorBody](t, rec).Code)

	note, err := store.Create(context.Background(), notes.Create{Title: "Valid", Content: "x"})
	require.NoError(t, err)

	rec = do(t, h, http.MethodPut, "/api/notes/"+jsonInt(note.ID), `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "N201", decode[errorBody](t, rec).Code)

	rec = do(t, h, http.MethodPut, "/api/notes/"+jsonInt(note.ID), `{"title":""}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = do(t, h, http.MethodPut, "/api/notes/999", `{"title":"Another"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/notes/abc", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "N202", decode[errorBody](t, rec).Code)

	rec = do(t, h, http.MethodGet, "/api/history/"+jsonInt(note.ID), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "N301", decode[errorBody](t, rec).Code)

	rec = do(t, h, http.MethodGet, "/api/nothing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAnalyticsEndpoint(t *testing.T) {
	srv, store := newTestServer(t, Config{})
	ctx := context.Background()
	_, err := store.Create(ctx, notes.Create{Title: "One", Content: "red fish"})
	require.NoError(t, err)
	_, err = store.Create(ctx, notes.Create{Title: "Two", Content: "blue fish"})
	require.NoError(t, err)

	rec := do(t, srv.Handler(), http.MethodGet, "/api/analytics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	report := decode[analytics.Report](t, rec)
	assert.Equal(t, 4, report.TotalWordCount)
	assert.Equal(t, "fish", report.MostCommonWords[0])
}

func TestSummarizeEndpoint(t *testing.T) {
	ctx := context.Background()

	t.Run("not configured", func(t *testing.T) {
		srv, store := newTestServer(t, Config{}, WithSummarizer(&fakeSummarizer{}))
		note, _ := store.Create(ctx, notes.Create{Title: "Note", Content: "text"})

		rec := do(t, srv.Handler(), http.MethodPost, "/api/summarizer/"+jsonInt(note.ID), "")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Equal(t, "N501", decode[errorBody](t, rec).Code)
	})

	t.Run("missing note", func(t *testing.T) {
		srv, _ := newTestServer(t, Config{}, WithSummarizer(&fakeSummarizer{key: "k"}))
		rec := do(t, srv.Handler(), http.MethodPost, "/api/summarizer/42", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("summary", func(t *testing.T) {
		sum := &fakeSummarizer{key: "k"}
		srv, store := newTestServer(t, Config{}, WithSummarizer(sum))
		note, _ := store.Create(ctx, notes.Create{Title: "Note", Content: "long text"})

		rec := do(t, srv.Handler(), http.MethodPost, "/api/summarizer/"+jsonInt(note.ID), "")
		require.Equal(t, http.StatusOK, rec.Code)
		got := decode[summaryResponse](t, rec)
		assert.Equal(t, note.ID, got.NoteID)
		assert.Equal(t, "short: long text", got.Summary)
		assert.Equal(t, "long text", sum.seen)
	})

	t.Run("upstream failure", func(t *testing.T) {
		sum := &fakeSummarizer{key: "k", err: errors.New("connection reset")}
		srv, store := newTestServer(t, Config{}, WithSummarizer(sum))
		note, _ := store.Create(ctx, notes.Create{Title: "Note", Content: "text"})

		rec := do(t, srv.Handler(), http.MethodPost, "/api/summarizer/"+jsonInt(note.ID), "")
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestExportEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, Config{})
	rec := do(t, srv.Handler(), http.MethodPost, "/api/export", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "N503", decode[errorBody](t, rec).Code)

	srv, store := newTestServer(t, Config{}, WithExporter(&fakeExporter{}))
	store.Create(context.Background(), notes.Create{Title: "Note", Content: "text"})
	rec = do(t, srv.Handler(), http.MethodPost, "/api/export", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decode[export.Result](t, rec).Count)

	srv, _ = newTestServer(t, Config{}, WithExporter(&fakeExporter{err: errors.New("s3 down")}))
	rec = do(t, srv.Handler(), http.MethodPost, "/api/export", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "N504", decode[errorBody](t, rec).Code)
}

func TestShell(t *testing.T) {
	srv, _ := newTestServer(t, Config{})
	h := srv.Handler()

	tests := []struct {
		target string
		status int
		view   string
		props  map[string]string
	}{
		{"/", http.StatusOK, "NotesList", nil},
		{"/note/42", http.StatusOK, "NoteDetails", map[string]string{"id": "42"}},
		{"/create", http.StatusOK, "NoteForm", nil},
		{"/edit/7", http.StatusOK, "NoteForm", map[string]string{"id": "7"}},
		{"/analytics", http.StatusOK, "Analytics", nil},
		{"/unknown", http.StatusNotFound, "NotFound", nil},
		{"/note/42/extra", http.StatusNotFound, "NotFound", nil},
	}

	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			rec := do(t, h, http.MethodGet, tt.target, "")
			require.Equal(t, tt.status, rec.Code)
			body := decode[navigationBody](t, rec)
			assert.Equal(t, tt.view, body.View)
			assert.Equal(t, tt.props, body.Props)
			assert.Equal(t, tt.status == http.StatusOK, body.Found)
		})
	}
}

func TestShellRedirectsNonCanonical(t *testing.T) {
	srv, _ := newTestServer(t, Config{})

	rec := do(t, srv.Handler(), http.MethodGet, "/note//42/?tab=1", "")
	assert.Equal(t, http.StatusPermanentRedirect, rec.Code)
	assert.Equal(t, "/note/42?tab=1", rec.Header().Get("Location"))
}

func TestShellBase(t *testing.T) {
	srv, _ := newTestServer(t, Config{Base: "/app"})
	h := srv.Handler()

	rec := do(t, h, http.MethodGet, "/app/note/1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "NoteDetails", decode[navigationBody](t, rec).View)

	rec = do(t, h, http.MethodGet, "/note/1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRoutesAndResolve(t *testing.T) {
	srv, _ := newTestServer(t, Config{})
	h := srv.Handler()

	rec := do(t, h, http.MethodGet, "/api/routes", "")
	require.Equal(t, http.StatusOK, rec.Code)
	routes := decode[[]routeBody](t, rec)
	require.Len(t, routes, 5)
	assert.Equal(t, routeBody{Pattern: "/note/:id", View: "NoteDetails", ParamsAsProps: true}, routes[1])

	rec = do(t, h, http.MethodGet, "/api/resolve?location=/edit/3%3Fdraft%3D1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[navigationBody](t, rec)
	assert.Equal(t, "/edit/:id", body.Pattern)
	assert.Equal(t, "3", body.Params["id"])
	assert.Equal(t, "draft=1", body.Query)
	assert.Equal(t, "/edit/3?draft=1", body.Location)
	assert.True(t, body.Found)

	rec = do(t, h, http.MethodGet, "/api/resolve?location=/nope", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	body = decode[navigationBody](t, rec)
	assert.False(t, body.Found)
	assert.Equal(t, "NotFound", body.View)
	assert.Equal(t, "/nope", body.Path)

	rec = do(t, h, http.MethodGet, "/api/resolve", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "N400", decode[errorBody](t, rec).Code)

	rec = do(t, h, http.MethodGet, "/api/resolve?location=https://evil.test/", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestResolveHashLocation(t *testing.T) {
	srv, _ := newTestServer(t, Config{History: router.HistoryHash, Base: "/app"})

	rec := do(t, srv.Handler(), http.MethodGet, "/api/resolve?location=/app/%23/note/9", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[navigationBody](t, rec)
	assert.Equal(t, "NoteDetails", body.View)
	assert.Equal(t, "/app/#/note/9", body.Location)
}

func TestShellHashMode(t *testing.T) {
	srv, _ := newTestServer(t, Config{History: router.HistoryHash, Base: "/app"})
	h := srv.Handler()

	rec := do(t, h, http.MethodGet, "/app/note/1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[navigationBody](t, rec)
	assert.Equal(t, "NotesList", body.View)
	assert.Equal(t, "/app/#/", body.Location)

	rec = do(t, h, http.MethodGet, "/elsewhere", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := middleware.NewMetrics(middleware.WithRegistry(reg))
	srv, _ := newTestServer(t, Config{}, WithMetrics(m, reg))
	h := srv.Handler()

	rec := do(t, h, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	do(t, h, http.MethodGet, "/note/1", "")

	rec = do(t, h, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `notes_http_requests_total{code="200",method="GET",route="/healthz"} 1`)
	assert.Contains(t, rec.Body.String(), `notes_navigations_total{status="found",view="NoteDetails"} 1`)
}

func TestSameOriginCheck(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "http://notes.test/ws", nil)
	assert.True(t, SameOriginCheck(req))

	req.Header.Set("Origin", "http://notes.test")
	assert.True(t, SameOriginCheck(req))

	req.Header.Set("Origin", "http://evil.test")
	assert.False(t, SameOriginCheck(req))
}
