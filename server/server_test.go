package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/seo-optimizer/tag-inspector/analyzer"
	"github.com/seo-optimizer/tag-inspector/cache"
	"github.com/seo-optimizer/tag-inspector/fetcher"
	"github.com/seo-optimizer/tag-inspector/inspector"
	"github.com/seo-optimizer/tag-inspector/middleware"
	"github.com/seo-optimizer/tag-inspector/stats"
)

const page = `<html><head>
	<title>Handmade ceramic mugs from a small studio</title>
	<meta name="description" content="Too short">
	<link rel="canonical" href="https://example.com/mugs">
	<meta name="viewport" content="width=device-width, initial-scale=1">
</head><body></body></html>`

func init() {
	gin.SetMode(gin.TestMode)
}

type stubFetcher struct {
	html string
	err  error
}

func (f *stubFetcher) Fetch(ctx context.Context, pageURL string) (*fetcher.Page, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &fetcher.Page{URL: pageURL, FinalURL: pageURL, StatusCode: http.StatusOK, HTML: f.html}, nil
}

type testServer struct {
	router   *gin.Engine
	storage  *stats.Storage
	visitors *stats.Visitors
}

func newTestServer(t *testing.T, f inspector.PageFetcher, opts Options) *testServer {
	t.Helper()

	storage, err := stats.NewStorage(t.TempDir(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { storage.Shutdown() })
	visitors := stats.NewVisitors()

	insp := inspector.New(f, cache.NewMemory(time.Minute, time.Minute), inspector.Options{
		Stats:    storage,
		Visitors: visitors,
	})

	opts.Stats = storage
	opts.Visitors = visitors
	srv, err := New(insp, opts)
	require.NoError(t, err)
	srv.now = func() time.Time { return time.Date(2024, 5, 2, 9, 0, 0, 0, time.UTC) }

	return &testServer{router: srv.Router(), storage: storage, visitors: visitors}
}

func (ts *testServer) do(method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	req.RemoteAddr = "198.51.100.10:5555"
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, &stubFetcher{html: page}, Options{})

	rec := ts.do(http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestAnalyzeRequiresURL(t *testing.T) {
	ts := newTestServer(t, &stubFetcher{html: page}, Options{})

	for _, target := range []string{"/api/analyze", "/api/analyze?url=", "/api/export", "/api/report?url=%20"} {
		rec := ts.do(http.MethodGet, target, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
		assert.JSONEq(t, `{"message":"URL parameter is required"}`, rec.Body.String(), target)
	}
}

func TestAnalyzeReturnsAnalysis(t *testing.T) {
	ts := newTestServer(t, &stubFetcher{html: page}, Options{})

	rec := ts.do(http.MethodGet, "/api/analyze?url=example.com/mugs", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))

	var analysis analyzer.PageAnalysis
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &analysis))
	assert.Equal(t, "https://example.com/mugs", analysis.URL)
	assert.Equal(t, analyzer.StatusGood, analysis.Title.Status)
	assert.Equal(t, analyzer.StatusNeedsImprovement, analysis.Description.Status)
	assert.Equal(t, analyzer.StatusGood, analysis.Canonical.Status)
	assert.NoError(t, analyzer.Validate(&analysis))

	rec = ts.do(http.MethodGet, "/api/analyze?url=https://example.com/mugs", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "HIT", rec.Header().Get("X-Cache"))
}

func TestAnalyzePost(t *testing.T) {
	ts := newTestServer(t, &stubFetcher{html: page}, Options{})

	rec := ts.do(http.MethodPost, "/api/analyze", `{"url":"https://example.com/mugs"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"url":"https://example.com/mugs"`)

	rec = ts.do(http.MethodPost, "/api/analyze", `{"url":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"message":"URL parameter is required"}`, rec.Body.String())

	rec = ts.do(http.MethodPost, "/api/analyze", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid request body")
}

func TestAnalyzeInvalidURL(t *testing.T) {
	ts := newTestServer(t, &stubFetcher{html: page}, Options{})

	rec := ts.do(http.MethodGet, "/api/analyze?url=https://", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Invalid URL", body["message"])
	assert.NotEmpty(t, body["details"])
}

func TestAnalyzeRelaysUpstreamStatus(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer upstream.Close()

	ts := newTestServer(t, fetcher.New(fetcher.Options{Timeout: 5 * time.Second}), Options{})

	rec := ts.do(http.MethodGet, "/api/analyze?url="+upstream.URL+"/gone", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"message":"Failed to fetch URL: Not Found"}`, rec.Body.String())
	assert.Equal(t, 1, ts.storage.GetCurrentStats().FetchFailures)
}

func TestAnalyzeFetchedThroughRealFetcher(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, page)
	}))
	defer upstream.Close()

	ts := newTestServer(t, fetcher.New(fetcher.Options{Timeout: 5 * time.Second}), Options{})

	rec := ts.do(http.MethodGet, "/api/analyze?url="+upstream.URL, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var analysis analyzer.PageAnalysis
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &analysis))
	assert.Equal(t, "Handmade ceramic mugs from a small studio", analysis.Title.Content)
	// The canonical points at example.com, not the test server's host
	assert.Equal(t, analyzer.StatusNeedsImprovement, analysis.Canonical.Status)
}

func TestAnalyzeTransportFailure(t *testing.T) {
	f := &stubFetcher{err: fmt.Errorf("%w: dial tcp: connection refused", fetcher.ErrFetch)}
	ts := newTestServer(t, f, Options{})

	rec := ts.do(http.MethodGet, "/api/analyze?url=https://unreachable.example", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Failed to fetch URL", body["message"])
	assert.Contains(t, body["details"], "connection refused")
}

func TestFailedPostLogsRequestedURL(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	f := &stubFetcher{err: fmt.Errorf("%w: dial tcp: connection refused", fetcher.ErrFetch)}
	ts := newTestServer(t, f, Options{Logger: zap.New(core)})

	rec := ts.do(http.MethodPost, "/api/analyze", `{"url":"https://unreachable.example/page"}`)
	require.Equal(t, http.StatusBadGateway, rec.Code)

	failures := logs.FilterMessage("analysis request failed").All()
	require.Len(t, failures, 1)
	assert.Equal(t, "https://unreachable.example/page", failures[0].ContextMap()["url"])
	assert.Equal(t, "/api/analyze", failures[0].ContextMap()["path"])
}

func TestErrorResponse(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"empty url", fetcher.ErrEmptyURL, http.StatusBadRequest, "URL parameter is required"},
		{"invalid url", fmt.Errorf("%w: bad", analyzer.ErrInvalidURL), http.StatusBadRequest, "Invalid URL"},
		{"upstream 403", &fetcher.StatusError{StatusCode: 403, Status: "Forbidden"}, http.StatusForbidden, "Failed to fetch URL: Forbidden"},
		{"upstream 503", &fetcher.StatusError{StatusCode: 503, Status: "Service Unavailable"}, http.StatusServiceUnavailable, "Failed to fetch URL: Service Unavailable"},
		{"upstream 304", &fetcher.StatusError{StatusCode: 304, Status: "Not Modified"}, http.StatusBadGateway, "Failed to fetch URL: Not Modified"},
		{"transport", fmt.Errorf("%w: timeout", fetcher.ErrFetch), http.StatusBadGateway, "Failed to fetch URL"},
		{"schema", &analyzer.SchemaError{Violations: []string{"x"}}, http.StatusInternalServerError, "Error validating analysis results"},
		{"other", errors.New("boom"), http.StatusInternalServerError, "Error analyzing URL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := errorResponse(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.message, body["message"])
		})
	}

	_, body := errorResponse(&analyzer.SchemaError{Violations: []string{"a", "b"}})
	assert.Equal(t, []string{"a", "b"}, body["details"])
}

func TestExport(t *testing.T) {
	ts := newTestServer(t, &stubFetcher{html: page}, Options{})

	rec := ts.do(http.MethodGet, "/api/export?url=https://example.com/mugs", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `attachment; filename="seo-analysis-example.com.json"`, rec.Header().Get("Content-Disposition"))
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")

	var analysis analyzer.PageAnalysis
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &analysis))
	assert.Equal(t, "https://example.com/mugs", analysis.URL)
}

func TestReport(t *testing.T) {
	ts := newTestServer(t, &stubFetcher{html: page}, Options{})

	rec := ts.do(http.MethodGet, "/api/report?url=https://example.com/mugs", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "example.com › mugs")
	assert.Contains(t, rec.Body.String(), "2024-05-02 09:00 UTC")
}

func TestStatistics(t *testing.T) {
	t.Run("limited view", func(t *testing.T) {
		ts := newTestServer(t, &stubFetcher{html: page}, Options{})
		ts.do(http.MethodGet, "/api/analyze?url=https://example.com/mugs", "")

		rec := ts.do(http.MethodGet, "/api/statistics", "")
		require.Equal(t, http.StatusOK, rec.Code)

		var body map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, float64(1), body["analyses"])
		assert.Equal(t, float64(1), body["uniqueVisitors"])
		assert.NotContains(t, body, "history")
		assert.NotContains(t, body, "cacheHits")
		assert.NotContains(t, body, "popularUrls")
	})

	t.Run("dev mode", func(t *testing.T) {
		ts := newTestServer(t, &stubFetcher{html: page}, Options{DevMode: true})
		ts.do(http.MethodGet, "/api/analyze?url=https://example.com/mugs", "")
		ts.do(http.MethodGet, "/api/analyze?url=https://example.com/mugs", "")

		rec := ts.do(http.MethodGet, "/api/statistics", "")
		require.Equal(t, http.StatusOK, rec.Code)

		var body struct {
			Analyses       int                           `json:"analyses"`
			CacheHits      *int                          `json:"cacheHits"`
			CachedAnalyses *int                          `json:"cachedAnalyses"`
			PopularURLs    []stats.URLCount              `json:"popularUrls"`
			History        map[string]stats.MonthlyStats `json:"history"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, 2, body.Analyses)
		require.NotNil(t, body.CacheHits)
		assert.Equal(t, 1, *body.CacheHits)
		require.NotNil(t, body.CachedAnalyses)
		assert.Equal(t, 1, *body.CachedAnalyses)
		assert.Equal(t, []stats.URLCount{{URL: "https://example.com/mugs", Count: 2}}, body.PopularURLs)
		assert.Len(t, body.History, 1)
	})
}

func TestRateLimit(t *testing.T) {
	ts := newTestServer(t, &stubFetcher{html: page}, Options{
		RateLimiter: middleware.NewRateLimiter(1, 1),
	})

	assert.Equal(t, http.StatusOK, ts.do(http.MethodGet, "/api/health", "").Code)
	rec := ts.do(http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.JSONEq(t, `{"message":"Rate limit exceeded. Please try again later."}`, rec.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t, &stubFetcher{html: page}, Options{})
	ts.do(http.MethodGet, "/api/health", "")

	rec := ts.do(http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "seo_inspector_http_requests_total")
}

func TestCORSPreflight(t *testing.T) {
	ts := newTestServer(t, &stubFetcher{html: page}, Options{})

	rec := ts.do(http.MethodOptions, "/api/analyze", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
