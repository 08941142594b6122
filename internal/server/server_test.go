package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"bookrec/config"
	"bookrec/internal/domain"
)

type fakeRecommender struct {
	text   string
	itemID int
	userID int
	k      int
	result domain.RecommendationResult
	err    error
}

func (f *fakeRecommender) RecommendText(_ context.Context, text string, k int) (domain.RecommendationResult, error) {
	f.text, f.k = text, k
	return f.result, f.err
}

func (f *fakeRecommender) RecommendFromLibrary(_ context.Context, itemID, k int) (domain.RecommendationResult, error) {
	f.itemID, f.k = itemID, k
	return f.result, f.err
}

func (f *fakeRecommender) RecommendUser(_ context.Context, userID int) (domain.RecommendationResult, error) {
	f.userID = userID
	return f.result, f.err
}

func testServerConfig() config.ServerConfig {
	cfg := config.DefaultConfig().Server
	cfg.RateLimit = 0
	return cfg
}

func do(t *testing.T, h http.Handler, method, target string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRecommendText(t *testing.T) {
	fake := &fakeRecommender{result: domain.RecommendationResult{
		{Rank: 0, Title: "Dune", Score: 0, ItemID: "0"},
		{Rank: 1, Title: "Emma", Score: 1.5, ItemID: "1"},
	}}
	h := New(fake, nil, testServerConfig(), zerolog.Nop()).Handler()

	rec := do(t, h, http.MethodGet, "/recommend/desert%20planet%2Fspice?k=2", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body)
	}
	if fake.text != "desert planet/spice" {
		t.Errorf("expected decoded query, got %q", fake.text)
	}
	if fake.k != 2 {
		t.Errorf("expected k=2, got %d", fake.k)
	}

	var body []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if len(body) != 2 || body[1]["title"] != "Emma" || body[1]["item_id"] != "1" || body[1]["rank"] != float64(1) {
		t.Errorf("unexpected body %s", rec.Body)
	}
}

func TestRecommendFromLibraryAndUser(t *testing.T) {
	fake := &fakeRecommender{result: domain.RecommendationResult{}}
	h := New(fake, nil, testServerConfig(), zerolog.Nop()).Handler()

	if rec := do(t, h, http.MethodGet, "/recommend_from_library/12", nil); rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if fake.itemID != 12 || fake.k != 0 {
		t.Errorf("expected item 12 with default k, got %d, %d", fake.itemID, fake.k)
	}

	rec := do(t, h, http.MethodGet, "/recommend_user/7", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if fake.userID != 7 {
		t.Errorf("expected user 7, got %d", fake.userID)
	}
	if strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Errorf("expected empty JSON array, got %s", rec.Body)
	}
}

func TestErrorStatusMapping(t *testing.T) {
	tests := []struct {
		err    error
		status int
		kind   string
	}{
		{fmt.Errorf("%w: k too large", domain.ErrInvalidArgument), http.StatusBadRequest, "invalid_argument"},
		{fmt.Errorf("%w: item 99", domain.ErrNotFound), http.StatusNotFound, "not_found"},
		{fmt.Errorf("%w: empty index", domain.ErrInvalidState), http.StatusServiceUnavailable, "invalid_state"},
		{fmt.Errorf("%w: %w", domain.ErrUpstream, errors.New("timeout")), http.StatusBadGateway, "upstream_failure"},
		{errors.New("disk on fire"), http.StatusInternalServerError, "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			fake := &fakeRecommender{err: tt.err}
			h := New(fake, nil, testServerConfig(), zerolog.Nop()).Handler()

			rec := do(t, h, http.MethodGet, "/recommend_from_library/1", nil)
			if rec.Code != tt.status {
				t.Errorf("expected %d, got %d", tt.status, rec.Code)
			}
			var body errorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatal(err)
			}
			if body.Kind != tt.kind {
				t.Errorf("expected kind %s, got %s", tt.kind, body.Kind)
			}
		})
	}
}

func TestBadParameters(t *testing.T) {
	fake := &fakeRecommender{}
	h := New(fake, nil, testServerConfig(), zerolog.Nop()).Handler()

	for _, target := range []string{
		"/recommend_from_library/abc",
		"/recommend_user/1.5",
		"/recommend/dune?k=0",
		"/recommend/dune?k=many",
	} {
		if rec := do(t, h, http.MethodGet, target, nil); rec.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", target, rec.Code)
		}
	}
	if fake.text != "" || fake.itemID != 0 || fake.userID != 0 {
		t.Error("recommender should not be reached with bad parameters")
	}
}

func TestHealthz(t *testing.T) {
	var readyErr error
	ready := func(context.Context) error { return readyErr }
	h := New(&fakeRecommender{}, ready, testServerConfig(), zerolog.Nop()).Handler()

	if rec := do(t, h, http.MethodGet, "/healthz", nil); rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	readyErr = errors.New("snapshot not loaded")
	if rec := do(t, h, http.MethodGet, "/healthz", nil); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", rec.Code)
	}
}

func TestCORS(t *testing.T) {
	h := New(&fakeRecommender{}, nil, testServerConfig(), zerolog.Nop()).Handler()

	rec := do(t, h, http.MethodGet, "/recommend_user/1", map[string]string{"Origin": "http://localhost:3000"})
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("expected wildcard CORS origin, got %q", got)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	h := New(&fakeRecommender{}, nil, testServerConfig(), zerolog.Nop()).Handler()
	do(t, h, http.MethodGet, "/recommend_user/1", nil)

	rec := do(t, h, http.MethodGet, "/metrics", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `bookrec_http_request_duration_seconds_count{route="/recommend_user/{userID}"`) {
		t.Error("expected request histogram labelled by route pattern")
	}
}

func TestRateLimit(t *testing.T) {
	cfg := testServerConfig()
	cfg.RateLimit = 2
	cfg.RateLimitWindow = time.Minute
	h := New(&fakeRecommender{}, nil, cfg, zerolog.Nop()).Handler()

	var last int
	for i := 0; i < 3; i++ {
		last = do(t, h, http.MethodGet, "/recommend_user/1", nil).Code
	}
	if last != http.StatusTooManyRequests {
		t.Errorf("expected 429 after exceeding the limit, got %d", last)
	}
}
