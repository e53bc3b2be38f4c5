package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/iho/bookkeeper/internal/domain"
)

func TestRateLimiter_PerCompany(t *testing.T) {
	hits := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "test_rate_limit_hits_total"}, []string{"client"})
	rl := NewRateLimiter(0.001, 2, hits)
	h := rl.Limit(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	call := func(company string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(domain.ContextWithPrincipal(req.Context(), &domain.Principal{CompanyID: company, Role: domain.RoleViewer}))
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		return rr.Code
	}

	for i := 0; i < 2; i++ {
		if code := call("co-1"); code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, code)
		}
	}
	if code := call("co-1"); code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after burst, got %d", code)
	}
	if code := call("co-2"); code != http.StatusOK {
		t.Fatalf("other company should have its own budget, got %d", code)
	}
	if got := testutil.ToFloat64(hits.WithLabelValues("company:co-1")); got != 1 {
		t.Fatalf("expected one recorded hit, got %v", got)
	}
}

func TestGetIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:5555"
	if got := getIP(req); got != "10.0.0.1" {
		t.Fatalf("expected host without port, got %q", got)
	}

	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	if got := getIP(req); got != "203.0.113.7" {
		t.Fatalf("expected first forwarded hop, got %q", got)
	}
}

func TestRateLimiter_CleanupLimiters(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(1, 1, nil)
	rl.now = func() time.Time { return now }

	rl.getLimiter("ip:a")
	now = now.Add(2 * time.Hour)
	rl.getLimiter("ip:b")

	if removed := rl.CleanupLimiters(time.Hour); removed != 1 {
		t.Fatalf("expected one idle limiter removed, got %d", removed)
	}
	if _, ok := rl.limiters["ip:b"]; !ok {
		t.Fatal("recent limiter should be kept")
	}
}
