package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	intconfig "rentcore/internal/config"
	h "rentcore/internal/http/handlers"
)

func TestNewRouterMountsRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := NewRouter(intconfig.Env{JWTSecret: "secret", RateLimitEnabled: true, RateLimitCapacity: 1}, &h.Handler{}, nil)

	want := map[string]bool{
		"GET /api/health":                            false,
		"GET /api/fees/quote":                        false,
		"POST /api/screenings":                       false,
		"GET /api/screenings/me":                     false,
		"POST /api/webhooks/background-check":        false,
		"POST /api/agreements/:id/payment/authorize": false,
		"POST /api/agreements/:id/payment/settle":    false,
		"POST /api/agreements/:id/payment/capture":   false,
		"POST /api/agreements/:id/signatures":        false,
		"GET /api/bookings/:id/schedule":             false,
		"GET /api/bookings/:id/statement":            false,
	}
	for _, rt := range r.Routes() {
		key := rt.Method + " " + rt.Path
		if _, ok := want[key]; ok {
			want[key] = true
		}
	}
	for key, found := range want {
		if !found {
			t.Fatalf("route %s not mounted", key)
		}
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	if w.Code != http.StatusOK || w.Header().Get("X-Request-ID") == "" {
		t.Fatalf("health: status = %d", w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/nope", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("unknown route: status = %d", w.Code)
	}
}

func TestScreeningRouteIsRateLimited(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := NewRouter(intconfig.Env{JWTSecret: "secret", RateLimitEnabled: true, RateLimitCapacity: 1, RateLimitRefill: 1}, &h.Handler{}, nil)

	codes := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/screenings/me", nil))
		codes = append(codes, w.Code)
	}
	// reads are not limited
	if codes[0] != http.StatusUnauthorized || codes[1] != http.StatusUnauthorized {
		t.Fatalf("unexpected codes %v", codes)
	}

	codes = codes[:0]
	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/screenings", nil))
		codes = append(codes, w.Code)
	}
	if codes[0] == http.StatusTooManyRequests || codes[1] != http.StatusTooManyRequests {
		t.Fatalf("expected the second submission to be throttled, got %v", codes)
	}
}

func TestRoutesListing(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := NewRouter(intconfig.Env{JWTSecret: "secret"}, &h.Handler{}, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/routes", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var body struct {
		Count  int      `json:"count"`
		Routes []string `json:"routes"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Count != len(body.Routes) || body.Count == 0 {
		t.Fatalf("unexpected listing %+v", body)
	}
	for i := 1; i < len(body.Routes); i++ {
		if strings.SplitN(body.Routes[i-1], " ", 2)[1] > strings.SplitN(body.Routes[i], " ", 2)[1] {
			t.Fatalf("routes not sorted by path: %v", body.Routes)
		}
	}
}
