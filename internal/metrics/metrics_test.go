package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestMiddlewareUsesRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := New()

	r := gin.New()
	r.Use(m.Middleware())
	r.GET("/todos/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	for _, id := range []string{"a", "b"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/todos/"+id, nil))
	}

	body := scrape(t, m)
	if !strings.Contains(body, `http_requests_total{method="GET",path="/todos/:id",status="204"} 2`) {
		t.Fatalf("expected 2 requests on the route template, got:\n%s", body)
	}
	if !strings.Contains(body, "http_in_flight_requests 0") {
		t.Fatalf("expected no in-flight requests")
	}
}

func TestMiddlewareSurvivesPanickingHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := New()

	r := gin.New()
	r.Use(gin.RecoveryWithWriter(io.Discard))
	r.Use(m.Middleware())
	r.GET("/boom", func(c *gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}

	body := scrape(t, m)
	if !strings.Contains(body, "http_in_flight_requests 0") {
		t.Fatalf("expected in-flight gauge back at 0, got:\n%s", body)
	}
	if !strings.Contains(body, `http_requests_total{method="GET",path="/boom",status="500"} 1`) {
		t.Fatalf("expected panicking request counted as 500, got:\n%s", body)
	}
}

func TestObserveMethodsAreNilSafe(t *testing.T) {
	var m *Metrics
	m.ObserveAuth("login", "ok")
	m.ObserveTokenRejected("expired")
	m.ObserveOwnership("allow")
}

func TestHandlerExposesAuthCounters(t *testing.T) {
	m := New()
	m.ObserveAuth("login", "invalid_credentials")
	m.ObserveTokenRejected("signature")

	body := scrape(t, m)
	for _, want := range []string{
		`auth_operations_total{operation="login",outcome="invalid_credentials"} 1`,
		`auth_token_rejections_total{reason="signature"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("missing %q in metrics output", want)
		}
	}
}

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	return w.Body.String()
}
