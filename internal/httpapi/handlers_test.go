package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"tasky-api/internal/audit"
	"tasky-api/internal/auth"
	"tasky-api/internal/config"
	"tasky-api/internal/identity"
	"tasky-api/internal/metrics"
	"tasky-api/internal/ownership"
	"tasky-api/internal/tasks"
	"tasky-api/internal/throttle"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

type testAPI struct {
	router *gin.Engine
	audit  *audit.MemoryRepo
}

func newTestAPI(t *testing.T, policy ownership.Policy) testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)

	m, err := auth.NewManager(config.AuthConfig{
		JWTSecret: "test-secret-test-secret-test-secret",
		JWTIssuer: "tasky-api",
		TokenTTL:  7 * 24 * time.Hour,
	})
	if err != nil {
		t.Fatalf("manager: %v", err)
	}
	auditRepo := audit.NewMemoryRepo()
	auditSvc := audit.NewService(auditRepo)
	met := metrics.New()
	lim, err := throttle.NewMemoryLimiter(5, time.Minute)
	if err != nil {
		t.Fatalf("limiter: %v", err)
	}

	authSvc, err := auth.NewService(identity.NewMemoryStore(), auth.NewBcryptHasher(bcrypt.MinCost), m,
		auth.WithAudit(auditSvc),
		auth.WithMetrics(met),
		auth.WithLimiter(lim),
	)
	if err != nil {
		t.Fatalf("auth service: %v", err)
	}
	taskSvc := tasks.NewService(tasks.NewMemoryRepo(), ownership.Authorizer{Policy: policy},
		tasks.WithAudit(auditSvc),
		tasks.WithMetrics(met),
	)

	r := gin.New()
	Register(r, Handlers{Auth: authSvc, Tasks: taskSvc}, auth.RequireAccessToken(m, authSvc, met))
	return testAPI{router: r, audit: auditRepo}
}

func (a testAPI) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			if err := json.NewEncoder(&buf).Encode(b); err != nil {
				t.Fatalf("encode: %v", err)
			}
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func (a testAPI) register(t *testing.T, email string) string {
	t.Helper()
	w := a.do(t, http.MethodPost, "/api/v1/auth/register", "", gin.H{"email": email, "password": "password123"})
	if w.Code != http.StatusCreated {
		t.Fatalf("register %s: expected 201, got %d (%s)", email, w.Code, w.Body.String())
	}
	var res auth.TokenResult
	decode(t, w, &res)
	if res.AccessToken == "" || res.TokenType != "Bearer" {
		t.Fatalf("unexpected token response: %+v", res)
	}
	return res.AccessToken
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
}

func expect(t *testing.T, w *httptest.ResponseRecorder, status int) {
	t.Helper()
	if w.Code != status {
		t.Fatalf("expected %d, got %d (%s)", status, w.Code, w.Body.String())
	}
}

func TestScenario_OwnerIsolation(t *testing.T) {
	api := newTestAPI(t, ownership.RevealExistence)

	aliceTok := api.register(t, "alice@x.io")
	bobTok := api.register(t, "bob@x.io")

	w := api.do(t, http.MethodPost, "/api/v1/todos", aliceTok, gin.H{"title": "Buy milk"})
	expect(t, w, http.StatusCreated)
	var created tasks.Task
	decode(t, w, &created)
	if created.Status != tasks.StatusTodo {
		t.Fatalf("expected default status todo, got %q", created.Status)
	}
	path := "/api/v1/todos/" + created.ID

	expect(t, api.do(t, http.MethodGet, path, bobTok, nil), http.StatusForbidden)
	expect(t, api.do(t, http.MethodPut, path, bobTok, gin.H{"title": "mine now"}), http.StatusForbidden)
	expect(t, api.do(t, http.MethodDelete, path, bobTok, nil), http.StatusForbidden)

	w = api.do(t, http.MethodGet, "/api/v1/todos", bobTok, nil)
	expect(t, w, http.StatusOK)
	if strings.TrimSpace(w.Body.String()) != "[]" {
		t.Fatalf("expected empty list for bob, got %s", w.Body.String())
	}

	w = api.do(t, http.MethodGet, path, aliceTok, nil)
	expect(t, w, http.StatusOK)
	var got tasks.Task
	decode(t, w, &got)
	if got.Title != "Buy milk" {
		t.Fatalf("task changed by non-owner: %+v", got)
	}

	w = api.do(t, http.MethodDelete, path, aliceTok, nil)
	expect(t, w, http.StatusOK)
	if !strings.Contains(w.Body.String(), "Task deleted successfully") {
		t.Fatalf("unexpected delete body: %s", w.Body.String())
	}
	expect(t, api.do(t, http.MethodGet, path, aliceTok, nil), http.StatusNotFound)

	if n := len(api.audit.OfType(audit.EventTypeAccessDenied)); n != 3 {
		t.Fatalf("expected 3 access denied events, got %d", n)
	}
}

func TestScenario_HideForeignAnswers404(t *testing.T) {
	api := newTestAPI(t, ownership.HideForeign)

	aliceTok := api.register(t, "alice@x.io")
	bobTok := api.register(t, "bob@x.io")

	w := api.do(t, http.MethodPost, "/api/v1/todos", aliceTok, gin.H{"title": "Buy milk"})
	expect(t, w, http.StatusCreated)
	var created tasks.Task
	decode(t, w, &created)

	foreign := api.do(t, http.MethodGet, "/api/v1/todos/"+created.ID, bobTok, nil)
	missing := api.do(t, http.MethodGet, "/api/v1/todos/00000000-0000-4000-8000-000000000000", bobTok, nil)
	expect(t, foreign, http.StatusNotFound)
	expect(t, missing, http.StatusNotFound)
	if foreign.Body.String() != missing.Body.String() {
		t.Fatalf("foreign and missing differ: %s vs %s", foreign.Body.String(), missing.Body.String())
	}
}

func TestAuthEndpoints(t *testing.T) {
	api := newTestAPI(t, ownership.RevealExistence)
	api.register(t, "alice@x.io")

	t.Run("duplicate registration", func(t *testing.T) {
		w := api.do(t, http.MethodPost, "/api/v1/auth/register", "", gin.H{"email": "ALICE@x.io", "password": "password123"})
		expect(t, w, http.StatusConflict)
	})

	t.Run("invalid registration input", func(t *testing.T) {
		w := api.do(t, http.MethodPost, "/api/v1/auth/register", "", gin.H{"email": "carol@x.io", "password": "123"})
		expect(t, w, http.StatusBadRequest)
	})

	t.Run("malformed json", func(t *testing.T) {
		expect(t, api.do(t, http.MethodPost, "/api/v1/auth/login", "", "{"), http.StatusBadRequest)
	})

	t.Run("login success", func(t *testing.T) {
		w := api.do(t, http.MethodPost, "/api/v1/auth/login", "", gin.H{"email": "alice@x.io", "password": "password123"})
		expect(t, w, http.StatusOK)
	})

	t.Run("wrong password and unknown email look the same", func(t *testing.T) {
		wrong := api.do(t, http.MethodPost, "/api/v1/auth/login", "", gin.H{"email": "alice@x.io", "password": "nope-nope"})
		unknown := api.do(t, http.MethodPost, "/api/v1/auth/login", "", gin.H{"email": "ghost@x.io", "password": "nope-nope"})
		expect(t, wrong, http.StatusUnauthorized)
		expect(t, unknown, http.StatusUnauthorized)
		if wrong.Body.String() != unknown.Body.String() {
			t.Fatalf("bodies differ: %s vs %s", wrong.Body.String(), unknown.Body.String())
		}
	})
}

func TestLoginThrottle(t *testing.T) {
	api := newTestAPI(t, ownership.RevealExistence)
	api.register(t, "alice@x.io")

	for i := 0; i < 5; i++ {
		w := api.do(t, http.MethodPost, "/api/v1/auth/login", "", gin.H{"email": "alice@x.io", "password": "wrong-pass"})
		expect(t, w, http.StatusUnauthorized)
	}
	w := api.do(t, http.MethodPost, "/api/v1/auth/login", "", gin.H{"email": "alice@x.io", "password": "password123"})
	expect(t, w, http.StatusTooManyRequests)
}

func TestProfile(t *testing.T) {
	api := newTestAPI(t, ownership.RevealExistence)

	w := api.do(t, http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"email": "alice@x.io", "password": "password123", "firstName": "Alice", "lastName": "Liddell",
	})
	expect(t, w, http.StatusCreated)
	var res auth.TokenResult
	decode(t, w, &res)

	w = api.do(t, http.MethodGet, "/api/v1/auth/profile", res.AccessToken, nil)
	expect(t, w, http.StatusOK)

	var body map[string]any
	decode(t, w, &body)
	if body["email"] != "alice@x.io" || body["firstName"] != "Alice" {
		t.Fatalf("unexpected profile: %v", body)
	}
	for k := range body {
		if strings.Contains(strings.ToLower(k), "password") {
			t.Fatalf("profile exposes %q", k)
		}
	}

	expect(t, api.do(t, http.MethodGet, "/api/v1/auth/profile", "", nil), http.StatusUnauthorized)
	expect(t, api.do(t, http.MethodGet, "/api/v1/auth/profile", res.AccessToken+"x", nil), http.StatusUnauthorized)
}

func TestTaskEndpoints(t *testing.T) {
	api := newTestAPI(t, ownership.RevealExistence)
	tok := api.register(t, "alice@x.io")

	expect(t, api.do(t, http.MethodGet, "/api/v1/todos", "", nil), http.StatusUnauthorized)
	expect(t, api.do(t, http.MethodPost, "/api/v1/todos", tok, gin.H{"description": "no title"}), http.StatusBadRequest)
	expect(t, api.do(t, http.MethodPost, "/api/v1/todos", tok, gin.H{"title": "x", "dueDate": "tomorrow"}), http.StatusBadRequest)
	expect(t, api.do(t, http.MethodGet, "/api/v1/todos/not-a-uuid", tok, nil), http.StatusNotFound)

	w := api.do(t, http.MethodPost, "/api/v1/todos", tok, gin.H{"title": "Write docs", "dueDate": "2025-12-15", "status": "in_progress"})
	expect(t, w, http.StatusCreated)
	var created tasks.Task
	decode(t, w, &created)
	if created.DueDate == nil || created.DueDate.Format(time.DateOnly) != "2025-12-15" {
		t.Fatalf("unexpected due date: %v", created.DueDate)
	}

	w = api.do(t, http.MethodPut, "/api/v1/todos/"+created.ID, tok, gin.H{"status": "done"})
	expect(t, w, http.StatusOK)
	var updated tasks.Task
	decode(t, w, &updated)
	if updated.Status != tasks.StatusDone || updated.Title != "Write docs" || updated.DueDate == nil {
		t.Fatalf("unexpected update: %+v", updated)
	}

	expect(t, api.do(t, http.MethodPut, "/api/v1/todos/"+created.ID, tok, gin.H{"dueDate": "soon"}), http.StatusBadRequest)

	w = api.do(t, http.MethodPut, "/api/v1/todos/"+created.ID, tok, `{"dueDate": null}`)
	expect(t, w, http.StatusOK)
	var cleared tasks.Task
	decode(t, w, &cleared)
	if cleared.DueDate != nil || cleared.Status != tasks.StatusDone {
		t.Fatalf("expected due date cleared, got %+v", cleared)
	}
	var raw map[string]any
	decode(t, w, &raw)
	if _, ok := raw["dueDate"]; ok {
		t.Fatalf("expected dueDate omitted once cleared: %v", raw)
	}
	for _, k := range []string{"userId", "createdAt", "updatedAt"} {
		if _, ok := raw[k]; !ok {
			t.Fatalf("expected %s in task JSON: %v", k, raw)
		}
	}

	w = api.do(t, http.MethodGet, "/api/v1/todos", tok, nil)
	expect(t, w, http.StatusOK)
	var list []tasks.Task
	decode(t, w, &list)
	if len(list) != 1 {
		t.Fatalf("expected 1 task, got %d", len(list))
	}
}

func TestHealth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	down := Handlers{Ping: func(ctx context.Context) error { return errors.New("db down") }}
	Register(r, down, func(c *gin.Context) { c.Next() })

	for _, path := range []string{"/healthz", "/api/v1"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		expect(t, w, http.StatusServiceUnavailable)
	}

	api := newTestAPI(t, ownership.RevealExistence)
	expect(t, api.do(t, http.MethodGet, "/api/v1", "", nil), http.StatusOK)
}

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{auth.ErrInvalidInput, http.StatusBadRequest},
		{tasks.ErrInvalidInput, http.StatusBadRequest},
		{auth.ErrDuplicateIdentity, http.StatusConflict},
		{auth.ErrInvalidCredentials, http.StatusUnauthorized},
		{auth.ErrUnauthenticated, http.StatusUnauthorized},
		{auth.ErrTooManyAttempts, http.StatusTooManyRequests},
		{auth.ErrNotFound, http.StatusNotFound},
		{tasks.ErrNotFound, http.StatusNotFound},
		{tasks.ErrForbidden, http.StatusForbidden},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got, _ := statusFor(tc.err); got != tc.want {
			t.Fatalf("%v: expected %d, got %d", tc.err, tc.want, got)
		}
	}
	if _, msg := statusFor(errors.New("secret detail")); msg != "internal error" {
		t.Fatalf("internal error leaked: %q", msg)
	}
}
