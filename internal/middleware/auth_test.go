package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"tryon/internal/domain"
)

type stubAuthenticator struct {
	calls int
}

func (s *stubAuthenticator) Authenticate(ctx context.Context, token string) (domain.Principal, error) {
	s.calls++
	if token == "good" {
		return domain.Principal{UserID: "u1", Email: "u1@example.com"}, nil
	}
	return domain.Principal{}, errors.New("bad token")
}

func TestAuthenticateStoresPrincipal(t *testing.T) {
	auth := &stubAuthenticator{}
	var got domain.Principal
	handler := Authenticate(auth, zerolog.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var ok bool
		got, ok = PrincipalFromContext(r.Context())
		if !ok {
			t.Errorf("principal missing from context")
		}
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/credits", nil)
	req.Header.Set("Authorization", "Bearer good")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got.UserID != "u1" || got.Email != "u1@example.com" {
		t.Fatalf("principal = %+v", got)
	}
}

func TestAuthenticateRejects(t *testing.T) {
	cases := map[string]string{
		"missing":    "",
		"wrong type": "Basic Zm9vOmJhcg==",
		"bad token":  "Bearer nope",
	}
	for name, header := range cases {
		auth := &stubAuthenticator{}
		called := false
		handler := Authenticate(auth, zerolog.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			called = true
		}))
		req := httptest.NewRequest(http.MethodPost, "/generate", strings.NewReader(`{}`))
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s: status = %d", name, rec.Code)
		}
		if called {
			t.Fatalf("%s: next handler must not run", name)
		}
		var body map[string]string
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil || body["error"] != "unauthorized" || body["message"] == "" {
			t.Fatalf("%s: body = %s", name, rec.Body.String())
		}
		if header == "" && auth.calls != 0 {
			t.Fatalf("%s: authenticator should not be consulted", name)
		}
	}
}

func TestPrincipalFromEmptyContext(t *testing.T) {
	if _, ok := PrincipalFromContext(context.Background()); ok {
		t.Fatalf("expected no principal")
	}
	ctx := ContextWithPrincipal(context.Background(), domain.Principal{})
	if _, ok := PrincipalFromContext(ctx); ok {
		t.Fatalf("empty principal must not count")
	}
}

func TestCORS(t *testing.T) {
	handler := CORS([]string{"https://app.example.com"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodOptions, "/generate", nil)
	req.Header.Set("Origin", "https://app.example.com")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("preflight status = %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "https://app.example.com" {
		t.Fatalf("allow origin = %q", rec.Header().Get("Access-Control-Allow-Origin"))
	}

	req = httptest.NewRequest(http.MethodGet, "/credits", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Fatalf("unexpected allow origin for unknown origin")
	}

	wild := CORS([]string{"*"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	req = httptest.NewRequest(http.MethodGet, "/credits", nil)
	req.Header.Set("Origin", "https://any.example.com")
	rec = httptest.NewRecorder()
	wild.ServeHTTP(rec, req)
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("wildcard allow origin = %q", rec.Header().Get("Access-Control-Allow-Origin"))
	}
	if rec.Header().Get("Access-Control-Allow-Credentials") != "" {
		t.Fatalf("wildcard must not allow credentials")
	}
}

func TestRequestIDAndLogger(t *testing.T) {
	var buf bytes.Buffer
	var seen string
	handler := RequestID(Logger(zerolog.New(&buf))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte("ok"))
	})))

	req := httptest.NewRequest(http.MethodGet, "/v1/healthz", nil)
	req.Header.Set("X-Request-ID", "req-123")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if seen != "req-123" || chimw.GetReqID(req.Context()) != "" {
		t.Fatalf("request id in context = %q", seen)
	}
	if rec.Header().Get("X-Request-ID") != "req-123" {
		t.Fatalf("response header = %q", rec.Header().Get("X-Request-ID"))
	}
	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("log line not json: %v (%s)", err, buf.String())
	}
	if line["request_id"] != "req-123" || line["status"] != float64(201) || line["bytes"] != float64(2) || line["path"] != "/v1/healthz" {
		t.Fatalf("log line = %v", line)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if len(rec.Header().Get("X-Request-ID")) != 36 {
		t.Fatalf("generated id = %q", rec.Header().Get("X-Request-ID"))
	}
}
