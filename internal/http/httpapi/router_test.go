package httpapi

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"tryon/internal/audit"
	"tryon/internal/domain"
	"tryon/internal/http/handlers"
	"tryon/internal/imagecodec"
	"tryon/internal/ledger"
	"tryon/internal/tryon"
)

type tokenAuthenticator map[string]domain.Principal

func (a tokenAuthenticator) Authenticate(ctx context.Context, token string) (domain.Principal, error) {
	if p, ok := a[token]; ok {
		return p, nil
	}
	return domain.Principal{}, domain.ErrUnauthorized
}

type echoGenerator struct{}

func (echoGenerator) Edit(ctx context.Context, person, garment imagecodec.Payload, aspect string) (imagecodec.Payload, error) {
	return garment, nil
}

func (echoGenerator) ProviderName() string { return "openai" }
func (echoGenerator) Model() string        { return "gpt-image-1.5" }

const validToken = "token-ana"

func newTestRouter(t *testing.T, opts Options) (http.Handler, *ledger.Memory) {
	t.Helper()
	l := ledger.NewMemory(map[string]int{"user-ana": 3})
	svc, err := tryon.NewService(tryon.Options{
		Ledger:    l,
		Generator: echoGenerator{},
		Audit:     audit.NewLog(audit.NewMemory(), zerolog.Nop()),
		Logger:    zerolog.Nop(),
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	opts.Authenticator = tokenAuthenticator{validToken: {UserID: "user-ana", Email: "ana@example.com"}}
	opts.Logger = zerolog.Nop()
	return NewRouter(handlers.NewApp(svc, zerolog.Nop()), opts), l
}

func generatePayload() string {
	png := base64.StdEncoding.EncodeToString([]byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A})
	return `{"userEmail":"ana@example.com","baseImage":"data:image/png;base64,` + png +
		`","productImage":"data:image/png;base64,` + png + `"}`
}

func serve(h http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestRouterHealth(t *testing.T) {
	h, _ := newTestRouter(t, Options{})

	rr := serve(h, http.MethodGet, "/v1/healthz", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Fatalf("expected X-Request-ID header")
	}
}

func TestRouterAuthenticatesBeforeParsingBody(t *testing.T) {
	h, l := newTestRouter(t, Options{})

	rr := serve(h, http.MethodPost, "/generate", "", "{not json")
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rr.Code)
	}
	rr = serve(h, http.MethodPost, "/generate", "wrong", generatePayload())
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rr.Code)
	}
	consumes, _ := l.Counts()
	if consumes != 0 {
		t.Fatalf("unauthenticated calls touched the ledger %d times", consumes)
	}
}

func TestRouterGenerateAndCredits(t *testing.T) {
	h, _ := newTestRouter(t, Options{})

	for _, path := range []string{"/generate", "/api/generate"} {
		rr := serve(h, http.MethodPost, path, validToken, generatePayload())
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status = %d, body = %s", path, rr.Code, rr.Body.String())
		}
	}

	for _, path := range []string{"/credits", "/api/credits"} {
		rr := serve(h, http.MethodGet, path, validToken, "")
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status = %d", path, rr.Code)
		}
		if !strings.Contains(rr.Body.String(), `"credits":1`) {
			t.Fatalf("%s body = %s", path, rr.Body.String())
		}
	}

	rr := serve(h, http.MethodGet, "/credits", "", "")
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("credits without token status = %d", rr.Code)
	}
}

func TestRouterMethodNotAllowed(t *testing.T) {
	h, _ := newTestRouter(t, Options{})

	rr := serve(h, http.MethodGet, "/generate", validToken, "")
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "method_not_allowed") {
		t.Fatalf("body = %s", rr.Body.String())
	}
}

func TestRouterCapsBodySize(t *testing.T) {
	h, l := newTestRouter(t, Options{MaxBodyBytes: 32})

	rr := serve(h, http.MethodPost, "/generate", validToken, generatePayload())
	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, want 413", rr.Code)
	}
	if b, _ := l.Balance(context.Background(), "user-ana"); b != 3 {
		t.Fatalf("balance = %d, oversized bodies must not consume credits", b)
	}
}

func TestRouterRateLimitsGenerate(t *testing.T) {
	h, _ := newTestRouter(t, Options{RateLimitPerMin: 1})

	if rr := serve(h, http.MethodPost, "/generate", validToken, generatePayload()); rr.Code != http.StatusOK {
		t.Fatalf("first call status = %d", rr.Code)
	}
	if rr := serve(h, http.MethodPost, "/generate", validToken, generatePayload()); rr.Code != http.StatusTooManyRequests {
		t.Fatalf("second call status = %d, want 429", rr.Code)
	}
	if rr := serve(h, http.MethodGet, "/credits", validToken, ""); rr.Code != http.StatusOK {
		t.Fatalf("credits should not be rate limited, got %d", rr.Code)
	}
}

func TestRouterRateLimitIgnoresForwardedForByDefault(t *testing.T) {
	h, _ := newTestRouter(t, Options{RateLimitPerMin: 1})

	codes := make([]int, 0, 2)
	for _, xff := range []string{"203.0.113.1", "203.0.113.2"} {
		req := httptest.NewRequest(http.MethodPost, "/generate", strings.NewReader(generatePayload()))
		req.Header.Set("Authorization", "Bearer "+validToken)
		req.Header.Set("X-Forwarded-For", xff)
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		codes = append(codes, rr.Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusTooManyRequests {
		t.Fatalf("statuses = %v, rotating X-Forwarded-For must not reset the limit", codes)
	}
}

func TestRouterServesStaticResults(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "result.jpg"), []byte("jpeg-bytes"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	h, _ := newTestRouter(t, Options{StaticDir: dir})

	rr := serve(h, http.MethodGet, "/static/result.jpg", "", "")
	if rr.Code != http.StatusOK || rr.Body.String() != "jpeg-bytes" {
		t.Fatalf("static: %d %q", rr.Code, rr.Body.String())
	}
	if rr := serve(h, http.MethodGet, "/static/missing.jpg", "", ""); rr.Code != http.StatusNotFound {
		t.Fatalf("missing static status = %d", rr.Code)
	}
}
