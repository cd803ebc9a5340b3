package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"tryon/internal/authn"
	"tryon/internal/http/handlers"
	"tryon/internal/infra/geoip"
	"tryon/internal/middleware"
)

type Options struct {
	Authenticator  authn.Authenticator
	Logger         zerolog.Logger
	AllowedOrigins []string
	// RateLimitPerMin caps generate calls per client IP; zero disables it.
	RateLimitPerMin int
	MaxBodyBytes    int64
	// TrustProxyHeaders takes the client address from X-Forwarded-For and
	// X-Real-IP. Enable it only behind a proxy that overwrites them.
	TrustProxyHeaders bool
	// Countries tags request logs with the client country when set.
	Countries geoip.CountryResolver
	// StaticDir is served under /static when results are published to the
	// local filesystem.
	StaticDir string
}

func NewRouter(app *handlers.App, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	if opts.TrustProxyHeaders {
		r.Use(chimw.RealIP)
	}
	r.Use(
		middleware.ClientCountry(opts.Countries),
		middleware.Logger(opts.Logger),
		chimw.Recoverer,
		middleware.CORS(opts.AllowedOrigins),
	)
	r.NotFound(app.NotFound)
	r.MethodNotAllowed(app.MethodNotAllowed)

	r.Get("/v1/healthz", app.Health)

	auth := middleware.Authenticate(opts.Authenticator, opts.Logger)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RateLimit(opts.RateLimitPerMin, time.Minute))
		if opts.MaxBodyBytes > 0 {
			r.Use(chimw.RequestSize(opts.MaxBodyBytes))
		}
		r.Use(auth)
		r.Post("/generate", app.Generate)
		r.Post("/api/generate", app.Generate)
	})

	r.Group(func(r chi.Router) {
		r.Use(auth)
		r.Get("/credits", app.Credits)
		r.Get("/api/credits", app.Credits)
		r.Get("/generations", app.Generations)
		r.Get("/api/generations", app.Generations)
	})

	if opts.StaticDir != "" {
		fs := http.StripPrefix("/static/", http.FileServer(http.Dir(opts.StaticDir)))
		r.Get("/static/*", fs.ServeHTTP)
	}

	return r
}
