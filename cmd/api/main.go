package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"tryon/internal/audit"
	"tryon/internal/authn"
	"tryon/internal/http/handlers"
	httpapi "tryon/internal/http/httpapi"
	"tryon/internal/imagegen"
	"tryon/internal/infra"
	"tryon/internal/infra/credentials"
	"tryon/internal/infra/geoip"
	"tryon/internal/ledger"
	"tryon/internal/providers/openai"
	"tryon/internal/storage"
	"tryon/internal/tryon"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv, cfg.LogLevel)

	ctx := context.Background()

	var pool *pgxpool.Pool
	if cfg.DatabaseURL != "" {
		pool, err = infra.NewDBPool(ctx, cfg)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect database")
		}
		defer pool.Close()
	}

	var (
		credits  ledger.Ledger
		recorder audit.Recorder
		keys     openai.KeySource
	)
	if pool != nil {
		sql := infra.NewSQLRunner(pool, logger)
		recorder = audit.NewPostgres(sql)
		keys = credentials.NewStore(sql)
		if cfg.LedgerDriver == "postgres" {
			credits = ledger.NewPostgres(sql)
		}
	} else {
		recorder = audit.NewMemory()
	}
	if credits == nil {
		logger.Warn().Msg("using in-memory credit ledger; balances are lost on restart")
		credits = ledger.NewMemory(cfg.LedgerSeed)
	}

	authenticator, closeAuth := newAuthenticator(cfg, logger)
	defer closeAuth()

	provider := openai.NewClient(openai.Options{
		APIKey:       cfg.OpenAIAPIKey,
		Keys:         keys,
		BaseURL:      cfg.OpenAIBaseURL,
		Model:        cfg.OpenAIModel,
		OutputFormat: cfg.OpenAIOutputFormat,
		Organization: cfg.OpenAIOrg,
		Logger:       logger.With().Str("component", "openai").Logger(),
	})
	invoker := imagegen.NewInvoker(provider, imagegen.Options{
		MaxConcurrency: cfg.GenerationMaxConcurrency,
		Timeout:        cfg.GenerationTimeout,
		Logger:         logger.With().Str("component", "imagegen").Logger(),
	})

	publisher, staticDir := newPublisher(ctx, cfg, logger)

	svc, err := tryon.NewService(tryon.Options{
		Ledger:    credits,
		Generator: invoker,
		Publisher: publisher,
		Audit:     audit.NewLog(recorder, logger.With().Str("component", "audit").Logger()),
		Logger:    logger.With().Str("component", "tryon").Logger(),
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build try-on service")
	}

	var countries geoip.CountryResolver
	if resolver, err := geoip.Open(cfg.GeoIPDBPath); err != nil {
		logger.Warn().Err(err).Msg("geoip disabled")
	} else if resolver != nil {
		defer resolver.Close()
		countries = resolver
	}

	app := handlers.NewApp(svc, logger)
	app.CreditsZeroOnError = cfg.CreditsZeroOnError

	router := httpapi.NewRouter(app, httpapi.Options{
		Authenticator:     authenticator,
		Logger:            logger,
		AllowedOrigins:    cfg.AllowedOrigins,
		RateLimitPerMin:   cfg.RateLimitPerMin,
		MaxBodyBytes:      cfg.HTTPMaxBodyBytes,
		StaticDir:         staticDir,
		Countries:         countries,
		TrustProxyHeaders: cfg.TrustProxy,
	})

	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().
			Str("addr", server.Addr()).
			Str("ledger", cfg.LedgerDriver).
			Str("auth", cfg.AuthMode).
			Str("storage", cfg.StorageDriver).
			Msg("API listening")
		if err := server.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	// In-flight generations may run for the full provider timeout; give them
	// the chance to finish and settle their credit.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.GenerationTimeout+10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}

func newAuthenticator(cfg *infra.Config, logger zerolog.Logger) (authn.Authenticator, func()) {
	if cfg.AuthMode == "remote" {
		v, err := authn.NewRemoteVerifier(cfg.AuthBaseURL, cfg.AuthAPIKey, &http.Client{Timeout: 10 * time.Second})
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to build remote authenticator")
		}
		return v, func() {}
	}

	opts := authn.JWTOptions{
		Issuer:   cfg.AuthJWTIssuer,
		Audience: cfg.AuthJWTAudience,
		Leeway:   30 * time.Second,
	}
	var (
		v   *authn.JWTVerifier
		err error
	)
	if cfg.AuthJWKSURL != "" {
		v, err = authn.NewJWKSVerifier(cfg.AuthJWKSURL, opts, logger.With().Str("component", "jwks").Logger())
	} else {
		v, err = authn.NewHMACVerifier(cfg.AuthJWTSecret, opts)
	}
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build jwt authenticator")
	}
	return v, v.Close
}

// newPublisher returns the configured publisher and, for the filesystem
// driver, the directory the router serves under /static.
func newPublisher(ctx context.Context, cfg *infra.Config, logger zerolog.Logger) (storage.Publisher, string) {
	switch cfg.StorageDriver {
	case "s3":
		p, err := storage.NewS3Publisher(ctx, storage.S3Options{
			Endpoint:      cfg.S3Endpoint,
			Region:        cfg.S3Region,
			AccessKey:     cfg.S3AccessKey,
			SecretKey:     cfg.S3SecretKey,
			Bucket:        cfg.StorageBucket,
			PublicBaseURL: cfg.StoragePublicBaseURL,
			UsePathStyle:  cfg.S3UsePathStyle,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to build s3 publisher")
		}
		checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := p.CheckBucket(checkCtx); err != nil {
			logger.Warn().Err(err).Str("bucket", cfg.StorageBucket).Msg("bucket check failed; uploads will fall back to inline images")
		}
		return p, ""
	case "minio":
		initCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
		defer cancel()
		p, err := storage.NewMinioPublisher(initCtx, storage.MinioOptions{
			Endpoint:      cfg.MinioEndpoint,
			AccessKey:     cfg.S3AccessKey,
			SecretKey:     cfg.S3SecretKey,
			UseSSL:        cfg.MinioUseSSL,
			Bucket:        cfg.StorageBucket,
			PublicBaseURL: cfg.StoragePublicBaseURL,
		}, logger.With().Str("component", "minio").Logger())
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to build minio publisher")
		}
		return p, ""
	default:
		fs, err := storage.NewFileStore(cfg.StoragePath, cfg.StoragePublicBaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to prepare storage directory")
		}
		return fs, fs.BasePath()
	}
}
