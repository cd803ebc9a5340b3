package authn

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"tryon/internal/domain"
)

// AccessClaims are the claims the identity provider puts in its access
// tokens. Only sub and email are consumed.
type AccessClaims struct {
	Email string `json:"email"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// JWTOptions configures claim validation shared by both key sources.
type JWTOptions struct {
	Issuer   string
	Audience string
	Leeway   time.Duration
}

// JWTVerifier checks access tokens locally, either against a shared HMAC
// secret or against keys published at a JWKS endpoint.
type JWTVerifier struct {
	keyFunc jwt.Keyfunc
	parser  *jwt.Parser
	jwks    *keyfunc.JWKS
}

// NewHMACVerifier verifies HS256 tokens signed with secret.
func NewHMACVerifier(secret string, opts JWTOptions) (*JWTVerifier, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("authn: jwt secret is required")
	}
	key := []byte(secret)
	return &JWTVerifier{
		keyFunc: func(*jwt.Token) (any, error) { return key, nil },
		parser:  newParser(opts, jwt.SigningMethodHS256.Alg()),
	}, nil
}

// NewJWKSVerifier fetches the signing keys from jwksURL and keeps them fresh
// in the background until Close is called.
func NewJWKSVerifier(jwksURL string, opts JWTOptions, logger zerolog.Logger) (*JWTVerifier, error) {
	if strings.TrimSpace(jwksURL) == "" {
		return nil, errors.New("authn: jwks url is required")
	}
	jwks, err := keyfunc.Get(jwksURL, keyfunc.Options{
		RefreshInterval:   time.Hour,
		RefreshTimeout:    10 * time.Second,
		RefreshRateLimit:  5 * time.Minute,
		RefreshUnknownKID: true,
		RefreshErrorHandler: func(err error) {
			logger.Warn().Err(err).Str("jwks_url", jwksURL).Msg("jwks refresh failed")
		},
	})
	if err != nil {
		return nil, fmt.Errorf("authn: load jwks: %w", err)
	}
	return &JWTVerifier{
		keyFunc: jwks.Keyfunc,
		parser:  newParser(opts, "RS256", "ES256", "EdDSA"),
		jwks:    jwks,
	}, nil
}

func newParser(opts JWTOptions, methods ...string) *jwt.Parser {
	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods(methods),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(opts.Leeway),
	}
	if opts.Issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(opts.Issuer))
	}
	if opts.Audience != "" {
		parserOpts = append(parserOpts, jwt.WithAudience(opts.Audience))
	}
	return jwt.NewParser(parserOpts...)
}

func (v *JWTVerifier) Authenticate(ctx context.Context, token string) (domain.Principal, error) {
	if strings.TrimSpace(token) == "" {
		return domain.Principal{}, unauthorized("empty token", nil)
	}
	claims := &AccessClaims{}
	parsed, err := v.parser.ParseWithClaims(token, claims, v.keyFunc)
	if err != nil {
		return domain.Principal{}, unauthorized("invalid token", err)
	}
	if !parsed.Valid {
		return domain.Principal{}, unauthorized("invalid token", nil)
	}
	principal := domain.Principal{UserID: claims.Subject, Email: claims.Email}
	if !principal.Valid() {
		return domain.Principal{}, unauthorized("token has no subject", nil)
	}
	return principal, nil
}

// Close stops the background JWKS refresh, if any.
func (v *JWTVerifier) Close() {
	if v.jwks != nil {
		v.jwks.EndBackground()
	}
}

var _ Authenticator = (*JWTVerifier)(nil)
