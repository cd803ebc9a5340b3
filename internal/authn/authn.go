// Package authn resolves a bearer credential to the caller's identity.
// Verification is read-only and never retried; every failure is
// domain.ErrUnauthorized.
package authn

import (
	"context"
	"fmt"
	"strings"

	"tryon/internal/domain"
)

// Authenticator verifies an access token issued by the identity provider.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (domain.Principal, error)
}

// ParseBearer extracts the token from an Authorization header value.
func ParseBearer(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", fmt.Errorf("%w: missing authorization header", domain.ErrUnauthorized)
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", fmt.Errorf("%w: authorization header must use the Bearer scheme", domain.ErrUnauthorized)
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", fmt.Errorf("%w: empty bearer token", domain.ErrUnauthorized)
	}
	return token, nil
}

func unauthorized(reason string, err error) error {
	if err == nil {
		return fmt.Errorf("%w: %s", domain.ErrUnauthorized, reason)
	}
	return fmt.Errorf("%w: %s: %v", domain.ErrUnauthorized, reason, err)
}
