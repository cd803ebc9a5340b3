package middleware

import (
	"context"
	"net/http"

	"tryon/internal/infra/geoip"
)

type countryKey struct{}

// ClientCountry resolves the client IP to a country code and stores it in
// the request context for the request log. Lookup failures are ignored.
func ClientCountry(resolver geoip.CountryResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if resolver == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			code, err := resolver.CountryCode(r.RemoteAddr)
			if err == nil && code != "" {
				r = r.WithContext(context.WithValue(r.Context(), countryKey{}, code))
			}
			next.ServeHTTP(w, r)
		})
	}
}

func CountryFromContext(ctx context.Context) string {
	code, _ := ctx.Value(countryKey{}).(string)
	return code
}
