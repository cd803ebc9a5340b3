// Package geoip tags requests with the caller's country for request logs.
package geoip

import (
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/oschwald/geoip2-golang"
)

var ErrUnavailable = errors.New("geoip: resolver unavailable")

// CountryResolver maps a client IP to an ISO 3166-1 alpha-2 code. An empty
// code with a nil error means the address is not in the database.
type CountryResolver interface {
	CountryCode(ip string) (string, error)
}

// Resolver reads a MaxMind GeoLite2/GeoIP2 country database.
type Resolver struct {
	reader *geoip2.Reader
}

// Open loads the database at path. An empty path disables lookups and
// returns a nil *Resolver, which answers every call with ErrUnavailable.
func Open(path string) (*Resolver, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, nil
	}
	reader, err := geoip2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("geoip: open %s: %w", path, err)
	}
	return &Resolver{reader: reader}, nil
}

func (r *Resolver) CountryCode(ip string) (string, error) {
	if r == nil || r.reader == nil {
		return "", ErrUnavailable
	}
	host := ip
	if h, _, err := net.SplitHostPort(ip); err == nil {
		host = h
	}
	parsed := net.ParseIP(host)
	if parsed == nil {
		return "", fmt.Errorf("geoip: invalid ip %q", ip)
	}
	record, err := r.reader.Country(parsed)
	if err != nil {
		return "", fmt.Errorf("geoip: lookup %s: %w", host, err)
	}
	if record == nil {
		return "", nil
	}
	return record.Country.IsoCode, nil
}

func (r *Resolver) Close() error {
	if r == nil || r.reader == nil {
		return nil
	}
	return r.reader.Close()
}
