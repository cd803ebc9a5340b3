package authn

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"tryon/internal/domain"
)

// RemoteVerifier asks the identity provider who owns the token by calling
// its user endpoint. It is the fallback when tokens cannot be verified
// locally.
type RemoteVerifier struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewRemoteVerifier targets {baseURL}/auth/v1/user.
func NewRemoteVerifier(baseURL, apiKey string, httpClient *http.Client) (*RemoteVerifier, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("authn: identity provider base url is required")
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &RemoteVerifier{baseURL: baseURL, apiKey: apiKey, httpClient: httpClient}, nil
}

type remoteUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

func (v *RemoteVerifier) Authenticate(ctx context.Context, token string) (domain.Principal, error) {
	if strings.TrimSpace(token) == "" {
		return domain.Principal{}, unauthorized("empty token", nil)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.baseURL+"/auth/v1/user", nil)
	if err != nil {
		return domain.Principal{}, fmt.Errorf("authn: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if v.apiKey != "" {
		req.Header.Set("apikey", v.apiKey)
	}

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return domain.Principal{}, unauthorized("identity provider unreachable", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return domain.Principal{}, unauthorized("read identity response", err)
	}
	if resp.StatusCode != http.StatusOK {
		return domain.Principal{}, unauthorized(fmt.Sprintf("identity provider returned %d", resp.StatusCode), nil)
	}

	var user remoteUser
	if err := json.Unmarshal(body, &user); err != nil {
		return domain.Principal{}, unauthorized("decode identity response", err)
	}
	principal := domain.Principal{UserID: user.ID, Email: user.Email}
	if !principal.Valid() {
		return domain.Principal{}, unauthorized("identity provider returned no user", nil)
	}
	return principal, nil
}

var _ Authenticator = (*RemoteVerifier)(nil)
