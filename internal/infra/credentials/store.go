// Package credentials reads and writes provider API keys kept in the
// integration_tokens table, so a key can be rotated without a redeploy.
package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"tryon/internal/infra"
	"tryon/internal/sqlinline"
)

const ProviderOpenAI = "openai"

type Store struct {
	sql infra.SQLExecutor
}

func NewStore(sql infra.SQLExecutor) *Store {
	return &Store{sql: sql}
}

// OpenAIAPIKey returns the stored key, or "" when none was saved.
func (s *Store) OpenAIAPIKey(ctx context.Context) (string, error) {
	return s.Token(ctx, ProviderOpenAI)
}

func (s *Store) Token(ctx context.Context, provider string) (string, error) {
	row := s.sql.QueryRow(ctx, sqlinline.QSelectIntegrationToken, provider)
	var token string
	if err := row.Scan(&token); err != nil {
		if infra.IsNoRows(err) {
			return "", nil
		}
		return "", fmt.Errorf("credentials: load %s token: %w", provider, err)
	}
	return strings.TrimSpace(token), nil
}

// SetOpenAIAPIKey stores key with free-form properties (e.g. who set it).
func (s *Store) SetOpenAIAPIKey(ctx context.Context, key string, props map[string]any) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("openai api key is required")
	}
	return s.upsert(ctx, ProviderOpenAI, key, props)
}

func (s *Store) upsert(ctx context.Context, provider, token string, props map[string]any) error {
	payload := props
	if payload == nil {
		payload = map[string]any{}
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if _, err = s.sql.Exec(ctx, sqlinline.QUpsertIntegrationToken, provider, token, raw); err != nil {
		return fmt.Errorf("credentials: save %s token: %w", provider, err)
	}
	return nil
}
