// Package openai calls the OpenAI Images edit endpoint with multipart image
// uploads and normalises the result to raw bytes.
package openai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"tryon/internal/imagecodec"
)

// ErrMissingAPIKey indicates that neither the environment nor the key store
// provided credentials.
var ErrMissingAPIKey = errors.New("openai: api key is required")

const (
	defaultBaseURL      = "https://api.openai.com/v1"
	defaultModel        = "gpt-image-1.5"
	defaultOutputFormat = "jpeg"
	maxResponseBytes    = 64 << 20
)

// KeySource looks the API key up outside the environment, e.g. in the
// integration_tokens table.
type KeySource interface {
	OpenAIAPIKey(ctx context.Context) (string, error)
}

// Options configures the OpenAI images client.
type Options struct {
	APIKey       string
	Keys         KeySource
	BaseURL      string
	Model        string
	OutputFormat string
	Organization string
	HTTPClient   *http.Client
	Logger       zerolog.Logger
}

// Client performs HTTP calls to the images edit API.
type Client struct {
	baseURL      string
	model        string
	outputFormat string
	organization string
	httpClient   *http.Client
	logger       zerolog.Logger

	maxBytes int64

	keys   KeySource
	mu     sync.Mutex
	apiKey string
}

type imagesResponse struct {
	Created int64 `json:"created"`
	Data    []struct {
		B64JSON       string `json:"b64_json"`
		URL           string `json:"url"`
		RevisedPrompt string `json:"revised_prompt"`
	} `json:"data"`
	Error *apiError `json:"error"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code"`
}

// NewClient constructs a client with defaults for every empty option. No
// timeout is set on the default HTTP client; callers bound each call through
// the context.
func NewClient(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = defaultModel
	}
	format := strings.ToLower(strings.TrimSpace(opts.OutputFormat))
	if format == "" {
		format = defaultOutputFormat
	}
	return &Client{
		baseURL:      baseURL,
		model:        model,
		outputFormat: format,
		organization: strings.TrimSpace(opts.Organization),
		httpClient:   httpClient,
		logger:       opts.Logger,
		maxBytes:     maxResponseBytes,
		keys:         opts.Keys,
		apiKey:       strings.TrimSpace(opts.APIKey),
	}
}

func (c *Client) Name() string { return "openai" }

// Model returns the configured model identifier.
func (c *Client) Model() string { return c.model }

// Edit sends prompt and images (in order) to the edit endpoint and returns
// the first generated image.
func (c *Client) Edit(ctx context.Context, prompt, size string, images ...imagecodec.Payload) (imagecodec.Payload, error) {
	if strings.TrimSpace(prompt) == "" {
		return imagecodec.Payload{}, errors.New("openai: prompt is required")
	}
	if len(images) == 0 {
		return imagecodec.Payload{}, errors.New("openai: at least one image is required")
	}
	apiKey, err := c.resolveKey(ctx)
	if err != nil {
		return imagecodec.Payload{}, err
	}

	body, contentType, err := c.encodeForm(prompt, size, images)
	if err != nil {
		return imagecodec.Payload{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/images/edits", body)
	if err != nil {
		return imagecodec.Payload{}, fmt.Errorf("openai: build request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+apiKey)
	if c.organization != "" {
		req.Header.Set("OpenAI-Organization", c.organization)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return imagecodec.Payload{}, fmt.Errorf("openai: http request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := c.readBody(resp.Body)
	if err != nil {
		return imagecodec.Payload{}, fmt.Errorf("openai: read response: %w", err)
	}

	var decoded imagesResponse
	decodeErr := json.Unmarshal(raw, &decoded)
	if resp.StatusCode >= 300 {
		if decodeErr == nil && decoded.Error != nil && decoded.Error.Message != "" {
			return imagecodec.Payload{}, fmt.Errorf("openai: %s (%s)", decoded.Error.Message, resp.Status)
		}
		return imagecodec.Payload{}, fmt.Errorf("openai: status %d: %s", resp.StatusCode, truncate(strings.TrimSpace(string(raw)), 300))
	}
	if decodeErr != nil {
		return imagecodec.Payload{}, fmt.Errorf("openai: decode response: %w", decodeErr)
	}
	if len(decoded.Data) == 0 {
		return imagecodec.Payload{}, errors.New("openai: response contained no images")
	}

	first := decoded.Data[0]
	fallbackMIME := "image/" + c.outputFormat
	var out imagecodec.Payload
	switch {
	case strings.TrimSpace(first.B64JSON) != "":
		data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(first.B64JSON))
		if err != nil {
			return imagecodec.Payload{}, fmt.Errorf("openai: decode b64_json: %w", err)
		}
		out = imagecodec.Payload{MIME: imagecodec.Sniff(data, fallbackMIME), Data: data}
	case strings.TrimSpace(first.URL) != "":
		data, contentType, err := c.download(ctx, first.URL)
		if err != nil {
			return imagecodec.Payload{}, err
		}
		if !strings.HasPrefix(contentType, "image/") {
			contentType = fallbackMIME
		}
		out = imagecodec.Payload{MIME: imagecodec.Sniff(data, contentType), Data: data}
	default:
		return imagecodec.Payload{}, errors.New("openai: response had neither b64_json nor url")
	}
	if len(out.Data) == 0 {
		return imagecodec.Payload{}, errors.New("openai: empty image")
	}

	c.logger.Debug().
		Str("model", c.model).
		Str("size", size).
		Int("bytes", len(out.Data)).
		Dur("took", time.Since(start)).
		Msg("openai: edited image")
	return out, nil
}

func (c *Client) encodeForm(prompt, size string, images []imagecodec.Payload) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fields := [][2]string{
		{"model", c.model},
		{"prompt", prompt},
		{"output_format", c.outputFormat},
		{"n", "1"},
	}
	if s := strings.TrimSpace(size); s != "" {
		fields = append(fields, [2]string{"size", s})
	}
	for _, f := range fields {
		if err := w.WriteField(f[0], f[1]); err != nil {
			return nil, "", fmt.Errorf("openai: write field %s: %w", f[0], err)
		}
	}
	for i, img := range images {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image[]"; filename="image%d.%s"`, i+1, imagecodec.Extension(img.MIME)))
		header.Set("Content-Type", img.MIME)
		part, err := w.CreatePart(header)
		if err != nil {
			return nil, "", fmt.Errorf("openai: create image part: %w", err)
		}
		if _, err := part.Write(img.Data); err != nil {
			return nil, "", fmt.Errorf("openai: write image part: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("openai: close form: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}

func (c *Client) download(ctx context.Context, imageURL string) ([]byte, string, error) {
	parsed, err := url.Parse(strings.TrimSpace(imageURL))
	if err != nil || parsed.Scheme == "" {
		return nil, "", fmt.Errorf("openai: invalid image url: %s", imageURL)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, parsed.String(), nil)
	if err != nil {
		return nil, "", fmt.Errorf("openai: build download request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("openai: download image: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, "", fmt.Errorf("openai: download status %d", resp.StatusCode)
	}
	data, err := c.readBody(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("openai: read image: %w", err)
	}
	return data, resp.Header.Get("Content-Type"), nil
}

// readBody reads at most maxBytes and fails instead of truncating.
func (c *Client) readBody(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, c.maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > c.maxBytes {
		return nil, fmt.Errorf("body exceeds %d bytes", c.maxBytes)
	}
	return data, nil
}

func (c *Client) resolveKey(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.apiKey != "" {
		return c.apiKey, nil
	}
	if c.keys == nil {
		return "", ErrMissingAPIKey
	}
	key, err := c.keys.OpenAIAPIKey(ctx)
	if err != nil {
		return "", fmt.Errorf("openai: load api key: %w", err)
	}
	if key = strings.TrimSpace(key); key == "" {
		return "", ErrMissingAPIKey
	}
	c.apiKey = key
	return key, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
