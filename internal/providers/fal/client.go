package fal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"productshoot/internal/infra"
)

// ErrMissingAPIKey indicates that the client was configured without credentials.
var ErrMissingAPIKey = errors.New("fal: api key is required")

const (
	DefaultRunURL  = "https://fal.run"
	DefaultRestURL = "https://rest.alpha.fal.ai"
)

// Options configures the fal.ai client.
type Options struct {
	APIKey         string
	RunURL         string
	RestURL        string
	HTTPClient     *http.Client
	Logger         *infra.Logger
	RequestTimeout time.Duration
}

// Client performs synchronous model runs and storage uploads against fal.ai.
type Client struct {
	apiKey     string
	runURL     string
	restURL    string
	httpClient *http.Client
	logger     *infra.Logger
}

type uploadInitiateRequest struct {
	ContentType string `json:"content_type"`
	FileName    string `json:"file_name"`
}

type uploadInitiateResponse struct {
	UploadURL string `json:"upload_url"`
	FileURL   string `json:"file_url"`
}

type errorResponse struct {
	Detail json.RawMessage `json:"detail"`
}

// NewClient constructs a client with sane defaults and injected dependencies.
func NewClient(opts Options) (*Client, error) {
	apiKey := strings.TrimSpace(opts.APIKey)
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 120 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	runURL := strings.TrimRight(opts.RunURL, "/")
	if runURL == "" {
		runURL = DefaultRunURL
	}
	restURL := strings.TrimRight(opts.RestURL, "/")
	if restURL == "" {
		restURL = DefaultRestURL
	}
	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return &Client{
		apiKey:     apiKey,
		runURL:     runURL,
		restURL:    restURL,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// Upload stores data in fal storage and returns its public file URL.
func (c *Client) Upload(ctx context.Context, data []byte, contentType, fileName string) (string, error) {
	if len(data) == 0 {
		return "", errors.New("fal: upload requires data")
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	var initiated uploadInitiateResponse
	endpoint := c.restURL + "/storage/upload/initiate?storage_type=fal-cdn-v3"
	if err := c.postJSON(ctx, endpoint, uploadInitiateRequest{ContentType: contentType, FileName: fileName}, &initiated); err != nil {
		return "", fmt.Errorf("fal: initiate upload: %w", err)
	}
	if initiated.UploadURL == "" || initiated.FileURL == "" {
		return "", errors.New("fal: initiate upload: missing upload or file url")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, initiated.UploadURL, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("fal: build upload request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fal: upload: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return "", fmt.Errorf("fal: upload status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	c.logger.Debug().
		Int("bytes", len(data)).
		Str("file_url", initiated.FileURL).
		Msg("fal: uploaded source image")
	return initiated.FileURL, nil
}

// Run invokes model synchronously with input and decodes the JSON result into out.
func (c *Client) Run(ctx context.Context, model string, input any, out any) error {
	model = strings.Trim(strings.TrimSpace(model), "/")
	if model == "" {
		return errors.New("fal: model is required")
	}
	segments := strings.Split(model, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	start := time.Now()
	if err := c.postJSON(ctx, c.runURL+"/"+strings.Join(segments, "/"), input, out); err != nil {
		return fmt.Errorf("fal: run %s: %w", model, err)
	}
	c.logger.Debug().
		Str("model", model).
		Dur("elapsed", time.Since(start)).
		Msg("fal: run completed")
	return nil
}

func (c *Client) postJSON(ctx context.Context, endpoint string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Key "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("status %d: %s", resp.StatusCode, errorDetail(raw))
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func errorDetail(raw []byte) string {
	var detail errorResponse
	if err := json.Unmarshal(raw, &detail); err == nil && len(detail.Detail) > 0 {
		var msg string
		if err := json.Unmarshal(detail.Detail, &msg); err == nil && msg != "" {
			return msg
		}
		return string(detail.Detail)
	}
	return strings.TrimSpace(string(raw))
}
