package prompt

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"productshoot/internal/domain"
	"productshoot/internal/infra"
)

const (
	defaultOpenAIModel   = "gpt-5"
	defaultOpenAIBaseURL = "https://api.openai.com/v1"
	openAIDefaultTimeout = 90 * time.Second
)

type OpenAIOptions struct {
	APIKey       string
	Model        string
	BaseURL      string
	Organization string
	HTTPClient   *http.Client
	Logger       *infra.Logger
}

// OpenAIGenerator asks the Responses API for a JSON object of prompts.
type OpenAIGenerator struct {
	apiKey       string
	model        string
	baseURL      string
	organization string
	client       *http.Client
	logger       zerolog.Logger
}

type responsesRequest struct {
	Model string           `json:"model"`
	Input []responsesInput `json:"input"`
	Text  *responsesText   `json:"text,omitempty"`
}

type responsesInput struct {
	Role    string             `json:"role"`
	Content []responsesContent `json:"content"`
}

type responsesContent struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
}

type responsesText struct {
	Format responsesFormat `json:"format"`
}

type responsesFormat struct {
	Type string `json:"type"`
}

type responsesResponse struct {
	OutputText string `json:"output_text"`
	Output     []struct {
		Type    string `json:"type"`
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	} `json:"output"`
}

type openAIErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

func NewOpenAIGenerator(opts OpenAIOptions) (*OpenAIGenerator, error) {
	apiKey := strings.TrimSpace(opts.APIKey)
	if apiKey == "" {
		return nil, errors.New("openai api key is required")
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: openAIDefaultTimeout}
	}
	g := &OpenAIGenerator{
		apiKey:       apiKey,
		model:        coalesce(opts.Model, defaultOpenAIModel),
		baseURL:      baseURL,
		organization: strings.TrimSpace(opts.Organization),
		client:       client,
		logger:       zerolog.New(io.Discard),
	}
	if opts.Logger != nil {
		g.logger = *opts.Logger
	}
	return g, nil
}

func (o *OpenAIGenerator) Name() string { return openAIProviderName }

func (o *OpenAIGenerator) Mock() bool { return false }

func (o *OpenAIGenerator) Generate(ctx context.Context, req Request) ([]string, error) {
	prompts, err := o.generate(ctx, req)
	if err != nil {
		return nil, &domain.ProviderError{Provider: openAIProviderName, Err: err}
	}
	return prompts, nil
}

func (o *OpenAIGenerator) generate(ctx context.Context, req Request) ([]string, error) {
	content := []responsesContent{{Type: "input_text", Text: buildInstruction(req)}}
	if len(req.ImageData) > 0 {
		mime := coalesce(req.ImageMIME, "image/png")
		content = append(content, responsesContent{
			Type:     "input_image",
			ImageURL: "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(req.ImageData),
		})
	}
	payload := responsesRequest{
		Model: o.model,
		Input: []responsesInput{{Role: "user", Content: content}},
		Text:  &responsesText{Format: responsesFormat{Type: "json_object"}},
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(payload); err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/responses", &buf)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+o.apiKey)
	if o.organization != "" {
		httpReq.Header.Set("OpenAI-Organization", o.organization)
	}

	start := time.Now()
	resp, err := o.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		var apiErr openAIErrorResponse
		if err := json.Unmarshal(raw, &apiErr); err == nil && apiErr.Error.Message != "" {
			return nil, fmt.Errorf("openai status %d: %s", resp.StatusCode, apiErr.Error.Message)
		}
		return nil, fmt.Errorf("openai status %d", resp.StatusCode)
	}

	var out responsesResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	text := strings.TrimSpace(out.OutputText)
	if text == "" {
		text = collectOutputText(out)
	}
	prompts, err := parsePrompts(text, clampCount(req.Count))
	if err != nil {
		return nil, fmt.Errorf("failed to parse prompts JSON: %w", err)
	}
	o.logger.Debug().
		Str("model", o.model).
		Int("prompts", len(prompts)).
		Dur("elapsed", time.Since(start)).
		Msg("openai: prompts generated")
	return prompts, nil
}

func collectOutputText(out responsesResponse) string {
	var sb strings.Builder
	for _, item := range out.Output {
		for _, c := range item.Content {
			if c.Type == "output_text" || c.Type == "text" {
				sb.WriteString(c.Text)
			}
		}
	}
	return strings.TrimSpace(sb.String())
}

var _ Generator = (*OpenAIGenerator)(nil)
