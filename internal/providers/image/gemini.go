package image

import (
	"context"
	"encoding/base64"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"productshoot/internal/infra"
	"productshoot/internal/providers/genai"
)

const geminiMockTitle = "Nano Banana Mock Image"

type geminiClient interface {
	GenerateContent(ctx context.Context, req genai.GenerateContentRequest) (*genai.GenerateContentResponse, error)
}

// GeminiOptions configures the Gemini ("nano banana") image provider.
type GeminiOptions struct {
	APIKey     string
	ForceMock  bool
	Model      string
	BaseURL    string
	HTTPClient *http.Client
	Limiter    *rate.Limiter
	Logger     *infra.Logger
}

// GeminiGenerator issues one generateContent call per requested image.
type GeminiGenerator struct {
	client  geminiClient
	limiter *rate.Limiter
	logger  zerolog.Logger
}

// NewGeminiGenerator decides mock mode once: without a key, or when forced,
// the generator never touches the network.
func NewGeminiGenerator(opts GeminiOptions) (*GeminiGenerator, error) {
	g := &GeminiGenerator{limiter: opts.Limiter, logger: zerolog.New(io.Discard)}
	if opts.Logger != nil {
		g.logger = *opts.Logger
	}
	if opts.ForceMock || strings.TrimSpace(opts.APIKey) == "" {
		return g, nil
	}
	client, err := genai.NewClient(genai.Options{
		APIKey:     opts.APIKey,
		BaseURL:    opts.BaseURL,
		Model:      opts.Model,
		HTTPClient: opts.HTTPClient,
		Logger:     opts.Logger,
	})
	if err != nil {
		return nil, err
	}
	g.client = client
	return g, nil
}

func (g *GeminiGenerator) Name() string { return EngineGemini }

func (g *GeminiGenerator) Mock() bool { return g.client == nil }

func (g *GeminiGenerator) Generate(ctx context.Context, req Request) (Result, error) {
	count := ClampCount(req.Count)
	if g.Mock() {
		return Result{Images: mockImages(geminiMockTitle, req.Prompt, count)}, nil
	}

	parts := []genai.Part{{Text: req.Prompt}}
	if req.Image != nil && len(req.Image.Data) > 0 {
		parts = append(parts, genai.Part{InlineData: &genai.InlineData{
			MimeType: firstNonEmpty(req.Image.MIME, "image/png"),
			Data:     base64.StdEncoding.EncodeToString(req.Image.Data),
		}})
	}
	payload := genai.GenerateContentRequest{
		Contents:         []genai.Content{{Role: "user", Parts: parts}},
		GenerationConfig: &genai.GenerationConfig{ResponseModalities: []string{"TEXT", "IMAGE"}},
	}

	images := make([]string, 0, count)
	for i := 0; i < count; i++ {
		if err := waitTurn(ctx, g.limiter); err != nil {
			return Result{}, providerError(EngineGemini, err)
		}
		resp, err := g.client.GenerateContent(ctx, payload)
		if err != nil {
			return Result{}, providerError(EngineGemini, err)
		}
		ref, degraded := geminiImageRef(resp.Parts(), req.Prompt, i)
		if degraded {
			g.logger.Warn().Int("index", i).Msg("gemini: response carried no image, using placeholder")
		}
		images = append(images, ref)
	}
	return Result{Images: images}, nil
}

var geminiPartMatchers = []func([]genai.Part) (string, bool){
	inlinePartRef,
	filePartRef,
}

// geminiImageRef picks the first usable image from a response. A response
// with no visual content yields a placeholder and degraded=true.
func geminiImageRef(parts []genai.Part, prompt string, index int) (ref string, degraded bool) {
	for _, m := range geminiPartMatchers {
		if ref, ok := m(parts); ok {
			return ref, false
		}
	}
	var texts []string
	for _, p := range parts {
		if t := strings.TrimSpace(p.Text); t != "" {
			texts = append(texts, t)
		}
	}
	if len(texts) > 0 {
		return PlaceholderSVG("Gemini text response", truncateRunes(strings.Join(texts, " "), 80), prompt, index), true
	}
	return PlaceholderSVG("No image data returned by model", truncateRunes(prompt, 60), prompt, index), true
}

func inlinePartRef(parts []genai.Part) (string, bool) {
	for _, p := range parts {
		if p.InlineData != nil && p.InlineData.Data != "" {
			return "data:" + firstNonEmpty(p.InlineData.MimeType, "image/png") + ";base64," + p.InlineData.Data, true
		}
	}
	return "", false
}

func filePartRef(parts []genai.Part) (string, bool) {
	for _, p := range parts {
		if p.FileData != nil && p.FileData.FileURI != "" {
			return p.FileData.FileURI, true
		}
	}
	return "", false
}

var _ Generator = (*GeminiGenerator)(nil)
