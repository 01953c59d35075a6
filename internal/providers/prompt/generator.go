package prompt

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	staticProviderName = "static"
	openAIProviderName = "openai"
)

// Request asks for Count distinct photography prompts for one product.
type Request struct {
	Template    string
	Description string
	Count       int
	ImageData   []byte
	ImageMIME   string
}

// Generator produces photography prompts from a template and product details.
type Generator interface {
	Generate(ctx context.Context, req Request) ([]string, error)
	Name() string
	Mock() bool
}

var staticVariations = []string{
	"soft diffused key light, three-quarter angle",
	"dramatic rim lighting, low-angle hero shot",
	"natural window light, overhead flat lay",
	"high-key seamless white backdrop, straight-on catalog view",
	"warm golden-hour glow, shallow depth of field close-up",
	"moody low-key lighting, side profile",
	"bright pastel set, playful tilted angle",
	"glossy acrylic surface with reflections, symmetric front view",
}

// StaticGenerator returns deterministic prompts without calling a model.
type StaticGenerator struct{}

func NewStaticGenerator() *StaticGenerator {
	return &StaticGenerator{}
}

func (s *StaticGenerator) Name() string { return staticProviderName }

func (s *StaticGenerator) Mock() bool { return true }

func (s *StaticGenerator) Generate(ctx context.Context, req Request) ([]string, error) {
	c := cases.Title(language.Und)
	template := strings.TrimSpace(req.Template)
	if template == "" {
		template = "studio"
	}
	subject := coalesce(req.Description, "the product")
	n := clampCount(req.Count)
	out := make([]string, n)
	for i := range out {
		variation := staticVariations[i%len(staticVariations)]
		out[i] = fmt.Sprintf("%s product photograph of %s, %s, photorealistic, high detail", c.String(template), subject, variation)
	}
	return out, nil
}

func clampCount(n int) int {
	if n < 1 {
		return 1
	}
	if n > len(staticVariations) {
		return len(staticVariations)
	}
	return n
}

var _ Generator = (*StaticGenerator)(nil)
