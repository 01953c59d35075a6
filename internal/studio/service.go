// Package studio composes validation, prompt generation, and bounded provider
// fan-out into the three generation operations.
package studio

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"productshoot/internal/concurrency"
	"productshoot/internal/domain"
	"productshoot/internal/infra"
	"productshoot/internal/providers/image"
	"productshoot/internal/providers/prompt"
	"productshoot/internal/validate"
)

// DefaultFanOut caps concurrent provider calls per request.
const DefaultFanOut = 3

// Result is the uniform output of every operation. Images follow the order of Prompts.
type Result struct {
	Prompts []string
	Images  []string
	Engine  string
	Mock    bool
}

type GenerateInput struct {
	Template    string
	Description string
	Count       int
	Engine      string
	Image       *image.SourceImage
}

type ImagesInput struct {
	Prompt string
	Count  int
	Engine string
	Image  *image.SourceImage
}

type PromptsInput struct {
	Template    string
	Description string
	Count       int
	Image       *image.SourceImage
}

type Options struct {
	Prompts prompt.Generator
	Images  *image.Registry
	FanOut  int
	Metrics *infra.Metrics
	Logger  *infra.Logger
}

type Service struct {
	prompts prompt.Generator
	images  *image.Registry
	fanOut  int
	metrics *infra.Metrics
	logger  zerolog.Logger
}

type task struct {
	prompt string
	image  *image.SourceImage
}

func NewService(opts Options) *Service {
	s := &Service{
		prompts: opts.Prompts,
		images:  opts.Images,
		fanOut:  opts.FanOut,
		metrics: opts.Metrics,
		logger:  zerolog.Nop(),
	}
	if s.fanOut < 1 {
		s.fanOut = DefaultFanOut
	}
	if opts.Logger != nil {
		s.logger = *opts.Logger
	}
	return s
}

// Generate turns a product photo and template into count prompts and one image per prompt.
func (s *Service) Generate(ctx context.Context, in GenerateInput) (Result, error) {
	template := strings.TrimSpace(in.Template)
	if template == "" {
		return Result{}, domain.Invalidf("template is required")
	}
	if in.Image == nil || len(in.Image.Data) == 0 {
		return Result{}, domain.Invalidf("image is required")
	}
	if err := validateImage(in.Image); err != nil {
		return Result{}, err
	}
	gen, err := s.images.Lookup(in.Engine)
	if err != nil {
		return Result{}, err
	}
	res := Result{Engine: gen.Name(), Mock: gen.Mock()}

	// Once started, upstream calls run to completion even if the client goes away.
	ctx = context.WithoutCancel(ctx)
	prompts, err := s.prompts.Generate(ctx, prompt.Request{
		Template:    template,
		Description: strings.TrimSpace(in.Description),
		Count:       image.ClampCount(in.Count),
		ImageData:   in.Image.Data,
		ImageMIME:   in.Image.MIME,
	})
	if err != nil {
		return res, err
	}
	res.Prompts = prompts

	tasks := make([]task, len(prompts))
	for i, p := range prompts {
		tasks[i] = task{prompt: p, image: in.Image.Clone()}
	}

	perTask, err := concurrency.Map(ctx, tasks, func(ctx context.Context, t task, i int) ([]string, error) {
		out, err := s.call(ctx, gen, image.Request{Image: t.image, Prompt: t.prompt, Count: 1})
		if err != nil {
			s.logger.Warn().Err(err).Int("task", i).Str("engine", gen.Name()).Msg("generation task failed")
			return nil, err
		}
		return out.Images, nil
	}, s.fanOut)
	if err != nil {
		return res, err
	}

	res.Images = make([]string, 0, len(perTask))
	for _, imgs := range perTask {
		res.Images = append(res.Images, imgs...)
	}
	return res, nil
}

// Images calls one provider directly with a caller-supplied prompt.
func (s *Service) Images(ctx context.Context, in ImagesInput) (Result, error) {
	text := strings.TrimSpace(in.Prompt)
	if text == "" {
		return Result{}, domain.Invalidf("prompt is required")
	}
	gen, err := s.images.Lookup(in.Engine)
	if err != nil {
		return Result{}, err
	}
	res := Result{Engine: gen.Name(), Mock: gen.Mock()}
	hasImage := in.Image != nil && len(in.Image.Data) > 0
	if gen.Name() == image.EngineSeedream && !hasImage {
		return res, domain.Invalidf("image is required for seedream")
	}
	if hasImage {
		if err := validateImage(in.Image); err != nil {
			return res, err
		}
	}

	var src *image.SourceImage
	if hasImage {
		src = in.Image.Clone()
	}
	out, err := s.call(context.WithoutCancel(ctx), gen, image.Request{Image: src, Prompt: text, Count: image.ClampCount(in.Count)})
	if err != nil {
		return res, err
	}
	res.Images = out.Images
	return res, nil
}

// Prompts only runs prompt generation.
func (s *Service) Prompts(ctx context.Context, in PromptsInput) (Result, error) {
	template := strings.TrimSpace(in.Template)
	if template == "" {
		return Result{}, domain.Invalidf("template is required")
	}
	req := prompt.Request{
		Template:    template,
		Description: strings.TrimSpace(in.Description),
		Count:       image.ClampCount(in.Count),
	}
	if in.Image != nil && len(in.Image.Data) > 0 {
		if err := validateImage(in.Image); err != nil {
			return Result{}, err
		}
		req.ImageData, req.ImageMIME = in.Image.Data, in.Image.MIME
	}
	prompts, err := s.prompts.Generate(context.WithoutCancel(ctx), req)
	if err != nil {
		return Result{}, err
	}
	return Result{Prompts: prompts, Engine: s.prompts.Name(), Mock: s.prompts.Mock()}, nil
}

// Modes reports mock/live per image engine plus the prompt generator.
func (s *Service) Modes() map[string]string {
	modes := s.images.Modes()
	mode := "live"
	if s.prompts.Mock() {
		mode = "mock"
	}
	modes["prompts"] = mode
	return modes
}

func (s *Service) call(ctx context.Context, gen image.Generator, req image.Request) (image.Result, error) {
	start := time.Now()
	out, err := gen.Generate(ctx, req)
	s.metrics.ObserveProviderCall(gen.Name(), gen.Mock(), err, time.Since(start))
	return out, err
}

func validateImage(src *image.SourceImage) error {
	return validate.Image(validate.Asset{ContentType: src.MIME, Size: int64(len(src.Data))})
}
