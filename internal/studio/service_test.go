package studio

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"productshoot/internal/domain"
	"productshoot/internal/providers/image"
	"productshoot/internal/providers/prompt"
	"productshoot/internal/validate"
)

type stubPrompts struct {
	prompts []string
	err     error
	calls   int
}

func (s *stubPrompts) Generate(ctx context.Context, req prompt.Request) ([]string, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	n := min(req.Count, len(s.prompts))
	return s.prompts[:n], nil
}

func (s *stubPrompts) Name() string { return "stub" }
func (s *stubPrompts) Mock() bool   { return true }

// recordingGenerator answers with a ref derived from the prompt after a delay
// that makes later prompts finish first.
type recordingGenerator struct {
	name     string
	mu       sync.Mutex
	buffers  map[*byte]int
	inFlight atomic.Int64
	peak     atomic.Int64
	calls    atomic.Int64
	failOn   string
}

func (g *recordingGenerator) Name() string { return g.name }
func (g *recordingGenerator) Mock() bool   { return false }

func (g *recordingGenerator) Generate(ctx context.Context, req image.Request) (image.Result, error) {
	g.calls.Add(1)
	n := g.inFlight.Add(1)
	defer g.inFlight.Add(-1)
	for {
		p := g.peak.Load()
		if n <= p || g.peak.CompareAndSwap(p, n) {
			break
		}
	}
	if req.Image != nil && len(req.Image.Data) > 0 {
		g.mu.Lock()
		if g.buffers == nil {
			g.buffers = map[*byte]int{}
		}
		g.buffers[&req.Image.Data[0]]++
		g.mu.Unlock()
	}
	if req.Prompt == g.failOn {
		return image.Result{}, &domain.ProviderError{Provider: g.name, Err: errors.New("upstream 502")}
	}
	time.Sleep(time.Duration(10-len(req.Prompt)) * 3 * time.Millisecond)
	if req.Count != 1 {
		return image.Result{}, fmt.Errorf("expected count 1, got %d", req.Count)
	}
	return image.Result{Images: []string{"img:" + req.Prompt}}, nil
}

func pngImage(size int) *image.SourceImage {
	return &image.SourceImage{Data: make([]byte, size), MIME: "image/png"}
}

func newTestService(p prompt.Generator, gens ...image.Generator) *Service {
	return NewService(Options{Prompts: p, Images: image.NewRegistry(gens...)})
}

func TestGenerateFlattensInPromptOrder(t *testing.T) {
	prompts := &stubPrompts{prompts: []string{"a", "bb", "ccc", "dddd", "eeeee", "ffffff"}}
	gen := &recordingGenerator{name: image.EngineGemini}
	svc := newTestService(prompts, gen)

	res, err := svc.Generate(context.Background(), GenerateInput{Template: "studio", Count: 6, Image: pngImage(16)})
	require.NoError(t, err)
	assert.Equal(t, prompts.prompts, res.Prompts)
	assert.Equal(t, []string{"img:a", "img:bb", "img:ccc", "img:dddd", "img:eeeee", "img:ffffff"}, res.Images)
	assert.LessOrEqual(t, gen.peak.Load(), int64(DefaultFanOut))
	assert.Equal(t, image.EngineGemini, res.Engine)

	// each task received its own buffer
	assert.Len(t, gen.buffers, 6)
}

func TestGenerateFailsFastOnProviderError(t *testing.T) {
	prompts := &stubPrompts{prompts: []string{"a", "bb", "ccc"}}
	gen := &recordingGenerator{name: image.EngineGemini, failOn: "bb"}
	svc := newTestService(prompts, gen)

	_, err := svc.Generate(context.Background(), GenerateInput{Template: "studio", Count: 3, Image: pngImage(8)})
	require.ErrorIs(t, err, domain.ErrProviderFailure)
	assert.Equal(t, "gemini: upstream 502", err.Error())
}

func TestGenerateInputErrorsSkipUpstream(t *testing.T) {
	cases := []struct {
		name string
		in   GenerateInput
		msg  string
	}{
		{name: "missing_template", in: GenerateInput{Image: pngImage(4)}, msg: "template is required"},
		{name: "missing_image", in: GenerateInput{Template: "t"}, msg: "image is required"},
		{name: "bad_type", in: GenerateInput{Template: "t", Image: &image.SourceImage{Data: []byte("x"), MIME: "image/gif"}}, msg: "unsupported file type: image/gif"},
		{name: "too_large", in: GenerateInput{Template: "t", Image: pngImage(9 << 20)}, msg: "file too large: 9.00 MiB (max 8 MiB)"},
		{name: "unknown_engine", in: GenerateInput{Template: "t", Image: pngImage(4), Engine: "midjourney"}, msg: "unsupported engine: midjourney"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			prompts := &stubPrompts{prompts: []string{"a"}}
			gen := &recordingGenerator{name: image.EngineGemini}
			svc := newTestService(prompts, gen)

			_, err := svc.Generate(context.Background(), tc.in)
			require.ErrorIs(t, err, domain.ErrInvalidInput)
			assert.Equal(t, tc.msg, err.Error())
			assert.Zero(t, prompts.calls)
			assert.Zero(t, gen.calls.Load())
		})
	}
}

func TestGenerateAcceptsImageAtCeiling(t *testing.T) {
	prompts := &stubPrompts{prompts: []string{"a"}}
	svc := newTestService(prompts, &recordingGenerator{name: image.EngineGemini})
	_, err := svc.Generate(context.Background(), GenerateInput{Template: "t", Image: pngImage(int(validate.MaxImageBytes))})
	require.NoError(t, err)
}

func TestGeneratePromptFailureSurfaces(t *testing.T) {
	upstream := &domain.ProviderError{Provider: "openai", Err: errors.New("failed to parse prompts JSON: eof")}
	gen := &recordingGenerator{name: image.EngineGemini}
	svc := newTestService(&stubPrompts{err: upstream}, gen)

	_, err := svc.Generate(context.Background(), GenerateInput{Template: "t", Image: pngImage(4)})
	require.ErrorIs(t, err, domain.ErrProviderFailure)
	assert.Zero(t, gen.calls.Load())
}

func TestGenerateWithMockAdapter(t *testing.T) {
	mock, err := image.NewGeminiGenerator(image.GeminiOptions{})
	require.NoError(t, err)
	svc := newTestService(prompt.NewStaticGenerator(), mock)

	res, err := svc.Generate(context.Background(), GenerateInput{Template: "studio lighting", Count: 2, Image: pngImage(32)})
	require.NoError(t, err)
	assert.Len(t, res.Prompts, 2)
	assert.Len(t, res.Images, 2)
	assert.True(t, res.Mock)
	assert.NotEqual(t, res.Images[0], res.Images[1])
}

func TestImages(t *testing.T) {
	gemini := &recordingGenerator{name: image.EngineGemini}
	seedream := &recordingGenerator{name: image.EngineSeedream}
	svc := newTestService(&stubPrompts{}, gemini, seedream)

	_, err := svc.Images(context.Background(), ImagesInput{Engine: "gemini"})
	require.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = svc.Images(context.Background(), ImagesInput{Prompt: "p", Engine: "seedream"})
	require.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Equal(t, "image is required for seedream", err.Error())
	assert.Zero(t, seedream.calls.Load())

	res, err := svc.Images(context.Background(), ImagesInput{Prompt: "p", Engine: "seedream", Image: pngImage(4)})
	require.NoError(t, err)
	assert.Equal(t, []string{"img:p"}, res.Images)
}

func TestImagesClampsCountForAdapter(t *testing.T) {
	mock, _ := image.NewGeminiGenerator(image.GeminiOptions{})
	svc := newTestService(&stubPrompts{}, mock)
	res, err := svc.Images(context.Background(), ImagesInput{Prompt: "p", Count: 50})
	require.NoError(t, err)
	assert.Len(t, res.Images, image.MaxCount)
}

func TestPrompts(t *testing.T) {
	svc := newTestService(prompt.NewStaticGenerator())

	_, err := svc.Prompts(context.Background(), PromptsInput{})
	require.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = svc.Prompts(context.Background(), PromptsInput{Template: "t", Image: &image.SourceImage{Data: []byte("x"), MIME: "text/plain"}})
	require.ErrorIs(t, err, domain.ErrInvalidInput)

	res, err := svc.Prompts(context.Background(), PromptsInput{Template: "flat lay", Count: 3})
	require.NoError(t, err)
	assert.Len(t, res.Prompts, 3)
	assert.Empty(t, res.Images)
}

func TestGenerateSurvivesCallerCancellation(t *testing.T) {
	prompts := &stubPrompts{prompts: []string{"a", "bb"}}
	gen := &recordingGenerator{name: image.EngineGemini}
	svc := newTestService(prompts, gen)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := svc.Generate(ctx, GenerateInput{Template: "t", Count: 2, Image: pngImage(4)})
	require.NoError(t, err)
	assert.Len(t, res.Images, 2)
}
