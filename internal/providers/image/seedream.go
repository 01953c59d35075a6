package image

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"productshoot/internal/domain"
	"productshoot/internal/infra"
	"productshoot/internal/providers/fal"
)

const (
	DefaultSeedreamModel = "fal-ai/bytedance/seedream/v4/edit"
	seedreamMockTitle    = "Seedream Mock Image"
)

// ErrSeedreamImageRequired is returned when a live seedream edit is attempted without a source image.
var ErrSeedreamImageRequired = domain.Invalidf("seedream requires an image")

type falClient interface {
	Upload(ctx context.Context, data []byte, contentType, fileName string) (string, error)
	Run(ctx context.Context, model string, input any, out any) error
}

// SeedreamOptions configures the fal.ai Seedream edit provider.
type SeedreamOptions struct {
	APIKey     string
	Model      string
	RunURL     string
	RestURL    string
	HTTPClient *http.Client
	Limiter    *rate.Limiter
	Logger     *infra.Logger
	UploadTTL  time.Duration
}

// SeedreamGenerator edits the source image with a single batched fal.ai run.
type SeedreamGenerator struct {
	client  falClient
	model   string
	limiter *rate.Limiter
	uploads *gocache.Cache
	logger  zerolog.Logger
}

type seedreamInput struct {
	Prompt              string   `json:"prompt"`
	ImageURLs           []string `json:"image_urls"`
	NumImages           int      `json:"num_images"`
	MaxImages           int      `json:"max_images"`
	EnableSafetyChecker bool     `json:"enable_safety_checker"`
}

type seedreamOutput struct {
	Images []any `json:"images"`
}

// NewSeedreamGenerator decides mock mode from the presence of a fal key.
func NewSeedreamGenerator(opts SeedreamOptions) (*SeedreamGenerator, error) {
	ttl := opts.UploadTTL
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	g := &SeedreamGenerator{
		model:   firstNonEmpty(strings.TrimSpace(opts.Model), DefaultSeedreamModel),
		limiter: opts.Limiter,
		uploads: gocache.New(ttl, 2*ttl),
		logger:  zerolog.New(io.Discard),
	}
	if opts.Logger != nil {
		g.logger = *opts.Logger
	}
	if strings.TrimSpace(opts.APIKey) == "" {
		return g, nil
	}
	client, err := fal.NewClient(fal.Options{
		APIKey:     opts.APIKey,
		RunURL:     opts.RunURL,
		RestURL:    opts.RestURL,
		HTTPClient: opts.HTTPClient,
		Logger:     opts.Logger,
	})
	if err != nil {
		return nil, err
	}
	g.client = client
	return g, nil
}

func (g *SeedreamGenerator) Name() string { return EngineSeedream }

func (g *SeedreamGenerator) Mock() bool { return g.client == nil }

func (g *SeedreamGenerator) Generate(ctx context.Context, req Request) (Result, error) {
	count := ClampCount(req.Count)
	if g.Mock() {
		return Result{Images: mockImages(seedreamMockTitle, req.Prompt, count)}, nil
	}
	if req.Image == nil || len(req.Image.Data) == 0 {
		return Result{}, ErrSeedreamImageRequired
	}

	imageURL, err := g.upload(ctx, req.Image)
	if err != nil {
		return Result{}, providerError(EngineSeedream, err)
	}
	if err := waitTurn(ctx, g.limiter); err != nil {
		return Result{}, providerError(EngineSeedream, err)
	}

	var out seedreamOutput
	err = g.client.Run(ctx, g.model, seedreamInput{
		Prompt:              req.Prompt,
		ImageURLs:           []string{imageURL},
		NumImages:           count,
		MaxImages:           count,
		EnableSafetyChecker: true,
	}, &out)
	if err != nil {
		return Result{}, providerError(EngineSeedream, err)
	}

	images := ExtractImageRefs(out.Images)
	if len(images) > count {
		images = images[:count]
	}
	if len(images) == 0 {
		g.logger.Warn().Int("returned", len(out.Images)).Msg("seedream: no renderable images, using placeholder")
		images = []string{PlaceholderSVG("Seedream returned no images", truncateRunes(req.Prompt, 60), req.Prompt)}
	}
	return Result{Images: images}, nil
}

// upload stores the source image once per distinct content within the cache TTL.
func (g *SeedreamGenerator) upload(ctx context.Context, src *SourceImage) (string, error) {
	sum := sha256.Sum256(src.Data)
	key := hex.EncodeToString(sum[:])
	if cached, ok := g.uploads.Get(key); ok {
		if u, ok := cached.(string); ok {
			return u, nil
		}
	}
	mime := firstNonEmpty(src.MIME, "image/png")
	u, err := g.client.Upload(ctx, src.Data, mime, "source"+extensionFor(mime))
	if err != nil {
		return "", err
	}
	if u == "" {
		return "", errors.New("fal: empty upload url")
	}
	g.uploads.SetDefault(key, u)
	return u, nil
}

func extensionFor(mime string) string {
	switch mime {
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	default:
		return ".png"
	}
}

var _ Generator = (*SeedreamGenerator)(nil)
