package image

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"productshoot/internal/domain"
	"productshoot/internal/providers/genai"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

func failingHTTPClient(t *testing.T) *http.Client {
	t.Helper()
	return &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		t.Fatalf("unexpected network call to %s", r.URL)
		return nil, errors.New("unreachable")
	})}
}

type stubGeminiClient struct {
	responses []*genai.GenerateContentResponse
	err       error
	requests  []genai.GenerateContentRequest
}

func (s *stubGeminiClient) GenerateContent(ctx context.Context, req genai.GenerateContentRequest) (*genai.GenerateContentResponse, error) {
	s.requests = append(s.requests, req)
	if s.err != nil {
		return nil, s.err
	}
	resp := s.responses[0]
	if len(s.responses) > 1 {
		s.responses = s.responses[1:]
	}
	return resp, nil
}

func partsResponse(parts ...genai.Part) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{Candidates: []genai.Candidate{{Content: genai.Content{Parts: parts}}}}
}

func TestGeminiMockWithoutKey(t *testing.T) {
	gen, err := NewGeminiGenerator(GeminiOptions{HTTPClient: failingHTTPClient(t)})
	if err != nil {
		t.Fatalf("NewGeminiGenerator error: %v", err)
	}
	if !gen.Mock() {
		t.Fatal("expected mock mode without api key")
	}
	res, err := gen.Generate(context.Background(), Request{Prompt: "studio shot of a ceramic mug", Count: 5})
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	if len(res.Images) != 5 {
		t.Fatalf("expected 5 images, got %d", len(res.Images))
	}
	seen := map[string]bool{}
	for _, ref := range res.Images {
		if !strings.HasPrefix(ref, "data:image/svg+xml;utf8,") {
			t.Fatalf("unexpected ref prefix: %.40s", ref)
		}
		if seen[ref] {
			t.Fatal("mock images must be distinct")
		}
		seen[ref] = true
	}

	again, _ := gen.Generate(context.Background(), Request{Prompt: "studio shot of a ceramic mug", Count: 5})
	for i := range again.Images {
		if again.Images[i] != res.Images[i] {
			t.Fatalf("mock image %d is not deterministic", i)
		}
	}
}

func TestGeminiForceMockIgnoresKey(t *testing.T) {
	gen, err := NewGeminiGenerator(GeminiOptions{APIKey: "real", ForceMock: true, HTTPClient: failingHTTPClient(t)})
	if err != nil {
		t.Fatalf("NewGeminiGenerator error: %v", err)
	}
	if !gen.Mock() {
		t.Fatal("expected forced mock mode")
	}
}

func TestGeminiClampsCount(t *testing.T) {
	gen, _ := NewGeminiGenerator(GeminiOptions{})
	cases := map[int]int{-3: 1, 0: 1, 1: 1, 8: 8, 40: 8}
	for in, want := range cases {
		res, err := gen.Generate(context.Background(), Request{Prompt: "p", Count: in})
		if err != nil {
			t.Fatalf("Generate error: %v", err)
		}
		if len(res.Images) != want {
			t.Fatalf("count %d: got %d images, want %d", in, len(res.Images), want)
		}
	}
}

func TestGeminiLiveExtractionOrder(t *testing.T) {
	stub := &stubGeminiClient{responses: []*genai.GenerateContentResponse{
		partsResponse(
			genai.Part{Text: "here you go"},
			genai.Part{FileData: &genai.FileData{FileURI: "https://files.test/x.png"}},
			genai.Part{InlineData: &genai.InlineData{MimeType: "image/jpeg", Data: "QUJD"}},
		),
		partsResponse(genai.Part{FileData: &genai.FileData{FileURI: "https://files.test/y.png"}}),
		partsResponse(genai.Part{Text: "I cannot draw that"}),
		partsResponse(),
	}}
	gen := &GeminiGenerator{client: stub}

	var refs []string
	for i := 0; i < 4; i++ {
		res, err := gen.Generate(context.Background(), Request{
			Prompt: "a sneaker",
			Count:  1,
			Image:  &SourceImage{Data: []byte("png"), MIME: "image/png"},
		})
		if err != nil {
			t.Fatalf("Generate error: %v", err)
		}
		if len(res.Images) != 1 {
			t.Fatalf("expected one image, got %d", len(res.Images))
		}
		refs = append(refs, res.Images[0])
	}

	if refs[0] != "data:image/jpeg;base64,QUJD" {
		t.Fatalf("inline data should win, got %q", refs[0])
	}
	if refs[1] != "https://files.test/y.png" {
		t.Fatalf("file uri expected, got %q", refs[1])
	}
	if !strings.HasPrefix(refs[2], "data:image/svg+xml") || !strings.Contains(refs[2], "Gemini%20text%20response") {
		t.Fatalf("text fallback placeholder expected, got %.80s", refs[2])
	}
	if !strings.Contains(refs[3], "No%20image%20data%20returned%20by%20model") {
		t.Fatalf("empty placeholder expected, got %.80s", refs[3])
	}

	req := stub.requests[0]
	if len(req.Contents) != 1 || len(req.Contents[0].Parts) != 2 {
		t.Fatalf("expected text and inline image parts, got %+v", req.Contents)
	}
	if req.Contents[0].Parts[1].InlineData.Data != "cG5n" {
		t.Fatalf("image should be base64 encoded, got %q", req.Contents[0].Parts[1].InlineData.Data)
	}
}

func TestGeminiLiveCallsOncePerImage(t *testing.T) {
	stub := &stubGeminiClient{responses: []*genai.GenerateContentResponse{
		partsResponse(genai.Part{InlineData: &genai.InlineData{Data: "QQ=="}}),
	}}
	gen := &GeminiGenerator{client: stub}
	res, err := gen.Generate(context.Background(), Request{Prompt: "p", Count: 3})
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	if len(stub.requests) != 3 || len(res.Images) != 3 {
		t.Fatalf("expected 3 calls and 3 images, got %d and %d", len(stub.requests), len(res.Images))
	}
}

func TestGeminiLiveFailureIsProviderError(t *testing.T) {
	stub := &stubGeminiClient{err: errors.New("gemini status 500: backend error")}
	gen := &GeminiGenerator{client: stub}
	_, err := gen.Generate(context.Background(), Request{Prompt: "p", Count: 2})
	if !errors.Is(err, domain.ErrProviderFailure) {
		t.Fatalf("expected ErrProviderFailure, got %v", err)
	}
	if err.Error() != "gemini: gemini status 500: backend error" {
		t.Fatalf("unexpected message %q", err.Error())
	}
	if len(stub.requests) != 1 {
		t.Fatalf("failed call must not be retried, got %d calls", len(stub.requests))
	}
}
