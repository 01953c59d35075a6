package genai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func TestNewClientRequiresKey(t *testing.T) {
	if _, err := NewClient(Options{APIKey: "  "}); !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("expected ErrMissingAPIKey, got %v", err)
	}
}

func TestGenerateContentSendsKeyAndModel(t *testing.T) {
	var captured GenerateContentRequest
	client, err := NewClient(Options{
		APIKey:  "test-key",
		BaseURL: "https://gemini.test/v1beta/",
		Model:   "img-model",
		HTTPClient: &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			if r.URL.Path != "/v1beta/models/img-model:generateContent" {
				t.Fatalf("unexpected path %q", r.URL.Path)
			}
			if got := r.URL.Query().Get("key"); got != "test-key" {
				t.Fatalf("key = %q", got)
			}
			if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
				t.Fatalf("decode request: %v", err)
			}
			return jsonResponse(http.StatusOK, `{"candidates":[{"content":{"parts":[{"text":"hi"},{"inlineData":{"mimeType":"image/png","data":"AAAA"}}]}}]}`), nil
		})},
	})
	if err != nil {
		t.Fatalf("NewClient error: %v", err)
	}
	resp, err := client.GenerateContent(context.Background(), GenerateContentRequest{
		Contents: []Content{{Role: "user", Parts: []Part{{Text: "a mug"}}}},
	})
	if err != nil {
		t.Fatalf("GenerateContent error: %v", err)
	}
	if len(captured.Contents) != 1 || captured.Contents[0].Parts[0].Text != "a mug" {
		t.Fatalf("unexpected request payload: %+v", captured)
	}
	parts := resp.Parts()
	if len(parts) != 2 || parts[1].InlineData == nil || parts[1].InlineData.Data != "AAAA" {
		t.Fatalf("unexpected parts: %+v", parts)
	}
}

func TestGenerateContentSurfacesAPIError(t *testing.T) {
	client, err := NewClient(Options{
		APIKey: "k",
		HTTPClient: &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			return jsonResponse(http.StatusTooManyRequests, `{"error":{"code":429,"message":"quota exhausted"}}`), nil
		})},
	})
	if err != nil {
		t.Fatalf("NewClient error: %v", err)
	}
	_, err = client.GenerateContent(context.Background(), GenerateContentRequest{})
	if err == nil || err.Error() != "gemini status 429: quota exhausted" {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestGenerateContentMalformedBody(t *testing.T) {
	client, _ := NewClient(Options{
		APIKey: "k",
		HTTPClient: &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			return jsonResponse(http.StatusOK, `{"candidates":`), nil
		})},
	})
	_, err := client.GenerateContent(context.Background(), GenerateContentRequest{})
	if err == nil || !strings.HasPrefix(err.Error(), "decode gemini response") {
		t.Fatalf("unexpected error: %v", err)
	}
}
