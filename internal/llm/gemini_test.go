package llm

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"inkside/internal/config"
)

func newTestGeminiClient(srv *httptest.Server) *GeminiClient {
	return &GeminiClient{
		httpClient: srv.Client(),
		apiKey:     "test-key",
		baseURL:    srv.URL,
	}
}

func TestNewGeminiClientRequiresAPIKey(t *testing.T) {
	if _, err := NewGeminiClient(config.Config{}); err == nil {
		t.Fatal("expected error for missing api key")
	}
	if _, err := NewGeminiClient(config.Config{GeminiAPIKey: "key"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestGenerateTextPrependsSketchPart(t *testing.T) {
	var captured geminiRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "models/"+TextModel) {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &captured); err != nil {
			t.Errorf("unexpected request body: %v", err)
		}
		fmt.Fprint(w, `{"candidates":[{"content":{"parts":[{"text":"  an elaborate prompt  "}]}}]}`)
	}))
	defer srv.Close()

	client := newTestGeminiClient(srv)
	sketch := &InlineImage{MimeType: "image/jpeg", Data: "c2tldGNo"}

	text, err := client.GenerateText(context.Background(), "describe a wolf", sketch)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "an elaborate prompt" {
		t.Errorf("expected trimmed text, got %q", text)
	}

	parts := captured.Contents[0].Parts
	if len(parts) != 2 {
		t.Fatalf("expected 2 parts, got %d", len(parts))
	}
	if parts[0].InlineData == nil || parts[0].InlineData.Data != "c2tldGNo" {
		t.Error("expected sketch as first part")
	}
	if parts[1].Text != "describe a wolf" {
		t.Errorf("expected directive as second part, got %q", parts[1].Text)
	}
	if captured.GenerationConfig == nil || captured.GenerationConfig.MaxOutputTokens != elaborationMaxTokens {
		t.Error("expected constrained output tokens")
	}
	if captured.GenerationConfig.ThinkingConfig == nil || captured.GenerationConfig.ThinkingConfig.ThinkingBudget != 0 {
		t.Error("expected zero thinking budget")
	}
}

func TestGenerateImagesParsesPredictions(t *testing.T) {
	imageBytes := []byte("fake-png")
	var captured imagenRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "models/"+ImageModel+":predict") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &captured); err != nil {
			t.Errorf("unexpected request body: %v", err)
		}
		resp := fmt.Sprintf(`{"predictions":[{"bytesBase64Encoded":%q,"mimeType":"image/png"}]}`,
			base64.StdEncoding.EncodeToString(imageBytes))
		fmt.Fprint(w, resp)
	}))
	defer srv.Close()

	client := newTestGeminiClient(srv)
	images, err := client.GenerateImages(context.Background(), "a wolf", "1:1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(images) != 1 {
		t.Fatalf("expected 1 image, got %d", len(images))
	}
	if string(images[0].Data) != string(imageBytes) {
		t.Error("unexpected image payload")
	}

	if captured.Parameters.SampleCount != 1 {
		t.Errorf("expected sample count 1, got %d", captured.Parameters.SampleCount)
	}
	if captured.Parameters.AspectRatio != "1:1" {
		t.Errorf("expected aspect ratio 1:1, got %s", captured.Parameters.AspectRatio)
	}
	if captured.Parameters.OutputMimeType != "image/png" {
		t.Errorf("expected png output, got %s", captured.Parameters.OutputMimeType)
	}
}

func TestGenerateImagesEmptyPredictions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"predictions":[]}`)
	}))
	defer srv.Close()

	client := newTestGeminiClient(srv)
	images, err := client.GenerateImages(context.Background(), "a wolf", "1:1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(images) != 0 {
		t.Errorf("expected no images, got %d", len(images))
	}
}

func TestGenerateImagesResourceExhausted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error":{"code":429,"message":"quota","status":"RESOURCE_EXHAUSTED"}}`)
	}))
	defer srv.Close()

	client := newTestGeminiClient(srv)
	_, err := client.GenerateImages(context.Background(), "a wolf", "1:1")
	if !errors.Is(err, ErrResourceExhausted) {
		t.Fatalf("expected ErrResourceExhausted, got %v", err)
	}
}

func TestEditImageScansForInlinePart(t *testing.T) {
	edited := []byte("edited-image")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		resp := fmt.Sprintf(`{"candidates":[{"content":{"parts":[{"text":"here is your stencil"},{"inlineData":{"mimeType":"image/png","data":%q}}]}}]}`,
			base64.StdEncoding.EncodeToString(edited))
		fmt.Fprint(w, resp)
	}))
	defer srv.Close()

	client := newTestGeminiClient(srv)
	image, text, err := client.EditImage(context.Background(), InlineImage{MimeType: "image/png", Data: "c3Jj"}, "make a stencil")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if image == nil || string(image.Data) != string(edited) {
		t.Fatal("expected edited image bytes")
	}
	if text != "here is your stencil" {
		t.Errorf("unexpected accompanying text %q", text)
	}
}

func TestEditImageTextOnlyResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"candidates":[{"content":{"parts":[{"text":"cannot comply"}]}}]}`)
	}))
	defer srv.Close()

	client := newTestGeminiClient(srv)
	image, text, err := client.EditImage(context.Background(), InlineImage{MimeType: "image/png", Data: "c3Jj"}, "make a stencil")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if image != nil {
		t.Error("expected no image for text-only response")
	}
	if text != "cannot comply" {
		t.Errorf("unexpected text %q", text)
	}
}
