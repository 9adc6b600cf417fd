package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"inkside/internal/entity"
	"inkside/internal/llm"
)

type fakeElaborator struct {
	result string
	err    error

	calls        int
	gotDirective string
	gotSketch    *llm.InlineImage
}

func (f *fakeElaborator) GenerateText(_ context.Context, directive string, sketch *llm.InlineImage) (string, error) {
	f.calls++
	f.gotDirective = directive
	f.gotSketch = sketch
	return f.result, f.err
}

func TestColorDirective(t *testing.T) {
	tests := []struct {
		name     string
		req      entity.DesignRequest
		expected string
	}{
		{
			name:     "默认黑灰",
			req:      entity.DesignRequest{ColorMode: entity.ColorModeMonochrome},
			expected: "Black and Grey tones only",
		},
		{
			name:     "未指定配色按黑灰处理",
			req:      entity.DesignRequest{},
			expected: "Black and Grey tones only",
		},
		{
			name:     "全彩带调色板",
			req:      entity.DesignRequest{ColorMode: entity.ColorModeFullColor, Palette: []string{"#ff0000", "#00ff00"}},
			expected: "A full color design using exclusively this color palette: #ff0000, #00ff00",
		},
		{
			name:     "全彩无调色板",
			req:      entity.DesignRequest{ColorMode: entity.ColorModeFullColor},
			expected: "A vibrant full color design",
		},
		{
			name:     "点缀色",
			req:      entity.DesignRequest{ColorMode: entity.ColorModeAccent, AccentColor: "teal"},
			expected: "Mainly Black and Grey with key accents of teal",
		},
		{
			name:     "点缀色未指定回退红色",
			req:      entity.DesignRequest{ColorMode: entity.ColorModeAccent},
			expected: "Mainly Black and Grey with key accents of red",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ColorDirective(tt.req)
			if result != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, result)
			}
		})
	}
}

func TestColorDirectiveTrimsPalette(t *testing.T) {
	palette := []string{" #111 ", "", "#222", "#333", "#444", "#555", "#666", "#777", "#888", "#999"}
	req := entity.DesignRequest{ColorMode: entity.ColorModeFullColor, Palette: palette}

	result := ColorDirective(req)
	if strings.Contains(result, "#999") {
		t.Errorf("expected palette to be capped at %d colors, got %q", entity.MaxPaletteColors, result)
	}
	if !strings.Contains(result, "#111, #222") {
		t.Errorf("expected trimmed palette entries, got %q", result)
	}
}

func TestBuildDirectivePlaceholders(t *testing.T) {
	tests := []struct {
		name     string
		req      entity.DesignRequest
		contains []string
		excludes []string
	}{
		{
			name: "纹身空字段使用占位描述",
			req:  entity.DesignRequest{Subject: "a wolf", Style: entity.StyleBlackwork},
			contains: []string{
				"expert tattoo designer",
				"- Style: Blackwork Tattoo Style",
				"- Main Subject: a wolf",
				"- Body Part: not specified, assume a flat surface",
				"- Size and Complexity: standard tattoo size, moderate detail",
				"- Supporting Elements: none",
				"- Mood & Emotion: not specified",
				"- Composition: balanced composition that flows with the body part",
				"- Elements to Avoid: none.",
			},
			excludes: []string{"T-Shirt"},
		},
		{
			name: "服饰空字段使用占位描述",
			req:  entity.DesignRequest{Subject: "a phoenix", Style: entity.StyleTShirtDesign},
			contains: []string{
				"expert art director",
				"- Style: Modern T-Shirt Graphic Design",
				"- T-Shirt Color (for context): not specified, assume neutral",
				"- Design Placement on Back: large and centered",
				"- Composition: balanced composition",
			},
			excludes: []string{"Body Part", "tattooable"},
		},
		{
			name: "填写字段原样写入",
			req: entity.DesignRequest{
				Subject:        "a koi fish",
				Style:          entity.StyleJapanese,
				BodyPart:       "forearm",
				SizeComplexity: "full sleeve",
				Mood:           "serene",
			},
			contains: []string{
				"- Body Part: forearm",
				"- Size and Complexity: full sleeve",
				"- Mood & Emotion: serene",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			directive := buildDirective(tt.req)
			for _, fragment := range tt.contains {
				if !strings.Contains(directive, fragment) {
					t.Errorf("expected directive to contain %q", fragment)
				}
			}
			for _, fragment := range tt.excludes {
				if strings.Contains(directive, fragment) {
					t.Errorf("expected directive to not contain %q", fragment)
				}
			}
		})
	}
}

func TestCompileAppendsTrailers(t *testing.T) {
	tests := []struct {
		name     string
		req      entity.DesignRequest
		contains []string
		excludes []string
	}{
		{
			name: "纹身收尾句",
			req:  entity.DesignRequest{Subject: "a raven", Style: entity.StyleTraditional},
			contains: []string{
				"an elaborate raven prompt",
				"suitable for a real tattoo",
				"absolutely NO text",
			},
			excludes: []string{"Specifically, do not include"},
		},
		{
			name: "服饰收尾句",
			req:  entity.DesignRequest{Subject: "a dragon", Style: entity.StyleTShirtDesign},
			contains: []string{
				"print-ready graphic with a transparent background",
			},
		},
		{
			name: "排除项复述",
			req:  entity.DesignRequest{Subject: "a skull", Style: entity.StyleBlackwork, ElementsToAvoid: "roses, snakes"},
			contains: []string{
				"Specifically, do not include any of the following: 'roses, snakes'.",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			elaborator := &fakeElaborator{result: "an elaborate raven prompt"}
			compiler := NewPromptCompiler(elaborator)

			prompt, err := compiler.Compile(context.Background(), tt.req)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			for _, fragment := range tt.contains {
				if !strings.Contains(prompt, fragment) {
					t.Errorf("expected prompt to contain %q", fragment)
				}
			}
			for _, fragment := range tt.excludes {
				if strings.Contains(prompt, fragment) {
					t.Errorf("expected prompt to not contain %q", fragment)
				}
			}
		})
	}
}

func TestCompileErrors(t *testing.T) {
	req := entity.DesignRequest{Subject: "a lion", Style: entity.StyleRealism}

	t.Run("细化结果为空", func(t *testing.T) {
		compiler := NewPromptCompiler(&fakeElaborator{result: "   "})
		_, err := compiler.Compile(context.Background(), req)
		if !errors.Is(err, ErrPromptCompilationFailed) {
			t.Fatalf("expected ErrPromptCompilationFailed, got %v", err)
		}
	})

	t.Run("细化调用失败", func(t *testing.T) {
		compiler := NewPromptCompiler(&fakeElaborator{err: errors.New("boom")})
		_, err := compiler.Compile(context.Background(), req)
		if !errors.Is(err, ErrPromptCompilationFailed) {
			t.Fatalf("expected ErrPromptCompilationFailed, got %v", err)
		}
	})

	t.Run("限流错误原样透传", func(t *testing.T) {
		compiler := NewPromptCompiler(&fakeElaborator{err: llm.ErrResourceExhausted})
		_, err := compiler.Compile(context.Background(), req)
		if !errors.Is(err, llm.ErrResourceExhausted) {
			t.Fatalf("expected ErrResourceExhausted, got %v", err)
		}
		if errors.Is(err, ErrPromptCompilationFailed) {
			t.Fatalf("resource exhaustion should not be wrapped as compilation failure")
		}
	})
}

func TestCompileForwardsSketch(t *testing.T) {
	elaborator := &fakeElaborator{result: "prompt"}
	compiler := NewPromptCompiler(elaborator)

	req := entity.DesignRequest{
		Subject:         "an owl",
		Style:           entity.StyleSketch,
		ReferenceSketch: "data:image/jpeg;base64,aGVsbG8=",
	}
	if _, err := compiler.Compile(context.Background(), req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if elaborator.gotSketch == nil {
		t.Fatal("expected sketch to be forwarded to elaborator")
	}
	if elaborator.gotSketch.MimeType != "image/jpeg" {
		t.Errorf("expected mime image/jpeg, got %s", elaborator.gotSketch.MimeType)
	}
	if elaborator.gotSketch.Data != "aGVsbG8=" {
		t.Errorf("unexpected sketch payload: %s", elaborator.gotSketch.Data)
	}
}
