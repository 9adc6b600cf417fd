package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"inkside/internal/entity"
	"inkside/internal/llm"
	"inkside/internal/utils"

	"github.com/sirupsen/logrus"
)

// 提示词编译的硬性规则，原样写入给细化模型的指令。
const (
	ruleComposition = `**CRITICAL RULE: COMPOSITION MUST BE A COMPLETE, FINISHED PIECE OF ART.** The design must have a justified and coherent end. It must NEVER look like a cropped illustration or a abruptly cut-off image. Every element must be fully visible and intentionally placed within the frame, creating a complete and balanced artwork. The design must be self-contained.`

	ruleNoText = ` **CRITICAL RULE: The final image must contain absolutely NO text, letters, words, numbers, characters, fonts, typography, signatures, watermarks, or any form of writing unless specifically requested by the user.** This is a visual design only. Do not add any descriptive or metadata text onto the image itself.`
)

// PromptElaborator 将结构化指令细化为面向图像模型的单段英文提示词。
type PromptElaborator interface {
	GenerateText(ctx context.Context, directive string, sketch *llm.InlineImage) (string, error)
}

// PromptCompiler 把表单参数编译成最终的图像生成提示词。
type PromptCompiler struct {
	elaborator PromptElaborator
}

// NewPromptCompiler 创建提示词编译器。
func NewPromptCompiler(elaborator PromptElaborator) *PromptCompiler {
	return &PromptCompiler{elaborator: elaborator}
}

// Compile 编译最终提示词：先由文本模型细化结构化指令，
// 再追加家族收尾句、无文字规则与排除项复述。
func (c *PromptCompiler) Compile(ctx context.Context, req entity.DesignRequest) (string, error) {
	if c == nil || c.elaborator == nil {
		return "", fmt.Errorf("%w: elaborator not configured", ErrPromptCompilationFailed)
	}

	directive := buildDirective(req)
	sketch := parseSketch(req.ReferenceSketch)

	elaborated, err := c.elaborator.GenerateText(ctx, directive, sketch)
	if err != nil {
		if errors.Is(err, llm.ErrResourceExhausted) {
			return "", err
		}
		return "", fmt.Errorf("%w: %v", ErrPromptCompilationFailed, err)
	}

	elaborated = strings.TrimSpace(elaborated)
	if elaborated == "" {
		return "", fmt.Errorf("%w: empty elaboration", ErrPromptCompilationFailed)
	}

	prompt := elaborated + readinessSentence(req.Style.Family())
	prompt += ruleNoText
	if avoid := strings.TrimSpace(req.ElementsToAvoid); avoid != "" {
		prompt += fmt.Sprintf(" Specifically, do not include any of the following: '%s'.", avoid)
	}

	logrus.WithFields(logrus.Fields{
		"style":  req.Style,
		"family": req.Style.Family(),
	}).Debug("prompt_compiled")

	return prompt, nil
}

// buildDirective 组装给细化模型的结构化指令，按风格家族选择模板。
func buildDirective(req entity.DesignRequest) string {
	if req.Style.Family() == entity.FamilyApparel {
		return buildApparelDirective(req)
	}
	return buildTattooDirective(req)
}

func buildApparelDirective(req entity.DesignRequest) string {
	var b strings.Builder
	b.WriteString(`As an expert art director, create a highly detailed, single-paragraph image prompt in English for an image generation AI. This prompt will be used to create a professional, print-ready graphic for a t-shirt.
The user might write in Spanish or English; understand both and synthesize all requirements into a cohesive artistic description.

`)
	b.WriteString(ruleComposition)
	b.WriteString("\n\n**Core Concept:**\n")
	fmt.Fprintf(&b, "- Style: %s\n", req.Style.Label())
	fmt.Fprintf(&b, "- Main Subject: %s\n", strings.TrimSpace(req.Subject))

	b.WriteString("\n**Placement and Context:**\n")
	fmt.Fprintf(&b, "- T-Shirt Color (for context): %s\n", orDefault(req.GarmentColor, "not specified, assume neutral"))
	fmt.Fprintf(&b, "- Design Placement on Back: %s\n", orDefault(req.Placement, "large and centered"))

	writeArtisticDetails(&b, req, "balanced composition")
	writeInclusions(&b, req)

	b.WriteString("\nThe final generated prompt must be very descriptive, focusing on high-impact visuals, clean edges, and a composition that works well on apparel. If a reference sketch is provided, analyze its visual elements and merge them into the description.")
	return b.String()
}

func buildTattooDirective(req entity.DesignRequest) string {
	var b strings.Builder
	b.WriteString(`As an expert tattoo designer, create a highly detailed, single-paragraph image prompt in English for an image generation AI. This prompt will create a professional, "tattooable" design.
The user might write in Spanish or English; understand both and synthesize all requirements into a cohesive artistic description.

`)
	b.WriteString(ruleComposition)
	b.WriteString(`

**Tattooability Rules (CRITICAL):**
- The design must be technically sound for tattooing. This means clean, confident linework (varying line weights are a plus), clear and readable shading (stippling, black packing, or smooth gradients), and avoidance of microscopic details that would blur on skin over time.
- The composition must respect and flow with the specified body part, as if designed by a real tattoo artist.

**Core Concept:**
`)
	fmt.Fprintf(&b, "- Style: %s\n", req.Style.Label())
	fmt.Fprintf(&b, "- Main Subject: %s\n", strings.TrimSpace(req.Subject))

	b.WriteString("\n**Placement and Scale:**\n")
	fmt.Fprintf(&b, "- Body Part: %s\n", orDefault(req.BodyPart, "not specified, assume a flat surface"))
	fmt.Fprintf(&b, "- Size and Complexity: %s\n", orDefault(req.SizeComplexity, "standard tattoo size, moderate detail"))

	writeArtisticDetails(&b, req, "balanced composition that flows with the body part")
	writeInclusions(&b, req)

	b.WriteString("\nThe final generated prompt must be very descriptive. If a reference sketch is provided, analyze its visual elements and merge them into the description.")
	return b.String()
}

func writeArtisticDetails(b *strings.Builder, req entity.DesignRequest, compositionDefault string) {
	b.WriteString("\n**Artistic Details:**\n")
	fmt.Fprintf(b, "- Color Palette: %s. If a palette is specified, the AI must strictly adhere to only those colors.\n", ColorDirective(req))
	fmt.Fprintf(b, "- Supporting Elements: %s\n", orDefault(req.SupportingElements, "none"))
	fmt.Fprintf(b, "- Mood & Emotion: %s\n", orDefault(req.Mood, "not specified"))
	fmt.Fprintf(b, "- Composition: %s\n", orDefault(req.Composition, compositionDefault))
}

func writeInclusions(b *strings.Builder, req entity.DesignRequest) {
	b.WriteString("\n**Specific Inclusions/Exclusions:**\n")
	fmt.Fprintf(b, "- Text or Symbols to Include: %s\n", orDefault(req.TextToInclude, "none"))
	fmt.Fprintf(b, "- Elements to Avoid: %s.\n", orDefault(req.ElementsToAvoid, "none"))
}

// ColorDirective 按配色模式生成颜色描述短语。
func ColorDirective(req entity.DesignRequest) string {
	switch req.ColorMode {
	case entity.ColorModeFullColor:
		palette := trimPalette(req.Palette)
		if len(palette) > 0 {
			return fmt.Sprintf("A full color design using exclusively this color palette: %s", strings.Join(palette, ", "))
		}
		return "A vibrant full color design"
	case entity.ColorModeAccent:
		accent := strings.TrimSpace(req.AccentColor)
		if accent == "" {
			accent = "red"
		}
		return fmt.Sprintf("Mainly Black and Grey with key accents of %s", accent)
	default:
		return "Black and Grey tones only"
	}
}

// readinessSentence 返回风格家族对应的成品收尾句。
func readinessSentence(family entity.StyleFamily) string {
	if family == entity.FamilyApparel {
		return ". The final design must be a high-quality, print-ready graphic with a transparent background."
	}
	return ". The final design must be clean, with high contrast and sharp lines suitable for a real tattoo. The background must be transparent."
}

// trimPalette 去除空白项并截断到调色板上限。
func trimPalette(palette []string) []string {
	out := make([]string, 0, len(palette))
	for _, color := range palette {
		trimmed := strings.TrimSpace(color)
		if trimmed == "" {
			continue
		}
		out = append(out, trimmed)
		if len(out) == entity.MaxPaletteColors {
			break
		}
	}
	return out
}

// parseSketch 把可选的参考草图 data URL 解析为内联图片。
func parseSketch(dataURL string) *llm.InlineImage {
	trimmed := strings.TrimSpace(dataURL)
	if trimmed == "" {
		return nil
	}
	mimeType, payload := utils.SplitDataURL(utils.EnsureDataURL(trimmed))
	if payload == "" {
		return nil
	}
	return &llm.InlineImage{MimeType: mimeType, Data: payload}
}

func orDefault(value, fallback string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback
	}
	return trimmed
}
