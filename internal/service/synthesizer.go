package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"inkside/internal/entity"
	"inkside/internal/llm"
	"inkside/internal/utils"
)

// 派生图指令，原样发送给图像编辑模型。
const (
	stencilInstruction = `Create a professional, high-fidelity tattoo stencil from this design, ready for a thermal printer.
**CRITICAL TECHNICAL RULES:**
1.  **Outlines:** All outlines must be converted to crisp, solid black lines. The linework must be clean and unbroken.
2.  **Shading:**
    - **Smooth gradients** must be translated into clean stippling (dot work). The density of the dots should represent the darkness of the gradient.
    - **Solid dark areas** should be translated into solid black fills.
3.  **Clarity:** The final stencil must be high contrast, with only black artwork on a transparent background. It should clearly define all lines and shading areas for a tattoo artist to follow perfectly. This is not a simple outline trace; it's a technical conversion of a full design into a usable tattoo stencil.
The final image must be in PNG format with a transparent background.`

	shieldInstruction = `Analyze this main graphic. Create a simplified, complementary emblem based on its core themes, style, and colors. This new design is for the front chest of a t-shirt (like a pocket logo).
**CRITICAL RULES:**
- It must be visually cohesive with the main design but much simpler.
- **It must be a complete, standalone design, not a cropped piece of the original.**
- Do not place it inside a literal shield or crest shape unless the original design's style demands it.
- The final image must be a clean graphic with a transparent background, in PNG format.`
)

// TextToImage 是主图生成后端的抽象，由 Gemini 与火山引擎客户端实现。
type TextToImage interface {
	GenerateImages(ctx context.Context, prompt, aspectRatio string) ([]llm.GeneratedImage, error)
}

// ImageEditor 基于现有图片与文字指令生成新图。
type ImageEditor interface {
	EditImage(ctx context.Context, image llm.InlineImage, instruction string) (*llm.GeneratedImage, string, error)
}

// Synthesizer 执行主图与派生图的合成。
type Synthesizer struct {
	images TextToImage
	editor ImageEditor
}

// NewSynthesizer 创建合成器。
func NewSynthesizer(images TextToImage, editor ImageEditor) *Synthesizer {
	return &Synthesizer{images: images, editor: editor}
}

// AspectRatioFor 返回风格家族对应的出图宽高比。
func AspectRatioFor(family entity.StyleFamily) string {
	if family == entity.FamilyApparel {
		return "3:4"
	}
	return "1:1"
}

// Primary 用编译好的提示词生成一张主图。
func (s *Synthesizer) Primary(ctx context.Context, prompt string, family entity.StyleFamily) (entity.ImagePayload, error) {
	if s == nil || s.images == nil {
		return entity.ImagePayload{}, fmt.Errorf("%w: image backend not configured", ErrGenerationFailed)
	}

	results, err := s.images.GenerateImages(ctx, prompt, AspectRatioFor(family))
	if err != nil {
		if errors.Is(err, llm.ErrResourceExhausted) {
			return entity.ImagePayload{}, err
		}
		return entity.ImagePayload{}, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}
	if len(results) == 0 {
		return entity.ImagePayload{}, ErrNoImageReturned
	}

	first := results[0]
	mimeType := first.MimeType
	if mimeType == "" {
		mimeType = "image/png"
	}
	return entity.ImagePayload{Data: first.Data, MimeType: mimeType}, nil
}

// Derivative 基于主图生成派生图：纹身家族生成转印模板，服饰家族生成胸前徽章。
func (s *Synthesizer) Derivative(ctx context.Context, req entity.DerivativeRequest) (entity.ImagePayload, entity.DerivativeKind, error) {
	kind := entity.DerivativeKindFor(req.Style.Family())

	if s == nil || s.editor == nil {
		return entity.ImagePayload{}, kind, fmt.Errorf("%w: image editor not configured", ErrGenerationFailed)
	}

	mimeType, payload := utils.SplitDataURL(utils.EnsureDataURL(strings.TrimSpace(req.Image)))
	if payload == "" {
		return entity.ImagePayload{}, kind, fmt.Errorf("%w: source image payload is empty", ErrGenerationFailed)
	}

	instruction := stencilInstruction
	if kind == entity.DerivativeShield {
		instruction = shieldInstruction
	}

	source := llm.InlineImage{MimeType: mimeType, Data: payload}
	generated, _, err := s.editor.EditImage(ctx, source, instruction)
	if err != nil {
		if errors.Is(err, llm.ErrResourceExhausted) {
			return entity.ImagePayload{}, kind, err
		}
		return entity.ImagePayload{}, kind, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}
	if generated == nil || len(generated.Data) == 0 {
		return entity.ImagePayload{}, kind, ErrNoStencilReturned
	}

	outMime := generated.MimeType
	if outMime == "" {
		outMime = "image/png"
	}
	return entity.ImagePayload{Data: generated.Data, MimeType: outMime}, kind, nil
}
