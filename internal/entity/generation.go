package entity

import (
	"encoding/base64"
	"fmt"
)

// DesignRequest 是一次生成请求的结构化表单参数。
//
// 按风格家族只使用对应的摆放字段组：纹身风格使用 BodyPart/SizeComplexity，
// 服饰风格使用 GarmentColor/Placement；未使用的一组被编译器忽略。
type DesignRequest struct {
	// Subject 为空时由服务层返回主体为空的业务错误，不在绑定层拦截。
	Subject string `json:"subject"`
	Style   Style  `json:"style"`

	ColorMode   ColorMode `json:"color_mode"`
	Palette     []string  `json:"palette,omitempty"`
	AccentColor string    `json:"accent_color,omitempty"`

	SupportingElements string `json:"supporting_elements,omitempty"`
	Mood               string `json:"mood,omitempty"`
	Composition        string `json:"composition,omitempty"`
	TextToInclude      string `json:"text_to_include,omitempty"`
	ElementsToAvoid    string `json:"elements_to_avoid,omitempty"`

	// 纹身风格的摆放字段
	BodyPart       string `json:"body_part,omitempty"`
	SizeComplexity string `json:"size_complexity,omitempty"`

	// 服饰风格的摆放字段
	GarmentColor string `json:"garment_color,omitempty"`
	Placement    string `json:"placement,omitempty"`

	// ReferenceSketch 为可选的参考草图，data URL 格式。
	ReferenceSketch string `json:"reference_sketch,omitempty"`
}

// MaxPaletteColors 限制全彩模式可选颜色数量。
const MaxPaletteColors = 8

// ImagePayload 承载一张生成图片的原始字节与 MIME 类型。
type ImagePayload struct {
	Data     []byte
	MimeType string
}

// DataURL 将图片编码为 data URL，供客户端直接展示。
func (p ImagePayload) DataURL() string {
	mime := p.MimeType
	if mime == "" {
		mime = "image/png"
	}
	return fmt.Sprintf("data:%s;base64,%s", mime, base64.StdEncoding.EncodeToString(p.Data))
}

// DerivativeRequest 请求基于现有主图生成派生图。
type DerivativeRequest struct {
	// Image 为主图，data URL 格式。
	Image string `json:"image" binding:"required"`
	Style Style  `json:"style"`
}

// GenerateDesignResponse 是生成接口的成功响应。
type GenerateDesignResponse struct {
	Image            string         `json:"image"`
	MimeType         string         `json:"mime_type"`
	RemainingCredits int            `json:"remaining_credits"`
	Design           *DesignSummary `json:"design,omitempty"`

	// Warning 在生成成功但扣减落账失败时携带告警码，正常为空。
	Warning string `json:"warning,omitempty"`
}

// DerivativeResponse 是派生图接口的成功响应。
type DerivativeResponse struct {
	Image    string         `json:"image"`
	MimeType string         `json:"mime_type"`
	Kind     DerivativeKind `json:"kind"`
}
