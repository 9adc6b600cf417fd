package llm

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"inkside/internal/config"

	"github.com/sirupsen/logrus"
)

const (
	defaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

	// TextModel 负责把结构化指令扩写成图像提示词。
	TextModel = "gemini-2.5-flash"
	// ImageModel 负责主图的文生图。
	ImageModel = "imagen-4.0-generate-001"
	// EditModel 负责基于主图的图生图（转印模板/徽章）。
	EditModel = "gemini-2.5-flash-image-preview"

	// elaborationMaxTokens 限制扩写结果长度，保持提示词紧凑。
	elaborationMaxTokens = 250
)

// InlineImage 是随请求内联提交的图片。
type InlineImage struct {
	MimeType string
	Data     string // base64，不含 data URL 前缀
}

// GeneratedImage 是模型返回的一张图片。
type GeneratedImage struct {
	Data     []byte
	MimeType string
}

// GeminiClient 封装 Gemini 系列模型的 REST 调用。
type GeminiClient struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string
}

// NewGeminiClient 创建 Gemini 客户端。
func NewGeminiClient(cfg config.Config) (*GeminiClient, error) {
	if strings.TrimSpace(cfg.GeminiAPIKey) == "" {
		return nil, errors.New("gemini api key is not configured")
	}
	return &GeminiClient{
		httpClient: &http.Client{},
		apiKey:     cfg.GeminiAPIKey,
		baseURL:    defaultGeminiBaseURL,
	}, nil
}

type geminiContentPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inlineData,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type geminiContent struct {
	Role  string              `json:"role"`
	Parts []geminiContentPart `json:"parts"`
}

type geminiThinkingConfig struct {
	ThinkingBudget int `json:"thinkingBudget"`
}

type geminiGenerationConfig struct {
	MaxOutputTokens    int                   `json:"maxOutputTokens,omitempty"`
	ThinkingConfig     *geminiThinkingConfig `json:"thinkingConfig,omitempty"`
	ResponseModalities []string              `json:"responseModalities,omitempty"`
}

type geminiRequest struct {
	Contents         []geminiContent         `json:"contents"`
	GenerationConfig *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiContentPart `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason,omitempty"`
	} `json:"candidates"`
}

// GenerateText 调用文本模型扩写指令。sketch 非空时作为首个内联附件提交，
// 让模型在扩写前先观察参考草图。输出长度受限、关闭思考预算以降低延迟。
func (g *GeminiClient) GenerateText(ctx context.Context, directive string, sketch *InlineImage) (string, error) {
	logger := modelLogger(ctx, "gemini", TextModel)
	logger.WithFields(logrus.Fields{
		"directive_length": len([]rune(directive)),
		"has_sketch":       sketch != nil,
	}).Info("llm_generate_text_start")

	parts := []geminiContentPart{{Text: directive}}
	if sketch != nil && strings.TrimSpace(sketch.Data) != "" {
		sketchPart := geminiContentPart{
			InlineData: &geminiInlineData{
				MimeType: sketch.MimeType,
				Data:     sketch.Data,
			},
		}
		parts = append([]geminiContentPart{sketchPart}, parts...)
	}

	payload := geminiRequest{
		Contents: []geminiContent{{Role: "user", Parts: parts}},
		GenerationConfig: &geminiGenerationConfig{
			MaxOutputTokens: elaborationMaxTokens,
			ThinkingConfig:  &geminiThinkingConfig{ThinkingBudget: 0},
		},
	}

	var resp geminiResponse
	if err := g.post(ctx, logger, fmt.Sprintf("models/%s:generateContent", TextModel), payload, &resp, "gemini text request failed"); err != nil {
		return "", err
	}

	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		for _, part := range candidate.Content.Parts {
			if text := strings.TrimSpace(part.Text); text != "" {
				if builder.Len() > 0 {
					builder.WriteString("\n")
				}
				builder.WriteString(text)
			}
		}
	}

	result := strings.TrimSpace(builder.String())
	logger.WithField("text_length", len([]rune(result))).Info("llm_generate_text_done")
	return result, nil
}

type imagenRequest struct {
	Instances  []imagenInstance `json:"instances"`
	Parameters imagenParameters `json:"parameters"`
}

type imagenInstance struct {
	Prompt string `json:"prompt"`
}

type imagenParameters struct {
	SampleCount    int    `json:"sampleCount"`
	AspectRatio    string `json:"aspectRatio,omitempty"`
	OutputMimeType string `json:"outputMimeType,omitempty"`
}

type imagenResponse struct {
	Predictions []struct {
		BytesBase64Encoded string `json:"bytesBase64Encoded"`
		MimeType           string `json:"mimeType"`
	} `json:"predictions"`
}

// GenerateImages 调用 Imagen 文生图，请求一张 PNG。
// 调用成功但无图时返回空切片，由调用方决定语义。
func (g *GeminiClient) GenerateImages(ctx context.Context, prompt, aspectRatio string) ([]GeneratedImage, error) {
	logger := modelLogger(ctx, "gemini", ImageModel)
	logger.WithFields(logrus.Fields{
		"prompt_length":  len([]rune(prompt)),
		"prompt_preview": logSnippet(prompt),
		"aspect_ratio":   aspectRatio,
	}).Info("llm_generate_images_start")

	payload := imagenRequest{
		Instances: []imagenInstance{{Prompt: prompt}},
		Parameters: imagenParameters{
			SampleCount:    1,
			AspectRatio:    aspectRatio,
			OutputMimeType: "image/png",
		},
	}

	var resp imagenResponse
	if err := g.post(ctx, logger, fmt.Sprintf("models/%s:predict", ImageModel), payload, &resp, "imagen request failed"); err != nil {
		return nil, err
	}

	images := make([]GeneratedImage, 0, len(resp.Predictions))
	for _, prediction := range resp.Predictions {
		raw := strings.TrimSpace(prediction.BytesBase64Encoded)
		if raw == "" {
			continue
		}
		data, err := base64.StdEncoding.DecodeString(raw)
		if err != nil {
			logger.WithError(err).Warn("llm_generate_images_decode_failed")
			continue
		}
		mimeType := prediction.MimeType
		if mimeType == "" {
			mimeType = "image/png"
		}
		images = append(images, GeneratedImage{Data: data, MimeType: mimeType})
	}

	logger.WithField("image_count", len(images)).Info("llm_generate_images_done")
	return images, nil
}

// EditImage 将主图与指令提交给图生图模型，扫描响应中第一个内联图片部分。
// 纯文本响应（无图片部分）返回 nil 图片与模型文本。
func (g *GeminiClient) EditImage(ctx context.Context, image InlineImage, instruction string) (*GeneratedImage, string, error) {
	logger := modelLogger(ctx, "gemini", EditModel)
	logger.WithFields(logrus.Fields{
		"instruction_preview": logSnippet(instruction),
		"source_mime":         image.MimeType,
	}).Info("llm_edit_image_start")

	payload := geminiRequest{
		Contents: []geminiContent{{
			Role: "user",
			Parts: []geminiContentPart{
				{InlineData: &geminiInlineData{MimeType: image.MimeType, Data: image.Data}},
				{Text: instruction},
			},
		}},
		GenerationConfig: &geminiGenerationConfig{
			ResponseModalities: []string{"IMAGE", "TEXT"},
		},
	}

	var resp geminiResponse
	if err := g.post(ctx, logger, fmt.Sprintf("models/%s:generateContent", EditModel), payload, &resp, "gemini edit request failed"); err != nil {
		return nil, "", err
	}

	var textBuilder strings.Builder
	for _, candidate := range resp.Candidates {
		for _, part := range candidate.Content.Parts {
			if part.InlineData != nil && part.InlineData.Data != "" {
				data, err := base64.StdEncoding.DecodeString(part.InlineData.Data)
				if err != nil {
					return nil, "", fmt.Errorf("decode edited image: %w", err)
				}
				mimeType := part.InlineData.MimeType
				if mimeType == "" {
					mimeType = "image/png"
				}
				logger.WithField("image_bytes", len(data)).Info("llm_edit_image_done")
				return &GeneratedImage{Data: data, MimeType: mimeType}, strings.TrimSpace(textBuilder.String()), nil
			}
			if text := strings.TrimSpace(part.Text); text != "" {
				if textBuilder.Len() > 0 {
					textBuilder.WriteString("\n")
				}
				textBuilder.WriteString(text)
			}
		}
	}

	logger.Warn("llm_edit_image_no_image_part")
	return nil, strings.TrimSpace(textBuilder.String()), nil
}

// post 发送 JSON 请求并解析响应，错误响应交给 classifyAPIError 归类。
func (g *GeminiClient) post(ctx context.Context, logger *logrus.Entry, endpoint string, payload any, out any, fallback string) error {
	body, err := json.Marshal(payload)
	if err != nil {
		logger.WithError(err).Error("llm_payload_marshal_failed")
		return err
	}

	url := fmt.Sprintf("%s/%s?key=%s", strings.TrimRight(g.baseURL, "/"), endpoint, g.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		logger.WithError(err).Error("llm_request_build_failed")
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		logger.WithError(err).Error("llm_request_failed")
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		logger.WithField("status", resp.StatusCode).WithError(err).Error("llm_response_read_failed")
		return fmt.Errorf("%s with status %d", fallback, resp.StatusCode)
	}

	logger.WithField("status", resp.StatusCode).Info("llm_response_status")
	if resp.StatusCode >= http.StatusBadRequest {
		logger.WithFields(logrus.Fields{
			"status":       resp.StatusCode,
			"body_preview": logSnippet(string(respBody)),
		}).Warn("llm_response_error")
		return classifyAPIError(resp.StatusCode, respBody, fallback)
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		logger.WithError(err).Error("llm_response_unmarshal_failed")
		return err
	}
	return nil
}
