package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"inkside/internal/config"

	"github.com/sirupsen/logrus"
	"github.com/volcengine/volcengine-go-sdk/service/arkruntime"
	volcModel "github.com/volcengine/volcengine-go-sdk/service/arkruntime/model"
	"github.com/volcengine/volcengine-go-sdk/volcengine"
)

// SeedreamModel 是火山引擎的文生图模型。
const SeedreamModel = "doubao-seedream-4-0-250828"

// 宽高比到 Seedream 推荐像素尺寸的映射。
var seedreamSizes = map[string]string{
	"1:1": "2048x2048",
	"3:4": "1728x2304",
	"4:3": "2304x1728",
}

// VolcengineClient 通过火山引擎 Seedream 提供主图文生图，
// 作为 Imagen 的可替换后端。
type VolcengineClient struct {
	httpClient *http.Client
	apiKey     string
}

// NewVolcengineClient 创建火山引擎客户端。
func NewVolcengineClient(cfg config.Config) (*VolcengineClient, error) {
	if strings.TrimSpace(cfg.VolcengineAPIKey) == "" {
		return nil, errors.New("volcengine api key is not configured")
	}
	return &VolcengineClient{
		httpClient: &http.Client{},
		apiKey:     cfg.VolcengineAPIKey,
	}, nil
}

// GenerateImages 调用 Seedream 生成一张图并下载其字节。
// 调用成功但无图时返回空切片，由调用方决定语义。
func (v *VolcengineClient) GenerateImages(ctx context.Context, prompt, aspectRatio string) ([]GeneratedImage, error) {
	logger := modelLogger(ctx, "volcengine", SeedreamModel)
	logger.WithFields(logrus.Fields{
		"prompt_preview": logSnippet(prompt),
		"aspect_ratio":   aspectRatio,
	}).Info("llm_generate_images_start")

	size, ok := seedreamSizes[strings.TrimSpace(aspectRatio)]
	if !ok {
		size = seedreamSizes["1:1"]
	}

	client := arkruntime.NewClientWithApiKey(v.apiKey)

	var sequential volcModel.SequentialImageGeneration = "disabled"
	generateReq := volcModel.GenerateImagesRequest{
		Model:                     SeedreamModel,
		Prompt:                    prompt,
		Size:                      volcengine.String(size),
		ResponseFormat:            volcengine.String(volcModel.GenerateImagesResponseFormatURL),
		Watermark:                 volcengine.Bool(false),
		SequentialImageGeneration: &sequential,
	}

	stream, err := client.GenerateImagesStreaming(ctx, generateReq)
	if err != nil {
		logger.WithError(err).Error("llm_generate_images_request_failed")
		return nil, classifyVolcengineError(err)
	}
	defer stream.Close()

	var imageURL string
	for {
		recv, err := stream.Recv()
		if err == io.EOF {
			break
		}
		if err != nil {
			logger.WithError(err).Error("llm_generate_images_stream_error")
			return nil, classifyVolcengineError(err)
		}
		switch recv.Type {
		case "image_generation.partial_failed":
			if recv.Error != nil {
				logger.WithField("code", recv.Error.Code).Warn("llm_generate_images_partial_failed")
				return nil, errors.New(SanitizeErrorMessage(recv.Error.Message, "image generation failed"))
			}
		case "image_generation.partial_succeeded":
			if recv.Error == nil && recv.Url != nil {
				imageURL = *recv.Url
			}
		}
	}

	if imageURL == "" {
		logger.Info("llm_generate_images_done")
		return nil, nil
	}

	data, mimeType, err := v.downloadImage(ctx, imageURL)
	if err != nil {
		logger.WithError(err).Error("llm_generate_images_download_failed")
		return nil, err
	}

	logger.WithField("image_bytes", len(data)).Info("llm_generate_images_done")
	return []GeneratedImage{{Data: data, MimeType: mimeType}}, nil
}

// downloadImage 拉取生成结果的字节；生成链接短期有效，立即下载。
func (v *VolcengineClient) downloadImage(parentCtx context.Context, url string) ([]byte, string, error) {
	ctx, cancel := context.WithTimeout(parentCtx, 60*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("create request: %w", err)
	}

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("download image http %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("read image body: %w", err)
	}

	mimeType := strings.TrimSpace(resp.Header.Get("Content-Type"))
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}
	return data, mimeType, nil
}

// classifyVolcengineError 把限流类错误归入 ErrResourceExhausted。
func classifyVolcengineError(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	if strings.Contains(msg, "429") || strings.Contains(strings.ToLower(msg), "rate limit") {
		return fmt.Errorf("volcengine request throttled: %w", ErrResourceExhausted)
	}
	return err
}
