package api

import (
	"fmt"
	"strings"
	"time"

	"inkside/internal/auth"
	"inkside/internal/config"
	"inkside/internal/ledger"
	"inkside/internal/llm"
	"inkside/internal/localstore"
	"inkside/internal/model"
	"inkside/internal/service"
	"inkside/internal/storage"
)

// HTTPHandler HTTP 请求处理器
type HTTPHandler struct {
	cfg               config.Config
	repo              model.Repository
	storage           storage.Storage
	storagePublicBase string
	authManager       *auth.Manager

	// 本地键值存储：访客积分与语言偏好
	preferences  *localstore.Store
	creditLedger *ledger.Ledger

	// 服务层
	generationService *service.GenerationService
	galleryService    *service.GalleryService
}

// NewHTTPHandler 创建 HTTP 处理器实例并完成服务层装配
func NewHTTPHandler(cfg config.Config, repo model.Repository, store storage.Storage) (*HTTPHandler, error) {
	expiry := time.Duration(cfg.JWTExpirationMinutes) * time.Minute
	authManager, err := auth.NewManager(cfg.JWTSecret, cfg.JWTIssuer, expiry)
	if err != nil {
		return nil, err
	}

	kvStore, err := localstore.Open(cfg.LocalStoreDir)
	if err != nil {
		return nil, fmt.Errorf("open local store: %w", err)
	}

	creditLedger := ledger.NewLedger(repo, kvStore)

	// Gemini 始终需要：提示词细化与派生图编辑只有 Gemini 后端。
	geminiClient, err := llm.NewGeminiClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("init gemini client: %w", err)
	}

	var images service.TextToImage = geminiClient
	if strings.EqualFold(strings.TrimSpace(cfg.ImageBackend), "volcengine") {
		volcClient, err := llm.NewVolcengineClient(cfg)
		if err != nil {
			return nil, fmt.Errorf("init volcengine client: %w", err)
		}
		images = volcClient
	}

	compiler := service.NewPromptCompiler(geminiClient)
	synthesizer := service.NewSynthesizer(images, geminiClient)

	publicBase := normalisePublicBase(cfg.StoragePublicBaseURL)
	generationSvc := service.NewGenerationService(repo, store, creditLedger, compiler, synthesizer, publicBase)

	localBaseDir := ""
	if provider, ok := store.(storage.LocalBaseDirProvider); ok {
		localBaseDir = provider.LocalBaseDir()
	}
	imageSource := service.NewStoredImageSource(localBaseDir, publicBase)
	gallerySvc := service.NewGalleryService(repo, imageSource)

	// 生成成功后丢弃该用户的画廊游标，下次取页时重建。
	generationSvc.SetNotifyFunc(gallerySvc.Reset)

	return &HTTPHandler{
		cfg:               cfg,
		repo:              repo,
		storage:           store,
		storagePublicBase: publicBase,
		authManager:       authManager,
		preferences:       kvStore,
		creditLedger:      creditLedger,
		generationService: generationSvc,
		galleryService:    gallerySvc,
	}, nil
}

// normalisePublicBase 规范化公共 URL 基础路径
func normalisePublicBase(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		trimmed = "/files"
	}
	if strings.HasPrefix(trimmed, "http://") || strings.HasPrefix(trimmed, "https://") {
		return strings.TrimRight(trimmed, "/")
	}
	if !strings.HasPrefix(trimmed, "/") {
		trimmed = "/" + trimmed
	}
	return strings.TrimRight(trimmed, "/")
}
