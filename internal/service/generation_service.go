package service

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strconv"
	"strings"
	"time"

	"inkside/internal/entity"
	"inkside/internal/ledger"
	"inkside/internal/model"
	"inkside/internal/storage"
	"inkside/internal/utils"

	"github.com/sirupsen/logrus"
)

// GenerationService 设计生成服务，封装校验、记账、合成与入库的编排逻辑
type GenerationService struct {
	repo        model.Repository
	storage     storage.Storage
	credits     *ledger.Ledger
	compiler    *PromptCompiler
	synthesizer *Synthesizer

	publicBaseURL string

	// notifyFunc 用于通知画廊刷新（由调用方设置）
	notifyFunc func(userID uint)
}

// NewGenerationService 创建生成服务实例
func NewGenerationService(repo model.Repository, store storage.Storage, credits *ledger.Ledger, compiler *PromptCompiler, synthesizer *Synthesizer, publicBaseURL string) *GenerationService {
	return &GenerationService{
		repo:          repo,
		storage:       store,
		credits:       credits,
		compiler:      compiler,
		synthesizer:   synthesizer,
		publicBaseURL: strings.TrimRight(strings.TrimSpace(publicBaseURL), "/"),
	}
}

// SetNotifyFunc 设置画廊刷新通知函数
func (s *GenerationService) SetNotifyFunc(fn func(userID uint)) {
	s.notifyFunc = fn
}

// Generate 处理一次完整的设计生成请求。
//
// 流程固定为：校验 → 余额检查 → 提示词编译 → 出图 → 入库（仅登录用户）→ 扣减。
// 入库失败立即中止且不扣减；扣减发生在出图成功之后，保证失败的请求不消耗余额。
func (s *GenerationService) Generate(ctx context.Context, id ledger.Identity, req entity.DesignRequest) (*entity.GenerateDesignResponse, error) {
	if strings.TrimSpace(req.Subject) == "" {
		return nil, ErrEmptySubject
	}
	if !req.Style.Valid() {
		req.Style = entity.DefaultStyle()
	}

	ok, err := s.credits.CanConsume(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("check balance: %w", err)
	}
	if !ok {
		return nil, ErrInsufficientCredits
	}

	logger := logrus.WithFields(logrus.Fields{
		"user_id": id.UserID,
		"guest":   id.IsGuest(),
		"style":   req.Style,
	})
	logger.Info("design_generation_start")

	prompt, err := s.compiler.Compile(ctx, req)
	if err != nil {
		logger.WithError(err).Error("design_prompt_compilation_failed")
		return nil, err
	}

	image, err := s.synthesizer.Primary(ctx, prompt, req.Style.Family())
	if err != nil {
		logger.WithError(err).Error("design_generation_failed")
		return nil, err
	}

	resp := &entity.GenerateDesignResponse{
		Image:    image.DataURL(),
		MimeType: image.MimeType,
	}

	if !id.IsGuest() {
		summary, err := s.persistDesign(ctx, id.UserID, image, req)
		if err != nil {
			logger.WithError(err).Error("design_persistence_failed")
			return nil, err
		}
		resp.Design = summary
	}

	remaining, err := s.credits.Consume(ctx, id)
	if err != nil {
		// 图已生成（登录用户此时已入库），不回收结果，但扣减落账失败
		// 必须告知客户端。Consume 失败时返回的是未变动的真实余额。
		logger.WithError(err).Error("design_credit_consume_failed")
		resp.Warning = WarningCreditConsumeFailed
	}
	resp.RemainingCredits = remaining

	logger.WithField("remaining_credits", remaining).Info("design_generation_done")

	if !id.IsGuest() {
		s.notifyRefresh(id.UserID)
	}
	return resp, nil
}

// Derivative 基于现有主图生成派生图，不消耗余额。
func (s *GenerationService) Derivative(ctx context.Context, req entity.DerivativeRequest) (*entity.DerivativeResponse, error) {
	if !req.Style.Valid() {
		req.Style = entity.DefaultStyle()
	}

	logger := logrus.WithFields(logrus.Fields{
		"style": req.Style,
		"kind":  entity.DerivativeKindFor(req.Style.Family()),
	})
	logger.Info("derivative_generation_start")

	image, kind, err := s.synthesizer.Derivative(ctx, req)
	if err != nil {
		logger.WithError(err).Error("derivative_generation_failed")
		return nil, err
	}

	logger.Info("derivative_generation_done")
	return &entity.DerivativeResponse{
		Image:    image.DataURL(),
		MimeType: image.MimeType,
		Kind:     kind,
	}, nil
}

// persistDesign 保存主图到存储并写入设计记录。
func (s *GenerationService) persistDesign(parentCtx context.Context, userID uint, image entity.ImagePayload, req entity.DesignRequest) (*entity.DesignSummary, error) {
	if s.repo == nil || s.storage == nil {
		return nil, fmt.Errorf("%w: persistence not configured", ErrPersistenceFailed)
	}

	ctx, cancel := context.WithTimeout(parentCtx, 5*time.Minute)
	defer cancel()

	ext := utils.ExtensionFromMime(image.MimeType)
	if ext == "" {
		ext = "png"
	}

	opts := storage.SaveOptions{
		Owner:     strconv.FormatUint(uint64(userID), 10),
		Extension: ext,
		BaseName:  strconv.FormatInt(time.Now().UTC().UnixMilli(), 10),
	}
	relPath, err := s.storage.Save(ctx, image.Data, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistenceFailed, err)
	}

	design := entity.DbDesign{
		UserID:   userID,
		ImageURL: s.publicURL(relPath),
		Prompt:   strings.TrimSpace(req.Subject),
		Style:    string(req.Style),
	}
	if err := s.repo.CreateDesign(ctx, &design); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistenceFailed, err)
	}

	return &entity.DesignSummary{
		ID:        design.ID,
		ImageURL:  design.ImageURL,
		Prompt:    design.Prompt,
		Style:     design.Style,
		CreatedAt: design.CreatedAt,
	}, nil
}

// publicURL 把存储返回的相对路径拼成可访问的 URL。远端存储返回的绝对地址原样使用。
func (s *GenerationService) publicURL(relPath string) string {
	if strings.HasPrefix(relPath, "http://") || strings.HasPrefix(relPath, "https://") {
		return relPath
	}
	if s.publicBaseURL == "" {
		return "/" + strings.TrimLeft(relPath, "/")
	}
	return s.publicBaseURL + "/" + strings.TrimLeft(path.Clean(relPath), "/")
}

// notifyRefresh 通知画廊刷新
func (s *GenerationService) notifyRefresh(userID uint) {
	if s.notifyFunc != nil && userID > 0 {
		s.notifyFunc(userID)
	}
}

// IsCreditError 判断错误是否属于余额不足。
func IsCreditError(err error) bool {
	return errors.Is(err, ErrInsufficientCredits)
}
