package service

import (
	"errors"

	"inkside/internal/ledger"
	"inkside/internal/llm"
)

// 生成链路的业务错误。调用方用 errors.Is 判别并映射到对外的错误码。
var (
	// ErrEmptySubject 表示请求缺少主体描述。
	ErrEmptySubject = errors.New("design subject is empty")

	// ErrPromptCompilationFailed 表示提示词细化阶段失败。
	ErrPromptCompilationFailed = errors.New("prompt compilation failed")

	// ErrGenerationFailed 表示图片生成调用失败。
	ErrGenerationFailed = errors.New("image generation failed")

	// ErrNoImageReturned 表示生成调用成功但未返回任何图片。
	ErrNoImageReturned = errors.New("no image returned")

	// ErrNoStencilReturned 表示派生图调用成功但未返回图片。
	ErrNoStencilReturned = errors.New("no stencil returned")

	// ErrPersistenceFailed 表示登录用户的设计入库失败。
	ErrPersistenceFailed = errors.New("design persistence failed")

	// ErrPageCursorUnavailable 表示请求的页码超出已建立的游标范围。
	ErrPageCursorUnavailable = errors.New("page cursor unavailable")
)

// 余额与限流错误沿用底层包的哨兵值。
var (
	ErrInsufficientCredits = ledger.ErrInsufficientCredits
	ErrResourceExhausted   = llm.ErrResourceExhausted
)

// WarningCreditConsumeFailed 标记生成成功但扣减落账失败的响应。
// 此时余额未变动，客户端按响应中的 remaining_credits 展示真实余额。
const WarningCreditConsumeFailed = "credit_consume_failed"
