package api

import (
	"errors"
	"net/http"

	"inkside/internal/service"

	"github.com/gin-gonic/gin"
)

// 错误码定义
const (
	// 通用错误码
	ErrCodeInvalidRequest     = "ERR_INVALID_REQUEST"
	ErrCodeUnauthorized       = "ERR_UNAUTHORIZED"
	ErrCodeForbidden          = "ERR_FORBIDDEN"
	ErrCodeNotFound           = "ERR_NOT_FOUND"
	ErrCodeInternalError      = "ERR_INTERNAL_ERROR"
	ErrCodeServiceUnavailable = "ERR_SERVICE_UNAVAILABLE"

	// 认证错误码
	ErrCodeInvalidCredentials = "ERR_INVALID_CREDENTIALS"
	ErrCodeEmailExists        = "ERR_EMAIL_EXISTS"
	ErrCodeUserDisabled       = "ERR_USER_DISABLED"
	ErrCodeSessionExpired     = "ERR_SESSION_EXPIRED"
	ErrCodeUserNotFound       = "ERR_USER_NOT_FOUND"

	// 生成链路错误码
	ErrCodeEmptySubject            = "ERR_EMPTY_SUBJECT"
	ErrCodeInsufficientCredits     = "ERR_INSUFFICIENT_CREDITS"
	ErrCodePromptCompilationFailed = "ERR_PROMPT_COMPILATION_FAILED"
	ErrCodeGenerationFailed        = "ERR_GENERATION_FAILED"
	ErrCodeNoImageReturned         = "ERR_NO_IMAGE_RETURNED"
	ErrCodeNoStencilReturned       = "ERR_NO_STENCIL_RETURNED"
	ErrCodeResourceExhausted       = "ERR_RESOURCE_EXHAUSTED"
	ErrCodePersistenceFailed       = "ERR_PERSISTENCE_FAILED"
	ErrCodePageCursorUnavailable   = "ERR_PAGE_CURSOR_UNAVAILABLE"
)

// APIError 统一的 API 错误响应结构
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// ErrorResponse 返回统一格式的错误响应
func ErrorResponse(c *gin.Context, status int, code string, message string) {
	c.JSON(status, APIError{
		Code:    code,
		Message: message,
	})
}

// ErrorResponseWithDetails 返回带详情的错误响应
func ErrorResponseWithDetails(c *gin.Context, status int, code string, message string, details any) {
	c.JSON(status, APIError{
		Code:    code,
		Message: message,
		Details: details,
	})
}

// 常用错误响应快捷函数

// BadRequest 400 错误请求
func BadRequest(c *gin.Context, code string, message string) {
	ErrorResponse(c, http.StatusBadRequest, code, message)
}

// Unauthorized 401 未授权
func Unauthorized(c *gin.Context, message string) {
	ErrorResponse(c, http.StatusUnauthorized, ErrCodeUnauthorized, message)
}

// Forbidden 403 禁止访问
func Forbidden(c *gin.Context, message string) {
	ErrorResponse(c, http.StatusForbidden, ErrCodeForbidden, message)
}

// InternalError 500 服务器内部错误
func InternalError(c *gin.Context, message string) {
	ErrorResponse(c, http.StatusInternalServerError, ErrCodeInternalError, message)
}

// ServiceUnavailable 503 服务不可用
func ServiceUnavailable(c *gin.Context, message string) {
	ErrorResponse(c, http.StatusServiceUnavailable, ErrCodeServiceUnavailable, message)
}

// InvalidPayload 无效的请求体
func InvalidPayload(c *gin.Context) {
	ErrorResponse(c, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid request payload")
}

// RespondServiceError 把生成链路的业务错误映射为对应的 HTTP 响应。
//
// 余额不足时附带 next_action 提示：访客应引导注册，账户用户应引导购买。
func RespondServiceError(c *gin.Context, err error, isGuest bool) {
	switch {
	case errors.Is(err, service.ErrEmptySubject):
		BadRequest(c, ErrCodeEmptySubject, "design subject is required")
	case errors.Is(err, service.ErrInsufficientCredits):
		nextAction := "purchase"
		if isGuest {
			nextAction = "sign_up"
		}
		ErrorResponseWithDetails(c, http.StatusPaymentRequired, ErrCodeInsufficientCredits,
			"not enough credits", gin.H{"next_action": nextAction})
	case errors.Is(err, service.ErrResourceExhausted):
		ErrorResponse(c, http.StatusTooManyRequests, ErrCodeResourceExhausted,
			"generation quota exhausted, try again later")
	case errors.Is(err, service.ErrPromptCompilationFailed):
		ErrorResponse(c, http.StatusBadGateway, ErrCodePromptCompilationFailed, "failed to compile prompt")
	case errors.Is(err, service.ErrNoImageReturned):
		ErrorResponse(c, http.StatusBadGateway, ErrCodeNoImageReturned, "no image was returned")
	case errors.Is(err, service.ErrNoStencilReturned):
		ErrorResponse(c, http.StatusBadGateway, ErrCodeNoStencilReturned, "no derivative image was returned")
	case errors.Is(err, service.ErrPersistenceFailed):
		ErrorResponse(c, http.StatusInternalServerError, ErrCodePersistenceFailed, "failed to save design")
	case errors.Is(err, service.ErrGenerationFailed):
		ErrorResponse(c, http.StatusBadGateway, ErrCodeGenerationFailed, "image generation failed")
	case errors.Is(err, service.ErrPageCursorUnavailable):
		BadRequest(c, ErrCodePageCursorUnavailable, "requested page is not reachable yet")
	default:
		InternalError(c, "internal server error")
	}
}
