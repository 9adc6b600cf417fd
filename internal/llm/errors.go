package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrResourceExhausted 表示上游返回限流/配额耗尽，调用方应提示稍后重试
// 而不是修改请求内容。
var ErrResourceExhausted = errors.New("generation quota exhausted")

type geminiErrorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// classifyAPIError 将上游错误响应归类：限流映射为 ErrResourceExhausted，
// 其余保留上游 message；message 本身像原始 JSON 时用默认描述替代。
func classifyAPIError(httpStatus int, body []byte, fallback string) error {
	var apiErr geminiErrorResponse
	if err := json.Unmarshal(body, &apiErr); err == nil {
		if apiErr.Error.Status == "RESOURCE_EXHAUSTED" || apiErr.Error.Code == 429 {
			return fmt.Errorf("%s: %w", fallback, ErrResourceExhausted)
		}
		if msg := SanitizeErrorMessage(apiErr.Error.Message, ""); msg != "" {
			return errors.New(msg)
		}
	}
	if httpStatus == 429 {
		return fmt.Errorf("%s: %w", fallback, ErrResourceExhausted)
	}
	return fmt.Errorf("%s with status %d", fallback, httpStatus)
}

// SanitizeErrorMessage 过滤看起来像原始结构化错误数据的消息，替换为安全默认值。
func SanitizeErrorMessage(message, fallback string) string {
	trimmed := strings.TrimSpace(message)
	if trimmed == "" || strings.HasPrefix(trimmed, "{") {
		return fallback
	}
	return trimmed
}
