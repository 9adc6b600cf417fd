package llm

import (
	"errors"
	"strings"
	"testing"
)

func TestClassifyAPIError(t *testing.T) {
	tests := []struct {
		name             string
		httpStatus       int
		body             string
		expectExhausted  bool
		expectedContains string
	}{
		{
			name:            "RESOURCE_EXHAUSTED 状态",
			httpStatus:      400,
			body:            `{"error":{"code":400,"message":"quota","status":"RESOURCE_EXHAUSTED"}}`,
			expectExhausted: true,
		},
		{
			name:            "错误码 429",
			httpStatus:      400,
			body:            `{"error":{"code":429,"message":"slow down","status":"FAILED_PRECONDITION"}}`,
			expectExhausted: true,
		},
		{
			name:            "HTTP 429 无结构化错误体",
			httpStatus:      429,
			body:            `too many requests`,
			expectExhausted: true,
		},
		{
			name:             "普通上游错误保留 message",
			httpStatus:       400,
			body:             `{"error":{"code":400,"message":"invalid argument","status":"INVALID_ARGUMENT"}}`,
			expectedContains: "invalid argument",
		},
		{
			name:             "message 为原始 JSON 时使用默认描述",
			httpStatus:       500,
			body:             `{"error":{"code":500,"message":"{\"raw\":true}","status":"INTERNAL"}}`,
			expectedContains: "request failed with status 500",
		},
		{
			name:             "非 JSON 响应体",
			httpStatus:       502,
			body:             `<html>bad gateway</html>`,
			expectedContains: "request failed with status 502",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classifyAPIError(tt.httpStatus, []byte(tt.body), "request failed")
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.expectExhausted != errors.Is(err, ErrResourceExhausted) {
				t.Errorf("ErrResourceExhausted mismatch for %v", err)
			}
			if tt.expectedContains != "" && !strings.Contains(err.Error(), tt.expectedContains) {
				t.Errorf("expected error to contain %q, got %q", tt.expectedContains, err.Error())
			}
		})
	}
}

func TestSanitizeErrorMessage(t *testing.T) {
	tests := []struct {
		name     string
		message  string
		fallback string
		expected string
	}{
		{name: "普通消息原样返回", message: "quota exceeded", fallback: "default", expected: "quota exceeded"},
		{name: "空消息回退", message: "   ", fallback: "default", expected: "default"},
		{name: "原始 JSON 回退", message: `{"error":{}}`, fallback: "default", expected: "default"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if result := SanitizeErrorMessage(tt.message, tt.fallback); result != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, result)
			}
		})
	}
}
