package llm

import (
	"errors"
	"testing"
)

func TestSeedreamSizes(t *testing.T) {
	tests := []struct {
		name   string
		aspect string
		want   string
	}{
		{name: "方图", aspect: "1:1", want: "2048x2048"},
		{name: "竖图", aspect: "3:4", want: "1728x2304"},
		{name: "横图", aspect: "4:3", want: "2304x1728"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := seedreamSizes[tt.aspect]
			if !ok || got != tt.want {
				t.Errorf("expected %q for %s, got %q", tt.want, tt.aspect, got)
			}
		})
	}
}

func TestClassifyVolcengineError(t *testing.T) {
	tests := []struct {
		name            string
		err             error
		expectExhausted bool
	}{
		{name: "429 归类为限流", err: errors.New("http status 429"), expectExhausted: true},
		{name: "rate limit 文本归类为限流", err: errors.New("Rate Limit exceeded"), expectExhausted: true},
		{name: "其他错误原样返回", err: errors.New("model not found"), expectExhausted: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classifyVolcengineError(tt.err)
			if errors.Is(got, ErrResourceExhausted) != tt.expectExhausted {
				t.Errorf("unexpected classification: %v", got)
			}
		})
	}
}
