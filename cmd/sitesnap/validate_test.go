package main

import (
	"testing"
)

func TestValidateFlags(t *testing.T) {
	tests := []struct {
		name        string
		url         string
		depth       int
		pageDelay   int
		settleDelay int
		expectError bool
	}{
		{"合法参数", "https://example.com", 2, 4, 8, false},
		{"深度为0只截入口页", "https://example.com", 0, 4, 8, false},
		{"深度超限", "https://example.com", 11, 4, 8, true},
		{"负深度", "https://example.com", -1, 4, 8, true},
		{"负延迟", "https://example.com", 2, -1, 8, true},
		{"延迟超限", "https://example.com", 2, 61, 8, true},
		{"安定等待超限", "https://example.com", 2, 4, 61, true},
		{"非法URL", "ftp://example.com", 2, 4, 8, true},
		{"空URL跳过校验", "", 2, 4, 8, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFlags(tt.url, tt.depth, tt.pageDelay, tt.settleDelay)
			if (err != nil) != tt.expectError {
				t.Errorf("期望错误=%v, 实际=%v", tt.expectError, err)
			}
		})
	}
}

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"已有协议保持不变", "https://example.com/about", "https://example.com/about"},
		{"缺少协议补全https", "example.com", "https://example.com"},
		{"http协议保持", "http://example.com", "http://example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeURL(tt.input)
			if err != nil {
				t.Fatalf("规范化失败: %v", err)
			}
			if got != tt.want {
				t.Errorf("NormalizeURL(%q) = %q, 期望 %q", tt.input, got, tt.want)
			}
		})
	}
}
