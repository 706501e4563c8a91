package main

import (
	"fmt"
	"net/url"

	"github.com/RecoveryAshes/sitesnap/internal/utils"
)

// ValidateFlags 验证命令行标志
func ValidateFlags(
	targetURL string,
	depth int,
	pageDelay int,
	settleDelay int,
) error {
	// 验证URL
	if targetURL != "" {
		if err := utils.ValidateURL(targetURL); err != nil {
			return fmt.Errorf("无效的目标URL: %w", err)
		}
	}

	// 验证深度
	if depth < 0 || depth > 10 {
		return fmt.Errorf("爬取深度必须在0-10之间,当前值: %d", depth)
	}

	// 验证页面延迟
	if pageDelay < 0 || pageDelay > 60 {
		return fmt.Errorf("页面延迟必须在0-60秒之间,当前值: %d", pageDelay)
	}

	// 验证安定等待
	if settleDelay < 0 || settleDelay > 60 {
		return fmt.Errorf("安定等待必须在0-60秒之间,当前值: %d", settleDelay)
	}

	return nil
}

// NormalizeURL 规范化URL
// 缺少协议时默认补全https
func NormalizeURL(urlStr string) (string, error) {
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return "", err
	}

	if parsed.Scheme == "" {
		urlStr = "https://" + urlStr
		parsed, err = url.Parse(urlStr)
		if err != nil {
			return "", err
		}
	}

	return parsed.String(), nil
}
