package models

import (
	"fmt"
)

// CrawlConfig 爬取配置
type CrawlConfig struct {
	MaxDepth         int      `json:"max_depth" mapstructure:"max_depth"`                   // 最大爬取深度 (默认:2)
	PageDelay        int      `json:"page_delay" mapstructure:"page_delay"`                 // 页面间礼貌延迟(秒) (默认:4)
	NavTimeout       int      `json:"nav_timeout" mapstructure:"nav_timeout"`               // 页面加载超时(秒) (默认:120)
	Headless         bool     `json:"headless" mapstructure:"headless"`                     // 无头模式 (默认:true)
	ViewportWidth    int      `json:"viewport_width" mapstructure:"viewport_width"`         // 视口宽度 (默认:1920)
	ViewportHeight   int      `json:"viewport_height" mapstructure:"viewport_height"`       // 视口高度 (默认:1080)
	TileOverlap      int      `json:"tile_overlap" mapstructure:"tile_overlap"`             // 分块截图重叠像素 (默认:100)
	MaxCaptureHeight int      `json:"max_capture_height" mapstructure:"max_capture_height"` // 兜底截图最大高度 (默认:20000)
	SettleDelay      int      `json:"settle_delay" mapstructure:"settle_delay"`             // 渲染安定等待(秒) (默认:8)
	UserAgent        string   `json:"user_agent" mapstructure:"user_agent"`                 // 浏览器User-Agent
	PriorityPages    []string `json:"priority_pages" mapstructure:"priority_pages"`         // 预置的高价值页面(深度0入队)
	ArchiveName      string   `json:"archive_name" mapstructure:"archive_name"`             // 最终压缩包文件名
}

// Validate 验证配置
func (c *CrawlConfig) Validate() error {
	if c.MaxDepth < 0 || c.MaxDepth > 10 {
		return fmt.Errorf("深度必须在0-10之间")
	}
	if c.PageDelay < 0 {
		return fmt.Errorf("页面延迟不能为负数")
	}
	if c.ViewportWidth <= 0 || c.ViewportHeight <= 0 {
		return fmt.Errorf("视口尺寸必须为正数")
	}
	if c.TileOverlap < 0 || c.TileOverlap >= c.ViewportHeight {
		return fmt.Errorf("分块重叠必须在0到视口高度之间")
	}
	if c.MaxCaptureHeight < c.ViewportHeight {
		return fmt.Errorf("最大截图高度不能小于视口高度")
	}
	if c.ArchiveName == "" {
		return fmt.Errorf("压缩包文件名不能为空")
	}
	return nil
}

// DefaultCrawlConfig 默认爬取配置
// 常量取值沿用线上长期运行验证过的经验值
func DefaultCrawlConfig() CrawlConfig {
	return CrawlConfig{
		MaxDepth:         2,
		PageDelay:        4,
		NavTimeout:       120,
		Headless:         true,
		ViewportWidth:    1920,
		ViewportHeight:   1080,
		TileOverlap:      100,
		MaxCaptureHeight: 20000,
		SettleDelay:      8,
		UserAgent:        "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		ArchiveName:      "site_screenshots.zip",
	}
}
