package core

import (
	"os"
	"path/filepath"
	"testing"
)

// TestLoadConfigDefaults 测试配置文件缺失时回落默认值
func TestLoadConfigDefaults(t *testing.T) {
	config, err := LoadConfig("")
	if err != nil {
		t.Fatalf("加载默认配置失败: %v", err)
	}

	if config.Crawl.MaxDepth != 2 {
		t.Errorf("默认深度应为2, 实际=%d", config.Crawl.MaxDepth)
	}
	if config.Crawl.PageDelay != 4 {
		t.Errorf("默认页面延迟应为4秒, 实际=%d", config.Crawl.PageDelay)
	}
	if config.Crawl.NavTimeout != 120 {
		t.Errorf("默认导航超时应为120秒, 实际=%d", config.Crawl.NavTimeout)
	}
	if !config.Crawl.Headless {
		t.Error("默认应为无头模式")
	}
	if config.Crawl.ViewportWidth != 1920 || config.Crawl.ViewportHeight != 1080 {
		t.Errorf("默认视口应为1920x1080, 实际=%dx%d",
			config.Crawl.ViewportWidth, config.Crawl.ViewportHeight)
	}
	if config.Crawl.ArchiveName != "site_screenshots.zip" {
		t.Errorf("默认压缩包名错误: %s", config.Crawl.ArchiveName)
	}
	if config.Logging.Level != "info" {
		t.Errorf("默认日志级别应为info, 实际=%s", config.Logging.Level)
	}
	if config.Output.BaseDir != "output" {
		t.Errorf("默认输出目录应为output, 实际=%s", config.Output.BaseDir)
	}
}

// TestLoadConfigFromFile 测试从YAML文件加载并覆盖默认值
func TestLoadConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	content := `crawl:
  max_depth: 5
  page_delay: 1
  viewport_width: 1280
  archive_name: snaps.zip
logging:
  level: debug
output:
  base_dir: /tmp/snaps
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("写入测试配置失败: %v", err)
	}

	config, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("加载配置失败: %v", err)
	}

	if config.Crawl.MaxDepth != 5 {
		t.Errorf("深度应被覆盖为5, 实际=%d", config.Crawl.MaxDepth)
	}
	if config.Crawl.PageDelay != 1 {
		t.Errorf("延迟应被覆盖为1, 实际=%d", config.Crawl.PageDelay)
	}
	if config.Crawl.ViewportWidth != 1280 {
		t.Errorf("视口宽度应被覆盖为1280, 实际=%d", config.Crawl.ViewportWidth)
	}
	if config.Crawl.ArchiveName != "snaps.zip" {
		t.Errorf("压缩包名应被覆盖, 实际=%s", config.Crawl.ArchiveName)
	}
	if config.Logging.Level != "debug" {
		t.Errorf("日志级别应被覆盖为debug, 实际=%s", config.Logging.Level)
	}
	// 未出现的字段保持默认
	if config.Crawl.ViewportHeight != 1080 {
		t.Errorf("未配置字段应保持默认1080, 实际=%d", config.Crawl.ViewportHeight)
	}
}

// TestMergeCLIFlags 测试命令行参数覆盖配置
func TestMergeCLIFlags(t *testing.T) {
	config, err := LoadConfig("")
	if err != nil {
		t.Fatalf("加载默认配置失败: %v", err)
	}

	config.MergeCLIFlags(3, 0, 10, false, "custom.zip")

	if config.Crawl.MaxDepth != 3 {
		t.Errorf("深度应为3, 实际=%d", config.Crawl.MaxDepth)
	}
	if config.Crawl.PageDelay != 0 {
		t.Errorf("零延迟应被接受, 实际=%d", config.Crawl.PageDelay)
	}
	if config.Crawl.SettleDelay != 10 {
		t.Errorf("安定等待应为10, 实际=%d", config.Crawl.SettleDelay)
	}
	if config.Crawl.Headless {
		t.Error("无头模式应被关闭")
	}
	if config.Crawl.ArchiveName != "custom.zip" {
		t.Errorf("压缩包名应被覆盖, 实际=%s", config.Crawl.ArchiveName)
	}

	// 空压缩包名不覆盖
	config.MergeCLIFlags(3, 0, 10, false, "")
	if config.Crawl.ArchiveName != "custom.zip" {
		t.Error("空压缩包名不应清空已有值")
	}
}
