package utils

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/RecoveryAshes/sitesnap/internal/models"
	"github.com/schollz/progressbar/v3"
)

// Reporter 报告生成器
type Reporter struct {
	outputDir string
	domain    string
}

// NewReporter 创建报告生成器
func NewReporter(outputDir string, domain string) *Reporter {
	return &Reporter{
		outputDir: outputDir,
		domain:    domain,
	}
}

// GenerateReport 生成爬取报告
func (r *Reporter) GenerateReport(
	taskID string,
	targetURL string,
	stats models.CrawlStats,
	artifacts []models.ArtifactInfo,
	failedURLs []string,
	config models.CrawlConfig,
) error {
	reportsDir := filepath.Join(r.outputDir, r.domain, "reports")
	if err := os.MkdirAll(reportsDir, 0755); err != nil {
		return fmt.Errorf("创建报告目录失败: %w", err)
	}

	// 转换失败URL列表
	failedInfos := make([]models.FailedURLInfo, 0, len(failedURLs))
	for _, u := range failedURLs {
		failedInfos = append(failedInfos, models.FailedURLInfo{
			URL:       u,
			ErrorType: "navigation_failed",
			ErrorMsg:  "页面导航失败或超时",
		})
	}

	// 创建爬取报告
	crawlReport := models.CrawlReport{
		TaskID:     taskID,
		TargetURL:  targetURL,
		Domain:     r.domain,
		StartTime:  time.Now().Add(-time.Duration(stats.Duration) * time.Second),
		EndTime:    time.Now(),
		Duration:   stats.Duration,
		Stats:      stats,
		Artifacts:  artifacts,
		FailedURLs: failedInfos,
		OutputDir:  filepath.Join(r.outputDir, r.domain),
		Archive:    stats.ArchivedFile,
		Config:     config,
	}

	// 保存主报告
	if err := r.saveJSONReport(reportsDir, "crawl_report.json", crawlReport); err != nil {
		return err
	}

	// 保存截图清单
	if err := r.saveJSONReport(reportsDir, "artifacts.json", artifacts); err != nil {
		return err
	}

	// 保存失败URL列表
	if err := r.saveJSONReport(reportsDir, "failed_urls.json", failedInfos); err != nil {
		return err
	}

	Infof("✅ 报告已生成: %s", reportsDir)
	return nil
}

// saveJSONReport 保存JSON报告
func (r *Reporter) saveJSONReport(dir string, filename string, data interface{}) error {
	filepath := filepath.Join(dir, filename)

	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("序列化JSON失败: %w", err)
	}

	if err := os.WriteFile(filepath, jsonData, 0644); err != nil {
		return fmt.Errorf("写入报告文件失败: %w", err)
	}

	Debugf("保存报告: %s", filepath)
	return nil
}

// NewProgressBar 创建进度条
func NewProgressBar(max int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(max,
		progressbar.OptionSetDescription(description),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
}
