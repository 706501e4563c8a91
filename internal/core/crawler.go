package core

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/RecoveryAshes/sitesnap/internal/browser"
	"github.com/RecoveryAshes/sitesnap/internal/crawlers"
	"github.com/RecoveryAshes/sitesnap/internal/models"
	"github.com/RecoveryAshes/sitesnap/internal/utils"
)

// Crawler 主爬取协调器
// 单浏览器会话串行处理队列: 出队过滤 → 导航 → 悬停展开 → 渲染检测 →
// 截图落盘 → 链接回灌,最后打包与报告
type Crawler struct {
	config    models.CrawlConfig
	targetURL string
	domain    string
	outputDir string

	session  *crawlers.CrawlSession
	browser  *browser.Session
	surface  *crawlers.RodSurface
	detector *crawlers.Detector
	chain    *crawlers.CaptureChain
	extract  *crawlers.Extractor
	reveal   *crawlers.Revealer

	mu    sync.RWMutex
	stats models.CrawlStats
}

// NewCrawler 创建主爬取协调器
func NewCrawler(targetURL string, config models.CrawlConfig, outputDir string) (*Crawler, error) {
	parsedURL, err := url.Parse(targetURL)
	if err != nil {
		return nil, fmt.Errorf("解析URL失败: %w", err)
	}

	domain := parsedURL.Host
	if domain == "" {
		return nil, fmt.Errorf("无法从URL中提取域名: %s", targetURL)
	}

	return &Crawler{
		config:    config,
		targetURL: targetURL,
		domain:    domain,
		outputDir: outputDir,
		session:   crawlers.NewCrawlSession(uuid.New().String(), domain),
	}, nil
}

// Crawl 执行爬取任务
// 执行流程:
//  1. 创建输出目录结构
//  2. 启动浏览器会话(失败即终止整次运行)
//  3. 预置页面与目标URL入队,BFS处理队列
//  4. 打包截图目录
//  5. 生成爬取报告
func (c *Crawler) Crawl() error {
	startTime := time.Now()

	utils.Infof("🚀 开始截图任务")
	utils.Infof("目标URL: %s", c.targetURL)
	utils.Infof("域名: %s", c.domain)
	utils.Infof("最大深度: %d", c.config.MaxDepth)
	utils.Infof("输出目录: %s", c.outputDir)

	if err := c.setupOutputDirectories(); err != nil {
		return fmt.Errorf("创建输出目录失败: %w", err)
	}

	// 浏览器起不来属于致命错误,没有渲染表面任务无法推进
	sess, err := browser.NewSession(c.config)
	if err != nil {
		return err
	}
	c.browser = sess
	defer c.browser.Close()

	c.surface = crawlers.NewRodSurface(sess.Page())

	detCfg := crawlers.DefaultDetectorConfig()
	detCfg.SettleDelay = time.Duration(c.config.SettleDelay) * time.Second
	c.detector = crawlers.NewDetector(c.surface, detCfg)

	capCfg := crawlers.DefaultCaptureConfig()
	capCfg.ViewportWidth = c.config.ViewportWidth
	capCfg.ViewportHeight = c.config.ViewportHeight
	capCfg.TileOverlap = c.config.TileOverlap
	capCfg.MaxHeight = c.config.MaxCaptureHeight
	guard := crawlers.NewResourceGuard(crawlers.DefaultGuardReserve)
	c.chain = crawlers.NewCaptureChain(c.surface, guard, capCfg)

	c.extract = crawlers.NewExtractor(c.domain)
	c.reveal = crawlers.NewRevealer(sess.Page())

	// 预置页面与目标URL都以深度0入队,目标URL在前
	c.session.Frontier.Seed(append([]string{c.targetURL}, c.config.PriorityPages...))

	c.runFrontier()

	// 打包截图目录
	archivePath := filepath.Join(c.outputDir, c.domain, c.config.ArchiveName)
	count, err := utils.CreateArchive(c.screenshotsDir(), archivePath)
	if err != nil {
		utils.Warnf("打包截图失败: %v", err)
	} else {
		utils.Infof("📦 已打包 %d 张截图: %s", count, archivePath)
		c.mu.Lock()
		c.stats.ArchivedFile = archivePath
		c.mu.Unlock()
	}

	c.mu.Lock()
	c.stats.VisitedURLs = c.session.VisitedCount()
	c.stats.FailedURLs = c.session.FailedCount()
	c.stats.Duration = time.Since(startTime).Seconds()
	stats := c.stats
	c.mu.Unlock()

	// 生成爬取报告
	reporter := utils.NewReporter(c.outputDir, c.domain)
	if err := reporter.GenerateReport(
		c.session.TaskID, c.targetURL, stats,
		c.session.Artifacts(), c.session.FailedList(), c.config,
	); err != nil {
		utils.Warnf("生成报告失败: %v", err)
	}

	c.logSummary(stats)
	return nil
}

// runFrontier BFS主循环
// 出队时做已访问/已失败/超深过滤,页面间保持礼貌延迟
func (c *Crawler) runFrontier() {
	delay := time.Duration(c.config.PageDelay) * time.Second

	for {
		entry, ok := c.session.Frontier.Pop()
		if !ok {
			break
		}

		if c.session.IsVisited(entry.URL) {
			utils.Debugf("跳过已访问URL: %s", entry.URL)
			continue
		}
		if c.session.IsFailed(entry.URL) {
			utils.Debugf("跳过已失败URL: %s", entry.URL)
			continue
		}
		if entry.Depth > c.config.MaxDepth {
			utils.Debugf("跳过超深URL (深度%d): %s", entry.Depth, entry.URL)
			continue
		}

		c.crawlPage(entry.URL, entry.Depth)

		if c.session.Frontier.Len() > 0 && delay > 0 {
			time.Sleep(delay)
		}
	}
}

// crawlPage 处理单个页面
// 导航失败标记失败后返回;截图失败计入统计但不阻断链接提取
func (c *Crawler) crawlPage(pageURL string, depth int) {
	utils.Infof("🔍 处理页面 (深度%d): %s", depth, pageURL)

	c.logStage(models.PageStateNavigating, pageURL)
	navTimeout := time.Duration(c.config.NavTimeout) * time.Second
	if err := c.browser.Navigate(pageURL, navTimeout); err != nil {
		utils.Errorf("❌ %v", err)
		c.session.MarkFailed(pageURL)
		c.logStage(models.PageStateFailed, pageURL)
		return
	}
	c.session.MarkVisited(pageURL)

	c.logStage(models.PageStateRevealing, pageURL)
	reveal := c.reveal.RevealAll()
	utils.Debugf("悬停展开: 成功%d, 跳过%d", reveal.Hovered, reveal.Skipped)

	c.logStage(models.PageStateDetecting, pageURL)
	render := c.detector.WaitComplete()
	utils.Debugf("渲染检测: DOM=%v 脚本=%v 图片=%v(%.2f) 网络=%v",
		render.DOMReady, render.ScriptIdle, render.ImagesSettled,
		render.ImageRatio, render.NetworkIdle)

	c.logStage(models.PageStateCapturing, pageURL)
	artifact, err := c.chain.Capture(pageURL)
	if err != nil {
		// 三层全部失败: 记录后继续遍历,页面仍算已访问
		utils.Errorf("❌ 截图失败 [%s]: %v", pageURL, err)
		c.mu.Lock()
		c.stats.CaptureMiss++
		c.mu.Unlock()
	} else if err := c.saveArtifact(artifact); err != nil {
		utils.Errorf("❌ 保存截图失败 [%s]: %v", pageURL, err)
	}

	// 已到最大深度的页面不再提取链接
	if depth >= c.config.MaxDepth {
		c.logStage(models.PageStateDone, pageURL)
		return
	}

	c.logStage(models.PageStateExtracting, pageURL)
	html, err := c.browser.HTML()
	if err != nil {
		utils.Warnf("读取页面HTML失败 [%s]: %v", pageURL, err)
		c.logStage(models.PageStateDone, pageURL)
		return
	}

	outcome, err := c.extract.Extract(html, pageURL)
	if err != nil {
		utils.Warnf("链接提取失败 [%s]: %v", pageURL, err)
		c.logStage(models.PageStateDone, pageURL)
		return
	}
	if outcome.GroupErrors > 0 {
		utils.Debugf("有%d个选择器组执行失败", outcome.GroupErrors)
	}

	enqueued := 0
	for _, link := range outcome.Links {
		if c.session.IsVisited(link) || c.session.IsFailed(link) {
			continue
		}
		if err := c.session.Frontier.Push(link, depth+1); err == nil {
			enqueued++
		}
	}
	utils.Infof("📋 发现 %d 个链接, 入队 %d 个", len(outcome.Links), enqueued)

	c.logStage(models.PageStateDone, pageURL)
}

// saveArtifact 截图落盘并登记统计
// 文件名由URL确定性派生,重复抓取按文件名覆盖
func (c *Crawler) saveArtifact(artifact *models.Artifact) error {
	path := filepath.Join(c.screenshotsDir(), artifact.Filename)
	if err := os.WriteFile(path, artifact.Data, 0644); err != nil {
		return fmt.Errorf("写入截图文件失败: %w", err)
	}
	utils.Infof("✅ 截图已保存 (策略%d, %.1fKB): %s",
		artifact.Tier, float64(artifact.Size)/1024, artifact.Filename)

	c.mu.Lock()
	c.stats.Artifacts++
	c.stats.TotalSize += artifact.Size
	switch artifact.Tier {
	case 1:
		c.stats.Tier1Count++
	case 2:
		c.stats.Tier2Count++
	case 3:
		c.stats.Tier3Count++
	}
	c.mu.Unlock()

	c.session.AddArtifact(models.ArtifactInfo{
		URL:        artifact.SourceURL,
		Filename:   artifact.Filename,
		Size:       artifact.Size,
		Tier:       artifact.Tier,
		CapturedAt: artifact.CapturedAt,
	})
	return nil
}

// setupOutputDirectories 创建输出目录结构
func (c *Crawler) setupOutputDirectories() error {
	dirs := []string{
		c.screenshotsDir(),
		filepath.Join(c.outputDir, c.domain, "reports"),
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("创建目录失败 [%s]: %w", dir, err)
		}
		utils.Debugf("创建目录: %s", dir)
	}
	return nil
}

// screenshotsDir 截图输出目录: output/domain/screenshots
func (c *Crawler) screenshotsDir() string {
	return filepath.Join(c.outputDir, c.domain, "screenshots")
}

// logStage 页面状态机转移日志
func (c *Crawler) logStage(stage models.PageState, pageURL string) {
	utils.Debugf("[%s] %s", stage, pageURL)
}

// logSummary 打印最终汇总
func (c *Crawler) logSummary(stats models.CrawlStats) {
	utils.Infof("✅ 截图任务完成")
	utils.Infof("访问页面: %d, 失败: %d", stats.VisitedURLs, stats.FailedURLs)
	utils.Infof("产出截图: %d (原生%d/分块%d/兜底%d, 全失败%d)",
		stats.Artifacts, stats.Tier1Count, stats.Tier2Count,
		stats.Tier3Count, stats.CaptureMiss)
	utils.Infof("截图总大小: %.1fKB", float64(stats.TotalSize)/1024)
	utils.Infof("总耗时: %.2f秒", stats.Duration)

	failed := c.session.FailedList()
	if len(failed) > 0 {
		utils.Warnf("以下URL导航失败:")
		for i, u := range failed {
			utils.Warnf("  %d. %s", i+1, u)
		}
	}
}

// GetStats 返回统计信息快照
func (c *Crawler) GetStats() models.CrawlStats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stats
}

// IsFatal 判断错误是否终止整次运行
func IsFatal(err error) bool {
	return errors.Is(err, browser.ErrSessionInit)
}
