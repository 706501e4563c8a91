package models

import (
	"time"
)

// FrontierEntry 待爬队列条目
// 入队时记录深度,保证BFS层序
type FrontierEntry struct {
	URL   string `json:"url"`   // 绝对URL
	Depth int    `json:"depth"` // 发现深度
}

// PageState 单页处理状态机状态
type PageState string

const (
	PageStateQueued     PageState = "queued"     // 已入队
	PageStateNavigating PageState = "navigating" // 导航中
	PageStateRevealing  PageState = "revealing"  // 触发悬停/下拉展开
	PageStateDetecting  PageState = "detecting"  // 等待渲染完成
	PageStateCapturing  PageState = "capturing"  // 截图中
	PageStateExtracting PageState = "extracting" // 提取链接
	PageStateDone       PageState = "done"       // 处理完成
	PageStateFailed     PageState = "failed"     // 处理失败
)

// RenderState 渲染完成度检测的阶段记录
// 每个页面导航后创建,截图完成后丢弃
type RenderState struct {
	DOMReady      bool    `json:"dom_ready"`      // document.readyState已complete
	ScriptIdle    bool    `json:"script_idle"`    // 旧式异步库(jQuery)无在途请求
	ImagesSettled bool    `json:"images_settled"` // 图片完成比例达到阈值
	ImageRatio    float64 `json:"image_ratio"`    // 最后一次观测到的完成比例
	LazyTriggered bool    `json:"lazy_triggered"` // 懒加载扫描已执行
	NetworkIdle   bool    `json:"network_idle"`   // 网络静默窗口达成
	ForceLoaded   bool    `json:"force_loaded"`   // 强制加载扫描已执行
	Settled       bool    `json:"settled"`        // 最终安定等待已执行
}

// Artifact 单页截图产物
type Artifact struct {
	ID         string    `json:"id"`          // 唯一标识
	Filename   string    `json:"filename"`    // 由URL路径确定性派生
	SourceURL  string    `json:"source_url"`  // 来源页面URL
	Data       []byte    `json:"-"`           // PNG字节
	Size       int64     `json:"size"`        // 字节数
	Tier       int       `json:"tier"`        // 产出该截图的策略层级(1/2/3)
	CapturedAt time.Time `json:"captured_at"` // 截图时间
}

// RevealOutcome 悬停展开阶段的逐元素结果汇总
// 失败不中断流程,但计数保持可观测
type RevealOutcome struct {
	Hovered int `json:"hovered"` // 成功悬停的元素数
	Skipped int `json:"skipped"` // 因过期/不可见等原因跳过的元素数
}

// ExtractOutcome 链接提取结果
// 各选择器组并集去重;单组失败被记录而非抛出
type ExtractOutcome struct {
	Links       []string `json:"links"`        // 去重后的域内绝对URL集合
	GroupErrors int      `json:"group_errors"` // 执行失败的选择器组数
}

// CrawlStats 爬取统计
type CrawlStats struct {
	VisitedURLs  int     `json:"visited_urls"`  // 成功访问的URL数
	FailedURLs   int     `json:"failed_urls"`   // 导航失败的URL数
	Artifacts    int     `json:"artifacts"`     // 产出截图数
	Tier1Count   int     `json:"tier1_count"`   // 原生全页截图次数
	Tier2Count   int     `json:"tier2_count"`   // 分块拼接截图次数
	Tier3Count   int     `json:"tier3_count"`   // 兜底截图次数
	CaptureMiss  int     `json:"capture_miss"`  // 三层全部失败的页面数
	TotalSize    int64   `json:"total_size"`    // 截图总大小(字节)
	Duration     float64 `json:"duration"`      // 总耗时(秒)
	ArchivedFile string  `json:"archived_file"` // 最终压缩包路径
}

// ArtifactInfo 报告中的截图条目
type ArtifactInfo struct {
	URL        string    `json:"url"`
	Filename   string    `json:"filename"`
	Size       int64     `json:"size"`
	Tier       int       `json:"tier"`
	CapturedAt time.Time `json:"captured_at"`
}

// FailedURLInfo 报告中的失败URL条目
type FailedURLInfo struct {
	URL       string `json:"url"`
	ErrorType string `json:"error_type"`
	ErrorMsg  string `json:"error_msg"`
}

// CrawlReport 爬取报告
type CrawlReport struct {
	TaskID     string          `json:"task_id"`
	TargetURL  string          `json:"target_url"`
	Domain     string          `json:"domain"`
	StartTime  time.Time       `json:"start_time"`
	EndTime    time.Time       `json:"end_time"`
	Duration   float64         `json:"duration"`
	Stats      CrawlStats      `json:"stats"`
	Artifacts  []ArtifactInfo  `json:"artifacts"`
	FailedURLs []FailedURLInfo `json:"failed_urls"`
	OutputDir  string          `json:"output_dir"`
	Archive    string          `json:"archive"`
	Config     CrawlConfig     `json:"config"`
}
