package crawlers

import (
	"fmt"
	"sort"
	"sync"

	"github.com/RecoveryAshes/sitesnap/internal/models"
	"github.com/RecoveryAshes/sitesnap/internal/utils"
)

// Frontier 待爬URL队列
// 严格FIFO保证BFS层序;入队仅做范围过滤,不做排重 —
// 已访问/超深的排重由协调器在出队时完成,同一URL在首次处理前可能多次入队
type Frontier struct {
	mu         sync.Mutex
	entries    []models.FrontierEntry
	targetHost string
}

// NewFrontier 创建待爬队列
func NewFrontier(targetHost string) *Frontier {
	return &Frontier{
		entries:    make([]models.FrontierEntry, 0, 64),
		targetHost: targetHost,
	}
}

// Push 添加URL到队尾
// 仅做域名/协议/扩展名/片段过滤,深度与重复检查在出队侧
func (f *Frontier) Push(urlStr string, depth int) error {
	if ok, reason := InScope(urlStr, f.targetHost); !ok {
		return fmt.Errorf("链接被过滤: %s (%s)", reason, urlStr)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, models.FrontierEntry{URL: urlStr, Depth: depth})
	return nil
}

// Seed 预置高价值页面,全部以深度0入队
// 在常规发现开始前调用,保证优先内容即使不被首页链接到也会被截图
func (f *Frontier) Seed(urls []string) {
	for _, u := range urls {
		if err := f.Push(u, 0); err != nil {
			utils.Warnf("预置页面被过滤: %v", err)
		}
	}
}

// Pop 按FIFO取出下一个条目
func (f *Frontier) Pop() (models.FrontierEntry, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.entries) == 0 {
		return models.FrontierEntry{}, false
	}
	entry := f.entries[0]
	f.entries = f.entries[1:]
	return entry, true
}

// Len 返回当前待处理条目数
func (f *Frontier) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.entries)
}

// CrawlSession 单次爬取运行的聚合状态
// 显式传递给各阶段而非散落在隐式成员里,保证所有权和测试装配清晰;
// 一个URL至多属于 {未访问, 已访问, 已失败} 之一
type CrawlSession struct {
	TaskID   string
	Frontier *Frontier

	mu        sync.RWMutex
	visited   map[string]bool
	failed    map[string]bool
	artifacts []models.ArtifactInfo
}

// NewCrawlSession 创建运行级状态
func NewCrawlSession(taskID string, targetHost string) *CrawlSession {
	return &CrawlSession{
		TaskID:   taskID,
		Frontier: NewFrontier(targetHost),
		visited:  make(map[string]bool),
		failed:   make(map[string]bool),
	}
}

// MarkVisited 标记URL访问成功
func (s *CrawlSession) MarkVisited(urlStr string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.visited[urlStr] = true
}

// IsVisited 检查URL是否已访问
func (s *CrawlSession) IsVisited(urlStr string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.visited[urlStr]
}

// MarkFailed 标记URL导航失败
func (s *CrawlSession) MarkFailed(urlStr string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failed[urlStr] = true
}

// IsFailed 检查URL是否已失败
func (s *CrawlSession) IsFailed(urlStr string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.failed[urlStr]
}

// VisitedCount 已访问URL数
func (s *CrawlSession) VisitedCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.visited)
}

// FailedCount 失败URL数
func (s *CrawlSession) FailedCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.failed)
}

// FailedList 返回排序后的失败URL列表(用于最终汇总)
func (s *CrawlSession) FailedList() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make([]string, 0, len(s.failed))
	for u := range s.failed {
		list = append(list, u)
	}
	sort.Strings(list)
	return list
}

// AddArtifact 记录截图产物条目
func (s *CrawlSession) AddArtifact(info models.ArtifactInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.artifacts = append(s.artifacts, info)
}

// Artifacts 返回截图产物清单
func (s *CrawlSession) Artifacts() []models.ArtifactInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make([]models.ArtifactInfo, len(s.artifacts))
	copy(list, s.artifacts)
	return list
}
