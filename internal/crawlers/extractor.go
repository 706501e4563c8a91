package crawlers

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/RecoveryAshes/sitesnap/internal/models"
	"github.com/RecoveryAshes/sitesnap/internal/utils"
	"golang.org/x/net/html"
)

// 导航区域选择器组
var NavigationSelectors = []string{
	"nav a",
	".nav a",
	".navigation a",
	".menu a",
	".header a",
	`[role="navigation"] a`,
	".navbar a",
	".main-nav a",
	".primary-nav a",
}

// 下拉/子菜单选择器组
var DropdownSelectors = []string{
	".dropdown-menu a",
	".sub-menu a",
	".submenu a",
	".mega-menu a",
	".dropdown a",
	".nav-dropdown a",
}

// 主内容区域选择器组
var ContentSelectors = []string{
	".main a",
	".content a",
	".hero a",
	".cta a",
	"main a",
}

// 非页面资源扩展名,这类链接不进入待爬队列
var skipExtensions = []string{
	".pdf", ".jpg", ".jpeg", ".png", ".gif", ".svg", ".webp", ".ico", ".css", ".js",
}

// InScope 站内可爬页面判定
// 规则: 主机为目标站点或其www别名; 协议http/https(排除mailto/tel);
// 不含片段标记; 路径不以非页面资源扩展名结尾
// 返回: (是否可爬, 拒绝原因)
func InScope(rawURL string, targetHost string) (bool, string) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false, "URL格式无效"
	}

	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return false, "不支持的协议"
	}

	if strings.Contains(rawURL, "#") {
		return false, "包含片段标记"
	}

	if !sameSite(parsed.Host, targetHost) {
		return false, "站外链接"
	}

	lowerPath := strings.ToLower(parsed.Path)
	for _, ext := range skipExtensions {
		if strings.HasSuffix(lowerPath, ext) {
			return false, "非页面资源"
		}
	}

	return true, ""
}

// sameSite 主机归一化比较,www前缀视为同站
func sameSite(host string, targetHost string) bool {
	normalize := func(h string) string {
		return strings.TrimPrefix(strings.ToLower(h), "www.")
	}
	return normalize(host) == normalize(targetHost)
}

// Extractor 链接提取器
// 职责: 对渲染后的页面标记执行固定的选择器组,解析出去重后的站内绝对URL集合
type Extractor struct {
	targetHost string
}

// NewExtractor 创建链接提取器
func NewExtractor(targetHost string) *Extractor {
	return &Extractor{targetHost: targetHost}
}

// Extract 从渲染后的HTML中提取站内链接
// 选择器组取并集不分优先级;单组执行失败被计数,剩余组照常评估
func (e *Extractor) Extract(htmlContent string, baseURL string) (*models.ExtractOutcome, error) {
	root, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return nil, fmt.Errorf("解析HTML失败: %w", err)
	}

	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("解析baseURL失败: %w", err)
	}

	doc := goquery.NewDocumentFromNode(root)
	outcome := &models.ExtractOutcome{Links: make([]string, 0)}
	seen := make(map[string]bool)

	groups := [][]string{NavigationSelectors, DropdownSelectors, ContentSelectors}
	for _, group := range groups {
		for _, selector := range group {
			if err := e.extractGroup(doc, base, selector, seen, outcome); err != nil {
				// 单个选择器组失败不中断提取,计数保持可观测
				outcome.GroupErrors++
				utils.Debugf("选择器组执行失败 [%s]: %v", selector, err)
			}
		}
	}

	return outcome, nil
}

// extractGroup 执行单个选择器,收集合法链接
// goquery对非法选择器会panic,这里转换为error
func (e *Extractor) extractGroup(
	doc *goquery.Document,
	base *url.URL,
	selector string,
	seen map[string]bool,
	outcome *models.ExtractOutcome,
) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("选择器执行panic: %v", r)
		}
	}()

	doc.Find(selector).Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok || href == "" {
			return
		}

		linkURL, err := url.Parse(href)
		if err != nil {
			return
		}

		// 相对链接解析为绝对形式
		absolute := base.ResolveReference(linkURL).String()

		if ok, _ := InScope(absolute, e.targetHost); !ok {
			return
		}

		if !seen[absolute] {
			seen[absolute] = true
			outcome.Links = append(outcome.Links, absolute)
		}
	})

	return nil
}
