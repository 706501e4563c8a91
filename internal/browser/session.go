// Package browser 封装单页面浏览器会话的生命周期
// 启动、连接、导航与关闭集中在这里,上层只面对一个已配置好的页面
package browser

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/RecoveryAshes/sitesnap/internal/models"
	"github.com/RecoveryAshes/sitesnap/internal/utils"
)

// ErrSessionInit 浏览器会话初始化失败
// 这是致命错误: 没有可用的渲染表面,整次运行无法继续
var ErrSessionInit = errors.New("浏览器会话初始化失败")

// Session 单页面浏览器会话
// 整次运行复用同一个页面对象,逐个URL串行导航
type Session struct {
	browser *rod.Browser
	page    *rod.Page
	closed  bool
}

// NewSession 启动浏览器并装配好页面
// 视口与UA在会话级设置一次,后续导航全部继承
func NewSession(cfg models.CrawlConfig) (*Session, error) {
	l := launcher.New()

	if cfg.Headless {
		l = l.Headless(true)
	} else {
		l = l.Headless(false)
	}

	// 容器与CI环境下的稳定运行参数
	l = l.Set("no-sandbox").
		Set("disable-gpu").
		Set("disable-dev-shm-usage").
		Set("disable-extensions").
		Set("disable-background-timer-throttling").
		Set("disable-blink-features", "AutomationControlled")

	// 允许访问自签名、过期或主机名不匹配的HTTPS站点
	l = l.Set("ignore-certificate-errors")
	l = l.Set("window-size", fmt.Sprintf("%d,%d", cfg.ViewportWidth, cfg.ViewportHeight))

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("%w: 启动浏览器: %v", ErrSessionInit, err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("%w: 连接浏览器: %v", ErrSessionInit, err)
	}
	utils.Debugf("浏览器已启动: %s", controlURL)

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		browser.MustClose()
		return nil, fmt.Errorf("%w: 创建页面: %v", ErrSessionInit, err)
	}

	if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
		UserAgent: cfg.UserAgent,
	}); err != nil {
		browser.MustClose()
		return nil, fmt.Errorf("%w: 设置UserAgent: %v", ErrSessionInit, err)
	}

	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             cfg.ViewportWidth,
		Height:            cfg.ViewportHeight,
		DeviceScaleFactor: 1,
		Mobile:            false,
	}); err != nil {
		browser.MustClose()
		return nil, fmt.Errorf("%w: 设置视口: %v", ErrSessionInit, err)
	}

	return &Session{browser: browser, page: page}, nil
}

// Page 返回会话的页面对象
func (s *Session) Page() *rod.Page {
	return s.page
}

// Navigate 导航到URL并等待load事件,整体受超时约束
// 导航失败是页面级错误,由调用方标记失败后继续下一个URL
func (s *Session) Navigate(pageURL string, timeout time.Duration) error {
	p := s.page.Timeout(timeout)

	if err := p.Navigate(pageURL); err != nil {
		return fmt.Errorf("导航失败 [%s]: %w", pageURL, err)
	}
	if err := p.WaitLoad(); err != nil {
		return fmt.Errorf("等待load事件失败 [%s]: %w", pageURL, err)
	}
	return nil
}

// HTML 返回当前页面渲染后的完整标记
func (s *Session) HTML() (string, error) {
	html, err := s.page.HTML()
	if err != nil {
		return "", fmt.Errorf("读取页面HTML失败: %w", err)
	}
	return html, nil
}

// Close 关闭浏览器,可重复调用
func (s *Session) Close() {
	if s.closed {
		return
	}
	s.closed = true

	if s.browser != nil {
		s.browser.MustClose()
		utils.Debugf("浏览器已关闭")
	}
}
