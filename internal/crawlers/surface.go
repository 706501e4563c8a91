package crawlers

import (
	"fmt"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/ysmood/gson"
)

// ScriptRunner 浏览器脚本执行表面
// 渲染完成度的所有启发式判断都通过它下发JS谓词,可用假实现单独测试
type ScriptRunner interface {
	// Eval 执行箭头函数形式的JS片段并返回结果
	Eval(js string) (gson.JSON, error)
}

// CaptureSurface 截图控制表面
// 截图策略链依赖的浏览器能力集合
type CaptureSurface interface {
	ScriptRunner

	// ContentSize 返回页面内容的完整尺寸(CSS像素)
	ContentSize() (width float64, height float64, err error)

	// CaptureClip 按指定裁剪区域截取(允许超出视口)
	CaptureClip(x, y, width, height float64) ([]byte, error)

	// CaptureViewport 截取当前视口
	CaptureViewport() ([]byte, error)

	// SetViewport 调整视口尺寸
	SetViewport(width, height int) error
}

// RodSurface 基于go-rod标签页的表面实现
type RodSurface struct {
	page *rod.Page
}

// NewRodSurface 包装rod标签页为截图/脚本表面
func NewRodSurface(page *rod.Page) *RodSurface {
	return &RodSurface{page: page}
}

// Eval 执行JS片段
func (s *RodSurface) Eval(js string) (gson.JSON, error) {
	result, err := s.page.Evaluate(&rod.EvalOptions{JS: js})
	if err != nil {
		return gson.New(nil), err
	}
	return result.Value, nil
}

// ContentSize 通过布局指标获取内容完整尺寸
func (s *RodSurface) ContentSize() (float64, float64, error) {
	metrics, err := proto.PageGetLayoutMetrics{}.Call(s.page)
	if err != nil {
		return 0, 0, err
	}
	size := metrics.CSSContentSize
	if size == nil {
		return 0, 0, fmt.Errorf("布局指标缺少内容尺寸")
	}
	return size.Width, size.Height, nil
}

// CaptureClip 按裁剪区域截取全页(超出视口部分一并渲染)
func (s *RodSurface) CaptureClip(x, y, width, height float64) ([]byte, error) {
	shot, err := proto.PageCaptureScreenshot{
		Format:                proto.PageCaptureScreenshotFormatPng,
		CaptureBeyondViewport: true,
		Clip: &proto.PageViewport{
			X:      x,
			Y:      y,
			Width:  width,
			Height: height,
			Scale:  1,
		},
	}.Call(s.page)
	if err != nil {
		return nil, err
	}
	return shot.Data, nil
}

// CaptureViewport 截取当前视口
func (s *RodSurface) CaptureViewport() ([]byte, error) {
	return s.page.Screenshot(false, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
}

// SetViewport 调整视口尺寸
func (s *RodSurface) SetViewport(width, height int) error {
	return s.page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             width,
		Height:            height,
		DeviceScaleFactor: 1,
		Mobile:            false,
	})
}
