package crawlers

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"
	"time"

	"github.com/ysmood/gson"
)

// fakeSurface 截图表面测试替身,各操作可独立注入失败
type fakeSurface struct {
	contentW, contentH float64
	contentErr         error
	clipErr            error
	viewportErr        error
	setViewportErr     error
	pageHeight         int

	clipCalls     int
	viewportCalls int
	setCalls      int
}

func (f *fakeSurface) Eval(js string) (gson.JSON, error) {
	if js == jsPageHeight {
		return gson.New(f.pageHeight), nil
	}
	return gson.New(nil), nil
}

func (f *fakeSurface) ContentSize() (float64, float64, error) {
	if f.contentErr != nil {
		return 0, 0, f.contentErr
	}
	return f.contentW, f.contentH, nil
}

func (f *fakeSurface) CaptureClip(x, y, w, h float64) ([]byte, error) {
	f.clipCalls++
	if f.clipErr != nil {
		return nil, f.clipErr
	}
	return encodeSolidPNG(int(w), int(h), color.RGBA{R: 200, A: 255})
}

func (f *fakeSurface) CaptureViewport() ([]byte, error) {
	f.viewportCalls++
	if f.viewportErr != nil {
		return nil, f.viewportErr
	}
	return encodeSolidPNG(100, 50, color.RGBA{G: 200, A: 255})
}

func (f *fakeSurface) SetViewport(w, h int) error {
	f.setCalls++
	return f.setViewportErr
}

func encodeSolidPNG(w, h int, c color.Color) ([]byte, error) {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// testCaptureConfig 小尺寸快速配置,所有等待归零
func testCaptureConfig() CaptureConfig {
	return CaptureConfig{
		ViewportWidth:  100,
		ViewportHeight: 50,
		TileOverlap:    10,
		MaxHeight:      200,
	}
}

func newTestChain(surface *fakeSurface) *CaptureChain {
	chain := NewCaptureChain(surface, nil, testCaptureConfig())
	chain.sleep = func(d time.Duration) {}
	return chain
}

// TestCaptureTier1Success 测试层1成功时层2/层3不被调用
func TestCaptureTier1Success(t *testing.T) {
	surface := &fakeSurface{contentW: 100, contentH: 120, pageHeight: 120}
	chain := newTestChain(surface)

	artifact, err := chain.Capture("https://example.com/about")
	if err != nil {
		t.Fatalf("截图失败: %v", err)
	}

	if artifact.Tier != 1 {
		t.Errorf("应使用层1, 实际=%d", artifact.Tier)
	}
	if surface.clipCalls != 1 {
		t.Errorf("层1应恰好截取一次, 实际=%d", surface.clipCalls)
	}
	if surface.viewportCalls != 0 || surface.setCalls != 0 {
		t.Error("层1成功后不应触碰层2/层3")
	}
	if artifact.Filename != "about.png" {
		t.Errorf("文件名错误: %s", artifact.Filename)
	}
	if artifact.SourceURL != "https://example.com/about" {
		t.Errorf("来源URL错误: %s", artifact.SourceURL)
	}
	if artifact.Size != int64(len(artifact.Data)) || artifact.Size == 0 {
		t.Error("产物字节数与数据长度不一致")
	}
	if artifact.ID == "" {
		t.Error("产物应有唯一标识")
	}
}

// TestCaptureTier2Fallback 测试层1失败后层2接管
func TestCaptureTier2Fallback(t *testing.T) {
	surface := &fakeSurface{
		contentErr: errors.New("布局度量不可用"),
		pageHeight: 120,
	}
	chain := newTestChain(surface)

	artifact, err := chain.Capture("https://example.com/")
	if err != nil {
		t.Fatalf("截图失败: %v", err)
	}

	if artifact.Tier != 2 {
		t.Errorf("应降级到层2, 实际=%d", artifact.Tier)
	}
	// 高度120步长40(50-10): 滚动偏移 0/40/80 共3块
	if surface.viewportCalls != 3 {
		t.Errorf("应采集3个分块, 实际=%d", surface.viewportCalls)
	}

	// 拼接结果应是总高度的整页画布
	img, err := png.Decode(bytes.NewReader(artifact.Data))
	if err != nil {
		t.Fatalf("解码拼接结果失败: %v", err)
	}
	if img.Bounds().Dy() != 120 || img.Bounds().Dx() != 100 {
		t.Errorf("画布尺寸错误: %v", img.Bounds())
	}
}

// TestCaptureTier3LastResort 测试层1/层2均失败后层3兜底产出
func TestCaptureTier3LastResort(t *testing.T) {
	surface := &fakeSurface{
		contentErr: errors.New("布局度量不可用"),
		pageHeight: 120,
	}
	chain := newTestChain(surface)

	// 层2在SetViewport即失败;层3也要调SetViewport,第二次放行
	calls := 0
	chain.surface = &flakySurface{inner: surface, failSetUntil: 1, counter: &calls}

	artifact, err := chain.Capture("https://example.com/pricing/plans")
	if err != nil {
		t.Fatalf("截图失败: %v", err)
	}

	if artifact.Tier != 3 {
		t.Errorf("应兜底到层3, 实际=%d", artifact.Tier)
	}
	if artifact.Filename != "pricing_plans.png" {
		t.Errorf("文件名错误: %s", artifact.Filename)
	}
}

// flakySurface 包装表面,使前failSetUntil次SetViewport失败
type flakySurface struct {
	inner        *fakeSurface
	failSetUntil int
	counter      *int
}

func (f *flakySurface) Eval(js string) (gson.JSON, error) { return f.inner.Eval(js) }
func (f *flakySurface) ContentSize() (float64, float64, error) {
	return f.inner.ContentSize()
}
func (f *flakySurface) CaptureClip(x, y, w, h float64) ([]byte, error) {
	return f.inner.CaptureClip(x, y, w, h)
}
func (f *flakySurface) CaptureViewport() ([]byte, error) { return f.inner.CaptureViewport() }
func (f *flakySurface) SetViewport(w, h int) error {
	*f.counter++
	if *f.counter <= f.failSetUntil {
		return errors.New("视口调整失败")
	}
	return f.inner.SetViewport(w, h)
}

// TestCaptureAllTiersFail 测试三层全部失败返回哨兵错误
func TestCaptureAllTiersFail(t *testing.T) {
	surface := &fakeSurface{
		contentErr:  errors.New("布局度量不可用"),
		viewportErr: errors.New("截图指令失败"),
		pageHeight:  120,
	}
	chain := newTestChain(surface)

	_, err := chain.Capture("https://example.com/")
	if !errors.Is(err, ErrAllTiersFailed) {
		t.Errorf("应返回ErrAllTiersFailed, 实际=%v", err)
	}
}

// TestCaptureBoundedHeightClamp 测试层3的高度钳制与高度读取失败回退
func TestCaptureBoundedHeightClamp(t *testing.T) {
	tests := []struct {
		name       string
		pageHeight int
		wantHeight int
	}{
		{"超限高度钳制到上限", 5000, 200},
		{"正常高度原样使用", 150, 150},
		{"高度无效回退单视口", 0, 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			surface := &recordingSurface{pageHeight: tt.pageHeight}
			chain := NewCaptureChain(surface, nil, testCaptureConfig())
			chain.sleep = func(d time.Duration) {}

			if _, err := chain.captureBounded(); err != nil {
				t.Fatalf("兜底截图失败: %v", err)
			}
			if surface.lastViewportH != tt.wantHeight {
				t.Errorf("兜底视口高度错误: 期望%d, 实际%d", tt.wantHeight, surface.lastViewportH)
			}
		})
	}
}

// recordingSurface 记录最后一次视口设置的表面替身
type recordingSurface struct {
	pageHeight    int
	lastViewportH int
}

func (r *recordingSurface) Eval(js string) (gson.JSON, error) {
	return gson.New(r.pageHeight), nil
}
func (r *recordingSurface) ContentSize() (float64, float64, error) {
	return 0, 0, errors.New("不可用")
}
func (r *recordingSurface) CaptureClip(x, y, w, h float64) ([]byte, error) {
	return nil, errors.New("不可用")
}
func (r *recordingSurface) CaptureViewport() ([]byte, error) {
	return encodeSolidPNG(10, 10, color.White)
}
func (r *recordingSurface) SetViewport(w, h int) error {
	r.lastViewportH = h
	return nil
}

// TestStitchTilesClamping 测试末块粘贴位置向上钳制不越界
func TestStitchTilesClamping(t *testing.T) {
	tileA, _ := decodeSolid(100, 50, color.RGBA{R: 255, A: 255})
	tileB, _ := decodeSolid(100, 50, color.RGBA{B: 255, A: 255})

	// 总高80: 末块偏移40+高50=90越界,应钳到30
	data, err := stitchTiles([]captureTile{
		{Image: tileA, OffsetY: 0},
		{Image: tileB, OffsetY: 40},
	}, 100, 80)
	if err != nil {
		t.Fatalf("拼接失败: %v", err)
	}

	canvas, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("解码画布失败: %v", err)
	}
	if canvas.Bounds().Dy() != 80 {
		t.Fatalf("画布高度错误: %d", canvas.Bounds().Dy())
	}

	// 底边像素来自末块(蓝),顶部像素来自首块(红)
	_, _, bBottom, _ := canvas.At(50, 79).RGBA()
	if bBottom == 0 {
		t.Error("画布底边应被末块覆盖")
	}
	rTop, _, _, _ := canvas.At(50, 0).RGBA()
	if rTop == 0 {
		t.Error("画布顶边应保留首块内容")
	}
}

func decodeSolid(w, h int, c color.Color) (image.Image, error) {
	data, err := encodeSolidPNG(w, h, c)
	if err != nil {
		return nil, err
	}
	return png.Decode(bytes.NewReader(data))
}

// TestDeriveFilename 测试URL到文件名的确定性派生
func TestDeriveFilename(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want string
	}{
		{"根路径", "https://example.com/", "homepage.png"},
		{"空路径", "https://example.com", "homepage.png"},
		{"单级路径", "https://example.com/about", "about.png"},
		{"多级路径", "https://example.com/about/team/", "about_team.png"},
		{"查询串被忽略", "https://example.com/search?q=go", "search.png"},
		{"特殊字符替换", "https://example.com/a b&c", "a_b_c.png"},
		{"中文路径", "https://example.com/关于", "__.png"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DeriveFilename(tt.url); got != tt.want {
				t.Errorf("DeriveFilename(%q) = %q, 期望 %q", tt.url, got, tt.want)
			}
		})
	}

	// 确定性: 同一URL重复派生结果恒定
	a := DeriveFilename("https://example.com/pricing")
	b := DeriveFilename("https://example.com/pricing")
	if a != b {
		t.Errorf("派生应确定: %s != %s", a, b)
	}
}
