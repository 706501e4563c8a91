package crawlers

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/RecoveryAshes/sitesnap/internal/models"
	"github.com/RecoveryAshes/sitesnap/internal/utils"
	"github.com/google/uuid"
)

// ErrAllTiersFailed 三层截图策略全部失败
var ErrAllTiersFailed = errors.New("所有截图策略均失败")

// 安全文件名字母表之外的字符统一替换为下划线
var unsafeFilenameChars = regexp.MustCompile(`[^\w\-.]`)

// CaptureConfig 截图策略配置
type CaptureConfig struct {
	ViewportWidth  int           // 分块截图的固定视口宽度 (默认:1920)
	ViewportHeight int           // 分块截图的固定视口高度 (默认:1080)
	TileOverlap    int           // 分块重叠像素,吸收滚动边界的亚像素误差 (默认:100)
	MaxHeight      int           // 兜底截图的高度上限 (默认:20000)
	ResizePause    time.Duration // 调整视口后的等待 (默认:3s)
	TilePause      time.Duration // 每次滚动后的渲染等待 (默认:4s)
	BoundedPause   time.Duration // 兜底大视口调整后的等待 (默认:6s)
}

// DefaultCaptureConfig 默认截图配置
func DefaultCaptureConfig() CaptureConfig {
	return CaptureConfig{
		ViewportWidth:  1920,
		ViewportHeight: 1080,
		TileOverlap:    100,
		MaxHeight:      20000,
		ResizePause:    3 * time.Second,
		TilePause:      4 * time.Second,
		BoundedPause:   6 * time.Second,
	}
}

// CaptureChain 全页截图策略链
// 按层级顺序尝试,首个成功即停,单层内不重试:
//
//	层1 原生全页: 按内容完整矩形裁剪一次性截取,像素精确且最快
//	层2 分块拼接: 固定视口逐屏滚动截取,按滚动偏移拼接到整页画布
//	层3 有界兜底: 高度钳制后放大视口直接截取,牺牲完整性保证产出
type CaptureChain struct {
	surface CaptureSurface
	guard   *ResourceGuard
	config  CaptureConfig
	sleep   func(time.Duration)
}

// NewCaptureChain 创建截图策略链
func NewCaptureChain(surface CaptureSurface, guard *ResourceGuard, config CaptureConfig) *CaptureChain {
	return &CaptureChain{
		surface: surface,
		guard:   guard,
		config:  config,
		sleep:   time.Sleep,
	}
}

// Capture 产出单页截图产物
// 任一层成功即返回;全部失败返回ErrAllTiersFailed
func (c *CaptureChain) Capture(sourceURL string) (*models.Artifact, error) {
	tiers := []struct {
		tier int
		fn   func() ([]byte, error)
	}{
		{1, c.captureNative},
		{2, c.captureTiled},
		{3, c.captureBounded},
	}

	for _, t := range tiers {
		data, err := t.fn()
		if err != nil {
			utils.Warnf("截图策略%d失败 [%s]: %v", t.tier, sourceURL, err)
			continue
		}

		return &models.Artifact{
			ID:         uuid.New().String(),
			Filename:   DeriveFilename(sourceURL),
			SourceURL:  sourceURL,
			Data:       data,
			Size:       int64(len(data)),
			Tier:       t.tier,
			CapturedAt: time.Now(),
		}, nil
	}

	return nil, ErrAllTiersFailed
}

// captureNative 层1: 查询内容尺寸后按完整矩形一次性截取
func (c *CaptureChain) captureNative() ([]byte, error) {
	width, height, err := c.surface.ContentSize()
	if err != nil {
		return nil, fmt.Errorf("获取内容尺寸失败: %w", err)
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("内容尺寸无效: %.0fx%.0f", width, height)
	}

	data, err := c.surface.CaptureClip(0, 0, width, height)
	if err != nil {
		return nil, fmt.Errorf("全页裁剪截图失败: %w", err)
	}
	return data, nil
}

// captureTiled 层2: 固定视口滚动分块,拼接到整页画布
func (c *CaptureChain) captureTiled() ([]byte, error) {
	if err := c.surface.SetViewport(c.config.ViewportWidth, c.config.ViewportHeight); err != nil {
		return nil, fmt.Errorf("固定视口失败: %w", err)
	}
	c.sleep(c.config.ResizePause)

	totalHeight, err := c.pageHeight()
	if err != nil {
		return nil, err
	}
	if totalHeight <= 0 {
		return nil, fmt.Errorf("页面高度无效: %d", totalHeight)
	}

	step := c.config.ViewportHeight - c.config.TileOverlap
	tiles := make([]captureTile, 0, totalHeight/step+1)
	canvasWidth := 0

	for y := 0; y < totalHeight; y += step {
		if _, err := c.surface.Eval(fmt.Sprintf(jsScrollTo, y)); err != nil {
			return nil, fmt.Errorf("滚动到 %d 失败: %w", y, err)
		}
		c.sleep(c.config.TilePause)

		data, err := c.surface.CaptureViewport()
		if err != nil {
			return nil, fmt.Errorf("视口截图失败 (offset=%d): %w", y, err)
		}

		img, err := png.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("解码分块失败 (offset=%d): %w", y, err)
		}

		if canvasWidth == 0 {
			canvasWidth = img.Bounds().Dx()
			// 画布内存预检,不足时让位给兜底层而不是OOM
			need := uint64(canvasWidth) * uint64(totalHeight) * 4
			if c.guard != nil && !c.guard.CanAllocate(need) {
				return nil, fmt.Errorf("可用内存不足以拼接 %dx%d 画布", canvasWidth, totalHeight)
			}
		}

		tiles = append(tiles, captureTile{Image: img, OffsetY: y})
	}

	if len(tiles) == 0 {
		return nil, fmt.Errorf("未采集到任何分块")
	}

	return stitchTiles(tiles, canvasWidth, totalHeight)
}

// captureBounded 层3: 高度钳制后放大视口直接截取
// 这一层必须产出,高度读取失败时退回单视口高度
func (c *CaptureChain) captureBounded() ([]byte, error) {
	totalHeight, err := c.pageHeight()
	if err != nil || totalHeight <= 0 {
		totalHeight = c.config.ViewportHeight
	}
	if totalHeight > c.config.MaxHeight {
		totalHeight = c.config.MaxHeight
	}

	if err := c.surface.SetViewport(c.config.ViewportWidth, totalHeight); err != nil {
		return nil, fmt.Errorf("调整兜底视口失败: %w", err)
	}
	c.sleep(c.config.BoundedPause)

	data, err := c.surface.CaptureViewport()
	if err != nil {
		return nil, fmt.Errorf("兜底截图失败: %w", err)
	}
	return data, nil
}

// pageHeight 读取文档总高度
func (c *CaptureChain) pageHeight() (int, error) {
	v, err := c.surface.Eval(jsPageHeight)
	if err != nil {
		return 0, fmt.Errorf("读取页面高度失败: %w", err)
	}
	return v.Int(), nil
}

// captureTile 带滚动偏移的单块截图
type captureTile struct {
	Image   image.Image
	OffsetY int
}

// stitchTiles 把分块按滚动偏移拼接到整页白底画布
// 粘贴位置向上钳制,保证任何分块都不越过画布底边
func stitchTiles(tiles []captureTile, width int, totalHeight int) ([]byte, error) {
	canvas := image.NewRGBA(image.Rect(0, 0, width, totalHeight))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)

	for _, tile := range tiles {
		tileHeight := tile.Image.Bounds().Dy()

		pasteY := tile.OffsetY
		if pasteY+tileHeight > totalHeight {
			pasteY = totalHeight - tileHeight
		}
		if pasteY < 0 {
			pasteY = 0
		}

		rect := image.Rect(0, pasteY, tile.Image.Bounds().Dx(), pasteY+tileHeight)
		draw.Draw(canvas, rect.Intersect(canvas.Bounds()), tile.Image, tile.Image.Bounds().Min, draw.Src)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, canvas); err != nil {
		return nil, fmt.Errorf("编码拼接画布失败: %w", err)
	}
	return buf.Bytes(), nil
}

// DeriveFilename 从URL路径派生截图文件名
// 纯函数: 相同URL恒得相同文件名,重复抓取按文件名覆盖去重;
// 空路径或根路径映射为homepage.png,路径分隔符变下划线
func DeriveFilename(rawURL string) string {
	path := ""
	if parsed, err := url.Parse(rawURL); err == nil {
		path = parsed.Path
	}

	if path == "" || path == "/" {
		return "homepage.png"
	}

	name := strings.Trim(path, "/")
	name = strings.ReplaceAll(name, "/", "_")
	name = unsafeFilenameChars.ReplaceAllString(name, "_")

	if !strings.HasSuffix(name, ".png") {
		name += ".png"
	}
	return name
}
