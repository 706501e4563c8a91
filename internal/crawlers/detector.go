package crawlers

import (
	"fmt"
	"sort"
	"time"

	"github.com/RecoveryAshes/sitesnap/internal/models"
	"github.com/RecoveryAshes/sitesnap/internal/utils"
)

// 图片完成比例阈值
// 取0.70而非1.0: 少量资源可能永久失败,不应无限等待阻塞截图
const imageStableThreshold = 0.70

// JS谓词片段
// 每个阶段的启发式判断都是独立下发的箭头函数,便于逐个单测
const (
	jsDOMReady = `() => document.readyState === "complete"`

	jsScriptIdle = `() => typeof jQuery === 'undefined' || jQuery.active === 0`

	// 统计视觉图片的定格情况: <img>加载成功(有固有高度)或已报错都算定格;
	// 背景图元素在DOM complete后一律视为定格(无法从complete属性观测)
	jsImageStats = `() => {
		var images = Array.from(document.querySelectorAll('img'));
		var backgroundImages = Array.from(document.querySelectorAll('*')).filter(function(el) {
			var bg = window.getComputedStyle(el).backgroundImage;
			return bg && bg !== 'none' && bg.includes('url');
		});

		var settled = 0;
		for (var i = 0; i < images.length; i++) {
			if (images[i].complete) {
				settled++;
			}
		}
		settled += backgroundImages.length;

		return { settled: settled, total: images.length + backgroundImages.length };
	}`

	jsPageHeight = `() => Math.max(
		document.body.scrollHeight,
		document.body.offsetHeight,
		document.documentElement.clientHeight,
		document.documentElement.scrollHeight,
		document.documentElement.offsetHeight
	)`

	jsScrollTo = `() => window.scrollTo(0, %d)`

	jsScrollTop = `() => window.scrollTo(0, 0)`

	// 把视口内的懒加载图片源强制解析为真实src
	jsRevealLazyImages = `() => {
		if (window.IntersectionObserver) {
			var images = document.querySelectorAll('img[data-src], img[data-lazy-src], img[loading="lazy"]');
			images.forEach(function(img) {
				var rect = img.getBoundingClientRect();
				if (rect.top < window.innerHeight && rect.bottom > 0) {
					if (img.dataset.src) {
						img.src = img.dataset.src;
					}
					if (img.dataset.lazySrc) {
						img.src = img.dataset.lazySrc;
					}
					img.loading = 'eager';
				}
			});
		}
	}`

	// 在途网络资源数: resource timing中responseEnd为0的条目
	jsInflightRequests = `() => window.performance.getEntriesByType('resource')
		.filter(entry => entry.responseEnd === 0).length`

	// 最后一轮强制加载: 逐图滚动到视口并重赋src触发重载,懒加载属性一并拷贝
	jsForceLoadImages = `() => {
		var images = document.querySelectorAll('img');
		for (var i = 0; i < images.length; i++) {
			var img = images[i];
			img.scrollIntoView({behavior: 'instant', block: 'center'});
			if (!img.complete || img.naturalHeight === 0) {
				var src = img.src;
				img.src = '';
				img.src = src;
			}
			img.dispatchEvent(new Event('load'));
		}

		var lazyImages = document.querySelectorAll('img[data-src], img[data-lazy-src], img[loading="lazy"]');
		for (var j = 0; j < lazyImages.length; j++) {
			var lazyImg = lazyImages[j];
			lazyImg.scrollIntoView({behavior: 'instant', block: 'center'});
			if (lazyImg.dataset.src && !lazyImg.src) {
				lazyImg.src = lazyImg.dataset.src;
			}
			if (lazyImg.dataset.lazySrc && !lazyImg.src) {
				lazyImg.src = lazyImg.dataset.lazySrc;
			}
		}
	}`
)

// DetectorConfig 渲染完成度检测配置
// 所有时长都是字段,默认值为线上验证过的经验值,测试可缩短
type DetectorConfig struct {
	DOMTimeout          time.Duration // DOM complete等待上限 (默认:60s)
	PollInterval        time.Duration // 谓词轮询间隔 (默认:500ms)
	ScriptIdleTimeout   time.Duration // 旧式异步库静默等待上限 (默认:20s)
	ImageAttempts       int           // 图片定格检测重试次数 (默认:5)
	ImageAttemptTimeout time.Duration // 单次图片定格轮询窗口 (默认:30s)
	ImageRetryBackoff   time.Duration // 图片检测重试间隔 (默认:5s)
	ScrollStep          int           // 懒加载扫描滚动步长(px) (默认:150)
	ScrollPause         time.Duration // 每个滚动位置的停留 (默认:2s)
	LazyInjectPause     time.Duration // 懒加载注入后的停留 (默认:1s)
	NetworkSamples      int           // 网络静默采样次数 (默认:40)
	NetworkSampleGap    time.Duration // 采样间隔 (默认:500ms)
	NetworkQuietTarget  int           // 连续零在途采样的静默目标 (默认:5)
	ForceLoadPause      time.Duration // 强制加载后的等待 (默认:5s)
	SettleDelay         time.Duration // 最终安定等待 (默认:8s)
	FallbackWait        time.Duration // 检测整体失败时的固定兜底等待 (默认:12s)
}

// DefaultDetectorConfig 默认检测配置
func DefaultDetectorConfig() DetectorConfig {
	return DetectorConfig{
		DOMTimeout:          60 * time.Second,
		PollInterval:        500 * time.Millisecond,
		ScriptIdleTimeout:   20 * time.Second,
		ImageAttempts:       5,
		ImageAttemptTimeout: 30 * time.Second,
		ImageRetryBackoff:   5 * time.Second,
		ScrollStep:          150,
		ScrollPause:         2 * time.Second,
		LazyInjectPause:     time.Second,
		NetworkSamples:      40,
		NetworkSampleGap:    500 * time.Millisecond,
		NetworkQuietTarget:  5,
		ForceLoadPause:      5 * time.Second,
		SettleDelay:         8 * time.Second,
		FallbackWait:        12 * time.Second,
	}
}

// Detector 渲染完成度检测器
// 分阶段尽力推进,每个阶段有界且允许降级,整体从不硬失败
type Detector struct {
	runner ScriptRunner
	config DetectorConfig
	sleep  func(time.Duration)
}

// NewDetector 创建检测器
func NewDetector(runner ScriptRunner, config DetectorConfig) *Detector {
	return &Detector{
		runner: runner,
		config: config,
		sleep:  time.Sleep,
	}
}

// ImagesStable 判断图片定格比例是否达到可截图阈值
// 没有视觉图片的页面直接视为稳定
func ImagesStable(settled, total int) bool {
	if total == 0 {
		return true
	}
	return float64(settled)/float64(total) >= imageStableThreshold
}

// WaitComplete 推进全部检测阶段,返回各阶段的满足情况
// 脚本表面完全不可用时退化为一次固定等待 — 检测器从不向上抛错
func (d *Detector) WaitComplete() *models.RenderState {
	state := &models.RenderState{}

	ready, err := d.waitDOMReady()
	if err != nil {
		utils.Warnf("渲染检测不可用,退化为固定等待 %v: %v", d.config.FallbackWait, err)
		d.sleep(d.config.FallbackWait)
		return state
	}
	state.DOMReady = ready
	if !ready {
		utils.Debugf("DOM complete等待超时,继续后续阶段")
	}

	// 旧式异步库静默,失败直接忽略
	state.ScriptIdle = d.waitScriptIdle()

	state.ImagesSettled = d.waitImagesSettled(state)
	state.LazyTriggered = d.triggerLazyLoad()
	state.NetworkIdle = d.waitNetworkIdle()
	state.ForceLoaded = d.forceLoadImages()

	// 拖尾动画/过渡的固定宽限
	d.sleep(d.config.SettleDelay)
	state.Settled = true

	return state
}

// pollPredicate 以固定间隔轮询布尔谓词直到为真或次数用尽
func (d *Detector) pollPredicate(js string, timeout time.Duration) (bool, error) {
	polls := int(timeout / d.config.PollInterval)
	if polls < 1 {
		polls = 1
	}

	for i := 0; i < polls; i++ {
		v, err := d.runner.Eval(js)
		if err != nil {
			return false, err
		}
		if v.Bool() {
			return true, nil
		}
		d.sleep(d.config.PollInterval)
	}
	return false, nil
}

// waitDOMReady 阶段1: 等待document.readyState为complete
func (d *Detector) waitDOMReady() (bool, error) {
	return d.pollPredicate(jsDOMReady, d.config.DOMTimeout)
}

// waitScriptIdle 阶段2: 若存在jQuery标记则等待其无在途活动
func (d *Detector) waitScriptIdle() bool {
	idle, err := d.pollPredicate(jsScriptIdle, d.config.ScriptIdleTimeout)
	if err != nil {
		return false
	}
	return idle
}

// waitImagesSettled 阶段3: 轮询图片定格比例直到达到阈值
// 最多重试ImageAttempts次,重试间隔ImageRetryBackoff,放弃后照常进入下一阶段
func (d *Detector) waitImagesSettled(state *models.RenderState) bool {
	for attempt := 0; attempt < d.config.ImageAttempts; attempt++ {
		polls := int(d.config.ImageAttemptTimeout / d.config.PollInterval)
		if polls < 1 {
			polls = 1
		}

		for i := 0; i < polls; i++ {
			settled, total, err := d.imageStats()
			if err != nil {
				return false
			}
			if total > 0 {
				state.ImageRatio = float64(settled) / float64(total)
			} else {
				state.ImageRatio = 1
			}
			if ImagesStable(settled, total) {
				return true
			}
			d.sleep(d.config.PollInterval)
		}

		if attempt < d.config.ImageAttempts-1 {
			d.sleep(d.config.ImageRetryBackoff)
		}
	}

	utils.Debugf("图片定格比例未达阈值(最后观测 %.2f),放弃等待", state.ImageRatio)
	return false
}

// imageStats 读取当前图片定格统计
func (d *Detector) imageStats() (settled int, total int, err error) {
	v, err := d.runner.Eval(jsImageStats)
	if err != nil {
		return 0, 0, err
	}
	return v.Get("settled").Int(), v.Get("total").Int(), nil
}

// triggerLazyLoad 阶段4: 全文档高度懒加载扫描
// 以固定步长滚动,叠加0/25/50/75/100%检查点,每个位置强制解析视口内懒图,最后回到顶部
func (d *Detector) triggerLazyLoad() bool {
	hv, err := d.runner.Eval(jsPageHeight)
	if err != nil {
		return false
	}
	totalHeight := hv.Int()
	if totalHeight <= 0 {
		return false
	}

	positions := make([]int, 0, totalHeight/d.config.ScrollStep+8)
	for pos := 0; pos < totalHeight; pos += d.config.ScrollStep {
		positions = append(positions, pos)
	}
	positions = append(positions,
		0, totalHeight/4, totalHeight/2, totalHeight*3/4, totalHeight)

	sort.Ints(positions)
	positions = dedupeInts(positions)

	for _, pos := range positions {
		if _, err := d.runner.Eval(fmt.Sprintf(jsScrollTo, pos)); err != nil {
			continue
		}
		d.sleep(d.config.ScrollPause)
		_, _ = d.runner.Eval(jsRevealLazyImages)
		d.sleep(d.config.LazyInjectPause)
	}

	_, _ = d.runner.Eval(jsScrollTop)
	d.sleep(d.config.LazyInjectPause)
	return true
}

// waitNetworkIdle 阶段5: 网络静默检测
// 每NetworkSampleGap采样一次在途资源数,连续NetworkQuietTarget次为零即静默,
// 在途条目重新出现时计数器清零
func (d *Detector) waitNetworkIdle() bool {
	quiet := 0
	for i := 0; i < d.config.NetworkSamples; i++ {
		v, err := d.runner.Eval(jsInflightRequests)
		if err != nil {
			return false
		}

		if v.Int() == 0 {
			quiet++
			if quiet >= d.config.NetworkQuietTarget {
				return true
			}
		} else {
			quiet = 0
		}

		d.sleep(d.config.NetworkSampleGap)
	}
	return false
}

// forceLoadImages 阶段6: 对仍未完成的图片做最后一轮强制加载
func (d *Detector) forceLoadImages() bool {
	if _, err := d.runner.Eval(jsForceLoadImages); err != nil {
		return false
	}
	d.sleep(d.config.ForceLoadPause)
	return true
}

// dedupeInts 去重已排序的整数切片
func dedupeInts(sorted []int) []int {
	out := sorted[:0]
	for i, v := range sorted {
		if i == 0 || v != sorted[i-1] {
			out = append(out, v)
		}
	}
	return out
}
