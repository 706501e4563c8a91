package crawlers

import (
	"fmt"
	"time"

	"github.com/RecoveryAshes/sitesnap/internal/models"
	"github.com/go-rod/rod"
)

// 悬停展开的候选选择器(带hover态的导航项、卡片等区域)
var hoverSelectors = []string{
	".card", ".box", ".item", ".product",
	"nav li", ".menu-item", ".hero",
	".dropdown", ".nav-item",
}

// 每个选择器最多悬停的元素数
const maxHoverPerSelector = 5

// Revealer 悬停展开器
// 尽力触发下拉菜单和悬浮内容的展开;单个元素的过期/交互错误只计数,
// 不中断后续元素的尝试
type Revealer struct {
	page  *rod.Page
	pause time.Duration
	sleep func(time.Duration)
}

// NewRevealer 创建悬停展开器
func NewRevealer(page *rod.Page) *Revealer {
	return &Revealer{
		page:  page,
		pause: 500 * time.Millisecond,
		sleep: time.Sleep,
	}
}

// RevealAll 遍历候选选择器逐元素悬停
func (r *Revealer) RevealAll() models.RevealOutcome {
	outcome := models.RevealOutcome{}

	for _, selector := range hoverSelectors {
		elements, err := r.page.Elements(selector)
		if err != nil {
			continue
		}

		limit := len(elements)
		if limit > maxHoverPerSelector {
			limit = maxHoverPerSelector
		}

		for i := 0; i < limit; i++ {
			if err := r.hoverOne(elements[i]); err != nil {
				outcome.Skipped++
				continue
			}
			outcome.Hovered++
			r.sleep(r.pause)
		}
	}

	return outcome
}

// hoverOne 悬停单个元素
// rod对已脱离DOM的元素会panic,这里统一转换为error
func (r *Revealer) hoverOne(el *rod.Element) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("悬停panic: %v", rec)
		}
	}()

	visible, err := el.Visible()
	if err != nil {
		return err
	}
	if !visible {
		return fmt.Errorf("元素不可见")
	}

	return el.Hover()
}
