package locale

import (
	"fmt"
	"time"
)

// Step 为发货时间线上的一个节点。
type Step struct {
	Label string
	Date  string
}

// Days 为时间线配置（与 model.TimelineConfig 字段一致，避免包循环依赖）。
type Days struct {
	ReadyMin, ReadyMax       int
	DeliveryMin, DeliveryMax int
}

// ShippingSteps 计算 下单/备货/送达 三个节点的日期文案；min 与 max 相等时只显示单个日期。
func (l *Localization) ShippingSteps(now time.Time, d Days) []Step {
	rng := func(min, max int) string {
		a := l.FormatDay(now.AddDate(0, 0, min))
		if min == max {
			return a
		}
		return a + " - " + l.FormatDay(now.AddDate(0, 0, max))
	}
	return []Step{
		{Label: l.Timeline.Ordered, Date: l.FormatDay(now)},
		{Label: l.Timeline.Ready, Date: rng(d.ReadyMin, d.ReadyMax)},
		{Label: l.Timeline.Delivered, Date: rng(d.DeliveryMin, d.DeliveryMax)},
	}
}

// FormatDay 英文为 "Jan 3rd"，其他语言为 "3 gen"。
func (l *Localization) FormatDay(t time.Time) string {
	month := l.Months[int(t.Month())-1]
	if l.Ordinals {
		return fmt.Sprintf("%s %d%s", month, t.Day(), ordinal(t.Day()))
	}
	return fmt.Sprintf("%d %s", t.Day(), month)
}

// FormatDate 按语言的短日期格式输出（评价日期）。
func (l *Localization) FormatDate(t time.Time) string {
	layout := l.DateLayout
	if layout == "" {
		layout = "2/1/2006"
	}
	return t.Format(layout)
}

func ordinal(day int) string {
	if day > 3 && day < 21 {
		return "th"
	}
	switch day % 10 {
	case 1:
		return "st"
	case 2:
		return "nd"
	case 3:
		return "rd"
	default:
		return "th"
	}
}
