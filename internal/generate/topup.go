package generate

import (
	"fmt"
	"math/rand"
	"time"

	"go-landing-studio/internal/locale"
	"go-landing-studio/internal/model"
)

// fillerWindow 为补齐评价的日期回溯范围（约 11.5 天）。
const fillerWindow = 1e9 * time.Millisecond

// TopUpReviews 在评价数不足 want 时补齐：评论为空（渲染时使用兜底句），
// 评分 90% 为 5、其余为 4，作者为本地化的 "名字 首字母."，日期在最近约 11 天内。
// 已有评价不做修改；超出 want 的部分也不截断。
func TopUpReviews(reviews []model.RawReview, want int, tag string, rng *rand.Rand, now time.Time) []model.RawReview {
	out := append([]model.RawReview(nil), reviews...)
	missing := want - len(out)
	if missing <= 0 {
		return out
	}
	l := locale.Lookup(tag)
	stamp := now.UnixMilli()
	for i := 0; i < missing; i++ {
		rating := 5
		if rng.Float64() <= 0.1 {
			rating = 4
		}
		date := now.Add(-time.Duration(rng.Int63n(int64(fillerWindow))))
		out = append(out, model.RawReview{
			ID:      fmt.Sprintf("bulk-%d-%d", i, stamp),
			Author:  l.FillerReviewer(rng),
			Rating:  model.IntPtr(rating),
			Comment: "",
			Date:    l.FormatDate(date),
		})
	}
	return out
}
