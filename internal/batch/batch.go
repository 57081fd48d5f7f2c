// 包 batch 负责批量生成流程编排：
// - 对每个商品种子并发调用生成（受 CONCURRENCY.generate 限制）
// - 把暂存草稿交给编辑器，补上购买链接后保存
// - 单个种子失败只记录并计数，不中断整轮
package batch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go-landing-studio/internal/catalog"
	"go-landing-studio/internal/composer"
	"go-landing-studio/internal/config"
	"go-landing-studio/internal/generate"
	"go-landing-studio/internal/logx"
)

// Result 为单个种子的处理结果。
type Result struct {
	Seed  string `json:"seed"`
	ID    string `json:"id,omitempty"`
	Slug  string `json:"slug,omitempty"`
	Error string `json:"error,omitempty"`
}

// Report 为一轮批量生成的汇总，Results 与输入种子顺序一致。
type Report struct {
	Seeds   int      `json:"seeds"`
	Created int      `json:"created"`
	Failed  int      `json:"failed"`
	Results []Result `json:"results"`
}

// Runner 批量执行器，持有生成服务、持久化目标与表单默认值。
type Runner struct {
	gen         generate.Service
	persister   composer.Persister
	defaults    config.Defaults
	concurrency int
	// Timeout 为单个种子的生成+保存超时，0 表示不限制。
	Timeout time.Duration
}

// New 创建 Runner。
func New(gen generate.Service, p composer.Persister, defaults config.Defaults, concurrency int) *Runner {
	return &Runner{gen: gen, persister: p, defaults: defaults, concurrency: max(1, concurrency)}
}

// Form 用默认值与种子构造生成表单；种子图片作为远程参考图。
func (r *Runner) Form(s catalog.Seed) composer.Form {
	d := r.defaults
	f := composer.DefaultForm()
	f.Name = s.Name
	f.Description = s.Description
	f.RemoteImageURL = s.ImageURL
	if d.Language != "" {
		f.Language = d.Language
	}
	if d.Tone != "" {
		f.Tone = d.Tone
	}
	f.Niche, f.Target = d.Niche, d.Target
	if d.ParagraphCount > 0 {
		f.ParagraphCount = d.ParagraphCount
	}
	if d.ReviewCount > 0 {
		f.ReviewCount = d.ReviewCount
	}
	if d.ImageCount > 0 {
		f.ImageCount = d.ImageCount
	}
	if st := d.Styles(); len(st) > 0 {
		f.ImageStyles = st
	}
	if d.TextDensity != "" {
		f.TextDensity = d.Density()
	}
	return f
}

// Run 执行一轮批量生成。
func (r *Runner) Run(ctx context.Context, seeds []catalog.Seed) Report {
	rep := Report{Seeds: len(seeds), Results: make([]Result, len(seeds))}
	logx.Infof("开始批量生成：种子=%d 并发=%d", len(seeds), r.concurrency)

	sem := make(chan struct{}, r.concurrency)
	var wg sync.WaitGroup
	for i, s := range seeds {
		if err := ctx.Err(); err != nil {
			rep.Results[i] = Result{Seed: s.Name, Error: err.Error()}
			continue
		}
		sem <- struct{}{}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			rep.Results[i] = r.processSeed(ctx, s)
		}()
	}
	wg.Wait()

	for _, res := range rep.Results {
		if res.Error != "" {
			rep.Failed++
		} else {
			rep.Created++
		}
	}
	logx.Infof("批量生成完成：成功=%d 失败=%d", rep.Created, rep.Failed)
	return rep
}

// processSeed 处理单个种子：生成→打开草稿→补购买链接→保存。
func (r *Runner) processSeed(ctx context.Context, s catalog.Seed) Result {
	res := Result{Seed: s.Name}
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}
	slot := &composer.DraftSlot{}
	if _, err := composer.New(r.gen, slot, nil).Generate(ctx, r.Form(s)); err != nil {
		logx.Warnf("[%s] 生成失败：%v", s.Name, err)
		res.Error = err.Error()
		return res
	}
	ed := composer.Open(slot, nil, r.persister, nil)
	p := ed.State().Product
	p.BuyLink = s.Link
	ed.SetProduct(p)
	rec, err := ed.Save(ctx)
	if err != nil {
		res.Error = fmt.Sprintf("save: %v", err)
		return res
	}
	res.ID, res.Slug = rec.ID, rec.Slug
	return res
}
