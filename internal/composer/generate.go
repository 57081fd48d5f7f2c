package composer

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"go-landing-studio/internal/generate"
	"go-landing-studio/internal/locale"
	"go-landing-studio/internal/logx"
	"go-landing-studio/internal/model"
)

// PlaceholderImage 在既没有生成图也没有上传图时作为主图。
const PlaceholderImage = "https://picsum.photos/seed/product/800/800"

// ErrMissingInput 表示缺少产品名或描述。
var ErrMissingInput = errors.New("missing required input")

// ValidationError 携带面向运营的提示文案。
type ValidationError struct {
	Message string
	Err     error
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Unwrap() error { return e.Err }

// Form 为 AI 生成表单。
type Form struct {
	Name           string                `json:"name"`
	Description    string                `json:"description"`
	Niche          string                `json:"niche"`
	Target         string                `json:"target"`
	Tone           string                `json:"tone"`
	Language       string                `json:"language"`
	LocalImages    []string              `json:"localImages"`
	RemoteImageURL string                `json:"remoteImageUrl"`
	ImageStyles    []generate.ImageStyle `json:"imageStyles"`
	ParagraphCount int                   `json:"paragraphCount"`
	TextDensity    generate.TextDensity  `json:"textDensity"`
	ReviewCount    int                   `json:"reviewCount"`
	ImageCount     int                   `json:"imageCount"`
}

// DefaultForm 返回生成表单的初始值。
func DefaultForm() Form {
	return Form{
		Tone:           "Professional",
		Language:       locale.Fallback,
		ImageStyles:    []generate.ImageStyle{generate.StyleHuman},
		ParagraphCount: 4,
		TextDensity:    generate.DensityMedium,
		ReviewCount:    350,
		ImageCount:     4,
	}
}

// Reference 返回用作图片生成参考的图：第一张上传图，否则远程 URL。
func (f Form) Reference() string {
	if len(f.LocalImages) > 0 && f.LocalImages[0] != "" {
		return f.LocalImages[0]
	}
	return strings.TrimSpace(f.RemoteImageURL)
}

// Composer 负责把生成表单变成暂存草稿并交给编辑器。
type Composer struct {
	gen      generate.Service
	slot     *DraftSlot
	navigate NavigateFunc
	now      func() time.Time

	rngMu sync.Mutex
	rng   *rand.Rand
}

// New 创建 Composer；slot 为草稿交接槽位，navigate 可为 nil。
func New(gen generate.Service, slot *DraftSlot, navigate NavigateFunc) *Composer {
	return &Composer{
		gen:      gen,
		slot:     slot,
		navigate: navigate,
		now:      time.Now,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// SetClock 替换时间源与随机源（测试使用）。
func (c *Composer) SetClock(now func() time.Time, rng *rand.Rand) {
	c.now = now
	c.rngMu.Lock()
	c.rng = rng
	c.rngMu.Unlock()
}

// Generate 校验表单后并发生成文案与图片，合并为草稿并暂存，随后导航到编辑器。
// 文案失败时整体失败、不暂存；单一风格的图片失败只记录日志，该风格贡献 0 张图。
func (c *Composer) Generate(ctx context.Context, f Form) (Draft, error) {
	if strings.TrimSpace(f.Name) == "" || strings.TrimSpace(f.Description) == "" {
		return Draft{}, &ValidationError{
			Message: "Compila Nome e Descrizione per permettere all'AI di lavorare.",
			Err:     ErrMissingInput,
		}
	}
	if f.Language == "" {
		f.Language = locale.Fallback
	}

	var (
		texts   map[string]model.RawContent
		byStyle = make([][]string, len(f.ImageStyles))
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		out, err := c.gen.GenerateText(gctx, generate.TextRequest{
			ProductName:    f.Name,
			Description:    f.Description,
			Niche:          f.Niche,
			TargetAudience: f.Target,
			Tone:           f.Tone,
			Locale:         f.Language,
			FeatureCount:   f.ParagraphCount,
			TextDensity:    f.TextDensity,
			ReviewCount:    f.ReviewCount,
		})
		if err != nil {
			return fmt.Errorf("generate text: %w", err)
		}
		texts = out
		return nil
	})

	ref := f.Reference()
	if f.ImageCount > 0 && ref != "" && len(f.ImageStyles) > 0 {
		per := generate.PerStyle(f.ImageCount, len(f.ImageStyles))
		for i, style := range f.ImageStyles {
			g.Go(func() error {
				imgs, err := c.gen.GenerateImages(gctx, generate.ImageRequest{
					ProductName: f.Name,
					Reference:   ref,
					Style:       style,
					Count:       per,
				})
				if err != nil {
					logx.Warnf("图片生成失败 风格=%s: %v", style, err)
					return nil
				}
				byStyle[i] = imgs
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		logx.Warnf("生成失败 %s: %v", f.Name, err)
		return Draft{}, err
	}

	var generated []string
	for _, imgs := range byStyle {
		generated = append(generated, imgs...)
	}
	if len(generated) > f.ImageCount {
		generated = generated[:max(0, f.ImageCount)]
	}

	now := c.now()
	c.rngMu.Lock()
	for tag, raw := range texts {
		raw.Reviews = generate.TopUpReviews(raw.Reviews, f.ReviewCount, tag, c.rng, now)
		texts[tag] = raw
	}
	c.rngMu.Unlock()

	primary, gallery := mergeImages(generated, f.LocalImages, f.RemoteImageURL)
	d := Draft{
		Record: model.LandingRecord{
			ID:               uuid.NewString(),
			Slug:             Slug(f.Name),
			ProductName:      f.Name,
			ImageURL:         primary,
			AdditionalImages: gallery,
			BaseLanguage:     f.Language,
			Niche:            f.Niche,
			TargetAudience:   f.Target,
			Tone:             f.Tone,
			CreatedAt:        now.UTC(),
		},
		Translations: texts,
	}
	if c.slot != nil {
		c.slot.Stage(d)
	}
	logx.Infof("生成完成 %s 图片=%d 语言=%d", f.Name, len(generated), len(texts))
	if c.navigate != nil {
		c.navigate("generate", map[string]string{"name": f.Name, "lang": f.Language, "temp": "true"})
	}
	return d, nil
}

// mergeImages 主图取第一张生成图，否则第一张上传图，否则远程 URL，否则占位图；
// 有生成图时图集为其余生成图，否则为其余上传图。
func mergeImages(generated, local []string, remote string) (string, []string) {
	primary := PlaceholderImage
	switch {
	case len(generated) > 0:
		primary = generated[0]
	case len(local) > 0:
		primary = local[0]
	case strings.TrimSpace(remote) != "":
		primary = strings.TrimSpace(remote)
	}
	gallery := []string{}
	if len(generated) > 0 {
		gallery = append(gallery, generated[1:]...)
	} else if len(local) > 1 {
		gallery = append(gallery, local[1:]...)
	}
	return primary, gallery
}
