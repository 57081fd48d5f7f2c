// 包 export 负责把落地页记录导出为 JSON 文件（带统计），用于备份或静态部署。
package export

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"go-landing-studio/internal/model"
)

// Lister 为导出所需的最小存储能力。
type Lister interface {
	ListAll(ctx context.Context) ([]model.LandingRecord, error)
}

// Stats 为导出文件头部的统计。
type Stats struct {
	Records   int       `json:"records"`
	Locales   int       `json:"locales"`
	Reviews   int       `json:"reviews"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// File 为导出文件的结构。
type File struct {
	Stats   Stats                 `json:"stats"`
	Records []model.LandingRecord `json:"records"`
}

// ToJSON 查询全部记录（最新在前）并写入 JSON 文件。
func ToJSON(ctx context.Context, s Lister, path string) error {
	recs, err := s.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("list records: %w", err)
	}
	return ToJSONData(recs, path, time.Now())
}

// ToJSONData 直接把内存中的记录写成 JSON 文件。
func ToJSONData(recs []model.LandingRecord, path string, now time.Time) error {
	out := File{Stats: Summarize(recs, now), Records: recs}
	if out.Records == nil {
		out.Records = []model.LandingRecord{}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encode json to %s: %w", path, err)
	}
	return nil
}

// Summarize 统计记录数、翻译（语言版本）数与评价总数。
func Summarize(recs []model.LandingRecord, now time.Time) Stats {
	st := Stats{Records: len(recs), UpdatedAt: now.UTC()}
	for _, r := range recs {
		st.Locales += len(r.Translations)
		for _, b := range r.Translations {
			st.Reviews += len(b.Reviews)
		}
	}
	return st
}
