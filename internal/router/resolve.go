package router

import "go-landing-studio/internal/model"

// Kind 为解析出的视图类型。
type Kind int

const (
	KindHome Kind = iota
	KindPublic
	KindAdmin
	KindGenerate
	KindEdit
	KindAuth
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindPublic:
		return "public"
	case KindAdmin:
		return "admin"
	case KindGenerate:
		return "generate"
	case KindEdit:
		return "edit"
	case KindAuth:
		return "auth"
	case KindNotFound:
		return "not-found"
	default:
		return "home"
	}
}

// Route 为解析结果；Record 只在 public 与 edit（找到记录时）非空。
type Route struct {
	Kind   Kind
	Record *model.LandingRecord
	State  State
}

// Resolve 按优先级解析：
// (a) 非保留名且与某条记录的 slug 相同 → 公开页（列表顺序中第一个匹配者胜出，slug 不保证唯一）；
// (b) 保留路由；admin/generate/edit 未登录时渲染登录页；view 找不到记录时为 not-found；
// (c) 其他 → 首页。
func Resolve(st State, records []model.LandingRecord, authenticated bool) Route {
	r := Route{Kind: KindHome, State: st}
	if !Reserved(st.Page) {
		if rec := BySlug(records, st.Page); rec != nil {
			r.Kind, r.Record = KindPublic, rec
		}
		return r
	}
	switch st.Page {
	case PageAdmin, PageGenerate, PageEdit:
		if !authenticated {
			r.Kind = KindAuth
			return r
		}
		switch st.Page {
		case PageAdmin:
			r.Kind = KindAdmin
		case PageGenerate:
			r.Kind = KindGenerate
		default:
			r.Kind = KindEdit
			r.Record = ByID(records, st.Param("id"))
		}
	case PageAuth:
		r.Kind = KindAuth
	case PageView:
		if rec := ByID(records, st.Param("id")); rec != nil {
			r.Kind, r.Record = KindPublic, rec
		} else {
			r.Kind = KindNotFound
		}
	}
	return r
}

// BySlug 返回第一个 slug 匹配的记录副本。
func BySlug(records []model.LandingRecord, slug string) *model.LandingRecord {
	if slug == "" {
		return nil
	}
	for i := range records {
		if records[i].Slug == slug {
			rec := records[i]
			return &rec
		}
	}
	return nil
}

// ByID 返回 id 匹配的记录副本。
func ByID(records []model.LandingRecord, id string) *model.LandingRecord {
	if id == "" {
		return nil
	}
	for i := range records {
		if records[i].ID == id {
			rec := records[i]
			return &rec
		}
	}
	return nil
}
