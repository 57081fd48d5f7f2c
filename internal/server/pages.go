package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"go-landing-studio/internal/auth"
	"go-landing-studio/internal/composer"
	"go-landing-studio/internal/content"
	"go-landing-studio/internal/engage"
	"go-landing-studio/internal/generate"
	"go-landing-studio/internal/locale"
	"go-landing-studio/internal/logx"
	"go-landing-studio/internal/media"
	"go-landing-studio/internal/model"
	"go-landing-studio/internal/render"
	"go-landing-studio/internal/router"
	"go-landing-studio/internal/store"
)

// handlePage 为全部 GET 页面：slug 优先于保留路由，其余回到首页。
// 浏览器不会发送 hash，因此这里总是按 path 模式解析。
func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	st := router.Parse(r.URL.RequestURI(), router.ModePath)
	id, authed := auth.IdentityFrom(r.Context())
	route := router.Resolve(st, s.app.Records(), authed)

	switch route.Kind {
	case router.KindPublic:
		rec := *route.Record
		requested := st.Param("lang")
		if requested == "" {
			requested = locale.Match(r.Header.Get("Accept-Language"), rec.Locales())
		}
		visible, _ := strconv.Atoi(st.Param("reviews"))
		v := render.NewPublic(rec, requested, engage.Snapshot{}, visible, s.opts.Now())
		title := rec.ProductName
		if v.Ready && v.Content.Title != "" {
			title = v.Content.Title
		}
		s.renderPage(w, http.StatusOK, render.PagePublic, v.Lang, title, v)
	case router.KindAdmin:
		v := render.NewAdmin(s.app.Records(), nil, id.Email, st.Param("notice"))
		s.renderPage(w, http.StatusOK, render.PageAdmin, locale.Fallback, "Dashboard", v)
	case router.KindGenerate:
		ed := composer.Open(s.draftSlot(r), nil, s.app, nil)
		s.renderEditor(w, http.StatusOK, ed, "", "")
	case router.KindEdit:
		ed := composer.Open(nil, route.Record, s.app, nil)
		editID := ""
		if route.Record != nil {
			editID = route.Record.ID
		}
		s.renderEditor(w, http.StatusOK, ed, editID, "")
	case router.KindAuth:
		v := render.AuthView{Signup: st.Param("mode") == "signup", Next: st.Param("next")}
		if st.Page != router.PageAuth && v.Next == "" {
			v.Next = r.URL.RequestURI()
		}
		s.renderPage(w, http.StatusOK, render.PageAuth, locale.Fallback, "Accedi", v)
	case router.KindNotFound:
		tag := locale.Match(r.Header.Get("Accept-Language"), locale.Available())
		if tag == "" {
			tag = locale.Fallback
		}
		s.renderPage(w, http.StatusNotFound, render.PageNotFound, tag, "404", render.NewNotFound(tag))
	default:
		v := render.NewStorefront(s.app.Records(), authed)
		s.renderPage(w, http.StatusOK, render.PageStorefront, locale.Fallback, "Landing Studio", v)
	}
}

func (s *Server) renderEditor(w http.ResponseWriter, status int, ed *composer.Editor, id, notice string) {
	st := ed.State()
	title := "Nuova Landing Page"
	if st.Editing {
		title = "Modifica " + st.Product.Name
	}
	s.renderPage(w, status, render.PageEditor, st.Product.Language, title, render.NewEditor(st, id, notice))
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	email, next := r.FormValue("email"), r.FormValue("next")
	_, token, err := s.auth.SignIn(r.Context(), email, r.FormValue("password"))
	if err != nil {
		logx.Infof("登录失败 %s: %v", email, err)
		s.renderPage(w, statusOf(err), render.PageAuth, locale.Fallback, "Accedi",
			render.AuthView{Email: email, Next: next, Notice: messageOf(err)})
		return
	}
	s.setSession(w, token)
	http.Redirect(w, r, safeNext(next), http.StatusSeeOther)
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	email, next := r.FormValue("email"), r.FormValue("next")
	id, err := s.auth.SignUp(r.Context(), email, r.FormValue("password"))
	var token string
	if err == nil {
		token, err = s.auth.Issue(id)
	}
	if err != nil {
		logx.Infof("注册失败 %s: %v", email, err)
		s.renderPage(w, statusOf(err), render.PageAuth, locale.Fallback, "Registrati",
			render.AuthView{Signup: true, Email: email, Next: next, Notice: messageOf(err)})
		return
	}
	logx.Infof("新运营账号 %s", id.Email)
	s.setSession(w, token)
	http.Redirect(w, r, safeNext(next), http.StatusSeeOther)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.clearSession(w)
	nav := s.navigator(r)
	nav.Navigate(router.PageHome, nil)
	follow(w, r, nav)
}

// handleAdminGenerate 处理管理页的生成表单（multipart，含上传图片）。
func (s *Server) handleAdminGenerate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		s.adminError(w, r, nil, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	f, err := formFromRequest(r)
	if err != nil {
		s.adminError(w, r, &f, err)
		return
	}
	if r.MultipartForm != nil {
		f.LocalImages = media.EncodeFiles(r.Context(), uploads(r.MultipartForm.File["images"]))
	}
	nav := s.navigator(r)
	if _, err := s.generate(r.Context(), f, nav.Navigate); err != nil {
		f.LocalImages = nil
		s.adminError(w, r, &f, err)
		return
	}
	follow(w, r, nav)
}

// draftSlot 返回当前账号的草稿槽位；HEAD 请求只得到副本，不消费草稿。
func (s *Server) draftSlot(r *http.Request) *composer.DraftSlot {
	slot := s.app.Drafts(r.Context())
	if r.Method != http.MethodHead {
		return slot
	}
	peek := &composer.DraftSlot{}
	if d, ok := slot.Peek(); ok {
		peek.Stage(d)
	}
	return peek
}

// generate 在超时上下文中运行生成流程，草稿暂存到当前账号的草稿槽。
func (s *Server) generate(ctx context.Context, f composer.Form, navigate composer.NavigateFunc) (composer.Draft, error) {
	if s.gen == nil {
		return composer.Draft{}, errNoGenerator
	}
	ctx, cancel := context.WithTimeout(ctx, s.opts.GenerateTimeout)
	defer cancel()
	return composer.New(s.gen, s.app.Drafts(ctx), navigate).Generate(ctx, f)
}

func (s *Server) adminError(w http.ResponseWriter, r *http.Request, f *composer.Form, err error) {
	operator := ""
	if id, ok := auth.IdentityFrom(r.Context()); ok {
		operator = id.Email
	}
	v := render.NewAdmin(s.app.Records(), f, operator, messageOf(err))
	s.renderPage(w, statusOf(err), render.PageAdmin, locale.Fallback, "Dashboard", v)
}

func (s *Server) handleAdminDelete(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.FormValue("id"))
	if id == "" {
		s.adminError(w, r, nil, fmt.Errorf("%w: missing id", errBadRequest))
		return
	}
	if err := s.app.Delete(r.Context(), id); err != nil {
		s.adminError(w, r, nil, err)
		return
	}
	nav := s.navigator(r)
	nav.Navigate(router.PageAdmin, nil)
	follow(w, r, nav)
}

func (s *Server) handleEditorSave(w http.ResponseWriter, r *http.Request) {
	nav := s.navigator(r)
	ed, id, err := s.editorFromForm(r, nav.Navigate)
	if ed == nil {
		s.adminError(w, r, nil, err)
		return
	}
	if err != nil {
		s.renderEditor(w, statusOf(err), ed, id, messageOf(err))
		return
	}
	if _, err := ed.Save(r.Context()); err != nil {
		s.renderEditor(w, statusOf(err), ed, id, messageOf(err))
		return
	}
	follow(w, r, nav)
}

// handleEditorLanguage 切换基础语言（同时切换货币）后重新渲染编辑页，不保存。
func (s *Server) handleEditorLanguage(w http.ResponseWriter, r *http.Request) {
	ed, id, err := s.editorFromForm(r, nil)
	if ed == nil {
		s.adminError(w, r, nil, err)
		return
	}
	notice := ""
	status := http.StatusOK
	if err != nil {
		notice, status = messageOf(err), statusOf(err)
	}
	s.renderEditor(w, status, ed, id, notice)
}

// editorFromForm 用表单重建编辑会话：先按 id 打开记录（或空白模板），再覆盖表单字段。
// 列表字段为 JSON；解析失败的字段保留原值并返回校验错误。id 不存在时 Editor 为 nil。
func (s *Server) editorFromForm(r *http.Request, navigate composer.NavigateFunc) (*composer.Editor, string, error) {
	id := strings.TrimSpace(r.FormValue("id"))
	var rec *model.LandingRecord
	if id != "" {
		if rec = s.app.ByID(id); rec == nil {
			return nil, id, fmt.Errorf("edit page %s: %w", id, store.ErrNotFound)
		}
	}
	ed := composer.Open(nil, rec, s.app, navigate)

	lang := strings.TrimSpace(r.FormValue("language"))
	prev := strings.TrimSpace(r.FormValue("previousLanguage"))
	if prev == "" {
		prev = lang
	}
	var firstErr error
	images := ed.State().Product.AdditionalImages
	if err := decodeField(r, "additionalImages", &images); err != nil {
		firstErr = err
	}
	ed.SetProduct(composer.Product{
		Name:             strings.TrimSpace(r.FormValue("name")),
		ImageURL:         strings.TrimSpace(r.FormValue("imageUrl")),
		AdditionalImages: images,
		BuyLink:          strings.TrimSpace(r.FormValue("buyLink")),
		Language:         prev,
		Niche:            r.FormValue("niche"),
		TargetAudience:   r.FormValue("targetAudience"),
		Tone:             r.FormValue("tone"),
	})

	raw := content.ToRaw(ed.State().Content)
	raw.Title = r.FormValue("title")
	raw.Description = r.FormValue("description")
	raw.CTAText = r.FormValue("ctaText")
	raw.TopBannerText = r.FormValue("topBannerText")
	raw.UrgencyText = r.FormValue("urgencyText")
	raw.GuaranteeText = r.FormValue("guaranteeText")
	raw.Price = r.FormValue("price")
	raw.OldPrice = r.FormValue("oldPrice")
	raw.DiscountLabel = r.FormValue("discountLabel")
	raw.SocialProofName = r.FormValue("socialProofName")
	raw.PurchaseFormHTML = r.FormValue("purchaseFormHtml")
	raw.StockCount = intField(r, "stockCount")
	raw.PopupCount = intField(r, "popupCount")
	raw.PopupInterval = intField(r, "popupInterval")
	raw.SocialProofCount = intField(r, "socialProofCount")
	raw.AnnouncementInterval = intField(r, "announcementInterval")
	raw.TimelineConfig = &model.TimelineConfig{
		ReadyDaysMin:    atoi(r.FormValue("readyDaysMin")),
		ReadyDaysMax:    atoi(r.FormValue("readyDaysMax")),
		DeliveryDaysMin: atoi(r.FormValue("deliveryDaysMin")),
		DeliveryDaysMax: atoi(r.FormValue("deliveryDaysMax")),
	}
	for _, fld := range []struct {
		name string
		dst  any
	}{
		{"features", &raw.Features},
		{"sellingPoints", &raw.SellingPoints},
		{"reviews", &raw.Reviews},
		{"announcements", &raw.Announcements},
		{"videoItems", &raw.VideoItems},
	} {
		if err := decodeField(r, fld.name, fld.dst); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	ed.SetContent(content.ResolveFor(raw, ed.State().Product.Language))
	if lang != "" && lang != prev {
		ed.SetLanguage(lang)
	}
	return ed, id, firstErr
}

// decodeField 解析 JSON 文本框；空值不修改 dst。
func decodeField(r *http.Request, name string, dst any) error {
	v := strings.TrimSpace(r.FormValue(name))
	if v == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(v), dst); err != nil {
		return &composer.ValidationError{
			Message: fmt.Sprintf("JSON non valido nel campo %q.", name),
			Err:     fmt.Errorf("%w: %s: %v", errBadRequest, name, err),
		}
	}
	return nil
}

// intField 解析数值输入；空值或非法值视为缺失，由默认值补齐。
func intField(r *http.Request, name string) *model.FlexInt {
	n, err := strconv.Atoi(strings.TrimSpace(r.FormValue(name)))
	if err != nil {
		return nil
	}
	return model.IntPtr(n)
}

func atoi(s string) int {
	n, _ := strconv.Atoi(strings.TrimSpace(s))
	return n
}

// formFromRequest 解析管理页生成表单；数值缺失时取默认值。
func formFromRequest(r *http.Request) (composer.Form, error) {
	f := composer.DefaultForm()
	f.Name = strings.TrimSpace(r.FormValue("name"))
	f.Description = strings.TrimSpace(r.FormValue("description"))
	f.Niche = r.FormValue("niche")
	f.Target = r.FormValue("target")
	if v := strings.TrimSpace(r.FormValue("tone")); v != "" {
		f.Tone = v
	}
	if v := strings.TrimSpace(r.FormValue("language")); v != "" {
		f.Language = v
	}
	f.RemoteImageURL = strings.TrimSpace(r.FormValue("remoteImageUrl"))
	for _, k := range []struct {
		name string
		dst  *int
	}{
		{"paragraphCount", &f.ParagraphCount},
		{"reviewCount", &f.ReviewCount},
		{"imageCount", &f.ImageCount},
	} {
		if v := strings.TrimSpace(r.FormValue(k.name)); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				return f, &composer.ValidationError{
					Message: fmt.Sprintf("Valore non valido per %q.", k.name),
					Err:     fmt.Errorf("%w: %s=%q", errBadRequest, k.name, v),
				}
			}
			*k.dst = n
		}
	}
	d, err := generate.ParseDensity(r.FormValue("textDensity"))
	if err != nil {
		return f, &composer.ValidationError{Message: "Lunghezza testi non valida.", Err: fmt.Errorf("%w: %v", errBadRequest, err)}
	}
	f.TextDensity = d
	// 表单总会带一个空的 imageStyles，全部取消勾选时得到空列表。
	if r.Form != nil {
		if vals, ok := r.Form["imageStyles"]; ok {
			f.ImageStyles = nil
			for _, v := range vals {
				if strings.TrimSpace(v) == "" {
					continue
				}
				st, err := generate.ParseStyle(v)
				if err != nil {
					return f, &composer.ValidationError{Message: "Stile immagine non valido.", Err: fmt.Errorf("%w: %v", errBadRequest, err)}
				}
				f.ImageStyles = append(f.ImageStyles, st)
			}
		}
	}
	return f, nil
}

// uploads 把 multipart 文件转为 media.Source，跳过空文件名。
func uploads(files []*multipart.FileHeader) []media.Source {
	out := make([]media.Source, 0, len(files))
	for _, fh := range files {
		if fh == nil || fh.Filename == "" {
			continue
		}
		out = append(out, media.Source{Name: fh.Filename, MIME: fh.Header.Get("Content-Type"), Open: func() (io.ReadCloser, error) {
			return fh.Open()
		}})
	}
	return out
}
