package server_test

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/goleak"

	"go-landing-studio/internal/app"
	"go-landing-studio/internal/auth"
	"go-landing-studio/internal/content"
	"go-landing-studio/internal/engage"
	"go-landing-studio/internal/generate"
	"go-landing-studio/internal/model"
	"go-landing-studio/internal/render"
	"go-landing-studio/internal/router"
	"go-landing-studio/internal/server"
	"go-landing-studio/internal/store"
)

var now = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

type fakeGen struct {
	mu    sync.Mutex
	calls int
}

func (g *fakeGen) GenerateText(_ context.Context, req generate.TextRequest) (map[string]model.RawContent, error) {
	g.mu.Lock()
	g.calls++
	g.mu.Unlock()
	return map[string]model.RawContent{req.Locale: {Title: req.ProductName + " AI", Description: req.Description}}, nil
}

func (g *fakeGen) GenerateImages(context.Context, generate.ImageRequest) ([]string, error) {
	return nil, nil
}

type fixture struct {
	srv   *server.Server
	ctrl  *app.Controller
	auth  *auth.Service
	clock *engage.ManualClock
	token string
}

func newFixture(t *testing.T, gen generate.Service) *fixture {
	t.Helper()
	st := store.NewMemory()
	svc, err := auth.NewService(st, "test-secret", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	id, err := svc.SignUp(context.Background(), "op@example.com", "secret1")
	if err != nil {
		t.Fatal(err)
	}
	token, err := svc.Issue(id)
	if err != nil {
		t.Fatal(err)
	}
	pages, err := render.New(router.ModePath)
	if err != nil {
		t.Fatal(err)
	}
	ctrl := app.New(st)
	clock := engage.NewManualClock(now)
	srv := server.New(ctrl, svc, gen, pages, server.Options{
		Mode:  router.ModePath,
		Clock: clock,
		Now:   func() time.Time { return now },
	})
	return &fixture{srv: srv, ctrl: ctrl, auth: svc, clock: clock, token: token}
}

func (f *fixture) addPage(t *testing.T, id, name string) model.LandingRecord {
	t.Helper()
	rec := model.LandingRecord{
		ID:           id,
		Slug:         strings.ToLower(strings.ReplaceAll(name, " ", "-")),
		ProductName:  name,
		BaseLanguage: "it",
		Translations: map[string]model.ContentBlock{"it": content.ResolveFor(model.RawContent{Title: name + " titolo"}, "it")},
		CreatedAt:    now,
	}
	if err := f.ctrl.Add(context.Background(), rec); err != nil {
		t.Fatal(err)
	}
	return rec
}

func (f *fixture) do(t *testing.T, method, target string, form url.Values, authed bool) *httptest.ResponseRecorder {
	t.Helper()
	token := ""
	if authed {
		token = f.token
	}
	return f.doAs(t, token, method, target, form)
}

// doAs 以 token 对应的账号发出请求；token 为空时匿名。
func (f *fixture) doAs(t *testing.T, token, method, target string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if token != "" {
		req.AddCookie(&http.Cookie{Name: server.CookieName, Value: token})
	}
	rec := httptest.NewRecorder()
	f.srv.Handler().ServeHTTP(rec, req)
	return rec
}

func (f *fixture) api(t *testing.T, method, target, body string, authed bool) (*httptest.ResponseRecorder, server.APIResponse) {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if authed {
		req.Header.Set("Authorization", "Bearer "+f.token)
	}
	rec := httptest.NewRecorder()
	f.srv.Handler().ServeHTTP(rec, req)
	var resp server.APIResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("%s %s: decode %q: %v", method, target, rec.Body.String(), err)
	}
	return rec, resp
}

func parse(t *testing.T, rec *httptest.ResponseRecorder) *goquery.Document {
	t.Helper()
	d, err := goquery.NewDocumentFromReader(rec.Body)
	if err != nil {
		t.Fatalf("parse html: %v", err)
	}
	return d
}

func TestHealth(t *testing.T) {
	f := newFixture(t, nil)
	rec, resp := f.api(t, http.MethodGet, "/healthz", "", false)
	if rec.Code != http.StatusOK || !resp.Success {
		t.Fatalf("health: %d %+v", rec.Code, resp)
	}
}

func TestPages_Routing(t *testing.T) {
	f := newFixture(t, nil)
	f.addPage(t, "p1", "Lampada Smart")

	rec := f.do(t, http.MethodGet, "/lampada-smart", nil, false)
	if rec.Code != http.StatusOK {
		t.Fatalf("slug page: %d", rec.Code)
	}
	if got := parse(t, rec).Find("#title").Text(); got != "Lampada Smart titolo" {
		t.Fatalf("title: %q", got)
	}

	rec = f.do(t, http.MethodGet, "/view?id=p1", nil, false)
	if rec.Code != http.StatusOK || parse(t, rec).Find("#title").Length() != 1 {
		t.Fatalf("view by id: %d", rec.Code)
	}

	rec = f.do(t, http.MethodGet, "/view?id=missing", nil, false)
	if rec.Code != http.StatusNotFound || parse(t, rec).Find("#not-found").Length() != 1 {
		t.Fatalf("unknown id should render not-found: %d", rec.Code)
	}

	rec = f.do(t, http.MethodGet, "/nessuno", nil, false)
	if rec.Code != http.StatusOK || parse(t, rec).Find("h1").Text() != "I Nostri Prodotti" {
		t.Fatalf("unknown slug should fall back to the storefront: %d", rec.Code)
	}
}

func TestPages_AdminNeedsLogin(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do(t, http.MethodGet, "/admin", nil, false)
	d := parse(t, rec)
	if d.Find("h1").Text() != "Accedi" {
		t.Fatalf("anonymous admin should show login, got %q", d.Find("h1").Text())
	}
	if next, _ := d.Find(`input[name="next"]`).Attr("value"); next != "/admin" {
		t.Fatalf("next: %q", next)
	}

	rec = f.do(t, http.MethodPost, "/admin/delete", url.Values{"id": {"x"}}, false)
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/auth?next=%2Fadmin" {
		t.Fatalf("anonymous post: %d %q", rec.Code, rec.Header().Get("Location"))
	}

	rec = f.do(t, http.MethodGet, "/admin", nil, true)
	if rec.Code != http.StatusOK || parse(t, rec).Find("#generate-form").Length() != 1 {
		t.Fatalf("admin with session: %d", rec.Code)
	}
}

func TestAuth_LoginAndSignup(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do(t, http.MethodPost, "/auth/login", url.Values{"email": {"op@example.com"}, "password": {"wrong"}}, false)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad password: %d", rec.Code)
	}
	if got := parse(t, rec).Find(".notice").Text(); got != "Email o password non validi." {
		t.Fatalf("notice: %q", got)
	}

	rec = f.do(t, http.MethodPost, "/auth/login", url.Values{"email": {"op@example.com"}, "password": {"secret1"}, "next": {"//evil.example.com"}}, false)
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/admin" {
		t.Fatalf("login: %d %q", rec.Code, rec.Header().Get("Location"))
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != server.CookieName || !cookies[0].HttpOnly {
		t.Fatalf("session cookie: %+v", cookies)
	}
	if _, err := f.auth.Verify(cookies[0].Value); err != nil {
		t.Fatalf("cookie token: %v", err)
	}

	rec = f.do(t, http.MethodPost, "/auth/signup", url.Values{"email": {"op@example.com"}, "password": {"secret1"}}, false)
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate signup: %d", rec.Code)
	}
	rec = f.do(t, http.MethodPost, "/auth/signup", url.Values{"email": {"new@example.com"}, "password": {"abc"}}, false)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("weak password: %d", rec.Code)
	}
	rec = f.do(t, http.MethodPost, "/auth/signup", url.Values{"email": {"new@example.com"}, "password": {"secret2"}, "next": {"/generate"}}, false)
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/generate" {
		t.Fatalf("signup: %d %q", rec.Code, rec.Header().Get("Location"))
	}

	rec = f.do(t, http.MethodPost, "/auth/logout", nil, true)
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/" {
		t.Fatalf("logout: %d %q", rec.Code, rec.Header().Get("Location"))
	}
	if c := rec.Result().Cookies(); len(c) != 1 || c[0].MaxAge >= 0 {
		t.Fatalf("logout should expire the cookie: %+v", c)
	}
}

func TestGenerateEditSave(t *testing.T) {
	gen := &fakeGen{}
	f := newFixture(t, gen)

	rec := f.do(t, http.MethodPost, "/admin/generate", url.Values{"name": {"Lampada Smart"}}, true)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing description: %d", rec.Code)
	}
	if v, _ := parse(t, rec).Find("#name").Attr("value"); v != "Lampada Smart" {
		t.Fatalf("form should be kept on error: %q", v)
	}

	form := url.Values{"name": {"Lampada Smart"}, "description": {"Luce calda"}, "language": {"en"}}
	rec = f.do(t, http.MethodPost, "/admin/generate", form, true)
	loc := rec.Header().Get("Location")
	if rec.Code != http.StatusSeeOther || loc != "/generate?lang=en&name=Lampada+Smart&temp=true" {
		t.Fatalf("generate: %d %q", rec.Code, loc)
	}

	rec = f.do(t, http.MethodGet, loc, nil, true)
	d := parse(t, rec)
	if v, _ := d.Find("#title").Attr("value"); v != "Lampada Smart AI" {
		t.Fatalf("editor should show the draft, title %q", v)
	}
	if v, _ := d.Find("#language option[selected]").Attr("value"); v != "en" {
		t.Fatalf("draft language: %q", v)
	}

	save := url.Values{
		"name":             {"Lampada Smart"},
		"language":         {"en"},
		"previousLanguage": {"en"},
		"title":            {"Smart Lamp"},
		"price":            {"$29.99"},
		"reviews":          {`[{"author":"Ann","rating":5,"comment":"Great"}]`},
	}
	bad := url.Values{}
	for k, v := range save {
		bad[k] = v
	}
	bad.Set("features", "{not json")
	rec = f.do(t, http.MethodPost, "/editor/save", bad, true)
	if rec.Code != http.StatusBadRequest || len(f.ctrl.Records()) != 0 {
		t.Fatalf("invalid json should not save: %d", rec.Code)
	}

	rec = f.do(t, http.MethodPost, "/editor/save", save, true)
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/admin" {
		t.Fatalf("save: %d %q", rec.Code, rec.Header().Get("Location"))
	}
	saved := f.ctrl.BySlug("lampada-smart")
	if saved == nil {
		t.Fatalf("record not saved")
	}
	block := saved.Translations["en"]
	if block.Title != "Smart Lamp" || block.Price != "$29.99" || len(block.Reviews) != 1 || block.Reviews[0].Author != "Ann" {
		t.Fatalf("saved content: %+v", block)
	}

	rec = f.do(t, http.MethodPost, "/editor/language", url.Values{
		"id": {saved.ID}, "name": {"Lampada Smart"}, "language": {"it"}, "previousLanguage": {"en"}, "price": {"$29.99"},
	}, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("switch language: %d", rec.Code)
	}
	if v, _ := parse(t, rec).Find("#price").Attr("value"); v != "€29.99" {
		t.Fatalf("currency should follow the language: %q", v)
	}
}

func TestGenerate_WithoutGenerator(t *testing.T) {
	f := newFixture(t, nil)
	rec := f.do(t, http.MethodPost, "/admin/generate", url.Values{"name": {"A"}, "description": {"B"}}, true)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("want 503, got %d", rec.Code)
	}
	r, _ := f.api(t, http.MethodPost, "/api/generate", `{"name":"A","description":"B"}`, true)
	if r.Code != http.StatusServiceUnavailable {
		t.Fatalf("api: want 503, got %d", r.Code)
	}
}

func TestAPI_CRUD(t *testing.T) {
	f := newFixture(t, &fakeGen{})

	rec, _ := f.api(t, http.MethodPost, "/api/pages", `{"productName":"X"}`, false)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous create: %d", rec.Code)
	}
	rec, _ = f.api(t, http.MethodPost, "/api/pages", `{"slug":"x"}`, true)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing name: %d", rec.Code)
	}

	rec, resp := f.api(t, http.MethodPost, "/api/pages", `{"productName":"Borraccia Termica","translations":{"it":{"title":"Borraccia","stockCount":"7"}}}`, true)
	if rec.Code != http.StatusCreated || !resp.Success {
		t.Fatalf("create: %d %+v", rec.Code, resp)
	}
	created := f.ctrl.BySlug("borraccia-termica")
	if created == nil || created.BaseLanguage != "it" || created.Translations["it"].StockCount != 7 || !created.CreatedAt.Equal(now) {
		t.Fatalf("created record: %+v", created)
	}

	rec, _ = f.api(t, http.MethodPut, "/api/pages/"+created.ID, `{"productName":"Borraccia Pro","baseLanguage":"en","translations":{"en":{"title":"Bottle"}}}`, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("update: %d", rec.Code)
	}
	rec, resp = f.api(t, http.MethodGet, "/api/pages/borraccia-pro", "", false)
	if rec.Code != http.StatusOK {
		t.Fatalf("get by slug: %d", rec.Code)
	}
	b, _ := json.Marshal(resp.Data)
	var got model.LandingRecord
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatal(err)
	}
	if got.ID != created.ID || got.Translations["en"].Title != "Bottle" || !got.CreatedAt.Equal(now) {
		t.Fatalf("updated record: %+v", got)
	}

	rec, _ = f.api(t, http.MethodGet, "/api/pages", "", false)
	if rec.Code != http.StatusOK {
		t.Fatalf("list: %d", rec.Code)
	}
	rec, _ = f.api(t, http.MethodDelete, "/api/pages/"+created.ID, "", true)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete: %d", rec.Code)
	}
	rec, _ = f.api(t, http.MethodDelete, "/api/pages/"+created.ID, "", true)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("second delete: %d", rec.Code)
	}

	rec, resp = f.api(t, http.MethodPost, "/api/generate", `{"name":"Zaino","description":"Urbano"}`, true)
	if rec.Code != http.StatusOK || !resp.Success {
		t.Fatalf("api generate: %d %+v", rec.Code, resp)
	}
	op, err := f.auth.Verify(f.token)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := f.ctrl.Drafts(auth.WithIdentity(context.Background(), op)).Peek(); !ok {
		t.Fatalf("api generate should stage a draft")
	}
}

func TestGenerate_DraftStaysWithItsOperator(t *testing.T) {
	f := newFixture(t, &fakeGen{})
	other, err := f.auth.SignUp(context.Background(), "altro@example.com", "secret2")
	if err != nil {
		t.Fatal(err)
	}
	otherToken, err := f.auth.Issue(other)
	if err != nil {
		t.Fatal(err)
	}

	form := url.Values{"name": {"Secret Gadget"}, "description": {"Solo per me"}, "language": {"it"}}
	rec := f.doAs(t, f.token, http.MethodPost, "/admin/generate", form)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("generate: %d", rec.Code)
	}
	loc := rec.Header().Get("Location")

	rec = f.doAs(t, otherToken, http.MethodGet, loc, nil)
	if v, _ := parse(t, rec).Find("#title").Attr("value"); v == "Secret Gadget AI" {
		t.Fatalf("another operator took the draft")
	}

	// HEAD 不消费草稿
	rec = f.doAs(t, f.token, http.MethodHead, loc, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("head: %d", rec.Code)
	}

	rec = f.doAs(t, f.token, http.MethodGet, loc, nil)
	if v, _ := parse(t, rec).Find("#title").Attr("value"); v != "Secret Gadget AI" {
		t.Fatalf("owner should get the draft, title %q", v)
	}
	rec = f.doAs(t, f.token, http.MethodGet, loc, nil)
	if v, _ := parse(t, rec).Find("#title").Attr("value"); v == "Secret Gadget AI" {
		t.Fatalf("draft must be consumed once")
	}
}

func TestEvents_StreamsAnnouncements(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	f := newFixture(t, nil)
	f.addPage(t, "p1", "Lampada Smart")

	ts := httptest.NewServer(f.srv.Handler())
	defer ts.Close()
	client := &http.Client{Transport: &http.Transport{DisableKeepAlives: true}}

	rec, err := client.Get(ts.URL + "/events/missing")
	if err != nil {
		t.Fatal(err)
	}
	rec.Body.Close()
	if rec.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown page: %d", rec.StatusCode)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/events/p1?lang=it", nil)
	resp, err := client.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type: %q", ct)
	}
	rd := bufio.NewReader(resp.Body)
	if line, err := rd.ReadString('\n'); err != nil || line != ": connected\n" {
		t.Fatalf("first line: %q %v", line, err)
	}
	if _, err := rd.ReadString('\n'); err != nil {
		t.Fatal(err)
	}

	f.clock.Advance(5 * time.Second)
	line, err := rd.ReadString('\n')
	if err != nil {
		t.Fatal(err)
	}
	var ev engage.Event
	if err := json.Unmarshal([]byte(strings.TrimPrefix(strings.TrimSpace(line), "data: ")), &ev); err != nil {
		t.Fatalf("decode %q: %v", line, err)
	}
	if ev.Kind != engage.EventAnnouncement || ev.Index != 1 {
		t.Fatalf("event: %+v", ev)
	}

	cancel()
	resp.Body.Close()
	ts.Close()
	client.CloseIdleConnections()
	if n := f.clock.Pending(); n != 0 {
		t.Fatalf("simulator should stop with the stream, %d timers pending", n)
	}
}
