// 包 server 为 HTTP 传输层：gorilla/mux 路由、会话 Cookie、HTML 表单、JSON API 与 SSE 互动事件。
// 页面请求先经 router.Parse/Resolve 决定视图；处理器中的程序导航统一转成 303 跳转。
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"go-landing-studio/internal/app"
	"go-landing-studio/internal/auth"
	"go-landing-studio/internal/composer"
	"go-landing-studio/internal/engage"
	"go-landing-studio/internal/generate"
	"go-landing-studio/internal/logx"
	"go-landing-studio/internal/render"
	"go-landing-studio/internal/router"
	"go-landing-studio/internal/store"
)

// CookieName 为保存会话 JWT 的 Cookie。
const CookieName = "landing_session"

var (
	errBadRequest      = errors.New("bad request")
	errNoGenerator     = errors.New("generator not configured")
	errUnauthenticated = errors.New("authentication required")
)

// Options 为服务器的可选参数。
type Options struct {
	Mode            router.Mode
	GenerateTimeout time.Duration
	// Clock 驱动 SSE 中的互动模拟器；默认真实时钟。
	Clock        engage.Clock
	SecureCookie bool
	SessionTTL   time.Duration
	Now          func() time.Time
}

// Server 持有控制器、认证、生成服务与页面渲染器。
type Server struct {
	app    *app.Controller
	auth   *auth.Service
	gen    generate.Service
	pages  *render.Renderer
	opts   Options
	router *mux.Router
}

// APIResponse 为 JSON API 的统一响应。
type APIResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// New 创建服务器并注册路由；gen 为 nil 时生成接口返回 503。
func New(ctrl *app.Controller, authSvc *auth.Service, gen generate.Service, pages *render.Renderer, opts Options) *Server {
	if opts.Clock == nil {
		opts.Clock = engage.RealClock{}
	}
	if opts.GenerateTimeout <= 0 {
		opts.GenerateTimeout = 120 * time.Second
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = 168 * time.Hour
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	s := &Server{app: ctrl, auth: authSvc, gen: gen, pages: pages, opts: opts, router: mux.NewRouter()}
	s.setupRoutes()
	return s
}

// Handler 返回根处理器。
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) setupRoutes() {
	r := s.router
	r.Use(s.logMiddleware, s.identityMiddleware)

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/pages", s.handleListPages).Methods(http.MethodGet)
	api.HandleFunc("/pages/{id}", s.handleGetPage).Methods(http.MethodGet)
	api.HandleFunc("/pages", s.requireAPI(s.handleCreatePage)).Methods(http.MethodPost)
	api.HandleFunc("/pages/{id}", s.requireAPI(s.handleUpdatePage)).Methods(http.MethodPut)
	api.HandleFunc("/pages/{id}", s.requireAPI(s.handleDeletePage)).Methods(http.MethodDelete)
	api.HandleFunc("/generate", s.requireAPI(s.handleAPIGenerate)).Methods(http.MethodPost)

	r.HandleFunc("/auth/login", s.handleLogin).Methods(http.MethodPost)
	r.HandleFunc("/auth/signup", s.handleSignup).Methods(http.MethodPost)
	r.HandleFunc("/auth/logout", s.handleLogout).Methods(http.MethodPost)

	r.HandleFunc("/admin/generate", s.requirePage(s.handleAdminGenerate)).Methods(http.MethodPost)
	r.HandleFunc("/admin/delete", s.requirePage(s.handleAdminDelete)).Methods(http.MethodPost)
	r.HandleFunc("/editor/save", s.requirePage(s.handleEditorSave)).Methods(http.MethodPost)
	r.HandleFunc("/editor/language", s.requirePage(s.handleEditorLanguage)).Methods(http.MethodPost)

	r.HandleFunc("/events/{id}", s.handleEvents).Methods(http.MethodGet)

	r.PathPrefix("/").HandlerFunc(s.handlePage).Methods(http.MethodGet, http.MethodHead)
}

// identityMiddleware 从 Cookie 或 Bearer 头恢复身份并放入请求上下文。
func (s *Server) identityMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := ""
		if c, err := r.Cookie(CookieName); err == nil {
			token = c.Value
		}
		if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
			token = strings.TrimPrefix(h, "Bearer ")
		}
		if token != "" {
			if id, err := s.auth.Verify(token); err == nil {
				r = r.WithContext(auth.WithIdentity(r.Context(), id))
			} else {
				logx.Debugf("会话令牌无效：%v", err)
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		logx.Debugf("%s %s %d %s", r.Method, r.URL.Path, sw.status, time.Since(start).Round(time.Millisecond))
	})
}

// statusWriter 记录状态码，并透传 Flush 以支持 SSE。
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// requireAPI 未登录时返回 401 JSON。
func (s *Server) requireAPI(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := auth.IdentityFrom(r.Context()); !ok {
			s.sendError(w, errUnauthenticated)
			return
		}
		next(w, r)
	}
}

// requirePage 未登录时跳转到登录页，登录后回到管理页。
func (s *Server) requirePage(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := auth.IdentityFrom(r.Context()); !ok {
			target := router.BuildURL(router.PageAuth, map[string]string{"next": "/" + router.PageAdmin}, s.opts.Mode)
			http.Redirect(w, r, target, http.StatusSeeOther)
			return
		}
		next(w, r)
	}
}

// navigator 以当前请求为初始地址创建导航器。
func (s *Server) navigator(r *http.Request) *router.Navigator {
	return router.NewNavigator(r.URL.RequestURI(), s.opts.Mode)
}

// follow 在处理器发生过导航时发出 303 跳转，返回是否已跳转。
func follow(w http.ResponseWriter, r *http.Request, nav *router.Navigator) bool {
	if !nav.Navigated() {
		return false
	}
	http.Redirect(w, r, nav.URL(), http.StatusSeeOther)
	return true
}

// statusOf 把错误分类映射为 HTTP 状态码：校验 400、认证 401、不存在 404、冲突 409、外部依赖失败 502。
func statusOf(err error) int {
	var ve *composer.ValidationError
	switch {
	case errors.As(err, &ve), errors.Is(err, errBadRequest),
		errors.Is(err, auth.ErrWeakPassword), errors.Is(err, auth.ErrInvalidEmail):
		return http.StatusBadRequest
	case errors.Is(err, errUnauthenticated), errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, auth.ErrEmailTaken), errors.Is(err, store.ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, errNoGenerator):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

// messageOf 返回面向运营者的提示文案。
func messageOf(err error) string {
	var ve *composer.ValidationError
	switch {
	case errors.As(err, &ve):
		return ve.Message
	case errors.Is(err, auth.ErrInvalidCredentials):
		return "Email o password non validi."
	case errors.Is(err, auth.ErrEmailTaken):
		return "Questa email è già registrata."
	case errors.Is(err, auth.ErrWeakPassword):
		return "La password deve avere almeno 6 caratteri."
	case errors.Is(err, auth.ErrInvalidEmail):
		return "Indirizzo email non valido."
	case errors.Is(err, store.ErrNotFound):
		return "Landing page non trovata."
	case errors.Is(err, errNoGenerator):
		return "Il generatore AI non è configurato."
	case errors.Is(err, context.DeadlineExceeded):
		return "La generazione ha impiegato troppo tempo. Riprova."
	default:
		return "Si è verificato un errore: " + err.Error()
	}
}

func (s *Server) sendJSON(w http.ResponseWriter, data any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logx.Warnf("写入 JSON 响应失败：%v", err)
	}
}

func (s *Server) sendSuccess(w http.ResponseWriter, status int, message string, data any) {
	s.sendJSON(w, APIResponse{Success: true, Message: message, Data: data}, status)
}

func (s *Server) sendError(w http.ResponseWriter, err error) {
	s.sendJSON(w, APIResponse{Success: false, Error: err.Error()}, statusOf(err))
}

// renderPage 先渲染到缓冲区，成功后再写状态码，模板出错时返回 500。
func (s *Server) renderPage(w http.ResponseWriter, status int, page, lang, title string, view any) {
	var buf bytes.Buffer
	if err := s.pages.Render(&buf, page, lang, title, view); err != nil {
		logx.Errorf("渲染页面失败 %s: %v", page, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.sendSuccess(w, http.StatusOK, "ok", map[string]any{
		"status": "healthy",
		"pages":  len(s.app.Records()),
	})
}

func (s *Server) setSession(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.opts.SecureCookie,
		SameSite: http.SameSiteLaxMode,
		Expires:  s.opts.Now().Add(s.opts.SessionTTL),
	})
}

func (s *Server) clearSession(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   s.opts.SecureCookie,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}

// safeNext 只接受站内相对路径，防止开放跳转。
func safeNext(next string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/" + router.PageAdmin
	}
	return next
}
