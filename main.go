// 命令行入口：
// - 解析 flags 与 settings.yaml/rules.yaml
// - 初始化日志、HTTP 客户端、存储、认证与 AI 生成服务
// - 默认启动 HTTP 服务；-import 从商品来源批量生成落地页，-export 导出 JSON 后退出
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go-landing-studio/internal/app"
	"go-landing-studio/internal/auth"
	"go-landing-studio/internal/batch"
	"go-landing-studio/internal/catalog"
	"go-landing-studio/internal/config"
	"go-landing-studio/internal/export"
	"go-landing-studio/internal/fetch"
	"go-landing-studio/internal/generate"
	"go-landing-studio/internal/logx"
	"go-landing-studio/internal/render"
	"go-landing-studio/internal/router"
	"go-landing-studio/internal/rules"
	"go-landing-studio/internal/server"
	"go-landing-studio/internal/store"
)

func main() {
	var (
		configPath = flag.String("config", "settings.yaml", "path to settings.yaml")
		rulesPath  = flag.String("rules", "rules.yaml", "path to rules.yaml (optional)")
		exportPath = flag.String("export", "", "export all pages to this json file and exit")
		doImport   = flag.Bool("import", false, "generate pages from CATALOG.sources and exit")
		addr       = flag.String("addr", "", "listen address, overrides SERVER.addr")
	)
	flag.Parse()

	// 1) 加载配置与规则
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	var rl *rules.Rules
	if *rulesPath != "" {
		if r, err := rules.Load(*rulesPath); err == nil {
			rl = r
		} else {
			log.Printf("load rules failed: %v", err)
		}
	}
	// 2) 初始化日志：级别/格式/语言/颜色
	logx.Init(cfg.LogLevel, cfg.LogFormat, cfg.LogLocale, cfg.LogColor)
	if rl != nil {
		logx.Debugf("已加载解析预设：%v", rl.Names())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3) 存储：极简模式使用内存，正常模式打开 SQLite 并按需重置
	var st store.Backend
	if cfg.SimpleMode {
		logx.Infof("极简模式：数据只保存在内存中")
		st = store.NewMemory()
	} else {
		db, err := store.OpenSQLite(cfg.Database.DSN)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		st = db
	}
	defer st.Close()
	if cfg.ResetOnStart {
		if err := st.Reset(ctx); err != nil {
			logx.Warnf("启动清理数据库失败：%v", err)
		} else {
			logx.Infof("已清理落地页数据")
		}
	}

	ctrl := app.New(st)
	if err := ctrl.Load(ctx); err != nil {
		log.Fatalf("load pages: %v", err)
	}

	// 4) 导出模式
	if *exportPath != "" {
		if err := export.ToJSON(ctx, st, *exportPath); err != nil {
			log.Fatalf("export json: %v", err)
		}
		logx.Infof("已导出 %s", *exportPath)
		return
	}

	// 5) 认证与运营会话
	svc, err := auth.NewService(st, cfg.Auth.Secret, cfg.Auth.SessionTTL)
	if err != nil {
		log.Fatalf("auth: %v", err)
	}
	sess := auth.NewSession(svc)
	unwatch := ctrl.Watch(sess)
	defer unwatch()
	if cfg.Auth.OperatorEmail != "" && cfg.Auth.OperatorPassword != "" {
		if err := signInOperator(ctx, svc, sess, cfg.Auth.OperatorEmail, cfg.Auth.OperatorPassword); err != nil {
			logx.Warnf("运营账号登录失败 %s: %v", cfg.Auth.OperatorEmail, err)
		}
	}

	// 6) AI 生成服务；未配置密钥时服务仍可启动，只是生成接口不可用
	var gen generate.Service
	if g, err := generate.NewGemini(ctx, cfg.GenAI.APIKey, cfg.GenAI.TextModel, cfg.GenAI.ImageModel); err == nil {
		gen = g
	} else {
		logx.Warnf("AI 生成服务不可用：%v", err)
	}

	if *doImport {
		if code := runImport(ctx, cfg, rl, gen, ctrl); code != 0 {
			unwatch()
			st.Close()
			os.Exit(code)
		}
		return
	}

	mode, _ := router.ParseMode(cfg.Server.RouteMode)
	pages, err := render.New(mode)
	if err != nil {
		log.Fatalf("templates: %v", err)
	}
	srv := server.New(ctrl, svc, gen, pages, server.Options{
		Mode:            mode,
		GenerateTimeout: cfg.GenAI.Timeout,
		SessionTTL:      cfg.Auth.SessionTTL,
	})
	hs := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := hs.Shutdown(shutdownCtx); err != nil {
			logx.Warnf("关闭 HTTP 服务失败：%v", err)
		}
	}()
	logx.Infof("HTTP 服务启动 addr=%s 路由模式=%s 页面=%d", cfg.Server.Addr, cfg.Server.RouteMode, len(ctrl.Records()))
	if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("listen: %v", err)
	}
	logx.Infof("HTTP 服务已停止")
}

// signInOperator 登录运营账号；账号不存在时先注册。
func signInOperator(ctx context.Context, svc *auth.Service, sess *auth.Session, email, password string) error {
	err := sess.SignIn(ctx, email, password)
	if !errors.Is(err, auth.ErrInvalidCredentials) {
		return err
	}
	if _, err := svc.SignUp(ctx, email, password); err != nil {
		return err
	}
	logx.Infof("已创建运营账号 %s", email)
	return sess.SignIn(ctx, email, password)
}

// runImport 抓取商品种子并批量生成落地页，返回进程退出码。
func runImport(ctx context.Context, cfg *config.Config, rl *rules.Rules, gen generate.Service, ctrl *app.Controller) int {
	if gen == nil {
		logx.Errorf("批量导入需要 GENAI.api_key")
		return 1
	}
	if len(cfg.Catalog.Sources) == 0 {
		logx.Warnf("CATALOG.sources 为空，无事可做")
		return 0
	}
	cl, err := fetch.New(fetch.Options{
		ProxyHTTP:  cfg.Proxy.HTTP,
		ProxyHTTPS: cfg.Proxy.HTTPS,
		Timeout:    25 * time.Second,
		Retry:      cfg.Concurrency.Retry,
	})
	if err != nil {
		logx.Errorf("HTTP 客户端初始化失败：%v", err)
		return 1
	}

	seeds := catalog.New(cl, rl, cfg.Concurrency.Fetch).Import(ctx, cfg.Catalog.Sources)
	if len(seeds) == 0 {
		logx.Warnf("未从来源解析到商品，请检查 CATALOG.sources 与 rules.yaml 选择器。")
		return 0
	}
	runner := batch.New(gen, ctrl, cfg.Catalog.Defaults, cfg.Concurrency.Generate)
	runner.Timeout = cfg.GenAI.Timeout
	rep := runner.Run(ctx, seeds)
	for _, r := range rep.Results {
		if r.Error != "" {
			logx.Warnf("- %s 失败：%s", r.Seed, r.Error)
		} else {
			logx.Infof("- %s → /%s", r.Seed, r.Slug)
		}
	}
	logx.Infof("批量导入完成：种子=%d 成功=%d 失败=%d", rep.Seeds, rep.Created, rep.Failed)
	if rep.Failed > 0 && rep.Created == 0 {
		return 1
	}
	return 0
}
