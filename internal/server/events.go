package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"go-landing-studio/internal/engage"
	"go-landing-studio/internal/locale"
	"go-landing-studio/internal/logx"
	"go-landing-studio/internal/store"
)

// heartbeat 为 SSE 注释行的发送周期，防止代理断开空闲连接。
const heartbeat = 15 * time.Second

// handleEvents 以 SSE 推送公开页的公告轮播与购买弹窗。
// 每个连接一个模拟器，连接断开即停止；客户端读得慢时丢弃事件。
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	rec := s.app.ByID(id)
	if rec == nil {
		rec = s.app.BySlug(id)
	}
	if rec == nil {
		s.sendError(w, fmt.Errorf("events %s: %w", id, store.ErrNotFound))
		return
	}
	tag := r.URL.Query().Get("lang")
	if tag == "" {
		tag = locale.Match(r.Header.Get("Accept-Language"), rec.Locales())
	}
	block, tag, ok := rec.Content(tag)
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	events := make(chan engage.Event, 16)
	sim := engage.NewSimulator(s.opts.Clock, nil, block, tag, func(ev engage.Event) {
		select {
		case events <- ev:
		default:
			logx.Debugf("SSE 客户端过慢，丢弃事件 %s", ev.Kind)
		}
	})
	defer sim.Stop()

	if _, err := fmt.Fprint(w, ": connected\n\n"); err != nil {
		return
	}
	flusher.Flush()
	logx.Debugf("SSE 连接 %s lang=%s", rec.Slug, tag)

	tick := time.NewTicker(heartbeat)
	defer tick.Stop()
	for {
		select {
		case <-r.Context().Done():
			logx.Debugf("SSE 断开 %s", rec.Slug)
			return
		case <-tick.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case ev := <-events:
			b, err := json.Marshal(ev)
			if err != nil {
				logx.Warnf("编码 SSE 事件失败：%v", err)
				continue
			}
			if _, err := fmt.Fprintf(w, "data: %s\n\n", b); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
