package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"mime"
	"net"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/nizhen/weeklog/internal/eventbus"
	"github.com/nizhen/weeklog/internal/pkg/config"
	"github.com/nizhen/weeklog/internal/service"
	"github.com/nizhen/weeklog/internal/uiassets"
)

// Deps 服务器依赖。全部在 main 里装配好后注入。
type Deps struct {
	Cfg       *config.Config
	Hub       *eventbus.Hub
	Snippets  *service.EntryService
	Goals     *service.EntryService
	Reflects  *service.EntryService
	Scores    *service.ScoreService
	Views     *service.ViewService
	Endeavors *service.EndeavorService
	Flags     func() service.FeatureFlags
	Now       func() time.Time // 留空则用 time.Now
}

type LocalServer struct {
	hub     *eventbus.Hub
	ln      net.Listener
	srv     *http.Server
	baseURL string
}

type Options struct {
	ListenAddr string // e.g. "127.0.0.1:8760"
}

func Start(ctx context.Context, deps Deps, opts Options) (*LocalServer, error) {
	if deps.Cfg == nil {
		return nil, fmt.Errorf("cfg 不能为空")
	}
	if strings.TrimSpace(opts.ListenAddr) == "" {
		opts.ListenAddr = "127.0.0.1:0"
	}

	ln, err := net.Listen("tcp", opts.ListenAddr)
	if err != nil {
		return nil, err
	}

	_, portStr, err := net.SplitHostPort(ln.Addr().String())
	if err != nil {
		_ = ln.Close()
		return nil, err
	}
	baseURL := "http://127.0.0.1:" + portStr

	hub := deps.Hub
	if hub == nil {
		hub = eventbus.NewHub()
	}

	gate := newAuthGate(deps.Cfg.Auth, time.Duration(deps.Cfg.Server.SessionTTLMin)*time.Minute)
	if !gate.enabled() {
		slog.Warn("未配置登录凭证，门禁关闭，仅建议用于本机部署")
	}

	api := newAPI(deps, hub, gate)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", api.handleHealth)
	mux.HandleFunc("GET /api/events", api.handleSSE)
	api.registerJSONRoutes(mux)
	mux.Handle("/", staticHandler(uiassets.FS(), "index.html"))

	srv := &http.Server{
		Handler:           gate.requireAuth(mux),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ls := &LocalServer{
		hub:     hub,
		ln:      ln,
		srv:     srv,
		baseURL: baseURL,
	}

	go func() {
		<-ctx.Done()
		_ = ls.Shutdown(context.Background())
	}()

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server 异常退出", "error", err)
		}
	}()

	slog.Info("本地 HTTP 已启动", "base_url", baseURL)
	return ls, nil
}

func (s *LocalServer) BaseURL() string {
	if s == nil {
		return ""
	}
	return s.baseURL
}

func (s *LocalServer) Shutdown(ctx context.Context) error {
	if s == nil || s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

// staticHandler 提供嵌入的静态页面，/ 映射到 index.html
func staticHandler(assetFS fs.FS, index string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		upath := r.URL.Path
		if upath == "" || upath == "/" {
			serveAsset(w, r, assetFS, index)
			return
		}

		clean := path.Clean(upath)
		clean = strings.TrimPrefix(clean, "/")
		if strings.Contains(clean, "..") {
			http.NotFound(w, r)
			return
		}

		serveAsset(w, r, assetFS, clean)
	})
}

func serveAsset(w http.ResponseWriter, r *http.Request, assetFS fs.FS, name string) {
	f, err := assetFS.Open(name)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil || stat.IsDir() {
		http.NotFound(w, r)
		return
	}

	if ctype := mime.TypeByExtension(path.Ext(name)); ctype != "" {
		w.Header().Set("Content-Type", ctype)
	}
	payload, err := io.ReadAll(f)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	http.ServeContent(w, r, name, stat.ModTime(), bytes.NewReader(payload))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"error": msg})
}

func readJSON(r *http.Request, out any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	dec.DisallowUnknownFields()
	return dec.Decode(out)
}
