package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/nizhen/weeklog/internal/eventbus"
	"github.com/nizhen/weeklog/internal/service"
	"github.com/nizhen/weeklog/internal/week"
)

// ========== DTOs（与前端契约保持稳定） ==========

type LoginRequestDTO struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type ConfigDTO struct {
	Name     string      `json:"name"`
	Version  string      `json:"version"`
	Features FeaturesDTO `json:"features"`
}

type FeaturesDTO struct {
	Goals       bool `json:"goals"`
	Reflections bool `json:"reflections"`
	DailyScores bool `json:"daily_scores"`
}

type CreateEntryRequestDTO struct {
	WeekStart string `json:"week_start"`
	WeekEnd   string `json:"week_end"`
	Content   string `json:"content"`
	Endeavor  string `json:"endeavor"`
}

type UpdateEntryRequestDTO struct {
	Content string `json:"content"`
}

type ToggleScoreRequestDTO struct {
	Date     string `json:"date"`
	Endeavor string `json:"endeavor"`
}

type RenameEndeavorRequestDTO struct {
	OldName string `json:"old_name"`
	NewName string `json:"new_name"`
}

type WeekInfoDTO struct {
	WeekStart  string `json:"week_start"`
	WeekEnd    string `json:"week_end"`
	WeekNumber int    `json:"week_number"`
	IsFuture   bool   `json:"is_future"`
	Label      string `json:"label"`
}

// ========== routes ==========

type apiServer struct {
	deps      Deps
	hub       *eventbus.Hub
	gate      *authGate
	now       func() time.Time
	startTime time.Time
}

func newAPI(deps Deps, hub *eventbus.Hub, gate *authGate) *apiServer {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &apiServer{
		deps:      deps,
		hub:       hub,
		gate:      gate,
		now:       now,
		startTime: time.Now(),
	}
}

func (a *apiServer) registerJSONRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/login", a.handleLogin)
	mux.HandleFunc("POST /api/logout", a.handleLogout)

	mux.HandleFunc("GET /api/config", a.handleConfig)
	mux.HandleFunc("GET /api/weeks", a.handleWeeks)
	mux.HandleFunc("GET /api/week/{date}", a.handleWeekInfo)

	a.registerEntryRoutes(mux, "snippets", a.deps.Snippets, func() bool { return true })
	a.registerEntryRoutes(mux, "goals", a.deps.Goals, func() bool { return a.deps.Flags().Goals })
	a.registerEntryRoutes(mux, "reflections", a.deps.Reflects, func() bool { return a.deps.Flags().Reflections })

	mux.HandleFunc("GET /api/daily_scores", a.handleListScores)
	mux.HandleFunc("POST /api/daily_scores/toggle", a.handleToggleScore)

	mux.HandleFunc("GET /api/endeavors", a.handleListEndeavors)
	mux.HandleFunc("POST /api/endeavors/rename", a.handleRenameEndeavor)
}

// registerEntryRoutes 三个条目集合的路由形态完全一致，只在路径前缀、
// 底层服务和功能开关上有区别
func (a *apiServer) registerEntryRoutes(mux *http.ServeMux, name string, svc *service.EntryService, enabled func() bool) {
	prefix := "/api/" + name

	gated := func(fn func(http.ResponseWriter, *http.Request)) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if !enabled() {
				a.writeServiceError(w, service.ErrFeatureDisabled)
				return
			}
			fn(w, r)
		}
	}

	mux.HandleFunc("GET "+prefix, gated(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		entries, err := svc.List(r.Context(), q.Get("start_date"), q.Get("end_date"), q.Get("endeavor"))
		if err != nil {
			a.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, entries)
	}))

	mux.HandleFunc("POST "+prefix, gated(func(w http.ResponseWriter, r *http.Request) {
		var req CreateEntryRequestDTO
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "请求体解析失败: "+err.Error())
			return
		}
		entry, err := svc.Create(r.Context(), service.CreateEntryInput{
			WeekStart: req.WeekStart,
			WeekEnd:   req.WeekEnd,
			Content:   req.Content,
			Endeavor:  req.Endeavor,
		})
		if err != nil {
			a.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, entry)
	}))

	mux.HandleFunc("GET "+prefix+"/{id}", gated(func(w http.ResponseWriter, r *http.Request) {
		entry, err := svc.Get(r.Context(), r.PathValue("id"))
		if err != nil {
			a.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, entry)
	}))

	mux.HandleFunc("PUT "+prefix+"/{id}", gated(func(w http.ResponseWriter, r *http.Request) {
		var req UpdateEntryRequestDTO
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "请求体解析失败: "+err.Error())
			return
		}
		entry, err := svc.Update(r.Context(), r.PathValue("id"), req.Content)
		if err != nil {
			a.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, entry)
	}))

	mux.HandleFunc("DELETE "+prefix+"/{id}", gated(func(w http.ResponseWriter, r *http.Request) {
		if err := svc.Delete(r.Context(), r.PathValue("id")); err != nil {
			a.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"deleted": true})
	}))
}

// writeServiceError 服务层错误到 HTTP 状态码的统一映射
func (a *apiServer) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrValidation) || errors.Is(err, service.ErrInvalidRange):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrNotFound) || errors.Is(err, service.ErrFeatureDisabled):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		slog.Error("请求处理失败", "error", err)
		writeError(w, http.StatusInternalServerError, "内部错误")
	}
}

// ========== handlers ==========

func (a *apiServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":         true,
		"name":       a.deps.Cfg.App.Name,
		"version":    a.deps.Cfg.App.Version,
		"started_at": a.startTime.Format(time.RFC3339),
	})
}

func (a *apiServer) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequestDTO
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "请求体解析失败: "+err.Error())
		return
	}
	if !a.gate.checkCredentials(req.Username, req.Password) {
		writeError(w, http.StatusUnauthorized, "用户名或密码错误")
		return
	}
	token, err := a.gate.sessions.Issue()
	if err != nil {
		slog.Error("签发会话失败", "error", err)
		writeError(w, http.StatusInternalServerError, "内部错误")
		return
	}
	a.gate.setSessionCookie(w, token)
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (a *apiServer) handleLogout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(sessionCookieName); err == nil {
		a.gate.sessions.Revoke(c.Value)
	}
	a.gate.clearSessionCookie(w)
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (a *apiServer) handleConfig(w http.ResponseWriter, r *http.Request) {
	flags := a.deps.Flags()
	writeJSON(w, http.StatusOK, ConfigDTO{
		Name:    a.deps.Cfg.App.Name,
		Version: a.deps.Cfg.App.Version,
		Features: FeaturesDTO{
			Goals:       flags.Goals,
			Reflections: flags.Reflections,
			DailyScores: flags.DailyScores,
		},
	})
}

// handleWeeks 主视图：日期范围展开为周桶序列并合并四个集合的数据
func (a *apiServer) handleWeeks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	views, err := a.deps.Views.WeekViews(r.Context(), q.Get("start_date"), q.Get("end_date"), q.Get("endeavor"))
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

// handleWeekInfo 任意日期所属周的元信息，供前端定位编辑目标
func (a *apiServer) handleWeekInfo(w http.ResponseWriter, r *http.Request) {
	d, err := week.ParseISO(r.PathValue("date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "日期格式错误，请使用 YYYY-MM-DD")
		return
	}

	b := week.WeekOf(d)
	start := week.FormatISO(b.WeekStart)
	end := week.FormatISO(b.WeekEnd)
	writeJSON(w, http.StatusOK, WeekInfoDTO{
		WeekStart:  start,
		WeekEnd:    end,
		WeekNumber: week.ISOWeekNumber(b.WeekStart),
		IsFuture:   b.FutureOf(a.now()),
		Label:      start + " ~ " + end,
	})
}

func (a *apiServer) handleListScores(w http.ResponseWriter, r *http.Request) {
	if !a.deps.Flags().DailyScores {
		a.writeServiceError(w, service.ErrFeatureDisabled)
		return
	}
	q := r.URL.Query()
	scores, err := a.deps.Scores.List(r.Context(), q.Get("start_date"), q.Get("end_date"), q.Get("endeavor"))
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, scores)
}

func (a *apiServer) handleToggleScore(w http.ResponseWriter, r *http.Request) {
	if !a.deps.Flags().DailyScores {
		a.writeServiceError(w, service.ErrFeatureDisabled)
		return
	}
	var req ToggleScoreRequestDTO
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "请求体解析失败: "+err.Error())
		return
	}
	res, err := a.deps.Scores.Toggle(r.Context(), req.Date, req.Endeavor)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (a *apiServer) handleListEndeavors(w http.ResponseWriter, r *http.Request) {
	names, err := a.deps.Endeavors.List(r.Context())
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, names)
}

// handleRenameEndeavor 改名是跨集合的尽力而为操作，
// 失败时也把已完成集合的行数带回去，前端据此提示重试
func (a *apiServer) handleRenameEndeavor(w http.ResponseWriter, r *http.Request) {
	var req RenameEndeavorRequestDTO
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "请求体解析失败: "+err.Error())
		return
	}

	result, err := a.deps.Endeavors.Rename(r.Context(), req.OldName, req.NewName)
	if err != nil {
		if errors.Is(err, service.ErrValidation) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		slog.Error("改名事业线失败", "error", err, "old", req.OldName, "new", req.NewName)
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"error":   err.Error(),
			"updated": result,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":      true,
		"updated": result,
	})
}

func (a *apiServer) handleSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "stream not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ctx := r.Context()
	sub := a.hub.Subscribe(ctx, 32)

	// initial event
	_, _ = io.WriteString(w, "event: ready\n")
	_, _ = io.WriteString(w, "data: {}\n\n")
	flusher.Flush()

	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = io.WriteString(w, "event: ping\n")
			_, _ = io.WriteString(w, "data: {}\n\n")
			flusher.Flush()
		case evt, ok := <-sub:
			if !ok {
				return
			}
			b, _ := json.Marshal(evt)
			_, _ = io.WriteString(w, "event: "+sanitizeSSEName(evt.Type)+"\n")
			_, _ = io.WriteString(w, "data: ")
			_, _ = w.Write(b)
			_, _ = io.WriteString(w, "\n\n")
			flusher.Flush()
		}
	}
}

func sanitizeSSEName(name string) string {
	n := strings.TrimSpace(name)
	if n == "" {
		return "message"
	}
	n = strings.ReplaceAll(n, "\n", "")
	n = strings.ReplaceAll(n, "\r", "")
	return n
}
