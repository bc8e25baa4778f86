package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/nizhen/weeklog/internal/pkg/config"
)

func TestSessionStoreIssueAndRevoke(t *testing.T) {
	store := newSessionStore(time.Hour)

	token, err := store.Issue()
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if len(token) != 32 {
		t.Fatalf("token 应为 128 位十六进制: %q", token)
	}
	if !store.Valid(token) {
		t.Fatalf("新签发的会话应有效")
	}
	if store.Valid("forged-token") {
		t.Fatalf("伪造会话不应有效")
	}

	store.Revoke(token)
	if store.Valid(token) {
		t.Fatalf("注销后会话应失效")
	}
}

func TestCheckCredentials(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}

	gate := newAuthGate(config.AuthConfig{
		Username:       "nizhen",
		PasswordBcrypt: string(hash),
	}, time.Hour)

	if !gate.enabled() {
		t.Fatalf("配了密码哈希应启用门禁")
	}
	if !gate.checkCredentials("nizhen", "s3cret") {
		t.Fatalf("正确凭证应通过")
	}
	if gate.checkCredentials("nizhen", "wrong") || gate.checkCredentials("other", "s3cret") {
		t.Fatalf("错误凭证不应通过")
	}

	// 明文密码兜底
	plain := newAuthGate(config.AuthConfig{Username: "nizhen", Password: "p"}, time.Hour)
	if !plain.checkCredentials("nizhen", "p") || plain.checkCredentials("nizhen", "q") {
		t.Fatalf("明文密码校验错误")
	}
}

func TestRequireAuth(t *testing.T) {
	gate := newAuthGate(config.AuthConfig{Username: "nizhen", Password: "p"}, time.Hour)
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	h := gate.requireAuth(next)

	// API 请求未登录返回 401
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/weeks", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("code=%d, want 401", rec.Code)
	}

	// 页面请求未登录重定向到登录页
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/login.html" {
		t.Fatalf("code=%d location=%q", rec.Code, rec.Header().Get("Location"))
	}

	// 公开路径直接放行
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("code=%d, want 200", rec.Code)
	}

	// 带有效会话放行
	token, err := gate.sessions.Issue()
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/api/weeks", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: token})
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("code=%d, want 200", rec.Code)
	}
}
