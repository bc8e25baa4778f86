package httpapi

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/nizhen/weeklog/internal/pkg/config"
)

const sessionCookieName = "weeklog_session"

// sessionStore 内存会话表。单用户单进程，不值得为它上数据库，
// 进程重启后重新登录即可。
type sessionStore struct {
	mu       sync.Mutex
	sessions map[string]time.Time // token -> 过期时刻
	ttl      time.Duration
}

func newSessionStore(ttl time.Duration) *sessionStore {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &sessionStore{
		sessions: make(map[string]time.Time),
		ttl:      ttl,
	}
}

// Issue 签发新会话，顺带清理过期会话
func (s *sessionStore) Issue() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	token := hex.EncodeToString(buf)

	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	for t, exp := range s.sessions {
		if now.After(exp) {
			delete(s.sessions, t)
		}
	}
	s.sessions[token] = now.Add(s.ttl)
	return token, nil
}

// Valid 校验会话是否存在且未过期
func (s *sessionStore) Valid(token string) bool {
	if token == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	exp, ok := s.sessions[token]
	if !ok {
		return false
	}
	if time.Now().After(exp) {
		delete(s.sessions, token)
		return false
	}
	return true
}

// Revoke 注销会话
func (s *sessionStore) Revoke(token string) {
	if token == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
}

// authGate 登录门禁。凭证未配置时门禁关闭，适用于纯本机部署。
type authGate struct {
	auth     config.AuthConfig
	sessions *sessionStore
}

func newAuthGate(auth config.AuthConfig, ttl time.Duration) *authGate {
	return &authGate{
		auth:     auth,
		sessions: newSessionStore(ttl),
	}
}

// enabled 是否启用登录门禁
func (g *authGate) enabled() bool {
	return g.auth.Password != "" || g.auth.PasswordBcrypt != ""
}

// checkCredentials 校验用户名密码。
// 配了 password_bcrypt 时优先走 bcrypt，明文 password 只作本机部署的兜底。
func (g *authGate) checkCredentials(username, password string) bool {
	if subtle.ConstantTimeCompare([]byte(username), []byte(g.auth.Username)) != 1 {
		return false
	}
	if g.auth.PasswordBcrypt != "" {
		return bcrypt.CompareHashAndPassword([]byte(g.auth.PasswordBcrypt), []byte(password)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(password), []byte(g.auth.Password)) == 1
}

// authorized 请求是否携带有效会话
func (g *authGate) authorized(r *http.Request) bool {
	if !g.enabled() {
		return true
	}
	c, err := r.Cookie(sessionCookieName)
	if err != nil {
		return false
	}
	return g.sessions.Valid(c.Value)
}

func (g *authGate) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(g.sessions.ttl / time.Second),
	})
}

func (g *authGate) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}

// publicPath 无需登录即可访问的路径
func publicPath(p string) bool {
	switch p {
	case "/health", "/api/login", "/login.html", "/style.css":
		return true
	}
	return false
}

// requireAuth 登录校验中间件。API 请求返回 401 JSON，页面请求重定向到登录页。
func (g *authGate) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if publicPath(r.URL.Path) || g.authorized(r) {
			next.ServeHTTP(w, r)
			return
		}
		if strings.HasPrefix(r.URL.Path, "/api/") {
			writeError(w, http.StatusUnauthorized, "未登录")
			return
		}
		http.Redirect(w, r, "/login.html", http.StatusFound)
	})
}
