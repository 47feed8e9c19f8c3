// Package auth はログインページとセッション処理を提供します。
// 認証情報が設定されていない場合、ログインは検証なしでダッシュボードへ
// リダイレクトします（ローカル利用を想定）。
package auth

import (
	"net/http"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"github.com/Saniya-Mehdi/Aistudybuddy/internal/config"
)

const (
	SessionCookieName = "sb_session"
	sessionKeyUser    = "auth_user"

	anonymousUser = "guest"
)

var maxSessionLifetime = 12 * time.Hour

// SessionMaxAgeSeconds はクッキーの MaxAge に利用する秒数を返します。
func SessionMaxAgeSeconds() int {
	return int(maxSessionLifetime.Seconds())
}

// Manager は認証処理をまとめた構造体です。
type Manager struct {
	cfg *config.Config
}

// NewManager は認証マネージャーを作成します。
func NewManager(cfg *config.Config) *Manager {
	return &Manager{cfg: cfg}
}

// LoginPage は GET / のハンドラーです。
func (m *Manager) LoginPage(c *gin.Context) {
	c.HTML(http.StatusOK, "login.html", gin.H{})
}

// Login は POST /login のハンドラーです。
// APP_USERNAME / APP_PASSWORD_HASH が設定されている場合のみ認証情報を検証します。
func (m *Manager) Login(c *gin.Context) {
	username := c.PostForm("username")
	password := c.PostForm("password")

	if m.credentialsConfigured() {
		if username != m.cfg.AppUsername || !m.verifyPassword(password) {
			c.HTML(http.StatusUnauthorized, "login.html", gin.H{
				"error": "ユーザー名またはパスワードが正しくありません",
			})
			return
		}
	}

	if username == "" {
		username = anonymousUser
	}

	session := sessions.Default(c)
	session.Set(sessionKeyUser, username)
	if err := session.Save(); err != nil {
		c.HTML(http.StatusInternalServerError, "login.html", gin.H{
			"error": "セッションの保存に失敗しました",
		})
		return
	}

	c.Redirect(http.StatusSeeOther, "/dashboard")
}

// Logout は POST /logout のハンドラーです。
func (m *Manager) Logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	_ = session.Save()
	c.Redirect(http.StatusSeeOther, "/")
}

// DashboardPage は GET /dashboard のハンドラーです。
func (m *Manager) DashboardPage(c *gin.Context) {
	session := sessions.Default(c)
	user, _ := session.Get(sessionKeyUser).(string)
	c.HTML(http.StatusOK, "dashboard.html", gin.H{
		"user": user,
	})
}

func (m *Manager) credentialsConfigured() bool {
	return m.cfg.AppUsername != "" && m.cfg.AppPasswordHash != ""
}

func (m *Manager) verifyPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(m.cfg.AppPasswordHash), []byte(password)) == nil
}
