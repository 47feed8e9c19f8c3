// Package main はAPIサーバーのエントリーポイントです。
package main

import (
	"log"
	"net/http"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"

	"github.com/Saniya-Mehdi/Aistudybuddy/internal/auth"
	"github.com/Saniya-Mehdi/Aistudybuddy/internal/config"
	"github.com/Saniya-Mehdi/Aistudybuddy/internal/extract"
	"github.com/Saniya-Mehdi/Aistudybuddy/internal/genai"
	"github.com/Saniya-Mehdi/Aistudybuddy/internal/study"
)

func main() {
	// 設定の読み込み
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Ginのモードを設定
	gin.SetMode(cfg.GinMode)

	// Ginルーターの初期化（デフォルトミドルウェア: Logger, Recovery）
	router := gin.Default()
	router.LoadHTMLGlob("templates/*.html")

	// セッションストアの設定
	secret := cfg.SessionSecret
	if secret == "" {
		// ローカル開発向けのフォールバック（releaseモードではバリデーション済み）
		secret = "studybuddy-dev-secret"
	}
	store := cookie.NewStore([]byte(secret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   auth.SessionMaxAgeSeconds(),
		HttpOnly: true,
		Secure:   cfg.GinMode == gin.ReleaseMode,
		SameSite: http.SameSiteStrictMode,
	})
	router.Use(sessions.Sessions(auth.SessionCookieName, store))

	// CORSミドルウェアの設定
	corsConfig := cors.DefaultConfig()
	origins := strings.Split(cfg.CORSAllowedOrigins, ",")
	corsConfig.AllowOrigins = origins
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{
		"Origin",
		"Content-Type",
		"Accept",
		"Authorization",
	}
	router.Use(cors.New(corsConfig))

	// OCRバイナリの解決は起動時に一度だけ行う
	var engine extract.Engine
	if binPath, resolveErr := cfg.ResolveTesseract(); resolveErr != nil {
		if cfg.GinMode == gin.ReleaseMode {
			log.Fatalf("OCRバイナリの解決に失敗しました: %v", resolveErr)
		}
		log.Printf("warning: OCR fallback is disabled: %v", resolveErr)
	} else {
		engine = extract.NewTesseractEngine(binPath)
	}

	// 生成AIクライアントの構成（キーがなければデモ出力）
	var generator genai.Generator
	if cfg.GenAIAPIKey != "" {
		generator = genai.NewClient(cfg.GenAIAPIURL, cfg.GenAIAPIKey, cfg.GenAIModel, cfg.GenAIMaxTokens)
	} else {
		log.Printf("GENAI_API_KEY is not set; using demo generator")
		generator = genai.NewDemo()
	}

	svc := study.NewService(cfg, extract.New(engine), generator)

	scheduler, jobStore, err := setupJobs(cfg, svc)
	if err != nil {
		log.Fatalf("Failed to set up jobs: %v", err)
	}

	// ルーティングの設定
	setupRoutes(router, cfg, svc, scheduler, jobStore)

	// サーバーの起動
	addr := ":" + cfg.Port
	log.Printf("Starting API server on %s (mode: %s)", addr, cfg.GinMode)
	if err := router.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// handleHealth はヘルスチェックエンドポイントのハンドラーです。
func handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "studybuddy-api",
		"version": "0.1.0",
	})
}
