// Package config は環境変数から設定を読み込み、アプリケーション全体で使用する設定を提供します。
package config

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config はアプリケーションの設定を保持する構造体です。
type Config struct {
	// アプリケーション設定
	AppUsername     string // ログイン用ユーザー名（未設定なら認証なしでログイン可）
	AppPasswordHash string // bcryptでハッシュ化されたパスワード
	SessionSecret   string // セッション署名用の秘密鍵

	// サーバー設定
	Port    string // APIサーバーのポート番号
	GinMode string // Ginの実行モード (debug, release, test)

	// CORS設定
	CORSAllowedOrigins string // CORS許可オリジン（カンマ区切り）

	// ファイル制限
	MaxFileSize      int64 // 単一ファイルの最大サイズ（バイト）
	MaxPages         int   // 単一ファイルの最大ページ数
	JobExpireMinutes int   // ジョブ記録の有効期限（分）

	// ジョブ/キュー設定
	QueueRedisURL     string // Asynq用Redis接続URL（空文字ならインプロセス実行）
	WorkerConcurrency int    // 同時実行するジョブ数
	QueueCapacity     int    // インプロセスキューの受付上限

	// OCR設定
	TesseractPath string // Tesseract実行ファイルのパス

	// 生成AI設定
	GenAIAPIKey    string // 生成APIのBearerトークン（未設定ならデモ出力）
	GenAIAPIURL    string // 生成APIのエンドポイント
	GenAIModel     string // 使用するモデル名
	GenAIMaxTokens int    // 1リクエストあたりのトークン上限
}

// Load は環境変数から設定を読み込みます。
// .env.local ファイルが存在する場合はそこから読み込みます。
func Load() (*Config, error) {
	loadEnvFile()

	config := &Config{
		// アプリケーション設定
		AppUsername:     getEnv("APP_USERNAME", ""),
		AppPasswordHash: getEnv("APP_PASSWORD_HASH", ""),
		SessionSecret:   getEnv("SESSION_SECRET", ""),

		// サーバー設定
		Port:    getEnv("PORT", "8080"),
		GinMode: getEnv("GIN_MODE", "debug"),

		// CORS設定
		CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),

		// ファイル制限
		MaxFileSize:      getEnvAsInt64("MAX_FILE_SIZE", 52428800), // 50MB
		MaxPages:         getEnvAsInt("MAX_PAGES", 300),
		JobExpireMinutes: getEnvAsInt("JOB_EXPIRE_MINUTES", 30),

		// ジョブ/キュー設定
		QueueRedisURL:     getEnv("QUEUE_REDIS_URL", ""),
		WorkerConcurrency: getEnvAsInt("WORKER_CONCURRENCY", 4),
		QueueCapacity:     getEnvAsInt("QUEUE_CAPACITY", 32),

		// OCR設定
		TesseractPath: getEnv("TESSERACT_PATH", "tesseract"),

		// 生成AI設定
		GenAIAPIKey:    getEnv("GENAI_API_KEY", ""),
		GenAIAPIURL:    getEnv("GENAI_API_URL", "https://openrouter.ai/api/v1/chat/completions"),
		GenAIModel:     getEnv("GENAI_MODEL", "x-ai/grok-4.1-fast:free"),
		GenAIMaxTokens: getEnvAsInt("GENAI_MAX_TOKENS", 1024),
	}

	// 必須設定のバリデーション
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func loadEnvFile() {
	if err := godotenv.Load(".env.local"); err == nil {
		return
	}

	cwd, err := os.Getwd()
	if err != nil {
		return
	}

	parent := filepath.Dir(cwd)
	if parent == "" || parent == cwd {
		return
	}

	_ = godotenv.Load(filepath.Join(parent, ".env.local"))
}

// Validate は設定の妥当性を検証します。
func (c *Config) Validate() error {
	// ローカル開発では認証設定は任意
	// 本番環境では厳格にチェックする想定
	if c.GinMode == "release" {
		if c.SessionSecret == "" {
			return fmt.Errorf("SESSION_SECRET is required in release mode")
		}
		if c.TesseractPath == "" {
			return fmt.Errorf("TESSERACT_PATH is required in release mode")
		}
	}
	if c.WorkerConcurrency <= 0 {
		return fmt.Errorf("WORKER_CONCURRENCY must be positive")
	}
	if c.QueueCapacity <= 0 {
		return fmt.Errorf("QUEUE_CAPACITY must be positive")
	}

	return nil
}

// ResolveTesseract は起動時に一度だけOCRバイナリの場所を解決します。
// 見つからない場合はエラーを返し、呼び出し側が起動可否を判断します。
func (c *Config) ResolveTesseract() (string, error) {
	if c.TesseractPath == "" {
		return "", fmt.Errorf("TESSERACT_PATH が設定されていません")
	}
	resolved, err := exec.LookPath(c.TesseractPath)
	if err != nil {
		return "", fmt.Errorf("Tesseractバイナリが見つかりません (%s): %w", c.TesseractPath, err)
	}
	return resolved, nil
}

// getEnv は環境変数を取得し、存在しない場合はデフォルト値を返します。
func getEnv(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvAsInt は環境変数を整数として取得します。
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsInt64 は環境変数を64ビット整数として取得します。
func getEnvAsInt64(key string, defaultValue int64) int64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseInt(valueStr, 10, 64)
	if err != nil {
		return defaultValue
	}
	return value
}
