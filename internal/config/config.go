// Package config はアプリケーション全体の設定を提供する。
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"
)

// DefaultAPIBaseURL はAPPSTORE_API_URL未設定時に使用する本番バックエンドのURL。
// 環境変数での上書きを忘れた環境でもクライアントが空のURLに向かないよう、
// 明示的なフォールバックとして定義している。
const DefaultAPIBaseURL = "https://bk-appstore.victor-door.com"

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Backend
	APIBaseURL   string
	FetchTimeout time.Duration

	// Collection
	PageSize       int
	GalleryPreview int
	SearchDebounce time.Duration

	// Auto scroll
	AutoScrollInterval  time.Duration
	AutoScrollThreshold int
	AutoScrollMax       int

	// Rate Limit（バックエンドへの送信レート、req/min）
	OutboundRatePerMin int

	// Session
	TokenPath string

	// Gateway
	ServerPort        string
	CORSAllowedOrigin string
}

// Load は環境変数からConfigを読み込む。
// APPSTORE_API_URLが未設定の場合はDefaultAPIBaseURLにフォールバックする。
// 設定されたURLがパース不能な場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.APIBaseURL = getEnvString("APPSTORE_API_URL", DefaultAPIBaseURL)
	if _, err := url.Parse(cfg.APIBaseURL); err != nil {
		return nil, fmt.Errorf("invalid APPSTORE_API_URL: %w", err)
	}

	cfg.FetchTimeout = getEnvDuration("FETCH_TIMEOUT", 10*time.Second)
	cfg.PageSize = getEnvInt("PAGE_SIZE", 10)
	cfg.GalleryPreview = getEnvInt("GALLERY_PREVIEW", 8)
	cfg.SearchDebounce = getEnvDuration("SEARCH_DEBOUNCE", 400*time.Millisecond)
	cfg.AutoScrollInterval = getEnvDuration("AUTO_SCROLL_INTERVAL", time.Second)
	cfg.AutoScrollThreshold = getEnvInt("AUTO_SCROLL_THRESHOLD", 4)
	cfg.AutoScrollMax = getEnvInt("AUTO_SCROLL_MAX", 2)
	cfg.OutboundRatePerMin = getEnvInt("OUTBOUND_RATE_PER_MIN", 120)
	cfg.TokenPath = getEnvString("TOKEN_PATH", "")
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
