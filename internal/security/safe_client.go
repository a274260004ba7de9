// Package security はアプリケーションのセキュリティ機能を提供する。
package security

import (
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/doyensec/safeurl"
)

// allowedSchemes は送信先URLで許可されるスキーム。
var allowedSchemes = []string{"http", "https"}

// NewHTTPClient はバックエンドAPIへの送信に使用するHTTPクライアントを生成する。
// 送信先が公開ホストの場合はsafeurlでラップしたクライアントを返し、
// プライベートIP、ループバック、リンクローカル、メタデータIPへの
// リダイレクト誘導やDNS再バインディングをDialerレベルでブロックする。
// ローカル開発用にループバック宛のベースURLが設定された場合のみ、
// タイムアウト付きの素のhttp.Clientを返す。
func NewHTTPClient(baseURL string, timeout time.Duration) *http.Client {
	if isLoopbackBase(baseURL) {
		return &http.Client{Timeout: timeout}
	}

	config := safeurl.GetConfigBuilder().
		SetTimeout(timeout).
		SetAllowedSchemes(allowedSchemes...).
		SetAllowedPorts(80, 443).
		Build()

	return safeurl.Client(config).Client
}

// ValidateBaseURL は設定されたバックエンドのベースURLを起動時に検証する。
// スキームと空ホストのみをチェックする静的検証であり、
// DNS解決後のIP検証はNewHTTPClientが生成するクライアント側で行われる。
func ValidateBaseURL(rawURL string) error {
	if rawURL == "" {
		return fmt.Errorf("empty base URL")
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}

	scheme := strings.ToLower(parsed.Scheme)
	if !isAllowedScheme(scheme) {
		return fmt.Errorf("disallowed scheme: %s (allowed: %v)", scheme, allowedSchemes)
	}

	if parsed.Hostname() == "" {
		return fmt.Errorf("empty host in base URL: %s", rawURL)
	}

	return nil
}

// isLoopbackBase はベースURLのホストがループバック宛かどうかを判定する。
func isLoopbackBase(rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := parsed.Hostname()
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// isAllowedScheme はURLスキームが許可リストに含まれるかを検証する。
func isAllowedScheme(scheme string) bool {
	for _, allowed := range allowedSchemes {
		if strings.EqualFold(scheme, allowed) {
			return true
		}
	}
	return false
}
