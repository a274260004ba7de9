// Package session は認証セッションの管理を提供する。
// ログインで得たトークンをプロセス全体で保持し、再起動後も使えるよう
// TokenStoreへ永続化する。トークンを書き換えるのはこのパッケージの
// Login/Logoutのみで、HTTPクライアント層からは読み取り専用。
package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"github.com/victor/storefront/internal/model"
)

// TokenStore は認証トークンの永続化先のインターフェース。
// プロセス再起動をまたいでトークンを保持し、ログアウトで消去できること。
type TokenStore interface {
	// Load は保存済みトークンを返す。未保存の場合は空文字とnilを返す。
	Load() (string, error)
	// Save はトークンを永続化する。
	Save(token string) error
	// Clear は保存済みトークンを消去する。未保存の場合もエラーにしない。
	Clear() error
}

// Service は認証セッションを管理する。
type Service struct {
	httpClient *http.Client
	logger     *slog.Logger
	loginURL   string
	store      TokenStore

	mu    sync.RWMutex
	token string
}

// NewService はServiceの新しいインスタンスを生成する。
// 起動時にTokenStoreから保存済みトークンを復元する。
// 復元に失敗してもログイン自体は可能なため、警告ログのみで続行する。
func NewService(httpClient *http.Client, logger *slog.Logger, loginURL string, store TokenStore) *Service {
	s := &Service{
		httpClient: httpClient,
		logger:     logger,
		loginURL:   loginURL,
		store:      store,
	}

	token, err := store.Load()
	if err != nil {
		logger.Warn("保存済みトークンの読み込みに失敗しました",
			slog.String("error", err.Error()),
		)
		return s
	}
	s.token = token
	return s
}

// loginRequest はログインエンドポイントへのリクエストボディ。
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// loginResponse はログインエンドポイントのレスポンスボディ。
// 成功時はtoken、バックエンド報告のエラー時はerrorまたはmessageが入る。
type loginResponse struct {
	Token   string `json:"token"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Login は認証情報をバックエンドへ送信し、成功時にトークンを保持・永続化する。
// バックエンドが報告したエラーはメッセージをそのまま表面化する。
// 通信自体の失敗は一般的な通信エラーとして返す。
func (s *Service) Login(ctx context.Context, email, password string) error {
	if email == "" {
		return model.NewLocalValidationError("メールアドレス")
	}
	if password == "" {
		return model.NewLocalValidationError("パスワード")
	}

	body, err := json.Marshal(loginRequest{Email: email, Password: password})
	if err != nil {
		return fmt.Errorf("failed to encode login request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.loginURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.logger.Error("ログインリクエストの送信に失敗しました",
			slog.String("error", err.Error()),
		)
		return model.NewFetchFailedError("ログインリクエストを送信できませんでした")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return model.NewFetchFailedError("レスポンスの読み取りに失敗しました")
	}

	var decoded loginResponse
	if err := json.Unmarshal(respBody, &decoded); err != nil {
		return model.NewFetchFailedError("レスポンスの解析に失敗しました")
	}

	// バックエンド報告のエラーはステータスコードに関わらずメッセージをそのまま返す
	if decoded.Error != "" {
		return model.NewLoginFailedError(decoded.Error)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return model.NewLoginFailedError(decoded.Message)
	}
	if decoded.Token == "" {
		return model.NewLoginFailedError("サーバーから予期しない応答を受け取りました。")
	}

	s.mu.Lock()
	s.token = decoded.Token
	s.mu.Unlock()

	// 永続化の失敗はセッション自体を無効にしない（次回起動時に再ログインが必要なだけ）
	if err := s.store.Save(decoded.Token); err != nil {
		s.logger.Error("トークンの永続化に失敗しました",
			slog.String("error", err.Error()),
		)
	}

	s.logger.Info("ログインに成功しました")
	return nil
}

// Logout はトークンを同期的に破棄する。ネットワーク往復は行わない。
// 呼び出し直後からAuthHeaderは空を返し、依存するUIは未認証として扱える。
func (s *Service) Logout() {
	s.mu.Lock()
	s.token = ""
	s.mu.Unlock()

	if err := s.store.Clear(); err != nil {
		s.logger.Error("保存済みトークンの消去に失敗しました",
			slog.String("error", err.Error()),
		)
	}

	s.logger.Info("ログアウトしました")
}

// AuthHeader は認証ヘッダーを返す。トークン未保持の場合は空のマップを返す。
// 未認証でもリクエストはクライアント側でブロックしない（認可はバックエンドの責務）。
func (s *Service) AuthHeader() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.token == "" {
		return map[string]string{}
	}
	return map[string]string{"Authorization": "Bearer " + s.token}
}

// IsAuthenticated はトークンを保持しているかどうかを返す。
func (s *Service) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token != ""
}
