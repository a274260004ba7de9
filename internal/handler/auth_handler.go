package handler

import (
	"encoding/json"
	"net/http"

	"github.com/victor/storefront/internal/middleware"
	"github.com/victor/storefront/internal/model"
	"github.com/victor/storefront/internal/session"
)

// AuthHandler は認証セッションの操作を受け付ける。
type AuthHandler struct {
	session *session.Service
}

// NewAuthHandler はAuthHandlerの新しいインスタンスを生成する。
func NewAuthHandler(sess *session.Service) *AuthHandler {
	return &AuthHandler{session: sess}
}

// loginRequest はログイン意図のリクエストボディ。
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login は認証情報をバックエンドへ委譲し、成功時にトークンを保持する。
// バックエンド報告のエラーはメッセージがそのまま表面化される。
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, model.NewValidationError("リクエストボディを解析できません。"))
		return
	}

	if err := h.session.Login(r.Context(), req.Email, req.Password); err != nil {
		middleware.WriteError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"authenticated": true})
}

// Logout はトークンを同期的に破棄する。ネットワーク往復は行わない。
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.session.Logout()
	w.WriteHeader(http.StatusNoContent)
}

// Me は現在の認証状態を返す。
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{
		"authenticated": h.session.IsAuthenticated(),
	})
}
