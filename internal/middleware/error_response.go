package middleware

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/victor/storefront/internal/model"
)

// ErrorResponseBody はゲートウェイのエラーレスポンスの統一フォーマット。
// 原因カテゴリと対処方法を含む。
type ErrorResponseBody struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

// statusForCode はAPIErrorのコードをHTTPステータスへ対応付ける。
func statusForCode(code string) int {
	switch code {
	case model.ErrCodeItemNotFound:
		return http.StatusNotFound
	case model.ErrCodeValidation, model.ErrCodeLocalValidation:
		return http.StatusBadRequest
	case model.ErrCodeLoginFailed:
		return http.StatusUnauthorized
	case model.ErrCodeFetchFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// WriteError はerrを統一エラーフォーマットのレスポンスへ変換して書き込む。
// APIError以外のエラーは詳細を漏らさず一般的なメッセージにする。
func WriteError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		apiErr = &model.APIError{
			Code:     "INTERNAL_ERROR",
			Message:  "内部エラーが発生しました。",
			Category: "system",
			Action:   "しばらく待ってから再度お試しください。",
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusForCode(apiErr.Code))
	json.NewEncoder(w).Encode(ErrorResponseBody{
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
	})
}
