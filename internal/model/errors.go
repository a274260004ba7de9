// Package model はドメインモデルを定義する。
package model

import (
	"errors"
	"fmt"
)

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, fetch, content
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeFetchFailed     = "FETCH_FAILED"
	ErrCodeValidation      = "VALIDATION_FAILED"
	ErrCodeItemNotFound    = "ITEM_NOT_FOUND"
	ErrCodeLocalValidation = "LOCAL_VALIDATION_FAILED"
	ErrCodeLoginFailed     = "LOGIN_FAILED"
)

// NewFetchFailedError はバックエンドAPIとの通信失敗エラーを生成する。
// ネットワーク障害、予期しないステータスコード、レスポンスの不正JSONを含む。
func NewFetchFailedError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeFetchFailed,
		Message:  fmt.Sprintf("サーバーとの通信に失敗しました: %s", reason),
		Category: "fetch",
		Action:   "ネットワーク接続を確認し、しばらく待ってから再度お試しください。",
	}
}

// NewValidationError はバックエンドが4xxで報告した検証エラーを生成する。
// messageにはバックエンドが返したメッセージをそのまま渡す。
func NewValidationError(message string) *APIError {
	if message == "" {
		message = "入力内容が受け付けられませんでした。"
	}
	return &APIError{
		Code:     ErrCodeValidation,
		Message:  message,
		Category: "validation",
		Action:   "入力内容を確認して再度お試しください。",
	}
}

// NewItemNotFoundError は参照先アイテム未検出エラーを生成する。
func NewItemNotFoundError(itemID string) *APIError {
	return &APIError{
		Code:     ErrCodeItemNotFound,
		Message:  fmt.Sprintf("指定されたアイテムが見つかりません: %s", itemID),
		Category: "content",
		Action:   "一覧を再読み込みしてください。アイテムは既に削除されている可能性があります。",
	}
}

// NewLocalValidationError はクライアント側の必須項目チェックエラーを生成する。
// このエラーはネットワークに到達する前に返される。
func NewLocalValidationError(field string) *APIError {
	return &APIError{
		Code:     ErrCodeLocalValidation,
		Message:  fmt.Sprintf("%s は必須です。", field),
		Category: "validation",
		Action:   "未入力の項目を埋めてから再度お試しください。",
	}
}

// NewLoginFailedError はログイン失敗エラーを生成する。
// messageにはバックエンドが返したエラーメッセージをそのまま渡す。
func NewLoginFailedError(message string) *APIError {
	if message == "" {
		message = "ログインに失敗しました。"
	}
	return &APIError{
		Code:     ErrCodeLoginFailed,
		Message:  message,
		Category: "auth",
		Action:   "メールアドレスとパスワードを確認してください。",
	}
}

// codeOf はerrからAPIErrorのコードを取り出す。APIErrorでない場合は空文字を返す。
func codeOf(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return ""
}

// IsNotFound はerrがアイテム未検出エラーかどうかを判定する。
func IsNotFound(err error) bool {
	return codeOf(err) == ErrCodeItemNotFound
}

// IsValidation はerrがバックエンド検証エラーかどうかを判定する。
func IsValidation(err error) bool {
	return codeOf(err) == ErrCodeValidation
}

// IsLocalValidation はerrがクライアント側検証エラーかどうかを判定する。
func IsLocalValidation(err error) bool {
	return codeOf(err) == ErrCodeLocalValidation
}

// IsFetchFailed はerrが通信失敗エラーかどうかを判定する。
func IsFetchFailed(err error) bool {
	return codeOf(err) == ErrCodeFetchFailed
}
