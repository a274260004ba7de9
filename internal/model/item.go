// Package model はドメインモデルを定義する。
package model

import "time"

// Item はバックエンドが所有するコンテンツレコード（アプリケーションまたはブログ記事）を表す。
// IDはバックエンドが採番し、一度割り当てられたら不変。
type Item struct {
	ID          string
	Title       string
	Description string // サニタイズ済みHTML
	Link        string
	Images      []string // 正規化済みの絶対URL、表示順
	CreatedAt   time.Time
	Comments    []Comment // バックエンドが返した挿入順のまま（クライアント側で並べ替えない）
}

// Comment はアイテムに紐づくコメントを表す。
type Comment struct {
	ID           string
	Author       string // 空の場合は匿名として表示される
	Text         string // サニタイズ済み
	Date         time.Time
	ParentItemID string
	// LocalID はIDがバックエンド未採番のため暫定的にクライアントが採番したことを示す。
	// 暫定IDは描画キー専用であり、バックエンドへ送信してはならず、次回リフレッシュで破棄される。
	LocalID bool
}

// ItemFields はアイテム作成・更新時に送信するテキストフィールド。
type ItemFields struct {
	Title       string
	Description string
	Link        string
}

// ImageInput はアイテム作成・更新時の画像入力を表す。
// URLが設定されている場合は保存済み画像（サーバー側はそのまま保持される）、
// Dataが設定されている場合は新規アップロード対象のファイル。
type ImageInput struct {
	URL      string
	FileName string
	Data     []byte
}

// IsFile はこの入力が新規アップロード対象のファイルかどうかを判定する。
// 保存済み画像（URL文字列）との判別に使用する。
func (i ImageInput) IsFile() bool {
	return i.URL == ""
}
