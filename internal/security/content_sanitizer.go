// Package security はアプリケーションのセキュリティ機能を提供する。
//
// ContentSanitizerService はバックエンドから受け取ったアイテム説明文と
// コメント本文をサニタイズし、描画層をXSSから保護する。
// bluemondayライブラリを使用した許可リストベースのポリシーで、
// 安全なタグと属性のみを通過させる。
package security

import "github.com/microcosm-cc/bluemonday"

// ContentSanitizerService はHTMLコンテンツのサニタイズ機能のインターフェースを定義する。
// アイテム正規化時（一覧取得・単体取得の両方）に使用される。
type ContentSanitizerService interface {
	// SanitizeDescription はアイテム説明文をサニタイズして安全なHTMLを返す。
	// 基本的な整形タグ（p, br, ul, ol, li, strong, em, a）のみを通過させ、
	// script, iframe, styleタグおよびon*イベント属性を除去する。
	// 空文字列の入力には空文字列を返す。同一入力に対して常に同一出力を返す。
	SanitizeDescription(rawHTML string) string

	// SanitizeText はコメント本文等のプレーンテキストからタグを全て除去する。
	// コメントは整形を持たないため、許可タグなしのポリシーを適用する。
	SanitizeText(raw string) string
}

// contentSanitizer はContentSanitizerServiceの実装。
// bluemondayのポリシーを保持し、スレッドセーフにサニタイズ処理を行う。
type contentSanitizer struct {
	description *bluemonday.Policy
	text        *bluemonday.Policy
}

// NewContentSanitizer はContentSanitizerServiceの新しいインスタンスを生成する。
// 説明文用ポリシーの内容:
//   - 許可タグ: p, br, ul, ol, li, strong, em, a
//   - aタグはhref属性のみ許可し、target="_blank"とrel="noopener noreferrer"を強制付与
//   - script, iframe, style等は許可リストに含めないことで自動的に除去される
//
// コメント本文用ポリシーは許可タグなし（全タグ除去）。
func NewContentSanitizer() *contentSanitizer {
	desc := bluemonday.NewPolicy()
	desc.AllowElements("p", "br", "ul", "ol", "li", "strong", "em")
	desc.AllowAttrs("href").OnElements("a")
	desc.AllowStandardURLs()
	desc.AddTargetBlankToFullyQualifiedLinks(true)
	desc.RequireNoReferrerOnLinks(true)

	return &contentSanitizer{
		description: desc,
		text:        bluemonday.StrictPolicy(),
	}
}

// SanitizeDescription はアイテム説明文をサニタイズして安全なHTMLを返す。
func (s *contentSanitizer) SanitizeDescription(rawHTML string) string {
	return s.description.Sanitize(rawHTML)
}

// SanitizeText はコメント本文からタグを全て除去する。
func (s *contentSanitizer) SanitizeText(raw string) string {
	return s.text.Sanitize(raw)
}
