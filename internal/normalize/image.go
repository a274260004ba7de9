package normalize

import "strings"

// corruptedPrefix は上流のバグにより画像パスの先頭へ紛れ込む文字列。
// 本来 `undefined` となる変数がそのまま文字列連結されたもので、
// 相対パスの先頭にのみ現れる。
const corruptedPrefix = "undefined"

// ImageURL は画像の生パスを設定されたベースURLに対する絶対URLへ解決する。
// スキーム付きのURLはそのまま返す。相対パスは先頭の"undefined"
// アーティファクトを除去した上でベースURLと連結する。
// アイテム正規化の唯一の経路から呼ばれることで、ギャラリーカード・
// 一覧サムネイル・編集フォームのプレビューが同一のURLを見ることを保証する。
func ImageURL(raw, baseURL string) string {
	if strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") {
		return raw
	}
	cleaned := strings.TrimPrefix(raw, corruptedPrefix)
	return baseURL + cleaned
}
