// Package normalize はバックエンドのレスポンスをクライアント内部の
// 正規化済みモデルへ変換する機能を提供する。
// レスポンス形状の揺れ（素の配列とエンベロープ）の吸収、画像URLの解決、
// フィールドの欠損アーティファクトの除去をすべてこのパッケージに集約し、
// 描画面ごとの正規化の不一致を防ぐ。
package normalize

// WireItem はバックエンドが返すアイテムのワイヤ表現。
// 正規化前の生データであり、このパッケージの外へは出さない。
type WireItem struct {
	ID          string        `json:"_id"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Link        string        `json:"link"`
	Images      []string      `json:"images"`
	CreatedAt   string        `json:"createdAt"`
	Comments    []WireComment `json:"comments"`
}

// WireComment はバックエンドが返すコメントのワイヤ表現。
type WireComment struct {
	ID     string `json:"_id"`
	Author string `json:"author"`
	Text   string `json:"text"`
	Date   string `json:"date"`
}
