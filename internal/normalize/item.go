package normalize

import (
	"time"

	"github.com/google/uuid"
	"github.com/victor/storefront/internal/model"
	"github.com/victor/storefront/internal/security"
)

// Normalizer はワイヤ表現をドメインモデルへ変換する。
// 画像URLの解決、欠損アーティファクトの除去、サニタイズ、
// コメント暫定IDの採番をこの一箇所で行う。
type Normalizer struct {
	baseURL   string
	sanitizer security.ContentSanitizerService
}

// NewNormalizer はNormalizerの新しいインスタンスを生成する。
// baseURLは相対画像パスの解決に使用する。
func NewNormalizer(baseURL string, sanitizer security.ContentSanitizerService) *Normalizer {
	return &Normalizer{
		baseURL:   baseURL,
		sanitizer: sanitizer,
	}
}

// Item はワイヤ表現のアイテム1件を正規化する。
//
// 正規化の内容:
//   - 文字列リテラル"undefined"のフィールドを空文字へ置換（上流バグのアーティファクト）
//   - 説明文のサニタイズ
//   - 画像URLのベースURL解決。imagesが空の場合は説明文HTML中の最初のimgをフォールバックに使う
//   - コメントの正規化（ID未採番コメントへの暫定ID採番を含む）
func (n *Normalizer) Item(w WireItem) model.Item {
	item := model.Item{
		ID:          w.ID,
		Title:       cleanField(w.Title),
		Description: n.sanitizer.SanitizeDescription(cleanField(w.Description)),
		Link:        cleanField(w.Link),
		CreatedAt:   parseTime(w.CreatedAt),
	}

	if len(w.Images) > 0 {
		item.Images = make([]string, 0, len(w.Images))
		for _, img := range w.Images {
			item.Images = append(item.Images, ImageURL(img, n.baseURL))
		}
	} else if src := FirstImageSrc(w.Description); src != "" {
		item.Images = []string{ImageURL(src, n.baseURL)}
	}

	if len(w.Comments) > 0 {
		item.Comments = make([]model.Comment, 0, len(w.Comments))
		for _, c := range w.Comments {
			item.Comments = append(item.Comments, n.comment(c, w.ID))
		}
	}

	return item
}

// Items はワイヤ表現のアイテム一覧を順序を保って正規化する。
func (n *Normalizer) Items(wires []WireItem) []model.Item {
	items := make([]model.Item, 0, len(wires))
	for _, w := range wires {
		items = append(items, n.Item(w))
	}
	return items
}

// comment はコメント1件を正規化する。
// バックエンドがIDを採番していないコメントには描画キー用の暫定IDを割り当てる。
// 暫定IDはバックエンドへ送信されず、次回リフレッシュで破棄される。
// author"Anonymous"は空文字（匿名）として扱う。
func (n *Normalizer) comment(w WireComment, parentID string) model.Comment {
	c := model.Comment{
		ID:           w.ID,
		Author:       w.Author,
		Text:         n.sanitizer.SanitizeText(w.Text),
		Date:         parseTime(w.Date),
		ParentItemID: parentID,
	}
	if c.Author == "Anonymous" {
		c.Author = ""
	}
	if c.ID == "" {
		c.ID = "local-" + uuid.New().String()
		c.LocalID = true
	}
	return c
}

// cleanField は文字列リテラル"undefined"を空文字へ置換する。
// 上流でフィールド欠損時に"undefined"がそのまま保存されることがある。
func cleanField(s string) string {
	if s == corruptedPrefix {
		return ""
	}
	return s
}

// parseTime はバックエンドのタイムスタンプ文字列をパースする。
// RFC3339Nano、RFC3339の順に試し、どちらも失敗した場合はゼロ値を返す。
func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	return time.Time{}
}
