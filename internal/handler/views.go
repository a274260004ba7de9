// Package handler はストア状態を描画層へ公開するゲートウェイを提供する。
// ビューはストア状態の純粋な射影であり、ここで公開するのは読み取り専用の
// スナップショットと、ユーザー意図（検索・ページ変更・フォーム送信）の
// 受け口のみ。JSX等の描画そのものはこのリポジトリの範囲外。
package handler

import (
	"time"

	"github.com/victor/storefront/internal/model"
	"github.com/victor/storefront/internal/store"
)

// itemView はアイテムのレスポンス表現。
type itemView struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Link        string        `json:"link,omitempty"`
	Images      []string      `json:"images"`
	CreatedAt   time.Time     `json:"createdAt"`
	Comments    []commentView `json:"comments"`
}

// commentView はコメントのレスポンス表現。
// authorが空のコメントは匿名として描画される。
type commentView struct {
	ID     string    `json:"id"`
	Author string    `json:"author"`
	Text   string    `json:"text"`
	Date   time.Time `json:"date"`
}

// snapshotView はコレクション状態のレスポンス表現。
type snapshotView struct {
	Phase      string     `json:"phase"`
	SearchTerm string     `json:"searchTerm"`
	Page       int        `json:"page"`
	PageSize   int        `json:"pageSize"`
	TotalPages int        `json:"totalPages"`
	Total      int        `json:"total"`
	PageItems  []itemView `json:"pageItems"`
	Preview    []itemView `json:"preview"`
	HasMore    bool       `json:"hasMore"`
}

// toItemView はドメインモデルをレスポンス表現へ変換する。
func toItemView(item model.Item) itemView {
	v := itemView{
		ID:          item.ID,
		Title:       item.Title,
		Description: item.Description,
		Link:        item.Link,
		Images:      item.Images,
		CreatedAt:   item.CreatedAt,
		Comments:    make([]commentView, 0, len(item.Comments)),
	}
	if v.Images == nil {
		v.Images = []string{}
	}
	for _, c := range item.Comments {
		v.Comments = append(v.Comments, commentView{
			ID:     c.ID,
			Author: c.Author,
			Text:   c.Text,
			Date:   c.Date,
		})
	}
	return v
}

// toItemViews はアイテム列を順序を保って変換する。
func toItemViews(items []model.Item) []itemView {
	views := make([]itemView, 0, len(items))
	for _, item := range items {
		views = append(views, toItemView(item))
	}
	return views
}

// toSnapshotView はストアのスナップショットをレスポンス表現へ変換する。
func toSnapshotView(snap store.Snapshot) snapshotView {
	return snapshotView{
		Phase:      string(snap.Phase),
		SearchTerm: snap.SearchTerm,
		Page:       snap.Page,
		PageSize:   snap.PageSize,
		TotalPages: snap.TotalPages,
		Total:      len(snap.Items),
		PageItems:  toItemViews(snap.PageItems),
		Preview:    toItemViews(snap.Preview),
		HasMore:    snap.HasMore,
	}
}
