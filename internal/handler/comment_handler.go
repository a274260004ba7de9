package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/victor/storefront/internal/middleware"
	"github.com/victor/storefront/internal/model"
	"github.com/victor/storefront/internal/store"
)

// CommentHandler はコメントスレッドのUI状態と投稿を受け付ける。
type CommentHandler struct {
	threads *store.CommentThreads
	store   *store.ListSyncStore
}

// NewCommentHandler はCommentHandlerの新しいインスタンスを生成する。
func NewCommentHandler(threads *store.CommentThreads, st *store.ListSyncStore) *CommentHandler {
	return &CommentHandler{threads: threads, store: st}
}

// threadView はコメントスレッドのレスポンス表現。
type threadView struct {
	ItemID   string        `json:"itemId"`
	Expanded bool          `json:"expanded"`
	Draft    string        `json:"draft"`
	Comments []commentView `json:"comments"`
}

// GetThread は指定アイテムのスレッド状態（開閉・ドラフト・コメント一覧）を返す。
func (h *CommentHandler) GetThread(w http.ResponseWriter, r *http.Request) {
	itemID := chi.URLParam(r, "id")

	view := threadView{
		ItemID:   itemID,
		Expanded: h.threads.IsExpanded(itemID),
		Draft:    h.threads.Draft(itemID),
		Comments: []commentView{},
	}

	snap := h.store.Snapshot()
	for _, item := range snap.Items {
		if item.ID != itemID {
			continue
		}
		for _, c := range item.Comments {
			view.Comments = append(view.Comments, commentView{
				ID:     c.ID,
				Author: c.Author,
				Text:   c.Text,
				Date:   c.Date,
			})
		}
		break
	}

	writeJSON(w, http.StatusOK, view)
}

// Expand はスレッドを開く。データの鮮度には影響しない。
func (h *CommentHandler) Expand(w http.ResponseWriter, r *http.Request) {
	h.threads.Expand(chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}

// Collapse はスレッドを閉じる。
func (h *CommentHandler) Collapse(w http.ResponseWriter, r *http.Request) {
	h.threads.Collapse(chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}

// commentRequest はコメント投稿のリクエストボディ。
type commentRequest struct {
	Text   string `json:"text"`
	Author string `json:"author"`
}

// Submit はコメントを投稿する。成功時には親コレクションのリフレッシュまで
// 完了した状態で204を返す。失敗時は入力内容がドラフトとして保持されるため、
// クライアントはGetThreadで復元できる。
func (h *CommentHandler) Submit(w http.ResponseWriter, r *http.Request) {
	itemID := chi.URLParam(r, "id")

	var req commentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, model.NewValidationError("リクエストボディを解析できません。"))
		return
	}

	if err := h.threads.Submit(r.Context(), itemID, req.Text, req.Author); err != nil {
		middleware.WriteError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
