package store

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/victor/storefront/internal/model"
)

// CommentThreads はアイテムごとのコメントスレッドのUI状態と投稿を扱う。
// コメント一覧そのものは所有せず（アイテムの一部としてListSyncStoreが所有する）、
// スレッドの開閉フラグと未送信ドラフトのみを保持する。
type CommentThreads struct {
	store  *ListSyncStore
	logger *slog.Logger

	mu       sync.Mutex
	expanded map[string]bool
	drafts   map[string]string
}

// NewCommentThreads はCommentThreadsの新しいインスタンスを生成する。
// storeはコメントの親コレクションを所有するListSyncStore。
func NewCommentThreads(store *ListSyncStore, logger *slog.Logger) *CommentThreads {
	return &CommentThreads{
		store:    store,
		logger:   logger,
		expanded: make(map[string]bool),
		drafts:   make(map[string]string),
	}
}

// Expand は指定アイテムのコメントスレッドを開く。ローカル状態のみの変更で、
// データの鮮度には影響しない。
func (c *CommentThreads) Expand(itemID string) {
	c.mu.Lock()
	c.expanded[itemID] = true
	c.mu.Unlock()
}

// Collapse は指定アイテムのコメントスレッドを閉じる。
func (c *CommentThreads) Collapse(itemID string) {
	c.mu.Lock()
	delete(c.expanded, itemID)
	c.mu.Unlock()
}

// IsExpanded は指定アイテムのスレッドが開いているかどうかを返す。
func (c *CommentThreads) IsExpanded(itemID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.expanded[itemID]
}

// Draft は指定アイテムの未送信ドラフトを返す。
// 投稿失敗時に入力内容を復元するために使用する。
func (c *CommentThreads) Draft(itemID string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.drafts[itemID]
}

// SetDraft は入力中のコメントを保持する。
func (c *CommentThreads) SetDraft(itemID, text string) {
	c.mu.Lock()
	if text == "" {
		delete(c.drafts, itemID)
	} else {
		c.drafts[itemID] = text
	}
	c.mu.Unlock()
}

// Submit はコメントを投稿する。
//
// 本文が空白のみの場合はネットワークに到達せずLOCAL_VALIDATION_FAILEDを返す。
// 投稿成功後は親コレクションを全件リフレッシュし、バックエンドが採番した
// コメントIDと日時を権威ある状態として取り込む（投稿→リフレッシュは
// 厳密に逐次であり、投稿応答の受信前にリフレッシュは開始されない）。
// 失敗時は入力内容をドラフトとして保持し、ユーザーが再試行できるようにする。
func (c *CommentThreads) Submit(ctx context.Context, itemID, text, author string) error {
	if strings.TrimSpace(text) == "" {
		return model.NewLocalValidationError("コメント本文")
	}

	if err := c.store.client.AddComment(ctx, itemID, text, author); err != nil {
		c.SetDraft(itemID, text)
		c.logger.Error("コメントの投稿に失敗しました",
			slog.String("item_id", itemID),
			slog.String("error", err.Error()),
		)
		return err
	}

	c.SetDraft(itemID, "")

	// 投稿の反映はバックエンドを正とした全件リフレッシュで行う。
	// リフレッシュ自体の失敗は投稿の成否を変えない（次回の取得で追いつく）。
	if err := c.store.Refresh(ctx, c.store.SearchTerm()); err != nil {
		c.logger.Warn("コメント投稿後のリフレッシュに失敗しました",
			slog.String("item_id", itemID),
			slog.String("error", err.Error()),
		)
	}

	return nil
}
