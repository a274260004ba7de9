// Package store はリモートコレクションのクライアント側状態を所有する。
// 取得・作成・更新・削除の各操作をAPIクライアントへ委譲し、
// 応答を反映した後も状態が一貫していることを保証する。
// すべての操作は全か無か（all-or-nothing）であり、部分的に更新された
// コレクションを描画層へ見せることはない。
package store

import (
	"context"
	"log/slog"
	"sync"

	"github.com/victor/storefront/internal/metrics"
	"github.com/victor/storefront/internal/model"
)

// CollectionAPI は1リソースのRESTクライアントのインターフェース。
// internal/api.Clientが実装する。ストアのテストではフェイクに差し替える。
type CollectionAPI interface {
	List(ctx context.Context, search string) ([]model.Item, error)
	GetByID(ctx context.Context, id string) (model.Item, error)
	Create(ctx context.Context, fields model.ItemFields, images []model.ImageInput) (model.Item, error)
	Update(ctx context.Context, id string, fields model.ItemFields, images []model.ImageInput) (model.Item, error)
	Remove(ctx context.Context, id string) error
	AddComment(ctx context.Context, parentID, text, author string) error
}

// Phase はコレクションの取得状態を表す。
type Phase string

const (
	// PhaseIdle は一度も取得を開始していない初期状態。
	PhaseIdle Phase = "idle"
	// PhaseLoading は取得中。itemsは直前の成功時の内容を保持している。
	PhaseLoading Phase = "loading"
	// PhaseReady は取得成功後の状態。
	PhaseReady Phase = "ready"
	// PhaseError は取得失敗後の状態。初回ロード失敗を除きitemsは維持される。
	PhaseError Phase = "error"
)

// ListSyncStore は1リソースのコレクション状態を所有する。
// コレクションの正規化済みビューの唯一の所有者であり、
// 描画層はSnapshotの純粋な射影として振る舞う。
//
// 並行制御: 同一ストアへのリフレッシュは発行順のシーケンス番号を持ち、
// 発行済み最新より古いシーケンスの応答は到着順に関わらず破棄される
// （last-issued-wins）。これにより遅延して到着した古い応答が
// 新しい状態を上書きすることを防ぐ。
type ListSyncStore struct {
	client   CollectionAPI
	logger   *slog.Logger
	metrics  metrics.MetricsCollector
	resource string
	pageSize int
	preview  int

	mu         sync.Mutex
	items      []model.Item
	phase      Phase
	searchTerm string
	page       int
	issuedSeq  uint64
	loadedOnce bool
	notify     func()
}

// NewListSyncStore はListSyncStoreの新しいインスタンスを生成する。
// pageSizeが0以下の場合はデフォルト値10、previewが0以下の場合は8を使用する。
func NewListSyncStore(
	client CollectionAPI,
	logger *slog.Logger,
	collector metrics.MetricsCollector,
	resource string,
	pageSize int,
	preview int,
) *ListSyncStore {
	if pageSize <= 0 {
		pageSize = 10
	}
	if preview <= 0 {
		preview = 8
	}
	return &ListSyncStore{
		client:   client,
		logger:   logger,
		metrics:  collector,
		resource: resource,
		pageSize: pageSize,
		preview:  preview,
		phase:    PhaseIdle,
		page:     1,
	}
}

// SetNotify は状態変化の通知先を設定する。配線時に1回だけ呼ぶこと。
// 通知はストアのロック外で同期的に呼ばれる。
func (s *ListSyncStore) SetNotify(fn func()) {
	s.mu.Lock()
	s.notify = fn
	s.mu.Unlock()
}

// changed は状態変化を通知する。
func (s *ListSyncStore) changed() {
	s.mu.Lock()
	fn := s.notify
	s.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// Refresh はコレクションをバックエンドから再取得する。
//
// シーケンス破棄規則: 呼び出しごとに単調増加のシーケンス番号を発行し、
// 応答を反映する前に発行済み最新と照合する。古い応答は結果の成否に
// 関わらず破棄され、nilを返す（後続の呼び出しが結果を引き継ぐため、
// 破棄された呼び出しをエラーとして表面化しない）。
//
// 失敗時はitemsを維持する。ただし一度も成功していない初回ロードの
// 失敗に限り、描画層がクラッシュせず空状態を表示できるよう
// 空のコレクションへフォールバックする。
func (s *ListSyncStore) Refresh(ctx context.Context, search string) error {
	s.mu.Lock()
	s.issuedSeq++
	seq := s.issuedSeq
	s.phase = PhaseLoading
	s.searchTerm = search
	s.mu.Unlock()
	s.changed()

	items, err := s.client.List(ctx, search)

	s.mu.Lock()
	if seq < s.issuedSeq {
		s.mu.Unlock()
		s.metrics.RecordStaleDiscard(s.resource)
		s.logger.Info("古いリフレッシュ応答を破棄しました",
			slog.String("resource", s.resource),
			slog.Uint64("seq", seq),
		)
		return nil
	}

	if err != nil {
		if !s.loadedOnce {
			s.items = []model.Item{}
		}
		s.phase = PhaseError
		s.clampPageLocked()
		s.mu.Unlock()
		s.changed()
		s.logger.Error("コレクションの取得に失敗しました",
			slog.String("resource", s.resource),
			slog.String("error", err.Error()),
		)
		return err
	}

	s.items = items
	s.phase = PhaseReady
	s.loadedOnce = true
	s.clampPageLocked()
	s.mu.Unlock()
	s.changed()

	s.logger.Info("コレクションを更新しました",
		slog.String("resource", s.resource),
		slog.Int("count", len(items)),
	)
	return nil
}

// Get はアイテムを1件バックエンドから取得する。編集フォームの初期表示用で、
// 取得結果はコレクション状態へ反映しない（反映はUpdate成功時に行う）。
// ITEM_NOT_FOUNDを含むエラーはそのまま伝播する。
func (s *ListSyncStore) Get(ctx context.Context, id string) (model.Item, error) {
	return s.client.GetByID(ctx, id)
}

// Create はアイテムを新規作成し、成功時に返却されたアイテムを末尾へ追加する。
// 追加方式（全件リフレッシュではなくappend）は全ミューテーションで一貫させる。
// 失敗時はitemsに手を付けず、エラー種別をそのまま伝播する。
func (s *ListSyncStore) Create(ctx context.Context, fields model.ItemFields, images []model.ImageInput) (model.Item, error) {
	if fields.Title == "" {
		return model.Item{}, model.NewLocalValidationError("タイトル")
	}

	created, err := s.client.Create(ctx, fields, images)
	if err != nil {
		return model.Item{}, err
	}

	s.mu.Lock()
	s.items = append(s.items, created)
	s.mu.Unlock()
	s.changed()

	return created, nil
}

// Update はアイテムを更新し、成功時にIDの一致する要素をその場で置き換える。
// ITEM_NOT_FOUNDの場合はサーバー側に存在しないため、ローカルからも除去した上で
// エラーを表面化する。
func (s *ListSyncStore) Update(ctx context.Context, id string, fields model.ItemFields, images []model.ImageInput) (model.Item, error) {
	updated, err := s.client.Update(ctx, id, fields, images)
	if err != nil {
		if model.IsNotFound(err) {
			s.removeLocal(id)
		}
		return model.Item{}, err
	}

	s.mu.Lock()
	for i := range s.items {
		if s.items[i].ID == id {
			s.items[i] = updated
			break
		}
	}
	s.mu.Unlock()
	s.changed()

	return updated, nil
}

// Remove はアイテムを削除する。確認後楽観方式（optimistic-after-confirm）:
// ローカルからの除去はバックエンドの成功応答の後にのみ行い、
// 拒否された削除を成功として見せることを避ける。
func (s *ListSyncStore) Remove(ctx context.Context, id string) error {
	if err := s.client.Remove(ctx, id); err != nil {
		return err
	}
	s.removeLocal(id)
	return nil
}

// removeLocal はIDの一致する要素をローカル状態から除去する。
func (s *ListSyncStore) removeLocal(id string) {
	s.mu.Lock()
	for i := range s.items {
		if s.items[i].ID == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			break
		}
	}
	s.clampPageLocked()
	s.mu.Unlock()
	s.changed()
}

// Paginate は現在ページを変更する。ネットワーク呼び出しは発生しない。
// pageは[1, 総ページ数]へクランプされる。冪等であり、同じページ番号での
// 再呼び出しは同じ可視スライスを生む。
func (s *ListSyncStore) Paginate(page int) {
	s.mu.Lock()
	s.page = page
	s.clampPageLocked()
	s.mu.Unlock()
	s.changed()
}

// clampPageLocked は現在ページを有効範囲へ収める。ロック保持中に呼ぶこと。
func (s *ListSyncStore) clampPageLocked() {
	maxPage := (len(s.items) + s.pageSize - 1) / s.pageSize
	if maxPage < 1 {
		maxPage = 1
	}
	if s.page < 1 {
		s.page = 1
	}
	if s.page > maxPage {
		s.page = maxPage
	}
}

// Snapshot はコレクション状態の読み取り専用コピーを返す。
type Snapshot struct {
	Items      []model.Item
	Phase      Phase
	SearchTerm string
	Page       int
	PageSize   int
	TotalPages int
	// PageItems は現在ページの可視スライス。
	PageItems []model.Item
	// Preview はギャラリー用の先頭プレビュー（最大preview件）。
	Preview []model.Item
	// HasMore はプレビューに収まらないアイテムが存在するかどうか。
	HasMore bool
}

// Snapshot は描画層へ渡す読み取り専用の射影を返す。
// スライスはコピーであり、呼び出し側が保持してもストア内部と競合しない。
func (s *ListSyncStore) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	totalPages := (len(s.items) + s.pageSize - 1) / s.pageSize
	if totalPages < 1 {
		totalPages = 1
	}

	start := (s.page - 1) * s.pageSize
	end := start + s.pageSize
	if start > len(s.items) {
		start = len(s.items)
	}
	if end > len(s.items) {
		end = len(s.items)
	}

	previewEnd := s.preview
	if previewEnd > len(s.items) {
		previewEnd = len(s.items)
	}

	snap := Snapshot{
		Items:      make([]model.Item, len(s.items)),
		Phase:      s.phase,
		SearchTerm: s.searchTerm,
		Page:       s.page,
		PageSize:   s.pageSize,
		TotalPages: totalPages,
		PageItems:  make([]model.Item, end-start),
		Preview:    make([]model.Item, previewEnd),
		HasMore:    len(s.items) > s.preview,
	}
	copy(snap.Items, s.items)
	copy(snap.PageItems, s.items[start:end])
	copy(snap.Preview, s.items[:previewEnd])

	return snap
}

// ItemCount は現在のアイテム数を返す。自動送りタイマーが参照する。
func (s *ListSyncStore) ItemCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// SearchTerm は現在の検索語を返す。
func (s *ListSyncStore) SearchTerm() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.searchTerm
}
