package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/victor/storefront/internal/middleware"
	"github.com/victor/storefront/internal/model"
	"github.com/victor/storefront/internal/store"
	"github.com/victor/storefront/internal/worker/autoscroll"
)

// CollectionHandler は1リソースのコレクション状態の公開と
// ユーザー意図の受け付けを行う。
type CollectionHandler struct {
	// baseCtx はデバウンスされたリフレッシュに使用する。
	// リフレッシュは遅延実行されHTTPリクエストより長生きするため、
	// リクエストのコンテキストではなくアプリケーションのコンテキストに紐づける。
	baseCtx   context.Context
	store     *store.ListSyncStore
	debouncer *store.Debouncer
	scroller  *autoscroll.Scroller // ギャラリー自動送りを持つリソースのみ非nil
	logger    *slog.Logger
}

// NewCollectionHandler はCollectionHandlerの新しいインスタンスを生成する。
// scrollerはギャラリー表示を持たないリソースではnilでよい。
func NewCollectionHandler(
	baseCtx context.Context,
	st *store.ListSyncStore,
	debouncer *store.Debouncer,
	scroller *autoscroll.Scroller,
	logger *slog.Logger,
) *CollectionHandler {
	return &CollectionHandler{
		baseCtx:   baseCtx,
		store:     st,
		debouncer: debouncer,
		scroller:  scroller,
		logger:    logger,
	}
}

// snapshotWithGallery はギャラリーのスクロール位置を含むスナップショット表現。
type snapshotWithGallery struct {
	snapshotView
	GalleryOffset int `json:"galleryOffset"`
}

// GetSnapshot はコレクション状態の読み取り専用スナップショットを返す。
func (h *CollectionHandler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	view := toSnapshotView(h.store.Snapshot())

	if h.scroller != nil {
		writeJSON(w, http.StatusOK, snapshotWithGallery{
			snapshotView:  view,
			GalleryOffset: h.scroller.Offset(),
		})
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// searchRequest は検索意図のリクエストボディ。
type searchRequest struct {
	Term string `json:"term"`
}

// Search は検索語の変更を受け付ける。リフレッシュは固定遅延でデバウンスされ、
// 連続したキーストロークは最後の1回だけがネットワークに到達する。
// 202を返した時点ではまだ取得は始まっていない。
func (h *CollectionHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, model.NewValidationError("リクエストボディを解析できません。"))
		return
	}

	term := req.Term
	h.debouncer.Schedule(func() {
		if err := h.store.Refresh(h.baseCtx, term); err != nil {
			h.logger.Error("検索リフレッシュに失敗しました",
				slog.String("term", term),
				slog.String("error", err.Error()),
			)
		}
	})

	w.WriteHeader(http.StatusAccepted)
}

// Refresh はデバウンスなしの即時リフレッシュを受け付ける（初回ロード用）。
func (h *CollectionHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Refresh(r.Context(), h.store.SearchTerm()); err != nil {
		middleware.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSnapshotView(h.store.Snapshot()))
}

// pageRequest はページ変更意図のリクエストボディ。
type pageRequest struct {
	Page int `json:"page"`
}

// SetPage は現在ページを変更する。ネットワーク呼び出しは発生せず、
// ページ番号は有効範囲へクランプされる。
func (h *CollectionHandler) SetPage(w http.ResponseWriter, r *http.Request) {
	var req pageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, model.NewValidationError("リクエストボディを解析できません。"))
		return
	}

	h.store.Paginate(req.Page)
	writeJSON(w, http.StatusOK, toSnapshotView(h.store.Snapshot()))
}

// imageInput は作成・更新リクエストの画像入力。
// urlが設定されていれば保存済み画像、dataが設定されていれば新規ファイル
// （JSONのbase64エンコード）として扱う。
type imageInput struct {
	URL      string `json:"url"`
	FileName string `json:"fileName"`
	Data     []byte `json:"data"`
}

// mutateRequest は作成・更新意図のリクエストボディ。
type mutateRequest struct {
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Link        string       `json:"link"`
	Images      []imageInput `json:"images"`
}

// toModel はリクエストボディをドメインの入力型へ変換する。
func (m mutateRequest) toModel() (model.ItemFields, []model.ImageInput) {
	fields := model.ItemFields{
		Title:       m.Title,
		Description: m.Description,
		Link:        m.Link,
	}
	images := make([]model.ImageInput, 0, len(m.Images))
	for _, img := range m.Images {
		images = append(images, model.ImageInput{
			URL:      img.URL,
			FileName: img.FileName,
			Data:     img.Data,
		})
	}
	return fields, images
}

// GetItem はアイテムを1件取得する（編集フォームの初期表示用）。
// コレクションのスナップショットではなくバックエンドの現在の状態を返す。
func (h *CollectionHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	item, err := h.store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toItemView(item))
}

// Create はアイテムの新規作成を受け付ける。
func (h *CollectionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req mutateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, model.NewValidationError("リクエストボディを解析できません。"))
		return
	}

	fields, images := req.toModel()
	created, err := h.store.Create(r.Context(), fields, images)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toItemView(created))
}

// Update はアイテムの更新を受け付ける。
func (h *CollectionHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req mutateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, model.NewValidationError("リクエストボディを解析できません。"))
		return
	}

	fields, images := req.toModel()
	updated, err := h.store.Update(r.Context(), id, fields, images)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toItemView(updated))
}

// Delete はアイテムの削除を受け付ける。ローカル状態からの除去は
// バックエンドの成功応答の後にのみ行われる。
func (h *CollectionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.store.Remove(r.Context(), id); err != nil {
		middleware.WriteError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Interact はギャラリーへのユーザー操作を通知し、自動送りを停止する。
func (h *CollectionHandler) Interact(w http.ResponseWriter, r *http.Request) {
	if h.scroller != nil {
		h.scroller.MarkInteraction()
	}
	w.WriteHeader(http.StatusNoContent)
}

// Teardown はビュー破棄に相当する後始末を行う。
// 保留中のデバウンスタスクを取り消す（遅延到着した応答はストアの
// シーケンス破棄規則により適用されない）。
func (h *CollectionHandler) Teardown() {
	h.debouncer.Cancel()
}

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
