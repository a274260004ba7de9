package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/victor/storefront/internal/metrics"
	"github.com/victor/storefront/internal/model"
	"github.com/victor/storefront/internal/session"
	"github.com/victor/storefront/internal/store"
	"github.com/victor/storefront/internal/worker/autoscroll"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(&bytes.Buffer{}, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

// fakeCollectionAPI はテスト用のCollectionAPI実装。
type fakeCollectionAPI struct {
	mu        sync.Mutex
	items     []model.Item
	listCalls int
	removeErr error
	getErr    error
}

func (f *fakeCollectionAPI) List(ctx context.Context, search string) ([]model.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	return f.items, nil
}

func (f *fakeCollectionAPI) GetByID(ctx context.Context, id string) (model.Item, error) {
	if f.getErr != nil {
		return model.Item{}, f.getErr
	}
	return model.Item{ID: id, Title: "fetched-" + id}, nil
}

func (f *fakeCollectionAPI) Create(ctx context.Context, fields model.ItemFields, images []model.ImageInput) (model.Item, error) {
	return model.Item{ID: "created", Title: fields.Title}, nil
}

func (f *fakeCollectionAPI) Update(ctx context.Context, id string, fields model.ItemFields, images []model.ImageInput) (model.Item, error) {
	return model.Item{ID: id, Title: fields.Title}, nil
}

func (f *fakeCollectionAPI) Remove(ctx context.Context, id string) error {
	return f.removeErr
}

func (f *fakeCollectionAPI) AddComment(ctx context.Context, parentID, text, author string) error {
	return nil
}

func (f *fakeCollectionAPI) listCallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listCalls
}

// memoryTokenStore はテスト用のインメモリTokenStore。
type memoryTokenStore struct {
	token string
}

func (m *memoryTokenStore) Load() (string, error)      { return m.token, nil }
func (m *memoryTokenStore) Save(token string) error    { m.token = token; return nil }
func (m *memoryTokenStore) Clear() error               { m.token = ""; return nil }

type testEnv struct {
	router    http.Handler
	appsAPI   *fakeCollectionAPI
	blogsAPI  *fakeCollectionAPI
	appsStore *store.ListSyncStore
	blogsStore *store.ListSyncStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := newTestLogger()

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	appsAPI := &fakeCollectionAPI{items: []model.Item{
		{ID: "app-1", Title: "App 1"},
		{ID: "app-2", Title: "App 2"},
	}}
	blogsAPI := &fakeCollectionAPI{items: []model.Item{
		{ID: "blog-1", Title: "Blog 1", Comments: []model.Comment{
			{ID: "c1", Text: "最初のコメント", ParentItemID: "blog-1"},
		}},
	}}

	appsStore := store.NewListSyncStore(appsAPI, logger, collector, "applications", 10, 8)
	blogsStore := store.NewListSyncStore(blogsAPI, logger, collector, "blogs", 10, 8)
	threads := store.NewCommentThreads(blogsStore, logger)
	scroller := autoscroll.NewScroller(blogsStore, logger, time.Second, 4, 2)

	sess := session.NewService(http.DefaultClient, logger, "http://unused/login", &memoryTokenStore{})

	ctx := context.Background()
	deps := &RouterDeps{
		Logger:            logger,
		CORSAllowedOrigin: "http://localhost:3000",
		Applications: NewCollectionHandler(
			ctx, appsStore, store.NewDebouncer(20*time.Millisecond), nil, logger,
		),
		Blogs: NewCollectionHandler(
			ctx, blogsStore, store.NewDebouncer(20*time.Millisecond), scroller, logger,
		),
		Comments: NewCommentHandler(threads, blogsStore),
		Auth:     NewAuthHandler(sess),
		Gatherer: registry,
	}

	return &testEnv{
		router:     NewRouter(deps),
		appsAPI:    appsAPI,
		blogsAPI:   blogsAPI,
		appsStore:  appsStore,
		blogsStore: blogsStore,
	}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("リクエストボディのエンコードに失敗: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func TestRouter_Health(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("ステータス = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestRouter_Metrics(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/metrics", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("ステータス = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestGetSnapshot_Applications(t *testing.T) {
	env := newTestEnv(t)
	if err := env.appsStore.Refresh(context.Background(), ""); err != nil {
		t.Fatalf("Refresh がエラーを返した: %v", err)
	}

	rec := env.do(t, http.MethodGet, "/api/applications/", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("ステータス = %d, want %d", rec.Code, http.StatusOK)
	}

	var snap snapshotView
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatalf("レスポンスのパースに失敗: %v", err)
	}
	if snap.Phase != string(store.PhaseReady) {
		t.Errorf("phase = %q, want %q", snap.Phase, store.PhaseReady)
	}
	if snap.Total != 2 {
		t.Errorf("total = %d, want 2", snap.Total)
	}
	if len(snap.PageItems) != 2 {
		t.Errorf("pageItems = %d件, want 2件", len(snap.PageItems))
	}
}

func TestGetSnapshot_BlogsIncludesGalleryOffset(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/blogs/", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("ステータス = %d, want %d", rec.Code, http.StatusOK)
	}

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("レスポンスのパースに失敗: %v", err)
	}
	if _, ok := body["galleryOffset"]; !ok {
		t.Error("ギャラリーを持つリソースのスナップショットには galleryOffset が含まれるべき")
	}
}

func TestSearch_DebouncedRefresh(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/applications/search", map[string]string{"term": "game"})
	if rec.Code != http.StatusAccepted {
		t.Fatalf("ステータス = %d, want %d", rec.Code, http.StatusAccepted)
	}

	// 202の時点ではまだ取得は始まっていない
	if env.appsAPI.listCallCount() != 0 {
		t.Error("デバウンス遅延の経過前に取得が始まってはならない")
	}

	// 遅延経過後にリフレッシュが1回だけ実行される
	deadline := time.Now().Add(time.Second)
	for env.appsAPI.listCallCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if got := env.appsAPI.listCallCount(); got != 1 {
		t.Errorf("取得回数 = %d, want 1", got)
	}
	if got := env.appsStore.SearchTerm(); got != "game" {
		t.Errorf("SearchTerm = %q, want %q", got, "game")
	}
}

func TestSearch_RapidKeystrokesCollapseToOne(t *testing.T) {
	env := newTestEnv(t)

	for _, term := range []string{"g", "ga", "gam", "game"} {
		env.do(t, http.MethodPost, "/api/applications/search", map[string]string{"term": term})
	}

	deadline := time.Now().Add(time.Second)
	for env.appsAPI.listCallCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	// 念のため追加実行がないことを確認する
	time.Sleep(60 * time.Millisecond)

	if got := env.appsAPI.listCallCount(); got != 1 {
		t.Errorf("取得回数 = %d, 連続入力は最後の1回だけがネットワークに到達すべき", got)
	}
	if got := env.appsStore.SearchTerm(); got != "game" {
		t.Errorf("SearchTerm = %q, want %q", got, "game")
	}
}

func TestSetPage_Clamped(t *testing.T) {
	env := newTestEnv(t)
	if err := env.appsStore.Refresh(context.Background(), ""); err != nil {
		t.Fatalf("Refresh がエラーを返した: %v", err)
	}

	rec := env.do(t, http.MethodPost, "/api/applications/page", map[string]int{"page": 99})
	if rec.Code != http.StatusOK {
		t.Fatalf("ステータス = %d, want %d", rec.Code, http.StatusOK)
	}

	var snap snapshotView
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatalf("レスポンスのパースに失敗: %v", err)
	}
	if snap.Page != 1 {
		t.Errorf("page = %d, 範囲外は有効範囲へクランプされるべき", snap.Page)
	}
}

func TestGetItem_ReturnsSingleItem(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/applications/app-1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("ステータス = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body.String())
	}

	var item itemView
	if err := json.Unmarshal(rec.Body.Bytes(), &item); err != nil {
		t.Fatalf("レスポンスのパースに失敗: %v", err)
	}
	if item.ID != "app-1" {
		t.Errorf("id = %q, want %q", item.ID, "app-1")
	}
	if item.Title != "fetched-app-1" {
		t.Errorf("title = %q, バックエンドから取得した内容が返るべき", item.Title)
	}
}

func TestGetItem_NotFoundReturns404(t *testing.T) {
	env := newTestEnv(t)
	env.appsAPI.getErr = model.NewItemNotFoundError("gone")

	rec := env.do(t, http.MethodGet, "/api/applications/gone", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("ステータス = %d, want %d", rec.Code, http.StatusNotFound)
	}

	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("レスポンスのパースに失敗: %v", err)
	}
	if body["code"] != model.ErrCodeItemNotFound {
		t.Errorf("code = %q, want %q", body["code"], model.ErrCodeItemNotFound)
	}
}

func TestGetItem_BlogsRouteWired(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/blogs/blog-1", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("ステータス = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestCreate_ReturnsCreatedItem(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/applications/", map[string]any{
		"title": "新規アプリ", "description": "説明", "link": "https://example.com",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("ステータス = %d, want %d: %s", rec.Code, http.StatusCreated, rec.Body.String())
	}

	var item itemView
	if err := json.Unmarshal(rec.Body.Bytes(), &item); err != nil {
		t.Fatalf("レスポンスのパースに失敗: %v", err)
	}
	if item.ID != "created" {
		t.Errorf("id = %q, want %q", item.ID, "created")
	}
}

func TestCreate_EmptyTitleReturns400(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/applications/", map[string]string{"title": ""})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("ステータス = %d, want %d", rec.Code, http.StatusBadRequest)
	}

	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("レスポンスのパースに失敗: %v", err)
	}
	if body["code"] != model.ErrCodeLocalValidation {
		t.Errorf("code = %q, want %q", body["code"], model.ErrCodeLocalValidation)
	}
}

func TestDelete_RemovesItem(t *testing.T) {
	env := newTestEnv(t)
	if err := env.appsStore.Refresh(context.Background(), ""); err != nil {
		t.Fatalf("Refresh がエラーを返した: %v", err)
	}

	rec := env.do(t, http.MethodDelete, "/api/applications/app-1", nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("ステータス = %d, want %d", rec.Code, http.StatusNoContent)
	}

	if got := env.appsStore.ItemCount(); got != 1 {
		t.Errorf("アイテム数 = %d, want 1", got)
	}
}

func TestDelete_BackendRejectionReturns502(t *testing.T) {
	env := newTestEnv(t)
	if err := env.appsStore.Refresh(context.Background(), ""); err != nil {
		t.Fatalf("Refresh がエラーを返した: %v", err)
	}

	env.appsAPI.removeErr = model.NewFetchFailedError("拒否")
	rec := env.do(t, http.MethodDelete, "/api/applications/app-1", nil)
	if rec.Code != http.StatusBadGateway {
		t.Errorf("ステータス = %d, want %d", rec.Code, http.StatusBadGateway)
	}
	if got := env.appsStore.ItemCount(); got != 2 {
		t.Errorf("アイテム数 = %d, 拒否された削除でローカルから除去してはならない", got)
	}
}

func TestCommentThread_ExpandAndGet(t *testing.T) {
	env := newTestEnv(t)
	if err := env.blogsStore.Refresh(context.Background(), ""); err != nil {
		t.Fatalf("Refresh がエラーを返した: %v", err)
	}

	if rec := env.do(t, http.MethodPost, "/api/blogs/blog-1/comments/expand", nil); rec.Code != http.StatusNoContent {
		t.Fatalf("ステータス = %d, want %d", rec.Code, http.StatusNoContent)
	}

	rec := env.do(t, http.MethodGet, "/api/blogs/blog-1/thread", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("ステータス = %d, want %d", rec.Code, http.StatusOK)
	}

	var thread threadView
	if err := json.Unmarshal(rec.Body.Bytes(), &thread); err != nil {
		t.Fatalf("レスポンスのパースに失敗: %v", err)
	}
	if !thread.Expanded {
		t.Error("expand 後のスレッドは expanded = true であるべき")
	}
	if len(thread.Comments) != 1 || thread.Comments[0].Text != "最初のコメント" {
		t.Errorf("comments = %+v", thread.Comments)
	}
}

func TestCommentSubmit_BlankTextReturns400(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/blogs/blog-1/comments", map[string]string{"text": "   "})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("ステータス = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestCommentSubmit_Success(t *testing.T) {
	env := newTestEnv(t)
	if err := env.blogsStore.Refresh(context.Background(), ""); err != nil {
		t.Fatalf("Refresh がエラーを返した: %v", err)
	}

	rec := env.do(t, http.MethodPost, "/api/blogs/blog-1/comments", map[string]string{
		"text": "いいですね", "author": "Taro",
	})
	if rec.Code != http.StatusNoContent {
		t.Errorf("ステータス = %d, want %d: %s", rec.Code, http.StatusNoContent, rec.Body.String())
	}
}

func TestInteract_Returns204(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/blogs/interact", nil)
	if rec.Code != http.StatusNoContent {
		t.Errorf("ステータス = %d, want %d", rec.Code, http.StatusNoContent)
	}
}

func TestAuthMe_UnauthenticatedByDefault(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/auth/me", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("ステータス = %d, want %d", rec.Code, http.StatusOK)
	}

	var body map[string]bool
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("レスポンスのパースに失敗: %v", err)
	}
	if body["authenticated"] {
		t.Error("初期状態では未認証であるべき")
	}
}

func TestAuthLogin_EmptyCredentialsReturns400(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/auth/login", map[string]string{"email": "", "password": ""})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("ステータス = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestAuthLogout_Returns204(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/auth/logout", nil)
	if rec.Code != http.StatusNoContent {
		t.Errorf("ステータス = %d, want %d", rec.Code, http.StatusNoContent)
	}
}

func TestSecurityHeaders_AppliedToAllRoutes(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/health", nil)
	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q, want %q", got, "nosniff")
	}
}

func TestToItemView_NilImagesBecomesEmptySlice(t *testing.T) {
	view := toItemView(model.Item{ID: "a"})

	if view.Images == nil {
		t.Error("images は null ではなく空配列としてシリアライズされるべき")
	}

	data, err := json.Marshal(view)
	if err != nil {
		t.Fatalf("Marshal がエラーを返した: %v", err)
	}
	if strings.Contains(string(data), `"images":null`) {
		t.Error("images が null でシリアライズされた")
	}
}
