// Package api はバックエンドREST APIのリソース別クライアントを提供する。
// 1つの論理操作を1つのHTTP呼び出しに対応させ、トランスポートの詳細を
// ストア層へ漏らさず、失敗は統一エラーフォーマット（model.APIError）で表面化する。
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/victor/storefront/internal/metrics"
	"github.com/victor/storefront/internal/model"
	"github.com/victor/storefront/internal/normalize"
)

// AuthHeaderProvider は呼び出し時点の認証ヘッダーを提供するインターフェース。
// トークンはセッション層が所有し、クライアントは読み取りのみ行う。
type AuthHeaderProvider interface {
	AuthHeader() map[string]string
}

// ClientConfig はリソース別クライアントの設定。
type ClientConfig struct {
	// BaseURL はバックエンドのベースURL。
	BaseURL string
	// ResourcePath はリソースのパス（例: /api/v1/applications）。
	ResourcePath string
	// Resource はログ・メトリクス用のリソース名。
	Resource string
	// EnvelopeKeys は一覧レスポンスのエンベロープキーの優先順リスト。
	EnvelopeKeys []string
}

// Client は1リソース（applicationsまたはblog）のRESTクライアント。
// ステートレスであり、コレクションの状態は一切所有しない。
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	session    AuthHeaderProvider
	limiter    *rate.Limiter
	metrics    metrics.MetricsCollector
	normalizer *normalize.Normalizer
	config     ClientConfig
}

// NewClient はClientの新しいインスタンスを生成する。
// limiterはバックエンドへの送信レートを制御する（全リソースで共有可）。
func NewClient(
	httpClient *http.Client,
	logger *slog.Logger,
	session AuthHeaderProvider,
	limiter *rate.Limiter,
	collector metrics.MetricsCollector,
	normalizer *normalize.Normalizer,
	config ClientConfig,
) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     logger,
		session:    session,
		limiter:    limiter,
		metrics:    collector,
		normalizer: normalizer,
		config:     config,
	}
}

// List はアイテム一覧を取得する。searchが空でない場合は検索クエリを付与する。
// レスポンスはエンベロープ形式と素の配列の両方を受理し、正規化済みの配列を返す。
// 通信・デコードのいずれの失敗もFETCH_FAILEDとして返す（コレクションを
// 維持するか空状態へ落とすかの判断は呼び出し元のストアが行う）。
func (c *Client) List(ctx context.Context, search string) ([]model.Item, error) {
	reqURL, err := url.Parse(c.config.BaseURL + c.config.ResourcePath)
	if err != nil {
		return nil, model.NewFetchFailedError("リクエストURLの構築に失敗しました")
	}
	if search != "" {
		q := reqURL.Query()
		q.Set("search", search)
		reqURL.RawQuery = q.Encode()
	}

	// 一覧にはアイテム単位・入力単位のエラー意味論がないため、
	// ステータスによらず通信失敗として揃える
	body, err := c.do(ctx, http.MethodGet, reqURL.String(), nil, "")
	if err != nil {
		return nil, coerceFetchFailed(err)
	}

	wires, err := normalize.DecodeItemList(body, c.config.EnvelopeKeys)
	if err != nil {
		c.logger.Error("一覧レスポンスのデコードに失敗しました",
			slog.String("resource", c.config.Resource),
			slog.String("error", err.Error()),
		)
		c.metrics.RecordFetchFailure(c.config.Resource, "decode")
		return nil, model.NewFetchFailedError("レスポンスの解析に失敗しました")
	}

	c.metrics.RecordFetchSuccess(c.config.Resource)
	return c.normalizer.Items(wires), nil
}

// GetByID はアイテムを1件取得する。
// バックエンドが404を返した場合はITEM_NOT_FOUND、それ以外の失敗は
// 4xx・5xxの区別なくFETCH_FAILEDとして返す（取得操作に検証の意味論はない）。
func (c *Client) GetByID(ctx context.Context, id string) (model.Item, error) {
	body, err := c.do(ctx, http.MethodGet, c.itemURL(id), nil, "")
	if err != nil {
		if model.IsNotFound(err) {
			return model.Item{}, model.NewItemNotFoundError(id)
		}
		return model.Item{}, coerceFetchFailed(err)
	}
	return c.decodeItem(body)
}

// Create はアイテムを新規作成する。
// テキストフィールドと新規ファイルをmultipartペイロードとして送信する。
// 4xxはバックエンドのメッセージを載せたVALIDATION_FAILED、それ以外の失敗はFETCH_FAILED。
func (c *Client) Create(ctx context.Context, fields model.ItemFields, images []model.ImageInput) (model.Item, error) {
	payload, contentType, err := buildMultipart(fields, images)
	if err != nil {
		return model.Item{}, fmt.Errorf("failed to build multipart payload: %w", err)
	}

	body, err := c.do(ctx, http.MethodPost, c.config.BaseURL+c.config.ResourcePath, payload, contentType)
	if err != nil {
		return model.Item{}, err
	}

	c.metrics.RecordMutation(c.config.Resource, "create")
	return c.decodeItem(body)
}

// Update はアイテムを更新する。ペイロードの規則はCreateと同じで、
// 新規ファイルのみを再アップロードし、URL文字列の保存済み画像は送信しない。
// 404はITEM_NOT_FOUND、その他の4xxはVALIDATION_FAILED。
func (c *Client) Update(ctx context.Context, id string, fields model.ItemFields, images []model.ImageInput) (model.Item, error) {
	payload, contentType, err := buildMultipart(fields, images)
	if err != nil {
		return model.Item{}, fmt.Errorf("failed to build multipart payload: %w", err)
	}

	body, err := c.do(ctx, http.MethodPut, c.itemURL(id), payload, contentType)
	if err != nil {
		return model.Item{}, c.mapNotFound(err, id)
	}

	c.metrics.RecordMutation(c.config.Resource, "update")
	return c.decodeItem(body)
}

// Remove はアイテムを削除する。非2xxはFETCH_FAILEDとして返す。
// ローカル状態からの楽観的な除去は呼び出し元の責務（確認後にのみ除去する）。
func (c *Client) Remove(ctx context.Context, id string) error {
	if _, err := c.do(ctx, http.MethodDelete, c.itemURL(id), nil, ""); err != nil {
		return coerceFetchFailed(err)
	}
	c.metrics.RecordMutation(c.config.Resource, "remove")
	return nil
}

// AddComment は親アイテムへコメントを投稿する。
// コメントのIDと日時はバックエンドが採番するため、このメソッドは結果を返さない。
// 呼び出し元は成功後に親コレクションを全件リフレッシュして権威ある状態と同期する
// （増分マージはIDの重複・不整合を招くため行わない）。
func (c *Client) AddComment(ctx context.Context, parentID, text, author string) error {
	payload, err := json.Marshal(map[string]string{"text": text, "author": author})
	if err != nil {
		return fmt.Errorf("failed to encode comment: %w", err)
	}

	commentURL := c.itemURL(parentID) + "/comments"
	if _, err := c.do(ctx, http.MethodPost, commentURL, bytes.NewReader(payload), "application/json"); err != nil {
		return coerceFetchFailed(err)
	}

	c.metrics.RecordMutation(c.config.Resource, "comment")
	return nil
}

// itemURL はアイテム単体のURLを構築する。
func (c *Client) itemURL(id string) string {
	return c.config.BaseURL + c.config.ResourcePath + "/" + url.PathEscape(id)
}

// do はHTTPリクエストを実行し、成功時のレスポンスボディを返す。
// レートリミッタで送信を抑制し、呼び出し時点の認証ヘッダーを付与し、
// ステータス・レイテンシのメトリクスを記録する。
// 非2xxはステータスに応じたAPIErrorへ変換する。
func (c *Client) do(ctx context.Context, method, rawURL string, body io.Reader, contentType string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, model.NewFetchFailedError("リクエストが中断されました")
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, model.NewFetchFailedError("リクエストの構築に失敗しました")
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for key, value := range c.session.AuthHeader() {
		req.Header.Set(key, value)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.RecordFetchLatency(time.Since(start))
	if err != nil {
		c.logger.Error("バックエンドAPIの呼び出しに失敗しました",
			slog.String("resource", c.config.Resource),
			slog.String("method", method),
			slog.String("error", err.Error()),
		)
		c.metrics.RecordFetchFailure(c.config.Resource, "transport")
		return nil, model.NewFetchFailedError("リクエストを送信できませんでした")
	}
	defer resp.Body.Close()

	c.metrics.RecordHTTPStatus(resp.StatusCode)

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		c.metrics.RecordFetchFailure(c.config.Resource, "read")
		return nil, model.NewFetchFailedError("レスポンスボディの読み取りに失敗しました")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Error("バックエンドAPIがエラーステータスを返しました",
			slog.String("resource", c.config.Resource),
			slog.String("method", method),
			slog.Int("http_status", resp.StatusCode),
		)
		c.metrics.RecordFetchFailure(c.config.Resource, "status")
		return nil, c.statusError(resp.StatusCode, respBody)
	}

	return respBody, nil
}

// errorBody はバックエンドのエラーレスポンスボディ。
// エンドポイントによりerrorとmessageのどちらで返すかが揺れている。
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// statusError は非2xxステータスをAPIErrorへ変換する。
// ここでの分類は素材であり、操作ごとの意味論は各メソッドが仕上げる:
// 404はITEM_NOT_FOUNDの前段としてセンチネル的に扱い、その他の4xxは
// バックエンドのメッセージを載せたVALIDATION_FAILED（Create/Updateが
// そのまま使う）、5xxおよび解釈不能なレスポンスはFETCH_FAILEDとする。
// List/GetByID/Remove/AddCommentは呼び出し側でFETCH_FAILEDへ揃える。
func (c *Client) statusError(statusCode int, body []byte) error {
	if statusCode == http.StatusNotFound {
		return model.NewItemNotFoundError("")
	}

	if statusCode >= 400 && statusCode < 500 {
		var decoded errorBody
		_ = json.Unmarshal(body, &decoded)
		message := decoded.Error
		if message == "" {
			message = decoded.Message
		}
		return model.NewValidationError(message)
	}

	return model.NewFetchFailedError(fmt.Sprintf("サーバーがステータス %d を返しました", statusCode))
}

// coerceFetchFailed はエラーをFETCH_FAILEDへ揃える。
// 一覧・取得・削除・コメント投稿では4xxの区別が呼び出し元の挙動を
// 変えないため、単一のエラー種別として表面化する。
func coerceFetchFailed(err error) error {
	if model.IsFetchFailed(err) {
		return err
	}
	return model.NewFetchFailedError("リクエストがサーバーに拒否されました")
}

// mapNotFound は404由来のエラーへ対象アイテムIDを補い、それ以外は
// そのまま伝播する（Updateの4xx→VALIDATION_FAILEDを保つため）。
func (c *Client) mapNotFound(err error, id string) error {
	if model.IsNotFound(err) {
		return model.NewItemNotFoundError(id)
	}
	return err
}

// decodeItem はアイテム単体のレスポンスをデコード・正規化する。
func (c *Client) decodeItem(body []byte) (model.Item, error) {
	var wire normalize.WireItem
	if err := json.Unmarshal(body, &wire); err != nil {
		c.metrics.RecordFetchFailure(c.config.Resource, "decode")
		return model.Item{}, model.NewFetchFailedError("レスポンスの解析に失敗しました")
	}
	return c.normalizer.Item(wire), nil
}
