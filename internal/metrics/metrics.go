// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// APIクライアントとストア層から利用する。
type MetricsCollector interface {
	RecordFetchSuccess(resource string)
	RecordFetchFailure(resource string, reason string)
	RecordHTTPStatus(statusCode int)
	RecordFetchLatency(duration time.Duration)
	RecordMutation(resource string, op string)
	RecordStaleDiscard(resource string)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	fetchSuccess  *prometheus.CounterVec
	fetchFail     *prometheus.CounterVec
	httpStatus    *prometheus.CounterVec
	fetchLatency  prometheus.Histogram
	mutations     *prometheus.CounterVec
	staleDiscards *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		fetchSuccess: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_fetch_success_total",
			Help: "コレクション取得成功の合計数",
		}, []string{"resource"}),
		fetchFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_fetch_fail_total",
			Help: "コレクション取得失敗の合計数（原因別）",
		}, []string{"resource", "reason"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		fetchLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "storefront_fetch_latency_seconds",
			Help:    "バックエンドAPI呼び出しのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_mutations_total",
			Help: "成功した変更操作の合計数（操作別）",
		}, []string{"resource", "op"}),
		staleDiscards: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_stale_discard_total",
			Help: "シーケンス番号により破棄された古いリフレッシュ応答の合計数",
		}, []string{"resource"}),
	}

	reg.MustRegister(
		c.fetchSuccess,
		c.fetchFail,
		c.httpStatus,
		c.fetchLatency,
		c.mutations,
		c.staleDiscards,
	)

	return c
}

// RecordFetchSuccess はコレクション取得成功を記録する。
func (c *Collector) RecordFetchSuccess(resource string) {
	c.fetchSuccess.WithLabelValues(resource).Inc()
}

// RecordFetchFailure はコレクション取得失敗を原因付きで記録する。
func (c *Collector) RecordFetchFailure(resource string, reason string) {
	c.fetchFail.WithLabelValues(resource, reason).Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordFetchLatency はAPI呼び出しのレイテンシを記録する。
func (c *Collector) RecordFetchLatency(duration time.Duration) {
	c.fetchLatency.Observe(duration.Seconds())
}

// RecordMutation は成功した変更操作を記録する。
func (c *Collector) RecordMutation(resource string, op string) {
	c.mutations.WithLabelValues(resource, op).Inc()
}

// RecordStaleDiscard は破棄された古いリフレッシュ応答を記録する。
func (c *Collector) RecordStaleDiscard(resource string) {
	c.staleDiscards.WithLabelValues(resource).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
