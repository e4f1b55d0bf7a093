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
// トランスポートとダッシュボードコントローラから利用する。
type MetricsCollector interface {
	RecordHTTPStatus(statusCode int)
	RecordRequestLatency(duration time.Duration)
	RecordMutation(action string, success bool)
	RecordNotification(kind string)
	RecordListRefresh()
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	httpStatus     *prometheus.CounterVec
	requestLatency prometheus.Histogram
	mutations      *prometheus.CounterVec
	notifications  *prometheus.CounterVec
	listRefreshes  prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sweetshop_http_status_total",
			Help: "HTTPステータスコード別のAPIレスポンス数",
		}, []string{"status_code"}),
		requestLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "sweetshop_request_latency_seconds",
			Help:    "APIリクエストのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sweetshop_mutations_total",
			Help: "在庫変更アクションの実行数（成否別）",
		}, []string{"action", "outcome"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sweetshop_notifications_total",
			Help: "表示された通知バナーの数（種別別）",
		}, []string{"kind"}),
		listRefreshes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sweetshop_list_refresh_total",
			Help: "変更後に実行された商品リスト再取得の合計数",
		}),
	}

	reg.MustRegister(
		c.httpStatus,
		c.requestLatency,
		c.mutations,
		c.notifications,
		c.listRefreshes,
	)

	return c
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordRequestLatency はAPIリクエストのレイテンシを記録する。
func (c *Collector) RecordRequestLatency(duration time.Duration) {
	c.requestLatency.Observe(duration.Seconds())
}

// RecordMutation は在庫変更アクションの成否を記録する。
func (c *Collector) RecordMutation(action string, success bool) {
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	c.mutations.WithLabelValues(action, outcome).Inc()
}

// RecordNotification は通知バナーの表示を記録する。
func (c *Collector) RecordNotification(kind string) {
	c.notifications.WithLabelValues(kind).Inc()
}

// RecordListRefresh は変更後のリスト再取得を記録する。
func (c *Collector) RecordListRefresh() {
	c.listRefreshes.Inc()
}

// NopCollector は何も記録しないMetricsCollector。
// メトリクスが不要なテストや組み込み利用で使用する。
type NopCollector struct{}

func (NopCollector) RecordHTTPStatus(statusCode int)               {}
func (NopCollector) RecordRequestLatency(duration time.Duration)   {}
func (NopCollector) RecordMutation(action string, success bool)    {}
func (NopCollector) RecordNotification(kind string)                {}
func (NopCollector) RecordListRefresh()                            {}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
