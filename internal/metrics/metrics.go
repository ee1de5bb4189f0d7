// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hitoshi/jukeq/internal/model"
)

// MetricsCollector はメトリクス収集のインターフェース。
// サービス層やワーカーから利用する。
type MetricsCollector interface {
	RecordStreamSubmitted()
	RecordLookupFailure()
	RecordVoteCast(direction model.VoteDirection)
	RecordVoteRetracted()
	RecordHTTPStatus(statusCode int)
	RecordRequestLatency(duration time.Duration)
	RecordSessionsCleaned(count int64)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	streamsSubmitted prometheus.Counter
	lookupFailures   prometheus.Counter
	votesCast        *prometheus.CounterVec
	votesRetracted   prometheus.Counter
	httpStatus       *prometheus.CounterVec
	requestLatency   prometheus.Histogram
	sessionsCleaned  prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		streamsSubmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "jukeq_streams_submitted_total",
			Help: "登録されたストリームの合計数",
		}),
		lookupFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "jukeq_metadata_lookup_failures_total",
			Help: "動画メタデータ取得失敗の合計数",
		}),
		votesCast: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "jukeq_votes_cast_total",
			Help: "方向別のcast投票の合計数",
		}, []string{"direction"}),
		votesRetracted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "jukeq_votes_retracted_total",
			Help: "取り消された投票の合計数",
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "jukeq_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		requestLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "jukeq_request_latency_seconds",
			Help:    "HTTPリクエストのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		sessionsCleaned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "jukeq_sessions_cleaned_total",
			Help: "クリーンアップされた期限切れセッションの合計数",
		}),
	}

	reg.MustRegister(
		c.streamsSubmitted,
		c.lookupFailures,
		c.votesCast,
		c.votesRetracted,
		c.httpStatus,
		c.requestLatency,
		c.sessionsCleaned,
	)

	return c
}

// RecordStreamSubmitted はストリーム登録を記録する。
func (c *Collector) RecordStreamSubmitted() {
	c.streamsSubmitted.Inc()
}

// RecordLookupFailure はメタデータ取得失敗を記録する。
func (c *Collector) RecordLookupFailure() {
	c.lookupFailures.Inc()
}

// RecordVoteCast は投票を方向別に記録する。
func (c *Collector) RecordVoteCast(direction model.VoteDirection) {
	label := "up"
	if direction == model.VoteDown {
		label = "down"
	}
	c.votesCast.WithLabelValues(label).Inc()
}

// RecordVoteRetracted は投票の取り消しを記録する。
func (c *Collector) RecordVoteRetracted() {
	c.votesRetracted.Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordRequestLatency はリクエストのレイテンシを記録する。
func (c *Collector) RecordRequestLatency(duration time.Duration) {
	c.requestLatency.Observe(duration.Seconds())
}

// RecordSessionsCleaned はクリーンアップされた期限切れセッション数を記録する。
func (c *Collector) RecordSessionsCleaned(count int64) {
	c.sessionsCleaned.Add(float64(count))
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
// Prometheusスクレイプに対応する。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}
