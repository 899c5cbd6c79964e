// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// ワーカーやサービス層から利用する。
type MetricsCollector interface {
	RecordDigestSent(tweetCount int)
	RecordDigestFailed()
	RecordDigestSkipped()
	RecordTimelineFetchFailure()
	RecordDigestDuration(duration time.Duration)
	RecordBatchRun(userCount int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	digestSent     prometheus.Counter
	digestFailed   prometheus.Counter
	digestSkipped  prometheus.Counter
	fetchFail      prometheus.Counter
	tweetsIncluded prometheus.Counter
	digestDuration prometheus.Histogram
	batchRuns      prometheus.Counter
	batchUsers     prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		digestSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tweetdigest_digest_sent_total",
			Help: "送信に成功したダイジェストの合計数",
		}),
		digestFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tweetdigest_digest_failed_total",
			Help: "送信に失敗したダイジェストの合計数",
		}),
		digestSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tweetdigest_digest_skipped_total",
			Help: "認証情報不足でスキップしたダイジェストの合計数",
		}),
		fetchFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tweetdigest_timeline_fetch_fail_total",
			Help: "タイムライン取得失敗の合計数",
		}),
		tweetsIncluded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tweetdigest_tweets_included_total",
			Help: "ダイジェストに含まれたツイートの合計数",
		}),
		digestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "tweetdigest_digest_duration_seconds",
			Help:    "1ユーザーのダイジェスト処理時間（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		batchRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tweetdigest_batch_runs_total",
			Help: "バッチ実行の合計数",
		}),
		batchUsers: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tweetdigest_batch_users_total",
			Help: "バッチで処理対象となったユーザーの合計数",
		}),
	}

	reg.MustRegister(
		c.digestSent,
		c.digestFailed,
		c.digestSkipped,
		c.fetchFail,
		c.tweetsIncluded,
		c.digestDuration,
		c.batchRuns,
		c.batchUsers,
	)

	return c
}

// RecordDigestSent はダイジェスト送信成功と含まれたツイート数を記録する。
func (c *Collector) RecordDigestSent(tweetCount int) {
	c.digestSent.Inc()
	c.tweetsIncluded.Add(float64(tweetCount))
}

// RecordDigestFailed はダイジェスト送信失敗を記録する。
func (c *Collector) RecordDigestFailed() {
	c.digestFailed.Inc()
}

// RecordDigestSkipped は認証情報不足によるスキップを記録する。
func (c *Collector) RecordDigestSkipped() {
	c.digestSkipped.Inc()
}

// RecordTimelineFetchFailure はタイムライン取得失敗を記録する。
func (c *Collector) RecordTimelineFetchFailure() {
	c.fetchFail.Inc()
}

// RecordDigestDuration は1ユーザーのダイジェスト処理時間を記録する。
func (c *Collector) RecordDigestDuration(duration time.Duration) {
	c.digestDuration.Observe(duration.Seconds())
}

// RecordBatchRun はバッチ実行と対象ユーザー数を記録する。
func (c *Collector) RecordBatchRun(userCount int) {
	c.batchRuns.Inc()
	c.batchUsers.Add(float64(userCount))
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
