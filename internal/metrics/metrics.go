// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// 拒否理由・分岐・発行経路のラベル値。
const (
	PathDirect   = "direct"
	PathRedeemed = "redeemed"

	ReasonMissing = "missing"
	ReasonUnknown = "unknown"
	ReasonExpired = "expired"

	BranchInvalid = "invalid"
)

// MetricsCollector はメトリクス収集のインターフェース。
// サービス層、ミドルウェア、ワーカーから利用する。
type MetricsCollector interface {
	RecordTokenIssued(path string)
	RecordTokensEvicted(count int)
	RecordPaymentRegistered()
	RecordPaymentRedeemed(ok bool)
	RecordAccessRejected(reason string)
	RecordCalculation(branch string)
	RecordHTTPStatus(statusCode int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	tokensIssued       *prometheus.CounterVec
	tokensEvicted      prometheus.Counter
	paymentsRegistered prometheus.Counter
	paymentsRedeemed   *prometheus.CounterVec
	accessRejected     *prometheus.CounterVec
	calculations       *prometheus.CounterVec
	httpStatus         *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		tokensIssued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scaffcalc_tokens_issued_total",
			Help: "発行経路別のアクセストークン発行数",
		}, []string{"path"}),
		tokensEvicted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scaffcalc_tokens_evicted_total",
			Help: "期限切れにより削除されたアクセストークン数",
		}),
		paymentsRegistered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scaffcalc_payments_registered_total",
			Help: "登録された支払い待ちの合計数",
		}),
		paymentsRedeemed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scaffcalc_payments_redeemed_total",
			Help: "結果別の支払い引き換え試行数",
		}, []string{"result"}),
		accessRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scaffcalc_access_rejected_total",
			Help: "理由別のアクセス拒否数",
		}, []string{"reason"}),
		calculations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scaffcalc_calculations_total",
			Help: "分岐別の計算リクエスト数",
		}, []string{"branch"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scaffcalc_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
	}

	reg.MustRegister(
		c.tokensIssued,
		c.tokensEvicted,
		c.paymentsRegistered,
		c.paymentsRedeemed,
		c.accessRejected,
		c.calculations,
		c.httpStatus,
	)

	return c
}

// RecordTokenIssued はトークン発行を記録する。
func (c *Collector) RecordTokenIssued(path string) {
	c.tokensIssued.WithLabelValues(path).Inc()
}

// RecordTokensEvicted は削除されたトークン数を記録する。
func (c *Collector) RecordTokensEvicted(count int) {
	c.tokensEvicted.Add(float64(count))
}

// RecordPaymentRegistered は支払い待ちの登録を記録する。
func (c *Collector) RecordPaymentRegistered() {
	c.paymentsRegistered.Inc()
}

// RecordPaymentRedeemed は支払い引き換えの結果を記録する。
func (c *Collector) RecordPaymentRedeemed(ok bool) {
	result := "ok"
	if !ok {
		result = "invalid"
	}
	c.paymentsRedeemed.WithLabelValues(result).Inc()
}

// RecordAccessRejected はアクセス拒否を記録する。
func (c *Collector) RecordAccessRejected(reason string) {
	c.accessRejected.WithLabelValues(reason).Inc()
}

// RecordCalculation は計算リクエストを記録する。
func (c *Collector) RecordCalculation(branch string) {
	c.calculations.WithLabelValues(branch).Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// Nop は何も記録しないMetricsCollector。メトリクス無効時とテストで使う。
type Nop struct{}

func (Nop) RecordTokenIssued(string)    {}
func (Nop) RecordTokensEvicted(int)     {}
func (Nop) RecordPaymentRegistered()    {}
func (Nop) RecordPaymentRedeemed(bool)  {}
func (Nop) RecordAccessRejected(string) {}
func (Nop) RecordCalculation(string)    {}
func (Nop) RecordHTTPStatus(int)        {}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// compile-time interface checks
var (
	_ MetricsCollector = (*Collector)(nil)
	_ MetricsCollector = Nop{}
)
