package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder exposes trading loop observations as prometheus metrics. It
// implements usecase.MetricsRecorder.
type Recorder struct {
	cycleDuration prometheus.Histogram
	balance       prometheus.Gauge
	equity        prometheus.Gauge
	openPositions prometheus.Gauge
	plansBuilt    *prometheus.CounterVec
	plansRejected *prometheus.CounterVec
	ordersOpened  *prometheus.CounterVec
	ordersDenied  *prometheus.CounterVec
	riskTrips     *prometheus.CounterVec
}

func NewRecorder() *Recorder {
	return &Recorder{
		cycleDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "swingbot_cycle_duration_seconds",
			Help:    "Duration of one full trading cycle.",
			Buckets: prometheus.DefBuckets,
		}),
		balance: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "swingbot_account_balance",
			Help: "Account balance from the last snapshot.",
		}),
		equity: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "swingbot_account_equity",
			Help: "Account equity from the last snapshot.",
		}),
		openPositions: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "swingbot_open_positions",
			Help: "Open positions across all symbols.",
		}),
		plansBuilt: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "swingbot_plans_built_total",
			Help: "Trade plans produced by the signal builder.",
		}, []string{"symbol"}),
		plansRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "swingbot_plans_rejected_total",
			Help: "Signal evaluations rejected, by first failing check.",
		}, []string{"symbol", "reason"}),
		ordersOpened: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "swingbot_orders_opened_total",
			Help: "Orders confirmed filled by the venue.",
		}, []string{"symbol"}),
		ordersDenied: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "swingbot_orders_rejected_total",
			Help: "Plans that did not result in an open position.",
		}, []string{"symbol"}),
		riskTrips: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "swingbot_risk_trips_total",
			Help: "Risk gate pause episodes, by tripping limit.",
		}, []string{"reason"}),
	}
}

func (r *Recorder) ObserveCycle(d time.Duration) { r.cycleDuration.Observe(d.Seconds()) }

func (r *Recorder) SetAccount(balance, equity float64) {
	r.balance.Set(balance)
	r.equity.Set(equity)
}

func (r *Recorder) SetOpenPositions(n int) { r.openPositions.Set(float64(n)) }

func (r *Recorder) IncPlanBuilt(symbol string) { r.plansBuilt.WithLabelValues(symbol).Inc() }

func (r *Recorder) IncPlanRejected(symbol, reason string) {
	r.plansRejected.WithLabelValues(symbol, reason).Inc()
}

func (r *Recorder) IncOrderOpened(symbol string) { r.ordersOpened.WithLabelValues(symbol).Inc() }

func (r *Recorder) IncOrderRejected(symbol string) { r.ordersDenied.WithLabelValues(symbol).Inc() }

func (r *Recorder) IncRiskTrip(reason string) { r.riskTrips.WithLabelValues(reason).Inc() }
