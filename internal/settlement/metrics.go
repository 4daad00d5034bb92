package settlement

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/radieske/game-provider-platform/internal/shared/apperr"
)

// Metrics tracks plays by game and outcome, settlement latency and money
// moved.
type Metrics struct {
	plays    *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	wagered  *prometheus.CounterVec
	paid     *prometheus.CounterVec
	replayed prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		plays: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "settlement_plays_total",
			Help: "plays by game and result code",
		}, []string{"game", "result"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "settlement_play_duration_seconds",
			Help:    "time from lock acquisition to response",
			Buckets: prometheus.DefBuckets,
		}, []string{"game"}),
		wagered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "settlement_wagered_total",
			Help: "stake debited, by game and currency",
		}, []string{"game", "currency"}),
		paid: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "settlement_paid_total",
			Help: "wins credited, by game and currency",
		}, []string{"game", "currency"}),
		replayed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "settlement_replays_total",
			Help: "plays answered from an idempotency record",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.plays, m.latency, m.wagered, m.paid, m.replayed)
	}
	return m
}

func (m *Metrics) observePlay(game string, started time.Time, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = string(apperr.CodeOf(err))
	}
	m.plays.WithLabelValues(game, result).Inc()
	m.latency.WithLabelValues(game).Observe(time.Since(started).Seconds())
}

func (m *Metrics) observeMoney(game, currency string, stake, win float64) {
	if m == nil {
		return
	}
	m.wagered.WithLabelValues(game, currency).Add(stake)
	m.paid.WithLabelValues(game, currency).Add(win)
}

func (m *Metrics) observeReplay() {
	if m == nil {
		return
	}
	m.replayed.Inc()
}
