package wallet

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/radieske/game-provider-platform/internal/shared/apperr"
)

// Metrics counts ledger operations by outcome code.
type Metrics struct {
	ops *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wallet_ledger_ops_total",
			Help: "ledger operations by type and result",
		}, []string{"op", "result"}),
	}
	if reg != nil {
		reg.MustRegister(m.ops)
	}
	return m
}

func (m *Metrics) observe(op string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = string(apperr.CodeOf(err))
	}
	m.ops.WithLabelValues(op, result).Inc()
}
