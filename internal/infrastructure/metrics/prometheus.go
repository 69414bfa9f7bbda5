package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jhoicas/inventario-ledger/internal/application/inventory"
)

var _ inventory.Metrics = (*StockMetrics)(nil)

// StockMetrics contadores y latencias de las operaciones de stock en Prometheus.
type StockMetrics struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

// NewStockMetrics registra las métricas en reg (usar prometheus.DefaultRegisterer en producción).
func NewStockMetrics(reg prometheus.Registerer) *StockMetrics {
	m := &StockMetrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "inventario",
			Subsystem: "stock",
			Name:      "operations_total",
			Help:      "Operaciones de stock por tipo y resultado (ok, rejected, conflict, timeout, invalid, error).",
		}, []string{"op", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "inventario",
			Subsystem: "stock",
			Name:      "operation_duration_seconds",
			Help:      "Duración de las operaciones de stock, incluida la espera de bloqueo.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
	}
	reg.MustRegister(m.operations, m.duration)
	return m
}

// ObserveOperation implementa inventory.Metrics.
func (m *StockMetrics) ObserveOperation(op, outcome string, elapsed time.Duration) {
	m.operations.WithLabelValues(op, outcome).Inc()
	m.duration.WithLabelValues(op).Observe(elapsed.Seconds())
}
