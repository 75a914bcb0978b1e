package observability

import (
	"math/big"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// EngineMetrics records reserve engine activity: operation outcomes, issued
// and redeemed amounts, and the per-asset free-reserve surplus.
type EngineMetrics struct {
	operations  *prometheus.CounterVec
	amounts     *prometheus.CounterVec
	freeReserve *prometheus.GaugeVec
}

var (
	engineMetricsOnce sync.Once
	engineRegistry    *EngineMetrics
)

// Engine returns the lazily-initialised engine metrics registry.
func Engine() *EngineMetrics {
	engineMetricsOnce.Do(func() {
		engineRegistry = &EngineMetrics{
			operations: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "pegvault",
				Subsystem: "engine",
				Name:      "operations_total",
				Help:      "Total engine operations segmented by operation and outcome.",
			}, []string{"op", "outcome"}),
			amounts: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "pegvault",
				Subsystem: "engine",
				Name:      "amount_total",
				Help:      "Approximate stable-unit volume per operation and asset.",
			}, []string{"op", "asset"}),
			freeReserve: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Namespace: "pegvault",
				Subsystem: "engine",
				Name:      "free_reserve",
				Help:      "Approximate free-reserve surplus per asset in stable units.",
			}, []string{"asset"}),
		}
		prometheus.MustRegister(
			engineRegistry.operations,
			engineRegistry.amounts,
			engineRegistry.freeReserve,
		)
	})
	return engineRegistry
}

// ObserveOperation records the outcome of an engine operation.
func (m *EngineMetrics) ObserveOperation(op string, err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.operations.WithLabelValues(op, outcome).Inc()
}

// AddAmount accumulates the stable-unit volume moved by an operation. Amounts
// are approximated as float64; the counter is for dashboards, not accounting.
func (m *EngineMetrics) AddAmount(op, asset string, amount *big.Int) {
	if m == nil || amount == nil || amount.Sign() <= 0 {
		return
	}
	m.amounts.WithLabelValues(op, asset).Add(approximate(amount))
}

// SetFreeReserve records the current surplus for an asset.
func (m *EngineMetrics) SetFreeReserve(asset string, amount *big.Int) {
	if m == nil {
		return
	}
	if amount == nil {
		m.freeReserve.WithLabelValues(asset).Set(0)
		return
	}
	m.freeReserve.WithLabelValues(asset).Set(approximate(amount))
}

func approximate(amount *big.Int) float64 {
	value, _ := new(big.Float).SetInt(amount).Float64()
	return value
}
