package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

// MarketplaceMetrics tracks order, payment, and settlement activity.
type MarketplaceMetrics struct {
	ordersCreated    *prometheus.CounterVec
	paymentsSettled  prometheus.Counter
	settlementAmount prometheus.Counter
	chainBreaks      prometheus.Counter
}

// NewMarketplaceMetrics registers the marketplace counters on the provided registerer.
func NewMarketplaceMetrics(reg prometheus.Registerer) *MarketplaceMetrics {
	if reg == nil {
		return &MarketplaceMetrics{}
	}
	ordersCreated := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_created_total",
		Help: "Orders created, labeled by terminal outcome when known.",
	}, []string{"status"})
	paymentsSettled := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "payments_settled_total",
		Help: "Payment notifications that marked an order paid.",
	})
	settlementAmount := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "settlement_amount_total",
		Help: "Total escrow amount released to payees.",
	})
	chainBreaks := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "provenance_chain_breaks_total",
		Help: "Hash chain verification failures detected.",
	})
	reg.MustRegister(ordersCreated, paymentsSettled, settlementAmount, chainBreaks)
	return &MarketplaceMetrics{
		ordersCreated:    ordersCreated,
		paymentsSettled:  paymentsSettled,
		settlementAmount: settlementAmount,
		chainBreaks:      chainBreaks,
	}
}

// IncOrderCreated increments the created-order counter for the given status label.
func (m *MarketplaceMetrics) IncOrderCreated(status string) {
	if m == nil || m.ordersCreated == nil {
		return
	}
	m.ordersCreated.WithLabelValues(normalizeLabel(status)).Inc()
}

// IncPaymentSettled increments the settled-payment counter.
func (m *MarketplaceMetrics) IncPaymentSettled() {
	if m == nil || m.paymentsSettled == nil {
		return
	}
	m.paymentsSettled.Inc()
}

// AddSettlementAmount records escrow released during settlement.
func (m *MarketplaceMetrics) AddSettlementAmount(amount decimal.Decimal) {
	if m == nil || m.settlementAmount == nil {
		return
	}
	f, _ := amount.Float64()
	if f > 0 {
		m.settlementAmount.Add(f)
	}
}

// IncChainBreak increments the provenance verification failure counter.
func (m *MarketplaceMetrics) IncChainBreak() {
	if m == nil || m.chainBreaks == nil {
		return
	}
	m.chainBreaks.Inc()
}
