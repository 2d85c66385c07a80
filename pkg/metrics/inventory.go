package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// InventoryMetrics records counters for the stock ledger and payment flows.
type InventoryMetrics struct {
	movements *prometheus.CounterVec
	orders    *prometheus.CounterVec
	callbacks *prometheus.CounterVec
}

// NewInventoryMetrics registers the inventory metrics on the provided registerer.
func NewInventoryMetrics(reg prometheus.Registerer) *InventoryMetrics {
	if reg == nil {
		return &InventoryMetrics{}
	}
	movements := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stock_movements_total",
		Help: "Stock ledger movements by action.",
	}, []string{"action"})
	orders := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_total",
		Help: "Orders by terminal status transition.",
	}, []string{"status"})
	callbacks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_callbacks_total",
		Help: "Inbound payment gateway callbacks by outcome.",
	}, []string{"outcome"})
	reg.MustRegister(movements, orders, callbacks)
	return &InventoryMetrics{
		movements: movements,
		orders:    orders,
		callbacks: callbacks,
	}
}

// IncMovement increments the movement counter for the given action.
func (m *InventoryMetrics) IncMovement(action string) {
	if m == nil || m.movements == nil {
		return
	}
	m.movements.WithLabelValues(normalizeLabel(action)).Inc()
}

// IncOrder increments the order counter for the given status.
func (m *InventoryMetrics) IncOrder(status string) {
	if m == nil || m.orders == nil {
		return
	}
	m.orders.WithLabelValues(normalizeLabel(status)).Inc()
}

// IncCallback increments the callback counter for the given outcome.
func (m *InventoryMetrics) IncCallback(outcome string) {
	if m == nil || m.callbacks == nil {
		return
	}
	m.callbacks.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
