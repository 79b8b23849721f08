package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

// StoreMetrics counts storefront business events.
type StoreMetrics struct {
	orders       *prometheus.CounterVec
	orderValue   *prometheus.CounterVec
	deposits     *prometheus.CounterVec
	balanceFails prometheus.Counter
}

// NewStoreMetrics registers the storefront counters on reg.
func NewStoreMetrics(reg prometheus.Registerer) *StoreMetrics {
	if reg == nil {
		return &StoreMetrics{}
	}
	orders := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "printdock_orders_created_total",
		Help: "Order rows created, by source.",
	}, []string{"source"})
	orderValue := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "printdock_order_value_total",
		Help: "Sum of order totals charged to balances, by source.",
	}, []string{"source"})
	deposits := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "printdock_deposits_total",
		Help: "Deposit transactions by resulting status.",
	}, []string{"status"})
	balanceFails := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "printdock_insufficient_balance_total",
		Help: "Order submissions rejected for insufficient balance.",
	})
	reg.MustRegister(orders, orderValue, deposits, balanceFails)
	return &StoreMetrics{
		orders:       orders,
		orderValue:   orderValue,
		deposits:     deposits,
		balanceFails: balanceFails,
	}
}

// OrdersCreated records count orders worth total from source.
func (m *StoreMetrics) OrdersCreated(source string, count int, total decimal.Decimal) {
	if m == nil || m.orders == nil {
		return
	}
	source = jobLabel(source)
	m.orders.WithLabelValues(source).Add(float64(count))
	m.orderValue.WithLabelValues(source).Add(total.InexactFloat64())
}

// Deposit records a deposit entering status.
func (m *StoreMetrics) Deposit(status string) {
	if m == nil || m.deposits == nil {
		return
	}
	m.deposits.WithLabelValues(jobLabel(status)).Inc()
}

// InsufficientBalance records a rejected submission.
func (m *StoreMetrics) InsufficientBalance() {
	if m == nil || m.balanceFails == nil {
		return
	}
	m.balanceFails.Inc()
}
