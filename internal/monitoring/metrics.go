package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OrdersCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pos_orders_created_total",
			Help: "Orders created, by order type",
		},
		[]string{"order_type"},
	)

	OrderTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pos_order_transitions_total",
			Help: "Order status transitions",
		},
		[]string{"status"},
	)

	PaymentsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pos_payments_total",
			Help: "Payments recorded, by payment method",
		},
		[]string{"method"},
	)

	StockRejections = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pos_stock_rejections_total",
			Help: "Order confirmations rejected for insufficient stock",
		},
	)

	KitchenLineAdvances = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pos_kitchen_line_advances_total",
			Help: "Kitchen line status advances",
		},
		[]string{"status"},
	)
)
