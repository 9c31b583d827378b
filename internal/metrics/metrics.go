package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "commerce"

// Prometheus metrics
var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	ordersCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "orders",
			Name:      "created_total",
			Help:      "Total number of orders created",
		},
		[]string{"source"}, // direct, checkout
	)

	orderRevenue = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "orders",
			Name:      "amount_total",
			Help:      "Sum of order totals in currency units",
		},
		[]string{"payment_mode"},
	)

	webhookEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "payments",
			Name:      "webhook_events_total",
			Help:      "Total number of payment webhook deliveries",
		},
		[]string{"type", "result"},
	)

	checkoutSessions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "payments",
			Name:      "checkout_sessions_total",
			Help:      "Total number of checkout session requests",
		},
		[]string{"status"},
	)

	reviewOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "catalog",
			Name:      "review_operations_total",
			Help:      "Total number of review operations",
		},
		[]string{"operation"},
	)

	passwordResets = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "accounts",
			Name:      "password_resets_total",
			Help:      "Total number of password reset steps",
		},
		[]string{"stage", "status"},
	)

	inventoryProducts = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "inventory",
			Name:      "products",
			Help:      "Number of catalog products by stock level",
		},
		[]string{"level"}, // all, out_of_stock, low_stock
	)

	inventoryUnits = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "inventory",
		Name:      "units",
		Help:      "Total units in stock across the catalog",
	})

	dbConnectionStatus = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "db_connection_status",
		Help:      "Database connection status (1 = connected, 0 = disconnected)",
	})
)

// Middleware records request counts and latency per route
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())

		httpRequestsTotal.WithLabelValues(c.Request.Method, endpoint, status).Inc()
		httpRequestDuration.WithLabelValues(c.Request.Method, endpoint).Observe(time.Since(start).Seconds())
	}
}

// RecordOrderCreated counts a materialized order
func RecordOrderCreated(source, paymentMode string, total int64) {
	ordersCreated.WithLabelValues(source).Inc()
	orderRevenue.WithLabelValues(paymentMode).Add(float64(total))
}

// RecordWebhookEvent counts a webhook delivery by outcome
func RecordWebhookEvent(eventType, result string) {
	if eventType == "" {
		eventType = "unknown"
	}
	webhookEvents.WithLabelValues(eventType, result).Inc()
}

// RecordCheckoutSession counts a checkout session request
func RecordCheckoutSession(status string) {
	checkoutSessions.WithLabelValues(status).Inc()
}

// RecordReview counts a review create, update or delete
func RecordReview(operation string) {
	reviewOperations.WithLabelValues(operation).Inc()
}

// RecordPasswordReset counts a forgot or reset step
func RecordPasswordReset(stage, status string) {
	passwordResets.WithLabelValues(stage, status).Inc()
}

// SetInventory publishes the latest stock snapshot
func SetInventory(products, outOfStock, lowStock, units int64) {
	inventoryProducts.WithLabelValues("all").Set(float64(products))
	inventoryProducts.WithLabelValues("out_of_stock").Set(float64(outOfStock))
	inventoryProducts.WithLabelValues("low_stock").Set(float64(lowStock))
	inventoryUnits.Set(float64(units))
}

// SetDBStatus records database reachability
func SetDBStatus(up bool) {
	if up {
		dbConnectionStatus.Set(1)
		return
	}
	dbConnectionStatus.Set(0)
}
