package prometheus

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Counter metrics
var (
	// Login counters
	LoginCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "finance_login_total",
			Help: "Total number of login attempts",
		},
	)

	// Registration counters
	RegisterCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "finance_register_total",
			Help: "Total number of user registrations",
		},
	)

	// Ledger operation counter
	LedgerOperationCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "finance_ledger_operations_total",
			Help: "Total number of ledger operations",
		},
		[]string{"entity", "operation"}, // entity: "transaction"|"bill", operation: "create", "list", "confirm", ...
	)

	// Tenant resolution counter
	TenantResolutionCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "finance_tenant_resolutions_total",
			Help: "Total number of tenant resolutions by outcome",
		},
		[]string{"outcome"}, // "explicit", "default", "consolidated", "denied", "none"
	)

	// Payment intent counter
	PaymentIntentCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "finance_payment_intents_total",
			Help: "Total number of payment intents created",
		},
		[]string{"mode"}, // "live" or "simulation"
	)

	// Reconciliation counter
	ReconciliationCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "finance_payment_reconciliations_total",
			Help: "Total number of payment reconciliation runs",
		},
		[]string{"trigger", "result"}, // trigger: "webhook"|"poll"|"sync"|"simulate"
	)

	// Plan upgrade counter
	PlanUpgradeCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "finance_plan_upgrades_total",
			Help: "Total number of plan upgrades applied from settled payments",
		},
	)

	// Plan downgrade counter
	PlanDowngradeCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "finance_plan_downgrades_total",
			Help: "Total number of automatic plan downgrades on expiry",
		},
	)

	// HTTP request counter by endpoint and status
	HTTPRequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "finance_http_requests_total",
			Help: "Total number of HTTP requests by endpoint and status",
		},
		[]string{"endpoint", "method", "status"},
	)

	// Error counters
	AuthErrorCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "finance_auth_errors_total",
			Help: "Total number of authentication errors",
		},
		[]string{"type"},
	)
)

// Histogram metrics
var (
	// Request duration
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "finance_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint", "method", "status"},
	)

	// Database operation duration
	DBOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "finance_db_operation_duration_seconds",
			Help:    "Duration of database operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	// Processor call duration
	ProcessorCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "finance_processor_call_duration_seconds",
			Help:    "Duration of outbound payment processor calls in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"}, // "create" or "status"
	)
)

// Gauge metrics
var (
	// Active tokens
	ActiveTokensGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "finance_active_tokens",
			Help: "Number of currently active authentication tokens",
		},
	)

	// System info
	InfoGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "finance_info",
			Help: "Information about the finance service",
		},
		[]string{"version"},
	)
)

func init() {
	// Register counters
	prometheus.MustRegister(LoginCounter)
	prometheus.MustRegister(RegisterCounter)
	prometheus.MustRegister(LedgerOperationCounter)
	prometheus.MustRegister(TenantResolutionCounter)
	prometheus.MustRegister(PaymentIntentCounter)
	prometheus.MustRegister(ReconciliationCounter)
	prometheus.MustRegister(PlanUpgradeCounter)
	prometheus.MustRegister(PlanDowngradeCounter)
	prometheus.MustRegister(HTTPRequestCounter)
	prometheus.MustRegister(AuthErrorCounter)

	// Register histograms
	prometheus.MustRegister(RequestDuration)
	prometheus.MustRegister(DBOperationDuration)
	prometheus.MustRegister(ProcessorCallDuration)

	// Register gauges
	prometheus.MustRegister(ActiveTokensGauge)
	prometheus.MustRegister(InfoGauge)

	// Set initial service info
	InfoGauge.With(prometheus.Labels{"version": "1.0.0"}).Set(1)
}

// GetPrometheusHandler returns an HTTP handler for the Prometheus metrics
func GetPrometheusHandler() http.Handler {
	return promhttp.Handler()
}

// TrackDBOperation measures database operation durations
func TrackDBOperation(operation string) func(time.Time) {
	startTime := time.Now()
	return func(endTime time.Time) {
		duration := time.Since(startTime).Seconds()
		DBOperationDuration.With(prometheus.Labels{
			"operation": operation,
		}).Observe(duration)
	}
}

// TrackProcessorCall measures outbound processor call durations
func TrackProcessorCall(operation string) func(time.Time) {
	startTime := time.Now()
	return func(endTime time.Time) {
		duration := time.Since(startTime).Seconds()
		ProcessorCallDuration.With(prometheus.Labels{
			"operation": operation,
		}).Observe(duration)
	}
}

// MetricsMiddleware creates a middleware function that captures metrics for each request
func MetricsMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			// Execute the request handler
			err := next(c)

			// Record request duration
			duration := time.Since(start).Seconds()
			status := strconv.Itoa(c.Response().Status)
			endpoint := c.Path()
			method := c.Request().Method

			RequestDuration.With(prometheus.Labels{
				"endpoint": endpoint,
				"method":   method,
				"status":   status,
			}).Observe(duration)

			HTTPRequestCounter.With(prometheus.Labels{
				"endpoint": endpoint,
				"method":   method,
				"status":   status,
			}).Inc()

			return err
		}
	}
}

// IncreaseActiveTokens increments the active tokens gauge
func IncreaseActiveTokens() {
	ActiveTokensGauge.Inc()
}

// RecordAuthError records an authentication error by type
func RecordAuthError(errorType string) {
	AuthErrorCounter.With(prometheus.Labels{"type": errorType}).Inc()
}

// RecordLedgerOperation records a ledger operation by entity and type
func RecordLedgerOperation(entity, operation string) {
	LedgerOperationCounter.With(prometheus.Labels{"entity": entity, "operation": operation}).Inc()
}

// RecordTenantResolution records a tenant resolution outcome
func RecordTenantResolution(outcome string) {
	TenantResolutionCounter.With(prometheus.Labels{"outcome": outcome}).Inc()
}

// RecordPaymentIntent records a created payment intent by mode
func RecordPaymentIntent(mode string) {
	PaymentIntentCounter.With(prometheus.Labels{"mode": mode}).Inc()
}

// RecordReconciliation records a reconciliation run by trigger and result
func RecordReconciliation(trigger, result string) {
	ReconciliationCounter.With(prometheus.Labels{"trigger": trigger, "result": result}).Inc()
}
