package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "solebox_http_requests_total",
			Help: "Total HTTP requests by method, route, and status",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "solebox_http_request_duration_seconds",
			Help:    "HTTP request latency distribution",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	priceRefreshes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "solebox_price_refreshes_total",
			Help: "Price refresh outcomes by retailer and result category",
		},
		[]string{"retailer", "result"},
	)

	priceFetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "solebox_price_fetch_duration_seconds",
			Help:    "Retailer page fetch latency",
			Buckets: []float64{.1, .25, .5, 1, 2, 5, 10},
		},
		[]string{"retailer"},
	)

	achievementsUnlocked = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "solebox_achievements_unlocked_total",
			Help: "Achievements unlocked by key",
		},
		[]string{"key"},
	)

	notificationsSwept = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "solebox_notifications_swept_total",
			Help: "Expired notifications deleted by the sweep",
		},
	)

	notificationsMarkedRead = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "solebox_notifications_marked_read_total",
			Help: "Notifications transitioned from unread to read",
		},
	)

	activityMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "solebox_activity_messages_total",
			Help: "Activity queue messages handled by the worker, by outcome",
		},
		[]string{"outcome"},
	)

	idempotencyHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "solebox_idempotency_hits_total",
			Help: "Requests served from idempotency cache",
		},
	)

	rateLimitRejections = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "solebox_rate_limit_rejections_total",
			Help: "Requests rejected by rate limiter",
		},
	)

	dbConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "solebox_db_connections_active",
			Help: "Active database connections",
		},
	)
)

// Handler returns the Prometheus metrics HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordRequest records HTTP request metrics
func RecordRequest(method, path string, status int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordPriceRefresh records the outcome of a refresh. result is "ok" or
// an error category.
func RecordPriceRefresh(retailer, result string) {
	if retailer == "" {
		retailer = "unknown"
	}
	priceRefreshes.WithLabelValues(retailer, result).Inc()
}

// RecordPriceFetch records how long a retailer page took to fetch
func RecordPriceFetch(retailer string, d time.Duration) {
	priceFetchDuration.WithLabelValues(retailer).Observe(d.Seconds())
}

// RecordAchievementUnlocked counts a newly inserted achievement row
func RecordAchievementUnlocked(key string) {
	achievementsUnlocked.WithLabelValues(key).Inc()
}

// RecordNotificationsSwept adds n deleted rows
func RecordNotificationsSwept(n int64) {
	notificationsSwept.Add(float64(n))
}

// RecordNotificationsMarkedRead adds n rows that changed to read
func RecordNotificationsMarkedRead(n int64) {
	notificationsMarkedRead.Add(float64(n))
}

// RecordActivityMessage counts a worker outcome: processed, invalid or failed
func RecordActivityMessage(outcome string) {
	activityMessages.WithLabelValues(outcome).Inc()
}

// RecordIdempotencyHit records a cache hit for idempotency
func RecordIdempotencyHit() {
	idempotencyHits.Inc()
}

// RecordRateLimitRejection records a rate limit rejection
func RecordRateLimitRejection() {
	rateLimitRejections.Inc()
}

// SetDBConnections sets active database connection count
func SetDBConnections(count int) {
	dbConnectionsActive.Set(float64(count))
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

// Middleware returns HTTP middleware that records request metrics.
// The chi route pattern is used as the path label so IDs in URLs do not
// explode label cardinality.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		RecordRequest(r.Method, routePattern(r), wrapped.status, time.Since(start))
	})
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unmatched"
}
