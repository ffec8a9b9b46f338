package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"marinova/internal/domain"
)

// Resultados posibles de una decisión del control de uso.
const (
	OutcomeCharged              = "charged"
	OutcomeUnlimited            = "unlimited"
	OutcomeNotVerified          = "not_verified"
	OutcomeSubscriptionRequired = "subscription_required"
	OutcomeExhausted            = "exhausted"
	OutcomeError                = "error"
)

var (
	// Registry agrupa los collectors propios del servicio.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "marinova",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "marinova",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "marinova",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms a ~5s
		},
		[]string{"method", "path"},
	)

	usageDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "marinova",
			Subsystem: "usage",
			Name:      "track_total",
			Help:      "Usage gate decisions by feature and outcome.",
		},
		[]string{"feature", "outcome"},
	)

	registrations = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "marinova",
			Subsystem: "auth",
			Name:      "registrations_total",
			Help:      "Total number of successful registrations.",
		},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		usageDecisions,
		registrations,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler expone las métricas registradas.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// GinMiddleware mide cada request usando la ruta registrada como etiqueta.
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if strings.HasSuffix(c.Request.URL.Path, "/metrics") {
			c.Next()
			return
		}
		start := time.Now()
		httpInFlight.Inc()
		defer httpInFlight.Dec()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		method := strings.ToUpper(c.Request.Method)
		httpRequests.WithLabelValues(method, path, strconv.Itoa(c.Writer.Status())).Inc()
		httpDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	}
}

// RecordUsageDecision cuenta una decisión del control de uso.
// Las features desconocidas se agrupan en "other" para acotar la cardinalidad.
func RecordUsageDecision(feature domain.Feature, outcome string) {
	usageDecisions.WithLabelValues(featureLabel(feature), outcome).Inc()
}

func RecordRegistration() {
	registrations.Inc()
}

func featureLabel(feature domain.Feature) string {
	switch feature {
	case domain.FeatureForecast, domain.FeatureInsights, domain.FeatureChat, domain.FeatureReport, domain.FeatureImage:
		return string(feature)
	default:
		return "other"
	}
}
