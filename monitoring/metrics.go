package monitoring

import (
	"log"
	"net/http"
	"runtime"
	"time"

	"eventpass/utils"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

var (
	purchasesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "purchases_total",
			Help: "Total purchase attempts by outcome",
		},
		[]string{"status"},
	)

	purchaseDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "purchase_duration_seconds",
			Help:    "End-to-end duration of the purchase workflow",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		},
	)

	artifactDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "artifact_generation_seconds",
			Help:    "Duration of QR/PDF artifact generation",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		},
	)

	pushNotifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "push_notifications_total",
			Help: "Ticket-ready push notifications by outcome",
		},
		[]string{"status"},
	)

	goroutineCount = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "active_goroutines_total",
			Help: "Current number of active goroutines",
		},
	)

	redisUp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "redis_up",
			Help: "Whether the Redis connection is healthy",
		},
	)
)

func RecordPurchase(status string, d time.Duration) {
	purchasesTotal.WithLabelValues(status).Inc()
	purchaseDuration.Observe(d.Seconds())
}

func ObserveArtifactGeneration(d time.Duration) {
	artifactDuration.Observe(d.Seconds())
}

func RecordNotification(status string) {
	pushNotifications.WithLabelValues(status).Inc()
}

type Monitor struct {
	redis *redis.Client
}

func NewMonitor(redisClient *redis.Client) *Monitor {
	monitor := &Monitor{redis: redisClient}

	go monitor.collectMetrics()

	return monitor
}

func (m *Monitor) collectMetrics() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		goroutineCount.Set(float64(runtime.NumGoroutine()))

		if err := utils.RedisHealthCheck(m.redis); err != nil {
			redisUp.Set(0)
		} else {
			redisUp.Set(1)
		}
	}
}

// StartMetricsServer exposes /metrics on its own port so the scrape
// endpoint stays off the public API surface.
func StartMetricsServer(port string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	go func() {
		if err := http.ListenAndServe(":"+port, mux); err != nil {
			log.Printf("metrics server stopped: %v", err)
		}
	}()
}
