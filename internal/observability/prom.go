package observability

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

type Prom struct {
	RequestsTotal    *prometheus.CounterVec
	RequestsDuration *prometheus.HistogramVec
	InFlight         prometheus.Gauge

	// Auth outcomes: op is register|login|token_verify, result ok|fail.
	AuthAttempts *prometheus.CounterVec
}

func NewProm(reg prometheus.Registerer) *Prom {
	p := &Prom{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "libraryhub",
				Name:      "http_requests_total",
				Help:      "Total HTTP requests processed",
			},
			[]string{"method", "route", "status"},
		),
		RequestsDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "libraryhub",
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		InFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "libraryhub",
				Name:      "http_requests_in_flight",
				Help:      "In-flight HTTP requests",
			},
		),
		AuthAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "libraryhub",
				Name:      "auth_attempts_total",
				Help:      "Authentication operations by outcome",
			},
			[]string{"op", "result"},
		),
	}

	reg.MustRegister(
		p.RequestsTotal,
		p.RequestsDuration,
		p.InFlight,
		p.AuthAttempts,
	)

	return p
}

// Middleware records per-route traffic metrics. Route is the gin
// template (e.g. /users/profile), never the raw path, to keep
// cardinality bounded.
func (p *Prom) Middleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()

		p.InFlight.Inc()

		ctx.Next()

		p.InFlight.Dec()

		route := ctx.FullPath()

		if route == "" {
			route = "unmatched"
		}

		method := ctx.Request.Method
		status := strconv.Itoa(ctx.Writer.Status())

		p.RequestsTotal.WithLabelValues(method, route, status).Inc()
		p.RequestsDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	}
}

func (p *Prom) ObserveAuth(op string, ok bool) {
	if p == nil {
		return
	}

	result := "fail"

	if ok {
		result = "ok"
	}

	p.AuthAttempts.WithLabelValues(op, result).Inc()
}
