// Package metrics exposes Prometheus collectors for login, lockout, password
// reset and HTTP traffic.
package metrics

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Options configures the collectors
type Options struct {
	Registerer prometheus.Registerer
	Namespace  string
	Buckets    []float64
}

// AuthMetrics records security events. A nil *AuthMetrics is a valid no-op
// recorder.
type AuthMetrics struct {
	LoginAttempts      *prometheus.CounterVec
	Lockouts           prometheus.Counter
	ResetRequests      prometheus.Counter
	ResetCompletions   *prometheus.CounterVec
	NotificationErrors prometheus.Counter
	RateLimited        *prometheus.CounterVec
	Requests           *prometheus.CounterVec
	Duration           *prometheus.HistogramVec
}

// New constructs and registers the collectors. Collectors already
// registered under the same name are reused.
func New(opts Options) (*AuthMetrics, error) {
	namespace := opts.Namespace
	if namespace == "" {
		namespace = "auth"
	}
	reg := opts.Registerer
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	buckets := opts.Buckets
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}

	m := &AuthMetrics{}
	var err error

	if m.LoginAttempts, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "login_attempts_total",
		Help:      "Login attempts partitioned by outcome.",
	}, []string{"outcome"})); err != nil {
		return nil, err
	}

	if m.Lockouts, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "lockouts_total",
		Help:      "Number of times an account lock was engaged.",
	})); err != nil {
		return nil, err
	}

	if m.ResetRequests, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "password_reset_requests_total",
		Help:      "Password reset requests, including unknown addresses.",
	})); err != nil {
		return nil, err
	}

	if m.ResetCompletions, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "password_reset_completions_total",
		Help:      "Password reset completions partitioned by outcome.",
	}, []string{"outcome"})); err != nil {
		return nil, err
	}

	if m.NotificationErrors, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notification_failures_total",
		Help:      "Reset emails that could not be delivered.",
	})); err != nil {
		return nil, err
	}

	if m.RateLimited, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rate_limited_total",
		Help:      "Requests rejected by the rate limiter partitioned by route.",
	}, []string{"route"})); err != nil {
		return nil, err
	}

	if m.Requests, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total number of HTTP requests partitioned by method, route, and status code.",
	}, []string{"method", "route", "status"})); err != nil {
		return nil, err
	}

	if m.Duration, err = register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "Histogram of HTTP request latencies in seconds partitioned by method, route, and status code.",
		Buckets:   buckets,
	}, []string{"method", "route", "status"})); err != nil {
		return nil, err
	}

	return m, nil
}

func register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	if err := reg.Register(c); err != nil {
		if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := already.ExistingCollector.(T); ok {
				return existing, nil
			}
			return c, fmt.Errorf("existing collector has unexpected type %T", already.ExistingCollector)
		}
		return c, fmt.Errorf("register collector: %w", err)
	}
	return c, nil
}

func (m *AuthMetrics) LoginAttempt(outcome string) {
	if m == nil {
		return
	}
	m.LoginAttempts.WithLabelValues(outcome).Inc()
}

func (m *AuthMetrics) LockoutEngaged() {
	if m == nil {
		return
	}
	m.Lockouts.Inc()
}

func (m *AuthMetrics) ResetRequested() {
	if m == nil {
		return
	}
	m.ResetRequests.Inc()
}

func (m *AuthMetrics) ResetCompleted(outcome string) {
	if m == nil {
		return
	}
	m.ResetCompletions.WithLabelValues(outcome).Inc()
}

func (m *AuthMetrics) NotificationFailed() {
	if m == nil {
		return
	}
	m.NotificationErrors.Inc()
}

// RateLimitHit counts a request rejected with 429
func (m *AuthMetrics) RateLimitHit(route string) {
	if m == nil {
		return
	}
	m.RateLimited.WithLabelValues(route).Inc()
}

// Handler records request counts and latencies by chi route pattern.
func (m *AuthMetrics) Handler(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		labels := prometheus.Labels{
			"method": r.Method,
			"route":  route,
			"status": strconv.Itoa(status),
		}
		m.Requests.With(labels).Inc()
		m.Duration.With(labels).Observe(time.Since(start).Seconds())
	})
}

// ExpositionHandler serves the registry in the Prometheus text format.
func ExpositionHandler(gatherer prometheus.Gatherer) http.Handler {
	if gatherer == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
