package metrics

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	requests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_http_requests_total",
			Help: "HTTP requests served, by method, route and status.",
		},
		[]string{"method", "route", "status"},
	)
	storeErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_store_errors_total",
			Help: "Failed remote store operations, by operation.",
		},
		[]string{"op"},
	)
	diagnoses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_diagnosis_total",
			Help: "Diagnosis requests, by outcome.",
		},
		[]string{"outcome"},
	)
)

func init() {
	prometheus.MustRegister(requests, storeErrors, diagnoses)
}

// StoreError counts one failed store operation.
func StoreError(op string) {
	storeErrors.WithLabelValues(op).Inc()
}

// Diagnosis counts one diagnosis request with the given outcome
// ("ok", "unavailable", "rate_limited").
func Diagnosis(outcome string) {
	diagnoses.WithLabelValues(outcome).Inc()
}

// Middleware counts requests by matched route so path parameters do not
// explode label cardinality.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()
		status := c.Response().StatusCode()
		if fe, ok := err.(*fiber.Error); ok {
			status = fe.Code
		}
		route := c.Route().Path
		requests.WithLabelValues(c.Method(), route, strconv.Itoa(status)).Inc()
		return err
	}
}

// Handler serves the default registry in the Prometheus text format.
func Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
