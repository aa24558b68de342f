// Package metrics holds the Prometheus collectors shared by the HTTP layer and
// the list query service.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "portal_http_requests_total",
		Help: "HTTP requests by method, route and status code.",
	}, []string{"method", "route", "status"})

	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "portal_http_request_duration_seconds",
		Help:    "HTTP request latency by method and route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	listQueries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "portal_list_queries_total",
		Help: "List query executions by resource and outcome (ok, empty, failed).",
	}, []string{"resource", "outcome"})

	listDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "portal_list_query_duration_seconds",
		Help:    "Count + page query latency by resource.",
		Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
	}, []string{"resource"})

	mutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "portal_mutations_total",
		Help: "Admin mutations by resource, action and status.",
	}, []string{"resource", "action", "status"})
)

// Middleware records request counts and latency per matched route.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		httpRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		httpDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// Handler exposes the default registry for scraping.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}

// ObserveList records the outcome of one list fetch.
func ObserveList(resource, outcome string, d time.Duration) {
	listQueries.WithLabelValues(resource, outcome).Inc()
	listDuration.WithLabelValues(resource).Observe(d.Seconds())
}

// ObserveMutation counts an admin write.
func ObserveMutation(resource, action, status string) {
	mutations.WithLabelValues(resource, action, status).Inc()
}
