package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ShopKey holds the resolved shop domain of a card request
const ShopKey = "shop_domain"

const noShop = "none"

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by route, status and issuing shop",
		},
		[]string{"service", "method", "endpoint", "status", "shop"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency, including the ledger round trip",
			Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"service", "method", "endpoint", "shop"},
	)
)

// SetShop tags the request with the shop a card belongs to. Only domains
// that resolved to a card are recorded, which keeps the label bounded.
func SetShop(c *gin.Context, domain string) {
	if domain != "" {
		c.Set(ShopKey, domain)
	}
}

func shopLabel(c *gin.Context) string {
	if domain := c.GetString(ShopKey); domain != "" {
		return domain
	}
	return noShop
}

// Metrics records request counts and latency per route and shop
func Metrics(serviceName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "not_found"
		}
		shop := shopLabel(c)

		httpRequestsTotal.WithLabelValues(serviceName, c.Request.Method, endpoint, strconv.Itoa(c.Writer.Status()), shop).Inc()
		httpRequestDuration.WithLabelValues(serviceName, c.Request.Method, endpoint, shop).Observe(time.Since(start).Seconds())
	}
}
