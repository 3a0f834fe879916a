package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/tirthgodhni98/giftcard-api/pkg/common"
	"github.com/tirthgodhni98/giftcard-api/pkg/logger"
	"go.uber.org/zap"
)

var panicsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "http_panics_total",
	Help: "Handler panics turned into 500 responses",
}, []string{"endpoint"})

// Recovery answers a panicking request with a 500 envelope that carries the
// request id, so a caller can quote it when a card operation blew up midway.
// Sentry sees the panic first through monitoring.Middleware.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}

			endpoint := c.FullPath()
			if endpoint == "" {
				endpoint = "not_found"
			}
			panicsTotal.WithLabelValues(endpoint).Inc()

			requestID := GetCorrelationID(c)
			logger.WithContext(c.Request.Context()).Error("Panic recovered",
				zap.Any("panic", rec),
				zap.String("endpoint", endpoint),
				zap.String("method", c.Request.Method),
				zap.String("shop_domain", c.GetString(ShopKey)),
				zap.Stack("stack"),
			)

			appErr := common.NewAppError(http.StatusInternalServerError, "internal server error", nil)
			if requestID != "" {
				appErr = appErr.WithDetails(map[string]string{"request_id": requestID})
			}
			common.AppErrorResponse(c, appErr)
			c.Abort()
		}()

		c.Next()
	}
}
