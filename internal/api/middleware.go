package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/ez-dapp/gasless-server/internal/voucher"
)

var httpResponseTimeMetric = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Subsystem: "http",
	Name:      "request_duration_seconds",
	Help:      "Latency of gasless HTTP requests by route.",
	Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 10, 30},
}, []string{"operation"})

var voucherOperations = promauto.NewCounterVec(prometheus.CounterOpts{
	Subsystem: "gasless",
	Name:      "voucher_operations_total",
	Help:      "Voucher mediator calls by operation and outcome.",
}, []string{"operation", "outcome"})

// operation names the matched route, or the raw path for unmatched requests.
func operation(c *gin.Context) string {
	if p := c.FullPath(); p != "" {
		return c.Request.Method + " " + p
	}
	return c.Request.Method + " unmatched"
}

// LoggingMiddleware logs every request with its route, status and latency.
func LoggingMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("operation", operation(c)),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		}
		switch status := c.Writer.Status(); {
		case status >= http.StatusInternalServerError:
			logger.Error("Fail", fields...)
		case status >= http.StatusBadRequest:
			logger.Info("Fail", fields...)
		default:
			logger.Info("Success", fields...)
		}
	}
}

// MetricsMiddleware times every request into the request duration histogram.
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		t := prometheus.NewTimer(httpResponseTimeMetric.WithLabelValues(operation(c)))
		defer t.ObserveDuration()
		c.Next()
	}
}

// outcome classifies a mediator result for the operations counter.
func outcome(err error) string {
	var regErr *voucher.RegistryError
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, voucher.ErrInvalidInput):
		return "invalid"
	case errors.Is(err, voucher.ErrNotFound):
		return "not_found"
	case errors.Is(err, voucher.ErrForbidden):
		return "forbidden"
	case errors.As(err, &regErr):
		return "registry_error"
	default:
		return "error"
	}
}

func observe(op string, err error) {
	voucherOperations.WithLabelValues(op, outcome(err)).Inc()
}
