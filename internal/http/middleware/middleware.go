package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sshtunnel/internal/log"
)

// HandleTraceIdSetupFunc assigns every request a trace ID, honoring
// one supplied by the caller.
func HandleTraceIdSetupFunc(logger log.Logger) gin.HandlerFunc {
	return gin.HandlerFunc(func(c *gin.Context) {
		traceID := c.GetHeader("X-Trace-Id")
		if traceID == "" {
			traceID = uuid.New().String()
		}
		c.Set("trace_id", traceID)
		c.Header("X-Trace-Id", traceID)
		c.Next()
	})
}

// HandleGinLogsFunc writes one access-log line per request.
func HandleGinLogsFunc(logger log.Logger, accessLogger log.Logger) gin.HandlerFunc {
	return gin.LoggerWithFormatter(func(param gin.LogFormatterParams) string {
		traceID := ""
		if param.Keys != nil {
			if id, exists := param.Keys["trace_id"]; exists {
				traceID = id.(string)
			}
		}

		accessLogger.WithFields(map[string]interface{}{
			"trace_id":   traceID,
			"method":     param.Method,
			"path":       param.Path,
			"status":     param.StatusCode,
			"latency":    param.Latency,
			"client_ip":  param.ClientIP,
			"user_agent": param.Request.UserAgent(),
			"timestamp":  param.TimeStamp.Format(time.RFC3339),
		}).Infof("%s %s %d %v", param.Method, param.Path, param.StatusCode, param.Latency)

		return ""
	})
}

// HandleUnexpectedPanicRecoveryFunc converts panics into a logged 500.
func HandleUnexpectedPanicRecoveryFunc(logger log.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logger.WithFields(map[string]interface{}{
			"panic":    recovered,
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"trace_id": c.GetString("trace_id"),
		}).Errorf("Panic recovered: %v", recovered)

		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Internal server error",
			"message": "An unexpected error occurred",
		})
	})
}
