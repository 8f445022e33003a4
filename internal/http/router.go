package http

import (
	"github.com/gin-gonic/gin"
	"github.com/sshtunnel/internal/http/handler"
	"github.com/sshtunnel/internal/http/middleware"
)

func RegisterHandlers(
	engine *gin.Engine,
	systemHandler handler.SystemHandler,
	tunnelHandler handler.TunnelHandler,
) {
	metricsMiddlewareFunc := middleware.MetricsMiddleware

	apiV1 := engine.Group("/api/v1")

	systemApi := apiV1.Group("/system")
	systemApi.GET("/ping", metricsMiddlewareFunc(), systemHandler.Ping)
	systemApi.GET("/health", metricsMiddlewareFunc(), systemHandler.Health)
	systemApi.GET("/version", metricsMiddlewareFunc(), systemHandler.Version)
	systemApi.GET("/metrics", systemHandler.Metrics) // Prometheus scrape endpoint

	tunnelsApi := apiV1.Group("/tunnels")
	tunnelsApi.GET("", metricsMiddlewareFunc(), tunnelHandler.Status)
	tunnelsApi.GET("/check", metricsMiddlewareFunc(), tunnelHandler.CheckAll)
	tunnelsApi.GET("/check/:name", metricsMiddlewareFunc(), tunnelHandler.CheckConfig)
	tunnelsApi.GET("/history/:name", metricsMiddlewareFunc(), tunnelHandler.History)
}
