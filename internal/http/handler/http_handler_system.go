package handler

import (
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sshtunnel/internal/log"
	"github.com/sshtunnel/internal/service"
)

type SystemHandler interface {
	Ping(c *gin.Context)
	Health(c *gin.Context)
	Version(c *gin.Context)
	Metrics(c *gin.Context)
}

type systemHandler struct {
	logger log.Logger
	ctx    service.Context
}

func NewSystemHandler(ctx service.Context) SystemHandler {
	return &systemHandler{
		logger: ctx.LoggerFactory().GetLogger("system-handler"),
		ctx:    ctx,
	}
}

func (h *systemHandler) Ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"service":   service.PrettyName,
	})
}

// Health reports whether the directories the manager depends on are
// usable.
func (h *systemHandler) Health(c *gin.Context) {
	checks := gin.H{
		"conf_dir": dirCheck(h.ctx.Home().ConfDDir()),
		"run_dir":  dirCheck(h.ctx.Home().RunDir()),
		"log_dir":  dirCheck(h.ctx.Home().LogDir()),
	}

	status := "healthy"
	statusCode := http.StatusOK
	for _, result := range checks {
		if result != "ok" {
			status = "unhealthy"
			statusCode = http.StatusServiceUnavailable
		}
	}

	c.JSON(statusCode, gin.H{
		"status":    status,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"service":   service.PrettyName,
		"checks":    checks,
	})
}

func (h *systemHandler) Version(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": service.PrettyName,
		"version": service.Version,
		"commit":  service.Commit,
		"node":    h.ctx.NodeInfo().GetNodeId(),
	})
}

func (h *systemHandler) Metrics(c *gin.Context) {
	promhttp.Handler().ServeHTTP(c.Writer, c.Request)
}

func dirCheck(path string) string {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return "missing"
	}
	return "ok"
}
