package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sshtunnel/internal/history"
	"github.com/sshtunnel/internal/http/utils"
	"github.com/sshtunnel/internal/log"
	"github.com/sshtunnel/internal/probe"
	"github.com/sshtunnel/internal/service"
	"github.com/sshtunnel/internal/tunnel"
)

type TunnelHandler interface {
	Status(c *gin.Context)
	CheckAll(c *gin.Context)
	CheckConfig(c *gin.Context)
	History(c *gin.Context)
}

type tunnelHandler struct {
	logger  log.Logger
	manager tunnel.Manager
	checker *probe.Checker
	// nil when history is disabled
	history history.Service
}

func NewTunnelHandler(ctx service.Context, manager tunnel.Manager, checker *probe.Checker, historyService history.Service) TunnelHandler {
	return &tunnelHandler{
		logger:  ctx.LoggerFactory().GetLogger("tunnel-handler"),
		manager: manager,
		checker: checker,
		history: historyService,
	}
}

// Status lists every PID file with its liveness.
func (h *tunnelHandler) Status(c *gin.Context) {
	entries, err := h.manager.Status()
	if err != nil {
		h.logger.Errorf("status query failed: %v", err)
		utils.RespondWithError(c, http.StatusInternalServerError, err.Error())
		return
	}
	utils.RespondWithSuccess(c, gin.H{"tunnels": entries})
}

func (h *tunnelHandler) CheckAll(c *gin.Context) {
	report, err := h.checker.CheckAll()
	if err != nil {
		h.logger.Errorf("check failed: %v", err)
		utils.RespondWithError(c, http.StatusInternalServerError, err.Error())
		return
	}
	h.record(c, "", report)
	utils.RespondWithSuccess(c, report)
}

func (h *tunnelHandler) CheckConfig(c *gin.Context) {
	name := c.Param("name")
	report, err := h.checker.CheckConfig(name)
	if err != nil {
		utils.RespondWithError(c, http.StatusNotFound, err.Error())
		return
	}
	h.record(c, name, report)
	utils.RespondWithSuccess(c, report)
}

// History returns recent stored reports for one configuration.
func (h *tunnelHandler) History(c *gin.Context) {
	if h.history == nil {
		utils.RespondWithError(c, http.StatusNotImplemented, "history is not enabled")
		return
	}

	limit := 20
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			utils.RespondWithError(c, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	records, err := h.history.Recent(c.Request.Context(), c.Param("name"), limit)
	if err != nil {
		h.logger.Errorf("history query failed: %v", err)
		utils.RespondWithError(c, http.StatusInternalServerError, err.Error())
		return
	}
	utils.RespondWithSuccess(c, gin.H{"records": records})
}

func (h *tunnelHandler) record(c *gin.Context, name string, report *probe.Report) {
	if h.history == nil {
		return
	}
	// Best effort: the check result is already in hand.
	_ = h.history.Record(c.Request.Context(), name, report)
}
