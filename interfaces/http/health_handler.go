package http

import (
	"net/http"

	"robopost/usecase"

	"github.com/gin-gonic/gin"
)

type IHealthHandler interface {
	Healthz(c *gin.Context)
}

type HealthHandler struct {
	Cycle usecase.IPostingCycle
}

func NewHealthHandler(cycle usecase.IPostingCycle) IHealthHandler {
	return &HealthHandler{Cycle: cycle}
}

// Healthz reports the bot's operational snapshot. It always answers 200 so
// platform probes keep the process alive; degradation shows in the body.
func (h *HealthHandler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, h.Cycle.Snapshot())
}
