package http

import (
	"net/http"

	"robopost/infrastructure/logger"
	"robopost/usecase"

	"github.com/gin-gonic/gin"
)

type IBotHandler interface {
	Status(c *gin.Context)
	Trigger(c *gin.Context)
}

type BotHandler struct {
	Cycle     usecase.IPostingCycle
	TriggerCh chan struct{}
}

func NewBotHandler(cycle usecase.IPostingCycle, trigger chan struct{}) IBotHandler {
	return &BotHandler{Cycle: cycle, TriggerCh: trigger}
}

func (h *BotHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"halted":   h.Cycle.Halted(),
		"snapshot": h.Cycle.Snapshot(),
	})
}

// Trigger asks the run loop to start a cycle immediately instead of waiting
// out the sleep interval. Non-blocking: a cycle already queued wins.
func (h *BotHandler) Trigger(c *gin.Context) {
	if h.Cycle.Halted() {
		c.JSON(http.StatusConflict, gin.H{"error": "bot halted, restart required"})
		return
	}
	select {
	case h.TriggerCh <- struct{}{}:
		logger.GetLogger().Info("Manual cycle trigger accepted")
		c.JSON(http.StatusAccepted, gin.H{"status": "cycle triggered"})
	default:
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "cycle already pending"})
	}
}
