package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// StartScheduler starts the email scheduler
func (h *Handlers) StartScheduler(c *gin.Context) {
	if err := h.scheduler.Start(); err != nil {
		errorJSON(c, http.StatusConflict, "scheduler_error", err.Error())
		return
	}
	c.Status(http.StatusOK)
}

// StopScheduler stops the email scheduler
func (h *Handlers) StopScheduler(c *gin.Context) {
	if err := h.scheduler.Stop(); err != nil {
		errorJSON(c, http.StatusInternalServerError, "scheduler_error", err.Error())
		return
	}
	c.Status(http.StatusOK)
}

// RunOnce runs one ingestion cycle and returns its report
func (h *Handlers) RunOnce(c *gin.Context) {
	report, err := h.scheduler.RunOnce(c.Request.Context())
	if err != nil {
		errorJSON(c, http.StatusBadGateway, "ingestion_error", err.Error())
		return
	}
	c.JSON(http.StatusOK, report)
}

// GetSchedulerStatus returns scheduler status
func (h *Handlers) GetSchedulerStatus(c *gin.Context) {
	state := "stopped"
	if h.scheduler.IsRunning() {
		state = "running"
	}
	c.JSON(http.StatusOK, gin.H{
		"status":   state,
		"next_run": h.scheduler.GetNextRun(),
		"last_run": h.scheduler.GetLastRun(),
	})
}
