package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetLogs returns extraction logs, newest first
func (h *Handlers) GetLogs(c *gin.Context) {
	limit := queryInt(c, "limit", 100)
	if limit < 1 || limit > maxPageSize {
		limit = 100
	}
	offset := queryInt(c, "offset", 0)
	if offset < 0 {
		offset = 0
	}

	logs, total, err := h.store.GetLogs(c.Request.Context(), limit, offset)
	if err != nil {
		errorJSON(c, http.StatusInternalServerError, "database_error", "Failed to fetch logs")
		return
	}
	c.JSON(http.StatusOK, LogListResponse{Logs: logs, Total: total, Limit: limit, Offset: offset})
}

// GetLog returns a single log by ID
func (h *Handlers) GetLog(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	entry, err := h.store.GetLog(c.Request.Context(), id)
	if err != nil {
		errorJSON(c, http.StatusInternalServerError, "database_error", "Failed to fetch log")
		return
	}
	if entry == nil {
		errorJSON(c, http.StatusNotFound, "not_found", "Log not found")
		return
	}
	c.JSON(http.StatusOK, entry)
}
