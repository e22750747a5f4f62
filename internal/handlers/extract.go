package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"receipt-extractor-go/internal/extractor"
	"receipt-extractor-go/internal/scheduler"
)

// Extract runs the pipeline over a submitted email without storing it
func (h *Handlers) Extract(c *gin.Context) {
	var req ExtractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorJSON(c, http.StatusBadRequest, "validation_error", "Invalid request body")
		return
	}

	rules, err := h.store.GetEnabledRules(c.Request.Context())
	if err != nil {
		logrus.Errorf("Failed to load mapping rules: %v", err)
		errorJSON(c, http.StatusInternalServerError, "database_error", "Failed to load mapping rules")
		return
	}

	email := extractor.RawEmail{
		ID:       req.ID,
		Subject:  req.Subject,
		Sender:   req.Sender,
		Date:     time.Now(),
		BodyText: extractor.CombineBody(req.BodyText, req.Attachments...),
	}
	if req.Date != nil {
		email.Date = *req.Date
	}

	result := scheduler.BuildExtractor(rules, h.mappings, h.opts).Extract(email)
	c.JSON(http.StatusOK, result)
}
