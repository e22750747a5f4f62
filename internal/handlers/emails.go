package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"receipt-extractor-go/internal/status"
)

const maxPageSize = 200

// ListEmails returns the emails visible under the view filter. The
// show_archived query parameter overrides the configured default.
func (h *Handlers) ListEmails(c *gin.Context) {
	filter := h.view
	if raw := c.Query("show_archived"); raw != "" {
		show, err := strconv.ParseBool(raw)
		if err != nil {
			errorJSON(c, http.StatusBadRequest, "validation_error", "show_archived must be a boolean")
			return
		}
		filter.ShowArchivedEmails = show
	}

	page := queryInt(c, "page", 1)
	if page < 1 {
		page = 1
	}
	limit := queryInt(c, "limit", 50)
	if limit < 1 || limit > maxPageSize {
		limit = 50
	}

	emails, total, err := h.store.ListEmails(c.Request.Context(), filter, page, limit)
	if err != nil {
		logrus.Errorf("Failed to list emails: %v", err)
		errorJSON(c, http.StatusInternalServerError, "database_error", "Failed to fetch emails")
		return
	}

	c.JSON(http.StatusOK, EmailListResponse{
		Emails:       emails,
		Total:        total,
		Page:         page,
		Limit:        limit,
		ShowArchived: filter.ShowArchivedEmails,
	})
}

// GetEmail returns one email with its transaction candidates
func (h *Handlers) GetEmail(c *gin.Context) {
	email, err := h.store.GetEmail(c.Request.Context(), c.Param("id"))
	if err != nil {
		logrus.Errorf("Failed to get email: %v", err)
		errorJSON(c, http.StatusInternalServerError, "database_error", "Failed to fetch email")
		return
	}
	if email == nil {
		errorJSON(c, http.StatusNotFound, "not_found", "Email not found")
		return
	}
	c.JSON(http.StatusOK, email)
}

// MarkTransactionCreated records that a transaction was created from the
// email
func (h *Handlers) MarkTransactionCreated(c *gin.Context) {
	h.changeStatus(c, h.statuses.MarkTransactionCreated)
}

// ArchiveEmail archives the email. Archiving twice is a no-op.
func (h *Handlers) ArchiveEmail(c *gin.Context) {
	h.changeStatus(c, h.statuses.Archive)
}

func (h *Handlers) changeStatus(c *gin.Context, transition func(ctx context.Context, emailID string) (bool, error)) {
	ctx := c.Request.Context()
	emailID := c.Param("id")

	changed, err := transition(ctx, emailID)
	if errors.Is(err, status.ErrEmailNotFound) {
		errorJSON(c, http.StatusNotFound, "not_found", "Email not found")
		return
	}
	if err != nil {
		logrus.Errorf("Failed to change status of email %s: %v", emailID, err)
		errorJSON(c, http.StatusInternalServerError, "database_error", "Failed to update email status")
		return
	}

	current, err := h.store.Status(ctx, emailID)
	if err != nil {
		logrus.Errorf("Failed to read status of email %s: %v", emailID, err)
		errorJSON(c, http.StatusInternalServerError, "database_error", "Failed to read email status")
		return
	}

	c.JSON(http.StatusOK, StatusChangeResponse{EmailID: emailID, Status: current, Changed: changed})
}
