package handlers

import (
	"time"

	"receipt-extractor-go/internal/model"
	"receipt-extractor-go/internal/status"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Database  string            `json:"database"`
	Scheduler string            `json:"scheduler"`
	Metrics   map[string]string `json:"metrics,omitempty"`
}

// EmailListResponse is one page of the email list
type EmailListResponse struct {
	Emails       []model.EmailRecord `json:"emails"`
	Total        int64               `json:"total"`
	Page         int                 `json:"page"`
	Limit        int                 `json:"limit"`
	ShowArchived bool                `json:"show_archived"`
}

// StatusChangeResponse reports the outcome of a lifecycle signal. Changed
// is false when the email had already left needsReview.
type StatusChangeResponse struct {
	EmailID string        `json:"email_id"`
	Status  status.Status `json:"status"`
	Changed bool          `json:"changed"`
}

// ExtractRequest is an email submitted for ad-hoc extraction
type ExtractRequest struct {
	ID          string     `json:"id"`
	Subject     string     `json:"subject"`
	Sender      string     `json:"sender" binding:"required"`
	Date        *time.Time `json:"date"`
	BodyText    string     `json:"body_text"`
	Attachments []string   `json:"attachments"`
}

// MappingRuleRequest represents the request structure for creating/updating
// merchant mapping rules
type MappingRuleRequest struct {
	Pattern  string `json:"pattern" binding:"required"`
	Merchant string `json:"merchant" binding:"required"`
	Priority *int   `json:"priority"`
	Enabled  *bool  `json:"enabled"`
}

// MappingRuleResponse represents the response structure for mapping rules
type MappingRuleResponse struct {
	ID        uint      `json:"id"`
	Pattern   string    `json:"pattern"`
	Merchant  string    `json:"merchant"`
	Priority  int       `json:"priority"`
	Enabled   bool      `json:"enabled"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func newMappingRuleResponse(rule model.MerchantMappingRule) MappingRuleResponse {
	return MappingRuleResponse{
		ID:        rule.ID,
		Pattern:   rule.Pattern,
		Merchant:  rule.Merchant,
		Priority:  rule.Priority,
		Enabled:   rule.Enabled,
		CreatedAt: rule.CreatedAt,
		UpdatedAt: rule.UpdatedAt,
	}
}

// LogListResponse is one page of extraction logs
type LogListResponse struct {
	Logs   []model.ExtractionLog `json:"logs"`
	Total  int64                 `json:"total"`
	Limit  int                   `json:"limit"`
	Offset int                   `json:"offset"`
}
