package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"receipt-extractor-go/internal/model"
	"receipt-extractor-go/internal/repository"
)

const defaultRulePriority = 100

// GetMappings returns all merchant mapping rules in match order
func (h *Handlers) GetMappings(c *gin.Context) {
	rules, err := h.store.GetAllRules(c.Request.Context())
	if err != nil {
		errorJSON(c, http.StatusInternalServerError, "database_error", "Failed to fetch mapping rules")
		return
	}
	responses := make([]MappingRuleResponse, 0, len(rules))
	for _, rule := range rules {
		responses = append(responses, newMappingRuleResponse(rule))
	}
	c.JSON(http.StatusOK, responses)
}

// CreateMapping creates a new merchant mapping rule
func (h *Handlers) CreateMapping(c *gin.Context) {
	var req MappingRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorJSON(c, http.StatusBadRequest, "validation_error", "Invalid request body")
		return
	}
	pattern, ok := cleanPattern(c, req.Pattern)
	if !ok {
		return
	}

	rule := model.MerchantMappingRule{
		Pattern:  pattern,
		Merchant: strings.TrimSpace(req.Merchant),
		Priority: defaultRulePriority,
		Enabled:  true,
	}
	if req.Priority != nil {
		rule.Priority = *req.Priority
	}
	if req.Enabled != nil {
		rule.Enabled = *req.Enabled
	}

	if err := h.store.CreateRule(c.Request.Context(), &rule); err != nil {
		logrus.Errorf("Failed to create mapping rule: %v", err)
		errorJSON(c, http.StatusInternalServerError, "database_error", "Failed to create mapping rule")
		return
	}
	logrus.Infof("Created mapping rule %s -> %s", rule.Pattern, rule.Merchant)
	c.JSON(http.StatusCreated, newMappingRuleResponse(rule))
}

// GetMapping returns a single rule by ID
func (h *Handlers) GetMapping(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	rule, err := h.store.GetRule(c.Request.Context(), id)
	if !h.ruleFound(c, err) {
		return
	}
	c.JSON(http.StatusOK, newMappingRuleResponse(*rule))
}

// UpdateMapping replaces the pattern and merchant of an existing rule
func (h *Handlers) UpdateMapping(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req MappingRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorJSON(c, http.StatusBadRequest, "validation_error", "Invalid request body")
		return
	}
	pattern, ok := cleanPattern(c, req.Pattern)
	if !ok {
		return
	}

	rule, err := h.store.GetRule(c.Request.Context(), id)
	if !h.ruleFound(c, err) {
		return
	}
	rule.Pattern = pattern
	rule.Merchant = strings.TrimSpace(req.Merchant)
	if req.Priority != nil {
		rule.Priority = *req.Priority
	}
	if req.Enabled != nil {
		rule.Enabled = *req.Enabled
	}

	if err := h.store.UpdateRule(c.Request.Context(), rule); err != nil {
		logrus.Errorf("Failed to update mapping rule %d: %v", id, err)
		errorJSON(c, http.StatusInternalServerError, "database_error", "Failed to update mapping rule")
		return
	}
	c.JSON(http.StatusOK, newMappingRuleResponse(*rule))
}

// DeleteMapping deletes a rule by ID
func (h *Handlers) DeleteMapping(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.store.DeleteRule(c.Request.Context(), id); !h.ruleFound(c, err) {
		return
	}
	c.Status(http.StatusNoContent)
}

// EnableMapping enables a rule by ID
func (h *Handlers) EnableMapping(c *gin.Context) {
	h.setEnabled(c, true)
}

// DisableMapping disables a rule by ID
func (h *Handlers) DisableMapping(c *gin.Context) {
	h.setEnabled(c, false)
}

func (h *Handlers) setEnabled(c *gin.Context, enabled bool) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	rule, err := h.store.SetRuleEnabled(c.Request.Context(), id, enabled)
	if !h.ruleFound(c, err) {
		return
	}
	c.JSON(http.StatusOK, newMappingRuleResponse(*rule))
}

// ruleFound writes the error response for err and reports whether the
// handler may continue
func (h *Handlers) ruleFound(c *gin.Context, err error) bool {
	switch {
	case err == nil:
		return true
	case errors.Is(err, repository.ErrRuleNotFound):
		errorJSON(c, http.StatusNotFound, "not_found", "Mapping rule not found")
	default:
		logrus.Errorf("Mapping rule lookup failed: %v", err)
		errorJSON(c, http.StatusInternalServerError, "database_error", "Failed to fetch mapping rule")
	}
	return false
}

// cleanPattern lower-cases a sender domain pattern and rejects addresses
// and wildcards, which the domain matcher does not understand
func cleanPattern(c *gin.Context, raw string) (string, bool) {
	pattern := strings.Trim(strings.ToLower(strings.TrimSpace(raw)), ".")
	if pattern == "" || strings.ContainsAny(pattern, "@* \t") {
		errorJSON(c, http.StatusBadRequest, "validation_error", "Pattern must be a bare domain such as example.com.au")
		return "", false
	}
	return pattern, true
}
