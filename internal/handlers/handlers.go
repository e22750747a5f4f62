package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"receipt-extractor-go/internal/extractor"
	"receipt-extractor-go/internal/model"
	"receipt-extractor-go/internal/scheduler"
	"receipt-extractor-go/internal/status"
)

// Store is the persistence the API reads and writes
type Store interface {
	status.Store
	Ping(ctx context.Context) error
	ListEmails(ctx context.Context, filter status.Filter, page, limit int) ([]model.EmailRecord, int64, error)
	GetEmail(ctx context.Context, emailID string) (*model.EmailRecord, error)
	GetAllRules(ctx context.Context) ([]model.MerchantMappingRule, error)
	GetEnabledRules(ctx context.Context) ([]model.MerchantMappingRule, error)
	GetRule(ctx context.Context, id uint) (*model.MerchantMappingRule, error)
	CreateRule(ctx context.Context, rule *model.MerchantMappingRule) error
	UpdateRule(ctx context.Context, rule *model.MerchantMappingRule) error
	SetRuleEnabled(ctx context.Context, id uint, enabled bool) (*model.MerchantMappingRule, error)
	DeleteRule(ctx context.Context, id uint) error
	GetLogs(ctx context.Context, limit, offset int) ([]model.ExtractionLog, int64, error)
	GetLog(ctx context.Context, id uint) (*model.ExtractionLog, error)
}

// Scheduler is the ingestion control surface
type Scheduler interface {
	Start() error
	Stop() error
	RunOnce(ctx context.Context) (scheduler.CycleReport, error)
	IsRunning() bool
	GetNextRun() time.Time
	GetLastRun() time.Time
}

// Handlers contains all HTTP handlers
type Handlers struct {
	store     Store
	statuses  *status.Service
	scheduler Scheduler
	opts      extractor.Options
	mappings  []extractor.MappingEntry
	view      status.Filter
}

// NewHandlers creates new HTTP handlers. opts and mappings configure
// ad-hoc extraction the same way the scheduler is configured; view is the
// default email list filter.
func NewHandlers(store Store, s Scheduler, opts extractor.Options, mappings []extractor.MappingEntry, view status.Filter) *Handlers {
	return &Handlers{
		store:     store,
		statuses:  status.NewService(store),
		scheduler: s,
		opts:      opts,
		mappings:  mappings,
		view:      view,
	}
}

// SetupRoutes sets up all HTTP routes
func (h *Handlers) SetupRoutes(router *gin.Engine, metricsHandler http.Handler) {
	router.GET("/healthz", h.HealthCheck)
	if metricsHandler != nil {
		router.GET("/metrics", gin.WrapH(metricsHandler))
	}

	api := router.Group("/api/v1")
	{
		api.GET("/emails", h.ListEmails)
		api.GET("/emails/:id", h.GetEmail)
		api.POST("/emails/:id/transactions", h.MarkTransactionCreated)
		api.POST("/emails/:id/archive", h.ArchiveEmail)

		api.POST("/extract", h.Extract)

		api.GET("/mappings", h.GetMappings)
		api.POST("/mappings", h.CreateMapping)
		api.GET("/mappings/:id", h.GetMapping)
		api.PUT("/mappings/:id", h.UpdateMapping)
		api.DELETE("/mappings/:id", h.DeleteMapping)
		api.PATCH("/mappings/:id/enable", h.EnableMapping)
		api.PATCH("/mappings/:id/disable", h.DisableMapping)

		api.GET("/logs", h.GetLogs)
		api.GET("/logs/:id", h.GetLog)

		api.POST("/scheduler/start", h.StartScheduler)
		api.POST("/scheduler/stop", h.StopScheduler)
		api.POST("/scheduler/run-once", h.RunOnce)
		api.GET("/scheduler/status", h.GetSchedulerStatus)
	}
}

func errorJSON(c *gin.Context, code int, kind, message string) {
	c.JSON(code, ErrorResponse{Error: kind, Message: message, Code: code})
}

func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		errorJSON(c, http.StatusBadRequest, "invalid_id", "Invalid ID")
		return 0, false
	}
	return uint(id), true
}

func queryInt(c *gin.Context, key string, def int) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return def
	}
	return v
}
