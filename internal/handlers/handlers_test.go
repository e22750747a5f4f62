package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"receipt-extractor-go/internal/extractor"
	"receipt-extractor-go/internal/model"
	"receipt-extractor-go/internal/repository"
	"receipt-extractor-go/internal/scheduler"
	"receipt-extractor-go/internal/status"
)

type fakeStore struct {
	*status.MemoryStore
	emails  map[string]model.EmailRecord
	rules   map[uint]*model.MerchantMappingRule
	nextID  uint
	logs    []model.ExtractionLog
	pingErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		MemoryStore: status.NewMemoryStore(),
		emails:      map[string]model.EmailRecord{},
		rules:       map[uint]*model.MerchantMappingRule{},
	}
}

func (s *fakeStore) addEmail(id string) {
	s.emails[id] = model.EmailRecord{EmailID: id, Subject: "subject " + id}
	_ = s.Create(context.Background(), id)
}

func (s *fakeStore) withStatus(e model.EmailRecord) model.EmailRecord {
	e.Status, _ = s.Status(context.Background(), e.EmailID)
	return e
}

func (s *fakeStore) Ping(ctx context.Context) error { return s.pingErr }

func (s *fakeStore) ListEmails(ctx context.Context, filter status.Filter, page, limit int) ([]model.EmailRecord, int64, error) {
	var all []model.EmailRecord
	for _, e := range s.emails {
		all = append(all, s.withStatus(e))
	}
	sort.Slice(all, func(i, j int) bool { return all[i].EmailID < all[j].EmailID })
	visible := status.Apply(filter, all, func(e model.EmailRecord) status.Status { return e.Status })
	return visible, int64(len(visible)), nil
}

func (s *fakeStore) GetEmail(ctx context.Context, emailID string) (*model.EmailRecord, error) {
	e, ok := s.emails[emailID]
	if !ok {
		return nil, nil
	}
	e = s.withStatus(e)
	return &e, nil
}

func (s *fakeStore) GetAllRules(ctx context.Context) ([]model.MerchantMappingRule, error) {
	var out []model.MerchantMappingRule
	for _, r := range s.rules {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *fakeStore) GetEnabledRules(ctx context.Context) ([]model.MerchantMappingRule, error) {
	all, _ := s.GetAllRules(ctx)
	var out []model.MerchantMappingRule
	for _, r := range all {
		if r.Enabled {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *fakeStore) GetRule(ctx context.Context, id uint) (*model.MerchantMappingRule, error) {
	r, ok := s.rules[id]
	if !ok {
		return nil, repository.ErrRuleNotFound
	}
	cp := *r
	return &cp, nil
}

func (s *fakeStore) CreateRule(ctx context.Context, rule *model.MerchantMappingRule) error {
	s.nextID++
	rule.ID = s.nextID
	cp := *rule
	s.rules[rule.ID] = &cp
	return nil
}

func (s *fakeStore) UpdateRule(ctx context.Context, rule *model.MerchantMappingRule) error {
	cp := *rule
	s.rules[rule.ID] = &cp
	return nil
}

func (s *fakeStore) SetRuleEnabled(ctx context.Context, id uint, enabled bool) (*model.MerchantMappingRule, error) {
	r, ok := s.rules[id]
	if !ok {
		return nil, repository.ErrRuleNotFound
	}
	r.Enabled = enabled
	cp := *r
	return &cp, nil
}

func (s *fakeStore) DeleteRule(ctx context.Context, id uint) error {
	if _, ok := s.rules[id]; !ok {
		return repository.ErrRuleNotFound
	}
	delete(s.rules, id)
	return nil
}

func (s *fakeStore) GetLogs(ctx context.Context, limit, offset int) ([]model.ExtractionLog, int64, error) {
	return s.logs, int64(len(s.logs)), nil
}

func (s *fakeStore) GetLog(ctx context.Context, id uint) (*model.ExtractionLog, error) {
	for _, l := range s.logs {
		if l.ID == id {
			return &l, nil
		}
	}
	return nil, nil
}

type fakeScheduler struct {
	running bool
	report  scheduler.CycleReport
	runErr  error
}

func (f *fakeScheduler) Start() error {
	if f.running {
		return errors.New("scheduler is already running")
	}
	f.running = true
	return nil
}
func (f *fakeScheduler) Stop() error { f.running = false; return nil }
func (f *fakeScheduler) RunOnce(ctx context.Context) (scheduler.CycleReport, error) {
	return f.report, f.runErr
}
func (f *fakeScheduler) IsRunning() bool       { return f.running }
func (f *fakeScheduler) GetNextRun() time.Time { return time.Time{} }
func (f *fakeScheduler) GetLastRun() time.Time { return time.Time{} }

func setup(store *fakeStore, sched *fakeScheduler, view status.Filter) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	h := NewHandlers(store, sched, extractor.Options{}, nil, view)
	h.SetupRoutes(router, nil)
	return router
}

func do(router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	return v
}

func TestHealthCheck(t *testing.T) {
	store := newFakeStore()
	router := setup(store, &fakeScheduler{running: true}, status.Filter{})

	w := do(router, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	resp := decode[HealthResponse](t, w)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "running", resp.Scheduler)

	store.pingErr = errors.New("connection refused")
	w = do(router, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "error", decode[HealthResponse](t, w).Database)
}

func TestEmailLifecycle(t *testing.T) {
	store := newFakeStore()
	store.addEmail("e1")
	store.addEmail("e2")
	router := setup(store, &fakeScheduler{}, status.Filter{})

	w := do(router, http.MethodPost, "/api/v1/emails/e1/transactions", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, StatusChangeResponse{EmailID: "e1", Status: status.TransactionCreated, Changed: true}, decode[StatusChangeResponse](t, w))

	// a second signal is a no-op
	w = do(router, http.MethodPost, "/api/v1/emails/e1/transactions", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, decode[StatusChangeResponse](t, w).Changed)

	// archiving after a transaction leaves the status alone
	w = do(router, http.MethodPost, "/api/v1/emails/e1/archive", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, StatusChangeResponse{EmailID: "e1", Status: status.TransactionCreated, Changed: false}, decode[StatusChangeResponse](t, w))

	w = do(router, http.MethodPost, "/api/v1/emails/e2/archive", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, status.Archived, decode[StatusChangeResponse](t, w).Status)

	w = do(router, http.MethodPost, "/api/v1/emails/e2/archive", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, decode[StatusChangeResponse](t, w).Changed)

	w = do(router, http.MethodPost, "/api/v1/emails/missing/archive", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListEmailsFilter(t *testing.T) {
	store := newFakeStore()
	store.addEmail("e1")
	store.addEmail("e2")
	store.addEmail("e3")
	_, _ = store.CompareAndSet(context.Background(), "e2", status.NeedsReview, status.Archived)
	_, _ = store.CompareAndSet(context.Background(), "e3", status.NeedsReview, status.TransactionCreated)
	router := setup(store, &fakeScheduler{}, status.Filter{})

	w := do(router, http.MethodGet, "/api/v1/emails", nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[EmailListResponse](t, w)
	require.Len(t, resp.Emails, 1)
	assert.Equal(t, "e1", resp.Emails[0].EmailID)
	assert.False(t, resp.ShowArchived)

	w = do(router, http.MethodGet, "/api/v1/emails?show_archived=true", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[EmailListResponse](t, w).Emails, 3)

	w = do(router, http.MethodGet, "/api/v1/emails?show_archived=maybe", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// configured default
	router = setup(store, &fakeScheduler{}, status.Filter{ShowArchivedEmails: true})
	w = do(router, http.MethodGet, "/api/v1/emails", nil)
	assert.Len(t, decode[EmailListResponse](t, w).Emails, 3)
	w = do(router, http.MethodGet, "/api/v1/emails?show_archived=false", nil)
	assert.Len(t, decode[EmailListResponse](t, w).Emails, 1)
}

func TestGetEmail(t *testing.T) {
	store := newFakeStore()
	store.addEmail("e1")
	router := setup(store, &fakeScheduler{}, status.Filter{})

	w := do(router, http.MethodGet, "/api/v1/emails/e1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, status.NeedsReview, decode[model.EmailRecord](t, w).Status)

	w = do(router, http.MethodGet, "/api/v1/emails/nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestExtract(t *testing.T) {
	store := newFakeStore()
	router := setup(store, &fakeScheduler{}, status.Filter{})

	w := do(router, http.MethodPost, "/api/v1/extract", ExtractRequest{
		ID:       "adhoc",
		Subject:  "Your receipt",
		Sender:   "noreply@bunnings.com.au",
		BodyText: "Total: $42.00",
	})
	require.Equal(t, http.StatusOK, w.Code)
	res := decode[extractor.Result](t, w)
	require.Len(t, res.Transactions, 1)
	assert.Equal(t, "Bunnings", res.Transactions[0].Merchant)
	assert.Equal(t, "42.00", res.Transactions[0].Amount.StringFixed(2))
	assert.Empty(t, store.emails, "ad-hoc extraction must not store anything")

	w = do(router, http.MethodPost, "/api/v1/extract", map[string]string{"body_text": "no sender"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestExtractUsesMappingRules(t *testing.T) {
	store := newFakeStore()
	router := setup(store, &fakeScheduler{}, status.Filter{})

	w := do(router, http.MethodPost, "/api/v1/mappings", MappingRuleRequest{Pattern: " Widgets.Example ", Merchant: "Widget World"})
	require.Equal(t, http.StatusCreated, w.Code)
	created := decode[MappingRuleResponse](t, w)
	assert.Equal(t, "widgets.example", created.Pattern)
	assert.Equal(t, defaultRulePriority, created.Priority)
	assert.True(t, created.Enabled)

	req := ExtractRequest{Sender: "receipts@shop.widgets.example", BodyText: "Total: $5.00"}
	w = do(router, http.MethodPost, "/api/v1/extract", req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Widget World", decode[extractor.Result](t, w).Resolution.Name)

	w = do(router, http.MethodPatch, "/api/v1/mappings/1/disable", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, decode[MappingRuleResponse](t, w).Enabled)

	w = do(router, http.MethodPost, "/api/v1/extract", req)
	assert.NotEqual(t, "Widget World", decode[extractor.Result](t, w).Resolution.Name)
}

func TestMappingCRUD(t *testing.T) {
	store := newFakeStore()
	router := setup(store, &fakeScheduler{}, status.Filter{})

	w := do(router, http.MethodPost, "/api/v1/mappings", MappingRuleRequest{Pattern: "billing@acme.com", Merchant: "Acme"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = do(router, http.MethodPost, "/api/v1/mappings", MappingRuleRequest{Pattern: "*.acme.com", Merchant: "Acme"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = do(router, http.MethodPost, "/api/v1/mappings", map[string]string{"pattern": "acme.com"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(router, http.MethodPost, "/api/v1/mappings", MappingRuleRequest{Pattern: "acme.com", Merchant: "Acme"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = do(router, http.MethodPut, "/api/v1/mappings/1", MappingRuleRequest{Pattern: "acme.com.au", Merchant: "Acme AU"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "acme.com.au", decode[MappingRuleResponse](t, w).Pattern)

	w = do(router, http.MethodGet, "/api/v1/mappings", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]MappingRuleResponse](t, w), 1)

	w = do(router, http.MethodGet, "/api/v1/mappings/abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(router, http.MethodDelete, "/api/v1/mappings/1", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = do(router, http.MethodDelete, "/api/v1/mappings/1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = do(router, http.MethodPatch, "/api/v1/mappings/1/enable", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestLogs(t *testing.T) {
	store := newFakeStore()
	store.logs = []model.ExtractionLog{{ID: 7, EmailID: "e1", Status: model.LogStatusExtracted}}
	router := setup(store, &fakeScheduler{}, status.Filter{})

	w := do(router, http.MethodGet, "/api/v1/logs?limit=10", nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[LogListResponse](t, w)
	assert.Equal(t, int64(1), resp.Total)
	assert.Equal(t, 10, resp.Limit)

	w = do(router, http.MethodGet, "/api/v1/logs/7", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = do(router, http.MethodGet, "/api/v1/logs/8", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSchedulerEndpoints(t *testing.T) {
	sched := &fakeScheduler{report: scheduler.CycleReport{Fetched: 3, Stored: 2}}
	router := setup(newFakeStore(), sched, status.Filter{})

	w := do(router, http.MethodPost, "/api/v1/scheduler/start", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = do(router, http.MethodPost, "/api/v1/scheduler/start", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(router, http.MethodGet, "/api/v1/scheduler/status", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "running", decode[map[string]interface{}](t, w)["status"])

	w = do(router, http.MethodPost, "/api/v1/scheduler/run-once", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2, decode[scheduler.CycleReport](t, w).Stored)

	sched.runErr = errors.New("imap down")
	w = do(router, http.MethodPost, "/api/v1/scheduler/run-once", nil)
	assert.Equal(t, http.StatusBadGateway, w.Code)

	w = do(router, http.MethodPost, "/api/v1/scheduler/stop", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.False(t, sched.running)
}
