package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"receipt-extractor-go/internal/config"
	"receipt-extractor-go/internal/extractor"
	"receipt-extractor-go/internal/fetcher"
	"receipt-extractor-go/internal/metrics"
	"receipt-extractor-go/internal/model"
)

// Store is the persistence the ingestion cycle needs
type Store interface {
	IsEmailProcessed(ctx context.Context, emailID string) (bool, error)
	IsContentHashSeen(ctx context.Context, hash string) (bool, error)
	SaveExtraction(ctx context.Context, email *model.EmailRecord, txs []model.TransactionRecord) error
	LogExtraction(ctx context.Context, entry *model.ExtractionLog) error
	GetEnabledRules(ctx context.Context) ([]model.MerchantMappingRule, error)
	CountRules(ctx context.Context) (enabled, total int64, err error)
}

// CycleReport summarizes one ingestion cycle
type CycleReport struct {
	Fetched      int           `json:"fetched"`
	Skipped      int           `json:"skipped"`
	Duplicates   int           `json:"duplicates"`
	Stored       int           `json:"stored"`
	Transactions int           `json:"transactions"`
	Failed       int           `json:"failed"`
	Duration     time.Duration `json:"duration"`
}

// Scheduler manages the periodic email ingestion
type Scheduler struct {
	cron      *cron.Cron
	entryID   cron.EntryID
	config    *config.SchedulerConfig
	fetcher   fetcher.EmailFetcher
	store     Store
	opts      extractor.Options
	mappings  []extractor.MappingEntry
	metrics   *metrics.Metrics
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	isRunning bool
	lastRun   time.Time
	mu        sync.RWMutex
	cycleMu   sync.Mutex
}

// NewScheduler creates a new scheduler. mappings are the configured
// domain mappings; enabled database rules are layered on top of them at
// the start of every cycle.
func NewScheduler(cfg *config.SchedulerConfig, f fetcher.EmailFetcher, store Store, opts extractor.Options, mappings []extractor.MappingEntry, m *metrics.Metrics) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		cron:     cron.New(cron.WithSeconds()),
		config:   cfg,
		fetcher:  f,
		store:    store,
		opts:     opts,
		mappings: mappings,
		metrics:  m,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start starts the scheduler
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("scheduler is already running")
	}

	if s.ctx.Err() != nil {
		s.ctx, s.cancel = context.WithCancel(context.Background())
	}

	schedule := fmt.Sprintf("0 */%d * * * *", s.config.IntervalMinutes)

	entryID, err := s.cron.AddFunc(schedule, s.processEmails)
	if err != nil {
		return fmt.Errorf("failed to add cron job: %w", err)
	}

	s.entryID = entryID
	s.cron.Start()
	s.isRunning = true

	logrus.Infof("Scheduler started with interval: %d minutes", s.config.IntervalMinutes)
	return nil
}

// Stop stops the scheduler
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}

	s.cancel()
	ctx := s.cron.Stop()
	s.cron.Remove(s.entryID)
	s.isRunning = false
	s.mu.Unlock()

	// the lock is released first so a running job can finish its cycle
	select {
	case <-ctx.Done():
		logrus.Info("Scheduler stopped gracefully")
	case <-time.After(30 * time.Second):
		logrus.Warn("Scheduler stop timeout, forcing shutdown")
	}
	return nil
}

// IsRunning returns whether the scheduler is running
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// processEmails is the cron job body
func (s *Scheduler) processEmails() {
	s.mu.RLock()
	if !s.isRunning {
		s.mu.RUnlock()
		logrus.Info("Scheduler not running, skipping processing cycle")
		return
	}
	ctx := s.ctx
	s.mu.RUnlock()

	if _, err := s.RunOnce(ctx); err != nil {
		logrus.Errorf("Email processing cycle failed: %v", err)
	}
}

// RunOnce runs one ingestion cycle. Cycles never overlap; a second caller
// waits for the running one to finish.
func (s *Scheduler) RunOnce(ctx context.Context) (report CycleReport, err error) {
	s.wg.Add(1)
	defer s.wg.Done()

	s.cycleMu.Lock()
	defer s.cycleMu.Unlock()

	logrus.Info("Starting email processing cycle")
	startTime := time.Now()
	defer func() {
		report.Duration = time.Since(startTime)
		s.metrics.ProcessingTime.Observe(report.Duration.Seconds())
		s.mu.Lock()
		s.lastRun = startTime
		s.mu.Unlock()
	}()

	s.metrics.FetchCount.Inc()
	emails, err := s.fetcher.FetchNewEmails(ctx)
	if err != nil {
		s.metrics.Failures.Inc()
		return report, fmt.Errorf("failed to fetch emails: %w", err)
	}
	report.Fetched = len(emails)
	logrus.Infof("Fetched %d new emails", len(emails))

	fresh, err := s.filterNew(ctx, emails, &report)
	if err != nil {
		return report, err
	}
	if len(fresh) == 0 {
		logrus.Info("No new emails to extract")
		return report, nil
	}

	ext, err := s.snapshot(ctx)
	if err != nil {
		return report, err
	}

	results, err := ext.ExtractAll(ctx, fresh)
	if err != nil {
		return report, fmt.Errorf("extraction cancelled: %w", err)
	}

	for i, res := range results {
		if err := s.persist(ctx, fresh[i], res); err != nil {
			logrus.Errorf("Failed to store email %s: %v", res.EmailID, err)
			report.Failed++
			s.metrics.Failures.Inc()
			s.logOutcome(ctx, res, model.LogStatusFailed, err.Error())
			continue
		}
		report.Stored++
		report.Transactions += len(res.Transactions)
	}

	logrus.WithFields(logrus.Fields{
		"fetched":      report.Fetched,
		"stored":       report.Stored,
		"transactions": report.Transactions,
		"duplicates":   report.Duplicates,
		"failed":       report.Failed,
	}).Infof("Email processing cycle completed in %v", time.Since(startTime))
	return report, nil
}

// filterNew drops emails already stored, by id or by content hash,
// including repeats inside the same batch
func (s *Scheduler) filterNew(ctx context.Context, emails []extractor.RawEmail, report *CycleReport) ([]extractor.RawEmail, error) {
	fresh := make([]extractor.RawEmail, 0, len(emails))
	batchIDs := make(map[string]struct{}, len(emails))
	batchHashes := make(map[string]struct{}, len(emails))

	for _, email := range emails {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("context cancelled: %w", err)
		}
		if email.ContentHash == "" {
			email.ContentHash = extractor.ContentHash(email.BodyText)
		}

		if _, ok := batchIDs[email.ID]; ok {
			report.Skipped++
			continue
		}
		processed, err := s.store.IsEmailProcessed(ctx, email.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to check if email is processed: %w", err)
		}
		if processed {
			logrus.Debugf("Email %s already processed, skipping", email.ID)
			report.Skipped++
			continue
		}

		_, inBatch := batchHashes[email.ContentHash]
		seen := inBatch
		if !seen {
			if seen, err = s.store.IsContentHashSeen(ctx, email.ContentHash); err != nil {
				return nil, fmt.Errorf("failed to check content hash: %w", err)
			}
		}
		if seen {
			logrus.Infof("Email %s duplicates already ingested content, skipping", email.ID)
			report.Duplicates++
			s.metrics.Duplicates.Inc()
			s.logOutcome(ctx, extractor.Result{EmailID: email.ID}, model.LogStatusDuplicate, "")
			continue
		}

		batchIDs[email.ID] = struct{}{}
		batchHashes[email.ContentHash] = struct{}{}
		fresh = append(fresh, email)
	}
	return fresh, nil
}

// snapshot builds the extractor for one cycle from the current rules
func (s *Scheduler) snapshot(ctx context.Context) (*extractor.Extractor, error) {
	rules, err := s.store.GetEnabledRules(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load mapping rules: %w", err)
	}

	if enabled, total, err := s.store.CountRules(ctx); err == nil {
		s.metrics.ActiveRules.Set(float64(enabled))
		s.metrics.TotalRules.Set(float64(total))
	}

	return BuildExtractor(rules, s.mappings, s.opts), nil
}

// BuildExtractor layers enabled rules over configured mappings over the
// built-in table
func BuildExtractor(rules []model.MerchantMappingRule, mappings []extractor.MappingEntry, opts extractor.Options) *extractor.Extractor {
	entries := make([]extractor.MappingEntry, 0, len(rules))
	for _, r := range rules {
		if r.Enabled {
			entries = append(entries, r.Entry())
		}
	}
	mapping := extractor.DefaultMerchantMapping().Extend(mappings...).Extend(entries...)
	return extractor.New(mapping, opts)
}

func (s *Scheduler) persist(ctx context.Context, email extractor.RawEmail, res extractor.Result) error {
	received := email.Date
	if received.IsZero() {
		received = time.Now()
	}
	record := &model.EmailRecord{
		EmailID:          email.ID,
		ContentHash:      res.ContentHash,
		Subject:          email.Subject,
		Sender:           email.Sender,
		ReceivedAt:       received,
		Status:           res.Status,
		Merchant:         res.Resolution.Name,
		MerchantResolved: res.Resolution.Resolved,
		ResolutionSource: string(res.Resolution.Source),
		BodyText:         email.BodyText,
	}

	txs := make([]model.TransactionRecord, 0, len(res.Transactions))
	for _, tx := range res.Transactions {
		txs = append(txs, model.NewTransactionRecord(tx))
		if !tx.MerchantResolved {
			s.metrics.UnresolvedMerchants.Inc()
		}
	}

	if err := s.store.SaveExtraction(ctx, record, txs); err != nil {
		return err
	}

	s.metrics.EmailsProcessed.Inc()
	s.metrics.TransactionsExtracted.Add(float64(len(txs)))

	outcome := model.LogStatusExtracted
	if len(txs) == 0 {
		outcome = model.LogStatusNoTransaction
	}
	s.logOutcome(ctx, res, outcome, "")
	return nil
}

func (s *Scheduler) logOutcome(ctx context.Context, res extractor.Result, outcome, errMsg string) {
	entry := &model.ExtractionLog{
		EmailID:          res.EmailID,
		Status:           outcome,
		Merchant:         res.Resolution.Name,
		TransactionCount: len(res.Transactions),
		ErrorMsg:         errMsg,
	}
	for _, tx := range res.Transactions {
		if tx.Confidence > entry.Confidence {
			entry.Confidence = tx.Confidence
		}
	}
	if err := s.store.LogExtraction(ctx, entry); err != nil {
		logrus.Errorf("Failed to log extraction of %s: %v", res.EmailID, err)
	}
}

// GetNextRun returns the time of the next scheduled run
func (s *Scheduler) GetNextRun() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.isRunning {
		return time.Time{}
	}
	return s.cron.Entry(s.entryID).Next
}

// GetLastRun returns the start time of the last cycle, scheduled or manual
func (s *Scheduler) GetLastRun() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastRun
}

// Wait waits for running cycles to finish
func (s *Scheduler) Wait() {
	s.wg.Wait()
}
