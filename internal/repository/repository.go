package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"receipt-extractor-go/internal/model"
	"receipt-extractor-go/internal/status"
)

// ErrRuleNotFound is returned when a mapping rule id does not exist
var ErrRuleNotFound = errors.New("mapping rule not found")

// Repository is the gorm-backed store for emails, transactions, mapping
// rules and extraction logs
type Repository struct {
	db *gorm.DB
}

var _ status.Store = (*Repository)(nil)

func New(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Ping checks the database connection
func (r *Repository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying SQL DB: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

func (r *Repository) IsEmailProcessed(ctx context.Context, emailID string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.EmailRecord{}).
		Where("email_id = ?", emailID).Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check processed email: %w", err)
	}
	return count > 0, nil
}

// IsContentHashSeen reports whether another email with the same normalized
// body was already stored
func (r *Repository) IsContentHashSeen(ctx context.Context, hash string) (bool, error) {
	if hash == "" {
		return false, nil
	}
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.EmailRecord{}).
		Where("content_hash = ?", hash).Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check content hash: %w", err)
	}
	return count > 0, nil
}

// SaveExtraction stores the email in needsReview together with its
// transaction candidates
func (r *Repository) SaveExtraction(ctx context.Context, email *model.EmailRecord, txs []model.TransactionRecord) error {
	if email.Status == "" {
		email.Status = status.NeedsReview
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(email).Error; err != nil {
			return fmt.Errorf("failed to save email: %w", err)
		}
		if len(txs) == 0 {
			return nil
		}
		if err := tx.Create(&txs).Error; err != nil {
			return fmt.Errorf("failed to save transactions: %w", err)
		}
		return nil
	})
}

func (r *Repository) LogExtraction(ctx context.Context, entry *model.ExtractionLog) error {
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("failed to create extraction log: %w", err)
	}
	return nil
}

// ListEmails returns one page of emails visible under the filter, newest first
func (r *Repository) ListEmails(ctx context.Context, filter status.Filter, page, limit int) ([]model.EmailRecord, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = 50
	}

	visible := func() *gorm.DB {
		return r.db.WithContext(ctx).Model(&model.EmailRecord{}).Where("status IN ?", filter.Statuses())
	}

	var total int64
	if err := visible().Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count emails: %w", err)
	}

	var emails []model.EmailRecord
	if err := visible().Order("received_at DESC").Offset((page - 1) * limit).Limit(limit).Find(&emails).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list emails: %w", err)
	}
	return emails, total, nil
}

// GetEmail loads one email with its transactions. A missing email yields
// nil without error.
func (r *Repository) GetEmail(ctx context.Context, emailID string) (*model.EmailRecord, error) {
	var email model.EmailRecord
	err := r.db.WithContext(ctx).Preload("Transactions").Where("email_id = ?", emailID).First(&email).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get email: %w", err)
	}
	return &email, nil
}

func (r *Repository) Status(ctx context.Context, emailID string) (status.Status, error) {
	var email model.EmailRecord
	err := r.db.WithContext(ctx).Select("status").Where("email_id = ?", emailID).First(&email).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", status.ErrEmailNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to read email status: %w", err)
	}
	return email.Status, nil
}

// CompareAndSet moves an email from one status to another in a single
// conditional UPDATE so concurrent callers cannot both win
func (r *Repository) CompareAndSet(ctx context.Context, emailID string, from, to status.Status) (bool, error) {
	result := r.db.WithContext(ctx).Model(&model.EmailRecord{}).
		Where("email_id = ? AND status = ?", emailID, from).
		Updates(map[string]interface{}{
			"status":            to,
			"status_changed_at": time.Now(),
		})
	if result.Error != nil {
		return false, fmt.Errorf("failed to update email status: %w", result.Error)
	}
	if result.RowsAffected > 0 {
		return true, nil
	}
	if _, err := r.Status(ctx, emailID); err != nil {
		return false, err
	}
	return false, nil
}

func (r *Repository) GetAllRules(ctx context.Context) ([]model.MerchantMappingRule, error) {
	var rules []model.MerchantMappingRule
	if err := r.db.WithContext(ctx).Order("priority ASC, id ASC").Find(&rules).Error; err != nil {
		return nil, fmt.Errorf("failed to get rules: %w", err)
	}
	return rules, nil
}

// GetEnabledRules returns enabled rules in match order
func (r *Repository) GetEnabledRules(ctx context.Context) ([]model.MerchantMappingRule, error) {
	var rules []model.MerchantMappingRule
	if err := r.db.WithContext(ctx).Where("enabled = ?", true).
		Order("priority ASC, id ASC").Find(&rules).Error; err != nil {
		return nil, fmt.Errorf("failed to get enabled rules: %w", err)
	}
	return rules, nil
}

func (r *Repository) GetRule(ctx context.Context, id uint) (*model.MerchantMappingRule, error) {
	var rule model.MerchantMappingRule
	err := r.db.WithContext(ctx).First(&rule, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRuleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get rule: %w", err)
	}
	return &rule, nil
}

func (r *Repository) CreateRule(ctx context.Context, rule *model.MerchantMappingRule) error {
	if err := r.db.WithContext(ctx).Create(rule).Error; err != nil {
		return fmt.Errorf("failed to create rule: %w", err)
	}
	return nil
}

// UpdateRule saves every field of an existing rule
func (r *Repository) UpdateRule(ctx context.Context, rule *model.MerchantMappingRule) error {
	if err := r.db.WithContext(ctx).Save(rule).Error; err != nil {
		return fmt.Errorf("failed to update rule: %w", err)
	}
	return nil
}

func (r *Repository) SetRuleEnabled(ctx context.Context, id uint, enabled bool) (*model.MerchantMappingRule, error) {
	rule, err := r.GetRule(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Model(rule).Update("enabled", enabled).Error; err != nil {
		return nil, fmt.Errorf("failed to update rule: %w", err)
	}
	rule.Enabled = enabled
	return rule, nil
}

func (r *Repository) DeleteRule(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&model.MerchantMappingRule{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete rule: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrRuleNotFound
	}
	return nil
}

// CountRules returns the number of enabled and total mapping rules
func (r *Repository) CountRules(ctx context.Context) (enabled, total int64, err error) {
	if err = r.db.WithContext(ctx).Model(&model.MerchantMappingRule{}).Count(&total).Error; err != nil {
		return 0, 0, fmt.Errorf("failed to count rules: %w", err)
	}
	if err = r.db.WithContext(ctx).Model(&model.MerchantMappingRule{}).
		Where("enabled = ?", true).Count(&enabled).Error; err != nil {
		return 0, 0, fmt.Errorf("failed to count enabled rules: %w", err)
	}
	return enabled, total, nil
}

func (r *Repository) GetLogs(ctx context.Context, limit, offset int) ([]model.ExtractionLog, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&model.ExtractionLog{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count logs: %w", err)
	}
	var logs []model.ExtractionLog
	if err := r.db.WithContext(ctx).Order("created_at DESC").
		Limit(limit).Offset(offset).Find(&logs).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to get logs: %w", err)
	}
	return logs, total, nil
}

func (r *Repository) GetLog(ctx context.Context, id uint) (*model.ExtractionLog, error) {
	var entry model.ExtractionLog
	err := r.db.WithContext(ctx).First(&entry, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get log: %w", err)
	}
	return &entry, nil
}
