package model

import (
	"time"

	"gorm.io/gorm"

	"receipt-extractor-go/internal/extractor"
)

// MerchantMappingRule is an operator-managed domain mapping. Enabled rules
// are placed ahead of the built-in table, lower Priority first.
type MerchantMappingRule struct {
	ID        uint           `json:"id" gorm:"primaryKey;autoIncrement"`
	Pattern   string         `json:"pattern" gorm:"type:varchar(255);not null;uniqueIndex"`
	Merchant  string         `json:"merchant" gorm:"type:varchar(255);not null"`
	Priority  int            `json:"priority" gorm:"default:100"`
	Enabled   bool           `json:"enabled" gorm:"default:true"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

// TableName specifies the table name for MerchantMappingRule
func (MerchantMappingRule) TableName() string {
	return "merchant_mapping_rules"
}

// Entry converts the rule for the resolver
func (r MerchantMappingRule) Entry() extractor.MappingEntry {
	return extractor.MappingEntry{Pattern: r.Pattern, Merchant: r.Merchant}
}
