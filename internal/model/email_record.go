package model

import (
	"time"

	"gorm.io/gorm"

	"receipt-extractor-go/internal/status"
)

// EmailRecord is a source email that went through extraction. EmailID is
// unique so the same message is never ingested twice.
type EmailRecord struct {
	ID               uint           `json:"id" gorm:"primaryKey;autoIncrement"`
	EmailID          string         `json:"email_id" gorm:"type:varchar(255);not null;uniqueIndex"`
	ContentHash      string         `json:"content_hash" gorm:"type:varchar(32);index"`
	Subject          string         `json:"subject" gorm:"type:varchar(998)"`
	Sender           string         `json:"sender" gorm:"type:varchar(512)"`
	ReceivedAt       time.Time      `json:"received_at"`
	Status           status.Status  `json:"status" gorm:"type:varchar(32);not null;default:needsReview;index"`
	Merchant         string         `json:"merchant" gorm:"type:varchar(255)"`
	MerchantResolved bool           `json:"merchant_resolved"`
	ResolutionSource string         `json:"resolution_source" gorm:"type:varchar(32)"`
	BodyText         string         `json:"-" gorm:"type:mediumtext"`
	StatusChangedAt  *time.Time     `json:"status_changed_at,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	DeletedAt        gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`

	Transactions []TransactionRecord `json:"transactions,omitempty" gorm:"foreignKey:EmailID;references:EmailID"`
}

// TableName specifies the table name for EmailRecord
func (EmailRecord) TableName() string {
	return "emails"
}
