package model

import (
	"time"

	"gorm.io/gorm"
)

// Extraction log outcomes
const (
	LogStatusExtracted     = "extracted"
	LogStatusNoTransaction = "no_transaction"
	LogStatusDuplicate     = "duplicate"
	LogStatusFailed        = "failed"
)

// ExtractionLog records what one ingestion attempt did with an email
type ExtractionLog struct {
	ID               uint           `json:"id" gorm:"primaryKey;autoIncrement"`
	EmailID          string         `json:"email_id" gorm:"type:varchar(255);not null;index"`
	Status           string         `json:"status" gorm:"type:varchar(50);not null"`
	Merchant         string         `json:"merchant" gorm:"type:varchar(255)"`
	TransactionCount int            `json:"transaction_count"`
	Confidence       float64        `json:"confidence"`
	ErrorMsg         string         `json:"error_msg" gorm:"type:text"`
	CreatedAt        time.Time      `json:"created_at"`
	DeletedAt        gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

// TableName specifies the table name for ExtractionLog
func (ExtractionLog) TableName() string {
	return "extraction_logs"
}
