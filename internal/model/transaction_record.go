package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"receipt-extractor-go/internal/extractor"
)

// TransactionRecord is a stored transaction candidate
type TransactionRecord struct {
	ID                   string               `json:"id" gorm:"type:varchar(36);primaryKey"`
	EmailID              string               `json:"email_id" gorm:"type:varchar(255);not null;index"`
	Merchant             string               `json:"merchant" gorm:"type:varchar(255);not null"`
	MerchantResolved     bool                 `json:"merchant_resolved"`
	Amount               decimal.Decimal      `json:"amount" gorm:"type:decimal(14,2);not null"`
	Currency             string               `json:"currency" gorm:"type:char(3);not null"`
	Date                 time.Time            `json:"date"`
	Category             string               `json:"category" gorm:"type:varchar(32);index"`
	Items                []extractor.LineItem `json:"items" gorm:"serializer:json;type:json"`
	Confidence           float64              `json:"confidence"`
	GSTAmount            *decimal.Decimal     `json:"gst_amount,omitempty" gorm:"type:decimal(14,2)"`
	ABN                  *string              `json:"abn,omitempty" gorm:"type:varchar(14)"`
	InvoiceNumber        string               `json:"invoice_number" gorm:"type:varchar(128)"`
	InvoiceNumberDerived bool                 `json:"invoice_number_derived"`
	PaymentMethod        *string              `json:"payment_method,omitempty" gorm:"type:varchar(32)"`
	Reconciled           bool                 `json:"reconciled"`
	CreatedAt            time.Time            `json:"created_at"`
	DeletedAt            gorm.DeletedAt       `json:"deleted_at,omitempty" gorm:"index"`
}

// TableName specifies the table name for TransactionRecord
func (TransactionRecord) TableName() string {
	return "transactions"
}

// NewTransactionRecord converts an extracted candidate for storage
func NewTransactionRecord(tx extractor.ExtractedTransaction) TransactionRecord {
	return TransactionRecord{
		ID:                   tx.ID,
		EmailID:              tx.SourceEmailID,
		Merchant:             tx.Merchant,
		MerchantResolved:     tx.MerchantResolved,
		Amount:               tx.Amount,
		Currency:             tx.Currency,
		Date:                 tx.Date,
		Category:             string(tx.Category),
		Items:                tx.Items,
		Confidence:           tx.Confidence,
		GSTAmount:            tx.GSTAmount,
		ABN:                  tx.ABN,
		InvoiceNumber:        tx.InvoiceNumber,
		InvoiceNumberDerived: tx.InvoiceNumberDerived,
		PaymentMethod:        tx.PaymentMethod,
		Reconciled:           tx.Reconciled,
	}
}
