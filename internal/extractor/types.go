// Package extractor turns raw financial emails into structured transaction
// candidates. Everything in this package is pure: the same RawEmail always
// yields the same Result, and no function performs I/O.
package extractor

import (
	"time"

	"github.com/shopspring/decimal"

	"receipt-extractor-go/internal/status"
)

// RawEmail is the input handed over by the fetch/OCR collaborators
type RawEmail struct {
	ID          string    `json:"id"`
	Subject     string    `json:"subject"`
	Sender      string    `json:"sender"`
	Date        time.Time `json:"date"`
	BodyText    string    `json:"body_text"`
	ContentHash string    `json:"content_hash"`
}

// LineItem is one purchase inside a digest-style email
type LineItem struct {
	Description   string          `json:"description"`
	Merchant      string          `json:"merchant"`
	Amount        decimal.Decimal `json:"amount"`
	Cashback      decimal.Decimal `json:"cashback"`
	CategoryLabel string          `json:"category_label,omitempty"`
	TransactionID string          `json:"transaction_id,omitempty"`
}

// ExtractedTransaction is a bookkeeping candidate produced from one email
type ExtractedTransaction struct {
	ID                   string           `json:"id"`
	Merchant             string           `json:"merchant"`
	MerchantResolved     bool             `json:"merchant_resolved"`
	Amount               decimal.Decimal  `json:"amount"`
	Currency             string           `json:"currency"`
	Date                 time.Time        `json:"date"`
	Category             Category         `json:"category"`
	Items                []LineItem       `json:"items"`
	Confidence           float64          `json:"confidence"`
	GSTAmount            *decimal.Decimal `json:"gst_amount,omitempty"`
	ABN                  *string          `json:"abn,omitempty"`
	InvoiceNumber        string           `json:"invoice_number"`
	InvoiceNumberDerived bool             `json:"invoice_number_derived"`
	PaymentMethod        *string          `json:"payment_method,omitempty"`
	Reconciled           bool             `json:"reconciled"`
	EmailSubject         string           `json:"email_subject"`
	EmailSender          string           `json:"email_sender"`
	SourceEmailID        string           `json:"source_email_id"`
}

// Result is the outcome of running the pipeline over one email
type Result struct {
	EmailID      string                 `json:"email_id"`
	ContentHash  string                 `json:"content_hash"`
	Resolution   Resolution             `json:"resolution"`
	Transactions []ExtractedTransaction `json:"transactions"`
	Status       status.Status          `json:"status"`
}
