package extractor

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"receipt-extractor-go/internal/status"
)

var receivedAt = time.Date(2024, 3, 14, 9, 30, 0, 0, time.UTC)

const bunningsReceipt = `Tax Invoice
Bunnings Group Limited ABN 26 008 672 179
Invoice Number: 4821-0093-1177
Cordless Drill  $149.00
Subtotal: $135.45
GST: $13.55
Total: $149.00
Paid by Visa ending 4242`

func TestExtractBunningsReceipt(t *testing.T) {
	e := New(nil, Options{})
	res := e.Extract(RawEmail{
		ID:       "msg-bunnings",
		Subject:  "Your Bunnings receipt",
		Sender:   "noreply@bunnings.com.au",
		Date:     receivedAt,
		BodyText: bunningsReceipt,
	})

	assert.Equal(t, status.NeedsReview, res.Status)
	assert.Equal(t, "msg-bunnings", res.EmailID)
	assert.NotEmpty(t, res.ContentHash)
	require.Len(t, res.Transactions, 1)

	tx := res.Transactions[0]
	assert.Equal(t, "Bunnings", tx.Merchant)
	assert.True(t, tx.MerchantResolved)
	assert.Equal(t, CategoryHardware, tx.Category)
	assert.Equal(t, "149.00", tx.Amount.StringFixed(2))
	assert.Equal(t, "AUD", tx.Currency)
	assert.Equal(t, receivedAt, tx.Date)
	require.NotNil(t, tx.GSTAmount)
	assert.Equal(t, "13.55", tx.GSTAmount.StringFixed(2))
	require.NotNil(t, tx.ABN)
	assert.Equal(t, "26 008 672 179", *tx.ABN)
	assert.Equal(t, "4821-0093-1177", tx.InvoiceNumber)
	assert.False(t, tx.InvoiceNumberDerived)
	require.NotNil(t, tx.PaymentMethod)
	assert.Equal(t, "Visa", *tx.PaymentMethod)
	assert.InDelta(t, 1.0, tx.Confidence, 1e-9)
	assert.True(t, tx.Reconciled)
	assert.Empty(t, tx.Items)
	assert.Equal(t, "msg-bunnings", tx.SourceEmailID)
	assert.Equal(t, "Your Bunnings receipt", tx.EmailSubject)
	assert.Equal(t, "noreply@bunnings.com.au", tx.EmailSender)
	assert.NotEmpty(t, tx.ID)
}

func TestExtractSpaceshipNotBunnings(t *testing.T) {
	e := New(nil, Options{})
	res := e.Extract(RawEmail{
		ID:       "msg-spaceship",
		Sender:   "noreply@spaceshipinvest.com.au",
		Subject:  "Investment confirmation",
		BodyText: "Your investment of $250.00 has been processed.",
	})

	require.Len(t, res.Transactions, 1)
	tx := res.Transactions[0]
	assert.Equal(t, "Spaceship", tx.Merchant)
	assert.NotEqual(t, "Bunnings", tx.Merchant)
	assert.Equal(t, CategoryInvestment, tx.Category)
	assert.Equal(t, "250.00", tx.Amount.StringFixed(2))
}

func TestExtractBNPLIsFinance(t *testing.T) {
	e := New(nil, Options{})
	res := e.Extract(RawEmail{
		ID:       "msg-afterpay",
		Sender:   "Afterpay <no-reply@afterpay.com>",
		Subject:  "Order confirmation",
		BodyText: "Your purchase from Kmart\nTotal: $80.00\nFirst instalment: $20.00",
	})

	require.Len(t, res.Transactions, 1)
	assert.Equal(t, "Afterpay", res.Transactions[0].Merchant)
	assert.Equal(t, CategoryFinance, res.Transactions[0].Category)
	assert.Equal(t, "80.00", res.Transactions[0].Amount.StringFixed(2))
}

func TestExtractDigest(t *testing.T) {
	e := New(nil, Options{})
	res := e.Extract(RawEmail{
		ID:       "msg-digest",
		Sender:   "ShopBack <noreply@shopback.com.au>",
		Subject:  "Your cashback summary",
		BodyText: shopBackDigest,
	})

	require.Len(t, res.Transactions, 1)
	tx := res.Transactions[0]
	assert.Equal(t, "ShopBack", tx.Merchant)
	assert.Equal(t, "1599.74", tx.Amount.StringFixed(2))
	require.Len(t, tx.Items, 4)
	assert.True(t, tx.Reconciled)
	assert.Equal(t, "JB Hi-Fi", tx.Items[2].Merchant)
	assert.True(t, tx.Amount.Equal(SumItems(tx.Items)))
}

func TestExtractDigestMismatchLowersConfidence(t *testing.T) {
	e := New(nil, Options{})
	body := strings.Replace(shopBackDigest, "$1,599.74", "$1,600.00", 1)
	good := e.Extract(RawEmail{ID: "a", Sender: "ShopBack <noreply@shopback.com.au>", BodyText: shopBackDigest})
	bad := e.Extract(RawEmail{ID: "b", Sender: "ShopBack <noreply@shopback.com.au>", BodyText: body})

	require.Len(t, bad.Transactions, 1)
	assert.False(t, bad.Transactions[0].Reconciled)
	assert.Equal(t, "1600.00", bad.Transactions[0].Amount.StringFixed(2))
	assert.InDelta(t, good.Transactions[0].Confidence-0.2, bad.Transactions[0].Confidence, 1e-9)
}

func TestExtractDigestWithoutTotalSumsItems(t *testing.T) {
	e := New(nil, Options{})
	body := strings.Replace(shopBackDigest, "Total Purchase Amount: $1,599.74\n", "", 1)
	res := e.Extract(RawEmail{ID: "c", Sender: "ShopBack <noreply@shopback.com.au>", BodyText: body})

	require.Len(t, res.Transactions, 1)
	assert.Equal(t, "1599.74", res.Transactions[0].Amount.StringFixed(2))
	assert.True(t, res.Transactions[0].Reconciled)
}

func TestExtractSplitDigestItems(t *testing.T) {
	e := New(nil, Options{SplitDigestItems: true})
	res := e.Extract(RawEmail{ID: "msg-digest", Sender: "ShopBack <noreply@shopback.com.au>", BodyText: shopBackDigest})

	require.Len(t, res.Transactions, 4)
	sum := decimal.Zero
	ids := make(map[string]bool)
	for _, tx := range res.Transactions {
		sum = sum.Add(tx.Amount)
		ids[tx.ID] = true
		require.Len(t, tx.Items, 1)
		assert.False(t, tx.InvoiceNumberDerived)
	}
	assert.Len(t, ids, 4)
	assert.Equal(t, "1599.74", sum.StringFixed(2))
	assert.Equal(t, "Amazon", res.Transactions[0].Merchant)
	assert.Equal(t, CategoryRetail, res.Transactions[0].Category)
	assert.Equal(t, "603918274", res.Transactions[2].InvoiceNumber)
}

func TestExtractPlaceholderInvoiceFallsBack(t *testing.T) {
	e := New(nil, Options{})
	res := e.Extract(RawEmail{
		ID:       "18c2f0a9b7e4d123",
		Sender:   "billing@acmewidgets.com.au",
		BodyText: "Invoice: INV123\nTotal: $10.00",
	})

	require.Len(t, res.Transactions, 1)
	tx := res.Transactions[0]
	assert.Equal(t, "EMAIL-18C2F0A9B7E4", tx.InvoiceNumber)
	assert.True(t, tx.InvoiceNumberDerived)
	for _, bad := range []string{"INV123", "INVOICE", "ORDER"} {
		assert.NotEqual(t, bad, tx.InvoiceNumber)
	}
}

func TestExtractNoTransaction(t *testing.T) {
	e := New(nil, Options{})
	res := e.Extract(RawEmail{
		ID:       "msg-news",
		Sender:   "news@somebrand.com",
		Subject:  "Our spring sale",
		BodyText: "New arrivals are here",
	})

	assert.Empty(t, res.Transactions)
	assert.Equal(t, status.NeedsReview, res.Status)
}

func TestExtractMalformedSender(t *testing.T) {
	e := New(nil, Options{})
	res := e.Extract(RawEmail{ID: "x", Sender: "Bunnings", BodyText: "Receipt\nTotal: $5.00"})

	require.Len(t, res.Transactions, 1)
	tx := res.Transactions[0]
	assert.False(t, tx.MerchantResolved)
	assert.False(t, res.Resolution.Resolved)
	assert.NotEqual(t, "Merchant Name", tx.Merchant)
	assert.NotEqual(t, "Unknown Merchant", tx.Merchant)
	assert.InDelta(t, 0.5, tx.Confidence, 1e-9)
}

func TestExtractEmptyEmail(t *testing.T) {
	e := New(nil, Options{})
	assert.NotPanics(t, func() {
		res := e.Extract(RawEmail{})
		assert.Empty(t, res.Transactions)
	})
}

func TestExtractDeterministic(t *testing.T) {
	e := New(nil, Options{})
	email := RawEmail{ID: "msg-bunnings", Sender: "noreply@bunnings.com.au", Date: receivedAt, BodyText: bunningsReceipt}
	assert.Equal(t, e.Extract(email), e.Extract(email))
}

func TestExtractOwnerForwarded(t *testing.T) {
	e := New(nil, Options{Owner: Account{DisplayName: "Jane Citizen", Email: "jane@gmail.com"}})
	res := e.Extract(RawEmail{
		ID:       "fwd",
		Sender:   "Jane Citizen <jane@gmail.com>",
		Subject:  "Fwd: Bunnings - Your receipt",
		BodyText: "Total: $20.00",
	})

	require.Len(t, res.Transactions, 1)
	assert.Equal(t, "Bunnings", res.Transactions[0].Merchant)
	assert.Equal(t, CategoryHardware, res.Transactions[0].Category)
}

func TestExtractCustomMapping(t *testing.T) {
	mapping := DefaultMerchantMapping().Extend(MappingEntry{Pattern: "acmewidgets.com.au", Merchant: "Acme Widgets"})
	e := New(mapping, Options{})
	res := e.Extract(RawEmail{ID: "m", Sender: "noreply@acmewidgets.com.au", BodyText: "Total: $1.00"})

	require.Len(t, res.Transactions, 1)
	assert.Equal(t, "Acme Widgets", res.Transactions[0].Merchant)
	assert.Equal(t, SourceDomainMapping, res.Resolution.Source)
}

func TestExtractAllKeepsOrder(t *testing.T) {
	e := New(nil, Options{Workers: 3})
	emails := make([]RawEmail, 25)
	for i := range emails {
		emails[i] = RawEmail{
			ID:       fmt.Sprintf("msg-%02d", i),
			Sender:   "noreply@bunnings.com.au",
			BodyText: fmt.Sprintf("Total: $%d.00", i+1),
		}
	}

	results, err := e.ExtractAll(context.Background(), emails)
	require.NoError(t, err)
	require.Len(t, results, len(emails))
	for i, res := range results {
		assert.Equal(t, emails[i].ID, res.EmailID)
		require.Len(t, res.Transactions, 1)
		assert.Equal(t, fmt.Sprintf("%d.00", i+1), res.Transactions[0].Amount.StringFixed(2))
	}
}

func TestExtractAllCancelled(t *testing.T) {
	e := New(nil, Options{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.ExtractAll(ctx, []RawEmail{{ID: "a"}})
	assert.ErrorIs(t, err, context.Canceled)
}
