package extractor

import (
	"context"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"receipt-extractor-go/internal/status"
)

// Options configures an Extractor
type Options struct {
	Owner            Account
	DefaultCurrency  string
	SplitDigestItems bool
	Workers          int
}

// Extractor runs the full pipeline. Its tables are built once in New and
// never change, so one Extractor may be shared by any number of goroutines.
type Extractor struct {
	resolver    *Resolver
	normalizer  *Normalizer
	categorizer *Categorizer
	opts        Options
}

// New creates an extractor over mapping. A nil mapping uses the built-in
// table.
func New(mapping *MerchantMapping, opts Options) *Extractor {
	if opts.DefaultCurrency == "" {
		opts.DefaultCurrency = "AUD"
	}
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	normalizer := NewNormalizer()
	return &Extractor{
		resolver:    NewResolver(mapping, normalizer, opts.Owner),
		normalizer:  normalizer,
		categorizer: NewCategorizer(),
		opts:        opts,
	}
}

// Resolver exposes the merchant resolver used by the pipeline
func (e *Extractor) Resolver() *Resolver {
	return e.resolver
}

var transactionNamespace = uuid.MustParse("b7d2a3e4-1f0c-5d6e-8a9b-0c1d2e3f4a5b")

// Extract converts one email into zero or more transaction candidates. It
// never fails: fields that cannot be found are left empty.
func (e *Extractor) Extract(email RawEmail) Result {
	hash := email.ContentHash
	if hash == "" {
		hash = ContentHash(email.BodyText)
	}

	res := e.resolver.Resolve(email.Sender, email.Subject)
	result := Result{
		EmailID:     email.ID,
		ContentHash: hash,
		Resolution:  res,
		Status:      status.NeedsReview,
	}

	text := email.BodyText
	fullText := strings.TrimSpace(email.Subject + "\n" + text)

	items := ExtractLineItems(text)
	for i := range items {
		items[i].Merchant = e.normalizer.Normalize(items[i].Merchant)
	}

	total, labelled := ExtractLabelledTotal(text)
	amount, hasAmount := total, labelled
	if !hasAmount && len(items) > 0 {
		amount, hasAmount = SumItems(items), true
	}
	if !hasAmount {
		amount, hasAmount = ExtractAmount(text)
	}

	if !hasAmount && len(items) == 0 && !hasReceiptKeyword(fullText) {
		logrus.Debugf("No transaction found in email %s", email.ID)
		return result
	}

	reconciled := true
	if len(items) > 0 && labelled && !ReconcileItems(items, total) {
		reconciled = false
		logrus.WithFields(logrus.Fields{
			"email_id":  email.ID,
			"total":     total.StringFixed(2),
			"items_sum": SumItems(items).StringFixed(2),
		}).Warn("Line items do not add up to the stated total")
	}

	base := ExtractedTransaction{
		Merchant:         res.Name,
		MerchantResolved: res.Resolved,
		Amount:           amount,
		Currency:         DetectCurrency(text, e.opts.DefaultCurrency),
		Date:             email.Date,
		Category:         e.categorizer.InferCategory(res.Name, fullText),
		Items:            items,
		Reconciled:       reconciled,
		EmailSubject:     email.Subject,
		EmailSender:      email.Sender,
		SourceEmailID:    email.ID,
	}
	if gst, ok := ExtractGST(text); ok {
		base.GSTAmount = &gst
	}
	if abn, ok := ExtractABN(text); ok {
		base.ABN = &abn
	}
	if method, ok := ExtractPaymentMethod(text); ok {
		base.PaymentMethod = &method
	}
	if invoice, ok := ExtractInvoiceNumber(text); ok {
		base.InvoiceNumber = invoice
	} else {
		base.InvoiceNumber = DeriveInvoiceNumber(email.ID, hash, email.Subject, email.Sender)
		base.InvoiceNumberDerived = true
	}
	base.Confidence = scoreWithMismatch(scorePoints(res, amount, fullText), reconciled)

	if e.opts.SplitDigestItems && len(items) > 1 {
		result.Transactions = e.splitItems(base, items, hash, fullText)
	} else {
		base.ID = transactionID(email.ID, hash, 0)
		result.Transactions = []ExtractedTransaction{base}
	}

	logrus.Debugf("Extracted %d transaction(s) from email %s (merchant %q via %s)",
		len(result.Transactions), email.ID, res.Name, res.Source)
	return result
}

// splitItems turns each digest line item into its own candidate
func (e *Extractor) splitItems(base ExtractedTransaction, items []LineItem, hash, fullText string) []ExtractedTransaction {
	out := make([]ExtractedTransaction, 0, len(items))
	for i, item := range items {
		tx := base
		itemRes := Resolution{Name: item.Merchant, Source: SourceDisplayName, Resolved: item.Merchant != ""}
		tx.ID = transactionID(base.SourceEmailID, hash, i)
		tx.Merchant = item.Merchant
		tx.MerchantResolved = itemRes.Resolved
		tx.Amount = item.Amount
		tx.Items = []LineItem{item}
		tx.Category = e.categorizer.InferCategory(item.Merchant, item.CategoryLabel)
		tx.GSTAmount = nil
		tx.ABN = nil
		tx.Reconciled = true
		if item.TransactionID != "" && !IsPlaceholderInvoice(item.TransactionID) {
			tx.InvoiceNumber = item.TransactionID
			tx.InvoiceNumberDerived = false
		} else {
			tx.InvoiceNumber = base.InvoiceNumber + "-" + strconv.Itoa(i+1)
			tx.InvoiceNumberDerived = true
		}
		tx.Confidence = Score(itemRes, item.Amount, fullText)
		out = append(out, tx)
	}
	return out
}

func transactionID(emailID, hash string, index int) string {
	key := emailID
	if key == "" {
		key = hash
	}
	return uuid.NewSHA1(transactionNamespace, []byte(key+":"+strconv.Itoa(index))).String()
}

// ExtractAll runs Extract over emails with at most Options.Workers in
// flight. Results keep the input order.
func (e *Extractor) ExtractAll(ctx context.Context, emails []RawEmail) ([]Result, error) {
	results := make([]Result, len(emails))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.Workers)
	for i := range emails {
		i := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = e.Extract(emails[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// TotalAmount sums the candidate amounts of a result
func (r Result) TotalAmount() decimal.Decimal {
	sum := decimal.Zero
	for _, tx := range r.Transactions {
		sum = sum.Add(tx.Amount)
	}
	return sum
}
