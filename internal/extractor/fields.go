package extractor

import (
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AttachmentMarker separates the email body from text recovered from
// attachments. Extractors scan across it, body text comes first.
const AttachmentMarker = "--- ATTACHMENT TEXT ---"

// CombineBody appends attachment text after the body, each part behind the
// attachment marker. Empty attachments are skipped.
func CombineBody(body string, attachments ...string) string {
	var b strings.Builder
	b.WriteString(strings.TrimRight(body, "\n"))
	for _, text := range attachments {
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		b.WriteString("\n\n")
		b.WriteString(AttachmentMarker)
		b.WriteString("\n")
		b.WriteString(text)
	}
	return b.String()
}

const amountPattern = `(\d[\d,]*\.\d{2})`

var (
	// labelled totals, most authoritative first
	totalLabels = []*regexp.Regexp{
		labelledAmount(`grand\s+total`),
		labelledAmount(`total`),
		labelledAmount(`amount\s+due`),
		labelledAmount(`amount\s+paid`),
		labelledAmount(`amount\s+charged`),
		labelledAmount(`balance\s+due`),
	}

	qualifierRejectPattern = regexp.MustCompile(`(?i)cash\s*back|rebate|saving|saved|discount|reward|points|eligible|refund`)
	qualifierTaxPattern    = regexp.MustCompile(`(?i)\b(gst|tax)\b`)
	qualifierInclPattern   = regexp.MustCompile(`(?i)\binc(?:l(?:udes|uding|usive)?)?\b\.?`)

	currencyAmountPattern = regexp.MustCompile(`\$\s*` + amountPattern)
	amountNoisePattern    = regexp.MustCompile(`(?i)cash\s*back|rebate|eligible|\bgst\b|discount|saved|saving|you save|reward`)

	gstPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bGST\b[:\s]+\$?\s*` + amountPattern),
		regexp.MustCompile(`(?i)\bincl(?:udes|uding|\.)?\s+\$\s*` + amountPattern + `\s+GST\b`),
	}
	// "Total inc GST $149.00" states a total, not the GST amount
	gstInclusiveLeadPattern = regexp.MustCompile(`(?i)\binc(?:l(?:udes|uding|usive)?)?\.?(?:\s+of)?[\s(]*$`)

	abnLabelledPattern = regexp.MustCompile(`(?i)\bA\.?B\.?N\.?\s*:?\s*(\d{2}\s?\d{3}\s?\d{3}\s?\d{3})\b`)
	abnPattern         = regexp.MustCompile(`\b(\d{2}\s?\d{3}\s?\d{3}\s?\d{3})\b`)

	invoicePatterns = []*regexp.Regexp{
		invoiceLabel(`(?:tax\s+)?invoice`),
		invoiceLabel(`order`),
		invoiceLabel(`receipt`),
		invoiceLabel(`reference|ref`),
	}

	currencyCodePattern = regexp.MustCompile(`\b(AUD|USD|NZD|EUR|GBP)\b`)
)

func labelledAmount(label string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)\b(?:` + label + `)\b([^\n$\d]{0,30}?)\$?\s*` + amountPattern)
}

func invoiceLabel(label string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)\b(?:` + label + `)\b\s*(?:number|num|no\.?|id|#)?\s*[:#]?\s*([A-Za-z0-9][A-Za-z0-9\-/]{2,})`)
}

// ParseAmount parses a currency-major amount such as "1,599.74"
func ParseAmount(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), "$"))
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// ExtractLabelledTotal returns the value of the most authoritative total
// label. When a label repeats, the last occurrence is the final total.
func ExtractLabelledTotal(text string) (decimal.Decimal, bool) {
	for _, re := range totalLabels {
		var (
			found decimal.Decimal
			ok    bool
		)
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			if rejectQualifier(m[1]) {
				continue
			}
			if d, parsed := ParseAmount(m[2]); parsed {
				found, ok = d, true
			}
		}
		if ok {
			return found, true
		}
	}
	return decimal.Zero, false
}

func rejectQualifier(q string) bool {
	if qualifierRejectPattern.MatchString(q) {
		return true
	}
	// "Total (incl. GST)" is still the total, "Total GST" is not
	return qualifierTaxPattern.MatchString(q) && !qualifierInclPattern.MatchString(q)
}

// ExtractAmount finds the transaction amount. Labelled totals win, then the
// largest dollar amount that is not sitting next to a cashback, rebate, GST
// or discount word on the same line.
func ExtractAmount(text string) (decimal.Decimal, bool) {
	if d, ok := ExtractLabelledTotal(text); ok {
		return d, true
	}

	var (
		best decimal.Decimal
		ok   bool
	)
	for _, loc := range currencyAmountPattern.FindAllStringSubmatchIndex(text, -1) {
		if amountNoisePattern.MatchString(sameLineWindow(text, loc[0], loc[1], 25)) {
			continue
		}
		d, parsed := ParseAmount(text[loc[2]:loc[3]])
		if !parsed {
			continue
		}
		if !ok || d.GreaterThan(best) {
			best, ok = d, true
		}
	}
	return best, ok
}

// sameLineWindow returns up to width bytes either side of [start,end) without
// crossing a line break.
func sameLineWindow(text string, start, end, width int) string {
	from := start - width
	if from < 0 {
		from = 0
	}
	if nl := strings.LastIndex(text[from:start], "\n"); nl >= 0 {
		from += nl + 1
	}
	to := end + width
	if to > len(text) {
		to = len(text)
	}
	if nl := strings.Index(text[end:to], "\n"); nl >= 0 {
		to = end + nl
	}
	return text[from:to]
}

// ExtractGST returns the GST amount if the text states one. A GST label
// that only qualifies a total ("Total inc GST $149.00") is skipped.
func ExtractGST(text string) (decimal.Decimal, bool) {
	for _, re := range gstPatterns {
		for _, loc := range re.FindAllStringSubmatchIndex(text, -1) {
			lineStart := strings.LastIndex(text[:loc[0]], "\n") + 1
			if gstInclusiveLeadPattern.MatchString(text[lineStart:loc[0]]) {
				continue
			}
			if d, ok := ParseAmount(text[loc[2]:loc[3]]); ok {
				return d, true
			}
		}
	}
	return decimal.Zero, false
}

// ExtractABN returns an Australian Business Number formatted as
// "NN NNN NNN NNN". A labelled ABN is taken as written; a bare 11 digit run
// is only accepted when its checksum is valid.
func ExtractABN(text string) (string, bool) {
	if m := abnLabelledPattern.FindStringSubmatch(text); m != nil {
		return formatABN(m[1]), true
	}
	for _, m := range abnPattern.FindAllStringSubmatch(text, -1) {
		if ValidABN(m[1]) {
			return formatABN(m[1]), true
		}
	}
	return "", false
}

var abnWeights = [11]int{10, 1, 3, 5, 7, 9, 11, 13, 15, 17, 19}

// ValidABN checks the ABN modulus 89 checksum
func ValidABN(s string) bool {
	digits := onlyDigits(s)
	if len(digits) != 11 {
		return false
	}
	sum := 0
	for i, c := range digits {
		d := int(c - '0')
		if i == 0 {
			d--
		}
		sum += d * abnWeights[i]
	}
	return sum%89 == 0
}

func formatABN(s string) string {
	d := onlyDigits(s)
	if len(d) != 11 {
		return s
	}
	return d[:2] + " " + d[2:5] + " " + d[5:8] + " " + d[8:]
}

func onlyDigits(s string) string {
	var b strings.Builder
	for _, c := range s {
		if c >= '0' && c <= '9' {
			b.WriteRune(c)
		}
	}
	return b.String()
}

// invoicePlaceholders are template literals that leak into real emails
var invoicePlaceholders = map[string]bool{
	"INV123": true, "INV-123": true, "INV0001": true, "INVOICE": true,
	"ORDER": true, "RECEIPT": true, "REFERENCE": true, "NUMBER": true,
	"N/A": true, "NA": true, "TBC": true, "TBA": true, "XXXX": true,
	"XXXXXX": true, "ORDER123": true, "REF123": true,
}

// IsPlaceholderInvoice reports whether v is a known template value
func IsPlaceholderInvoice(v string) bool {
	v = strings.ToUpper(strings.TrimSpace(v))
	return v == "" || invoicePlaceholders[v]
}

// ExtractInvoiceNumber looks for an invoice, order, receipt or reference
// number, in that label order. Values must contain a digit.
func ExtractInvoiceNumber(text string) (string, bool) {
	for _, re := range invoicePatterns {
		// a rejected value may itself be the next label ("Tax Invoice\nInvoice No: 12")
		for start := 0; start < len(text); {
			loc := re.FindStringSubmatchIndex(text[start:])
			if loc == nil {
				break
			}
			value := strings.TrimRight(text[start+loc[2]:start+loc[3]], "-/")
			if strings.ContainsAny(value, "0123456789") && !IsPlaceholderInvoice(value) {
				return value, true
			}
			start += loc[0] + 1
		}
	}
	return "", false
}

var invoiceNamespace = uuid.MustParse("6f1c8f0e-5b3a-4c6e-9a51-2f3d8e7b1c40")

// DeriveInvoiceNumber builds a stable stand-in from the email's own identity
// when no usable invoice number was found.
func DeriveInvoiceNumber(emailID, contentHash, subject, sender string) string {
	if id := upperAlnum(emailID, 12); id != "" {
		return "EMAIL-" + id
	}
	if h := upperAlnum(contentHash, 12); h != "" {
		return "EMAIL-" + h
	}
	u := uuid.NewSHA1(invoiceNamespace, []byte(subject+"\x00"+sender))
	return "EMAIL-" + strings.ToUpper(u.String()[:8])
}

func upperAlnum(s string, max int) string {
	var b strings.Builder
	for _, c := range strings.ToUpper(s) {
		if (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') {
			b.WriteRune(c)
			if b.Len() == max {
				break
			}
		}
	}
	return b.String()
}

type paymentMethod struct {
	name    string
	pattern *regexp.Regexp
}

var paymentMethods = []paymentMethod{
	{"Visa", regexp.MustCompile(`(?i)\bvisa\b`)},
	{"Mastercard", regexp.MustCompile(`(?i)\bmaster\s?card\b`)},
	{"Amex", regexp.MustCompile(`(?i)\b(?:amex|american\s+express)\b`)},
	{"PayPal", regexp.MustCompile(`(?i)\bpay\s?pal\b`)},
	{"Direct Debit", regexp.MustCompile(`(?i)\bdirect\s+debit\b`)},
	{"BPAY", regexp.MustCompile(`(?i)\bb\s?pay\b`)},
	{"Afterpay", regexp.MustCompile(`(?i)\bafter\s?pay\b`)},
	{"Zip", regexp.MustCompile(`(?i)\bzip(?:\s?pay|\s?money)?\b(\s+code)?`)},
	{"Apple Pay", regexp.MustCompile(`(?i)\bapple\s+pay\b`)},
	{"Google Pay", regexp.MustCompile(`(?i)\b(?:google\s+pay|gpay)\b`)},
}

// ExtractPaymentMethod returns the payment method mentioned first in text
func ExtractPaymentMethod(text string) (string, bool) {
	best, bestAt := "", -1
	for _, pm := range paymentMethods {
		for _, m := range pm.pattern.FindAllStringSubmatchIndex(text, -1) {
			// "zip code" is an address, not a payment
			if len(m) >= 4 && m[2] >= 0 {
				continue
			}
			if bestAt < 0 || m[0] < bestAt {
				best, bestAt = pm.name, m[0]
			}
			break
		}
	}
	return best, bestAt >= 0
}

// DetectCurrency returns the first ISO code or prefixed dollar sign found,
// otherwise fallback.
func DetectCurrency(text, fallback string) string {
	if m := currencyCodePattern.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	switch {
	case strings.Contains(text, "NZ$"):
		return "NZD"
	case strings.Contains(text, "US$"):
		return "USD"
	case strings.Contains(text, "A$"), strings.Contains(text, "AU$"):
		return "AUD"
	case strings.Contains(text, "€"):
		return "EUR"
	case strings.Contains(text, "£"):
		return "GBP"
	}
	if fallback == "" {
		return "AUD"
	}
	return fallback
}
