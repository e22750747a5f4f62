package extractor

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	digestBlockStart    = regexp.MustCompile(`From\s+`)
	digestCashback      = regexp.MustCompile(`(?i)\$\s*` + amountPattern + `\s+Eligible\s+Purchase`)
	digestPurchase      = regexp.MustCompile(`(?i)\bAmount\b\s*:?\s*\$\s*` + amountPattern)
	digestTransactionID = regexp.MustCompile(`\bID\b\s*:?\s*([A-Za-z0-9-]+)`)
	digestMerchantEnd   = regexp.MustCompile(`\$|\n|\s{2,}`)
)

// ExtractLineItems parses cashback digest blocks of the form
//
//	From <Merchant>
//	$<cashback> Eligible Purchase
//	Amount $<purchase>
//	<Category>
//	ID: <transaction id>
//
// Any run of whitespace may separate the parts. The purchase amount is the
// item value, the cashback is kept separately.
func ExtractLineItems(text string) []LineItem {
	starts := digestBlockStart.FindAllStringIndex(text, -1)
	if len(starts) == 0 {
		return nil
	}

	var items []LineItem
	for i, loc := range starts {
		end := len(text)
		if i+1 < len(starts) {
			end = starts[i+1][0]
		}
		block := text[loc[1]:end]
		if !strings.Contains(strings.ToLower(block), "eligible purchase") {
			continue
		}
		if item, ok := parseDigestBlock(block); ok {
			items = append(items, item)
		}
	}
	return items
}

func parseDigestBlock(block string) (LineItem, bool) {
	merchant := block
	if loc := digestMerchantEnd.FindStringIndex(block); loc != nil {
		merchant = block[:loc[0]]
	}
	merchant = strings.TrimSpace(merchant)
	if merchant == "" {
		return LineItem{}, false
	}

	item := LineItem{Description: merchant, Merchant: merchant}

	searchFrom := 0
	if m := digestCashback.FindStringSubmatchIndex(block); m != nil {
		if d, ok := ParseAmount(block[m[2]:m[3]]); ok {
			item.Cashback = d
		}
		searchFrom = m[1]
	}

	p := digestPurchase.FindStringSubmatchIndex(block[searchFrom:])
	if p == nil {
		return LineItem{}, false
	}
	amount, ok := ParseAmount(block[searchFrom+p[2] : searchFrom+p[3]])
	if !ok {
		return LineItem{}, false
	}
	item.Amount = amount

	rest := block[searchFrom+p[1]:]
	if id := digestTransactionID.FindStringSubmatchIndex(rest); id != nil {
		item.TransactionID = rest[id[2]:id[3]]
		item.CategoryLabel = strings.Join(strings.Fields(rest[:id[0]]), " ")
	} else {
		item.CategoryLabel = strings.Join(strings.Fields(firstLine(rest)), " ")
	}
	return item, true
}

func firstLine(s string) string {
	s = strings.TrimLeft(s, " \t\r\n")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

// SumItems adds up the purchase amounts
func SumItems(items []LineItem) decimal.Decimal {
	sum := decimal.Zero
	for _, it := range items {
		sum = sum.Add(it.Amount)
	}
	return sum
}

// ReconcileItems reports whether the items add up to the stated total
func ReconcileItems(items []LineItem, total decimal.Decimal) bool {
	return SumItems(items).Equal(total)
}
