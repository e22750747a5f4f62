package extractor

import (
	"regexp"

	"github.com/shopspring/decimal"
)

var receiptKeywordPattern = regexp.MustCompile(`(?i)\b(?:tax\s+invoice|invoice|receipt|order\s+confirmation)`)

// score weights in tenths
const (
	merchantPoints  = 3
	amountPoints    = 3
	keywordPoints   = 2
	taxIDPoints     = 2
	mismatchPenalty = 2
	maxPoints       = 10
)

// Score rates how many expected fields were populated. It is a review
// priority, not a probability.
func Score(res Resolution, amount decimal.Decimal, rawText string) float64 {
	return float64(scorePoints(res, amount, rawText)) / maxPoints
}

func scorePoints(res Resolution, amount decimal.Decimal, rawText string) int {
	points := 0
	if res.Resolved {
		points += merchantPoints
	}
	if amount.IsPositive() {
		points += amountPoints
	}
	if hasReceiptKeyword(rawText) {
		points += keywordPoints
	}
	if _, ok := ExtractABN(rawText); ok {
		points += taxIDPoints
	} else if _, ok := ExtractGST(rawText); ok {
		points += taxIDPoints
	}
	if points > maxPoints {
		points = maxPoints
	}
	return points
}

// scoreWithMismatch applies the line item reconciliation penalty
func scoreWithMismatch(points int, reconciled bool) float64 {
	if !reconciled {
		points -= mismatchPenalty
		if points < 0 {
			points = 0
		}
	}
	return float64(points) / maxPoints
}

func hasReceiptKeyword(text string) bool {
	return receiptKeywordPattern.MatchString(text)
}
