package extractor

import (
	"regexp"
	"strings"
)

// Category is one of the closed set of spending categories
type Category string

const (
	CategoryHardware       Category = "Hardware"
	CategoryOfficeSupplies Category = "Office Supplies"
	CategoryFinance        Category = "Finance"
	CategoryInvestment     Category = "Investment"
	CategoryTransport      Category = "Transport"
	CategoryGroceries      Category = "Groceries"
	CategoryRetail         Category = "Retail"
	CategoryDining         Category = "Dining"
	CategoryUtilities      Category = "Utilities"
	CategoryOther          Category = "Other"
)

// Categories returns every category in inference order
func Categories() []Category {
	return []Category{
		CategoryHardware,
		CategoryOfficeSupplies,
		CategoryFinance,
		CategoryInvestment,
		CategoryTransport,
		CategoryGroceries,
		CategoryRetail,
		CategoryDining,
		CategoryUtilities,
		CategoryOther,
	}
}

type categoryRule struct {
	category Category
	merchant []string
	context  []string
}

// categoryRules is checked top to bottom. Specific categories come before
// generic ones: a BNPL provider is Finance even when it paid for retail goods.
var categoryRules = []categoryRule{
	{
		category: CategoryHardware,
		merchant: []string{"bunnings", "mitre 10", "total tools", "sydney tools", "hardware"},
		context:  []string{"hardware", "power tools", "timber", "paint", "garden supplies"},
	},
	{
		category: CategoryOfficeSupplies,
		merchant: []string{"officeworks", "office supplies"},
		context:  []string{"stationery", "office supplies", "printer", "toner", "ink cartridge"},
	},
	{
		category: CategoryFinance,
		merchant: []string{"afterpay", "zip", "paypal", "klarna", "humm", "latitude", "bank", "amex"},
		context:  []string{"instalment", "installment", "repayment", "buy now pay later", "loan", "credit card statement", "interest charged"},
	},
	{
		category: CategoryInvestment,
		merchant: []string{"spaceship", "stake", "commsec", "selfwealth", "raiz", "pearler", "vanguard"},
		context:  []string{"etf", "shares", "brokerage", "dividend", "portfolio", "investment", "trade confirmation"},
	},
	{
		category: CategoryTransport,
		merchant: []string{"uber", "didi", "transport for nsw", "opal", "linkt", "qantas", "jetstar", "virgin australia", "13cabs"},
		context:  []string{"trip", "ride", "fare", "toll", "flight", "boarding pass", "parking", "fuel"},
	},
	{
		category: CategoryGroceries,
		merchant: []string{"woolworths", "coles", "aldi", "iga", "harris farm"},
		context:  []string{"groceries", "grocery", "supermarket"},
	},
	{
		category: CategoryRetail,
		merchant: []string{"amazon", "ebay", "kmart", "target", "big w", "jb hi-fi", "the good guys", "harvey norman", "the iconic", "chemist warehouse", "apple", "ikea", "shopback"},
		context:  []string{"shopping", "fashion", "clothing", "electronics", "online store"},
	},
	{
		category: CategoryDining,
		merchant: []string{"uber eats", "doordash", "menulog", "deliveroo", "mcdonald's", "cafe", "restaurant"},
		context:  []string{"restaurant", "cafe", "coffee", "takeaway", "dining", "food delivery", "pizza"},
	},
	{
		category: CategoryUtilities,
		merchant: []string{"agl", "origin energy", "energyaustralia", "red energy", "telstra", "optus", "aussie broadband", "sydney water", "council"},
		context:  []string{"electricity", "gas bill", "water bill", "broadband", "internet", "mobile plan", "council rates", "utility"},
	},
}

// merchantCategoryOverrides pin canonical merchants whose names would
// otherwise hit an earlier, wrong keyword.
var merchantCategoryOverrides = map[string]Category{
	"uber eats": CategoryDining,
	"doordash":  CategoryDining,
	"menulog":   CategoryDining,
	"deliveroo": CategoryDining,
	"shopback":  CategoryRetail,
}

type compiledCategoryRule struct {
	category Category
	merchant *regexp.Regexp
	context  *regexp.Regexp
}

// Categorizer infers a category from the merchant and surrounding text.
// It holds only compiled, read-only tables.
type Categorizer struct {
	rules []compiledCategoryRule
}

// NewCategorizer compiles the keyword tables
func NewCategorizer() *Categorizer {
	c := &Categorizer{rules: make([]compiledCategoryRule, 0, len(categoryRules))}
	for _, r := range categoryRules {
		c.rules = append(c.rules, compiledCategoryRule{
			category: r.category,
			merchant: wholeWords(r.merchant),
			context:  wholeWords(r.context),
		})
	}
	return c
}

func wholeWords(words []string) *regexp.Regexp {
	if len(words) == 0 {
		return nil
	}
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = regexp.QuoteMeta(w)
	}
	return regexp.MustCompile(`(?i)\b(?:` + strings.Join(quoted, "|") + `)\b`)
}

// InferCategory returns the first matching category, Other if none match
func (c *Categorizer) InferCategory(merchant, subjectAndBody string) Category {
	key := strings.ToLower(strings.TrimSpace(merchant))
	if cat, ok := merchantCategoryOverrides[key]; ok {
		return cat
	}
	if key != "" {
		for _, r := range c.rules {
			if r.merchant != nil && r.merchant.MatchString(merchant) {
				return r.category
			}
		}
	}
	if strings.TrimSpace(subjectAndBody) != "" {
		for _, r := range c.rules {
			if r.context != nil && r.context.MatchString(subjectAndBody) {
				return r.category
			}
		}
	}
	return CategoryOther
}
