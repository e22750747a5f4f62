package extractor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInferCategory(t *testing.T) {
	c := NewCategorizer()

	tests := []struct {
		name     string
		merchant string
		context  string
		want     Category
	}{
		{"bunnings", "Bunnings", "", CategoryHardware},
		{"officeworks", "Officeworks", "", CategoryOfficeSupplies},
		{"bnpl before retail", "Afterpay", "Your Kmart order, happy shopping", CategoryFinance},
		{"zip", "Zip", "", CategoryFinance},
		{"investment", "Spaceship", "", CategoryInvestment},
		{"uber", "Uber", "", CategoryTransport},
		{"uber eats override", "Uber Eats", "Your trip", CategoryDining},
		{"groceries", "Woolworths", "", CategoryGroceries},
		{"retail", "The Iconic", "", CategoryRetail},
		{"shopback", "ShopBack", "", CategoryRetail},
		{"utilities merchant", "AGL", "", CategoryUtilities},
		{"context only", "Acme", "Your electricity bill is ready", CategoryUtilities},
		{"context dining", "Acme", "Thanks for dining with us", CategoryDining},
		{"whole words only", "Agloo", "", CategoryOther},
		{"nothing", "Acme", "Hello", CategoryOther},
		{"empty", "", "", CategoryOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.InferCategory(tt.merchant, tt.context))
		})
	}
}

func TestCategoriesClosedSet(t *testing.T) {
	cats := Categories()
	assert.Len(t, cats, 10)
	assert.Equal(t, CategoryHardware, cats[0])
	assert.Equal(t, CategoryOther, cats[len(cats)-1])

	known := make(map[Category]bool)
	for _, cat := range cats {
		known[cat] = true
	}
	for _, rule := range categoryRules {
		assert.True(t, known[rule.category])
	}
	for _, cat := range merchantCategoryOverrides {
		assert.True(t, known[cat])
	}
}
