package extractor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitSender(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   SenderParts
	}{
		{"display name and address", `"Bunnings Warehouse" <noreply@bunnings.com.au>`, SenderParts{"Bunnings Warehouse", "noreply", "bunnings.com.au"}},
		{"bare address", "noreply@bunnings.com.au", SenderParts{"", "noreply", "bunnings.com.au"}},
		{"domain lower-cased", "Jane <jane@Example.COM>", SenderParts{"Jane", "jane", "example.com"}},
		{"angle brackets only", "<noreply@uber.com>", SenderParts{"", "noreply", "uber.com"}},
		{"unclosed bracket", "Uber <noreply@uber.com", SenderParts{"Uber", "noreply", "uber.com"}},
		{"split on last at", "a@b@c.com", SenderParts{"", "a@b", "c.com"}},
		{"at sign in display name", `"weird@name" <a@b.com>`, SenderParts{"weird@name", "a", "b.com"}},
		{"trailing dot on domain", "noreply@uber.com.", SenderParts{"", "noreply", "uber.com"}},
		{"no at sign", "Bunnings", SenderParts{}},
		{"empty", "", SenderParts{}},
		{"empty brackets", `"a@b" <>`, SenderParts{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SplitSender(tt.header)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSenderPartsHasAddress(t *testing.T) {
	assert.False(t, SplitSender("Bunnings").HasAddress())
	assert.True(t, SplitSender("noreply@bunnings.com.au").HasAddress())
}
