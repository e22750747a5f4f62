package extractor

import "strings"

// MappingEntry maps a sender domain (or registrable suffix) to a merchant
type MappingEntry struct {
	Pattern  string `json:"pattern" mapstructure:"pattern"`
	Merchant string `json:"merchant" mapstructure:"merchant"`
}

// MerchantMapping is an ordered, read-only domain table. The first entry
// whose pattern matches wins.
type MerchantMapping struct {
	entries []MappingEntry
}

// NewMerchantMapping builds a mapping from entries in priority order.
// Blank entries are dropped and patterns are lower-cased.
func NewMerchantMapping(entries ...MappingEntry) *MerchantMapping {
	m := &MerchantMapping{entries: make([]MappingEntry, 0, len(entries))}
	for _, e := range entries {
		pattern := strings.Trim(strings.ToLower(strings.TrimSpace(e.Pattern)), ".")
		merchant := strings.TrimSpace(e.Merchant)
		if pattern == "" || merchant == "" {
			continue
		}
		m.entries = append(m.entries, MappingEntry{Pattern: pattern, Merchant: merchant})
	}
	return m
}

// Extend returns a new mapping with extra entries placed ahead of the
// existing ones, so operator-supplied rules override the built-in table.
func (m *MerchantMapping) Extend(entries ...MappingEntry) *MerchantMapping {
	combined := make([]MappingEntry, 0, len(entries)+m.Len())
	combined = append(combined, entries...)
	if m != nil {
		combined = append(combined, m.entries...)
	}
	return NewMerchantMapping(combined...)
}

// Lookup returns the merchant for a sender domain
func (m *MerchantMapping) Lookup(domain string) (string, bool) {
	if m == nil {
		return "", false
	}
	domain = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(domain)), ".")
	if domain == "" {
		return "", false
	}
	for _, e := range m.entries {
		if MatchesDomain(domain, e.Pattern) {
			return e.Merchant, true
		}
	}
	return "", false
}

// Entries returns a copy of the table in priority order
func (m *MerchantMapping) Entries() []MappingEntry {
	if m == nil {
		return nil
	}
	out := make([]MappingEntry, len(m.entries))
	copy(out, m.entries)
	return out
}

// Len returns the number of entries
func (m *MerchantMapping) Len() int {
	if m == nil {
		return 0
	}
	return len(m.entries)
}

// MatchesDomain reports whether domain equals key or is a subdomain of it.
// This is the only domain comparison used by the resolver: substring
// containment in either direction is never a match.
func MatchesDomain(domain, key string) bool {
	if domain == "" || key == "" {
		return false
	}
	return domain == key || strings.HasSuffix(domain, "."+key)
}

// DefaultMerchantMapping is the built-in table of known Australian senders
func DefaultMerchantMapping() *MerchantMapping {
	return NewMerchantMapping(defaultMappingEntries...)
}

var defaultMappingEntries = []MappingEntry{
	// hardware and office
	{Pattern: "bunnings.com.au", Merchant: "Bunnings"},
	{Pattern: "mitre10.com.au", Merchant: "Mitre 10"},
	{Pattern: "totaltools.com.au", Merchant: "Total Tools"},
	{Pattern: "officeworks.com.au", Merchant: "Officeworks"},

	// BNPL and payments
	{Pattern: "zip.co", Merchant: "Zip"},
	{Pattern: "zipmoney.com.au", Merchant: "Zip"},
	{Pattern: "zip.com.au", Merchant: "Zip"},
	{Pattern: "zippay.com.au", Merchant: "Zip"},
	{Pattern: "afterpay.com", Merchant: "Afterpay"},
	{Pattern: "afterpay.com.au", Merchant: "Afterpay"},
	{Pattern: "humm.com.au", Merchant: "Humm"},
	{Pattern: "klarna.com", Merchant: "Klarna"},
	{Pattern: "paypal.com", Merchant: "PayPal"},
	{Pattern: "paypal.com.au", Merchant: "PayPal"},
	{Pattern: "shopback.com.au", Merchant: "ShopBack"},
	{Pattern: "shopback.com", Merchant: "ShopBack"},

	// investing
	{Pattern: "spaceship.com.au", Merchant: "Spaceship"},
	{Pattern: "spaceshipinvest.com.au", Merchant: "Spaceship"},
	{Pattern: "stake.com.au", Merchant: "Stake"},
	{Pattern: "hellostake.com", Merchant: "Stake"},
	{Pattern: "commsec.com.au", Merchant: "CommSec"},
	{Pattern: "selfwealth.com.au", Merchant: "SelfWealth"},
	{Pattern: "raizinvest.com.au", Merchant: "Raiz"},
	{Pattern: "pearler.com", Merchant: "Pearler"},
	{Pattern: "vanguard.com.au", Merchant: "Vanguard"},

	// transport
	{Pattern: "ubereats.com", Merchant: "Uber Eats"},
	{Pattern: "uber.com", Merchant: "Uber"},
	{Pattern: "didiglobal.com", Merchant: "DiDi"},
	{Pattern: "transportnsw.info", Merchant: "Transport for NSW"},
	{Pattern: "opal.com.au", Merchant: "Opal"},
	{Pattern: "linkt.com.au", Merchant: "Linkt"},
	{Pattern: "qantas.com.au", Merchant: "Qantas"},
	{Pattern: "qantas.com", Merchant: "Qantas"},
	{Pattern: "jetstar.com", Merchant: "Jetstar"},
	{Pattern: "virginaustralia.com", Merchant: "Virgin Australia"},

	// groceries
	{Pattern: "woolworths.com.au", Merchant: "Woolworths"},
	{Pattern: "coles.com.au", Merchant: "Coles"},
	{Pattern: "aldi.com.au", Merchant: "Aldi"},
	{Pattern: "harrisfarm.com.au", Merchant: "Harris Farm"},

	// retail
	{Pattern: "amazon.com.au", Merchant: "Amazon"},
	{Pattern: "amazon.com", Merchant: "Amazon"},
	{Pattern: "ebay.com.au", Merchant: "eBay"},
	{Pattern: "ebay.com", Merchant: "eBay"},
	{Pattern: "kmart.com.au", Merchant: "Kmart"},
	{Pattern: "target.com.au", Merchant: "Target"},
	{Pattern: "bigw.com.au", Merchant: "Big W"},
	{Pattern: "jbhifi.com.au", Merchant: "JB Hi-Fi"},
	{Pattern: "thegoodguys.com.au", Merchant: "The Good Guys"},
	{Pattern: "harveynorman.com.au", Merchant: "Harvey Norman"},
	{Pattern: "theiconic.com.au", Merchant: "The Iconic"},
	{Pattern: "chemistwarehouse.com.au", Merchant: "Chemist Warehouse"},
	{Pattern: "apple.com", Merchant: "Apple"},
	{Pattern: "ikea.com", Merchant: "IKEA"},

	// dining
	{Pattern: "doordash.com", Merchant: "DoorDash"},
	{Pattern: "menulog.com.au", Merchant: "Menulog"},
	{Pattern: "deliveroo.com.au", Merchant: "Deliveroo"},

	// utilities
	{Pattern: "agl.com.au", Merchant: "AGL"},
	{Pattern: "originenergy.com.au", Merchant: "Origin Energy"},
	{Pattern: "energyaustralia.com.au", Merchant: "EnergyAustralia"},
	{Pattern: "redenergy.com.au", Merchant: "Red Energy"},
	{Pattern: "telstra.com", Merchant: "Telstra"},
	{Pattern: "telstra.com.au", Merchant: "Telstra"},
	{Pattern: "optus.com.au", Merchant: "Optus"},
	{Pattern: "aussiebroadband.com.au", Merchant: "Aussie Broadband"},
	{Pattern: "sydneywater.com.au", Merchant: "Sydney Water"},

	// software
	{Pattern: "github.com", Merchant: "GitHub"},
	{Pattern: "google.com", Merchant: "Google"},
	{Pattern: "microsoft.com", Merchant: "Microsoft"},
}
