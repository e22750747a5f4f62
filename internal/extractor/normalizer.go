package extractor

import (
	"regexp"
	"strings"
)

// Normalizer collapses the many spellings of a merchant into one canonical
// name. It is safe for concurrent use once built.
type Normalizer struct {
	overrides map[string]string
	protected map[string]bool
}

var (
	// legal and corporate noise, stripped repeatedly from the end
	corporateSuffixes = []string{
		" pty. ltd.",
		" pty ltd.",
		" pty ltd",
		" pty limited",
		" pty",
		" limited",
		" ltd.",
		" ltd",
		" inc.",
		" inc",
		" group holdings",
		" holdings",
		" group",
		" payments",
		" warehouse",
		" (au)",
		" australia pty",
	}

	tldFragments = []string{
		".com.au",
		".net.au",
		".org.au",
		".co.nz",
		".com",
		".net",
		".co",
		".io",
		".au",
	}

	governmentNamePattern = regexp.MustCompile(`(?i)^(city|shire|town|municipality|council|department|office|transport|services) (of|for) `)
)

// NewNormalizer returns a normalizer with the built-in brand tables
func NewNormalizer() *Normalizer {
	n := &Normalizer{
		overrides: make(map[string]string),
		protected: make(map[string]bool),
	}
	for canonical, spellings := range canonicalBrands {
		n.overrides[strings.ToLower(canonical)] = canonical
		for _, s := range spellings {
			n.overrides[strings.ToLower(s)] = canonical
		}
	}
	for _, name := range multiWordMerchants {
		n.protected[strings.ToLower(name)] = true
	}
	// canonical names are fixpoints, so multi-word canonicals are protected too
	for canonical := range canonicalBrands {
		n.protected[strings.ToLower(canonical)] = true
	}
	return n
}

// Normalize returns the canonical merchant name for raw. Normalizing an
// already normalized name returns it unchanged.
func (n *Normalizer) Normalize(raw string) string {
	name := n.normalizeOnce(raw)
	// every pass either shortens the name or lands on a canonical fixpoint
	for i := 0; i < 8; i++ {
		next := n.normalizeOnce(name)
		if next == name {
			break
		}
		name = next
	}
	return name
}

func (n *Normalizer) normalizeOnce(raw string) string {
	name := strings.Join(strings.Fields(raw), " ")
	name = strings.Trim(name, `"'`)
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}

	if canonical, ok := n.override(name); ok {
		return canonical
	}

	name = n.stripCorporateNoise(name)
	if canonical, ok := n.override(name); ok {
		return canonical
	}

	if n.isProtected(name) {
		return name
	}

	words := strings.Fields(name)
	if len(words) > 2 {
		name = words[0]
		if canonical, ok := n.override(name); ok {
			return canonical
		}
	}
	return name
}

func (n *Normalizer) override(name string) (string, bool) {
	canonical, ok := n.overrides[strings.ToLower(name)]
	return canonical, ok
}

// isKnown stops suffix stripping from eating into a brand name such as
// Chemist Warehouse.
func (n *Normalizer) isKnown(name string) bool {
	if _, ok := n.override(name); ok {
		return true
	}
	return n.protected[strings.ToLower(name)]
}

func (n *Normalizer) isProtected(name string) bool {
	return n.protected[strings.ToLower(name)] || governmentNamePattern.MatchString(name)
}

// stripCorporateNoise removes suffixes until none is left or the name is a
// known brand. A name that would become empty is returned as it was.
func (n *Normalizer) stripCorporateNoise(name string) string {
	for {
		if n.isKnown(name) {
			return name
		}
		before := name
		lower := strings.ToLower(name)

		for _, tld := range tldFragments {
			if strings.HasSuffix(lower, tld) && len(lower) > len(tld) {
				name = name[:len(name)-len(tld)]
				lower = strings.ToLower(name)
				break
			}
		}
		for _, suffix := range corporateSuffixes {
			if strings.HasSuffix(lower, suffix) && len(lower) > len(suffix) {
				name = name[:len(name)-len(suffix)]
				break
			}
		}
		name = strings.TrimRight(strings.TrimSpace(name), ",-&")
		name = strings.TrimSpace(name)

		if name == before {
			return name
		}
		if name == "" {
			return before
		}
	}
}

// canonicalBrands lists every known spelling of a merchant, keyed by the
// canonical name. Keys must survive Normalize unchanged.
var canonicalBrands = map[string][]string{
	"Zip":               {"Zip Pay", "ZipPay", "Zip Money", "ZipMoney", "Zip Money Payments", "Zip Co", "Zip Co Limited"},
	"Bunnings":          {"Bunnings Warehouse", "Bunnings Group"},
	"Afterpay":          {"Afterpay Australia", "Afterpay AU"},
	"Spaceship":         {"Spaceship Invest", "SpaceshipInvest", "Spaceship Capital", "Spaceship Voyager"},
	"ShopBack":          {"Shop Back", "ShopBack Australia"},
	"PayPal":            {"PayPal Australia", "Paypal"},
	"JB Hi-Fi":          {"JB HiFi", "JBHiFi", "JB Hi Fi"},
	"Woolworths":        {"Woolworths Online", "Woolies", "Woolworths Supermarkets"},
	"Coles":             {"Coles Online", "Coles Supermarkets"},
	"Uber":              {"Uber Receipts", "Uber Trips", "Uber BV"},
	"Uber Eats":         {"UberEats", "Uber Eats Australia"},
	"Amazon":            {"Amazon AU", "Amazon Australia", "Amazon.com.au", "Amazon Marketplace"},
	"Chemist Warehouse": {"ChemistWarehouse"},
	"The Good Guys":     {"TheGoodGuys", "Good Guys"},
	"The Iconic":        {"TheIconic", "THE ICONIC"},
	"Transport for NSW": {"Transport NSW", "TfNSW", "Opal Transport NSW"},
	"Officeworks":       {"Office Works"},
	"DoorDash":          {"Door Dash", "Doordash"},
	"GitHub":            {"Github", "GitHub Inc"},
	"CommSec":           {"Commsec", "CommSec Pty"},
	"SelfWealth":        {"Selfwealth"},
	"Raiz":              {"Raiz Invest", "RaizInvest"},
	"Stake":             {"Hello Stake", "HelloStake"},
	"Origin Energy":     {"Origin"},
	"Harvey Norman":     {"HarveyNorman"},
	"Big W":             {"BigW"},
	"eBay":              {"Ebay", "eBay Australia"},
	"Mitre 10":          {"Mitre10"},
	"Total Tools":       {"TotalTools"},
	"Aussie Broadband":  {"AussieBroadband"},
	"Sydney Water":      {"SydneyWater"},
	"Virgin Australia":  {"VirginAustralia"},
	"Harris Farm":       {"Harris Farm Markets", "HarrisFarm"},
	"Red Energy":        {"RedEnergy"},
}

// multiWordMerchants are legitimate names with three or more words that
// must not be cut down to their first word.
var multiWordMerchants = []string{
	"The Good Guys",
	"Transport for NSW",
	"Australian Taxation Office",
	"Dan Murphy's Online",
	"Amazon Web Services",
	"Apple App Store",
	"Google Play Store",
	"Hungry Jack's Online",
	"NRMA Roadside Assistance",
}
