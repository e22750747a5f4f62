package extractor

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ResolutionSource records which rule produced a merchant name
type ResolutionSource string

const (
	SourceDisplayName      ResolutionSource = "display_name"
	SourceUsername         ResolutionSource = "username"
	SourceDomainMapping    ResolutionSource = "domain_mapping"
	SourceGovernment       ResolutionSource = "government"
	SourceForwardedSubject ResolutionSource = "forwarded_subject"
	SourceDomainFallback   ResolutionSource = "domain_fallback"
	SourceUnresolved       ResolutionSource = "unresolved"
)

// Resolution is the resolver's answer. Resolved is false when the name is
// only a best-effort label and should not be trusted as a real merchant.
type Resolution struct {
	Name     string           `json:"name"`
	Source   ResolutionSource `json:"source"`
	Resolved bool             `json:"resolved"`
}

// Account identifies the mailbox owner so forwarded self-sent mail is not
// mistaken for a merchant.
type Account struct {
	DisplayName string   `mapstructure:"display_name"`
	Email       string   `mapstructure:"email"`
	OtherNames  []string `mapstructure:"other_names"`
}

// Resolver maps sender parts to a canonical merchant name
type Resolver struct {
	mapping    *MerchantMapping
	normalizer *Normalizer
	owner      Account
}

// NewResolver creates a resolver. A nil mapping means the built-in table.
func NewResolver(mapping *MerchantMapping, normalizer *Normalizer, owner Account) *Resolver {
	if mapping == nil {
		mapping = DefaultMerchantMapping()
	}
	if normalizer == nil {
		normalizer = NewNormalizer()
	}
	return &Resolver{mapping: mapping, normalizer: normalizer, owner: owner}
}

// Resolve resolves a raw From header
func (r *Resolver) Resolve(sender, subject string) Resolution {
	parts := SplitSender(sender)
	if !parts.HasAddress() {
		return r.unresolved(sender)
	}
	return r.ResolveMerchant(parts.DisplayName, parts.Username, parts.Domain, subject)
}

// ResolveMerchant applies the resolution rules in priority order. Later
// rules exist to correct noisy upstream data, so the order must not change.
func (r *Resolver) ResolveMerchant(displayName, username, domain, subject string) Resolution {
	domain = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(domain)), ".")

	if name := r.usableDisplayName(displayName); name != "" {
		return r.resolved(name, SourceDisplayName)
	}

	if name := r.usableUsername(username, domain); name != "" {
		return r.resolved(name, SourceUsername)
	}

	if merchant, ok := r.mapping.Lookup(domain); ok {
		return r.resolved(merchant, SourceDomainMapping)
	}

	if name := governmentEntity(domain); name != "" {
		return r.resolved(name, SourceGovernment)
	}

	if isWebmailDomain(domain) {
		if name := forwardedSubjectMerchant(subject); name != "" {
			if normalized := r.normalizer.Normalize(name); normalized != "" {
				return Resolution{Name: normalized, Source: SourceForwardedSubject, Resolved: true}
			}
		}
	}

	return r.domainFallback(domain, displayName, username)
}

func (r *Resolver) resolved(name string, source ResolutionSource) Resolution {
	return Resolution{Name: r.normalizer.Normalize(name), Source: source, Resolved: true}
}

// unresolved derives a readable label from whatever text the header had
func (r *Resolver) unresolved(raw string) Resolution {
	label := r.normalizer.Normalize(strings.Trim(strings.TrimSpace(raw), "<>\"'"))
	if label == "" {
		label = unresolvedLabel
	}
	return Resolution{Name: label, Source: SourceUnresolved, Resolved: false}
}

// unresolvedLabel is shown for a completely blank sender. Resolution.Resolved
// is what marks it, the text itself carries no meaning.
const unresolvedLabel = "Unknown Sender"

func (r *Resolver) usableDisplayName(displayName string) string {
	name := strings.TrimSpace(displayName)
	if name == "" || strings.Contains(name, "@") {
		return ""
	}
	if r.isOwnerName(name) {
		return ""
	}
	if isGenericSender(compactKey(name)) {
		return ""
	}
	return name
}

func (r *Resolver) usableUsername(username, domain string) string {
	username = strings.ToLower(strings.TrimSpace(username))
	if len(username) <= 2 {
		return ""
	}
	if r.isOwnerAddress(username + "@" + domain) {
		return ""
	}
	key := compactKey(username)
	if isGenericSender(key) || key == "" {
		return ""
	}
	for _, marker := range genericUsernameMarkers {
		if strings.Contains(key, marker) {
			return ""
		}
	}
	// the local part of a webmail address is a person, not a merchant
	if isWebmailDomain(domain) {
		return ""
	}
	words := strings.FieldsFunc(username, func(c rune) bool {
		return c == '.' || c == '_' || c == '-' || c == '+'
	})
	if onlyRoutingWords(words) {
		return ""
	}
	return titleCase(strings.Join(words, " "))
}

// onlyRoutingWords reports whether a split local part such as
// order-update or tax.invoice names a mailbox role rather than a business.
func onlyRoutingWords(words []string) bool {
	for _, w := range words {
		k := compactKey(w)
		if k == "" || strings.Trim(k, "0123456789") == "" {
			continue
		}
		if !isGenericSender(k) && !routingWords[k] {
			return false
		}
	}
	return true
}

func (r *Resolver) isOwnerName(name string) bool {
	lower := strings.ToLower(strings.TrimSpace(name))
	if lower == "" {
		return false
	}
	if r.owner.DisplayName != "" && lower == strings.ToLower(strings.TrimSpace(r.owner.DisplayName)) {
		return true
	}
	for _, other := range r.owner.OtherNames {
		if lower == strings.ToLower(strings.TrimSpace(other)) {
			return true
		}
	}
	return lower == "me"
}

func (r *Resolver) isOwnerAddress(address string) bool {
	owner := strings.ToLower(strings.TrimSpace(r.owner.Email))
	return owner != "" && owner == strings.ToLower(address)
}

func (r *Resolver) domainFallback(domain, displayName, username string) Resolution {
	if domain == "" {
		return r.unresolved(strings.TrimSpace(displayName + " " + username))
	}
	segments := strings.Split(domain, ".")
	for _, seg := range segments {
		if seg == "" || noiseDomainSegments[seg] || isWebmailSegment(seg) {
			continue
		}
		return Resolution{Name: r.normalizer.Normalize(titleCase(seg)), Source: SourceDomainFallback, Resolved: true}
	}
	return Resolution{Name: r.normalizer.Normalize(titleCase(segments[0])), Source: SourceDomainFallback, Resolved: false}
}

// governmentEntity names a *.gov.au sender after its most specific
// informative segment, e.g. rates.cityofsydney.nsw.gov.au -> City of Sydney.
func governmentEntity(domain string) string {
	if !MatchesDomain(domain, "gov.au") {
		return ""
	}
	segments := strings.Split(strings.TrimSuffix(domain, ".gov.au"), ".")
	for i := len(segments) - 1; i >= 0; i-- {
		seg := segments[i]
		if seg == "" || australianStates[seg] || noiseDomainSegments[seg] {
			continue
		}
		return humanizeGovernmentSegment(seg)
	}
	return ""
}

var governmentPrefixes = []struct{ prefix, label string }{
	{"cityof", "City of"},
	{"shireof", "Shire of"},
	{"townof", "Town of"},
}

func humanizeGovernmentSegment(seg string) string {
	seg = strings.ReplaceAll(seg, "-", " ")
	for _, p := range governmentPrefixes {
		if strings.HasPrefix(seg, p.prefix) && len(seg) > len(p.prefix) {
			return p.label + " " + titleCase(seg[len(p.prefix):])
		}
	}
	if strings.HasSuffix(seg, "council") && len(seg) > len("council") {
		return titleCase(strings.TrimSuffix(seg, "council")) + " Council"
	}
	if len(seg) <= 4 && !strings.Contains(seg, " ") {
		return strings.ToUpper(seg)
	}
	return titleCase(seg)
}

var (
	forwardPrefixPattern = regexp.MustCompile(`(?i)^\s*(?:fwd?|fw)\s*:\s*`)
	// provisional separator list for forwarded subjects
	forwardSeparatorPattern = regexp.MustCompile(`(?i)\s+-\s+|\s+order\b|\s+receipt\b`)
)

// forwardedSubjectMerchant extracts the leading merchant text from a
// forwarded subject such as "Fwd: Bunnings - Your receipt".
func forwardedSubjectMerchant(subject string) string {
	if !forwardPrefixPattern.MatchString(subject) {
		return ""
	}
	rest := subject
	for forwardPrefixPattern.MatchString(rest) {
		rest = forwardPrefixPattern.ReplaceAllString(rest, "")
	}
	loc := forwardSeparatorPattern.FindStringIndex(rest)
	if loc == nil {
		return ""
	}
	name := strings.TrimSpace(rest[:loc[0]])
	if strings.HasPrefix(strings.ToLower(name), "your ") {
		name = strings.TrimSpace(name[len("your "):])
	}
	if name == "" || isGenericSender(compactKey(name)) {
		return ""
	}
	return name
}

func titleCase(s string) string {
	// a Caser keeps state, so one per call
	return cases.Title(language.English).String(strings.ToLower(strings.TrimSpace(s)))
}

func compactKey(s string) string {
	var b strings.Builder
	for _, c := range strings.ToLower(s) {
		if (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') {
			b.WriteRune(c)
		}
	}
	return b.String()
}

func isGenericSender(key string) bool {
	return genericSenders[key]
}

func isWebmailDomain(domain string) bool {
	for _, provider := range webmailProviders {
		if MatchesDomain(domain, provider) {
			return true
		}
	}
	return false
}

func isWebmailSegment(seg string) bool {
	for _, provider := range webmailProviders {
		if strings.HasPrefix(provider, seg+".") {
			return true
		}
	}
	return false
}

// genericSenders are compacted local parts and display names that say
// nothing about the merchant.
var genericSenders = map[string]bool{
	"noreply": true, "donotreply": true, "dontreply": true, "info": true,
	"support": true, "service": true, "services": true, "hello": true,
	"hi": true, "contact": true, "billing": true, "bills": true,
	"receipts": true, "receipt": true, "orders": true, "order": true,
	"invoice": true, "invoices": true, "payments": true, "payment": true,
	"statements": true, "statement": true, "notifications": true,
	"notification": true, "notify": true, "alerts": true, "alert": true,
	"account": true, "accounts": true, "mail": true, "email": true,
	"news": true, "newsletter": true, "team": true, "admin": true,
	"customerservice": true, "customercare": true, "help": true,
	"enquiries": true, "feedback": true, "mailer": true, "mailerdaemon": true,
	"bounce": true, "reply": true, "ebill": true, "updates": true,
	"marketing": true, "sales": true, "store": true, "shop": true,
	"online": true, "web": true, "members": true, "member": true,
	"system": true, "automated": true, "autoconfirm": true, "confirm": true,
	"confirmation": true, "donotreplyau": true, "au": true, "accountservices": true,
	"yourorder": true, "customer": true, "customers": true, "rates": true,
	"accountsreceivable": true, "ar": true, "finance": true,
}

// genericUsernameMarkers catch composed local parts like noreply-orders
var genericUsernameMarkers = []string{"noreply", "donotreply", "mailer", "bounce"}

// routingWords only make sense as part of a composed local part
var routingWords = map[string]bool{
	"no": true, "do": true, "not": true, "dont": true, "auto": true,
	"update": true, "shipment": true, "shipments": true, "shipping": true,
	"tracking": true, "track": true, "tax": true, "delivery": true,
	"deliveries": true, "dispatch": true, "status": true, "digital": true,
	"confirmations": true, "purchase": true, "purchases": true, "booking": true,
	"bookings": true, "ticket": true, "tickets": true, "transaction": true,
	"transactions": true, "remittance": true, "reminder": true, "reminders": true,
	"my": true, "your": true, "e": true, "electronic": true, "reply": true,
	"message": true, "messages": true, "community": true, "security": true,
	"verify": true, "verification": true, "welcome": true, "cs": true,
}

var noiseDomainSegments = map[string]bool{
	"noreply": true, "no-reply": true, "donotreply": true, "info": true,
	"support": true, "mail": true, "mail2": true, "email": true, "emails": true,
	"e": true, "em": true, "mg": true, "send": true, "news": true,
	"notifications": true, "notification": true, "notify": true, "mailer": true,
	"marketing": true, "www": true, "receipts": true, "billing": true,
	"accounts": true, "account": true, "service": true, "services": true,
	"reply": true, "bounce": true, "com": true, "au": true, "net": true,
	"org": true, "co": true, "io": true, "gov": true, "edu": true,
	"uk": true, "nz": true, "us": true, "app": true, "rates": true,
}

var australianStates = map[string]bool{
	"nsw": true, "vic": true, "qld": true, "wa": true, "sa": true,
	"tas": true, "act": true, "nt": true,
}

var webmailProviders = []string{
	"gmail.com", "googlemail.com", "outlook.com", "outlook.com.au",
	"hotmail.com", "hotmail.com.au", "live.com", "live.com.au",
	"yahoo.com", "yahoo.com.au", "icloud.com", "me.com", "bigpond.com",
	"bigpond.net.au", "proton.me", "protonmail.com", "optusnet.com.au",
}
