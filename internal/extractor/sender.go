package extractor

import "strings"

// SenderParts holds the pieces of a From header. Empty strings mean absent.
type SenderParts struct {
	DisplayName string
	Username    string
	Domain      string
}

// HasAddress reports whether an email address was found in the header
func (p SenderParts) HasAddress() bool {
	return p.Domain != "" || p.Username != ""
}

// SplitSender splits a raw header like `"Bunnings" <noreply@bunnings.com.au>`
// or a bare `noreply@bunnings.com.au`. A header without any "@" yields empty
// parts so callers fall back to unresolved handling.
func SplitSender(header string) SenderParts {
	header = strings.TrimSpace(header)
	if !strings.Contains(header, "@") {
		return SenderParts{}
	}

	var parts SenderParts
	address := header

	if open := strings.Index(header, "<"); open >= 0 {
		if end := strings.Index(header[open:], ">"); end > 0 {
			parts.DisplayName = cleanDisplayName(header[:open])
			address = header[open+1 : open+end]
		} else {
			parts.DisplayName = cleanDisplayName(header[:open])
			address = header[open+1:]
		}
	}

	address = strings.TrimSpace(address)
	at := strings.LastIndex(address, "@")
	if at < 0 {
		// "@" only appeared in the display name
		return SenderParts{}
	}

	parts.Username = strings.TrimSpace(address[:at])
	parts.Domain = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(address[at+1:])), ".")
	return parts
}

func cleanDisplayName(name string) string {
	name = strings.TrimSpace(name)
	name = strings.Trim(name, `"'`)
	return strings.Join(strings.Fields(name), " ")
}
