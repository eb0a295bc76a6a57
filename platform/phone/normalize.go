// Package phone provides phone number utilities.
// This is part of the platform layer and contains no business logic.
package phone

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

const defaultRegion = "BR"

// NormalizeE164 formats a phone number to E.164. If parsing fails, it returns the trimmed input.
func NormalizeE164(input string) string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return trimmed
	}

	number, err := phonenumbers.Parse(trimmed, defaultRegion)
	if err != nil {
		return trimmed
	}

	if !phonenumbers.IsValidNumber(number) {
		return trimmed
	}

	return phonenumbers.Format(number, phonenumbers.E164)
}

// FromJID extracts the phone number from a gateway remote JID such as
// "5581999999999@s.whatsapp.net" and normalizes it to E.164. Unlike
// NormalizeE164 it returns empty on anything that is not a valid number,
// which filters out status broadcasts and group JIDs.
func FromJID(jid string) string {
	if at := strings.IndexByte(jid, '@'); at >= 0 {
		jid = jid[:at]
	}
	if jid == "" {
		return ""
	}
	if !strings.HasPrefix(jid, "+") {
		jid = "+" + jid
	}

	number, err := phonenumbers.Parse(jid, defaultRegion)
	if err != nil || !phonenumbers.IsValidNumber(number) {
		return ""
	}
	return phonenumbers.Format(number, phonenumbers.E164)
}
