package messaging

import "strings"

// NormalizeE164 strips formatting noise from a phone number and ensures a
// leading plus. WhatsApp delivers sender ids without one.
func NormalizeE164(phone string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(phone) {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if digits == "" {
		return ""
	}
	return "+" + digits
}

// MaskPhone hides all but the last four digits of a phone number so prospect
// contact details stay out of log aggregation.
func MaskPhone(phone string) string {
	if len(phone) <= 4 {
		return phone
	}
	return strings.Repeat("*", len(phone)-4) + phone[len(phone)-4:]
}
