package domain

import "strings"

// NormalizePhone reduces a phone number to its last ten national digits so that
// "+880 1711-000000", "01711000000" and "1711000000" compare equal.
func NormalizePhone(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	digits = strings.TrimPrefix(digits, "880")
	digits = strings.TrimPrefix(digits, "0")
	if len(digits) > 10 {
		digits = digits[len(digits)-10:]
	}
	return digits
}
