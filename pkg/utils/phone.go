package utils

import "strings"

// DefaultCountryCode is prepended to domestic numbers when no other code is configured.
const DefaultCountryCode = "91"

var phoneSeparators = strings.NewReplacer(" ", "", "-", "", "(", "", ")", "", "+", "", ".", "")

// DigitsOnly removes separators and anything that is not an ASCII digit.
func DigitsOnly(phone string) string {
	phone = phoneSeparators.Replace(phone)
	var b strings.Builder
	b.Grow(len(phone))
	for i := 0; i < len(phone); i++ {
		if phone[i] >= '0' && phone[i] <= '9' {
			b.WriteByte(phone[i])
		}
	}
	return b.String()
}

// NationalNumber returns the stored form of a phone number: digits only with the
// country code and trunk zeros removed. "+91 98765-43210" -> "9876543210".
func NationalNumber(phone, countryCode string) string {
	if countryCode == "" {
		countryCode = DefaultCountryCode
	}
	digits := DigitsOnly(phone)
	if len(digits) == 10+len(countryCode) && strings.HasPrefix(digits, countryCode) {
		return digits[len(countryCode):]
	}
	return strings.TrimLeft(digits, "0")
}

// CanonicalPhone returns the E.164 form used to key the SMS verification service.
//   - 12 digits already carrying the country code pass through
//   - 10 digits are domestic and get the country code
//   - anything else has leading zeros stripped and gets the country code
func CanonicalPhone(phone, countryCode string) string {
	if countryCode == "" {
		countryCode = DefaultCountryCode
	}
	digits := DigitsOnly(phone)
	switch {
	case len(digits) == 10+len(countryCode) && strings.HasPrefix(digits, countryCode):
		return "+" + digits
	case len(digits) == 10:
		return "+" + countryCode + digits
	default:
		return "+" + countryCode + strings.TrimLeft(digits, "0")
	}
}
