package payment

import (
	"strings"

	"shopfront/internal/model"
)

// NormalizePhone maps the accepted phone spellings onto the single
// canonical <countrycode><subscriber> form the mobile money provider
// requires. A leading "0" and a leading "+<countrycode>" are both
// accepted; anything else is invalid payment input.
//
//	0712345678    -> 254712345678
//	+254712345678 -> 254712345678
//	254712345678  -> 254712345678
func NormalizePhone(raw, countryCode string) (string, error) {
	phone := strings.TrimSpace(raw)
	phone = strings.ReplaceAll(phone, " ", "")
	phone = strings.ReplaceAll(phone, "-", "")
	phone = strings.TrimPrefix(phone, "+")

	switch {
	case strings.HasPrefix(phone, "0"):
		phone = countryCode + phone[1:]
	case strings.HasPrefix(phone, countryCode):
		// already canonical
	default:
		return "", model.NewInvalidPaymentInputError("phone number must start with 0 or +" + countryCode)
	}

	if len(phone) < 11 || len(phone) > 14 {
		return "", model.NewInvalidPaymentInputError("phone number has invalid length")
	}
	for _, r := range phone {
		if r < '0' || r > '9' {
			return "", model.NewInvalidPaymentInputError("phone number must contain digits only")
		}
	}

	return phone, nil
}
