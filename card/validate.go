package card

import (
	"time"

	"github.com/alovak/cardsync/internal/cardgen"
	"github.com/alovak/cardsync/internal/expiry"
)

// ValidateNumber strips separators and checks digits, network length and,
// except for UnionPay, the Luhn checksum.
func ValidateNumber(number string) bool {
	digits := cardgen.NormalizePAN(number)
	if digits == "" || !cardgen.IsDigits(digits) {
		return false
	}
	network := ClassifyNetwork(digits)
	if !validLength(network, len(digits)) {
		return false
	}
	if !requiresLuhn(network) {
		return true
	}
	return cardgen.LuhnValid(digits)
}

// ValidateExpiration reports whether a card expiring at year/month is still
// usable at now. The card is valid through its whole expiration month.
func ValidateExpiration(year, month int, now time.Time) bool {
	if month < 1 || month > 12 {
		return false
	}
	return !expiry.IsExpired(year, month, now)
}

// ValidateSecurityCode checks the CVC against the network derived from number.
func ValidateSecurityCode(code, number string) bool {
	return validSecurityCode(code, ClassifyNetwork(number))
}

func validSecurityCode(code string, network Network) bool {
	return len(code) == SecurityCodeLength(network) && cardgen.IsDigits(code)
}
