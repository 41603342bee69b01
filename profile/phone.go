package profile

import (
	"strconv"
	"strings"

	"github.com/nyaruka/phonenumbers"

	"github.com/alovak/cardsync/internal/cardgen"
)

// PhoneParts is a phone number broken into the pieces a form may ask for.
type PhoneParts struct {
	CountryCode string
	CityCode    string
	Number      string
}

// WholeNumber is country code, city code and number without separators.
func (p PhoneParts) WholeNumber() string {
	return p.CountryCode + p.CityCode + p.Number
}

// CityAndNumber is the national significant number.
func (p PhoneParts) CityAndNumber() string {
	return p.CityCode + p.Number
}

// Prefix is the first three digits of a 7-digit local number.
func (p PhoneParts) Prefix() string {
	if len(p.Number) != 7 {
		return ""
	}
	return p.Number[:3]
}

// Suffix is the last four digits of a 7-digit local number.
func (p PhoneParts) Suffix() string {
	if len(p.Number) != 7 {
		return ""
	}
	return p.Number[3:]
}

// ParsePhone splits raw into parts. region is the default region used when
// raw carries no international prefix; "US" is assumed when it is empty.
func ParsePhone(raw, region string) (PhoneParts, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return PhoneParts{}, false
	}
	if region == "" {
		region = "US"
	}
	num, err := phonenumbers.Parse(raw, strings.ToUpper(region))
	if err != nil {
		return fallbackParts(raw)
	}
	national := phonenumbers.GetNationalSignificantNumber(num)
	if national == "" {
		return fallbackParts(raw)
	}
	areaLen := phonenumbers.GetLengthOfGeographicalAreaCode(num)
	if areaLen == 0 && num.GetCountryCode() == 1 && len(national) == 10 {
		// NANP non-geographic numbers still have a 3-digit area code.
		areaLen = 3
	}
	if areaLen > len(national) {
		areaLen = 0
	}
	return PhoneParts{
		CountryCode: strconv.Itoa(int(num.GetCountryCode())),
		CityCode:    national[:areaLen],
		Number:      national[areaLen:],
	}, true
}

// fallbackParts handles numbers the parser rejects: bare digits are treated
// as a local number with no country or city code.
func fallbackParts(raw string) (PhoneParts, bool) {
	digits := cardgen.ExtractDigits(raw)
	if digits == "" {
		return PhoneParts{}, false
	}
	return PhoneParts{Number: digits}, true
}
