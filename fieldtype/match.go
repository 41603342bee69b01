package fieldtype

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/alovak/cardsync/card"
	"github.com/alovak/cardsync/internal/cardgen"
	"github.com/alovak/cardsync/internal/i18n"
	"github.com/alovak/cardsync/profile"
)

func textMatches(value, stored string) bool {
	s := i18n.Normalize(stored)
	return s != "" && i18n.Normalize(value) == s
}

// matchProfile adds every profile type whose rendering equals value.
func matchProfile(value string, p *profile.Profile, opts Options, into TypeSet) {
	n := p.Name
	if textMatches(value, n.First) {
		into.Add(NameFirst)
	}
	if textMatches(value, n.Middle) {
		into.Add(NameMiddle)
	}
	if textMatches(value, n.Last) {
		into.Add(NameLast)
	}
	if textMatches(value, n.MiddleInitial()) {
		into.Add(NameMiddleInitial)
	}
	if textMatches(value, n.FullName()) {
		into.Add(NameFull)
	}
	if textMatches(value, p.Company) {
		into.Add(CompanyName)
	}
	if p.Email != "" && i18n.Fold(value) == i18n.Fold(p.Email) {
		into.Add(EmailAddress)
	}

	if textMatches(value, p.Line1) {
		into.Add(AddressLine1)
	}
	if textMatches(value, p.Line2) {
		into.Add(AddressLine2)
	}
	if textMatches(value, p.StreetAddress()) {
		into.Add(AddressStreet)
	}
	if textMatches(value, p.City) {
		into.Add(AddressCity)
	}
	if i18n.StateMatches(value, p.State, opts.Locale) {
		into.Add(AddressState)
	}
	if zipMatches(value, p.Zip) {
		into.Add(AddressZip)
	}
	if i18n.CountryMatches(value, p.Country, opts.Locale) {
		into.Add(AddressCountry)
	}

	matchPhone(value, p, into)
}

func zipMatches(value, stored string) bool {
	strip := func(s string) string { return strings.ReplaceAll(i18n.Normalize(s), " ", "") }
	s := strip(stored)
	return s != "" && strip(value) == s
}

// isPhoneShaped is true when value only holds digits and phone separators.
func isPhoneShaped(value string) bool {
	hasDigit := false
	for _, r := range value {
		switch {
		case r >= '0' && r <= '9':
			hasDigit = true
		case strings.ContainsRune(" ()-+./", r):
		default:
			return false
		}
	}
	return hasDigit
}

// matchPhone compares value with the whole number and, by decomposition,
// with its country, city and local parts.
func matchPhone(value string, p *profile.Profile, into TypeSet) {
	if !isPhoneShaped(value) {
		return
	}
	parts, ok := p.PhoneParts()
	if !ok {
		return
	}
	digits := cardgen.ExtractDigits(value)

	if digits == parts.WholeNumber() {
		into.Add(PhoneWholeNumber)
	}
	if parts.CityCode != "" && digits == parts.CityAndNumber() {
		// The national form is also a rendering of the whole number.
		into.Add(PhoneCityAndNumber)
		into.Add(PhoneWholeNumber)
	}
	sub := []struct {
		part string
		t    Type
	}{
		{parts.CountryCode, PhoneCountryCode},
		{parts.CityCode, PhoneCityCode},
		{parts.Number, PhoneNumber},
		{parts.Prefix(), PhoneNumberPrefix},
		{parts.Suffix(), PhoneNumberSuffix},
	}
	for _, s := range sub {
		if s.part != "" && digits == s.part {
			into.Add(s.t)
		}
	}
}

// matchCard adds every card type whose rendering equals value.
func matchCard(value string, c *card.Record, opts Options, into TypeSet) {
	if textMatches(value, c.HolderName) {
		into.Add(CardNameFull)
	}
	if c.HasFullNumber() && cardgen.NormalizePAN(value) == c.Number() {
		into.Add(CardNumber)
	}
	if !c.HasExpiration() {
		return
	}
	month, year := c.ExpirationMonth(), c.ExpirationYear()
	v := strings.TrimSpace(value)

	if n, err := strconv.Atoi(v); err == nil && len(v) <= 2 && n == month {
		into.Add(CardExpMonth)
	} else if i18n.ParseMonthName(v, opts.Locale) == month {
		into.Add(CardExpMonth)
	}
	if len(v) == 2 && v == fmt.Sprintf("%02d", year%100) {
		into.Add(CardExp2DigitYear)
	}
	if v == strconv.Itoa(year) {
		into.Add(CardExp4DigitYear)
	}
	if t, ok := expDateType(v, month, year); ok {
		into.Add(t)
	}
}

// expDateType recognizes combined "MM/YY" and "MM/YYYY" renderings.
func expDateType(v string, month, year int) (Type, bool) {
	parts := strings.FieldsFunc(v, func(r rune) bool { return r == '/' || r == '-' || r == ' ' })
	if len(parts) != 2 {
		return Unknown, false
	}
	m, err := strconv.Atoi(parts[0])
	if err != nil || len(parts[0]) > 2 || m != month {
		return Unknown, false
	}
	y, err := strconv.Atoi(parts[1])
	if err != nil {
		return Unknown, false
	}
	switch len(parts[1]) {
	case 2:
		if y == year%100 {
			return CardExpDate2DigitYear, true
		}
	case 4:
		if y == year {
			return CardExpDate4DigitYear, true
		}
	}
	return Unknown, false
}
