// Package upload decides whether a card observed on form submission may be
// offered for storage on the remote card service.
package upload

import (
	"strings"

	"github.com/alovak/cardsync/card"
	"github.com/alovak/cardsync/fieldtype"
	"github.com/alovak/cardsync/internal/i18n"
	"github.com/alovak/cardsync/profile"
)

// Reason explains an ineligible decision.
type Reason string

const (
	ReasonNone             Reason = ""
	ReasonNoAddress        Reason = "no address"
	ReasonNoName           Reason = "no name"
	ReasonConflictingZips  Reason = "conflicting zips"
	ReasonConflictingNames Reason = "conflicting names"
	ReasonNoZip            Reason = "no zip"
	ReasonNoCVC            Reason = "no CVC"
)

type Decision struct {
	Eligible bool
	Reason   Reason
}

func (d Decision) String() string {
	if d.Eligible {
		return "eligible"
	}
	return "ineligible: " + string(d.Reason)
}

type Options struct {
	// DefaultCountry is used for the zip requirement when no address
	// carries a country.
	DefaultCountry string
}

func DefaultOptions() Options {
	return Options{DefaultCountry: "US"}
}

func ineligible(r Reason) Decision {
	return Decision{Reason: r}
}

// Evaluate checks, in order, that an address is known, that the card has a
// holder name, that the addresses agree on zip, that names agree, that a zip
// is present where the country uses one and that a CVC was captured. The
// first failing check decides.
func Evaluate(c *card.Record, addresses []*profile.Profile, fields []fieldtype.Field, opts Options) Decision {
	var addrs []*profile.Profile
	for _, a := range addresses {
		if a != nil && a.HasAddress() {
			addrs = append(addrs, a)
		}
	}
	if len(addrs) == 0 {
		return ineligible(ReasonNoAddress)
	}

	if c == nil || strings.TrimSpace(c.HolderName) == "" {
		return ineligible(ReasonNoName)
	}

	zips := collectZips(addrs)
	if !zipsConsistent(zips) {
		return ineligible(ReasonConflictingZips)
	}

	if !namesConsistent(c.HolderName, addrs) {
		return ineligible(ReasonConflictingNames)
	}

	if len(zips) == 0 && countryRequiresZip(country(addrs, opts)) {
		return ineligible(ReasonNoZip)
	}

	if !hasCVC(fields) {
		return ineligible(ReasonNoCVC)
	}

	return Decision{Eligible: true}
}

func normalizeZip(z string) string {
	return strings.ReplaceAll(i18n.Normalize(z), " ", "")
}

func collectZips(addrs []*profile.Profile) []string {
	var zips []string
	for _, a := range addrs {
		if z := normalizeZip(a.Zip); z != "" {
			zips = append(zips, z)
		}
	}
	return zips
}

// zipsConsistent allows a short zip next to its extended form, so "77401"
// and "77401-8294" agree.
func zipsConsistent(zips []string) bool {
	for i := range zips {
		for j := i + 1; j < len(zips); j++ {
			a, b := zips[i], zips[j]
			if !strings.HasPrefix(a, b) && !strings.HasPrefix(b, a) {
				return false
			}
		}
	}
	return true
}

func namesConsistent(holder string, addrs []*profile.Profile) bool {
	want := splitName(holder)
	for _, a := range addrs {
		full := a.Name.FullName()
		if strings.TrimSpace(full) == "" {
			continue
		}
		got := nameParts{
			first:  i18n.Normalize(a.Name.First),
			middle: i18n.Normalize(a.Name.Middle),
			last:   i18n.Normalize(a.Name.Last),
		}
		if got.first == "" || got.last == "" {
			got = splitName(full)
		}
		if !want.matches(got) {
			return false
		}
	}
	return true
}

type nameParts struct {
	first, middle, last string
}

func splitName(full string) nameParts {
	tokens := strings.Fields(i18n.Normalize(full))
	switch len(tokens) {
	case 0:
		return nameParts{}
	case 1:
		return nameParts{first: tokens[0]}
	default:
		return nameParts{
			first:  tokens[0],
			middle: strings.Join(tokens[1:len(tokens)-1], " "),
			last:   tokens[len(tokens)-1],
		}
	}
}

// matches compares first and last names exactly and tolerates a missing
// middle name or a middle initial on either side.
func (n nameParts) matches(o nameParts) bool {
	if n.first != o.first || n.last != o.last {
		return false
	}
	if n.middle == "" || o.middle == "" || n.middle == o.middle {
		return true
	}
	short, long := n.middle, o.middle
	if len(short) > len(long) {
		short, long = long, short
	}
	return len(short) == 1 && strings.HasPrefix(long, short)
}

func country(addrs []*profile.Profile, opts Options) string {
	for _, a := range addrs {
		if c := strings.TrimSpace(a.Country); c != "" {
			return strings.ToUpper(c)
		}
	}
	return strings.ToUpper(opts.DefaultCountry)
}

// Regions whose postal system has no postal codes.
var noZipCountries = map[string]bool{
	"AE": true, "AG": true, "AO": true, "AW": true, "BF": true, "BI": true,
	"BJ": true, "BO": true, "BS": true, "BW": true, "BZ": true, "CD": true,
	"CF": true, "CG": true, "CI": true, "CK": true, "CM": true, "DJ": true,
	"DM": true, "ER": true, "FJ": true, "GA": true, "GD": true, "GH": true,
	"GM": true, "GQ": true, "GY": true, "HK": true, "JM": true, "KI": true,
	"KM": true, "KN": true, "KP": true, "LC": true, "ML": true, "MO": true,
	"MR": true, "MS": true, "NR": true, "NU": true, "QA": true, "RW": true,
	"SB": true, "SC": true, "SL": true, "SR": true, "ST": true, "SY": true,
	"TD": true, "TF": true, "TG": true, "TK": true, "TL": true, "TO": true,
	"TT": true, "TV": true, "UG": true, "VU": true, "YE": true, "ZW": true,
}

func countryRequiresZip(region string) bool {
	return !noZipCountries[region]
}

// hasCVC is true when any field typed as a verification code was filled.
func hasCVC(fields []fieldtype.Field) bool {
	for _, f := range fields {
		if f.Types.Has(fieldtype.CardVerificationCode) && !f.IsEmpty() {
			return true
		}
	}
	return false
}
