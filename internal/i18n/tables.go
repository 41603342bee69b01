package i18n

import (
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

var monthNames = map[language.Base][12]string{
	mustBase("en"): {"january", "february", "march", "april", "may", "june", "july", "august", "september", "october", "november", "december"},
	mustBase("es"): {"enero", "febrero", "marzo", "abril", "mayo", "junio", "julio", "agosto", "septiembre", "octubre", "noviembre", "diciembre"},
	mustBase("fr"): {"janvier", "fevrier", "mars", "avril", "mai", "juin", "juillet", "aout", "septembre", "octobre", "novembre", "decembre"},
	mustBase("de"): {"januar", "februar", "marz", "april", "mai", "juni", "juli", "august", "september", "oktober", "november", "dezember"},
}

func mustBase(s string) language.Base {
	return language.MustParseBase(s)
}

// HasLocale reports whether tag carries a usable language.
func HasLocale(tag language.Tag) bool {
	return tag != language.Und
}

// ParseMonthName returns 1..12 for a full month name or a 3-letter
// abbreviation in the language of tag, or 0 when nothing matches.
// Input is compared after Normalize, so diacritics do not matter.
func ParseMonthName(s string, tag language.Tag) int {
	if !HasLocale(tag) {
		return 0
	}
	base, _ := tag.Base()
	names, ok := monthNames[base]
	if !ok {
		return 0
	}
	v := Normalize(s)
	if v == "" {
		return 0
	}
	for i, name := range names {
		if v == name || (len(v) == 3 && len(name) >= 3 && name[:3] == v) {
			return i + 1
		}
	}
	return 0
}

// MonthName returns the full month name for 1..12 in the language of tag.
func MonthName(month int, tag language.Tag) string {
	if month < 1 || month > 12 || !HasLocale(tag) {
		return ""
	}
	base, _ := tag.Base()
	names, ok := monthNames[base]
	if !ok {
		return ""
	}
	return names[month-1]
}

var usStates = map[string]string{
	"al": "alabama", "ak": "alaska", "az": "arizona", "ar": "arkansas", "ca": "california",
	"co": "colorado", "ct": "connecticut", "de": "delaware", "dc": "district of columbia",
	"fl": "florida", "ga": "georgia", "hi": "hawaii", "id": "idaho", "il": "illinois",
	"in": "indiana", "ia": "iowa", "ks": "kansas", "ky": "kentucky", "la": "louisiana",
	"me": "maine", "md": "maryland", "ma": "massachusetts", "mi": "michigan", "mn": "minnesota",
	"ms": "mississippi", "mo": "missouri", "mt": "montana", "ne": "nebraska", "nv": "nevada",
	"nh": "new hampshire", "nj": "new jersey", "nm": "new mexico", "ny": "new york",
	"nc": "north carolina", "nd": "north dakota", "oh": "ohio", "ok": "oklahoma", "or": "oregon",
	"pa": "pennsylvania", "ri": "rhode island", "sc": "south carolina", "sd": "south dakota",
	"tn": "tennessee", "tx": "texas", "ut": "utah", "vt": "vermont", "va": "virginia",
	"wa": "washington", "wv": "west virginia", "wi": "wisconsin", "wy": "wyoming",
}

// StateMatches compares a form value with a stored state under a locale.
// Without a locale only the exact normalized value matches.
func StateMatches(value, stored string, tag language.Tag) bool {
	v, s := Normalize(value), Normalize(stored)
	if v == "" || s == "" {
		return false
	}
	if v == s {
		return true
	}
	if !HasLocale(tag) {
		return false
	}
	return canonicalState(v) == canonicalState(s)
}

func canonicalState(s string) string {
	if full, ok := usStates[s]; ok {
		return full
	}
	return s
}

// CountryMatches compares a form value with a stored country, accepting the
// region code or its display name in English or in the language of tag.
func CountryMatches(value, stored string, tag language.Tag) bool {
	v, s := Normalize(value), Normalize(stored)
	if v == "" || s == "" {
		return false
	}
	if v == s {
		return true
	}
	if !HasLocale(tag) {
		return false
	}
	return countryNames(s, tag)[v] || countryNames(v, tag)[s]
}

func countryNames(code string, tag language.Tag) map[string]bool {
	region, err := language.ParseRegion(code)
	if err != nil {
		return nil
	}
	out := map[string]bool{}
	if n := display.English.Regions().Name(region); n != "" {
		out[Normalize(n)] = true
	}
	if namer := display.Regions(tag); namer != nil {
		if n := namer.Name(region); n != "" {
			out[Normalize(n)] = true
		}
	}
	return out
}
