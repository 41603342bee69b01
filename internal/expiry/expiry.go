package expiry

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// NormalizeYear maps a 2-digit year into the century of now and rejects
// values that cannot be a card year. It returns 0 for rejected input.
func NormalizeYear(year int, now time.Time) int {
	switch {
	case year < 0:
		return 0
	case year < 100:
		return now.Year()/100*100 + year
	case year < 2000 || year > 2999:
		return 0
	default:
		return year
	}
}

// ParseYear parses a 2- or 4-digit year string. An out-of-range value is an error.
func ParseYear(s string, now time.Time) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" || !isDigits(s) {
		return 0, fmt.Errorf("year must be digits: %q", s)
	}
	y, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("parse year: %w", err)
	}
	n := NormalizeYear(y, now)
	if n == 0 {
		return 0, fmt.Errorf("year out of range: %q", s)
	}
	return n, nil
}

// ParseMonth parses "1".."12" with an optional leading zero.
func ParseMonth(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" || len(s) > 2 || !isDigits(s) {
		return 0, fmt.Errorf("month must be 1 or 2 digits: %q", s)
	}
	m, _ := strconv.Atoi(s)
	if m < 1 || m > 12 {
		return 0, fmt.Errorf("month must be 01..12")
	}
	return m, nil
}

// ParseCardFace accepts "MM/YY", "MM/YYYY", "MMYY" or "MM-YY" and returns
// the month and the normalized 4-digit year.
func ParseCardFace(in string, now time.Time) (month, year int, err error) {
	s := strings.TrimSpace(in)
	s = strings.NewReplacer("/", "", "-", "", " ", "").Replace(s)
	if len(s) != 4 && len(s) != 6 {
		return 0, 0, fmt.Errorf("card face must be MM/YY or MM/YYYY")
	}
	if !isDigits(s) {
		return 0, 0, fmt.Errorf("card face must be digits")
	}
	if month, err = ParseMonth(s[:2]); err != nil {
		return 0, 0, err
	}
	if year, err = ParseYear(s[2:], now); err != nil {
		return 0, 0, err
	}
	return month, year, nil
}

// IsExpired reports whether the card month is strictly before the month of at.
// A card is usable through the last day of its expiration month.
func IsExpired(year, month int, at time.Time) bool {
	if year < at.Year() {
		return true
	}
	return year == at.Year() && month < int(at.Month())
}

// EndOfMonth returns the last instant of the given month in loc.
func EndOfMonth(year, month int, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	firstNext := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, loc).AddDate(0, 1, 0)
	return firstNext.Add(-time.Nanosecond)
}

// YYMM renders a 4-digit year and month as YYMM.
func YYMM(year, month int) string {
	return fmt.Sprintf("%02d%02d", year%100, month)
}

// CardFace renders month and year as MM/YY.
func CardFace(year, month int) string {
	return fmt.Sprintf("%02d/%02d", month, year%100)
}

// ValidateYYMM checks the YYMM shape and that the month is 01..12.
func ValidateYYMM(yymm string) error {
	if len(yymm) != 4 {
		return fmt.Errorf("expiry must be YYMM (4 digits)")
	}
	if !isDigits(yymm) {
		return fmt.Errorf("expiry must be digits: YYMM")
	}
	mm := int(yymm[2]-'0')*10 + int(yymm[3]-'0')
	if mm < 1 || mm > 12 {
		return fmt.Errorf("expiry month must be 01..12")
	}
	return nil
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
