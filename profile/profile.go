// Package profile holds the address profile records that submitted form
// values are compared against.
package profile

import (
	"strings"

	"github.com/google/uuid"
)

// Name is a person name split into parts. Full is derived when empty.
type Name struct {
	First  string
	Middle string
	Last   string
	Full   string
}

// FullName returns Full, or the joined parts when Full is not set.
func (n Name) FullName() string {
	if n.Full != "" {
		return n.Full
	}
	return strings.Join(strings.Fields(strings.Join([]string{n.First, n.Middle, n.Last}, " ")), " ")
}

// MiddleInitial is the first letter of the middle name.
func (n Name) MiddleInitial() string {
	m := strings.TrimSpace(n.Middle)
	if m == "" {
		return ""
	}
	r := []rune(m)
	return string(r[0])
}

// Profile is one stored or recently submitted address profile.
type Profile struct {
	ID      string
	Name    Name
	Company string
	Email   string
	Line1   string
	Line2   string
	City    string
	State   string
	Zip     string
	// Country is a CLDR region code such as "US".
	Country string
	Phone   string
}

// New returns a profile with a fresh GUID.
func New() *Profile {
	return &Profile{ID: uuid.New().String()}
}

// StreetAddress joins the address lines with a newline.
func (p *Profile) StreetAddress() string {
	lines := make([]string, 0, 2)
	for _, l := range []string{p.Line1, p.Line2} {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	return strings.Join(lines, "\n")
}

// HasAddress is true when any postal part is set.
func (p *Profile) HasAddress() bool {
	return p.Line1 != "" || p.City != "" || p.State != "" || p.Zip != ""
}

// PhoneParts decomposes the phone number using Country as default region.
func (p *Profile) PhoneParts() (PhoneParts, bool) {
	return ParsePhone(p.Phone, p.Country)
}
