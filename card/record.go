package card

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/language"

	"github.com/alovak/cardsync/internal/cardgen"
	"github.com/alovak/cardsync/internal/expiry"
	"github.com/alovak/cardsync/internal/i18n"
)

var (
	ErrInvalidMonth   = errors.New("invalid expiration month")
	ErrInvalidYear    = errors.New("invalid expiration year")
	ErrNotMasked      = errors.New("card is not masked")
	ErrNumberMismatch = errors.New("number does not match last four digits")
)

// Kind is the closed set of record variants.
type Kind int

const (
	KindLocal Kind = iota
	KindMaskedRemote
	KindFullRemote
)

func (k Kind) String() string {
	switch k {
	case KindLocal:
		return "local"
	case KindMaskedRemote:
		return "masked_remote"
	case KindFullRemote:
		return "full_remote"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// IsRemote is true for both server-held kinds.
func (k Kind) IsRemote() bool {
	switch k {
	case KindMaskedRemote, KindFullRemote:
		return true
	case KindLocal:
		return false
	default:
		return false
	}
}

// Status is the server-side status of a remote card.
type Status int

const (
	StatusOK Status = iota
	StatusExpired
)

func (s Status) String() string {
	if s == StatusExpired {
		return "expired"
	}
	return "ok"
}

// Record is a payment card, held locally or by the payments server.
// Number, network and expiration are only changed through methods so the
// record invariants hold.
type Record struct {
	ID               string
	Kind             Kind
	HolderName       string
	RemoteID         string
	RemoteStatus     Status
	BillingAddressID string

	number          string
	network         Network
	expirationMonth int
	expirationYear  int
}

// NewLocal creates a locally stored card with a fresh GUID.
func NewLocal(number, holderName string, month, year int) *Record {
	r := &Record{ID: uuid.New().String(), Kind: KindLocal, HolderName: holderName}
	r.SetNumber(number)
	_ = r.SetExpirationMonth(month)
	_ = r.SetExpirationYear(year)
	return r
}

// NewMaskedRemote creates a server card known only by its last four digits.
func NewMaskedRemote(remoteID string, network Network, lastFour, holderName string, month, year int) *Record {
	r := &Record{
		ID:         uuid.New().String(),
		Kind:       KindMaskedRemote,
		HolderName: holderName,
		RemoteID:   remoteID,
		network:    network,
	}
	r.SetNumber(lastFour)
	_ = r.SetExpirationMonth(month)
	_ = r.SetExpirationYear(year)
	return r
}

// NewFullRemote creates a server card whose full number is known.
func NewFullRemote(remoteID, number, holderName string, month, year int) *Record {
	r := &Record{ID: uuid.New().String(), Kind: KindFullRemote, HolderName: holderName, RemoteID: remoteID}
	r.SetNumber(number)
	_ = r.SetExpirationMonth(month)
	_ = r.SetExpirationYear(year)
	return r
}

// Clone returns an independent copy of the record.
func (r *Record) Clone() *Record {
	c := *r
	return &c
}

func (r *Record) Number() string { return r.number }
func (r *Record) Network() Network { return r.network }
func (r *Record) ExpirationMonth() int { return r.expirationMonth }
func (r *Record) ExpirationYear() int { return r.expirationYear }
func (r *Record) LastFour() string { return cardgen.LastN(r.number, 4) }
func (r *Record) HasExpiration() bool { return r.expirationMonth != 0 && r.expirationYear != 0 }
func (r *Record) ExpirationFace() string { return expiry.CardFace(r.expirationYear, r.expirationMonth) }

// SetNumber stores the number with separators removed. Masked records keep
// only the last four digits and their network is never re-derived.
func (r *Record) SetNumber(number string) {
	n := cardgen.NormalizePAN(number)
	switch r.Kind {
	case KindMaskedRemote:
		r.number = cardgen.LastN(n, 4)
	case KindLocal, KindFullRemote:
		r.number = n
		r.network = ClassifyNetwork(n)
	}
}

// SetExpirationMonth accepts 0 (unset) or 1..12. Invalid values leave the
// month unset and return ErrInvalidMonth.
func (r *Record) SetExpirationMonth(month int) error {
	if month < 0 || month > 12 {
		r.expirationMonth = 0
		return fmt.Errorf("%w: %d", ErrInvalidMonth, month)
	}
	r.expirationMonth = month
	return nil
}

// SetExpirationYear accepts 0 (unset) or a 4-digit year in 2000..2999.
func (r *Record) SetExpirationYear(year int) error {
	if year != 0 && (year < 2000 || year > 2999) {
		r.expirationYear = 0
		return fmt.Errorf("%w: %d", ErrInvalidYear, year)
	}
	r.expirationYear = year
	return nil
}

// SetExpirationMonthFromString accepts "1".."12", "01".."12" and, when tag
// names a supported language, a month name or 3-letter abbreviation.
func (r *Record) SetExpirationMonthFromString(s string, tag language.Tag) error {
	if m, err := expiry.ParseMonth(s); err == nil {
		return r.SetExpirationMonth(m)
	}
	if m := i18n.ParseMonthName(s, tag); m != 0 {
		return r.SetExpirationMonth(m)
	}
	r.expirationMonth = 0
	return fmt.Errorf("%w: %q", ErrInvalidMonth, s)
}

// SetExpirationYearFromString normalizes a 2-digit year into the century of
// now. Years above 2999 or between 100 and 1999 leave the year unset.
func (r *Record) SetExpirationYearFromString(s string, now time.Time) error {
	y, err := expiry.ParseYear(s, now)
	if err != nil {
		r.expirationYear = 0
		return fmt.Errorf("%w: %v", ErrInvalidYear, err)
	}
	r.expirationYear = y
	return nil
}

// IsExpired reports whether the expiration month is before now's month.
func (r *Record) IsExpired(now time.Time) bool {
	if !r.HasExpiration() {
		return false
	}
	return !ValidateExpiration(r.expirationYear, r.expirationMonth, now)
}

// ValidSecurityCode checks a CVC against the record's network, which is
// known even when the number is masked.
func (r *Record) ValidSecurityCode(code string) bool {
	return validSecurityCode(code, r.network)
}

// HasFullNumber is true when the record holds a complete PAN.
func (r *Record) HasFullNumber() bool {
	switch r.Kind {
	case KindMaskedRemote:
		return false
	case KindLocal, KindFullRemote:
		return r.number != ""
	default:
		return false
	}
}

// Unmasked turns a masked server card into a full one. A corrected
// expiration is applied when month and year are both non-zero.
func (r *Record) Unmasked(fullNumber string, month, year int) error {
	switch r.Kind {
	case KindMaskedRemote:
		n := cardgen.NormalizePAN(fullNumber)
		if r.number != "" && cardgen.LastN(n, 4) != r.number {
			return ErrNumberMismatch
		}
		r.Kind = KindFullRemote
		r.SetNumber(n)
	case KindLocal, KindFullRemote:
		return fmt.Errorf("%w: %s", ErrNotMasked, r.Kind)
	}
	if month != 0 && year != 0 {
		if err := r.SetExpirationMonth(month); err != nil {
			return err
		}
		if err := r.SetExpirationYear(year); err != nil {
			return err
		}
		r.RemoteStatus = StatusOK
	}
	return nil
}

// Label is the display identity, e.g. "Visa ****1111".
func (r *Record) Label() string {
	var sb strings.Builder
	sb.WriteString(r.network.DisplayName())
	if last := r.LastFour(); last != "" {
		sb.WriteString(" ****")
		sb.WriteString(last)
	}
	return sb.String()
}

// Validate checks a record that holds a full number before it is stored or
// uploaded.
func (r *Record) Validate(now time.Time) error {
	switch r.Kind {
	case KindLocal, KindFullRemote:
		if !ValidateNumber(r.number) {
			return fmt.Errorf("invalid card number for %s", r.network)
		}
	case KindMaskedRemote:
		if len(r.number) != 4 {
			return fmt.Errorf("masked card must keep 4 digits")
		}
	}
	if !ValidateExpiration(r.expirationYear, r.expirationMonth, now) {
		return fmt.Errorf("card expired or expiration unset: %s", r.ExpirationFace())
	}
	return nil
}

// DisplayInfo is what a challenge prompt needs to identify the card.
type DisplayInfo struct {
	Label           string
	Network         Network
	LastFour        string
	ExpirationMonth int
	ExpirationYear  int
	Expired         bool
	CVCLength       int
}

func (r *Record) Display(now time.Time) DisplayInfo {
	return DisplayInfo{
		Label:           r.Label(),
		Network:         r.network,
		LastFour:        r.LastFour(),
		ExpirationMonth: r.expirationMonth,
		ExpirationYear:  r.expirationYear,
		Expired:         r.IsExpired(now) || r.RemoteStatus == StatusExpired,
		CVCLength:       SecurityCodeLength(r.network),
	}
}
