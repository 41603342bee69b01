package fieldtype

import (
	"fmt"
	"strings"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Type is a semantic field type a form field can hold.
type Type int

const (
	Unknown Type = iota
	Empty

	NameFirst
	NameMiddle
	NameLast
	NameMiddleInitial
	NameFull

	CompanyName
	EmailAddress

	PhoneWholeNumber
	PhoneCityAndNumber
	PhoneCountryCode
	PhoneCityCode
	PhoneNumber
	PhoneNumberPrefix
	PhoneNumberSuffix

	AddressLine1
	AddressLine2
	AddressStreet
	AddressCity
	AddressState
	AddressZip
	AddressCountry

	CardNameFull
	CardNumber
	CardExpMonth
	CardExp2DigitYear
	CardExp4DigitYear
	CardExpDate2DigitYear
	CardExpDate4DigitYear
	CardVerificationCode
)

var typeNames = map[Type]string{
	Unknown:               "UNKNOWN_TYPE",
	Empty:                 "EMPTY_TYPE",
	NameFirst:             "NAME_FIRST",
	NameMiddle:            "NAME_MIDDLE",
	NameLast:              "NAME_LAST",
	NameMiddleInitial:     "NAME_MIDDLE_INITIAL",
	NameFull:              "NAME_FULL",
	CompanyName:           "COMPANY_NAME",
	EmailAddress:          "EMAIL_ADDRESS",
	PhoneWholeNumber:      "PHONE_HOME_WHOLE_NUMBER",
	PhoneCityAndNumber:    "PHONE_HOME_CITY_AND_NUMBER",
	PhoneCountryCode:      "PHONE_HOME_COUNTRY_CODE",
	PhoneCityCode:         "PHONE_HOME_CITY_CODE",
	PhoneNumber:           "PHONE_HOME_NUMBER",
	PhoneNumberPrefix:     "PHONE_HOME_NUMBER_PREFIX",
	PhoneNumberSuffix:     "PHONE_HOME_NUMBER_SUFFIX",
	AddressLine1:          "ADDRESS_HOME_LINE1",
	AddressLine2:          "ADDRESS_HOME_LINE2",
	AddressStreet:         "ADDRESS_HOME_STREET_ADDRESS",
	AddressCity:           "ADDRESS_HOME_CITY",
	AddressState:          "ADDRESS_HOME_STATE",
	AddressZip:            "ADDRESS_HOME_ZIP",
	AddressCountry:        "ADDRESS_HOME_COUNTRY",
	CardNameFull:          "CREDIT_CARD_NAME_FULL",
	CardNumber:            "CREDIT_CARD_NUMBER",
	CardExpMonth:          "CREDIT_CARD_EXP_MONTH",
	CardExp2DigitYear:     "CREDIT_CARD_EXP_2_DIGIT_YEAR",
	CardExp4DigitYear:     "CREDIT_CARD_EXP_4_DIGIT_YEAR",
	CardExpDate2DigitYear: "CREDIT_CARD_EXP_DATE_2_DIGIT_YEAR",
	CardExpDate4DigitYear: "CREDIT_CARD_EXP_DATE_4_DIGIT_YEAR",
	CardVerificationCode:  "CREDIT_CARD_VERIFICATION_CODE",
}

func (t Type) String() string {
	if s, ok := typeNames[t]; ok {
		return s
	}
	return fmt.Sprintf("Type(%d)", int(t))
}

// Group is the family a type belongs to.
type Group int

const (
	GroupNone Group = iota
	GroupName
	GroupCompany
	GroupEmail
	GroupPhone
	GroupAddress
	GroupCard
)

func (t Type) Group() Group {
	switch {
	case t >= NameFirst && t <= NameFull:
		return GroupName
	case t == CompanyName:
		return GroupCompany
	case t == EmailAddress:
		return GroupEmail
	case t >= PhoneWholeNumber && t <= PhoneNumberSuffix:
		return GroupPhone
	case t >= AddressLine1 && t <= AddressCountry:
		return GroupAddress
	case t >= CardNameFull && t <= CardVerificationCode:
		return GroupCard
	default:
		return GroupNone
	}
}

// IsName is true for personal name parts and the card holder name.
func (t Type) IsName() bool {
	return t.Group() == GroupName || t == CardNameFull
}

// TypeSet is an unordered set of types.
type TypeSet map[Type]struct{}

// NewTypeSet builds a set from ts.
func NewTypeSet(ts ...Type) TypeSet {
	s := make(TypeSet, len(ts))
	for _, t := range ts {
		s[t] = struct{}{}
	}
	return s
}

func (s TypeSet) Add(t Type) { s[t] = struct{}{} }

func (s TypeSet) Remove(t Type) { delete(s, t) }

func (s TypeSet) Has(t Type) bool {
	_, ok := s[t]
	return ok
}

func (s TypeSet) Len() int { return len(s) }

func (s TypeSet) Clone() TypeSet { return maps.Clone(s) }

func (s TypeSet) Equal(o TypeSet) bool { return maps.Equal(s, o) }

// HasAny reports whether s holds at least one of ts.
func (s TypeSet) HasAny(ts ...Type) bool {
	for _, t := range ts {
		if s.Has(t) {
			return true
		}
	}
	return false
}

// Sorted returns the members in declaration order.
func (s TypeSet) Sorted() []Type {
	out := maps.Keys(s)
	slices.Sort(out)
	return out
}

func (s TypeSet) String() string {
	names := make([]string, 0, len(s))
	for _, t := range s.Sorted() {
		names = append(names, t.String())
	}
	return "{" + strings.Join(names, ", ") + "}"
}
