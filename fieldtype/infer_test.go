package fieldtype_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/alovak/cardsync/card"
	"github.com/alovak/cardsync/fieldtype"
	"github.com/alovak/cardsync/profile"
)

var opts = fieldtype.Options{Now: time.Date(2026, time.October, 17, 0, 0, 0, 0, time.UTC)}

func elvis() *profile.Profile {
	return &profile.Profile{
		ID:      "p1",
		Name:    profile.Name{First: "Elvis", Middle: "Aaron", Last: "Presley", Full: "Elvis Presley"},
		Company: "RCA",
		Email:   "theking@gmail.com",
		Line1:   "3734 Elvis Presley Blvd.",
		City:    "Memphis",
		State:   "TN",
		Zip:     "38116",
		Country: "US",
		Phone:   "+1 (234) 567-8901",
	}
}

func elvisCard() *card.Record {
	return card.NewLocal("4234567890123456", "Elvis Presley", 4, 2028)
}

func set(ts ...fieldtype.Type) fieldtype.TypeSet {
	return fieldtype.NewTypeSet(ts...)
}

func infer(obs []fieldtype.Observation) []fieldtype.Field {
	return fieldtype.InferFieldTypes(obs, []*profile.Profile{elvis()}, []*card.Record{elvisCard()}, opts)
}

func TestDirectMatching(t *testing.T) {
	obs := []fieldtype.Observation{
		{Index: 0, Value: "Elvis"},
		{Index: 1, Value: "Aaron"},
		{Index: 2, Value: "A."},
		{Index: 3, Value: "presley"},
		{Index: 4, Value: "theking@GMAIL.com"},
		{Index: 5, Value: "rca"},
		{Index: 6, Value: "Memphis"},
		{Index: 7, Value: "TN"},
		{Index: 8, Value: "38116"},
		{Index: 9, Value: "US"},
		{Index: 10, Value: "4234-5678-9012-3456"},
		{Index: 11, Value: "04"},
		{Index: 12, Value: "2028"},
		{Index: 13, Value: "28"},
		{Index: 14, Value: "04/28"},
		{Index: 15, Value: "4/2028"},
		{Index: 16, Value: "something else"},
	}
	fields := infer(obs)
	want := []fieldtype.TypeSet{
		set(fieldtype.NameFirst),
		set(fieldtype.NameMiddle),
		set(fieldtype.NameMiddleInitial),
		set(fieldtype.NameLast),
		set(fieldtype.EmailAddress),
		set(fieldtype.CompanyName),
		set(fieldtype.AddressCity),
		set(fieldtype.AddressState),
		set(fieldtype.AddressZip),
		set(fieldtype.AddressCountry),
		set(fieldtype.CardNumber),
		set(fieldtype.CardExpMonth),
		set(fieldtype.CardExp4DigitYear),
		set(fieldtype.CardExp2DigitYear),
		set(fieldtype.CardExpDate2DigitYear),
		set(fieldtype.CardExpDate4DigitYear),
		set(fieldtype.Unknown),
	}
	require.Len(t, fields, len(want))
	for i, f := range fields {
		require.Equal(t, i, f.Index)
		require.True(t, want[i].Equal(f.Types), "field %d %q: got %s want %s", i, f.Value, f.Types, want[i])
	}
}

func TestMultipleMatchesKept(t *testing.T) {
	p := &profile.Profile{Name: profile.Name{Full: "X", Middle: "X"}}
	fields := fieldtype.InferFieldTypes([]fieldtype.Observation{{Index: 0, Value: "X"}}, []*profile.Profile{p}, nil, opts)
	require.True(t, fields[0].Types.Has(fieldtype.NameFull))
	require.True(t, fields[0].Types.Has(fieldtype.NameMiddleInitial))
	require.True(t, fields[0].Types.Has(fieldtype.NameMiddle))
}

func TestEmptyAndNoRecords(t *testing.T) {
	obs := []fieldtype.Observation{
		{Index: 0, Value: "   "},
		{Index: 1, Value: "anything"},
		{Index: 2, Value: "", Seed: set(fieldtype.CardVerificationCode)},
	}
	fields := fieldtype.InferFieldTypes(obs, nil, nil, opts)
	require.True(t, set(fieldtype.Empty).Equal(fields[0].Types))
	require.True(t, set(fieldtype.Unknown).Equal(fields[1].Types))
	require.True(t, set(fieldtype.CardVerificationCode, fieldtype.Empty).Equal(fields[2].Types))
}

func TestResultsOrderedByIndex(t *testing.T) {
	obs := []fieldtype.Observation{{Index: 2, Value: "Memphis"}, {Index: 0, Value: "Elvis"}, {Index: 1, Value: ""}}
	fields := infer(obs)
	require.Equal(t, []int{0, 1, 2}, []int{fields[0].Index, fields[1].Index, fields[2].Index})
	byIndex := fieldtype.ByIndex(fields)
	require.True(t, byIndex[2].Has(fieldtype.AddressCity))
}

func TestSeedIsKept(t *testing.T) {
	obs := []fieldtype.Observation{{Index: 0, Value: "Memphis", Seed: set(fieldtype.AddressLine2)}}
	fields := infer(obs)
	require.True(t, set(fieldtype.AddressLine2, fieldtype.AddressCity).Equal(fields[0].Types))
}

func TestPhoneDecomposition(t *testing.T) {
	obs := []fieldtype.Observation{
		{Index: 0, Value: "+1 234 567 8901"},
		{Index: 1, Value: "1"},
		{Index: 2, Value: "234"},
		{Index: 3, Value: "567-8901"},
		{Index: 4, Value: "567"},
		{Index: 5, Value: "8901"},
	}
	fields := infer(obs)
	require.True(t, set(fieldtype.PhoneWholeNumber).Equal(fields[0].Types), fields[0].Types.String())
	require.True(t, fields[1].Types.Has(fieldtype.PhoneCountryCode))
	require.True(t, fields[2].Types.Has(fieldtype.PhoneCityCode))
	require.True(t, set(fieldtype.PhoneNumber).Equal(fields[3].Types), fields[3].Types.String())
	require.True(t, set(fieldtype.PhoneNumberPrefix).Equal(fields[4].Types), fields[4].Types.String())
	require.True(t, fields[5].Types.Has(fieldtype.PhoneNumberSuffix))
}

func TestPhoneAmbiguityPrefersCityAndNumber(t *testing.T) {
	fields := infer([]fieldtype.Observation{{Index: 0, Value: "(234) 567-8901"}})
	require.True(t, set(fieldtype.PhoneCityAndNumber).Equal(fields[0].Types), fields[0].Types.String())
}

func TestAddressLine2LeftEmpty(t *testing.T) {
	obs := []fieldtype.Observation{
		{Index: 0, Value: "3734 Elvis Presley Blvd.", Predicted: fieldtype.AddressLine1},
		{Index: 1, Value: "", Predicted: fieldtype.AddressLine2},
	}
	fields := infer(obs)
	require.True(t, set(fieldtype.AddressLine1).Equal(fields[0].Types), fields[0].Types.String())
	require.True(t, set(fieldtype.Empty).Equal(fields[1].Types), fields[1].Types.String())
}

func TestAddressLine2HasOwnMatch(t *testing.T) {
	obs := []fieldtype.Observation{
		{Index: 0, Value: "3734 Elvis Presley Blvd.", Predicted: fieldtype.AddressStreet},
		{Index: 1, Value: "38116", Predicted: fieldtype.AddressLine2},
	}
	fields := infer(obs)
	require.True(t, set(fieldtype.AddressStreet).Equal(fields[0].Types), fields[0].Types.String())
	require.True(t, set(fieldtype.AddressZip).Equal(fields[1].Types), fields[1].Types.String())
}

func TestAddressLastField(t *testing.T) {
	fields := infer([]fieldtype.Observation{{Index: 0, Value: "3734 Elvis Presley Blvd."}})
	require.True(t, set(fieldtype.AddressStreet).Equal(fields[0].Types), fields[0].Types.String())
}

func TestAddressNextEmptyButNotLine2(t *testing.T) {
	obs := []fieldtype.Observation{
		{Index: 0, Value: "3734 Elvis Presley Blvd."},
		{Index: 1, Value: "", Predicted: fieldtype.AddressCity},
	}
	fields := infer(obs)
	require.True(t, set(fieldtype.AddressStreet).Equal(fields[0].Types), fields[0].Types.String())
}

func TestNameAmbiguity(t *testing.T) {
	cardNameAndPersonal := set(fieldtype.CardNameFull, fieldtype.NameFull)
	cases := []struct {
		name string
		obs  []fieldtype.Observation
		want fieldtype.TypeSet
	}{
		{
			name: "card neighbors on both sides",
			obs: []fieldtype.Observation{
				{Index: 0, Value: "4234567890123456"},
				{Index: 1, Value: "Elvis Presley"},
				{Index: 2, Value: "04/28"},
			},
			want: set(fieldtype.CardNameFull),
		},
		{
			name: "address neighbors on both sides",
			obs: []fieldtype.Observation{
				{Index: 0, Value: "theking@gmail.com"},
				{Index: 1, Value: "Elvis Presley"},
				{Index: 2, Value: "Memphis"},
			},
			want: set(fieldtype.NameFull),
		},
		{
			name: "only previous neighbor",
			obs: []fieldtype.Observation{
				{Index: 0, Value: "4234567890123456"},
				{Index: 1, Value: "Elvis Presley"},
			},
			want: set(fieldtype.CardNameFull),
		},
		{
			name: "only next neighbor, name fields skipped",
			obs: []fieldtype.Observation{
				{Index: 0, Value: "Elvis Presley"},
				{Index: 1, Value: "Elvis"},
				{Index: 2, Value: "Memphis"},
			},
			want: set(fieldtype.NameFull),
		},
		{
			name: "ambiguous neighbor skipped",
			obs: []fieldtype.Observation{
				{Index: 0, Value: "Elvis Presley"},
				{Index: 1, Value: "Elvis Presley"},
				{Index: 2, Value: "04/28"},
			},
			want: set(fieldtype.CardNameFull),
		},
		{
			name: "neighbors disagree",
			obs: []fieldtype.Observation{
				{Index: 0, Value: "Memphis"},
				{Index: 1, Value: "Elvis Presley"},
				{Index: 2, Value: "04/28"},
			},
			want: cardNameAndPersonal,
		},
		{
			name: "no neighbors",
			obs: []fieldtype.Observation{
				{Index: 0, Value: "Elvis Presley"},
			},
			want: cardNameAndPersonal,
		},
		{
			name: "empty cvc neighbor seeded by markup",
			obs: []fieldtype.Observation{
				{Index: 0, Value: "Elvis Presley"},
				{Index: 1, Value: "", Seed: set(fieldtype.CardVerificationCode)},
			},
			want: set(fieldtype.CardNameFull),
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			fields := infer(c.obs)
			var got fieldtype.TypeSet
			for _, f := range fields {
				if f.Value == "Elvis Presley" {
					got = f.Types
				}
			}
			require.True(t, c.want.Equal(got), "got %s want %s", got, c.want)
		})
	}
}

func TestNameResolutionIdempotent(t *testing.T) {
	obs := []fieldtype.Observation{
		{Index: 0, Value: "4234567890123456"},
		{Index: 1, Value: "Elvis Presley"},
		{Index: 2, Value: "Memphis"},
		{Index: 3, Value: "Elvis Presley"},
		{Index: 4, Value: "3734 Elvis Presley Blvd."},
		{Index: 5, Value: "", Predicted: fieldtype.AddressLine2},
		{Index: 6, Value: "Elvis Presley"},
		{Index: 7, Value: "04/28"},
	}
	first := infer(obs)

	again := make([]fieldtype.Observation, len(first))
	for i, f := range first {
		again[i] = fieldtype.Observation{Index: f.Index, Value: f.Value, Predicted: f.Predicted, Seed: f.Types}
	}
	second := infer(again)
	for i := range first {
		require.True(t, first[i].Types.Equal(second[i].Types), "field %d: %s vs %s", i, first[i].Types, second[i].Types)
	}
}

func TestLocaleAwareComparison(t *testing.T) {
	obs := []fieldtype.Observation{
		{Index: 0, Value: "Tennessee"},
		{Index: 1, Value: "United States"},
		{Index: 2, Value: "April"},
	}
	withoutLocale := infer(obs)
	for _, f := range withoutLocale {
		require.True(t, set(fieldtype.Unknown).Equal(f.Types), "%q: %s", f.Value, f.Types)
	}

	localized := opts
	localized.Locale = language.AmericanEnglish
	fields := fieldtype.InferFieldTypes(obs, []*profile.Profile{elvis()}, []*card.Record{elvisCard()}, localized)
	require.True(t, fields[0].Types.Has(fieldtype.AddressState))
	require.True(t, fields[1].Types.Has(fieldtype.AddressCountry))
	require.True(t, fields[2].Types.Has(fieldtype.CardExpMonth))
}

func TestMaskedCardNumberNeverMatches(t *testing.T) {
	masked := card.NewMaskedRemote("srv", card.NetworkVisa, "3456", "Elvis Presley", 4, 2028)
	fields := fieldtype.InferFieldTypes([]fieldtype.Observation{{Index: 0, Value: "3456"}}, nil, []*card.Record{masked}, opts)
	require.False(t, fields[0].Types.Has(fieldtype.CardNumber))
}
