package card_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/alovak/cardsync/card"
)

var now = time.Date(2026, time.October, 17, 0, 0, 0, 0, time.UTC)

func TestNewLocal(t *testing.T) {
	r := card.NewLocal("4111 1111 1111 1111", "Elvis Presley", 12, 2030)
	require.NotEmpty(t, r.ID)
	require.Equal(t, card.KindLocal, r.Kind)
	require.Equal(t, "4111111111111111", r.Number())
	require.Equal(t, card.NetworkVisa, r.Network())
	require.Equal(t, "Visa ****1111", r.Label())
	require.True(t, r.HasFullNumber())
	require.NoError(t, r.Validate(now))
}

func TestSetNumber_RederivesNetwork(t *testing.T) {
	r := card.NewLocal("4111111111111111", "", 1, 2030)
	r.SetNumber("378282246310005")
	require.Equal(t, card.NetworkAmex, r.Network())
}

func TestMaskedRemote_KeepsLastFour(t *testing.T) {
	r := card.NewMaskedRemote("srv-1", card.NetworkMastercard, "5555555555554444", "A B", 1, 2030)
	require.Equal(t, "4444", r.Number())
	require.Equal(t, card.NetworkMastercard, r.Network())

	// Setting a number on a masked record never re-derives the network.
	r.SetNumber("4111111111111111")
	require.Equal(t, "1111", r.Number())
	require.Equal(t, card.NetworkMastercard, r.Network())
	require.False(t, r.HasFullNumber())
}

func TestExpirationSetters(t *testing.T) {
	r := card.NewLocal("4111111111111111", "", 0, 0)

	require.NoError(t, r.SetExpirationMonth(7))
	require.Equal(t, 7, r.ExpirationMonth())
	require.ErrorIs(t, r.SetExpirationMonth(13), card.ErrInvalidMonth)
	require.Equal(t, 0, r.ExpirationMonth())

	require.NoError(t, r.SetExpirationYearFromString("29", now))
	require.Equal(t, 2029, r.ExpirationYear())
	require.NoError(t, r.SetExpirationYearFromString("2031", now))
	require.Equal(t, 2031, r.ExpirationYear())

	for _, bad := range []string{"3000", "150", "1999", "x"} {
		err := r.SetExpirationYearFromString(bad, now)
		require.ErrorIs(t, err, card.ErrInvalidYear, bad)
		require.Equal(t, 0, r.ExpirationYear(), bad)
	}

	require.ErrorIs(t, r.SetExpirationYear(99), card.ErrInvalidYear)
	require.NoError(t, r.SetExpirationYear(0))
}

func TestSetExpirationMonthFromString(t *testing.T) {
	r := card.NewLocal("4111111111111111", "", 0, 0)
	require.NoError(t, r.SetExpirationMonthFromString("04", language.Und))
	require.Equal(t, 4, r.ExpirationMonth())

	require.Error(t, r.SetExpirationMonthFromString("April", language.Und))
	require.Equal(t, 0, r.ExpirationMonth())

	require.NoError(t, r.SetExpirationMonthFromString("April", language.English))
	require.Equal(t, 4, r.ExpirationMonth())
	require.NoError(t, r.SetExpirationMonthFromString("août", language.French))
	require.Equal(t, 8, r.ExpirationMonth())
	require.NoError(t, r.SetExpirationMonthFromString("Dec", language.AmericanEnglish))
	require.Equal(t, 12, r.ExpirationMonth())
}

func TestUnmasked(t *testing.T) {
	r := card.NewMaskedRemote("srv-1", card.NetworkVisa, "1111", "Elvis Presley", 1, 2020)
	r.RemoteStatus = card.StatusExpired

	require.NoError(t, r.Unmasked("4111111111111111", 5, 2031))
	require.Equal(t, card.KindFullRemote, r.Kind)
	require.Equal(t, "4111111111111111", r.Number())
	require.Equal(t, 5, r.ExpirationMonth())
	require.Equal(t, 2031, r.ExpirationYear())
	require.Equal(t, card.StatusOK, r.RemoteStatus)

	err := r.Unmasked("4111111111111111", 0, 0)
	require.True(t, errors.Is(err, card.ErrNotMasked))
}

func TestUnmasked_Mismatch(t *testing.T) {
	r := card.NewMaskedRemote("srv-1", card.NetworkVisa, "1111", "", 1, 2030)
	require.ErrorIs(t, r.Unmasked("4012888888881881", 0, 0), card.ErrNumberMismatch)
	require.Equal(t, card.KindMaskedRemote, r.Kind)
}

func TestIsExpiredAndDisplay(t *testing.T) {
	r := card.NewMaskedRemote("srv-1", card.NetworkAmex, "0005", "", 9, 2026)
	require.True(t, r.IsExpired(now))
	info := r.Display(now)
	require.True(t, info.Expired)
	require.Equal(t, 4, info.CVCLength)
	require.Equal(t, "Amex ****0005", info.Label)
	require.True(t, r.ValidSecurityCode("1234"))
	require.False(t, r.ValidSecurityCode("123"))
	require.Equal(t, "09/26", r.ExpirationFace())
}

func TestKindString(t *testing.T) {
	require.Equal(t, "masked_remote", card.KindMaskedRemote.String())
	require.True(t, card.KindFullRemote.IsRemote())
	require.False(t, card.KindLocal.IsRemote())
}
