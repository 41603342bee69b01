package profile_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alovak/cardsync/profile"
)

func TestName(t *testing.T) {
	n := profile.Name{First: "Elvis", Middle: "Aaron", Last: "Presley"}
	require.Equal(t, "Elvis Aaron Presley", n.FullName())
	require.Equal(t, "A", n.MiddleInitial())

	n = profile.Name{First: "Elvis", Last: "Presley"}
	require.Equal(t, "Elvis Presley", n.FullName())
	require.Equal(t, "", n.MiddleInitial())

	n.Full = "The King"
	require.Equal(t, "The King", n.FullName())
}

func TestStreetAddress(t *testing.T) {
	p := profile.New()
	require.NotEmpty(t, p.ID)
	require.False(t, p.HasAddress())

	p.Line1 = "3734 Elvis Presley Blvd."
	require.Equal(t, "3734 Elvis Presley Blvd.", p.StreetAddress())
	p.Line2 = "Apt 10"
	require.Equal(t, "3734 Elvis Presley Blvd.\nApt 10", p.StreetAddress())
	require.True(t, p.HasAddress())
}

func TestParsePhone_US(t *testing.T) {
	parts, ok := profile.ParsePhone("+1 (650) 555-1234", "US")
	require.True(t, ok)
	require.Equal(t, "1", parts.CountryCode)
	require.Equal(t, "650", parts.CityCode)
	require.Equal(t, "5551234", parts.Number)
	require.Equal(t, "16505551234", parts.WholeNumber())
	require.Equal(t, "6505551234", parts.CityAndNumber())
	require.Equal(t, "555", parts.Prefix())
	require.Equal(t, "1234", parts.Suffix())
}

func TestParsePhone_DefaultRegion(t *testing.T) {
	parts, ok := profile.ParsePhone("650-555-1234", "")
	require.True(t, ok)
	require.Equal(t, "1", parts.CountryCode)
	require.Equal(t, "6505551234", parts.CityAndNumber())
}

func TestParsePhone_Empty(t *testing.T) {
	_, ok := profile.ParsePhone("  ", "US")
	require.False(t, ok)
	_, ok = profile.ParsePhone("call me", "US")
	require.False(t, ok)
}
