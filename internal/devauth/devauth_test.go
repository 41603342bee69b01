package devauth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMintVerify(t *testing.T) {
	iss, err := NewIssuer([]byte("secret"), time.Minute)
	require.NoError(t, err)

	token, err := iss.Mint("user-1")
	require.NoError(t, err)

	claims, err := iss.Verify(token)
	require.NoError(t, err)
	require.Equal(t, "user-1", claims.Subject)
	require.Equal(t, "payments", claims.Scope)
}

func TestVerifyRejects(t *testing.T) {
	iss, err := NewIssuer([]byte("secret"), time.Minute)
	require.NoError(t, err)
	other, err := NewIssuer([]byte("other"), time.Minute)
	require.NoError(t, err)

	token, err := other.Mint("user-1")
	require.NoError(t, err)
	_, err = iss.Verify(token)
	require.True(t, errors.Is(err, ErrInvalidToken))

	_, err = iss.Verify("not-a-token")
	require.ErrorIs(t, err, ErrInvalidToken)

	// expired
	iss.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	old, err := iss.Mint("user-1")
	require.NoError(t, err)
	iss.now = time.Now
	_, err = iss.Verify(old)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestNewIssuerNeedsKey(t *testing.T) {
	_, err := NewIssuer(nil, time.Minute)
	require.ErrorIs(t, err, ErrNoKey)
}

func TestProviderInvalidate(t *testing.T) {
	iss, err := NewIssuer([]byte("secret"), time.Minute)
	require.NoError(t, err)
	p := NewProvider(iss, "user-1")
	ctx := context.Background()

	first, err := p.Token(ctx, false)
	require.NoError(t, err)
	again, err := p.Token(ctx, false)
	require.NoError(t, err)
	require.Equal(t, first, again)

	fresh, err := p.Token(ctx, true)
	require.NoError(t, err)
	require.NotEqual(t, first, fresh)
}
