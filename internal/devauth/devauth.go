// Package devauth mints and verifies HS256 bearer tokens for the
// development wallet service.
package devauth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const issuerName = "cardsync-walletdev"

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrNoKey        = errors.New("signing key is empty")
)

type Claims struct {
	Scope string `json:"scope,omitempty"`
	jwt.RegisteredClaims
}

// Issuer signs and checks tokens with a shared key.
type Issuer struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

func NewIssuer(key []byte, ttl time.Duration) (*Issuer, error) {
	if len(key) == 0 {
		return nil, ErrNoKey
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Issuer{key: key, ttl: ttl, now: time.Now}, nil
}

// Mint returns a signed token for subject. Every token carries a fresh ID
// so two tokens minted in the same second differ.
func (i *Issuer) Mint(subject string) (string, error) {
	now := i.now()
	claims := Claims{
		Scope: "payments",
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    issuerName,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.key)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

func (i *Issuer) Verify(token string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return i.key, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuerName),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return claims, nil
}

// Provider caches one token and mints a new one when asked to invalidate.
type Provider struct {
	issuer  *Issuer
	subject string

	mu      sync.Mutex
	current string
}

func NewProvider(issuer *Issuer, subject string) *Provider {
	return &Provider{issuer: issuer, subject: subject}
}

func (p *Provider) Token(ctx context.Context, invalidate bool) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current != "" && !invalidate {
		return p.current, nil
	}
	token, err := p.issuer.Mint(p.subject)
	if err != nil {
		return "", err
	}
	p.current = token
	return token, nil
}
