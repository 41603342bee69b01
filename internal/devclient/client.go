// Package devclient talks to the unauthenticated /dev routes of the
// development wallet service.
package devclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

var ErrNumberExists = errors.New("wallet reports the card number already exists")

type Client struct {
	Base string
	HTTP *http.Client
}

func New(base string, hc *http.Client) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{Base: strings.TrimRight(base, "/"), HTTP: hc}
}

type SeedReq struct {
	PAN             string `json:"pan"` // dev only
	CardholderName  string `json:"cardholder_name,omitempty"`
	ExpirationMonth int    `json:"expiration_month"`
	ExpirationYear  int    `json:"expiration_year"`
}

type SeedResp struct {
	CreditCardID string `json:"credit_card_id"`
	Network      string `json:"network"`
	LastFour     string `json:"last4"`
	CardFace     string `json:"card_face"`
}

// EnsureNumberUnique fails with ErrNumberExists when the service already
// holds pan. A service without the check endpoint is treated as unique.
func (c *Client) EnsureNumberUnique(ctx context.Context, pan string) error {
	u, err := url.Parse(c.Base + "/dev/cards/unique-check")
	if err != nil {
		return fmt.Errorf("parse base: %w", err)
	}
	q := u.Query()
	q.Set("pan", pan)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("unique-check: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil
	}
	if resp.StatusCode/100 != 2 {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("unique-check status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(b)))
	}

	var payload struct {
		Unique bool `json:"unique"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return fmt.Errorf("decode unique-check: %w", err)
	}
	if !payload.Unique {
		return ErrNumberExists
	}
	return nil
}

// SeedCard stores a card on the service without the upload handshake.
func (c *Client) SeedCard(ctx context.Context, in SeedReq) (SeedResp, error) {
	b, err := json.Marshal(in)
	if err != nil {
		return SeedResp{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Base+"/dev/cards", bytes.NewReader(b))
	if err != nil {
		return SeedResp{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return SeedResp{}, fmt.Errorf("seed card: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		body, _ := io.ReadAll(resp.Body)
		return SeedResp{}, fmt.Errorf("seed card status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	var out SeedResp
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return SeedResp{}, fmt.Errorf("decode seed card: %w", err)
	}
	return out, nil
}
