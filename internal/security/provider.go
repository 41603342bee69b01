// Package security computes the card verification codes the development
// wallet service checks during unmasking.
package security

import (
	"fmt"

	"github.com/alovak/cardsync/card"
	"github.com/alovak/cardsync/internal/cardgen"
	"github.com/alovak/cardsync/internal/expiry"
)

// DefaultServiceCode is the magnetic-stripe service code used for CVC2.
const DefaultServiceCode = "000"

// CVCProvider computes a CVC from the number without its check digit, the
// expiration as YYMM and a 3-digit service code. width is 3 or 4.
type CVCProvider interface {
	ComputeCVC(panNoCD, expiryYYMM, serviceCode string, width int) (string, error)
}

// CVCFor derives the CVC of a card, picking the width from its network.
func CVCFor(p CVCProvider, pan string, year, month int) (string, error) {
	pan = cardgen.NormalizePAN(pan)
	if len(pan) < 13 || !cardgen.IsDigits(pan) {
		return "", fmt.Errorf("invalid pan")
	}
	width := card.SecurityCodeLength(card.ClassifyNetwork(pan))
	return p.ComputeCVC(stripCheckDigit(pan), expiry.YYMM(year, month), DefaultServiceCode, width)
}

func stripCheckDigit(pan string) string {
	if pan == "" {
		return pan
	}
	return pan[:len(pan)-1]
}

func normalizeWidth(width int) int {
	if width == 4 {
		return 4
	}
	return 3
}

// ValidateInputs checks the shared provider inputs.
func ValidateInputs(panNoCD, yymm, sc string) error {
	if err := expiry.ValidateYYMM(yymm); err != nil {
		return err
	}
	if len(sc) != 3 || !cardgen.IsDigits(sc) {
		return fmt.Errorf("service code must be 3 digits")
	}
	if panNoCD == "" || !cardgen.IsDigits(panNoCD) {
		return fmt.Errorf("panNoCD must be digits only")
	}
	if l := len(panNoCD); l < 11 || l > 18 {
		return fmt.Errorf("panNoCD length must be 11..18 (got %d)", l)
	}
	return nil
}
