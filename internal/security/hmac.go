package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"errors"
	"fmt"
)

var ErrKeyMissing = errors.New("cvc key is required")

const domainStatic = "cvc2-v1"

// HMACProvider derives stable CVCs with HMAC-SHA256 and dynamic truncation.
// It is for development only; production codes come from an HSM.
type HMACProvider struct {
	key []byte
}

func NewHMACProvider(key []byte) (*HMACProvider, error) {
	if len(key) == 0 {
		return nil, ErrKeyMissing
	}
	return &HMACProvider{key: key}, nil
}

func (p *HMACProvider) ComputeCVC(panNoCD, yymm, sc string, width int) (string, error) {
	if err := ValidateInputs(panNoCD, yymm, sc); err != nil {
		return "", err
	}
	msg := []byte(panNoCD + "|" + yymm + "|" + sc + "|" + domainStatic)
	return hmacTruncatedDecimal(p.key, msg, normalizeWidth(width)), nil
}

func hmacTruncatedDecimal(key, msg []byte, width int) string {
	h := hmac.New(sha256.New, key)
	h.Write(msg)
	sum := h.Sum(nil)
	off := sum[len(sum)-1] & 0x0f
	code := (uint32(sum[off])&0x7f)<<24 |
		(uint32(sum[off+1])&0xff)<<16 |
		(uint32(sum[off+2])&0xff)<<8 |
		(uint32(sum[off+3]) & 0xff)
	if width == 4 {
		return fmt.Sprintf("%04d", code%10000)
	}
	return fmt.Sprintf("%03d", code%1000)
}

var _ CVCProvider = (*HMACProvider)(nil)
