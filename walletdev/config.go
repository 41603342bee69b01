package walletdev

import (
	"os"
	"strconv"
	"time"
)

// Config is a configuration for the development wallet service
type Config struct {
	HTTPAddr string
	// TokenKey signs and verifies bearer tokens.
	TokenKey string
	TokenTTL time.Duration
	// ExpiryTZ is an IANA timezone name for expiration checks (e.g., "Australia/Sydney").
	ExpiryTZ string

	// Backend selects the card store: "mem" or "pg".
	Backend    string
	DSN        string
	PANHashKey string

	// CVCProvider is "hmac" or "softhsm" (needs the softhsm build tag).
	CVCProvider string
	CVCKey      string
	HSMLib      string
	HSMSlot     uint
	HSMPIN      string
	HSMLabel    string
}

func DefaultConfig() *Config {
	return &Config{
		HTTPAddr:    "localhost:8088",
		TokenKey:    "dev-token-key",
		TokenTTL:    time.Hour,
		Backend:     "mem",
		PANHashKey:  "dev-secret-pepper",
		CVCProvider: "hmac",
		CVCKey:      "dev-cvk-not-for-production",
		HSMLabel:    "CVK",
	}
}

// ConfigFromEnv overlays environment variables on DefaultConfig.
func ConfigFromEnv() *Config {
	c := DefaultConfig()
	c.HTTPAddr = getenv("HTTP_ADDR", c.HTTPAddr)
	c.TokenKey = getenv("TOKEN_KEY", c.TokenKey)
	if d, err := time.ParseDuration(getenv("TOKEN_TTL", "")); err == nil {
		c.TokenTTL = d
	}
	c.ExpiryTZ = getenv("EXPIRY_TZ", c.ExpiryTZ)
	c.Backend = getenv("REPO_BACKEND", c.Backend)
	c.DSN = getenv("DB_DSN", c.DSN)
	c.PANHashKey = getenv("PAN_HASH_KEY", c.PANHashKey)
	c.CVCProvider = getenv("CVC_PROVIDER", c.CVCProvider)
	c.CVCKey = getenv("CVK_DEMO", c.CVCKey)
	c.HSMLib = getenv("HSM_LIB", c.HSMLib)
	if slot, err := strconv.ParseUint(getenv("HSM_SLOT", ""), 10, 32); err == nil {
		c.HSMSlot = uint(slot)
	}
	c.HSMPIN = getenv("HSM_PIN", c.HSMPIN)
	c.HSMLabel = getenv("HSM_CVK_LABEL", c.HSMLabel)
	return c
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
