//go:build softhsm

package walletdev

import (
	"fmt"

	"github.com/alovak/cardsync/internal/security"
	"github.com/alovak/cardsync/internal/security/hsm"
)

func openHSM(cfg *Config) (security.CVCProvider, func(), error) {
	p := hsm.New(hsm.Config{
		LibPath:  cfg.HSMLib,
		SlotID:   cfg.HSMSlot,
		PIN:      cfg.HSMPIN,
		CVKLabel: cfg.HSMLabel,
	})
	if err := p.Open(); err != nil {
		return nil, nil, fmt.Errorf("opening hsm: %w", err)
	}
	return p, p.Close, nil
}
