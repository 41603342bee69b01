//go:build !softhsm

package walletdev

import (
	"errors"

	"github.com/alovak/cardsync/internal/security"
)

func openHSM(*Config) (security.CVCProvider, func(), error) {
	return nil, nil, errors.New("CVC_PROVIDER=softhsm needs a build with -tags softhsm")
}
