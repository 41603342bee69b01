package card

import (
	"strconv"

	"github.com/alovak/cardsync/internal/cardgen"
)

// Network is the issuer network derived from a card number prefix.
type Network string

const (
	NetworkGeneric    Network = "generic"
	NetworkVisa       Network = "visa"
	NetworkMastercard Network = "mastercard"
	NetworkAmex       Network = "amex"
	NetworkDiners     Network = "diners"
	NetworkDiscover   Network = "discover"
	NetworkJCB        Network = "jcb"
	NetworkMir        Network = "mir"
	NetworkUnionPay   Network = "unionpay"
)

// DisplayName is the network name shown next to the last four digits.
func (n Network) DisplayName() string {
	switch n {
	case NetworkVisa:
		return "Visa"
	case NetworkMastercard:
		return "Mastercard"
	case NetworkAmex:
		return "Amex"
	case NetworkDiners:
		return "Diners Club"
	case NetworkDiscover:
		return "Discover"
	case NetworkJCB:
		return "JCB"
	case NetworkMir:
		return "Mir"
	case NetworkUnionPay:
		return "UnionPay"
	default:
		return "Card"
	}
}

type prefixRange struct {
	lo, hi  int
	network Network
}

// Ranges are grouped by prefix length and checked longest first.
var prefixRanges = map[int][]prefixRange{
	4: {
		{2200, 2204, NetworkMir},
		{2221, 2720, NetworkMastercard},
		{3528, 3589, NetworkJCB},
		{6011, 6011, NetworkDiscover},
	},
	3: {
		{300, 305, NetworkDiners},
		{309, 309, NetworkDiners},
		{644, 649, NetworkDiscover},
	},
	2: {
		{34, 34, NetworkAmex},
		{36, 36, NetworkDiners},
		{37, 37, NetworkAmex},
		{38, 39, NetworkDiners},
		{51, 55, NetworkMastercard},
		{62, 62, NetworkUnionPay},
		{65, 65, NetworkDiscover},
	},
	1: {
		{4, 4, NetworkVisa},
	},
}

// ClassifyNetwork derives the network from the leading digits of number.
// Separators are stripped first; anything unrecognized is NetworkGeneric.
func ClassifyNetwork(number string) Network {
	digits := cardgen.NormalizePAN(number)
	for _, l := range []int{4, 3, 2, 1} {
		if len(digits) < l {
			continue
		}
		prefix := digits[:l]
		if !cardgen.IsDigits(prefix) {
			continue
		}
		v, err := strconv.Atoi(prefix)
		if err != nil {
			continue
		}
		for _, r := range prefixRanges[l] {
			if v >= r.lo && v <= r.hi {
				return r.network
			}
		}
	}
	return NetworkGeneric
}

// validLength reports whether n digits is an acceptable length for network.
func validLength(network Network, n int) bool {
	switch network {
	case NetworkAmex:
		return n == 15
	case NetworkVisa:
		return n == 13 || n == 16
	case NetworkMastercard:
		return n == 16
	case NetworkDiners:
		return n >= 14 && n <= 19
	case NetworkDiscover, NetworkJCB, NetworkMir, NetworkUnionPay:
		return n >= 16 && n <= 19
	default:
		return n >= 12 && n <= 19
	}
}

// requiresLuhn is false only for UnionPay, whose numbers are not always
// issued with a valid mod-10 check digit.
func requiresLuhn(network Network) bool {
	return network != NetworkUnionPay
}

// SecurityCodeLength is 4 for Amex and 3 for every other network.
func SecurityCodeLength(network Network) int {
	if network == NetworkAmex {
		return 4
	}
	return 3
}
