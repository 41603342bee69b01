// Command testcard prints Luhn-valid test cards for a network and can seed
// them into a running walletdev.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/alovak/cardsync/card"
	"github.com/alovak/cardsync/internal/cardgen"
	"github.com/alovak/cardsync/internal/devclient"
	"github.com/alovak/cardsync/internal/expiry"
	"github.com/alovak/cardsync/internal/security"
)

var (
	flagNetwork  = flag.String("network", "visa", "visa|mastercard|amex|discover|jcb|diners|mir|unionpay")
	flagBIN      = flag.String("bin", "", "prefix override (digits)")
	flagSequence = flag.String("sequence", "", "optional numeric sequence (before check digit)")
	flagYears    = flag.Int("years", 3, "validity in years")
	flagCardName = flag.String("card-name", "", "cardholder name for card face imprint")
	flagShowCVC  = flag.Bool("show-cvc", false, "print the demo CVC (DANGEROUS; for demo only)")
	flagVerbose  = flag.Bool("verbose", false, "print full PAN (otherwise masked)")
	flagCVK      = flag.String("cvk", getenv("CVK_DEMO", "dev-cvk-not-for-production"), "demo CVC key, must match walletdev")
	flagWallet   = flag.String("wallet", "", "walletdev base URL; when set the card is seeded there")
)

func main() {
	flag.Parse()
	if *flagYears <= 0 {
		fail("-years must be positive")
	}

	network := card.Network(strings.ToLower(*flagNetwork))
	prefix, length, err := prefixFor(network)
	must(err)
	if *flagBIN != "" {
		prefix = *flagBIN
	}

	pan := must1(cardgen.GeneratePAN(prefix, length, *flagSequence))
	if got := card.ClassifyNetwork(pan); got != network {
		fail("prefix %s classifies as %s, not %s", prefix, got, network)
	}
	if !card.ValidateNumber(pan) {
		fail("generated number %s failed validation", cardgen.MaskPAN(pan))
	}

	now := time.Now()
	month, year := int(now.Month()), now.Year()+*flagYears
	cardName := normalizeCardName(*flagCardName)

	printPAN := cardgen.MaskPAN(pan)
	if *flagVerbose {
		printPAN = pan + "   (WARNING: printing full PAN)"
	}
	fmt.Printf("NETWORK: %s\nPAN: %s\nEXP(card-face): %s  EXP(api): %s\n",
		network.DisplayName(), printPAN, expiry.CardFace(year, month), expiry.YYMM(year, month))
	if cardName != "" {
		fmt.Printf("NAME(card-face): %s\n", cardName)
	} else {
		fmt.Println("NAME(card-face): (provide --card-name to imprint)")
	}

	if *flagShowCVC {
		provider := must1(security.NewHMACProvider([]byte(*flagCVK)))
		fmt.Printf("CVC(demo): %s\n", must1(security.CVCFor(provider, pan, year, month)))
	}

	if *flagWallet == "" {
		return
	}
	cli := devclient.New(*flagWallet, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	must(cli.EnsureNumberUnique(ctx, pan))
	out := must1(cli.SeedCard(ctx, devclient.SeedReq{
		PAN:             pan,
		CardholderName:  cardName,
		ExpirationMonth: month,
		ExpirationYear:  year,
	}))
	fmt.Printf("Seeded as %s (%s)\n", out.CreditCardID, out.CardFace)
}

// prefixFor returns a default prefix and length for a network.
func prefixFor(n card.Network) (string, int, error) {
	switch n {
	case card.NetworkVisa:
		return "4", 16, nil
	case card.NetworkMastercard:
		return "51", 16, nil
	case card.NetworkAmex:
		return "37", 15, nil
	case card.NetworkDiscover:
		return "6011", 16, nil
	case card.NetworkJCB:
		return "3530", 16, nil
	case card.NetworkDiners:
		return "36", 14, nil
	case card.NetworkMir:
		return "2200", 16, nil
	case card.NetworkUnionPay:
		return "62", 16, nil
	default:
		return "", 0, fmt.Errorf("unsupported network %q", n)
	}
}

func normalizeCardName(name string) string {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return ""
	}
	up := strings.ToUpper(strings.Join(strings.Fields(trimmed), " "))
	if len(up) > 26 {
		return up[:26]
	}
	return up
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func must(err error) {
	if err != nil {
		fail("%v", err)
	}
}

func must1[T any](v T, err error) T {
	if err != nil {
		fail("%v", err)
	}
	return v
}

func fail(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}
