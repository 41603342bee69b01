package main

import (
	"testing"

	"github.com/alovak/cardsync/card"
	"github.com/alovak/cardsync/internal/cardgen"
)

func TestNormalizeCardName(t *testing.T) {
	cases := []struct {
		in  string
		out string
	}{
		{"", ""},
		{"   ", ""},
		{"john  doe", "JOHN DOE"},
		{"  Alice\tSmith  ", "ALICE SMITH"},
		{"very very very very very long name here", "VERY VERY VERY VERY VERY L"}, // 26 chars
	}
	for _, c := range cases {
		got := normalizeCardName(c.in)
		if got != c.out {
			t.Fatalf("normalizeCardName(%q) = %q want %q", c.in, got, c.out)
		}
	}
}

func TestPrefixForGeneratesValidNumbers(t *testing.T) {
	networks := []card.Network{
		card.NetworkVisa, card.NetworkMastercard, card.NetworkAmex, card.NetworkDiscover,
		card.NetworkJCB, card.NetworkDiners, card.NetworkMir, card.NetworkUnionPay,
	}
	for _, n := range networks {
		prefix, length, err := prefixFor(n)
		if err != nil {
			t.Fatalf("prefixFor(%s): %v", n, err)
		}
		pan, err := cardgen.GeneratePAN(prefix, length, "")
		if err != nil {
			t.Fatalf("GeneratePAN(%s): %v", n, err)
		}
		if got := card.ClassifyNetwork(pan); got != n {
			t.Fatalf("%s classified as %s", pan, got)
		}
		if !card.ValidateNumber(pan) {
			t.Fatalf("%s (%s) failed validation", pan, n)
		}
	}

	if _, _, err := prefixFor(card.NetworkGeneric); err == nil {
		t.Fatal("expected error for generic network")
	}
}
