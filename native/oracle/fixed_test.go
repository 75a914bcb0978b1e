package oracle

import (
	"math/big"
	"testing"
)

func TestParseFixed(t *testing.T) {
	src, err := ParseFixed("gold", "3/2")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if src.Name() != "gold" {
		t.Fatalf("name = %q, want gold", src.Name())
	}

	out, err := src.Quote(big.NewInt(100))
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if out.Cmp(big.NewInt(150)) != 0 {
		t.Fatalf("quote = %s, want 150", out)
	}

	// Flooring toward zero.
	out, err = src.Quote(big.NewInt(1))
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if out.Cmp(big.NewInt(1)) != 0 {
		t.Fatalf("quote = %s, want 1 (3/2 floored)", out)
	}
}

func TestParseFixedBareInteger(t *testing.T) {
	src, err := ParseFixed("unit", "2")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	out, err := src.Quote(big.NewInt(7))
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if out.Cmp(big.NewInt(14)) != 0 {
		t.Fatalf("quote = %s, want 14", out)
	}
}

func TestParseFixedRejectsInvalid(t *testing.T) {
	cases := []struct {
		name string
		rate string
	}{
		{"empty", ""},
		{"garbage", "abc"},
		{"zero", "0"},
		{"negative", "-1/2"},
	}
	for _, tc := range cases {
		if _, err := ParseFixed("x", tc.rate); err == nil {
			t.Fatalf("%s rate %q accepted", tc.name, tc.rate)
		}
	}
	if _, err := NewFixed("  ", big.NewRat(1, 1)); err == nil {
		t.Fatal("blank name accepted")
	}
}

func TestQuoteRejectsNegative(t *testing.T) {
	src, err := ParseFixed("unit", "1")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if _, err := src.Quote(big.NewInt(-1)); err == nil {
		t.Fatal("negative amount accepted")
	}
	if _, err := src.Quote(nil); err == nil {
		t.Fatal("nil amount accepted")
	}
	out, err := src.Quote(big.NewInt(0))
	if err != nil || out.Sign() != 0 {
		t.Fatalf("zero quote = %s err=%v", out, err)
	}
}
