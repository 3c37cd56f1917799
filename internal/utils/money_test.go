package utils

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestFormatMoney(t *testing.T) {
	cases := []struct {
		amount   string
		currency string
		want     string
	}{
		{"1250", "USD", "USD 1,250.00"},
		{"999.5", "EUR", "EUR 999.50"},
		{"1234567.891", "LYD", "LYD 1,234,567.89"},
		{"-42", "", "-42.00"},
	}
	for _, tc := range cases {
		if got := FormatMoney(decimal.RequireFromString(tc.amount), tc.currency); got != tc.want {
			t.Fatalf("FormatMoney(%s, %s) = %q, want %q", tc.amount, tc.currency, got, tc.want)
		}
	}
}

func TestParseFlexibleTime(t *testing.T) {
	for _, in := range []string{"2025-03-01T10:00:00Z", "2025-03-01 10:00:00", "2025-03-01"} {
		if _, err := ParseFlexibleTime(in); err != nil {
			t.Fatalf("expected %q to parse: %v", in, err)
		}
	}
	if _, err := ParseFlexibleTime("01/03/2025"); err == nil {
		t.Fatalf("expected unsupported layout to fail")
	}
}
