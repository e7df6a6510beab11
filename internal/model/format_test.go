package model

import "testing"

func TestFormatAmount(t *testing.T) {
	cases := []struct {
		amount   float64
		currency string
		want     string
	}{
		{25, "USD", "$25.00"},
		{25.5, "usd", "$25.50"},
		{30, "", "$30.00"},
		{12.345, "EUR", "€12.35"},
		{9.9, "GBP", "£9.90"},
		{100, "JPY", "JPY 100.00"},
		{7.25, "cad", "CAD 7.25"},
	}
	for _, tc := range cases {
		if got := FormatAmount(tc.amount, tc.currency); got != tc.want {
			t.Fatalf("FormatAmount(%v, %q): want %q, got %q", tc.amount, tc.currency, got, tc.want)
		}
	}
}

func TestTxStatusMutable(t *testing.T) {
	for _, s := range []TxStatus{TxPending, TxConfirmed, TxPersonal} {
		if !s.Mutable() {
			t.Fatalf("%s should be mutable", s)
		}
	}
	if TxDeleted.Mutable() {
		t.Fatal("deleted must not be mutable")
	}
}
