package extract

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func almostEqual(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"25", 25, true},
		{"25.50", 25.5, true},
		{"12,99", 12.99, true},
		{"$30", 30, true},
		{"€8.20", 8.2, true},
		{"0", 0, false},
		{"lunch", 0, false},
		{"", 0, false},
	}
	for _, c := range cases {
		got, ok := ParseAmount(c.in)
		if ok != c.ok {
			t.Fatalf("ParseAmount(%q) ok = %v, want %v", c.in, ok, c.ok)
		}
		if c.ok && !almostEqual(got, c.want) {
			t.Fatalf("ParseAmount(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestHeuristicExtract(t *testing.T) {
	h := NewHeuristic()
	ctx := context.Background()

	cases := []struct {
		text         string
		wantMerchant string
		wantAmount   float64
		wantCurrency string
		wantConf     float64
	}{
		{"spent 25 at Starbucks", "Starbucks", 25, "", 0.9},
		{"paid $12.50 for lunch at Chipotle", "lunch Chipotle", 12.5, "USD", 0.9},
		{"€20 groceries", "groceries", 20, "EUR", 0.9},
		{"spent 40 bucks", "", 40, "", 0.6},
		{"hello there", "hello there", 0, "", 0.2},
	}
	for _, c := range cases {
		got, err := h.Extract(ctx, c.text)
		if err != nil {
			t.Fatalf("Extract(%q): %v", c.text, err)
		}
		if got.Merchant != c.wantMerchant {
			t.Fatalf("Extract(%q) merchant = %q, want %q", c.text, got.Merchant, c.wantMerchant)
		}
		if !almostEqual(got.Amount, c.wantAmount) {
			t.Fatalf("Extract(%q) amount = %v, want %v", c.text, got.Amount, c.wantAmount)
		}
		if got.Currency != c.wantCurrency {
			t.Fatalf("Extract(%q) currency = %q, want %q", c.text, got.Currency, c.wantCurrency)
		}
		if !almostEqual(got.Confidence, c.wantConf) {
			t.Fatalf("Extract(%q) confidence = %v, want %v", c.text, got.Confidence, c.wantConf)
		}
	}
}

func TestClientExtract(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/extract" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		var req struct {
			Text string `json:"text"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Text != "spent 25 at Starbucks" {
			t.Fatalf("unexpected text %q", req.Text)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(Fields{Merchant: "Starbucks", Amount: 25, Currency: "USD", Category: "coffee", Confidence: 0.97})
	}))
	defer ts.Close()

	c := NewClient(ts.URL, 5*time.Second)
	got, err := c.Extract(context.Background(), "spent 25 at Starbucks")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got.Merchant != "Starbucks" || got.Amount != 25 || got.Category != "coffee" {
		t.Fatalf("unexpected fields: %+v", got)
	}
}

func TestClientExtractServerError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer ts.Close()

	c := NewClient(ts.URL, 5*time.Second)
	if _, err := c.Extract(context.Background(), "anything"); err == nil {
		t.Fatal("expected error on 500 response")
	}
}
