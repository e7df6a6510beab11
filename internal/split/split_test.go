package split

import (
	"math"
	"testing"
)

func TestEvenSplitExact(t *testing.T) {
	shares := NewEven().Compute(30, "ana", []string{"ana", "ben", "cal"})
	if len(shares) != 3 {
		t.Fatalf("want 3 shares, got %d", len(shares))
	}
	for _, s := range shares {
		if s.Amount != 10 {
			t.Fatalf("uneven share: %+v", shares)
		}
	}
}

func TestEvenSplitPayerAbsorbsRemainder(t *testing.T) {
	shares := NewEven().Compute(10, "ana", []string{"ana", "ben", "cal"})
	var total float64
	var payerShare float64
	for _, s := range shares {
		total += s.Amount
		if s.Name == "ana" {
			payerShare = s.Amount
		}
	}
	if math.Abs(total-10) > 1e-9 {
		t.Fatalf("shares must sum to total: %v", shares)
	}
	if payerShare != 3.34 {
		t.Fatalf("payer should absorb the remainder cent: %+v", shares)
	}
}

func TestEvenSplitAddsMissingPayer(t *testing.T) {
	shares := NewEven().Compute(20, "ana", []string{"ben"})
	if len(shares) != 2 || shares[0].Name != "ana" {
		t.Fatalf("payer should join the split: %+v", shares)
	}
	if shares[0].Amount != 10 || shares[1].Amount != 10 {
		t.Fatalf("even halves expected: %+v", shares)
	}
}

func TestEvenSplitNoParticipants(t *testing.T) {
	if shares := NewEven().Compute(20, "", nil); shares != nil {
		t.Fatalf("no participants should produce no shares: %+v", shares)
	}
}
