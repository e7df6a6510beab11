// Package split computes how an expense divides among participants.
package split

import "math"

// Share is one participant's portion of an expense.
type Share struct {
	Name   string  `json:"name"`
	Amount float64 `json:"amount"`
}

// Computer decides how a total divides among participants.
type Computer interface {
	Compute(total float64, payer string, participants []string) []Share
}

// Even splits the total equally. Arithmetic runs in cents so the shares
// always sum to the total; the payer absorbs the remainder cents.
type Even struct{}

func NewEven() Even { return Even{} }

func (Even) Compute(total float64, payer string, participants []string) []Share {
	people := make([]string, 0, len(participants)+1)
	hasPayer := false
	for _, p := range participants {
		if p == "" {
			continue
		}
		if p == payer {
			hasPayer = true
		}
		people = append(people, p)
	}
	if payer != "" && !hasPayer {
		people = append([]string{payer}, people...)
	}
	if len(people) == 0 {
		return nil
	}

	cents := int64(math.Round(total * 100))
	per := cents / int64(len(people))
	rem := cents % int64(len(people))

	shares := make([]Share, len(people))
	for i, p := range people {
		c := per
		if p == payer {
			c += rem
		}
		shares[i] = Share{Name: p, Amount: float64(c) / 100}
	}
	// No payer in the list: the first participant absorbs the remainder.
	if payer == "" && rem != 0 {
		shares[0].Amount = float64(per+rem) / 100
	}
	return shares
}
