package quote

import (
	"github.com/oscar-alvarez-quenty/Quenty-sub001/pkg/carrier"
)

// Weights controls how the recommendation balances price, speed, and
// reliability. The three weights should sum to 1.
type Weights struct {
	Cost        float64
	Transit     float64
	Reliability float64
}

// DefaultWeights returns the stock recommendation weights.
func DefaultWeights() Weights {
	return Weights{Cost: 0.5, Transit: 0.3, Reliability: 0.2}
}

// Ranking holds the three picks over a set of quotes.
type Ranking struct {
	Cheapest    *carrier.Quote
	Fastest     *carrier.Quote
	Recommended *carrier.Quote
}

// Rank scores a set of quotes and returns the cheapest, fastest, and
// recommended offers. It is a pure function: equal inputs give equal
// outputs, with ties broken deterministically.
//
// Cheapest is the lowest total, ties broken by carrier code. Fastest is
// the fewest transit days, ties broken by total then carrier code.
// Recommended minimizes a weighted blend of min-max normalized cost,
// transit days, and inverted confidence.
func Rank(quotes []carrier.Quote, w Weights) Ranking {
	if len(quotes) == 0 {
		return Ranking{}
	}

	cheapest := 0
	fastest := 0
	for i := 1; i < len(quotes); i++ {
		if lessByCost(quotes[i], quotes[cheapest]) {
			cheapest = i
		}
		if lessByTransit(quotes[i], quotes[fastest]) {
			fastest = i
		}
	}

	minCost, maxCost := bounds(quotes, func(q carrier.Quote) float64 { return q.Cost.Total.Amount })
	minDays, maxDays := bounds(quotes, func(q carrier.Quote) float64 { return float64(q.TransitDays) })

	recommended := 0
	bestScore := score(quotes[0], w, minCost, maxCost, minDays, maxDays)
	for i := 1; i < len(quotes); i++ {
		s := score(quotes[i], w, minCost, maxCost, minDays, maxDays)
		if s < bestScore || (s == bestScore && quotes[i].CarrierCode < quotes[recommended].CarrierCode) {
			recommended = i
			bestScore = s
		}
	}

	return Ranking{
		Cheapest:    &quotes[cheapest],
		Fastest:     &quotes[fastest],
		Recommended: &quotes[recommended],
	}
}

func lessByCost(a, b carrier.Quote) bool {
	if a.Cost.Total.Amount != b.Cost.Total.Amount {
		return a.Cost.Total.Amount < b.Cost.Total.Amount
	}
	return a.CarrierCode < b.CarrierCode
}

func lessByTransit(a, b carrier.Quote) bool {
	if a.TransitDays != b.TransitDays {
		return a.TransitDays < b.TransitDays
	}
	if a.Cost.Total.Amount != b.Cost.Total.Amount {
		return a.Cost.Total.Amount < b.Cost.Total.Amount
	}
	return a.CarrierCode < b.CarrierCode
}

func bounds(quotes []carrier.Quote, value func(carrier.Quote) float64) (float64, float64) {
	lo, hi := value(quotes[0]), value(quotes[0])
	for _, q := range quotes[1:] {
		v := value(q)
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}

func score(q carrier.Quote, w Weights, minCost, maxCost, minDays, maxDays float64) float64 {
	return w.Cost*normalize(q.Cost.Total.Amount, minCost, maxCost) +
		w.Transit*normalize(float64(q.TransitDays), minDays, maxDays) +
		w.Reliability*(1-q.Confidence)
}

// normalize maps v into [0,1] over [lo,hi]. A degenerate range scores 0,
// so a dimension all quotes agree on does not influence the pick.
func normalize(v, lo, hi float64) float64 {
	if hi == lo {
		return 0
	}
	return (v - lo) / (hi - lo)
}
