package quote_test

import (
	"testing"

	"github.com/oscar-alvarez-quenty/Quenty-sub001/pkg/carrier"
	"github.com/oscar-alvarez-quenty/Quenty-sub001/pkg/quote"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func q(code string, total float64, days int, confidence float64) carrier.Quote {
	return carrier.Quote{
		CarrierCode:  code,
		ServiceLevel: carrier.ServiceStandard,
		Cost: carrier.CostBreakdown{
			Total: carrier.Money{Amount: total, Currency: "USD"},
		},
		TransitDays: days,
		Confidence:  confidence,
	}
}

func TestRank_Empty(t *testing.T) {
	r := quote.Rank(nil, quote.DefaultWeights())
	assert.Nil(t, r.Cheapest)
	assert.Nil(t, r.Fastest)
	assert.Nil(t, r.Recommended)
}

func TestRank_SingleQuoteWinsEverything(t *testing.T) {
	quotes := []carrier.Quote{q("dhl", 42.00, 3, 0.9)}

	r := quote.Rank(quotes, quote.DefaultWeights())

	require.NotNil(t, r.Cheapest)
	assert.Equal(t, "dhl", r.Cheapest.CarrierCode)
	assert.Equal(t, "dhl", r.Fastest.CarrierCode)
	assert.Equal(t, "dhl", r.Recommended.CarrierCode)
}

func TestRank_CheapestAndFastest(t *testing.T) {
	quotes := []carrier.Quote{
		q("dhl", 45.00, 2, 0.92),
		q("ups", 38.00, 5, 0.85),
		q("fedex", 52.00, 1, 0.95),
	}

	r := quote.Rank(quotes, quote.DefaultWeights())

	assert.Equal(t, "ups", r.Cheapest.CarrierCode)
	assert.Equal(t, "fedex", r.Fastest.CarrierCode)
}

func TestRank_RecommendedBalancesDimensions(t *testing.T) {
	// ups is cheapest but slow, fedex fastest but dear; dhl is close to
	// both fronts and wins the blend.
	quotes := []carrier.Quote{
		q("dhl", 40.00, 2, 0.92),
		q("ups", 38.00, 6, 0.80),
		q("fedex", 60.00, 1, 0.95),
	}

	r := quote.Rank(quotes, quote.DefaultWeights())

	assert.Equal(t, "dhl", r.Recommended.CarrierCode)
}

func TestRank_WeightsSteerRecommendation(t *testing.T) {
	quotes := []carrier.Quote{
		q("cheap", 10.00, 9, 0.70),
		q("fast", 90.00, 1, 0.70),
	}

	costOnly := quote.Rank(quotes, quote.Weights{Cost: 1})
	assert.Equal(t, "cheap", costOnly.Recommended.CarrierCode)

	speedOnly := quote.Rank(quotes, quote.Weights{Transit: 1})
	assert.Equal(t, "fast", speedOnly.Recommended.CarrierCode)
}

func TestRank_TiesBreakByCarrierCode(t *testing.T) {
	quotes := []carrier.Quote{
		q("zeta", 25.00, 3, 0.85),
		q("alpha", 25.00, 3, 0.85),
	}

	r := quote.Rank(quotes, quote.DefaultWeights())

	assert.Equal(t, "alpha", r.Cheapest.CarrierCode)
	assert.Equal(t, "alpha", r.Fastest.CarrierCode)
	assert.Equal(t, "alpha", r.Recommended.CarrierCode)
}

func TestRank_FastestTieBreaksByCost(t *testing.T) {
	quotes := []carrier.Quote{
		q("dhl", 50.00, 2, 0.9),
		q("ups", 45.00, 2, 0.9),
	}

	r := quote.Rank(quotes, quote.DefaultWeights())

	assert.Equal(t, "ups", r.Fastest.CarrierCode)
}

func TestRank_Deterministic(t *testing.T) {
	quotes := []carrier.Quote{
		q("dhl", 45.00, 2, 0.92),
		q("ups", 38.00, 5, 0.85),
		q("fedex", 52.00, 1, 0.95),
		q("pickit", 41.00, 4, 0.76),
	}

	first := quote.Rank(quotes, quote.DefaultWeights())
	for i := 0; i < 10; i++ {
		again := quote.Rank(quotes, quote.DefaultWeights())
		assert.Equal(t, first.Cheapest.CarrierCode, again.Cheapest.CarrierCode)
		assert.Equal(t, first.Fastest.CarrierCode, again.Fastest.CarrierCode)
		assert.Equal(t, first.Recommended.CarrierCode, again.Recommended.CarrierCode)
	}
}

func TestRank_UniformDimensionDoesNotInfluence(t *testing.T) {
	// All totals equal, so cost contributes nothing and transit decides.
	quotes := []carrier.Quote{
		q("slow", 30.00, 7, 0.85),
		q("quick", 30.00, 2, 0.85),
	}

	r := quote.Rank(quotes, quote.Weights{Cost: 0.9, Transit: 0.1})

	assert.Equal(t, "quick", r.Recommended.CarrierCode)
}
