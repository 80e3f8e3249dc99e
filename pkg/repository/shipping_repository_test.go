package repository

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/example/farmashop/pkg/models"
)

func i64(v int64) *int64 { return &v }

func TestPickRateSpecificityWins(t *testing.T) {
	t.Parallel()

	rates := []models.ShippingRate{
		{ID: 1, BaseCLP: 5000, Priority: 10, Active: true},                                  // default
		{ID: 2, RegionID: i64(13), BaseCLP: 3500, Priority: 10, Active: true},               // region
		{ID: 3, RegionID: i64(13), ComunaID: i64(101), BaseCLP: 2500, Priority: 10, Active: true}, // comuna
	}

	best := pickRate(rates, QuoteInput{ShippingTypeID: 1, RegionID: 13, ComunaID: 101})
	require.NotNil(t, best)
	require.Equal(t, int64(3), best.ID)

	best = pickRate(rates, QuoteInput{ShippingTypeID: 1, RegionID: 13, ComunaID: 999})
	require.NotNil(t, best)
	require.Equal(t, int64(2), best.ID)

	best = pickRate(rates, QuoteInput{ShippingTypeID: 1, RegionID: 7})
	require.NotNil(t, best)
	require.Equal(t, int64(1), best.ID)
}

func TestPickRatePriorityBreaksTies(t *testing.T) {
	t.Parallel()

	// rates arrive priority-ordered from the query; the first of a level wins
	rates := []models.ShippingRate{
		{ID: 1, RegionID: i64(13), BaseCLP: 3000, Priority: 10, Active: true},
		{ID: 2, RegionID: i64(13), BaseCLP: 4000, Priority: 20, Active: true},
	}
	best := pickRate(rates, QuoteInput{ShippingTypeID: 1, RegionID: 13})
	require.NotNil(t, best)
	require.Equal(t, int64(1), best.ID)
}

func TestPickRateWeightBounds(t *testing.T) {
	t.Parallel()

	rates := []models.ShippingRate{
		{ID: 1, MaxWeightG: i64(1000), BaseCLP: 2000, Priority: 10, Active: true},
		{ID: 2, MinWeightG: i64(1001), BaseCLP: 6000, Priority: 10, Active: true},
	}

	best := pickRate(rates, QuoteInput{ShippingTypeID: 1, WeightG: 500})
	require.NotNil(t, best)
	require.Equal(t, int64(1), best.ID)

	best = pickRate(rates, QuoteInput{ShippingTypeID: 1, WeightG: 3000})
	require.NotNil(t, best)
	require.Equal(t, int64(2), best.ID)

	// unknown weight skips the bound check
	best = pickRate(rates, QuoteInput{ShippingTypeID: 1})
	require.NotNil(t, best)
	require.Equal(t, int64(1), best.ID)
}

func TestPickRateNoMatch(t *testing.T) {
	t.Parallel()

	rates := []models.ShippingRate{
		{ID: 1, ComunaID: i64(101), BaseCLP: 2500, Priority: 10, Active: true},
	}
	require.Nil(t, pickRate(rates, QuoteInput{ShippingTypeID: 1, ComunaID: 202}))
	require.Nil(t, pickRate(rates, QuoteInput{ShippingTypeID: 1}))
}
