package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/example/farmashop/pkg/models"
)

var (
	oneThousand = decimal.NewFromInt(1000)
	oneHundred  = decimal.NewFromInt(100)
)

// ApplyRounding maps a raw computed price to a publishable integer price.
// Non-positive input always yields 0. Unrecognized strategy codes behave like
// EXACTO so a misconfigured policy still publishes something sane.
func ApplyRounding(strategy string, price decimal.Decimal) int64 {
	if price.Cmp(decimal.Zero) <= 0 {
		return 0
	}
	switch strategy {
	case models.RoundingPsycho990:
		// Floor to the thousand below, then price at X990: 14325 -> 14990.
		thousands := price.Div(oneThousand).Floor().IntPart()
		return thousands*1000 + 990
	case models.RoundingNearest100:
		return price.Div(oneHundred).Round(0).IntPart() * 100
	case models.RoundingExact:
		return price.Round(0).IntPart()
	default:
		return price.Round(0).IntPart()
	}
}
