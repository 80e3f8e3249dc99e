package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/example/farmashop/pkg/models"
)

var ErrNoShippingRate = errors.New("no shipping rate configured")

// ShippingRepository quotes shipping costs from the envio_tarifas rules.
type ShippingRepository struct {
	db *gorm.DB
}

func NewShippingRepository(db *gorm.DB) *ShippingRepository {
	return &ShippingRepository{db: db}
}

// QuoteInput identifies the destination and the order being shipped. Zero
// RegionID or ComunaID means unknown.
type QuoteInput struct {
	ShippingTypeID int64
	RegionID       int64
	ComunaID       int64
	OrderNetTotal  int64
	WeightG        int64
}

// Quote is the resolved shipping cost. Free reports whether a gratis_desde
// threshold zeroed the cost.
type Quote struct {
	RateID  int64 `json:"id_tarifa"`
	CostCLP int64 `json:"costo_clp"`
	Free    bool  `json:"gratis"`
}

// ResolveRate picks the most specific active rate: comuna match beats region
// match beats the default rate, with priority breaking ties. Weight bounds,
// when set, must contain the order weight.
func (r *ShippingRepository) ResolveRate(ctx context.Context, in QuoteInput) (*Quote, error) {
	var rates []models.ShippingRate
	err := r.db.WithContext(ctx).
		Where("id_tipo_envio = ? AND activo = ?", in.ShippingTypeID, true).
		Order("prioridad, id_tarifa").
		Find(&rates).Error
	if err != nil {
		return nil, err
	}

	best := pickRate(rates, in)
	if best == nil {
		return nil, ErrNoShippingRate
	}

	q := &Quote{RateID: best.ID, CostCLP: best.BaseCLP}
	if best.FreeFrom != nil && in.OrderNetTotal >= *best.FreeFrom {
		q.CostCLP = 0
		q.Free = true
	}
	return q, nil
}

func pickRate(rates []models.ShippingRate, in QuoteInput) *models.ShippingRate {
	var best *models.ShippingRate
	bestLevel := -1
	for i := range rates {
		rate := &rates[i]
		if !weightFits(rate, in.WeightG) {
			continue
		}
		level := matchLevel(rate, in)
		if level < 0 {
			continue
		}
		// rates arrive priority-ordered, so only a stronger level replaces
		if level > bestLevel {
			best = rate
			bestLevel = level
		}
	}
	return best
}

func matchLevel(rate *models.ShippingRate, in QuoteInput) int {
	switch {
	case rate.ComunaID != nil:
		if in.ComunaID != 0 && *rate.ComunaID == in.ComunaID {
			return 2
		}
		return -1
	case rate.RegionID != nil:
		if in.RegionID != 0 && *rate.RegionID == in.RegionID {
			return 1
		}
		return -1
	default:
		return 0
	}
}

func weightFits(rate *models.ShippingRate, weightG int64) bool {
	if weightG <= 0 {
		return true
	}
	if rate.MinWeightG != nil && weightG < *rate.MinWeightG {
		return false
	}
	if rate.MaxWeightG != nil && weightG > *rate.MaxWeightG {
		return false
	}
	return true
}

// ActiveTypes lists the shipping types offered at checkout.
func (r *ShippingRepository) ActiveTypes(ctx context.Context) ([]models.ShippingType, error) {
	var types []models.ShippingType
	err := r.db.WithContext(ctx).
		Where("activo = ?", true).
		Order("orden, codigo").
		Find(&types).Error
	return types, err
}
