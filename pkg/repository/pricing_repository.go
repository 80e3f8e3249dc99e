package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/example/farmashop/pkg/models"
	"github.com/example/farmashop/pkg/pricing"
)

// PricingRepository implements pricing.Store on the catalog and price tables.
type PricingRepository struct {
	db *gorm.DB
}

func NewPricingRepository(db *gorm.DB) *PricingRepository {
	return &PricingRepository{db: db}
}

func (r *PricingRepository) Product(ctx context.Context, productID int64) (*models.Product, error) {
	var p models.Product
	err := r.db.WithContext(ctx).Where("id_producto = ?", productID).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pricing.ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// CurrentReferencePrice reads the PVP row in force, if any.
func (r *PricingRepository) CurrentReferencePrice(ctx context.Context, productID int64) (*decimal.Decimal, error) {
	var price models.Price
	err := r.db.WithContext(ctx).
		Joins("JOIN listas_precios l ON l.id_lista = precios.id_lista").
		Where("precios.id_producto = ? AND l.slug = ? AND precios.vigente_hasta IS NULL",
			productID, models.PriceListPVP).
		Order("precios.vigente_desde DESC").
		First(&price).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &price.GrossPrice, nil
}

// CurrentPrice reads the price in force for a (product, list) pair, nil when
// none is open.
func (r *PricingRepository) CurrentPrice(ctx context.Context, productID, listID int64) (*decimal.Decimal, error) {
	var price models.Price
	err := r.db.WithContext(ctx).
		Where("id_producto = ? AND id_lista = ? AND vigente_hasta IS NULL", productID, listID).
		Order("vigente_desde DESC").
		First(&price).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &price.GrossPrice, nil
}

// ActivePolicies returns the active policies for the channel plus the ANY
// ones, best priority first. An ANY resolution sees only ANY policies;
// channel-scoped ones never leak into it.
func (r *PricingRepository) ActivePolicies(ctx context.Context, channel pricing.Channel) ([]models.PricePolicy, error) {
	var policies []models.PricePolicy
	err := r.db.WithContext(ctx).
		Where("activo = ? AND canal IN ?", true, []string{string(channel), string(pricing.ChannelAny)}).
		Order("prioridad, id_politica").
		Find(&policies).Error
	return policies, err
}

func (r *PricingRepository) ActiveRules(ctx context.Context, policyID int64) ([]models.PriceRule, error) {
	var rules []models.PriceRule
	err := r.db.WithContext(ctx).
		Where("id_politica = ? AND activo = ?", policyID, true).
		Order("prioridad, id_regla").
		Find(&rules).Error
	return rules, err
}

func (r *PricingRepository) CategoryMargin(ctx context.Context, categoryID int64) (*decimal.Decimal, error) {
	var row models.CategoryMargin
	err := r.db.WithContext(ctx).Where("id_categoria = ?", categoryID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row.Margin, nil
}

func (r *PricingRepository) TypeMargin(ctx context.Context, typeID int64) (*decimal.Decimal, error) {
	var row models.TypeMargin
	err := r.db.WithContext(ctx).Where("id_tipo_medicamento = ?", typeID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row.Margin, nil
}

func (r *PricingRepository) PriceListBySlug(ctx context.Context, slug string) (*models.PriceList, error) {
	var list models.PriceList
	err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&list).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pricing.ErrPriceListNotFound
	}
	if err != nil {
		return nil, err
	}
	return &list, nil
}

func (r *PricingRepository) PriceListByID(ctx context.Context, id int64) (*models.PriceList, error) {
	var list models.PriceList
	err := r.db.WithContext(ctx).Where("id_lista = ?", id).First(&list).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pricing.ErrPriceListNotFound
	}
	if err != nil {
		return nil, err
	}
	return &list, nil
}

// Publish closes the row in force for (product, list) and inserts the new one
// in a single transaction, so there is never more than one open row.
func (r *PricingRepository) Publish(ctx context.Context, p *models.Price) (int64, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		if err := tx.Model(&models.Price{}).
			Where("id_producto = ? AND id_lista = ? AND vigente_hasta IS NULL", p.ProductID, p.ListID).
			Update("vigente_hasta", now).Error; err != nil {
			return err
		}
		return tx.Create(p).Error
	})
	if err != nil {
		return 0, err
	}
	return p.ID, nil
}

// UpsertTypeMargin sets the PTS fallback margin for a medication type. The
// margin is a fraction (0.08 = 8%).
func (r *PricingRepository) UpsertTypeMargin(ctx context.Context, typeID int64, margin decimal.Decimal) error {
	row := models.TypeMargin{MedicationTypeID: typeID, Margin: margin}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id_tipo_medicamento"}},
		DoUpdates: clause.AssignmentColumns([]string{"margen", "actualizado_en"}),
	}).Create(&row).Error
}

// UpsertCategoryMargin sets the PTS fallback margin for a category.
func (r *PricingRepository) UpsertCategoryMargin(ctx context.Context, categoryID int64, margin decimal.Decimal) error {
	row := models.CategoryMargin{CategoryID: categoryID, Margin: margin}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id_categoria"}},
		DoUpdates: clause.AssignmentColumns([]string{"margen", "actualizado_en"}),
	}).Create(&row).Error
}

// ProductIDs expands a recalculation scope to concrete product ids.
func (r *PricingRepository) ProductIDs(ctx context.Context, scope pricing.Scope) ([]int64, error) {
	q := r.db.WithContext(ctx).Model(&models.Product{})
	switch scope.Kind {
	case pricing.ScopeProduct:
		q = q.Where("id_producto = ?", scope.ProductID)
	case pricing.ScopeCategory:
		q = q.Where("categoria_id = ? OR subcategoria_id = ?", scope.CategoryID, scope.CategoryID)
	case pricing.ScopeBrand:
		q = q.Where("id_marca = ?", scope.BrandID)
	case pricing.ScopeAll:
	default:
		return nil, fmt.Errorf("unknown scope %q", scope.Kind)
	}
	var ids []int64
	err := q.Order("id_producto").Pluck("id_producto", &ids).Error
	return ids, err
}
