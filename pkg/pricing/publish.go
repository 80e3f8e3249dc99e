package pricing

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/example/farmashop/pkg/models"
)

// Publish records a new price for (product, list). The store closes the price
// currently in force and inserts the new row inside one transaction, so the
// at-most-one-in-force invariant holds for any sequential publish history.
func (r *Resolver) Publish(ctx context.Context, productID, listID int64, grossPrice int64, createdBy, source string) (int64, error) {
	if grossPrice <= 0 {
		return 0, fmt.Errorf("gross price must be positive, got %d", grossPrice)
	}
	if createdBy == "" {
		createdBy = "admin"
	}
	if source == "" {
		source = "admin"
	}

	id, err := r.store.Publish(ctx, &models.Price{
		ProductID:  productID,
		ListID:     listID,
		GrossPrice: decimal.NewFromInt(grossPrice),
		TaxRate:    DefaultTaxRate,
		Source:     source,
		CreatedBy:  createdBy,
		ValidFrom:  time.Now(),
	})
	if err != nil {
		return 0, fmt.Errorf("publish price for product %d list %d: %w", productID, listID, err)
	}
	return id, nil
}
