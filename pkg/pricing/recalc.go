package pricing

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/example/farmashop/pkg/models"
)

// ScopeKind selects which products a recalculation covers.
type ScopeKind string

const (
	ScopeProduct  ScopeKind = "producto"
	ScopeCategory ScopeKind = "categoria"
	ScopeBrand    ScopeKind = "marca"
	ScopeAll      ScopeKind = "todo"
)

type Scope struct {
	Kind       ScopeKind `json:"aplicar_a"`
	ProductID  int64     `json:"id_producto,omitempty"`
	CategoryID int64     `json:"id_categoria,omitempty"`
	BrandID    int64     `json:"id_marca,omitempty"`
}

func (s Scope) validate() error {
	switch s.Kind {
	case ScopeProduct:
		if s.ProductID <= 0 {
			return fmt.Errorf("scope %q requires a product id", s.Kind)
		}
	case ScopeCategory:
		if s.CategoryID <= 0 {
			return fmt.Errorf("scope %q requires a category id", s.Kind)
		}
	case ScopeBrand:
		if s.BrandID <= 0 {
			return fmt.Errorf("scope %q requires a brand id", s.Kind)
		}
	case ScopeAll:
	default:
		return fmt.Errorf("unknown scope %q", s.Kind)
	}
	return nil
}

type RecalcOptions struct {
	Scope    Scope
	PTS      bool
	PVP      bool
	ForcePVP bool
	Actor    string
}

type RecalcItem struct {
	ProductID  int64  `json:"id_producto"`
	List       string `json:"lista"`
	PriceID    int64  `json:"id_precio,omitempty"`
	GrossPrice int64  `json:"precio,omitempty"`
	Error      string `json:"error,omitempty"`
}

// RecalcReport collects per-product outcomes; a failing product never aborts
// the batch.
type RecalcReport struct {
	BatchID   string       `json:"batch_id"`
	Processed int          `json:"processed"`
	Published []RecalcItem `json:"publicados"`
	Failed    []RecalcItem `json:"errores"`
}

// Recalculate resolves and publishes prices for every product in scope,
// independently for the PTS and PVP lists. The PVP list is skipped when it is
// in MANUAL mode unless ForcePVP is set.
func (r *Resolver) Recalculate(ctx context.Context, opts RecalcOptions) (*RecalcReport, error) {
	if err := opts.Scope.validate(); err != nil {
		return nil, err
	}

	ids, err := r.store.ProductIDs(ctx, opts.Scope)
	if err != nil {
		return nil, fmt.Errorf("expand scope: %w", err)
	}

	report := &RecalcReport{
		BatchID:   uuid.New().String(),
		Processed: len(ids),
		Published: []RecalcItem{},
		Failed:    []RecalcItem{},
	}
	if len(ids) == 0 {
		return report, nil
	}

	var ptsList, pvpList *models.PriceList
	if opts.PTS {
		ptsList, err = r.store.PriceListBySlug(ctx, models.PriceListPTS)
		if err != nil {
			return nil, fmt.Errorf("load pts list: %w", err)
		}
	}
	if opts.PVP {
		pvpList, err = r.store.PriceListBySlug(ctx, models.PriceListPVP)
		if err != nil {
			return nil, fmt.Errorf("load pvp list: %w", err)
		}
		if pvpList.IsManual() && !opts.ForcePVP {
			r.logger.Info("pvp list is manual, skipping automatic recalculation",
				zap.String("batch_id", report.BatchID))
			pvpList = nil
		}
	}

	for _, pid := range ids {
		if ptsList != nil {
			report.add(r.recalcOne(ctx, pid, ChannelPTS, ptsList, opts.Actor))
		}
		if pvpList != nil {
			report.add(r.recalcOne(ctx, pid, ChannelAny, pvpList, opts.Actor))
		}
	}

	r.logger.Info("price recalculation finished",
		zap.String("batch_id", report.BatchID),
		zap.Int("processed", report.Processed),
		zap.Int("published", len(report.Published)),
		zap.Int("failed", len(report.Failed)))

	return report, nil
}

func (r *Resolver) recalcOne(ctx context.Context, productID int64, channel Channel, list *models.PriceList, actor string) (RecalcItem, bool) {
	item := RecalcItem{ProductID: productID, List: list.Slug}

	res, err := r.Resolve(ctx, productID, channel)
	if err != nil {
		if errors.Is(err, ErrNoApplicableRule) && res != nil {
			item.Error = res.Error
		} else {
			item.Error = err.Error()
		}
		return item, false
	}

	priceID, err := r.Publish(ctx, productID, list.ID, res.GrossPrice, actor, "admin")
	if err != nil {
		item.Error = err.Error()
		return item, false
	}

	item.PriceID = priceID
	item.GrossPrice = res.GrossPrice
	return item, true
}

func (rep *RecalcReport) add(item RecalcItem, ok bool) {
	if ok {
		rep.Published = append(rep.Published, item)
	} else {
		rep.Failed = append(rep.Failed, item)
	}
}
