package pricing

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/example/farmashop/pkg/models"
)

var (
	ErrProductNotFound   = errors.New("product not found")
	ErrPriceListNotFound = errors.New("price list not found")
	// ErrNoApplicableRule means every policy, rule and fallback was exhausted
	// without producing a positive price. The Resolution still carries the
	// step trail explaining why.
	ErrNoApplicableRule = errors.New("no applicable rule or missing cost base")
)

var one = decimal.NewFromInt(1)

// Resolver computes gross prices from the policy/rule tables and publishes
// versioned price records.
type Resolver struct {
	store  Store
	params Params
	audit  AuditSink
	logger *zap.Logger
}

func NewResolver(store Store, params Params, audit AuditSink, logger *zap.Logger) *Resolver {
	return &Resolver{
		store:  store,
		params: params,
		audit:  audit,
		logger: logger,
	}
}

func decStr(d *decimal.Decimal) string {
	if d == nil {
		return "none"
	}
	return d.String()
}

func int64Str(v *int64) string {
	if v == nil {
		return "none"
	}
	return fmt.Sprintf("%d", *v)
}

// Resolve walks the active policies for the channel in priority order and
// returns the first rule that yields a positive rounded price. When no rule
// matches and the channel is PTS, the configured margin fallback
// (category, then medication type, then the pts_margen_default parameter)
// is tried. On exhaustion the returned error is ErrNoApplicableRule and the
// Resolution still carries the diagnostic steps.
func (r *Resolver) Resolve(ctx context.Context, productID int64, channel Channel) (*Resolution, error) {
	res := &Resolution{Steps: []string{}}

	prod, err := r.store.Product(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("load product %d: %w", productID, err)
	}

	cost := prod.CostBase()
	res.CostBase = cost

	var pvpRef *decimal.Decimal
	if channel == ChannelAny || channel == ChannelERP {
		pvpRef, err = r.store.CurrentReferencePrice(ctx, productID)
		if err != nil {
			return nil, fmt.Errorf("load reference price for product %d: %w", productID, err)
		}
	}
	res.ReferencePVP = pvpRef

	res.Steps = append(res.Steps,
		fmt.Sprintf("costo_base=%s", decStr(cost)),
		fmt.Sprintf("id_tipo_medicamento=%s categoria_id=%s subcategoria_id=%s",
			int64Str(prod.MedicationTypeID), int64Str(prod.CategoryID), int64Str(prod.SubcategoryID)),
		fmt.Sprintf("pvp_ref(vigente)=%s", decStr(pvpRef)),
	)

	policies, err := r.store.ActivePolicies(ctx, channel)
	if err != nil {
		return nil, fmt.Errorf("load policies: %w", err)
	}
	res.Steps = append(res.Steps, fmt.Sprintf("politicas_candidatas=%d", len(policies)))

	for _, pol := range policies {
		rounding := pol.Rounding
		if rounding == "" {
			rounding = models.RoundingExact
		}
		res.Steps = append(res.Steps,
			fmt.Sprintf("politica [%d] '%s' (lista=%d, redondeo=%s)", pol.ID, pol.Name, pol.PriceListID, rounding))

		rules, err := r.store.ActiveRules(ctx, pol.ID)
		if err != nil {
			return nil, fmt.Errorf("load rules for policy %d: %w", pol.ID, err)
		}

		matched := false
		for _, rule := range rules {
			if rule.MedicationTypeID != nil {
				if prod.MedicationTypeID == nil || *prod.MedicationTypeID != *rule.MedicationTypeID {
					res.Steps = append(res.Steps, fmt.Sprintf("regla %d: no matchea tipo_medicamento", rule.ID))
					continue
				}
			}

			// The cost-range filter only applies when a cost base exists; a
			// missing cost disables cost-dependent formulas below instead.
			if cost != nil {
				if rule.CostRangeMin != nil && cost.Cmp(*rule.CostRangeMin) < 0 {
					res.Steps = append(res.Steps, fmt.Sprintf("regla %d: fuera de rango (min)", rule.ID))
					continue
				}
				if rule.CostRangeMax != nil && cost.Cmp(*rule.CostRangeMax) > 0 {
					res.Steps = append(res.Steps, fmt.Sprintf("regla %d: fuera de rango (max)", rule.ID))
					continue
				}
			}

			kind := strings.ToUpper(rule.FormulaKind)
			var candidate *decimal.Decimal
			switch kind {
			case models.FormulaCostPlusMarkup:
				if cost != nil {
					mu := decimal.Zero
					if rule.MarkupPct != nil {
						mu = *rule.MarkupPct
					}
					v := cost.Mul(one.Add(mu.Div(oneHundred)))
					candidate = &v
				}
			case models.FormulaDiscountOffPVP:
				if pvpRef != nil {
					d := decimal.Zero
					if rule.DiscountPct != nil {
						d = *rule.DiscountPct
					}
					v := pvpRef.Mul(one.Sub(d.Div(oneHundred)))
					candidate = &v
				}
			case models.FormulaFixedPrice:
				if rule.FixedPrice != nil {
					v := *rule.FixedPrice
					candidate = &v
				}
			}

			var guarded *decimal.Decimal
			if candidate != nil {
				g := *candidate
				if rule.MinMarginPct != nil && cost != nil {
					floor := cost.Mul(one.Add(rule.MinMarginPct.Div(oneHundred)))
					if g.Cmp(floor) < 0 {
						g = floor
					}
				}
				if rule.MaxOverRefPct != nil && pvpRef != nil {
					ceiling := pvpRef.Mul(one.Add(rule.MaxOverRefPct.Div(oneHundred)))
					if g.Cmp(ceiling) > 0 {
						g = ceiling
					}
				}
				guarded = &g
			}

			rounded := int64(0)
			if guarded != nil {
				rounded = ApplyRounding(rounding, *guarded)
			}
			res.Steps = append(res.Steps,
				fmt.Sprintf("regla %d tipo=%s calc=%s guard=%s redondeo=%d",
					rule.ID, kind, decStr(candidate), decStr(guarded), rounded))

			if rounded > 0 {
				polID, ruleID := pol.ID, rule.ID
				res.OK = true
				res.GrossPrice = rounded
				res.PriceListID = pol.PriceListID
				res.Policy = &PolicyRef{ID: &polID, Name: pol.Name}
				res.Rule = &RuleRef{ID: &ruleID, Kind: kind}
				res.Rounding = rounding
				matched = true
				r.recordResolution(productID, channel, res)
				return res, nil
			}
		}
		if !matched {
			res.Steps = append(res.Steps, fmt.Sprintf("(politica %d) sin regla aplicable", pol.ID))
		}
	}

	if channel == ChannelPTS && cost != nil {
		margin, err := r.fallbackMargin(ctx, prod)
		if err != nil {
			return nil, err
		}
		if margin != nil {
			gross := cost.Mul(one.Add(*margin))
			rounding := r.paramOr(ctx, models.ParamPTSRounding, models.RoundingExact)
			rounded := ApplyRounding(strings.ToUpper(rounding), gross)
			res.Steps = append(res.Steps,
				fmt.Sprintf("fallback_PTS: margen=%s redondeo=%s calc=%s -> %d", margin, rounding, gross, rounded))
			if rounded > 0 {
				list, err := r.store.PriceListBySlug(ctx, models.PriceListPTS)
				if err != nil {
					return nil, fmt.Errorf("load pts price list: %w", err)
				}
				res.OK = true
				res.GrossPrice = rounded
				res.PriceListID = list.ID
				res.Policy = &PolicyRef{Name: "PTS (fallback config)"}
				res.Rule = &RuleRef{Kind: models.FormulaCostPlusMarkup}
				res.Rounding = strings.ToUpper(rounding)
				r.recordResolution(productID, channel, res)
				return res, nil
			}
		}
	}

	res.Steps = append(res.Steps, "sin regla ni fallback aplicable")
	res.OK = false
	res.Error = ErrNoApplicableRule.Error()
	r.recordResolution(productID, channel, res)
	return res, ErrNoApplicableRule
}

// fallbackMargin resolves the configured PTS margin: category override first,
// then medication-type override, then the pts_margen_default parameter. The
// returned value is a fraction (0.08 = 8%).
func (r *Resolver) fallbackMargin(ctx context.Context, prod *models.Product) (*decimal.Decimal, error) {
	if prod.CategoryID != nil {
		m, err := r.store.CategoryMargin(ctx, *prod.CategoryID)
		if err != nil {
			return nil, fmt.Errorf("load category margin: %w", err)
		}
		if m != nil {
			return m, nil
		}
	}
	if prod.MedicationTypeID != nil {
		m, err := r.store.TypeMargin(ctx, *prod.MedicationTypeID)
		if err != nil {
			return nil, fmt.Errorf("load type margin: %w", err)
		}
		if m != nil {
			return m, nil
		}
	}
	raw := r.paramOr(ctx, models.ParamPTSDefaultMargin, "0.08")
	m, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		r.logger.Warn("unparseable default margin parameter", zap.String("value", raw), zap.Error(err))
		return nil, nil
	}
	return &m, nil
}

func (r *Resolver) paramOr(ctx context.Context, key, def string) string {
	v, ok, err := r.params.Get(ctx, key)
	if err != nil {
		r.logger.Warn("parameter lookup failed", zap.String("key", key), zap.Error(err))
		return def
	}
	if !ok || v == "" {
		return def
	}
	return v
}

func (r *Resolver) recordResolution(productID int64, channel Channel, res *Resolution) {
	if r.audit == nil {
		return
	}
	snapshot := *res
	go func() {
		if err := r.audit.RecordResolution(context.Background(), productID, channel, &snapshot); err != nil {
			r.logger.Warn("resolution audit failed", zap.Int64("product_id", productID), zap.Error(err))
		}
	}()
}
