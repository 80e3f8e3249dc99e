package pricing

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/example/farmashop/pkg/models"
)

// Channel is the sales channel a price is resolved for.
type Channel string

const (
	ChannelPTS Channel = "PTS"
	ChannelERP Channel = "ERP"
	ChannelAny Channel = "ANY"
)

// DefaultTaxRate is stamped on every published price row (Chilean IVA).
var DefaultTaxRate = decimal.NewFromInt(19)

// Store is the relational backend the resolver reads rule tables from and
// publishes prices through. Implemented by repository.PricingRepository.
type Store interface {
	Product(ctx context.Context, productID int64) (*models.Product, error)
	// CurrentReferencePrice returns the gross price in force on the PVP list,
	// or nil when the product has none.
	CurrentReferencePrice(ctx context.Context, productID int64) (*decimal.Decimal, error)
	ActivePolicies(ctx context.Context, channel Channel) ([]models.PricePolicy, error)
	ActiveRules(ctx context.Context, policyID int64) ([]models.PriceRule, error)
	CategoryMargin(ctx context.Context, categoryID int64) (*decimal.Decimal, error)
	TypeMargin(ctx context.Context, typeID int64) (*decimal.Decimal, error)
	PriceListBySlug(ctx context.Context, slug string) (*models.PriceList, error)
	PriceListByID(ctx context.Context, id int64) (*models.PriceList, error)
	// Publish closes the price in force for (product, list) and inserts the
	// new row in one transaction, returning the new row id.
	Publish(ctx context.Context, p *models.Price) (int64, error)
	ProductIDs(ctx context.Context, scope Scope) ([]int64, error)
}

// Params reads the flat settings table. ok is false when the key is unset.
type Params interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
}

// AuditSink receives resolution traces for operator troubleshooting. Calls are
// fire-and-forget; implementations must tolerate concurrent use.
type AuditSink interface {
	RecordResolution(ctx context.Context, productID int64, channel Channel, res *Resolution) error
}

// PolicyRef identifies the policy a resolution came from. A nil ID marks the
// configured PTS fallback, which has no policy row.
type PolicyRef struct {
	ID   *int64 `json:"id"`
	Name string `json:"nombre"`
}

// RuleRef identifies the rule a resolution came from.
type RuleRef struct {
	ID   *int64 `json:"id"`
	Kind string `json:"tipo"`
}

// Resolution is the outcome of a price resolution, successful or not. Steps
// always carries the full diagnostic trail.
type Resolution struct {
	OK           bool             `json:"ok"`
	GrossPrice   int64            `json:"precio_bruto"`
	PriceListID  int64            `json:"id_lista"`
	Policy       *PolicyRef       `json:"politica,omitempty"`
	Rule         *RuleRef         `json:"regla,omitempty"`
	CostBase     *decimal.Decimal `json:"costo_base"`
	ReferencePVP *decimal.Decimal `json:"pvp_ref"`
	Rounding     string           `json:"redondeo,omitempty"`
	Steps        []string         `json:"pasos"`
	Error        string           `json:"error,omitempty"`
}
