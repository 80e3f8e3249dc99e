package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Price list modes. A MANUAL list takes operator-entered prices and is skipped
// by automatic recalculation unless explicitly forced.
const (
	PriceListModeManual = "MANUAL"
	PriceListModeAuto   = "AUTO"
)

// Well-known price list slugs.
const (
	PriceListPVP = "pvp"
	PriceListPTS = "pts"
)

// Rule formula kinds.
const (
	FormulaCostPlusMarkup = "COSTO_MAS_MARKUP"
	FormulaDiscountOffPVP = "DESCUENTO_SOBRE_PVP"
	FormulaFixedPrice     = "PRECIO_FIJO"
)

// Rounding strategies.
const (
	RoundingPsycho990  = "PSICO_990"
	RoundingNearest100 = "REDONDEO_100"
	RoundingExact      = "EXACTO"
)

type PriceList struct {
	ID   int64  `gorm:"column:id_lista;primaryKey;autoIncrement" json:"id_lista"`
	Slug string `gorm:"column:slug;type:varchar(40);not null;unique" json:"slug"`
	Name string `gorm:"column:nombre;type:varchar(120);not null" json:"nombre"`
	Mode string `gorm:"column:modo;type:varchar(20);not null;default:'AUTO'" json:"modo"`
}

func (PriceList) TableName() string {
	return "listas_precios"
}

func (l *PriceList) IsManual() bool {
	return l != nil && l.Mode == PriceListModeManual
}

// PricePolicy is a prioritized ruleset scoped to a price list and a sales
// channel. Lower priority value means it is evaluated first.
type PricePolicy struct {
	ID          int64  `gorm:"column:id_politica;primaryKey;autoIncrement" json:"id_politica"`
	Name        string `gorm:"column:nombre;type:varchar(120);not null" json:"nombre"`
	PriceListID int64  `gorm:"column:id_lista;not null" json:"id_lista"`
	Channel     string `gorm:"column:canal;type:varchar(10);not null;default:'ANY'" json:"canal"`
	Priority    int64  `gorm:"column:prioridad;not null;default:100" json:"prioridad"`
	Rounding    string `gorm:"column:redondeo_estrategia;type:varchar(20);not null;default:'EXACTO'" json:"redondeo_estrategia"`
	Active      bool   `gorm:"column:activo;not null;default:true" json:"activo"`
}

func (PricePolicy) TableName() string {
	return "politicas_precio"
}

// PriceRule belongs to one policy. Nil numeric fields mean "not configured";
// the resolver treats them as absent filters or guardrails.
type PriceRule struct {
	ID               int64            `gorm:"column:id_regla;primaryKey;autoIncrement" json:"id_regla"`
	PolicyID         int64            `gorm:"column:id_politica;not null;index" json:"id_politica"`
	FormulaKind      string           `gorm:"column:tipo_formula;type:varchar(30);not null" json:"tipo_formula"`
	MarkupPct        *decimal.Decimal `gorm:"column:markup_pct;type:decimal(8,3)" json:"markup_pct"`
	DiscountPct      *decimal.Decimal `gorm:"column:descuento_pct;type:decimal(8,3)" json:"descuento_pct"`
	FixedPrice       *decimal.Decimal `gorm:"column:precio_fijo_clp;type:decimal(12,2)" json:"precio_fijo_clp"`
	MinMarginPct     *decimal.Decimal `gorm:"column:margen_min_pct;type:decimal(8,3)" json:"margen_min_pct"`
	MaxOverRefPct    *decimal.Decimal `gorm:"column:tope_pct;type:decimal(8,3)" json:"tope_pct"`
	CostRangeMin     *decimal.Decimal `gorm:"column:rango_costo_min;type:decimal(12,2)" json:"rango_costo_min"`
	CostRangeMax     *decimal.Decimal `gorm:"column:rango_costo_max;type:decimal(12,2)" json:"rango_costo_max"`
	MedicationTypeID *int64           `gorm:"column:id_tipo_medicamento" json:"id_tipo_medicamento"`
	Priority         int64            `gorm:"column:prioridad;not null;default:100" json:"prioridad"`
	Active           bool             `gorm:"column:activo;not null;default:true" json:"activo"`
}

func (PriceRule) TableName() string {
	return "reglas_precio"
}

// Price is a published, versioned price record. At most one row per
// (product, list) pair has a null ValidUntil: that row is the price in force.
type Price struct {
	ID         int64           `gorm:"column:id_precio;primaryKey;autoIncrement" json:"id_precio"`
	ProductID  int64           `gorm:"column:id_producto;not null;index" json:"id_producto"`
	ListID     int64           `gorm:"column:id_lista;not null;index" json:"id_lista"`
	GrossPrice decimal.Decimal `gorm:"column:precio_bruto;type:decimal(12,2);not null" json:"precio_bruto"`
	TaxRate    decimal.Decimal `gorm:"column:iva_tasa;type:decimal(5,2);not null" json:"iva_tasa"`
	Source     string          `gorm:"column:fuente;type:varchar(40);not null" json:"fuente"`
	CreatedBy  string          `gorm:"column:creado_por;type:varchar(80);not null" json:"creado_por"`
	ValidFrom  time.Time       `gorm:"column:vigente_desde;not null" json:"vigente_desde"`
	ValidUntil *time.Time      `gorm:"column:vigente_hasta" json:"vigente_hasta"`
}

func (Price) TableName() string {
	return "precios"
}

// TypeMargin is the fallback PTS margin keyed by medication type.
type TypeMargin struct {
	MedicationTypeID int64           `gorm:"column:id_tipo_medicamento;primaryKey" json:"id_tipo_medicamento"`
	Margin           decimal.Decimal `gorm:"column:margen;type:decimal(8,4);not null" json:"margen"`
	UpdatedAt        time.Time       `gorm:"column:actualizado_en" json:"actualizado_en"`
}

func (TypeMargin) TableName() string {
	return "pts_margenes"
}

// CategoryMargin is the fallback PTS margin keyed by category. It takes
// precedence over TypeMargin.
type CategoryMargin struct {
	CategoryID int64           `gorm:"column:id_categoria;primaryKey" json:"id_categoria"`
	Margin     decimal.Decimal `gorm:"column:margen;type:decimal(8,4);not null" json:"margen"`
	UpdatedAt  time.Time       `gorm:"column:actualizado_en" json:"actualizado_en"`
}

func (CategoryMargin) TableName() string {
	return "pts_margenes_cat"
}
