package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product carries only the columns the pricing engine reads. The full catalog
// CRUD lives behind the admin screens and never goes through this code path.
type Product struct {
	ID               int64            `gorm:"column:id_producto;primaryKey;autoIncrement" json:"id_producto"`
	Slug             *string          `gorm:"column:slug;type:varchar(200)" json:"slug"`
	Title            string           `gorm:"column:titulo;type:text;not null" json:"titulo"`
	CategoryID       *int64           `gorm:"column:categoria_id" json:"categoria_id"`
	SubcategoryID    *int64           `gorm:"column:subcategoria_id" json:"subcategoria_id"`
	BrandID          *int64           `gorm:"column:id_marca" json:"id_marca"`
	MedicationTypeID *int64           `gorm:"column:id_tipo_medicamento" json:"id_tipo_medicamento"`
	NetCost          *decimal.Decimal `gorm:"column:costo_neto;type:decimal(12,2)" json:"costo_neto"`
	AverageCost      *decimal.Decimal `gorm:"column:costo_promedio;type:decimal(12,2)" json:"costo_promedio"`
	LastCost         *decimal.Decimal `gorm:"column:costo_ultimo;type:decimal(12,2)" json:"costo_ultimo"`
	VisibleWeb       bool             `gorm:"column:visible_web;not null;default:true" json:"visible_web"`
	CreatedAt        time.Time        `gorm:"column:fecha_creacion" json:"fecha_creacion"`
	UpdatedAt        time.Time        `gorm:"column:fecha_actualizacion" json:"fecha_actualizacion"`
}

func (Product) TableName() string {
	return "productos"
}

// CostBase picks the cost the pricing engine works from: net cost first, then
// average, then last purchase cost. Nil when no cost field is loaded.
func (p *Product) CostBase() *decimal.Decimal {
	for _, c := range []*decimal.Decimal{p.NetCost, p.AverageCost, p.LastCost} {
		if c != nil {
			return c
		}
	}
	return nil
}

type Category struct {
	ID     int64  `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Name   string `gorm:"column:nombre;type:varchar(120);not null" json:"nombre"`
	Active bool   `gorm:"column:activo;not null;default:true" json:"activo"`
}

func (Category) TableName() string {
	return "categorias"
}

type Brand struct {
	ID   int64  `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Name string `gorm:"column:nombre;type:varchar(120);not null" json:"nombre"`
}

func (Brand) TableName() string {
	return "marcas"
}

type MedicationType struct {
	ID   int64  `gorm:"column:id_tipo_medicamento;primaryKey;autoIncrement" json:"id_tipo_medicamento"`
	Code string `gorm:"column:codigo;type:varchar(40)" json:"codigo"`
	Name string `gorm:"column:nombre;type:varchar(120);not null" json:"nombre"`
}

func (MedicationType) TableName() string {
	return "tipo_medicamento"
}
