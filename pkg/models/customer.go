package models

import (
	"time"
)

// Customer mirrors the clientes rows the storefront maintains. This service
// only reads them, mainly to address order notifications.
type Customer struct {
	ID        int64     `gorm:"column:id_cliente;primaryKey;autoIncrement" json:"id_cliente"`
	Name      string    `gorm:"column:nombre;type:varchar(120);not null" json:"nombre"`
	Email     string    `gorm:"column:email;type:varchar(120);uniqueIndex;not null" json:"email"`
	Phone     string    `gorm:"column:telefono;type:varchar(20)" json:"telefono"`
	CreatedAt time.Time `gorm:"column:creado_en" json:"creado_en"`
	UpdatedAt time.Time `gorm:"column:actualizado_en" json:"actualizado_en"`
}

func (Customer) TableName() string {
	return "clientes"
}
