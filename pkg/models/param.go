package models

import "time"

// Keys the engines read from app_parametros.
const (
	ParamInitialStatus    = "pedido.estado_inicial"
	ParamPTSDefaultMargin = "pts_margen_default"
	ParamPTSRounding      = "pts_redondeo"
)

// AppParam is a row of the flat key-value settings table.
type AppParam struct {
	Key       string    `gorm:"column:clave;primaryKey;type:varchar(80)" json:"clave"`
	Value     string    `gorm:"column:valor;type:text;not null" json:"valor"`
	UpdatedAt time.Time `gorm:"column:actualizado_en" json:"actualizado_en"`
}

func (AppParam) TableName() string {
	return "app_parametros"
}
