package models

type ShippingType struct {
	ID              int64  `gorm:"column:id_tipo_envio;primaryKey;autoIncrement" json:"id_tipo_envio"`
	Code            string `gorm:"column:codigo;type:varchar(40);not null;unique" json:"codigo"`
	Name            string `gorm:"column:nombre;type:varchar(120);not null" json:"nombre"`
	RequiresAddress bool   `gorm:"column:requiere_direccion;not null;default:true" json:"requiere_direccion"`
	DisplayOrder    int64  `gorm:"column:orden;not null;default:0" json:"orden"`
	Active          bool   `gorm:"column:activo;not null;default:true" json:"activo"`
}

func (ShippingType) TableName() string {
	return "tipos_envio"
}

// ShippingRate is one rate rule for a shipping type. A rule scoped to a comuna
// beats one scoped to a region, which beats the default rule with neither set;
// Priority breaks ties within a level (lower wins).
type ShippingRate struct {
	ID             int64  `gorm:"column:id_tarifa;primaryKey;autoIncrement" json:"id_tarifa"`
	ShippingTypeID int64  `gorm:"column:id_tipo_envio;not null;index" json:"id_tipo_envio"`
	RegionID       *int64 `gorm:"column:id_region" json:"id_region"`
	ComunaID       *int64 `gorm:"column:id_comuna" json:"id_comuna"`
	BaseCLP        int64  `gorm:"column:base_clp;not null;default:0" json:"base_clp"`
	FreeFrom       *int64 `gorm:"column:gratis_desde" json:"gratis_desde"`
	MinWeightG     *int64 `gorm:"column:peso_min_g" json:"peso_min_g"`
	MaxWeightG     *int64 `gorm:"column:peso_max_g" json:"peso_max_g"`
	Priority       int64  `gorm:"column:prioridad;not null;default:100" json:"prioridad"`
	Active         bool   `gorm:"column:activo;not null;default:true" json:"activo"`
}

func (ShippingRate) TableName() string {
	return "envio_tarifas"
}
