package models

import (
	"time"
)

// Note audiences. The check constraint on pedido_notas allows exactly these.
const (
	AudienceNextRole    = "NEXT_ROLE"
	AudienceInternalAll = "INTERNAL_ALL"
	AudienceCustomer    = "CUSTOMER"
)

type Order struct {
	ID                int64      `gorm:"column:id_pedido;primaryKey;autoIncrement" json:"id_pedido"`
	Number            string     `gorm:"column:numero;type:varchar(32);not null;unique" json:"numero"`
	CustomerID        *int64     `gorm:"column:id_cliente;index" json:"id_cliente"`
	Channel           string     `gorm:"column:canal;type:varchar(20);not null;default:'manual'" json:"canal"`
	StatusCode        string     `gorm:"column:estado_codigo;type:varchar(64);not null" json:"estado_codigo"`
	ShippingTypeID    *int64     `gorm:"column:id_tipo_envio" json:"id_tipo_envio"`
	ShippingAddressID *int64     `gorm:"column:id_direccion_envio" json:"id_direccion_envio"`
	ShippingCost      int64      `gorm:"column:costo_envio;not null;default:0" json:"costo_envio"`
	NetTotal          int64      `gorm:"column:total_neto;not null;default:0" json:"total_neto"`
	Archived          bool       `gorm:"column:archivado;not null;default:false" json:"archivado"`
	CreatedAt         time.Time  `gorm:"column:creado_en" json:"creado_en"`
	UpdatedAt         time.Time  `gorm:"column:actualizado_en" json:"actualizado_en"`
	DeletedAt         *time.Time `gorm:"column:eliminado_en;index" json:"-"`
}

func (Order) TableName() string {
	return "pedidos"
}

type OrderItem struct {
	ID          int64  `gorm:"column:id_item;primaryKey;autoIncrement" json:"id_item"`
	OrderID     int64  `gorm:"column:id_pedido;not null;index" json:"id_pedido"`
	ProductID   int64  `gorm:"column:id_producto;not null;index" json:"id_producto"`
	ProductName string `gorm:"column:nombre_producto;type:varchar(255);not null" json:"nombre_producto"`
	Quantity    int64  `gorm:"column:cantidad;not null;default:1" json:"cantidad"`
	UnitPrice   int64  `gorm:"column:precio_unitario;not null;default:0" json:"precio_unitario"`
	Subtotal    int64  `gorm:"column:subtotal;not null;default:0" json:"subtotal"`
}

func (OrderItem) TableName() string {
	return "pedido_items"
}

// OrderHistory is the immutable audit record of a status transition.
// Rows are only ever inserted, exactly one per successful transition.
type OrderHistory struct {
	ID             int64     `gorm:"column:id_historial;primaryKey;autoIncrement" json:"id_historial"`
	OrderID        int64     `gorm:"column:id_pedido;not null;index" json:"id_pedido"`
	OriginCode     *string   `gorm:"column:estado_origen;type:varchar(64)" json:"estado_origen"`
	OriginStatusID *int64    `gorm:"column:id_estado_origen" json:"id_estado_origen"`
	DestCode       string    `gorm:"column:estado_destino;type:varchar(64);not null" json:"estado_destino"`
	DestStatusID   int64     `gorm:"column:id_estado_destino;not null" json:"id_estado_destino"`
	Note           string    `gorm:"column:texto;type:text" json:"texto"`
	Audience       string    `gorm:"column:audiencia;type:varchar(20);not null;default:'INTERNAL_ALL'" json:"audiencia"`
	TargetRole     *string   `gorm:"column:destinatario_rol;type:varchar(40)" json:"destinatario_rol"`
	CreatedBy      string    `gorm:"column:creado_por;type:varchar(80);not null" json:"creado_por"`
	CreatedAt      time.Time `gorm:"column:creado_en" json:"creado_en"`
}

func (OrderHistory) TableName() string {
	return "pedido_historial"
}

// OrderNote is an append-only timeline comment on an order.
type OrderNote struct {
	ID         int64     `gorm:"column:id_nota;primaryKey;autoIncrement" json:"id_nota"`
	OrderID    int64     `gorm:"column:id_pedido;not null;index" json:"id_pedido"`
	AuthorName string    `gorm:"column:autor_nombre;type:varchar(80)" json:"autor_nombre"`
	AuthorRole string    `gorm:"column:autor_rol;type:varchar(40)" json:"autor_rol"`
	Audience   string    `gorm:"column:audiencia;type:varchar(20);not null;default:'NEXT_ROLE'" json:"audiencia"`
	TargetRole *string   `gorm:"column:destinatario_rol;type:varchar(40)" json:"destinatario_rol"`
	Text       string    `gorm:"column:texto;type:text;not null" json:"texto"`
	CreatedAt  time.Time `gorm:"column:creado_en" json:"creado_en"`
}

func (OrderNote) TableName() string {
	return "pedido_notas"
}

// OrderStatus is a node of the status catalog. Read-only to the state engine;
// rows are maintained through the admin configuration screens.
type OrderStatus struct {
	ID              int64  `gorm:"column:id_estado;primaryKey;autoIncrement" json:"id_estado"`
	Code            string `gorm:"column:codigo;type:varchar(64);not null;unique" json:"codigo"`
	Name            string `gorm:"column:nombre;type:varchar(80);not null" json:"nombre"`
	ResponsibleRole string `gorm:"column:rol_responsable;type:varchar(30);not null" json:"rol_responsable"`
	DisplayOrder    int64  `gorm:"column:orden;not null;default:0" json:"orden"`
	Active          bool   `gorm:"column:activo;not null;default:true" json:"activo"`
	Final           bool   `gorm:"column:es_final;not null;default:false" json:"es_final"`
}

func (OrderStatus) TableName() string {
	return "pedido_estados"
}

// OrderTransition is a directed edge of the configured transition graph.
// Deselected edges are soft-deleted by flipping Active instead of deleting.
type OrderTransition struct {
	ID       int64 `gorm:"column:id_transicion;primaryKey;autoIncrement" json:"id_transicion"`
	OriginID int64 `gorm:"column:origen;not null;index" json:"origen"`
	DestID   int64 `gorm:"column:destino;not null;index" json:"destino"`
	Active   bool  `gorm:"column:activo;not null;default:true" json:"activo"`
}

func (OrderTransition) TableName() string {
	return "pedido_estado_transiciones"
}
