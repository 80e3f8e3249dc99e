package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/example/farmashop/pkg/models"
	"github.com/example/farmashop/pkg/orderflow"
)

// OrderRepository implements orderflow.OrderStore on the pedidos tables.
type OrderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

func (r *OrderRepository) ByID(ctx context.Context, id int64) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).Where("id_pedido = ?", id).First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, orderflow.ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// ApplyTransition updates the order status, inserts the history row and any
// transition notes in one transaction. The status update is guarded by the
// origin code so a concurrent transition loses cleanly instead of
// double-writing history.
func (r *OrderRepository) ApplyTransition(ctx context.Context, rec *orderflow.TransitionRecord) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		update := tx.Model(&models.Order{}).
			Where("id_pedido = ?", rec.OrderID)
		if rec.OriginCode != nil {
			update = update.Where("estado_codigo = ?", *rec.OriginCode)
		}
		res := update.Updates(map[string]interface{}{
			"estado_codigo":  rec.DestCode,
			"actualizado_en": time.Now(),
		})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return orderflow.ErrOrderNotFound
		}

		history := models.OrderHistory{
			OrderID:        rec.OrderID,
			OriginCode:     rec.OriginCode,
			OriginStatusID: rec.OriginStatusID,
			DestCode:       rec.DestCode,
			DestStatusID:   rec.DestStatusID,
			Note:           rec.HistoryNote,
			Audience:       rec.Audience,
			TargetRole:     rec.TargetRole,
			CreatedBy:      rec.ActorName,
		}
		if err := tx.Create(&history).Error; err != nil {
			return err
		}

		for i := range rec.Notes {
			if err := tx.Create(&rec.Notes[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *OrderRepository) Archive(ctx context.Context, orderID int64) error {
	return r.db.WithContext(ctx).Model(&models.Order{}).
		Where("id_pedido = ?", orderID).
		Update("archivado", true).Error
}

func (r *OrderRepository) AddNote(ctx context.Context, note *models.OrderNote) error {
	return r.db.WithContext(ctx).Create(note).Error
}

// CustomerEmail returns "" without error when the order has no customer.
func (r *OrderRepository) CustomerEmail(ctx context.Context, orderID int64) (string, error) {
	order, err := r.ByID(ctx, orderID)
	if err != nil {
		return "", err
	}
	if order.CustomerID == nil {
		return "", nil
	}
	var customer models.Customer
	err = r.db.WithContext(ctx).Where("id_cliente = ?", *order.CustomerID).First(&customer).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return customer.Email, nil
}

// History returns the transition history of an order, newest first.
func (r *OrderRepository) History(ctx context.Context, orderID int64) ([]models.OrderHistory, error) {
	var rows []models.OrderHistory
	err := r.db.WithContext(ctx).
		Where("id_pedido = ?", orderID).
		Order("creado_en DESC, id_historial DESC").
		Find(&rows).Error
	return rows, err
}

// Notes returns the notes visible to the given role, newest first. Admins see
// everything; other roles see customer and internal notes plus role notes
// addressed to them.
func (r *OrderRepository) Notes(ctx context.Context, orderID int64, viewerRole string) ([]models.OrderNote, error) {
	q := r.db.WithContext(ctx).Where("id_pedido = ?", orderID)
	if viewerRole != "" && viewerRole != "admin" {
		q = q.Where("audiencia <> ? OR destinatario_rol = ?", models.AudienceNextRole, viewerRole)
	}
	var notes []models.OrderNote
	err := q.Order("creado_en DESC, id_nota DESC").Find(&notes).Error
	return notes, err
}
