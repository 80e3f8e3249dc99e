package repository

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/example/farmashop/pkg/models"
	"github.com/example/farmashop/pkg/orderflow"
)

// StatusRepository serves the status catalog and the transition graph, with a
// redis read-through cache in front of the hot read paths.
type StatusRepository struct {
	db     *gorm.DB
	cache  *RedisRepository
	logger *zap.Logger
}

func NewStatusRepository(db *gorm.DB, cache *RedisRepository, logger *zap.Logger) *StatusRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatusRepository{db: db, cache: cache, logger: logger}
}

func (r *StatusRepository) ByCode(ctx context.Context, code string) (*models.OrderStatus, error) {
	var st models.OrderStatus
	err := r.db.WithContext(ctx).Where("codigo = ?", code).First(&st).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, orderflow.ErrStatusNotFound
	}
	if err != nil {
		return nil, err
	}
	return &st, nil
}

func (r *StatusRepository) ListActive(ctx context.Context) ([]models.OrderStatus, error) {
	if r.cache != nil {
		var cached []models.OrderStatus
		if err := r.cache.GetJSON(ctx, cacheKeyStatuses, &cached); err == nil {
			return cached, nil
		}
	}

	var statuses []models.OrderStatus
	err := r.db.WithContext(ctx).
		Where("activo = ?", true).
		Order("orden, codigo").
		Find(&statuses).Error
	if err != nil {
		return nil, err
	}

	if r.cache != nil {
		if err := r.cache.SetJSON(ctx, cacheKeyStatuses, statuses, cacheTTL); err != nil {
			r.logger.Warn("status cache write failed", zap.Error(err))
		}
	}
	return statuses, nil
}

// NextActive returns the active destinations reachable from origin through
// active edges, in catalog display order.
func (r *StatusRepository) NextActive(ctx context.Context, originID int64) ([]models.OrderStatus, error) {
	key := fmt.Sprintf("%s%d", cacheKeyEdgesPrefix, originID)
	if r.cache != nil {
		var cached []models.OrderStatus
		if err := r.cache.GetJSON(ctx, key, &cached); err == nil {
			return cached, nil
		}
	}

	var dests []models.OrderStatus
	err := r.db.WithContext(ctx).
		Table("pedido_estados e").
		Joins("JOIN pedido_estado_transiciones t ON t.destino = e.id_estado").
		Where("t.origen = ? AND t.activo = ? AND e.activo = ?", originID, true, true).
		Order("e.orden, e.codigo").
		Find(&dests).Error
	if err != nil {
		return nil, err
	}

	if r.cache != nil {
		if err := r.cache.SetJSON(ctx, key, dests, cacheTTL); err != nil {
			r.logger.Warn("transition cache write failed", zap.Error(err))
		}
	}
	return dests, nil
}

// SaveTransitionMatrix replaces the whole outbound edge set of each origin in
// the matrix: selected edges are upserted active, missing ones deactivated.
// Edges of origins not present in the matrix are untouched.
func (r *StatusRepository) SaveTransitionMatrix(ctx context.Context, matrix map[int64][]int64) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for originID, destIDs := range matrix {
			if err := tx.Model(&models.OrderTransition{}).
				Where("origen = ?", originID).
				Update("activo", false).Error; err != nil {
				return err
			}
			for _, destID := range destIDs {
				if originID == destID {
					continue
				}
				var edge models.OrderTransition
				err := tx.Where("origen = ? AND destino = ?", originID, destID).First(&edge).Error
				switch {
				case errors.Is(err, gorm.ErrRecordNotFound):
					edge = models.OrderTransition{OriginID: originID, DestID: destID, Active: true}
					if err := tx.Create(&edge).Error; err != nil {
						return err
					}
				case err != nil:
					return err
				default:
					if err := tx.Model(&edge).Update("activo", true).Error; err != nil {
						return err
					}
				}
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	r.invalidate(ctx)
	return nil
}

func (r *StatusRepository) invalidate(ctx context.Context) {
	if r.cache == nil {
		return
	}
	if err := r.cache.Del(ctx, cacheKeyStatuses); err != nil {
		r.logger.Warn("status cache invalidation failed", zap.Error(err))
	}
	if err := r.cache.DelByPrefix(ctx, cacheKeyEdgesPrefix); err != nil {
		r.logger.Warn("transition cache invalidation failed", zap.Error(err))
	}
}
