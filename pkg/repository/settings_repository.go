package repository

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/example/farmashop/pkg/models"
)

// SettingsRepository serves app_parametros with a per-key redis cache. It
// implements the Params interface of both engines.
type SettingsRepository struct {
	db     *gorm.DB
	cache  *RedisRepository
	logger *zap.Logger
}

func NewSettingsRepository(db *gorm.DB, cache *RedisRepository, logger *zap.Logger) *SettingsRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SettingsRepository{db: db, cache: cache, logger: logger}
}

func (r *SettingsRepository) Get(ctx context.Context, key string) (string, bool, error) {
	if r.cache != nil {
		if v, err := r.cache.Get(ctx, cacheKeyParamPrefix+key); err == nil {
			return v, true, nil
		}
	}

	var param models.AppParam
	err := r.db.WithContext(ctx).Where("clave = ?", key).First(&param).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}

	if r.cache != nil {
		if err := r.cache.Set(ctx, cacheKeyParamPrefix+key, param.Value, cacheTTL); err != nil {
			r.logger.Warn("param cache write failed", zap.String("clave", key), zap.Error(err))
		}
	}
	return param.Value, true, nil
}

// Set upserts a parameter and drops its cache entry.
func (r *SettingsRepository) Set(ctx context.Context, key, value string) error {
	param := models.AppParam{Key: key, Value: value}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "clave"}},
		DoUpdates: clause.AssignmentColumns([]string{"valor", "actualizado_en"}),
	}).Create(&param).Error
	if err != nil {
		return err
	}
	if r.cache != nil {
		if err := r.cache.Del(ctx, cacheKeyParamPrefix+key); err != nil {
			r.logger.Warn("param cache invalidation failed", zap.String("clave", key), zap.Error(err))
		}
	}
	return nil
}

// List returns all parameters ordered by key, for the admin settings screen.
func (r *SettingsRepository) List(ctx context.Context) ([]models.AppParam, error) {
	var params []models.AppParam
	err := r.db.WithContext(ctx).Order("clave").Find(&params).Error
	return params, err
}
