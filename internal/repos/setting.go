package repos

import (
	"context"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/spooldock/spooldock/internal/logger"
	"github.com/spooldock/spooldock/internal/types"
)

type SettingRepo interface {
	Get(ctx context.Context, tx *gorm.DB, key string) (*types.Setting, error)
	GetAll(ctx context.Context, tx *gorm.DB) ([]*types.Setting, error)
	Upsert(ctx context.Context, tx *gorm.DB, key, value string) (*types.Setting, error)
	Delete(ctx context.Context, tx *gorm.DB, key string) error
}

type settingRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSettingRepo(db *gorm.DB, baseLog *logger.Logger) SettingRepo {
	return &settingRepo{db: db, log: baseLog.With("repo", "SettingRepo")}
}

func (r *settingRepo) Get(ctx context.Context, tx *gorm.DB, key string) (*types.Setting, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var setting types.Setting
	if err := transaction.WithContext(ctx).
		Where("key = ?", key).
		First(&setting).Error; err != nil {
		return nil, err
	}
	return &setting, nil
}

func (r *settingRepo) GetAll(ctx context.Context, tx *gorm.DB) ([]*types.Setting, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.Setting
	if err := transaction.WithContext(ctx).Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *settingRepo) Upsert(ctx context.Context, tx *gorm.DB, key, value string) (*types.Setting, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	setting := &types.Setting{
		Key:         key,
		Value:       datatypes.JSON(value),
		LastUpdated: time.Now().UTC().Truncate(time.Second),
	}
	if err := transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "last_updated"}),
		}).
		Create(setting).Error; err != nil {
		return nil, err
	}
	return setting, nil
}

func (r *settingRepo) Delete(ctx context.Context, tx *gorm.DB, key string) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Where("key = ?", key).
		Delete(&types.Setting{}).Error
}
