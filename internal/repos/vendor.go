package repos

import (
	"context"

	"gorm.io/gorm"

	"github.com/spooldock/spooldock/internal/logger"
	"github.com/spooldock/spooldock/internal/types"
)

var vendorSortColumns = map[string]string{
	"id":          "vendor.id",
	"registered":  "vendor.registered",
	"name":        "vendor.name",
	"external_id": "vendor.external_id",
}

type VendorFilter struct {
	Name       *string
	ExternalID *string
}

type VendorRepo interface {
	Create(ctx context.Context, tx *gorm.DB, vendor *types.Vendor) error
	GetByID(ctx context.Context, tx *gorm.DB, vendorID int) (*types.Vendor, error)
	Find(ctx context.Context, tx *gorm.DB, filter VendorFilter, sort string, page Pagination) ([]*types.Vendor, int64, error)
	Save(ctx context.Context, tx *gorm.DB, vendor *types.Vendor) error
	Delete(ctx context.Context, tx *gorm.DB, vendorID int) error
	ReplaceExtras(ctx context.Context, tx *gorm.DB, vendorID int, extras []types.VendorExtra) error
}

type vendorRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewVendorRepo(db *gorm.DB, baseLog *logger.Logger) VendorRepo {
	return &vendorRepo{db: db, log: baseLog.With("repo", "VendorRepo")}
}

func (r *vendorRepo) Create(ctx context.Context, tx *gorm.DB, vendor *types.Vendor) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).Create(vendor).Error
}

func (r *vendorRepo) GetByID(ctx context.Context, tx *gorm.DB, vendorID int) (*types.Vendor, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var vendor types.Vendor
	if err := transaction.WithContext(ctx).
		Preload("Extras").
		First(&vendor, vendorID).Error; err != nil {
		return nil, err
	}
	return &vendor, nil
}

func (r *vendorRepo) Find(ctx context.Context, tx *gorm.DB, filter VendorFilter, sort string, page Pagination) ([]*types.Vendor, int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	clauses, err := ParseSort(sort, vendorSortColumns)
	if err != nil {
		return nil, 0, err
	}

	q := transaction.WithContext(ctx).Model(&types.Vendor{})
	if filter.Name != nil {
		q = q.Where("vendor.name LIKE ?", likePattern(*filter.Name))
	}
	if filter.ExternalID != nil {
		q = q.Where("vendor.external_id = ?", *filter.ExternalID)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var results []*types.Vendor
	if err := page.apply(applySort(q, clauses)).
		Preload("Extras").
		Find(&results).Error; err != nil {
		return nil, 0, err
	}
	return results, total, nil
}

func (r *vendorRepo) Save(ctx context.Context, tx *gorm.DB, vendor *types.Vendor) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).Omit("Extras").Save(vendor).Error
}

func (r *vendorRepo) Delete(ctx context.Context, tx *gorm.DB, vendorID int) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).
		Where("vendor_id = ?", vendorID).
		Delete(&types.VendorExtra{}).Error; err != nil {
		return err
	}
	return transaction.WithContext(ctx).Delete(&types.Vendor{}, vendorID).Error
}

func (r *vendorRepo) ReplaceExtras(ctx context.Context, tx *gorm.DB, vendorID int, extras []types.VendorExtra) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).
		Where("vendor_id = ?", vendorID).
		Delete(&types.VendorExtra{}).Error; err != nil {
		return err
	}
	if len(extras) == 0 {
		return nil
	}
	return transaction.WithContext(ctx).Create(&extras).Error
}
