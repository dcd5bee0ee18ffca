package repos

import (
	"context"

	"gorm.io/gorm"

	"github.com/spooldock/spooldock/internal/logger"
	"github.com/spooldock/spooldock/internal/types"
)

var filamentSortColumns = map[string]string{
	"id":             "filament.id",
	"registered":     "filament.registered",
	"name":           "filament.name",
	"material":       "filament.material",
	"price":          "filament.price",
	"density":        "filament.density",
	"diameter":       "filament.diameter",
	"weight":         "filament.weight",
	"article_number": "filament.article_number",
	"external_id":    "filament.external_id",
	"vendor.name":    "vendor.name",
}

type FilamentFilter struct {
	Name          *string
	Material      *string
	ArticleNumber *string
	VendorID      *int
	VendorName    *string
	ExternalID    *string
}

type FilamentRepo interface {
	Create(ctx context.Context, tx *gorm.DB, filament *types.Filament) error
	GetByID(ctx context.Context, tx *gorm.DB, filamentID int) (*types.Filament, error)
	Find(ctx context.Context, tx *gorm.DB, filter FilamentFilter, sort string, page Pagination) ([]*types.Filament, int64, error)
	Save(ctx context.Context, tx *gorm.DB, filament *types.Filament) error
	Delete(ctx context.Context, tx *gorm.DB, filamentID int) error
	ReplaceExtras(ctx context.Context, tx *gorm.DB, filamentID int, extras []types.FilamentExtra) error
	ClearVendor(ctx context.Context, tx *gorm.DB, vendorID int) error
}

type filamentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewFilamentRepo(db *gorm.DB, baseLog *logger.Logger) FilamentRepo {
	return &filamentRepo{db: db, log: baseLog.With("repo", "FilamentRepo")}
}

func (r *filamentRepo) Create(ctx context.Context, tx *gorm.DB, filament *types.Filament) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).Omit("Vendor").Create(filament).Error
}

func (r *filamentRepo) GetByID(ctx context.Context, tx *gorm.DB, filamentID int) (*types.Filament, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var filament types.Filament
	if err := transaction.WithContext(ctx).
		Preload("Vendor").
		Preload("Vendor.Extras").
		Preload("Extras").
		First(&filament, filamentID).Error; err != nil {
		return nil, err
	}
	return &filament, nil
}

func (r *filamentRepo) Find(ctx context.Context, tx *gorm.DB, filter FilamentFilter, sort string, page Pagination) ([]*types.Filament, int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	clauses, err := ParseSort(sort, filamentSortColumns)
	if err != nil {
		return nil, 0, err
	}

	q := transaction.WithContext(ctx).Model(&types.Filament{}).
		Joins("LEFT JOIN vendor ON vendor.id = filament.vendor_id")
	if filter.Name != nil {
		q = q.Where("filament.name LIKE ?", likePattern(*filter.Name))
	}
	if filter.Material != nil {
		q = q.Where("filament.material = ?", *filter.Material)
	}
	if filter.ArticleNumber != nil {
		q = q.Where("filament.article_number = ?", *filter.ArticleNumber)
	}
	if filter.VendorID != nil {
		q = q.Where("filament.vendor_id = ?", *filter.VendorID)
	}
	if filter.VendorName != nil {
		q = q.Where("vendor.name LIKE ?", likePattern(*filter.VendorName))
	}
	if filter.ExternalID != nil {
		q = q.Where("filament.external_id = ?", *filter.ExternalID)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var results []*types.Filament
	if err := page.apply(applySort(q, clauses)).
		Preload("Vendor").
		Preload("Vendor.Extras").
		Preload("Extras").
		Find(&results).Error; err != nil {
		return nil, 0, err
	}
	return results, total, nil
}

func (r *filamentRepo) Save(ctx context.Context, tx *gorm.DB, filament *types.Filament) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).Omit("Vendor", "Extras").Save(filament).Error
}

func (r *filamentRepo) Delete(ctx context.Context, tx *gorm.DB, filamentID int) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).
		Where("filament_id = ?", filamentID).
		Delete(&types.FilamentExtra{}).Error; err != nil {
		return err
	}
	return transaction.WithContext(ctx).Delete(&types.Filament{}, filamentID).Error
}

func (r *filamentRepo) ReplaceExtras(ctx context.Context, tx *gorm.DB, filamentID int, extras []types.FilamentExtra) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).
		Where("filament_id = ?", filamentID).
		Delete(&types.FilamentExtra{}).Error; err != nil {
		return err
	}
	if len(extras) == 0 {
		return nil
	}
	return transaction.WithContext(ctx).Create(&extras).Error
}

// ClearVendor detaches every filament of a deleted vendor. The filaments
// themselves survive.
func (r *filamentRepo) ClearVendor(ctx context.Context, tx *gorm.DB, vendorID int) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).Model(&types.Filament{}).
		Where("vendor_id = ?", vendorID).
		Update("vendor_id", nil).Error
}
