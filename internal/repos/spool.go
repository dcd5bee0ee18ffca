package repos

import (
	"context"

	"gorm.io/gorm"

	"github.com/spooldock/spooldock/internal/logger"
	"github.com/spooldock/spooldock/internal/types"
)

var spoolSortColumns = map[string]string{
	"id":                   "spool.id",
	"registered":           "spool.registered",
	"first_used":           "spool.first_used",
	"last_used":            "spool.last_used",
	"price":                "spool.price",
	"used_weight":          "spool.used_weight",
	"location":             "spool.location",
	"lot_nr":               "spool.lot_nr",
	"archived":             "spool.archived",
	"filament.name":        "filament.name",
	"filament.material":    "filament.material",
	"filament.vendor.name": "vendor.name",
}

type SpoolFilter struct {
	FilamentID   *int
	Name         *string
	Material     *string
	VendorID     *int
	VendorName   *string
	Location     *string
	LotNr        *string
	AllowArchived bool
}

type SpoolRepo interface {
	Create(ctx context.Context, tx *gorm.DB, spool *types.Spool) error
	GetByID(ctx context.Context, tx *gorm.DB, spoolID int) (*types.Spool, error)
	Find(ctx context.Context, tx *gorm.DB, filter SpoolFilter, sort string, page Pagination) ([]*types.Spool, int64, error)
	Save(ctx context.Context, tx *gorm.DB, spool *types.Spool) error
	Delete(ctx context.Context, tx *gorm.DB, spoolID int) error
	ReplaceExtras(ctx context.Context, tx *gorm.DB, spoolID int, extras []types.SpoolExtra) error
	CountByFilament(ctx context.Context, tx *gorm.DB, filamentID int) (int64, error)
	UseWeight(ctx context.Context, tx *gorm.DB, spoolID int, delta float64) error
}

type spoolRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSpoolRepo(db *gorm.DB, baseLog *logger.Logger) SpoolRepo {
	return &spoolRepo{db: db, log: baseLog.With("repo", "SpoolRepo")}
}

func (r *spoolRepo) Create(ctx context.Context, tx *gorm.DB, spool *types.Spool) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).Omit("Filament").Create(spool).Error
}

// GetByID returns the spool with its full object graph: filament, the
// filament's vendor, and every extras list.
func (r *spoolRepo) GetByID(ctx context.Context, tx *gorm.DB, spoolID int) (*types.Spool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var spool types.Spool
	if err := transaction.WithContext(ctx).
		Preload("Filament").
		Preload("Filament.Vendor").
		Preload("Filament.Vendor.Extras").
		Preload("Filament.Extras").
		Preload("Extras").
		First(&spool, spoolID).Error; err != nil {
		return nil, err
	}
	return &spool, nil
}

func (r *spoolRepo) Find(ctx context.Context, tx *gorm.DB, filter SpoolFilter, sort string, page Pagination) ([]*types.Spool, int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	clauses, err := ParseSort(sort, spoolSortColumns)
	if err != nil {
		return nil, 0, err
	}

	q := transaction.WithContext(ctx).Model(&types.Spool{}).
		Joins("JOIN filament ON filament.id = spool.filament_id").
		Joins("LEFT JOIN vendor ON vendor.id = filament.vendor_id")
	if !filter.AllowArchived {
		q = q.Where("spool.archived = ?", false)
	}
	if filter.FilamentID != nil {
		q = q.Where("spool.filament_id = ?", *filter.FilamentID)
	}
	if filter.Name != nil {
		q = q.Where("filament.name LIKE ?", likePattern(*filter.Name))
	}
	if filter.Material != nil {
		q = q.Where("filament.material = ?", *filter.Material)
	}
	if filter.VendorID != nil {
		q = q.Where("filament.vendor_id = ?", *filter.VendorID)
	}
	if filter.VendorName != nil {
		q = q.Where("vendor.name LIKE ?", likePattern(*filter.VendorName))
	}
	if filter.Location != nil {
		q = q.Where("spool.location = ?", *filter.Location)
	}
	if filter.LotNr != nil {
		q = q.Where("spool.lot_nr = ?", *filter.LotNr)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var results []*types.Spool
	if err := page.apply(applySort(q, clauses)).
		Preload("Filament").
		Preload("Filament.Vendor").
		Preload("Filament.Vendor.Extras").
		Preload("Filament.Extras").
		Preload("Extras").
		Find(&results).Error; err != nil {
		return nil, 0, err
	}
	return results, total, nil
}

func (r *spoolRepo) Save(ctx context.Context, tx *gorm.DB, spool *types.Spool) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).Omit("Filament", "Extras").Save(spool).Error
}

func (r *spoolRepo) Delete(ctx context.Context, tx *gorm.DB, spoolID int) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).
		Where("spool_id = ?", spoolID).
		Delete(&types.SpoolExtra{}).Error; err != nil {
		return err
	}
	return transaction.WithContext(ctx).Delete(&types.Spool{}, spoolID).Error
}

func (r *spoolRepo) ReplaceExtras(ctx context.Context, tx *gorm.DB, spoolID int, extras []types.SpoolExtra) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).
		Where("spool_id = ?", spoolID).
		Delete(&types.SpoolExtra{}).Error; err != nil {
		return err
	}
	if len(extras) == 0 {
		return nil
	}
	return transaction.WithContext(ctx).Create(&extras).Error
}

func (r *spoolRepo) CountByFilament(ctx context.Context, tx *gorm.DB, filamentID int) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var count int64
	err := transaction.WithContext(ctx).Model(&types.Spool{}).
		Where("filament_id = ?", filamentID).
		Count(&count).Error
	return count, err
}

// UseWeight applies the clamped decrement as one conditional statement, so
// concurrent consumption composes additively at the database row. The delta
// may be negative (refund); the result never goes below zero.
func (r *spoolRepo) UseWeight(ctx context.Context, tx *gorm.DB, spoolID int, delta float64) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(ctx).Model(&types.Spool{}).
		Where("id = ?", spoolID).
		UpdateColumn("used_weight", gorm.Expr(
			"CASE WHEN used_weight + ? >= 0 THEN used_weight + ? ELSE 0 END", delta, delta))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
