package services

import (
	"context"
	"errors"
	"strconv"
	"time"

	"gorm.io/gorm"

	"github.com/spooldock/spooldock/internal/apierr"
	"github.com/spooldock/spooldock/internal/events"
	"github.com/spooldock/spooldock/internal/logger"
	"github.com/spooldock/spooldock/internal/repos"
	"github.com/spooldock/spooldock/internal/types"
)

type FilamentCreate struct {
	Name                 *string            `json:"name"`
	VendorID             *int               `json:"vendor_id"`
	Material             *string            `json:"material"`
	Price                *float64           `json:"price"`
	Density              float64            `json:"density" binding:"required"`
	Diameter             float64            `json:"diameter" binding:"required"`
	Weight               *float64           `json:"weight"`
	SpoolWeight          *float64           `json:"spool_weight"`
	ArticleNumber        *string            `json:"article_number"`
	Comment              *string            `json:"comment"`
	SettingsExtruderTemp *int               `json:"settings_extruder_temp"`
	SettingsBedTemp      *int               `json:"settings_bed_temp"`
	ColorHex             *string            `json:"color_hex"`
	MultiColorHexes      *string            `json:"multi_color_hexes"`
	MultiColorDirection  *string            `json:"multi_color_direction"`
	ExternalID           *string            `json:"external_id"`
	Extra                map[string]*string `json:"extra"`
}

type FilamentPatch struct {
	Name                 types.Optional[string]  `json:"name"`
	VendorID             types.Optional[int]     `json:"vendor_id"`
	Material             types.Optional[string]  `json:"material"`
	Price                types.Optional[float64] `json:"price"`
	Density              types.Optional[float64] `json:"density"`
	Diameter             types.Optional[float64] `json:"diameter"`
	Weight               types.Optional[float64] `json:"weight"`
	SpoolWeight          types.Optional[float64] `json:"spool_weight"`
	ArticleNumber        types.Optional[string]  `json:"article_number"`
	Comment              types.Optional[string]  `json:"comment"`
	SettingsExtruderTemp types.Optional[int]     `json:"settings_extruder_temp"`
	SettingsBedTemp      types.Optional[int]     `json:"settings_bed_temp"`
	ColorHex             types.Optional[string]  `json:"color_hex"`
	MultiColorHexes      types.Optional[string]  `json:"multi_color_hexes"`
	MultiColorDirection  types.Optional[string]  `json:"multi_color_direction"`
	ExternalID           types.Optional[string]  `json:"external_id"`
	Extra                map[string]*string      `json:"extra"`
}

type FilamentService interface {
	Create(ctx context.Context, input FilamentCreate) (*types.Filament, error)
	Get(ctx context.Context, filamentID int) (*types.Filament, error)
	Find(ctx context.Context, filter repos.FilamentFilter, sort string, page repos.Pagination) ([]*types.Filament, int64, error)
	Update(ctx context.Context, filamentID int, patch FilamentPatch) (*types.Filament, error)
	Delete(ctx context.Context, filamentID int) (*types.Filament, error)
}

type filamentService struct {
	db           *gorm.DB
	log          *logger.Logger
	filamentRepo repos.FilamentRepo
	vendorRepo   repos.VendorRepo
	spoolRepo    repos.SpoolRepo
	fields       ExtraFieldService
	hub          eventPublisher
}

func NewFilamentService(db *gorm.DB, log *logger.Logger, filamentRepo repos.FilamentRepo, vendorRepo repos.VendorRepo, spoolRepo repos.SpoolRepo, fields ExtraFieldService, hub eventPublisher) FilamentService {
	return &filamentService{
		db:           db,
		log:          log.With("service", "FilamentService"),
		filamentRepo: filamentRepo,
		vendorRepo:   vendorRepo,
		spoolRepo:    spoolRepo,
		fields:       fields,
		hub:          hub,
	}
}

func (s *filamentService) decorate(ctx context.Context, tx *gorm.DB, filament *types.Filament) error {
	raw := make(map[string]string, len(filament.Extras))
	for _, e := range filament.Extras {
		raw[e.Key] = e.Value
	}
	filtered, err := s.fields.FilterKnown(ctx, tx, EntityFilament, raw)
	if err != nil {
		return err
	}
	filament.Extra = filtered
	if filament.Vendor != nil {
		vraw := make(map[string]string, len(filament.Vendor.Extras))
		for _, e := range filament.Vendor.Extras {
			vraw[e.Key] = e.Value
		}
		vfiltered, err := s.fields.FilterKnown(ctx, tx, EntityVendor, vraw)
		if err != nil {
			return err
		}
		filament.Vendor.Extra = vfiltered
	}
	return nil
}

func (s *filamentService) resolveVendor(ctx context.Context, tx *gorm.DB, vendorID int) error {
	if _, err := s.vendorRepo.GetByID(ctx, tx, vendorID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apierr.NotFound("no vendor with id %d", vendorID)
		}
		return err
	}
	return nil
}

func (s *filamentService) Create(ctx context.Context, input FilamentCreate) (*types.Filament, error) {
	if input.Density <= 0 {
		return nil, apierr.InvalidArgument("density must be > 0")
	}
	if input.Diameter <= 0 {
		return nil, apierr.InvalidArgument("diameter must be > 0")
	}
	if input.Weight != nil && *input.Weight <= 0 {
		return nil, apierr.InvalidArgument("weight must be > 0")
	}
	if input.SpoolWeight != nil && *input.SpoolWeight <= 0 {
		return nil, apierr.InvalidArgument("spool_weight must be > 0")
	}

	filament := &types.Filament{
		Registered:           utcSeconds(time.Now()),
		VendorID:             input.VendorID,
		Name:                 input.Name,
		Material:             input.Material,
		Price:                input.Price,
		Density:              input.Density,
		Diameter:             input.Diameter,
		Weight:               input.Weight,
		SpoolWeight:          input.SpoolWeight,
		ArticleNumber:        input.ArticleNumber,
		Comment:              input.Comment,
		SettingsExtruderTemp: input.SettingsExtruderTemp,
		SettingsBedTemp:      input.SettingsBedTemp,
		ColorHex:             input.ColorHex,
		MultiColorHexes:      input.MultiColorHexes,
		MultiColorDirection:  input.MultiColorDirection,
		ExternalID:           input.ExternalID,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if input.VendorID != nil {
			if err := s.resolveVendor(ctx, tx, *input.VendorID); err != nil {
				return err
			}
		}
		if err := s.fields.ValidateExtras(ctx, tx, EntityFilament, input.Extra); err != nil {
			return err
		}
		supplied := make(map[string]string, len(input.Extra))
		for k, v := range input.Extra {
			if v != nil {
				supplied[k] = *v
			}
		}
		withDefaults, err := s.fields.ApplyDefaults(ctx, tx, EntityFilament, supplied)
		if err != nil {
			return err
		}
		if err := s.filamentRepo.Create(ctx, tx, filament); err != nil {
			return err
		}
		extras := make([]types.FilamentExtra, 0, len(withDefaults))
		for k, v := range withDefaults {
			extras = append(extras, types.FilamentExtra{FilamentID: filament.ID, Key: k, Value: v})
		}
		if err := s.filamentRepo.ReplaceExtras(ctx, tx, filament.ID, extras); err != nil {
			return err
		}
		reloaded, err := s.filamentRepo.GetByID(ctx, tx, filament.ID)
		if err != nil {
			return err
		}
		filament = reloaded
		return s.decorate(ctx, tx, filament)
	})
	if err != nil {
		return nil, err
	}

	s.hub.Publish(events.EventAdded, types.ResourceFilament, strconv.Itoa(filament.ID), filament)
	return filament, nil
}

func (s *filamentService) Get(ctx context.Context, filamentID int) (*types.Filament, error) {
	filament, err := s.filamentRepo.GetByID(ctx, nil, filamentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.NotFound("no filament with id %d", filamentID)
		}
		return nil, err
	}
	if err := s.decorate(ctx, nil, filament); err != nil {
		return nil, err
	}
	return filament, nil
}

func (s *filamentService) Find(ctx context.Context, filter repos.FilamentFilter, sort string, page repos.Pagination) ([]*types.Filament, int64, error) {
	filaments, total, err := s.filamentRepo.Find(ctx, nil, filter, sort, page)
	if err != nil {
		return nil, 0, err
	}
	for _, f := range filaments {
		if err := s.decorate(ctx, nil, f); err != nil {
			return nil, 0, err
		}
	}
	return filaments, total, nil
}

func (s *filamentService) Update(ctx context.Context, filamentID int, patch FilamentPatch) (*types.Filament, error) {
	var filament *types.Filament
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.filamentRepo.GetByID(ctx, tx, filamentID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apierr.NotFound("no filament with id %d", filamentID)
			}
			return err
		}

		if patch.VendorID.Set {
			if !patch.VendorID.Valid {
				existing.VendorID = nil
			} else {
				if err := s.resolveVendor(ctx, tx, patch.VendorID.Value); err != nil {
					return err
				}
				existing.VendorID = patch.VendorID.Ptr()
			}
		}
		if patch.Name.Set {
			existing.Name = patch.Name.Ptr()
		}
		if patch.Material.Set {
			existing.Material = patch.Material.Ptr()
		}
		if patch.Price.Set {
			if patch.Price.Valid && patch.Price.Value < 0 {
				return apierr.InvalidArgument("price must be >= 0")
			}
			existing.Price = patch.Price.Ptr()
		}
		if patch.Density.Set {
			if !patch.Density.Valid || patch.Density.Value <= 0 {
				return apierr.InvalidArgument("density must be > 0")
			}
			existing.Density = patch.Density.Value
		}
		if patch.Diameter.Set {
			if !patch.Diameter.Valid || patch.Diameter.Value <= 0 {
				return apierr.InvalidArgument("diameter must be > 0")
			}
			existing.Diameter = patch.Diameter.Value
		}
		if patch.Weight.Set {
			if patch.Weight.Valid && patch.Weight.Value <= 0 {
				return apierr.InvalidArgument("weight must be > 0")
			}
			existing.Weight = patch.Weight.Ptr()
		}
		if patch.SpoolWeight.Set {
			if patch.SpoolWeight.Valid && patch.SpoolWeight.Value <= 0 {
				return apierr.InvalidArgument("spool_weight must be > 0")
			}
			existing.SpoolWeight = patch.SpoolWeight.Ptr()
		}
		if patch.ArticleNumber.Set {
			existing.ArticleNumber = patch.ArticleNumber.Ptr()
		}
		if patch.Comment.Set {
			existing.Comment = patch.Comment.Ptr()
		}
		if patch.SettingsExtruderTemp.Set {
			existing.SettingsExtruderTemp = patch.SettingsExtruderTemp.Ptr()
		}
		if patch.SettingsBedTemp.Set {
			existing.SettingsBedTemp = patch.SettingsBedTemp.Ptr()
		}
		if patch.ColorHex.Set {
			existing.ColorHex = patch.ColorHex.Ptr()
		}
		if patch.MultiColorHexes.Set {
			existing.MultiColorHexes = patch.MultiColorHexes.Ptr()
		}
		if patch.MultiColorDirection.Set {
			existing.MultiColorDirection = patch.MultiColorDirection.Ptr()
		}
		if patch.ExternalID.Set {
			existing.ExternalID = patch.ExternalID.Ptr()
		}

		if err := s.filamentRepo.Save(ctx, tx, existing); err != nil {
			return err
		}

		if patch.Extra != nil {
			if err := s.fields.ValidateExtras(ctx, tx, EntityFilament, patch.Extra); err != nil {
				return err
			}
			merged := make(map[string]string, len(existing.Extras))
			for _, e := range existing.Extras {
				merged[e.Key] = e.Value
			}
			for k, v := range patch.Extra {
				if v == nil {
					delete(merged, k)
				} else {
					merged[k] = *v
				}
			}
			extras := make([]types.FilamentExtra, 0, len(merged))
			for k, v := range merged {
				extras = append(extras, types.FilamentExtra{FilamentID: filamentID, Key: k, Value: v})
			}
			if err := s.filamentRepo.ReplaceExtras(ctx, tx, filamentID, extras); err != nil {
				return err
			}
		}

		reloaded, err := s.filamentRepo.GetByID(ctx, tx, filamentID)
		if err != nil {
			return err
		}
		filament = reloaded
		return s.decorate(ctx, tx, filament)
	})
	if err != nil {
		return nil, err
	}

	s.hub.Publish(events.EventUpdated, types.ResourceFilament, strconv.Itoa(filamentID), filament)
	return filament, nil
}

// Delete refuses while spools still reference the filament.
func (s *filamentService) Delete(ctx context.Context, filamentID int) (*types.Filament, error) {
	var filament *types.Filament
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.filamentRepo.GetByID(ctx, tx, filamentID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apierr.NotFound("no filament with id %d", filamentID)
			}
			return err
		}
		count, err := s.spoolRepo.CountByFilament(ctx, tx, filamentID)
		if err != nil {
			return err
		}
		if count > 0 {
			return apierr.Constraint("filament %d is referenced by %d spool(s)", filamentID, count)
		}
		if err := s.decorate(ctx, tx, existing); err != nil {
			return err
		}
		filament = existing
		return s.filamentRepo.Delete(ctx, tx, filamentID)
	})
	if err != nil {
		return nil, err
	}

	s.hub.Publish(events.EventDeleted, types.ResourceFilament, strconv.Itoa(filamentID), filament)
	return filament, nil
}
