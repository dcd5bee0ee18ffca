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

type VendorCreate struct {
	Name             string             `json:"name" binding:"required"`
	Comment          *string            `json:"comment"`
	EmptySpoolWeight *float64           `json:"empty_spool_weight"`
	ExternalID       *string            `json:"external_id"`
	Extra            map[string]*string `json:"extra"`
}

type VendorPatch struct {
	Name             types.Optional[string]  `json:"name"`
	Comment          types.Optional[string]  `json:"comment"`
	EmptySpoolWeight types.Optional[float64] `json:"empty_spool_weight"`
	ExternalID       types.Optional[string]  `json:"external_id"`
	Extra            map[string]*string      `json:"extra"`
}

type VendorService interface {
	Create(ctx context.Context, input VendorCreate) (*types.Vendor, error)
	Get(ctx context.Context, vendorID int) (*types.Vendor, error)
	Find(ctx context.Context, filter repos.VendorFilter, sort string, page repos.Pagination) ([]*types.Vendor, int64, error)
	Update(ctx context.Context, vendorID int, patch VendorPatch) (*types.Vendor, error)
	Delete(ctx context.Context, vendorID int) (*types.Vendor, error)
}

type vendorService struct {
	db           *gorm.DB
	log          *logger.Logger
	vendorRepo   repos.VendorRepo
	filamentRepo repos.FilamentRepo
	fields       ExtraFieldService
	hub          eventPublisher
}

func NewVendorService(db *gorm.DB, log *logger.Logger, vendorRepo repos.VendorRepo, filamentRepo repos.FilamentRepo, fields ExtraFieldService, hub eventPublisher) VendorService {
	return &vendorService{
		db:           db,
		log:          log.With("service", "VendorService"),
		vendorRepo:   vendorRepo,
		filamentRepo: filamentRepo,
		fields:       fields,
		hub:          hub,
	}
}

func (s *vendorService) decorate(ctx context.Context, tx *gorm.DB, vendor *types.Vendor) error {
	raw := make(map[string]string, len(vendor.Extras))
	for _, e := range vendor.Extras {
		raw[e.Key] = e.Value
	}
	filtered, err := s.fields.FilterKnown(ctx, tx, EntityVendor, raw)
	if err != nil {
		return err
	}
	vendor.Extra = filtered
	return nil
}

func (s *vendorService) Create(ctx context.Context, input VendorCreate) (*types.Vendor, error) {
	if input.Name == "" {
		return nil, apierr.InvalidArgument("vendor name is required")
	}
	if input.EmptySpoolWeight != nil && *input.EmptySpoolWeight < 0 {
		return nil, apierr.InvalidArgument("empty_spool_weight must be >= 0")
	}

	vendor := &types.Vendor{
		Registered:       utcSeconds(time.Now()),
		Name:             input.Name,
		Comment:          input.Comment,
		EmptySpoolWeight: input.EmptySpoolWeight,
		ExternalID:       input.ExternalID,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.fields.ValidateExtras(ctx, tx, EntityVendor, input.Extra); err != nil {
			return err
		}
		supplied := make(map[string]string, len(input.Extra))
		for k, v := range input.Extra {
			if v != nil {
				supplied[k] = *v
			}
		}
		withDefaults, err := s.fields.ApplyDefaults(ctx, tx, EntityVendor, supplied)
		if err != nil {
			return err
		}
		if err := s.vendorRepo.Create(ctx, tx, vendor); err != nil {
			return err
		}
		extras := make([]types.VendorExtra, 0, len(withDefaults))
		for k, v := range withDefaults {
			extras = append(extras, types.VendorExtra{VendorID: vendor.ID, Key: k, Value: v})
		}
		if err := s.vendorRepo.ReplaceExtras(ctx, tx, vendor.ID, extras); err != nil {
			return err
		}
		reloaded, err := s.vendorRepo.GetByID(ctx, tx, vendor.ID)
		if err != nil {
			return err
		}
		vendor = reloaded
		return s.decorate(ctx, tx, vendor)
	})
	if err != nil {
		return nil, err
	}

	s.hub.Publish(events.EventAdded, types.ResourceVendor, strconv.Itoa(vendor.ID), vendor)
	return vendor, nil
}

func (s *vendorService) Get(ctx context.Context, vendorID int) (*types.Vendor, error) {
	vendor, err := s.vendorRepo.GetByID(ctx, nil, vendorID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.NotFound("no vendor with id %d", vendorID)
		}
		return nil, err
	}
	if err := s.decorate(ctx, nil, vendor); err != nil {
		return nil, err
	}
	return vendor, nil
}

func (s *vendorService) Find(ctx context.Context, filter repos.VendorFilter, sort string, page repos.Pagination) ([]*types.Vendor, int64, error) {
	vendors, total, err := s.vendorRepo.Find(ctx, nil, filter, sort, page)
	if err != nil {
		return nil, 0, err
	}
	for _, v := range vendors {
		if err := s.decorate(ctx, nil, v); err != nil {
			return nil, 0, err
		}
	}
	return vendors, total, nil
}

func (s *vendorService) Update(ctx context.Context, vendorID int, patch VendorPatch) (*types.Vendor, error) {
	var vendor *types.Vendor
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.vendorRepo.GetByID(ctx, tx, vendorID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apierr.NotFound("no vendor with id %d", vendorID)
			}
			return err
		}

		if patch.Name.Set {
			if !patch.Name.Valid || patch.Name.Value == "" {
				return apierr.InvalidArgument("vendor name may not be null or empty")
			}
			existing.Name = patch.Name.Value
		}
		if patch.Comment.Set {
			existing.Comment = patch.Comment.Ptr()
		}
		if patch.EmptySpoolWeight.Set {
			if patch.EmptySpoolWeight.Valid && patch.EmptySpoolWeight.Value < 0 {
				return apierr.InvalidArgument("empty_spool_weight must be >= 0")
			}
			existing.EmptySpoolWeight = patch.EmptySpoolWeight.Ptr()
		}
		if patch.ExternalID.Set {
			existing.ExternalID = patch.ExternalID.Ptr()
		}

		if err := s.vendorRepo.Save(ctx, tx, existing); err != nil {
			return err
		}

		if patch.Extra != nil {
			if err := s.fields.ValidateExtras(ctx, tx, EntityVendor, patch.Extra); err != nil {
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
			extras := make([]types.VendorExtra, 0, len(merged))
			for k, v := range merged {
				extras = append(extras, types.VendorExtra{VendorID: vendorID, Key: k, Value: v})
			}
			if err := s.vendorRepo.ReplaceExtras(ctx, tx, vendorID, extras); err != nil {
				return err
			}
		}

		reloaded, err := s.vendorRepo.GetByID(ctx, tx, vendorID)
		if err != nil {
			return err
		}
		vendor = reloaded
		return s.decorate(ctx, tx, vendor)
	})
	if err != nil {
		return nil, err
	}

	s.hub.Publish(events.EventUpdated, types.ResourceVendor, strconv.Itoa(vendorID), vendor)
	return vendor, nil
}

// Delete removes the vendor and its extras; dependent filaments survive with
// their vendor reference cleared.
func (s *vendorService) Delete(ctx context.Context, vendorID int) (*types.Vendor, error) {
	var vendor *types.Vendor
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.vendorRepo.GetByID(ctx, tx, vendorID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apierr.NotFound("no vendor with id %d", vendorID)
			}
			return err
		}
		if err := s.decorate(ctx, tx, existing); err != nil {
			return err
		}
		vendor = existing
		if err := s.filamentRepo.ClearVendor(ctx, tx, vendorID); err != nil {
			return err
		}
		return s.vendorRepo.Delete(ctx, tx, vendorID)
	})
	if err != nil {
		return nil, err
	}

	s.hub.Publish(events.EventDeleted, types.ResourceVendor, strconv.Itoa(vendorID), vendor)
	return vendor, nil
}
