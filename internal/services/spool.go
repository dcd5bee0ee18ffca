package services

import (
	"context"
	"errors"
	"strconv"
	"time"

	"gorm.io/gorm"

	"github.com/spooldock/spooldock/internal/apierr"
	"github.com/spooldock/spooldock/internal/events"
	"github.com/spooldock/spooldock/internal/geometry"
	"github.com/spooldock/spooldock/internal/logger"
	"github.com/spooldock/spooldock/internal/repos"
	"github.com/spooldock/spooldock/internal/types"
)

type SpoolCreate struct {
	FilamentID      int                `json:"filament_id" binding:"required"`
	Price           *float64           `json:"price"`
	RemainingWeight *float64           `json:"remaining_weight"`
	InitialWeight   *float64           `json:"initial_weight"`
	SpoolWeight     *float64           `json:"spool_weight"`
	UsedWeight      *float64           `json:"used_weight"`
	FirstUsed       *time.Time         `json:"first_used"`
	LastUsed        *time.Time         `json:"last_used"`
	Location        *string            `json:"location"`
	LotNr           *string            `json:"lot_nr"`
	Comment         *string            `json:"comment"`
	Archived        *bool              `json:"archived"`
	Extra           map[string]*string `json:"extra"`
}

type SpoolPatch struct {
	FilamentID      types.Optional[int]       `json:"filament_id"`
	Price           types.Optional[float64]   `json:"price"`
	RemainingWeight types.Optional[float64]   `json:"remaining_weight"`
	InitialWeight   types.Optional[float64]   `json:"initial_weight"`
	SpoolWeight     types.Optional[float64]   `json:"spool_weight"`
	UsedWeight      types.Optional[float64]   `json:"used_weight"`
	FirstUsed       types.Optional[time.Time] `json:"first_used"`
	LastUsed        types.Optional[time.Time] `json:"last_used"`
	Location        types.Optional[string]    `json:"location"`
	LotNr           types.Optional[string]    `json:"lot_nr"`
	Comment         types.Optional[string]    `json:"comment"`
	Archived        types.Optional[bool]      `json:"archived"`
	Extra           map[string]*string        `json:"extra"`
}

type SpoolService interface {
	Create(ctx context.Context, input SpoolCreate) (*types.Spool, error)
	Get(ctx context.Context, spoolID int) (*types.Spool, error)
	Find(ctx context.Context, filter repos.SpoolFilter, sort string, page repos.Pagination) ([]*types.Spool, int64, error)
	Update(ctx context.Context, spoolID int, patch SpoolPatch) (*types.Spool, error)
	UseByWeight(ctx context.Context, spoolID int, deltaGrams float64) (*types.Spool, error)
	UseByLength(ctx context.Context, spoolID int, deltaMM float64) (*types.Spool, error)
	Measure(ctx context.Context, spoolID int, grossWeight float64) (*types.Spool, error)
	Delete(ctx context.Context, spoolID int) (*types.Spool, error)
}

type spoolService struct {
	db           *gorm.DB
	log          *logger.Logger
	spoolRepo    repos.SpoolRepo
	filamentRepo repos.FilamentRepo
	fields       ExtraFieldService
	hub          eventPublisher
}

func NewSpoolService(db *gorm.DB, log *logger.Logger, spoolRepo repos.SpoolRepo, filamentRepo repos.FilamentRepo, fields ExtraFieldService, hub eventPublisher) SpoolService {
	return &spoolService{
		db:           db,
		log:          log.With("service", "SpoolService"),
		spoolRepo:    spoolRepo,
		filamentRepo: filamentRepo,
		fields:       fields,
		hub:          hub,
	}
}

// decorate fills the derived weight/length attributes and the filtered extra
// bags for the spool and its nested filament/vendor.
func (s *spoolService) decorate(ctx context.Context, tx *gorm.DB, spool *types.Spool) error {
	spool.RemainingWeight = nil
	spool.UsedLength = nil
	spool.RemainingLength = nil
	if spool.Filament != nil {
		usedLength := geometry.Length(spool.UsedWeight, spool.Filament.Diameter, spool.Filament.Density)
		spool.UsedLength = &usedLength
		if initial := spool.EffectiveInitialWeight(); initial != nil {
			remaining := *initial - spool.UsedWeight
			if remaining < 0 {
				remaining = 0
			}
			remainingLength := geometry.Length(remaining, spool.Filament.Diameter, spool.Filament.Density)
			spool.RemainingWeight = &remaining
			spool.RemainingLength = &remainingLength
		}
	}

	raw := make(map[string]string, len(spool.Extras))
	for _, e := range spool.Extras {
		raw[e.Key] = e.Value
	}
	filtered, err := s.fields.FilterKnown(ctx, tx, EntitySpool, raw)
	if err != nil {
		return err
	}
	spool.Extra = filtered

	if spool.Filament != nil {
		fraw := make(map[string]string, len(spool.Filament.Extras))
		for _, e := range spool.Filament.Extras {
			fraw[e.Key] = e.Value
		}
		ffiltered, err := s.fields.FilterKnown(ctx, tx, EntityFilament, fraw)
		if err != nil {
			return err
		}
		spool.Filament.Extra = ffiltered
		if spool.Filament.Vendor != nil {
			vraw := make(map[string]string, len(spool.Filament.Vendor.Extras))
			for _, e := range spool.Filament.Vendor.Extras {
				vraw[e.Key] = e.Value
			}
			vfiltered, err := s.fields.FilterKnown(ctx, tx, EntityVendor, vraw)
			if err != nil {
				return err
			}
			spool.Filament.Vendor.Extra = vfiltered
		}
	}
	return nil
}

func (s *spoolService) getFilament(ctx context.Context, tx *gorm.DB, filamentID int) (*types.Filament, error) {
	filament, err := s.filamentRepo.GetByID(ctx, tx, filamentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.NotFound("no filament with id %d", filamentID)
		}
		return nil, err
	}
	return filament, nil
}

func (s *spoolService) getSpool(ctx context.Context, tx *gorm.DB, spoolID int) (*types.Spool, error) {
	spool, err := s.spoolRepo.GetByID(ctx, tx, spoolID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.NotFound("no spool with id %d", spoolID)
		}
		return nil, err
	}
	return spool, nil
}

func (s *spoolService) Create(ctx context.Context, input SpoolCreate) (*types.Spool, error) {
	if input.RemainingWeight != nil && input.UsedWeight != nil {
		return nil, apierr.InvalidArgument("remaining_weight and used_weight may not both be given")
	}
	if input.InitialWeight != nil && *input.InitialWeight < 0 {
		return nil, apierr.InvalidArgument("initial_weight must be >= 0")
	}
	if input.SpoolWeight != nil && *input.SpoolWeight < 0 {
		return nil, apierr.InvalidArgument("spool_weight must be >= 0")
	}
	if input.UsedWeight != nil && *input.UsedWeight < 0 {
		return nil, apierr.InvalidArgument("used_weight must be >= 0")
	}
	if input.Price != nil && *input.Price < 0 {
		return nil, apierr.InvalidArgument("price must be >= 0")
	}

	spool := &types.Spool{
		Registered: utcSeconds(time.Now()),
		FilamentID: input.FilamentID,
		Price:      input.Price,
		FirstUsed:  utcSecondsPtr(input.FirstUsed),
		LastUsed:   utcSecondsPtr(input.LastUsed),
		Location:   input.Location,
		LotNr:      input.LotNr,
		Comment:    input.Comment,
	}
	if input.Archived != nil {
		spool.Archived = *input.Archived
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		filament, err := s.getFilament(ctx, tx, input.FilamentID)
		if err != nil {
			return err
		}

		// Weight triple resolution: spool-level overrides first, filament
		// fallbacks second, used_weight derived last.
		spool.SpoolWeight = input.SpoolWeight
		if spool.SpoolWeight == nil {
			spool.SpoolWeight = filament.SpoolWeight
		}
		spool.InitialWeight = input.InitialWeight
		if spool.InitialWeight == nil {
			spool.InitialWeight = filament.Weight
		}
		switch {
		case input.UsedWeight != nil:
			spool.UsedWeight = *input.UsedWeight
		case input.RemainingWeight != nil:
			if spool.InitialWeight == nil || *spool.InitialWeight <= 0 {
				return apierr.InvalidArgument("remaining_weight requires a positive initial_weight")
			}
			used := *spool.InitialWeight - *input.RemainingWeight
			if used < 0 {
				used = 0
			}
			spool.UsedWeight = used
		default:
			spool.UsedWeight = 0
		}

		if err := s.fields.ValidateExtras(ctx, tx, EntitySpool, input.Extra); err != nil {
			return err
		}
		supplied := make(map[string]string, len(input.Extra))
		for k, v := range input.Extra {
			if v != nil {
				supplied[k] = *v
			}
		}
		withDefaults, err := s.fields.ApplyDefaults(ctx, tx, EntitySpool, supplied)
		if err != nil {
			return err
		}

		if err := s.spoolRepo.Create(ctx, tx, spool); err != nil {
			return err
		}
		extras := make([]types.SpoolExtra, 0, len(withDefaults))
		for k, v := range withDefaults {
			extras = append(extras, types.SpoolExtra{SpoolID: spool.ID, Key: k, Value: v})
		}
		if err := s.spoolRepo.ReplaceExtras(ctx, tx, spool.ID, extras); err != nil {
			return err
		}
		reloaded, err := s.getSpool(ctx, tx, spool.ID)
		if err != nil {
			return err
		}
		spool = reloaded
		return s.decorate(ctx, tx, spool)
	})
	if err != nil {
		return nil, err
	}

	s.hub.Publish(events.EventAdded, types.ResourceSpool, strconv.Itoa(spool.ID), spool)
	return spool, nil
}

func (s *spoolService) Get(ctx context.Context, spoolID int) (*types.Spool, error) {
	spool, err := s.getSpool(ctx, nil, spoolID)
	if err != nil {
		return nil, err
	}
	if err := s.decorate(ctx, nil, spool); err != nil {
		return nil, err
	}
	return spool, nil
}

func (s *spoolService) Find(ctx context.Context, filter repos.SpoolFilter, sort string, page repos.Pagination) ([]*types.Spool, int64, error) {
	spools, total, err := s.spoolRepo.Find(ctx, nil, filter, sort, page)
	if err != nil {
		return nil, 0, err
	}
	for _, sp := range spools {
		if err := s.decorate(ctx, nil, sp); err != nil {
			return nil, 0, err
		}
	}
	return spools, total, nil
}

func (s *spoolService) Update(ctx context.Context, spoolID int, patch SpoolPatch) (*types.Spool, error) {
	if patch.RemainingWeight.Set && patch.UsedWeight.Set {
		return nil, apierr.InvalidArgument("remaining_weight and used_weight may not both be given")
	}

	var spool *types.Spool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.getSpool(ctx, tx, spoolID)
		if err != nil {
			return err
		}

		if patch.FilamentID.Set {
			if !patch.FilamentID.Valid {
				return apierr.InvalidArgument("filament_id may not be null")
			}
			filament, err := s.getFilament(ctx, tx, patch.FilamentID.Value)
			if err != nil {
				return err
			}
			existing.FilamentID = filament.ID
			if existing.InitialWeight == nil {
				existing.InitialWeight = filament.Weight
			}
		}
		if patch.Price.Set {
			if patch.Price.Valid && patch.Price.Value < 0 {
				return apierr.InvalidArgument("price must be >= 0")
			}
			existing.Price = patch.Price.Ptr()
		}
		if patch.InitialWeight.Set {
			if patch.InitialWeight.Valid && patch.InitialWeight.Value < 0 {
				return apierr.InvalidArgument("initial_weight must be >= 0")
			}
			existing.InitialWeight = patch.InitialWeight.Ptr()
		}
		if patch.SpoolWeight.Set {
			if patch.SpoolWeight.Valid && patch.SpoolWeight.Value < 0 {
				return apierr.InvalidArgument("spool_weight must be >= 0")
			}
			existing.SpoolWeight = patch.SpoolWeight.Ptr()
		}
		if patch.UsedWeight.Set {
			if !patch.UsedWeight.Valid || patch.UsedWeight.Value < 0 {
				return apierr.InvalidArgument("used_weight must be >= 0")
			}
			existing.UsedWeight = patch.UsedWeight.Value
		}
		if patch.RemainingWeight.Set {
			if !patch.RemainingWeight.Valid {
				return apierr.InvalidArgument("remaining_weight may not be null")
			}
			if existing.InitialWeight == nil {
				return apierr.InvalidArgument("remaining_weight requires initial_weight to be set")
			}
			used := *existing.InitialWeight - patch.RemainingWeight.Value
			if used < 0 {
				used = 0
			}
			existing.UsedWeight = used
		}
		if patch.FirstUsed.Set {
			existing.FirstUsed = utcSecondsPtr(patch.FirstUsed.Ptr())
		}
		if patch.LastUsed.Set {
			existing.LastUsed = utcSecondsPtr(patch.LastUsed.Ptr())
		}
		if patch.Location.Set {
			existing.Location = patch.Location.Ptr()
		}
		if patch.LotNr.Set {
			existing.LotNr = patch.LotNr.Ptr()
		}
		if patch.Comment.Set {
			existing.Comment = patch.Comment.Ptr()
		}
		if patch.Archived.Set {
			existing.Archived = patch.Archived.Valid && patch.Archived.Value
		}

		if err := s.spoolRepo.Save(ctx, tx, existing); err != nil {
			return err
		}

		if patch.Extra != nil {
			if err := s.fields.ValidateExtras(ctx, tx, EntitySpool, patch.Extra); err != nil {
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
			extras := make([]types.SpoolExtra, 0, len(merged))
			for k, v := range merged {
				extras = append(extras, types.SpoolExtra{SpoolID: spoolID, Key: k, Value: v})
			}
			if err := s.spoolRepo.ReplaceExtras(ctx, tx, spoolID, extras); err != nil {
				return err
			}
		}

		reloaded, err := s.getSpool(ctx, tx, spoolID)
		if err != nil {
			return err
		}
		spool = reloaded
		return s.decorate(ctx, tx, spool)
	})
	if err != nil {
		return nil, err
	}

	s.hub.Publish(events.EventUpdated, types.ResourceSpool, strconv.Itoa(spoolID), spool)
	return spool, nil
}

// UseByWeight consumes deltaGrams of filament. The decrement is one
// conditional statement at the database, so concurrent calls compose
// additively; each step clamps at zero independently. used_weight is not
// clamped from above.
func (s *spoolService) UseByWeight(ctx context.Context, spoolID int, deltaGrams float64) (*types.Spool, error) {
	var spool *types.Spool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.spoolRepo.UseWeight(ctx, tx, spoolID, deltaGrams); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apierr.NotFound("no spool with id %d", spoolID)
			}
			return err
		}
		reloaded, err := s.getSpool(ctx, tx, spoolID)
		if err != nil {
			return err
		}
		now := utcSeconds(time.Now())
		if reloaded.FirstUsed == nil {
			reloaded.FirstUsed = &now
		}
		reloaded.LastUsed = &now
		if err := s.spoolRepo.Save(ctx, tx, reloaded); err != nil {
			return err
		}
		spool = reloaded
		return s.decorate(ctx, tx, spool)
	})
	if err != nil {
		return nil, err
	}

	s.hub.Publish(events.EventUpdated, types.ResourceSpool, strconv.Itoa(spoolID), spool)
	return spool, nil
}

// UseByLength converts the length to mass via the filament geometry and
// delegates to UseByWeight.
func (s *spoolService) UseByLength(ctx context.Context, spoolID int, deltaMM float64) (*types.Spool, error) {
	spool, err := s.getSpool(ctx, nil, spoolID)
	if err != nil {
		return nil, err
	}
	if spool.Filament == nil {
		return nil, apierr.Internal(errors.New("spool has no filament loaded"))
	}
	delta := geometry.Weight(deltaMM, spool.Filament.Diameter, spool.Filament.Density)
	return s.UseByWeight(ctx, spoolID, delta)
}

// Measure reconciles an externally weighed gross mass (spool + remaining
// filament) with stored state. Repeating the same measurement is a no-op,
// and the result never leaves less than the tare on the spool.
func (s *spoolService) Measure(ctx context.Context, spoolID int, grossWeight float64) (*types.Spool, error) {
	spool, err := s.getSpool(ctx, nil, spoolID)
	if err != nil {
		return nil, err
	}

	initial := spool.EffectiveInitialWeight()
	if initial == nil || *initial == 0 {
		return nil, apierr.Measurement("spool %d has no known initial weight to measure against", spoolID)
	}
	tare := 0.0
	if t := spool.EffectiveSpoolWeight(); t != nil {
		tare = *t
	}
	expectedGross := *initial + tare

	if grossWeight > expectedGross {
		// The scale reports more than we ever knew about: treat it as a
		// fresh (re)filled spool and rebaseline.
		var reset *types.Spool
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			existing, err := s.getSpool(ctx, tx, spoolID)
			if err != nil {
				return err
			}
			newInitial := grossWeight - tare
			existing.InitialWeight = &newInitial
			existing.UsedWeight = 0
			if err := s.spoolRepo.Save(ctx, tx, existing); err != nil {
				return err
			}
			reset = existing
			return s.decorate(ctx, tx, reset)
		})
		if err != nil {
			return nil, err
		}
		s.hub.Publish(events.EventUpdated, types.ResourceSpool, strconv.Itoa(spoolID), reset)
		return reset, nil
	}

	currentUse := expectedGross - spool.UsedWeight
	delta := currentUse - grossWeight
	if expectedGross-delta < tare {
		// Never consume past empty: leave exactly the tare.
		delta = currentUse - tare
	}
	return s.UseByWeight(ctx, spoolID, delta)
}

// Delete captures the final state before the row goes away so the deleted
// event can carry it.
func (s *spoolService) Delete(ctx context.Context, spoolID int) (*types.Spool, error) {
	var spool *types.Spool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.getSpool(ctx, tx, spoolID)
		if err != nil {
			return err
		}
		if err := s.decorate(ctx, tx, existing); err != nil {
			return err
		}
		spool = existing
		return s.spoolRepo.Delete(ctx, tx, spoolID)
	})
	if err != nil {
		return nil, err
	}

	s.hub.Publish(events.EventDeleted, types.ResourceSpool, strconv.Itoa(spoolID), spool)
	return spool, nil
}
