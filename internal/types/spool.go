package types

import (
	"time"
)

type Spool struct {
	ID         int        `gorm:"primaryKey;autoIncrement" json:"id"`
	Registered time.Time  `gorm:"not null" json:"registered"`
	FirstUsed  *time.Time `gorm:"column:first_used" json:"first_used,omitempty"`
	LastUsed   *time.Time `gorm:"column:last_used" json:"last_used,omitempty"`

	FilamentID int       `gorm:"column:filament_id;not null;index" json:"-"`
	Filament   *Filament `gorm:"foreignKey:FilamentID;references:ID" json:"filament,omitempty"`

	Price *float64 `gorm:"column:price" json:"price,omitempty"`

	// InitialWeight is the net filament mass at purchase, SpoolWeight the
	// empty-spool tare. Both fall back to the filament when unset.
	InitialWeight *float64 `gorm:"column:initial_weight" json:"initial_weight,omitempty"`
	SpoolWeight   *float64 `gorm:"column:spool_weight" json:"spool_weight,omitempty"`

	UsedWeight float64 `gorm:"column:used_weight;not null;default:0" json:"used_weight"`

	Location *string `gorm:"column:location;index" json:"location,omitempty"`
	LotNr    *string `gorm:"column:lot_nr;index" json:"lot_nr,omitempty"`
	Comment  *string `gorm:"column:comment" json:"comment,omitempty"`
	Archived bool    `gorm:"column:archived;not null;default:false" json:"archived"`

	Extras []SpoolExtra `gorm:"foreignKey:SpoolID;constraint:OnDelete:CASCADE" json:"-"`

	Extra map[string]string `gorm:"-" json:"extra"`

	// Derived, never stored. Nil when the effective initial weight is unknown.
	RemainingWeight *float64 `gorm:"-" json:"remaining_weight,omitempty"`
	UsedLength      *float64 `gorm:"-" json:"used_length,omitempty"`
	RemainingLength *float64 `gorm:"-" json:"remaining_length,omitempty"`
}

func (Spool) TableName() string { return "spool" }

// EffectiveInitialWeight resolves the spool-level override, then the
// filament fallback. Returns nil when neither is known.
func (s *Spool) EffectiveInitialWeight() *float64 {
	if s.InitialWeight != nil {
		return s.InitialWeight
	}
	if s.Filament != nil {
		return s.Filament.Weight
	}
	return nil
}

// EffectiveSpoolWeight resolves the tare the same way.
func (s *Spool) EffectiveSpoolWeight() *float64 {
	if s.SpoolWeight != nil {
		return s.SpoolWeight
	}
	if s.Filament != nil {
		return s.Filament.SpoolWeight
	}
	return nil
}

type SpoolExtra struct {
	SpoolID int    `gorm:"primaryKey" json:"-"`
	Key     string `gorm:"primaryKey;size:64" json:"key"`
	Value   string `gorm:"column:value;not null" json:"value"`
}

func (SpoolExtra) TableName() string { return "spool_extra" }
