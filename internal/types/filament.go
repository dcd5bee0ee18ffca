package types

import (
	"time"
)

type Filament struct {
	ID         int       `gorm:"primaryKey;autoIncrement" json:"id"`
	Registered time.Time `gorm:"not null" json:"registered"`

	VendorID *int    `gorm:"column:vendor_id;index" json:"-"`
	Vendor   *Vendor `gorm:"constraint:OnDelete:SET NULL;foreignKey:VendorID;references:ID" json:"vendor,omitempty"`

	Name     *string  `gorm:"column:name;index" json:"name,omitempty"`
	Material *string  `gorm:"column:material;index" json:"material,omitempty"`
	Price    *float64 `gorm:"column:price" json:"price,omitempty"`

	// Density in g/cm3, diameter in mm.
	Density  float64 `gorm:"column:density;not null" json:"density"`
	Diameter float64 `gorm:"column:diameter;not null" json:"diameter"`

	// Weight is the net mass of a full spool, SpoolWeight the empty-spool tare.
	Weight      *float64 `gorm:"column:weight" json:"weight,omitempty"`
	SpoolWeight *float64 `gorm:"column:spool_weight" json:"spool_weight,omitempty"`

	ArticleNumber        *string `gorm:"column:article_number;index" json:"article_number,omitempty"`
	Comment              *string `gorm:"column:comment" json:"comment,omitempty"`
	SettingsExtruderTemp *int    `gorm:"column:settings_extruder_temp" json:"settings_extruder_temp,omitempty"`
	SettingsBedTemp      *int    `gorm:"column:settings_bed_temp" json:"settings_bed_temp,omitempty"`
	ColorHex             *string `gorm:"column:color_hex" json:"color_hex,omitempty"`
	MultiColorHexes      *string `gorm:"column:multi_color_hexes" json:"multi_color_hexes,omitempty"`
	MultiColorDirection  *string `gorm:"column:multi_color_direction" json:"multi_color_direction,omitempty"`
	ExternalID           *string `gorm:"column:external_id;index" json:"external_id,omitempty"`

	Extras []FilamentExtra `gorm:"foreignKey:FilamentID;constraint:OnDelete:CASCADE" json:"-"`

	Extra map[string]string `gorm:"-" json:"extra"`
}

func (Filament) TableName() string { return "filament" }

type FilamentExtra struct {
	FilamentID int    `gorm:"primaryKey" json:"-"`
	Key        string `gorm:"primaryKey;size:64" json:"key"`
	Value      string `gorm:"column:value;not null" json:"value"`
}

func (FilamentExtra) TableName() string { return "filament_extra" }
