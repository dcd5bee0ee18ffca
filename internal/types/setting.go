package types

import (
	"time"

	"gorm.io/datatypes"
)

// Setting holds one JSON-encoded value under a registry-known key.
type Setting struct {
	Key         string         `gorm:"primaryKey;size:64" json:"key"`
	Value       datatypes.JSON `gorm:"column:value;not null" json:"value"`
	LastUpdated time.Time      `gorm:"column:last_updated;not null" json:"last_updated"`
}

func (Setting) TableName() string { return "setting" }

const (
	ResourceVendor   = "vendor"
	ResourceFilament = "filament"
	ResourceSpool    = "spool"
	ResourceSetting  = "setting"
)
