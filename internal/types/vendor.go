package types

import (
	"time"
)

type Vendor struct {
	ID               int           `gorm:"primaryKey;autoIncrement" json:"id"`
	Registered       time.Time     `gorm:"not null" json:"registered"`
	Name             string        `gorm:"column:name;not null;index" json:"name"`
	Comment          *string       `gorm:"column:comment" json:"comment,omitempty"`
	EmptySpoolWeight *float64      `gorm:"column:empty_spool_weight" json:"empty_spool_weight,omitempty"`
	ExternalID       *string       `gorm:"column:external_id;index" json:"external_id,omitempty"`
	Extras           []VendorExtra `gorm:"foreignKey:VendorID;constraint:OnDelete:CASCADE" json:"-"`

	// Extra is the user-defined attribute bag, values JSON-encoded.
	Extra map[string]string `gorm:"-" json:"extra"`
}

func (Vendor) TableName() string { return "vendor" }

type VendorExtra struct {
	VendorID int    `gorm:"primaryKey" json:"-"`
	Key      string `gorm:"primaryKey;size:64" json:"key"`
	Value    string `gorm:"column:value;not null" json:"value"`
}

func (VendorExtra) TableName() string { return "vendor_extra" }
