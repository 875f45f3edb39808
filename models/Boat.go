package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Boat struct {
	gorm.Model
	OwnerID            uint           `json:"ownerID" gorm:"uniqueIndex"` // one boat per owner
	Name               string         `json:"name"`
	BoatType           string         `json:"boatType"` // sailboat, yacht, catamaran, ...
	BoatCapacity       int            `json:"boatCapacity"`
	BoatLicense        string         `json:"boatLicense" gorm:"uniqueIndex"`
	Amenities          datatypes.JSON `json:"amenities"`
	Photos             datatypes.JSON `json:"photos"`
	IsVerified         *bool          `json:"isVerified"`
	Lat                float64        `json:"lat"`
	Lng                float64        `json:"lng"`
	LastLocationUpdate *time.Time     `json:"lastLocationUpdate"`
	Owner              User           `json:"owner" gorm:"foreignKey:OwnerID;references:ID"`
}
