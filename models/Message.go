package models

import (
	"gorm.io/gorm"
)

// Message is one entry in a booking's chat thread. Append-only; visible
// to the booking's passenger and boat owner.
type Message struct {
	gorm.Model
	BookingID  uint     `json:"bookingID" gorm:"index"`
	SenderID   uint     `json:"senderID" gorm:"index"`
	Content    string   `json:"content"`
	IsOffer    bool     `json:"isOffer" gorm:"default:false"`
	OfferPrice *float64 `json:"offerPrice"`
	Sender     User     `json:"sender" gorm:"foreignKey:SenderID;references:ID"`
}
