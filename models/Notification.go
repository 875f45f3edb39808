package models

import (
	"time"
)

// Notification event types, one per booking transition or chat event.
const (
	NotificationNewBooking       = "new_booking"
	NotificationBookingOffer     = "booking_offer"
	NotificationBookingAccepted  = "booking_accepted"
	NotificationBookingConfirmed = "booking_confirmed"
	NotificationBookingCanceled  = "booking_canceled"
	NotificationNewMessage       = "new_message"
)

// Notification is immutable after creation except for the read flag.
type Notification struct {
	ID          uint  `json:"id" gorm:"primaryKey"`
	RecipientID uint  `json:"recipientID" gorm:"not null;index"`
	Recipient   User  `json:"recipient" gorm:"foreignKey:RecipientID"`
	SenderID    uint  `json:"senderID" gorm:"not null;index"`
	Sender      User  `json:"sender" gorm:"foreignKey:SenderID"`
	BookingID   *uint `json:"bookingID" gorm:"index"`

	Type    string `json:"type" gorm:"size:32;index"`
	Message string `json:"message" gorm:"size:500"`

	IsRead    bool       `json:"isRead" gorm:"default:false"`
	CreatedAt time.Time  `json:"createdAt"`
	ReadAt    *time.Time `json:"readAt"`
}
