package models

import (
	"time"

	"gorm.io/gorm"
)

// Booking lifecycle statuses. Transitions are owned by services.Booking;
// nothing else writes Status.
const (
	BookingStatusPending   = "pending"
	BookingStatusOffered   = "offered"
	BookingStatusConfirmed = "confirmed"
	BookingStatusCompleted = "completed"
	BookingStatusCanceled  = "canceled"
)

// BookingTerminalStatuses are states no transition may leave.
var BookingTerminalStatuses = []string{BookingStatusCompleted, BookingStatusCanceled}

type Booking struct {
	gorm.Model
	PassengerID     uint       `json:"passengerID" gorm:"index"`
	BoatOwnerID     uint       `json:"boatOwnerID" gorm:"index"`
	BoatID          uint       `json:"boatID" gorm:"index"`
	Status          string     `json:"status" gorm:"type:varchar(20);default:pending;index"`
	NumberOfPersons int        `json:"numberOfPersons"`
	HasKids         bool       `json:"hasKids"`
	PaymentMethod   string     `json:"paymentMethod" gorm:"type:varchar(20)"` // credit_card, paypal, cash
	DepartureLat    float64    `json:"departureLat"`
	DepartureLng    float64    `json:"departureLng"`
	Destination     string     `json:"destination"`
	NumberOfCabins  int        `json:"numberOfCabins"`
	StartDate       time.Time  `json:"startDate" gorm:"index"`
	EndDate         time.Time  `json:"endDate" gorm:"index"`
	OfferPrice      *float64   `json:"offerPrice"`
	OfferMessage    string     `json:"offerMessage"`
	CurrentLat      *float64   `json:"currentLat"`
	CurrentLng      *float64   `json:"currentLng"`
	Passenger       User       `json:"passenger" gorm:"foreignKey:PassengerID;references:ID"`
	Boat            Boat       `json:"boat" gorm:"foreignKey:BoatID;references:ID"`
}

// BookingRequest records that a booking was fanned out to a nearby owner,
// making it visible in that owner's request inbox.
type BookingRequest struct {
	gorm.Model
	BookingID uint    `json:"bookingID" gorm:"index:idx_booking_owner,unique"`
	OwnerID   uint    `json:"ownerID" gorm:"index:idx_booking_owner,unique"`
	Distance  float64 `json:"distance"` // meters from the departure point at fan-out time
	Booking   Booking `json:"booking" gorm:"foreignKey:BookingID;references:ID"`
}
