package services

import (
	"time"

	"github.com/louayabidi/projetstage-devops/models"
)

// Storage ports. The gorm-backed implementations live in the storage
// package; tests swap in in-memory doubles.

type BoatStore interface {
	Get(id uint) (*models.Boat, error)
	All() ([]models.Boat, error)
	UpdateLocation(id uint, lat, lng float64, at time.Time) error
}

type BookingStore interface {
	Create(booking *models.Booking) error
	Get(id uint) (*models.Booking, error)
	// Update persists the booking's mutable fields (status, offer,
	// current location).
	Update(booking *models.Booking) error
	// ConfirmedOverlapExists reports whether another booking on the boat
	// is confirmed for a window intersecting [start, end), excluding
	// excludeID.
	ConfirmedOverlapExists(boatID uint, start, end time.Time, excludeID uint) (bool, error)
	ListByPassenger(passengerID uint) ([]models.Booking, error)
	ListByOwner(ownerID uint) ([]models.Booking, error)
	ListConfirmedByBoat(boatID uint) ([]models.Booking, error)
	CreateRequests(requests []models.BookingRequest) error
	ListRequestedBookings(ownerID uint) ([]models.Booking, error)
}

type MessageStore interface {
	Create(message *models.Message) error
	// ListByBooking returns the thread in (created_at, id) ascending
	// order.
	ListByBooking(bookingID uint) ([]models.Message, error)
}

// NotificationStore is the notifier's write side. Read paths (listing,
// unread counts) go straight through the storage repository.
type NotificationStore interface {
	Create(notification *models.Notification) error
}

type UserStore interface {
	Get(id uint) (*models.User, error)
}
