package storage

import (
	"time"

	"gorm.io/gorm"

	"github.com/louayabidi/projetstage-devops/models"
)

// BookingRepository is the gorm-backed services.BookingStore.
type BookingRepository struct {
	db *gorm.DB
}

func NewBookingRepository(db *gorm.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

func (r *BookingRepository) Create(booking *models.Booking) error {
	return r.db.Create(booking).Error
}

func (r *BookingRepository) Get(id uint) (*models.Booking, error) {
	var booking models.Booking
	if err := r.db.First(&booking, id).Error; err != nil {
		return nil, err
	}
	return &booking, nil
}

func (r *BookingRepository) Update(booking *models.Booking) error {
	return r.db.Save(booking).Error
}

// ConfirmedOverlapExists checks the [start, end) window against every
// other confirmed booking on the boat. Two windows overlap when each
// starts before the other ends.
func (r *BookingRepository) ConfirmedOverlapExists(boatID uint, start, end time.Time, excludeID uint) (bool, error) {
	var count int64
	err := r.db.Model(&models.Booking{}).
		Where("boat_id = ? AND status = ? AND id <> ?", boatID, models.BookingStatusConfirmed, excludeID).
		Where("start_date < ? AND end_date > ?", end, start).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *BookingRepository) ListByPassenger(passengerID uint) ([]models.Booking, error) {
	var bookings []models.Booking
	err := r.db.Where("passenger_id = ?", passengerID).
		Preload("Boat").
		Order("created_at DESC").
		Find(&bookings).Error
	return bookings, err
}

func (r *BookingRepository) ListByOwner(ownerID uint) ([]models.Booking, error) {
	var bookings []models.Booking
	err := r.db.Where("boat_owner_id = ?", ownerID).
		Preload("Passenger").
		Order("created_at DESC").
		Find(&bookings).Error
	return bookings, err
}

func (r *BookingRepository) ListConfirmedByBoat(boatID uint) ([]models.Booking, error) {
	var bookings []models.Booking
	err := r.db.Where("boat_id = ? AND status = ?", boatID, models.BookingStatusConfirmed).
		Find(&bookings).Error
	return bookings, err
}

func (r *BookingRepository) CreateRequests(requests []models.BookingRequest) error {
	if len(requests) == 0 {
		return nil
	}
	return r.db.Create(&requests).Error
}

// ListRequestedBookings returns pending bookings fanned out to the
// owner's request inbox.
func (r *BookingRepository) ListRequestedBookings(ownerID uint) ([]models.Booking, error) {
	var bookings []models.Booking
	err := r.db.
		Joins("JOIN booking_requests ON booking_requests.booking_id = bookings.id").
		Where("booking_requests.owner_id = ? AND bookings.status = ?", ownerID, models.BookingStatusPending).
		Preload("Passenger").
		Order("bookings.created_at DESC").
		Find(&bookings).Error
	return bookings, err
}
