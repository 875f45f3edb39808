package storage

import (
	"gorm.io/gorm"

	"github.com/louayabidi/projetstage-devops/models"
)

// MessageRepository is the gorm-backed services.MessageStore.
type MessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

func (r *MessageRepository) Create(message *models.Message) error {
	return r.db.Create(message).Error
}

func (r *MessageRepository) ListByBooking(bookingID uint) ([]models.Message, error) {
	var messages []models.Message
	err := r.db.Where("booking_id = ?", bookingID).
		Preload("Sender").
		Order("created_at ASC, id ASC").
		Find(&messages).Error
	return messages, err
}
