package storage

import (
	"time"

	"gorm.io/gorm"

	"github.com/louayabidi/projetstage-devops/models"
)

// BoatRepository is the gorm-backed services.BoatStore.
type BoatRepository struct {
	db *gorm.DB
}

func NewBoatRepository(db *gorm.DB) *BoatRepository {
	return &BoatRepository{db: db}
}

func (r *BoatRepository) Get(id uint) (*models.Boat, error) {
	var boat models.Boat
	if err := r.db.Preload("Owner").First(&boat, id).Error; err != nil {
		return nil, err
	}
	return &boat, nil
}

func (r *BoatRepository) GetByOwner(ownerID uint) (*models.Boat, error) {
	var boat models.Boat
	if err := r.db.Where("owner_id = ?", ownerID).First(&boat).Error; err != nil {
		return nil, err
	}
	return &boat, nil
}

func (r *BoatRepository) All() ([]models.Boat, error) {
	var boats []models.Boat
	if err := r.db.Preload("Owner").Find(&boats).Error; err != nil {
		return nil, err
	}
	return boats, nil
}

func (r *BoatRepository) ListByIDs(ids []uint) ([]models.Boat, error) {
	var boats []models.Boat
	if err := r.db.Where("id IN ?", ids).Find(&boats).Error; err != nil {
		return nil, err
	}
	return boats, nil
}

func (r *BoatRepository) UpdateLocation(id uint, lat, lng float64, at time.Time) error {
	return r.db.Model(&models.Boat{}).Where("id = ?", id).Updates(map[string]interface{}{
		"lat":                  lat,
		"lng":                  lng,
		"last_location_update": at,
	}).Error
}

func (r *BoatRepository) Create(boat *models.Boat) error {
	return r.db.Create(boat).Error
}

func (r *BoatRepository) Save(boat *models.Boat) error {
	return r.db.Save(boat).Error
}

func (r *BoatRepository) Delete(id uint) error {
	return r.db.Delete(&models.Boat{}, id).Error
}
