package models

import (
	"encoding/json"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	RolePassenger = "passenger"
	RoleOwner     = "owner"
	RoleAdmin     = "admin"
)

type User struct {
	gorm.Model
	FirstName           string         `json:"firstName"`
	LastName            string         `json:"lastName"`
	Email               string         `json:"email" gorm:"uniqueIndex"`
	Password            string         `json:"password"`
	Role                string         `json:"role" gorm:"type:varchar(20);default:passenger;index"` // passenger, owner, admin
	PushTokens          datatypes.JSON `json:"pushTokens"`
	AllowsNotifications *bool          `json:"allowsNotifications"`
	BoatInfoComplete    bool           `json:"boatInfoComplete" gorm:"default:false"`
	IsVerified          *bool          `json:"isVerified"`
	Boat                *Boat          `json:"boat,omitempty" gorm:"foreignKey:OwnerID;references:ID"`
}

// Custom JSON marshaling to hide the password hash and expand JSON
// columns. Value receiver so users nested inside boats, bookings and
// notifications get the same treatment.
func (u User) MarshalJSON() ([]byte, error) {
	type Alias User
	aux := &struct {
		Password   string   `json:"password,omitempty"`
		PushTokens []string `json:"pushTokens,omitempty"`
		Alias
	}{
		PushTokens: []string{},
		Alias:      (Alias)(u),
	}

	if u.PushTokens != nil {
		var pushTokens []string
		if err := json.Unmarshal(u.PushTokens, &pushTokens); err == nil {
			aux.PushTokens = pushTokens
		}
	}

	return json.Marshal(aux)
}
