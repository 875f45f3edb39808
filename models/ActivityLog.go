package models

import "time"

const (
	ActivityLogin          = "LOGIN"
	ActivityLogout         = "LOGOUT"
	ActivityPasswordChange = "PASSWORD_CHANGE"
	ActivitySignup         = "SIGNUP"
)

// ActivityLog keeps an audit trail of account-level actions.
type ActivityLog struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	UserID    uint      `json:"userID" gorm:"not null;index"`
	Action    string    `json:"action" gorm:"size:32;index"` // LOGIN, LOGOUT, PASSWORD_CHANGE, SIGNUP
	IPAddress string    `json:"ipAddress" gorm:"size:64"`
	UserAgent string    `json:"userAgent" gorm:"size:256"`
	CreatedAt time.Time `json:"createdAt"`
}
