package models

import "time"

// User owns zero or more linked accounts. APIKey authenticates API calls.
type User struct {
	ID        string    `gorm:"primaryKey" json:"id"` // UUID
	Name      string    `json:"name"`
	APIKey    string    `gorm:"uniqueIndex;not null" json:"-"`
	Accounts  []Account `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"accounts,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
