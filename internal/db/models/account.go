package models

import "time"

// ProviderDrive tags accounts linked to Google Drive.
const ProviderDrive = "drive"

// Account is one user's link to one Google identity. The credential columns
// (AccessToken, IDToken, ExpiresAt, RefreshToken) are set at consent time;
// refreshes are written through token.Store so the token and its expiry
// always change together.
type Account struct {
	ID           string    `gorm:"primaryKey" json:"id"` // UUID
	UserID       string    `gorm:"not null;uniqueIndex:idx_user_provider_email" json:"user_id"`
	Provider     string    `gorm:"not null;uniqueIndex:idx_user_provider_email" json:"provider"`
	Email        string    `gorm:"not null;uniqueIndex:idx_user_provider_email" json:"email"`
	AccessToken  string    `json:"-"`
	RefreshToken string    `json:"-"`
	IDToken      string    `json:"-"`
	ExpiresAt    time.Time `json:"expires_at"`
	Scopes       string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
