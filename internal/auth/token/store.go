package token

import (
	"context"
	"errors"
	"fmt"

	"github.com/pysugar/drive-nexus/internal/apperr"
	"github.com/pysugar/drive-nexus/internal/db/models"
	"gorm.io/gorm"
)

// Store reads and writes the credential of one account, addressed by its
// stable account ID.
type Store interface {
	FindByAccountID(ctx context.Context, accountID string) (Credential, error)
	UpdateCredential(ctx context.Context, accountID string, cred Credential) error
}

// GormStore keeps credentials in the accounts table.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore creates a Store backed by db.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// FindByAccountID returns the stored credential, or apperr.ErrNotFound.
func (s *GormStore) FindByAccountID(ctx context.Context, accountID string) (Credential, error) {
	var account models.Account
	err := s.db.WithContext(ctx).
		Select("id", "access_token", "refresh_token", "id_token", "expires_at").
		Where("id = ?", accountID).
		First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Credential{}, apperr.Newf(apperr.ErrNotFound, "", "account %s not found", accountID)
	}
	if err != nil {
		return Credential{}, fmt.Errorf("failed to load credential for %s: %w", accountID, err)
	}

	return Credential{
		AccessToken:  account.AccessToken,
		RefreshToken: account.RefreshToken,
		IDToken:      account.IDToken,
		Expiry:       account.ExpiresAt,
	}, nil
}

// UpdateCredential writes the access token, ID token and expiry (plus the
// refresh token when non-empty) in a single UPDATE keyed by account ID, so
// readers never see a token paired with another token's expiry. Concurrent
// updates resolve last-write-wins.
func (s *GormStore) UpdateCredential(ctx context.Context, accountID string, cred Credential) error {
	updates := map[string]interface{}{
		"access_token": cred.AccessToken,
		"id_token":     cred.IDToken,
		"expires_at":   cred.Expiry,
	}
	if cred.RefreshToken != "" {
		updates["refresh_token"] = cred.RefreshToken
	}

	res := s.db.WithContext(ctx).Model(&models.Account{}).Where("id = ?", accountID).Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("failed to update credential for %s: %w", accountID, res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.Newf(apperr.ErrNotFound, "", "account %s not found", accountID)
	}
	return nil
}
