package db

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/pysugar/drive-nexus/internal/apperr"
	"github.com/pysugar/drive-nexus/internal/db/models"
	"gorm.io/gorm"
)

// Repo provides user and account lookups. Credential updates for existing
// accounts go through token.Store instead.
type Repo struct {
	db *gorm.DB
}

// NewRepo wraps an initialized database.
func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

// DB exposes the underlying handle for components sharing the connection.
func (r *Repo) DB() *gorm.DB {
	return r.db
}

// ParseAccountID validates an account identifier taken from a route.
func ParseAccountID(id string) (string, error) {
	parsed, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return "", apperr.New(apperr.ErrInvalidAccountID, "", "Account ID not valid!")
	}
	return parsed.String(), nil
}

// CreateUser creates a user with a freshly generated API key.
func (r *Repo) CreateUser(ctx context.Context, name string) (*models.User, error) {
	user := &models.User{
		ID:     uuid.NewString(),
		Name:   name,
		APIKey: generateAPIKey(),
	}
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// FindUserByAPIKey returns the user owning key.
func (r *Repo) FindUserByAPIKey(ctx context.Context, key string) (*models.User, error) {
	if key == "" {
		return nil, apperr.ErrUnauthenticated
	}
	var user models.User
	err := r.db.WithContext(ctx).Where("api_key = ?", key).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.ErrUnauthenticated
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	return &user, nil
}

// FindUser returns a user by ID.
func (r *Repo) FindUser(ctx context.Context, userID string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("id = ?", userID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.Newf(apperr.ErrNotFound, "", "user %s not found", userID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	return &user, nil
}

// UpsertAccount links acc to userID. Re-consenting an already linked
// identity keeps the existing account ID and replaces its credential; an
// empty refresh token never overwrites a stored one.
func (r *Repo) UpsertAccount(ctx context.Context, userID string, acc *models.Account) (*models.Account, error) {
	if acc.Provider == "" {
		acc.Provider = models.ProviderDrive
	}

	var result models.Account
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.Account
		err := tx.Where("user_id = ? AND provider = ? AND email = ?", userID, acc.Provider, acc.Email).
			First(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			result = *acc
			result.ID = uuid.NewString()
			result.UserID = userID
			return tx.Create(&result).Error
		case err != nil:
			return err
		}

		updates := map[string]interface{}{
			"access_token": acc.AccessToken,
			"id_token":     acc.IDToken,
			"expires_at":   acc.ExpiresAt,
			"scopes":       acc.Scopes,
		}
		if acc.RefreshToken != "" {
			updates["refresh_token"] = acc.RefreshToken
		}
		if err := tx.Model(&models.Account{}).Where("id = ?", existing.ID).Updates(updates).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", existing.ID).First(&result).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save account: %w", err)
	}
	return &result, nil
}

// ListAccounts returns the user's accounts in link order.
func (r *Repo) ListAccounts(ctx context.Context, userID string) ([]models.Account, error) {
	var accounts []models.Account
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at ASC, id ASC").Find(&accounts).Error; err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	return accounts, nil
}

// FindAccountForUser returns the account only when it belongs to userID.
func (r *Repo) FindAccountForUser(ctx context.Context, userID, accountID string) (*models.Account, error) {
	var account models.Account
	err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", accountID, userID).First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.Newf(apperr.ErrNotFound, "", "account %s not found", accountID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up account: %w", err)
	}
	return &account, nil
}

// DeleteAccount unlinks an account, removing its credential with it.
func (r *Repo) DeleteAccount(ctx context.Context, userID, accountID string) error {
	res := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", accountID, userID).Delete(&models.Account{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete account: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.Newf(apperr.ErrNotFound, "", "account %s not found", accountID)
	}
	return nil
}

// generateAPIKey returns dn-<32 hex chars>
func generateAPIKey() string {
	keyBytes := make([]byte, 16)
	rand.Read(keyBytes)
	return "dn-" + hex.EncodeToString(keyBytes)
}
