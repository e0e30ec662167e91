package handlers

import (
	"context"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/pysugar/drive-nexus/internal/apperr"
	"github.com/pysugar/drive-nexus/internal/auth/token"
	"github.com/pysugar/drive-nexus/internal/db"
	"github.com/pysugar/drive-nexus/internal/db/models"
	"github.com/pysugar/drive-nexus/internal/drive"
	"github.com/pysugar/drive-nexus/internal/web/middleware"
	"github.com/pysugar/drive-nexus/internal/web/respond"
)

// DriveService is the Drive surface the routes need.
type DriveService interface {
	List(ctx context.Context, accountID, folderID string) ([]drive.File, error)
	ListAll(ctx context.Context, userID string) ([]drive.AccountFiles, error)
	Upload(ctx context.Context, accountID, name string, content io.Reader, parentID string) (string, error)
	CreateFolder(ctx context.Context, accountID, name, parentID string) (drive.File, error)
	Delete(ctx context.Context, accountID, fileID string) error
	GetProperties(ctx context.Context, accountID, fileID string) (drive.Properties, error)
	DownloadURL(ctx context.Context, accountID, fileID string) (string, error)
	DownloadStream(ctx context.Context, accountID, fileID string) (*drive.Download, error)
	GetStorageInfo(ctx context.Context, accountID string) (drive.StorageInfo, error)
}

// AccountStore looks up and unlinks the caller's accounts.
type AccountStore interface {
	ListAccounts(ctx context.Context, userID string) ([]models.Account, error)
	FindAccountForUser(ctx context.Context, userID, accountID string) (*models.Account, error)
	DeleteAccount(ctx context.Context, userID, accountID string) error
}

// TokenRefresher forces a credential refresh.
type TokenRefresher interface {
	ForceRefresh(ctx context.Context, accountID string) (token.Credential, error)
}

// Handlers serves the /api routes. Every route runs behind UserAuth.
type Handlers struct {
	accounts AccountStore
	drive    DriveService
	tokens   TokenRefresher
}

// New creates the /api handlers.
func New(accounts AccountStore, driveSvc DriveService, tokens TokenRefresher) *Handlers {
	return &Handlers{accounts: accounts, drive: driveSvc, tokens: tokens}
}

// account resolves {accountID} to an account owned by the caller. It writes
// the error response and returns false when that fails.
func (h *Handlers) account(w http.ResponseWriter, r *http.Request) (*models.Account, bool) {
	user := middleware.UserFromContext(r.Context())
	if user == nil {
		respond.Error(w, r, apperr.ErrUnauthenticated)
		return nil, false
	}

	accountID, err := db.ParseAccountID(chi.URLParam(r, "accountID"))
	if err != nil {
		respond.Error(w, r, err)
		return nil, false
	}

	acc, err := h.accounts.FindAccountForUser(r.Context(), user.ID, accountID)
	if err != nil {
		respond.Error(w, r, err)
		return nil, false
	}
	return acc, true
}
