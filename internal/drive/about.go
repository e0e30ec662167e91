package drive

import (
	"context"
	"time"

	"github.com/pysugar/drive-nexus/internal/apperr"
	"github.com/pysugar/drive-nexus/internal/auth/token"
)

// GetStorageInfo returns the account quota. Available is Total minus Used,
// floored at zero.
func (s *Service) GetStorageInfo(ctx context.Context, accountID string) (StorageInfo, error) {
	svc, _, err := s.open(ctx, accountID)
	if err != nil {
		return StorageInfo{}, err
	}

	start := time.Now()
	about, err := svc.About.Get().Fields("storageQuota").Context(ctx).Do()
	s.observe(ctx, "storage", accountID, start, err)
	if err != nil {
		return StorageInfo{}, translate("storage", "Error getting storage info from Google Drive", err)
	}

	q := about.StorageQuota
	if q == nil {
		return StorageInfo{Unlimited: true}, nil
	}
	info := StorageInfo{Total: q.Limit, Used: q.Usage}
	switch {
	case q.Limit == 0:
		info.Unlimited = true
	case q.Limit > q.Usage:
		info.Available = q.Limit - q.Usage
	}
	return info, nil
}

// AccountEmail returns the email of the identity behind cred. It is used at
// consent time, before the account is stored, so it takes the credential
// directly.
func (s *Service) AccountEmail(ctx context.Context, cred token.Credential) (string, error) {
	svc, err := s.newClient(ctx, cred)
	if err != nil {
		return "", err
	}

	start := time.Now()
	about, err := svc.About.Get().Fields("user(emailAddress)").Context(ctx).Do()
	s.observe(ctx, "get", "", start, err)
	if err != nil {
		return "", translate("get", "Error getting account info from Google Drive", err)
	}
	if about.User == nil || about.User.EmailAddress == "" {
		return "", apperr.New(apperr.ErrProviderRequestFailed, "get", "Google Drive returned no account email")
	}
	return about.User.EmailAddress, nil
}
