// Package drive performs file operations on linked Google Drive accounts.
//
// Every operation first obtains a valid credential for the account, which
// may refresh and persist it, and then makes exactly one Drive API call with
// a client scoped to that credential. Nothing is shared between requests
// except the underlying HTTP transport.
package drive

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/pysugar/drive-nexus/internal/auth/token"
	"github.com/pysugar/drive-nexus/internal/config"
	"github.com/pysugar/drive-nexus/internal/db/models"
	"github.com/pysugar/drive-nexus/internal/logging"
	"github.com/pysugar/drive-nexus/internal/metrics"
	"github.com/pysugar/drive-nexus/internal/util"
	"golang.org/x/oauth2"
	drivev3 "google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

// CredentialSource hands out a credential that is valid for the next call.
type CredentialSource interface {
	Credential(ctx context.Context, accountID string) (token.Credential, error)
}

// AccountLister lists the accounts linked to a user.
type AccountLister interface {
	ListAccounts(ctx context.Context, userID string) ([]models.Account, error)
}

// Options tune the Drive client. Zero values fall back to the defaults.
type Options struct {
	// Endpoint is the Drive v3 base URL, ending in "/".
	Endpoint string
	// HTTPClient supplies the transport beneath the OAuth2 layer.
	HTTPClient *http.Client
	// ChunkSize is the resumable upload chunk; at most one chunk of an
	// upload is held in memory.
	ChunkSize int
	PageSize  int
	Metrics   *metrics.Metrics
}

// Service runs Drive operations on behalf of linked accounts.
type Service struct {
	creds    CredentialSource
	accounts AccountLister
	opts     Options
}

// NewService creates a Service.
func NewService(creds CredentialSource, accounts AccountLister, opts Options) *Service {
	if opts.Endpoint == "" {
		opts.Endpoint = config.DefaultDriveEndpoint
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = config.DefaultUploadChunkSize
	}
	if opts.PageSize <= 0 {
		opts.PageSize = config.DefaultPageSize
	}
	return &Service{creds: creds, accounts: accounts, opts: opts}
}

// open returns a Drive client authorized as accountID.
func (s *Service) open(ctx context.Context, accountID string) (*drivev3.Service, token.Credential, error) {
	cred, err := s.creds.Credential(ctx, accountID)
	if err != nil {
		return nil, token.Credential{}, err
	}
	svc, err := s.newClient(ctx, cred)
	if err != nil {
		return nil, token.Credential{}, err
	}
	return svc, cred, nil
}

func (s *Service) newClient(ctx context.Context, cred token.Credential) (*drivev3.Service, error) {
	baseCtx := context.WithValue(ctx, oauth2.HTTPClient, s.opts.HTTPClient)
	httpClient := oauth2.NewClient(baseCtx, oauth2.StaticTokenSource(cred.OAuth2Token()))

	svc, err := drivev3.NewService(ctx,
		option.WithHTTPClient(httpClient),
		option.WithEndpoint(s.opts.Endpoint),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create drive client: %w", err)
	}
	return svc, nil
}

// observe records one provider call.
func (s *Service) observe(ctx context.Context, op, accountID string, start time.Time, err error) {
	elapsed := time.Since(start)
	s.opts.Metrics.ObserveDriveRequest(op, err, elapsed)

	logger := logging.FromContext(ctx)
	if err != nil {
		logger.Warn().
			Str("op", op).
			Str("account_id", accountID).
			Str("error", util.TruncateLog(err.Error(), 300)).
			Dur("elapsed", elapsed).
			Msg("⚠️ Drive request failed")
		return
	}
	logger.Debug().Str("op", op).Str("account_id", accountID).Dur("elapsed", elapsed).Msg("Drive request done")
}
