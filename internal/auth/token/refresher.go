package token

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/pysugar/drive-nexus/internal/apperr"
	"github.com/pysugar/drive-nexus/internal/logging"
	"github.com/pysugar/drive-nexus/internal/metrics"
	"github.com/pysugar/drive-nexus/internal/util"
	"golang.org/x/oauth2"
)

// Refresher hands out usable credentials, refreshing and persisting them
// when they are expired or about to expire. It holds no per-account state:
// concurrent refreshes of one account may both hit the token endpoint, and
// the store resolves them last-write-wins.
type Refresher struct {
	store     Store
	exchanger Exchanger
	metrics   *metrics.Metrics
	now       func() time.Time
}

// Option configures a Refresher.
type Option func(*Refresher)

// WithClock overrides the time source used for the freshness check.
func WithClock(now func() time.Time) Option {
	return func(r *Refresher) { r.now = now }
}

// WithMetrics records refresh outcomes on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Refresher) { r.metrics = m }
}

// NewRefresher creates a Refresher persisting through store.
func NewRefresher(store Store, exchanger Exchanger, opts ...Option) *Refresher {
	r := &Refresher{
		store:     store,
		exchanger: exchanger,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Credential loads the stored credential for accountID and returns it once
// it is valid.
func (r *Refresher) Credential(ctx context.Context, accountID string) (Credential, error) {
	cred, err := r.store.FindByAccountID(ctx, accountID)
	if err != nil {
		return Credential{}, err
	}
	return r.EnsureValid(ctx, accountID, cred)
}

// EnsureValid returns cred unchanged when it is valid for more than
// RefreshMargin. Otherwise it exchanges the refresh token for a new access
// token and persists the result before returning it.
//
// A failed exchange returns apperr.ErrTokenRefreshFailed and leaves the store
// untouched. A failed write returns apperr.ErrTokenPersistFailed together
// with the refreshed credential, which is live but unknown to the store.
func (r *Refresher) EnsureValid(ctx context.Context, accountID string, cred Credential) (Credential, error) {
	if cred.ValidAt(r.now()) {
		return cred, nil
	}
	return r.refresh(ctx, accountID, cred)
}

// ForceRefresh refreshes the stored credential regardless of its expiry.
func (r *Refresher) ForceRefresh(ctx context.Context, accountID string) (Credential, error) {
	cred, err := r.store.FindByAccountID(ctx, accountID)
	if err != nil {
		return Credential{}, err
	}
	return r.refresh(ctx, accountID, cred)
}

func (r *Refresher) refresh(ctx context.Context, accountID string, cred Credential) (Credential, error) {
	logger := logging.FromContext(ctx).With().Str("account_id", accountID).Logger()

	if cred.RefreshToken == "" {
		r.metrics.ObserveRefresh(metrics.RefreshFailed)
		logger.Warn().Msg("🔒 No refresh token stored, re-consent required")
		return Credential{}, apperr.New(apperr.ErrTokenRefreshFailed, "refresh",
			"No refresh token stored for account, please re-authorize")
	}

	logger.Info().Time("expiry", cred.Expiry).Msg("🔄 Getting new google drive token")

	tok, err := r.exchanger.Refresh(ctx, cred.RefreshToken)
	if err != nil {
		r.metrics.ObserveRefresh(metrics.RefreshFailed)
		if isPermanentRefreshError(err) {
			logger.Warn().Err(err).Msg("🔒 Refresh token rejected, re-consent required")
		} else {
			logger.Error().Err(err).Msg("❌ Refresh token request failed")
		}
		return Credential{}, apperr.New(apperr.ErrTokenRefreshFailed, "refresh", "Error refreshing token")
	}

	next := r.merge(cred, tok)
	if err := r.store.UpdateCredential(ctx, accountID, next); err != nil {
		r.metrics.ObserveRefresh(metrics.RefreshPersistFailed)
		logger.Error().Err(err).Msg("⚠️ Failed to save refreshed token")
		return next, apperr.New(apperr.ErrTokenPersistFailed, "persist", "Error putting new token into db")
	}

	r.metrics.ObserveRefresh(metrics.RefreshOK)
	logger.Info().
		Str("token", util.MaskToken(next.AccessToken)).
		Time("expiry", next.Expiry).
		Msg("✅ Refreshed token")
	return next, nil
}

// merge applies a token endpoint response to the previous credential. The
// endpoint may omit refresh_token and id_token; the old values are kept.
func (r *Refresher) merge(prev Credential, tok *oauth2.Token) Credential {
	next := FromOAuth2Token(tok)
	if next.RefreshToken == "" {
		next.RefreshToken = prev.RefreshToken
	}
	if next.IDToken == "" {
		next.IDToken = prev.IDToken
	}
	if tok.ExpiresIn > 0 {
		next.Expiry = r.now().Add(time.Duration(tok.ExpiresIn) * time.Second)
	}
	return next
}

// isPermanentRefreshError reports whether the token endpoint rejected the
// grant itself, as opposed to a transport or server failure.
func isPermanentRefreshError(err error) bool {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		switch re.ErrorCode {
		case "invalid_grant", "invalid_client", "unauthorized_client":
			return true
		}
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"invalid_grant", "token has been expired or revoked", "revoked"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
