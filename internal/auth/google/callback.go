package google

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/pysugar/drive-nexus/internal/apperr"
	"github.com/pysugar/drive-nexus/internal/auth/token"
	"github.com/pysugar/drive-nexus/internal/db/models"
	"github.com/pysugar/drive-nexus/internal/logging"
	"github.com/pysugar/drive-nexus/internal/util"
	"github.com/pysugar/drive-nexus/internal/web/respond"
	"golang.org/x/oauth2"
)

// Complete finishes a consent: it checks state, exchanges code for a
// credential, looks up the account email and links the account to the user
// named in state. It returns the user's accounts after the link.
func (c *Consent) Complete(ctx context.Context, state, code string) ([]models.Account, error) {
	logger := logging.FromContext(ctx)

	userID, err := c.states.Verify(state)
	if err != nil {
		return nil, err
	}

	if c.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	}
	tok, err := c.config.Exchange(ctx, code)
	if err != nil {
		logger.Error().Err(err).Str("user_id", userID).Msg("❌ Authorization code exchange failed")
		return nil, apperr.New(apperr.ErrProviderRequestFailed, "exchange", "Error retrieving access token")
	}
	cred := token.FromOAuth2Token(tok)
	if cred.RefreshToken == "" {
		logger.Warn().Str("user_id", userID).Msg("⚠️ Consent returned no refresh token")
	}

	email, err := c.identity.AccountEmail(ctx, cred)
	if err != nil {
		return nil, err
	}

	acc, err := c.accounts.UpsertAccount(ctx, userID, &models.Account{
		Provider:     models.ProviderDrive,
		Email:        email,
		AccessToken:  cred.AccessToken,
		RefreshToken: cred.RefreshToken,
		IDToken:      cred.IDToken,
		ExpiresAt:    cred.Expiry,
		Scopes:       strings.Join(Scopes, " "),
	})
	if err != nil {
		return nil, err
	}

	logger.Info().
		Str("user_id", userID).
		Str("account_id", acc.ID).
		Str("email", email).
		Str("token", util.MaskToken(cred.AccessToken)).
		Msg("✅ Linked Drive account")

	return c.accounts.ListAccounts(ctx, userID)
}

// HandleCallback is the provider redirect target.
func (c *Consent) HandleCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if reason := q.Get("error"); reason != "" {
		respond.Message(w, http.StatusBadRequest, "consent_denied", "Authorization was not granted: "+reason)
		return
	}
	code := q.Get("code")
	if code == "" {
		respond.Message(w, http.StatusBadRequest, "invalid_request", "Missing authorization code")
		return
	}

	accounts, err := c.Complete(r.Context(), q.Get("state"), code)
	switch {
	case errors.Is(err, ErrStateInvalid), errors.Is(err, ErrStateExpired):
		respond.Message(w, http.StatusBadRequest, "invalid_state", "Invalid state token")
		return
	case err != nil:
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, map[string]interface{}{"accounts": accounts})
}
