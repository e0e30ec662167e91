package google

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"net"
	"net/http"
	"net/url"

	"github.com/pysugar/drive-nexus/internal/auth/token"
	"github.com/pysugar/drive-nexus/internal/db/models"
	"github.com/pysugar/drive-nexus/internal/logging"
	"github.com/pysugar/drive-nexus/internal/web/middleware"
	"github.com/pysugar/drive-nexus/internal/web/respond"
	"golang.org/x/oauth2"
)

// IdentityLookup resolves the email of the Google identity behind cred.
type IdentityLookup interface {
	AccountEmail(ctx context.Context, cred token.Credential) (string, error)
}

// AccountSaver persists linked accounts.
type AccountSaver interface {
	UpsertAccount(ctx context.Context, userID string, acc *models.Account) (*models.Account, error)
	ListAccounts(ctx context.Context, userID string) ([]models.Account, error)
}

// Consent runs the authorization-code flow that links a Drive account to a
// user.
type Consent struct {
	config     *oauth2.Config
	states     *StateSigner
	identity   IdentityLookup
	accounts   AccountSaver
	httpClient *http.Client
}

// NewConsent creates the consent flow. httpClient is used for the code
// exchange and may be nil.
func NewConsent(config *oauth2.Config, states *StateSigner, identity IdentityLookup, accounts AccountSaver, httpClient *http.Client) *Consent {
	return &Consent{
		config:     config,
		states:     states,
		identity:   identity,
		accounts:   accounts,
		httpClient: httpClient,
	}
}

// AuthCodeURL returns the consent URL for userID. Offline access with a
// forced prompt makes Google issue a refresh token on every consent.
func (c *Consent) AuthCodeURL(userID string) string {
	opts := []oauth2.AuthCodeOption{
		oauth2.AccessTypeOffline,
		oauth2.ApprovalForce,
	}

	// Google requires device_id and device_name for private IP redirects
	if redirect, err := url.Parse(c.config.RedirectURL); err == nil && isPrivateIP(redirect.Hostname()) {
		deviceID := make([]byte, 16)
		rand.Read(deviceID)
		opts = append(opts,
			oauth2.SetAuthURLParam("device_id", hex.EncodeToString(deviceID)),
			oauth2.SetAuthURLParam("device_name", "drive-nexus"),
		)
	}

	return c.config.AuthCodeURL(c.states.Sign(userID), opts...)
}

// HandleAuthorize answers {"url": ...} for the authenticated user.
func (c *Consent) HandleAuthorize(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())
	if user == nil {
		respond.Message(w, http.StatusUnauthorized, "unauthenticated_request", "Missing API key")
		return
	}

	logging.FromContext(r.Context()).Info().Str("user_id", user.ID).Msg("🔐 Issued Drive consent URL")
	respond.JSON(w, http.StatusOK, map[string]string{"url": c.AuthCodeURL(user.ID)})
}

// isPrivateIP reports whether host is an RFC 1918 address. Loopback and
// names are not.
func isPrivateIP(host string) bool {
	ip := net.ParseIP(host)
	if ip == nil {
		return false
	}
	return ip.IsPrivate()
}
