package handlers

import (
	"net/http"

	"github.com/pysugar/drive-nexus/internal/apperr"
	"github.com/pysugar/drive-nexus/internal/logging"
	"github.com/pysugar/drive-nexus/internal/web/middleware"
	"github.com/pysugar/drive-nexus/internal/web/respond"
)

// ListAccounts returns the caller's linked accounts
func (h *Handlers) ListAccounts(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())
	if user == nil {
		respond.Error(w, r, apperr.ErrUnauthenticated)
		return
	}

	accounts, err := h.accounts.ListAccounts(r.Context(), user.ID)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]interface{}{
		"accounts": accounts,
		"count":    len(accounts),
	})
}

// DeleteAccount unlinks an account and drops its stored credential
func (h *Handlers) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	acc, ok := h.account(w, r)
	if !ok {
		return
	}

	if err := h.accounts.DeleteAccount(r.Context(), acc.UserID, acc.ID); err != nil {
		respond.Error(w, r, err)
		return
	}

	logging.FromContext(r.Context()).Info().Str("account_id", acc.ID).Str("email", acc.Email).Msg("🗑️ Unlinked account")
	w.WriteHeader(http.StatusNoContent)
}

// RefreshAccount refreshes the account's access token regardless of expiry
func (h *Handlers) RefreshAccount(w http.ResponseWriter, r *http.Request) {
	acc, ok := h.account(w, r)
	if !ok {
		return
	}

	cred, err := h.tokens.ForceRefresh(r.Context(), acc.ID)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, map[string]interface{}{
		"status":     "ok",
		"account_id": acc.ID,
		"expires_at": cred.Expiry,
	})
}
