package token

import (
	"context"
	"net/http"

	"golang.org/x/oauth2"
)

// Exchanger trades a refresh token for a new access token.
type Exchanger interface {
	Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error)
}

// OAuth2Exchanger refreshes against the token endpoint of an oauth2.Config,
// posting refresh_token, client_id, client_secret and
// grant_type=refresh_token.
type OAuth2Exchanger struct {
	config     *oauth2.Config
	httpClient *http.Client
}

// NewOAuth2Exchanger creates an Exchanger. httpClient may be nil.
func NewOAuth2Exchanger(config *oauth2.Config, httpClient *http.Client) *OAuth2Exchanger {
	return &OAuth2Exchanger{config: config, httpClient: httpClient}
}

// Refresh performs one refresh request. The token source is built without
// an access token so it always goes to the endpoint.
func (e *OAuth2Exchanger) Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	if e.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, e.httpClient)
	}
	return e.config.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
}
