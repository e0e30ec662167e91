package token

import (
	"time"

	"golang.org/x/oauth2"
)

// RefreshMargin is how far ahead of expiry a token is already treated as
// expired, covering clock skew and the latency of the call that uses it.
const RefreshMargin = 5 * time.Minute

// Credential is the OAuth token set stored for one linked account.
type Credential struct {
	AccessToken  string
	RefreshToken string
	IDToken      string
	Expiry       time.Time
}

// ValidAt reports whether the access token is still usable at now, i.e.
// it expires more than RefreshMargin later.
func (c Credential) ValidAt(now time.Time) bool {
	return c.AccessToken != "" && c.Expiry.After(now.Add(RefreshMargin))
}

// OAuth2Token converts the credential for use with an oauth2 transport.
func (c Credential) OAuth2Token() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  c.AccessToken,
		TokenType:    "Bearer",
		RefreshToken: c.RefreshToken,
		Expiry:       c.Expiry,
	}
}

// FromOAuth2Token builds a credential from a token endpoint response.
func FromOAuth2Token(tok *oauth2.Token) Credential {
	cred := Credential{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		Expiry:       tok.Expiry,
	}
	if idToken, ok := tok.Extra("id_token").(string); ok {
		cred.IDToken = idToken
	}
	return cred
}
