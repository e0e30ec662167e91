package token

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

type tokenRequest struct {
	Method string
	Form   url.Values
}

func newTokenEndpoint(t *testing.T, status int, body string) (*httptest.Server, *tokenRequest) {
	t.Helper()
	captured := &tokenRequest{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		captured.Method = r.Method
		captured.Form = r.PostForm
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, captured
}

func testConfig(tokenURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		Endpoint: oauth2.Endpoint{
			TokenURL:  tokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}

func TestOAuth2Exchanger_Refresh(t *testing.T) {
	srv, req := newTokenEndpoint(t, http.StatusOK,
		`{"access_token":"A2","token_type":"Bearer","expires_in":3600,"id_token":"I2"}`)

	ex := NewOAuth2Exchanger(testConfig(srv.URL), srv.Client())
	tok, err := ex.Refresh(context.Background(), "R1")
	require.NoError(t, err)

	assert.Equal(t, "A2", tok.AccessToken)
	assert.Equal(t, "R1", tok.RefreshToken, "oauth2 carries the old refresh token forward")
	assert.Equal(t, "I2", tok.Extra("id_token"))
	assert.False(t, tok.Expiry.IsZero())

	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "refresh_token", req.Form.Get("grant_type"))
	assert.Equal(t, "R1", req.Form.Get("refresh_token"))
	assert.Equal(t, "client-id", req.Form.Get("client_id"))
	assert.Equal(t, "client-secret", req.Form.Get("client_secret"))
}

func TestOAuth2Exchanger_RejectedGrant(t *testing.T) {
	srv, _ := newTokenEndpoint(t, http.StatusBadRequest,
		`{"error":"invalid_grant","error_description":"Token has been expired or revoked."}`)

	ex := NewOAuth2Exchanger(testConfig(srv.URL), nil)
	_, err := ex.Refresh(context.Background(), "R1")
	require.Error(t, err)

	var re *oauth2.RetrieveError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "invalid_grant", re.ErrorCode)
	assert.True(t, isPermanentRefreshError(err))
}
