package test

import (
	"context"
	"net/http"

	"github.com/2beens/ninjatraining/internal/auth"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (s *IntegrationTestSuite) TestSignUpAndLogin() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	creds := newCredentials()

	resp := s.doJSON(ctx, http.MethodPost, "/auth/signup", "", creds)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var user auth.User
	decodeBody(t, resp, &user)
	assert.Equal(t, creds.Email, user.Email)
	assert.NotEmpty(t, user.ID)

	// same email again
	resp = s.doJSON(ctx, http.MethodPost, "/auth/signup", "", creds)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()

	resp = s.doJSON(ctx, http.MethodPost, "/auth/login", "", credentials{Email: creds.Email, Password: "bad-password"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	resp = s.doJSON(ctx, http.MethodPost, "/auth/login", "", creds)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var loginResp auth.SignInResponse
	decodeBody(t, resp, &loginResp)
	require.NotEmpty(t, loginResp.Token)
	assert.Equal(t, user.ID, loginResp.User.ID)

	resp = s.doJSON(ctx, http.MethodGet, "/auth/session", loginResp.Token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var sessionUser auth.User
	decodeBody(t, resp, &sessionUser)
	assert.Equal(t, user.ID, sessionUser.ID)

	resp = s.doJSON(ctx, http.MethodGet, "/auth/logout", loginResp.Token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = s.doJSON(ctx, http.MethodGet, "/auth/session", loginResp.Token, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}

func (s *IntegrationTestSuite) TestProtectedRoutesNeedToken() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	for _, path := range []string{"/progress", "/food/entries", "/food/totals/today"} {
		resp := s.doJSON(ctx, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, path)
		resp.Body.Close()

		resp = s.doJSON(ctx, http.MethodGet, path, "not-a-real-token", nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, path)
		resp.Body.Close()
	}
}
