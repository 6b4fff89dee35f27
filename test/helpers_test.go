package test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/2beens/ninjatraining/internal/auth"
	"github.com/2beens/ninjatraining/internal/workouts"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/require"
)

const (
	testVisionAPIKey = "test-vision-key"
	testPassword     = "testpass-ninja"
	testBarcode      = "3017620422003"
	testScrollPass   = "test-scroll-password"
)

// newFakeUpstream serves both the food database and the vision API.
func newFakeUpstream() *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/cgi/search.pl", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"count": 1, "products": [{
			"code": "`+testBarcode+`",
			"product_name": "Nutella",
			"brands": "Ferrero",
			"nutriments": {"energy-kcal_100g": 539, "proteins_100g": 6.3, "carbohydrates_100g": 57.5, "fat_100g": 30.9}
		}]}`)
	})
	mux.HandleFunc("/api/v0/product/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if !strings.Contains(r.URL.Path, testBarcode) {
			_, _ = io.WriteString(w, `{"status": 0}`)
			return
		}
		_, _ = io.WriteString(w, `{"status": 1, "product": {
			"code": "`+testBarcode+`",
			"product_name": "Nutella",
			"brands": "Ferrero",
			"nutriments": {"energy-kcal_100g": "539", "proteins_100g": 6.3, "carbohydrates_100g": 57.5, "fat_100g": 30.9}
		}}`)
	})
	mux.HandleFunc("/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+testVisionAPIKey {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"choices": [{"message": {"content": "`+
			"```json\\n{\\\"description\\\": \\\"Rice with chicken, 300g\\\", \\\"macros\\\": {\\\"calories\\\": 480, \\\"protein\\\": 35, \\\"carbs\\\": 60, \\\"fats\\\": 9}}\\n```"+
			`"}}]}`)
	})
	return httptest.NewServer(mux)
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func newCredentials() credentials {
	return credentials{
		Email:    strings.ToLower(gofakeit.Email()),
		Password: testPassword,
	}
}

func (s *IntegrationTestSuite) doJSON(ctx context.Context, method, path, token string, body any) *http.Response {
	return s.doJSONWithHeaders(ctx, method, path, token, nil, body)
}

// doScrollJSON sends the request with the scroll password, unlocking back-dated check-ins.
func (s *IntegrationTestSuite) doScrollJSON(ctx context.Context, method, path, token string, body any) *http.Response {
	return s.doJSONWithHeaders(ctx, method, path, token, map[string]string{
		workouts.ScrollPasswordHeader: testScrollPass,
	}, body)
}

func (s *IntegrationTestSuite) doJSONWithHeaders(
	ctx context.Context,
	method, path, token string,
	headers map[string]string,
	body any,
) *http.Response {
	t := s.T()

	var reqBody io.Reader
	if body != nil {
		reqBytes, err := json.Marshal(body)
		require.NoError(t, err)
		reqBody = bytes.NewBuffer(reqBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, fmt.Sprintf("%s%s", serverEndpoint, path), reqBody)
	require.NoError(t, err)
	req.Header.Set("User-Agent", "test-agent")
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set(auth.TokenHeader, token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := s.httpClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	respBytes, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(respBytes, v), string(respBytes))
}

// signUpAndLogin registers a fresh user and returns its session token.
func (s *IntegrationTestSuite) signUpAndLogin(ctx context.Context) (string, credentials) {
	t := s.T()
	creds := newCredentials()

	resp := s.doJSON(ctx, http.MethodPost, "/auth/signup", "", creds)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = s.doJSON(ctx, http.MethodPost, "/auth/login", "", creds)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var loginResp auth.SignInResponse
	decodeBody(t, resp, &loginResp)
	require.NotEmpty(t, loginResp.Token)

	return loginResp.Token, creds
}
