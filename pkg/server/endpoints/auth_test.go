package endpoints

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogin(t *testing.T) {
	srv, _, _, _ := newTestServer(t)
	RegisterAuthEndpoints(srv)

	t.Run("valid credentials return both tokens", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/api/v1/auth/login",
			strings.NewReader(`{"email":"house@hospital.test","password":"changeme123"}`))
		w := httptest.NewRecorder()
		srv.Router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var resp TokenResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.NotEmpty(t, resp.AccessToken)
		assert.NotEmpty(t, resp.RefreshToken)
		assert.Equal(t, "bearer", resp.TokenType)
	})

	t.Run("wrong password is rejected", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/api/v1/auth/login",
			strings.NewReader(`{"email":"house@hospital.test","password":"wrong-password"}`))
		w := httptest.NewRecorder()
		srv.Router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("unknown email is rejected", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/api/v1/auth/login",
			strings.NewReader(`{"email":"nobody@hospital.test","password":"changeme123"}`))
		w := httptest.NewRecorder()
		srv.Router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestRefresh(t *testing.T) {
	srv, stores, _, _ := newTestServer(t)
	RegisterAuthEndpoints(srv)

	login := func(t *testing.T) TokenResponse {
		t.Helper()
		req := httptest.NewRequest("POST", "/api/v1/auth/login",
			strings.NewReader(`{"email":"house@hospital.test","password":"changeme123"}`))
		w := httptest.NewRecorder()
		srv.Router.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)

		var resp TokenResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		return resp
	}

	t.Run("stored refresh token yields a new access token", func(t *testing.T) {
		tokens := login(t)

		req := httptest.NewRequest("POST", "/api/v1/auth/refresh",
			strings.NewReader(`{"refresh_token":"`+tokens.RefreshToken+`"}`))
		w := httptest.NewRecorder()
		srv.Router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var resp TokenResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.NotEmpty(t, resp.AccessToken)
		assert.Empty(t, resp.RefreshToken)
	})

	t.Run("refresh token is rejected after logout", func(t *testing.T) {
		tokens := login(t)

		req := httptest.NewRequest("POST", "/api/v1/auth/logout", nil)
		req.Header.Set("Authorization", "Bearer "+tokens.AccessToken)
		w := httptest.NewRecorder()
		srv.Router.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)

		req = httptest.NewRequest("POST", "/api/v1/auth/refresh",
			strings.NewReader(`{"refresh_token":"`+tokens.RefreshToken+`"}`))
		w = httptest.NewRecorder()
		srv.Router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("access token is not accepted as a refresh token", func(t *testing.T) {
		tokens := login(t)

		req := httptest.NewRequest("POST", "/api/v1/auth/refresh",
			strings.NewReader(`{"refresh_token":"`+tokens.AccessToken+`"}`))
		w := httptest.NewRecorder()
		srv.Router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("refresh token is rejected after a password change", func(t *testing.T) {
		tokens := login(t)

		req := httptest.NewRequest("PUT", "/api/v1/auth/change-password",
			strings.NewReader(`{"current_password":"changeme123","new_password":"evenbetter456"}`))
		req.Header.Set("Authorization", "Bearer "+tokens.AccessToken)
		w := httptest.NewRecorder()
		srv.Router.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Nil(t, stores.users.users[1].RefreshToken)

		req = httptest.NewRequest("POST", "/api/v1/auth/refresh",
			strings.NewReader(`{"refresh_token":"`+tokens.RefreshToken+`"}`))
		w = httptest.NewRecorder()
		srv.Router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestRegister(t *testing.T) {
	srv, _, _, _ := newTestServer(t)
	RegisterAuthEndpoints(srv)

	t.Run("creates a clinician account", func(t *testing.T) {
		body := `{
			"username": "james.wilson",
			"email": "wilson@hospital.test",
			"password": "oncology123",
			"first_name": "James",
			"last_name": "Wilson",
			"specialty": "Oncology",
			"license_number": "MD-67890"
		}`
		req := httptest.NewRequest("POST", "/api/v1/auth/register", strings.NewReader(body))
		w := httptest.NewRecorder()
		srv.Router.ServeHTTP(w, req)

		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		var resp UserResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.True(t, resp.Clinician)
		assert.Equal(t, "Oncology", resp.Specialty)
	})

	t.Run("duplicate email conflicts", func(t *testing.T) {
		body := `{
			"username": "house2",
			"email": "house@hospital.test",
			"password": "password123",
			"first_name": "Gregory",
			"last_name": "House"
		}`
		req := httptest.NewRequest("POST", "/api/v1/auth/register", strings.NewReader(body))
		w := httptest.NewRecorder()
		srv.Router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("duplicate username conflicts", func(t *testing.T) {
		body := `{
			"username": "gregory.house",
			"email": "house2@hospital.test",
			"password": "password123",
			"first_name": "Gregory",
			"last_name": "House"
		}`
		req := httptest.NewRequest("POST", "/api/v1/auth/register", strings.NewReader(body))
		w := httptest.NewRecorder()
		srv.Router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Contains(t, w.Body.String(), "username already registered")
	})

	t.Run("short password fails validation", func(t *testing.T) {
		body := `{
			"username": "shorty",
			"email": "shorty@hospital.test",
			"password": "short",
			"first_name": "Short",
			"last_name": "Password"
		}`
		req := httptest.NewRequest("POST", "/api/v1/auth/register", strings.NewReader(body))
		w := httptest.NewRecorder()
		srv.Router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})
}

func TestValidateClinician(t *testing.T) {
	srv, _, clinicianAuth, adminAuth := newTestServer(t)
	RegisterAuthEndpoints(srv)

	t.Run("clinician has full permissions", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/v1/auth/validate-clinician", nil)
		req.Header.Set("Authorization", clinicianAuth)
		w := httptest.NewRecorder()
		srv.Router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			Clinician   bool            `json:"is_clinician"`
			Permissions map[string]bool `json:"permissions"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.True(t, resp.Clinician)
		assert.True(t, resp.Permissions["create_prescriptions"])
	})

	t.Run("administrative account has none", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/v1/auth/validate-clinician", nil)
		req.Header.Set("Authorization", adminAuth)
		w := httptest.NewRecorder()
		srv.Router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			Clinician   bool            `json:"is_clinician"`
			Permissions map[string]bool `json:"permissions"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.False(t, resp.Clinician)
		assert.False(t, resp.Permissions["create_notes"])
	})
}

func TestContentHash(t *testing.T) {
	a := contentHash("body", "author")
	b := contentHash("body", "author")
	c := contentHash("body", "other author")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64)
}
