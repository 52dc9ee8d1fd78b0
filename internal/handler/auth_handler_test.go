package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campushq/student-records-api/internal/models"
	"github.com/campushq/student-records-api/internal/service"
	appErrors "github.com/campushq/student-records-api/pkg/errors"
)

func newAuthRouter(t *testing.T) *gin.Engine {
	gin.SetMode(gin.TestMode)
	store, err := service.NewStaticCredentialStore("admin:admin02:1,demo:demo123:4")
	require.NoError(t, err)
	authSvc := service.NewAuthService(store, service.NewValidator(), nil, service.AuthConfig{
		Secret:      "test-secret",
		TokenExpiry: time.Hour,
	})
	h := NewAuthHandler(authSvc)

	r := gin.New()
	auth := r.Group("/api/v1/auth")
	auth.POST("/login", h.Login)
	auth.POST("/validate", h.Validate)
	auth.POST("/logout", h.Logout)
	return r
}

func postJSON(r *gin.Engine, path string, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthEndpointsLogin(t *testing.T) {
	r := newAuthRouter(t)

	w := postJSON(r, "/api/v1/auth/login", `{"username":"admin","password":"admin02"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	var res models.LoginResponse
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.NotEmpty(t, res.Token)
	assert.Equal(t, "admin", res.Username)
}

func TestAuthEndpointsLoginRejected(t *testing.T) {
	r := newAuthRouter(t)

	for _, body := range []string{
		`{"username":"admin","password":"wrong"}`,
		`{"username":"nobody","password":"whatever"}`,
	} {
		w := postJSON(r, "/api/v1/auth/login", body)
		require.Equal(t, http.StatusUnauthorized, w.Code)

		var env envelope
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
		require.NotNil(t, env.Error)
		assert.Equal(t, appErrors.ErrInvalidCredentials.Code, env.Error.Code)
		assert.Equal(t, appErrors.ErrInvalidCredentials.Message, env.Error.Message)
	}
}

func TestAuthEndpointsLoginMalformedBody(t *testing.T) {
	r := newAuthRouter(t)

	w := postJSON(r, "/api/v1/auth/login", `{not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuthEndpointsValidateAlwaysOK(t *testing.T) {
	r := newAuthRouter(t)

	// A real token round-trips.
	w := postJSON(r, "/api/v1/auth/login", `{"username":"demo","password":"demo123"}`)
	require.Equal(t, http.StatusOK, w.Code)
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	var login models.LoginResponse
	require.NoError(t, json.Unmarshal(env.Data, &login))

	w = postJSON(r, "/api/v1/auth/validate", `{"token":"`+login.Token+`"}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	var res models.ValidateTokenResponse
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.True(t, res.Valid)
	assert.Equal(t, "demo", res.Username)

	// Garbage still yields 200 with valid=false, never an error status.
	for _, body := range []string{`{"token":"garbage"}`, `{"token":""}`, `{not json`} {
		w = postJSON(r, "/api/v1/auth/validate", body)
		require.Equal(t, http.StatusOK, w.Code)
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
		res = models.ValidateTokenResponse{}
		require.NoError(t, json.Unmarshal(env.Data, &res))
		assert.False(t, res.Valid)
		assert.Empty(t, res.Username)
	}
}

func TestAuthEndpointsLogout(t *testing.T) {
	r := newAuthRouter(t)

	w := postJSON(r, "/api/v1/auth/logout", ``)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "logged out successfully")
}
