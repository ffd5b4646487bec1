package handlers_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uniflow/uniflow/internal/api/dto"
	"github.com/uniflow/uniflow/internal/api/handlers"
	"github.com/uniflow/uniflow/internal/auth"
	"github.com/uniflow/uniflow/internal/testutil"
)

func setupAuthTestRouter(t *testing.T) (*chi.Mux, *testutil.TestSetup) {
	tc := testutil.NewTestContext(t)

	authService := auth.NewService(tc.DB, tc.JWTService)
	handler := handlers.NewAuthHandler(authService)

	r := chi.NewRouter()
	r.Post("/auth/register", handler.Register)
	r.Post("/auth/login", handler.Login)
	r.Post("/auth/logout", handler.Logout)

	return r, tc
}

func TestAuthHandler_Register(t *testing.T) {
	router, tc := setupAuthTestRouter(t)
	defer tc.Cleanup()

	t.Run("successful registration creates owner", func(t *testing.T) {
		body := map[string]string{
			"email":             "newuser@example.com",
			"password":          "securepassword123",
			"name":              "New User",
			"organization_name": "New Org",
			"organization_nif":  "NIF-999888",
		}

		req := testutil.UnauthenticatedRequest(t, "POST", "/auth/register", body)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusCreated, rr.Code)

		var resp dto.AuthResponse
		err := json.Unmarshal(rr.Body.Bytes(), &resp)
		require.NoError(t, err)
		assert.NotEmpty(t, resp.Token)
		assert.Equal(t, "newuser@example.com", resp.User.Email)
		assert.Equal(t, "owner", resp.User.Role)
		assert.Equal(t, "New Org", resp.User.OrgName)
	})

	t.Run("joining by nif starts as viewer", func(t *testing.T) {
		body := map[string]string{
			"email":            "colleague@example.com",
			"password":         "securepassword123",
			"name":             "Colleague",
			"organization_nif": "NIF-999888",
			"department":       "Legal",
		}

		req := testutil.UnauthenticatedRequest(t, "POST", "/auth/register", body)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusCreated, rr.Code)

		var resp dto.AuthResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.Equal(t, "viewer", resp.User.Role)
		assert.Equal(t, "New Org", resp.User.OrgName)
		assert.Equal(t, "Legal", resp.User.Department)
	})

	t.Run("duplicate email", func(t *testing.T) {
		body := map[string]string{
			"email":    "newuser@example.com",
			"password": "securepassword123",
			"name":     "Again",
		}

		req := testutil.UnauthenticatedRequest(t, "POST", "/auth/register", body)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusConflict, rr.Code)
	})

	t.Run("short password", func(t *testing.T) {
		body := map[string]string{
			"email":    "short@example.com",
			"password": "short",
			"name":     "Short",
		}

		req := testutil.UnauthenticatedRequest(t, "POST", "/auth/register", body)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestAuthHandler_Login(t *testing.T) {
	router, tc := setupAuthTestRouter(t)
	defer tc.Cleanup()

	register := map[string]string{
		"email":    "login@example.com",
		"password": "securepassword123",
		"name":     "Login User",
	}
	req := testutil.UnauthenticatedRequest(t, "POST", "/auth/register", register)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusCreated, rr.Code)

	t.Run("valid credentials", func(t *testing.T) {
		body := map[string]string{"email": "login@example.com", "password": "securepassword123"}

		req := testutil.UnauthenticatedRequest(t, "POST", "/auth/login", body)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)

		var resp dto.AuthResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.NotEmpty(t, resp.Token)

		// The token also lands in a cookie for browser clients.
		cookies := rr.Result().Cookies()
		require.NotEmpty(t, cookies)
		assert.Equal(t, "token", cookies[0].Name)
	})

	t.Run("wrong password", func(t *testing.T) {
		body := map[string]string{"email": "login@example.com", "password": "wrongpassword"}

		req := testutil.UnauthenticatedRequest(t, "POST", "/auth/login", body)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}
