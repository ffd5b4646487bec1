package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/uniflow/uniflow/internal/api/dto"
	"github.com/uniflow/uniflow/internal/api/middleware"
	"github.com/uniflow/uniflow/internal/auth"
	"github.com/uniflow/uniflow/internal/database/models"
)

type AuthHandler struct {
	authService *auth.Service
}

func NewAuthHandler(authService *auth.Service) *AuthHandler {
	return &AuthHandler{authService: authService}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}

	if errors := req.Validate(); len(errors) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed", Details: errors})
		return
	}

	resp, err := h.authService.Register(r.Context(), auth.RegisterInput{
		Email:      req.Email,
		Password:   req.Password,
		Name:       req.Name,
		OrgName:    req.OrgName,
		OrgTaxID:   req.OrgTaxID,
		Department: req.Department,
	})

	if err != nil {
		switch err {
		case auth.ErrUserExists:
			writeJSON(w, http.StatusConflict, dto.ErrorResponse{Error: "User already exists"})
		default:
			writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Registration failed"})
		}
		return
	}

	setTokenCookie(w, resp.Token)
	writeJSON(w, http.StatusCreated, dto.AuthResponse{
		Token: resp.Token,
		User:  userToDTO(resp.User),
	})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}

	if errors := req.Validate(); len(errors) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed", Details: errors})
		return
	}

	resp, err := h.authService.Login(r.Context(), auth.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})

	if err != nil {
		switch err {
		case auth.ErrInvalidCredentials:
			writeJSON(w, http.StatusUnauthorized, dto.ErrorResponse{Error: "Invalid credentials"})
		case auth.ErrInactiveUser:
			writeJSON(w, http.StatusForbidden, dto.ErrorResponse{Error: "Account is inactive"})
		default:
			writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Login failed"})
		}
		return
	}

	setTokenCookie(w, resp.Token)
	writeJSON(w, http.StatusOK, dto.AuthResponse{
		Token: resp.Token,
		User:  userToDTO(resp.User),
	})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     "token",
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})

	writeJSON(w, http.StatusOK, dto.SuccessResponse{Message: "Logged out"})
}

// Me handles GET /api/v1/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.authService.GetUserByID(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, dto.ErrorResponse{Error: "Not authenticated"})
		return
	}

	writeJSON(w, http.StatusOK, userToDTO(user))
}

func setTokenCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     "token",
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   false, // Set to true in production with HTTPS
		SameSite: http.SameSiteLaxMode,
		MaxAge:   86400, // 24 hours
	})
}

func userToDTO(u *models.User) dto.UserDTO {
	out := dto.UserDTO{
		ID:             u.ID.String(),
		Email:          u.Email,
		Name:           u.Name,
		Role:           u.Role.String(),
		OrganizationID: u.OrganizationID.String(),
		Department:     u.Department,
	}
	if u.Organization != nil {
		out.OrgName = u.Organization.Name
		out.OrgTaxID = u.Organization.TaxID
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
