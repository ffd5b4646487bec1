package dto

import "github.com/uniflow/uniflow/internal/api/validation"

type RegisterRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	Name       string `json:"name"`
	OrgName    string `json:"organization_name,omitempty"`
	OrgTaxID   string `json:"organization_nif,omitempty"`
	Department string `json:"department,omitempty"`
}

func (r RegisterRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if r.Email == "" {
		errors["email"] = "Email is required"
	} else if !validation.IsValidEmail(r.Email) {
		errors["email"] = "Invalid email address"
	}
	if r.Password == "" {
		errors["password"] = "Password is required"
	} else if len(r.Password) < 8 {
		errors["password"] = "Password must be at least 8 characters"
	}
	if r.Name == "" {
		errors["name"] = "Name is required"
	}
	if r.OrgTaxID != "" && !validation.IsValidTaxID(r.OrgTaxID) {
		errors["organization_nif"] = "Invalid organization NIF"
	}

	return errors
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r LoginRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if r.Email == "" {
		errors["email"] = "Email is required"
	}
	if r.Password == "" {
		errors["password"] = "Password is required"
	}

	return errors
}

type AuthResponse struct {
	Token string  `json:"token"`
	User  UserDTO `json:"user"`
}

type UserDTO struct {
	ID             string `json:"id"`
	Email          string `json:"email"`
	Name           string `json:"name"`
	Role           string `json:"role"`
	OrganizationID string `json:"organization_id"`
	OrgName        string `json:"organization_name,omitempty"`
	OrgTaxID       string `json:"organization_nif,omitempty"`
	Department     string `json:"department,omitempty"`
}
