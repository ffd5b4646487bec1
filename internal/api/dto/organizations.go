package dto

import "github.com/uniflow/uniflow/internal/database/models"

type OrganizationResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	TaxID string `json:"nif"`
}

func ToOrganizationResponse(o *models.Organization) OrganizationResponse {
	return OrganizationResponse{
		ID:    o.ID.String(),
		Name:  o.Name,
		TaxID: o.TaxID,
	}
}

type MemberResponse struct {
	ID         string `json:"id"`
	Email      string `json:"email"`
	Name       string `json:"name"`
	Role       string `json:"role"`
	Department string `json:"department,omitempty"`
	IsActive   bool   `json:"is_active"`
}

func ToMemberResponse(u *models.User) MemberResponse {
	return MemberResponse{
		ID:         u.ID.String(),
		Email:      u.Email,
		Name:       u.Name,
		Role:       u.Role.String(),
		Department: u.Department,
		IsActive:   u.IsActive,
	}
}

func ToMemberResponses(items []models.User) []MemberResponse {
	out := make([]MemberResponse, 0, len(items))
	for i := range items {
		out = append(out, ToMemberResponse(&items[i]))
	}
	return out
}

type AddMemberRequest struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

func (r AddMemberRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if r.UserID == "" {
		errors["user_id"] = "User id is required"
	}
	if r.Role == "" {
		errors["role"] = "Role is required"
	}

	return errors
}

type UpdateMemberRequest struct {
	Role string `json:"role"`
}

func (r UpdateMemberRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if r.Role == "" {
		errors["role"] = "Role is required"
	}

	return errors
}
