package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/uniflow/uniflow/internal/api/dto"
	"github.com/uniflow/uniflow/internal/api/middleware"
	"github.com/uniflow/uniflow/internal/auth"
	"github.com/uniflow/uniflow/internal/database/models"
	"github.com/uniflow/uniflow/internal/orgs"
)

type OrganizationHandler struct {
	service     *orgs.Service
	authService *auth.Service
}

func NewOrganizationHandler(service *orgs.Service, authService *auth.Service) *OrganizationHandler {
	return &OrganizationHandler{service: service, authService: authService}
}

// Get handles GET /api/v1/organizations/{id}
func (h *OrganizationHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, caller, ok := h.idAndCaller(w, r)
	if !ok {
		return
	}

	org, count, err := h.service.Get(r.Context(), id, caller)
	if err != nil {
		writeOrgError(w, err)
		return
	}

	resp := struct {
		dto.OrganizationResponse
		MembersCount int64 `json:"members_count"`
	}{dto.ToOrganizationResponse(org), count}
	writeJSON(w, http.StatusOK, resp)
}

// Members handles GET /api/v1/organizations/{id}/members
func (h *OrganizationHandler) Members(w http.ResponseWriter, r *http.Request) {
	_, caller, ok := h.idAndCaller(w, r)
	if !ok {
		return
	}

	members, err := h.service.Members(r.Context(), caller, r.URL.Query().Get("role"))
	if err != nil {
		writeOrgError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToMemberResponses(members))
}

// AvailableUsers handles GET /api/v1/organizations/{id}/available-users
func (h *OrganizationHandler) AvailableUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.AvailableUsers(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to list users"})
		return
	}

	writeJSON(w, http.StatusOK, dto.ToMemberResponses(users))
}

// AddMember handles POST /api/v1/organizations/{id}/members
func (h *OrganizationHandler) AddMember(w http.ResponseWriter, r *http.Request) {
	_, caller, ok := h.idAndCaller(w, r)
	if !ok {
		return
	}

	var req dto.AddMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}
	if errs := req.Validate(); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed", Details: errs})
		return
	}

	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid user ID"})
		return
	}
	role, err := models.ParseRole(req.Role)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid role"})
		return
	}

	member, err := h.service.AddMember(r.Context(), caller, userID, role)
	if err != nil {
		writeOrgError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToMemberResponse(member))
}

// UpdateMember handles PATCH /api/v1/organizations/{id}/members/{uid}
func (h *OrganizationHandler) UpdateMember(w http.ResponseWriter, r *http.Request) {
	_, caller, ok := h.idAndCaller(w, r)
	if !ok {
		return
	}

	memberID, err := uuid.Parse(chi.URLParam(r, "uid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid member ID"})
		return
	}

	var req dto.UpdateMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}
	if errs := req.Validate(); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed", Details: errs})
		return
	}

	role, err := models.ParseRole(req.Role)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid role"})
		return
	}

	member, err := h.service.UpdateMemberRole(r.Context(), caller, memberID, role)
	if err != nil {
		writeOrgError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToMemberResponse(member))
}

// RemoveMember handles DELETE /api/v1/organizations/{id}/members/{uid}
func (h *OrganizationHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	_, caller, ok := h.idAndCaller(w, r)
	if !ok {
		return
	}

	memberID, err := uuid.Parse(chi.URLParam(r, "uid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid member ID"})
		return
	}

	if err := h.service.RemoveMember(r.Context(), caller, memberID); err != nil {
		writeOrgError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.SuccessResponse{Message: "Member removed"})
}

func (h *OrganizationHandler) idAndCaller(w http.ResponseWriter, r *http.Request) (uuid.UUID, *models.User, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid organization ID"})
		return uuid.Nil, nil, false
	}

	caller, err := h.authService.GetUserByID(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, dto.ErrorResponse{Error: "Not authenticated"})
		return uuid.Nil, nil, false
	}

	return id, caller, true
}

func writeOrgError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, orgs.ErrNotFound):
		writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Organization not found"})
	case errors.Is(err, orgs.ErrMemberNotFound):
		writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Member not found"})
	case errors.Is(err, orgs.ErrInvalidRole):
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid role"})
	default:
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Internal server error"})
	}
}
