package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/uniflow/uniflow/internal/api/dto"
	"github.com/uniflow/uniflow/internal/api/middleware"
	"github.com/uniflow/uniflow/internal/auth"
	"github.com/uniflow/uniflow/internal/tenders"
)

type TenderHandler struct {
	service     *tenders.Service
	authService *auth.Service
}

func NewTenderHandler(service *tenders.Service, authService *auth.Service) *TenderHandler {
	return &TenderHandler{service: service, authService: authService}
}

// Publish handles POST /api/v1/proposals/{id}/publish_tender
func (h *TenderHandler) Publish(w http.ResponseWriter, r *http.Request) {
	proposalID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid proposal ID"})
		return
	}

	caller, err := h.authService.GetUserByID(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, dto.ErrorResponse{Error: "Not authenticated"})
		return
	}

	tender, err := h.service.Publish(r.Context(), proposalID, caller)
	if err != nil {
		writeTenderError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.ToTenderResponse(tender))
}

// List handles GET /api/v1/active-tenders
func (h *TenderHandler) List(w http.ResponseWriter, r *http.Request) {
	caller, err := h.authService.GetUserByID(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, dto.ErrorResponse{Error: "Not authenticated"})
		return
	}

	items, err := h.service.List(r.Context(), caller)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to list tenders"})
		return
	}

	writeJSON(w, http.StatusOK, dto.ToTenderResponses(items))
}

// Get handles GET /api/v1/active-tenders/{id}
func (h *TenderHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid tender ID"})
		return
	}

	caller, err := h.authService.GetUserByID(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, dto.ErrorResponse{Error: "Not authenticated"})
		return
	}

	tender, err := h.service.Get(r.Context(), id, caller)
	if err != nil {
		writeTenderError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToTenderResponse(tender))
}

func writeTenderError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, tenders.ErrNotFound):
		writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Tender not found"})
	case errors.Is(err, tenders.ErrProposalNotFound):
		writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Proposal not found"})
	case errors.Is(err, tenders.ErrForbidden):
		writeJSON(w, http.StatusForbidden, dto.ErrorResponse{Error: "Insufficient role"})
	case errors.Is(err, tenders.ErrNotAssignee):
		writeJSON(w, http.StatusForbidden, dto.ErrorResponse{Error: "Only the assignee may publish this revision"})
	case errors.Is(err, tenders.ErrAlreadyPublished):
		writeJSON(w, http.StatusConflict, dto.ErrorResponse{Error: "Tender already published for this proposal"})
	case errors.Is(err, tenders.ErrNoContent):
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "No tender content available to publish"})
	case errors.Is(err, tenders.ErrMissingTaxID):
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Organization tax ID is required to publish"})
	default:
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Internal server error"})
	}
}
