package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/uniflow/uniflow/internal/api/dto"
	"github.com/uniflow/uniflow/internal/api/middleware"
	"github.com/uniflow/uniflow/internal/api/validation"
	"github.com/uniflow/uniflow/internal/auth"
	"github.com/uniflow/uniflow/internal/database/models"
	"github.com/uniflow/uniflow/internal/files"
	"github.com/uniflow/uniflow/internal/proposals"
)

// maxUploadBytes caps one multipart chat request across all attachments.
const maxUploadBytes = 32 << 20

type ProposalHandler struct {
	service     *proposals.Service
	authService *auth.Service
}

func NewProposalHandler(service *proposals.Service, authService *auth.Service) *ProposalHandler {
	return &ProposalHandler{service: service, authService: authService}
}

// List handles GET /api/v1/proposals
func (h *ProposalHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.List(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to list proposals"})
		return
	}

	writeJSON(w, http.StatusOK, dto.ToProposalResponses(items))
}

// Create handles POST /api/v1/proposals
func (h *ProposalHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateProposalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}

	if errs := req.Validate(); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed", Details: errs})
		return
	}

	title := validation.SanitizeString(req.Title)
	p, err := h.service.Create(r.Context(), middleware.GetUserID(r.Context()), title, req.Content)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to create proposal"})
		return
	}

	writeJSON(w, http.StatusCreated, dto.ToProposalResponse(p))
}

// Get handles GET /api/v1/proposals/{id}
func (h *ProposalHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, caller, ok := h.idAndCaller(w, r)
	if !ok {
		return
	}

	p, err := h.service.Get(r.Context(), id, caller)
	if err != nil {
		writeProposalError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToProposalResponse(p))
}

// Rename handles PATCH /api/v1/proposals/{id}
func (h *ProposalHandler) Rename(w http.ResponseWriter, r *http.Request) {
	id, caller, ok := h.idAndCaller(w, r)
	if !ok {
		return
	}

	var req dto.RenameProposalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}
	if errs := req.Validate(); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed", Details: errs})
		return
	}

	p, err := h.service.Rename(r.Context(), id, caller, validation.SanitizeString(req.Title))
	if err != nil {
		writeProposalError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToProposalResponse(p))
}

// Delete handles DELETE /api/v1/proposals/{id}
func (h *ProposalHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, caller, ok := h.idAndCaller(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), id, caller); err != nil {
		writeProposalError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.SuccessResponse{Message: "Proposal deleted"})
}

// TogglePin handles POST /api/v1/proposals/{id}/pin
func (h *ProposalHandler) TogglePin(w http.ResponseWriter, r *http.Request) {
	id, caller, ok := h.idAndCaller(w, r)
	if !ok {
		return
	}

	p, err := h.service.TogglePin(r.Context(), id, caller)
	if err != nil {
		writeProposalError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToProposalResponse(p))
}

// Iterate handles POST /api/v1/proposals/{id}/iterate: one instruction, full
// regeneration, no attachments.
func (h *ProposalHandler) Iterate(w http.ResponseWriter, r *http.Request) {
	id, caller, ok := h.idAndCaller(w, r)
	if !ok {
		return
	}

	var req dto.IterateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}
	if errs := req.Validate(); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed", Details: errs})
		return
	}

	p, err := h.service.Iterate(r.Context(), id, caller, req.UserInput, nil, req.Grounded)
	if err != nil {
		writeProposalError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToProposalResponse(p))
}

// Chat handles POST /api/v1/proposals/{id}/chat: multipart instruction plus
// optional file attachments. All files are validated and extracted before the
// model is called, so an unsupported file leaves the proposal untouched.
func (h *ProposalHandler) Chat(w http.ResponseWriter, r *http.Request) {
	id, caller, ok := h.idAndCaller(w, r)
	if !ok {
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid multipart request"})
		return
	}

	message := r.FormValue("message")
	if message == "" {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Validation failed",
			Details: map[string]string{"message": "Message is required"},
		})
		return
	}
	grounded := r.FormValue("use_grounding") == "true"

	var attachments []files.Attachment
	if r.MultipartForm != nil {
		for _, header := range r.MultipartForm.File["files"] {
			att, err := h.readAttachment(header)
			if err != nil {
				var unsupported *files.UnsupportedTypeError
				if errors.As(err, &unsupported) {
					writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: unsupported.Error()})
					return
				}
				writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to process file " + header.Filename})
				return
			}
			attachments = append(attachments, att)
		}
	}

	p, err := h.service.Iterate(r.Context(), id, caller, message, attachments, grounded)
	if err != nil {
		writeProposalError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToProposalResponse(p))
}

// Submit handles POST /api/v1/proposals/{id}/submit_draft
func (h *ProposalHandler) Submit(w http.ResponseWriter, r *http.Request) {
	id, caller, ok := h.idAndCaller(w, r)
	if !ok {
		return
	}

	p, result, err := h.service.Submit(r.Context(), id, caller)
	if err != nil {
		writeProposalError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.SubmitResponse{
		Message:             "Draft submitted",
		Proposal:            dto.ToProposalResponse(p),
		RelevantDepartments: result.RelevantDepartments,
		RevisionsCreated:    result.RevisionsCreated,
		NotificationsQueued: result.NotificationsQueued,
		TenderGenerated:     result.TenderGenerated,
	})
}

// Assign handles POST /api/v1/proposals/{id}/assign
func (h *ProposalHandler) Assign(w http.ResponseWriter, r *http.Request) {
	id, caller, ok := h.idAndCaller(w, r)
	if !ok {
		return
	}

	var req dto.AssignRevisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}
	if errs := req.Validate(); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed", Details: errs})
		return
	}

	revision, err := h.service.AssignRevision(r.Context(), id, caller, req.Email)
	if err != nil {
		writeProposalError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.ToProposalResponse(revision))
}

// MyRevisions handles GET /api/v1/my-revisions
func (h *ProposalHandler) MyRevisions(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.MyRevisions(r.Context(), middleware.GetUserEmail(r.Context()))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to list revisions"})
		return
	}

	writeJSON(w, http.StatusOK, dto.ToProposalResponses(items))
}

// MyRevision handles GET /api/v1/proposals/{id}/my-revision
func (h *ProposalHandler) MyRevision(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid proposal ID"})
		return
	}

	p, err := h.service.MyRevisionFor(r.Context(), id, middleware.GetUserEmail(r.Context()))
	if err != nil {
		writeProposalError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToProposalResponse(p))
}

func (h *ProposalHandler) idAndCaller(w http.ResponseWriter, r *http.Request) (uuid.UUID, *models.User, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid proposal ID"})
		return uuid.Nil, nil, false
	}

	caller, err := h.authService.GetUserByID(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, dto.ErrorResponse{Error: "Not authenticated"})
		return uuid.Nil, nil, false
	}

	return id, caller, true
}

func (h *ProposalHandler) readAttachment(header *multipart.FileHeader) (files.Attachment, error) {
	f, err := header.Open()
	if err != nil {
		return files.Attachment{}, err
	}
	defer f.Close()

	content, err := io.ReadAll(f)
	if err != nil {
		return files.Attachment{}, err
	}

	return files.Process(header.Filename, content, header.Header.Get("Content-Type"))
}

func writeProposalError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, proposals.ErrNotFound):
		writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Proposal not found"})
	case errors.Is(err, proposals.ErrForbidden):
		writeJSON(w, http.StatusForbidden, dto.ErrorResponse{Error: "Insufficient role"})
	case errors.Is(err, proposals.ErrNotOwner):
		writeJSON(w, http.StatusForbidden, dto.ErrorResponse{Error: "Only the owner may do this"})
	case errors.Is(err, proposals.ErrAIUnavailable):
		writeJSON(w, http.StatusServiceUnavailable, dto.ErrorResponse{Error: "AI service not configured"})
	case errors.Is(err, proposals.ErrAssigneeNotInOrganization):
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Assignee is not a member of your organization"})
	case errors.Is(err, proposals.ErrGeneration):
		writeJSON(w, http.StatusBadGateway, dto.ErrorResponse{Error: "Generation failed"})
	default:
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Internal server error"})
	}
}
