package dto

import (
	"time"

	"github.com/uniflow/uniflow/internal/api/validation"
	"github.com/uniflow/uniflow/internal/database/models"
)

type CreateProposalRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

func (r CreateProposalRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if r.Title == "" {
		errors["title"] = "Title is required"
	}
	if len(r.Title) > 500 {
		errors["title"] = "Title must be at most 500 characters"
	}

	return errors
}

type RenameProposalRequest struct {
	Title string `json:"title"`
}

func (r RenameProposalRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if r.Title == "" {
		errors["title"] = "Title is required"
	}

	return errors
}

type IterateRequest struct {
	UserInput string `json:"user_input"`
	Grounded  bool   `json:"use_grounding,omitempty"`
}

func (r IterateRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if r.UserInput == "" {
		errors["user_input"] = "Instruction is required"
	}

	return errors
}

type AssignRevisionRequest struct {
	Email string `json:"email"`
}

func (r AssignRevisionRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if r.Email == "" {
		errors["email"] = "Assignee email is required"
	} else if !validation.IsValidEmail(r.Email) {
		errors["email"] = "Invalid email address"
	}

	return errors
}

type ProposalResponse struct {
	ID               string    `json:"id"`
	Title            string    `json:"title"`
	Content          string    `json:"content"`
	Pinned           bool      `json:"pinned"`
	Status           string    `json:"status"`
	FinalDraft       bool      `json:"final_draft"`
	ProposalRevision string    `json:"proposal_revision,omitempty"`
	AssignedToEmail  string    `json:"assigned_to_email,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func ToProposalResponse(p *models.Proposal) ProposalResponse {
	return ProposalResponse{
		ID:               p.ID.String(),
		Title:            p.Title,
		Content:          p.Content,
		Pinned:           p.Pinned,
		Status:           p.Status,
		FinalDraft:       p.FinalDraft,
		ProposalRevision: p.ProposalRevision,
		AssignedToEmail:  p.AssignedToEmail,
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
	}
}

func ToProposalResponses(items []models.Proposal) []ProposalResponse {
	out := make([]ProposalResponse, 0, len(items))
	for i := range items {
		out = append(out, ToProposalResponse(&items[i]))
	}
	return out
}

// SubmitResponse reports the frozen proposal plus what the fan-out did.
type SubmitResponse struct {
	Message             string           `json:"message"`
	Proposal            ProposalResponse `json:"proposal"`
	RelevantDepartments int              `json:"relevant_departments"`
	RevisionsCreated    int              `json:"revisions_created"`
	NotificationsQueued int              `json:"notifications_queued"`
	TenderGenerated     bool             `json:"tender_generated"`
}
