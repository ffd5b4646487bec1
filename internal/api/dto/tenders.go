package dto

import (
	"time"

	"github.com/uniflow/uniflow/internal/database/models"
)

type TenderResponse struct {
	ID                 string    `json:"id"`
	ProposalID         string    `json:"proposal_id"`
	Title              string    `json:"title"`
	OrganizationNIF    string    `json:"organization_nif"`
	Price              int64     `json:"price"`
	SubmissionDate     time.Time `json:"submission_date"`
	SubmissionDeadline time.Time `json:"submission_deadline"`
	ContractExpiry     time.Time `json:"contract_expiry"`
	TenderContent      string    `json:"tender_content,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
}

func ToTenderResponse(t *models.ActiveTender) TenderResponse {
	return TenderResponse{
		ID:                 t.ID.String(),
		ProposalID:         t.ProposalID.String(),
		Title:              t.Title,
		OrganizationNIF:    t.OrganizationNIF,
		Price:              t.Price,
		SubmissionDate:     t.SubmissionDate,
		SubmissionDeadline: t.SubmissionDeadline,
		ContractExpiry:     t.ContractExpiry,
		TenderContent:      t.TenderContent,
		CreatedAt:          t.CreatedAt,
	}
}

func ToTenderResponses(items []models.ActiveTender) []TenderResponse {
	out := make([]TenderResponse, 0, len(items))
	for i := range items {
		out = append(out, ToTenderResponse(&items[i]))
	}
	return out
}
