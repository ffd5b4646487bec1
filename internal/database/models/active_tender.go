package models

import (
	"time"

	"github.com/google/uuid"
)

// Offsets applied to the submission date when a tender is published.
const (
	SubmissionDeadlineOffset = 7 * 24 * time.Hour
	ContractExpiryOffset     = 365 * 24 * time.Hour
)

// ActiveTender is the published, immutable-after-creation record derived from
// exactly one proposal. The unique index on ProposalID is what rejects a
// duplicate publish.
type ActiveTender struct {
	Base
	ProposalID uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"proposal_id"`

	Title           string `gorm:"size:500;not null" json:"title"`
	OrganizationNIF string `gorm:"size:50;index;not null" json:"organization_nif"`
	Price           int64  `gorm:"not null;default:0" json:"price"` // 0 when no price was found

	SubmissionDate     time.Time `gorm:"not null" json:"submission_date"`
	SubmissionDeadline time.Time `gorm:"not null" json:"submission_deadline"`
	ContractExpiry     time.Time `gorm:"not null" json:"contract_expiry_date"`

	TenderContent string `gorm:"type:text;not null" json:"tender_content"`

	CreatedBy uuid.UUID `gorm:"type:uuid;not null" json:"created_by"`
}

func (ActiveTender) TableName() string {
	return "active_tenders"
}

// TenderDates computes the three publication dates from a submission time.
func TenderDates(submittedAt time.Time) (submission, deadline, expiry time.Time) {
	return submittedAt, submittedAt.Add(SubmissionDeadlineOffset), submittedAt.Add(ContractExpiryOffset)
}
