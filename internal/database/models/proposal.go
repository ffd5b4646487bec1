package models

import "github.com/google/uuid"

// ProposalStatus values. A proposal is born draft, becomes submitted when the
// owner freezes it, and published once an active tender has been created from
// it. Per-assignee copies carry the revision status.
const (
	ProposalStatusDraft     = "draft"
	ProposalStatusSubmitted = "submitted"
	ProposalStatusRevision  = "revision"
	ProposalStatusPublished = "published"
)

type Proposal struct {
	Base
	UserID uuid.UUID `gorm:"type:uuid;index;not null" json:"user_id"`
	Title  string    `gorm:"size:500;not null" json:"title"`

	// Content always holds the most recent model output. There is no history
	// of prior drafts: every iteration replaces it wholesale.
	Content string `gorm:"type:text" json:"content"`

	Pinned     bool   `gorm:"default:false" json:"pinned"`
	Status     string `gorm:"size:50;default:'draft'" json:"status"`
	FinalDraft bool   `gorm:"default:false" json:"final_draft"`

	// ProposalRevision is the frozen snapshot taken at submit time. For
	// assigned copies it holds the personalized text instead.
	ProposalRevision string `gorm:"type:text" json:"proposal_revision"`

	// AssignedToEmail marks this row as a revision copy visible only to the
	// assignee with that email. Empty for ordinary proposals.
	AssignedToEmail string `gorm:"size:255;index" json:"assigned_to_email"`

	// Relationships
	User *User `gorm:"foreignKey:UserID" json:"-"`
}

func (Proposal) TableName() string {
	return "proposals"
}

// IsRevision reports whether this row is a per-assignee copy.
func (p *Proposal) IsRevision() bool {
	return p.AssignedToEmail != ""
}

// WorkingText returns the text an iteration operates on: the personalized
// revision for assigned copies, the mutable draft otherwise.
func (p *Proposal) WorkingText() string {
	if p.IsRevision() && p.ProposalRevision != "" {
		return p.ProposalRevision
	}
	return p.Content
}
