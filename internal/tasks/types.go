package tasks

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// Task type names
const (
	TypeRevisionNotification = "email:revision_notification"
)

// RevisionNotificationPayload carries the data for one assignee email.
type RevisionNotificationPayload struct {
	ProposalID    uuid.UUID `json:"proposal_id"`
	ProposalTitle string    `json:"proposal_title"`
	AssigneeEmail string    `json:"assignee_email"`
	AssigneeName  string    `json:"assignee_name"`
	Department    string    `json:"department"`
	SubmittedBy   string    `json:"submitted_by"`
}

func NewRevisionNotificationTask(payload RevisionNotificationPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeRevisionNotification, data), nil
}
