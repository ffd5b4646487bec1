package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/uniflow/uniflow/internal/mail"
)

type Handler struct {
	logger *slog.Logger
	sender *mail.Sender // nil: notifications are logged and dropped
}

func NewHandler(logger *slog.Logger, sender *mail.Sender) *Handler {
	return &Handler{logger: logger, sender: sender}
}

func (h *Handler) RegisterHandlers(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeRevisionNotification, h.HandleRevisionNotification)
}

func (h *Handler) HandleRevisionNotification(ctx context.Context, t *asynq.Task) error {
	var payload RevisionNotificationPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	if h.sender == nil {
		h.logger.Warn("email sender not configured, dropping notification",
			"assignee", payload.AssigneeEmail,
			"proposal", payload.ProposalTitle,
		)
		return nil
	}

	id, err := h.sender.SendRevisionNotification(ctx, mail.RevisionNotification{
		ToEmail:       payload.AssigneeEmail,
		RecipientName: payload.AssigneeName,
		Department:    payload.Department,
		ProposalTitle: payload.ProposalTitle,
		SubmittedBy:   payload.SubmittedBy,
	})
	if err != nil {
		h.logger.Error("sending revision notification", "error", err, "assignee", payload.AssigneeEmail)
		return err
	}

	h.logger.Info("revision notification sent",
		"email_id", id,
		"assignee", payload.AssigneeEmail,
		"proposal_id", payload.ProposalID,
	)
	return nil
}
