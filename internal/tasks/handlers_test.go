package tasks

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRevisionNotificationTaskRoundTrip(t *testing.T) {
	payload := RevisionNotificationPayload{
		ProposalTitle: "Road Maintenance Programme 2026",
		AssigneeEmail: "legal@example.com",
		AssigneeName:  "Ana Costa",
		Department:    "Legal",
		SubmittedBy:   "admin@example.com",
	}

	task, err := NewRevisionNotificationTask(payload)
	require.NoError(t, err)
	assert.Equal(t, TypeRevisionNotification, task.Type())
	assert.Contains(t, string(task.Payload()), "legal@example.com")
}

func TestHandleRevisionNotificationWithoutSender(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewHandler(logger, nil)

	task, err := NewRevisionNotificationTask(RevisionNotificationPayload{
		ProposalTitle: "Bridge Inspection",
		AssigneeEmail: "finance@example.com",
	})
	require.NoError(t, err)

	// Without a configured sender the notification is dropped, not retried.
	err = h.HandleRevisionNotification(context.Background(), task)
	assert.NoError(t, err)
}

func TestHandleRevisionNotificationBadPayload(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewHandler(logger, nil)

	task := asynq.NewTask(TypeRevisionNotification, []byte("not json"))
	err := h.HandleRevisionNotification(context.Background(), task)
	assert.Error(t, err)
}
