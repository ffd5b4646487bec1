// Package mail sends revision notification emails through Resend.
package mail

import (
	"context"
	"errors"
	"fmt"

	"github.com/resend/resend-go/v2"
	"github.com/uniflow/uniflow/pkg/config"
)

// ErrNotConfigured is returned by NewSender when no Resend credential is
// set; notifications are then skipped rather than failing the worker.
var ErrNotConfigured = errors.New("email credential not configured")

type Sender struct {
	client *resend.Client
	from   string
	appURL string
}

func NewSender(cfg *config.EmailConfig) (*Sender, error) {
	if cfg.ResendAPIKey == "" {
		return nil, ErrNotConfigured
	}
	return &Sender{
		client: resend.NewClient(cfg.ResendAPIKey),
		from:   cfg.FromAddress,
		appURL: cfg.AppURL,
	}, nil
}

// RevisionNotification tells an assignee that a proposal revision awaits
// their review. The email intentionally carries no document content, only a
// link back into the application.
type RevisionNotification struct {
	ToEmail       string
	RecipientName string
	Department    string
	ProposalTitle string
	SubmittedBy   string
}

func (s *Sender) SendRevisionNotification(ctx context.Context, n RevisionNotification) (string, error) {
	html := fmt.Sprintf(`<p>Dear <strong>%s</strong>,</p>
<p><strong>%s</strong> has requested your department (<strong>%s</strong>) to review and contribute to the proposal <strong>%s</strong>.</p>
<p><a href="%s">Open Uniflow to review your revision</a></p>`,
		n.RecipientName, n.SubmittedBy, n.Department, n.ProposalTitle, s.appURL)

	sent, err := s.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    s.from,
		To:      []string{n.ToEmail},
		Subject: fmt.Sprintf("Proposal review requested: %s", n.ProposalTitle),
		Html:    html,
	})
	if err != nil {
		return "", fmt.Errorf("sending notification to %s: %w", n.ToEmail, err)
	}
	return sent.Id, nil
}
