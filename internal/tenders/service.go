// Package tenders turns a published proposal revision into an ActiveTender:
// an immutable-after-creation record with extracted title/price and computed
// dates. Exactly one tender may exist per source proposal.
package tenders

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uniflow/uniflow/internal/ai"
	"github.com/uniflow/uniflow/internal/database/models"
	"gorm.io/gorm"
)

var (
	ErrNotFound         = errors.New("tender not found")
	ErrProposalNotFound = errors.New("proposal not found")
	ErrForbidden        = errors.New("insufficient role")
	ErrNotAssignee      = errors.New("only the assignee may publish this revision")
	ErrAlreadyPublished = errors.New("tender already published for this proposal")
	ErrNoContent        = errors.New("no tender content available to publish")
	ErrMissingTaxID     = errors.New("organization tax id is required to publish")
)

type Service struct {
	db     *gorm.DB
	gen    ai.Generator // nil: field extraction falls back to heading parsing
	logger *slog.Logger
}

func NewService(db *gorm.DB, gen ai.Generator, logger *slog.Logger) *Service {
	return &Service{db: db, gen: gen, logger: logger}
}

// Publish creates the ActiveTender for a proposal. The first call succeeds;
// any further call fails with ErrAlreadyPublished — the unique index on
// proposal_id backs this against concurrent publishers.
func (s *Service) Publish(ctx context.Context, proposalID uuid.UUID, caller *models.User) (*models.ActiveTender, error) {
	if !caller.Role.AtLeast(models.RoleEditor) {
		return nil, ErrForbidden
	}

	var p models.Proposal
	err := s.db.WithContext(ctx).
		Where("id = ? AND (user_id = ? OR assigned_to_email = ?)", proposalID, caller.ID, caller.Email).
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrProposalNotFound
	}
	if err != nil {
		return nil, err
	}

	// Assigned revisions are published by their assignee only.
	if p.IsRevision() && p.AssignedToEmail != caller.Email {
		return nil, ErrNotAssignee
	}

	content := p.ProposalRevision
	if content == "" {
		content = p.Content
	}
	if strings.TrimSpace(content) == "" {
		return nil, ErrNoContent
	}

	var existing models.ActiveTender
	if err := s.db.WithContext(ctx).Where("proposal_id = ?", p.ID).First(&existing).Error; err == nil {
		return nil, ErrAlreadyPublished
	}

	nif, err := s.organizationTaxID(ctx, caller)
	if err != nil {
		return nil, err
	}

	fields := s.extractFields(ctx, content, p.Title)

	submission, deadline, expiry := models.TenderDates(time.Now().UTC())
	tender := models.ActiveTender{
		ProposalID:         p.ID,
		Title:              fields.Title,
		OrganizationNIF:    nif,
		Price:              fields.Price,
		SubmissionDate:     submission,
		SubmissionDeadline: deadline,
		ContractExpiry:     expiry,
		TenderContent:      content,
		CreatedBy:          caller.ID,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&tender).Error; err != nil {
			return err
		}
		return tx.Model(&models.Proposal{}).
			Where("id = ?", p.ID).
			Update("status", models.ProposalStatusPublished).Error
	})
	if err != nil {
		if isDuplicateKey(err) {
			return nil, ErrAlreadyPublished
		}
		return nil, err
	}

	return &tender, nil
}

// List returns the tenders published under the caller's organization.
func (s *Service) List(ctx context.Context, caller *models.User) ([]models.ActiveTender, error) {
	nif, err := s.organizationTaxID(ctx, caller)
	if err != nil {
		if errors.Is(err, ErrMissingTaxID) {
			return nil, nil
		}
		return nil, err
	}

	var tenders []models.ActiveTender
	err = s.db.WithContext(ctx).
		Where("organization_nif = ?", nif).
		Order("submission_date DESC").
		Find(&tenders).Error
	return tenders, err
}

// Get returns one tender, scoped to the caller's organization.
func (s *Service) Get(ctx context.Context, id uuid.UUID, caller *models.User) (*models.ActiveTender, error) {
	nif, err := s.organizationTaxID(ctx, caller)
	if err != nil {
		return nil, ErrNotFound
	}

	var tender models.ActiveTender
	err = s.db.WithContext(ctx).
		Where("id = ? AND organization_nif = ?", id, nif).
		First(&tender).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &tender, nil
}

func (s *Service) extractFields(ctx context.Context, content, defaultTitle string) ai.TenderFields {
	if s.gen != nil {
		fields, err := s.gen.ExtractTenderFields(ctx, content)
		if err == nil && fields.Title != "" {
			return fields
		}
		if err != nil {
			s.logger.Warn("tender field extraction failed, using fallback", "error", err)
		}
	}
	return ai.FallbackTenderFields(content, defaultTitle)
}

func (s *Service) organizationTaxID(ctx context.Context, caller *models.User) (string, error) {
	if caller.Organization != nil && caller.Organization.TaxID != "" {
		return caller.Organization.TaxID, nil
	}

	var org models.Organization
	err := s.db.WithContext(ctx).First(&org, caller.OrganizationID).Error
	if err != nil || org.TaxID == "" {
		return "", ErrMissingTaxID
	}
	return org.TaxID, nil
}

func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "UNIQUE constraint")
}
