// Package proposals implements the document store and the iterative
// replacement workflow: each instruction regenerates the whole draft and the
// result replaces the stored content wholesale.
package proposals

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/uniflow/uniflow/internal/ai"
	"github.com/uniflow/uniflow/internal/database/models"
	"github.com/uniflow/uniflow/internal/files"
	"github.com/uniflow/uniflow/internal/tasks"
	"gorm.io/gorm"
)

var (
	ErrNotFound      = errors.New("proposal not found")
	ErrForbidden     = errors.New("insufficient role")
	ErrNotOwner      = errors.New("not the proposal owner")
	ErrAIUnavailable = errors.New("ai service not configured")
	ErrGeneration    = errors.New("generation failed")
	ErrAssigneeNotInOrganization = errors.New("assignee does not belong to the organization")
)

// MinMutationRole gates iterate, chat, submit, assign and publish.
const MinMutationRole = models.RoleEditor

type Service struct {
	db     *gorm.DB
	gen    ai.Generator  // nil disables the AI paths, CRUD keeps working
	queue  *asynq.Client // nil disables email notifications
	logger *slog.Logger
}

func NewService(db *gorm.DB, gen ai.Generator, queue *asynq.Client, logger *slog.Logger) *Service {
	return &Service{db: db, gen: gen, queue: queue, logger: logger}
}

// List returns the caller's own proposals, excluding per-assignee revision
// copies (those surface through MyRevisions on the assignee's side).
func (s *Service) List(ctx context.Context, userID uuid.UUID) ([]models.Proposal, error) {
	var proposals []models.Proposal
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND assigned_to_email = ?", userID, "").
		Order("pinned DESC, updated_at DESC").
		Find(&proposals).Error
	return proposals, err
}

// Get loads a proposal visible to the caller: its owner or its assignee.
// No visibility means not found, never a hint that the row exists.
func (s *Service) Get(ctx context.Context, id uuid.UUID, caller *models.User) (*models.Proposal, error) {
	var p models.Proposal
	err := s.db.WithContext(ctx).
		Where("id = ? AND (user_id = ? OR assigned_to_email = ?)", id, caller.ID, caller.Email).
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Service) Create(ctx context.Context, userID uuid.UUID, title, content string) (*models.Proposal, error) {
	p := models.Proposal{
		UserID:  userID,
		Title:   title,
		Content: content,
		Status:  models.ProposalStatusDraft,
	}
	if err := s.db.WithContext(ctx).Create(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Service) Rename(ctx context.Context, id uuid.UUID, caller *models.User, title string) (*models.Proposal, error) {
	p, err := s.getOwned(ctx, id, caller)
	if err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(p).Update("title", title).Error; err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID, caller *models.User) error {
	p, err := s.getOwned(ctx, id, caller)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Delete(p).Error
}

func (s *Service) TogglePin(ctx context.Context, id uuid.UUID, caller *models.User) (*models.Proposal, error) {
	p, err := s.getOwned(ctx, id, caller)
	if err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(p).Update("pinned", !p.Pinned).Error; err != nil {
		return nil, err
	}
	p.Pinned = !p.Pinned
	return p, nil
}

// Iterate regenerates the whole document from the current text plus one new
// instruction and replaces it. Last write wins: two concurrent iterations
// race and the later commit silently overwrites the earlier one — there is
// no version token, matching the single-editor usage assumption.
func (s *Service) Iterate(ctx context.Context, id uuid.UUID, caller *models.User, instruction string, atts []files.Attachment, grounded bool) (*models.Proposal, error) {
	if !caller.Role.AtLeast(MinMutationRole) {
		return nil, ErrForbidden
	}

	p, err := s.Get(ctx, id, caller)
	if err != nil {
		return nil, err
	}

	if s.gen == nil {
		return nil, ErrAIUnavailable
	}

	req := ai.DraftRequest{
		Instruction:    instruction,
		CurrentContent: p.WorkingText(),
		Title:          p.Title,
		Attachments:    atts,
		AuthorName:     caller.DisplayName(),
		AuthorRole:     caller.Role.String(),
		Department:     caller.Department,
		Grounded:       grounded,
	}
	if caller.Organization != nil {
		req.Organization = caller.Organization.Name
	}

	// Assigned revisions are rewritten from the assignee's department
	// perspective.
	if p.IsRevision() {
		var assignee models.User
		if err := s.db.WithContext(ctx).Where("email = ?", p.AssignedToEmail).First(&assignee).Error; err == nil {
			req.Department = assignee.Department
			req.DepartmentDesc = assignee.DepartmentDesc
		}
	}

	newContent, err := s.gen.GenerateDraft(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGeneration, err)
	}

	column := "content"
	if p.IsRevision() {
		column = "proposal_revision"
		p.ProposalRevision = newContent
	} else {
		p.Content = newContent
	}

	if err := s.db.WithContext(ctx).Model(&models.Proposal{}).
		Where("id = ?", p.ID).
		Update(column, newContent).Error; err != nil {
		return nil, err
	}

	return p, nil
}

// FanOutResult summarizes what happened during submit beyond the snapshot.
type FanOutResult struct {
	RelevantDepartments int  `json:"relevant_departments"`
	RevisionsCreated    int  `json:"revisions_created"`
	NotificationsQueued int  `json:"notifications_queued"`
	TenderGenerated     bool `json:"tender_generated"`
}

// Submit freezes the current content into the revision snapshot and marks
// the proposal final. When the model gateway is available it additionally
// fans the draft out to relevant departments: personalized revision copies
// per assignee, a consolidated final tender stored as the snapshot, and one
// queued notification email per assignee. The snapshot itself never depends
// on the AI being configured.
func (s *Service) Submit(ctx context.Context, id uuid.UUID, caller *models.User) (*models.Proposal, *FanOutResult, error) {
	if !caller.Role.AtLeast(MinMutationRole) {
		return nil, nil, ErrForbidden
	}

	p, err := s.Get(ctx, id, caller)
	if err != nil {
		return nil, nil, err
	}

	// Freeze first: the snapshot is what assignees see and what publish
	// reads, even when fan-out is degraded.
	p.ProposalRevision = p.Content
	p.FinalDraft = true
	p.Status = models.ProposalStatusSubmitted
	if err := s.db.WithContext(ctx).Model(p).Updates(map[string]interface{}{
		"proposal_revision": p.ProposalRevision,
		"final_draft":       true,
		"status":            models.ProposalStatusSubmitted,
	}).Error; err != nil {
		return nil, nil, err
	}

	result := &FanOutResult{}
	if s.gen == nil {
		s.logger.Warn("submit fan-out skipped, ai not configured", "proposal_id", p.ID)
		return p, result, nil
	}

	if err := s.fanOut(ctx, p, caller, result); err != nil {
		return nil, nil, err
	}

	return p, result, nil
}

func (s *Service) fanOut(ctx context.Context, p *models.Proposal, caller *models.User, result *FanOutResult) error {
	available, err := s.availableDepartments(ctx, caller)
	if err != nil {
		return err
	}
	if len(available) == 0 {
		return nil
	}

	relevant, err := s.gen.ExtractRelevantDepartments(ctx, p.Content, available)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrGeneration, err)
	}
	result.RelevantDepartments = len(relevant)

	departmentProposals := make(map[string]string, len(relevant))
	for _, dept := range relevant {
		personalized, err := s.gen.GeneratePersonalizedProposal(ctx, p.Content, dept)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrGeneration, err)
		}
		departmentProposals[dept.Department] = personalized

		if _, err := s.upsertRevision(ctx, p, dept, personalized); err != nil {
			return err
		}
		result.RevisionsCreated++

		if s.enqueueNotification(p, dept, caller) {
			result.NotificationsQueued++
		}
	}

	if len(departmentProposals) == 0 {
		return nil
	}

	meta := ai.FinalTenderInput{
		Department: caller.Department,
		Authority:  caller.DisplayName(),
	}
	if caller.Organization != nil {
		meta.Organization = caller.Organization.Name
	}

	finalTender, err := s.gen.GenerateFinalTender(ctx, p.Content, meta, departmentProposals)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrGeneration, err)
	}
	result.TenderGenerated = true

	// The consolidated tender becomes the authoritative snapshot on the
	// submitting proposal and on every assignee copy.
	p.ProposalRevision = finalTender
	if err := s.db.WithContext(ctx).Model(p).Update("proposal_revision", finalTender).Error; err != nil {
		return err
	}
	for _, dept := range relevant {
		if err := s.db.WithContext(ctx).Model(&models.Proposal{}).
			Where("title = ? AND assigned_to_email = ?", revisionTitle(p.Title, dept.Department), dept.Email).
			Update("proposal_revision", finalTender).Error; err != nil {
			return err
		}
	}

	return nil
}

// AssignRevision creates (or refreshes) a single revision copy for an
// explicit assignee email within the caller's organization.
func (s *Service) AssignRevision(ctx context.Context, id uuid.UUID, caller *models.User, assigneeEmail string) (*models.Proposal, error) {
	if !caller.Role.AtLeast(MinMutationRole) {
		return nil, ErrForbidden
	}

	p, err := s.Get(ctx, id, caller)
	if err != nil {
		return nil, err
	}

	var assignee models.User
	err = s.db.WithContext(ctx).
		Where("email = ? AND organization_id = ?", assigneeEmail, caller.OrganizationID).
		First(&assignee).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAssigneeNotInOrganization
	}
	if err != nil {
		return nil, err
	}

	dept := ai.DepartmentContact{
		Name:           assignee.DisplayName(),
		Department:     assignee.Department,
		Email:          assignee.Email,
		DepartmentDesc: assignee.DepartmentDesc,
	}

	// The copy carries the frozen snapshot (falling back to the live draft
	// when the proposal was never submitted) and is independent thereafter.
	text := p.ProposalRevision
	if text == "" {
		text = p.Content
	}

	revision, err := s.upsertRevision(ctx, p, dept, text)
	if err != nil {
		return nil, err
	}

	s.enqueueNotification(p, dept, caller)

	return revision, nil
}

// MyRevisions returns exactly the revision rows assigned to the given email.
func (s *Service) MyRevisions(ctx context.Context, email string) ([]models.Proposal, error) {
	var revisions []models.Proposal
	err := s.db.WithContext(ctx).
		Where("assigned_to_email = ?", email).
		Order("updated_at DESC").
		Find(&revisions).Error
	return revisions, err
}

// MyRevisionFor returns the caller's revision copy of one proposal.
func (s *Service) MyRevisionFor(ctx context.Context, id uuid.UUID, email string) (*models.Proposal, error) {
	var p models.Proposal
	err := s.db.WithContext(ctx).
		Where("id = ? AND assigned_to_email = ?", id, email).
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Service) getOwned(ctx context.Context, id uuid.UUID, caller *models.User) (*models.Proposal, error) {
	p, err := s.Get(ctx, id, caller)
	if err != nil {
		return nil, err
	}
	if p.UserID != caller.ID {
		return nil, ErrNotOwner
	}
	return p, nil
}

// availableDepartments lists same-organization users below owner that
// declare a department.
func (s *Service) availableDepartments(ctx context.Context, caller *models.User) ([]ai.DepartmentContact, error) {
	var users []models.User
	err := s.db.WithContext(ctx).
		Where("organization_id = ? AND role <> ? AND department <> ?", caller.OrganizationID, models.RoleOwner, "").
		Find(&users).Error
	if err != nil {
		return nil, err
	}

	contacts := make([]ai.DepartmentContact, 0, len(users))
	for _, u := range users {
		contacts = append(contacts, ai.DepartmentContact{
			Name:           u.DisplayName(),
			Department:     u.Department,
			Email:          u.Email,
			DepartmentDesc: u.DepartmentDesc,
		})
	}
	return contacts, nil
}

func (s *Service) upsertRevision(ctx context.Context, p *models.Proposal, dept ai.DepartmentContact, text string) (*models.Proposal, error) {
	title := revisionTitle(p.Title, dept.Department)

	var existing models.Proposal
	err := s.db.WithContext(ctx).
		Where("title = ? AND assigned_to_email = ?", title, dept.Email).
		First(&existing).Error
	if err == nil {
		if uerr := s.db.WithContext(ctx).Model(&existing).
			Update("proposal_revision", text).Error; uerr != nil {
			return nil, uerr
		}
		existing.ProposalRevision = text
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	revision := models.Proposal{
		UserID:           p.UserID,
		Title:            title,
		Content:          p.Content,
		ProposalRevision: text,
		AssignedToEmail:  dept.Email,
		Status:           models.ProposalStatusRevision,
		FinalDraft:       true,
	}
	if err := s.db.WithContext(ctx).Create(&revision).Error; err != nil {
		return nil, err
	}
	return &revision, nil
}

func (s *Service) enqueueNotification(p *models.Proposal, dept ai.DepartmentContact, caller *models.User) bool {
	if s.queue == nil {
		s.logger.Warn("notification skipped, queue not configured", "assignee", dept.Email)
		return false
	}

	task, err := tasks.NewRevisionNotificationTask(tasks.RevisionNotificationPayload{
		ProposalID:    p.ID,
		ProposalTitle: p.Title,
		AssigneeEmail: dept.Email,
		AssigneeName:  dept.Name,
		Department:    dept.Department,
		SubmittedBy:   caller.DisplayName(),
	})
	if err != nil {
		s.logger.Error("building notification task", "error", err)
		return false
	}
	if _, err := s.queue.Enqueue(task); err != nil {
		s.logger.Error("enqueueing notification", "error", err, "assignee", dept.Email)
		return false
	}
	return true
}

func revisionTitle(title, department string) string {
	if department == "" {
		department = "Revision"
	}
	return fmt.Sprintf("%s - %s", title, department)
}
