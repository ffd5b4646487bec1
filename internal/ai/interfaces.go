package ai

import "context"

// Generator defines the model operations the domain services depend on.
// Tests substitute a stub; a nil Generator means the AI path is disabled.
type Generator interface {
	GenerateDraft(ctx context.Context, req DraftRequest) (string, error)
	ExtractTenderFields(ctx context.Context, tenderContent string) (TenderFields, error)
	ExtractRelevantDepartments(ctx context.Context, draftContent string, available []DepartmentContact) ([]DepartmentContact, error)
	GeneratePersonalizedProposal(ctx context.Context, draftContent string, dept DepartmentContact) (string, error)
	GenerateFinalTender(ctx context.Context, draftContent string, meta FinalTenderInput, departmentProposals map[string]string) (string, error)
}

// Compile-time interface satisfaction check
var _ Generator = (*Client)(nil)
