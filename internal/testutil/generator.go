package testutil

import (
	"context"
	"sync"

	"github.com/uniflow/uniflow/internal/ai"
)

// StubGenerator is a deterministic ai.Generator for tests. Every method
// returns the configured value and records its inputs.
type StubGenerator struct {
	mu sync.Mutex

	DraftOutput  string
	DraftErr     error
	Fields       ai.TenderFields
	FieldsErr    error
	Departments  []ai.DepartmentContact
	Personalized string
	FinalTender  string

	DraftCalls []ai.DraftRequest
}

var _ ai.Generator = (*StubGenerator)(nil)

func (g *StubGenerator) GenerateDraft(ctx context.Context, req ai.DraftRequest) (string, error) {
	g.mu.Lock()
	g.DraftCalls = append(g.DraftCalls, req)
	g.mu.Unlock()
	if g.DraftErr != nil {
		return "", g.DraftErr
	}
	return g.DraftOutput, nil
}

func (g *StubGenerator) ExtractTenderFields(ctx context.Context, tenderContent string) (ai.TenderFields, error) {
	return g.Fields, g.FieldsErr
}

func (g *StubGenerator) ExtractRelevantDepartments(ctx context.Context, draftContent string, available []ai.DepartmentContact) ([]ai.DepartmentContact, error) {
	if g.Departments != nil {
		return g.Departments, nil
	}
	return available, nil
}

func (g *StubGenerator) GeneratePersonalizedProposal(ctx context.Context, draftContent string, dept ai.DepartmentContact) (string, error) {
	if g.Personalized != "" {
		return g.Personalized, nil
	}
	return "Personalized draft for " + dept.Department, nil
}

func (g *StubGenerator) GenerateFinalTender(ctx context.Context, draftContent string, meta ai.FinalTenderInput, departmentProposals map[string]string) (string, error) {
	if g.FinalTender != "" {
		return g.FinalTender, nil
	}
	return "Consolidated tender", nil
}
