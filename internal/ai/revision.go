package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// DepartmentContact identifies one potential reviewer inside the submitting
// user's organization.
type DepartmentContact struct {
	Name           string `json:"name"`
	Department     string `json:"department"`
	Email          string `json:"email"`
	DepartmentDesc string `json:"department_description"`
}

const extractDepartmentsPrompt = `# Department Router

A draft proposal is being submitted for departmental review. From the list of
available departments, select the ones whose responsibilities are relevant to
the draft. Be selective: include a department only when the draft clearly
touches its remit.

## Draft Document:

` + "```markdown\n%s\n```" + `

## Available Departments (JSON):

%s

Return ONLY a JSON array containing the selected entries, copied verbatim from
the list above. Return [] when none are relevant.`

// ExtractRelevantDepartments asks the model which of the available
// departments should review the draft. Returns a subset of the input.
func (c *Client) ExtractRelevantDepartments(ctx context.Context, draftContent string, available []DepartmentContact) ([]DepartmentContact, error) {
	if len(available) == 0 {
		return nil, nil
	}

	deptJSON, err := json.MarshalIndent(available, "", "  ")
	if err != nil {
		return nil, err
	}

	raw, err := c.completeJSON(ctx, fmt.Sprintf(extractDepartmentsPrompt, draftContent, deptJSON))
	if err != nil {
		return nil, err
	}

	var selected []DepartmentContact
	if err := json.Unmarshal([]byte(stripJSONFences(raw)), &selected); err != nil {
		// JSON mode wraps arrays in an object for some models.
		var wrapped struct {
			Departments []DepartmentContact `json:"departments"`
		}
		if werr := json.Unmarshal([]byte(stripJSONFences(raw)), &wrapped); werr != nil {
			return nil, fmt.Errorf("parsing department selection: %w", err)
		}
		selected = wrapped.Departments
	}

	// Only keep entries that actually exist in the available list; the model
	// must not invent recipients.
	byEmail := make(map[string]DepartmentContact, len(available))
	for _, d := range available {
		byEmail[d.Email] = d
	}
	var result []DepartmentContact
	for _, s := range selected {
		if d, ok := byEmail[s.Email]; ok {
			result = append(result, d)
		}
	}

	return result, nil
}

const personalizedProposalPrompt = `# Department Revision Writer

Rewrite the following draft proposal as a personalized revision for a specific
department. Address the problem from that department's perspective, keep all
factual content, and do not invent commitments.

**Department:** %s
**Department Responsibilities:** %s
**Recipient:** %s

## Original Draft:

` + "```markdown\n%s\n```" + `

**Output ONLY the personalized proposal document in Markdown.**`

// GeneratePersonalizedProposal tailors a submitted draft to one department.
func (c *Client) GeneratePersonalizedProposal(ctx context.Context, draftContent string, dept DepartmentContact) (string, error) {
	prompt := fmt.Sprintf(personalizedProposalPrompt,
		dept.Department, dept.DepartmentDesc, dept.Name, draftContent)

	content, err := c.complete(ctx, c.model, prompt, nil)
	if err != nil {
		return "", err
	}
	return stripMarkdownFences(content), nil
}

const finalTenderPrompt = `# Tender Consolidator

Consolidate the draft proposal and the per-department revisions below into one
formal tender document issued by %s (%s), under the authority of %s. The
output must be a complete, self-contained tender in Markdown with a clear
title heading, scope, requirements and an estimated value when one is stated
in the inputs.

## Original Draft:

` + "```markdown\n%s\n```" + `

## Department Revisions:

%s

**Output ONLY the final tender document in Markdown.**`

// FinalTenderInput names the issuing authority for the consolidated tender.
type FinalTenderInput struct {
	Organization string
	Department   string
	Authority    string
}

// GenerateFinalTender consolidates the draft and the personalized revisions
// into the formal tender text stored as the proposal's revision snapshot.
func (c *Client) GenerateFinalTender(ctx context.Context, draftContent string, meta FinalTenderInput, departmentProposals map[string]string) (string, error) {
	var b strings.Builder
	for dept, text := range departmentProposals {
		fmt.Fprintf(&b, "### %s\n\n```markdown\n%s\n```\n\n", dept, text)
	}

	prompt := fmt.Sprintf(finalTenderPrompt,
		orDefault(meta.Organization, "the organization"),
		orDefault(meta.Department, "Department"),
		orDefault(meta.Authority, "the tender authority"),
		draftContent,
		b.String(),
	)

	content, err := c.complete(ctx, c.model, prompt, nil)
	if err != nil {
		return "", err
	}
	return stripMarkdownFences(content), nil
}

func stripJSONFences(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```json") {
		raw = strings.TrimSpace(strings.TrimPrefix(raw, "```json"))
	} else if strings.HasPrefix(raw, "```") {
		raw = strings.TrimSpace(strings.TrimPrefix(raw, "```"))
	}
	if strings.HasSuffix(raw, "```") {
		raw = strings.TrimSpace(strings.TrimSuffix(raw, "```"))
	}
	return raw
}
