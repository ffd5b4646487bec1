package ai

import (
	"fmt"
	"strings"
	"time"

	"github.com/uniflow/uniflow/internal/files"
)

// DraftRequest carries everything the composer needs for one regeneration
// call. Each call is self-contained: prior instructions are never
// accumulated, only the current document and the single new instruction.
type DraftRequest struct {
	Instruction    string
	CurrentContent string
	Title          string
	Attachments    []files.Attachment

	AuthorName     string
	AuthorRole     string
	Organization   string
	Department     string
	DepartmentDesc string // set when revising on behalf of an assignee's department

	Grounded bool
}

const systemPromptTemplate = `# Problem Drafting Assistant

### Your Role

You are a drafting assistant for %s. Your responsibility is to help
administrators clearly articulate and structure tender and proposal documents
for departmental review.

### How This Works

1. The administrator provides a description of a problem or an update request
2. You generate or refine a complete Draft Proposal in Markdown
3. Each response replaces the entire document
4. The document is iterated until it clearly captures the problem and constraints

### Output Rules (Strict)

- Always respond with a complete Markdown document
- Do not include chat responses, explanations, or commentary; the response itself is the document
- Do not fabricate facts, numbers, or commitments
- The document header must carry these fields exactly:
  - **Organization:** %s
  - **Department:** %s
  - **Prepared By:** %s
  - **Date:** %s`

// maxContentChars caps the embedded current document; anything beyond is
// truncated with a note rather than silently dropped.
const maxContentChars = 200000

// maxAttachmentChars caps each embedded attachment extract.
const maxAttachmentChars = 100000

// ComposePrompt builds the single prompt for a regeneration call. The whole
// existing document is embedded as context (never a diff), and the "Prepared
// By" and "Date" fields are computed at call time, not stored.
func ComposePrompt(req DraftRequest, now time.Time) string {
	preparedBy := req.AuthorName
	if req.AuthorRole != "" {
		preparedBy = fmt.Sprintf("%s, %s", req.AuthorName, capitalize(req.AuthorRole))
	}
	if preparedBy == "" {
		preparedBy = "[Author Name]"
	}

	var b strings.Builder
	fmt.Fprintf(&b, systemPromptTemplate,
		orDefault(req.Organization, "the organization"),
		orDefault(req.Organization, ""),
		orDefault(req.Department, ""),
		preparedBy,
		now.Format("02 January 2006, 03:04 PM"),
	)

	if req.DepartmentDesc != "" {
		b.WriteString("\n\n---\n\n## Department Context\n")
		fmt.Fprintf(&b, "You are revising this proposal for the **%s**.\n", orDefault(req.Department, "Department"))
		fmt.Fprintf(&b, "**Department Description:** %s\n", req.DepartmentDesc)
		b.WriteString("Consider this department's perspective and responsibilities when making revisions.")
	}

	if strings.TrimSpace(req.CurrentContent) != "" {
		content := req.CurrentContent
		if len(content) > maxContentChars {
			content = content[:maxContentChars] + "\n\n[... content truncated ...]"
		}
		b.WriteString("\n\n---\n\n## Current Proposal (to be updated)\n")
		b.WriteString("The following is the current draft. Update it based on the user's instruction below.\n")
		fmt.Fprintf(&b, "\n```markdown\n%s\n```\n", content)
	}

	if len(req.Attachments) > 0 {
		b.WriteString("\n---\n\n## Reference Documents\n")
		b.WriteString("The user has provided the following reference documents. Analyze them and incorporate relevant data, specifications and requirements into the proposal.\n")
		for _, att := range req.Attachments {
			if att.ExtractedText == "" {
				continue
			}
			text := att.ExtractedText
			if len(text) > maxAttachmentChars {
				text = text[:maxAttachmentChars] + "\n\n[... file content truncated ...]"
			}
			fmt.Fprintf(&b, "\n### File: %s\nContent Type: %s\n```\n%s\n```\n", att.Filename, att.ContentType, text)
		}
	}

	b.WriteString("\n---\n\n## User Instruction\n")
	b.WriteString(req.Instruction)

	if req.Title != "" {
		fmt.Fprintf(&b, "\n\n(Proposal Title: %s)", req.Title)
	}

	b.WriteString("\n\n---\n\n**Generate the complete, updated Draft Proposal in Markdown format. Output ONLY the proposal document, no other text.**")

	return b.String()
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
