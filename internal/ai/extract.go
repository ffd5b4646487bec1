package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// TenderFields are the values pulled from a final tender document when it is
// published.
type TenderFields struct {
	Title string `json:"title"`
	Price int64  `json:"price"`
}

const extractFieldsPrompt = `# Tender Field Extractor

You are extracting key fields from a tender document to store in a database.

## Tender Document:

` + "```markdown\n%s\n```" + `

## Required Fields to Extract:

1. **title**: the main title of the tender, concise but descriptive (max 500 characters)
2. **price**: the estimated tender value as an INTEGER (no decimals, no currency symbols); 0 if no price is mentioned

Return ONLY a valid JSON object of the form {"title": "...", "price": 0} with no explanation.`

// ExtractTenderFields asks the model for a title and integer price. On any
// parse failure it falls back to the first markdown heading and price 0
// rather than failing the publish.
func (c *Client) ExtractTenderFields(ctx context.Context, tenderContent string) (TenderFields, error) {
	raw, err := c.completeJSON(ctx, fmt.Sprintf(extractFieldsPrompt, tenderContent))
	if err != nil {
		return TenderFields{}, err
	}

	fields, perr := parseTenderFields(raw)
	if perr != nil {
		return FallbackTenderFields(tenderContent, ""), nil
	}
	return fields, nil
}

func parseTenderFields(raw string) (TenderFields, error) {
	var decoded struct {
		Title string          `json:"title"`
		Price json.RawMessage `json:"price"`
	}
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return TenderFields{}, err
	}

	fields := TenderFields{Title: decoded.Title}
	if len(fields.Title) > 500 {
		fields.Title = fields.Title[:500]
	}

	// Price may come back as a number or a formatted string.
	var n json.Number
	if err := json.Unmarshal(decoded.Price, &n); err == nil {
		if f, ferr := n.Float64(); ferr == nil {
			fields.Price = int64(f)
		}
	} else {
		var s string
		if err := json.Unmarshal(decoded.Price, &s); err == nil {
			fields.Price = digitsToInt(s)
		}
	}

	return fields, nil
}

// FallbackTenderFields derives a title from the first markdown heading when
// extraction is unavailable or unparseable.
func FallbackTenderFields(tenderContent, defaultTitle string) TenderFields {
	title := defaultTitle
	for _, line := range strings.Split(tenderContent, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "#") {
			title = strings.TrimSpace(strings.TrimLeft(line, "#"))
		}
		break
	}
	if title == "" {
		title = "Untitled Tender"
	}
	if len(title) > 500 {
		title = title[:500]
	}
	return TenderFields{Title: title, Price: 0}
}

func digitsToInt(s string) int64 {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return 0
	}
	n, err := strconv.ParseInt(b.String(), 10, 64)
	if err != nil {
		return 0
	}
	return n
}
