// Package files extracts text from uploaded attachments before they are
// forwarded to the model. Extraction is synchronous within the request;
// large files increase latency but are never offloaded.
package files

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/fumiama/go-docx"
	"github.com/ledongthuc/pdf"
	"github.com/xuri/excelize/v2"
)

// MaxChunkSize caps extracted text per attachment to keep the composed
// prompt inside the provider's context window.
const MaxChunkSize = 50000

// Attachment carries one processed upload.
type Attachment struct {
	Filename      string
	ContentType   string
	Size          int
	Base64        string // raw content, used for the vision path on images
	ExtractedText string
}

// IsImage reports whether the attachment goes through the vision path.
func (a Attachment) IsImage() bool {
	return strings.HasPrefix(a.ContentType, "image/")
}

// UnsupportedTypeError names the offending upload so the API can surface a
// validation error instead of a generic failure.
type UnsupportedTypeError struct {
	Filename    string
	ContentType string
}

func (e *UnsupportedTypeError) Error() string {
	ext := filepath.Ext(e.Filename)
	if ext == "" {
		ext = e.ContentType
	}
	return fmt.Sprintf("unsupported file type %q", ext)
}

const (
	mimePDF  = "application/pdf"
	mimeDocx = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	mimeDoc  = "application/msword"
	mimeXlsx = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	mimeXls  = "application/vnd.ms-excel"
)

// Supported reports whether a content type can be processed.
func Supported(contentType string) bool {
	switch contentType {
	case mimePDF, mimeDocx, mimeDoc, mimeXlsx, mimeXls:
		return true
	}
	return strings.HasPrefix(contentType, "image/")
}

// Process validates and extracts one upload. The returned attachment holds
// the base64 payload plus extracted text for document formats; images pass
// through untouched for multimodal analysis.
func Process(filename string, content []byte, contentType string) (Attachment, error) {
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = typeFromExtension(filename, contentType)
	}
	if !Supported(contentType) {
		return Attachment{}, &UnsupportedTypeError{Filename: filename, ContentType: contentType}
	}

	att := Attachment{
		Filename:    filename,
		ContentType: contentType,
		Size:        len(content),
		Base64:      base64.StdEncoding.EncodeToString(content),
	}

	var (
		text string
		err  error
	)
	switch {
	case contentType == mimePDF:
		text, err = extractPDF(content)
	case contentType == mimeDocx || contentType == mimeDoc:
		text, err = extractDOCX(content)
	case contentType == mimeXlsx || contentType == mimeXls:
		text, err = extractXLSX(content)
	case strings.HasPrefix(contentType, "image/"):
		text = fmt.Sprintf("[Image: %s]", filename)
	}
	if err != nil {
		return Attachment{}, fmt.Errorf("extracting %s: %w", filename, err)
	}

	if len(text) > MaxChunkSize {
		text = chunk(text, contentType)
	}
	att.ExtractedText = text

	return att, nil
}

func typeFromExtension(filename, fallback string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return mimePDF
	case ".docx":
		return mimeDocx
	case ".doc":
		return mimeDoc
	case ".xlsx":
		return mimeXlsx
	case ".xls":
		return mimeXls
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	}
	return fallback
}

func extractPDF(content []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("opening pdf: %w", err)
	}

	var parts []string
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			parts = append(parts, fmt.Sprintf("[Error extracting page %d: %v]", i, err))
			continue
		}
		if strings.TrimSpace(text) != "" {
			parts = append(parts, fmt.Sprintf("--- Page %d ---\n%s", i, text))
		}
	}

	return strings.Join(parts, "\n\n"), nil
}

func extractDOCX(content []byte) (string, error) {
	doc, err := docx.Parse(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("opening docx: %w", err)
	}

	var parts []string
	for _, item := range doc.Document.Body.Items {
		switch v := item.(type) {
		case *docx.Paragraph:
			if s := strings.TrimSpace(v.String()); s != "" {
				parts = append(parts, s)
			}
		case *docx.Table:
			if s := strings.TrimSpace(v.String()); s != "" {
				parts = append(parts, s)
			}
		}
	}

	return strings.Join(parts, "\n\n"), nil
}

func extractXLSX(content []byte) (string, error) {
	wb, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return "", fmt.Errorf("opening workbook: %w", err)
	}
	defer wb.Close()

	var parts []string
	for _, sheet := range wb.GetSheetList() {
		rows, err := wb.GetRows(sheet)
		if err != nil {
			return "", fmt.Errorf("reading sheet %s: %w", sheet, err)
		}

		var lines []string
		for _, row := range rows {
			joined := strings.TrimSpace(strings.Join(row, " | "))
			if joined != "" {
				lines = append(lines, joined)
			}
		}
		parts = append(parts, fmt.Sprintf("=== Sheet: %s ===\n%s", sheet, strings.Join(lines, "\n")))
	}

	return strings.Join(parts, "\n\n"), nil
}

// chunk keeps the first MaxChunkSize-worth of paragraphs and notes the
// truncation so the model knows the document continues.
func chunk(text, contentType string) string {
	paragraphs := strings.Split(text, "\n\n")

	var kept []string
	size := 0
	for _, p := range paragraphs {
		if size+len(p) > MaxChunkSize && len(kept) > 0 {
			break
		}
		if len(p) > MaxChunkSize {
			p = p[:MaxChunkSize]
		}
		kept = append(kept, p)
		size += len(p)
	}

	return fmt.Sprintf("%s\n\n[Note: this %s file is very large, showing the first ~%d characters]",
		strings.Join(kept, "\n\n"), contentType, MaxChunkSize)
}
