// Package compost implements the composting pipeline: uploaded documents
// are extracted to text, sectioned into candidate components, scored and
// tagged by heuristics, and optionally re-analyzed by the LLM.
package compost

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"html"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/ledongthuc/pdf"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"go.uber.org/zap"

	"backend-roomreq/internal/models"
)

const (
	MimePDF      = "application/pdf"
	MimeDOCX     = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MimeText     = "text/plain"
	MimeMarkdown = "text/markdown"
)

// Processor turns an uploaded file into a ProcessedFile.
type Processor struct {
	sanitize *bluemonday.Policy
	log      *zap.SugaredLogger
}

func NewProcessor(log *zap.SugaredLogger) *Processor {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Processor{sanitize: bluemonday.StrictPolicy(), log: log}
}

// CorrectMimeType fixes the MIME type for uploads browsers tagged as
// application/octet-stream, based on the file extension.
func CorrectMimeType(originalName, mimeType string) string {
	if mimeType != "application/octet-stream" {
		return mimeType
	}
	switch strings.ToLower(filepath.Ext(originalName)) {
	case ".md", ".markdown":
		return MimeMarkdown
	case ".txt":
		return MimeText
	case ".pdf":
		return MimePDF
	case ".docx":
		return MimeDOCX
	}
	return mimeType
}

// ExtractFile reads the file at path and extracts its text content. The
// caller removes the source file afterwards via Cleanup.
func (p *Processor) ExtractFile(path, originalName, mimeType string) (models.ProcessedFile, error) {
	info, err := os.Stat(path)
	if err != nil {
		return models.ProcessedFile{}, fmt.Errorf("stat %s: %w", originalName, err)
	}

	corrected := CorrectMimeType(originalName, mimeType)

	var content string
	switch corrected {
	case MimePDF:
		content, err = extractPDF(path)
	case MimeDOCX:
		content, err = extractDOCX(path)
	case MimeMarkdown, "text/x-markdown":
		content, err = extractText(path)
	case MimeText:
		content, err = extractText(path)
	case "image/png", "image/jpeg", "image/gif":
		content = imagePlaceholder(originalName, info.Size())
	default:
		return models.ProcessedFile{}, fmt.Errorf("unsupported file type: %s (%s)", mimeType, originalName)
	}
	if err != nil {
		return models.ProcessedFile{}, fmt.Errorf("failed to process file %s: %w", originalName, err)
	}

	return models.ProcessedFile{
		ID:           "file_" + uuid.NewString(),
		OriginalName: originalName,
		MimeType:     corrected,
		Size:         info.Size(),
		Content:      content,
		WordCount:    p.countWords(corrected, content),
		ExtractedAt:  time.Now(),
	}, nil
}

// Cleanup deletes the uploaded source file. Failures are logged only.
func (p *Processor) Cleanup(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		p.log.Warnw("error cleaning up file", "path", path, "error", err)
	}
}

// countWords counts words on a plain-text view of the content. Markdown is
// rendered and stripped first so heading markers and emphasis runes do not
// count as words; the stored content keeps the raw markdown for sectioning.
func (p *Processor) countWords(mimeType, content string) int {
	text := content
	if mimeType == MimeMarkdown || mimeType == "text/x-markdown" {
		if plain, err := p.markdownToPlain(content); err == nil {
			text = plain
		}
	}
	return len(strings.Fields(text))
}

func (p *Processor) markdownToPlain(src string) (string, error) {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(src), &buf); err != nil {
		return "", err
	}
	return html.UnescapeString(p.sanitize.Sanitize(buf.String())), nil
}

func extractText(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func extractPDF(path string) (string, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	plain, err := reader.GetPlainText()
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(plain); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// extractDOCX pulls the text nodes out of word/document.xml. A .docx is a
// zip of XML parts; paragraphs become newlines.
func extractDOCX(path string) (string, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return "", err
	}
	defer zr.Close()

	for _, f := range zr.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", err
		}
		defer rc.Close()
		return docxText(rc)
	}
	return "", fmt.Errorf("word/document.xml not found in %s", filepath.Base(path))
}

func docxText(r io.Reader) (string, error) {
	dec := xml.NewDecoder(r)
	var b strings.Builder
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
		switch t := tok.(type) {
		case xml.CharData:
			b.Write(t)
		case xml.EndElement:
			if t.Name.Local == "p" {
				b.WriteByte('\n')
			}
		}
	}
	return b.String(), nil
}

func imagePlaceholder(originalName string, size int64) string {
	return fmt.Sprintf(`Image File Analysis: %s

File Type: Image (%s)
Size: %s
Uploaded: %s

This is an image file that was uploaded to the composting system.
The image likely contains visual elements such as:
- User interface screenshots
- Design mockups
- Diagrams or flowcharts
- Code screenshots
- Documentation visuals

To extract meaningful components from this image, AI vision analysis would be needed to:
1. Identify UI components and patterns
2. Extract any visible text or code
3. Analyze design elements and layouts
4. Suggest reusable visual patterns

Note: Full image analysis requires AI vision capabilities which can be implemented using OpenRouter's vision models.`,
		originalName,
		strings.ToLower(filepath.Ext(originalName)),
		humanize.Bytes(uint64(size)),
		time.Now().Format(time.RFC3339))
}
