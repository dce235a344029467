package service

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	pdfmodel "github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// ExtractionFailure reports that uploaded bytes could not be turned into
// text: either they are not a readable PDF or no page yielded any text.
// Callers fall back to manual entry; the failure never aborts the process.
type ExtractionFailure struct {
	Reason string
	Err    error
}

func (e *ExtractionFailure) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("text extraction failed: %s: %v", e.Reason, e.Err)
	}
	return "text extraction failed: " + e.Reason
}

func (e *ExtractionFailure) Unwrap() error {
	return e.Err
}

// PDFTextService recovers a plain text blob from PDF bytes. Pages are joined
// with a newline and text fragments within a page with a single space, in
// the order the renderer reports them. No layout structure survives this,
// which is why field extraction downstream is label driven.
type PDFTextService struct {
	maxFileSize int64
}

// NewPDFTextService creates a text service with the given file size limit.
func NewPDFTextService(maxFileSize int64) *PDFTextService {
	return &PDFTextService{maxFileSize: maxFileSize}
}

// Text extracts the concatenated page text from data.
func (s *PDFTextService) Text(data []byte) (string, error) {
	if len(data) == 0 {
		return "", &ExtractionFailure{Reason: "empty document"}
	}
	if s.maxFileSize > 0 && int64(len(data)) > s.maxFileSize {
		return "", &ExtractionFailure{
			Reason: fmt.Sprintf("document is %d bytes, limit is %d", len(data), s.maxFileSize),
		}
	}

	if err := s.validateStructure(data); err != nil {
		return "", &ExtractionFailure{Reason: "not a readable PDF", Err: err}
	}

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", &ExtractionFailure{Reason: "not a readable PDF", Err: err}
	}

	var pages []string
	readable := 0
	for pageNum := 1; pageNum <= reader.NumPage(); pageNum++ {
		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}
		text, err := pageText(page)
		if err != nil {
			// Keep going; a single broken page should not sink the document.
			continue
		}
		readable++
		pages = append(pages, text)
	}

	if readable == 0 {
		return "", &ExtractionFailure{Reason: "no readable pages"}
	}
	return strings.TrimSpace(strings.Join(pages, "\n")), nil
}

// validateStructure runs a relaxed pdfcpu parse over the bytes before any
// text is read, so corrupt uploads fail in one place.
func (s *PDFTextService) validateStructure(data []byte) error {
	conf := pdfmodel.NewDefaultConfiguration()
	conf.ValidationMode = pdfmodel.ValidationRelaxed

	ctx, err := api.ReadContext(bytes.NewReader(data), conf)
	if err != nil {
		return fmt.Errorf("failed to read PDF context: %w", err)
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return fmt.Errorf("failed to resolve page count: %w", err)
	}
	return nil
}

// pageText joins the page's text fragments with single spaces. The renderer
// reports fragments in reading order; recovering from its panics matters
// because ledongthuc/pdf panics on some malformed content streams.
func pageText(page pdf.Page) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("page content panic: %v", r)
		}
	}()

	content := page.Content()
	fragments := make([]string, 0, len(content.Text))
	for _, t := range content.Text {
		fragments = append(fragments, t.S)
	}
	return strings.Join(fragments, " "), nil
}
