package services

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PageText is one page's embedded text, 1-based.
type PageText struct {
	Number int
	Text   string
}

// PDFService reads embedded text layers and rasterizes pages for OCR.
// Text-layer extraction is pure Go; rasterization shells out to poppler's
// pdftoppm and degrades to Unavailable when the binary is missing.
type PDFService struct {
	renderDPI int
}

// NewPDFService creates a PDF adapter rendering at the given DPI.
func NewPDFService() *PDFService {
	return &PDFService{renderDPI: 200}
}

// ExtractTextLayer pulls the embedded text of every page, in page order.
// Pages without text come back with an empty Text so callers can tell "no
// layer at all" from "some pages scanned". Errors are always *AdapterError.
func (s *PDFService) ExtractTextLayer(ctx context.Context, pdfBytes []byte) ([]PageText, error) {
	reader, err := pdf.NewReader(bytes.NewReader(pdfBytes), int64(len(pdfBytes)))
	if err != nil {
		return nil, EngineFailure("failed to parse PDF: %v", err)
	}

	pages := make([]PageText, 0, reader.NumPage())
	for i := 1; i <= reader.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, EngineFailure("pdf extraction canceled: %v", err)
		}

		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, PageText{Number: i})
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			// A single malformed page should not void the others.
			pages = append(pages, PageText{Number: i})
			continue
		}
		pages = append(pages, PageText{Number: i, Text: strings.TrimSpace(text)})
	}

	return pages, nil
}

// RenderPages rasterizes every page to PNG at the configured DPI, in page
// order. Errors are always *AdapterError; a missing pdftoppm binary yields
// Unavailable.
func (s *PDFService) RenderPages(ctx context.Context, pdfBytes []byte) ([][]byte, error) {
	binary, err := exec.LookPath("pdftoppm")
	if err != nil {
		return nil, Unavailable("pdftoppm not found in PATH")
	}

	workDir, err := os.MkdirTemp("", "voxaccess-pdf-*")
	if err != nil {
		return nil, EngineFailure("failed to create work dir: %v", err)
	}
	defer os.RemoveAll(workDir)

	pdfPath := filepath.Join(workDir, "input.pdf")
	if err := os.WriteFile(pdfPath, pdfBytes, 0o600); err != nil {
		return nil, EngineFailure("failed to write PDF: %v", err)
	}

	prefix := filepath.Join(workDir, "page")
	cmd := exec.CommandContext(ctx, binary, "-png", "-r", fmt.Sprint(s.renderDPI), pdfPath, prefix)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, EngineFailure("pdftoppm failed: %v: %s", err, strings.TrimSpace(stderr.String()))
	}

	entries, err := os.ReadDir(workDir)
	if err != nil {
		return nil, EngineFailure("failed to list rendered pages: %v", err)
	}

	var names []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, "page") && strings.HasSuffix(name, ".png") {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return nil, EngineFailure("pdftoppm produced no pages")
	}
	// pdftoppm zero-pads page numbers, so lexical order is page order.
	sort.Strings(names)

	pages := make([][]byte, 0, len(names))
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(workDir, name))
		if err != nil {
			return nil, EngineFailure("failed to read rendered page %s: %v", name, err)
		}
		pages = append(pages, data)
	}

	return pages, nil
}
