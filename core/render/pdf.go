// Package render — PDF renderer.
// Lays the block list out as a styled PDF using gofpdf: headings at
// variable font sizes, paragraphs, lists, quotes and comments. Media blocks
// are written as labelled links rather than embedded images.
package render

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/jung-kurt/gofpdf"
	"github.com/kalhel/postkeep/core"
)

// PDFRenderer renders a post as a PDF document.
type PDFRenderer struct{}

// NewPDFRenderer creates a PDFRenderer.
func NewPDFRenderer() *PDFRenderer {
	return &PDFRenderer{}
}

// pdfWriter pairs the document with a UTF-8 to cp1252 translator for the
// built-in fonts.
type pdfWriter struct {
	pdf *gofpdf.Fpdf
	tr  func(string) string
}

// Render converts the result into PDF bytes.
func (r *PDFRenderer) Render(result core.ExtractionResult, postURL string) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()
	w := &pdfWriter{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor("")}

	if title := Title(result.Blocks); title != "" {
		pdf.SetFont("Helvetica", "B", 18)
		w.cell(8, title)
		pdf.Ln(4)
	}

	pdf.SetFont("Helvetica", "I", 9)
	pdf.SetTextColor(100, 100, 100)
	if result.Metadata.Name != "" {
		w.cell(5, "By "+result.Metadata.Name+" "+result.Metadata.Published)
	}
	if postURL != "" {
		w.cell(5, "Source: "+postURL)
	}
	pdf.SetTextColor(0, 0, 0)
	pdf.Ln(6)

	for _, b := range result.Blocks {
		w.block(b)
	}

	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("building PDF: %w", err)
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("writing PDF: %w", err)
	}
	return buf.Bytes(), nil
}

// Extension returns the file extension for PDF output.
func (r *PDFRenderer) Extension() string {
	return ".pdf"
}

func (w *pdfWriter) cell(h float64, text string) {
	w.pdf.MultiCell(0, h, w.tr(text), "", "L", false)
}

func (w *pdfWriter) block(b core.Block) {
	pdf := w.pdf
	switch v := b.(type) {
	case *core.Heading:
		w.heading(StripInline(v.Text), v.Level)
	case *core.Paragraph, *core.PlainText:
		pdf.SetFont("Helvetica", "", 10)
		w.cell(5, StripInline(b.(core.Texter).BlockText()))
		pdf.Ln(2)
	case *core.List:
		pdf.SetFont("Helvetica", "", 10)
		for i, item := range v.Items {
			marker := "- "
			if v.Ordered {
				marker = strconv.Itoa(i+1) + ". "
			}
			w.cell(5, marker+StripInline(item))
		}
		pdf.Ln(2)
	case *core.Quote:
		pdf.SetFont("Helvetica", "I", 10)
		pdf.SetLeftMargin(20)
		w.cell(5, StripInline(v.Text))
		pdf.SetLeftMargin(10)
		pdf.Ln(2)
	case *core.Link:
		pdf.SetFont("Helvetica", "U", 10)
		pdf.SetTextColor(30, 60, 160)
		text := v.Text
		if text == "" {
			text = v.URL
		}
		w.cell(5, text+" <"+v.URL+">")
		pdf.SetTextColor(0, 0, 0)
		pdf.SetFont("Helvetica", "", 10)
	case *core.Image, *core.Video, *core.Audio, *core.Embed:
		pdf.SetFont("Helvetica", "I", 9)
		pdf.SetTextColor(100, 100, 100)
		w.cell(5, mediaLabel(b))
		pdf.SetTextColor(0, 0, 0)
		pdf.Ln(1)
	case *core.CommentsHeader:
		w.heading(fmt.Sprintf("%s (%d)", v.Text, v.Count), 2)
	case *core.Comment:
		indent := 10 + 6*float64(min(v.Depth, 5))
		pdf.SetLeftMargin(indent)
		pdf.SetX(indent)
		pdf.SetFont("Helvetica", "B", 9)
		w.cell(4.5, v.Author)
		pdf.SetFont("Helvetica", "", 9)
		w.cell(4.5, StripInline(v.Text))
		pdf.SetLeftMargin(10)
		pdf.Ln(2)
	}
}

// heading sets the font size based on heading level and writes text.
func (w *pdfWriter) heading(text string, level int) {
	sizes := map[int]float64{1: 18, 2: 15, 3: 13}
	size, ok := sizes[level]
	if !ok {
		size = 12
	}
	w.pdf.Ln(4)
	w.pdf.SetFont("Helvetica", "B", size)
	w.cell(size*0.6, text)
	w.pdf.Ln(2)
}

func mediaLabel(b core.Block) string {
	switch v := b.(type) {
	case *core.Image:
		if v.Alt != "" {
			return "[Image: " + v.Alt + "] " + v.URL
		}
		return "[Image] " + v.URL
	case *core.Video:
		return "[Video] " + v.URL
	case *core.Audio:
		label := "[Audio"
		if v.Title != "" {
			label += ": " + v.Title
		}
		if v.Duration != "" {
			label += ", " + v.Duration
		}
		return label + "] " + v.URL
	case *core.Embed:
		return "[" + providerLabel(v.Provider) + "] " + strings.TrimSpace(v.URL)
	}
	return ""
}
