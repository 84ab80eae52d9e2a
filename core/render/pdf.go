package render

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"

	"github.com/gaurav-prasanna/subdigest/core"
)

// PDFRenderer renders the digest as a printable PDF document.
type PDFRenderer struct{}

// NewPDFRenderer creates a PDFRenderer.
func NewPDFRenderer() *PDFRenderer {
	return &PDFRenderer{}
}

// Render writes one section per post: title, source line, content.
func (r *PDFRenderer) Render(d core.Digest) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()
	// Core fonts are cp1252; translate UTF-8 input.
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Helvetica", "B", 18)
	pdf.MultiCell(0, 8, "Reddit Top Posts", "", "L", false)
	pdf.SetFont("Helvetica", "I", 9)
	pdf.SetTextColor(100, 100, 100)
	pdf.MultiCell(0, 5, "Generated "+d.GeneratedAt.Format("Jan 2, 2006 15:04 MST"), "", "L", false)
	pdf.SetTextColor(0, 0, 0)
	pdf.Ln(6)

	if len(d.Posts) == 0 {
		pdf.SetFont("Helvetica", "", 10)
		pdf.MultiCell(0, 5, "No posts today.", "", "L", false)
	}

	for _, post := range d.Posts {
		pdf.SetFont("Helvetica", "B", 15)
		pdf.MultiCell(0, 9, tr(post.Title), "", "L", false)

		pdf.SetFont("Helvetica", "I", 9)
		pdf.SetTextColor(100, 100, 100)
		source := fmt.Sprintf("%d points", post.Score)
		if post.Subreddit != "" {
			source = fmt.Sprintf("r/%s - %s", post.Subreddit, source)
		}
		pdf.MultiCell(0, 5, tr(source+" - "+post.URL), "", "L", false)
		pdf.SetTextColor(0, 0, 0)
		pdf.Ln(2)

		if IsAbsoluteURL(post.Content) {
			pdf.SetFont("Helvetica", "U", 10)
			pdf.SetTextColor(255, 69, 0)
			pdf.WriteLinkString(5, tr(post.Content), post.Content)
			pdf.SetTextColor(0, 0, 0)
			pdf.Ln(5)
		} else {
			pdf.SetFont("Helvetica", "", 10)
			pdf.MultiCell(0, 5, tr(post.Content), "", "L", false)
		}
		pdf.Ln(6)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Extension returns the file extension for PDF output.
func (r *PDFRenderer) Extension() string {
	return ".pdf"
}
