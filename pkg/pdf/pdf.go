// Package pdf renders prescriptions and clinical notes as PDF documents
// for download and email delivery.
package pdf

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jung-kurt/gofpdf"

	"github.com/hospitaldigital/hospital-api/pkg/model"
)

// Renderer produces PDF documents branded with the hospital name.
type Renderer struct {
	hospitalName string
	outputPath   string
}

// NewRenderer creates a Renderer. Rendered files are written under
// outputPath when persisted to disk.
func NewRenderer(hospitalName, outputPath string) *Renderer {
	return &Renderer{hospitalName: hospitalName, outputPath: outputPath}
}

// Prescription renders a prescription with its items.
func (r *Renderer) Prescription(p *model.Prescription) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 10, 10)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 14)
	pdf.SetTextColor(0, 51, 102)
	pdf.CellFormat(0, 10, r.hospitalName, "", 1, "C", false, 0, "")

	pdf.SetFont("Arial", "", 10)
	pdf.SetTextColor(0, 0, 0)
	pdf.CellFormat(0, 7, "Medical Prescription", "", 1, "C", false, 0, "")

	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(0, 10, "Prescription "+p.Number, "1", 1, "C", false, 0, "")

	addDetail(pdf, "Patient", p.PatientName, true)
	addDetail(pdf, "Document", p.PatientDocument, true)
	addDetail(pdf, "Prescriber", p.PrescriberName, true)
	addDetail(pdf, "License", p.PrescriberLicense, true)
	addDetail(pdf, "Date", p.CreatedAt.Format("2006-01-02"), true)
	addDetail(pdf, "State", p.StateDescription(), true)
	if p.ExpiresAt != nil {
		addDetail(pdf, "Valid until", p.ExpiresAt.Format("2006-01-02"), true)
	}
	if p.Diagnosis != "" {
		addDetail(pdf, "Diagnosis", p.Diagnosis, false)
	}

	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(0, 10, "Medications", "1", 1, "C", false, 0, "")
	for _, item := range p.Items {
		addDetail(pdf, item.MedicationName,
			fmt.Sprintf("%d %s", item.Quantity, item.Unit), false)
		if item.Dosage != "" {
			addDetail(pdf, "  Dosage", item.Dosage, false)
		}
		if item.Duration != "" {
			addDetail(pdf, "  Duration", item.Duration, false)
		}
	}

	if p.Instructions != "" {
		pdf.SetFont("Arial", "", 10)
		pdf.MultiCell(0, 5, "Instructions: "+p.Instructions, "", "L", false)
	}

	if p.Signed {
		pdf.SetY(pdf.GetY() + 12)
		pdf.SetFont("Arial", "", 9)
		pdf.CellFormat(0, 6, "Digitally signed "+p.SignedAt.Format("2006-01-02 15:04"), "", 1, "R", false, 0, "")
		pdf.CellFormat(0, 6, "Signature "+p.SignatureHash, "", 1, "R", false, 0, "")
	}

	pdf.SetY(pdf.GetY() + 8)
	pdf.SetFont("Arial", "", 9)
	pdf.CellFormat(0, 10, "This is a computer generated document", "", 1, "R", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Note renders a clinical note.
func (r *Renderer) Note(n *model.Note) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 10, 10)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 14)
	pdf.SetTextColor(0, 51, 102)
	pdf.CellFormat(0, 10, r.hospitalName, "", 1, "C", false, 0, "")

	pdf.SetFont("Arial", "", 10)
	pdf.SetTextColor(0, 0, 0)
	pdf.CellFormat(0, 7, n.TypeDescription()+" Note", "", 1, "C", false, 0, "")

	addDetail(pdf, "Patient", n.PatientName, true)
	addDetail(pdf, "Author", n.AuthorName, true)
	if n.AuthorSpecialty != "" {
		addDetail(pdf, "Specialty", n.AuthorSpecialty, true)
	}
	addDetail(pdf, "Date", n.CreatedAt.Format("2006-01-02 15:04"), true)
	addDetail(pdf, "State", n.State, true)
	addDetail(pdf, "Version", fmt.Sprintf("%d", n.Version), true)

	pdf.SetFont("Arial", "", 10)
	pdf.MultiCell(0, 5, n.Body, "", "L", false)

	if n.Observations != "" {
		pdf.SetY(pdf.GetY() + 4)
		pdf.MultiCell(0, 5, "Observations: "+n.Observations, "", "L", false)
	}

	if n.Signed && n.SignedAt != nil {
		pdf.SetY(pdf.GetY() + 12)
		pdf.SetFont("Arial", "", 9)
		pdf.CellFormat(0, 6, "Digitally signed "+n.SignedAt.Format("2006-01-02 15:04"), "", 1, "R", false, 0, "")
		pdf.CellFormat(0, 6, "Signature "+n.SignatureHash, "", 1, "R", false, 0, "")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Save writes rendered PDF bytes under the configured output path and
// returns the full file path.
func (r *Renderer) Save(name string, data []byte) (string, error) {
	if err := os.MkdirAll(r.outputPath, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(r.outputPath, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// addDetail adds a label/value line to the PDF
func addDetail(pdf *gofpdf.Fpdf, label, value string, isHeader bool) {
	if isHeader {
		pdf.SetFont("Arial", "B", 11)
		pdf.SetFillColor(255, 255, 255)
	} else {
		pdf.SetFont("Arial", "", 10)
		pdf.SetFillColor(240, 240, 240)
	}
	pdf.CellFormat(45, 8, label, "1", 0, "", false, 0, "")
	pdf.CellFormat(0, 8, value, "1", 1, "", false, 0, "")
}
