package export

import (
	"fmt"
	"io"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/pemira/evote/internal/errors"
	"github.com/pemira/evote/internal/models"
)

// Report carries the letterhead and signature block around the tabulated
// rows.  Stats is optional; when present a participation line is added.
type Report struct {
	Title        string
	Organization string
	GeneratedAt  time.Time
	Stats        *models.AdminStats

	SignatoryName  string
	SignatoryTitle string
}

// WritePDF renders the fixed report layout: letterhead, result table,
// optional participation summary, signature block.
func WritePDF(w io.Writer, rep Report, rows []models.ResultRow) error {
	const op errors.Op = "export.WritePDF"

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetAutoPageBreak(true, 20)
	pdf.AddPage()

	// letterhead
	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 9, rep.Title, "", 1, "C", false, 0, "")
	if rep.Organization != "" {
		pdf.SetFont("Helvetica", "", 11)
		pdf.CellFormat(0, 6, rep.Organization, "", 1, "C", false, 0, "")
	}
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(0, 6, rep.GeneratedAt.Format("2 January 2006 15:04 MST"), "", 1, "C", false, 0, "")
	pdf.Ln(4)
	pdf.SetLineWidth(0.5)
	pdf.Line(10, pdf.GetY(), 200, pdf.GetY())
	pdf.Ln(6)

	// result table
	headers := []string{"No", "Ketua", "Wakil Ketua", "Suara", "Persen"}
	widths := []float64{12, 58, 58, 28, 34}

	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(230, 230, 230)
	for i, h := range headers {
		pdf.CellFormat(widths[i], 8, h, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 10)
	for i, row := range rows {
		pdf.CellFormat(widths[0], 8, fmt.Sprintf("%d", i+1), "1", 0, "C", false, 0, "")
		pdf.CellFormat(widths[1], 8, row.Name, "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[2], 8, row.Vice, "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[3], 8, fmt.Sprintf("%d", row.TotalVotes), "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[4], 8, fmt.Sprintf("%.2f%%", row.Percent), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	if rep.Stats != nil {
		pdf.Ln(6)
		pdf.SetFont("Helvetica", "", 10)
		pdf.CellFormat(0, 6, fmt.Sprintf("Total pemilih terdaftar: %d", rep.Stats.TotalVoters), "", 1, "L", false, 0, "")
		pdf.CellFormat(0, 6, fmt.Sprintf("Suara masuk: %d (partisipasi %.2f%%)", rep.Stats.TotalVotes, rep.Stats.Participation), "", 1, "L", false, 0, "")
	}

	// signature block
	pdf.Ln(16)
	pdf.SetX(130)
	pdf.CellFormat(60, 6, rep.GeneratedAt.Format("2 January 2006"), "", 1, "C", false, 0, "")
	pdf.Ln(18)
	pdf.SetX(130)
	name := rep.SignatoryName
	if name == "" {
		name = "(________________________)"
	}
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(60, 6, name, "", 1, "C", false, 0, "")
	if rep.SignatoryTitle != "" {
		pdf.SetX(130)
		pdf.SetFont("Helvetica", "", 9)
		pdf.CellFormat(60, 5, rep.SignatoryTitle, "", 1, "C", false, 0, "")
	}

	if err := pdf.Output(w); err != nil {
		return errors.E(op, err, "error rendering pdf")
	}

	return nil
}
