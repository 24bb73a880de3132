package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// RunInfo is the metadata printed at the top of the PDF digest.
type RunInfo struct {
	Title       string
	GeneratedAt time.Time
	Total       int
	Ready       int
	Errors      int
	NoHTTPS     int
}

// PDFBytes renders a one-document digest of the run: metadata, grade
// distribution and a per-host line for every summary row.
func PDFBytes(rows []Summary, info RunInfo) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	title := info.Title
	if title == "" {
		title = "TLS Assessment Report"
	}

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 10, title, "", 1, "C", false, 0, "")
	pdf.Ln(5)

	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 6, fmt.Sprintf("Generated: %s", info.GeneratedAt.UTC().Format(time.RFC3339)), "", 1, "", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("Hosts: %d | Ready: %d | Errors: %d | No HTTPS: %d",
		info.Total, info.Ready, info.Errors, info.NoHTTPS), "", 1, "", false, 0, "")
	pdf.Ln(5)

	// Grade distribution
	grades := gradeCounts(rows)
	if len(grades) > 0 {
		pdf.SetFont("Arial", "B", 12)
		pdf.CellFormat(0, 8, "Grade Distribution", "", 1, "", false, 0, "")
		pdf.SetFont("Arial", "", 10)
		for _, g := range grades {
			pdf.CellFormat(0, 6, fmt.Sprintf("  %s: %d", g.grade, g.count), "", 1, "", false, 0, "")
		}
		pdf.Ln(5)
	}

	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(0, 8, "Hosts", "", 1, "", false, 0, "")
	pdf.Ln(1)

	for _, row := range rows {
		if pdf.GetY() > 250 {
			pdf.AddPage()
		}

		pdf.SetFont("Arial", "B", 10)
		pdf.SetFillColor(240, 240, 240)
		pdf.CellFormat(0, 7, fmt.Sprintf("%s - %s (%s)", row.Host, row.Grade, row.Status), "", 1, "", true, 0, "")

		pdf.SetFont("Arial", "", 9)
		pdf.CellFormat(0, 5, fmt.Sprintf("IP: %s | Protocols: %s", row.IP, row.Protocols), "", 1, "", false, 0, "")
		pdf.CellFormat(0, 5, fmt.Sprintf("Cert: %s (expires %s, %s %s)",
			row.CertSubject, row.ValidTo, row.KeyAlgorithm, row.KeySize), "", 1, "", false, 0, "")
		if row.StrongestCipher != Placeholder {
			pdf.MultiCell(0, 5, fmt.Sprintf("Ciphers: strongest %s, weakest %s",
				row.StrongestCipher, row.WeakestCipher), "", "", false)
		}
		pdf.Ln(2)
	}

	var out strings.Builder
	if err := pdf.Output(&out); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return []byte(out.String()), nil
}

type gradeCount struct {
	grade string
	count int
}

func gradeCounts(rows []Summary) []gradeCount {
	counts := make(map[string]int)
	for _, row := range rows {
		counts[row.Grade]++
	}
	out := make([]gradeCount, 0, len(counts))
	for grade, count := range counts {
		out = append(out, gradeCount{grade: grade, count: count})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].grade < out[j].grade })
	return out
}
