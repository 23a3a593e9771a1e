// Package export renders recorded calculations for printing and sharing.
package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"

	"mess/internal/core"
)

var billColumns = []struct {
	title string
	width float64
}{
	{"Member", 38},
	{"Meals", 16},
	{"Meal Cost", 24},
	{"Estab.", 22},
	{"Guest", 20},
	{"Fine", 16},
	{"Total", 24},
	{"Deposits", 24},
	{"Outstanding", 26},
}

// PDF renders a printable bill sheet for one calculation.
func PDF(entry core.HistoryEntry) ([]byte, error) {
	return renderPDF(entry, true)
}

// renderPDF uses the core fonts, so member names are mapped to cp1252.
// Runes outside that code page are replaced rather than emitted as raw
// UTF-8 bytes.
func renderPDF(entry core.HistoryEntry, compress bool) ([]byte, error) {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetCompression(compress)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle("Mess Bill", false)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 14)
	pdf.Cell(0, 8, "Mess Bill")
	pdf.Ln(10)

	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Calculated: %s", entry.CreatedAt.Format(time.RFC1123)))
	pdf.Ln(5)
	o := entry.Overview
	pdf.Cell(0, 6, fmt.Sprintf("Members: %d    Total Meals: %.2f    Meal Rate: %s    Establishment (per head): %s",
		o.TotalMembers, o.TotalMeals, core.FormatRupees(o.MealRate), core.FormatRupees(o.EstablishmentCharge)))
	pdf.Ln(8)

	pdf.SetFont("Arial", "B", 9)
	for _, c := range billColumns {
		pdf.CellFormat(c.width, 6, c.title, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 9)
	for _, r := range entry.Results {
		name := tr(r.Name)
		if r.IsGuestOnly {
			name += " (guest)"
		}
		cells := []string{
			name,
			fmt.Sprintf("%.2f", r.EffectiveMeals),
			core.FormatAmount(r.MealCost),
			core.FormatAmount(r.EstablishmentCharge),
			core.FormatAmount(r.Guest),
			core.FormatAmount(r.Fine),
			core.FormatAmount(r.TotalBill),
			core.FormatAmount(r.Deposits),
			core.FormatAmount(r.Outstanding),
		}
		for i, c := range billColumns {
			align := "R"
			if i == 0 {
				align = "L"
			}
			pdf.CellFormat(c.width, 6, cells[i], "1", 0, align, false, 0, "")
		}
		pdf.Ln(-1)
	}

	pdf.Ln(4)
	pdf.SetFont("Arial", "I", 8)
	pdf.Cell(0, 5, "Negative outstanding means the mess owes the member.")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
