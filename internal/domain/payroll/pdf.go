package payroll

import (
	"fmt"
	"io"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// Statement identifies whose history a PDF export belongs to.
type Statement struct {
	EmployeeName  string
	Email         string
	Designation   string
	BankAccountNo string
	GeneratedAt   time.Time
}

// WriteHistoryPDF renders one page of payment history as a PDF statement.
func WriteHistoryPDF(w io.Writer, st Statement, page HistoryPage) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Payment history", false)
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(40, 10, "Payment history")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(0, 8, fmt.Sprintf("Employee: %s", st.EmployeeName))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Email: %s", st.Email))
	pdf.Ln(7)
	if st.Designation != "" {
		pdf.Cell(0, 8, fmt.Sprintf("Designation: %s", st.Designation))
		pdf.Ln(7)
	}
	if st.BankAccountNo != "" {
		pdf.Cell(0, 8, fmt.Sprintf("Bank account: %s", st.BankAccountNo))
		pdf.Ln(7)
	}
	pdf.Cell(0, 8, fmt.Sprintf("Page %d of %d, generated %s", page.CurrentPage, page.TotalPages, st.GeneratedAt.Format("2006-01-02 15:04")))
	pdf.Ln(12)

	widths := []float64{40, 25, 40, 85}
	pdf.SetFont("Helvetica", "B", 11)
	for i, header := range []string{"Month", "Year", "Salary", "Transaction"} {
		pdf.CellFormat(widths[i], 8, header, "1", 0, "L", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 11)
	if len(page.Data) == 0 {
		pdf.CellFormat(widths[0]+widths[1]+widths[2]+widths[3], 8, "No payments recorded", "1", 0, "C", false, 0, "")
		pdf.Ln(-1)
	}
	for _, rec := range page.Data {
		pdf.CellFormat(widths[0], 8, rec.Month, "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[1], 8, rec.Year.String(), "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[2], 8, rec.Salary.StringFixed(2), "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[3], 8, rec.TransactionID, "1", 0, "L", false, 0, "")
		pdf.Ln(-1)
	}

	return pdf.Output(w)
}
