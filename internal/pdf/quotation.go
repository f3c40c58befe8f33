// Package pdf renders quotation documents.
package pdf

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"

	"github.com/bma-crm/commhub/internal/models"
)

// CompanyInfo is the issuing company block printed on every quotation.
// Quotation-level overrides from the record take precedence.
type CompanyInfo struct {
	Name    string
	Address string
	Phone   string
	Email   string
	TaxID   string
}

// DefaultCompany is used when the quotation carries no company override.
var DefaultCompany = CompanyInfo{
	Name:    "BMA Social Co., Ltd.",
	Address: "123 Business Tower, Bangkok 10110",
	Phone:   "+66 2 123 4567",
	Email:   "info@bmasocial.com",
	TaxID:   "0123456789012",
}

// Generator renders quotations into PDF bytes.
type Generator struct {
	company CompanyInfo
}

func NewGenerator(company CompanyInfo) *Generator {
	if company.Name == "" {
		company = DefaultCompany
	}
	return &Generator{company: company}
}

// RenderQuotation produces the quotation document sent to customers. Layout:
// company header, quote metadata, customer block, line item table, totals,
// then payment terms and notes.
func (g *Generator) RenderQuotation(quotation *models.Quotation, customer *models.Customer) ([]byte, error) {
	doc := gofpdf.New("P", "mm", "A4", "")
	doc.SetMargins(20, 20, 20)
	doc.AddPage()

	company := g.company
	if quotation.CompanyName.Valid && quotation.CompanyName.String != "" {
		company.Name = quotation.CompanyName.String
	}
	if quotation.CompanyAddress.Valid {
		company.Address = quotation.CompanyAddress.String
	}
	if quotation.CompanyTaxID.Valid {
		company.TaxID = quotation.CompanyTaxID.String
	}

	// Company header, right aligned.
	doc.SetFont("Helvetica", "B", 11)
	doc.CellFormat(0, 5, company.Name, "", 1, "R", false, 0, "")
	doc.SetFont("Helvetica", "", 9)
	doc.SetTextColor(80, 80, 80)
	doc.CellFormat(0, 4, company.Address, "", 1, "R", false, 0, "")
	if company.Phone != "" {
		doc.CellFormat(0, 4, "Tel: "+company.Phone, "", 1, "R", false, 0, "")
	}
	if company.Email != "" {
		doc.CellFormat(0, 4, "Email: "+company.Email, "", 1, "R", false, 0, "")
	}
	if company.TaxID != "" {
		doc.CellFormat(0, 4, "Tax ID: "+company.TaxID, "", 1, "R", false, 0, "")
	}
	doc.Ln(8)

	doc.SetTextColor(25, 118, 210)
	doc.SetFont("Helvetica", "B", 22)
	doc.CellFormat(0, 10, "QUOTATION", "", 1, "L", false, 0, "")
	doc.Ln(2)

	// Quote metadata.
	doc.SetTextColor(80, 80, 80)
	doc.SetFont("Helvetica", "B", 10)
	metaRow := func(label, value string) {
		doc.CellFormat(35, 6, label, "", 0, "L", false, 0, "")
		doc.SetFont("Helvetica", "", 10)
		doc.SetTextColor(0, 0, 0)
		doc.CellFormat(0, 6, value, "", 1, "L", false, 0, "")
		doc.SetFont("Helvetica", "B", 10)
		doc.SetTextColor(80, 80, 80)
	}
	metaRow("Quote Number:", quotation.QuoteNumber)
	metaRow("Date:", quotation.CreatedAt.Format("January 2, 2006"))
	metaRow("Valid Until:", quotation.ValidUntil().Format("January 2, 2006"))
	doc.Ln(6)

	// Customer block.
	doc.SetFont("Helvetica", "B", 10)
	doc.SetTextColor(80, 80, 80)
	doc.CellFormat(0, 6, "Quotation For:", "", 1, "L", false, 0, "")
	doc.SetFont("Helvetica", "", 10)
	doc.SetTextColor(0, 0, 0)
	doc.CellFormat(0, 5, customer.Name, "", 1, "L", false, 0, "")
	if customer.Phone.Valid {
		doc.CellFormat(0, 5, customer.Phone.String, "", 1, "L", false, 0, "")
	}
	if customer.Email.Valid {
		doc.CellFormat(0, 5, customer.Email.String, "", 1, "L", false, 0, "")
	}
	doc.Ln(6)

	doc.SetFont("Helvetica", "B", 12)
	doc.CellFormat(0, 7, quotation.Title, "", 1, "L", false, 0, "")
	if quotation.Description.Valid && quotation.Description.String != "" {
		doc.SetFont("Helvetica", "", 9)
		doc.SetTextColor(80, 80, 80)
		doc.MultiCell(0, 4.5, quotation.Description.String, "", "L", false)
		doc.SetTextColor(0, 0, 0)
	}
	doc.Ln(4)

	// Line items.
	colWidths := []float64{90, 20, 30, 30}
	headers := []string{"Description", "Qty", "Unit Price", "Total"}
	aligns := []string{"L", "C", "R", "R"}

	doc.SetFillColor(25, 118, 210)
	doc.SetTextColor(255, 255, 255)
	doc.SetFont("Helvetica", "B", 10)
	for i, h := range headers {
		doc.CellFormat(colWidths[i], 8, h, "1", 0, aligns[i], true, 0, "")
	}
	doc.Ln(-1)

	doc.SetTextColor(0, 0, 0)
	doc.SetFont("Helvetica", "", 10)
	for _, item := range quotation.Items {
		doc.CellFormat(colWidths[0], 7, item.Description, "1", 0, "L", false, 0, "")
		doc.CellFormat(colWidths[1], 7, trimFloat(item.Quantity), "1", 0, "C", false, 0, "")
		doc.CellFormat(colWidths[2], 7, money(item.UnitPrice), "1", 0, "R", false, 0, "")
		doc.CellFormat(colWidths[3], 7, money(item.Total), "1", 1, "R", false, 0, "")
	}
	doc.Ln(4)

	// Totals, right aligned under the table.
	totalRow := func(label, value string, bold bool) {
		style := ""
		if bold {
			style = "B"
		}
		doc.SetFont("Helvetica", style, 10)
		doc.CellFormat(110, 6, "", "", 0, "L", false, 0, "")
		doc.CellFormat(30, 6, label, "", 0, "R", false, 0, "")
		doc.CellFormat(30, 6, value, "", 1, "R", false, 0, "")
	}
	totalRow("Subtotal:", money(quotation.Subtotal), false)
	if quotation.DiscountPercent > 0 {
		totalRow(fmt.Sprintf("Discount (%s%%):", trimFloat(quotation.DiscountPercent)), "-"+money(quotation.DiscountAmount), false)
	}
	if quotation.TaxPercent > 0 {
		totalRow(fmt.Sprintf("VAT (%s%%):", trimFloat(quotation.TaxPercent)), money(quotation.TaxAmount), false)
	}
	totalRow("Total:", money(quotation.TotalAmount), true)
	doc.Ln(8)

	// Terms.
	doc.SetFont("Helvetica", "B", 10)
	doc.SetTextColor(80, 80, 80)
	doc.CellFormat(0, 6, "Payment Terms", "", 1, "L", false, 0, "")
	doc.SetFont("Helvetica", "", 9)
	doc.MultiCell(0, 4.5, quotation.PaymentTerms, "", "L", false)
	doc.Ln(2)

	if quotation.Notes.Valid && quotation.Notes.String != "" {
		doc.SetFont("Helvetica", "B", 10)
		doc.CellFormat(0, 6, "Notes", "", 1, "L", false, 0, "")
		doc.SetFont("Helvetica", "", 9)
		doc.MultiCell(0, 4.5, quotation.Notes.String, "", "L", false)
	}

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render quotation pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func money(v float64) string {
	return fmt.Sprintf("%.2f THB", v)
}

func trimFloat(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%.2f", v)
}
