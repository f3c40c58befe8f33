package pdf_test

import (
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bma-crm/commhub/internal/models"
	"github.com/bma-crm/commhub/internal/pdf"
)

func TestRenderQuotation(t *testing.T) {
	items := models.QuotationItems{
		{Description: "Social media management", Quantity: 1, UnitPrice: 12000},
		{Description: "Content production", Quantity: 4, UnitPrice: 2500},
	}
	totals := models.ComputeTotals(items, 10, 7)

	quotation := &models.Quotation{
		QuoteNumber:     "QT20260824001",
		Title:           "Monthly marketing package",
		Description:     sql.NullString{String: "Scope covers August deliverables.", Valid: true},
		Items:           items,
		Subtotal:        totals.Subtotal,
		DiscountPercent: 10,
		DiscountAmount:  totals.DiscountAmount,
		TaxPercent:      7,
		TaxAmount:       totals.TaxAmount,
		TotalAmount:     totals.TotalAmount,
		PaymentTerms:    "50% deposit, balance on delivery",
		ValidityDays:    30,
		Notes:           sql.NullString{String: "Prices exclude ad spend.", Valid: true},
		Status:          models.QuotationStatusDraft,
		CreatedAt:       time.Date(2026, 8, 24, 10, 0, 0, 0, time.UTC),
	}
	customer := &models.Customer{
		Name:  "Somchai Jaidee",
		Phone: sql.NullString{String: "66812345678", Valid: true},
		Email: sql.NullString{String: "somchai@example.com", Valid: true},
	}

	generator := pdf.NewGenerator(pdf.DefaultCompany)

	data, err := generator.RenderQuotation(quotation, customer)
	require.NoError(t, err)
	require.NotEmpty(t, data)
	assert.Equal(t, "%PDF", string(data[:4]))
}

func TestRenderQuotation_CompanyOverride(t *testing.T) {
	quotation := &models.Quotation{
		QuoteNumber:  "QT20260824002",
		CompanyName:  sql.NullString{String: "Custom Issuer Ltd.", Valid: true},
		Title:        "One-off consultation",
		Items:        models.QuotationItems{{Description: "Consulting", Quantity: 1, UnitPrice: 5000, Total: 5000}},
		Subtotal:     5000,
		TotalAmount:  5000,
		PaymentTerms: "Net 15",
		ValidityDays: 15,
		CreatedAt:    time.Now(),
	}
	customer := &models.Customer{Name: "Malee"}

	generator := pdf.NewGenerator(pdf.CompanyInfo{})

	data, err := generator.RenderQuotation(quotation, customer)
	require.NoError(t, err)
	assert.NotEmpty(t, data)
}
