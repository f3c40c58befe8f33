package models

import (
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"math"
	"time"
)

type QuotationStatus string

const (
	QuotationStatusDraft    QuotationStatus = "draft"
	QuotationStatusSent     QuotationStatus = "sent"
	QuotationStatusViewed   QuotationStatus = "viewed"
	QuotationStatusAccepted QuotationStatus = "accepted"
	QuotationStatusRejected QuotationStatus = "rejected"
	QuotationStatusExpired  QuotationStatus = "expired"
)

// quotationTransitions is the one-directional lifecycle: draft, sent, viewed,
// then one of the terminal outcomes.
var quotationTransitions = map[QuotationStatus][]QuotationStatus{
	QuotationStatusDraft:  {QuotationStatusSent},
	QuotationStatusSent:   {QuotationStatusViewed, QuotationStatusAccepted, QuotationStatusRejected, QuotationStatusExpired},
	QuotationStatusViewed: {QuotationStatusAccepted, QuotationStatusRejected, QuotationStatusExpired},
}

// CanTransition reports whether the quotation may move to the given status.
func (s QuotationStatus) CanTransition(to QuotationStatus) bool {
	for _, next := range quotationTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// IsEditable reports whether quotation fields may still be modified. Only
// drafts are mutable.
func (s QuotationStatus) IsEditable() bool {
	return s == QuotationStatusDraft
}

// QuotationItem is one priced line. Total is qty x unit price, stored per
// item for display.
type QuotationItem struct {
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	Total       float64 `json:"total"`
}

// QuotationItems is the JSONB-stored line item list.
type QuotationItems []QuotationItem

func (items QuotationItems) Value() (driver.Value, error) {
	if items == nil {
		return "[]", nil
	}
	b, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal quotation items: %w", err)
	}
	return string(b), nil
}

func (items *QuotationItems) Scan(src interface{}) error {
	if src == nil {
		*items = nil
		return nil
	}
	var data []byte
	switch v := src.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into QuotationItems", src)
	}
	return json.Unmarshal(data, items)
}

// QuotationTotals holds the amounts derived from line items and percentages.
type QuotationTotals struct {
	Subtotal       float64
	DiscountAmount float64
	TaxAmount      float64
	TotalAmount    float64
}

// round2 rounds a monetary amount to two decimal places.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// ComputeTotals derives quotation totals from line items and percentages.
// Totals are always recomputed from current items, never updated
// incrementally, so a stored quotation can be re-derived and checked against
// its inputs at any time. Each item's Total is filled in place.
func ComputeTotals(items QuotationItems, discountPercent, taxPercent float64) QuotationTotals {
	var subtotal float64
	for i := range items {
		items[i].Total = round2(items[i].Quantity * items[i].UnitPrice)
		subtotal += items[i].Total
	}
	subtotal = round2(subtotal)

	discount := round2(subtotal * discountPercent / 100)
	taxable := subtotal - discount
	tax := round2(taxable * taxPercent / 100)

	return QuotationTotals{
		Subtotal:       subtotal,
		DiscountAmount: discount,
		TaxAmount:      tax,
		TotalAmount:    round2(taxable + tax),
	}
}

// Quotation is a snapshot of priced line items sent to a customer for
// approval. Monetary totals are always recomputable from Items,
// DiscountPercent and TaxPercent; no code path persists a total inconsistent
// with those inputs.
type Quotation struct {
	ID              string          `db:"id" json:"id"`
	QuoteNumber     string          `db:"quote_number" json:"quote_number"`
	CustomerID      string          `db:"customer_id" json:"customer_id"`
	CompanyName     sql.NullString  `db:"company_name" json:"company_name,omitempty"`
	CompanyAddress  sql.NullString  `db:"company_address" json:"company_address,omitempty"`
	CompanyTaxID    sql.NullString  `db:"company_tax_id" json:"company_tax_id,omitempty"`
	Title           string          `db:"title" json:"title"`
	Description     sql.NullString  `db:"description" json:"description,omitempty"`
	Items           QuotationItems  `db:"items" json:"items"`
	Subtotal        float64         `db:"subtotal" json:"subtotal"`
	DiscountPercent float64         `db:"discount_percent" json:"discount_percent"`
	DiscountAmount  float64         `db:"discount_amount" json:"discount_amount"`
	TaxPercent      float64         `db:"tax_percent" json:"tax_percent"`
	TaxAmount       float64         `db:"tax_amount" json:"tax_amount"`
	TotalAmount     float64         `db:"total_amount" json:"total_amount"`
	PaymentTerms    string          `db:"payment_terms" json:"payment_terms"`
	ValidityDays    int             `db:"validity_days" json:"validity_days"`
	Notes           sql.NullString  `db:"notes" json:"notes,omitempty"`
	Status          QuotationStatus `db:"status" json:"status"`
	SentAt          sql.NullTime    `db:"sent_at" json:"sent_at,omitempty"`
	ViewedAt        sql.NullTime    `db:"viewed_at" json:"viewed_at,omitempty"`
	RespondedAt     sql.NullTime    `db:"responded_at" json:"responded_at,omitempty"`
	CreatedByID     string          `db:"created_by_id" json:"created_by_id"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at" json:"updated_at"`
}

// ValidUntil is the expiry date derived from creation time and validity.
func (q *Quotation) ValidUntil() time.Time {
	return q.CreatedAt.AddDate(0, 0, q.ValidityDays)
}
