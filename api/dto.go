/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  JSON structures for API communication, decoupling the engine's domain
  model from the external contract. All money values leave this layer as
  strings rounded to two decimal places; the engine itself never rounds.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"encoding/json"

	"github.com/shopspring/decimal"

	"github.com/provizie/commission-engine/engine"
)

// =============================================================================
// INVOICES
// =============================================================================

// InvoiceDTO represents an invoice in API responses. The commission
// amount is derived on the way out, never stored.
type InvoiceDTO struct {
	ID               string `json:"id"`
	ClientName       string `json:"client_name"`
	Amount           string `json:"amount"`
	Date             string `json:"date"`
	CommissionPct    string `json:"commission_percentage"`
	CommissionAmount string `json:"commission_amount"`
	InvoicedByFirm   string `json:"invoiced_by_firm"`
	ReferredByFirm   string `json:"referred_by_firm"`
	IsPaid           bool   `json:"is_paid"`
}

func toInvoiceDTO(inv engine.Invoice) InvoiceDTO {
	return InvoiceDTO{
		ID:               string(inv.ID),
		ClientName:       inv.ClientName,
		Amount:           money(inv.Amount),
		Date:             inv.Date.String(),
		CommissionPct:    inv.CommissionPct.String(),
		CommissionAmount: money(inv.CommissionAmount()),
		InvoicedByFirm:   string(inv.InvoicedBy),
		ReferredByFirm:   string(inv.ReferredBy),
		IsPaid:           inv.Paid,
	}
}

// CreateInvoiceRequest is the request to create an invoice. ID is
// optional; the repository generates one when absent.
type CreateInvoiceRequest struct {
	ID             string      `json:"id"`
	ClientName     string      `json:"client_name"`
	Amount         json.Number `json:"amount"`
	Date           string      `json:"date"`
	CommissionPct  json.Number `json:"commission_percentage"`
	InvoicedByFirm string      `json:"invoiced_by_firm"`
	ReferredByFirm string      `json:"referred_by_firm"`
	IsPaid         bool        `json:"is_paid"`
}

// UpdateInvoiceRequest is a partial update; absent fields are unchanged.
type UpdateInvoiceRequest struct {
	ClientName     *string      `json:"client_name"`
	Amount         *json.Number `json:"amount"`
	Date           *string      `json:"date"`
	CommissionPct  *json.Number `json:"commission_percentage"`
	InvoicedByFirm *string      `json:"invoiced_by_firm"`
	ReferredByFirm *string      `json:"referred_by_firm"`
	IsPaid         *bool        `json:"is_paid"`
}

// =============================================================================
// QUARTER SUMMARIES
// =============================================================================

type FirmBucketDTO struct {
	Amount     string   `json:"amount"`
	InvoiceIDs []string `json:"invoice_ids"`
}

type DirectionDTO struct {
	Total  string                   `json:"total"`
	ByFirm map[string]FirmBucketDTO `json:"by_firm"`
}

type QuarterSummaryDTO struct {
	QuarterKey string       `json:"quarter_key"`
	Year       int          `json:"year"`
	Quarter    int          `json:"quarter"`
	ToReceive  DirectionDTO `json:"to_receive"`
	ToPay      DirectionDTO `json:"to_pay"`
	Net        string       `json:"net"`
	Settled    bool         `json:"settled"`
}

func toQuarterSummaryDTO(s engine.QuarterSummary) QuarterSummaryDTO {
	return QuarterSummaryDTO{
		QuarterKey: s.Quarter.Key(),
		Year:       s.Quarter.Year,
		Quarter:    s.Quarter.Q,
		ToReceive:  toDirectionDTO(s.ToReceive),
		ToPay:      toDirectionDTO(s.ToPay),
		Net:        money(s.Net),
		Settled:    s.Settled,
	}
}

func toDirectionDTO(ds engine.DirectionSummary) DirectionDTO {
	byFirm := make(map[string]FirmBucketDTO, len(ds.ByFirm))
	for firm, bucket := range ds.ByFirm {
		ids := make([]string, len(bucket.InvoiceIDs))
		for i, id := range bucket.InvoiceIDs {
			ids[i] = string(id)
		}
		byFirm[string(firm)] = FirmBucketDTO{Amount: money(bucket.Amount), InvoiceIDs: ids}
	}
	return DirectionDTO{Total: money(ds.Total), ByFirm: byFirm}
}

// =============================================================================
// SETTLEMENTS & PREFERENCES
// =============================================================================

type SettleRequest struct {
	QuarterKey string `json:"quarter_key"`
}

type SettlementDTO struct {
	QuarterKey string `json:"quarter_key"`
	SettledBy  string `json:"settled_by"`
	Settled    bool   `json:"settled"`
	SettledAt  string `json:"settled_at,omitempty"`
}

type PeriodDTO struct {
	Year    int `json:"year"`
	Quarter int `json:"quarter"`
}

type YearOverYearDTO struct {
	QuarterKey string `json:"quarter_key"`
	PriorKey   string `json:"prior_quarter_key"`
	NetDelta   string `json:"net_delta"`
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// money renders a decimal for display. The two-decimal rounding lives
// here and only here.
func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}
