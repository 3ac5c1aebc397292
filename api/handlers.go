/*
handlers.go - HTTP API handlers for the commission engine

PURPOSE:
  Exposes the reconciliation engine via REST. Handles HTTP
  request/response, JSON serialization, and delegates to the engine.

ENDPOINTS:
  Invoices:
    GET    /api/invoices                   List all invoices
    POST   /api/invoices                   Create invoice
    PATCH  /api/invoices/{id}              Partial update
    DELETE /api/invoices/{id}              Remove invoice
    POST   /api/invoices/{id}/toggle-paid  Flip paid flag

  Quarters (viewpoint firm from X-Firm header):
    GET    /api/quarters                   All quarter summaries
    GET    /api/quarters/{quarterKey}      One quarter summary
    GET    /api/quarters/{quarterKey}/yoy  Year-over-year net delta

  Settlements (viewpoint firm from X-Firm header):
    POST   /api/settlements                Settle a quarter
    GET    /api/settlements/{quarterKey}   Settlement status
    DELETE /api/settlements/{quarterKey}   Unsettle

  Preferences:
    GET    /api/preferences/period         Last-viewed period
    PUT    /api/preferences/period         Save last-viewed period

  Scenarios:
    GET    /api/scenarios                  List demo scenarios
    POST   /api/scenarios/load             Seed a demo scenario

VIEWPOINT:
  The engine computes everything from one firm's perspective. The firm
  arrives in the X-Firm header, standing in for the identity provider
  that supplies the session's firm affiliation.

ERROR HANDLING:
  - 400: Validation errors, unknown firm, malformed quarter key
  - 404: Unknown invoice on GET
  - 500: Persistence failures (the change is live but not yet durable)

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/provizie/commission-engine/engine"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Invoices    *engine.InvoiceRepository
	Settlements *engine.SettlementLedger
	Aggregator  *engine.Aggregator
	Prefs       *engine.Preferences
	Log         *zap.Logger
}

// NewHandler wires the engine components into a handler.
func NewHandler(invoices *engine.InvoiceRepository, settlements *engine.SettlementLedger, prefs *engine.Preferences, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{
		Invoices:    invoices,
		Settlements: settlements,
		Aggregator:  engine.NewAggregator(invoices, settlements),
		Prefs:       prefs,
		Log:         log,
	}
}

// viewpointFirm extracts the session firm from the X-Firm header.
func viewpointFirm(r *http.Request) (engine.Firm, bool) {
	return engine.ParseFirm(r.Header.Get("X-Firm"))
}

// =============================================================================
// INVOICE HANDLERS
// =============================================================================

// ListInvoices returns all current invoices.
// GET /api/invoices
func (h *Handler) ListInvoices(w http.ResponseWriter, r *http.Request) {
	invoices := h.Invoices.List()
	out := make([]InvoiceDTO, 0, len(invoices))
	for _, inv := range invoices {
		out = append(out, toInvoiceDTO(inv))
	}
	writeJSON(w, http.StatusOK, out)
}

// GetInvoice returns one invoice.
// GET /api/invoices/{id}
func (h *Handler) GetInvoice(w http.ResponseWriter, r *http.Request) {
	id := engine.InvoiceID(chi.URLParam(r, "id"))
	inv, ok := h.Invoices.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "Invoice not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toInvoiceDTO(inv))
}

// CreateInvoice validates and stores a new invoice.
// POST /api/invoices
func (h *Handler) CreateInvoice(w http.ResponseWriter, r *http.Request) {
	var req CreateInvoiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	date, err := engine.ParseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date (use YYYY-MM-DD)", err)
		return
	}
	amount, err := parseMoney(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid amount", err)
		return
	}
	pct, err := parseMoney(req.CommissionPct)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid commission_percentage", err)
		return
	}

	// Pre-generate the id so the response can echo the stored record.
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	inv := engine.Invoice{
		ID:            engine.InvoiceID(req.ID),
		ClientName:    req.ClientName,
		Amount:        amount,
		Date:          date,
		CommissionPct: pct,
		InvoicedBy:    engine.Firm(req.InvoicedByFirm),
		ReferredBy:    engine.Firm(req.ReferredByFirm),
		Paid:          req.IsPaid,
	}

	if err := h.Invoices.Add(r.Context(), inv); err != nil {
		h.writeEngineError(w, "Failed to create invoice", err)
		return
	}

	created, _ := h.Invoices.Get(inv.ID)
	writeJSON(w, http.StatusCreated, toInvoiceDTO(created))
}

// UpdateInvoice merges a partial update onto an invoice.
// PATCH /api/invoices/{id}
func (h *Handler) UpdateInvoice(w http.ResponseWriter, r *http.Request) {
	id := engine.InvoiceID(chi.URLParam(r, "id"))

	var req UpdateInvoiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	patch := engine.InvoicePatch{ClientName: req.ClientName, Paid: req.IsPaid}
	if req.Amount != nil {
		amount, err := parseMoney(*req.Amount)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid amount", err)
			return
		}
		patch.Amount = &amount
	}
	if req.CommissionPct != nil {
		pct, err := parseMoney(*req.CommissionPct)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid commission_percentage", err)
			return
		}
		patch.CommissionPct = &pct
	}
	if req.Date != nil {
		date, err := engine.ParseDate(*req.Date)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid date (use YYYY-MM-DD)", err)
			return
		}
		patch.Date = &date
	}
	if req.InvoicedByFirm != nil {
		f := engine.Firm(*req.InvoicedByFirm)
		patch.InvoicedBy = &f
	}
	if req.ReferredByFirm != nil {
		f := engine.Firm(*req.ReferredByFirm)
		patch.ReferredBy = &f
	}

	if err := h.Invoices.Update(r.Context(), id, patch); err != nil {
		h.writeEngineError(w, "Failed to update invoice", err)
		return
	}

	if inv, ok := h.Invoices.Get(id); ok {
		writeJSON(w, http.StatusOK, toInvoiceDTO(inv))
		return
	}
	// Unknown id: the engine treats it as a no-op, not an error.
	writeJSON(w, http.StatusOK, map[string]string{"status": "no-op"})
}

// DeleteInvoice removes an invoice; unknown ids are a no-op.
// DELETE /api/invoices/{id}
func (h *Handler) DeleteInvoice(w http.ResponseWriter, r *http.Request) {
	id := engine.InvoiceID(chi.URLParam(r, "id"))
	if err := h.Invoices.Remove(r.Context(), id); err != nil {
		h.writeEngineError(w, "Failed to delete invoice", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// TogglePaid flips the paid flag; unknown ids are a no-op.
// POST /api/invoices/{id}/toggle-paid
func (h *Handler) TogglePaid(w http.ResponseWriter, r *http.Request) {
	id := engine.InvoiceID(chi.URLParam(r, "id"))
	if err := h.Invoices.TogglePaid(r.Context(), id); err != nil {
		h.writeEngineError(w, "Failed to toggle paid flag", err)
		return
	}
	if inv, ok := h.Invoices.Get(id); ok {
		writeJSON(w, http.StatusOK, toInvoiceDTO(inv))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "no-op"})
}

// =============================================================================
// QUARTER SUMMARY HANDLERS
// =============================================================================

// ListQuarters returns every quarter summary for the viewpoint firm.
// GET /api/quarters
func (h *Handler) ListQuarters(w http.ResponseWriter, r *http.Request) {
	firm, ok := viewpointFirm(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "Missing or unknown X-Firm header", nil)
		return
	}

	summaries, err := h.Aggregator.Summaries(r.Context(), firm)
	if err != nil {
		h.writeEngineError(w, "Failed to aggregate quarters", err)
		return
	}
	out := make([]QuarterSummaryDTO, 0, len(summaries))
	for _, s := range summaries {
		out = append(out, toQuarterSummaryDTO(s))
	}
	writeJSON(w, http.StatusOK, out)
}

// GetQuarter returns one quarter's summary for the viewpoint firm.
// GET /api/quarters/{quarterKey}
func (h *Handler) GetQuarter(w http.ResponseWriter, r *http.Request) {
	firm, ok := viewpointFirm(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "Missing or unknown X-Firm header", nil)
		return
	}
	q, err := engine.ParseQuarterKey(chi.URLParam(r, "quarterKey"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid quarter key (use e.g. 2024-Q2)", err)
		return
	}

	summary, err := h.Aggregator.Summary(r.Context(), firm, q)
	if err != nil {
		h.writeEngineError(w, "Failed to aggregate quarter", err)
		return
	}
	writeJSON(w, http.StatusOK, toQuarterSummaryDTO(summary))
}

// GetYearOverYear returns the net delta vs. the same quarter last year.
// GET /api/quarters/{quarterKey}/yoy
func (h *Handler) GetYearOverYear(w http.ResponseWriter, r *http.Request) {
	firm, ok := viewpointFirm(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "Missing or unknown X-Firm header", nil)
		return
	}
	q, err := engine.ParseQuarterKey(chi.URLParam(r, "quarterKey"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid quarter key (use e.g. 2024-Q2)", err)
		return
	}

	delta, err := h.Aggregator.YearOverYearDelta(r.Context(), firm, q)
	if err != nil {
		h.writeEngineError(w, "Failed to compute year-over-year delta", err)
		return
	}
	writeJSON(w, http.StatusOK, YearOverYearDTO{
		QuarterKey: q.Key(),
		PriorKey:   q.PreviousYear().Key(),
		NetDelta:   delta.StringFixed(2),
	})
}

// =============================================================================
// SETTLEMENT HANDLERS
// =============================================================================

// Settle marks a quarter settled from the viewpoint firm's side.
// POST /api/settlements
func (h *Handler) Settle(w http.ResponseWriter, r *http.Request) {
	firm, ok := viewpointFirm(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "Missing or unknown X-Firm header", nil)
		return
	}
	var req SettleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if err := h.Settlements.Settle(r.Context(), req.QuarterKey, firm); err != nil {
		h.writeEngineError(w, "Failed to settle quarter", err)
		return
	}
	writeJSON(w, http.StatusOK, h.settlementDTO(req.QuarterKey, firm))
}

// GetSettlement returns the settlement status for a quarter.
// GET /api/settlements/{quarterKey}
func (h *Handler) GetSettlement(w http.ResponseWriter, r *http.Request) {
	firm, ok := viewpointFirm(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "Missing or unknown X-Firm header", nil)
		return
	}
	writeJSON(w, http.StatusOK, h.settlementDTO(chi.URLParam(r, "quarterKey"), firm))
}

// Unsettle removes the settlement marker; already-unsettled is a no-op.
// DELETE /api/settlements/{quarterKey}
func (h *Handler) Unsettle(w http.ResponseWriter, r *http.Request) {
	firm, ok := viewpointFirm(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "Missing or unknown X-Firm header", nil)
		return
	}
	if err := h.Settlements.Unsettle(r.Context(), chi.URLParam(r, "quarterKey"), firm); err != nil {
		h.writeEngineError(w, "Failed to unsettle quarter", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) settlementDTO(quarterKey string, firm engine.Firm) SettlementDTO {
	dto := SettlementDTO{QuarterKey: quarterKey, SettledBy: string(firm)}
	if s, ok := h.Settlements.Settled(quarterKey, firm); ok {
		dto.Settled = true
		dto.SettledAt = s.SettledAt.Format(time.RFC3339)
	}
	return dto
}

// =============================================================================
// PREFERENCE HANDLERS
// =============================================================================

// GetSelectedPeriod returns the last-viewed period, 404 when unset.
// GET /api/preferences/period
func (h *Handler) GetSelectedPeriod(w http.ResponseWriter, r *http.Request) {
	q, ok, err := h.Prefs.SelectedPeriod(r.Context())
	if err != nil {
		h.writeEngineError(w, "Failed to load selected period", err)
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "No selected period stored", nil)
		return
	}
	writeJSON(w, http.StatusOK, PeriodDTO{Year: q.Year, Quarter: q.Q})
}

// PutSelectedPeriod saves the last-viewed period.
// PUT /api/preferences/period
func (h *Handler) PutSelectedPeriod(w http.ResponseWriter, r *http.Request) {
	var req PeriodDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	q := engine.Quarter{Year: req.Year, Q: req.Quarter}
	if err := h.Prefs.SaveSelectedPeriod(r.Context(), q); err != nil {
		h.writeEngineError(w, "Failed to save selected period", err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

// =============================================================================
// HELPERS
// =============================================================================

func parseMoney(n json.Number) (decimal.Decimal, error) {
	return decimal.NewFromString(n.String())
}

// writeEngineError maps engine errors onto HTTP status codes.
func (h *Handler) writeEngineError(w http.ResponseWriter, message string, err error) {
	switch {
	case engine.IsClientError(err):
		writeError(w, http.StatusBadRequest, message, err)
	case engine.IsStoreError(err):
		// The in-memory change is live but not yet durable.
		h.Log.Error("record store write failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, message+" (change applied but not persisted)", err)
	default:
		writeError(w, http.StatusInternalServerError, message, err)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
