/*
scenarios.go - Demo seed datasets

PURPOSE:
  Named scenarios that seed the invoice collection with realistic
  cross-firm referral data for demos and local development. Scenario
  invoices use fixed ids, so reloading a scenario overwrites rather
  than duplicates.

SCENARIOS:
  referral-quarter: One quarter of mutual referrals between all firms
  two-years:        The same quarter across two years, for YoY deltas

SEE ALSO:
  - handlers.go: writeJSON/writeError helpers
*/
package api

import (
	"encoding/json"
	"net/http"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/provizie/commission-engine/engine"
)

// ScenarioDTO describes one loadable scenario.
type ScenarioDTO struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Invoices    int    `json:"invoices"`
}

// LoadScenarioRequest selects the scenario to load.
type LoadScenarioRequest struct {
	Name string `json:"name"`
}

func seedInvoice(id, client string, amount float64, date engine.Date, pct float64, invoicedBy, referredBy engine.Firm, paid bool) engine.Invoice {
	return engine.Invoice{
		ID:            engine.InvoiceID(id),
		ClientName:    client,
		Amount:        decimal.NewFromFloat(amount),
		Date:          date,
		CommissionPct: decimal.NewFromFloat(pct),
		InvoicedBy:    invoicedBy,
		ReferredBy:    referredBy,
		Paid:          paid,
	}
}

func scenarios() map[string][]engine.Invoice {
	q2 := func(day int) engine.Date { return engine.NewDate(2024, time.May, day) }
	return map[string][]engine.Invoice{
		"referral-quarter": {
			seedInvoice("demo-rq-1", "Aurora Logistics", 10000, q2(6), 10, engine.FirmMKMs, engine.FirmSkallars, true),
			seedInvoice("demo-rq-2", "Beacon Health", 5400, q2(9), 12.5, engine.FirmContax, engine.FirmMKMs, true),
			seedInvoice("demo-rq-3", "Cedar & Sons", 7250, q2(14), 8, engine.FirmSkallars, engine.FirmContax, true),
			seedInvoice("demo-rq-4", "Delta Foundry", 3100, q2(21), 10, engine.FirmMKMs, engine.FirmMKMs, true),
			seedInvoice("demo-rq-5", "Ember Studio", 12000, q2(28), 15, engine.FirmSkallars, engine.FirmMKMs, false),
		},
		"two-years": {
			seedInvoice("demo-ty-1", "Foxglove Media", 8000, engine.NewDate(2023, time.May, 10), 10, engine.FirmMKMs, engine.FirmSkallars, true),
			seedInvoice("demo-ty-2", "Foxglove Media", 9500, engine.NewDate(2024, time.May, 10), 10, engine.FirmMKMs, engine.FirmSkallars, true),
			seedInvoice("demo-ty-3", "Granite Works", 4000, engine.NewDate(2023, time.June, 2), 5, engine.FirmSkallars, engine.FirmContax, true),
			seedInvoice("demo-ty-4", "Granite Works", 2500, engine.NewDate(2024, time.June, 2), 5, engine.FirmSkallars, engine.FirmContax, true),
		},
	}
}

var scenarioDescriptions = map[string]string{
	"referral-quarter": "One quarter of mutual referrals between all three firms, including a self-referral and an unpaid invoice",
	"two-years":        "The same clients invoiced in Q2 of two consecutive years, for year-over-year deltas",
}

// ListScenarios returns the available demo scenarios, sorted by name.
// GET /api/scenarios
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	all := scenarios()
	names := make([]string, 0, len(all))
	for name := range all {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]ScenarioDTO, 0, len(names))
	for _, name := range names {
		out = append(out, ScenarioDTO{
			Name:        name,
			Description: scenarioDescriptions[name],
			Invoices:    len(all[name]),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// LoadScenario seeds the invoice collection with a named scenario.
// POST /api/scenarios/load
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	invoices, ok := scenarios()[req.Name]
	if !ok {
		writeError(w, http.StatusNotFound, "Unknown scenario", nil)
		return
	}

	for _, inv := range invoices {
		if err := h.Invoices.Add(r.Context(), inv); err != nil {
			h.writeEngineError(w, "Failed to seed scenario", err)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"loaded": req.Name, "invoices": len(invoices)})
}
