/*
handlers_test.go - HTTP-level tests for the API surface

Tests drive the full router over the in-memory record store:
- Invoice CRUD and validation status codes
- Quarter summaries per viewpoint firm
- Settle / unsettle round trips
- X-Firm header handling
*/
package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/provizie/commission-engine/api"
	"github.com/provizie/commission-engine/engine"
	"github.com/provizie/commission-engine/engine/store"
)

func newTestServer(t *testing.T) http.Handler {
	mem := store.NewMemory()
	ctx := context.Background()

	invoices, err := engine.NewInvoiceRepository(ctx, mem, nil)
	require.NoError(t, err)
	settlements, err := engine.NewSettlementLedger(ctx, mem, nil)
	require.NoError(t, err)
	prefs := engine.NewPreferences(mem, nil)

	return api.NewRouter(api.NewHandler(invoices, settlements, prefs, nil))
}

func doJSON(t *testing.T, h http.Handler, method, path, firm string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if firm != "" {
		req.Header.Set("X-Firm", firm)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), "body: %s", rec.Body.String())
	return out
}

func createInvoiceBody(amount string) map[string]any {
	return map[string]any{
		"client_name":           "Northwind",
		"amount":                json.Number(amount),
		"date":                  "2024-05-10",
		"commission_percentage": json.Number("10"),
		"invoiced_by_firm":      "MKMs",
		"referred_by_firm":      "SKALLARS",
		"is_paid":               true,
	}
}

// =============================================================================
// INVOICES
// =============================================================================

func TestAPI_CreateAndListInvoices(t *testing.T) {
	h := newTestServer(t)

	rec := doJSON(t, h, http.MethodPost, "/api/invoices", "", createInvoiceBody("10000"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	created := decode[api.InvoiceDTO](t, rec)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "10000.00", created.Amount)
	assert.Equal(t, "1000.00", created.CommissionAmount)

	rec = doJSON(t, h, http.MethodGet, "/api/invoices", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[[]api.InvoiceDTO](t, rec)
	assert.Len(t, list, 1)
}

func TestAPI_CreateInvoice_ValidationStatus(t *testing.T) {
	h := newTestServer(t)

	body := createInvoiceBody("10000")
	body["invoiced_by_firm"] = "Globex"
	rec := doJSON(t, h, http.MethodPost, "/api/invoices", "", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	body = createInvoiceBody("-50")
	rec = doJSON(t, h, http.MethodPost, "/api/invoices", "", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/api/invoices", "", nil)
	assert.Empty(t, decode[[]api.InvoiceDTO](t, rec), "rejected invoices are not stored")
}

func TestAPI_UpdateAndTogglePaid(t *testing.T) {
	h := newTestServer(t)

	rec := doJSON(t, h, http.MethodPost, "/api/invoices", "", createInvoiceBody("10000"))
	created := decode[api.InvoiceDTO](t, rec)

	rec = doJSON(t, h, http.MethodPatch, "/api/invoices/"+created.ID, "",
		map[string]any{"client_name": "Northwind Holdings"})
	require.Equal(t, http.StatusOK, rec.Code)
	updated := decode[api.InvoiceDTO](t, rec)
	assert.Equal(t, "Northwind Holdings", updated.ClientName)
	assert.Equal(t, "10000.00", updated.Amount, "unpatched fields survive")

	rec = doJSON(t, h, http.MethodPost, "/api/invoices/"+created.ID+"/toggle-paid", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[api.InvoiceDTO](t, rec).IsPaid)
}

func TestAPI_DeleteInvoice_NoOpOnUnknown(t *testing.T) {
	h := newTestServer(t)

	rec := doJSON(t, h, http.MethodDelete, "/api/invoices/ghost", "", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

// =============================================================================
// QUARTERS & SETTLEMENTS
// =============================================================================

func TestAPI_QuarterSummaries_PerViewpoint(t *testing.T) {
	h := newTestServer(t)
	doJSON(t, h, http.MethodPost, "/api/invoices", "", createInvoiceBody("10000"))

	rec := doJSON(t, h, http.MethodGet, "/api/quarters", "SKALLARS", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	summaries := decode[[]api.QuarterSummaryDTO](t, rec)
	require.Len(t, summaries, 1)
	assert.Equal(t, "2024-Q2", summaries[0].QuarterKey)
	assert.Equal(t, "1000.00", summaries[0].ToReceive.Total)
	assert.Equal(t, "0.00", summaries[0].ToPay.Total)

	rec = doJSON(t, h, http.MethodGet, "/api/quarters", "MKMs", nil)
	summaries = decode[[]api.QuarterSummaryDTO](t, rec)
	require.Len(t, summaries, 1)
	assert.Equal(t, "1000.00", summaries[0].ToPay.Total)

	// Missing viewpoint header.
	rec = doJSON(t, h, http.MethodGet, "/api/quarters", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPI_SettleFlow(t *testing.T) {
	h := newTestServer(t)
	doJSON(t, h, http.MethodPost, "/api/invoices", "", createInvoiceBody("10000"))

	rec := doJSON(t, h, http.MethodPost, "/api/settlements", "SKALLARS",
		api.SettleRequest{QuarterKey: "2024-Q2"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	dto := decode[api.SettlementDTO](t, rec)
	assert.True(t, dto.Settled)
	assert.NotEmpty(t, dto.SettledAt)

	// The quarter now reads settled from Skallars' side only.
	quarters := decode[[]api.QuarterSummaryDTO](t,
		doJSON(t, h, http.MethodGet, "/api/quarters", "SKALLARS", nil))
	assert.True(t, quarters[0].Settled)

	quarters = decode[[]api.QuarterSummaryDTO](t,
		doJSON(t, h, http.MethodGet, "/api/quarters", "MKMs", nil))
	assert.False(t, quarters[0].Settled, "settlement is per-viewpoint")

	// Unsettle round trip.
	rec = doJSON(t, h, http.MethodDelete, "/api/settlements/2024-Q2", "SKALLARS", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	status := decode[api.SettlementDTO](t,
		doJSON(t, h, http.MethodGet, "/api/settlements/2024-Q2", "SKALLARS", nil))
	assert.False(t, status.Settled)
}

func TestAPI_YearOverYear(t *testing.T) {
	h := newTestServer(t)

	body := createInvoiceBody("8000")
	body["date"] = "2023-05-10"
	doJSON(t, h, http.MethodPost, "/api/invoices", "", body)
	doJSON(t, h, http.MethodPost, "/api/invoices", "", createInvoiceBody("9500"))

	rec := doJSON(t, h, http.MethodGet, "/api/quarters/2024-Q2/yoy", "SKALLARS", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	dto := decode[api.YearOverYearDTO](t, rec)
	assert.Equal(t, "2023-Q2", dto.PriorKey)
	assert.Equal(t, "150.00", dto.NetDelta)
}

// =============================================================================
// PREFERENCES & SCENARIOS
// =============================================================================

func TestAPI_SelectedPeriod(t *testing.T) {
	h := newTestServer(t)

	rec := doJSON(t, h, http.MethodGet, "/api/preferences/period", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, h, http.MethodPut, "/api/preferences/period", "",
		api.PeriodDTO{Year: 2024, Quarter: 2})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/api/preferences/period", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, api.PeriodDTO{Year: 2024, Quarter: 2}, decode[api.PeriodDTO](t, rec))
}

func TestAPI_ListScenarios_SortedByName(t *testing.T) {
	h := newTestServer(t)

	rec := doJSON(t, h, http.MethodGet, "/api/scenarios", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	list := decode[[]api.ScenarioDTO](t, rec)
	require.Len(t, list, 2)
	assert.Equal(t, "referral-quarter", list[0].Name)
	assert.Equal(t, "two-years", list[1].Name)
}

func TestAPI_LoadScenario(t *testing.T) {
	h := newTestServer(t)

	rec := doJSON(t, h, http.MethodPost, "/api/scenarios/load",
		"", api.LoadScenarioRequest{Name: "referral-quarter"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	list := decode[[]api.InvoiceDTO](t, doJSON(t, h, http.MethodGet, "/api/invoices", "", nil))
	assert.Len(t, list, 5)

	// Reloading overwrites rather than duplicates.
	doJSON(t, h, http.MethodPost, "/api/scenarios/load", "", api.LoadScenarioRequest{Name: "referral-quarter"})
	list = decode[[]api.InvoiceDTO](t, doJSON(t, h, http.MethodGet, "/api/invoices", "", nil))
	assert.Len(t, list, 5)

	rec = doJSON(t, h, http.MethodPost, "/api/scenarios/load", "", api.LoadScenarioRequest{Name: "nope"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
