/*
repository.go - Canonical invoice collection

PURPOSE:
  Validates, normalizes, stores, and retrieves invoice records. The
  repository owns the canonical in-memory collection and writes through
  to the RecordStore; the in-memory copy is authoritative and may be
  momentarily ahead of the durable copy.

VALIDATION:
  Every write (Add, Update) re-validates the full record. A record that
  fails validation is rejected whole: no partial writes are observable.

NORMALIZATION:
  At ingestion, dates are canonicalized to day granularity, firm names
  are coerced to the closed enumeration case-insensitively, and client
  names are trimmed. Stored documents use a single unambiguous encoding
  (see invoiceDoc).

CORRUPT RECORDS:
  Individually invalid records found while loading from the backing
  store are dropped and logged, and the load proceeds with the valid
  remainder. This is deliberate: one bad record must not make the whole
  engine unusable.

SEE ALSO:
  - store.go: Persistence boundary
  - errors.go: InvalidInvoiceError, StoreError
*/
package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// =============================================================================
// INVOICE REPOSITORY
// =============================================================================

// InvoiceRepository holds the canonical invoice collection.
type InvoiceRepository struct {
	mu       sync.RWMutex
	store    RecordStore
	log      *zap.Logger
	invoices map[InvoiceID]Invoice
}

// NewInvoiceRepository loads the invoice collection from the store.
// Corrupt records are dropped (and logged); a store-level load failure
// is returned as a StoreError.
func NewInvoiceRepository(ctx context.Context, store RecordStore, log *zap.Logger) (*InvoiceRepository, error) {
	if log == nil {
		log = zap.NewNop()
	}
	r := &InvoiceRepository{
		store:    store,
		log:      log,
		invoices: make(map[InvoiceID]Invoice),
	}

	records, err := store.GetAll(ctx, CollectionInvoices)
	if err != nil {
		return nil, &StoreError{Op: "load", Err: err}
	}
	for _, rec := range records {
		inv, err := decodeInvoice(rec.Doc)
		if err != nil {
			r.log.Warn("dropping corrupt invoice record",
				zap.String("record_id", rec.ID),
				zap.Error(err))
			continue
		}
		r.invoices[inv.ID] = inv
	}
	return r, nil
}

// Add validates, normalizes, and stores a new invoice. An invoice with an
// empty ID gets a generated one. Rejected invoices never become visible.
func (r *InvoiceRepository) Add(ctx context.Context, inv Invoice) error {
	if inv.ID == "" {
		inv.ID = InvoiceID(uuid.NewString())
	}
	inv, err := inv.normalized()
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.invoices[inv.ID] = inv
	r.mu.Unlock()

	return r.persist(ctx, inv)
}

// Remove deletes an invoice by id. Removing an unknown id is a no-op.
func (r *InvoiceRepository) Remove(ctx context.Context, id InvoiceID) error {
	r.mu.Lock()
	_, ok := r.invoices[id]
	if ok {
		delete(r.invoices, id)
	}
	r.mu.Unlock()
	if !ok {
		return nil
	}

	if err := r.store.Delete(ctx, CollectionInvoices, string(id)); err != nil {
		return &StoreError{Op: "delete", Err: err}
	}
	return nil
}

// InvoicePatch carries the fields of a partial update. Nil means "leave
// unchanged".
type InvoicePatch struct {
	ClientName    *string
	Amount        *decimal.Decimal
	Date          *Date
	CommissionPct *decimal.Decimal
	InvoicedBy    *Firm
	ReferredBy    *Firm
	Paid          *bool
}

// Update merges the patch onto the existing record, then re-validates and
// re-normalizes the merged result. If validation fails the update is
// rejected and the stored record is untouched. Unknown ids are a no-op.
func (r *InvoiceRepository) Update(ctx context.Context, id InvoiceID, patch InvoicePatch) error {
	r.mu.Lock()
	current, ok := r.invoices[id]
	if !ok {
		r.mu.Unlock()
		return nil
	}

	merged := current
	if patch.ClientName != nil {
		merged.ClientName = *patch.ClientName
	}
	if patch.Amount != nil {
		merged.Amount = *patch.Amount
	}
	if patch.Date != nil {
		merged.Date = *patch.Date
	}
	if patch.CommissionPct != nil {
		merged.CommissionPct = *patch.CommissionPct
	}
	if patch.InvoicedBy != nil {
		merged.InvoicedBy = *patch.InvoicedBy
	}
	if patch.ReferredBy != nil {
		merged.ReferredBy = *patch.ReferredBy
	}
	if patch.Paid != nil {
		merged.Paid = *patch.Paid
	}

	merged, err := merged.normalized()
	if err != nil {
		r.mu.Unlock()
		return err
	}
	merged.ID = id // identity is not patchable
	r.invoices[id] = merged
	r.mu.Unlock()

	return r.persist(ctx, merged)
}

// TogglePaid flips the paid flag. Unknown ids are a no-op.
func (r *InvoiceRepository) TogglePaid(ctx context.Context, id InvoiceID) error {
	r.mu.Lock()
	inv, ok := r.invoices[id]
	if !ok {
		r.mu.Unlock()
		return nil
	}
	inv.Paid = !inv.Paid
	r.invoices[id] = inv
	r.mu.Unlock()

	return r.persist(ctx, inv)
}

// Get returns one invoice by id.
func (r *InvoiceRepository) Get(id InvoiceID) (Invoice, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	inv, ok := r.invoices[id]
	return inv, ok
}

// List returns a snapshot of all current invoices. Order is unspecified;
// ordering is a presentation concern.
func (r *InvoiceRepository) List() []Invoice {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Invoice, 0, len(r.invoices))
	for _, inv := range r.invoices {
		out = append(out, inv)
	}
	return out
}

// persist writes one invoice through to the store. By the time this runs
// the in-memory mutation has already happened, so a failure means "your
// change is live but not yet durable", never a rollback.
func (r *InvoiceRepository) persist(ctx context.Context, inv Invoice) error {
	doc, err := encodeInvoice(inv)
	if err != nil {
		return &StoreError{Op: "put", Err: err}
	}
	if err := r.store.Put(ctx, CollectionInvoices, string(inv.ID), doc); err != nil {
		return &StoreError{Op: "put", Err: err}
	}
	return nil
}

// =============================================================================
// VALIDATION & NORMALIZATION
// =============================================================================

// normalized returns a canonicalized copy of the invoice, or a validation
// error if any invariant fails. The receiver is never mutated.
func (inv Invoice) normalized() (Invoice, error) {
	inv.ClientName = strings.TrimSpace(inv.ClientName)

	if f, ok := ParseFirm(string(inv.InvoicedBy)); ok {
		inv.InvoicedBy = f
	} else {
		return Invoice{}, &InvalidInvoiceError{ID: inv.ID, Field: "invoicedByFirm", Reason: "is not a known firm"}
	}
	if f, ok := ParseFirm(string(inv.ReferredBy)); ok {
		inv.ReferredBy = f
	} else {
		return Invoice{}, &InvalidInvoiceError{ID: inv.ID, Field: "referredByFirm", Reason: "is not a known firm"}
	}

	if inv.Date.IsZero() {
		return Invoice{}, &InvalidInvoiceError{ID: inv.ID, Field: "date", Reason: "is missing or unparseable"}
	}
	if inv.Amount.IsNegative() {
		return Invoice{}, &InvalidInvoiceError{ID: inv.ID, Field: "amount", Reason: "must be non-negative"}
	}
	if inv.CommissionPct.IsNegative() || inv.CommissionPct.GreaterThan(hundred) {
		return Invoice{}, &InvalidInvoiceError{ID: inv.ID, Field: "commissionPercentage", Reason: "must be between 0 and 100"}
	}
	return inv, nil
}

// =============================================================================
// DOCUMENT CODEC
// =============================================================================

// invoiceDoc is the stored JSON shape. Decoding is tolerant: numeric
// fields accept JSON numbers or numeric strings, dates accept every
// layout in dateFormats, and firm names are matched case-insensitively.
// Encoding always emits the canonical forms.
type invoiceDoc struct {
	ID            string     `json:"id"`
	ClientName    string     `json:"clientName"`
	Amount        flexNumber `json:"amount"`
	Date          string     `json:"date"`
	CommissionPct flexNumber `json:"commissionPercentage"`
	InvoicedBy    string     `json:"invoicedByFirm"`
	ReferredBy    string     `json:"referredByFirm"`
	Paid          bool       `json:"isPaid"`
}

// flexNumber decodes a decimal from either a JSON number or a numeric
// string. Externally produced records use both.
type flexNumber struct {
	decimal.Decimal
}

func (n *flexNumber) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(bytes.TrimSpace(data), `"`)
	d, err := decimal.NewFromString(string(data))
	if err != nil {
		return err
	}
	n.Decimal = d
	return nil
}

func (n flexNumber) MarshalJSON() ([]byte, error) {
	return []byte(n.Decimal.String()), nil
}

func decodeInvoice(doc []byte) (Invoice, error) {
	var d invoiceDoc
	if err := json.Unmarshal(doc, &d); err != nil {
		return Invoice{}, err
	}
	if d.ID == "" {
		return Invoice{}, &InvalidInvoiceError{Field: "id", Reason: "is missing"}
	}
	date, err := ParseDate(d.Date)
	if err != nil {
		return Invoice{}, &InvalidInvoiceError{ID: InvoiceID(d.ID), Field: "date", Reason: "is unparseable"}
	}
	inv := Invoice{
		ID:            InvoiceID(d.ID),
		ClientName:    d.ClientName,
		Amount:        d.Amount.Decimal,
		Date:          date,
		CommissionPct: d.CommissionPct.Decimal,
		InvoicedBy:    Firm(d.InvoicedBy),
		ReferredBy:    Firm(d.ReferredBy),
		Paid:          d.Paid,
	}
	return inv.normalized()
}

func encodeInvoice(inv Invoice) ([]byte, error) {
	return json.Marshal(invoiceDoc{
		ID:            string(inv.ID),
		ClientName:    inv.ClientName,
		Amount:        flexNumber{inv.Amount},
		Date:          inv.Date.String(),
		CommissionPct: flexNumber{inv.CommissionPct},
		InvoicedBy:    string(inv.InvoicedBy),
		ReferredBy:    string(inv.ReferredBy),
		Paid:          inv.Paid,
	})
}
