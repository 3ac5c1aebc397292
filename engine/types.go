/*
Package engine provides the commission and settlement reconciliation engine.

PURPOSE:
  This package contains the domain types and algorithms for tracking
  referral invoices between a fixed set of partner firms, deriving
  commission obligations from paid invoices, aggregating those obligations
  per calendar quarter, and tracking per-quarter settlement state.

KEY CONCEPTS IN THIS FILE (types.go):
  - Firm: A closed enumeration of the three cooperating firms
  - Invoice: One billable engagement, the only persisted business record
  - Obligation: A derived commission amount, never stored
  - Settlement: A per-quarter, per-firm "this is resolved" marker

DESIGN PRINCIPLES:
  1. Derivation over storage: commission amounts are always recomputed
     from the source invoice so they cannot drift
  2. Precision: decimal.Decimal for all money math; rounding is a
     presentation concern and never happens in this package
  3. Closed enumeration: a Firm outside the known set is invalid data,
     not a new participant

SEE ALSO:
  - commission.go: Obligation derivation rules
  - repository.go: Invoice validation, normalization, persistence
  - ledger.go: Settlement state transitions
*/
package engine

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// FIRM - Closed enumeration of cooperating firms
// =============================================================================

// Firm identifies one of the three cooperating partner firms.
// The set is fixed; any other value is invalid.
type Firm string

const (
	FirmSkallars Firm = "SKALLARS"
	FirmMKMs     Firm = "MKMs"
	FirmContax   Firm = "Contax"
)

// Firms returns every member of the enumeration, in canonical order.
// Aggregation uses this to build fixed-shape per-firm buckets, so every
// bucket exists before the first invoice is seen.
func Firms() [3]Firm {
	return [3]Firm{FirmSkallars, FirmMKMs, FirmContax}
}

// Valid reports whether f is a member of the enumeration.
func (f Firm) Valid() bool {
	switch f {
	case FirmSkallars, FirmMKMs, FirmContax:
		return true
	}
	return false
}

// ParseFirm coerces a free-form string to a Firm, case-insensitively.
// This is the single normalization point for firm names arriving from
// storage or the API.
func ParseFirm(s string) (Firm, bool) {
	for _, f := range Firms() {
		if strings.EqualFold(strings.TrimSpace(s), string(f)) {
			return f, true
		}
	}
	return "", false
}

// =============================================================================
// INVOICE - One billable engagement
// =============================================================================

type InvoiceID string

// Invoice is the canonical, normalized invoice record.
//
// INVARIANTS (enforced by the repository, see validate()):
//   - Amount >= 0
//   - CommissionPct in [0, 100]
//   - Date is a real calendar date
//   - InvoicedBy and ReferredBy are valid Firms
type Invoice struct {
	ID            InvoiceID
	ClientName    string
	Amount        decimal.Decimal
	Date          Date
	CommissionPct decimal.Decimal
	InvoicedBy    Firm
	ReferredBy    Firm
	Paid          bool
}

var hundred = decimal.NewFromInt(100)

// CommissionAmount returns Amount × CommissionPct / 100.
// Always derived, never stored.
func (inv Invoice) CommissionAmount() decimal.Decimal {
	return inv.Amount.Mul(inv.CommissionPct).Div(hundred)
}

// SelfReferred reports whether the invoice was referred by the firm that
// also issued it. Self-referred engagements produce no obligations.
func (inv Invoice) SelfReferred() bool {
	return inv.ReferredBy == inv.InvoicedBy
}

// =============================================================================
// OBLIGATION - Derived commission, the unit the aggregation layer groups
// =============================================================================

type Direction string

const (
	ToPay     Direction = "to_pay"
	ToReceive Direction = "to_receive"
)

// Obligation is one firm's side of a commission owed because of a referral
// on a paid invoice. It only exists transiently; nothing persists it.
type Obligation struct {
	InvoiceID    InvoiceID
	Amount       decimal.Decimal
	Direction    Direction
	Counterparty Firm
}

// =============================================================================
// SETTLEMENT - Per-quarter, per-firm resolution marker
// =============================================================================

// Settlement records that one firm considers a quarter's obligations
// resolved from its own point of view. At most one effective record
// exists per (QuarterKey, SettledBy); re-settling supersedes.
type Settlement struct {
	ID         string
	QuarterKey string
	SettledBy  Firm
	SettledAt  time.Time
}
