/*
commission.go - Obligation derivation

PURPOSE:
  Turns one invoice plus a viewpoint firm into the commissions that exist
  from that firm's perspective. The same invoice yields different
  obligations depending on who is looking: the referrer sees money to
  receive, the invoicer sees money to pay, a third firm sees nothing.

  Pure function, no I/O. The amount is always derived from the source
  invoice so it cannot drift, and no rounding happens here: callers
  aggregate at full precision and round only for display.
*/
package engine

// CommissionsFor returns the obligations the invoice creates from the
// viewpoint firm's perspective: zero, one, or two elements.
//
// Rules:
//   - unpaid invoices create no obligations
//   - a self-referred, self-invoiced engagement creates none either:
//     a firm does not owe itself a commission
//   - the referring firm is owed amount × pct / 100 by the invoicing firm
//   - the invoicing firm owes the same amount to the referring firm
func CommissionsFor(inv Invoice, viewpoint Firm) []Obligation {
	if !inv.Paid || inv.SelfReferred() {
		return nil
	}

	var out []Obligation
	commission := inv.CommissionAmount()

	if inv.ReferredBy == viewpoint && inv.InvoicedBy != viewpoint {
		out = append(out, Obligation{
			InvoiceID:    inv.ID,
			Amount:       commission,
			Direction:    ToReceive,
			Counterparty: inv.InvoicedBy,
		})
	}
	if inv.InvoicedBy == viewpoint && inv.ReferredBy != viewpoint {
		out = append(out, Obligation{
			InvoiceID:    inv.ID,
			Amount:       commission,
			Direction:    ToPay,
			Counterparty: inv.ReferredBy,
		})
	}
	return out
}
