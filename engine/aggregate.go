/*
aggregate.go - Quarterly commission summaries

PURPOSE:
  Folds the invoice collection through the commission calculator, grouped
  by quarter and by counterparty firm, producing the summaries that
  presentation code consumes. A summary answers, for one viewpoint firm
  and one quarter: how much do I receive, from whom, backed by which
  invoices; how much do I pay, to whom, backed by which invoices; what is
  the net; and have I marked this quarter settled.

ALGORITHM:
  One pass over the invoice collection. Each paid invoice is run through
  CommissionsFor from the viewpoint firm's perspective and the resulting
  obligations are bucketed by quarter key and counterparty. Linear in
  invoice count; no per-quarter re-filtering.

FIXED-SHAPE BUCKETS:
  Per-firm buckets are created for every member of the closed Firm
  enumeration up front, so a bucket exists whether or not any invoice
  ever touched that firm.

SEE ALSO:
  - commission.go: Per-invoice derivation
  - ledger.go: Settlement status source
*/
package engine

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SUMMARY SHAPES
// =============================================================================

// FirmBucket is one counterparty's share of a direction total, with the
// invoice ids that produced it. The id list lets a settlement action be
// scoped to exactly the invoices it covers.
type FirmBucket struct {
	Amount     decimal.Decimal
	InvoiceIDs []InvoiceID
}

// DirectionSummary is one side (receive or pay) of a quarter, broken down
// by counterparty firm. ByFirm holds a bucket for every firm in the
// enumeration, including the viewpoint firm itself (always zero).
type DirectionSummary struct {
	Total  decimal.Decimal
	ByFirm map[Firm]FirmBucket
}

func newDirectionSummary() DirectionSummary {
	byFirm := make(map[Firm]FirmBucket, len(Firms()))
	for _, f := range Firms() {
		byFirm[f] = FirmBucket{Amount: decimal.Zero}
	}
	return DirectionSummary{Total: decimal.Zero, ByFirm: byFirm}
}

func (ds *DirectionSummary) add(ob Obligation) {
	ds.Total = ds.Total.Add(ob.Amount)
	bucket := ds.ByFirm[ob.Counterparty]
	bucket.Amount = bucket.Amount.Add(ob.Amount)
	bucket.InvoiceIDs = append(bucket.InvoiceIDs, ob.InvoiceID)
	ds.ByFirm[ob.Counterparty] = bucket
}

// QuarterSummary is the aggregate for one quarter from one firm's
// viewpoint. Net = ToReceive.Total - ToPay.Total.
type QuarterSummary struct {
	Quarter   Quarter
	ToReceive DirectionSummary
	ToPay     DirectionSummary
	Net       decimal.Decimal
	Settled   bool
}

// =============================================================================
// PURE AGGREGATION
// =============================================================================

// Aggregate buckets the obligations of all paid invoices by quarter, from
// the viewpoint firm's perspective. Pure: settlement status is not
// stamped here (see Aggregator). Results are sorted chronologically.
func Aggregate(invoices []Invoice, viewpoint Firm) []QuarterSummary {
	byQuarter := make(map[Quarter]*QuarterSummary)

	for _, inv := range invoices {
		for _, ob := range CommissionsFor(inv, viewpoint) {
			q := QuarterOf(inv.Date)
			summary, ok := byQuarter[q]
			if !ok {
				summary = &QuarterSummary{
					Quarter:   q,
					ToReceive: newDirectionSummary(),
					ToPay:     newDirectionSummary(),
					Net:       decimal.Zero,
				}
				byQuarter[q] = summary
			}
			switch ob.Direction {
			case ToReceive:
				summary.ToReceive.add(ob)
			case ToPay:
				summary.ToPay.add(ob)
			}
		}
	}

	out := make([]QuarterSummary, 0, len(byQuarter))
	for _, summary := range byQuarter {
		summary.Net = summary.ToReceive.Total.Sub(summary.ToPay.Total)
		out = append(out, *summary)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Quarter.before(out[j].Quarter) })
	return out
}

// =============================================================================
// AGGREGATOR - Repository + ledger fold
// =============================================================================

// Aggregator joins the invoice repository with the settlement ledger.
type Aggregator struct {
	Invoices    *InvoiceRepository
	Settlements *SettlementLedger
}

func NewAggregator(invoices *InvoiceRepository, settlements *SettlementLedger) *Aggregator {
	return &Aggregator{Invoices: invoices, Settlements: settlements}
}

// Summaries returns every quarter present among paid invoices, from the
// viewpoint firm's perspective, with settlement status stamped.
func (a *Aggregator) Summaries(ctx context.Context, viewpoint Firm) ([]QuarterSummary, error) {
	if !viewpoint.Valid() {
		return nil, ErrInvalidFirm
	}
	summaries := Aggregate(a.Invoices.List(), viewpoint)
	for i := range summaries {
		summaries[i].Settled = a.Settlements.IsSettled(summaries[i].Quarter.Key(), viewpoint)
	}
	return summaries, nil
}

// Summary returns one quarter's aggregate. A quarter with no obligations
// yields an empty summary, still stamped with settlement status.
func (a *Aggregator) Summary(ctx context.Context, viewpoint Firm, q Quarter) (QuarterSummary, error) {
	summaries, err := a.Summaries(ctx, viewpoint)
	if err != nil {
		return QuarterSummary{}, err
	}
	for _, s := range summaries {
		if s.Quarter == q {
			return s, nil
		}
	}
	return QuarterSummary{
		Quarter:   q,
		ToReceive: newDirectionSummary(),
		ToPay:     newDirectionSummary(),
		Net:       decimal.Zero,
		Settled:   a.Settlements.IsSettled(q.Key(), viewpoint),
	}, nil
}

// YearOverYearDelta returns the quarter's net balance minus the net of
// the same quarter one year earlier. A missing prior year counts as zero.
func (a *Aggregator) YearOverYearDelta(ctx context.Context, viewpoint Firm, q Quarter) (decimal.Decimal, error) {
	current, err := a.Summary(ctx, viewpoint, q)
	if err != nil {
		return decimal.Decimal{}, err
	}
	prior, err := a.Summary(ctx, viewpoint, q.PreviousYear())
	if err != nil {
		return decimal.Decimal{}, err
	}
	return current.Net.Sub(prior.Net), nil
}
