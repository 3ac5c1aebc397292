/*
ledger.go - Settlement state per (quarter, firm)

PURPOSE:
  Tracks whether a firm has marked a quarter's obligations resolved from
  its own point of view. Settlement is a marker, not a money movement:
  the actual payment happens outside the system.

CRITICAL INVARIANTS:
  1. At most one effective record per (quarterKey, settledBy). Settling
     an already-settled key supersedes the prior record instead of
     accumulating duplicates.
  2. Unsettle removes the record entirely rather than flipping a flag,
     so a stale SettledAt can never survive an unsettle/resettle cycle.
  3. Settlement is per-viewpoint. The counterparty's view is unaffected;
     no mutual agreement is modeled.

CONCURRENT CLIENTS:
  When the backing store is shared, settle/unsettle from independent
  clients is last-write-wins. No conflict detection.

SEE ALSO:
  - aggregate.go: Stamps summaries with IsSettled
  - types.go: Settlement record shape
*/
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// errNotEffective marks a stored settlement that carries isSettled=false.
// Such records are residue from older clients and are treated as absent.
var errNotEffective = errors.New("settlement record is not effective")

// settlementKey identifies the effective record for one firm's view of
// one quarter.
type settlementKey struct {
	QuarterKey string
	SettledBy  Firm
}

// =============================================================================
// SETTLEMENT LEDGER
// =============================================================================

// SettlementLedger tracks settle/unsettle state, write-through to the
// record store.
type SettlementLedger struct {
	mu    sync.RWMutex
	store RecordStore
	log   *zap.Logger
	now   func() time.Time

	settlements map[settlementKey]Settlement
}

// NewSettlementLedger loads settlement state from the store. Corrupt
// records are dropped and logged. If the store holds several records for
// one key (residue of an older append-only client), only the newest
// survives in memory; the duplicates are superseded on the next settle.
func NewSettlementLedger(ctx context.Context, store RecordStore, log *zap.Logger) (*SettlementLedger, error) {
	if log == nil {
		log = zap.NewNop()
	}
	l := &SettlementLedger{
		store:       store,
		log:         log,
		now:         time.Now,
		settlements: make(map[settlementKey]Settlement),
	}

	records, err := store.GetAll(ctx, CollectionSettlements)
	if err != nil {
		return nil, &StoreError{Op: "load", Err: err}
	}
	for _, rec := range records {
		s, err := decodeSettlement(rec.Doc)
		if errors.Is(err, errNotEffective) {
			continue
		}
		if err != nil {
			l.log.Warn("dropping corrupt settlement record",
				zap.String("record_id", rec.ID),
				zap.Error(err))
			continue
		}
		k := settlementKey{QuarterKey: s.QuarterKey, SettledBy: s.SettledBy}
		if prior, ok := l.settlements[k]; ok && prior.SettledAt.After(s.SettledAt) {
			continue
		}
		l.settlements[k] = s
	}
	return l, nil
}

// IsSettled reports whether an effective settlement record exists for the
// quarter from the firm's point of view.
func (l *SettlementLedger) IsSettled(quarterKey string, firm Firm) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.settlements[settlementKey{QuarterKey: quarterKey, SettledBy: firm}]
	return ok
}

// Settled returns the effective settlement record, if any.
func (l *SettlementLedger) Settled(quarterKey string, firm Firm) (Settlement, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	s, ok := l.settlements[settlementKey{QuarterKey: quarterKey, SettledBy: firm}]
	return s, ok
}

// Settle marks the quarter settled from the firm's point of view.
// Idempotent: calling twice leaves exactly one effective record, with
// SettledAt reflecting the most recent call. Any prior record for the
// same key is removed from the store before the new one is inserted.
func (l *SettlementLedger) Settle(ctx context.Context, quarterKey string, firm Firm) error {
	if _, err := ParseQuarterKey(quarterKey); err != nil {
		return ErrInvalidQuarterKey
	}
	if !firm.Valid() {
		return ErrInvalidFirm
	}

	s := Settlement{
		ID:         uuid.NewString(),
		QuarterKey: quarterKey,
		SettledBy:  firm,
		SettledAt:  l.now().UTC(),
	}

	k := settlementKey{QuarterKey: quarterKey, SettledBy: firm}
	l.mu.Lock()
	l.settlements[k] = s
	l.mu.Unlock()

	// Supersede before insert so duplicates never accumulate.
	if err := l.sweepStored(ctx, quarterKey, firm); err != nil {
		return err
	}
	doc, err := encodeSettlement(s)
	if err != nil {
		return &StoreError{Op: "put", Err: err}
	}
	if err := l.store.Put(ctx, CollectionSettlements, s.ID, doc); err != nil {
		return &StoreError{Op: "put", Err: err}
	}
	return nil
}

// Unsettle removes the effective record for the key. Unsettling an
// already-unsettled key is a no-op.
func (l *SettlementLedger) Unsettle(ctx context.Context, quarterKey string, firm Firm) error {
	k := settlementKey{QuarterKey: quarterKey, SettledBy: firm}

	l.mu.Lock()
	_, ok := l.settlements[k]
	if ok {
		delete(l.settlements, k)
	}
	l.mu.Unlock()
	if !ok {
		return nil
	}

	// Sweep by query, not by the remembered record id: duplicate records
	// from older append-only clients must go too, or the settlement would
	// reappear on the next load.
	return l.sweepStored(ctx, quarterKey, firm)
}

// sweepStored deletes every stored settlement record for the
// (quarterKey, firm) key. Records of other firms for the same quarter,
// and records that cannot be attributed to a firm, are left alone.
func (l *SettlementLedger) sweepStored(ctx context.Context, quarterKey string, firm Firm) error {
	stale, err := l.store.Query(ctx, CollectionSettlements, "quarterKey", quarterKey)
	if err != nil {
		return &StoreError{Op: "query", Err: err}
	}
	for _, rec := range stale {
		old, err := decodeSettlement(rec.Doc)
		if err != nil || old.SettledBy != firm {
			continue
		}
		if err := l.store.Delete(ctx, CollectionSettlements, rec.ID); err != nil {
			return &StoreError{Op: "delete", Err: err}
		}
	}
	return nil
}

// =============================================================================
// DOCUMENT CODEC
// =============================================================================

type settlementDoc struct {
	ID         string `json:"id"`
	QuarterKey string `json:"quarterKey"`
	SettledBy  string `json:"settledBy"`
	SettledAt  string `json:"settledAt"`
	IsSettled  bool   `json:"isSettled"`
}

func decodeSettlement(doc []byte) (Settlement, error) {
	var d settlementDoc
	if err := json.Unmarshal(doc, &d); err != nil {
		return Settlement{}, err
	}
	if d.ID == "" {
		return Settlement{}, errors.New("settlement record has no id")
	}
	if !d.IsSettled {
		// A record that exists but claims unsettled carries no meaning;
		// unsettle deletes records, it does not write false flags.
		return Settlement{}, errNotEffective
	}
	firm, ok := ParseFirm(d.SettledBy)
	if !ok {
		return Settlement{}, ErrInvalidFirm
	}
	if _, err := ParseQuarterKey(d.QuarterKey); err != nil {
		return Settlement{}, ErrInvalidQuarterKey
	}
	at, err := time.Parse(time.RFC3339, d.SettledAt)
	if err != nil {
		return Settlement{}, err
	}
	return Settlement{
		ID:         d.ID,
		QuarterKey: d.QuarterKey,
		SettledBy:  firm,
		SettledAt:  at,
	}, nil
}

func encodeSettlement(s Settlement) ([]byte, error) {
	return json.Marshal(settlementDoc{
		ID:         s.ID,
		QuarterKey: s.QuarterKey,
		SettledBy:  string(s.SettledBy),
		SettledAt:  s.SettledAt.Format(time.RFC3339),
		IsSettled:  true,
	})
}
