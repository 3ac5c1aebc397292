// prefs.go - Last-viewed period preference.
//
// Not business data: this is the (year, quarter) the user was looking at,
// persisted so the UI can reopen where it left off. A corrupt or absent
// value simply reads as "no preference".
package engine

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"
)

const selectedPeriodID = "selected-period"

type periodDoc struct {
	Year    int `json:"year"`
	Quarter int `json:"quarter"`
}

// Preferences persists small per-user UI state in the record store.
type Preferences struct {
	store RecordStore
	log   *zap.Logger
}

func NewPreferences(store RecordStore, log *zap.Logger) *Preferences {
	if log == nil {
		log = zap.NewNop()
	}
	return &Preferences{store: store, log: log}
}

// SaveSelectedPeriod records the last-viewed quarter.
func (p *Preferences) SaveSelectedPeriod(ctx context.Context, q Quarter) error {
	if q.Q < 1 || q.Q > 4 {
		return ErrInvalidQuarterKey
	}
	doc, err := json.Marshal(periodDoc{Year: q.Year, Quarter: q.Q})
	if err != nil {
		return &StoreError{Op: "put", Err: err}
	}
	if err := p.store.Put(ctx, CollectionPreferences, selectedPeriodID, doc); err != nil {
		return &StoreError{Op: "put", Err: err}
	}
	return nil
}

// SelectedPeriod returns the last-viewed quarter, or ok=false when none
// has been stored (or the stored value is unusable).
func (p *Preferences) SelectedPeriod(ctx context.Context) (Quarter, bool, error) {
	records, err := p.store.GetAll(ctx, CollectionPreferences)
	if err != nil {
		return Quarter{}, false, &StoreError{Op: "load", Err: err}
	}
	for _, rec := range records {
		if rec.ID != selectedPeriodID {
			continue
		}
		var d periodDoc
		if err := json.Unmarshal(rec.Doc, &d); err != nil || d.Quarter < 1 || d.Quarter > 4 {
			p.log.Warn("ignoring corrupt selected-period preference", zap.Error(err))
			return Quarter{}, false, nil
		}
		return Quarter{Year: d.Year, Q: d.Quarter}, true, nil
	}
	return Quarter{}, false, nil
}
