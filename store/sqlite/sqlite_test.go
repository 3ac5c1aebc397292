package sqlite_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/provizie/commission-engine/engine"
	"github.com/provizie/commission-engine/store/sqlite"
)

func newTestStore(t *testing.T) *sqlite.Store {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStore_PutGetDelete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "invoices", "a", []byte(`{"id":"a","isPaid":true}`)))
	require.NoError(t, store.Put(ctx, "invoices", "b", []byte(`{"id":"b","isPaid":false}`)))
	require.NoError(t, store.Put(ctx, "settlements", "s", []byte(`{"id":"s"}`)))

	records, err := store.GetAll(ctx, "invoices")
	require.NoError(t, err)
	assert.Len(t, records, 2, "collections are isolated")

	require.NoError(t, store.Delete(ctx, "invoices", "a"))
	records, err = store.GetAll(ctx, "invoices")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "b", records[0].ID)

	// Deleting an absent id is a no-op.
	assert.NoError(t, store.Delete(ctx, "invoices", "missing"))
}

func TestStore_Put_Upserts(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "invoices", "a", []byte(`{"id":"a","clientName":"old"}`)))
	require.NoError(t, store.Put(ctx, "invoices", "a", []byte(`{"id":"a","clientName":"new"}`)))

	records, err := store.GetAll(ctx, "invoices")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Contains(t, string(records[0].Doc), "new")
}

func TestStore_Query_ByTopLevelField(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "settlements", "s1",
		[]byte(`{"id":"s1","quarterKey":"2024-Q2","settledBy":"SKALLARS"}`)))
	require.NoError(t, store.Put(ctx, "settlements", "s2",
		[]byte(`{"id":"s2","quarterKey":"2024-Q3","settledBy":"SKALLARS"}`)))

	records, err := store.Query(ctx, "settlements", "quarterKey", "2024-Q2")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "s1", records[0].ID)

	records, err = store.Query(ctx, "settlements", "quarterKey", "2030-Q1")
	require.NoError(t, err)
	assert.Empty(t, records)
}

// The engine must behave identically over SQLite and the memory store.
func TestStore_BacksTheEngine(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	ledger, err := engine.NewSettlementLedger(ctx, store, nil)
	require.NoError(t, err)

	require.NoError(t, ledger.Settle(ctx, "2024-Q2", engine.FirmContax))
	require.NoError(t, ledger.Settle(ctx, "2024-Q2", engine.FirmContax))

	records, err := store.GetAll(ctx, engine.CollectionSettlements)
	require.NoError(t, err)
	assert.Len(t, records, 1, "re-settle supersedes in SQLite too")

	reloaded, err := engine.NewSettlementLedger(ctx, store, nil)
	require.NoError(t, err)
	assert.True(t, reloaded.IsSettled("2024-Q2", engine.FirmContax))
}
