package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/provizie/commission-engine/engine/store"
)

func TestMemory_QueryMatchesStringField(t *testing.T) {
	mem := store.NewMemory()
	ctx := context.Background()

	require.NoError(t, mem.Put(ctx, "settlements", "s1", []byte(`{"quarterKey":"2024-Q2"}`)))
	require.NoError(t, mem.Put(ctx, "settlements", "s2", []byte(`{"quarterKey":"2024-Q3"}`)))
	require.NoError(t, mem.Put(ctx, "settlements", "junk", []byte(`not json`)))

	records, err := mem.Query(ctx, "settlements", "quarterKey", "2024-Q2")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "s1", records[0].ID)
}

func TestMemory_ReturnsCopies(t *testing.T) {
	mem := store.NewMemory()
	ctx := context.Background()

	require.NoError(t, mem.Put(ctx, "invoices", "a", []byte(`{"id":"a"}`)))

	records, err := mem.GetAll(ctx, "invoices")
	require.NoError(t, err)
	records[0].Doc[0] = 'X'

	again, err := mem.GetAll(ctx, "invoices")
	require.NoError(t, err)
	assert.Equal(t, byte('{'), again[0].Doc[0], "mutating a returned doc must not touch the store")
}
