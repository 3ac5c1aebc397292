/*
store.go - Persistence boundary for the engine

PURPOSE:
  Defines the interface between the engine and whatever holds the durable
  copy of its state. The engine is storage-shape agnostic: it only needs a
  key-value-by-id record store with basic query-by-field capability, so the
  same code runs over local SQLite or a remote document database.

DOCUMENTS:
  Records are opaque JSON documents. The engine owns encoding and
  decoding; implementations never interpret a document beyond the
  top-level field comparison needed for Query.

COLLECTIONS:
  invoices:     canonical invoice records
  settlements:  per-(quarter, firm) settlement markers
  preferences:  user's last-viewed period (not business data)

FAILURE CONTRACT:
  A failed Put/Delete is reported to the caller, but the engine's
  in-memory state has already been mutated by then. There is no rollback
  and no automatic retry; retry is a caller concern.

IMPLEMENTATIONS:
  - store/sqlite: production SQLite document table
  - engine/store: in-memory, for tests and dev

SEE ALSO:
  - repository.go, ledger.go, prefs.go: The three consumers
*/
package engine

import "context"

// Collection names understood by every store implementation.
const (
	CollectionInvoices    = "invoices"
	CollectionSettlements = "settlements"
	CollectionPreferences = "preferences"
)

// Record is one stored document plus its id.
type Record struct {
	ID  string
	Doc []byte
}

// RecordStore is the engine's only persistence dependency.
type RecordStore interface {
	// GetAll returns every record in a collection, order unspecified.
	GetAll(ctx context.Context, collection string) ([]Record, error)

	// Put inserts or replaces the record with the given id.
	Put(ctx context.Context, collection, id string, doc []byte) error

	// Delete removes a record by id. Deleting an absent id is a no-op.
	Delete(ctx context.Context, collection, id string) error

	// Query returns records whose top-level JSON field equals value
	// (string comparison).
	Query(ctx context.Context, collection, field, value string) ([]Record, error)
}
