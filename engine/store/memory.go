// Package store provides RecordStore implementations.
package store

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/provizie/commission-engine/engine"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu          sync.RWMutex
	collections map[string]map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{collections: make(map[string]map[string][]byte)}
}

func (m *Memory) GetAll(_ context.Context, collection string) ([]engine.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	docs := m.collections[collection]
	out := make([]engine.Record, 0, len(docs))
	for id, doc := range docs {
		out = append(out, engine.Record{ID: id, Doc: cloneDoc(doc)})
	}
	return out, nil
}

func (m *Memory) Put(_ context.Context, collection, id string, doc []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	docs, ok := m.collections[collection]
	if !ok {
		docs = make(map[string][]byte)
		m.collections[collection] = docs
	}
	docs[id] = cloneDoc(doc)
	return nil
}

func (m *Memory) Delete(_ context.Context, collection, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.collections[collection], id)
	return nil
}

// Query matches records whose top-level field equals value. Non-string
// field values are compared against their JSON encoding, which is how a
// document store's equality filter behaves for scalars.
func (m *Memory) Query(_ context.Context, collection, field, value string) ([]engine.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []engine.Record
	for id, doc := range m.collections[collection] {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(doc, &fields); err != nil {
			continue
		}
		raw, ok := fields[field]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			s = string(raw)
		}
		if s == value {
			out = append(out, engine.Record{ID: id, Doc: cloneDoc(doc)})
		}
	}
	return out, nil
}

func cloneDoc(doc []byte) []byte {
	out := make([]byte, len(doc))
	copy(out, doc)
	return out
}
