package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hengadev/medikeep"
)

// MemoryStore is an in-memory DocumentStore for tests and local development.
// Listeners are re-invoked synchronously after every mutation, mirroring the
// push-based live-query semantics of the real backend.
type MemoryStore struct {
	mu        sync.RWMutex
	data      map[string]map[string]map[string]any // collection -> id -> fields
	listeners map[string][]*memListener
}

type memListener struct {
	ctx     context.Context
	orderBy string
	fn      func([]Document)
}

// NewMemoryStore creates an empty in-memory document store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data:      make(map[string]map[string]map[string]any),
		listeners: make(map[string][]*memListener),
	}
}

func (m *MemoryStore) Add(_ context.Context, collection string, fields map[string]any) (string, error) {
	m.mu.Lock()
	id := uuid.NewString()
	m.put(collection, id, fields)
	m.mu.Unlock()

	m.notify(collection)
	return id, nil
}

func (m *MemoryStore) Set(_ context.Context, collection, id string, fields map[string]any) error {
	m.mu.Lock()
	m.put(collection, id, fields)
	m.mu.Unlock()

	m.notify(collection)
	return nil
}

func (m *MemoryStore) Update(_ context.Context, collection, id string, fields map[string]any) error {
	m.mu.Lock()
	existing, ok := m.data[collection][id]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s/%s", medikeep.ErrRecordNotFound, collection, id)
	}
	for k, v := range fields {
		existing[k] = v
	}
	m.mu.Unlock()

	m.notify(collection)
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, collection, id string) error {
	m.mu.Lock()
	if _, ok := m.data[collection][id]; !ok {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s/%s", medikeep.ErrRecordNotFound, collection, id)
	}
	delete(m.data[collection], id)
	m.mu.Unlock()

	m.notify(collection)
	return nil
}

func (m *MemoryStore) Get(_ context.Context, collection, id string) (Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	fields, ok := m.data[collection][id]
	if !ok {
		return Document{}, fmt.Errorf("%w: %s/%s", medikeep.ErrRecordNotFound, collection, id)
	}
	return Document{ID: id, Fields: cloneFields(fields)}, nil
}

func (m *MemoryStore) Query(_ context.Context, collection, orderBy string) ([]Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshot(collection, orderBy), nil
}

func (m *MemoryStore) Listen(ctx context.Context, collection, orderBy string, fn func([]Document)) error {
	l := &memListener{ctx: ctx, orderBy: orderBy, fn: fn}

	m.mu.Lock()
	m.listeners[collection] = append(m.listeners[collection], l)
	snap := m.snapshot(collection, orderBy)
	m.mu.Unlock()

	// Initial emission, matching the live-query contract.
	fn(snap)
	return nil
}

// put assumes the write lock is held.
func (m *MemoryStore) put(collection, id string, fields map[string]any) {
	if m.data[collection] == nil {
		m.data[collection] = make(map[string]map[string]any)
	}
	m.data[collection][id] = cloneFields(fields)
}

// snapshot assumes at least the read lock is held.
func (m *MemoryStore) snapshot(collection, orderBy string) []Document {
	docs := make([]Document, 0, len(m.data[collection]))
	for id, fields := range m.data[collection] {
		docs = append(docs, Document{ID: id, Fields: cloneFields(fields)})
	}
	sort.SliceStable(docs, func(i, j int) bool {
		return lessFieldValue(docs[i].Fields[orderBy], docs[j].Fields[orderBy])
	})
	return docs
}

func (m *MemoryStore) notify(collection string) {
	m.mu.RLock()
	listeners := append([]*memListener(nil), m.listeners[collection]...)
	m.mu.RUnlock()

	for _, l := range listeners {
		if l.ctx.Err() != nil {
			continue
		}
		m.mu.RLock()
		snap := m.snapshot(collection, l.orderBy)
		m.mu.RUnlock()
		l.fn(snap)
	}
}

func cloneFields(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	return out
}

func lessFieldValue(a, b any) bool {
	switch av := a.(type) {
	case time.Time:
		if bv, ok := b.(time.Time); ok {
			return av.Before(bv)
		}
	case string:
		if bv, ok := b.(string); ok {
			return av < bv
		}
	case int64:
		if bv, ok := b.(int64); ok {
			return av < bv
		}
	}
	return false
}
