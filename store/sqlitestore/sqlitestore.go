// Package sqlitestore implements the store.DocumentStore boundary on an
// embedded SQLite database. It backs local development and on-device
// deployments where the cloud document store is unavailable; documents are
// kept as JSON so the field layout stays identical to the remote encoding.
package sqlitestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/hengadev/medikeep"
	"github.com/hengadev/medikeep/store"
)

// Store is a SQLite-backed DocumentStore. Listeners are notified after every
// mutation, like the real push-based backend.
type Store struct {
	db *sql.DB

	mu        sync.RWMutex
	listeners map[string][]*listener
}

type listener struct {
	ctx     context.Context
	orderBy string
	fn      func([]store.Document)
}

// Open opens (creating if needed) the document database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open document database: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS documents (
			collection TEXT NOT NULL,
			id         TEXT NOT NULL,
			fields     TEXT NOT NULL,
			PRIMARY KEY (collection, id)
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize document schema: %w", err)
	}

	return &Store{db: db, listeners: make(map[string][]*listener)}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Add(ctx context.Context, collection string, fields map[string]any) (string, error) {
	id := uuid.NewString()
	if err := s.Set(ctx, collection, id, fields); err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) Set(ctx context.Context, collection, id string, fields map[string]any) error {
	payload, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("failed to encode document %s/%s: %w", collection, id, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO documents (collection, id, fields) VALUES (?, ?, ?)
		ON CONFLICT (collection, id) DO UPDATE SET fields = excluded.fields
	`, collection, id, string(payload))
	if err != nil {
		return fmt.Errorf("%w: failed to store document %s/%s: %w", medikeep.ErrStoreFailure, collection, id, err)
	}

	s.notify(ctx, collection)
	return nil
}

func (s *Store) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	doc, err := s.Get(ctx, collection, id)
	if err != nil {
		return err
	}
	for k, v := range fields {
		doc.Fields[k] = v
	}
	return s.Set(ctx, collection, id, doc.Fields)
}

func (s *Store) Delete(ctx context.Context, collection, id string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM documents WHERE collection = ? AND id = ?`, collection, id)
	if err != nil {
		return fmt.Errorf("%w: failed to delete document %s/%s: %w", medikeep.ErrStoreFailure, collection, id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s/%s", medikeep.ErrRecordNotFound, collection, id)
	}

	s.notify(ctx, collection)
	return nil
}

func (s *Store) Get(ctx context.Context, collection, id string) (store.Document, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT fields FROM documents WHERE collection = ? AND id = ?`, collection, id)

	var payload string
	err := row.Scan(&payload)
	if err == sql.ErrNoRows {
		return store.Document{}, fmt.Errorf("%w: %s/%s", medikeep.ErrRecordNotFound, collection, id)
	} else if err != nil {
		return store.Document{}, fmt.Errorf("%w: failed to fetch document %s/%s: %w", medikeep.ErrStoreFailure, collection, id, err)
	}

	fields, err := decodeFields(payload)
	if err != nil {
		return store.Document{}, fmt.Errorf("corrupt document %s/%s: %w", collection, id, err)
	}
	return store.Document{ID: id, Fields: fields}, nil
}

func (s *Store) Query(ctx context.Context, collection, orderBy string) ([]store.Document, error) {
	// RFC 3339 timestamps and encoded scalars both sort correctly as text,
	// so a json_extract ordering matches the remote store's semantics.
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, fields FROM documents
		WHERE collection = ?
		ORDER BY json_extract(fields, '$.'||?) ASC
	`, collection, orderBy)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query collection %s: %w", medikeep.ErrStoreFailure, collection, err)
	}
	defer rows.Close()

	var docs []store.Document
	for rows.Next() {
		var id, payload string
		if err := rows.Scan(&id, &payload); err != nil {
			return nil, fmt.Errorf("%w: failed to scan document in %s: %w", medikeep.ErrStoreFailure, collection, err)
		}
		fields, err := decodeFields(payload)
		if err != nil {
			return nil, fmt.Errorf("corrupt document %s/%s: %w", collection, id, err)
		}
		docs = append(docs, store.Document{ID: id, Fields: fields})
	}
	return docs, rows.Err()
}

func (s *Store) Listen(ctx context.Context, collection, orderBy string, fn func([]store.Document)) error {
	l := &listener{ctx: ctx, orderBy: orderBy, fn: fn}

	s.mu.Lock()
	s.listeners[collection] = append(s.listeners[collection], l)
	s.mu.Unlock()

	docs, err := s.Query(ctx, collection, orderBy)
	if err != nil {
		return err
	}
	fn(docs)
	return nil
}

func (s *Store) notify(ctx context.Context, collection string) {
	s.mu.RLock()
	listeners := append([]*listener(nil), s.listeners[collection]...)
	s.mu.RUnlock()

	for _, l := range listeners {
		if l.ctx.Err() != nil {
			continue
		}
		if docs, err := s.Query(ctx, collection, l.orderBy); err == nil {
			l.fn(docs)
		}
	}
}

func decodeFields(payload string) (map[string]any, error) {
	var fields map[string]any
	if err := json.Unmarshal([]byte(payload), &fields); err != nil {
		return nil, err
	}
	return fields, nil
}
