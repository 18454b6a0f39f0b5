// Package store defines the document-store boundary the record keeper
// persists through, and the RecordStore adapter that applies the field codec
// on the way in and out.
//
// The boundary is a generic per-user document store with listen/query
// semantics (the original deployment target is a cloud document database;
// tests use the in-memory implementation, and sqlitestore provides a local
// embedded one). No component here attempts conflict resolution: the same
// user may write from several devices and last write wins, delegated
// entirely to the backing store.
package store

import (
	"context"
	"sort"
	"time"

	"github.com/hengadev/medikeep"
)

// Collection names under the authenticated user's root.
const (
	CollectionRecords      = "records"
	CollectionAppointments = "appointments"
	CollectionProfile      = "profile"

	// ProfileDocID is the fixed document id holding the user profile.
	ProfileDocID = "profile"
)

// Document is one stored document: an opaque id assigned by the store plus
// its field map. Sensitive fields inside Fields are already encoded by the
// field codec before they reach a DocumentStore.
type Document struct {
	ID     string
	Fields map[string]any
}

// DocumentStore is the storage boundary, scoped to a single authenticated
// user. Implementations must propagate context cancellation and return
// errors as-is; retry policy belongs to the caller (and the core never
// retries).
type DocumentStore interface {
	// Add stores a new document and returns its assigned id.
	Add(ctx context.Context, collection string, fields map[string]any) (string, error)

	// Set stores a document under a caller-chosen id, creating or replacing it.
	Set(ctx context.Context, collection, id string, fields map[string]any) error

	// Update merges fields into an existing document.
	Update(ctx context.Context, collection, id string, fields map[string]any) error

	// Delete removes a document. Deleting a missing document is an error.
	Delete(ctx context.Context, collection, id string) error

	// Get fetches a single document, or medikeep.ErrRecordNotFound.
	Get(ctx context.Context, collection, id string) (Document, error)

	// Query returns all documents in a collection ordered ascending by the
	// named field.
	Query(ctx context.Context, collection, orderBy string) ([]Document, error)

	// Listen registers a push-based live query: the callback receives the
	// full ordered document list immediately and again after every change,
	// until the context is cancelled.
	Listen(ctx context.Context, collection, orderBy string, fn func([]Document)) error
}

// RecordStore persists domain values through a DocumentStore, encrypting
// sensitive fields via the codec on the way in and decrypting on the way
// out. It is the only place the two meet.
type RecordStore struct {
	docs  DocumentStore
	codec *medikeep.FieldCodec
}

// NewRecordStore creates the adapter.
func NewRecordStore(docs DocumentStore, codec *medikeep.FieldCodec) *RecordStore {
	return &RecordStore{docs: docs, codec: codec}
}

// SaveRecord persists a new record and returns its assigned id. CreatedAt is
// stamped here when the caller left it zero.
func (s *RecordStore) SaveRecord(ctx context.Context, r medikeep.HistoryRecord) (string, error) {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	return s.docs.Add(ctx, CollectionRecords, s.codec.EncodeRecord(ctx, r))
}

// UpdateRecord re-encodes and merges the record's mutable fields (title,
// notes, medicines, extracted text) into the stored document. Type and
// CreatedAt are not touched by user edits.
func (s *RecordStore) UpdateRecord(ctx context.Context, r medikeep.HistoryRecord) error {
	fields := s.codec.EncodeRecord(ctx, r)
	delete(fields, medikeep.FieldRecordType)
	delete(fields, medikeep.FieldCreatedAt)
	return s.docs.Update(ctx, CollectionRecords, r.ID, fields)
}

// DeleteRecord removes a record permanently.
func (s *RecordStore) DeleteRecord(ctx context.Context, id string) error {
	return s.docs.Delete(ctx, CollectionRecords, id)
}

// GetRecord fetches and decodes one record.
func (s *RecordStore) GetRecord(ctx context.Context, id string) (medikeep.HistoryRecord, error) {
	doc, err := s.docs.Get(ctx, CollectionRecords, id)
	if err != nil {
		return medikeep.HistoryRecord{}, err
	}
	return s.codec.DecodeRecord(ctx, doc.ID, doc.Fields), nil
}

// ListRecords returns all records decoded, sorted ascending by CreatedAt.
// This is the order the summary pipeline requires; callers wanting display
// order (newest first) reverse it themselves.
func (s *RecordStore) ListRecords(ctx context.Context) ([]medikeep.HistoryRecord, error) {
	docs, err := s.docs.Query(ctx, CollectionRecords, medikeep.FieldCreatedAt)
	if err != nil {
		return nil, err
	}
	records := make([]medikeep.HistoryRecord, 0, len(docs))
	for _, doc := range docs {
		records = append(records, s.codec.DecodeRecord(ctx, doc.ID, doc.Fields))
	}
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].CreatedAt.Before(records[j].CreatedAt)
	})
	return records, nil
}

// ListenRecords registers a live query over the decoded record list, sorted
// ascending by CreatedAt. The callback runs on every change until ctx is
// cancelled.
func (s *RecordStore) ListenRecords(ctx context.Context, fn func([]medikeep.HistoryRecord)) error {
	return s.docs.Listen(ctx, CollectionRecords, medikeep.FieldCreatedAt, func(docs []Document) {
		records := make([]medikeep.HistoryRecord, 0, len(docs))
		for _, doc := range docs {
			records = append(records, s.codec.DecodeRecord(ctx, doc.ID, doc.Fields))
		}
		sort.SliceStable(records, func(i, j int) bool {
			return records[i].CreatedAt.Before(records[j].CreatedAt)
		})
		fn(records)
	})
}

// SaveProfile stores the user profile under its fixed document id.
func (s *RecordStore) SaveProfile(ctx context.Context, p medikeep.UserProfile) error {
	return s.docs.Set(ctx, CollectionProfile, ProfileDocID, s.codec.EncodeProfile(ctx, p))
}

// GetProfile fetches and decodes the user profile.
func (s *RecordStore) GetProfile(ctx context.Context) (medikeep.UserProfile, error) {
	doc, err := s.docs.Get(ctx, CollectionProfile, ProfileDocID)
	if err != nil {
		return medikeep.UserProfile{}, err
	}
	return s.codec.DecodeProfile(ctx, doc.Fields), nil
}

// SaveAppointment persists a new appointment and returns its id.
func (s *RecordStore) SaveAppointment(ctx context.Context, a medikeep.Appointment) (string, error) {
	return s.docs.Add(ctx, CollectionAppointments, s.codec.EncodeAppointment(ctx, a))
}

// DeleteAppointment removes an appointment.
func (s *RecordStore) DeleteAppointment(ctx context.Context, id string) error {
	return s.docs.Delete(ctx, CollectionAppointments, id)
}

// ListAppointments returns all appointments sorted ascending by schedule.
func (s *RecordStore) ListAppointments(ctx context.Context) ([]medikeep.Appointment, error) {
	docs, err := s.docs.Query(ctx, CollectionAppointments, medikeep.FieldScheduledAt)
	if err != nil {
		return nil, err
	}
	appts := make([]medikeep.Appointment, 0, len(docs))
	for _, doc := range docs {
		appts = append(appts, s.codec.DecodeAppointment(ctx, doc.ID, doc.Fields))
	}
	sort.SliceStable(appts, func(i, j int) bool {
		return appts[i].ScheduledAt.Before(appts[j].ScheduledAt)
	})
	return appts, nil
}
