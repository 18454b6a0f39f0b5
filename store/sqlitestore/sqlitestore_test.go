package sqlitestore_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hengadev/medikeep"
	"github.com/hengadev/medikeep/store"
	"github.com/hengadev/medikeep/store/sqlitestore"
)

func newTestStore(t *testing.T) *sqlitestore.Store {
	t.Helper()
	s, err := sqlitestore.Open(filepath.Join(t.TempDir(), "documents.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenCreatesSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "documents.db")

	s, err := sqlitestore.Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	// Reopening an existing database must succeed.
	s, err = sqlitestore.Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Close())
}

func TestCRUD(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	id, err := s.Add(ctx, "records", map[string]any{"title": "t1", "count": float64(2)})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	got, err := s.Get(ctx, "records", id)
	require.NoError(t, err)
	assert.Equal(t, "t1", got.Fields["title"])
	assert.Equal(t, float64(2), got.Fields["count"])

	require.NoError(t, s.Update(ctx, "records", id, map[string]any{"title": "t2"}))
	got, err = s.Get(ctx, "records", id)
	require.NoError(t, err)
	assert.Equal(t, "t2", got.Fields["title"])
	assert.Equal(t, float64(2), got.Fields["count"], "update must merge, not replace")

	require.NoError(t, s.Delete(ctx, "records", id))
	_, err = s.Get(ctx, "records", id)
	assert.ErrorIs(t, err, medikeep.ErrRecordNotFound)
}

func TestMissingDocumentErrors(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	assert.ErrorIs(t, s.Update(ctx, "records", "absent", map[string]any{"a": "b"}), medikeep.ErrRecordNotFound)
	assert.ErrorIs(t, s.Delete(ctx, "records", "absent"), medikeep.ErrRecordNotFound)
}

func TestSetReplacesDocument(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.Set(ctx, "profile", "profile", map[string]any{"email": "a@example.com", "old": "x"}))
	require.NoError(t, s.Set(ctx, "profile", "profile", map[string]any{"email": "b@example.com"}))

	got, err := s.Get(ctx, "profile", "profile")
	require.NoError(t, err)
	assert.Equal(t, "b@example.com", got.Fields["email"])
	_, stale := got.Fields["old"]
	assert.False(t, stale, "set must replace the whole document")
}

func TestQueryOrdersByField(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	stamp := func(d int) string {
		return time.Date(2026, 2, d, 10, 0, 0, 0, time.UTC).Format(time.RFC3339Nano)
	}

	_, err := s.Add(ctx, "records", map[string]any{"createdAt": stamp(3), "title": "c"})
	require.NoError(t, err)
	_, err = s.Add(ctx, "records", map[string]any{"createdAt": stamp(1), "title": "a"})
	require.NoError(t, err)
	_, err = s.Add(ctx, "records", map[string]any{"createdAt": stamp(2), "title": "b"})
	require.NoError(t, err)

	out, err := s.Query(ctx, "records", "createdAt")
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, "a", out[0].Fields["title"])
	assert.Equal(t, "b", out[1].Fields["title"])
	assert.Equal(t, "c", out[2].Fields["title"])
}

func TestQueryScopesByCollection(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.Add(ctx, "records", map[string]any{"title": "record"})
	require.NoError(t, err)
	_, err = s.Add(ctx, "appointments", map[string]any{"doctorName": "Dr. Rao"})
	require.NoError(t, err)

	out, err := s.Query(ctx, "records", "title")
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "record", out[0].Fields["title"])
}

func TestListen(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s := newTestStore(t)

	var emissions int
	var lastLen int
	err := s.Listen(ctx, "records", "createdAt", func(docs []store.Document) {
		emissions++
		lastLen = len(docs)
	})
	require.NoError(t, err)
	assert.Equal(t, 1, emissions, "initial emission")

	_, err = s.Add(ctx, "records", map[string]any{"createdAt": "2026-02-01T10:00:00Z"})
	require.NoError(t, err)
	assert.Equal(t, 2, emissions)
	assert.Equal(t, 1, lastLen)

	cancel()
	_, err = s.Add(ctx, "records", map[string]any{"createdAt": "2026-02-02T10:00:00Z"})
	require.Error(t, err, "mutations on a cancelled context fail")
}

func TestDatabaseFailureIsRetryable(t *testing.T) {
	ctx := context.Background()
	s, err := sqlitestore.Open(filepath.Join(t.TempDir(), "documents.db"))
	require.NoError(t, err)

	id, err := s.Add(ctx, "records", map[string]any{"title": "t1"})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = s.Get(ctx, "records", id)
	require.Error(t, err)
	assert.ErrorIs(t, err, medikeep.ErrStoreFailure)
	assert.True(t, medikeep.IsRetryableError(err))
	assert.NotErrorIs(t, err, medikeep.ErrRecordNotFound)

	err = s.Set(ctx, "records", id, map[string]any{"title": "t2"})
	assert.ErrorIs(t, err, medikeep.ErrStoreFailure)

	_, err = s.Query(ctx, "records", "title")
	assert.ErrorIs(t, err, medikeep.ErrStoreFailure)
}

func TestWorksBehindRecordStore(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	codec, _ := medikeep.NewTestCodec(t)
	records := store.NewRecordStore(s, codec)

	id, err := records.SaveRecord(ctx, medikeep.HistoryRecord{
		Title:     "Flu checkup",
		Type:      medikeep.RecordTypePrescription,
		CreatedAt: time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC),
		Medicines: []medikeep.MedicineEntry{{Name: "Oseltamivir", Dosage: "75mg"}},
	})
	require.NoError(t, err)

	got, err := records.GetRecord(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Flu checkup", got.Title)
	assert.Equal(t, medikeep.RecordTypePrescription, got.Type)
	require.Len(t, got.Medicines, 1)
	assert.Equal(t, medikeep.MedicineEntry{Name: "Oseltamivir", Dosage: "75mg"}, got.Medicines[0])
	assert.Equal(t, "2026-02-01T10:00:00Z", got.CreatedAt.UTC().Format(time.RFC3339))
}
