package medikeep_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hengadev/medikeep"
	"github.com/hengadev/medikeep/store"
)

// fakeExtractor satisfies medikeep.Extractor with a canned result.
type fakeExtractor struct {
	result   medikeep.PrescriptionResult
	err      error
	gotImage []byte
}

func (f *fakeExtractor) Extract(_ context.Context, image []byte) (medikeep.PrescriptionResult, error) {
	f.gotImage = image
	return f.result, f.err
}

// fakeSummarizer records the history it was asked to summarize.
type fakeSummarizer struct {
	sections medikeep.ClinicalSummarySections
	err      error
	got      []medikeep.HistoryRecord
}

func (f *fakeSummarizer) Summarize(_ context.Context, records []medikeep.HistoryRecord) (medikeep.ClinicalSummarySections, error) {
	f.got = records
	return f.sections, f.err
}

// fakeAttachments is an in-memory AttachmentStore.
type fakeAttachments struct {
	objects map[string][]byte
	putErr  error
}

func newFakeAttachments() *fakeAttachments {
	return &fakeAttachments{objects: make(map[string][]byte)}
}

func (f *fakeAttachments) Put(_ context.Context, image []byte) (string, error) {
	if f.putErr != nil {
		return "", f.putErr
	}
	path := "attachments/obj-1"
	f.objects[path] = image
	return path, nil
}

func (f *fakeAttachments) Get(_ context.Context, path string) ([]byte, error) {
	data, ok := f.objects[path]
	if !ok {
		return nil, errors.New("no such object")
	}
	return data, nil
}

func newTestKeeper(t *testing.T, extractor *fakeExtractor, summarizer *fakeSummarizer, attachments medikeep.AttachmentStore) (*medikeep.Keeper, *store.RecordStore) {
	t.Helper()
	codec, _ := medikeep.NewTestCodec(t)
	records := store.NewRecordStore(store.NewMemoryStore(), codec)
	return medikeep.NewKeeper(records, extractor, summarizer, attachments), records
}

func stampDay(d int) time.Time {
	return time.Date(2026, 3, d, 9, 0, 0, 0, time.UTC)
}

func TestAnalyzeDocumentPrescription(t *testing.T) {
	ctx := context.Background()
	extractor := &fakeExtractor{
		result: medikeep.PrescriptionResult{
			Doctor:    "Dr. A",
			Medicines: []medikeep.MedicineEntry{{Name: "X", Dosage: "5mg"}},
		},
	}
	attachments := newFakeAttachments()
	keeper, _ := newTestKeeper(t, extractor, &fakeSummarizer{}, attachments)

	image := []byte{0xFF, 0xD8, 0xFF, 0xE0}
	outcome, err := keeper.AnalyzeDocument(ctx, image)
	require.NoError(t, err)

	assert.Equal(t, medikeep.RecordTypePrescription, outcome.Type)
	assert.Equal(t, "Dr. A", outcome.Result.Doctor)
	assert.Equal(t, "attachments/obj-1", outcome.ImagePath)
	assert.Equal(t, image, extractor.gotImage)
	assert.Equal(t, image, attachments.objects["attachments/obj-1"])
}

func TestAnalyzeDocumentWithoutAttachmentStore(t *testing.T) {
	ctx := context.Background()
	extractor := &fakeExtractor{result: medikeep.PrescriptionResult{Diagnosis: "Anemia"}}
	keeper, _ := newTestKeeper(t, extractor, &fakeSummarizer{}, nil)

	outcome, err := keeper.AnalyzeDocument(ctx, []byte("img"))
	require.NoError(t, err)
	assert.Equal(t, medikeep.RecordTypeOther, outcome.Type)
	assert.Empty(t, outcome.ImagePath)
}

func TestAnalyzeDocumentAttachmentFailureAborts(t *testing.T) {
	ctx := context.Background()
	attachments := newFakeAttachments()
	attachments.putErr = errors.New("bucket unavailable")
	keeper, _ := newTestKeeper(t, &fakeExtractor{}, &fakeSummarizer{}, attachments)

	_, err := keeper.AnalyzeDocument(ctx, []byte("img"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bucket unavailable")
}

func TestAnalyzeDocumentModelFailure(t *testing.T) {
	ctx := context.Background()
	extractor := &fakeExtractor{err: medikeep.ErrModelUnavailable}
	keeper, _ := newTestKeeper(t, extractor, &fakeSummarizer{}, nil)

	_, err := keeper.AnalyzeDocument(ctx, []byte("img"))
	assert.ErrorIs(t, err, medikeep.ErrModelUnavailable)
}

func TestSaveAnalysisKeepsMedicinesOnPrescriptions(t *testing.T) {
	ctx := context.Background()
	keeper, _ := newTestKeeper(t, &fakeExtractor{}, &fakeSummarizer{}, nil)

	outcome := medikeep.AnalysisOutcome{
		Type: medikeep.RecordTypePrescription,
		Result: medikeep.PrescriptionResult{
			Medicines: []medikeep.MedicineEntry{{Name: "X", Dosage: "5mg"}},
		},
	}

	id, err := keeper.SaveAnalysis(ctx, outcome, "Antibiotics", "extracted", "notes")
	require.NoError(t, err)

	record, err := keeper.Record(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Antibiotics", record.Title)
	require.Len(t, record.Medicines, 1)
}

func TestSaveAnalysisDiscardsStrayMedicines(t *testing.T) {
	ctx := context.Background()
	keeper, _ := newTestKeeper(t, &fakeExtractor{}, &fakeSummarizer{}, nil)

	// The model hallucinated medicines onto a non-prescription document.
	outcome := medikeep.AnalysisOutcome{
		Type: medikeep.RecordTypeOther,
		Result: medikeep.PrescriptionResult{
			Medicines: []medikeep.MedicineEntry{{Name: "Phantom", Dosage: "1mg"}},
		},
	}

	id, err := keeper.SaveAnalysis(ctx, outcome, "Scan report", "", "")
	require.NoError(t, err)

	record, err := keeper.Record(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, record.Medicines)
}

func TestSaveAnalysisRequiresTitle(t *testing.T) {
	ctx := context.Background()
	keeper, _ := newTestKeeper(t, &fakeExtractor{}, &fakeSummarizer{}, nil)

	_, err := keeper.SaveAnalysis(ctx, medikeep.AnalysisOutcome{Type: medikeep.RecordTypeOther}, "", "", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "title")
}

func TestEditRecordRejectsMedicinesOnNonPrescriptions(t *testing.T) {
	ctx := context.Background()
	keeper, _ := newTestKeeper(t, &fakeExtractor{}, &fakeSummarizer{}, nil)

	err := keeper.EditRecord(ctx, medikeep.HistoryRecord{
		ID:        "rec-1",
		Title:     "Scan",
		Type:      medikeep.RecordTypeScan,
		Medicines: []medikeep.MedicineEntry{{Name: "X", Dosage: "5mg"}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "medicines")
}

func TestHistoryNewestFirst(t *testing.T) {
	ctx := context.Background()
	keeper, records := newTestKeeper(t, &fakeExtractor{}, &fakeSummarizer{}, nil)

	for d, title := range map[int]string{1: "oldest", 15: "newest", 7: "middle"} {
		_, err := records.SaveRecord(ctx, medikeep.HistoryRecord{
			Title:     title,
			Type:      medikeep.RecordTypeOther,
			CreatedAt: stampDay(d),
		})
		require.NoError(t, err)
	}

	history, err := keeper.History(ctx)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, "newest", history[0].Title)
	assert.Equal(t, "middle", history[1].Title)
	assert.Equal(t, "oldest", history[2].Title)
}

func TestDoctorSummaryFeedsAscendingHistory(t *testing.T) {
	ctx := context.Background()
	summarizer := &fakeSummarizer{
		sections: medikeep.ClinicalSummarySections{PatientSummary: "ok"},
	}
	keeper, records := newTestKeeper(t, &fakeExtractor{}, summarizer, nil)

	for d, title := range map[int]string{15: "newest", 1: "oldest", 7: "middle"} {
		_, err := records.SaveRecord(ctx, medikeep.HistoryRecord{
			Title:     title,
			Type:      medikeep.RecordTypeOther,
			CreatedAt: stampDay(d),
		})
		require.NoError(t, err)
	}

	sections, err := keeper.DoctorSummary(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ok", sections.PatientSummary)

	require.Len(t, summarizer.got, 3)
	assert.Equal(t, "oldest", summarizer.got[0].Title)
	assert.Equal(t, "middle", summarizer.got[1].Title)
	assert.Equal(t, "newest", summarizer.got[2].Title)
}

func TestSaveProfileValidation(t *testing.T) {
	ctx := context.Background()
	keeper, _ := newTestKeeper(t, &fakeExtractor{}, &fakeSummarizer{}, nil)

	err := keeper.SaveProfile(ctx, medikeep.UserProfile{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "full name")

	err = keeper.SaveProfile(ctx, medikeep.UserProfile{
		FullName:            "Asha Raman",
		EmergencyContactNum: "+91 91234 56780",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "emergency contact")

	require.NoError(t, keeper.SaveProfile(ctx, medikeep.UserProfile{FullName: "Asha Raman"}))
}

func TestEmergencyCard(t *testing.T) {
	ctx := context.Background()
	keeper, _ := newTestKeeper(t, &fakeExtractor{}, &fakeSummarizer{}, nil)

	require.NoError(t, keeper.SaveProfile(ctx, medikeep.UserProfile{
		FullName:             "Asha Raman",
		Email:                "asha@example.com",
		BloodGroup:           "B+",
		EmergencyContactName: "Ravi Raman",
		EmergencyContactNum:  "+91 91234 56780",
		Disease:              "Type 2 diabetes",
		Allergies:            "Penicillin",
	}))

	card, err := keeper.EmergencyCard(ctx)
	require.NoError(t, err)
	assert.Equal(t, medikeep.EmergencyCard{
		FullName:             "Asha Raman",
		BloodGroup:           "B+",
		EmergencyContactName: "Ravi Raman",
		EmergencyContactNum:  "+91 91234 56780",
		Disease:              "Type 2 diabetes",
		Allergies:            "Penicillin",
	}, card)
}

func TestScheduleAppointmentValidation(t *testing.T) {
	ctx := context.Background()
	keeper, _ := newTestKeeper(t, &fakeExtractor{}, &fakeSummarizer{}, nil)

	_, err := keeper.ScheduleAppointment(ctx, medikeep.Appointment{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "doctor name")
	assert.Contains(t, err.Error(), "schedule time")

	id, err := keeper.ScheduleAppointment(ctx, medikeep.Appointment{
		DoctorName:  "Dr. Mehta",
		Purpose:     "Review",
		ScheduledAt: stampDay(20),
	})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	appts, err := keeper.Appointments(ctx)
	require.NoError(t, err)
	require.Len(t, appts, 1)
	assert.Equal(t, "Dr. Mehta", appts[0].DoctorName)

	require.NoError(t, keeper.CancelAppointment(ctx, id))
	appts, err = keeper.Appointments(ctx)
	require.NoError(t, err)
	assert.Empty(t, appts)
}

func TestDocumentImage(t *testing.T) {
	ctx := context.Background()
	attachments := newFakeAttachments()
	extractor := &fakeExtractor{result: medikeep.PrescriptionResult{Diagnosis: "X"}}
	keeper, _ := newTestKeeper(t, extractor, &fakeSummarizer{}, attachments)

	image := []byte("photo-bytes")
	outcome, err := keeper.AnalyzeDocument(ctx, image)
	require.NoError(t, err)

	id, err := keeper.SaveAnalysis(ctx, outcome, "Scan", "", "")
	require.NoError(t, err)

	record, err := keeper.Record(ctx, id)
	require.NoError(t, err)
	require.NotEmpty(t, record.ImagePath)

	got, err := keeper.DocumentImage(ctx, record)
	require.NoError(t, err)
	assert.Equal(t, image, got)

	// No attachment reference means no image.
	_, err = keeper.DocumentImage(ctx, medikeep.HistoryRecord{ID: "other"})
	assert.ErrorIs(t, err, medikeep.ErrRecordNotFound)
}
