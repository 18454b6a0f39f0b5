package medikeep

import (
	"context"
	"fmt"
	"sort"

	"github.com/hengadev/errsx"
)

// Recorder is the slice of the record store the Keeper needs. It is
// satisfied by store.RecordStore; keeping it as an interface here avoids an
// import cycle and lets tests substitute fakes.
type Recorder interface {
	SaveRecord(ctx context.Context, r HistoryRecord) (string, error)
	UpdateRecord(ctx context.Context, r HistoryRecord) error
	DeleteRecord(ctx context.Context, id string) error
	GetRecord(ctx context.Context, id string) (HistoryRecord, error)
	ListRecords(ctx context.Context) ([]HistoryRecord, error)
	SaveProfile(ctx context.Context, p UserProfile) error
	GetProfile(ctx context.Context) (UserProfile, error)
	SaveAppointment(ctx context.Context, a Appointment) (string, error)
	DeleteAppointment(ctx context.Context, id string) error
	ListAppointments(ctx context.Context) ([]Appointment, error)
}

// Extractor is the extraction-pipeline surface the Keeper drives.
type Extractor interface {
	Extract(ctx context.Context, image []byte) (PrescriptionResult, error)
}

// Summarizer is the summary-pipeline surface the Keeper drives.
type Summarizer interface {
	Summarize(ctx context.Context, records []HistoryRecord) (ClinicalSummarySections, error)
}

// AttachmentStore stores the original document photos outside the document
// store. Optional; when absent, photos are analyzed and discarded.
type AttachmentStore interface {
	Put(ctx context.Context, image []byte) (path string, err error)
	Get(ctx context.Context, path string) ([]byte, error)
}

// Keeper is the application facade: it wires the extraction and summary
// pipelines to the encrypted record store the way the mobile screens drive
// them. All operations are single-shot request/response calls; cancellation
// propagates through ctx to the underlying network requests.
type Keeper struct {
	records     Recorder
	extractor   Extractor
	summarizer  Summarizer
	attachments AttachmentStore
}

// NewKeeper assembles the facade. attachments may be nil.
func NewKeeper(records Recorder, extractor Extractor, summarizer Summarizer, attachments AttachmentStore) *Keeper {
	return &Keeper{
		records:     records,
		extractor:   extractor,
		summarizer:  summarizer,
		attachments: attachments,
	}
}

// AnalysisOutcome is what a document photo analyzes into: the structured
// result, its inferred type, and (when an attachment store is configured)
// where the original photo now lives.
type AnalysisOutcome struct {
	Result    PrescriptionResult
	Type      RecordType
	ImagePath string
}

// AnalyzeDocument uploads the photo to the attachment store (when one is
// configured) and runs the extraction pipeline over it. The outcome is
// transient; nothing reaches the document store until SaveAnalysis.
func (k *Keeper) AnalyzeDocument(ctx context.Context, image []byte) (AnalysisOutcome, error) {
	var outcome AnalysisOutcome

	if k.attachments != nil {
		path, err := k.attachments.Put(ctx, image)
		if err != nil {
			return AnalysisOutcome{}, fmt.Errorf("failed to store document photo: %w", err)
		}
		outcome.ImagePath = path
	}

	result, err := k.extractor.Extract(ctx, image)
	if err != nil {
		return AnalysisOutcome{}, err
	}

	outcome.Result = result
	if len(result.Medicines) > 0 {
		outcome.Type = RecordTypePrescription
	} else {
		outcome.Type = RecordTypeOther
	}
	return outcome, nil
}

// SaveAnalysis persists an analysis outcome as a history record. Medicines
// are kept only on prescriptions; stray entries on any other record type are
// discarded here, by contract.
func (k *Keeper) SaveAnalysis(ctx context.Context, outcome AnalysisOutcome, title, extractedText, personalNotes string) (string, error) {
	record := HistoryRecord{
		Title:         title,
		Type:          outcome.Type,
		ExtractedText: extractedText,
		PersonalNotes: personalNotes,
		ImagePath:     outcome.ImagePath,
	}
	if outcome.Type == RecordTypePrescription {
		record.Medicines = outcome.Result.Medicines
	}

	if err := validateRecord(record); err != nil {
		return "", err
	}
	return k.records.SaveRecord(ctx, record)
}

// EditRecord applies an explicit user edit to a stored record's title,
// notes, and medicines.
func (k *Keeper) EditRecord(ctx context.Context, r HistoryRecord) error {
	if err := validateRecord(r); err != nil {
		return err
	}
	return k.records.UpdateRecord(ctx, r)
}

// DeleteRecord removes a record on explicit user action.
func (k *Keeper) DeleteRecord(ctx context.Context, id string) error {
	return k.records.DeleteRecord(ctx, id)
}

// Record fetches one decoded record.
func (k *Keeper) Record(ctx context.Context, id string) (HistoryRecord, error) {
	return k.records.GetRecord(ctx, id)
}

// History returns all records newest-first, the order the history screen
// displays them in.
func (k *Keeper) History(ctx context.Context) ([]HistoryRecord, error) {
	records, err := k.records.ListRecords(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})
	return records, nil
}

// DoctorSummary produces the AI-written clinical summary over the full
// history. Records are sorted ascending by creation time before prompting;
// the summary pipeline relies on that order and does not sort internally.
func (k *Keeper) DoctorSummary(ctx context.Context) (ClinicalSummarySections, error) {
	records, err := k.records.ListRecords(ctx)
	if err != nil {
		return ClinicalSummarySections{}, err
	}
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].CreatedAt.Before(records[j].CreatedAt)
	})
	return k.summarizer.Summarize(ctx, records)
}

// SaveProfile validates and stores the user profile.
func (k *Keeper) SaveProfile(ctx context.Context, p UserProfile) error {
	var errs errsx.Map
	if p.FullName == "" {
		errs.Set("fullName", fmt.Errorf("full name is required"))
	}
	if p.EmergencyContactNum != "" && p.EmergencyContactName == "" {
		errs.Set("emergencyContactName", fmt.Errorf("emergency contact needs a name"))
	}
	if err := errs.AsError(); err != nil {
		return err
	}
	return k.records.SaveProfile(ctx, p)
}

// Profile fetches the decoded user profile.
func (k *Keeper) Profile(ctx context.Context) (UserProfile, error) {
	return k.records.GetProfile(ctx)
}

// EmergencyCard assembles the minimal decrypted payload for the emergency
// screen from the stored profile.
func (k *Keeper) EmergencyCard(ctx context.Context) (EmergencyCard, error) {
	p, err := k.records.GetProfile(ctx)
	if err != nil {
		return EmergencyCard{}, err
	}
	return EmergencyCard{
		FullName:             p.FullName,
		BloodGroup:           p.BloodGroup,
		EmergencyContactName: p.EmergencyContactName,
		EmergencyContactNum:  p.EmergencyContactNum,
		Disease:              p.Disease,
		Allergies:            p.Allergies,
	}, nil
}

// ScheduleAppointment validates and stores an appointment.
func (k *Keeper) ScheduleAppointment(ctx context.Context, a Appointment) (string, error) {
	var errs errsx.Map
	if a.DoctorName == "" {
		errs.Set("doctorName", fmt.Errorf("doctor name is required"))
	}
	if a.ScheduledAt.IsZero() {
		errs.Set("scheduledAt", fmt.Errorf("schedule time is required"))
	}
	if err := errs.AsError(); err != nil {
		return "", err
	}
	return k.records.SaveAppointment(ctx, a)
}

// CancelAppointment removes an appointment.
func (k *Keeper) CancelAppointment(ctx context.Context, id string) error {
	return k.records.DeleteAppointment(ctx, id)
}

// Appointments returns upcoming appointments sorted by schedule.
func (k *Keeper) Appointments(ctx context.Context) ([]Appointment, error) {
	return k.records.ListAppointments(ctx)
}

// DocumentImage fetches the original photo behind a record, when an
// attachment store is configured and the record kept a reference.
func (k *Keeper) DocumentImage(ctx context.Context, r HistoryRecord) ([]byte, error) {
	if k.attachments == nil || r.ImagePath == "" {
		return nil, fmt.Errorf("%w: record has no stored photo", ErrRecordNotFound)
	}
	return k.attachments.Get(ctx, r.ImagePath)
}

func validateRecord(r HistoryRecord) error {
	var errs errsx.Map
	if r.Title == "" {
		errs.Set("title", fmt.Errorf("title is required"))
	}
	if r.Type != RecordTypePrescription && len(r.Medicines) > 0 {
		errs.Set("medicines", fmt.Errorf("only prescriptions carry medicines"))
	}
	return errs.AsError()
}
