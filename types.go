package medikeep

import "time"

// RecordType classifies a persisted medical record.
type RecordType string

const (
	RecordTypePrescription RecordType = "PRESCRIPTION"
	RecordTypeBloodReport  RecordType = "BLOOD_REPORT"
	RecordTypeScan         RecordType = "SCAN"
	RecordTypeOther        RecordType = "OTHER"
)

// ParseRecordType maps a stored enum name back to a RecordType,
// falling back to RecordTypeOther for anything unrecognized.
func ParseRecordType(s string) RecordType {
	switch RecordType(s) {
	case RecordTypePrescription, RecordTypeBloodReport, RecordTypeScan:
		return RecordType(s)
	default:
		return RecordTypeOther
	}
}

// MedicineEntry is a single medicine line on a prescription.
// It has no identity; two entries are the same iff name and dosage match.
type MedicineEntry struct {
	Name   string `json:"name"`
	Dosage string `json:"dosage"`
}

// PrescriptionResult is the best-effort structured output of the extraction
// pipeline. Every field defaults to its zero value so a partially successful
// extraction is still representable; callers detect "nothing extracted" by
// checking IsEmpty.
type PrescriptionResult struct {
	Doctor    string          `json:"doctor"`
	Date      string          `json:"date"`
	Diagnosis string          `json:"diagnosis"`
	Medicines []MedicineEntry `json:"medicines"`
}

// IsEmpty reports whether the extraction produced no data at all.
func (r PrescriptionResult) IsEmpty() bool {
	return r.Doctor == "" && r.Date == "" && r.Diagnosis == "" && len(r.Medicines) == 0
}

// HistoryRecord is the persisted shape of a medical record, owned exclusively
// by the authenticated user. The ID is assigned by the document store.
// Medicines is non-empty only when Type == RecordTypePrescription.
type HistoryRecord struct {
	ID            string
	Title         string
	Type          RecordType
	CreatedAt     time.Time
	ExtractedText string
	Medicines     []MedicineEntry
	PersonalNotes string

	// ImagePath points at the original photo in the attachment store.
	// Stored in plaintext; the image itself never enters the document store.
	ImagePath string
}

// UserProfile holds the patient's own demographic and emergency data.
// Everything except Email and ProfilePic is a sensitive field and is
// encrypted before storage.
type UserProfile struct {
	FullName             string
	PhoneNumber          string
	BloodGroup           string
	Age                  string
	Gender               string
	EmergencyContactName string
	EmergencyContactNum  string
	Disease              string
	Allergies            string

	Email      string
	ProfilePic string
}

// Appointment is a scheduled visit. DoctorName and Purpose are sensitive
// fields. Reminder delivery is out of scope; this is storage only.
type Appointment struct {
	ID          string
	DoctorName  string
	Purpose     string
	ScheduledAt time.Time
}

// ClinicalSummarySections is the model's doctor summary split into the four
// fixed sections. A section whose header was absent from the model response
// is the empty string, never an error.
type ClinicalSummarySections struct {
	PatientSummary string
	Medications    string
	Findings       string
	Alerts         string
}

// EmergencyCard is the decrypted minimal profile payload shown on the
// emergency screen. QR rendering happens in the UI, out of scope here.
type EmergencyCard struct {
	FullName             string `json:"fullName"`
	BloodGroup           string `json:"bloodGroup"`
	EmergencyContactName string `json:"emergencyContactName"`
	EmergencyContactNum  string `json:"emergencyContactNumber"`
	Disease              string `json:"disease"`
	Allergies            string `json:"allergies"`
}

// RecordOverview is the deterministic, model-free doctor summary: the active
// medicines from the most recent prescription plus the most recent reports.
type RecordOverview struct {
	ActiveMedicines []MedicineEntry
	RecentReports   []HistoryRecord
	TotalRecords    int
}
