package medikeep

import (
	"context"
	"time"
)

// recordSensitiveFields is the fixed set of record attributes that must never
// reach the document store as plaintext. Medicines are deliberately not in
// the set: only top-level free-text fields are encrypted.
var recordSensitiveFields = []string{
	FieldTitle,
	FieldExtractedText,
	FieldPersonalNotes,
}

// profileSensitiveFields covers the free-text user-profile attributes.
var profileSensitiveFields = []string{
	FieldFullName,
	FieldPhoneNumber,
	FieldBloodGroup,
	FieldAge,
	FieldGender,
	FieldEmergencyContactName,
	FieldEmergencyContactNum,
	FieldDisease,
	FieldAllergies,
}

// appointmentSensitiveFields covers the free-text appointment attributes.
var appointmentSensitiveFields = []string{
	FieldDoctorName,
	FieldPurpose,
}

// FieldCodec maps between domain values (plaintext fields) and their storage
// encoding (sensitive fields encrypted, everything else verbatim). It is the
// only component that decides which fields are sensitive; the cipher knows
// nothing about records and the store knows nothing about plaintext.
type FieldCodec struct {
	cipher *Cipher
}

// NewFieldCodec creates a codec over the given cipher service.
func NewFieldCodec(cipher *Cipher) *FieldCodec {
	return &FieldCodec{cipher: cipher}
}

// EncodeRecord produces the storage representation of a record. Sensitive
// fields are replaced by cipher blobs; medicines and all other fields are
// copied verbatim.
func (fc *FieldCodec) EncodeRecord(ctx context.Context, r HistoryRecord) map[string]any {
	medicines := make([]map[string]any, 0, len(r.Medicines))
	for _, m := range r.Medicines {
		medicines = append(medicines, map[string]any{
			"name":   m.Name,
			"dosage": m.Dosage,
		})
	}

	fields := map[string]any{
		FieldRecordType:    string(r.Type),
		FieldTitle:         fc.cipher.EncryptField(ctx, r.Title),
		FieldExtractedText: fc.cipher.EncryptField(ctx, r.ExtractedText),
		FieldPersonalNotes: fc.cipher.EncryptField(ctx, r.PersonalNotes),
		FieldMedicines:     medicines,
		FieldCreatedAt:     r.CreatedAt,
	}
	if r.ImagePath != "" {
		fields[FieldImagePath] = r.ImagePath
	}
	return fields
}

// DecodeRecord is the inverse of EncodeRecord. Absent sensitive fields
// default to the empty string; an unparseable record type defaults to OTHER.
func (fc *FieldCodec) DecodeRecord(ctx context.Context, id string, fields map[string]any) HistoryRecord {
	return HistoryRecord{
		ID:            id,
		Title:         fc.cipher.DecryptField(ctx, stringField(fields, FieldTitle)),
		Type:          ParseRecordType(stringField(fields, FieldRecordType)),
		CreatedAt:     timeField(fields, FieldCreatedAt),
		ExtractedText: fc.cipher.DecryptField(ctx, stringField(fields, FieldExtractedText)),
		Medicines:     medicinesField(fields, FieldMedicines),
		PersonalNotes: fc.cipher.DecryptField(ctx, stringField(fields, FieldPersonalNotes)),
		ImagePath:     stringField(fields, FieldImagePath),
	}
}

// EncodeProfile produces the storage representation of the user profile.
// Email and profile picture reference stay plaintext.
func (fc *FieldCodec) EncodeProfile(ctx context.Context, p UserProfile) map[string]any {
	return map[string]any{
		FieldFullName:             fc.cipher.EncryptField(ctx, p.FullName),
		FieldPhoneNumber:          fc.cipher.EncryptField(ctx, p.PhoneNumber),
		FieldBloodGroup:           fc.cipher.EncryptField(ctx, p.BloodGroup),
		FieldAge:                  fc.cipher.EncryptField(ctx, p.Age),
		FieldGender:               fc.cipher.EncryptField(ctx, p.Gender),
		FieldEmergencyContactName: fc.cipher.EncryptField(ctx, p.EmergencyContactName),
		FieldEmergencyContactNum:  fc.cipher.EncryptField(ctx, p.EmergencyContactNum),
		FieldDisease:              fc.cipher.EncryptField(ctx, p.Disease),
		FieldAllergies:            fc.cipher.EncryptField(ctx, p.Allergies),
		FieldEmail:                p.Email,
		FieldProfilePic:           p.ProfilePic,
	}
}

// DecodeProfile is the inverse of EncodeProfile.
func (fc *FieldCodec) DecodeProfile(ctx context.Context, fields map[string]any) UserProfile {
	return UserProfile{
		FullName:             fc.cipher.DecryptField(ctx, stringField(fields, FieldFullName)),
		PhoneNumber:          fc.cipher.DecryptField(ctx, stringField(fields, FieldPhoneNumber)),
		BloodGroup:           fc.cipher.DecryptField(ctx, stringField(fields, FieldBloodGroup)),
		Age:                  fc.cipher.DecryptField(ctx, stringField(fields, FieldAge)),
		Gender:               fc.cipher.DecryptField(ctx, stringField(fields, FieldGender)),
		EmergencyContactName: fc.cipher.DecryptField(ctx, stringField(fields, FieldEmergencyContactName)),
		EmergencyContactNum:  fc.cipher.DecryptField(ctx, stringField(fields, FieldEmergencyContactNum)),
		Disease:              fc.cipher.DecryptField(ctx, stringField(fields, FieldDisease)),
		Allergies:            fc.cipher.DecryptField(ctx, stringField(fields, FieldAllergies)),
		Email:                stringField(fields, FieldEmail),
		ProfilePic:           stringField(fields, FieldProfilePic),
	}
}

// EncodeAppointment produces the storage representation of an appointment.
func (fc *FieldCodec) EncodeAppointment(ctx context.Context, a Appointment) map[string]any {
	return map[string]any{
		FieldDoctorName:  fc.cipher.EncryptField(ctx, a.DoctorName),
		FieldPurpose:     fc.cipher.EncryptField(ctx, a.Purpose),
		FieldScheduledAt: a.ScheduledAt,
	}
}

// DecodeAppointment is the inverse of EncodeAppointment.
func (fc *FieldCodec) DecodeAppointment(ctx context.Context, id string, fields map[string]any) Appointment {
	return Appointment{
		ID:          id,
		DoctorName:  fc.cipher.DecryptField(ctx, stringField(fields, FieldDoctorName)),
		Purpose:     fc.cipher.DecryptField(ctx, stringField(fields, FieldPurpose)),
		ScheduledAt: timeField(fields, FieldScheduledAt),
	}
}

// RecordSensitiveFields returns the fixed sensitive-field set for records.
// Exposed so store implementations and tests can assert that none of these
// ever appear as plaintext in a persisted document.
func RecordSensitiveFields() []string {
	out := make([]string, len(recordSensitiveFields))
	copy(out, recordSensitiveFields)
	return out
}

// ProfileSensitiveFields returns the fixed sensitive-field set for the user
// profile.
func ProfileSensitiveFields() []string {
	out := make([]string, len(profileSensitiveFields))
	copy(out, profileSensitiveFields)
	return out
}

// AppointmentSensitiveFields returns the fixed sensitive-field set for
// appointments.
func AppointmentSensitiveFields() []string {
	out := make([]string, len(appointmentSensitiveFields))
	copy(out, appointmentSensitiveFields)
	return out
}

func stringField(fields map[string]any, name string) string {
	if v, ok := fields[name].(string); ok {
		return v
	}
	return ""
}

func timeField(fields map[string]any, name string) time.Time {
	switch v := fields[name].(type) {
	case time.Time:
		return v
	case int64:
		return time.UnixMilli(v)
	case string:
		// Store drivers that round-trip fields through JSON hand
		// timestamps back as RFC 3339 strings.
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			return t
		}
		return time.Time{}
	default:
		return time.Time{}
	}
}

// medicinesField tolerates both the in-memory shape (map[string]any) and
// whatever a store driver round-trips the array through.
func medicinesField(fields map[string]any, name string) []MedicineEntry {
	raw, ok := fields[name].([]map[string]any)
	if !ok {
		generic, ok := fields[name].([]any)
		if !ok {
			return nil
		}
		raw = make([]map[string]any, 0, len(generic))
		for _, item := range generic {
			if m, ok := item.(map[string]any); ok {
				raw = append(raw, m)
			}
		}
	}

	medicines := make([]MedicineEntry, 0, len(raw))
	for _, m := range raw {
		medicines = append(medicines, MedicineEntry{
			Name:   stringField(m, "name"),
			Dosage: stringField(m, "dosage"),
		})
	}
	return medicines
}
