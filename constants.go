package medikeep

// Key constants
const (
	// KeyLength is the required symmetric key size in bytes (AES-256).
	KeyLength = 32

	// DefaultKeyAlias is the keystore alias under which the record key
	// lives when no alias is configured.
	DefaultKeyAlias = "medikeep-records-key"
)

// Environment variable names
const (
	// EnvKeyAlias overrides the keystore alias for the record key.
	EnvKeyAlias = "MEDIKEEP_KEY_ALIAS"

	// EnvExcerptLimit overrides the per-record character budget applied to
	// extracted text when building the doctor-summary prompt.
	EnvExcerptLimit = "MEDIKEEP_EXCERPT_LIMIT"
)

// Default values
const (
	// DefaultExcerptLimit bounds how much extracted text a single record
	// contributes to the summary prompt.
	DefaultExcerptLimit = 400
)

// Storage field names. These are the bit-exact document-store contract;
// every consumer of the persisted encoding relies on them.
const (
	FieldRecordType    = "recordType"
	FieldTitle         = "title"
	FieldExtractedText = "extractedText"
	FieldPersonalNotes = "personalNotes"
	FieldMedicines     = "medicines"
	FieldCreatedAt     = "createdAt"
	FieldImagePath     = "imagePath"
)

// Profile storage field names.
const (
	FieldFullName             = "fullName"
	FieldPhoneNumber          = "phoneNumber"
	FieldBloodGroup           = "bloodGroup"
	FieldAge                  = "age"
	FieldGender               = "gender"
	FieldEmergencyContactName = "emergencyContactName"
	FieldEmergencyContactNum  = "emergencyContactNumber"
	FieldDisease              = "disease"
	FieldAllergies            = "allergies"
	FieldEmail                = "email"
	FieldProfilePic           = "profilePic"
)

// Appointment storage field names.
const (
	FieldDoctorName  = "doctorName"
	FieldPurpose     = "purpose"
	FieldScheduledAt = "scheduledAt"
)
