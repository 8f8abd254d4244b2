package fhirmodels

// Common FHIR value set constants used across the application.

// Resource type names consumed from remote servers.
const (
	ResourcePatient           = "Patient"
	ResourceCondition         = "Condition"
	ResourceObservation       = "Observation"
	ResourceEncounter         = "Encounter"
	ResourceMedicationRequest = "MedicationRequest"
	ResourceBundle            = "Bundle"
)

// EncounterClass codes per FHIR R4 v3-ActCode.
const (
	EncounterClassAmbulatory   = "AMB"
	EncounterClassEmergency    = "EMER"
	EncounterClassInpatient    = "IMP"
	EncounterClassShortStay    = "SS"
	EncounterClassVirtual      = "VR"
	EncounterClassHomeHealth   = "HH"
	EncounterClassObstetric    = "OBSENC"
	EncounterClassAcute        = "ACUTE"
	EncounterClassNonAcute     = "NONAC"
	EncounterClassPreAdmission = "PRENC"
	EncounterClassField        = "FLD"
)

// ObservationCategory codes.
const (
	ObsCategoryVitalSigns    = "vital-signs"
	ObsCategoryLaboratory    = "laboratory"
	ObsCategoryImaging       = "imaging"
	ObsCategorySocialHistory = "social-history"
)

// AdministrativeGender codes.
const (
	GenderMale    = "male"
	GenderFemale  = "female"
	GenderOther   = "other"
	GenderUnknown = "unknown"
)

// Bundle link relations.
const (
	LinkRelationSelf     = "self"
	LinkRelationNext     = "next"
	LinkRelationPrevious = "previous"
)

// Search parameters sent to remote servers.
const (
	SearchParamCount        = "_count"
	SearchParamRecordedDate = "recorded-date"
	SearchParamDate         = "date"
	SearchParamCategory     = "category"
)

// ICD-10 codes with hard classification rules.
const (
	ICD10COVID19 = "U07.1"
)
