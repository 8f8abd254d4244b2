package surveillance

import (
	"fmt"
	"strings"
	"time"

	"github.com/ehr/surveillance/internal/platform/fhir"
	"github.com/ehr/surveillance/pkg/fhirmodels"
)

// BucketUnknown labels records whose attribute could not be determined.
const BucketUnknown = "unknown"

// Age bands.
const (
	AgeUnder5    = "<5"
	Age5to17     = "5–17"
	Age18to44    = "18–44"
	Age45to64    = "45–64"
	Age65AndOver = "65+"
)

// AgeBands lists the age groups youngest first, then unknown.
var AgeBands = []string{AgeUnder5, Age5to17, Age18to44, Age45to64, Age65AndOver, BucketUnknown}

// Encounter types.
const (
	EncounterOutpatient = "outpatient"
	EncounterEmergency  = "emergency"
	EncounterInpatient  = "inpatient"
	EncounterOther      = "other"
)

// Severity levels.
const (
	SeverityMild     = "mild"
	SeverityModerate = "moderate"
	SeveritySevere   = "severe"
)

// ---------------------------------------------------------------------------
// Dates and ages
// ---------------------------------------------------------------------------

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
	"2006-01",
	"2006",
}

// ParseDate parses a FHIR date or dateTime. monthKnown is false for
// year-only values. The wall-clock date is kept as written; no time zone
// conversion is applied.
func ParseDate(s string) (t time.Time, monthKnown bool, ok bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false, false
	}
	for _, layout := range dateLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			return parsed, layout != "2006", true
		}
	}
	return time.Time{}, false, false
}

// AgeAt returns the age in whole years at now: the year difference,
// decremented when now's month/day precedes the birth month/day.
func AgeAt(birthDate string, now time.Time) (int, bool) {
	b, _, ok := ParseDate(birthDate)
	if !ok {
		return 0, false
	}
	age := now.Year() - b.Year()
	if now.Month() < b.Month() || (now.Month() == b.Month() && now.Day() < b.Day()) {
		age--
	}
	if age < 0 {
		return 0, false
	}
	return age, true
}

// AgeBucket returns the five-band age group.
func AgeBucket(age int, known bool) string {
	switch {
	case !known:
		return BucketUnknown
	case age < 5:
		return AgeUnder5
	case age < 18:
		return Age5to17
	case age < 45:
		return Age18to44
	case age < 65:
		return Age45to64
	default:
		return Age65AndOver
	}
}

// DetailedAgeBucket returns the ten-year age group ("0-9" … "70-79", "80+").
func DetailedAgeBucket(age int, known bool) string {
	if !known {
		return BucketUnknown
	}
	if age >= 80 {
		return "80+"
	}
	lo := age / 10 * 10
	return fmt.Sprintf("%d-%d", lo, lo+9)
}

// MonthBucket returns "YYYY-MM" for a diagnosis date.
func MonthBucket(date string) (string, bool) {
	t, monthKnown, ok := ParseDate(date)
	if !ok || !monthKnown {
		return "", false
	}
	return fmt.Sprintf("%04d-%02d", t.Year(), int(t.Month())), true
}

// QuarterBucket returns "YYYYQn" for a diagnosis date.
func QuarterBucket(date string) (string, bool) {
	t, monthKnown, ok := ParseDate(date)
	if !ok || !monthKnown {
		return "", false
	}
	return fmt.Sprintf("%04dQ%d", t.Year(), (int(t.Month())-1)/3+1), true
}

// ---------------------------------------------------------------------------
// Demographics
// ---------------------------------------------------------------------------

// GenderBucket normalizes an administrative gender.
func GenderBucket(gender string) string {
	switch g := strings.ToLower(strings.TrimSpace(gender)); g {
	case fhirmodels.GenderMale, fhirmodels.GenderFemale, fhirmodels.GenderOther:
		return g
	default:
		return fhirmodels.GenderUnknown
	}
}

// ResidenceBucket returns "state, city" from the first address, falling back
// to whichever is present, or "unknown". ok is false when the patient has no
// address at all.
func ResidenceBucket(addresses []fhir.Address) (string, bool) {
	if len(addresses) == 0 {
		return "", false
	}
	a := addresses[0]
	switch {
	case a.State != "" && a.City != "":
		return a.State + ", " + a.City, true
	case a.State != "":
		return a.State, true
	case a.City != "":
		return a.City, true
	default:
		return BucketUnknown, true
	}
}

// ResidenceDetailedBucket extends the residence with district and postal code.
func ResidenceDetailedBucket(addresses []fhir.Address) (string, bool) {
	if len(addresses) == 0 {
		return "", false
	}
	a := addresses[0]
	var parts []string
	for _, p := range []string{a.State, a.City, a.District} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if a.PostalCode != "" {
		parts = append(parts, "postal code "+a.PostalCode)
	}
	if len(parts) == 0 {
		return BucketUnknown, true
	}
	return strings.Join(parts, ", "), true
}

// ---------------------------------------------------------------------------
// Encounter and severity
// ---------------------------------------------------------------------------

// EncounterTypeBucket maps an encounter class code to its type.
func EncounterTypeBucket(classCode string) string {
	switch classCode {
	case fhirmodels.EncounterClassInpatient, fhirmodels.EncounterClassAcute, fhirmodels.EncounterClassNonAcute:
		return EncounterInpatient
	case fhirmodels.EncounterClassEmergency:
		return EncounterEmergency
	case fhirmodels.EncounterClassAmbulatory, fhirmodels.EncounterClassPreAdmission:
		return EncounterOutpatient
	default:
		return EncounterOther
	}
}

// severityFromEncounter infers severity from the encounter class.
func severityFromEncounter(classCode string) (string, bool) {
	switch classCode {
	case fhirmodels.EncounterClassInpatient, fhirmodels.EncounterClassAcute:
		return SeveritySevere, true
	case fhirmodels.EncounterClassEmergency:
		return SeverityModerate, true
	case fhirmodels.EncounterClassAmbulatory:
		return SeverityMild, true
	}
	return "", false
}

// severityFromCoding reads an explicit severity coding on the condition.
func severityFromCoding(cc *fhir.CodeableConcept) (string, bool) {
	if cc == nil {
		return "", false
	}
	text := cc.Text
	if c, ok := cc.FirstCoding(); ok && c.Display != "" {
		text = c.Display
	}
	text = strings.ToLower(text)
	switch {
	case text == "":
		return "", false
	case strings.Contains(text, "severe") || strings.Contains(text, "重"):
		return SeveritySevere, true
	case strings.Contains(text, "moderate") || strings.Contains(text, "中"):
		return SeverityModerate, true
	case strings.Contains(text, "mild") || strings.Contains(text, "輕"):
		return SeverityMild, true
	}
	return "", false
}

// SeverityBucket infers severity from the encounter class first and, only when
// that yields no verdict, from the condition's own severity coding.
func SeverityBucket(classCode string, severity *fhir.CodeableConcept) string {
	if s, ok := severityFromEncounter(classCode); ok {
		return s
	}
	if s, ok := severityFromCoding(severity); ok {
		return s
	}
	return BucketUnknown
}
