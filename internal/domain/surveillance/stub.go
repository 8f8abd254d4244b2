package surveillance

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ehr/surveillance/internal/platform/fhir"
	"github.com/ehr/surveillance/pkg/fhirmodels"
)

// stubNamespace scopes the name-based UUIDs of synthetic entities.
var stubNamespace = uuid.MustParse("6f1d3a52-8c1e-4f7a-9b0d-2e5c7a4b9d10")

var (
	stubGenders = []string{
		fhirmodels.GenderMale, fhirmodels.GenderFemale, fhirmodels.GenderMale,
		fhirmodels.GenderFemale, fhirmodels.GenderMale,
	}
	stubAges   = []int{25, 35, 45, 55, 65, 12, 8, 70}
	stubPlaces = []fhir.Address{
		{State: "New York", City: "New York"},
		{State: "California", City: "Los Angeles"},
		{State: "Illinois", City: "Chicago"},
		{State: "Texas", City: "Houston"},
		{State: "Arizona", City: "Phoenix"},
	}
	stubClasses = []string{
		fhirmodels.EncounterClassAmbulatory, fhirmodels.EncounterClassEmergency,
		fhirmodels.EncounterClassInpatient, fhirmodels.EncounterClassAmbulatory,
		fhirmodels.EncounterClassEmergency,
	}
)

// Stubber fabricates deterministic stand-ins for entities that a reference
// points to but that are absent from the fetched data. The same reference
// always yields the same stand-in for a given clock. Every stand-in has
// Synthetic set.
type Stubber struct {
	now func() time.Time
}

func NewStubber(now func() time.Time) *Stubber {
	if now == nil {
		now = time.Now
	}
	return &Stubber{now: now}
}

func stubKey(kind, refID string) uuid.UUID {
	return uuid.NewSHA1(stubNamespace, []byte(kind+"/"+refID))
}

// Patient synthesizes a Patient for an unresolved subject reference.
func (s *Stubber) Patient(refID string) fhir.Patient {
	key := stubKey(fhirmodels.ResourcePatient, refID)
	seed := int(key[0])

	age := stubAges[seed%len(stubAges)]
	birthYear := s.now().Year() - age
	place := stubPlaces[seed%len(stubPlaces)]

	return fhir.Patient{
		ResourceType: fhirmodels.ResourcePatient,
		ID:           "synthetic-" + key.String(),
		Gender:       stubGenders[seed%len(stubGenders)],
		BirthDate:    fmt.Sprintf("%04d-06-15", birthYear),
		Address:      []fhir.Address{place},
		Synthetic:    true,
	}
}

// Encounter synthesizes an Encounter for an unresolved encounter reference.
func (s *Stubber) Encounter(refID string) fhir.Encounter {
	key := stubKey(fhirmodels.ResourceEncounter, refID)
	seed := int(key[0])

	return fhir.Encounter{
		ResourceType: fhirmodels.ResourceEncounter,
		ID:           "synthetic-" + key.String(),
		Class:        &fhir.Coding{Code: stubClasses[seed%len(stubClasses)]},
		Synthetic:    true,
	}
}
