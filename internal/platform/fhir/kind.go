package fhir

import (
	"fmt"

	"github.com/ehr/surveillance/pkg/fhirmodels"
)

// ResourceKind is the closed set of resource kinds the pipeline distinguishes.
type ResourceKind int

const (
	KindOther ResourceKind = iota
	KindPatient
	KindCondition
	KindObservation
	KindEncounter
	KindMedicationRequest
)

func (k ResourceKind) String() string {
	switch k {
	case KindPatient:
		return fhirmodels.ResourcePatient
	case KindCondition:
		return fhirmodels.ResourceCondition
	case KindObservation:
		return fhirmodels.ResourceObservation
	case KindEncounter:
		return fhirmodels.ResourceEncounter
	case KindMedicationRequest:
		return fhirmodels.ResourceMedicationRequest
	default:
		return "Other"
	}
}

// KindOf maps a resourceType discriminator to its ResourceKind.
func KindOf(resourceType string) ResourceKind {
	switch resourceType {
	case fhirmodels.ResourcePatient:
		return KindPatient
	case fhirmodels.ResourceCondition:
		return KindCondition
	case fhirmodels.ResourceObservation:
		return KindObservation
	case fhirmodels.ResourceEncounter:
		return KindEncounter
	case fhirmodels.ResourceMedicationRequest:
		return KindMedicationRequest
	default:
		return KindOther
	}
}

// Visitor has one method per ResourceKind. Implementations must handle every
// kind, so adding a kind breaks every visitor at compile time.
type Visitor interface {
	VisitPatient(Patient)
	VisitCondition(Condition)
	VisitObservation(Observation)
	VisitEncounter(Encounter)
	VisitMedicationRequest(Resource)
	VisitOther(Resource)
}

// Dispatch decodes the entry according to its resourceType and invokes the
// matching visitor method exactly once. Undecodable entries return an error
// and invoke nothing.
func Dispatch(entry BundleEntry, v Visitor) error {
	hdr, err := entry.Header()
	if err != nil {
		return err
	}

	switch KindOf(hdr.ResourceType) {
	case KindPatient:
		var p Patient
		if err := entry.Decode(&p); err != nil {
			return fmt.Errorf("decode Patient/%s: %w", hdr.ID, err)
		}
		v.VisitPatient(p)
	case KindCondition:
		var c Condition
		if err := entry.Decode(&c); err != nil {
			return fmt.Errorf("decode Condition/%s: %w", hdr.ID, err)
		}
		v.VisitCondition(c)
	case KindObservation:
		var o Observation
		if err := entry.Decode(&o); err != nil {
			return fmt.Errorf("decode Observation/%s: %w", hdr.ID, err)
		}
		v.VisitObservation(o)
	case KindEncounter:
		var e Encounter
		if err := entry.Decode(&e); err != nil {
			return fmt.Errorf("decode Encounter/%s: %w", hdr.ID, err)
		}
		v.VisitEncounter(e)
	case KindMedicationRequest:
		v.VisitMedicationRequest(hdr)
	default:
		v.VisitOther(hdr)
	}
	return nil
}
