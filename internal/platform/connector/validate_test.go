package connector

import (
	"encoding/json"
	"testing"

	"github.com/ehr/surveillance/internal/platform/fhir"
)

func rawEntry(body string) fhir.BundleEntry {
	return fhir.BundleEntry{Resource: json.RawMessage(body)}
}

func TestValidateDataset(t *testing.T) {
	ds := &ServerDataset{
		Patients: []fhir.BundleEntry{
			rawEntry(`{"resourceType":"Patient","id":"p1"}`),
			rawEntry(`{"resourceType":"Patient"}`),
		},
		Conditions: []fhir.BundleEntry{
			rawEntry(`{"resourceType":"Condition","id":"c1"}`),
			rawEntry(`{"resourceType":"OperationOutcome","id":"oo"}`),
			{FullURL: "Condition/empty"},
		},
		Observations: []fhir.BundleEntry{
			rawEntry(`{"resourceType":`),
		},
	}

	stats := ValidateDataset(ds)
	if stats.Entries != 6 {
		t.Errorf("Entries = %d, want 6", stats.Entries)
	}
	if stats.Empty != 1 || stats.Malformed != 1 || stats.Misplaced != 1 || stats.MissingIDs != 1 {
		t.Errorf("stats = %+v", stats)
	}
	if stats.ByKind[fhir.KindPatient] != 2 || stats.ByKind[fhir.KindCondition] != 1 || stats.ByKind[fhir.KindOther] != 1 {
		t.Errorf("ByKind = %v", stats.ByKind)
	}
}

func TestValidateDataset_Nil(t *testing.T) {
	stats := ValidateDataset(nil)
	if stats.Entries != 0 || stats.ByKind == nil {
		t.Errorf("stats = %+v", stats)
	}
}

func TestDatasetStats_Add(t *testing.T) {
	var total DatasetStats
	total.Add(ValidateDataset(&ServerDataset{Patients: []fhir.BundleEntry{rawEntry(`{"resourceType":"Patient","id":"a"}`)}}))
	total.Add(ValidateDataset(&ServerDataset{Patients: []fhir.BundleEntry{{}}}))

	if total.Entries != 2 || total.Empty != 1 || total.ByKind[fhir.KindPatient] != 1 {
		t.Errorf("total = %+v", total)
	}
}
