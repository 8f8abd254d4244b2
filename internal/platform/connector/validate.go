package connector

import (
	"github.com/ehr/surveillance/internal/platform/fhir"
	"github.com/ehr/surveillance/pkg/fhirmodels"
)

// DatasetStats summarizes the structural health of a dataset. Values are
// returned per call; callers that validate several datasets accumulate them
// with Add.
type DatasetStats struct {
	Entries    int                       `json:"entries"`
	ByKind     map[fhir.ResourceKind]int `json:"-"`
	Empty      int                       `json:"empty"`
	Malformed  int                       `json:"malformed"`
	Misplaced  int                       `json:"misplaced"`
	MissingIDs int                       `json:"missing_ids"`
}

// Add accumulates other into s.
func (s *DatasetStats) Add(other DatasetStats) {
	s.Entries += other.Entries
	s.Empty += other.Empty
	s.Malformed += other.Malformed
	s.Misplaced += other.Misplaced
	s.MissingIDs += other.MissingIDs
	if len(other.ByKind) > 0 && s.ByKind == nil {
		s.ByKind = make(map[fhir.ResourceKind]int, len(other.ByKind))
	}
	for k, n := range other.ByKind {
		s.ByKind[k] += n
	}
}

// ValidateDataset inspects every entry of ds. An entry is misplaced when its
// resourceType differs from the list it was fetched into (servers may return
// included resources or OperationOutcome entries in a searchset).
func ValidateDataset(ds *ServerDataset) DatasetStats {
	stats := DatasetStats{ByKind: map[fhir.ResourceKind]int{}}
	if ds == nil {
		return stats
	}

	lists := []struct {
		expected string
		entries  []fhir.BundleEntry
	}{
		{fhirmodels.ResourcePatient, ds.Patients},
		{fhirmodels.ResourceCondition, ds.Conditions},
		{fhirmodels.ResourceObservation, ds.Observations},
		{fhirmodels.ResourceEncounter, ds.Encounters},
	}

	for _, l := range lists {
		for _, e := range l.entries {
			stats.Entries++
			if len(e.Resource) == 0 {
				stats.Empty++
				continue
			}
			hdr, err := e.Header()
			if err != nil {
				stats.Malformed++
				continue
			}
			stats.ByKind[fhir.KindOf(hdr.ResourceType)]++
			if hdr.ResourceType != l.expected {
				stats.Misplaced++
			}
			if hdr.ID == "" {
				stats.MissingIDs++
			}
		}
	}
	return stats
}
