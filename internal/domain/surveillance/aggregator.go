package surveillance

import (
	"fmt"
	"time"

	"github.com/ehr/surveillance/internal/platform/connector"
	"github.com/ehr/surveillance/internal/platform/fhir"
	"github.com/ehr/surveillance/pkg/fhirmodels"
)

// Aggregator turns fetched server datasets into an AggregatedResult for one
// query label. It is pure apart from reading the clock.
type Aggregator struct {
	rangeYears int
	now        func() time.Time
	stubs      *Stubber
}

// NewAggregator creates an Aggregator. rangeYears only feeds the time range
// description; date filtering happens at fetch time. A nil now uses
// time.Now.
func NewAggregator(rangeYears int, now func() time.Time) *Aggregator {
	if now == nil {
		now = time.Now
	}
	return &Aggregator{rangeYears: rangeYears, now: now, stubs: NewStubber(now)}
}

// TimeRangeDescription describes the configured look-back window.
func (a *Aggregator) TimeRangeDescription() string {
	if a.rangeYears == 1 {
		return "past 1 year"
	}
	return fmt.Sprintf("past %d years", a.rangeYears)
}

// Aggregate classifies and buckets every record of every successful outcome
// and merges the per-server tallies. Failed outcomes only contribute a
// breakdown row. The breakdown preserves the order of outcomes.
func (a *Aggregator) Aggregate(outcomes []connector.FetchOutcome, label string) AggregatedResult {
	result := a.empty(label)
	for _, o := range outcomes {
		result = Merge(result, a.aggregateServer(o, label))
	}
	return result
}

func (a *Aggregator) empty(label string) AggregatedResult {
	return AggregatedResult{
		QueryLabel:      label,
		TimeRange:       a.TimeRangeDescription(),
		GeneratedAt:     a.now().UTC(),
		Distributions:   newDistributions(),
		ServerBreakdown: []ServerSummary{},
	}
}

func (a *Aggregator) aggregateServer(o connector.FetchOutcome, label string) AggregatedResult {
	result := a.empty(label)
	if !o.Success {
		result.ServerBreakdown = append(result.ServerBreakdown, ServerSummary{
			ServerName: o.Server.Name,
			Status:     StatusFailed,
			Error:      o.Error,
		})
		return result
	}

	view := newServerView(o.Dataset)
	patients := fhir.NewReferenceIndex(view.patients)
	encounters := fhir.NewReferenceIndex(view.encounters)
	now := a.now()

	summary := ServerSummary{
		ServerName:     o.Server.Name,
		Status:         StatusSuccess,
		SkippedEntries: view.malformed,
	}

	for _, c := range view.conditions {
		cat := ClassifyConcept(c.Code)
		if !MatchesQueryLabel(cat, label) {
			continue
		}

		patient, ok := patients.Resolve(refString(c.Subject))
		if !ok {
			patient = a.stubs.Patient(fhir.ReferenceID(refString(c.Subject)))
			summary.SyntheticPatients++
		}

		var classCode string
		encounterSynthetic := false
		if ref := refString(c.Encounter); ref != "" {
			enc, ok := encounters.Resolve(ref)
			if !ok {
				enc = a.stubs.Encounter(fhir.ReferenceID(ref))
				summary.SyntheticEncounters++
			}
			classCode = enc.ClassCode()
			encounterSynthetic = enc.Synthetic
		}

		result.TotalCount++
		if patient.Synthetic || encounterSynthetic {
			result.SyntheticCount++
		}
		a.bucketCondition(result.Distributions, c, patient, classCode, now)
		result.Disease.Add(string(cat))
	}

	for _, obs := range view.observations {
		if !isLabResult(obs) || !IsPositiveResult(obs) {
			continue
		}
		coding, ok := obs.Code.FirstCoding()
		if !ok {
			continue
		}
		cat := ClassifyLab(coding)
		if !MatchesQueryLabel(cat, label) {
			continue
		}
		result.TotalCount++
		result.Disease.Add(string(cat))
	}

	count := result.TotalCount
	summary.Count = &count
	result.ServerBreakdown = append(result.ServerBreakdown, summary)
	return result
}

func (a *Aggregator) bucketCondition(d Distributions, c fhir.Condition, p fhir.Patient, classCode string, now time.Time) {
	age, known := AgeAt(p.BirthDate, now)
	d.Age.Add(AgeBucket(age, known))
	d.AgeDetailed.Add(DetailedAgeBucket(age, known))
	d.Gender.Add(GenderBucket(p.Gender))

	if r, ok := ResidenceBucket(p.Address); ok {
		d.Residence.Add(r)
	}
	if r, ok := ResidenceDetailedBucket(p.Address); ok {
		d.ResidenceDetailed.Add(r)
	}

	d.EncounterType.Add(EncounterTypeBucket(classCode))
	d.Severity.Add(SeverityBucket(classCode, c.Severity))

	date := c.DiagnosisDate()
	if m, ok := MonthBucket(date); ok {
		d.MonthlyTrend.Add(m)
	}
	if q, ok := QuarterBucket(date); ok {
		d.Quarter.Add(q)
	}
}

// isLabResult accepts observations tagged laboratory, and untagged ones since
// the fetch already filtered by category.
func isLabResult(o fhir.Observation) bool {
	return len(o.Category) == 0 || o.HasCategory(fhirmodels.ObsCategoryLaboratory)
}

func refString(r *fhir.Reference) string {
	if r == nil {
		return ""
	}
	return r.Reference
}

// serverView is the typed projection of one ServerDataset. Entries are routed
// by their own resourceType, not by the list they arrived in.
type serverView struct {
	patients     []fhir.Patient
	conditions   []fhir.Condition
	observations []fhir.Observation
	encounters   []fhir.Encounter
	ignored      int
	malformed    int
}

func newServerView(ds *connector.ServerDataset) *serverView {
	v := &serverView{}
	if ds == nil {
		return v
	}
	for _, list := range [][]fhir.BundleEntry{ds.Patients, ds.Conditions, ds.Observations, ds.Encounters} {
		for _, e := range list {
			if err := fhir.Dispatch(e, v); err != nil {
				v.malformed++
			}
		}
	}
	return v
}

func (v *serverView) VisitPatient(p fhir.Patient) { v.patients = append(v.patients, p) }
func (v *serverView) VisitCondition(c fhir.Condition) { v.conditions = append(v.conditions, c) }
func (v *serverView) VisitObservation(o fhir.Observation) { v.observations = append(v.observations, o) }
func (v *serverView) VisitEncounter(e fhir.Encounter) { v.encounters = append(v.encounters, e) }
func (v *serverView) VisitMedicationRequest(fhir.Resource) { v.ignored++ }
func (v *serverView) VisitOther(fhir.Resource) { v.ignored++ }
