package surveillance

import "time"

// Server statuses reported in the breakdown.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// Distribution names, in report order.
const (
	DistAge               = "age"
	DistAgeDetailed       = "age_detailed"
	DistGender            = "gender"
	DistEncounterType     = "encounter_type"
	DistDisease           = "disease"
	DistResidence         = "residence"
	DistResidenceDetailed = "residence_detailed"
	DistSeverity          = "severity"
	DistMonthlyTrend      = "monthly_trend"
	DistQuarter           = "quarter"
)

// Distributions holds the named per-bucket tallies of a result.
type Distributions struct {
	Age               Distribution `json:"age_distribution"`
	AgeDetailed       Distribution `json:"age_detailed_distribution"`
	Gender            Distribution `json:"gender_distribution"`
	EncounterType     Distribution `json:"encounter_type_distribution"`
	Disease           Distribution `json:"disease_distribution"`
	Residence         Distribution `json:"residence_distribution"`
	ResidenceDetailed Distribution `json:"residence_detailed_distribution"`
	Severity          Distribution `json:"severity_distribution"`
	MonthlyTrend      Distribution `json:"monthly_trend"`
	Quarter           Distribution `json:"quarter_distribution"`
}

func newDistributions() Distributions {
	return Distributions{
		Age:               Distribution{},
		AgeDetailed:       Distribution{},
		Gender:            Distribution{},
		EncounterType:     Distribution{},
		Disease:           Distribution{},
		Residence:         Distribution{},
		ResidenceDetailed: Distribution{},
		Severity:          Distribution{},
		MonthlyTrend:      Distribution{},
		Quarter:           Distribution{},
	}
}

// NamedDistribution pairs a distribution with its report name.
type NamedDistribution struct {
	Name         string
	Distribution Distribution
}

// Named lists every distribution in report order.
func (d Distributions) Named() []NamedDistribution {
	return []NamedDistribution{
		{DistAge, d.Age},
		{DistAgeDetailed, d.AgeDetailed},
		{DistGender, d.Gender},
		{DistEncounterType, d.EncounterType},
		{DistDisease, d.Disease},
		{DistResidence, d.Residence},
		{DistResidenceDetailed, d.ResidenceDetailed},
		{DistSeverity, d.Severity},
		{DistMonthlyTrend, d.MonthlyTrend},
		{DistQuarter, d.Quarter},
	}
}

// Merge adds other's counts into d. d's maps must be non-nil.
func (d Distributions) Merge(other Distributions) {
	d.Age.Merge(other.Age)
	d.AgeDetailed.Merge(other.AgeDetailed)
	d.Gender.Merge(other.Gender)
	d.EncounterType.Merge(other.EncounterType)
	d.Disease.Merge(other.Disease)
	d.Residence.Merge(other.Residence)
	d.ResidenceDetailed.Merge(other.ResidenceDetailed)
	d.Severity.Merge(other.Severity)
	d.MonthlyTrend.Merge(other.MonthlyTrend)
	d.Quarter.Merge(other.Quarter)
}

// ServerSummary is one row of the per-server breakdown. Count is set for
// successful servers and Error for failed ones.
type ServerSummary struct {
	ServerName          string `json:"server"`
	Status              string `json:"status"`
	Count               *int   `json:"count,omitempty"`
	Error               string `json:"error,omitempty"`
	SyntheticPatients   int    `json:"synthetic_patients,omitempty"`
	SyntheticEncounters int    `json:"synthetic_encounters,omitempty"`
	SkippedEntries      int    `json:"skipped_entries,omitempty"`
}

// AggregatedResult is the merged statistical result of one query run.
//
// TotalCount is the number of records counted during classification.
// SyntheticCount is the subset of condition records whose demographic or
// encounter buckets came from at least one synthetic stand-in.
type AggregatedResult struct {
	RunID          string    `json:"run_id,omitempty"`
	QueryLabel     string    `json:"query_label"`
	Description    string    `json:"description,omitempty"`
	TimeRange      string    `json:"time_range"`
	GeneratedAt    time.Time `json:"generated_at"`
	TotalCount     int       `json:"total_count"`
	SyntheticCount int       `json:"synthetic_count"`

	Distributions

	ServerBreakdown []ServerSummary `json:"server_breakdown"`
}

// Merge combines two results of the same query bucket-wise. Totals add,
// distributions merge by key, and breakdowns are concatenated.
func Merge(a, b AggregatedResult) AggregatedResult {
	out := AggregatedResult{
		RunID:          a.RunID,
		QueryLabel:     a.QueryLabel,
		Description:    a.Description,
		TimeRange:      a.TimeRange,
		GeneratedAt:    a.GeneratedAt,
		TotalCount:     a.TotalCount + b.TotalCount,
		SyntheticCount: a.SyntheticCount + b.SyntheticCount,
		Distributions:  newDistributions(),
	}
	if b.GeneratedAt.After(out.GeneratedAt) {
		out.GeneratedAt = b.GeneratedAt
	}
	out.Distributions.Merge(a.Distributions)
	out.Distributions.Merge(b.Distributions)
	out.ServerBreakdown = append(append([]ServerSummary{}, a.ServerBreakdown...), b.ServerBreakdown...)
	return out
}
