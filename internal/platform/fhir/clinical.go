package fhir

// Typed views of the four resource kinds consumed by the surveillance pipeline.
// They cover only the elements the pipeline reads.

// Patient is a view of a FHIR R4 Patient. Synthetic is set on stand-ins that
// were fabricated because a reference could not be resolved; it is never
// serialized.
type Patient struct {
	ResourceType string    `json:"resourceType"`
	ID           string    `json:"id"`
	Gender       string    `json:"gender,omitempty"`
	BirthDate    string    `json:"birthDate,omitempty"`
	Address      []Address `json:"address,omitempty"`

	Synthetic bool `json:"-"`
}

func (p Patient) ResourceID() string { return p.ID }

// Encounter is a view of a FHIR R4 Encounter. In R4 class is a single Coding.
type Encounter struct {
	ResourceType string  `json:"resourceType"`
	ID           string  `json:"id"`
	Status       string  `json:"status,omitempty"`
	Class        *Coding `json:"class,omitempty"`

	Synthetic bool `json:"-"`
}

func (e Encounter) ResourceID() string { return e.ID }

// ClassCode returns the encounter class code, or "" when absent.
func (e Encounter) ClassCode() string {
	if e.Class == nil {
		return ""
	}
	return e.Class.Code
}

// Condition is a view of a FHIR R4 Condition.
type Condition struct {
	ResourceType  string           `json:"resourceType"`
	ID            string           `json:"id"`
	Code          *CodeableConcept `json:"code,omitempty"`
	Severity      *CodeableConcept `json:"severity,omitempty"`
	Subject       *Reference       `json:"subject,omitempty"`
	Encounter     *Reference       `json:"encounter,omitempty"`
	RecordedDate  string           `json:"recordedDate,omitempty"`
	OnsetDateTime string           `json:"onsetDateTime,omitempty"`
}

func (c Condition) ResourceID() string { return c.ID }

// DiagnosisDate returns the recorded date, falling back to the onset date.
func (c Condition) DiagnosisDate() string {
	if c.RecordedDate != "" {
		return c.RecordedDate
	}
	return c.OnsetDateTime
}

// Observation is a view of a FHIR R4 Observation.
type Observation struct {
	ResourceType         string            `json:"resourceType"`
	ID                   string            `json:"id"`
	Status               string            `json:"status,omitempty"`
	Category             []CodeableConcept `json:"category,omitempty"`
	Code                 *CodeableConcept  `json:"code,omitempty"`
	Subject              *Reference        `json:"subject,omitempty"`
	EffectiveDateTime    string            `json:"effectiveDateTime,omitempty"`
	ValueString          *string           `json:"valueString,omitempty"`
	ValueCodeableConcept *CodeableConcept  `json:"valueCodeableConcept,omitempty"`
}

func (o Observation) ResourceID() string { return o.ID }

// HasCategory reports whether any category coding carries the given code.
func (o Observation) HasCategory(code string) bool {
	for _, cat := range o.Category {
		for _, c := range cat.Coding {
			if c.Code == code {
				return true
			}
		}
	}
	return false
}

// ResultText returns the textual form of the observation value: valueString,
// or the text (falling back to the first coding display) of
// valueCodeableConcept. It returns "" when the observation carries neither.
func (o Observation) ResultText() string {
	if o.ValueString != nil {
		return *o.ValueString
	}
	if o.ValueCodeableConcept != nil {
		if o.ValueCodeableConcept.Text != "" {
			return o.ValueCodeableConcept.Text
		}
		if c, ok := o.ValueCodeableConcept.FirstCoding(); ok {
			return c.Display
		}
	}
	return ""
}
