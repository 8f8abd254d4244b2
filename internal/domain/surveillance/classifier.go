package surveillance

import (
	"strings"

	"github.com/ehr/surveillance/internal/platform/fhir"
	"github.com/ehr/surveillance/pkg/fhirmodels"
)

// Category is one disease category of the fixed surveillance taxonomy.
type Category string

const (
	CategoryCOVID19     Category = "COVID-19"
	CategoryInfluenza   Category = "Influenza"
	CategoryEnterovirus Category = "Enterovirus"
	CategoryAdenovirus  Category = "Adenovirus"
	CategoryRotavirus   Category = "Rotavirus"
	CategoryNorovirus   Category = "Norovirus"
	CategoryOther       Category = "Other"
)

// Categories lists the taxonomy in display order.
var Categories = []Category{
	CategoryCOVID19,
	CategoryInfluenza,
	CategoryEnterovirus,
	CategoryAdenovirus,
	CategoryRotavirus,
	CategoryNorovirus,
	CategoryOther,
}

// classificationRule matches a coding by exact code or by a substring of the
// lower-cased display text.
type classificationRule struct {
	category Category
	codes    []string
	keywords []string
}

func (r classificationRule) matches(code, display string) bool {
	for _, c := range r.codes {
		if code == c {
			return true
		}
	}
	for _, k := range r.keywords {
		if strings.Contains(display, k) {
			return true
		}
	}
	return false
}

// conditionRules classify Condition codings (ICD-10 / SNOMED display text).
// Order matters: the first matching rule wins.
var conditionRules = []classificationRule{
	{CategoryCOVID19, []string{fhirmodels.ICD10COVID19}, []string{"covid", "sars-cov-2"}},
	{CategoryInfluenza, nil, []string{"influenza", "flu"}},
	{CategoryEnterovirus, nil, []string{"enterovirus", "enteroviral", "coxsackie", "hand, foot and mouth"}},
	{CategoryAdenovirus, nil, []string{"adenovirus"}},
	{CategoryRotavirus, nil, []string{"rotavirus"}},
	{CategoryNorovirus, nil, []string{"norovirus", "norwalk"}},
}

// labRules classify laboratory Observation codings (LOINC display text).
var labRules = []classificationRule{
	{CategoryCOVID19, nil, []string{"sars-cov-2", "covid"}},
	{CategoryInfluenza, nil, []string{"influenza"}},
	{CategoryEnterovirus, nil, []string{"enterovirus"}},
	{CategoryAdenovirus, nil, []string{"adenovirus"}},
	{CategoryRotavirus, nil, []string{"rotavirus"}},
	{CategoryNorovirus, nil, []string{"norovirus"}},
}

func classify(rules []classificationRule, coding fhir.Coding) Category {
	display := strings.ToLower(coding.Display)
	code := strings.TrimSpace(coding.Code)
	for _, r := range rules {
		if r.matches(code, display) {
			return r.category
		}
	}
	return CategoryOther
}

// ClassifyCondition maps a Condition coding to a category. Codes with a hard
// rule (U07.1) win before any display text is inspected.
func ClassifyCondition(coding fhir.Coding) Category {
	return classify(conditionRules, coding)
}

// ClassifyLab maps a laboratory Observation coding to a category.
func ClassifyLab(coding fhir.Coding) Category {
	return classify(labRules, coding)
}

// ClassifyConcept classifies the first coding of a Condition code, or Other
// when the concept carries no coding.
func ClassifyConcept(cc *fhir.CodeableConcept) Category {
	c, ok := cc.FirstCoding()
	if !ok {
		return CategoryOther
	}
	return ClassifyCondition(c)
}

// IsPositiveResult reports whether a lab observation's value text indicates a
// positive or detected result. Explicit negatives ("not detected",
// "negative") are never positive.
func IsPositiveResult(obs fhir.Observation) bool {
	text := strings.ToLower(obs.ResultText())
	if text == "" {
		return false
	}
	for _, neg := range []string{"not detected", "undetected", "negative", "陰性"} {
		if strings.Contains(text, neg) {
			return false
		}
	}
	for _, pos := range []string{"detected", "positive", "陽性"} {
		if strings.Contains(text, pos) {
			return true
		}
	}
	return false
}
