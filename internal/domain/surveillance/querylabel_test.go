package surveillance

import (
	"reflect"
	"strings"
	"testing"
)

func TestMatchesQueryLabel(t *testing.T) {
	tests := []struct {
		category Category
		label    string
		want     bool
	}{
		{CategoryCOVID19, "COVID-19 Monitor", true},
		{CategoryInfluenza, "COVID-19 Monitor", false},
		{CategoryInfluenza, "流感監測", true},
		{CategoryInfluenza, "Flu season", true},
		{CategoryAdenovirus, "紅眼症", true},
		{CategoryEnterovirus, "腸病毒週報", true},
		{CategoryRotavirus, "Diarrhea cluster", true},
		{CategoryNorovirus, "腹瀉", true},
		{CategoryCOVID19, "Diarrhea cluster", false},
		{CategoryRotavirus, "Rotavirus watch", true},
		{CategoryOther, "COVID-19 Monitor", false},
		{CategoryOther, "Other", false},
		{CategoryCOVID19, "unrelated label", false},
		{CategoryCOVID19, "", false},
	}
	for _, tt := range tests {
		if got := MatchesQueryLabel(tt.category, tt.label); got != tt.want {
			t.Errorf("MatchesQueryLabel(%q, %q) = %v, want %v", tt.category, tt.label, got, tt.want)
		}
	}
}

func TestLabelRules_CategoryKeywordsNameTaxonomy(t *testing.T) {
	for _, r := range labelRules {
		for _, k := range r.categoryKeywords {
			found := false
			for _, c := range Categories {
				if c != CategoryOther && strings.Contains(strings.ToLower(string(c)), k) {
					found = true
					break
				}
			}
			if !found {
				t.Errorf("category keyword %q matches no category in %v", k, Categories)
			}
		}
	}
}

func TestRelevantCategories(t *testing.T) {
	tests := []struct {
		label string
		want  []Category
	}{
		{"COVID-19 Monitor", []Category{CategoryCOVID19}},
		{"腹瀉群聚", []Category{CategoryRotavirus, CategoryNorovirus}},
		{"conjunctivitis", []Category{CategoryAdenovirus}},
		{"nothing", nil},
	}
	for _, tt := range tests {
		if got := RelevantCategories(tt.label); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("RelevantCategories(%q) = %v, want %v", tt.label, got, tt.want)
		}
	}
}
