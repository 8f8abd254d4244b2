package surveillance

import "strings"

// labelRule selects categories for query labels containing any of
// labelKeywords. A category is relevant when its lower-cased name contains
// any of categoryKeywords. The taxonomy is closed, so categoryKeywords only
// name the categories themselves.
//
// This table is maintained separately from the classification tables: label
// vocabulary (e.g. "diarrhea", "紅眼症") is not the same as coding vocabulary.
type labelRule struct {
	labelKeywords    []string
	categoryKeywords []string
}

// labelRules is evaluated top to bottom; the first rule whose label keywords
// match decides relevance.
var labelRules = []labelRule{
	{[]string{"covid", "sars-cov"}, []string{"covid"}},
	{[]string{"流感", "influenza", "flu"}, []string{"influenza"}},
	{[]string{"紅眼症", "紅眼", "conjunctivitis"}, []string{"adenovirus"}},
	{[]string{"腸病毒", "enterovirus"}, []string{"enterovirus"}},
	{[]string{"腹瀉", "diarrhea", "腸胃炎", "gastroenteritis"}, []string{"rotavirus", "norovirus"}},
	{[]string{"腺病毒", "adenovirus"}, []string{"adenovirus"}},
	{[]string{"輪狀病毒", "rotavirus"}, []string{"rotavirus"}},
	{[]string{"諾羅病毒", "norovirus"}, []string{"norovirus"}},
}

// MatchesQueryLabel reports whether records classified as category are
// relevant to the query label. Matching is case-insensitive keyword
// containment. Other never matches.
func MatchesQueryLabel(category Category, label string) bool {
	if category == "" || category == CategoryOther {
		return false
	}
	cat := strings.ToLower(string(category))
	lbl := strings.ToLower(label)

	for _, r := range labelRules {
		if !containsAny(lbl, r.labelKeywords) {
			continue
		}
		return containsAny(cat, r.categoryKeywords)
	}
	return false
}

// RelevantCategories returns the taxonomy categories a label selects.
func RelevantCategories(label string) []Category {
	var out []Category
	for _, c := range Categories {
		if MatchesQueryLabel(c, label) {
			out = append(out, c)
		}
	}
	return out
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
