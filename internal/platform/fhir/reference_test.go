package fhir

import "testing"

func TestReferenceID(t *testing.T) {
	tests := []struct {
		ref  string
		want string
	}{
		{"Patient/123", "123"},
		{"urn:uuid:123", "123"},
		{"urn:oid:1.2.3", "1.2.3"},
		{"http://example.org/fhir/Patient/abc", "abc"},
		{"Patient/abc/_history/2", "abc"},
		{"123", "123"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := ReferenceID(tt.ref); got != tt.want {
			t.Errorf("ReferenceID(%q) = %q, want %q", tt.ref, got, tt.want)
		}
	}
}

func TestResolveReference_URNAndRelativeResolveToSameCandidate(t *testing.T) {
	candidates := []Patient{{ID: "123", Gender: "female"}}

	for _, ref := range []string{"urn:uuid:123", "Patient/123", "123"} {
		got, ok := ResolveReference(ref, candidates)
		if !ok {
			t.Fatalf("ResolveReference(%q) did not resolve", ref)
		}
		if got.ID != "123" {
			t.Errorf("ResolveReference(%q) = %q, want 123", ref, got.ID)
		}
	}
}

func TestResolveReference_ExactBeatsSuffix(t *testing.T) {
	candidates := []Patient{
		{ID: "x-42"},
		{ID: "42"},
	}
	got, ok := ResolveReference("Patient/42", candidates)
	if !ok {
		t.Fatal("expected resolution")
	}
	if got.ID != "42" {
		t.Errorf("got %q, want exact match 42", got.ID)
	}
}

func TestResolveReference_SuffixFallback(t *testing.T) {
	candidates := []Encounter{{ID: "site-a-enc-9"}}
	got, ok := ResolveReference("Encounter/enc-9", candidates)
	if !ok {
		t.Fatal("expected suffix match")
	}
	if got.ID != "site-a-enc-9" {
		t.Errorf("got %q, want site-a-enc-9", got.ID)
	}
}

func TestResolveReference_AbsoluteURLEndingWithID(t *testing.T) {
	candidates := []Patient{{ID: "p1"}}
	if _, ok := ResolveReference("https://fhir.example.org/r4/Patient/p1", candidates); !ok {
		t.Error("expected absolute reference to resolve")
	}
}

func TestResolveReference_NoMatch(t *testing.T) {
	candidates := []Patient{{ID: "123"}}
	if _, ok := ResolveReference("Patient/999", candidates); ok {
		t.Error("expected no match")
	}
	if _, ok := ResolveReference("", candidates); ok {
		t.Error("expected empty reference not to resolve")
	}
	if _, ok := ResolveReference[Patient]("Patient/1", nil); ok {
		t.Error("expected no candidates not to resolve")
	}
}

func TestReferenceIndex_DuplicateIDsFirstWins(t *testing.T) {
	idx := NewReferenceIndex([]Patient{
		{ID: "dup", Gender: "male"},
		{ID: "dup", Gender: "female"},
	})
	got, ok := idx.Resolve("Patient/dup")
	if !ok {
		t.Fatal("expected resolution")
	}
	if got.Gender != "male" {
		t.Errorf("got gender %q, want first candidate (male)", got.Gender)
	}
	if idx.Len() != 2 {
		t.Errorf("Len() = %d, want 2", idx.Len())
	}
}
